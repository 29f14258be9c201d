package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"firestige.xyz/bytescope/internal/command"
)

// framingCmd represents the framing command group
var framingCmd = &cobra.Command{
	Use:   "framing",
	Short: "Show or change the message delimiters",
}

var framingGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the current delimiters",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFramingGet(cmd.Context(), newController(), cmd.OutOrStdout())
	},
}

var framingSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change the delimiters",
	Long: `Change the start and/or end delimiter. The new values apply from the next
extraction pass; invalid hex leaves the current value in place.

Examples:
  bytescope framing set --start "AA 55" --end "0D 0A"
  bytescope framing set --end ""      # frames run to the next start`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var params command.FramingParams
		if cmd.Flags().Changed("start") {
			params.Start = &framingStart
		}
		if cmd.Flags().Changed("end") {
			params.End = &framingEnd
		}
		return runFramingSet(cmd.Context(), newController(), cmd.OutOrStdout(), params)
	},
}

var (
	framingStart string
	framingEnd   string
)

func init() {
	framingCmd.AddCommand(framingGetCmd)
	framingCmd.AddCommand(framingSetCmd)

	framingSetCmd.Flags().StringVar(&framingStart, "start", "", "start delimiter hex")
	framingSetCmd.Flags().StringVar(&framingEnd, "end", "", "end delimiter hex")
}

func runFramingGet(ctx context.Context, client Controller, out io.Writer) error {
	res, err := client.Framing(ctx)
	if err != nil {
		return fmt.Errorf("failed to get framing: %w", err)
	}
	printFraming(out, res)
	return nil
}

func runFramingSet(ctx context.Context, client Controller, out io.Writer, params command.FramingParams) error {
	if params.Start == nil && params.End == nil {
		return errors.New("nothing to change: pass --start and/or --end")
	}
	res, err := client.SetFraming(ctx, params)
	if err != nil {
		return fmt.Errorf("failed to set framing: %w", err)
	}
	printFraming(out, res)
	return nil
}

func printFraming(out io.Writer, res command.FramingResult) {
	fmt.Fprintf(out, "start: %q\nend:   %q\n", res.Start, res.End)
}
