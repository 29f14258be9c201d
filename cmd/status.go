package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Long: `Query the bytescope daemon for its overall status.

Shows: version, uptime, source connection, framing delimiters, buffer and
history occupancy, rule counts and whether a critical warning is active.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStatus(cmd.Context(), newController(), cmd.OutOrStdout(), statusOutput)
	},
}

var statusOutput string

func init() {
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "output format: table/json/yaml")
}

func runStatus(ctx context.Context, client Controller, out io.Writer, format string) error {
	st, err := client.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to query daemon status: %w", err)
	}
	if done, err := writeStructured(out, format, st); done {
		return err
	}
	printStatus(out, st)
	return nil
}
