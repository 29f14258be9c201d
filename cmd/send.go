package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"firestige.xyz/bytescope/internal/core"
)

var sendCmd = &cobra.Command{
	Use:   "send <hex>...",
	Short: "Write bytes to the connected peer",
	Long: `Write space separated hex bytes to the peer the daemon is connected to.

Examples:
  bytescope send FE ED FA CE
  bytescope send "AA 55 01 0D 0A"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSend(cmd.Context(), newController(), cmd.OutOrStdout(), strings.Join(args, " "))
	},
}

func runSend(ctx context.Context, client Controller, out io.Writer, hexText string) error {
	payload, err := core.DecodeHex(hexText)
	if err != nil {
		return err
	}
	if len(payload) == 0 {
		return fmt.Errorf("nothing to send")
	}
	if err := client.Send(ctx, hexText); err != nil {
		return fmt.Errorf("failed to send: %w", err)
	}
	fmt.Fprintf(out, "✓ Sent %d bytes\n", len(payload))
	return nil
}
