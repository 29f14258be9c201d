package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var messagesCmd = &cobra.Command{
	Use:   "messages",
	Short: "Show framed messages",
	Long: `Show the retained messages, oldest first, evaluated against the rules
as they are now.

Examples:
  bytescope messages                 # every retained message as hex
  bytescope messages -n 5 --text     # newest five as text
  bytescope messages -o json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMessages(cmd.Context(), newController(), cmd.OutOrStdout(), messagesLimit, messagesText, messagesOutput)
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop message history and buffered bytes",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runClear(cmd.Context(), newController(), cmd.OutOrStdout())
	},
}

var (
	messagesLimit  int
	messagesText   bool
	messagesOutput string
)

func init() {
	messagesCmd.Flags().IntVarP(&messagesLimit, "limit", "n", 0, "newest N messages (0 for all)")
	messagesCmd.Flags().BoolVar(&messagesText, "text", false, "show payloads as text instead of hex")
	messagesCmd.Flags().StringVarP(&messagesOutput, "output", "o", "table", "output format: table/json/yaml")
}

func runMessages(ctx context.Context, client Controller, out io.Writer, limit int, asText bool, format string) error {
	if limit < 0 {
		return fmt.Errorf("limit must not be negative: %d", limit)
	}
	reports, err := client.Messages(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list messages: %w", err)
	}
	if done, err := writeStructured(out, format, reports); done {
		return err
	}
	if len(reports) == 0 {
		fmt.Fprintln(out, "No messages.")
		return nil
	}
	for _, r := range reports {
		printReport(out, r, asText)
	}
	return nil
}

func runClear(ctx context.Context, client Controller, out io.Writer) error {
	if err := client.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear: %w", err)
	}
	fmt.Fprintln(out, "✓ Messages cleared")
	return nil
}
