package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"firestige.xyz/bytescope/internal/generator"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run the test stream server",
	Long: `Run a TCP server that streams 35-byte test frames to every client.

Each client receives frames with ids 1, 2, 3 in turn, one per period. Sending
FE ED FA CE makes the server answer at once with frames 1, 2 and 3.

Examples:
  bytescope generate
  bytescope generate --listen 0.0.0.0:9000 --period 1s`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runGenerate(ctx, generator.Config{Listen: generateListen, Period: generatePeriod})
	},
}

var (
	generateListen string
	generatePeriod time.Duration
)

func init() {
	generateCmd.Flags().StringVarP(&generateListen, "listen", "l", "127.0.0.1:9000", "listen address")
	generateCmd.Flags().DurationVar(&generatePeriod, "period", generator.DefaultPeriod, "interval between periodic frames")
}

func runGenerate(ctx context.Context, cfg generator.Config) error {
	srv := generator.NewServer(cfg)
	if err := srv.Listen(); err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	fmt.Printf("Test server listening on %s (period %v)\n", srv.Addr(), cfg.Period)
	return srv.Serve(ctx)
}
