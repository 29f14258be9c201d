package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"firestige.xyz/bytescope/internal/config"
	"firestige.xyz/bytescope/internal/core"
	"firestige.xyz/bytescope/internal/daemon"
)

// stopCmd represents the stop command
var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the bytescope daemon",
	Long: `Stop the bytescope daemon gracefully.

The shutdown request goes over the Unix Domain Socket. With --force, or when the
socket does not answer, the daemon recorded in the PID file receives SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStop(cmd.Context(), newController(), cmd.OutOrStdout(), stopForce, stopPIDFile())
	},
}

var (
	stopForce   bool
	stopTimeout time.Duration
)

func init() {
	stopCmd.Flags().BoolVar(&stopForce, "force", false, "signal the PID file process directly")
	stopCmd.Flags().DurationVar(&stopTimeout, "timeout", 10*time.Second, "wait for the process to exit")
}

func stopPIDFile() string {
	if cfg, err := config.Load(configFile); err == nil {
		return cfg.Control.PIDFile
	}
	return ""
}

func runStop(ctx context.Context, client Controller, out io.Writer, force bool, pidPath string) error {
	if !force {
		err := client.Shutdown(ctx)
		if err == nil {
			fmt.Fprintln(out, "✓ Shutdown requested")
			return nil
		}
		if !errors.Is(err, core.ErrDaemonNotRunning) || pidPath == "" {
			return fmt.Errorf("failed to stop daemon: %w", err)
		}
	}
	if pidPath == "" {
		return errors.New("no PID file configured")
	}
	if err := daemon.StopByPIDFile(pidPath, stopTimeout); err != nil {
		return fmt.Errorf("failed to stop daemon: %w", err)
	}
	fmt.Fprintln(out, "✓ Daemon stopped")
	return nil
}
