// Package cmd implements CLI commands.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"firestige.xyz/bytescope/internal/daemon"
)

// daemonCmd represents the daemon command
var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the bytescope daemon",
	Long: `Run the bytescope daemon process.

The daemon will:
  1. Load global configuration from config file
  2. Initialize logging and metrics
  3. Load the startup rule file (if configured)
  4. Connect to the byte source and start framing
  5. Start UDS server for CLI control
  6. Handle signals for graceful shutdown (SIGTERM, SIGINT) and reload (SIGHUP)`,
	Run: func(cmd *cobra.Command, args []string) {
		if daemonBackground {
			if err := spawnDaemon(); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		}
		if err := runDaemon(); err != nil {
			slog.Error("daemon failed", "error", err)
			os.Exit(1)
		}
	},
}

var (
	daemonBackground bool
	daemonLogFile    string
	pidFile          string
)

func init() {
	daemonCmd.Flags().BoolVarP(&daemonBackground, "background", "d", false,
		"detach and run in the background")
	daemonCmd.Flags().StringVar(&daemonLogFile, "log-file", "/tmp/bytescope.out",
		"stdout/stderr of a background daemon")
	daemonCmd.Flags().StringVarP(&pidFile, "pidfile", "p", "",
		"PID file path (default from config)")
}

func runDaemon() error {
	fmt.Println("Starting bytescope daemon...")
	fmt.Printf("Config: %s\n", displayPath(configFile))
	fmt.Printf("Socket: %s\n", controlSocket())

	// Create daemon instance
	d, err := daemon.New(configFile, socketPath, pidFile)
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}

	// Start all components
	if err := d.Start(); err != nil {
		d.Stop()
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	// Run main loop (blocks until shutdown)
	return d.Run()
}

func spawnDaemon() error {
	args := []string{"daemon"}
	if configFile != "" {
		args = append(args, "--config", configFile)
	}
	if socketPath != "" {
		args = append(args, "--socket", socketPath)
	}
	if pidFile != "" {
		args = append(args, "--pidfile", pidFile)
	}

	pid, err := daemon.SpawnBackground(args, daemonLogFile, controlSocket(), 5*time.Second)
	if err != nil {
		return err
	}
	fmt.Printf("bytescope daemon started (pid %d)\n", pid)
	return nil
}

func displayPath(p string) string {
	if p == "" {
		return "(defaults)"
	}
	return p
}
