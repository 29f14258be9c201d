// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"github.com/spf13/cobra"

	"firestige.xyz/bytescope/internal/command"
	"firestige.xyz/bytescope/internal/config"
)

const defaultSocket = "/tmp/bytescope.sock"

var (
	// Global flags
	configFile string
	socketPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bytescope",
	Short: "Bytescope - binary stream framing and inspection",
	Long: `Bytescope connects to a TCP byte stream, cuts it into messages between
configurable start and end delimiters, and evaluates operator rules against
every message.

Features:
  - Framing: hex delimiters, editable at runtime
  - Labels: first matching rule names a message
  - Watches: named byte ranges rendered as hex, text or binary
  - Suspects: expected values, warnings with a severity
  - Local control: CLI via Unix Domain Socket`,
	Version:       command.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"config file path (defaults plus BYTESCOPE_* env when empty)")
	rootCmd.PersistentFlags().StringVarP(&socketPath, "socket", "s", "",
		"daemon socket path (default from config, then "+defaultSocket+")")

	// Add subcommands
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(messagesCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(framingCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(labelCmd)
	rootCmd.AddCommand(suspectCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(validateCmd)
}

// controlSocket resolves the socket path: flag, then config, then default.
func controlSocket() string {
	if socketPath != "" {
		return socketPath
	}
	if cfg, err := config.Load(configFile); err == nil && cfg.Control.Socket != "" {
		return cfg.Control.Socket
	}
	return defaultSocket
}
