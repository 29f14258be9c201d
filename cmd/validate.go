package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"firestige.xyz/bytescope/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a rule file or the global config",
	Long: `Validate a rule file (JSON or YAML) without sending it to the daemon.
Without -f, the global configuration (--config) is validated instead.

File format is auto-detected from extension (.json, .yaml, .yml).

Examples:
  bytescope validate -f rules.yaml
  bytescope validate -c /etc/bytescope/config.yml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if validateRulesFile == "" {
			return runValidateConfig(cmd.OutOrStdout(), configFile)
		}
		return runValidateRules(cmd.OutOrStdout(), validateRulesFile)
	},
}

var validateRulesFile string

func init() {
	validateCmd.Flags().StringVarP(&validateRulesFile, "file", "f", "",
		"rule file to validate")
}

func runValidateRules(out io.Writer, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", path, err)
	}

	rf, err := config.ParseRuleFileAuto(data, path)
	if err != nil {
		return fmt.Errorf("INVALID: %w", err)
	}

	fmt.Fprintf(out, "VALID: %d watch(es), %d label(s), %d suspect(s)\n",
		len(rf.Watches),
		len(rf.Labels),
		len(rf.Suspects),
	)
	return nil
}

func runValidateConfig(out io.Writer, path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("INVALID: %w", err)
	}
	fmt.Fprintf(out, "VALID: source %s, framing start=%q end=%q\n",
		cfg.Source.Type, cfg.Framing.Start, cfg.Framing.End)
	return nil
}
