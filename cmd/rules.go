package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"firestige.xyz/bytescope/internal/config"
	"firestige.xyz/bytescope/internal/rules"
)

// ruleOps binds one rule kind to the controller calls serving it.
type ruleOps[S any] struct {
	kind   rules.Kind
	noun   string
	add    func(Controller, context.Context, S) (int, error)
	update func(Controller, context.Context, int, S) error
	list   func(Controller, context.Context) ([]S, error)
	header string
	row    func(S) string
	// flags registers the rule fields as flags on cmd and returns a reader for them.
	flags func(cmd *cobra.Command) func() S
}

var watchOps = ruleOps[rules.WatchSpec]{
	kind:   rules.KindWatch,
	noun:   "watch",
	add:    Controller.AddWatch,
	update: Controller.UpdateWatch,
	list:   Controller.ListWatches,
	header: "#\tNAME\tRANGE\tVIEW\tTARGET",
	row: func(s rules.WatchSpec) string {
		return fmt.Sprintf("%s\t%s\t%s\t%s", s.Name, s.Range, s.View, targetText(s.Target))
	},
	flags: func(cmd *cobra.Command) func() rules.WatchSpec {
		var s rules.WatchSpec
		f := cmd.Flags()
		f.StringVar(&s.Name, "name", "", "watch name")
		f.StringVar(&s.Range, "range", "", `byte range: "4", "4-7" or "4..7"`)
		f.StringVar(&s.View, "view", "hex", "hex/text/binary")
		f.StringVar(&s.Target, "target", "", "label the watch applies to (all messages when empty)")
		cmd.MarkFlagRequired("range")
		return func() rules.WatchSpec { return s }
	},
}

var labelOps = ruleOps[rules.LabelSpec]{
	kind:   rules.KindLabel,
	noun:   "label",
	add:    Controller.AddLabel,
	update: Controller.UpdateLabel,
	list:   Controller.ListLabels,
	header: "#\tNAME\tRANGE\tVALUE",
	row: func(s rules.LabelSpec) string {
		return fmt.Sprintf("%s\t%s\t%s", s.Name, s.Range, s.Value)
	},
	flags: func(cmd *cobra.Command) func() rules.LabelSpec {
		var s rules.LabelSpec
		f := cmd.Flags()
		f.StringVar(&s.Name, "name", "", "label name")
		f.StringVar(&s.Range, "range", "", `byte range: "4", "4-7" or "4..7"`)
		f.StringVar(&s.Value, "value", "", "expected bytes as space separated hex")
		cmd.MarkFlagRequired("name")
		cmd.MarkFlagRequired("range")
		cmd.MarkFlagRequired("value")
		return func() rules.LabelSpec { return s }
	},
}

var suspectOps = ruleOps[rules.SuspectSpec]{
	kind:   rules.KindSuspect,
	noun:   "suspect",
	add:    Controller.AddSuspect,
	update: Controller.UpdateSuspect,
	list:   Controller.ListSuspects,
	header: "#\tNAME\tRANGE\tKIND\tEXPECTED\tTARGET\tSEVERITY",
	row: func(s rules.SuspectSpec) string {
		return fmt.Sprintf("%s\t%s\t%s\t%q\t%s\t%s", s.Name, s.Range, s.Kind, s.Expected, targetText(s.Target), s.Severity)
	},
	flags: func(cmd *cobra.Command) func() rules.SuspectSpec {
		var s rules.SuspectSpec
		f := cmd.Flags()
		f.StringVar(&s.Name, "name", "", "suspect name")
		f.StringVar(&s.Range, "range", "", `byte range: "4", "4-7" or "4..7"`)
		f.StringVar(&s.Kind, "kind", "text", "how expected is compared: text/hex")
		f.StringVar(&s.Expected, "expected", "", "expected value")
		f.StringVar(&s.Target, "target", "", "label the rule applies to (all messages when empty)")
		f.StringVar(&s.Severity, "severity", "warning", "info/warning/critical")
		cmd.MarkFlagRequired("range")
		return func() rules.SuspectSpec { return s }
	},
}

var (
	watchCmd   = newRuleCmd(watchOps, "Manage watches (named byte ranges shown on messages)")
	labelCmd   = newRuleCmd(labelOps, "Manage labels (first matching rule names a message)")
	suspectCmd = newRuleCmd(suspectOps, "Manage suspects (expected values that raise warnings)")
)

func targetText(label string) string {
	if label == "" {
		return "all"
	}
	return label
}

// newRuleCmd builds the add/edit/delete/list group for one rule kind.
func newRuleCmd[S any](ops ruleOps[S], short string) *cobra.Command {
	group := &cobra.Command{
		Use:   ops.noun,
		Short: short,
	}

	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Append a " + ops.noun,
		Args:  cobra.NoArgs,
	}
	readAdd := ops.flags(addCmd)
	addCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runRuleAdd(cmd.Context(), newController(), cmd.OutOrStdout(), ops, readAdd())
	}

	editCmd := &cobra.Command{
		Use:   "edit <index>",
		Short: "Replace the " + ops.noun + " at index",
		Long:  "Replace the " + ops.noun + " at index with a complete new record. Unset flags take their defaults.",
		Args:  cobra.ExactArgs(1),
	}
	readEdit := ops.flags(editCmd)
	editCmd.RunE = func(cmd *cobra.Command, args []string) error {
		index, err := parseIndex(args[0])
		if err != nil {
			return err
		}
		return runRuleEdit(cmd.Context(), newController(), cmd.OutOrStdout(), ops, index, readEdit())
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <index>",
		Short: "Remove the " + ops.noun + " at index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			return runRuleDelete(cmd.Context(), newController(), cmd.OutOrStdout(), ops.kind, index)
		},
	}

	var listOutput string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List " + ops.noun + " rules in evaluation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuleList(cmd.Context(), newController(), cmd.OutOrStdout(), ops, listOutput)
		},
	}
	listCmd.Flags().StringVarP(&listOutput, "output", "o", "table", "output format: table/json/yaml")

	group.AddCommand(addCmd, editCmd, deleteCmd, listCmd)
	return group
}

func parseIndex(s string) (int, error) {
	index, err := strconv.Atoi(s)
	if err != nil || index < 0 {
		return 0, fmt.Errorf("invalid index %q", s)
	}
	return index, nil
}

func runRuleAdd[S any](ctx context.Context, client Controller, out io.Writer, ops ruleOps[S], spec S) error {
	index, err := ops.add(client, ctx, spec)
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", ops.noun, err)
	}
	fmt.Fprintf(out, "✓ Added %s at index %d\n", ops.noun, index)
	return nil
}

func runRuleEdit[S any](ctx context.Context, client Controller, out io.Writer, ops ruleOps[S], index int, spec S) error {
	if err := ops.update(client, ctx, index, spec); err != nil {
		return fmt.Errorf("failed to edit %s %d: %w", ops.noun, index, err)
	}
	fmt.Fprintf(out, "✓ Replaced %s %d\n", ops.noun, index)
	return nil
}

func runRuleDelete(ctx context.Context, client Controller, out io.Writer, kind rules.Kind, index int) error {
	if err := client.DeleteRule(ctx, kind, index); err != nil {
		return fmt.Errorf("failed to delete %s %d: %w", kind, index, err)
	}
	fmt.Fprintf(out, "✓ Deleted %s %d\n", kind, index)
	return nil
}

func runRuleList[S any](ctx context.Context, client Controller, out io.Writer, ops ruleOps[S], format string) error {
	specs, err := ops.list(client, ctx)
	if err != nil {
		return fmt.Errorf("failed to list %s rules: %w", ops.noun, err)
	}
	if done, err := writeStructured(out, format, specs); done {
		return err
	}
	if len(specs) == 0 {
		fmt.Fprintf(out, "No %s rules.\n", ops.noun)
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, ops.header)
	for i, s := range specs {
		fmt.Fprintf(tw, "%d\t%s\n", i, ops.row(s))
	}
	return tw.Flush()
}

// rulesCmd groups batch operations on rule files.
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Apply rule files",
}

var rulesApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Add every rule in a file",
	Long: `Add every rule from a JSON or YAML rule file, in file order, after the
rules already loaded. File format is auto-detected from extension (.json, .yaml, .yml).

Examples:
  bytescope rules apply -f rules.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(rulesFile)
		if err != nil {
			return fmt.Errorf("failed to read file %s: %w", rulesFile, err)
		}
		rf, err := config.ParseRuleFileAuto(data, rulesFile)
		if err != nil {
			return fmt.Errorf("invalid rule file: %w", err)
		}
		return runRulesApply(cmd.Context(), newController(), cmd.OutOrStdout(), rf)
	},
}

var rulesFile string

func init() {
	rulesCmd.AddCommand(rulesApplyCmd)
	rulesApplyCmd.Flags().StringVarP(&rulesFile, "file", "f", "", "rule file (JSON or YAML) (required)")
	rulesApplyCmd.MarkFlagRequired("file")
}

func runRulesApply(ctx context.Context, client Controller, out io.Writer, rf *config.RuleFile) error {
	for i, s := range rf.Watches {
		if _, err := client.AddWatch(ctx, s); err != nil {
			return fmt.Errorf("watches[%d]: %w", i, err)
		}
	}
	for i, s := range rf.Labels {
		if _, err := client.AddLabel(ctx, s); err != nil {
			return fmt.Errorf("labels[%d]: %w", i, err)
		}
	}
	for i, s := range rf.Suspects {
		if _, err := client.AddSuspect(ctx, s); err != nil {
			return fmt.Errorf("suspects[%d]: %w", i, err)
		}
	}
	fmt.Fprintf(out, "✓ Applied %d watch, %d label, %d suspect rule(s)\n",
		len(rf.Watches), len(rf.Labels), len(rf.Suspects))
	return nil
}
