package rules

import (
	"fmt"

	"firestige.xyz/bytescope/internal/core"
)

// WatchSpec is the textual form of a watch as an operator enters it.
type WatchSpec struct {
	Name   string `json:"name" yaml:"name"`
	Range  string `json:"range" yaml:"range"`   // "4", "4-7" or "4..7"
	View   string `json:"view" yaml:"view"`     // hex | text | binary
	Target string `json:"target" yaml:"target"` // label name, empty for all messages
}

// LabelSpec is the textual form of a label rule.
type LabelSpec struct {
	Name  string `json:"name" yaml:"name"`
	Range string `json:"range" yaml:"range"`
	Value string `json:"value" yaml:"value"` // space separated hex
}

// SuspectSpec is the textual form of a suspect rule.
type SuspectSpec struct {
	Name     string `json:"name" yaml:"name"`
	Range    string `json:"range" yaml:"range"`
	Kind     string `json:"kind" yaml:"kind"` // text | hex
	Expected string `json:"expected" yaml:"expected"`
	Target   string `json:"target" yaml:"target"`
	Severity string `json:"severity" yaml:"severity"` // info | warning | critical
}

// Build parses s into a watch.
func (s WatchSpec) Build() (core.WatchItem, error) {
	r, err := core.ParseByteRange(s.Range)
	if err != nil {
		return core.WatchItem{}, fmt.Errorf("watch %q: %w", s.Name, err)
	}
	view, err := core.ParseView(s.View)
	if err != nil {
		return core.WatchItem{}, fmt.Errorf("watch %q: %w", s.Name, err)
	}
	return core.WatchItem{
		Name:   s.Name,
		Range:  r,
		View:   view,
		Target: core.Target{Label: s.Target},
	}, nil
}

// Build parses s into a label rule.
func (s LabelSpec) Build() (core.LabelRule, error) {
	r, err := core.ParseByteRange(s.Range)
	if err != nil {
		return core.LabelRule{}, fmt.Errorf("label %q: %w", s.Name, err)
	}
	value, err := core.DecodeHex(s.Value)
	if err != nil {
		return core.LabelRule{}, fmt.Errorf("label %q: %w", s.Name, err)
	}
	return core.LabelRule{Name: s.Name, Range: r, Value: value}, nil
}

// Build parses s into a suspect rule.
func (s SuspectSpec) Build() (core.SuspectRule, error) {
	r, err := core.ParseByteRange(s.Range)
	if err != nil {
		return core.SuspectRule{}, fmt.Errorf("suspect %q: %w", s.Name, err)
	}
	kind, err := core.ParseExpectedKind(s.Kind)
	if err != nil {
		return core.SuspectRule{}, fmt.Errorf("suspect %q: %w", s.Name, err)
	}
	sev, err := core.ParseSeverity(s.Severity)
	if err != nil {
		return core.SuspectRule{}, fmt.Errorf("suspect %q: %w", s.Name, err)
	}
	return core.SuspectRule{
		Name:     s.Name,
		Range:    r,
		Kind:     kind,
		Expected: s.Expected,
		Target:   core.Target{Label: s.Target},
		Severity: sev,
	}, nil
}

func rangeText(r core.ByteRange) string {
	if r.Start == r.End {
		return fmt.Sprintf("%d", r.Start)
	}
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// WatchSpecOf renders w back into its textual form.
func WatchSpecOf(w core.WatchItem) WatchSpec {
	return WatchSpec{
		Name:   w.Name,
		Range:  rangeText(w.Range),
		View:   w.View.String(),
		Target: w.Target.Label,
	}
}

// LabelSpecOf renders r back into its textual form.
func LabelSpecOf(r core.LabelRule) LabelSpec {
	return LabelSpec{
		Name:  r.Name,
		Range: rangeText(r.Range),
		Value: core.FormatHexSpaced(r.Value),
	}
}

// SuspectSpecOf renders r back into its textual form.
func SuspectSpecOf(r core.SuspectRule) SuspectSpec {
	return SuspectSpec{
		Name:     r.Name,
		Range:    rangeText(r.Range),
		Kind:     r.Kind.String(),
		Expected: r.Expected,
		Target:   r.Target.Label,
		Severity: r.Severity.String(),
	}
}
