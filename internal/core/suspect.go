package core

import (
	"bytes"
	"fmt"
	"strings"
)

// Severity ranks a suspect warning.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityCritical:
		return "critical"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// Prefix is the display prefix used in front of a warning text.
func (s Severity) Prefix() string {
	switch s {
	case SeverityCritical:
		return "CRITICAL"
	case SeverityWarning:
		return "Warning"
	default:
		return "Note"
	}
}

// ParseSeverity accepts info, warning (or warn) and critical in any case.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "info", "note":
		return SeverityInfo, nil
	case "", "warning", "warn":
		return SeverityWarning, nil
	case "critical", "crit":
		return SeverityCritical, nil
	default:
		return SeverityWarning, fmt.Errorf("%w: unknown severity %q", ErrInvalidRule, s)
	}
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(b []byte) error {
	parsed, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ExpectedKind selects how a suspect rule's expected value is decoded.
type ExpectedKind int

const (
	ExpectText ExpectedKind = iota
	ExpectHex
)

func (k ExpectedKind) String() string {
	if k == ExpectHex {
		return "hex"
	}
	return "text"
}

// ParseExpectedKind accepts "text" or "hex".
func ParseExpectedKind(s string) (ExpectedKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text":
		return ExpectText, nil
	case "hex":
		return ExpectHex, nil
	default:
		return ExpectText, fmt.Errorf("%w: unknown expected kind %q", ErrInvalidRule, s)
	}
}

func (k ExpectedKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *ExpectedKind) UnmarshalText(b []byte) error {
	parsed, err := ParseExpectedKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// SuspectRule flags messages whose bytes at Range differ from Expected.
type SuspectRule struct {
	Name     string       `json:"name"`
	Range    ByteRange    `json:"range"`
	Kind     ExpectedKind `json:"kind"`
	Expected string       `json:"expected"`
	Target   Target       `json:"target"`
	Severity Severity     `json:"severity"`
}

// Validate checks the rule shape. A hex rule must carry decodable hex.
func (r SuspectRule) Validate() error {
	if r.Range.Start > r.Range.End {
		return fmt.Errorf("%w: range %s is reversed", ErrInvalidRule, r.Range)
	}
	if r.Kind == ExpectHex {
		if _, err := DecodeHex(r.Expected); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidRule, err)
		}
	}
	return nil
}

// Warning is one failed expectation for one message.
type Warning struct {
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

func (w Warning) String() string {
	return w.Severity.Prefix() + ": " + w.Message
}

// Evaluate checks every applicable rule, in order, against msg. A rule whose
// range cannot be resolved against msg counts as a mismatch.
func Evaluate(msg []byte, activeLabel string, rules []SuspectRule) []Warning {
	var warnings []Warning
	for _, r := range rules {
		if !r.Target.Applies(activeLabel) {
			continue
		}
		slice, resolved := r.Range.Resolve(msg)
		if resolved && r.matches(slice) {
			continue
		}
		warnings = append(warnings, Warning{
			Rule:     r.Name,
			Severity: r.Severity,
			Message:  r.describe(msg, slice, resolved),
		})
	}
	return warnings
}

func (r SuspectRule) matches(slice []byte) bool {
	if r.Kind == ExpectHex {
		want, err := DecodeHex(r.Expected)
		if err != nil {
			return false
		}
		return bytes.Equal(want, slice)
	}
	return LossyText(slice) == r.Expected
}

func (r SuspectRule) describe(msg, slice []byte, resolved bool) string {
	var got string
	switch {
	case !resolved:
		got = fmt.Sprintf("nothing (message is %d bytes)", len(msg))
	case r.Kind == ExpectHex:
		got = "0x" + EncodeHexUpper(slice)
	default:
		got = fmt.Sprintf("%q", LossyText(slice))
	}
	return fmt.Sprintf("%s: expected %s at %s, got %s", r.Name, r.expectedRepr(), r.Range, got)
}

func (r SuspectRule) expectedRepr() string {
	if r.Kind == ExpectHex {
		want, err := DecodeHex(r.Expected)
		if err != nil {
			return fmt.Sprintf("undecodable hex %q", r.Expected)
		}
		return "0x" + EncodeHexUpper(want)
	}
	return fmt.Sprintf("%q", r.Expected)
}

// HasCritical reports whether any warning is critical.
func HasCritical(warnings []Warning) bool {
	for _, w := range warnings {
		if w.Severity == SeverityCritical {
			return true
		}
	}
	return false
}
