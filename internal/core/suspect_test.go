package core

import (
	"strings"
	"testing"
)

func TestEvaluateHexMismatch(t *testing.T) {
	rules := []SuspectRule{{
		Name:     "magic",
		Range:    NewByteRange(0, 3),
		Kind:     ExpectHex,
		Expected: "50 49 4E 47",
		Severity: SeverityWarning,
	}}

	warnings := Evaluate([]byte{0x50, 0x49, 0x4E, 0x00}, "", rules)
	if len(warnings) != 1 {
		t.Fatalf("got %d warnings, want 1", len(warnings))
	}
	w := warnings[0]
	if w.Severity != SeverityWarning {
		t.Errorf("severity = %v, want warning", w.Severity)
	}
	if w.Rule != "magic" {
		t.Errorf("rule = %q, want magic", w.Rule)
	}
	for _, want := range []string{"magic", "0x50494E47", "0x50494E00", "[0..3]"} {
		if !strings.Contains(w.Message, want) {
			t.Errorf("message %q does not mention %q", w.Message, want)
		}
	}
}

func TestEvaluateMatchesProduceNothing(t *testing.T) {
	rules := []SuspectRule{
		{Name: "hex", Range: NewByteRange(0, 1), Kind: ExpectHex, Expected: "0xAA 0x55"},
		{Name: "text", Range: NewByteRange(2, 5), Kind: ExpectText, Expected: "PING"},
	}
	msg := append([]byte{0xAA, 0x55}, []byte("PING")...)
	if warnings := Evaluate(msg, "", rules); len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
}

func TestEvaluateTextMismatch(t *testing.T) {
	rules := []SuspectRule{{
		Name: "greeting", Range: NewByteRange(0, 3), Kind: ExpectText,
		Expected: "PING", Severity: SeverityInfo,
	}}
	warnings := Evaluate([]byte("PONG"), "", rules)
	if len(warnings) != 1 {
		t.Fatalf("got %d warnings, want 1", len(warnings))
	}
	if !strings.Contains(warnings[0].Message, `"PONG"`) {
		t.Errorf("message %q should show actual text", warnings[0].Message)
	}
	if warnings[0].String() != "Note: "+warnings[0].Message {
		t.Errorf("String() = %q", warnings[0].String())
	}
}

func TestEvaluateOutOfRangeIsFailure(t *testing.T) {
	rules := []SuspectRule{{
		Name: "trailer", Range: NewByteRange(8, 9), Kind: ExpectHex,
		Expected: "0D 0A", Severity: SeverityCritical,
	}}
	warnings := Evaluate([]byte{0x01, 0x02}, "", rules)
	if len(warnings) != 1 {
		t.Fatalf("got %d warnings, want 1", len(warnings))
	}
	if warnings[0].Severity != SeverityCritical {
		t.Errorf("severity = %v, want critical", warnings[0].Severity)
	}
	if !strings.Contains(warnings[0].Message, "[8..9]") {
		t.Errorf("message %q should name the range", warnings[0].Message)
	}
	if !HasCritical(warnings) {
		t.Error("HasCritical should be true")
	}
}

func TestEvaluateTargeting(t *testing.T) {
	rules := []SuspectRule{
		{Name: "all", Range: NewByteRange(0, 0), Kind: ExpectHex, Expected: "FF", Target: AllMessages()},
		{Name: "ping-only", Range: NewByteRange(0, 0), Kind: ExpectHex, Expected: "FF", Target: ForLabel("PING")},
	}
	msg := []byte{0x00}

	t.Run("NoLabel", func(t *testing.T) {
		warnings := Evaluate(msg, "", rules)
		if len(warnings) != 1 || warnings[0].Rule != "all" {
			t.Errorf("warnings = %v, want only 'all'", warnings)
		}
	})

	t.Run("MatchingLabel", func(t *testing.T) {
		warnings := Evaluate(msg, "PING", rules)
		if len(warnings) != 2 || warnings[0].Rule != "all" || warnings[1].Rule != "ping-only" {
			t.Errorf("warnings = %v, want all then ping-only", warnings)
		}
	})

	t.Run("OtherLabel", func(t *testing.T) {
		if warnings := Evaluate(msg, "DATA", rules); len(warnings) != 1 {
			t.Errorf("warnings = %v, want 1", warnings)
		}
	})
}

func TestEvaluateUndecodableHexAlwaysFails(t *testing.T) {
	rules := []SuspectRule{{Name: "bad", Range: NewByteRange(0, 0), Kind: ExpectHex, Expected: "ZZ"}}
	warnings := Evaluate([]byte{0x00}, "", rules)
	if len(warnings) != 1 {
		t.Fatalf("got %d warnings, want 1", len(warnings))
	}
	if !strings.Contains(warnings[0].Message, "undecodable") {
		t.Errorf("message %q", warnings[0].Message)
	}
}

func TestSuspectRuleValidate(t *testing.T) {
	if err := (SuspectRule{Name: "x", Range: NewByteRange(0, 0), Kind: ExpectHex, Expected: "GG"}).Validate(); err == nil {
		t.Error("undecodable hex expectation should be invalid")
	}
	if err := (SuspectRule{Name: "x", Range: NewByteRange(0, 0), Kind: ExpectText, Expected: "GG"}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParseSeverity(t *testing.T) {
	tests := map[string]Severity{
		"info":     SeverityInfo,
		"Warning":  SeverityWarning,
		"warn":     SeverityWarning,
		"CRITICAL": SeverityCritical,
	}
	for input, want := range tests {
		got, err := ParseSeverity(input)
		if err != nil || got != want {
			t.Errorf("ParseSeverity(%q) = (%v, %v), want %v", input, got, err, want)
		}
	}
	if _, err := ParseSeverity("fatal"); err == nil {
		t.Error("ParseSeverity(fatal) should fail")
	}
}
