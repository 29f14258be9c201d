package core

import "testing"

func TestClassify(t *testing.T) {
	t.Run("FirstMatchWins", func(t *testing.T) {
		rules := []LabelRule{
			{Name: "A", Range: NewByteRange(0, 0), Value: []byte{0x01}},
			{Name: "B", Range: NewByteRange(0, 0), Value: []byte{0x01}},
		}
		got, ok := Classify([]byte{0x01}, rules)
		if !ok || got != "A" {
			t.Errorf("Classify = (%q, %v), want (A, true)", got, ok)
		}
	})

	t.Run("LaterRuleMatches", func(t *testing.T) {
		rules := []LabelRule{
			{Name: "PING", Range: NewByteRange(3, 3), Value: []byte{0x01}},
			{Name: "DATA", Range: NewByteRange(3, 3), Value: []byte{0x02}},
		}
		got, ok := Classify([]byte{0xAA, 0x55, 0xEE, 0x02}, rules)
		if !ok || got != "DATA" {
			t.Errorf("Classify = (%q, %v), want (DATA, true)", got, ok)
		}
	})

	t.Run("OutOfRangeRuleSkipped", func(t *testing.T) {
		rules := []LabelRule{
			{Name: "LONG", Range: NewByteRange(0, 9), Value: make([]byte, 10)},
			{Name: "SHORT", Range: NewByteRange(0, 1), Value: []byte{0x00, 0x00}},
		}
		got, ok := Classify([]byte{0x00, 0x00, 0x00}, rules)
		if !ok || got != "SHORT" {
			t.Errorf("Classify = (%q, %v), want (SHORT, true)", got, ok)
		}
	})

	t.Run("LengthMustMatch", func(t *testing.T) {
		rules := []LabelRule{
			{Name: "X", Range: NewByteRange(0, 1), Value: []byte{0x01}},
		}
		if got, ok := Classify([]byte{0x01, 0x02}, rules); ok {
			t.Errorf("value shorter than range matched as %q", got)
		}
	})

	t.Run("NoRules", func(t *testing.T) {
		if _, ok := Classify([]byte{0x01}, nil); ok {
			t.Error("expected no label")
		}
	})
}

func TestLabelRuleValidate(t *testing.T) {
	if err := (LabelRule{Range: NewByteRange(0, 0)}).Validate(); err == nil {
		t.Error("label without a name should be invalid")
	}
	if err := (LabelRule{Name: "X", Range: ByteRange{Start: 2, End: 1}}).Validate(); err == nil {
		t.Error("reversed range should be invalid")
	}
	if err := (LabelRule{Name: "X", Range: NewByteRange(0, 1), Value: []byte{1, 2}}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
