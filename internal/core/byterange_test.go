package core

import (
	"errors"
	"testing"
)

func TestParseRange(t *testing.T) {
	tests := []struct {
		input      string
		start, end int
		ok         bool
	}{
		{"3", 3, 3, true},
		{" 7 ", 7, 7, true},
		{"3-5", 3, 5, true},
		{" 3 - 5 ", 3, 5, true},
		{"5-3", 5, 3, true},
		{"10..20", 10, 20, true},
		{"20 .. 10", 20, 10, true},
		{"", 0, 0, false},
		{"   ", 0, 0, false},
		{"abc", 0, 0, false},
		{"3-", 0, 0, false},
		{"-3", 0, 0, false},
		{"1..x", 0, 0, false},
		{"1-2-3", 0, 0, false},
		// '-' wins over "..": the dash form is tried first and fails.
		{"1..-2", 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			start, end, ok := ParseRange(tt.input)
			if ok != tt.ok {
				t.Fatalf("ParseRange(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if ok && (start != tt.start || end != tt.end) {
				t.Errorf("ParseRange(%q) = (%d, %d), want (%d, %d)", tt.input, start, end, tt.start, tt.end)
			}
		})
	}
}

func TestParseByteRangeNormalises(t *testing.T) {
	for _, input := range []string{"5-3", "3-5", "9..2", "4"} {
		r, err := ParseByteRange(input)
		if err != nil {
			t.Fatalf("ParseByteRange(%q) returned error: %v", input, err)
		}
		if r.Start > r.End {
			t.Errorf("ParseByteRange(%q) = %v, start > end", input, r)
		}
	}

	_, err := ParseByteRange("x-y")
	if !errors.Is(err, ErrInvalidRange) {
		t.Errorf("expected ErrInvalidRange, got %v", err)
	}
}

func TestByteRangeResolve(t *testing.T) {
	msg := []byte{0x00, 0x01, 0x02, 0x03}

	t.Run("InBounds", func(t *testing.T) {
		got, ok := NewByteRange(1, 2).Resolve(msg)
		if !ok {
			t.Fatal("expected range to resolve")
		}
		if len(got) != 2 || got[0] != 0x01 || got[1] != 0x02 {
			t.Errorf("Resolve = % X", got)
		}
	})

	t.Run("LastByte", func(t *testing.T) {
		if _, ok := NewByteRange(3, 3).Resolve(msg); !ok {
			t.Error("range ending on the last byte should resolve")
		}
	})

	t.Run("EndPastMessage", func(t *testing.T) {
		if _, ok := NewByteRange(2, 4).Resolve(msg); ok {
			t.Error("range ending at len(msg) must not resolve")
		}
	})

	t.Run("EmptyMessage", func(t *testing.T) {
		if _, ok := NewByteRange(0, 0).Resolve(nil); ok {
			t.Error("nothing resolves against an empty message")
		}
	})

	t.Run("Reversed", func(t *testing.T) {
		if _, ok := (ByteRange{Start: 2, End: 1}).Resolve(msg); ok {
			t.Error("an unnormalised range must not resolve")
		}
	})
}

func TestByteRangeString(t *testing.T) {
	r := NewByteRange(3, 0)
	if r.String() != "[0..3]" {
		t.Errorf("String() = %q", r.String())
	}
	if r.Len() != 4 {
		t.Errorf("Len() = %d, want 4", r.Len())
	}
}
