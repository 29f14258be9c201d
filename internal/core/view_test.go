package core

import "testing"

func TestRender(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		view  View
		want  string
	}{
		{"hex", []byte{0x0A, 0xFF}, ViewHex, "0AFF"},
		{"hex empty", nil, ViewHex, ""},
		{"text", []byte("PING"), ViewText, "PING"},
		{"text lossy", []byte{'O', 'K', 0xFF}, ViewText, "OK�"},
		{"text empty", nil, ViewText, ""},
		{"binary", []byte{0x0A, 0x01}, ViewBinary, "00001010 00000001"},
		{"binary single", []byte{0xFF}, ViewBinary, "11111111"},
		{"binary empty", []byte{}, ViewBinary, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Render(tt.input, tt.view); got != tt.want {
				t.Errorf("Render(% X, %v) = %q, want %q", tt.input, tt.view, got, tt.want)
			}
		})
	}
}

func TestLossyTextReplacesEachInvalidByte(t *testing.T) {
	got := LossyText([]byte{0xFF, 0xFE, 'a'})
	if got != "��a" {
		t.Errorf("LossyText = %q", got)
	}
	if got := LossyText([]byte("héllo")); got != "héllo" {
		t.Errorf("valid UTF-8 altered: %q", got)
	}
}

func TestParseView(t *testing.T) {
	tests := map[string]View{
		"hex":    ViewHex,
		"HEX":    ViewHex,
		"":       ViewHex,
		"Text":   ViewText,
		"binary": ViewBinary,
	}
	for input, want := range tests {
		got, err := ParseView(input)
		if err != nil {
			t.Errorf("ParseView(%q) returned error: %v", input, err)
			continue
		}
		if got != want {
			t.Errorf("ParseView(%q) = %v, want %v", input, got, want)
		}
	}

	if _, err := ParseView("octal"); err == nil {
		t.Error("ParseView(octal) should fail")
	}
}
