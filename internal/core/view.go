package core

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// View selects how a byte slice is rendered.
type View int

const (
	ViewHex View = iota
	ViewText
	ViewBinary
)

func (v View) String() string {
	switch v {
	case ViewHex:
		return "Hex"
	case ViewText:
		return "Text"
	case ViewBinary:
		return "Binary"
	default:
		return "View(" + strconv.Itoa(int(v)) + ")"
	}
}

// ParseView accepts "hex", "text" or "binary" in any case.
func ParseView(s string) (View, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "hex":
		return ViewHex, nil
	case "text":
		return ViewText, nil
	case "binary", "bin":
		return ViewBinary, nil
	default:
		return ViewHex, fmt.Errorf("%w: unknown view %q", ErrInvalidRule, s)
	}
}

func (v View) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(v.String())), nil
}

func (v *View) UnmarshalText(b []byte) error {
	parsed, err := ParseView(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Render formats b according to v. It is total: empty input renders as "".
func Render(b []byte, v View) string {
	switch v {
	case ViewText:
		return LossyText(b)
	case ViewBinary:
		var sb strings.Builder
		for i, c := range b {
			if i > 0 {
				sb.WriteByte(' ')
			}
			fmt.Fprintf(&sb, "%08b", c)
		}
		return sb.String()
	default:
		return EncodeHexUpper(b)
	}
}

// LossyText decodes b as UTF-8, replacing each invalid byte with U+FFFD.
func LossyText(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	var sb strings.Builder
	sb.Grow(len(b))
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size == 1 {
			sb.WriteRune(utf8.RuneError)
		} else {
			sb.Write(b[:size])
		}
		b = b[size:]
	}
	return sb.String()
}
