package core

import (
	"encoding/hex"
	"strconv"
	"strings"
)

// DecodeHex parses whitespace-separated hex byte tokens ("AA 55", "0x0d 0x0a").
// Each token may carry a 0x/0X prefix; a bare prefix is ignored. Empty input
// yields an empty, non-nil slice.
func DecodeHex(text string) ([]byte, error) {
	tokens := strings.Fields(text)
	out := make([]byte, 0, len(tokens))
	for _, tok := range tokens {
		cleaned := strings.TrimPrefix(strings.TrimPrefix(tok, "0x"), "0X")
		if cleaned == "" {
			continue
		}
		v, err := strconv.ParseUint(cleaned, 16, 8)
		if err != nil {
			return nil, &HexTokenError{Token: tok}
		}
		out = append(out, byte(v))
	}
	return out, nil
}

// EncodeHexUpper renders b as uppercase hex digits with no separator.
func EncodeHexUpper(b []byte) string {
	return strings.ToUpper(hex.EncodeToString(b))
}

// FormatHexSpaced renders b as space separated uppercase byte pairs ("AA 55").
// Its output always round-trips through DecodeHex.
func FormatHexSpaced(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	enc := EncodeHexUpper(b)
	var sb strings.Builder
	sb.Grow(len(b)*3 - 1)
	for i := 0; i < len(enc); i += 2 {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(enc[i : i+2])
	}
	return sb.String()
}
