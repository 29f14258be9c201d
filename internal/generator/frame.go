// Package generator implements the companion stream server used to exercise
// the monitor by hand.
package generator

import "bytes"

const (
	FrameLen = 35
	textLen  = 21
)

var (
	FrameStart = []byte{0xAA, 0x55}
	FrameEnd   = []byte{0x0D, 0x0A}
	Trigger    = []byte{0xFE, 0xED, 0xFA, 0xCE}
)

// Messages are the ASCII bodies sent for ids 1, 2 and 3.
var Messages = [...]string{
	"PING FROM SERVER......",
	"DATA-REQUEST FROM SRV",
	"DATA-RESPONSE FROMSV",
}

// BuildFrame lays out one 35-byte frame:
//
//	[0..1]   AA 55
//	[2]      EE
//	[3]      id
//	[4..9]   A4..A9
//	[10..30] text, space padded or truncated to 21 bytes
//	[31..32] F1 F2
//	[33..34] 0D 0A
func BuildFrame(id byte, text string) []byte {
	frame := make([]byte, FrameLen)
	copy(frame[0:2], FrameStart)
	frame[2] = 0xEE
	frame[3] = id
	for i := 4; i < 10; i++ {
		frame[i] = 0xA0 + byte(i)
	}
	body := bytes.Repeat([]byte{' '}, textLen)
	copy(body, text)
	copy(frame[10:31], body)
	frame[31] = 0xF1
	frame[32] = 0xF2
	copy(frame[33:35], FrameEnd)
	return frame
}

// messageFrame builds the frame for id n (1-based, cycling over Messages).
func messageFrame(n int) []byte {
	idx := (n - 1) % len(Messages)
	return BuildFrame(byte(idx+1), Messages[idx])
}

// Burst is frames 1, 2 and 3 back to back.
func Burst() []byte {
	out := make([]byte, 0, FrameLen*len(Messages))
	for n := 1; n <= len(Messages); n++ {
		out = append(out, messageFrame(n)...)
	}
	return out
}
