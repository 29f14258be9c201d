package core

import (
	"bytes"
	"testing"
)

var (
	testStart = []byte{0xAA, 0x55}
	testEnd   = []byte{0x0D, 0x0A}
)

func TestAccumulatorExtractScenario(t *testing.T) {
	acc := NewAccumulator(0)

	acc.Append([]byte{0xAA, 0x55, 0x01, 0x0D, 0x0A})
	frames, _ := acc.Extract(testStart, testEnd)
	if len(frames) != 1 {
		t.Fatalf("first pass: got %d frames, want 1", len(frames))
	}
	if !bytes.Equal(frames[0], []byte{0xAA, 0x55, 0x01, 0x0D, 0x0A}) {
		t.Errorf("first frame = % X", frames[0])
	}
	if acc.Len() != 0 {
		t.Errorf("buffer should be empty, has % X", acc.Bytes())
	}

	acc.Append([]byte{0xAA, 0x55, 0x02, 0x0D, 0x0A, 0xAA})
	frames, _ = acc.Extract(testStart, testEnd)
	if len(frames) != 1 {
		t.Fatalf("second pass: got %d frames, want 1", len(frames))
	}
	if !bytes.Equal(frames[0], []byte{0xAA, 0x55, 0x02, 0x0D, 0x0A}) {
		t.Errorf("second frame = % X", frames[0])
	}
	if !bytes.Equal(acc.Bytes(), []byte{0xAA}) {
		t.Errorf("remaining buffer = % X, want AA", acc.Bytes())
	}
}

func TestExtractFrames(t *testing.T) {
	tests := []struct {
		name     string
		buf      []byte
		start    []byte
		end      []byte
		want     [][]byte
		consumed int
	}{
		{
			name:  "no start delimiter",
			buf:   []byte{0x01, 0x02, 0x0D, 0x0A},
			start: testStart, end: testEnd,
			want: nil, consumed: 0,
		},
		{
			name:  "start without end keeps leading garbage",
			buf:   []byte{0x99, 0xAA, 0x55, 0x01},
			start: testStart, end: testEnd,
			want: nil, consumed: 0,
		},
		{
			name:  "leading garbage consumed with the frame",
			buf:   []byte{0x99, 0x98, 0xAA, 0x55, 0x01, 0x0D, 0x0A},
			start: testStart, end: testEnd,
			want:     [][]byte{{0xAA, 0x55, 0x01, 0x0D, 0x0A}},
			consumed: 7,
		},
		{
			name:  "back to back frames",
			buf:   []byte{0xAA, 0x55, 0x01, 0x0D, 0x0A, 0xAA, 0x55, 0x02, 0x0D, 0x0A},
			start: testStart, end: testEnd,
			want:     [][]byte{{0xAA, 0x55, 0x01, 0x0D, 0x0A}, {0xAA, 0x55, 0x02, 0x0D, 0x0A}},
			consumed: 10,
		},
		{
			name:  "end delimiter searched after start",
			buf:   []byte{0x0D, 0x0A, 0xAA, 0x55, 0x0D, 0x0A},
			start: testStart, end: testEnd,
			want:     [][]byte{{0xAA, 0x55, 0x0D, 0x0A}},
			consumed: 6,
		},
		{
			name:  "overlapping delimiters are not shared",
			buf:   []byte{0xAA, 0x0A},
			start: []byte{0xAA, 0x0A}, end: []byte{0x0A},
			want: nil, consumed: 0,
		},
		{
			name:  "empty start matches at zero",
			buf:   []byte{0x01, 0x02, 0x0A, 0x03, 0x0A, 0x04},
			start: nil, end: []byte{0x0A},
			want:     [][]byte{{0x01, 0x02, 0x0A}, {0x03, 0x0A}},
			consumed: 5,
		},
		{
			name:  "empty end takes the rest of the buffer",
			buf:   []byte{0x00, 0xAA, 0x55, 0x01, 0x02},
			start: testStart, end: nil,
			want:     [][]byte{{0xAA, 0x55, 0x01, 0x02}},
			consumed: 5,
		},
		{
			name:  "both empty emit the whole buffer once",
			buf:   []byte{0x01, 0x02},
			start: nil, end: nil,
			want:     [][]byte{{0x01, 0x02}},
			consumed: 2,
		},
		{
			name:  "both empty on empty buffer",
			buf:   nil,
			start: nil, end: nil,
			want: nil, consumed: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frames, consumed := ExtractFrames(tt.buf, tt.start, tt.end)
			if consumed != tt.consumed {
				t.Errorf("consumed = %d, want %d", consumed, tt.consumed)
			}
			if len(frames) != len(tt.want) {
				t.Fatalf("got %d frames, want %d", len(frames), len(tt.want))
			}
			for i := range frames {
				if !bytes.Equal(frames[i], tt.want[i]) {
					t.Errorf("frame %d = % X, want % X", i, frames[i], tt.want[i])
				}
			}
		})
	}
}

func TestExtractFramesReturnsCopies(t *testing.T) {
	buf := []byte{0xAA, 0x55, 0x01, 0x0D, 0x0A}
	frames, _ := ExtractFrames(buf, testStart, testEnd)
	buf[2] = 0xFF
	if frames[0][2] != 0x01 {
		t.Error("frame aliases the input buffer")
	}
}

func TestAccumulatorExtractIdempotent(t *testing.T) {
	acc := NewAccumulator(0)
	acc.Append([]byte{0xAA, 0x55, 0x01, 0x0D, 0x0A, 0xAA, 0x55, 0x02})

	first, _ := acc.Extract(testStart, testEnd)
	if len(first) != 1 {
		t.Fatalf("first pass: got %d frames, want 1", len(first))
	}
	before := acc.Bytes()
	second, _ := acc.Extract(testStart, testEnd)
	if len(second) != 0 {
		t.Errorf("second pass without appends produced %d frames", len(second))
	}
	if !bytes.Equal(before, acc.Bytes()) {
		t.Errorf("second pass mutated buffer: % X -> % X", before, acc.Bytes())
	}
}

func TestAccumulatorChunkingPreservesOrder(t *testing.T) {
	stream := []byte{
		0x10, 0xAA, 0x55, 0x01, 0x02, 0x0D, 0x0A,
		0xAA, 0x55, 0x03, 0x0D, 0x0A,
		0x20, 0x21, 0xAA, 0x55, 0x0D, 0x0D, 0x0A,
		0xAA, 0x55, 0x04,
	}

	whole := NewAccumulator(0)
	whole.Append(stream)
	want, _ := whole.Extract(testStart, testEnd)

	for size := 1; size <= len(stream); size++ {
		acc := NewAccumulator(0)
		var got [][]byte
		for off := 0; off < len(stream); off += size {
			end := off + size
			if end > len(stream) {
				end = len(stream)
			}
			acc.Append(stream[off:end])
			frames, _ := acc.Extract(testStart, testEnd)
			got = append(got, frames...)
		}
		if len(got) != len(want) {
			t.Fatalf("chunk size %d: got %d frames, want %d", size, len(got), len(want))
		}
		for i := range got {
			if !bytes.Equal(got[i], want[i]) {
				t.Errorf("chunk size %d frame %d = % X, want % X", size, i, got[i], want[i])
			}
			if !bytes.HasPrefix(got[i], testStart) || !bytes.HasSuffix(got[i], testEnd) {
				t.Errorf("chunk size %d frame %d lacks delimiters: % X", size, i, got[i])
			}
		}
		if !bytes.Equal(acc.Bytes(), whole.Bytes()) {
			t.Errorf("chunk size %d: remainder % X, want % X", size, acc.Bytes(), whole.Bytes())
		}
	}
}

func TestAccumulatorCeiling(t *testing.T) {
	acc := NewAccumulator(4)
	acc.Append([]byte{0xAA, 0x55, 0x01, 0x02, 0x03, 0x04})

	frames, dropped := acc.Extract(testStart, testEnd)
	if len(frames) != 0 {
		t.Fatalf("got %d frames, want 0", len(frames))
	}
	if dropped != 2 {
		t.Errorf("dropped = %d, want 2", dropped)
	}
	if !bytes.Equal(acc.Bytes(), []byte{0x01, 0x02, 0x03, 0x04}) {
		t.Errorf("buffer = % X", acc.Bytes())
	}
	if acc.Dropped() != 2 {
		t.Errorf("Dropped() = %d, want 2", acc.Dropped())
	}

	// Frames completed in the same pass are extracted before the ceiling applies.
	acc.Reset()
	acc.Append([]byte{0xAA, 0x55, 0x01, 0x02, 0x03, 0x0D, 0x0A})
	frames, dropped = acc.Extract(testStart, testEnd)
	if len(frames) != 1 || dropped != 0 {
		t.Errorf("got %d frames and %d dropped, want 1 and 0", len(frames), dropped)
	}
}
