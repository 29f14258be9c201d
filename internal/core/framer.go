package core

import "bytes"

// ExtractFrames scans buf for complete start...end delimited frames.
//
// It returns owned copies of every complete frame, in stream order, and the
// number of leading bytes of buf they consumed (each frame plus any bytes
// preceding it). An empty start delimiter matches at offset 0; an empty end
// delimiter matches at the end of the buffer. Bytes in front of an unmatched
// start delimiter are never discarded here.
func ExtractFrames(buf, start, end []byte) (frames [][]byte, consumed int) {
	for {
		rest := buf[consumed:]
		s := 0
		if len(start) > 0 {
			s = bytes.Index(rest, start)
			if s < 0 {
				return frames, consumed
			}
		}
		afterStart := s + len(start)

		var msgEnd int
		if len(end) == 0 {
			msgEnd = len(rest)
		} else {
			e := bytes.Index(rest[afterStart:], end)
			if e < 0 {
				return frames, consumed
			}
			msgEnd = afterStart + e + len(end)
		}
		// Both delimiters empty on an empty remainder: nothing left to emit.
		if msgEnd == 0 {
			return frames, consumed
		}

		frame := make([]byte, msgEnd-s)
		copy(frame, rest[s:msgEnd])
		frames = append(frames, frame)
		consumed += msgEnd
	}
}

// Accumulator is the append-only, front-truncatable buffer of bytes that
// have not yet formed a complete frame. It is not safe for concurrent use.
type Accumulator struct {
	buf      []byte
	maxBytes int
	dropped  uint64
}

// NewAccumulator creates an accumulator. maxBytes caps the retained
// unframed bytes after each extraction pass; 0 means unbounded.
func NewAccumulator(maxBytes int) *Accumulator {
	if maxBytes < 0 {
		maxBytes = 0
	}
	return &Accumulator{maxBytes: maxBytes}
}

// Append adds a chunk at the tail.
func (a *Accumulator) Append(chunk []byte) {
	a.buf = append(a.buf, chunk...)
}

// Len returns the number of buffered bytes.
func (a *Accumulator) Len() int {
	return len(a.buf)
}

// Bytes returns a copy of the buffered bytes.
func (a *Accumulator) Bytes() []byte {
	return bytes.Clone(a.buf)
}

// Dropped returns the total number of bytes discarded by the size ceiling.
func (a *Accumulator) Dropped() uint64 {
	return a.dropped
}

// Reset discards all buffered bytes.
func (a *Accumulator) Reset() {
	a.buf = a.buf[:0]
}

// Extract runs ExtractFrames to completion, removes the consumed prefix and
// then enforces the size ceiling by dropping the oldest bytes. It returns
// the frames and the number of bytes dropped by the ceiling in this pass.
func (a *Accumulator) Extract(start, end []byte) ([][]byte, int) {
	frames, consumed := ExtractFrames(a.buf, start, end)
	a.truncate(consumed)

	dropped := 0
	if a.maxBytes > 0 && len(a.buf) > a.maxBytes {
		dropped = len(a.buf) - a.maxBytes
		a.truncate(dropped)
		a.dropped += uint64(dropped)
	}
	return frames, dropped
}

func (a *Accumulator) truncate(n int) {
	if n <= 0 {
		return
	}
	if n >= len(a.buf) {
		a.buf = a.buf[:0]
		return
	}
	a.buf = append(a.buf[:0], a.buf[n:]...)
}
