// Package transport produces raw byte chunks for the monitor and carries
// outgoing payloads back to the peer.
package transport

import "context"

// DefaultReadBuffer is the size of a single read from the peer.
const DefaultReadBuffer = 4096

// Source delivers opaque byte chunks until ctx is cancelled or the source
// is exhausted. Each chunk sent on out is owned by the receiver.
type Source interface {
	Name() string
	Run(ctx context.Context, out chan<- []byte) error
}

// Sender accepts outgoing payloads.
type Sender interface {
	Send(ctx context.Context, payload []byte) error
	Connected() bool
}

func emit(ctx context.Context, out chan<- []byte, chunk []byte) error {
	select {
	case out <- chunk:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
