// Package tasking delivers object-store notification tasks to the worker.
package tasking

import "context"

// Handler processes a single raw task payload. A non-nil error means the
// payload could not be handled and its offset should not be committed.
type Handler func(ctx context.Context, payload []byte) error

// Sink consumes task payloads from a broker and hands them to a Handler,
// one at a time, until the context ends.
type Sink interface {
	// Start blocks, delivering payloads to handler until ctx is canceled.
	Start(ctx context.Context, handler Handler) error
	// Close performs graceful shutdown of the underlying client.
	Close() error
}
