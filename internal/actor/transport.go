package actor

import (
	"context"
	"sync/atomic"
)

// LoopbackTransport is a minimal in-memory Transport that delivers
// directly into a local Mailbox, standing in for the network hop a real
// remote Link would take. It exists so the rest of the package can be
// exercised against the Transport interface without depending on
// internal/transport, which supplies the fuller reference implementation
// (copy-on-send, connection teardown) exercised by that package's tests.
type LoopbackTransport struct {
	target *Mailbox
	closed atomic.Bool
}

// NewLoopbackTransport wraps target so envelopes sent through it land in
// target directly.
func NewLoopbackTransport(target *Mailbox) *LoopbackTransport {
	return &LoopbackTransport{target: target}
}

// Deliver implements Transport.
func (t *LoopbackTransport) Deliver(ctx context.Context, env Envelope) error {
	if t.closed.Load() {
		return ErrRemoteUnavailable
	}
	return t.target.enqueue(ctx, env)
}

// Closed implements Transport.
func (t *LoopbackTransport) Closed() bool { return t.closed.Load() }

// Close marks this transport unavailable, simulating a disconnect.
func (t *LoopbackTransport) Close() { t.closed.Store(true) }
