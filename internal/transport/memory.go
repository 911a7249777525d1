package transport

import (
	"context"
	"sync/atomic"

	"github.com/kestrel-systems/sentinel/internal/actor"
)

// Cloner lets a payload take control of its own copy-on-send instead of
// being handed across the simulated network boundary by reference. A
// payload that holds no mutable state (a plain string, an immutable
// struct of values) needs no Cloner; one that embeds a slice, map, or
// pointer should implement it so the receiver's copy is independent of
// the sender's.
type Cloner interface {
	Clone() any
}

// InMemory is a Transport that delivers into a local target Link, standing
// in for the network hop a real remote node would take. Payloads
// implementing Cloner are copied before delivery; everything else is
// passed through as-is, since a Go value without reference fields is
// already independent of the sender's copy.
type InMemory struct {
	target actor.Link
	closed atomic.Bool
}

// New wraps target (expected to be a local Link) as an in-memory remote
// transport.
func New(target actor.Link) *InMemory {
	return &InMemory{target: target}
}

// NewLink mints a Link addressed through a fresh InMemory transport to
// target, with the given identity. Used to stand a "remote" peer up in
// tests and examples without any actual networking.
func NewLink(id, host string, target actor.Link) actor.Link {
	return actor.NewRemoteLink(id, host, New(target))
}

// Deliver implements actor.Transport.
func (t *InMemory) Deliver(ctx context.Context, env actor.Envelope) error {
	if t.closed.Load() {
		return actor.ErrRemoteUnavailable
	}
	if c, ok := env.Payload.(Cloner); ok {
		env.Payload = c.Clone()
	}
	return t.target.Send(ctx, env)
}

// Closed implements actor.Transport.
func (t *InMemory) Closed() bool { return t.closed.Load() }

// Close marks this transport unavailable, simulating the remote peer
// going away.
func (t *InMemory) Close() { t.closed.Store(true) }
