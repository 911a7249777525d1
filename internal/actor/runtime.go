package actor

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// SpawnOptions configures a new actor. The zero value spawns with a
// default-capacity local mailbox, no name, and no initial connections.
type SpawnOptions struct {
	// Capacity overrides DefaultMailboxCapacity for this actor's mailbox.
	Capacity int

	// Name is attached to ActorState for logging only; symbolic lookup by
	// name is the external registry collaborator's job, not this
	// package's.
	Name string

	// Connect lists Links to connect bidirectionally with the new actor
	// before it processes its first envelope, so neither side can race
	// past an early exit.
	Connect []Link

	// Mode selects the Runtime's reaction to KindExit. The zero value
	// RunDefault terminates the actor with the peer's reason; a
	// supervisor spawns with RunSupervisor and reacts in its behavior
	// instead.
	Mode RunMode

	// Host tags the Link with an origin, used by remote transports and by
	// logging. Defaults to "local".
	Host string

	// DeadLetter receives envelopes Receive can't match against the
	// caller's predicate, instead of them being silently dropped. The
	// zero Link disables forwarding.
	DeadLetter Link
}

// Runtime owns one actor incarnation: its Link, its Mailbox, and the
// goroutine running Behavior against envelopes as they arrive. A restart
// replaces the Runtime's mailbox/behavior/state but keeps the Link alive.
type Runtime struct {
	link     Link
	behavior atomic.Pointer[Behavior]
	state    *ActorState

	done   chan struct{}
	result atomic.Value // Reason
}

// Spawn starts a new actor running behavior and returns a Runtime handle.
// The caller owns the returned Runtime only to the extent of stopping it
// via Exit through its Link; Runtime itself is not exported outside this
// package's Spawn/RestartInPlace entry points; supervisor wraps it in
// Child bookkeeping.
func Spawn(ctx context.Context, behavior Behavior, opts SpawnOptions) (Link, *Runtime) {
	host := opts.Host
	if host == "" {
		host = "local"
	}
	mailbox := NewMailbox(opts.Capacity)
	lk := newLocalLink(uuid.NewString(), host, "", mailbox)

	conn := NewConnSet()
	for _, peer := range opts.Connect {
		conn.Add(peer)
	}

	rt := &Runtime{
		link: lk,
		state: &ActorState{
			Self:       lk,
			Name:       opts.Name,
			Conn:       conn,
			Mode:       opts.Mode,
			DeadLetter: opts.DeadLetter,
			ctx:        ctx,
		},
		done: make(chan struct{}),
	}
	rt.behavior.Store(&behavior)

	for _, peer := range opts.Connect {
		_ = peer.Send(ctx, ConnectEnvelope(lk))
	}

	go rt.run(ctx)

	return lk, rt
}

// RestartInPlace rebinds lk to a freshly spawned incarnation of behavior,
// preserving lk's identity. Every Link value equal to lk
// (including ones held by siblings or a supervisor) keeps working
// immediately after this returns, addressing the new incarnation.
func RestartInPlace(ctx context.Context, lk Link, behavior Behavior, opts SpawnOptions) *Runtime {
	mailbox := NewMailbox(opts.Capacity)
	lk.rebind(mailbox)

	conn := NewConnSet()
	for _, peer := range opts.Connect {
		conn.Add(peer)
	}

	rt := &Runtime{
		link: lk,
		state: &ActorState{
			Self:       lk,
			Name:       opts.Name,
			Conn:       conn,
			Mode:       opts.Mode,
			DeadLetter: opts.DeadLetter,
			ctx:        ctx,
		},
		done: make(chan struct{}),
	}
	rt.behavior.Store(&behavior)

	for _, peer := range opts.Connect {
		_ = peer.Send(ctx, ConnectEnvelope(lk))
	}

	go rt.run(ctx)

	return rt
}

// Link returns this runtime's current Link.
func (rt *Runtime) Link() Link { return rt.link }

// Done returns a channel closed when this incarnation has fully
// terminated (after dead-letter draining and Exit fan-out).
func (rt *Runtime) Done() <-chan struct{} { return rt.done }

// Reason returns the termination reason, valid only after Done is closed.
func (rt *Runtime) Reason() Reason {
	if r, ok := rt.result.Load().(Reason); ok {
		return r
	}
	return Normal()
}

func (rt *Runtime) run(ctx context.Context) {
	reason := rt.loop(ctx)

	mailbox := rt.link.currentMailbox()
	if mailbox != nil {
		mailbox.Close(true)
		for _, env := range mailbox.Drain() {
			switch {
			case env.Kind == KindRequest && !env.ReplyTo.Zero():
				// This request can never be answered now; tell the
				// caller its target is gone.
				env.ReplyTo.Send(context.Background(), ExitEnvelope(rt.link, reason)) //nolint:errcheck
			case !rt.state.DeadLetter.Zero():
				rt.state.DeadLetter.Send(context.Background(), UserEnvelope(rt.link, env)) //nolint:errcheck
			}
		}
	}

	for _, peer := range rt.state.Conn.Snapshot() {
		peer.Send(context.Background(), ExitEnvelope(rt.link, reason)) //nolint:errcheck
	}

	rt.result.Store(reason)
	close(rt.done)

	log.DebugS(ctx, "actor terminated", "link", rt.link.ID(),
		"name", rt.state.Name, "reason", reason.String())
}

func (rt *Runtime) loop(ctx context.Context) Reason {
	mailbox := rt.link.currentMailbox()
	if mailbox == nil {
		return Normal()
	}

	for env := range mailbox.Receive(ctx) {
		switch env.Kind {
		case KindConnect:
			if env.Disconnect {
				rt.state.Conn.Remove(env.From)
			} else {
				rt.state.Conn.Add(env.From)
			}
			continue

		case KindUpdate:
			if env.Behavior != nil {
				rt.behavior.Store(&env.Behavior)
			}
			switch v := env.Payload.(type) {
			case string:
				rt.state.Name = v
			case RunMode:
				rt.state.Mode = v
			}
			continue

		case KindExit:
			// A connected peer terminated, or exit! asked this actor to
			// stop. The default policy is to terminate with the same
			// reason; a supervisor reacts in its behavior instead.
			if rt.state.Mode != RunSupervisor {
				return env.Reason
			}
			fallthrough

		default:
			behavior := *rt.behavior.Load()
			mode, err := behavior(ctx, rt.state, env)
			if err != nil {
				var sr *shutdownRequest
				if errors.As(err, &sr) {
					return sr.reason
				}
				return Failure(err)
			}
			if mode == ModeDone {
				return Normal()
			}
		}
	}

	if ctx.Err() != nil {
		return Shutdown()
	}
	return Normal()
}

// Exit requests that the actor addressed by lk terminate. It is
// implemented as a best-effort non-blocking send of a KindExit envelope:
// the target runtime finishes whatever dispatch is in flight, then
// terminates with reason (unless it runs in RunSupervisor mode, in which
// case its behavior decides). Supervisors use this to ask a child to stop
// before a restart or on termination.
func Exit(lk Link, reason Reason) error {
	mailbox := lk.currentMailbox()
	if mailbox == nil {
		return fmt.Errorf("%w: link has no local mailbox", ErrMailboxClosed)
	}
	env := ExitEnvelope(Link{}, reason)
	if mailbox.TryEnqueue(env) {
		return nil
	}
	return ErrMailboxClosed
}

// Connect adds a bidirectional connection between a and b: each will
// receive the other's eventual KindExit.
func Connect(ctx context.Context, a, b Link) error {
	if err := a.Send(ctx, ConnectEnvelope(b)); err != nil {
		return err
	}
	return b.Send(ctx, ConnectEnvelope(a))
}

// Disconnect severs a bidirectional connection previously established by
// Connect, so neither side is notified when the other terminates.
func Disconnect(ctx context.Context, a, b Link) error {
	if err := a.Send(ctx, DisconnectEnvelope(b)); err != nil {
		return err
	}
	return b.Send(ctx, DisconnectEnvelope(a))
}
