package actor

import "context"

// Mode is the result a Behavior returns after handling one envelope,
// telling the Runtime dispatch loop what to do next.
type Mode int

const (
	// ModeContinue keeps the actor running with the same behavior.
	ModeContinue Mode = iota

	// ModeDone stops the actor cleanly; the exit reason is Normal unless
	// the behavior returned an explicit Reason via Behavior's error.
	ModeDone
)

// Behavior is the function an actor runs against each envelope it
// receives. It returns the mode to continue in and an error; a non-nil
// error both stops the actor (as if ModeDone) and becomes the Failure
// reason reported to connected Links.
//
// Behavior is a plain function value, not a generic interface: a behavior
// that only understands certain payload shapes is expected to type-switch
// on Envelope.Payload and return ErrValidation-wrapped errors for anything
// else.
type Behavior func(ctx context.Context, state *ActorState, env Envelope) (Mode, error)

// RunMode selects the Runtime's built-in reaction to a KindExit envelope.
type RunMode int

const (
	// RunDefault terminates the actor when a connected peer exits,
	// propagating the peer's reason.
	RunDefault RunMode = iota

	// RunSupervisor hands KindExit envelopes to the behavior instead,
	// which is expected to make a restart decision rather than
	// terminate.
	RunSupervisor
)

// ActorState is the handle a running Behavior is given to observe and
// mutate its own runtime-managed fields. It is never shared outside the
// actor's own goroutine, so it needs no internal locking.
type ActorState struct {
	// Self is this actor's own Link, stable across restarts.
	Self Link

	// Name is the optional symbolic name this actor was spawned under, for
	// logging; actual name resolution is an external collaborator
	// (internal/registry), not state tracked here.
	Name string

	// Conn is the set of Links that receive a KindExit when this actor
	// terminates, and whose own termination this actor is notified of in
	// turn.
	Conn *ConnSet

	// Mode selects the Runtime's built-in KindExit policy; see RunMode.
	Mode RunMode

	// DeadLetter is where Receive forwards an envelope that arrives but
	// doesn't match what the caller is waiting for, instead of discarding
	// it outright. The zero Link means "no sink configured", the default.
	DeadLetter Link

	// ctx is the context this incarnation was spawned with. Receive
	// merges it with its caller-supplied context via mergeContexts, so a
	// blocking Receive always honors system shutdown in addition to
	// whatever deadline the caller passed in.
	ctx context.Context
}

// FuncBehavior adapts a context-free handler into a Behavior, for the
// common case of a stateless handler closing over its own bound
// arguments.
func FuncBehavior(fn func(ctx context.Context, state *ActorState, env Envelope) (Mode, error)) Behavior {
	return Behavior(fn)
}
