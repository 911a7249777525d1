package actor

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// Send delivers payload to lk as a fire-and-forget KindUser envelope, with
// from as the reported sender (the zero Link for an unattributed send).
func Send(ctx context.Context, from, lk Link, payload any) error {
	return lk.Send(ctx, UserEnvelope(from, payload))
}

// Receive blocks on self's own mailbox until an envelope matching match
// arrives or ctx is cancelled or passes its deadline. Envelopes
// that don't match are treated as dead letters and logged, not
// re-queued: an actor calling Receive is expected to be the only consumer
// of its own mailbox, consistent with Request's one-shot reply slots.
func Receive(ctx context.Context, self *ActorState, match func(Envelope) bool) (Envelope, error) {
	mailbox := self.Self.currentMailbox()
	if mailbox == nil {
		return Envelope{}, ErrMailboxClosed
	}

	if self.ctx != nil {
		merged, cancel := mergeContexts(ctx, self.ctx)
		defer cancel()
		ctx = merged
	}

	for env := range mailbox.Receive(ctx) {
		if match == nil || match(env) {
			return env, nil
		}
		if !self.DeadLetter.Zero() {
			_ = self.DeadLetter.Send(ctx, UserEnvelope(self.Self, env))
		} else {
			log.WarnS(ctx, "dead letter: envelope discarded during receive",
				nil, "kind", env.Kind.String(), "self", self.Self.ID())
		}
	}

	if ctx.Err() != nil {
		return Envelope{}, &TimeoutError{Op: "receive"}
	}
	return Envelope{}, ErrMailboxClosed
}

// Request sends payload to lk and blocks until the correlated KindResponse
// or the target's KindExit arrives on a fresh ephemeral reply Link, ctx is
// cancelled, or timeout elapses. Each call mints its own reply mailbox so
// concurrent Request calls from the same actor never cross-deliver, and
// connects it to the target for the duration of the call: a target that
// terminates before answering surfaces promptly as a RemoteError instead
// of leaving the caller blocked until its deadline.
func Request(ctx context.Context, from, lk Link, payload any) (any, error) {
	id := uuid.NewString()
	replyMailbox := NewMailbox(2)
	replyLink := newLocalLink(id, "local", "reply", replyMailbox)
	defer replyMailbox.Close(false)

	if err := lk.Send(ctx, ConnectEnvelope(replyLink)); err != nil {
		return nil, err
	}
	defer func() {
		// Best effort: a target that already terminated fails the send
		// immediately, and one that is still alive must drop the reply
		// link so its connection set doesn't accrete an entry per call.
		dctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = lk.Send(dctx, DisconnectEnvelope(replyLink))
	}()

	if err := lk.Send(ctx, RequestEnvelope(from, replyLink, id, payload)); err != nil {
		return nil, err
	}

	for {
		env, err := replyMailbox.receiveOne(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, &TimeoutError{Op: "request"}
			}
			return nil, err
		}
		switch {
		case env.Kind == KindResponse && env.CorrelationID == id:
			return env.Payload, nil
		case env.Kind == KindExit:
			return nil, &RemoteError{Reason: env.Reason}
		}
	}
}

// RequestR is Request wrapped as a monadic fn.Result, the shape callers
// reaching for lnd/fn's Ask-style combinators (see internal/actorutil)
// expect instead of a bare (any, error) pair.
func RequestR(ctx context.Context, from, lk Link, payload any) fn.Result[any] {
	res, err := Request(ctx, from, lk, payload)
	if err != nil {
		return fn.Err[any](err)
	}
	return fn.Ok(res)
}

// Reply sends payload back as the KindResponse correlated to req, the
// counterpart a Behavior calls after receiving a KindRequest envelope.
func Reply(ctx context.Context, self Link, req Envelope, payload any) error {
	if req.Kind != KindRequest || req.ReplyTo.Zero() {
		return validationErrorf("envelope is not a pending request")
	}
	return req.ReplyTo.Send(ctx, ResponseEnvelope(self, req.CorrelationID, payload))
}

// Update hot-swaps the Behavior running at lk without disturbing its
// queued mail or Link identity.
func Update(ctx context.Context, lk Link, next Behavior) error {
	return lk.Send(ctx, UpdateEnvelope(Link{}, next))
}

// UpdateName renames the actor at lk. The name is a logging label on
// ActorState; bindings in a name registry are unaffected.
func UpdateName(ctx context.Context, lk Link, name string) error {
	return lk.Send(ctx, Envelope{Kind: KindUpdate, Payload: name})
}

// UpdateMode switches the Runtime-level exit policy of the actor at lk;
// see RunMode.
func UpdateMode(ctx context.Context, lk Link, mode RunMode) error {
	return lk.Send(ctx, Envelope{Kind: KindUpdate, Payload: mode})
}
