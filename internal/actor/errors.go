package actor

import "fmt"

// ErrMailboxClosed is returned by Send/Request when the target mailbox has
// already been closed, either because the actor terminated or because a
// restart is in progress and the old incarnation's mailbox has been torn
// down.
var ErrMailboxClosed = fmt.Errorf("actor: mailbox closed")

// ErrRemoteUnavailable is returned when a send is attempted through a
// remote Link whose Transport has been disconnected. Remote delivery itself
// is an external collaborator (see transport.go); this error is the one
// piece of its contract the core needs to know about.
var ErrRemoteUnavailable = fmt.Errorf("actor: remote unavailable")

// ErrValidation wraps a rejected configuration enum (an unrecognised
// strategy, restart policy, or similar closed enumeration).
var ErrValidation = fmt.Errorf("actor: validation error")

// TimeoutError is returned by every blocking API (Receive, Request) when
// its deadline expires before a matching envelope arrives. It is a
// distinguishable type, not just a sentinel, so callers can use errors.As
// if they need to know which operation expired.
type TimeoutError struct {
	// Op names the operation that timed out, e.g. "request", "receive".
	Op string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("actor: %s timed out", e.Op)
}

// RemoteError is returned by Request when the target terminates before
// answering: no Response can ever match the outstanding correlation id,
// and Reason carries the exit reason the target reported. It is distinct
// from TimeoutError, which only says the caller's own deadline expired
// while the target may still be running.
type RemoteError struct {
	// Reason is the exit reason the target terminated with.
	Reason Reason
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("actor: target terminated before replying: %s",
		e.Reason.String())
}

// validationErrorf builds a policy-violation error, raised synchronously
// to the caller of the API function rather than delivered as an Exit.
func validationErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
