package supervisor

import (
	"fmt"

	"github.com/kestrel-systems/sentinel/internal/actor"
)

// Strategy governs how siblings are treated when one child exits and its
// restart policy wants it back.
type Strategy string

const (
	// OneForOne restarts only the failed child.
	OneForOne Strategy = "one_for_one"

	// OneForAll shuts down every other child, then restarts every child
	// (including the one that failed) in children order.
	OneForAll Strategy = "one_for_all"

	// RestForOne shuts down and restarts every child from the failed
	// child's position onward, in children order.
	RestForOne Strategy = "rest_for_one"
)

// Valid reports whether s is one of the recognised strategies.
func (s Strategy) Valid() bool {
	switch s {
	case OneForOne, OneForAll, RestForOne:
		return true
	default:
		return false
	}
}

// RestartPolicy governs whether a child is restarted after it exits,
// based on the reason it exited with.
type RestartPolicy string

const (
	// Permanent children are always restarted.
	Permanent RestartPolicy = "permanent"

	// Temporary children are never restarted.
	Temporary RestartPolicy = "temporary"

	// Transient children are restarted unless they exited clean (normal,
	// shutdown, or timed_out).
	Transient RestartPolicy = "transient"
)

// Valid reports whether p is one of the recognised restart policies.
func (p RestartPolicy) Valid() bool {
	switch p {
	case Permanent, Temporary, Transient:
		return true
	default:
		return false
	}
}

// shouldStart decides whether a child should be restarted after exiting
// with reason.
func (p RestartPolicy) shouldStart(reason actor.Reason) bool {
	switch p {
	case Permanent:
		return true
	case Temporary:
		return false
	case Transient:
		return !reason.IsClean()
	default:
		return false
	}
}

func validateStrategy(s Strategy) error {
	if !s.Valid() {
		return fmt.Errorf("%w: unrecognised strategy %q", actor.ErrValidation, s)
	}
	return nil
}

func validateRestartPolicy(p RestartPolicy) error {
	if !p.Valid() {
		return fmt.Errorf("%w: unrecognised restart policy %q", actor.ErrValidation, p)
	}
	return nil
}
