package supervisor

import (
	"context"

	"github.com/kestrel-systems/sentinel/internal/actor"
)

// Start builds (or rebuilds) the Behavior for an actor child. It is called
// once at first add and again on every restart, so it must be safe to
// invoke more than once.
type Start func(ctx context.Context) actor.Behavior

// TaskFunc is the one-shot callable a task child runs. It is handed a
// context that is cancelled once the task's timeout elapses.
type TaskFunc func(ctx context.Context) error

// kind distinguishes an actor child, which can be restarted in place via
// Start, from a task child, which is re-run from scratch by re-invoking
// its TaskFunc.
type kind int

const (
	kindActor kind = iota
	kindTask
)

// Child is the supervisor's bookkeeping record for one supervised actor or
// task.
type Child struct {
	// Link addresses the child: a real mailbox-backed Link for an actor
	// child, an opaque identity-only Link for a task child.
	Link actor.Link

	// Policy decides whether this child is restarted after it exits.
	Policy RestartPolicy

	kind kind

	// supervisor hints that this child is itself a supervisor, used only
	// by count_children's Supervisors/Workers breakdown.
	supervisor bool

	start    Start
	task     TaskFunc
	taskOpts taskOptions

	rt         *actor.Runtime
	taskCancel context.CancelFunc

	// removed marks a child that has been deleted/terminated. The record
	// stays in the supervisor's children slice; lookups, restarts and
	// listings skip it, so Exit notifications still in flight for it are
	// ignored.
	removed bool

	// running is false once a transient/temporary child has exited clean
	// and is not being restarted. CountChildren and WhichChildren need
	// this to report an accurate status without dropping the record
	// outright; a stopped child stays listed until DeleteChild removes it.
	running bool
}

// IsActor reports whether this Child is an actor (as opposed to a task).
func (c *Child) IsActor() bool { return c.kind == kindActor }

// IsTask reports whether this Child is a task.
func (c *Child) IsTask() bool { return c.kind == kindTask }

// Running reports whether the child is currently considered alive.
func (c *Child) Running() bool { return c.running && !c.removed }
