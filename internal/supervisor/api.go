package supervisor

import (
	"context"
	"time"

	"github.com/kestrel-systems/sentinel/internal/actor"
)

// ChildInfo is the introspection record WhichChildren returns for one
// child.
type ChildInfo struct {
	Link         actor.Link
	Policy       RestartPolicy
	IsTask       bool
	IsSupervisor bool
	Running      bool
}

// ChildCounts is the summary CountChildren returns:
// a tally broken down by child kind, not just a raw list.
type ChildCounts struct {
	Specs       int
	Active      int
	Supervisors int
	Workers     int
}

type startActorReq struct {
	start      Start
	policy     RestartPolicy
	capacity   int
	name       string
	supervisor bool
}

type startTaskReq struct {
	task   TaskFunc
	policy RestartPolicy
	opts   taskOptions
}

type startActorResult struct {
	link actor.Link
	err  error
}

type superviseReq struct {
	start  Start
	policy RestartPolicy
}

type unsuperviseReq struct{}

type deleteChildReq struct {
	link actor.Link
}

type terminateChildReq struct {
	link actor.Link
}

type whichChildrenReq struct{}

type countChildrenReq struct{}

// StartActorOptions configures a spawned actor child.
type StartActorOptions struct {
	Capacity int
	Name     string

	// Supervisor marks this child as itself a supervisor, for
	// CountChildren's Supervisors/Workers split. Purely a bookkeeping
	// hint; it doesn't change restart behavior.
	Supervisor bool
}

// StartActor asks sv to spawn and supervise a new actor child built by
// start, restarted per policy, and returns its Link.
func StartActor(ctx context.Context, sv actor.Link, start Start, policy RestartPolicy, opts StartActorOptions) (actor.Link, error) {
	res, err := actor.Request(ctx, actor.Link{}, sv, startActorReq{
		start:      start,
		policy:     policy,
		capacity:   opts.Capacity,
		name:       opts.Name,
		supervisor: opts.Supervisor,
	})
	if err != nil {
		return actor.Link{}, err
	}
	r := res.(startActorResult)
	return r.link, r.err
}

// TaskOptions bounds a scheduled task child's execution.
type TaskOptions struct {
	Timeout time.Duration
	Pollint time.Duration
}

// StartTask asks sv to schedule fn as a one-shot task child, monitored
// until it leaves the runnable state, and returns the opaque Link it is
// addressed by for introspection and Exit correlation.
func StartTask(ctx context.Context, sv actor.Link, fn TaskFunc, policy RestartPolicy, opts TaskOptions) (actor.Link, error) {
	res, err := actor.Request(ctx, actor.Link{}, sv, startTaskReq{
		task:   fn,
		policy: policy,
		opts: taskOptions{
			timeout: opts.Timeout,
			pollint: opts.Pollint,
		},
	})
	if err != nil {
		return actor.Link{}, err
	}
	r := res.(startActorResult)
	return r.link, r.err
}

// Supervise asks sv to adopt the calling actor (identified by self) as a
// child, restarted via start per policy if it later exits.
func Supervise(ctx context.Context, self, sv actor.Link, start Start, policy RestartPolicy) error {
	res, err := actor.Request(ctx, self, sv, superviseReq{start: start, policy: policy})
	if err != nil {
		return err
	}
	if res == nil {
		return nil
	}
	if e, ok := res.(error); ok {
		return e
	}
	return nil
}

// Unsupervise asks sv to remove the calling actor (identified by self)
// from its children.
func Unsupervise(ctx context.Context, self, sv actor.Link) error {
	res, err := actor.Request(ctx, self, sv, unsuperviseReq{})
	if err != nil {
		return err
	}
	if e, ok := res.(error); ok {
		return e
	}
	return nil
}

// DeleteChild asks sv to drop c from its children without terminating it.
func DeleteChild(ctx context.Context, sv, c actor.Link) error {
	res, err := actor.Request(ctx, actor.Link{}, sv, deleteChildReq{link: c})
	if err != nil {
		return err
	}
	if e, ok := res.(error); ok {
		return e
	}
	return nil
}

// TerminateChild asks sv to shut c down with reason :shutdown and drop it
// from its children.
func TerminateChild(ctx context.Context, sv, c actor.Link) error {
	res, err := actor.Request(ctx, actor.Link{}, sv, terminateChildReq{link: c})
	if err != nil {
		return err
	}
	if e, ok := res.(error); ok {
		return e
	}
	return nil
}

// WhichChildren asks sv for its current child list.
func WhichChildren(ctx context.Context, sv actor.Link) ([]ChildInfo, error) {
	res, err := actor.Request(ctx, actor.Link{}, sv, whichChildrenReq{})
	if err != nil {
		return nil, err
	}
	return res.([]ChildInfo), nil
}

// CountChildren asks sv for a summary tally of its children.
func CountChildren(ctx context.Context, sv actor.Link) (ChildCounts, error) {
	res, err := actor.Request(ctx, actor.Link{}, sv, countChildrenReq{})
	if err != nil {
		return ChildCounts{}, err
	}
	return res.(ChildCounts), nil
}
