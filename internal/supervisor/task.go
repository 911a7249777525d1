package supervisor

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/kestrel-systems/sentinel/internal/actor"
)

// taskOptions bounds a task child's execution.
type taskOptions struct {
	timeout time.Duration
	pollint time.Duration
}

const (
	defaultTaskTimeout = 5 * time.Second
	defaultPollInt     = 100 * time.Millisecond
)

func (o taskOptions) withDefaults() taskOptions {
	if o.timeout <= 0 {
		o.timeout = defaultTaskTimeout
	}
	if o.pollint <= 0 {
		o.pollint = defaultPollInt
	}
	return o
}

// newTaskLink mints the opaque identity a task child is addressed by.
// Nothing ever sends to it; it exists only so which_children/count_children
// and Exit correlation have something stable to key off.
func newTaskLink() actor.Link {
	return actor.NewOpaqueLink(uuid.NewString(), "local")
}

// monitorTask runs fn to completion in its own goroutine and polls its
// status every pollint, up to timeout, reporting the outcome to
// supervisorLink as an Exit envelope from taskLink once fn leaves the
// runnable state. The returned CancelFunc lets a restart or
// shutdown abandon the poller and the in-flight fn early.
func monitorTask(parentCtx context.Context, supervisorLink, taskLink actor.Link, fn TaskFunc, opts taskOptions) context.CancelFunc {
	opts = opts.withDefaults()
	deadline := time.Now().Add(opts.timeout)
	ctx, cancel := context.WithDeadline(parentCtx, deadline)

	var done atomic.Bool
	var outcome atomic.Value // actor.Reason

	go func() {
		err := fn(ctx)
		reason := actor.Normal()
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			// fn only returned because our own deadline fired, not
			// because it failed on its own terms.
			reason = actor.TimedOut()
		case err != nil:
			reason = actor.Failure(err)
		}
		outcome.Store(reason)
		done.Store(true)
	}()

	go func() {
		ticker := time.NewTicker(opts.pollint)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if done.Load() {
					reason, _ := outcome.Load().(actor.Reason)
					cancel()
					supervisorLink.Send( //nolint:errcheck
						context.Background(),
						actor.ExitEnvelope(taskLink, reason),
					)
					return
				}
				if time.Now().After(deadline) {
					// fn ignored its ctx and is still running; report
					// timed_out anyway and leave it to exit on its own.
					cancel()
					supervisorLink.Send( //nolint:errcheck
						context.Background(),
						actor.ExitEnvelope(taskLink, actor.TimedOut()),
					)
					return
				}

			case <-parentCtx.Done():
				cancel()
				return
			}
		}
	}()

	return cancel
}
