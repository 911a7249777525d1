package supervisor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kestrel-systems/sentinel/internal/actor"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// echoChild returns a Start that builds a Behavior echoing Request/Send
// payloads back to the sender, except the sentinel "fail" payload, which
// makes it exit with an error. startCount is bumped every time Start is
// invoked, letting tests observe how many times a child has been
// (re)started.
func echoChild(startCount *atomic.Int64) Start {
	return func(ctx context.Context) actor.Behavior {
		startCount.Add(1)
		return func(ctx context.Context, as *actor.ActorState, env actor.Envelope) (actor.Mode, error) {
			if env.Kind == actor.KindRequest {
				if s, ok := env.Payload.(string); ok && s == "fail" {
					return actor.ModeDone, errors.New("boom")
				}
				return actor.ModeContinue, actor.Reply(ctx, as.Self, env, env.Payload)
			}
			return actor.ModeContinue, nil
		}
	}
}

func mustPing(t *testing.T, lk actor.Link) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	res, err := actor.Request(ctx, actor.Link{}, lk, "ping")
	require.NoError(t, err)
	require.Equal(t, "ping", res)
}

func crash(t *testing.T, lk actor.Link) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, _ = actor.Request(ctx, actor.Link{}, lk, "fail")
}

// TestOneForOneRestartsOnlyFailedChild verifies a one_for_one failure
// restarts only the failed child and leaves its sibling untouched, with
// both Links still answering afterwards.
func TestOneForOneRestartsOnlyFailedChild(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sv, err := New(ctx, Options{Strategy: OneForOne})
	require.NoError(t, err)

	var c1, c2 atomic.Int64
	b1, err := StartActor(ctx, sv, echoChild(&c1), Permanent, StartActorOptions{})
	require.NoError(t, err)
	b2, err := StartActor(ctx, sv, echoChild(&c2), Permanent, StartActorOptions{})
	require.NoError(t, err)

	crash(t, b1)

	require.Eventually(t, func() bool {
		return c1.Load() == 2
	}, time.Second, 5*time.Millisecond)

	mustPing(t, b2)
	mustPing(t, b1)
	require.EqualValues(t, 1, c2.Load())
}

// TestOneForAllCascades verifies a one_for_all failure restarts every
// child, preserving each one's Link identity.
func TestOneForAllCascades(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sv, err := New(ctx, Options{Strategy: OneForAll})
	require.NoError(t, err)

	var c1, c2, c3 atomic.Int64
	b1, err := StartActor(ctx, sv, echoChild(&c1), Permanent, StartActorOptions{})
	require.NoError(t, err)
	b2, err := StartActor(ctx, sv, echoChild(&c2), Permanent, StartActorOptions{})
	require.NoError(t, err)
	b3, err := StartActor(ctx, sv, echoChild(&c3), Permanent, StartActorOptions{})
	require.NoError(t, err)

	crash(t, b2)

	require.Eventually(t, func() bool {
		return c1.Load() == 2 && c2.Load() == 2 && c3.Load() == 2
	}, time.Second, 5*time.Millisecond)

	mustPing(t, b1)
	mustPing(t, b2)
	mustPing(t, b3)
}

// TestRestForOneCascadesFromFailureOnward verifies a rest_for_one failure
// restarts the failed child and everything after it, leaving earlier
// siblings alone.
func TestRestForOneCascadesFromFailureOnward(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sv, err := New(ctx, Options{Strategy: RestForOne})
	require.NoError(t, err)

	var c1, c2, c3 atomic.Int64
	b1, err := StartActor(ctx, sv, echoChild(&c1), Permanent, StartActorOptions{})
	require.NoError(t, err)
	b2, err := StartActor(ctx, sv, echoChild(&c2), Permanent, StartActorOptions{})
	require.NoError(t, err)
	b3, err := StartActor(ctx, sv, echoChild(&c3), Permanent, StartActorOptions{})
	require.NoError(t, err)

	crash(t, b2)

	require.Eventually(t, func() bool {
		return c2.Load() == 2 && c3.Load() == 2
	}, time.Second, 5*time.Millisecond)

	require.EqualValues(t, 1, c1.Load())
	mustPing(t, b1)
	mustPing(t, b2)
	mustPing(t, b3)
}

// TestIntensityExceededShutsSupervisorDown verifies a fourth failure
// inside the window (with max_restarts=3) tears the supervisor itself
// down instead of restarting again.
func TestIntensityExceededShutsSupervisorDown(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sv, rt, err := spawn(ctx, Options{Strategy: OneForOne, MaxRestarts: 3, MaxSeconds: 5})
	require.NoError(t, err)

	var c1 atomic.Int64
	b1, err := StartActor(ctx, sv, echoChild(&c1), Permanent, StartActorOptions{})
	require.NoError(t, err)

	crash(t, b1)
	require.Eventually(t, func() bool { return c1.Load() == 2 }, time.Second, 5*time.Millisecond)
	crash(t, b1)
	require.Eventually(t, func() bool { return c1.Load() == 3 }, time.Second, 5*time.Millisecond)
	crash(t, b1)
	require.Eventually(t, func() bool { return c1.Load() == 4 }, time.Second, 5*time.Millisecond)

	// The fourth failure is over budget: the supervisor tears itself and
	// its children down instead of restarting again.
	crash(t, b1)

	select {
	case <-rt.Done():
	case <-time.After(time.Second):
		t.Fatal("supervisor never terminated after exceeding restart intensity")
	}
	require.EqualValues(t, 4, c1.Load(), "fourth failure must not trigger another restart")
}

// TestIntensitySpreadOverWindowDoesNotShutDown is the counterpart boundary
// to the over-budget case: the same number of failures, spread out wider
// than the window, keeps the supervisor alive and restarting.
func TestIntensitySpreadOverWindowDoesNotShutDown(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sv, rt, err := spawn(ctx, Options{Strategy: OneForOne, MaxRestarts: 3, MaxSeconds: 0.2})
	require.NoError(t, err)

	var c1 atomic.Int64
	b1, err := StartActor(ctx, sv, echoChild(&c1), Permanent, StartActorOptions{})
	require.NoError(t, err)

	for i := int64(2); i <= 5; i++ {
		crash(t, b1)
		require.Eventually(t, func() bool { return c1.Load() == i },
			time.Second, 5*time.Millisecond)
		time.Sleep(150 * time.Millisecond)
	}

	select {
	case <-rt.Done():
		t.Fatal("supervisor shut down despite failures spread over the window")
	default:
	}
	mustPing(t, b1)
}

// TestTransientCleanExitIsNotRestarted verifies a transient child that
// exits with reason normal stays down, listed as stopped.
func TestTransientCleanExitIsNotRestarted(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sv, err := New(ctx, Options{Strategy: OneForOne})
	require.NoError(t, err)

	done := make(chan struct{})
	start := func(ctx context.Context) actor.Behavior {
		return func(ctx context.Context, as *actor.ActorState, env actor.Envelope) (actor.Mode, error) {
			if env.Kind == actor.KindUser {
				close(done)
				return actor.ModeDone, nil
			}
			return actor.ModeContinue, nil
		}
	}

	lk, err := StartActor(ctx, sv, start, Transient, StartActorOptions{})
	require.NoError(t, err)

	require.NoError(t, actor.Send(ctx, actor.Link{}, lk, "stop"))
	<-done

	require.Eventually(t, func() bool {
		kids, err := WhichChildren(ctx, sv)
		require.NoError(t, err)
		for _, c := range kids {
			if c.Link.Equal(lk) {
				return !c.Running
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
}

// TestTaskTimeoutIsCleanAndNotRestarted verifies a task child that hits
// its deadline reports timed_out, which a transient policy treats as
// clean, so it is not re-run.
func TestTaskTimeoutIsCleanAndNotRestarted(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sv, err := New(ctx, Options{Strategy: OneForOne})
	require.NoError(t, err)

	never := func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}

	lk, err := StartTask(ctx, sv, never, Transient, TaskOptions{
		Timeout: 200 * time.Millisecond,
		Pollint: 20 * time.Millisecond,
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		kids, err := WhichChildren(ctx, sv)
		require.NoError(t, err)
		for _, c := range kids {
			if c.Link.Equal(lk) {
				return !c.Running
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}

// TestExitSupervisorTearsDownChildren verifies an exit! addressed to the
// supervisor itself shuts every child down before the supervisor stops.
func TestExitSupervisorTearsDownChildren(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sv, rt, err := spawn(ctx, Options{Strategy: OneForOne})
	require.NoError(t, err)

	var c1, c2 atomic.Int64
	b1, err := StartActor(ctx, sv, echoChild(&c1), Permanent, StartActorOptions{})
	require.NoError(t, err)
	b2, err := StartActor(ctx, sv, echoChild(&c2), Permanent, StartActorOptions{})
	require.NoError(t, err)

	require.NoError(t, actor.Exit(sv, actor.Shutdown()))

	select {
	case <-rt.Done():
	case <-time.After(time.Second):
		t.Fatal("supervisor never terminated after Exit")
	}

	for _, lk := range []actor.Link{b1, b2} {
		_, err := actor.Request(ctx, actor.Link{}, lk, "ping")
		require.Error(t, err)
	}
}

// TestDeleteChildRemovesFromWhichChildren verifies a deleted child never
// shows up in WhichChildren again.
func TestDeleteChildRemovesFromWhichChildren(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sv, err := New(ctx, Options{Strategy: OneForOne})
	require.NoError(t, err)

	var c1 atomic.Int64
	lk, err := StartActor(ctx, sv, echoChild(&c1), Permanent, StartActorOptions{})
	require.NoError(t, err)
	require.NoError(t, DeleteChild(ctx, sv, lk))

	kids, err := WhichChildren(ctx, sv)
	require.NoError(t, err)
	for _, c := range kids {
		require.False(t, c.Link.Equal(lk))
	}
}

// TestSuperviseThenUnsuperviseIsNoOp checks that Supervise immediately
// followed by Unsupervise leaves children unchanged.
func TestSuperviseThenUnsuperviseIsNoOp(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sv, err := New(ctx, Options{Strategy: OneForOne})
	require.NoError(t, err)

	before, err := CountChildren(ctx, sv)
	require.NoError(t, err)

	selfLink, _ := actor.Spawn(ctx, func(ctx context.Context, as *actor.ActorState, env actor.Envelope) (actor.Mode, error) {
		return actor.ModeContinue, nil
	}, actor.SpawnOptions{})

	require.NoError(t, Supervise(ctx, selfLink, sv, echoChild(new(atomic.Int64)), Transient))
	require.NoError(t, Unsupervise(ctx, selfLink, sv))

	after, err := CountChildren(ctx, sv)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

// TestSupervisionTreeLeavesNoGoroutinesAfterShutdown checks that cancelling
// the context a supervisor (and, transitively, its children) was spawned
// with tears the whole tree down cleanly: no mailbox-loop goroutine is
// left behind once every Runtime has reported Done.
func TestSupervisionTreeLeavesNoGoroutinesAfterShutdown(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())

	sv, svRT, err := spawn(ctx, Options{Strategy: OneForOne})
	require.NoError(t, err)

	var c1, c2 atomic.Int64
	b1, err := StartActor(ctx, sv, echoChild(&c1), Permanent, StartActorOptions{})
	require.NoError(t, err)
	b2, err := StartActor(ctx, sv, echoChild(&c2), Permanent, StartActorOptions{})
	require.NoError(t, err)

	mustPing(t, b1)
	mustPing(t, b2)

	cancel()

	select {
	case <-svRT.Done():
	case <-time.After(time.Second):
		t.Fatal("supervisor never terminated after context cancellation")
	}

	// The supervisor's own Done closing races the children's mailbox
	// loops noticing the same cancelled context; give them a moment to
	// unwind before goleak takes its post-test snapshot.
	require.Eventually(t, func() bool {
		_, err := actor.Request(context.Background(), actor.Link{}, b1, "ping")
		return err != nil
	}, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		_, err := actor.Request(context.Background(), actor.Link{}, b2, "ping")
		return err != nil
	}, time.Second, 5*time.Millisecond)
}
