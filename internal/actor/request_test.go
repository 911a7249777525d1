package actor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func replyingBehavior() Behavior {
	return func(ctx context.Context, state *ActorState, env Envelope) (Mode, error) {
		if env.Kind != KindRequest {
			return ModeContinue, nil
		}
		n := env.Payload.(int)
		return ModeContinue, Reply(ctx, state.Self, env, n*2)
	}
}

// TestRequestReplyRoundTrip verifies Request blocks until the matching
// Reply arrives and returns its payload.
func TestRequestReplyRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	lk, rt := Spawn(ctx, replyingBehavior(), SpawnOptions{})
	defer func() {
		_ = Exit(lk, Shutdown())
		<-rt.Done()
	}()

	result, err := Request(ctx, Link{}, lk, 21)
	require.NoError(t, err)
	require.Equal(t, 42, result)
}

// TestRequestTimesOut verifies Request reports a TimeoutError when nothing
// answers the correlated reply before the deadline.
func TestRequestTimesOut(t *testing.T) {
	t.Parallel()

	silent := func(ctx context.Context, state *ActorState, env Envelope) (Mode, error) {
		return ModeContinue, nil
	}

	ctx := context.Background()
	lk, rt := Spawn(ctx, silent, SpawnOptions{})
	defer func() {
		_ = Exit(lk, Shutdown())
		<-rt.Done()
	}()

	reqCtx, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()

	_, err := Request(reqCtx, Link{}, lk, 1)
	require.Error(t, err)
	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
}

// TestRequestTargetDiesReturnsRemoteError verifies a target that
// terminates before replying unblocks the caller with a RemoteError
// carrying the exit reason, rather than leaving it to wait out its own
// deadline.
func TestRequestTargetDiesReturnsRemoteError(t *testing.T) {
	t.Parallel()

	dying := func(ctx context.Context, state *ActorState, env Envelope) (Mode, error) {
		if env.Kind == KindRequest {
			return ModeDone, errors.New("boom")
		}
		return ModeContinue, nil
	}

	ctx := context.Background()
	lk, rt := Spawn(ctx, dying, SpawnOptions{})

	_, err := Request(ctx, Link{}, lk, 1)
	var remoteErr *RemoteError
	require.ErrorAs(t, err, &remoteErr)
	require.ErrorContains(t, remoteErr.Reason.Err(), "boom")
	<-rt.Done()
}

// TestConcurrentRequestsDoNotCrossDeliver verifies each Request call gets
// its own ephemeral reply slot even when issued concurrently against the
// same target.
func TestConcurrentRequestsDoNotCrossDeliver(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	lk, rt := Spawn(ctx, replyingBehavior(), SpawnOptions{})
	defer func() {
		_ = Exit(lk, Shutdown())
		<-rt.Done()
	}()

	const n = 20
	results := make(chan int, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			v, err := Request(ctx, Link{}, lk, i)
			require.NoError(t, err)
			results <- v.(int)
		}(i)
	}

	seen := make(map[int]bool, n)
	for i := 0; i < n; i++ {
		select {
		case v := <-results:
			seen[v] = true
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for concurrent requests")
		}
	}
	require.Len(t, seen, n)
	for i := 0; i < n; i++ {
		require.True(t, seen[i*2], "missing reply for input %d", i)
	}
}
