package actorutil

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kestrel-systems/sentinel/internal/actor"
	"github.com/stretchr/testify/require"
)

type poolTrackingBehavior struct {
	handled  atomic.Int64
	mu       sync.Mutex
	received []int
}

func (b *poolTrackingBehavior) behavior() actor.Behavior {
	return func(ctx context.Context, state *actor.ActorState, env actor.Envelope) (actor.Mode, error) {
		n, ok := env.Payload.(int)
		if !ok {
			return actor.ModeContinue, nil
		}
		b.handled.Add(1)
		b.mu.Lock()
		b.received = append(b.received, n)
		b.mu.Unlock()

		if env.Kind == actor.KindRequest {
			return actor.ModeContinue, actor.Reply(ctx, state.Self, env, n*2)
		}
		return actor.ModeContinue, nil
	}
}

func newPool(t *testing.T, size int) (*Pool, []*poolTrackingBehavior) {
	t.Helper()
	// NewPool normalises a non-positive size to 1 and still calls
	// Factory(0), so the helper must have room for that member.
	behaviors := make([]*poolTrackingBehavior, max(size, 1))
	pool := NewPool(context.Background(), PoolConfig{
		ID:   "test-pool",
		Size: size,
		Factory: func(idx int) actor.Behavior {
			b := &poolTrackingBehavior{}
			behaviors[idx] = b
			return b.behavior()
		},
		MailboxSize: 10,
	})
	t.Cleanup(func() { pool.Stop(actor.Shutdown()) })
	return pool, behaviors
}

// TestPoolRoundRobinsRequests verifies each member answers an equal share
// of requests under round-robin scheduling.
func TestPoolRoundRobinsRequests(t *testing.T) {
	t.Parallel()

	pool, behaviors := newPool(t, 3)
	require.Equal(t, 3, pool.Size())

	for i := 0; i < 9; i++ {
		val, err := pool.Request(context.Background(), actor.Link{}, i+1)
		require.NoError(t, err)
		require.Equal(t, (i+1)*2, val)
	}

	for i, b := range behaviors {
		require.EqualValues(t, 3, b.handled.Load(), "member %d", i)
	}
}

// TestPoolBroadcastReachesEveryMember verifies Broadcast delivers to all
// pool members, not just one via round robin.
func TestPoolBroadcastReachesEveryMember(t *testing.T) {
	t.Parallel()

	pool, behaviors := newPool(t, 4)

	errs := pool.Broadcast(context.Background(), actor.Link{}, 42)
	for _, err := range errs {
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool {
		for _, b := range behaviors {
			if b.handled.Load() != 1 {
				return false
			}
		}
		return true
	}, time.Second, 5*time.Millisecond)
}

// TestPoolBroadcastRequestCollectsAllReplies verifies BroadcastRequest
// waits for and returns every member's reply.
func TestPoolBroadcastRequestCollectsAllReplies(t *testing.T) {
	t.Parallel()

	pool, _ := newPool(t, 3)

	replies := pool.BroadcastRequest(context.Background(), actor.Link{}, 5)
	require.Len(t, replies, 3)
	for _, r := range replies {
		require.Equal(t, 10, r)
	}
}

// TestPoolDefaultSize verifies a non-positive Size normalises to 1.
func TestPoolDefaultSize(t *testing.T) {
	t.Parallel()

	pool, _ := newPool(t, 0)
	require.Equal(t, 1, pool.Size())
}
