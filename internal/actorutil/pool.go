package actorutil

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/kestrel-systems/sentinel/internal/actor"
)

// Pool distributes messages across a fixed set of identically-behaved
// actors using round-robin scheduling, for horizontal scaling of a worker
// shape a supervisor's one_for_one strategy can still restart member by
// member.
type Pool struct {
	id string

	links []actor.Link
	next  atomic.Uint64
}

// PoolConfig configures a new Pool.
type PoolConfig struct {
	// ID names the pool, used as a prefix for each member's spawn name.
	ID string

	// Size is the number of actor instances to create. Non-positive
	// normalises to 1.
	Size int

	// Factory builds the behavior for pool member idx.
	Factory func(idx int) actor.Behavior

	// MailboxSize overrides each member's mailbox capacity.
	MailboxSize int
}

// NewPool spawns Size actors from Factory and returns a Pool addressing
// them.
func NewPool(ctx context.Context, cfg PoolConfig) *Pool {
	if cfg.Size <= 0 {
		cfg.Size = 1
	}

	p := &Pool{id: cfg.ID, links: make([]actor.Link, cfg.Size)}

	for i := 0; i < cfg.Size; i++ {
		behavior := cfg.Factory(i)
		lk, _ := actor.Spawn(ctx, behavior, actor.SpawnOptions{
			Name:     fmt.Sprintf("%s-%d", cfg.ID, i),
			Capacity: cfg.MailboxSize,
		})
		p.links[i] = lk
	}

	return p
}

// ID returns the pool's identifier.
func (p *Pool) ID() string { return p.id }

// Size returns the number of members in the pool.
func (p *Pool) Size() int { return len(p.links) }

// Links returns a copy of the pool's member Links.
func (p *Pool) Links() []actor.Link {
	out := make([]actor.Link, len(p.links))
	copy(out, p.links)
	return out
}

func (p *Pool) pick() actor.Link {
	idx := p.next.Add(1) % uint64(len(p.links))
	return p.links[idx]
}

// Send delivers payload to the next member in round-robin order.
func (p *Pool) Send(ctx context.Context, from actor.Link, payload any) error {
	return actor.Send(ctx, from, p.pick(), payload)
}

// Request delivers payload to the next member in round-robin order and
// waits for its reply.
func (p *Pool) Request(ctx context.Context, from actor.Link, payload any) (any, error) {
	return actor.Request(ctx, from, p.pick(), payload)
}

// Broadcast sends payload to every member, fire-and-forget.
func (p *Pool) Broadcast(ctx context.Context, from actor.Link, payload any) []error {
	return TellAll(ctx, from, p.links, payload)
}

// BroadcastRequest sends payload to every member concurrently and
// collects every reply.
func (p *Pool) BroadcastRequest(ctx context.Context, from actor.Link, payload any) []any {
	replies := ParallelRequest(ctx, from, p.links, payload)
	out := make([]any, len(replies))
	for i, r := range replies {
		out[i], _ = r.Unpack()
	}
	return out
}

// Stop asks every member to exit with reason and does not wait for them to
// finish; callers that need to wait should hold the Runtime returned by
// whatever spawned the pool member (e.g. a supervisor's Child bookkeeping)
// instead, since Pool itself only keeps Links.
func (p *Pool) Stop(reason actor.Reason) {
	for _, lk := range p.links {
		_ = actor.Exit(lk, reason)
	}
}
