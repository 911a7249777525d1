package supervisor

import (
	"context"
	"fmt"
	"time"

	"github.com/kestrel-systems/sentinel/internal/actor"
	"golang.org/x/sync/errgroup"
)

const (
	defaultMaxRestarts = 3
	defaultMaxSeconds  = 5.0
)

// Options configures a new supervisor. The zero value for
// MaxRestarts/MaxSeconds is replaced by the defaults above.
type Options struct {
	Strategy    Strategy
	MaxRestarts int
	MaxSeconds  float64
	Name        string
	Capacity    int
}

func (o Options) withDefaults() Options {
	if o.MaxRestarts <= 0 {
		o.MaxRestarts = defaultMaxRestarts
	}
	if o.MaxSeconds <= 0 {
		o.MaxSeconds = defaultMaxSeconds
	}
	return o
}

// state is the supervisor's private bookkeeping. It is only ever touched
// from inside the supervisor's own dispatch goroutine, so it needs no
// locking: the actor model's single-threaded mailbox loop is the mutual
// exclusion.
type state struct {
	strategy    Strategy
	maxRestarts int
	window      time.Duration

	children []*Child

	// rtime is the sliding window of recent restart timestamps bounding
	// restart intensity.
	rtime []time.Time

	// expectedExits absorbs the Exit notification a child we are
	// proactively shutting down (as part of a restart cascade) sends
	// back to us, so it isn't mistaken for an unsolicited failure and
	// run through the restart decision a second time.
	expectedExits map[actor.Link]bool
}

func newState(opts Options) *state {
	return &state{
		strategy:      opts.Strategy,
		maxRestarts:   opts.MaxRestarts,
		window:        time.Duration(opts.MaxSeconds * float64(time.Second)),
		expectedExits: make(map[actor.Link]bool),
	}
}

// New validates opts and spawns a supervisor actor, returning its Link.
func New(ctx context.Context, opts Options) (actor.Link, error) {
	lk, _, err := spawn(ctx, opts)
	return lk, err
}

// spawn is New's implementation, additionally returning the Runtime so
// tests can observe the supervisor's own termination (e.g. after an
// over-budget restart intensity shutdown).
func spawn(ctx context.Context, opts Options) (actor.Link, *actor.Runtime, error) {
	opts = opts.withDefaults()
	if err := validateStrategy(opts.Strategy); err != nil {
		return actor.Link{}, nil, err
	}

	st := newState(opts)
	lk, rt := actor.Spawn(ctx, st.behavior(), actor.SpawnOptions{
		Name:     opts.Name,
		Capacity: opts.Capacity,
		Mode:     actor.RunSupervisor,
	})
	return lk, rt, nil
}

func (st *state) behavior() actor.Behavior {
	return func(ctx context.Context, as *actor.ActorState, env actor.Envelope) (actor.Mode, error) {
		switch req := env.Payload.(type) {
		case startActorReq:
			st.reply(ctx, as.Self, env, st.startActor(ctx, as.Self, req))
			return actor.ModeContinue, nil

		case startTaskReq:
			st.reply(ctx, as.Self, env, st.startTask(ctx, as.Self, req))
			return actor.ModeContinue, nil

		case superviseReq:
			st.reply(ctx, as.Self, env, st.supervise(ctx, as.Self, env.From, req))
			return actor.ModeContinue, nil

		case unsuperviseReq:
			st.reply(ctx, as.Self, env, st.unsupervise(env.From))
			return actor.ModeContinue, nil

		case deleteChildReq:
			st.reply(ctx, as.Self, env, st.deleteChild(req.link))
			return actor.ModeContinue, nil

		case terminateChildReq:
			st.reply(ctx, as.Self, env, st.terminateChild(ctx, as.Self, req.link))
			return actor.ModeContinue, nil

		case whichChildrenReq:
			st.reply(ctx, as.Self, env, st.whichChildren())
			return actor.ModeContinue, nil

		case countChildrenReq:
			st.reply(ctx, as.Self, env, st.countChildren())
			return actor.ModeContinue, nil
		}

		if env.Kind == actor.KindExit {
			return st.onExit(ctx, as.Self, env)
		}

		return actor.ModeContinue, nil
	}
}

// reply answers a supervision API request. A failed reply is logged and
// dropped, not surfaced as a behavior failure: the usual cause is a caller
// whose Request already timed out and closed its reply slot, and a caller
// giving up must not take the supervisor (and its whole subtree) with it.
func (st *state) reply(ctx context.Context, self actor.Link, env actor.Envelope, payload any) {
	if err := actor.Reply(ctx, self, env, payload); err != nil {
		log.DebugS(ctx, "dropping reply to departed caller",
			"kind", env.Kind.String(), "err", err)
	}
}

func (st *state) findChild(lk actor.Link) *Child {
	for _, c := range st.children {
		if c.Link.Equal(lk) && !c.removed {
			return c
		}
	}
	return nil
}

func (st *state) indexOf(target *Child) int {
	for i, c := range st.children {
		if c == target {
			return i
		}
	}
	return -1
}

// onExit implements the restart decision: look the exited
// child up, decide whether its policy wants it back, check the
// restart-intensity budget, then apply the configured strategy.
func (st *state) onExit(ctx context.Context, self actor.Link, env actor.Envelope) (actor.Mode, error) {
	from := env.From

	if from.Zero() {
		// exit! addressed to the supervisor itself tears the supervisor
		// and all of its children down.
		st.shutdownAllChildren(ctx, actor.Shutdown())
		return actor.ModeDone, env.Reason.AsError()
	}

	if st.expectedExits[from] {
		delete(st.expectedExits, from)
		return actor.ModeContinue, nil
	}

	child := st.findChild(from)
	if child == nil {
		// Not one of ours (or already deleted); nothing to do.
		return actor.ModeContinue, nil
	}

	child.running = false

	if !child.Policy.shouldStart(env.Reason) {
		return actor.ModeContinue, nil
	}

	if st.recordRestart() {
		log.WarnS(ctx, "restart intensity exceeded, shutting down", nil,
			"max_restarts", st.maxRestarts)
		st.shutdownAllChildren(ctx, actor.Shutdown())
		return actor.ModeDone, actor.Shutdown().AsError()
	}

	switch st.strategy {
	case OneForOne:
		st.restartChild(ctx, self, child)

	case OneForAll:
		var siblings []*Child
		for _, c := range st.children {
			if c != child && c.Running() {
				siblings = append(siblings, c)
			}
		}
		st.shutdownSiblingsConcurrently(siblings, actor.Shutdown())

		for _, c := range st.children {
			if !c.removed {
				st.restartChild(ctx, self, c)
			}
		}

	case RestForOne:
		idx := st.indexOf(child)
		if idx < 0 {
			st.restartChild(ctx, self, child)
			break
		}
		var siblings []*Child
		for i := idx + 1; i < len(st.children); i++ {
			if st.children[i].Running() {
				siblings = append(siblings, st.children[i])
			}
		}
		st.shutdownSiblingsConcurrently(siblings, actor.Shutdown())

		for i := idx; i < len(st.children); i++ {
			if !st.children[i].removed {
				st.restartChild(ctx, self, st.children[i])
			}
		}
	}

	return actor.ModeContinue, nil
}

// recordRestart maintains the restart-intensity deque: a fixed-capacity
// window holding at most maxRestarts restart timestamps. A failure is over
// budget when the window is already full of maxRestarts prior restarts
// that all happened within the last window duration, so the supervisor
// tolerates exactly maxRestarts restarts and shuts down on the next one.
func (st *state) recordRestart() bool {
	now := time.Now()

	over := false
	if len(st.rtime) >= st.maxRestarts {
		if now.Sub(st.rtime[0]) <= st.window {
			over = true
		}
		st.rtime = st.rtime[1:]
	}
	st.rtime = append(st.rtime, now)

	return over
}

// shutdownChild asks an actor child to stop, or cancels a task child's
// poller, and, for an actor child this supervisor spawned (one with a
// Runtime), blocks until it has actually terminated, marking the exit as
// expected so the subsequent Exit envelope it sends us is absorbed rather
// than re-triggering a restart decision.
func (st *state) shutdownChild(ctx context.Context, c *Child, reason actor.Reason) {
	st.beginShutdown(c, reason)
	st.awaitShutdown(c)
}

// beginShutdown marks c's eventual Exit as expected and asks it to stop.
// It mutates the shared expectedExits map, so callers shutting down several
// children at once must run every beginShutdown sequentially before
// fanning the (map-free) awaitShutdown calls out concurrently.
func (st *state) beginShutdown(c *Child, reason actor.Reason) {
	st.expectedExits[c.Link] = true

	if c.IsActor() {
		_ = actor.Exit(c.Link, reason)
	} else if c.taskCancel != nil {
		c.taskCancel()
	}

	c.running = false
}

func (st *state) awaitShutdown(c *Child) {
	if c.IsActor() && c.rt != nil {
		<-c.rt.Done()
	}
}

// shutdownSiblingsConcurrently tears down every child in siblings in
// parallel, rather than one at a time, before a one_for_all/rest_for_one
// cascade restarts them in order.
func (st *state) shutdownSiblingsConcurrently(siblings []*Child, reason actor.Reason) {
	for _, c := range siblings {
		st.beginShutdown(c, reason)
	}

	var g errgroup.Group
	for _, c := range siblings {
		c := c
		g.Go(func() error {
			st.awaitShutdown(c)
			return nil
		})
	}
	_ = g.Wait()
}

// restartChild re-runs a child's Start (actor) or TaskFunc (task) in place,
// preserving an actor child's Link identity and re-establishing the
// Connect handshake the fresh incarnation needs, since its ActorState.Conn
// starts out empty even though callers still hold the same Link.
func (st *state) restartChild(ctx context.Context, self actor.Link, c *Child) {
	if c.removed {
		return
	}

	if c.IsActor() {
		if c.start == nil {
			c.running = false
			return
		}
		behavior := c.start(ctx)
		rt := actor.RestartInPlace(ctx, c.Link, behavior, actor.SpawnOptions{
			Connect: []actor.Link{self},
		})
		c.rt = rt
		c.running = true
		return
	}

	if c.task == nil {
		c.running = false
		return
	}
	c.Link = newTaskLink()
	c.taskCancel = monitorTask(ctx, self, c.Link, c.task, c.taskOpts)
	c.running = true
}

func (st *state) shutdownAllChildren(ctx context.Context, reason actor.Reason) {
	var running []*Child
	for _, c := range st.children {
		if c.Running() {
			running = append(running, c)
		}
	}
	st.shutdownSiblingsConcurrently(running, reason)
}

func (st *state) startActor(ctx context.Context, self actor.Link, req startActorReq) startActorResult {
	if err := validateRestartPolicy(req.policy); err != nil {
		return startActorResult{err: err}
	}

	behavior := req.start(ctx)
	capacity := req.capacity
	lk, rt := actor.Spawn(ctx, behavior, actor.SpawnOptions{
		Capacity: capacity,
		Name:     req.name,
		Connect:  []actor.Link{self},
	})

	st.children = append(st.children, &Child{
		Link:       lk,
		Policy:     req.policy,
		kind:       kindActor,
		start:      req.start,
		supervisor: req.supervisor,
		rt:         rt,
		running:    true,
	})

	return startActorResult{link: lk}
}

func (st *state) startTask(ctx context.Context, self actor.Link, req startTaskReq) startActorResult {
	if err := validateRestartPolicy(req.policy); err != nil {
		return startActorResult{err: err}
	}

	lk := newTaskLink()
	opts := req.opts
	cancel := monitorTask(ctx, self, lk, req.task, opts)

	st.children = append(st.children, &Child{
		Link:       lk,
		Policy:     req.policy,
		kind:       kindTask,
		task:       req.task,
		taskOpts:   opts,
		taskCancel: cancel,
		running:    true,
	})

	return startActorResult{link: lk}
}

func (st *state) supervise(ctx context.Context, self, caller actor.Link, req superviseReq) error {
	if err := validateRestartPolicy(req.policy); err != nil {
		return err
	}
	if st.findChild(caller) != nil {
		return fmt.Errorf("%w: link is already supervised", actor.ErrValidation)
	}

	if err := actor.Connect(ctx, self, caller); err != nil {
		return err
	}

	st.children = append(st.children, &Child{
		Link:    caller,
		Policy:  req.policy,
		kind:    kindActor,
		start:   req.start,
		running: true,
	})
	return nil
}

func (st *state) unsupervise(caller actor.Link) error {
	c := st.findChild(caller)
	if c == nil {
		return fmt.Errorf("%w: link is not supervised", actor.ErrValidation)
	}
	c.removed = true
	return nil
}

// deleteChild drops c from children without touching its process: a
// running child keeps running, just untracked.
func (st *state) deleteChild(lk actor.Link) error {
	c := st.findChild(lk)
	if c == nil {
		return fmt.Errorf("%w: unknown child", actor.ErrValidation)
	}
	c.removed = true
	return nil
}

// terminateChild shuts c down with reason shutdown and drops it from
// children.
func (st *state) terminateChild(ctx context.Context, self actor.Link, lk actor.Link) error {
	c := st.findChild(lk)
	if c == nil {
		return fmt.Errorf("%w: unknown child", actor.ErrValidation)
	}
	if c.Running() {
		st.shutdownChild(ctx, c, actor.Shutdown())
	}
	c.removed = true
	return nil
}

func (st *state) whichChildren() []ChildInfo {
	out := make([]ChildInfo, 0, len(st.children))
	for _, c := range st.children {
		if c.removed {
			continue
		}
		out = append(out, ChildInfo{
			Link:         c.Link,
			Policy:       c.Policy,
			IsTask:       c.IsTask(),
			IsSupervisor: c.supervisor,
			Running:      c.Running(),
		})
	}
	return out
}

func (st *state) countChildren() ChildCounts {
	var counts ChildCounts
	for _, c := range st.children {
		if c.removed {
			continue
		}
		counts.Specs++
		if c.Running() {
			counts.Active++
		}
		if c.supervisor {
			counts.Supervisors++
		} else {
			counts.Workers++
		}
	}
	return counts
}
