// Package actorutil provides convenience combinators for working with
// Links from internal/actor: concurrent request fan-out, first-success
// races, and fn.Result-shaped aggregation of the outcomes.
package actorutil

import (
	"context"
	"fmt"

	"github.com/kestrel-systems/sentinel/internal/actor"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// RequestTyped is a convenience wrapper around actor.Request that type
// asserts the reply payload to T, for callers that know what shape a
// particular Link replies with.
func RequestTyped[T any](ctx context.Context, from, lk actor.Link, payload any) (T, error) {
	resp, err := actor.Request(ctx, from, lk, payload)
	if err != nil {
		var zero T
		return zero, err
	}
	typed, ok := resp.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("unexpected reply type: got %T, want %T", resp, zero)
	}
	return typed, nil
}

// TellAll sends payload to every Link in lks, fire-and-forget, collecting
// any send errors without stopping the broadcast partway through.
func TellAll(ctx context.Context, from actor.Link, lks []actor.Link, payload any) []error {
	errs := make([]error, len(lks))
	for i, lk := range lks {
		errs[i] = actor.Send(ctx, from, lk, payload)
	}
	return errs
}

// ParallelRequest sends payload to every Link in lks concurrently and
// collects every reply as a fn.Result, in the same order as lks.
func ParallelRequest(ctx context.Context, from actor.Link, lks []actor.Link, payload any) []fn.Result[any] {
	results := make([]fn.Result[any], len(lks))
	done := make(chan int, len(lks))

	for i, lk := range lks {
		go func(i int, lk actor.Link) {
			resp, err := actor.Request(ctx, from, lk, payload)
			if err != nil {
				results[i] = fn.Err[any](err)
			} else {
				results[i] = fn.Ok(resp)
			}
			done <- i
		}(i, lk)
	}

	for range lks {
		<-done
	}
	return results
}

// FirstSuccess sends payload to every Link in lks concurrently and returns
// the first successful reply. If every request fails, the last observed
// error is returned.
func FirstSuccess(ctx context.Context, from actor.Link, lks []actor.Link, payload any) (any, error) {
	if len(lks) == 0 {
		return nil, fmt.Errorf("no links provided")
	}

	type outcome struct {
		val any
		err error
	}
	resultCh := make(chan outcome, len(lks))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for _, lk := range lks {
		go func(lk actor.Link) {
			val, err := actor.Request(ctx, from, lk, payload)
			select {
			case resultCh <- outcome{val: val, err: err}:
			case <-ctx.Done():
			}
		}(lk)
	}

	var lastErr error
	for range lks {
		select {
		case res := <-resultCh:
			if res.err == nil {
				cancel()
				return res.val, nil
			}
			lastErr = res.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

// CollectSuccesses filters a slice of fn.Result, keeping only the
// successful values and discarding errors.
func CollectSuccesses[R any](results []fn.Result[R]) []R {
	var out []R
	for _, r := range results {
		if val, err := r.Unpack(); err == nil {
			out = append(out, val)
		}
	}
	return out
}

// FirstError returns the first error in results, or nil if every result
// succeeded.
func FirstError[R any](results []fn.Result[R]) error {
	for _, r := range results {
		if _, err := r.Unpack(); err != nil {
			return err
		}
	}
	return nil
}
