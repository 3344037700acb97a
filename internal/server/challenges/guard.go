package challenges

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/flagkeeper/internal/common"
)

// guard runs fn under timeout and converts errors, panics and deadline
// overruns into common.ErrChallengeFault. Cancellation of the caller's own
// ctx is returned as is.
func guard[T any](ctx context.Context, timeout time.Duration, id, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		v, err := fn(callCtx)
		ch <- result{v: v, err: err}
	}()

	select {
	case r := <-ch:
		if r.err == nil {
			return r.v, nil
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		return zero, fault(id, op, r.err)
	case <-callCtx.Done():
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		return zero, fault(id, op, callCtx.Err())
	}
}

func fault(id, op string, err error) error {
	if errors.Is(err, common.ErrChallengeFault) {
		return err
	}
	return fmt.Errorf("%w: %s.%s: %v", common.ErrChallengeFault, id, op, err)
}
