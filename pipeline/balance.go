package pipeline

import (
	"context"
	"sync"

	apperrors "github.com/kbukum/bulkflow/errors"
)

// ErrNoBranches is returned by Balance when it was built without branches.
var ErrNoBranches = apperrors.New(apperrors.ErrCodeNoBranches, "balance needs at least one branch")

// Balance fans values out over branches in round-robin order and merges the
// branch outputs back into one pipeline.
//
// The j-th value pulled from p (0-indexed) is handed to branches[j%len(branches)].
// Every branch runs on its own goroutine and processes one value at a time.
// A branch grants a credit when it is idle, and the router waits for the
// credit of the targeted branch before pulling the next value from p, so at
// most one value is in flight per branch and a slow branch only stalls the
// values routed to it.
//
// Outputs are yielded in completion order. The pipeline ends once p is
// exhausted and every branch has finished its in-flight value. The first
// error from p or from any branch cancels all branches and is the only
// error yielded. Cancelling ctx ends the pipeline with ctx.Err().
func Balance[I, O any](p *Pipeline[I], branches ...func(context.Context, I) (O, error)) *Pipeline[O] {
	return &Pipeline[O]{
		create: func(ctx context.Context) Iterator[O] {
			if len(branches) == 0 {
				return &errIter[O]{err: ErrNoBranches}
			}
			return newBalancer(ctx, p.create(ctx), branches)
		},
	}
}

type balancer[I, O any] struct {
	ch     <-chan O
	parent context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closer func() error

	once sync.Once
	mu   sync.Mutex
	err  error
}

func newBalancer[I, O any](ctx context.Context, source Iterator[I], branches []func(context.Context, I) (O, error)) *balancer[I, O] {
	n := len(branches)
	balCtx, cancel := context.WithCancel(ctx)
	out := make(chan O, n)
	credits := make([]chan struct{}, n)
	inputs := make([]chan I, n)
	for i := range branches {
		credits[i] = make(chan struct{}, 1)
		inputs[i] = make(chan I, 1)
	}

	b := &balancer[I, O]{ch: out, parent: ctx, cancel: cancel}

	// Router: wait for the target's credit, then pull exactly one value for it.
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			for _, in := range inputs {
				close(in)
			}
		}()
		for seq := 0; ; seq++ {
			target := seq % n
			select {
			case <-credits[target]:
			case <-balCtx.Done():
				return
			}
			val, ok, err := source.Next(balCtx)
			if err != nil {
				b.fail(err)
				return
			}
			if !ok {
				return
			}
			inputs[target] <- val
		}
	}()

	for i, fn := range branches {
		b.wg.Add(1)
		go func(credit chan<- struct{}, in <-chan I, fn func(context.Context, I) (O, error)) {
			defer b.wg.Done()
			for {
				credit <- struct{}{}
				var val I
				select {
				case v, open := <-in:
					if !open {
						return
					}
					val = v
				case <-balCtx.Done():
					return
				}
				o, err := fn(balCtx, val)
				if err != nil {
					b.fail(err)
					return
				}
				select {
				case out <- o:
				case <-balCtx.Done():
					return
				}
			}
		}(credits[i], inputs[i], fn)
	}

	go func() {
		b.wg.Wait()
		close(out)
	}()

	b.closer = func() error {
		cancel()
		b.wg.Wait()
		return source.Close()
	}
	return b
}

// fail records the first error and cancels every branch.
func (b *balancer[I, O]) fail(err error) {
	b.once.Do(func() {
		b.mu.Lock()
		b.err = err
		b.mu.Unlock()
		b.cancel()
	})
}

func (b *balancer[I, O]) failure() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// Next yields the next branch output. Once a failure is recorded it is
// returned instead of any output still queued. A run that ended because the
// parent context was cancelled reports the context error, never a clean end.
func (b *balancer[I, O]) Next(ctx context.Context) (O, bool, error) {
	var zero O
	if err := b.failure(); err != nil {
		return zero, false, err
	}
	select {
	case o, open := <-b.ch:
		if err := b.failure(); err != nil {
			return zero, false, err
		}
		if open {
			return o, true, nil
		}
		if err := b.parent.Err(); err != nil {
			return zero, false, err
		}
		return zero, false, ctx.Err()
	case <-ctx.Done():
		return zero, false, ctx.Err()
	}
}

func (b *balancer[I, O]) Close() error {
	return b.closer()
}

type errIter[T any] struct {
	err  error
	done bool
}

func (it *errIter[T]) Next(_ context.Context) (T, bool, error) {
	var zero T
	if it.done {
		return zero, false, nil
	}
	it.done = true
	return zero, false, it.err
}

func (it *errIter[T]) Close() error { return nil }
