package pipeline

import (
	"context"
	"sync"
)

// Conflate decouples a fast producer from a slow consumer by folding every
// value that arrives between two pulls into a single summary.
//
// A background goroutine pulls p continuously. The first value after a pull
// seeds a new summary with seed; each further value is folded in with
// aggregate. A pull returns the current summary and starts a new one, or
// waits until a value arrives. Nothing is queued beyond the one summary.
//
// When p is exhausted a pending summary is still delivered. An error from p
// is yielded on the next pull.
func Conflate[T, S any](p *Pipeline[T], seed func(T) S, aggregate func(S, T) S) *Pipeline[S] {
	return &Pipeline[S]{
		create: func(ctx context.Context) Iterator[S] {
			source := p.create(ctx)
			conCtx, cancel := context.WithCancel(ctx)
			it := &conflateIter[T, S]{
				notify:  make(chan struct{}, 1),
				stopped: make(chan struct{}),
				cancel:  cancel,
				closer:  source.Close,
			}
			go it.run(conCtx, source, seed, aggregate)
			return it
		},
	}
}

type conflateIter[T, S any] struct {
	mu      sync.Mutex
	summary S
	pending bool
	done    bool
	err     error

	notify  chan struct{}
	stopped chan struct{}
	cancel  context.CancelFunc
	closer  func() error
}

func (it *conflateIter[T, S]) run(ctx context.Context, source Iterator[T], seed func(T) S, aggregate func(S, T) S) {
	defer close(it.stopped)
	for {
		val, ok, err := source.Next(ctx)
		it.mu.Lock()
		switch {
		case err != nil:
			it.done, it.err = true, err
		case !ok:
			it.done = true
		case it.pending:
			it.summary = aggregate(it.summary, val)
		default:
			it.summary, it.pending = seed(val), true
		}
		finished := it.done
		it.mu.Unlock()
		it.signal()
		if finished {
			return
		}
	}
}

func (it *conflateIter[T, S]) signal() {
	select {
	case it.notify <- struct{}{}:
	default:
	}
}

func (it *conflateIter[T, S]) Next(ctx context.Context) (S, bool, error) {
	for {
		it.mu.Lock()
		if it.err != nil {
			err := it.err
			it.mu.Unlock()
			var zero S
			return zero, false, err
		}
		if it.pending {
			summary := it.summary
			var zero S
			it.summary, it.pending = zero, false
			it.mu.Unlock()
			return summary, true, nil
		}
		if it.done {
			it.mu.Unlock()
			var zero S
			return zero, false, nil
		}
		it.mu.Unlock()

		select {
		case <-it.notify:
		case <-ctx.Done():
			var zero S
			return zero, false, ctx.Err()
		}
	}
}

func (it *conflateIter[T, S]) Close() error {
	it.cancel()
	<-it.stopped
	return it.closer()
}

// Pair holds one value from each side of a Zip.
type Pair[A, B any] struct {
	First  A
	Second B
}

// Zip combines two pipelines one-to-one. Each pull takes the next value of a,
// then the next value of b. The pipeline ends as soon as either side ends.
func Zip[A, B any](a *Pipeline[A], b *Pipeline[B]) *Pipeline[Pair[A, B]] {
	return &Pipeline[Pair[A, B]]{
		create: func(ctx context.Context) Iterator[Pair[A, B]] {
			return &zipIter[A, B]{a: a.create(ctx), b: b.create(ctx)}
		},
	}
}

type zipIter[A, B any] struct {
	a Iterator[A]
	b Iterator[B]
}

func (it *zipIter[A, B]) Next(ctx context.Context) (Pair[A, B], bool, error) {
	first, ok, err := it.a.Next(ctx)
	if err != nil || !ok {
		return Pair[A, B]{}, false, err
	}
	second, ok, err := it.b.Next(ctx)
	if err != nil || !ok {
		return Pair[A, B]{}, false, err
	}
	return Pair[A, B]{First: first, Second: second}, true, nil
}

func (it *zipIter[A, B]) Close() error {
	errA := it.a.Close()
	errB := it.b.Close()
	if errA != nil {
		return errA
	}
	return errB
}
