package pipeline

import (
	"context"
	"sync"
	"time"
)

// Ticks emits the current time after initialDelay and then every interval.
// The pipeline never ends on its own; bound it with Take or cancel ctx.
// Ticks that nobody pulls are dropped, as with time.Ticker.
func Ticks(initialDelay, interval time.Duration) *Pipeline[time.Time] {
	return &Pipeline[time.Time]{
		create: func(_ context.Context) Iterator[time.Time] {
			return &tickIter{delay: initialDelay, interval: interval}
		},
	}
}

type tickIter struct {
	delay    time.Duration
	interval time.Duration

	// Close may run on another goroutine than Next (see Conflate).
	mu     sync.Mutex
	ticker *time.Ticker
	closed bool
}

func (it *tickIter) Next(ctx context.Context) (time.Time, bool, error) {
	it.mu.Lock()
	ticker, closed := it.ticker, it.closed
	it.mu.Unlock()
	if closed {
		return time.Time{}, false, nil
	}

	if ticker == nil {
		timer := time.NewTimer(it.delay)
		defer timer.Stop()
		select {
		case t := <-timer.C:
			it.mu.Lock()
			if !it.closed {
				it.ticker = time.NewTicker(it.interval)
			}
			it.mu.Unlock()
			return t, true, nil
		case <-ctx.Done():
			return time.Time{}, false, ctx.Err()
		}
	}

	select {
	case t := <-ticker.C:
		return t, true, nil
	case <-ctx.Done():
		return time.Time{}, false, ctx.Err()
	}
}

func (it *tickIter) Close() error {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.closed = true
	if it.ticker != nil {
		it.ticker.Stop()
	}
	return nil
}
