package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"
)

// stepIter hands out values fed by the test. It announces on waiting every
// time it is pulled, so the test knows the previous value was consumed.
type stepIter struct {
	feed    chan int
	waiting chan struct{}
}

func newStepIter() *stepIter {
	return &stepIter{feed: make(chan int), waiting: make(chan struct{})}
}

func (it *stepIter) Next(ctx context.Context) (int, bool, error) {
	select {
	case it.waiting <- struct{}{}:
	case <-ctx.Done():
		return 0, false, ctx.Err()
	}
	select {
	case v, open := <-it.feed:
		if !open {
			return 0, false, nil
		}
		return v, true, nil
	case <-ctx.Done():
		return 0, false, ctx.Err()
	}
}

func (it *stepIter) Close() error { return nil }

// push delivers vals and returns once the last one has been folded in.
func (it *stepIter) push(t *testing.T, vals ...int) {
	t.Helper()
	for _, v := range vals {
		select {
		case <-it.waiting:
		case <-time.After(2 * time.Second):
			t.Fatal("source was never pulled")
		}
		it.feed <- v
	}
	select {
	case <-it.waiting:
	case <-time.After(2 * time.Second):
		t.Fatal("source was never pulled after the last value")
	}
}

func counting(p *Pipeline[int]) *Pipeline[int] {
	return Conflate(p, func(int) int { return 1 }, func(n int, _ int) int { return n + 1 })
}

func TestConflate_FoldsBetweenPulls(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fast := newStepIter()
	it := counting(From[int](fast)).Iter(ctx)
	defer it.Close()

	fast.push(t, 7, 8, 9)
	n, ok, err := it.Next(ctx)
	if err != nil || !ok || n != 3 {
		t.Fatalf("first pull: n=%d ok=%v err=%v, want 3", n, ok, err)
	}

	fast.push(t, 10)
	n, ok, err = it.Next(ctx)
	if err != nil || !ok || n != 1 {
		t.Fatalf("second pull: n=%d ok=%v err=%v, want 1", n, ok, err)
	}
}

func TestConflate_PullWaitsForValue(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fast := newStepIter()
	it := counting(From[int](fast)).Iter(ctx)
	defer it.Close()

	type pulled struct {
		n   int
		ok  bool
		err error
	}
	got := make(chan pulled, 1)
	go func() {
		n, ok, err := it.Next(ctx)
		got <- pulled{n, ok, err}
	}()

	select {
	case p := <-got:
		t.Fatalf("pull returned before any value: %+v", p)
	case <-time.After(20 * time.Millisecond):
	}

	fast.push(t, 1)
	p := <-got
	if p.err != nil || !p.ok || p.n != 1 {
		t.Errorf("pull = %+v, want 1", p)
	}
}

func TestConflate_PendingDeliveredAtEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fast := newStepIter()
	it := counting(From[int](fast)).Iter(ctx)
	defer it.Close()

	fast.push(t, 1, 2)
	close(fast.feed)

	n, ok, err := it.Next(ctx)
	if err != nil || !ok || n != 2 {
		t.Fatalf("pending summary: n=%d ok=%v err=%v, want 2", n, ok, err)
	}
	_, ok, err = it.Next(ctx)
	if err != nil || ok {
		t.Errorf("expected end of stream, ok=%v err=%v", ok, err)
	}
}

func TestConflate_SourceError(t *testing.T) {
	boom := errors.New("fast side failed")
	src := FromFunc(func(ctx context.Context) Iterator[int] {
		return &failAfterIter{items: []int{1, 2}, err: boom}
	})
	_, err := Collect(context.Background(), counting(src))
	if !errors.Is(err, boom) {
		t.Errorf("expected source error, got %v", err)
	}
}

func TestConflate_ZipWithSlowSide(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fast := newStepIter()
	slow := newStepIter()
	it := Zip(From[int](slow), counting(From[int](fast))).Iter(ctx)
	defer it.Close()

	type pulled struct {
		pair Pair[int, int]
		ok   bool
		err  error
	}
	got := make(chan pulled, 1)
	go func() {
		p, ok, err := it.Next(ctx)
		got <- pulled{p, ok, err}
	}()

	// Three fast elements arrive before the first slow tick.
	fast.push(t, 1, 2, 3)
	<-slow.waiting
	slow.feed <- 100

	p := <-got
	if p.err != nil || !p.ok {
		t.Fatalf("zip pull: ok=%v err=%v", p.ok, p.err)
	}
	if p.pair.First != 100 || p.pair.Second != 3 {
		t.Errorf("pair = %+v, want (100, 3)", p.pair)
	}
}

func TestTicks(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	got, err := Collect(ctx, Take(Ticks(10*time.Millisecond, 10*time.Millisecond), 3))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 ticks, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Before(got[i-1]) {
			t.Errorf("tick %d is before tick %d", i, i-1)
		}
	}
	if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
		t.Errorf("three ticks took only %v", elapsed)
	}
}

func TestTicks_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Collect(ctx, Ticks(time.Hour, time.Hour))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestZip_TakeStopsPullingAtLimit(t *testing.T) {
	slow := &countingIter{}
	fast := &countingIter{}
	got, err := Collect(context.Background(), Take(Zip(From[int](slow), From[int](fast)), 10))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 10 {
		t.Fatalf("expected 10 pairs, got %d", len(got))
	}
	if slow.pulls != 10 || fast.pulls != 10 {
		t.Errorf("pulls after limit: slow=%d fast=%d, want 10 each", slow.pulls, fast.pulls)
	}
	if !slow.closed || !fast.closed {
		t.Error("both sides should be closed once the limit is reached")
	}
}
