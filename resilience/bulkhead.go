package resilience

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/kbukum/bulkflow/errors"
)

// Bulkhead errors. Both carry the ENDPOINT_BUSY code.
var (
	ErrBulkheadFull    = apperrors.New(apperrors.ErrCodeEndpointBusy, "bulkhead is full")
	ErrBulkheadTimeout = apperrors.New(apperrors.ErrCodeEndpointBusy, "bulkhead wait timeout")
)

// BulkheadConfig configures a bulkhead.
type BulkheadConfig struct {
	// Name identifies this bulkhead for metrics/logging, usually the endpoint.
	Name string
	// MaxConcurrent is the maximum number of concurrent calls. Defaults to 1.
	MaxConcurrent int
	// MaxWait is how long to wait for a slot. 0 means fail immediately.
	MaxWait time.Duration
	// OnReject is called when a call is rejected.
	OnReject func(name string)
	// OnAcquire is called when a slot is acquired.
	OnAcquire func(name string)
	// OnRelease is called when a slot is released.
	OnRelease func(name string)
}

// Bulkhead limits concurrent calls against one resource.
type Bulkhead struct {
	config BulkheadConfig
	sem    chan struct{}
}

// NewBulkhead creates a new bulkhead.
func NewBulkhead(config BulkheadConfig) *Bulkhead {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 1
	}
	return &Bulkhead{
		config: config,
		sem:    make(chan struct{}, config.MaxConcurrent),
	}
}

// Name returns the bulkhead name.
func (b *Bulkhead) Name() string { return b.config.Name }

// Execute runs fn within the bulkhead.
// Returns ErrBulkheadFull or ErrBulkheadTimeout if no slot is available.
func (b *Bulkhead) Execute(ctx context.Context, fn func() error) error {
	if err := b.acquire(ctx); err != nil {
		if b.config.OnReject != nil {
			b.config.OnReject(b.config.Name)
		}
		return err
	}
	if b.config.OnAcquire != nil {
		b.config.OnAcquire(b.config.Name)
	}
	defer func() {
		<-b.sem
		if b.config.OnRelease != nil {
			b.config.OnRelease(b.config.Name)
		}
	}()
	return fn()
}

// ExecuteWithResult runs a function that returns a value.
func ExecuteWithResult[T any](b *Bulkhead, ctx context.Context, fn func() (T, error)) (T, error) {
	var result T
	err := b.Execute(ctx, func() error {
		var fnErr error
		result, fnErr = fn()
		return fnErr
	})
	return result, err
}

func (b *Bulkhead) acquire(ctx context.Context) error {
	select {
	case b.sem <- struct{}{}:
		return nil
	default:
	}
	if b.config.MaxWait <= 0 {
		return ErrBulkheadFull
	}

	timer := time.NewTimer(b.config.MaxWait)
	defer timer.Stop()
	select {
	case b.sem <- struct{}{}:
		return nil
	case <-timer.C:
		return ErrBulkheadTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// InUse returns the number of slots currently in use.
func (b *Bulkhead) InUse() int {
	return len(b.sem)
}

// Available returns the number of free slots.
func (b *Bulkhead) Available() int {
	return b.config.MaxConcurrent - len(b.sem)
}

// BulkheadGroup hands out one Bulkhead per name, all built from the same template.
type BulkheadGroup struct {
	template BulkheadConfig

	mu        sync.Mutex
	bulkheads map[string]*Bulkhead
}

// NewBulkheadGroup creates a group. The template's Name is replaced per member.
func NewBulkheadGroup(template BulkheadConfig) *BulkheadGroup {
	return &BulkheadGroup{template: template, bulkheads: make(map[string]*Bulkhead)}
}

// Get returns the bulkhead for name, creating it on first use.
func (g *BulkheadGroup) Get(name string) *Bulkhead {
	g.mu.Lock()
	defer g.mu.Unlock()
	if b, ok := g.bulkheads[name]; ok {
		return b
	}
	cfg := g.template
	cfg.Name = name
	b := NewBulkhead(cfg)
	g.bulkheads[name] = b
	return b
}

// InUse reports the in-flight calls per name.
func (g *BulkheadGroup) InUse() map[string]int {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[string]int, len(g.bulkheads))
	for name, b := range g.bulkheads {
		out[name] = b.InUse()
	}
	return out
}
