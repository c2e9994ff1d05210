package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rotblauer/cleanspeed/params"
	"github.com/rotblauer/cleanspeed/stream"
	"github.com/rotblauer/cleanspeed/types/trip"
)

// Push is a Source fed by a producer, eg. the web daemon's /fix endpoint.
type Push struct {
	mu     sync.Mutex
	sink   Sink
	dedupe func(trip.RawFix) bool
}

func NewPush(config *params.SourceConfig) *Push {
	if config == nil {
		config = params.DefaultSourceConfig()
	}
	p := &Push{}
	if config.DedupeWindow > 0 {
		p.dedupe = NewDedupePassLRUFunc(config.DedupeWindow)
	}
	return p
}

func (p *Push) Start(ctx context.Context, sink Sink) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sink = sink
	return nil
}

func (p *Push) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sink = nil
}

// Active reports whether pushed fixes are currently delivered.
func (p *Push) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sink != nil
}

// Deliver hands fix to the sink, or returns ErrInactive while stopped.
// Duplicates are dropped silently.
func (p *Push) Deliver(fix trip.RawFix) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sink == nil {
		return ErrInactive
	}
	if p.dedupe != nil && !p.dedupe(fix) {
		return nil
	}
	p.sink(fix)
	return nil
}

// DeliverJSON decodes fixes from r and delivers them in order.
// It returns the number delivered. Decoding stops at the first bad value,
// delivery at the first error.
func (p *Push) DeliverJSON(ctx context.Context, r io.Reader) (int, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines, errs := stream.Lines(ctx, r)
	n := 0
	for line := range lines {
		fix, err := Decode(line)
		if err != nil {
			return n, fmt.Errorf("fix %d: %w", n, err)
		}
		if err := p.Deliver(fix); err != nil {
			return n, err
		}
		n++
	}
	if err := <-errs; err != nil && !errors.Is(err, context.Canceled) {
		return n, fmt.Errorf("fix %d: %w", n, err)
	}
	return n, nil
}
