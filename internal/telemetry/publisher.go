// internal/telemetry/publisher.go
//
// Package telemetry moves status snapshots off the control loop and into
// Modbus registers and JSON messages.
package telemetry

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"

	"github.com/tamzrod/openracer/internal/link"
	"github.com/tamzrod/openracer/internal/status"
)

// Sink receives snapshots on the publisher goroutine.
type Sink interface {
	WriteStatus(s status.Snapshot) error
}

// Publisher hands snapshots from the loop to the sinks. Offer never blocks;
// when the sinks fall behind, the newest snapshot wins.
type Publisher struct {
	sinks []Sink
	log   zerolog.Logger
	ch    chan status.Snapshot
	wg    sync.WaitGroup

	dropped   atomic.Uint64
	delivered atomic.Uint64
}

func NewPublisher(log zerolog.Logger, sinks ...Sink) *Publisher {
	return &Publisher{
		sinks: sinks,
		log:   log,
		ch:    make(chan status.Snapshot, 1),
	}
}

// Enabled reports whether any sink is attached.
func (p *Publisher) Enabled() bool {
	return p != nil && len(p.sinks) > 0
}

// Offer queues s. Reports false when an older pending snapshot was replaced.
func (p *Publisher) Offer(s status.Snapshot) bool {
	select {
	case p.ch <- s:
		return true
	default:
	}

	// single producer: make room by discarding the stale value
	select {
	case <-p.ch:
		p.dropped.Add(1)
	default:
	}
	select {
	case p.ch <- s:
	default:
		p.dropped.Add(1)
	}
	return false
}

// Dropped counts snapshots replaced before delivery.
func (p *Publisher) Dropped() uint64 { return p.dropped.Load() }

// Delivered counts snapshots handed to every sink.
func (p *Publisher) Delivered() uint64 { return p.delivered.Load() }

// Start runs the delivery goroutine until ctx is done. Close waits for it.
func (p *Publisher) Start(ctx context.Context) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.Run(ctx)
	}()
}

// Run delivers until ctx is done.
func (p *Publisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-p.ch:
			if err := p.deliver(s); err != nil {
				p.log.Warn().Err(err).Msg("status delivery failed")
			}
		}
	}
}

func (p *Publisher) deliver(s status.Snapshot) error {
	var errs error
	for _, sink := range p.sinks {
		err := sink.WriteStatus(s)
		if errors.Is(err, link.ErrNoPeer) || errors.Is(err, link.ErrBackpressure) {
			continue
		}
		errs = multierr.Append(errs, err)
	}
	p.delivered.Add(1)
	return errs
}

// Close waits for the goroutine started by Start, delivers the snapshot
// still pending (the one offered on shutdown), then closes every sink that
// owns a resource.
func (p *Publisher) Close() error {
	p.wg.Wait()

	var errs error
	select {
	case s := <-p.ch:
		errs = p.deliver(s)
	default:
	}
	for _, sink := range p.sinks {
		if c, ok := sink.(io.Closer); ok {
			errs = multierr.Append(errs, c.Close())
		}
	}
	return errs
}
