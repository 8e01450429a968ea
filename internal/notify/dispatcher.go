// Package notify fans settled trades out to notification sinks without
// blocking the settlement that produced them.
package notify

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/guttosm/escrowd/internal/domain/dto"
	"github.com/guttosm/escrowd/internal/domain/models"
	"github.com/guttosm/escrowd/internal/logger"
	"github.com/guttosm/escrowd/internal/metrics"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Sink receives settlement events. Deliver is called from dispatcher workers.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, ev dto.TradeSettledEvent) error
}

type DispatcherConfig struct {
	QueueSize       int
	Workers         int
	DeliveryTimeout time.Duration
}

func (c DispatcherConfig) withDefaults() DispatcherConfig {
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.DeliveryTimeout <= 0 {
		c.DeliveryTimeout = 5 * time.Second
	}
	return c
}

// Dispatcher queues events in a bounded buffer and delivers each one to every
// sink. When the buffer is full the event is dropped and counted.
type Dispatcher struct {
	sinks   []Sink
	queue   chan dto.TradeSettledEvent
	timeout time.Duration
	log     zerolog.Logger

	mu     sync.RWMutex
	closed bool
	eg     errgroup.Group
}

func NewDispatcher(cfg DispatcherConfig, sinks ...Sink) *Dispatcher {
	cfg = cfg.withDefaults()
	d := &Dispatcher{
		sinks:   sinks,
		queue:   make(chan dto.TradeSettledEvent, cfg.QueueSize),
		timeout: cfg.DeliveryTimeout,
		log:     logger.Component("notify"),
	}
	for i := 0; i < cfg.Workers; i++ {
		d.eg.Go(d.work)
	}
	return d
}

// TradeSettled enqueues t and returns immediately.
func (d *Dispatcher) TradeSettled(_ context.Context, t models.Trade) {
	ev := dto.NewTradeSettledEvent(t)

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.drop(ev, "dispatcher closed")
		return
	}
	select {
	case d.queue <- ev:
	default:
		d.drop(ev, "queue full")
	}
}

func (d *Dispatcher) drop(ev dto.TradeSettledEvent, reason string) {
	metrics.NotificationDropped()
	d.log.Warn().Str("trade_id", ev.Trade.ID).Str("reason", reason).Msg("settlement notification dropped")
}

func (d *Dispatcher) work() error {
	for ev := range d.queue {
		d.deliver(ev)
	}
	return nil
}

func (d *Dispatcher) deliver(ev dto.TradeSettledEvent) {
	for _, s := range d.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err := s.Deliver(ctx, ev)
		cancel()

		metrics.ObserveNotification(s.Name(), err)
		switch {
		case err == nil:
		case IsCircuitOpen(err):
			d.log.Warn().Str("sink", s.Name()).Str("trade_id", ev.Trade.ID).Msg("sink circuit open, notification skipped")
		default:
			d.log.Error().Err(err).Str("sink", s.Name()).Str("trade_id", ev.Trade.ID).Msg("notification delivery failed")
		}
	}
}

// Close stops accepting events, waits for queued ones to be delivered (or ctx
// to end) and closes sinks that hold resources.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- d.eg.Wait() }()
	select {
	case err := <-done:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		return ctx.Err()
	}

	for _, s := range d.sinks {
		if c, ok := s.(io.Closer); ok {
			if err := c.Close(); err != nil {
				d.log.Warn().Err(err).Str("sink", s.Name()).Msg("sink close failed")
			}
		}
	}
	return nil
}
