package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"alert-systemv1/internal/logger"
	"alert-systemv1/internal/metrics"
	"alert-systemv1/internal/model"
	"alert-systemv1/internal/notification"
)

const drainSendTimeout = 10 * time.Second

// Admission sentinels, matchable with errors.Is.
var (
	ErrDuplicateAlert = errors.New("dispatch: duplicate alert")
	ErrCoolingDown    = errors.New("dispatch: symbol cooling down")
)

// AlertStore is the slice of the state store the dispatcher needs: the
// single-row delivery status update it exclusively owns.
type AlertStore interface {
	UpdateAlertStatus(ctx context.Context, symbol string, ts time.Time, status model.AlertStatus, channels map[string]model.DeliveryState) error
}

// Config controls queueing and retry behavior.
type Config struct {
	Queue         int
	Cooldown      time.Duration
	MaxAttempts   int
	BackoffBase   time.Duration
	BackoffFactor float64
	BackoffMax    time.Duration
}

func (c Config) withDefaults() Config {
	if c.Queue <= 0 {
		c.Queue = 256
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 500 * time.Millisecond
	}
	if c.BackoffFactor <= 0 {
		c.BackoffFactor = 2
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = 5 * time.Second
	}
	return c
}

// Dispatcher consumes graded alerts and fans them out to the enabled
// channels. It is the sole writer of alert delivery status.
type Dispatcher struct {
	cfg      Config
	channels []notification.Channel
	store    AlertStore
	journal  *Journal
	throttle *Throttle
	met      *metrics.Metrics

	in   chan *model.Alert
	seen map[string]struct{} // dedup keys, process lifetime
}

// New creates a Dispatcher. store and met may be nil in tests; journal
// must not be.
func New(cfg Config, channels []notification.Channel, store AlertStore, journal *Journal, met *metrics.Metrics) *Dispatcher {
	cfg = cfg.withDefaults()
	return &Dispatcher{
		cfg:      cfg,
		channels: channels,
		store:    store,
		journal:  journal,
		throttle: NewThrottle(cfg.Cooldown),
		met:      met,
		in:       make(chan *model.Alert, cfg.Queue),
		seen:     make(map[string]struct{}),
	}
}

// Submit queues an alert for dispatch, blocking when the queue is full.
func (d *Dispatcher) Submit(ctx context.Context, a *model.Alert) error {
	select {
	case d.in <- a:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run consumes the queue until ctx is cancelled or the queue is closed
// by the producer. On cancellation the queued remainder is flushed with
// a single attempt per channel.
func (d *Dispatcher) Run(ctx context.Context) {
	log.Printf("[dispatch] running with %d channels, cooldown %s", len(d.channels), d.throttle.window)
	for {
		// Once shutdown starts, everything still queued takes the
		// single-attempt path.
		select {
		case <-ctx.Done():
			d.drain()
			return
		default:
		}

		select {
		case a, ok := <-d.in:
			if !ok {
				return
			}
			d.process(ctx, a, d.cfg.MaxAttempts)
		case <-ctx.Done():
			d.drain()
			return
		}
	}
}

// drain flushes whatever is queued at shutdown. Each alert gets exactly
// one attempt per channel on a detached timeout context.
func (d *Dispatcher) drain() {
	for {
		select {
		case a, ok := <-d.in:
			if !ok {
				return
			}
			dctx, cancel := context.WithTimeout(context.Background(), drainSendTimeout)
			d.process(dctx, a, 1)
			cancel()
		default:
			return
		}
	}
}

// admit checks the alert against dedup and cooldown.
func (d *Dispatcher) admit(a *model.Alert) error {
	key := a.DedupKey()
	if _, dup := d.seen[key]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateAlert, key)
	}
	d.seen[key] = struct{}{}

	if !d.throttle.Allow(a, time.Now()) {
		return fmt.Errorf("%w: %s %s", ErrCoolingDown, a.Symbol, a.Action)
	}
	return nil
}

func (d *Dispatcher) process(ctx context.Context, a *model.Alert, attempts int) {
	if !a.Dispatchable() {
		return
	}

	if err := d.admit(a); err != nil {
		log.Printf("[dispatch] suppressed: %v", err)
		switch {
		case errors.Is(err, ErrDuplicateAlert):
			// The original alert's row keeps its real outcome; the
			// duplicate is only logged and counted.
			d.suppressed("dedup")
		case errors.Is(err, ErrCoolingDown):
			d.suppressed("cooldown")
			d.updateStatus(ctx, a, model.StatusSuppressed)
		}
		return
	}

	// One trace ID covers every channel attempt for this alert; the
	// journal rows and outbound webhook requests carry it.
	ctx = logger.WithTraceID(ctx, logger.GenerateTraceID(a.Symbol, a.TS))

	a.Channels = make(map[string]model.DeliveryState, len(d.channels))
	sent := 0
	for _, ch := range d.channels {
		if d.deliver(ctx, ch, a, attempts) {
			a.Channels[ch.Name()] = model.DeliverySent
			sent++
		} else {
			a.Channels[ch.Name()] = model.DeliveryFailed
		}
	}

	status := model.StatusFailed
	switch {
	case sent == len(d.channels):
		status = model.StatusDelivered
	case sent > 0:
		status = model.StatusPartial
	}
	d.updateStatus(ctx, a, status)
	log.Printf("[dispatch] %s %s %s -> %s (%d/%d channels)",
		a.Grade, a.Symbol, a.Action, status, sent, len(d.channels))
}

// deliver tries one channel with bounded exponential backoff, recording
// every attempt in the journal.
func (d *Dispatcher) deliver(ctx context.Context, ch notification.Channel, a *model.Alert, attempts int) bool {
	delay := d.cfg.BackoffBase
retry:
	for i := 1; i <= attempts; i++ {
		start := time.Now()
		err := ch.Send(ctx, a)
		latency := time.Since(start)

		d.journal.Record(Attempt{
			Symbol:  a.Symbol,
			AlertTS: a.TS,
			Channel: ch.Name(),
			Attempt: i,
			OK:      err == nil,
			Err:     errString(err),
			Latency: latency,
			Trace:   logger.TraceID(ctx),
		})
		if d.met != nil {
			d.met.DispatchDur.Observe(latency.Seconds())
		}

		if err == nil {
			if d.met != nil {
				d.met.DispatchTotal.WithLabelValues(ch.Name(), "sent").Inc()
			}
			return true
		}
		log.Printf("[dispatch] %s attempt %d/%d failed: %v", ch.Name(), i, attempts, err)

		if i < attempts {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				break retry
			}
			delay = time.Duration(float64(delay) * d.cfg.BackoffFactor)
			if delay > d.cfg.BackoffMax {
				delay = d.cfg.BackoffMax
			}
		}
	}

	if d.met != nil {
		d.met.DispatchTotal.WithLabelValues(ch.Name(), "failed").Inc()
	}
	return false
}

func (d *Dispatcher) updateStatus(ctx context.Context, a *model.Alert, status model.AlertStatus) {
	a.Status = status
	if d.store == nil {
		return
	}
	if err := d.store.UpdateAlertStatus(ctx, a.Symbol, a.TS, status, a.Channels); err != nil {
		log.Printf("[dispatch] status update error: %v", err)
	}
}

func (d *Dispatcher) suppressed(reason string) {
	if d.met != nil {
		d.met.SuppressedTotal.WithLabelValues(reason).Inc()
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
