// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package delivery

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/wardenauth/warden/internal/auth"
	"github.com/wardenauth/warden/pkg/errutil"
)

// Delivery outcomes reported to the MetricsRecorder.
const (
	OutcomeSent    = "sent"
	OutcomeFailed  = "failed"
	OutcomeDropped = "dropped"
)

// Dispatcher defaults.
const (
	DefaultQueueSize  = 64
	DefaultWorkers    = 2
	DefaultTimeout    = 15 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryBase  = 200 * time.Millisecond
)

// MetricsRecorder counts delivery outcomes.
type MetricsRecorder interface {
	RecordDelivery(outcome string)
}

// DispatcherConfig tunes a Dispatcher. Zero fields take the defaults.
type DispatcherConfig struct {
	QueueSize  int
	Workers    int
	Timeout    time.Duration
	MaxRetries uint64 // zero sends once without retrying
	RetryBase  time.Duration
}

func (c DispatcherConfig) withDefaults() DispatcherConfig {
	if c.QueueSize <= 0 {
		c.QueueSize = DefaultQueueSize
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RetryBase <= 0 {
		c.RetryBase = DefaultRetryBase
	}
	return c
}

// Option configures a Dispatcher or a Relay.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	metrics MetricsRecorder
}

func applyOptions(opts []Option) options {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics sets the recorder for delivery outcomes.
func WithMetrics(m MetricsRecorder) Option {
	return func(o *options) {
		o.metrics = m
	}
}

type job struct {
	ctx  context.Context
	to   string
	code string
}

// Dispatcher queues reset codes and sends them on background workers.
// Dispatch never blocks: when the queue is full or the dispatcher is
// stopped the code is dropped and counted.
type Dispatcher struct {
	sender Sender
	cfg    DispatcherConfig
	options

	jobs chan job

	// runCtx is cancelled when Stop gives up waiting, aborting in-flight sends.
	runCtx    context.Context
	cancelRun context.CancelFunc

	mu      sync.RWMutex
	started bool
	closed  bool
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher. Call Start to launch its workers.
func NewDispatcher(sender Sender, cfg DispatcherConfig, opts ...Option) (*Dispatcher, error) {
	if sender == nil {
		return nil, oops.Code("DELIVERY_CONFIG_INVALID").Errorf("sender is required")
	}
	cfg = cfg.withDefaults()
	runCtx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		sender:    sender,
		cfg:       cfg,
		options:   applyOptions(opts),
		jobs:      make(chan job, cfg.QueueSize),
		runCtx:    runCtx,
		cancelRun: cancel,
	}, nil
}

// Start launches the workers. Calling it more than once has no effect.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true
	for range d.cfg.Workers {
		d.wg.Add(1)
		go d.work()
	}
}

// Dispatch queues a code for delivery to username. The request context is
// detached from cancellation so delivery outlives the request that asked
// for it, while keeping its values for tracing and logging.
func (d *Dispatcher) Dispatch(ctx context.Context, username, code string) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(ctx, username, "dispatcher stopped")
		return
	}

	select {
	case d.jobs <- job{ctx: context.WithoutCancel(ctx), to: username, code: code}:
	default:
		d.drop(ctx, username, "queue full")
	}
}

func (d *Dispatcher) drop(ctx context.Context, to, reason string) {
	d.logger.WarnContext(ctx, "reset code dropped", "to", to, "reason", reason)
	d.record(OutcomeDropped)
}

// Stop refuses new codes and waits for queued ones to be sent. If ctx ends
// first, in-flight sends are cancelled and ctx's error is returned once the
// workers have exited.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.jobs)
	started := d.started
	d.mu.Unlock()

	if !started {
		for j := range d.jobs {
			d.drop(j.ctx, j.to, "dispatcher never started")
		}
		d.cancelRun()
		return nil
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancelRun()
		return nil
	case <-ctx.Done():
		d.cancelRun()
		<-done
		return oops.Code("DELIVERY_STOP_TIMEOUT").With("operation", "drain delivery queue").Wrap(ctx.Err())
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for j := range d.jobs {
		d.deliver(j)
	}
}

func (d *Dispatcher) deliver(j job) {
	ctx, cancel := context.WithTimeout(j.ctx, d.cfg.Timeout)
	defer cancel()
	stop := context.AfterFunc(d.runCtx, cancel)
	defer stop()

	backoff := retry.WithMaxRetries(d.cfg.MaxRetries, retry.NewExponential(d.cfg.RetryBase))
	attempts := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		if err := d.sender.SendCode(ctx, j.to, j.code); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		errutil.LogErrorContext(ctx, d.logger, "reset code delivery failed",
			oops.Code("DELIVERY_FAILED").
				With("operation", "send reset code").
				With("to", j.to).
				With("attempts", attempts).
				Wrap(err))
		d.record(OutcomeFailed)
		return
	}

	d.logger.DebugContext(ctx, "reset code delivered", "to", j.to, "attempts", attempts)
	d.record(OutcomeSent)
}

func (d *Dispatcher) record(outcome string) {
	if d.metrics != nil {
		d.metrics.RecordDelivery(outcome)
	}
}

// Compile-time interface check.
var _ auth.CodeDispatcher = (*Dispatcher)(nil)
