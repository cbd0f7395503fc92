// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package delivery

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/samber/oops"

	"github.com/wardenauth/warden/pkg/errutil"
)

// Relay forwards queued reset codes to a Sender.
//
// A message is acknowledged once sent. A failed send is requeued on its
// first delivery and discarded on redelivery, so a poison message is tried
// at most twice. Malformed messages are discarded immediately.
type Relay struct {
	sender  Sender
	timeout time.Duration
	options
}

// NewRelay creates a Relay. A non-positive timeout uses DefaultTimeout.
func NewRelay(sender Sender, timeout time.Duration, opts ...Option) (*Relay, error) {
	if sender == nil {
		return nil, oops.Code("DELIVERY_CONFIG_INVALID").Errorf("sender is required")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Relay{sender: sender, timeout: timeout, options: applyOptions(opts)}, nil
}

// Run handles deliveries until ctx is cancelled or the channel closes.
// A closed channel means the broker connection was lost and is an error.
func (r *Relay) Run(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return oops.Code("RELAY_CHANNEL_CLOSED").Errorf("delivery channel closed")
			}
			r.handle(ctx, d)
		}
	}
}

func (r *Relay) handle(ctx context.Context, d amqp.Delivery) {
	var msg CodeMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil || msg.To == "" || msg.Code == "" {
		r.logger.WarnContext(ctx, "discarding malformed reset code message",
			"delivery_tag", d.DeliveryTag,
			"error", err)
		r.settle(ctx, d.Nack(false, false))
		r.record(OutcomeDropped)
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, r.timeout)
	err := r.sender.SendCode(sendCtx, msg.To, msg.Code)
	cancel()

	if err != nil {
		requeue := !d.Redelivered
		errutil.LogErrorContext(ctx, r.logger, "relayed reset code delivery failed",
			oops.With("to", msg.To).With("requeue", requeue).Wrap(err))
		r.settle(ctx, d.Nack(false, requeue))
		r.record(OutcomeFailed)
		return
	}

	r.settle(ctx, d.Ack(false))
	r.record(OutcomeSent)
}

func (r *Relay) settle(ctx context.Context, err error) {
	if err != nil {
		r.logger.WarnContext(ctx, "failed to acknowledge message", "error", err)
	}
}

func (r *Relay) record(outcome string) {
	if r.metrics != nil {
		r.metrics.RecordDelivery(outcome)
	}
}
