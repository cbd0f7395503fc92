// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package delivery

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/samber/oops"
)

// DefaultQueue is the AMQP queue reset codes are published to.
const DefaultQueue = "warden.reset_codes"

// CodeMessage is the JSON body of a queued reset code.
type CodeMessage struct {
	To   string `json:"to"`
	Code string `json:"code"`
}

// publisher is the part of *amqp.Channel the sender needs.
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPClient owns a connection and channel bound to one durable queue.
type AMQPClient struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
}

// DialAMQP connects to the broker and declares the queue.
func DialAMQP(url, queue string) (*AMQPClient, error) {
	if queue == "" {
		queue = DefaultQueue
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, oops.Code("AMQP_CONNECT_FAILED").With("operation", "dial broker").Wrap(err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, oops.Code("AMQP_CONNECT_FAILED").With("operation", "open channel").Wrap(err)
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, oops.Code("AMQP_CONNECT_FAILED").
			With("operation", "declare queue").
			With("queue", queue).
			Wrap(err)
	}

	return &AMQPClient{conn: conn, channel: ch, queue: queue}, nil
}

// Sender returns a Sender that publishes to the client's queue.
func (c *AMQPClient) Sender() *AMQPSender {
	return &AMQPSender{pub: c.channel, queue: c.queue}
}

// Consume starts consuming the queue with manual acknowledgement. prefetch
// bounds the unacknowledged messages held by this consumer.
func (c *AMQPClient) Consume(ctx context.Context, consumer string, prefetch int) (<-chan amqp.Delivery, error) {
	if prefetch > 0 {
		if err := c.channel.Qos(prefetch, 0, false); err != nil {
			return nil, oops.Code("AMQP_CONSUME_FAILED").With("operation", "set qos").Wrap(err)
		}
	}
	deliveries, err := c.channel.ConsumeWithContext(ctx, c.queue, consumer, false, false, false, false, nil)
	if err != nil {
		return nil, oops.Code("AMQP_CONSUME_FAILED").
			With("operation", "consume queue").
			With("queue", c.queue).
			Wrap(err)
	}
	return deliveries, nil
}

// Close closes the channel and the connection.
func (c *AMQPClient) Close() error {
	chErr := c.channel.Close()
	connErr := c.conn.Close()
	if chErr != nil {
		return oops.Code("AMQP_CLOSE_FAILED").With("component", "channel").Wrap(chErr)
	}
	if connErr != nil {
		return oops.Code("AMQP_CLOSE_FAILED").With("component", "connection").Wrap(connErr)
	}
	return nil
}

// AMQPSender publishes reset codes as persistent JSON messages.
type AMQPSender struct {
	pub   publisher
	queue string
	now   func() time.Time
}

// SendCode publishes a CodeMessage to the queue.
func (s *AMQPSender) SendCode(ctx context.Context, to, code string) error {
	body, err := json.Marshal(CodeMessage{To: to, Code: code})
	if err != nil {
		return oops.Code("AMQP_PUBLISH_FAILED").With("operation", "encode message").Wrap(err)
	}

	now := time.Now
	if s.now != nil {
		now = s.now
	}

	err = s.pub.PublishWithContext(ctx, "", s.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    now().UTC(),
		Body:         body,
	})
	if err != nil {
		return oops.Code("AMQP_PUBLISH_FAILED").
			With("operation", "publish message").
			With("queue", s.queue).
			Wrap(err)
	}
	return nil
}
