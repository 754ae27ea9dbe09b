// Package mqpkg provides durable RabbitMQ publish and consume helpers.
//
// Queues are declared durable, messages are persistent JSON bodies, and
// consumers acknowledge manually so that redelivery happens after a crash.
package mqpkg

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Publisher publishes persistent messages to durable queues.
type Publisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewPublisher connects to the broker and opens a channel.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &Publisher{conn: conn, channel: channel}, nil
}

// Publish declares the durable queue and publishes body as a persistent JSON message.
func (p *Publisher) Publish(ctx context.Context, queue string, body any) error {
	if _, err := p.channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	return p.channel.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         payload,
	})
}

// Close closes the channel and the connection.
func (p *Publisher) Close() error {
	if err := p.channel.Close(); err != nil {
		return err
	}

	return p.conn.Close()
}

// HandlerFunc processes one delivered message body.
//
// A nil return acknowledges the message; a non-nil return requeues it.
type HandlerFunc func(ctx context.Context, body []byte) error

// Consumer consumes a durable queue with manual acknowledgment.
type Consumer struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	prefetch int
}

// NewConsumer connects to the broker and opens a channel with the given prefetch.
func NewConsumer(url string, prefetch int) (*Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := channel.Qos(prefetch, 0, false); err != nil {
		channel.Close()
		conn.Close()

		return nil, err
	}

	return &Consumer{conn: conn, channel: channel, prefetch: prefetch}, nil
}

// Consume delivers queue messages to handle until ctx is canceled or the
// channel closes. The message is acknowledged only after handle returns nil;
// otherwise it is negatively acknowledged with requeue.
func (c *Consumer) Consume(ctx context.Context, queue string, handle HandlerFunc) error {
	l := zerolog.Ctx(ctx)

	if _, err := c.channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return err
	}

	deliveries, err := c.channel.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return amqp.ErrClosed
			}

			if err := handle(ctx, d.Body); err != nil {
				l.Error().Err(err).Str("queue", queue).Msg("message handling failed, requeueing")

				if err := d.Nack(false, true); err != nil {
					l.Error().Err(err).Send()
				}

				continue
			}

			if err := d.Ack(false); err != nil {
				l.Error().Err(err).Send()
			}
		}
	}
}

// Close closes the channel and the connection.
func (c *Consumer) Close() error {
	if err := c.channel.Close(); err != nil {
		return err
	}

	return c.conn.Close()
}
