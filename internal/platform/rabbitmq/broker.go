package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrBrokerUnavailable wraps every connection-level failure so callers can
// treat "the queue fabric is down" uniformly.
var ErrBrokerUnavailable = errors.New("message broker unavailable")

// Broker is a thin durable pub/sub wrapper over a RabbitMQ connection.
// Connection and channel are established lazily on first use and re-dialed
// on the next call after a drop; there is no background heartbeat.
type Broker struct {
	url string

	mu      sync.Mutex
	conn    *amqp.Connection
	pubChan *amqp.Channel
}

func NewBroker(url string) *Broker {
	return &Broker{url: url}
}

// EnsureConnected dials the broker if no live connection exists. Idempotent.
func (b *Broker) EnsureConnected() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := b.connectionLocked()
	return err
}

// Connected reports whether a live connection is currently held. It never
// dials; healthz uses it to observe state without side effects.
func (b *Broker) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil && !b.conn.IsClosed()
}

func (b *Broker) connectionLocked() (*amqp.Connection, error) {
	if b.conn != nil && !b.conn.IsClosed() {
		return b.conn, nil
	}
	conn, err := amqp.Dial(b.url)
	if err != nil {
		return nil, fmt.Errorf("%w: dial failed: %v", ErrBrokerUnavailable, err)
	}
	b.conn = conn
	b.pubChan = nil
	return conn, nil
}

func (b *Broker) publishChannelLocked() (*amqp.Channel, error) {
	conn, err := b.connectionLocked()
	if err != nil {
		return nil, err
	}
	if b.pubChan != nil && !b.pubChan.IsClosed() {
		return b.pubChan, nil
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%w: open channel failed: %v", ErrBrokerUnavailable, err)
	}
	b.pubChan = ch
	return ch, nil
}

// DeclareQueue declares a durable queue. Redeclaring an existing durable
// queue with the same properties is a no-op on the broker side, so this is
// safe to call on every subscribe.
func (b *Broker) DeclareQueue(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, err := b.publishChannelLocked()
	if err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
		// A declare failure kills the AMQP channel; drop it so the next
		// call reopens.
		b.pubChan = nil
		return fmt.Errorf("declare queue %s failed: %w", name, err)
	}
	return nil
}

// Publish sends body to the default exchange under routingKey with
// persistent delivery.
func (b *Broker) Publish(ctx context.Context, routingKey string, body []byte) error {
	b.mu.Lock()
	ch, err := b.publishChannelLocked()
	b.mu.Unlock()
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(
		ctx,
		"",
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("publish to %s failed: %w", routingKey, err)
	}
	return nil
}

// Consume delivers messages from queue to handler until ctx is done or the
// delivery stream closes. Each message is acknowledged after handler returns
// nil; a handler error nacks without requeue and the loop continues. An ack
// failure is logged and the loop continues, so a broken acknowledgment never
// kills the consumer.
func (b *Broker) Consume(ctx context.Context, queue string, handler func(body []byte) error) error {
	b.mu.Lock()
	conn, err := b.connectionLocked()
	b.mu.Unlock()
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("%w: open consume channel failed: %v", ErrBrokerUnavailable, err)
	}
	defer ch.Close()

	deliveries, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume queue %s failed: %w", queue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("%w: delivery stream for %s closed", ErrBrokerUnavailable, queue)
			}
			if err := handler(d.Body); err != nil {
				log.Printf("consume %s handler failed: %v", queue, err)
				_ = d.Nack(false, false)
				continue
			}
			if err := d.Ack(false); err != nil {
				log.Printf("consume %s ack failed: %v", queue, err)
			}
		}
	}
}

func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		return nil
	}
	err := b.conn.Close()
	b.conn = nil
	b.pubChan = nil
	return err
}
