package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publishes persistent JSON messages to durable queues via default exchange
// Connection is reopened lazily if broker dropped it
type AMQPPublisher struct {
	url string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPPublisher(url string) (*AMQPPublisher, error) {
	p := &AMQPPublisher{url: url}
	if err := p.open(); err != nil {
		return nil, err
	}
	return p, nil
}

// First connect. On failure nothing is kept open, the publisher is discarded
func (p *AMQPPublisher) open() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.connect()
	if err != nil && p.conn != nil && !p.conn.IsClosed() {
		_ = p.conn.Close()
	}
	return err
}

// Must be called with mu held
func (p *AMQPPublisher) connect() error {
	if p.conn == nil || p.conn.IsClosed() {
		conn, err := amqp.Dial(p.url)
		if err != nil {
			return fmt.Errorf("rabbitmq dial failed: %w", err)
		}
		p.conn = conn
		p.ch = nil
	}

	if p.ch == nil || p.ch.IsClosed() {
		ch, err := p.conn.Channel()
		if err != nil {
			return fmt.Errorf("rabbitmq channel open failed: %w", err)
		}

		_, err = ch.QueueDeclare(
			QueueOrderCreated,
			true,  // durable
			false, // autoDelete
			false, // exclusive
			false, // noWait
			nil,
		)
		if err != nil {
			_ = ch.Close()
			return fmt.Errorf("rabbitmq queue declare failed: %w", err)
		}
		p.ch = ch
	}

	return nil
}

func (p *AMQPPublisher) PublishOrderCreated(ctx context.Context, e OrderCreated) error {
	return p.publish(ctx, QueueOrderCreated, e)
}

func (p *AMQPPublisher) publish(ctx context.Context, queue string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event failed: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.connect(); err != nil {
		return err
	}

	err = p.ch.PublishWithContext(ctx,
		"",    // default exchange
		queue, // routing key = queue name
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("rabbitmq publish failed: %w", err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil || p.conn.IsClosed() {
		return nil
	}
	return p.conn.Close()
}
