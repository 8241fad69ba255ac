package rabbitMQ

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// delayQueueGrace keeps an idle delay queue around a little longer than its TTL.
const delayQueueGrace = time.Minute

type Handler func(ctx context.Context, body []byte) error

type Queue interface {
	Publish(ctx context.Context, message interface{}) error
	PublishWithDelay(ctx context.Context, message interface{}, delay time.Duration) error
	Consume(ctx context.Context, handler Handler) error
	Close() error
}

type RabbitMQ struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   amqp.Queue
	config  RabbitMQConfig
}

type RabbitMQConfig struct {
	URL       string
	QueueName string
	Prefetch  int
}

func NewRabbitMQ(config RabbitMQConfig) (*RabbitMQ, error) {
	conn, err := amqp.Dial(config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	// Объявляем основную очередь
	q, err := channel.QueueDeclare(
		config.QueueName, // name
		true,             // durable
		false,            // delete when unused
		false,            // exclusive
		false,            // no-wait
		amqp.Table{
			"x-queue-mode": "lazy",
		},
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	if config.Prefetch <= 0 {
		config.Prefetch = 1
	}

	return &RabbitMQ{
		conn:    conn,
		channel: channel,
		queue:   q,
		config:  config,
	}, nil
}

func (r *RabbitMQ) Publish(ctx context.Context, message interface{}) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := r.publish(ctx, r.queue.Name, body); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// PublishWithDelay parks the message in a TTL queue that dead-letters into the
// main queue. Messages with the same delay share one delay queue.
func (r *RabbitMQ) PublishWithDelay(ctx context.Context, message interface{}, delay time.Duration) error {
	if delay <= 0 {
		return r.Publish(ctx, message)
	}

	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	ttl := delay.Milliseconds()
	delayedQueueName := fmt.Sprintf("%s_delay_%d", r.config.QueueName, ttl)

	_, err = r.channel.QueueDeclare(
		delayedQueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		amqp.Table{
			"x-message-ttl":             ttl,
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": r.config.QueueName,
			"x-expires":                 ttl + delayQueueGrace.Milliseconds(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to declare delayed queue: %w", err)
	}

	if err := r.publish(ctx, delayedQueueName, body); err != nil {
		return fmt.Errorf("failed to publish delayed message: %w", err)
	}
	return nil
}

func (r *RabbitMQ) publish(ctx context.Context, routingKey string, body []byte) error {
	return r.channel.PublishWithContext(
		ctx,
		"",         // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
}

func (r *RabbitMQ) Consume(ctx context.Context, handler Handler) error {
	// Настраиваем QoS
	err := r.channel.Qos(
		r.config.Prefetch, // prefetch count
		0,                 // prefetch size
		false,             // global
	)
	if err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := r.channel.Consume(
		r.queue.Name, // queue
		"",           // consumer
		false,        // auto-ack
		false,        // exclusive
		false,        // no-local
		false,        // no-wait
		nil,          // args
	)
	if err != nil {
		return fmt.Errorf("failed to consume messages: %w", err)
	}

	go r.handleMessages(ctx, msgs, handler)
	return nil
}

func (r *RabbitMQ) handleMessages(ctx context.Context, msgs <-chan amqp.Delivery, handler Handler) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				logrus.Warn("RabbitMQ delivery channel closed")
				return
			}

			processDelivery(ctx, msg, handler)
		}
	}
}

// processDelivery never requeues a failed message: redelivering it at once
// would spin, and the periodic sweep picks the reminder up instead.
func processDelivery(ctx context.Context, msg amqp.Delivery, handler Handler) {
	if err := handler(ctx, msg.Body); err != nil {
		logrus.Errorf("Failed to process message: %v. Message dropped, the sweep will cover it.", err)
		if err := msg.Nack(false, false); err != nil {
			logrus.Warnf("Failed to nack message: %v", err)
		}
		return
	}
	if err := msg.Ack(false); err != nil {
		logrus.Warnf("Failed to ack message: %v", err)
	}
}

func (r *RabbitMQ) Close() error {
	var errs []error

	if r.channel != nil {
		if err := r.channel.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if r.conn != nil {
		if err := r.conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors while closing RabbitMQ: %w", errors.Join(errs...))
	}
	return nil
}

// HealthCheck проверяет соединение с RabbitMQ
func (r *RabbitMQ) HealthCheck() error {
	if r.conn == nil || r.conn.IsClosed() {
		return fmt.Errorf("RabbitMQ connection is closed")
	}

	testChannel, err := r.conn.Channel()
	if err != nil {
		return fmt.Errorf("RabbitMQ health check failed: %w", err)
	}
	testChannel.Close()

	return nil
}
