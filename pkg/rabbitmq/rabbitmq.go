package rabbitmq

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/streadway/amqp"
	"go.uber.org/zap"
)

// Default names used when Config leaves them empty.
const (
	DefaultExchange   = "catalog"
	DefaultQueue      = "product_events"
	DefaultBindingKey = "product.*"
)

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	queue    string
	logger   *zap.Logger
	mu       sync.Mutex // serializes publishes on the shared channel
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL      string
	Exchange string
	Queue    string
}

func (cfg Config) withDefaults() Config {
	if cfg.Exchange == "" {
		cfg.Exchange = DefaultExchange
	}
	if cfg.Queue == "" {
		cfg.Queue = DefaultQueue
	}
	return cfg
}

// NewClient creates a new RabbitMQ client.
// It connects, declares the topic exchange and binds the durable event queue to it.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declareTopology(ch, cfg); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	logger.Info("RabbitMQ client connected",
		zap.String("exchange", cfg.Exchange),
		zap.String("queue", cfg.Queue))

	return &Client{
		conn:     conn,
		channel:  ch,
		exchange: cfg.Exchange,
		queue:    cfg.Queue,
		logger:   logger,
	}, nil
}

func declareTopology(ch *amqp.Channel, cfg Config) error {
	if err := ch.ExchangeDeclare(
		cfg.Exchange, // name
		"topic",      // kind
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", cfg.Exchange, err)
	}

	if _, err := ch.QueueDeclare(
		cfg.Queue, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	); err != nil {
		return fmt.Errorf("failed to declare %s: %w", cfg.Queue, err)
	}

	if err := ch.QueueBind(cfg.Queue, DefaultBindingKey, cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind %s to %s: %w", cfg.Queue, cfg.Exchange, err)
	}
	return nil
}

// Close closes the RabbitMQ connection and channel.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred during RabbitMQ client close: %v", errs)
	}
	return nil
}

// Publish sends a persistent JSON message to the exchange under routingKey.
func (c *Client) Publish(routingKey string, body []byte) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available")
	}

	msg := NewPublishing(routingKey, body, time.Now())

	c.mu.Lock()
	err := c.channel.Publish(
		c.exchange, // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		msg,
	)
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	c.logger.Debug("Published event",
		zap.String("routing_key", routingKey),
		zap.String("message_id", msg.MessageId))
	return nil
}

// NewPublishing builds the AMQP message for an event body.
func NewPublishing(routingKey string, body []byte, now time.Time) amqp.Publishing {
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Type:         routingKey,
		Timestamp:    now,
		Body:         body,
	}
}

// ConsumeProductEvents registers a consumer on the event queue and runs
// messageHandler for every delivery in a goroutine. Deliveries are acked when
// the handler returns nil and requeued otherwise.
func (c *Client) ConsumeProductEvents(messageHandler func(msg amqp.Delivery) error) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available for consumption")
	}

	msgs, err := c.channel.Consume(
		c.queue, // queue
		"",      // consumer tag
		false,   // auto-ack
		false,   // exclusive
		false,   // no-local
		false,   // no-wait
		nil,     // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("Waiting for product events", zap.String("queue", c.queue))

	go func() {
		for msg := range msgs {
			if err := messageHandler(msg); err != nil {
				c.logger.Warn("Error processing message",
					zap.Uint64("delivery_tag", msg.DeliveryTag),
					zap.Error(err))
				// Redelivered messages are dropped to avoid a requeue loop.
				if nackErr := msg.Nack(false, !msg.Redelivered); nackErr != nil {
					c.logger.Error("Error nacking message", zap.Uint64("delivery_tag", msg.DeliveryTag), zap.Error(nackErr))
				}
				continue
			}
			if ackErr := msg.Ack(false); ackErr != nil {
				c.logger.Error("Error acking message", zap.Uint64("delivery_tag", msg.DeliveryTag), zap.Error(ackErr))
			}
		}
	}()

	return nil
}
