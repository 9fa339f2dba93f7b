package broker

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Config holds the AMQP connection and topology settings.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	VHost    string
	UseTLS   bool

	// Exchange is the topic exchange terminals publish POS events to.
	Exchange string
	// CommandExchange is the topic exchange corrective commands go out on.
	CommandExchange string
	// Queue is this service's durable consumer queue.
	Queue string
	// BindingPattern binds the queue to the exchange (normally "pos.#").
	BindingPattern string
	// DeadLetterSuffix names the DLX and dead-letter queue relative to Queue.
	DeadLetterSuffix string
}

// Client wraps an AMQP connection with the possync topology. Publishes use
// publisher confirms and are serialized; consumption runs on the same channel
// with a bounded prefetch.
type Client struct {
	config Config
	logger ectologger.Logger

	conn *amqp.Connection
	ch   *amqp.Channel

	acks <-chan amqp.Confirmation
	mu   sync.Mutex
}

// Dial connects to the broker and declares the topology.
func Dial(config Config, logger ectologger.Logger) (*Client, error) {
	if config.VHost == "" {
		config.VHost = "/"
	}
	scheme := "amqp"
	if config.UseTLS {
		scheme = "amqps"
	}
	url := fmt.Sprintf("%s://%s:%s@%s:%d/%s",
		scheme, config.User, config.Password, config.Host, config.Port, config.VHost)

	var (
		conn *amqp.Connection
		err  error
	)
	if config.UseTLS {
		conn, err = amqp.DialTLS(url, &tls.Config{MinVersion: tls.VersionTLS12})
	} else {
		conn, err = amqp.Dial(url)
	}
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("amqp confirm mode: %w", err)
	}
	acks := ch.NotifyPublish(make(chan amqp.Confirmation, 1))

	client := &Client{
		config: config,
		logger: logger,
		conn:   conn,
		ch:     ch,
		acks:   acks,
	}
	if err := client.declareTopology(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// declareTopology declares the event exchange, the command exchange, the
// consumer queue with its dead-letter exchange, and the dead-letter queue.
// All declarations are idempotent.
func (c *Client) declareTopology() error {
	dlx := c.config.Queue + c.config.DeadLetterSuffix

	if err := c.ch.ExchangeDeclare(c.config.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", c.config.Exchange, err)
	}
	if err := c.ch.ExchangeDeclare(c.config.CommandExchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", c.config.CommandExchange, err)
	}
	if err := c.ch.ExchangeDeclare(dlx, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare dead-letter exchange %s: %w", dlx, err)
	}

	if _, err := c.ch.QueueDeclare(c.config.Queue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    dlx,
		"x-dead-letter-routing-key": dlx,
	}); err != nil {
		return fmt.Errorf("declare queue %s: %w", c.config.Queue, err)
	}
	if _, err := c.ch.QueueDeclare(dlx, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare dead-letter queue %s: %w", dlx, err)
	}

	if err := c.ch.QueueBind(c.config.Queue, c.config.BindingPattern, c.config.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", c.config.Queue, err)
	}
	if err := c.ch.QueueBind(dlx, dlx, dlx, false, nil); err != nil {
		return fmt.Errorf("bind dead-letter queue %s: %w", dlx, err)
	}
	return nil
}

// Consume starts delivering messages from the consumer queue with the given
// prefetch. Deliveries must be acked or nacked by the caller.
func (c *Client) Consume(consumerTag string, prefetch int) (<-chan amqp.Delivery, error) {
	if err := c.ch.Qos(prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("amqp qos: %w", err)
	}
	return c.ch.Consume(c.config.Queue, consumerTag, false, false, false, false, nil)
}

// PublishCommand publishes a corrective command toward terminals and waits
// for the broker's confirm.
func (c *Client) PublishCommand(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}
	return c.publish(ctx, c.config.CommandExchange, routingKey, body)
}

func (c *Client) publish(ctx context.Context, exchange, key string, body []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.ch.PublishWithContext(
		ctx,
		exchange,
		key,
		false,
		false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("amqp publish %s: %w", key, err)
	}

	select {
	case conf := <-c.acks:
		if conf.Ack {
			return nil
		}
		return errors.New("publish NACK from broker")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ping reports whether the connection is still open.
func (c *Client) Ping() error {
	if c.conn == nil || c.conn.IsClosed() {
		return errors.New("amqp connection is closed")
	}
	return nil
}

func (c *Client) Close() {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}
