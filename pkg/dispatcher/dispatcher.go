package dispatcher

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/avoqado/possync/internal/redis"
	"github.com/avoqado/possync/pkg/broker"
	"github.com/avoqado/possync/pkg/metrics"
	"github.com/avoqado/possync/pkg/tracing"
)

// Dead-letter reasons recorded on the metric and the mirror stream.
const (
	ReasonBadRoutingKey  = "bad_routing_key"
	ReasonNoHandler      = "no_handler"
	ReasonBadPayload     = "bad_payload"
	ReasonRejected       = "rejected"
	ReasonRetryExhausted = "retry_exhausted"
)

// Handler processes the decoded body of one delivery. Returning nil acks the
// message. An httperror 4xx dead-letters it immediately; any other error is
// treated as transient and retried within the delivery budget.
type Handler func(ctx context.Context, key broker.RoutingKey, body []byte) error

// Dispatcher routes deliveries from the consumer queue to registered handlers
// and owns the ack/nack decision for every message.
type Dispatcher struct {
	handlers      map[string]Handler
	order         []string
	maxDeliveries int
	mirror        *redis.DeadLetterMirror
	logger        ectologger.Logger
}

func New(maxDeliveries int, mirror *redis.DeadLetterMirror, logger ectologger.Logger) *Dispatcher {
	if maxDeliveries < 1 {
		maxDeliveries = 1
	}
	return &Dispatcher{
		handlers:      map[string]Handler{},
		maxDeliveries: maxDeliveries,
		mirror:        mirror,
		logger:        logger,
	}
}

// Register binds a handler to an "<entity>.<verb>" key ("heartbeat" for the
// three segment form). Duplicate registration is a programming error.
func (d *Dispatcher) Register(handlerKey string, h Handler) error {
	if h == nil {
		return fmt.Errorf("nil handler for %q", handlerKey)
	}
	if _, exists := d.handlers[handlerKey]; exists {
		return fmt.Errorf("handler already registered for %q", handlerKey)
	}
	d.handlers[handlerKey] = h
	d.order = append(d.order, handlerKey)
	return nil
}

// Verify fails startup when any of the required handler keys is missing.
func (d *Dispatcher) Verify(required ...string) error {
	for _, key := range required {
		if _, ok := d.handlers[key]; !ok {
			return fmt.Errorf("no handler registered for %q", key)
		}
	}
	return nil
}

// Registered returns handler keys in registration order.
func (d *Dispatcher) Registered() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

// Run consumes deliveries until the channel closes or the context is
// cancelled. Each delivery is acked or nacked exactly once.
func (d *Dispatcher) Run(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			d.dispatch(ctx, delivery)
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, delivery amqp.Delivery) {
	ctx, span := tracing.StartSpan(ctx, "Dispatcher.dispatch")
	defer span.End()

	log := d.logger.WithContext(ctx).WithField("routingKey", delivery.RoutingKey)

	key, err := broker.ParseRoutingKey(delivery.RoutingKey)
	if err != nil {
		log.WithError(err).Warn("Dead-lettering message with unparseable routing key")
		d.deadLetter(ctx, delivery, key, ReasonBadRoutingKey, err)
		return
	}

	handler, ok := d.handlers[key.HandlerKey()]
	if !ok {
		log.Warnf("Dead-lettering message: no handler for %s", key.HandlerKey())
		metrics.RecordEvent(key.Entity, key.Verb, "dead_letter")
		d.deadLetter(ctx, delivery, key, ReasonNoHandler, fmt.Errorf("no handler for %s", key.HandlerKey()))
		return
	}

	if err := handler(ctx, key, delivery.Body); err != nil {
		d.handleFailure(ctx, delivery, key, err)
		return
	}

	metrics.RecordEvent(key.Entity, key.Verb, "success")
	if err := delivery.Ack(false); err != nil {
		log.WithError(err).Error("Failed to ack delivery")
	}
}

// handleFailure classifies the handler error. Client errors (4xx) can never
// succeed on retry and dead-letter immediately; anything else gets one more
// delivery attempt while the budget allows.
func (d *Dispatcher) handleFailure(ctx context.Context, delivery amqp.Delivery, key broker.RoutingKey, err error) {
	log := d.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
		"routingKey": delivery.RoutingKey,
		"attempts":   d.attempts(delivery),
	})

	if httperror.IsHTTPError(err) {
		code := httperror.GetStatusCode(err)
		if code >= http.StatusBadRequest && code < http.StatusInternalServerError {
			log.Warnf("Dead-lettering rejected message (%d)", code)
			metrics.RecordEvent(key.Entity, key.Verb, "dead_letter")
			d.deadLetter(ctx, delivery, key, ReasonRejected, err)
			return
		}
	}

	if d.attempts(delivery) < d.maxDeliveries {
		log.Warn("Requeueing message after transient failure")
		metrics.RecordEvent(key.Entity, key.Verb, "requeued")
		if nackErr := delivery.Nack(false, true); nackErr != nil {
			d.logger.WithContext(ctx).WithError(nackErr).Error("Failed to nack delivery for requeue")
		}
		return
	}

	log.Error("Dead-lettering message: delivery budget exhausted")
	metrics.RecordEvent(key.Entity, key.Verb, "dead_letter")
	d.deadLetter(ctx, delivery, key, ReasonRetryExhausted, err)
}

// deadLetter mirrors the message to the Redis stream and nacks without
// requeue so the broker routes it to the dead-letter exchange. The mirror is
// best effort; the broker's dead-letter queue is the source of truth.
func (d *Dispatcher) deadLetter(ctx context.Context, delivery amqp.Delivery, key broker.RoutingKey, reason string, cause error) {
	metrics.RecordDeadLetter(reason)

	if d.mirror != nil {
		errorMessage := ""
		if cause != nil {
			errorMessage = cause.Error()
		}
		if _, err := d.mirror.Add(ctx, &redis.DLQEntry{
			Vendor:       key.Vendor,
			RoutingKey:   delivery.RoutingKey,
			Body:         delivery.Body,
			Reason:       reason,
			ErrorMessage: errorMessage,
			DeliveryTag:  delivery.DeliveryTag,
		}); err != nil {
			d.logger.WithContext(ctx).WithError(err).Error("Failed to mirror dead letter")
		}
	}

	if err := delivery.Nack(false, false); err != nil {
		d.logger.WithContext(ctx).WithError(err).Error("Failed to nack delivery")
	}
}

// attempts counts how many times the broker has handed us this message: the
// current delivery, a redelivery after an unacked close, and any x-death
// cycles recorded by the dead-letter exchange.
func (d *Dispatcher) attempts(delivery amqp.Delivery) int {
	attempts := 1
	if delivery.Redelivered {
		attempts++
	}
	if deaths, ok := delivery.Headers["x-death"].([]interface{}); ok {
		for _, death := range deaths {
			table, ok := death.(amqp.Table)
			if !ok {
				continue
			}
			if count, ok := table["count"].(int64); ok {
				attempts += int(count)
			}
		}
	}
	return attempts
}
