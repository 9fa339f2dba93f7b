package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/avoqado/possync/pkg/metrics"
	"github.com/avoqado/possync/pkg/models"
	"github.com/avoqado/possync/pkg/tracing"
)

// Config holds Kafka alert configuration
type Config struct {
	Brokers []string
	Topic   string
	Enabled bool
}

// ParseConfig parses a comma-separated broker string
func ParseConfig(brokers string, topic string, enabled bool) Config {
	brokerList := strings.Split(brokers, ",")
	for i := range brokerList {
		brokerList[i] = strings.TrimSpace(brokerList[i])
	}

	return Config{
		Brokers: brokerList,
		Topic:   topic,
		Enabled: enabled,
	}
}

// Producer publishes reconciliation alerts to Kafka for the operations
// dashboard. When disabled it logs the alert and reports success, so the
// heartbeat path behaves the same in environments without Kafka.
type Producer struct {
	writer  *kafka.Writer
	logger  ectologger.Logger
	topic   string
	enabled bool
}

// NewProducer creates a new alert producer
func NewProducer(cfg Config, logger ectologger.Logger) *Producer {
	p := &Producer{
		logger:  logger,
		topic:   cfg.Topic,
		enabled: cfg.Enabled,
	}
	if !cfg.Enabled {
		return p
	}

	p.writer = &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		// Allow Kafka to auto-create the topic in dev environments when it doesn't exist yet.
		// Without this, a first publish may fail with "Unknown Topic Or Partition".
		AllowAutoTopicCreation: true,
	}
	return p
}

// Close closes the producer
func (p *Producer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

// EmitReconciliationAlert publishes an alert keyed by venue id
func (p *Producer) EmitReconciliationAlert(ctx context.Context, alert models.ReconciliationAlert) error {
	ctx, span := tracing.StartSpan(ctx, "Alerts.EmitReconciliationAlert")
	defer span.End()

	span.SetAttributes(
		attribute.String("messaging.system", "kafka"),
		attribute.String("messaging.destination", p.topic),
		attribute.String("messaging.operation", "publish"),
		attribute.String("venue_id", alert.VenueID),
	)

	if !p.enabled {
		p.logger.WithContext(ctx).WithFields(map[string]any{
			"venueId":            alert.VenueID,
			"previousInstanceId": alert.PreviousInstanceID,
			"newInstanceId":      alert.NewInstanceID,
		}).Warn("Alert publishing disabled; reconciliation alert logged only")
		metrics.AlertsPublished.WithLabelValues("skipped").Inc()
		return nil
	}

	data, err := json.Marshal(alert)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to marshal alert")
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	headers := []kafka.Header{
		{Key: "venue_id", Value: []byte(alert.VenueID)},
		{Key: "type", Value: []byte("reconciliation.required")},
	}
	if traceparent := tracing.GetTraceParent(ctx); traceparent != "" {
		headers = append(headers, kafka.Header{Key: "traceparent", Value: []byte(traceparent)})
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(alert.VenueID),
		Value:   data,
		Headers: headers,
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to publish alert")
		metrics.AlertsPublished.WithLabelValues("error").Inc()
		p.logger.WithContext(ctx).WithError(err).Errorf("Failed to publish alert to Kafka topic %s", p.topic)
		return err
	}

	span.SetStatus(codes.Ok, "alert published")
	metrics.AlertsPublished.WithLabelValues("success").Inc()
	p.logger.WithContext(ctx).Infof("Published reconciliation alert: venue=%s previous=%s new=%s",
		alert.VenueID, alert.PreviousInstanceID, alert.NewInstanceID)
	return nil
}
