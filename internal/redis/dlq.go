package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/avoqado/possync/pkg/tracing"
)

const (
	// DefaultDLQStream is the default dead letter stream name
	DefaultDLQStream = "possync:dlq"

	// DLQMaxLen is the maximum length of the DLQ stream (oldest entries trimmed)
	DLQMaxLen = 10000
)

// DeadLetterMirror records a copy of every dead-lettered event in a capped
// Redis stream so operators can inspect failures without a broker console.
// The broker's dead-letter queue stays the source of truth for replay.
type DeadLetterMirror struct {
	client     *Client
	streamName string
	logger     ectologger.Logger
}

// NewDeadLetterMirror creates a new dead letter mirror
func NewDeadLetterMirror(client *Client, streamName string, logger ectologger.Logger) *DeadLetterMirror {
	if streamName == "" {
		streamName = DefaultDLQStream
	}
	return &DeadLetterMirror{
		client:     client,
		streamName: streamName,
		logger:     logger,
	}
}

// DLQEntry represents a dead letter entry
type DLQEntry struct {
	ID           string          `json:"id"`
	Vendor       string          `json:"vendor"`
	RoutingKey   string          `json:"routing_key"`
	VenueID      string          `json:"venue_id,omitempty"`
	Body         json.RawMessage `json:"body"`
	Reason       string          `json:"reason"`
	ErrorMessage string          `json:"error_message"`
	DeliveryTag  uint64          `json:"delivery_tag"`
	CreatedAt    time.Time       `json:"created_at"`
	TraceID      string          `json:"trace_id,omitempty"`
}

// Add appends an entry to the mirror stream
func (d *DeadLetterMirror) Add(ctx context.Context, entry *DLQEntry) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "DLQMirror.Add")
	defer span.End()

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	entry.TraceID = tracing.GetTraceID(ctx)

	data, err := json.Marshal(entry)
	if err != nil {
		return "", fmt.Errorf("failed to marshal DLQ entry: %w", err)
	}

	messageID, err := d.client.Redis().XAdd(ctx, &redis.XAddArgs{
		Stream: d.streamName,
		MaxLen: DLQMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data":        string(data),
			"vendor":      entry.Vendor,
			"routing_key": entry.RoutingKey,
			"reason":      entry.Reason,
		},
	}).Result()

	if err != nil {
		d.logger.WithContext(ctx).WithError(err).Error("Failed to mirror event to DLQ stream")
		return "", fmt.Errorf("failed to add to DLQ mirror: %w", err)
	}

	d.logger.WithContext(ctx).Infof("Mirrored dead letter: id=%s key=%s reason=%s", entry.ID, entry.RoutingKey, entry.Reason)
	return messageID, nil
}

// List returns the most recent entries from the mirror stream
func (d *DeadLetterMirror) List(ctx context.Context, count int64) ([]DLQEntry, error) {
	ctx, span := tracing.StartSpan(ctx, "DLQMirror.List")
	defer span.End()

	if count <= 0 {
		count = 100
	}

	messages, err := d.client.Redis().XRevRangeN(ctx, d.streamName, "+", "-", count).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read DLQ mirror: %w", err)
	}

	entries := make([]DLQEntry, 0, len(messages))
	for _, msg := range messages {
		data, ok := msg.Values["data"].(string)
		if !ok {
			continue
		}

		var entry DLQEntry
		if err := json.Unmarshal([]byte(data), &entry); err != nil {
			d.logger.WithContext(ctx).WithError(err).Warnf("Failed to unmarshal DLQ entry: %s", msg.ID)
			continue
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// Count returns the number of entries in the mirror stream
func (d *DeadLetterMirror) Count(ctx context.Context) (int64, error) {
	return d.client.Redis().XLen(ctx, d.streamName).Result()
}
