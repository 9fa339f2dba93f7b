package heartbeat

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/avoqado/possync/pkg/metrics"
	"github.com/avoqado/possync/pkg/models"
	"github.com/avoqado/possync/pkg/tracing"
)

// VenueStore is the slice of the venue repository the monitor needs.
type VenueStore interface {
	Get(ctx context.Context, id string) (*models.Venue, error)
	UpdatePosConnectivity(ctx context.Context, venueID string, connectivity models.VenuePosConnectivity) error
}

// StatusStore is the slice of the connection status repository the monitor needs.
type StatusStore interface {
	Get(ctx context.Context, venueID string) (*models.PosConnectionStatus, error)
	Upsert(ctx context.Context, status *models.PosConnectionStatus) error
}

// CommandPublisher sends corrective commands back toward terminals.
type CommandPublisher interface {
	PublishCommand(ctx context.Context, routingKey string, payload any) error
}

// AlertEmitter raises operator-facing escalations.
type AlertEmitter interface {
	EmitReconciliationAlert(ctx context.Context, alert models.ReconciliationAlert) error
}

// Monitor tracks per-venue terminal liveness and is the sole writer of
// connection status. A change in the terminal's self-reported instance id
// means its local database was likely restored from backup; that is escalated
// as NEEDS_RECONCILIATION, never treated as a retryable error.
type Monitor struct {
	venues   VenueStore
	statuses StatusStore
	commands CommandPublisher
	alerts   AlertEmitter
	logger   ectologger.Logger
}

func NewMonitor(venues VenueStore, statuses StatusStore, commands CommandPublisher, alerts AlertEmitter, logger ectologger.Logger) *Monitor {
	return &Monitor{
		venues:   venues,
		statuses: statuses,
		commands: commands,
		alerts:   alerts,
		logger:   logger,
	}
}

// HandleHeartbeat applies one heartbeat observation.
//
// Unknown venue: no status row is created; a configuration-error command is
// published toward the terminal and the message is acknowledged as handled,
// since the terminal's configuration is at fault, not the queue.
func (m *Monitor) HandleHeartbeat(ctx context.Context, vendor string, event *models.HeartbeatEvent) error {
	ctx, span := tracing.StartSpan(ctx, "heartbeat.Monitor.HandleHeartbeat")
	defer span.End()

	log := m.logger.WithContext(ctx).WithFields(map[string]any{
		"venue_id":    event.VenueID,
		"instance_id": event.InstanceID,
	})

	ven, err := m.venues.Get(ctx, event.VenueID)
	if err != nil {
		return err
	}
	if ven == nil {
		log.Warn("Heartbeat for unknown venue, sending configuration error command")
		command := models.ConfigurationErrorCommand{
			ErrorType:               models.ErrorTypeVenueNotFound,
			InvalidVenueID:          event.VenueID,
			InstanceID:              event.InstanceID,
			Message:                 fmt.Sprintf("venue %s does not exist", event.VenueID),
			RequiresReconfiguration: true,
		}
		routingKey := fmt.Sprintf("command.%s.configuration.error", vendor)
		if err := m.commands.PublishCommand(ctx, routingKey, command); err != nil {
			return err
		}
		metrics.HeartbeatsProcessed.WithLabelValues("unknown_venue").Inc()
		return nil
	}

	prior, err := m.statuses.Get(ctx, event.VenueID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if prior == nil || prior.InstanceID == event.InstanceID {
		createdAt := now
		if prior != nil {
			createdAt = prior.CreatedAt
		}
		status := &models.PosConnectionStatus{
			VenueID:         event.VenueID,
			Status:          models.ConnectionOnline,
			InstanceID:      event.InstanceID,
			ProducerVersion: event.ProducerVersion,
			LastHeartbeatAt: now,
			CreatedAt:       createdAt,
			UpdatedAt:       now,
		}
		if err := m.statuses.Upsert(ctx, status); err != nil {
			return err
		}
		if err := m.venues.UpdatePosConnectivity(ctx, event.VenueID, models.VenuePosConnected); err != nil {
			return err
		}
		metrics.HeartbeatsProcessed.WithLabelValues(string(models.ConnectionOnline)).Inc()
		return nil
	}

	// Instance id changed: the terminal's database was likely restored.
	// Record the NEW instance id so later heartbeats compare against it.
	log.WithFields(map[string]any{"previous_instance_id": prior.InstanceID}).Warn("Terminal instance id changed, venue needs reconciliation")

	status := &models.PosConnectionStatus{
		VenueID:         event.VenueID,
		Status:          models.ConnectionNeedsReconciliation,
		InstanceID:      event.InstanceID,
		ProducerVersion: event.ProducerVersion,
		LastHeartbeatAt: now,
		CreatedAt:       prior.CreatedAt,
		UpdatedAt:       now,
	}
	if err := m.statuses.Upsert(ctx, status); err != nil {
		return err
	}
	if err := m.venues.UpdatePosConnectivity(ctx, event.VenueID, models.VenuePosError); err != nil {
		return err
	}

	alert := models.ReconciliationAlert{
		VenueID:            event.VenueID,
		VenueName:          ven.Name,
		PreviousInstanceID: prior.InstanceID,
		NewInstanceID:      event.InstanceID,
		ProducerVersion:    event.ProducerVersion,
		DetectedAt:         now,
		Message:            "terminal instance id changed; financial data around the restore point needs manual reconciliation",
	}
	if err := m.alerts.EmitReconciliationAlert(ctx, alert); err != nil {
		// The state transition is already durable; a failed alert publish
		// must not dead-letter the heartbeat.
		log.WithError(err).Error("Failed to publish reconciliation alert")
	}

	metrics.HeartbeatDiscontinuities.Inc()
	metrics.HeartbeatsProcessed.WithLabelValues(string(models.ConnectionNeedsReconciliation)).Inc()
	return nil
}
