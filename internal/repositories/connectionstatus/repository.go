package connectionstatus

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/avoqado/possync/pkg/database"
	"github.com/avoqado/possync/pkg/models"
	"github.com/avoqado/possync/pkg/tracing"
)

// Repository handles per-venue terminal connection status. The heartbeat
// monitor is the sole writer.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Get retrieves the connection status for a venue. Returns nil when no
// heartbeat has ever been recorded.
func (r *Repository) Get(ctx context.Context, venueID string) (*models.PosConnectionStatus, error) {
	ctx, span := tracing.StartSpan(ctx, "connectionstatus.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("venue_id", "status", "instance_id", "producer_version", "last_heartbeat_at", "created_at", "updated_at")
	sb.From("pos_connection_status")
	sb.Where(sb.Equal("venue_id", venueID))
	sb.Limit(1)

	query, args := sb.Build()
	var status models.PosConnectionStatus
	if err := r.db.GetContext(ctx, &status, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithField("venue_id", venueID).Error("Failed to get connection status")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get connection status")
	}
	return &status, nil
}

// Upsert stores the latest heartbeat observation for a venue, keyed by venue id.
func (r *Repository) Upsert(ctx context.Context, status *models.PosConnectionStatus) error {
	ctx, span := tracing.StartSpan(ctx, "connectionstatus.Repository.Upsert")
	defer span.End()

	query := `
		INSERT INTO pos_connection_status (
			venue_id, status, instance_id, producer_version, last_heartbeat_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (venue_id)
		DO UPDATE SET
			status = EXCLUDED.status,
			instance_id = EXCLUDED.instance_id,
			producer_version = EXCLUDED.producer_version,
			last_heartbeat_at = EXCLUDED.last_heartbeat_at,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		status.VenueID, string(status.Status), status.InstanceID, status.ProducerVersion,
		status.LastHeartbeatAt, status.CreatedAt, status.UpdatedAt,
	)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"venue_id": status.VenueID, "status": status.Status}).Error("Failed to upsert connection status")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert connection status")
	}
	return nil
}
