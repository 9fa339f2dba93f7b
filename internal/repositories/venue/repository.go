package venue

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/avoqado/possync/pkg/database"
	"github.com/avoqado/possync/pkg/models"
	"github.com/avoqado/possync/pkg/tracing"
)

// Repository handles venue reads and connectivity updates. Venues are
// provisioned by the portal; this service never creates them.
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

// Get retrieves a venue by id. Returns nil when the venue does not exist so
// callers can treat absence as a configuration error rather than a failure.
func (r *Repository) Get(ctx context.Context, id string) (*models.Venue, error) {
	ctx, span := tracing.StartSpan(ctx, "venue.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "organization_id", "name", "pos_vendor", "payment_fee_rate", "pos_connectivity", "created_at", "updated_at")
	sb.From("venues")
	sb.Where(sb.Equal("id", id))
	sb.Limit(1)

	query, args := sb.Build()
	var venue models.Venue
	if err := r.db.GetContext(ctx, &venue, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithField("venue_id", id).Error("Failed to get venue")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get venue")
	}
	return &venue, nil
}

// UpdatePosConnectivity sets the venue's POS connectivity flag.
func (r *Repository) UpdatePosConnectivity(ctx context.Context, venueID string, connectivity models.VenuePosConnectivity) error {
	ctx, span := tracing.StartSpan(ctx, "venue.Repository.UpdatePosConnectivity")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("venues")
	sb.Set(
		sb.Assign("pos_connectivity", string(connectivity)),
		sb.Assign("updated_at", time.Now().UTC()),
	)
	sb.Where(sb.Equal("id", venueID))

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"venue_id": venueID, "connectivity": connectivity}).Error("Failed to update venue POS connectivity")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update venue connectivity")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "venue %s not found", venueID)
	}
	return nil
}

// ListConnectionStatuses returns per-venue connection health for the
// operational dashboard.
func (r *Repository) ListConnectionStatuses(ctx context.Context) ([]models.VenueConnectionListing, error) {
	ctx, span := tracing.StartSpan(ctx, "venue.Repository.ListConnectionStatuses")
	defer span.End()

	query := `
		SELECT v.id AS venue_id, v.name, v.pos_vendor, v.pos_connectivity,
		       s.status, s.instance_id, s.producer_version, s.last_heartbeat_at
		FROM venues v
		LEFT JOIN pos_connection_status s ON s.venue_id = v.id
		ORDER BY v.name
	`

	var listings []models.VenueConnectionListing
	if err := r.db.SelectContext(ctx, &listings, query); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list venue connection statuses")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list venue connection statuses")
	}
	return listings, nil
}
