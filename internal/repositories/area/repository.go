package area

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

// Repository handles floor area persistence.
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

// GetByExternalID retrieves an area by (venue, external id). Returns nil when absent.
func (r *Repository) GetByExternalID(ctx context.Context, venueID, externalID string) (*models.Area, error) {
	ctx, span := tracing.StartSpan(ctx, "area.Repository.GetByExternalID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "venue_id", "external_id", "name", "origin", "created_at", "updated_at")
	sb.From("areas")
	sb.Where(
		sb.Equal("venue_id", venueID),
		sb.Equal("external_id", externalID),
	)
	sb.Limit(1)

	query, args := sb.Build()
	var area models.Area
	if err := r.db.GetContext(ctx, &area, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"venue_id": venueID, "external_id": externalID}).Error("Failed to get area by external id")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get area")
	}
	return &area, nil
}

// Create inserts an area row.
func (r *Repository) Create(ctx context.Context, area *models.Area) error {
	ctx, span := tracing.StartSpan(ctx, "area.Repository.Create")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("areas")
	sb.Cols("id", "venue_id", "external_id", "name", "origin", "created_at", "updated_at")
	sb.Values(area.ID, area.VenueID, area.ExternalID, area.Name, area.Origin, area.CreatedAt, area.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"venue_id": area.VenueID, "external_id": area.ExternalID}).Error("Failed to create area")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create area")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"area_id": area.ID, "venue_id": area.VenueID}).Info("Created area")
	return nil
}

// UpdateName updates an area's display name.
func (r *Repository) UpdateName(ctx context.Context, areaID, name string) error {
	ctx, span := tracing.StartSpan(ctx, "area.Repository.UpdateName")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("areas")
	sb.Set(
		sb.Assign("name", name),
		sb.Assign("updated_at", time.Now().UTC()),
	)
	sb.Where(sb.Equal("id", areaID))

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("area_id", areaID).Error("Failed to update area name")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update area")
	}
	return nil
}
