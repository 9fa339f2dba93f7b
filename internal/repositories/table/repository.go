package table

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

// Repository handles table persistence. Tables are created lazily when a
// terminal first references them.
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

// GetByNumber retrieves a table by (venue, display number). Returns nil when absent.
func (r *Repository) GetByNumber(ctx context.Context, venueID, number string) (*models.Table, error) {
	ctx, span := tracing.StartSpan(ctx, "table.Repository.GetByNumber")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "venue_id", "number", "capacity", "area_id", "origin", "created_at", "updated_at")
	sb.From("tables")
	sb.Where(
		sb.Equal("venue_id", venueID),
		sb.Equal("number", number),
	)
	sb.Limit(1)

	query, args := sb.Build()
	var table models.Table
	if err := r.db.GetContext(ctx, &table, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"venue_id": venueID, "number": number}).Error("Failed to get table by number")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get table")
	}
	return &table, nil
}

// Create inserts a table row.
func (r *Repository) Create(ctx context.Context, table *models.Table) error {
	ctx, span := tracing.StartSpan(ctx, "table.Repository.Create")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("tables")
	sb.Cols("id", "venue_id", "number", "capacity", "area_id", "origin", "created_at", "updated_at")
	sb.Values(table.ID, table.VenueID, table.Number, table.Capacity, table.AreaID, table.Origin, table.CreatedAt, table.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"venue_id": table.VenueID, "number": table.Number}).Error("Failed to create table")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create table")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"table_id": table.ID, "venue_id": table.VenueID, "number": table.Number}).Info("Created table")
	return nil
}
