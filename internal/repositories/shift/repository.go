package shift

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

// Repository handles shift persistence. Terminals reuse external ids after a
// shift closes, so the open-shift lookup is scoped to status OPEN and close
// totals are computed from orders linked by the shift row id, never by
// external id.
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

// GetOpenByExternalID retrieves the OPEN shift for (venue, external id).
// Returns nil when no open shift exists.
func (r *Repository) GetOpenByExternalID(ctx context.Context, venueID, externalID string) (*models.Shift, error) {
	ctx, span := tracing.StartSpan(ctx, "shift.Repository.GetOpenByExternalID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "venue_id", "staff_id", "external_id", "origin", "status", "start_time", "end_time", "starting_cash", "ending_cash", "total_sales", "total_tips", "total_orders", "raw_data", "created_at", "updated_at")
	sb.From("shifts")
	sb.Where(
		sb.Equal("venue_id", venueID),
		sb.Equal("external_id", externalID),
		sb.Equal("status", string(models.ShiftStatusOpen)),
	)
	sb.Limit(1)

	query, args := sb.Build()
	var shift models.Shift
	if err := r.db.GetContext(ctx, &shift, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"venue_id": venueID, "external_id": externalID}).Error("Failed to get open shift")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get shift")
	}
	return &shift, nil
}

// Get retrieves a shift by row id.
func (r *Repository) Get(ctx context.Context, id string) (*models.Shift, error) {
	ctx, span := tracing.StartSpan(ctx, "shift.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "venue_id", "staff_id", "external_id", "origin", "status", "start_time", "end_time", "starting_cash", "ending_cash", "total_sales", "total_tips", "total_orders", "raw_data", "created_at", "updated_at")
	sb.From("shifts")
	sb.Where(sb.Equal("id", id))
	sb.Limit(1)

	query, args := sb.Build()
	var shift models.Shift
	if err := r.db.GetContext(ctx, &shift, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "shift %s not found", id)
		}
		r.logger.WithContext(ctx).WithError(err).WithField("shift_id", id).Error("Failed to get shift")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get shift")
	}
	return &shift, nil
}

// Create inserts a shift row.
func (r *Repository) Create(ctx context.Context, shift *models.Shift) error {
	ctx, span := tracing.StartSpan(ctx, "shift.Repository.Create")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("shifts")
	sb.Cols("id", "venue_id", "staff_id", "external_id", "origin", "status", "start_time", "end_time", "starting_cash", "ending_cash", "total_sales", "total_tips", "total_orders", "raw_data", "created_at", "updated_at")
	sb.Values(shift.ID, shift.VenueID, shift.StaffID, shift.ExternalID, shift.Origin, string(shift.Status), shift.StartTime, shift.EndTime, shift.StartingCash, shift.EndingCash, shift.TotalSales, shift.TotalTips, shift.TotalOrders, shift.RawData, shift.CreatedAt, shift.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"venue_id": shift.VenueID, "external_id": shift.ExternalID}).Error("Failed to create shift")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create shift")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"shift_id": shift.ID, "venue_id": shift.VenueID, "external_id": shift.ExternalID}).Info("Created shift")
	return nil
}

// Update refreshes mutable shift fields from a later event for the same open
// shift. Only the fields the patch carries are written; nil fields keep their
// stored value.
func (r *Repository) Update(ctx context.Context, patch *models.ShiftPatch) error {
	ctx, span := tracing.StartSpan(ctx, "shift.Repository.Update")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("shifts")
	assigns := []string{sb.Assign("updated_at", time.Now().UTC())}
	if patch.StaffID != nil {
		assigns = append(assigns, sb.Assign("staff_id", *patch.StaffID))
	}
	if patch.StartingCash != nil {
		assigns = append(assigns, sb.Assign("starting_cash", *patch.StartingCash))
	}
	if patch.RawData != nil {
		assigns = append(assigns, sb.Assign("raw_data", patch.RawData))
	}
	sb.Set(assigns...)
	sb.Where(sb.Equal("id", patch.ID))

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("shift_id", patch.ID).Error("Failed to update shift")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update shift")
	}
	return nil
}

// ComputeTotals aggregates sales, tips and order count from the orders linked
// to this shift row. Deleted orders are excluded.
func (r *Repository) ComputeTotals(ctx context.Context, shiftID string) (*models.ShiftTotals, error) {
	ctx, span := tracing.StartSpan(ctx, "shift.Repository.ComputeTotals")
	defer span.End()

	query := `
		SELECT COALESCE(SUM(total), 0) AS total_sales,
		       COALESCE(SUM(tip_amount), 0) AS total_tips,
		       COUNT(*) AS total_orders
		FROM orders
		WHERE shift_id = $1
		  AND status <> 'DELETED'
	`

	var totals models.ShiftTotals
	if err := r.db.GetContext(ctx, &totals, query, shiftID); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("shift_id", shiftID).Error("Failed to compute shift totals")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to compute shift totals")
	}
	return &totals, nil
}

// Close transitions the shift to CLOSED with the given end state and totals.
func (r *Repository) Close(ctx context.Context, shiftID string, endTime time.Time, endingCash float64, totals models.ShiftTotals) error {
	ctx, span := tracing.StartSpan(ctx, "shift.Repository.Close")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("shifts")
	sb.Set(
		sb.Assign("status", string(models.ShiftStatusClosed)),
		sb.Assign("end_time", endTime),
		sb.Assign("ending_cash", endingCash),
		sb.Assign("total_sales", totals.TotalSales),
		sb.Assign("total_tips", totals.TotalTips),
		sb.Assign("total_orders", totals.TotalOrders),
		sb.Assign("updated_at", time.Now().UTC()),
	)
	sb.Where(
		sb.Equal("id", shiftID),
		sb.Equal("status", string(models.ShiftStatusOpen)),
	)

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("shift_id", shiftID).Error("Failed to close shift")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to close shift")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		// Already closed by an earlier delivery.
		r.logger.WithContext(ctx).WithField("shift_id", shiftID).Debug("Shift already closed")
	}
	return nil
}
