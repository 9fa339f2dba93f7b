package order

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

// Repository handles order and order item persistence. The reconciler is the
// sole writer during synchronization; every mutating method participates in
// the caller's transaction when one is open on the context.
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

// GetByExternalID retrieves the non-deleted order for (venue, external id).
// Returns nil when absent. At most one non-deleted order exists per natural key.
func (r *Repository) GetByExternalID(ctx context.Context, venueID, externalID string) (*models.Order, error) {
	ctx, span := tracing.StartSpan(ctx, "order.Repository.GetByExternalID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "venue_id", "shift_id", "table_id", "staff_id", "external_id", "order_number", "origin", "status", "payment_status", "kitchen_status", "order_type", "subtotal", "tax_amount", "discount_amount", "tip_amount", "total", "raw_data", "placed_at", "completed_at", "created_at", "updated_at")
	sb.From("orders")
	sb.Where(
		sb.Equal("venue_id", venueID),
		sb.Equal("external_id", externalID),
		sb.NotEqual("status", string(models.OrderStatusDeleted)),
	)
	sb.Limit(1)

	query, args := sb.Build()
	var order models.Order
	if err := r.db.GetContext(ctx, &order, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"venue_id": venueID, "external_id": externalID}).Error("Failed to get order by external id")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get order")
	}
	return &order, nil
}

// RenameExternalID rewrites an order's external id in place. Used when an
// orphan order created under the placeholder shift segment is re-delivered
// under its real identity. Must run in the same transaction as the upsert
// that follows it.
func (r *Repository) RenameExternalID(ctx context.Context, venueID, orderID, newExternalID string) error {
	ctx, span := tracing.StartSpan(ctx, "order.Repository.RenameExternalID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("orders")
	sb.Set(
		sb.Assign("external_id", newExternalID),
		sb.Assign("updated_at", time.Now().UTC()),
	)
	sb.Where(
		sb.Equal("id", orderID),
		sb.Equal("venue_id", venueID),
		sb.NotEqual("status", string(models.OrderStatusDeleted)),
	)

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"order_id": orderID, "venue_id": venueID, "new_external_id": newExternalID}).Error("Failed to rename order external id")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to rename order")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "order %s not found for rename", orderID)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"order_id": orderID, "new_external_id": newExternalID}).Info("Renamed orphan order external id")
	return nil
}

// UpsertResult reports whether the upsert inserted a new row.
type UpsertResult struct {
	Order *models.Order
	IsNew bool
}

// Upsert creates or updates the order row keyed by (venue_id, external_id)
// over non-deleted rows. A single atomic INSERT...ON CONFLICT keeps a
// concurrent duplicate delivery from producing two rows.
func (r *Repository) Upsert(ctx context.Context, order *models.Order) (*UpsertResult, error) {
	ctx, span := tracing.StartSpan(ctx, "order.Repository.Upsert")
	defer span.End()

	query := `
		INSERT INTO orders (
			id, venue_id, shift_id, table_id, staff_id, external_id, order_number,
			origin, status, payment_status, kitchen_status, order_type,
			subtotal, tax_amount, discount_amount, tip_amount, total,
			raw_data, placed_at, completed_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
		ON CONFLICT (venue_id, external_id) WHERE status <> 'DELETED'
		DO UPDATE SET
			shift_id = COALESCE(EXCLUDED.shift_id, orders.shift_id),
			table_id = COALESCE(EXCLUDED.table_id, orders.table_id),
			staff_id = COALESCE(EXCLUDED.staff_id, orders.staff_id),
			order_number = EXCLUDED.order_number,
			status = EXCLUDED.status,
			payment_status = EXCLUDED.payment_status,
			subtotal = EXCLUDED.subtotal,
			tax_amount = EXCLUDED.tax_amount,
			discount_amount = EXCLUDED.discount_amount,
			tip_amount = EXCLUDED.tip_amount,
			total = EXCLUDED.total,
			raw_data = EXCLUDED.raw_data,
			completed_at = COALESCE(EXCLUDED.completed_at, orders.completed_at),
			updated_at = EXCLUDED.updated_at
		RETURNING
			id, venue_id, shift_id, table_id, staff_id, external_id, order_number,
			origin, status, payment_status, kitchen_status, order_type,
			subtotal, tax_amount, discount_amount, tip_amount, total,
			raw_data, placed_at, completed_at, created_at, updated_at,
			(xmax = 0) AS inserted
	`

	var result struct {
		models.Order
		Inserted bool `db:"inserted"`
	}

	err := r.db.GetContext(ctx, &result, query,
		order.ID, order.VenueID, order.ShiftID, order.TableID, order.StaffID, order.ExternalID, order.OrderNumber,
		order.Origin, string(order.Status), string(order.PaymentStatus), string(order.KitchenStatus), string(order.OrderType),
		order.Subtotal, order.TaxAmount, order.DiscountAmount, order.TipAmount, order.Total,
		order.RawData, order.PlacedAt, order.CompletedAt, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"venue_id": order.VenueID, "external_id": order.ExternalID}).Error("Failed to upsert order")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert order")
	}

	if result.Inserted {
		r.logger.WithContext(ctx).WithFields(map[string]any{"order_id": result.Order.ID, "external_id": result.Order.ExternalID}).Info("Created order")
	} else {
		r.logger.WithContext(ctx).WithFields(map[string]any{"order_id": result.Order.ID, "external_id": result.Order.ExternalID}).Debug("Updated order")
	}
	return &UpsertResult{Order: &result.Order, IsNew: result.Inserted}, nil
}

// MarkDeleted transitions the order to DELETED, preserving the row for audit.
// A missing order is not an error; the delete may arrive after the order was
// never synchronized or was already deleted.
func (r *Repository) MarkDeleted(ctx context.Context, venueID, externalID string) error {
	ctx, span := tracing.StartSpan(ctx, "order.Repository.MarkDeleted")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("orders")
	sb.Set(
		sb.Assign("status", string(models.OrderStatusDeleted)),
		sb.Assign("updated_at", time.Now().UTC()),
	)
	sb.Where(
		sb.Equal("venue_id", venueID),
		sb.Equal("external_id", externalID),
		sb.NotEqual("status", string(models.OrderStatusDeleted)),
	)

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"venue_id": venueID, "external_id": externalID}).Error("Failed to mark order deleted")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete order")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		r.logger.WithContext(ctx).WithFields(map[string]any{"venue_id": venueID, "external_id": externalID}).Debug("Order delete for unknown or already deleted order")
		return nil
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"venue_id": venueID, "external_id": externalID}).Info("Marked order deleted")
	return nil
}
