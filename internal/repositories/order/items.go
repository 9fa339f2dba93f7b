package order

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/huandu/go-sqlbuilder"

	"github.com/avoqado/possync/pkg/models"
	"github.com/avoqado/possync/pkg/tracing"
)

// UpsertItem creates or updates a line item keyed by (order_id, external_id).
func (r *Repository) UpsertItem(ctx context.Context, item *models.OrderItem) error {
	ctx, span := tracing.StartSpan(ctx, "order.Repository.UpsertItem")
	defer span.End()

	query := `
		INSERT INTO order_items (
			id, order_id, external_id, product_external_id, product_name,
			quantity, unit_price, discount_amount, tax_amount, total,
			notes, sequence, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (order_id, external_id)
		DO UPDATE SET
			product_external_id = EXCLUDED.product_external_id,
			product_name = EXCLUDED.product_name,
			quantity = EXCLUDED.quantity,
			unit_price = EXCLUDED.unit_price,
			discount_amount = EXCLUDED.discount_amount,
			tax_amount = EXCLUDED.tax_amount,
			total = EXCLUDED.total,
			notes = EXCLUDED.notes,
			sequence = EXCLUDED.sequence,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		item.ID, item.OrderID, item.ExternalID, item.ProductExternalID, item.ProductName,
		item.Quantity, item.UnitPrice, item.DiscountAmount, item.TaxAmount, item.Total,
		item.Notes, item.Sequence, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"order_id": item.OrderID, "external_id": item.ExternalID}).Error("Failed to upsert order item")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert order item")
	}
	return nil
}

// DeleteItem hard-removes a line item. A missing item is success, not an
// error; delete events can be redelivered after the row is already gone.
func (r *Repository) DeleteItem(ctx context.Context, orderID, externalID string) error {
	ctx, span := tracing.StartSpan(ctx, "order.Repository.DeleteItem")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	sb.DeleteFrom("order_items")
	sb.Where(
		sb.Equal("order_id", orderID),
		sb.Equal("external_id", externalID),
	)

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"order_id": orderID, "external_id": externalID}).Error("Failed to delete order item")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete order item")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		r.logger.WithContext(ctx).WithFields(map[string]any{"order_id": orderID, "external_id": externalID}).Debug("Order item already absent on delete")
	}
	return nil
}
