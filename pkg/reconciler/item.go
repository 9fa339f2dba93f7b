package reconciler

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/google/uuid"

	"github.com/avoqado/possync/pkg/models"
	"github.com/avoqado/possync/pkg/tracing"
)

// ReconcileItem applies one order-item event. Item events arrive outside the
// order transaction and reference the parent by external id; a parent that was
// never synchronized is a missing-parent failure that dead-letters the
// message. Deleting an item that is already absent is success.
func (s *Reconciler) ReconcileItem(ctx context.Context, event *models.OrderItemEvent) error {
	ctx, span := tracing.StartSpan(ctx, "reconciler.Reconciler.ReconcileItem")
	defer span.End()

	parent, err := s.orders.GetByExternalID(ctx, event.VenueID, event.ParentOrderExternalID)
	if err != nil {
		return err
	}
	if parent == nil {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "order %s not synchronized for item %s", event.ParentOrderExternalID, event.ExternalID)
	}

	if event.Deleted {
		return s.orders.DeleteItem(ctx, parent.ID, event.ExternalID)
	}

	now := time.Now().UTC()
	return s.orders.UpsertItem(ctx, &models.OrderItem{
		ID:                uuid.New().String(),
		OrderID:           parent.ID,
		ExternalID:        event.ExternalID,
		ProductExternalID: event.ProductExternalID,
		ProductName:       event.ProductName,
		Quantity:          event.Quantity,
		UnitPrice:         event.UnitPrice,
		DiscountAmount:    event.DiscountAmount,
		TaxAmount:         event.TaxAmount,
		Total:             event.Total,
		Notes:             event.Notes,
		Sequence:          event.Sequence,
		CreatedAt:         now,
		UpdatedAt:         now,
	})
}
