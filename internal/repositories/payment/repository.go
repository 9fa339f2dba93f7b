package payment

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

// Repository handles payment persistence. Payments are created exactly once
// per settled order; the reconciler checks CountByOrder inside the order
// transaction before inserting.
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

// CountByOrder returns the number of payments recorded for an order.
func (r *Repository) CountByOrder(ctx context.Context, orderID string) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "payment.Repository.CountByOrder")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From("payments")
	sb.Where(sb.Equal("order_id", orderID))

	query, args := sb.Build()
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("order_id", orderID).Error("Failed to count payments for order")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count payments")
	}
	return count, nil
}

// Create inserts a payment row.
func (r *Repository) Create(ctx context.Context, payment *models.Payment) error {
	ctx, span := tracing.StartSpan(ctx, "payment.Repository.Create")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("payments")
	sb.Cols("id", "order_id", "venue_id", "amount", "tip_amount", "method", "method_ref", "fee_amount", "net_amount", "external_ref", "created_at")
	sb.Values(payment.ID, payment.OrderID, payment.VenueID, payment.Amount, payment.TipAmount, string(payment.Method), payment.MethodRef, payment.FeeAmount, payment.NetAmount, payment.ExternalRef, payment.CreatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"order_id": payment.OrderID, "method": payment.Method}).Error("Failed to create payment")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create payment")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"payment_id": payment.ID, "order_id": payment.OrderID, "amount": payment.Amount}).Info("Created payment")
	return nil
}

// CreateAllocation inserts the allocation record linking a payment to the
// order balance it settles.
func (r *Repository) CreateAllocation(ctx context.Context, allocation *models.PaymentAllocation) error {
	ctx, span := tracing.StartSpan(ctx, "payment.Repository.CreateAllocation")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("payment_allocations")
	sb.Cols("id", "payment_id", "order_id", "amount", "created_at")
	sb.Values(allocation.ID, allocation.PaymentID, allocation.OrderID, allocation.Amount, allocation.CreatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"payment_id": allocation.PaymentID, "order_id": allocation.OrderID}).Error("Failed to create payment allocation")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create payment allocation")
	}
	return nil
}
