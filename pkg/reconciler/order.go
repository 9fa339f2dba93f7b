package reconciler

import (
	"context"
	"database/sql"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/avoqado/possync/internal/repositories/order"
	"github.com/avoqado/possync/pkg/database"
	"github.com/avoqado/possync/pkg/metrics"
	"github.com/avoqado/possync/pkg/models"
	"github.com/avoqado/possync/pkg/resolver"
	"github.com/avoqado/possync/pkg/tracing"
)

// VenueStore looks up a venue by id, nil when absent.
type VenueStore interface {
	Get(ctx context.Context, id string) (*models.Venue, error)
}

// OrderStore is the slice of the order repository the reconciler needs.
type OrderStore interface {
	GetByExternalID(ctx context.Context, venueID, externalID string) (*models.Order, error)
	RenameExternalID(ctx context.Context, venueID, orderID, newExternalID string) error
	Upsert(ctx context.Context, o *models.Order) (*order.UpsertResult, error)
	MarkDeleted(ctx context.Context, venueID, externalID string) error
	UpsertItem(ctx context.Context, item *models.OrderItem) error
	DeleteItem(ctx context.Context, orderID, externalID string) error
}

// PaymentStore is the slice of the payment repository the reconciler needs.
type PaymentStore interface {
	CountByOrder(ctx context.Context, orderID string) (int, error)
	Create(ctx context.Context, payment *models.Payment) error
	CreateAllocation(ctx context.Context, allocation *models.PaymentAllocation) error
}

// Reconciler merges incoming order events into the central store. It is the
// sole writer of orders, order items and payments during synchronization.
// Every order event is processed inside one transaction: parent resolution,
// orphan rename, upsert and settlement all commit or roll back together.
type Reconciler struct {
	db       database.DB
	venues   VenueStore
	orders   OrderStore
	payments PaymentStore
	staff    *resolver.StaffResolver
	tables   *resolver.TableResolver
	shifts   *resolver.ShiftResolver
	logger   ectologger.Logger
}

func NewReconciler(
	db database.DB,
	venues VenueStore,
	orders OrderStore,
	payments PaymentStore,
	staff *resolver.StaffResolver,
	tables *resolver.TableResolver,
	shifts *resolver.ShiftResolver,
	logger ectologger.Logger,
) *Reconciler {
	return &Reconciler{
		db:       db,
		venues:   venues,
		orders:   orders,
		payments: payments,
		staff:    staff,
		tables:   tables,
		shifts:   shifts,
		logger:   logger,
	}
}

// ReconcileOrder applies one order event. Safe to replay: the upsert is keyed
// by natural key and settlement creation is guarded by the payment count.
func (s *Reconciler) ReconcileOrder(ctx context.Context, origin string, event *models.OrderEvent) error {
	ctx, span := tracing.StartSpan(ctx, "reconciler.Reconciler.ReconcileOrder")
	defer span.End()

	started := time.Now()
	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"venue_id":    event.VenueID,
		"external_id": event.ExternalID,
	})

	ven, err := s.venues.Get(ctx, event.VenueID)
	if err != nil {
		return err
	}
	if ven == nil {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "venue %s not found", event.VenueID)
	}

	txCtx, tx, err := s.db.GetTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	staffID, err := s.staff.Resolve(txCtx, event.VenueID, event.StaffRef)
	if err != nil {
		return err
	}
	tableID, err := s.tables.Resolve(txCtx, event.VenueID, origin, event.TableRef)
	if err != nil {
		return err
	}
	shiftID, err := s.shifts.Resolve(txCtx, event.VenueID, origin, event.ShiftRef)
	if err != nil {
		return err
	}

	resolution, err := ResolveOrderIdentity(txCtx, event.VenueID, event.ExternalID, s.orders.GetByExternalID)
	if err != nil {
		return err
	}
	if resolution.Action == ActionRenameThenUpdate {
		if err := s.orders.RenameExternalID(txCtx, event.VenueID, resolution.TargetOrderID, event.ExternalID); err != nil {
			return err
		}
		metrics.OrphanRenames.Inc()
		log.WithField("order_id", resolution.TargetOrderID).Info("Resolved orphan order onto real shift identity")
	}

	now := time.Now().UTC()
	placedAt := event.CreatedAt
	if placedAt.IsZero() {
		placedAt = now
	}
	upserted, err := s.orders.Upsert(txCtx, &models.Order{
		ID:             uuid.New().String(),
		VenueID:        event.VenueID,
		ShiftID:        shiftID,
		TableID:        tableID,
		StaffID:        staffID,
		ExternalID:     event.ExternalID,
		OrderNumber:    event.OrderNumber,
		Origin:         origin,
		Status:         parseOrderStatus(event.Status),
		PaymentStatus:  parsePaymentStatus(event.PaymentStatus),
		KitchenStatus:  models.KitchenStatusPending,
		OrderType:      models.OrderTypeDineIn,
		Subtotal:       event.Subtotal,
		TaxAmount:      event.TaxAmount,
		DiscountAmount: event.DiscountAmount,
		TipAmount:      event.TipAmount,
		Total:          event.Total,
		RawData:        event.RawVendorPayload,
		PlacedAt:       placedAt,
		CompletedAt:    event.CompletedAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return err
	}

	if parsePaymentStatus(event.PaymentStatus) == models.OrderPaymentPaid && len(event.SettlementLines) > 0 {
		if err := s.settleOrder(txCtx, ven, upserted.Order, event); err != nil {
			return err
		}
	}

	if err := tx.Commit(txCtx); err != nil {
		return err
	}

	metrics.ReconcileDuration.Observe(time.Since(started).Seconds())
	return nil
}

// settleOrder creates one payment per settlement line, exactly once per order.
// A non-zero payment count means a duplicate delivery; skipping it is the
// documented absorption path, not an error.
func (s *Reconciler) settleOrder(ctx context.Context, ven *models.Venue, ord *models.Order, event *models.OrderEvent) error {
	ctx, span := tracing.StartSpan(ctx, "reconciler.Reconciler.settleOrder")
	defer span.End()

	count, err := s.payments.CountByOrder(ctx, ord.ID)
	if err != nil {
		return err
	}
	if count > 0 {
		s.logger.WithContext(ctx).WithFields(map[string]any{"order_id": ord.ID, "existing_payments": count}).Debug("Settlement already recorded, skipping duplicate delivery")
		return nil
	}

	now := time.Now().UTC()
	for _, line := range event.SettlementLines {
		method := MapPaymentMethod(line.MethodID, event.PaymentMethodCatalog)
		fee := roundCents(line.Amount * ven.PaymentFeeRate)

		p := &models.Payment{
			ID:          uuid.New().String(),
			OrderID:     ord.ID,
			VenueID:     ord.VenueID,
			Amount:      line.Amount,
			TipAmount:   line.TipAmount,
			Method:      method,
			MethodRef:   line.MethodID,
			FeeAmount:   fee,
			NetAmount:   roundCents(line.Amount - fee),
			ExternalRef: ord.ExternalID,
			CreatedAt:   now,
		}
		if err := s.payments.Create(ctx, p); err != nil {
			return err
		}

		allocation := &models.PaymentAllocation{
			ID:        uuid.New().String(),
			PaymentID: p.ID,
			OrderID:   ord.ID,
			Amount:    line.Amount,
			CreatedAt: now,
		}
		if err := s.payments.CreateAllocation(ctx, allocation); err != nil {
			return err
		}
		metrics.PaymentsCreated.Inc()
	}
	return nil
}

// MarkOrderDeleted transitions an order to DELETED. Unknown orders are tolerated.
func (s *Reconciler) MarkOrderDeleted(ctx context.Context, event *models.OrderEvent) error {
	ctx, span := tracing.StartSpan(ctx, "reconciler.Reconciler.MarkOrderDeleted")
	defer span.End()

	return s.orders.MarkDeleted(ctx, event.VenueID, event.ExternalID)
}

func parseOrderStatus(raw string) models.OrderStatus {
	status := models.OrderStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !status.IsValid() {
		return models.OrderStatusPending
	}
	return status
}

func parsePaymentStatus(raw models.OrderPaymentStatus) models.OrderPaymentStatus {
	status := models.OrderPaymentStatus(strings.ToUpper(strings.TrimSpace(string(raw))))
	if !status.IsValid() {
		return models.OrderPaymentPending
	}
	return status
}

func roundCents(amount float64) float64 {
	return math.Round(amount*100) / 100
}
