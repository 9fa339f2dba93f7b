package resolver

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/avoqado/possync/pkg/models"
	"github.com/avoqado/possync/pkg/tracing"
)

// ShiftStore is the slice of the shift repository the resolver needs.
type ShiftStore interface {
	GetOpenByExternalID(ctx context.Context, venueID, externalID string) (*models.Shift, error)
	Create(ctx context.Context, shift *models.Shift) error
	Update(ctx context.Context, patch *models.ShiftPatch) error
	ComputeTotals(ctx context.Context, shiftID string) (*models.ShiftTotals, error)
	Close(ctx context.Context, shiftID string, endTime time.Time, endingCash float64, totals models.ShiftTotals) error
}

// ShiftResolver finds or creates the open shift for a terminal external id and
// owns the shift lifecycle (update, close). Terminals reuse external ids after
// close, so lookups only consider OPEN shifts and close totals come from the
// shift's own linked orders.
type ShiftResolver struct {
	store  ShiftStore
	staff  *StaffResolver
	logger ectologger.Logger
}

func NewShiftResolver(store ShiftStore, staff *StaffResolver, logger ectologger.Logger) *ShiftResolver {
	return &ShiftResolver{
		store:  store,
		staff:  staff,
		logger: logger,
	}
}

// Resolve returns the open shift's id for the reference, creating a new OPEN
// shift on first sight. Returns nil when ref is nil.
func (r *ShiftResolver) Resolve(ctx context.Context, venueID, origin string, ref *models.ShiftEvent) (*string, error) {
	if ref == nil || ref.ExternalID == "" {
		return nil, nil
	}

	ctx, span := tracing.StartSpan(ctx, "resolver.ShiftResolver.Resolve")
	defer span.End()

	existing, err := r.store.GetOpenByExternalID(ctx, venueID, ref.ExternalID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &existing.ID, nil
	}

	staffID, err := r.staff.Resolve(ctx, venueID, ref.StaffRef)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	start := now
	if ref.StartTime != nil {
		start = *ref.StartTime
	}
	var startingCash float64
	if ref.StartingCash != nil {
		startingCash = *ref.StartingCash
	}
	shift := &models.Shift{
		ID:           uuid.New().String(),
		VenueID:      venueID,
		StaffID:      staffID,
		ExternalID:   ref.ExternalID,
		Origin:       origin,
		Status:       models.ShiftStatusOpen,
		StartTime:    start,
		StartingCash: startingCash,
		RawData:      ref.RawVendorFields,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := r.store.Create(ctx, shift); err != nil {
		return nil, err
	}
	return &shift.ID, nil
}

// Apply handles a shift created/updated event: find-or-create, then refresh
// the fields the payload actually carries. Absent fields keep their stored
// value so a sparse update cannot blank out staff or starting cash.
func (r *ShiftResolver) Apply(ctx context.Context, venueID, origin string, event *models.ShiftEvent) error {
	ctx, span := tracing.StartSpan(ctx, "resolver.ShiftResolver.Apply")
	defer span.End()

	shiftID, err := r.Resolve(ctx, venueID, origin, event)
	if err != nil || shiftID == nil {
		return err
	}

	staffID, err := r.staff.Resolve(ctx, venueID, event.StaffRef)
	if err != nil {
		return err
	}

	patch := &models.ShiftPatch{
		ID:           *shiftID,
		StaffID:      staffID,
		StartingCash: event.StartingCash,
		RawData:      event.RawVendorFields,
	}
	return r.store.Update(ctx, patch)
}

// Close closes the open shift for the external id. Totals are aggregated from
// the orders linked to this shift row only; a close for a shift that was never
// opened (or already closed) is a no-op.
func (r *ShiftResolver) Close(ctx context.Context, venueID string, event *models.ShiftEvent) error {
	ctx, span := tracing.StartSpan(ctx, "resolver.ShiftResolver.Close")
	defer span.End()

	existing, err := r.store.GetOpenByExternalID(ctx, venueID, event.ExternalID)
	if err != nil {
		return err
	}
	if existing == nil {
		r.logger.WithContext(ctx).WithFields(map[string]any{"venue_id": venueID, "external_id": event.ExternalID}).Debug("Shift close for unknown or already closed shift")
		return nil
	}

	totals, err := r.store.ComputeTotals(ctx, existing.ID)
	if err != nil {
		return err
	}

	endTime := time.Now().UTC()
	if event.EndTime != nil {
		endTime = *event.EndTime
	}
	if err := r.store.Close(ctx, existing.ID, endTime, event.EndingCash, *totals); err != nil {
		return err
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"shift_id": existing.ID, "venue_id": venueID, "total_sales": totals.TotalSales, "total_orders": totals.TotalOrders}).Info("Closed shift")
	return nil
}
