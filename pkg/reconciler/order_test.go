package reconciler

import (
	"context"
	"database/sql"
	"net/http"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avoqado/possync/internal/repositories/order"
	"github.com/avoqado/possync/pkg/database"
	"github.com/avoqado/possync/pkg/logging"
	"github.com/avoqado/possync/pkg/models"
	"github.com/avoqado/possync/pkg/resolver"
)

type fakeReconcilerDB struct {
	database.DB
	commits int
}

type fakeReconcilerTx struct {
	database.Tx
	db *fakeReconcilerDB
}

func (f *fakeReconcilerDB) GetTx(ctx context.Context, _ *sql.TxOptions) (context.Context, database.Tx, error) {
	return ctx, &fakeReconcilerTx{db: f}, nil
}

func (t *fakeReconcilerTx) Commit(_ context.Context) error {
	t.db.commits++
	return nil
}

func (t *fakeReconcilerTx) Rollback(_ context.Context) error {
	return nil
}

type fakeReconcilerVenues struct {
	venues map[string]*models.Venue
}

func (f *fakeReconcilerVenues) Get(_ context.Context, id string) (*models.Venue, error) {
	return f.venues[id], nil
}

type fakeOrderStore struct {
	byKey   map[string]*models.Order
	upserts int
	renames int
}

func orderStoreKey(venueID, externalID string) string {
	return venueID + "/" + externalID
}

func (f *fakeOrderStore) GetByExternalID(_ context.Context, venueID, externalID string) (*models.Order, error) {
	return f.byKey[orderStoreKey(venueID, externalID)], nil
}

func (f *fakeOrderStore) RenameExternalID(_ context.Context, venueID, orderID, newExternalID string) error {
	for key, ord := range f.byKey {
		if ord.ID == orderID && ord.VenueID == venueID {
			delete(f.byKey, key)
			ord.ExternalID = newExternalID
			f.byKey[orderStoreKey(venueID, newExternalID)] = ord
			f.renames++
			return nil
		}
	}
	return httperror.NewHTTPErrorf(http.StatusNotFound, "order %s not found for rename", orderID)
}

func (f *fakeOrderStore) Upsert(_ context.Context, o *models.Order) (*order.UpsertResult, error) {
	f.upserts++
	key := orderStoreKey(o.VenueID, o.ExternalID)
	if existing, ok := f.byKey[key]; ok {
		existing.Status = o.Status
		existing.PaymentStatus = o.PaymentStatus
		existing.Total = o.Total
		existing.UpdatedAt = o.UpdatedAt
		return &order.UpsertResult{Order: existing, IsNew: false}, nil
	}
	clone := *o
	f.byKey[key] = &clone
	return &order.UpsertResult{Order: &clone, IsNew: true}, nil
}

func (f *fakeOrderStore) MarkDeleted(_ context.Context, _, _ string) error {
	return nil
}

func (f *fakeOrderStore) UpsertItem(_ context.Context, _ *models.OrderItem) error {
	return nil
}

func (f *fakeOrderStore) DeleteItem(_ context.Context, _, _ string) error {
	return nil
}

type fakePaymentStore struct {
	payments    []*models.Payment
	allocations []*models.PaymentAllocation
}

func (f *fakePaymentStore) CountByOrder(_ context.Context, orderID string) (int, error) {
	count := 0
	for _, p := range f.payments {
		if p.OrderID == orderID {
			count++
		}
	}
	return count, nil
}

func (f *fakePaymentStore) Create(_ context.Context, payment *models.Payment) error {
	f.payments = append(f.payments, payment)
	return nil
}

func (f *fakePaymentStore) CreateAllocation(_ context.Context, allocation *models.PaymentAllocation) error {
	f.allocations = append(f.allocations, allocation)
	return nil
}

// The resolver stores are never reached in these tests; the events carry no
// staff, table or shift references.

type stubStaffStore struct{}

func (stubStaffStore) GetAssignment(_ context.Context, _, _ string) (*models.StaffVenueAssignment, error) {
	return nil, nil
}
func (stubStaffStore) GetByEmail(_ context.Context, _ string) (*models.Staff, error) {
	return nil, nil
}
func (stubStaffStore) CreateStaff(_ context.Context, _ *models.Staff) error { return nil }
func (stubStaffStore) CreateAssignment(_ context.Context, _ *models.StaffVenueAssignment) error {
	return nil
}
func (stubStaffStore) UpdateName(_ context.Context, _, _, _ string) error       { return nil }
func (stubStaffStore) UpdateAssignmentPIN(_ context.Context, _, _ string) error { return nil }

type stubTableStore struct{}

func (stubTableStore) GetByNumber(_ context.Context, _, _ string) (*models.Table, error) {
	return nil, nil
}
func (stubTableStore) Create(_ context.Context, _ *models.Table) error { return nil }

type stubAreaStore struct{}

func (stubAreaStore) GetByExternalID(_ context.Context, _, _ string) (*models.Area, error) {
	return nil, nil
}
func (stubAreaStore) Create(_ context.Context, _ *models.Area) error  { return nil }
func (stubAreaStore) UpdateName(_ context.Context, _, _ string) error { return nil }

type stubShiftStore struct{}

func (stubShiftStore) GetOpenByExternalID(_ context.Context, _, _ string) (*models.Shift, error) {
	return nil, nil
}
func (stubShiftStore) Create(_ context.Context, _ *models.Shift) error      { return nil }
func (stubShiftStore) Update(_ context.Context, _ *models.ShiftPatch) error { return nil }
func (stubShiftStore) ComputeTotals(_ context.Context, _ string) (*models.ShiftTotals, error) {
	return &models.ShiftTotals{}, nil
}
func (stubShiftStore) Close(_ context.Context, _ string, _ time.Time, _ float64, _ models.ShiftTotals) error {
	return nil
}

func newReconcilerForTest(db *fakeReconcilerDB, venues *fakeReconcilerVenues, orders *fakeOrderStore, payments *fakePaymentStore) *Reconciler {
	log := logging.NewNopLogger()
	staff := resolver.NewStaffResolver(stubStaffStore{}, log)
	areas := resolver.NewAreaResolver(stubAreaStore{}, log)
	tables := resolver.NewTableResolver(stubTableStore{}, areas, log)
	shifts := resolver.NewShiftResolver(stubShiftStore{}, staff, log)
	return NewReconciler(db, venues, orders, payments, staff, tables, shifts, log)
}

func paidOrderEvent() *models.OrderEvent {
	return &models.OrderEvent{
		VenueID:       "venue-1",
		ExternalID:    "inst-1:3:42",
		OrderNumber:   "42",
		Status:        "COMPLETED",
		PaymentStatus: "PAID",
		Subtotal:      86.21,
		TaxAmount:     13.79,
		Total:         100,
		SettlementLines: []models.SettlementLine{
			{MethodID: "1", Amount: 100, TipAmount: 10},
		},
		PaymentMethodCatalog: []models.PaymentMethodEntry{
			{MethodID: "1", Category: "cash", Description: "Efectivo"},
		},
	}
}

func TestReconcileOrderReplayCreatesOneSettlement(t *testing.T) {
	db := &fakeReconcilerDB{}
	venues := &fakeReconcilerVenues{venues: map[string]*models.Venue{
		"venue-1": {ID: "venue-1", Name: "La Terraza", PaymentFeeRate: 0.025},
	}}
	orders := &fakeOrderStore{byKey: map[string]*models.Order{}}
	payments := &fakePaymentStore{}
	rec := newReconcilerForTest(db, venues, orders, payments)

	event := paidOrderEvent()
	require.NoError(t, rec.ReconcileOrder(context.Background(), "softrestaurant", event))
	require.NoError(t, rec.ReconcileOrder(context.Background(), "softrestaurant", event))

	assert.Len(t, orders.byKey, 1, "replaying the same event must not create a second order")
	assert.Equal(t, 2, orders.upserts)
	assert.Equal(t, 2, db.commits)

	require.Len(t, payments.payments, 1, "the second delivery must not settle again")
	p := payments.payments[0]
	assert.Equal(t, models.PaymentMethodCash, p.Method)
	assert.Equal(t, 100.0, p.Amount)
	assert.Equal(t, 10.0, p.TipAmount)
	assert.Equal(t, 2.5, p.FeeAmount)
	assert.Equal(t, 97.5, p.NetAmount)
	require.Len(t, payments.allocations, 1)
	assert.Equal(t, p.ID, payments.allocations[0].PaymentID)
}

func TestReconcileOrderRenamesOrphanBeforeUpsert(t *testing.T) {
	db := &fakeReconcilerDB{}
	venues := &fakeReconcilerVenues{venues: map[string]*models.Venue{
		"venue-1": {ID: "venue-1"},
	}}
	orders := &fakeOrderStore{byKey: map[string]*models.Order{
		orderStoreKey("venue-1", "inst-1:0:42"): {
			ID:         "ord-1",
			VenueID:    "venue-1",
			ExternalID: "inst-1:0:42",
			Status:     models.OrderStatusPending,
		},
	}}
	payments := &fakePaymentStore{}
	rec := newReconcilerForTest(db, venues, orders, payments)

	event := &models.OrderEvent{
		VenueID:    "venue-1",
		ExternalID: "inst-1:3:42",
		Status:     "COMPLETED",
		Total:      100,
	}
	require.NoError(t, rec.ReconcileOrder(context.Background(), "softrestaurant", event))

	assert.Equal(t, 1, orders.renames)
	require.Len(t, orders.byKey, 1, "the orphan row must be renamed, not duplicated")
	resolved := orders.byKey[orderStoreKey("venue-1", "inst-1:3:42")]
	require.NotNil(t, resolved)
	assert.Equal(t, "ord-1", resolved.ID, "the renamed row keeps its identity")
	assert.Equal(t, models.OrderStatusCompleted, resolved.Status)
	assert.Equal(t, 1, db.commits)
}

func TestReconcileOrderUnknownVenueRejected(t *testing.T) {
	db := &fakeReconcilerDB{}
	venues := &fakeReconcilerVenues{venues: map[string]*models.Venue{}}
	orders := &fakeOrderStore{byKey: map[string]*models.Order{}}
	payments := &fakePaymentStore{}
	rec := newReconcilerForTest(db, venues, orders, payments)

	err := rec.ReconcileOrder(context.Background(), "softrestaurant", paidOrderEvent())
	require.Error(t, err)
	assert.True(t, httperror.IsHTTPError(err))
	assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
	assert.Zero(t, orders.upserts)
	assert.Zero(t, db.commits)
}
