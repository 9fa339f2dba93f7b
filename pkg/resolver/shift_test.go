package resolver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avoqado/possync/pkg/logging"
	"github.com/avoqado/possync/pkg/models"
)

type fakeShiftStore struct {
	open    map[string]*models.Shift
	totals  models.ShiftTotals
	created []*models.Shift
	updated []*models.ShiftPatch
	closed  []string
}

func openKey(venueID, externalID string) string {
	return venueID + "/" + externalID
}

func (f *fakeShiftStore) GetOpenByExternalID(_ context.Context, venueID, externalID string) (*models.Shift, error) {
	return f.open[openKey(venueID, externalID)], nil
}

func (f *fakeShiftStore) Create(_ context.Context, shift *models.Shift) error {
	f.created = append(f.created, shift)
	return nil
}

func (f *fakeShiftStore) Update(_ context.Context, patch *models.ShiftPatch) error {
	f.updated = append(f.updated, patch)
	return nil
}

func (f *fakeShiftStore) ComputeTotals(_ context.Context, _ string) (*models.ShiftTotals, error) {
	totals := f.totals
	return &totals, nil
}

func (f *fakeShiftStore) Close(_ context.Context, shiftID string, _ time.Time, _ float64, _ models.ShiftTotals) error {
	f.closed = append(f.closed, shiftID)
	return nil
}

func newShiftResolverForTest(store *fakeShiftStore) *ShiftResolver {
	staff := NewStaffResolver(&fakeStaffStore{}, logging.NewNopLogger())
	return NewShiftResolver(store, staff, logging.NewNopLogger())
}

func TestShiftResolveReusesOpenShift(t *testing.T) {
	store := &fakeShiftStore{
		open: map[string]*models.Shift{
			openKey("venue-1", "3"): {ID: "shift-1", Status: models.ShiftStatusOpen},
		},
	}
	r := newShiftResolverForTest(store)

	id, err := r.Resolve(context.Background(), "venue-1", "softrestaurant", &models.ShiftEvent{ExternalID: "3"})
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, "shift-1", *id)
	assert.Empty(t, store.created)
}

func TestShiftResolveCreatesOpenShift(t *testing.T) {
	store := &fakeShiftStore{open: map[string]*models.Shift{}}
	r := newShiftResolverForTest(store)

	start := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	cash := 500.0
	id, err := r.Resolve(context.Background(), "venue-1", "softrestaurant", &models.ShiftEvent{
		ExternalID:   "3",
		StartTime:    &start,
		StartingCash: &cash,
	})
	require.NoError(t, err)
	require.NotNil(t, id)

	require.Len(t, store.created, 1)
	created := store.created[0]
	assert.Equal(t, *id, created.ID)
	assert.Equal(t, models.ShiftStatusOpen, created.Status)
	assert.Equal(t, start, created.StartTime)
	assert.Equal(t, 500.0, created.StartingCash)
	assert.Equal(t, "softrestaurant", created.Origin)
}

func TestShiftApplySparseUpdateLeavesAbsentFieldsAlone(t *testing.T) {
	store := &fakeShiftStore{
		open: map[string]*models.Shift{
			openKey("venue-1", "3"): {ID: "shift-1", Status: models.ShiftStatusOpen},
		},
	}
	r := newShiftResolverForTest(store)

	err := r.Apply(context.Background(), "venue-1", "softrestaurant", &models.ShiftEvent{ExternalID: "3"})
	require.NoError(t, err)

	require.Len(t, store.updated, 1)
	patch := store.updated[0]
	assert.Equal(t, "shift-1", patch.ID)
	assert.Nil(t, patch.StaffID, "an update without a staff reference must not clear staff_id")
	assert.Nil(t, patch.StartingCash, "an update without startingCash must not zero it")
	assert.Nil(t, patch.RawData)
}

func TestShiftApplyRefreshesCarriedFields(t *testing.T) {
	store := &fakeShiftStore{
		open: map[string]*models.Shift{
			openKey("venue-1", "3"): {ID: "shift-1", Status: models.ShiftStatusOpen},
		},
	}
	r := newShiftResolverForTest(store)

	cash := 650.0
	err := r.Apply(context.Background(), "venue-1", "softrestaurant", &models.ShiftEvent{
		ExternalID:   "3",
		StartingCash: &cash,
		StaffRef:     &models.StaffEvent{ExternalID: "7", Name: "Ana Ruiz"},
	})
	require.NoError(t, err)

	require.Len(t, store.updated, 1)
	patch := store.updated[0]
	require.NotNil(t, patch.StartingCash)
	assert.Equal(t, 650.0, *patch.StartingCash)
	assert.NotNil(t, patch.StaffID)
}

func TestShiftResolveNilRef(t *testing.T) {
	store := &fakeShiftStore{}
	r := newShiftResolverForTest(store)

	id, err := r.Resolve(context.Background(), "venue-1", "softrestaurant", nil)
	require.NoError(t, err)
	assert.Nil(t, id)
}

func TestShiftCloseAggregatesAndCloses(t *testing.T) {
	store := &fakeShiftStore{
		open: map[string]*models.Shift{
			openKey("venue-1", "3"): {ID: "shift-1", Status: models.ShiftStatusOpen},
		},
		totals: models.ShiftTotals{TotalSales: 1250.50, TotalTips: 120, TotalOrders: 14},
	}
	r := newShiftResolverForTest(store)

	end := time.Date(2026, 2, 1, 23, 0, 0, 0, time.UTC)
	err := r.Close(context.Background(), "venue-1", &models.ShiftEvent{
		ExternalID: "3",
		EndTime:    &end,
		EndingCash: 1750.50,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"shift-1"}, store.closed)
}

func TestShiftCloseUnknownShiftIsNoOp(t *testing.T) {
	store := &fakeShiftStore{open: map[string]*models.Shift{}}
	r := newShiftResolverForTest(store)

	err := r.Close(context.Background(), "venue-1", &models.ShiftEvent{ExternalID: "3"})
	require.NoError(t, err, "closing a never-opened or already closed shift must not error")
	assert.Empty(t, store.closed)
}
