package dispatcher

import (
	"context"
	"net/http"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avoqado/possync/pkg/logging"
	"github.com/avoqado/possync/pkg/models"
	"github.com/avoqado/possync/pkg/resolver"
)

type fakeVenueGate struct {
	venues map[string]*models.Venue
}

func (f *fakeVenueGate) Get(_ context.Context, id string) (*models.Venue, error) {
	return f.venues[id], nil
}

// gateStaffStore creates staff but fails every assignment insert the way the
// database does when the venue row is missing.
type gateStaffStore struct {
	staffCreated       int
	assignmentsCreated int
	failAssignments    bool
}

func (f *gateStaffStore) GetAssignment(_ context.Context, _, _ string) (*models.StaffVenueAssignment, error) {
	return nil, nil
}

func (f *gateStaffStore) GetByEmail(_ context.Context, _ string) (*models.Staff, error) {
	return nil, nil
}

func (f *gateStaffStore) CreateStaff(_ context.Context, _ *models.Staff) error {
	f.staffCreated++
	return nil
}

func (f *gateStaffStore) CreateAssignment(_ context.Context, _ *models.StaffVenueAssignment) error {
	if f.failAssignments {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create staff assignment")
	}
	f.assignmentsCreated++
	return nil
}

func (f *gateStaffStore) UpdateName(_ context.Context, _, _, _ string) error {
	return nil
}

func (f *gateStaffStore) UpdateAssignmentPIN(_ context.Context, _, _ string) error {
	return nil
}

func newGatedDispatcher(t *testing.T, gate *fakeVenueGate, store *gateStaffStore) *Dispatcher {
	t.Helper()
	d := New(2, nil, logging.NewNopLogger())
	err := RegisterDefaults(d, Services{
		Venues: gate,
		Staff:  resolver.NewStaffResolver(store, logging.NewNopLogger()),
	})
	require.NoError(t, err)
	return d
}

func TestStaffEventUnknownVenueDeadLetters(t *testing.T) {
	store := &gateStaffStore{failAssignments: true}
	d := newGatedDispatcher(t, &fakeVenueGate{venues: map[string]*models.Venue{}}, store)

	delivery, ack := newDelivery("pos.softrestaurant.staff.created", false)
	delivery.Body = []byte(`{"venueId":"ghost-venue","externalId":"7","name":"Ana Ruiz"}`)
	d.dispatch(context.Background(), delivery)

	assert.True(t, ack.nacked)
	assert.False(t, ack.requeue, "unknown venue is a configuration error, never retried")
	assert.Zero(t, store.staffCreated, "no staff row may be created for an unknown venue")
}

func TestStaffEventKnownVenuePassesGate(t *testing.T) {
	store := &gateStaffStore{}
	gate := &fakeVenueGate{venues: map[string]*models.Venue{
		"venue-1": {ID: "venue-1", Name: "La Terraza"},
	}}
	d := newGatedDispatcher(t, gate, store)

	delivery, ack := newDelivery("pos.softrestaurant.staff.created", false)
	delivery.Body = []byte(`{"venueId":"venue-1","externalId":"7","name":"Ana Ruiz"}`)
	d.dispatch(context.Background(), delivery)

	assert.True(t, ack.acked)
	assert.Equal(t, 1, store.staffCreated)
	assert.Equal(t, 1, store.assignmentsCreated)
}

func TestShiftEventUnknownVenueDeadLetters(t *testing.T) {
	d := newGatedDispatcher(t, &fakeVenueGate{venues: map[string]*models.Venue{}}, &gateStaffStore{})

	delivery, ack := newDelivery("pos.softrestaurant.shift.created", false)
	delivery.Body = []byte(`{"venueId":"ghost-venue","externalId":"3"}`)
	d.dispatch(context.Background(), delivery)

	assert.True(t, ack.nacked)
	assert.False(t, ack.requeue)
}
