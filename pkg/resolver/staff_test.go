package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avoqado/possync/pkg/logging"
	"github.com/avoqado/possync/pkg/models"
)

type fakeStaffStore struct {
	assignments map[string]*models.StaffVenueAssignment
	byEmail     map[string]*models.Staff

	createdStaff       []*models.Staff
	createdAssignments []*models.StaffVenueAssignment
	nameUpdates        [][3]string
	pinUpdates         [][2]string
}

func assignmentKey(venueID, terminalCode string) string {
	return venueID + "/" + terminalCode
}

func (f *fakeStaffStore) GetAssignment(_ context.Context, venueID, terminalCode string) (*models.StaffVenueAssignment, error) {
	return f.assignments[assignmentKey(venueID, terminalCode)], nil
}

func (f *fakeStaffStore) GetByEmail(_ context.Context, email string) (*models.Staff, error) {
	return f.byEmail[email], nil
}

func (f *fakeStaffStore) CreateStaff(_ context.Context, staff *models.Staff) error {
	f.createdStaff = append(f.createdStaff, staff)
	return nil
}

func (f *fakeStaffStore) CreateAssignment(_ context.Context, assignment *models.StaffVenueAssignment) error {
	f.createdAssignments = append(f.createdAssignments, assignment)
	return nil
}

func (f *fakeStaffStore) UpdateName(_ context.Context, staffID, firstName, lastName string) error {
	f.nameUpdates = append(f.nameUpdates, [3]string{staffID, firstName, lastName})
	return nil
}

func (f *fakeStaffStore) UpdateAssignmentPIN(_ context.Context, assignmentID, pin string) error {
	f.pinUpdates = append(f.pinUpdates, [2]string{assignmentID, pin})
	return nil
}

func TestStaffResolveNilRef(t *testing.T) {
	store := &fakeStaffStore{}
	r := NewStaffResolver(store, logging.NewNopLogger())

	id, err := r.Resolve(context.Background(), "venue-1", nil)
	require.NoError(t, err)
	assert.Nil(t, id)

	id, err = r.Resolve(context.Background(), "venue-1", &models.StaffEvent{})
	require.NoError(t, err)
	assert.Nil(t, id)
}

func TestStaffResolveExistingAssignment(t *testing.T) {
	store := &fakeStaffStore{
		assignments: map[string]*models.StaffVenueAssignment{
			assignmentKey("venue-1", "17"): {ID: "asg-1", StaffID: "staff-1", PIN: "1111"},
		},
	}
	r := NewStaffResolver(store, logging.NewNopLogger())

	id, err := r.Resolve(context.Background(), "venue-1", &models.StaffEvent{
		ExternalID: "17",
		Name:       "Maria Lopez",
		PIN:        "2222",
	})
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, "staff-1", *id)

	require.Len(t, store.nameUpdates, 1)
	assert.Equal(t, [3]string{"staff-1", "Maria", "Lopez"}, store.nameUpdates[0])
	require.Len(t, store.pinUpdates, 1)
	assert.Equal(t, [2]string{"asg-1", "2222"}, store.pinUpdates[0])
	assert.Empty(t, store.createdStaff)
}

func TestStaffResolveExistingAssignmentUnchangedPIN(t *testing.T) {
	store := &fakeStaffStore{
		assignments: map[string]*models.StaffVenueAssignment{
			assignmentKey("venue-1", "17"): {ID: "asg-1", StaffID: "staff-1", PIN: "1111"},
		},
	}
	r := NewStaffResolver(store, logging.NewNopLogger())

	_, err := r.Resolve(context.Background(), "venue-1", &models.StaffEvent{
		ExternalID: "17",
		PIN:        "1111",
	})
	require.NoError(t, err)
	assert.Empty(t, store.pinUpdates)
	assert.Empty(t, store.nameUpdates, "empty name does not overwrite the stored one")
}

func TestStaffResolveReattachesPlaceholder(t *testing.T) {
	email := models.SyntheticStaffEmail("venue-1", "17")
	store := &fakeStaffStore{
		byEmail: map[string]*models.Staff{
			email: {ID: "staff-1", Email: email, Synced: true},
		},
	}
	r := NewStaffResolver(store, logging.NewNopLogger())

	id, err := r.Resolve(context.Background(), "venue-1", &models.StaffEvent{
		ExternalID: "17",
		Name:       "Maria Lopez",
	})
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, "staff-1", *id)

	assert.Empty(t, store.createdStaff, "no duplicate person for the same synthetic email")
	require.Len(t, store.createdAssignments, 1)
	assert.Equal(t, "staff-1", store.createdAssignments[0].StaffID)
	assert.Equal(t, "17", store.createdAssignments[0].TerminalCode)
}

func TestStaffResolveCreatesPlaceholder(t *testing.T) {
	store := &fakeStaffStore{}
	r := NewStaffResolver(store, logging.NewNopLogger())

	id, err := r.Resolve(context.Background(), "venue-1", &models.StaffEvent{
		ExternalID: "17",
		Name:       "Maria de los Angeles Lopez",
		PIN:        "1111",
	})
	require.NoError(t, err)
	require.NotNil(t, id)

	require.Len(t, store.createdStaff, 1)
	created := store.createdStaff[0]
	assert.Equal(t, *id, created.ID)
	assert.Equal(t, "Maria", created.FirstName)
	assert.Equal(t, "de los Angeles Lopez", created.LastName)
	assert.Equal(t, models.SyntheticStaffEmail("venue-1", "17"), created.Email)
	assert.True(t, created.Synced)
	assert.Nil(t, created.PasswordHash)

	require.Len(t, store.createdAssignments, 1)
	assert.Equal(t, created.ID, store.createdAssignments[0].StaffID)
	assert.Equal(t, "1111", store.createdAssignments[0].PIN)
}
