package heartbeat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avoqado/possync/pkg/logging"
	"github.com/avoqado/possync/pkg/models"
)

type fakeVenueStore struct {
	venues       map[string]*models.Venue
	connectivity map[string]models.VenuePosConnectivity
}

func (f *fakeVenueStore) Get(_ context.Context, id string) (*models.Venue, error) {
	return f.venues[id], nil
}

func (f *fakeVenueStore) UpdatePosConnectivity(_ context.Context, venueID string, connectivity models.VenuePosConnectivity) error {
	if f.connectivity == nil {
		f.connectivity = map[string]models.VenuePosConnectivity{}
	}
	f.connectivity[venueID] = connectivity
	return nil
}

type fakeStatusStore struct {
	statuses map[string]*models.PosConnectionStatus
	upserted *models.PosConnectionStatus
}

func (f *fakeStatusStore) Get(_ context.Context, venueID string) (*models.PosConnectionStatus, error) {
	return f.statuses[venueID], nil
}

func (f *fakeStatusStore) Upsert(_ context.Context, status *models.PosConnectionStatus) error {
	f.upserted = status
	return nil
}

type fakeCommandPublisher struct {
	routingKey string
	payload    any
}

func (f *fakeCommandPublisher) PublishCommand(_ context.Context, routingKey string, payload any) error {
	f.routingKey = routingKey
	f.payload = payload
	return nil
}

type fakeAlertEmitter struct {
	alerts []models.ReconciliationAlert
	err    error
}

func (f *fakeAlertEmitter) EmitReconciliationAlert(_ context.Context, alert models.ReconciliationAlert) error {
	f.alerts = append(f.alerts, alert)
	return f.err
}

func newTestMonitor(venues *fakeVenueStore, statuses *fakeStatusStore, commands *fakeCommandPublisher, alerts *fakeAlertEmitter) *Monitor {
	return NewMonitor(venues, statuses, commands, alerts, logging.NewNopLogger())
}

func TestHandleHeartbeatUnknownVenue(t *testing.T) {
	venues := &fakeVenueStore{venues: map[string]*models.Venue{}}
	statuses := &fakeStatusStore{statuses: map[string]*models.PosConnectionStatus{}}
	commands := &fakeCommandPublisher{}
	alerts := &fakeAlertEmitter{}
	m := newTestMonitor(venues, statuses, commands, alerts)

	err := m.HandleHeartbeat(context.Background(), "softrestaurant", &models.HeartbeatEvent{
		VenueID:    "ghost",
		InstanceID: "inst-1",
	})
	require.NoError(t, err, "unknown venue heartbeats are handled, not retried")

	assert.Equal(t, "command.softrestaurant.configuration.error", commands.routingKey)
	command, ok := commands.payload.(models.ConfigurationErrorCommand)
	require.True(t, ok)
	assert.Equal(t, models.ErrorTypeVenueNotFound, command.ErrorType)
	assert.Equal(t, "ghost", command.InvalidVenueID)
	assert.True(t, command.RequiresReconfiguration)

	assert.Nil(t, statuses.upserted, "no status row for unknown venues")
}

func TestHandleHeartbeatFirstSighting(t *testing.T) {
	venues := &fakeVenueStore{venues: map[string]*models.Venue{
		"venue-1": {ID: "venue-1", Name: "La Blanca"},
	}}
	statuses := &fakeStatusStore{statuses: map[string]*models.PosConnectionStatus{}}
	commands := &fakeCommandPublisher{}
	alerts := &fakeAlertEmitter{}
	m := newTestMonitor(venues, statuses, commands, alerts)

	err := m.HandleHeartbeat(context.Background(), "softrestaurant", &models.HeartbeatEvent{
		VenueID:         "venue-1",
		InstanceID:      "inst-1",
		ProducerVersion: "2.4.0",
	})
	require.NoError(t, err)

	require.NotNil(t, statuses.upserted)
	assert.Equal(t, models.ConnectionOnline, statuses.upserted.Status)
	assert.Equal(t, "inst-1", statuses.upserted.InstanceID)
	assert.Equal(t, models.VenuePosConnected, venues.connectivity["venue-1"])
	assert.Empty(t, alerts.alerts)
}

func TestHandleHeartbeatSameInstanceStaysOnline(t *testing.T) {
	createdAt := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	venues := &fakeVenueStore{venues: map[string]*models.Venue{
		"venue-1": {ID: "venue-1", Name: "La Blanca"},
	}}
	statuses := &fakeStatusStore{statuses: map[string]*models.PosConnectionStatus{
		"venue-1": {
			VenueID:    "venue-1",
			Status:     models.ConnectionNeedsReconciliation,
			InstanceID: "inst-1",
			CreatedAt:  createdAt,
		},
	}}
	commands := &fakeCommandPublisher{}
	alerts := &fakeAlertEmitter{}
	m := newTestMonitor(venues, statuses, commands, alerts)

	err := m.HandleHeartbeat(context.Background(), "softrestaurant", &models.HeartbeatEvent{
		VenueID:    "venue-1",
		InstanceID: "inst-1",
	})
	require.NoError(t, err)

	require.NotNil(t, statuses.upserted)
	assert.Equal(t, models.ConnectionOnline, statuses.upserted.Status)
	assert.Equal(t, createdAt, statuses.upserted.CreatedAt, "first-seen time survives upserts")
	assert.Empty(t, alerts.alerts)
}

func TestHandleHeartbeatInstanceChangeEscalates(t *testing.T) {
	venues := &fakeVenueStore{venues: map[string]*models.Venue{
		"venue-1": {ID: "venue-1", Name: "La Blanca"},
	}}
	statuses := &fakeStatusStore{statuses: map[string]*models.PosConnectionStatus{
		"venue-1": {
			VenueID:    "venue-1",
			Status:     models.ConnectionOnline,
			InstanceID: "inst-1",
		},
	}}
	commands := &fakeCommandPublisher{}
	alerts := &fakeAlertEmitter{}
	m := newTestMonitor(venues, statuses, commands, alerts)

	err := m.HandleHeartbeat(context.Background(), "softrestaurant", &models.HeartbeatEvent{
		VenueID:         "venue-1",
		InstanceID:      "inst-2",
		ProducerVersion: "2.4.0",
	})
	require.NoError(t, err)

	require.NotNil(t, statuses.upserted)
	assert.Equal(t, models.ConnectionNeedsReconciliation, statuses.upserted.Status)
	assert.Equal(t, "inst-2", statuses.upserted.InstanceID, "new instance id is stored for later comparison")
	assert.Equal(t, models.VenuePosError, venues.connectivity["venue-1"])

	require.Len(t, alerts.alerts, 1)
	assert.Equal(t, "inst-1", alerts.alerts[0].PreviousInstanceID)
	assert.Equal(t, "inst-2", alerts.alerts[0].NewInstanceID)
	assert.Equal(t, "La Blanca", alerts.alerts[0].VenueName)
}

func TestHandleHeartbeatAlertFailureDoesNotFailHeartbeat(t *testing.T) {
	venues := &fakeVenueStore{venues: map[string]*models.Venue{
		"venue-1": {ID: "venue-1", Name: "La Blanca"},
	}}
	statuses := &fakeStatusStore{statuses: map[string]*models.PosConnectionStatus{
		"venue-1": {VenueID: "venue-1", InstanceID: "inst-1"},
	}}
	commands := &fakeCommandPublisher{}
	alerts := &fakeAlertEmitter{err: errors.New("kafka unavailable")}
	m := newTestMonitor(venues, statuses, commands, alerts)

	err := m.HandleHeartbeat(context.Background(), "softrestaurant", &models.HeartbeatEvent{
		VenueID:    "venue-1",
		InstanceID: "inst-2",
	})
	assert.NoError(t, err, "status transition is durable; alert publish failure is logged only")
	assert.Equal(t, models.ConnectionNeedsReconciliation, statuses.upserted.Status)
}
