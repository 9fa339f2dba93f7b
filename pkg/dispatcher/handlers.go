package dispatcher

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/go-playground/validator/v10"

	"github.com/avoqado/possync/pkg/broker"
	"github.com/avoqado/possync/pkg/heartbeat"
	"github.com/avoqado/possync/pkg/models"
	"github.com/avoqado/possync/pkg/reconciler"
	"github.com/avoqado/possync/pkg/resolver"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// VenueGate looks up a venue by id, nil when absent.
type VenueGate interface {
	Get(ctx context.Context, id string) (*models.Venue, error)
}

// Services are the domain entry points the standard handlers delegate to.
type Services struct {
	Venues     VenueGate
	Reconciler *reconciler.Reconciler
	Staff      *resolver.StaffResolver
	Tables     *resolver.TableResolver
	Areas      *resolver.AreaResolver
	Shifts     *resolver.ShiftResolver
	Monitor    *heartbeat.Monitor
}

// RequiredHandlers is the full set of routing keys the service must be able
// to process. Startup verifies every one has a registration.
var RequiredHandlers = []string{
	"order.created",
	"order.updated",
	"order.deleted",
	"orderitem.created",
	"orderitem.updated",
	"orderitem.deleted",
	"shift.created",
	"shift.updated",
	"shift.closed",
	"staff.created",
	"staff.updated",
	"table.created",
	"table.updated",
	"area.created",
	"area.updated",
	"heartbeat",
}

// decode unmarshals and validates an inbound payload. Both failure modes are
// client errors; the message can never succeed on redelivery.
func decode(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return httperror.NewHTTPErrorf(http.StatusBadRequest, "malformed payload: %s", err.Error())
	}
	if err := validate.Struct(v); err != nil {
		return httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid payload: %s", err.Error())
	}
	return nil
}

// requireVenue rejects events for venues that do not exist in the central
// store. An unknown venue is a terminal misconfiguration; retrying can never
// succeed, so the event must dead-letter instead of requeueing.
func requireVenue(ctx context.Context, venues VenueGate, venueID string) error {
	ven, err := venues.Get(ctx, venueID)
	if err != nil {
		return err
	}
	if ven == nil {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "venue %s not found", venueID)
	}
	return nil
}

// RegisterDefaults wires the standard handler set into the dispatcher.
func RegisterDefaults(d *Dispatcher, s Services) error {
	orderUpsert := func(ctx context.Context, key broker.RoutingKey, body []byte) error {
		var event models.OrderEvent
		if err := decode(body, &event); err != nil {
			return err
		}
		return s.Reconciler.ReconcileOrder(ctx, key.Vendor, &event)
	}

	orderDelete := func(ctx context.Context, key broker.RoutingKey, body []byte) error {
		var event models.OrderEvent
		if err := decode(body, &event); err != nil {
			return err
		}
		return s.Reconciler.MarkOrderDeleted(ctx, &event)
	}

	itemUpsert := func(ctx context.Context, key broker.RoutingKey, body []byte) error {
		var event models.OrderItemEvent
		if err := decode(body, &event); err != nil {
			return err
		}
		if key.Verb == broker.VerbDeleted {
			event.Deleted = true
		}
		return s.Reconciler.ReconcileItem(ctx, &event)
	}

	shiftApply := func(ctx context.Context, key broker.RoutingKey, body []byte) error {
		var event models.ShiftEvent
		if err := decode(body, &event); err != nil {
			return err
		}
		if err := requireVenue(ctx, s.Venues, event.VenueID); err != nil {
			return err
		}
		return s.Shifts.Apply(ctx, event.VenueID, key.Vendor, &event)
	}

	shiftClose := func(ctx context.Context, key broker.RoutingKey, body []byte) error {
		var event models.ShiftEvent
		if err := decode(body, &event); err != nil {
			return err
		}
		if err := requireVenue(ctx, s.Venues, event.VenueID); err != nil {
			return err
		}
		return s.Shifts.Close(ctx, event.VenueID, &event)
	}

	staffApply := func(ctx context.Context, key broker.RoutingKey, body []byte) error {
		var event models.StaffEvent
		if err := decode(body, &event); err != nil {
			return err
		}
		if err := requireVenue(ctx, s.Venues, event.VenueID); err != nil {
			return err
		}
		_, err := s.Staff.Resolve(ctx, event.VenueID, &event)
		return err
	}

	tableApply := func(ctx context.Context, key broker.RoutingKey, body []byte) error {
		var event models.TableEvent
		if err := decode(body, &event); err != nil {
			return err
		}
		if err := requireVenue(ctx, s.Venues, event.VenueID); err != nil {
			return err
		}
		_, err := s.Tables.Resolve(ctx, event.VenueID, key.Vendor, &event)
		return err
	}

	areaApply := func(ctx context.Context, key broker.RoutingKey, body []byte) error {
		var event models.AreaEvent
		if err := decode(body, &event); err != nil {
			return err
		}
		if err := requireVenue(ctx, s.Venues, event.VenueID); err != nil {
			return err
		}
		_, err := s.Areas.Resolve(ctx, event.VenueID, key.Vendor, &event)
		return err
	}

	heartbeatHandler := func(ctx context.Context, key broker.RoutingKey, body []byte) error {
		var event models.HeartbeatEvent
		if err := decode(body, &event); err != nil {
			return err
		}
		return s.Monitor.HandleHeartbeat(ctx, key.Vendor, &event)
	}

	registrations := []struct {
		key     string
		handler Handler
	}{
		{"order.created", orderUpsert},
		{"order.updated", orderUpsert},
		{"order.deleted", orderDelete},
		{"orderitem.created", itemUpsert},
		{"orderitem.updated", itemUpsert},
		{"orderitem.deleted", itemUpsert},
		{"shift.created", shiftApply},
		{"shift.updated", shiftApply},
		{"shift.closed", shiftClose},
		{"staff.created", staffApply},
		{"staff.updated", staffApply},
		{"table.created", tableApply},
		{"table.updated", tableApply},
		{"area.created", areaApply},
		{"area.updated", areaApply},
		{"heartbeat", heartbeatHandler},
	}
	for _, reg := range registrations {
		if err := d.Register(reg.key, reg.handler); err != nil {
			return err
		}
	}
	return d.Verify(RequiredHandlers...)
}
