package broker

import (
	"fmt"
	"strings"
)

// Entity names carried in the third routing key segment.
const (
	EntityOrder     = "order"
	EntityOrderItem = "orderitem"
	EntityShift     = "shift"
	EntityHeartbeat = "heartbeat"
)

// Verbs carried in the fourth routing key segment.
const (
	VerbCreated = "created"
	VerbUpdated = "updated"
	VerbDeleted = "deleted"
	VerbClosed  = "closed"
)

// RoutingKey is a parsed POS event routing key. Event keys have the form
// pos.<vendor>.<entity>.<verb>; heartbeats use the three segment form
// pos.<vendor>.heartbeat and carry an empty Verb.
type RoutingKey struct {
	Vendor string
	Entity string
	Verb   string
}

// String reassembles the routing key.
func (k RoutingKey) String() string {
	if k.Verb == "" {
		return fmt.Sprintf("pos.%s.%s", k.Vendor, k.Entity)
	}
	return fmt.Sprintf("pos.%s.%s.%s", k.Vendor, k.Entity, k.Verb)
}

// HandlerKey identifies the registered handler for this key. Heartbeats map
// to the bare entity name.
func (k RoutingKey) HandlerKey() string {
	if k.Verb == "" {
		return k.Entity
	}
	return k.Entity + "." + k.Verb
}

// ParseRoutingKey validates and splits an inbound routing key.
func ParseRoutingKey(key string) (RoutingKey, error) {
	parts := strings.Split(key, ".")
	if len(parts) < 3 || parts[0] != "pos" {
		return RoutingKey{}, fmt.Errorf("unrecognized routing key %q", key)
	}
	for _, p := range parts {
		if p == "" {
			return RoutingKey{}, fmt.Errorf("unrecognized routing key %q", key)
		}
	}
	switch len(parts) {
	case 3:
		if parts[2] != EntityHeartbeat {
			return RoutingKey{}, fmt.Errorf("unrecognized routing key %q", key)
		}
		return RoutingKey{Vendor: parts[1], Entity: EntityHeartbeat}, nil
	case 4:
		return RoutingKey{Vendor: parts[1], Entity: parts[2], Verb: parts[3]}, nil
	default:
		return RoutingKey{}, fmt.Errorf("unrecognized routing key %q", key)
	}
}
