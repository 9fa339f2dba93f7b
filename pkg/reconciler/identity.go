package reconciler

import (
	"context"
	"strings"

	"github.com/avoqado/possync/pkg/models"
)

// IdentityAction says how an incoming order external id maps onto stored rows.
type IdentityAction string

const (
	// ActionUpdate means the order exists under the incoming id.
	ActionUpdate IdentityAction = "UPDATE"
	// ActionRenameThenUpdate means the order exists under the placeholder
	// shift-segment id and must be renamed to the incoming id first.
	ActionRenameThenUpdate IdentityAction = "RENAME_THEN_UPDATE"
	// ActionCreate means no row matches either id.
	ActionCreate IdentityAction = "CREATE"
)

// placeholderShiftSegment is what terminals put in the compound external id
// when no shift was open at order creation time.
const placeholderShiftSegment = "0"

// IdentityResolution is the outcome of orphan resolution for one external id.
type IdentityResolution struct {
	Action IdentityAction
	// TargetOrderID is set for UPDATE and RENAME_THEN_UPDATE.
	TargetOrderID string
}

// OrderLookup finds the non-deleted order for (venue, external id), nil when absent.
type OrderLookup func(ctx context.Context, venueID, externalID string) (*models.Order, error)

// SplitExternalID breaks a compound order external id into its
// instanceId:shiftSegment:folio parts. ok is false when the id does not have
// exactly three segments.
func SplitExternalID(externalID string) (instanceID, shiftSegment, folio string, ok bool) {
	parts := strings.Split(externalID, ":")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}

// PlaceholderExternalID rewrites an external id's shift segment to the placeholder.
func PlaceholderExternalID(instanceID, folio string) string {
	return instanceID + ":" + placeholderShiftSegment + ":" + folio
}

// ResolveOrderIdentity decides whether an incoming order event updates an
// existing row, renames an orphan row created under the placeholder shift
// segment, or creates a new row. Callers must run it in the same transaction
// as the upsert that follows, so a concurrent duplicate delivery cannot race
// the rename.
func ResolveOrderIdentity(ctx context.Context, venueID, externalID string, lookup OrderLookup) (IdentityResolution, error) {
	existing, err := lookup(ctx, venueID, externalID)
	if err != nil {
		return IdentityResolution{}, err
	}
	if existing != nil {
		return IdentityResolution{Action: ActionUpdate, TargetOrderID: existing.ID}, nil
	}

	instanceID, shiftSegment, folio, ok := SplitExternalID(externalID)
	if !ok || shiftSegment == placeholderShiftSegment {
		return IdentityResolution{Action: ActionCreate}, nil
	}

	orphan, err := lookup(ctx, venueID, PlaceholderExternalID(instanceID, folio))
	if err != nil {
		return IdentityResolution{}, err
	}
	if orphan != nil {
		return IdentityResolution{Action: ActionRenameThenUpdate, TargetOrderID: orphan.ID}, nil
	}

	return IdentityResolution{Action: ActionCreate}, nil
}
