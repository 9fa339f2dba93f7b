package resolver

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/avoqado/possync/pkg/models"
	"github.com/avoqado/possync/pkg/tracing"
)

// AreaStore is the slice of the area repository the resolver needs.
type AreaStore interface {
	GetByExternalID(ctx context.Context, venueID, externalID string) (*models.Area, error)
	Create(ctx context.Context, area *models.Area) error
	UpdateName(ctx context.Context, areaID, name string) error
}

// AreaResolver finds or creates a floor area by (venue, external id).
type AreaResolver struct {
	store  AreaStore
	logger ectologger.Logger
}

func NewAreaResolver(store AreaStore, logger ectologger.Logger) *AreaResolver {
	return &AreaResolver{
		store:  store,
		logger: logger,
	}
}

// Resolve returns the area id for the reference, creating the area on first
// sight and refreshing the name on later events. Returns nil when ref is nil.
func (r *AreaResolver) Resolve(ctx context.Context, venueID, origin string, ref *models.AreaEvent) (*string, error) {
	if ref == nil || ref.ExternalID == "" {
		return nil, nil
	}

	ctx, span := tracing.StartSpan(ctx, "resolver.AreaResolver.Resolve")
	defer span.End()

	existing, err := r.store.GetByExternalID(ctx, venueID, ref.ExternalID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if ref.Name != "" && ref.Name != existing.Name {
			if err := r.store.UpdateName(ctx, existing.ID, ref.Name); err != nil {
				return nil, err
			}
		}
		return &existing.ID, nil
	}

	now := time.Now().UTC()
	name := ref.Name
	if name == "" {
		name = ref.ExternalID
	}
	area := &models.Area{
		ID:         uuid.New().String(),
		VenueID:    venueID,
		ExternalID: ref.ExternalID,
		Name:       name,
		Origin:     origin,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := r.store.Create(ctx, area); err != nil {
		return nil, err
	}
	return &area.ID, nil
}
