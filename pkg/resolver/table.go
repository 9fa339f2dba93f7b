package resolver

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/avoqado/possync/pkg/models"
	"github.com/avoqado/possync/pkg/tracing"
)

// TableStore is the slice of the table repository the resolver needs.
type TableStore interface {
	GetByNumber(ctx context.Context, venueID, number string) (*models.Table, error)
	Create(ctx context.Context, table *models.Table) error
}

// TableResolver finds or creates a table by (venue, display number). Tables
// are created lazily with a default capacity when first referenced.
type TableResolver struct {
	store  TableStore
	areas  *AreaResolver
	logger ectologger.Logger
}

func NewTableResolver(store TableStore, areas *AreaResolver, logger ectologger.Logger) *TableResolver {
	return &TableResolver{
		store:  store,
		areas:  areas,
		logger: logger,
	}
}

// Resolve returns the table id for the reference, creating the table (and its
// area, if referenced) on first sight. Returns nil when ref is nil.
func (r *TableResolver) Resolve(ctx context.Context, venueID, origin string, ref *models.TableEvent) (*string, error) {
	if ref == nil || ref.ExternalID == "" {
		return nil, nil
	}

	ctx, span := tracing.StartSpan(ctx, "resolver.TableResolver.Resolve")
	defer span.End()

	existing, err := r.store.GetByNumber(ctx, venueID, ref.ExternalID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &existing.ID, nil
	}

	areaID, err := r.areas.Resolve(ctx, venueID, origin, ref.AreaRef)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	table := &models.Table{
		ID:        uuid.New().String(),
		VenueID:   venueID,
		Number:    ref.ExternalID,
		Capacity:  models.DefaultTableCapacity,
		AreaID:    areaID,
		Origin:    origin,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.store.Create(ctx, table); err != nil {
		return nil, err
	}
	return &table.ID, nil
}
