package resolver

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/avoqado/possync/pkg/models"
	"github.com/avoqado/possync/pkg/tracing"
)

// StaffStore is the slice of the staff repository the resolver needs.
type StaffStore interface {
	GetAssignment(ctx context.Context, venueID, terminalCode string) (*models.StaffVenueAssignment, error)
	GetByEmail(ctx context.Context, email string) (*models.Staff, error)
	CreateStaff(ctx context.Context, staff *models.Staff) error
	CreateAssignment(ctx context.Context, assignment *models.StaffVenueAssignment) error
	UpdateName(ctx context.Context, staffID, firstName, lastName string) error
	UpdateAssignmentPIN(ctx context.Context, assignmentID, pin string) error
}

// StaffResolver translates a terminal-local staff reference into a durable
// staff id, creating the placeholder account and venue assignment as needed.
type StaffResolver struct {
	store  StaffStore
	logger ectologger.Logger
}

func NewStaffResolver(store StaffStore, logger ectologger.Logger) *StaffResolver {
	return &StaffResolver{
		store:  store,
		logger: logger,
	}
}

// Resolve finds or creates the staff member for (venue, terminal code).
// Three cases:
//
//	a) an assignment for this (venue, code) exists: refresh the display name
//	   and PIN and reuse the staff id;
//	b) no assignment, but a placeholder staff with the synthetic email for
//	   this (venue, code) exists: attach a new assignment to that person
//	   instead of creating a duplicate;
//	c) neither exists: create staff and assignment together.
//
// Returns nil when ref is nil; the caller treats an absent reference as a no-op.
func (r *StaffResolver) Resolve(ctx context.Context, venueID string, ref *models.StaffEvent) (*string, error) {
	if ref == nil || ref.ExternalID == "" {
		return nil, nil
	}

	ctx, span := tracing.StartSpan(ctx, "resolver.StaffResolver.Resolve")
	defer span.End()

	first, last := models.SplitStaffName(ref.Name)

	assignment, err := r.store.GetAssignment(ctx, venueID, ref.ExternalID)
	if err != nil {
		return nil, err
	}
	if assignment != nil {
		if first != "" {
			if err := r.store.UpdateName(ctx, assignment.StaffID, first, last); err != nil {
				return nil, err
			}
		}
		if ref.PIN != "" && ref.PIN != assignment.PIN {
			if err := r.store.UpdateAssignmentPIN(ctx, assignment.ID, ref.PIN); err != nil {
				return nil, err
			}
		}
		return &assignment.StaffID, nil
	}

	email := models.SyntheticStaffEmail(venueID, ref.ExternalID)
	existing, err := r.store.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if existing != nil {
		newAssignment := &models.StaffVenueAssignment{
			ID:           uuid.New().String(),
			StaffID:      existing.ID,
			VenueID:      venueID,
			TerminalCode: ref.ExternalID,
			PIN:          ref.PIN,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := r.store.CreateAssignment(ctx, newAssignment); err != nil {
			return nil, err
		}
		r.logger.WithContext(ctx).WithFields(map[string]any{"staff_id": existing.ID, "venue_id": venueID, "terminal_code": ref.ExternalID}).Info("Attached existing staff to venue")
		return &existing.ID, nil
	}

	staff := &models.Staff{
		ID:        uuid.New().String(),
		FirstName: first,
		LastName:  last,
		Email:     email,
		Synced:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.store.CreateStaff(ctx, staff); err != nil {
		return nil, err
	}

	newAssignment := &models.StaffVenueAssignment{
		ID:           uuid.New().String(),
		StaffID:      staff.ID,
		VenueID:      venueID,
		TerminalCode: ref.ExternalID,
		PIN:          ref.PIN,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := r.store.CreateAssignment(ctx, newAssignment); err != nil {
		return nil, err
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"staff_id": staff.ID, "venue_id": venueID, "terminal_code": ref.ExternalID}).Info("Created synchronized staff")
	return &staff.ID, nil
}
