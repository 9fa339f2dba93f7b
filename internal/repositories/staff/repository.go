package staff

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/avoqado/possync/pkg/database"
	"github.com/avoqado/possync/pkg/models"
	"github.com/avoqado/possync/pkg/tracing"
)

// Repository handles staff and staff-venue assignment persistence.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// GetAssignment retrieves the assignment for (venue, terminal code). Returns
// nil when no assignment exists.
func (r *Repository) GetAssignment(ctx context.Context, venueID, terminalCode string) (*models.StaffVenueAssignment, error) {
	ctx, span := tracing.StartSpan(ctx, "staff.Repository.GetAssignment")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "staff_id", "venue_id", "terminal_code", "pin", "created_at", "updated_at")
	sb.From("staff_venues")
	sb.Where(
		sb.Equal("venue_id", venueID),
		sb.Equal("terminal_code", terminalCode),
	)
	sb.Limit(1)

	query, args := sb.Build()
	var assignment models.StaffVenueAssignment
	if err := r.db.GetContext(ctx, &assignment, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"venue_id": venueID, "terminal_code": terminalCode}).Error("Failed to get staff assignment")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get staff assignment")
	}
	return &assignment, nil
}

// GetByEmail retrieves a staff member by email. Returns nil when absent.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.Staff, error) {
	ctx, span := tracing.StartSpan(ctx, "staff.Repository.GetByEmail")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "first_name", "last_name", "email", "password_hash", "synced", "created_at", "updated_at")
	sb.From("staff")
	sb.Where(sb.Equal("email", email))
	sb.Limit(1)

	query, args := sb.Build()
	var staff models.Staff
	if err := r.db.GetContext(ctx, &staff, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithField("email", email).Error("Failed to get staff by email")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get staff")
	}
	return &staff, nil
}

// CreateStaff inserts a staff row.
func (r *Repository) CreateStaff(ctx context.Context, staff *models.Staff) error {
	ctx, span := tracing.StartSpan(ctx, "staff.Repository.CreateStaff")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("staff")
	sb.Cols("id", "first_name", "last_name", "email", "password_hash", "synced", "created_at", "updated_at")
	sb.Values(staff.ID, staff.FirstName, staff.LastName, staff.Email, staff.PasswordHash, staff.Synced, staff.CreatedAt, staff.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"staff_id": staff.ID, "email": staff.Email}).Error("Failed to create staff")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create staff")
	}

	r.logger.WithContext(ctx).WithField("staff_id", staff.ID).Info("Created staff")
	return nil
}

// CreateAssignment inserts a staff-venue assignment.
func (r *Repository) CreateAssignment(ctx context.Context, assignment *models.StaffVenueAssignment) error {
	ctx, span := tracing.StartSpan(ctx, "staff.Repository.CreateAssignment")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("staff_venues")
	sb.Cols("id", "staff_id", "venue_id", "terminal_code", "pin", "created_at", "updated_at")
	sb.Values(assignment.ID, assignment.StaffID, assignment.VenueID, assignment.TerminalCode, assignment.PIN, assignment.CreatedAt, assignment.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"staff_id": assignment.StaffID, "venue_id": assignment.VenueID, "terminal_code": assignment.TerminalCode}).Error("Failed to create staff assignment")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create staff assignment")
	}
	return nil
}

// UpdateName updates a staff member's display name.
func (r *Repository) UpdateName(ctx context.Context, staffID, firstName, lastName string) error {
	ctx, span := tracing.StartSpan(ctx, "staff.Repository.UpdateName")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("staff")
	sb.Set(
		sb.Assign("first_name", firstName),
		sb.Assign("last_name", lastName),
		sb.Assign("updated_at", time.Now().UTC()),
	)
	sb.Where(sb.Equal("id", staffID))

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("staff_id", staffID).Error("Failed to update staff name")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update staff")
	}
	return nil
}

// UpdateAssignmentPIN updates the venue-scoped PIN on an assignment.
func (r *Repository) UpdateAssignmentPIN(ctx context.Context, assignmentID, pin string) error {
	ctx, span := tracing.StartSpan(ctx, "staff.Repository.UpdateAssignmentPIN")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("staff_venues")
	sb.Set(
		sb.Assign("pin", pin),
		sb.Assign("updated_at", time.Now().UTC()),
	)
	sb.Where(sb.Equal("id", assignmentID))

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("assignment_id", assignmentID).Error("Failed to update assignment PIN")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update staff assignment")
	}
	return nil
}
