package port

import (
	"context"
	"errors"
	"time"

	"github.com/garyjia/travel-report/internal/domain/entity"
)

// ErrUniqueViolation is returned by repositories when a write collides with
// a unique constraint.
var ErrUniqueViolation = errors.New("unique constraint violation")

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// AssignmentFilter narrows assignment listings. Zero values mean "no filter".
type AssignmentFilter struct {
	// ParticipantID limits results to assignments the user participates in.
	ParticipantID int64
	// Search matches destination and purpose, and participant names when
	// SearchParticipants is set.
	Search             string
	SearchParticipants bool
	// StartDate matches assignments starting on that calendar day.
	StartDate  *time.Time
	HasReports *bool
	Limit      int
	Offset     int
}

// AssignmentRepository defines persistence operations for Assignment
type AssignmentRepository interface {
	Create(ctx context.Context, a *entity.Assignment) error
	Update(ctx context.Context, a *entity.Assignment) error
	Delete(ctx context.Context, id int64) error
	DeleteMany(ctx context.Context, ids []int64) (int64, error)

	// GetByID returns the assignment with participants loaded, or nil
	GetByID(ctx context.Context, id int64) (*entity.Assignment, error)
	List(ctx context.Context, filter AssignmentFilter) ([]*entity.Assignment, int, error)

	ParticipantIDs(ctx context.Context, assignmentID int64) ([]int64, error)
	SetParticipants(ctx context.Context, assignmentID int64, userIDs []int64) error
	IsParticipant(ctx context.Context, assignmentID, userID int64) (bool, error)

	// CountForUser counts assignments the user created or participates in
	CountForUser(ctx context.Context, userID int64) (int, error)
}

// ReportScope restricts which reports a query may see. All wins over the
// other fields; OwnerID and TeamHeadID combine with OR.
type ReportScope struct {
	All bool
	// OwnerID admits reports owned by this user.
	OwnerID int64
	// TeamHeadID admits reports owned by employees of the work unit headed
	// by this user.
	TeamHeadID int64
}

// IsEmpty reports whether the scope admits nothing.
func (s ReportScope) IsEmpty() bool {
	return !s.All && s.OwnerID == 0 && s.TeamHeadID == 0
}

// ReportFilter narrows report listings
type ReportFilter struct {
	Scope        ReportScope
	Status       entity.ReportStatus
	TravelType   entity.TravelType
	AssignmentID int64
	Limit        int
	Offset       int
}

// ReportRepository defines persistence operations for the report header
type ReportRepository interface {
	Create(ctx context.Context, r *entity.Report) error

	// Update writes owner-editable fields and updated_at
	Update(ctx context.Context, r *entity.Report) error

	// UpdateStatus writes the derived status without touching updated_at
	UpdateStatus(ctx context.Context, id int64, status entity.ReportStatus) error

	// MarkSubmitted moves the report into a new review round
	MarkSubmitted(ctx context.Context, id int64, round int, submittedAt time.Time) error

	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*entity.Report, error)
	GetByAssignmentAndUser(ctx context.Context, assignmentID, userID int64) (*entity.Report, error)
	List(ctx context.Context, filter ReportFilter) ([]*entity.Report, int, error)
}

// ExpenseRepository persists the 1:1 records hanging off a report
type ExpenseRepository interface {
	// SaveDetail inserts or replaces the detail row for its travel type
	SaveDetail(ctx context.Context, detail entity.ExpenseDetail) error
	GetDetail(ctx context.Context, reportID int64, travelType entity.TravelType) (entity.ExpenseDetail, error)

	SaveNarrative(ctx context.Context, n *entity.TravelReport) error
	GetNarrative(ctx context.Context, reportID int64) (*entity.TravelReport, error)

	SetTransportationTypes(ctx context.Context, reportID int64, typeIDs []int64) error
	TransportationTypeIDs(ctx context.Context, reportID int64) ([]int64, error)
}

// ReviewRepository defines persistence operations for Review
type ReviewRepository interface {
	// Create returns ErrUniqueViolation when the reviewer type already ruled
	// on the same round
	Create(ctx context.Context, r *entity.Review) error
	ListByReport(ctx context.Context, reportID int64) ([]*entity.Review, error)
}

// DocumentationRepository defines persistence operations for Documentation
type DocumentationRepository interface {
	Create(ctx context.Context, d *entity.Documentation) error
	GetByID(ctx context.Context, id int64) (*entity.Documentation, error)
	Delete(ctx context.Context, id int64) error
	ListByAssignment(ctx context.Context, assignmentID int64) ([]*entity.Documentation, error)
}

// WorkUnitRepository defines persistence operations for WorkUnit
type WorkUnitRepository interface {
	Create(ctx context.Context, w *entity.WorkUnit) error
	GetByID(ctx context.Context, id int64) (*entity.WorkUnit, error)
	// GetByHead returns the unit headed by userID, or nil
	GetByHead(ctx context.Context, userID int64) (*entity.WorkUnit, error)
	SetHead(ctx context.Context, unitID int64, headID *int64) error
	Delete(ctx context.Context, id int64) error
}

// UserRepository defines persistence operations for User
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*entity.User, error)
	UpdateRoles(ctx context.Context, id int64, roles []entity.Role, workUnitID *int64) error
	// CountReferences counts records outside assignments that point at the user
	CountReferences(ctx context.Context, id int64) (UserReferences, error)
	Delete(ctx context.Context, id int64) error
}

// UserReferences counts rows that keep a user from being deleted
type UserReferences struct {
	Reviews       int
	Documentation int
	Reports       int
}

// Any reports whether some record still references the user
func (r UserReferences) Any() bool {
	return r.Reviews+r.Documentation+r.Reports > 0
}

// FullboardPriceRepository reads the province allowance table
type FullboardPriceRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.FullboardPrice, error)
	List(ctx context.Context) ([]*entity.FullboardPrice, error)
}

// Period is a half-open time range [From, To).
type Period struct {
	From time.Time
	To   time.Time
}

// AssignmentCount selects assignments to count
type AssignmentCount struct {
	CreatedIn     *Period
	StartsIn      *Period
	ParticipantID int64
}

// ReportCount selects reports to count
type ReportCount struct {
	Scope     ReportScope
	Status    entity.ReportStatus
	CreatedIn *Period
	// AssignmentStartsIn limits to reports whose assignment starts in range
	AssignmentStartsIn *Period
}

// StatsRepository answers the aggregate queries behind the dashboard
type StatsRepository interface {
	CountAssignments(ctx context.Context, q AssignmentCount) (int, error)
	CountReports(ctx context.Context, q ReportCount) (int, error)
	CountDocumentation(ctx context.Context) (int, error)
	CountWorkUnits(ctx context.Context) (int, error)
	// CountEmployees excludes admin and superadmin accounts
	CountEmployees(ctx context.Context) (int, error)
	CountFullboardPrices(ctx context.Context) (int, error)

	RecentReports(ctx context.Context, scope ReportScope, limit int) ([]entity.ReportSummary, error)
	RecentAssignments(ctx context.Context, participantID int64, limit int) ([]entity.AssignmentSummary, error)
}
