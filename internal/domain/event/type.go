package event

// Type identifies the type of domain event
type Type string

const (
	TypeAssignmentCreated    Type = "assignment.created"
	TypeAssignmentUpdated    Type = "assignment.updated"
	TypeAssignmentDeleted    Type = "assignment.deleted"
	TypeReportCreated        Type = "report.created"
	TypeReportUpdated        Type = "report.updated"
	TypeReportSubmitted      Type = "report.submitted"
	TypeReportStatusChanged  Type = "report.status_changed"
	TypeReviewRecorded       Type = "review.recorded"
	TypeDocumentationChanged Type = "documentation.changed"
	TypeEmployeeChanged      Type = "employee.changed"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeAssignmentCreated,
		TypeAssignmentUpdated,
		TypeAssignmentDeleted,
		TypeReportCreated,
		TypeReportUpdated,
		TypeReportSubmitted,
		TypeReportStatusChanged,
		TypeReviewRecorded,
		TypeDocumentationChanged,
		TypeEmployeeChanged:
		return true
	default:
		return false
	}
}

// DataChanging lists event types after which cached aggregates may be stale.
var DataChanging = []Type{
	TypeAssignmentCreated,
	TypeAssignmentUpdated,
	TypeAssignmentDeleted,
	TypeReportCreated,
	TypeReportUpdated,
	TypeReportSubmitted,
	TypeReportStatusChanged,
	TypeReviewRecorded,
	TypeDocumentationChanged,
	TypeEmployeeChanged,
}

// Payload keys
const (
	KeyParticipantIDs = "participant_ids"
	KeyOwnerID        = "owner_id"
	KeyPreviousStatus = "previous_status"
	KeyNewStatus      = "new_status"
	KeyReviewerType   = "reviewer_type"
)
