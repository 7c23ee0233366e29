package workflow

import "github.com/garyjia/travel-report/internal/domain/entity"

// State is a report lifecycle state.
type State string

const (
	StateDraft     State = State(entity.ReportStatusDraft)
	StateSubmitted State = State(entity.ReportStatusSubmitted)
	StateApproved  State = State(entity.ReportStatusApproved)
	StateRejected  State = State(entity.ReportStatusRejected)
)

// StateOf maps a persisted report status onto a lifecycle state.
func StateOf(status entity.ReportStatus) State {
	return State(status)
}

// Status returns the persisted form of the state.
func (s State) Status() entity.ReportStatus {
	return entity.ReportStatus(s)
}

// IsTerminal returns true when no owner or reviewer action can leave the state.
func (s State) IsTerminal() bool {
	return s == StateApproved
}

func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a known lifecycle state.
func (s State) IsValid() bool {
	return entity.ReportStatus(s).IsValid()
}
