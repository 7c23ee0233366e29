package workflow

// LifecycleGuards supplies the runtime checks the report lifecycle needs.
type LifecycleGuards struct {
	// CanResubmit vetoes resubmission of a rejected report.
	CanResubmit GuardFunc
}

// NewReportLifecycle builds the report state machine positioned at initial.
//
//	draft     --submit-->   submitted
//	submitted --review-->   submitted   (partial verdict set)
//	submitted --approve-->  approved
//	submitted --reject-->   rejected
//	rejected  --resubmit--> submitted   (guarded by CanResubmit)
func NewReportLifecycle(initial State, guards LifecycleGuards) StateMachine {
	b := NewBuilder()

	b.Configure(StateDraft).
		Permit(TriggerSubmit, StateSubmitted)

	b.Configure(StateSubmitted).
		Permit(TriggerReview, StateSubmitted).
		Permit(TriggerApprove, StateApproved).
		Permit(TriggerReject, StateRejected)

	b.Configure(StateRejected).
		PermitIf(TriggerResubmit, StateSubmitted, guards.CanResubmit)

	// approved is terminal

	return b.Build(initial)
}

// TriggerFor returns the trigger that moves a submitted report to the
// resolved state.
func TriggerFor(resolved State) Trigger {
	switch resolved {
	case StateApproved:
		return TriggerApprove
	case StateRejected:
		return TriggerReject
	default:
		return TriggerReview
	}
}
