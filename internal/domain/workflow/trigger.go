package workflow

// Trigger represents an action that can move a report between states
type Trigger string

const (
	TriggerSubmit   Trigger = "submit"
	TriggerReview   Trigger = "review"
	TriggerApprove  Trigger = "approve"
	TriggerReject   Trigger = "reject"
	TriggerResubmit Trigger = "resubmit"
)

func (t Trigger) String() string {
	return string(t)
}
