package agent

import "github.com/heliohq/helio/internal/approvals"

// PendingAction is a side-effecting tool call held until the user
// approves or denies it on a later turn.
type PendingAction = approvals.Action

// Decision is the caller's structured answer to a pending action.
type Decision struct {
	Token   string
	Approve bool
}
