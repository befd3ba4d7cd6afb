package core

import "time"

// SetStatus applies a status transition to an expense and returns the
// modified copy. The transition is deliberately permissive: any prior state
// may be overwritten, including re-opening a terminal expense back to
// pending. That keeps the operation an idempotent overwrite; whoever is
// allowed to call it is a question for the access layer, which checks the
// acting member's manager flag before reaching the core.
//
// pending clears the approval fields; approved and rejected stamp ApprovedAt
// with now and record approverID, which may be empty (a transition without an
// approver is tolerated, not rejected).
//
// ErrInvalidStatus is the only failure and must be surfaced to the caller.
func SetStatus(e Expense, status Status, approverID string, now time.Time) (Expense, error) {
	if _, err := ParseStatus(string(status)); err != nil {
		return Expense{}, err
	}

	e.Status = status
	if status == StatusPending {
		e.ApprovedBy = ""
		e.ApprovedAt = nil
		return e, nil
	}

	approvedAt := now
	e.ApprovedAt = &approvedAt
	e.ApprovedBy = approverID
	return e, nil
}
