package core

import (
	"errors"
	"testing"
	"time"
)

func TestSetStatusApprove(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	e := Expense{ID: "e1", Status: StatusPending, Amount: Money{Cents: 1000}}

	got, err := SetStatus(e, StatusApproved, "mgr", now)
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if got.Status != StatusApproved {
		t.Errorf("status = %s, want approved", got.Status)
	}
	if got.ApprovedBy != "mgr" {
		t.Errorf("approvedBy = %q, want mgr", got.ApprovedBy)
	}
	if got.ApprovedAt == nil || !got.ApprovedAt.Equal(now) {
		t.Errorf("approvedAt = %v, want %v", got.ApprovedAt, now)
	}
}

func TestSetStatusPendingClearsApproval(t *testing.T) {
	// Re-opening a terminal expense must always wipe the approval fields,
	// whatever the prior state was.
	stamped := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	priors := []Expense{
		{Status: StatusApproved, ApprovedBy: "mgr", ApprovedAt: &stamped},
		{Status: StatusRejected, ApprovedBy: "mgr", ApprovedAt: &stamped},
		{Status: StatusPending},
	}
	for i, prior := range priors {
		got, err := SetStatus(prior, StatusPending, "mgr", time.Now())
		if err != nil {
			t.Fatalf("case %d: %v", i, err)
		}
		if got.Status != StatusPending {
			t.Errorf("case %d: status = %s, want pending", i, got.Status)
		}
		if got.ApprovedBy != "" || got.ApprovedAt != nil {
			t.Errorf("case %d: approval fields not cleared: by=%q at=%v", i, got.ApprovedBy, got.ApprovedAt)
		}
	}
}

func TestSetStatusOverwritesTerminalState(t *testing.T) {
	// Transitions are not guarded by the prior state: approved can flip
	// straight to rejected.
	stamped := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	e := Expense{Status: StatusApproved, ApprovedBy: "alice", ApprovedAt: &stamped}

	got, err := SetStatus(e, StatusRejected, "bob", now)
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if got.Status != StatusRejected || got.ApprovedBy != "bob" {
		t.Errorf("got status=%s by=%q, want rejected by bob", got.Status, got.ApprovedBy)
	}
	if got.ApprovedAt == nil || !got.ApprovedAt.Equal(now) {
		t.Errorf("approvedAt = %v, want %v", got.ApprovedAt, now)
	}
}

func TestSetStatusMissingApproverTolerated(t *testing.T) {
	got, err := SetStatus(Expense{Status: StatusPending}, StatusApproved, "", time.Now())
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if got.ApprovedBy != "" {
		t.Errorf("approvedBy = %q, want empty", got.ApprovedBy)
	}
	if got.ApprovedAt == nil {
		t.Errorf("approvedAt should be stamped even without an approver")
	}
}

func TestSetStatusInvalid(t *testing.T) {
	for _, bad := range []Status{"bogus", "Approved", "APPROVED", ""} {
		_, err := SetStatus(Expense{Status: StatusPending}, bad, "mgr", time.Now())
		if !errors.Is(err, ErrInvalidStatus) {
			t.Errorf("SetStatus(%q) error = %v, want ErrInvalidStatus", bad, err)
		}
	}
}

func TestParseStatus(t *testing.T) {
	for _, ok := range []string{"pending", "approved", "rejected"} {
		if _, err := ParseStatus(ok); err != nil {
			t.Errorf("ParseStatus(%q) unexpected error: %v", ok, err)
		}
	}
	if _, err := ParseStatus("done"); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("ParseStatus(done) error = %v, want ErrInvalidStatus", err)
	}
}
