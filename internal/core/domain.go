package core

import (
	"errors"
	"strings"
	"time"
)

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

type (
	// Status is the approval state of an expense.
	Status string

	// Room is a household sharing one expense ledger.
	Room struct {
		ID         string
		Name       string
		InviteCode string
		CreatedAt  time.Time
	}

	// Member is a person belonging to a room. The manager is the member
	// allowed (by the access layer, not the core) to approve expenses.
	Member struct {
		ID        string
		Name      string
		IsManager bool
		RoomID    string
		CreatedAt time.Time
	}

	// Expense is one ledger entry. Date is kept as the caller-supplied
	// ISO-8601 string; aggregations parse it defensively and skip
	// unparseable dates in date-bucketed views.
	Expense struct {
		ID          string
		Description string
		Amount      Money
		Category    string
		Date        string
		RoomID      string
		AddedBy     string
		Status      Status
		ApprovedBy  string
		ApprovedAt  *time.Time
	}
)

var (
	ErrInvalidStatus    = errors.New("invalid status")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyCategory    = errors.New("empty category")
	ErrEmptyMember      = errors.New("empty member id")
)

// ParseStatus validates a caller-supplied status value. Only the three
// enumerated states are accepted; anything else is ErrInvalidStatus.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusApproved, StatusRejected:
		return Status(s), nil
	}
	return "", ErrInvalidStatus
}

// IsTerminal reports whether the status carries an approval timestamp.
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

var expenseDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseExpenseDate parses a stored expense date. Callers treat a failure as
// "no date": the expense stays in status-only breakdowns but is excluded
// from every date-bucketed aggregation.
func ParseExpenseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range expenseDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (e Expense) Validate() error {
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if strings.TrimSpace(e.AddedBy) == "" {
		return ErrEmptyMember
	}
	if _, err := ParseStatus(string(e.Status)); err != nil {
		return err
	}
	return nil
}

// Approved filters the ledger snapshot down to approved expenses. Both the
// settlement calculator and the analytics aggregator operate on this subset.
func Approved(expenses []Expense) []Expense {
	out := make([]Expense, 0, len(expenses))
	for _, e := range expenses {
		if e.Status == StatusApproved {
			out = append(out, e)
		}
	}
	return out
}
