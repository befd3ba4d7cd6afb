package core

import (
	"testing"
	"time"
)

func TestParseExpenseDate(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"2025-03-01", true},
		{"2025-03-01T10:30:00Z", true},
		{"2025-03-01T10:30:00", true},
		{"not-a-date", false},
		{"", false},
		{"2025-13-45", false},
	}
	for _, tc := range cases {
		_, ok := ParseExpenseDate(tc.in)
		if ok != tc.ok {
			t.Errorf("ParseExpenseDate(%q) ok = %v, want %v", tc.in, ok, tc.ok)
		}
	}

	parsed, ok := ParseExpenseDate("2025-03-01")
	if !ok || !parsed.Equal(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("ParseExpenseDate(2025-03-01) = %v", parsed)
	}
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{
		Description: "Groceries run",
		Amount:      Money{Cents: 12050},
		Category:    "Food",
		Date:        "2025-03-01",
		RoomID:      "room1",
		AddedBy:     "member1",
		Status:      StatusPending,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Expense{
		{Description: "", Amount: Money{Cents: 1}, Category: "c", AddedBy: "m", Status: StatusPending},
		{Description: "a", Amount: Money{Cents: 0}, Category: "c", AddedBy: "m", Status: StatusPending},
		{Description: "a", Amount: Money{Cents: 1}, Category: "", AddedBy: "m", Status: StatusPending},
		{Description: "a", Amount: Money{Cents: 1}, Category: "c", AddedBy: "", Status: StatusPending},
		{Description: "a", Amount: Money{Cents: 1}, Category: "c", AddedBy: "m", Status: "done"},
	}
	for i, e := range bads {
		if err := e.Validate(); err == nil {
			t.Errorf("case %d expected error", i)
		}
	}
}

func TestApprovedFilter(t *testing.T) {
	expenses := []Expense{
		{ID: "1", Status: StatusApproved},
		{ID: "2", Status: StatusPending},
		{ID: "3", Status: StatusRejected},
		{ID: "4", Status: StatusApproved},
	}
	got := Approved(expenses)
	if len(got) != 2 || got[0].ID != "1" || got[1].ID != "4" {
		t.Errorf("Approved() = %+v, want expenses 1 and 4", got)
	}
}
