package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"roomledger/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	repo, err := NewSQLiteRepository(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedRoom(t *testing.T, repo *SQLiteRepository) core.Room {
	t.Helper()
	room := core.Room{Name: "Casa", InviteCode: "ROOM-ABC123"}
	if err := repo.CreateRoom(context.Background(), &room); err != nil {
		t.Fatalf("CreateRoom() error = %v", err)
	}
	return room
}

func TestCreateAndGetRoom(t *testing.T) {
	repo := newTestRepo(t)
	room := seedRoom(t, repo)

	if room.ID == "" {
		t.Fatal("CreateRoom() did not assign an ID")
	}

	got, err := repo.GetRoom(context.Background(), room.ID)
	if err != nil {
		t.Fatalf("GetRoom() error = %v", err)
	}
	if got.Name != "Casa" || got.InviteCode != "ROOM-ABC123" {
		t.Errorf("GetRoom() = %+v, want name Casa and code ROOM-ABC123", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("GetRoom() created_at is zero")
	}
}

func TestGetRoomByInviteCode(t *testing.T) {
	repo := newTestRepo(t)
	room := seedRoom(t, repo)

	got, err := repo.GetRoomByInviteCode(context.Background(), "ROOM-ABC123")
	if err != nil {
		t.Fatalf("GetRoomByInviteCode() error = %v", err)
	}
	if got.ID != room.ID {
		t.Errorf("GetRoomByInviteCode() ID = %s, want %s", got.ID, room.ID)
	}

	if _, err := repo.GetRoomByInviteCode(context.Background(), "ROOM-NOPE00"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetRoomByInviteCode(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestGetRoomNotFound(t *testing.T) {
	repo := newTestRepo(t)
	if _, err := repo.GetRoom(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetRoom(missing) error = %v, want ErrNotFound", err)
	}
}

func TestMembersOrderedByEnrollment(t *testing.T) {
	repo := newTestRepo(t)
	room := seedRoom(t, repo)

	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	names := []string{"Alice", "Bob", "Carol"}
	for i, name := range names {
		m := core.Member{
			Name:      name,
			IsManager: i == 0,
			RoomID:    room.ID,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.CreateMember(context.Background(), &m); err != nil {
			t.Fatalf("CreateMember(%s) error = %v", name, err)
		}
	}

	members, err := repo.ListMembers(context.Background(), room.ID)
	if err != nil {
		t.Fatalf("ListMembers() error = %v", err)
	}
	if len(members) != 3 {
		t.Fatalf("ListMembers() returned %d members, want 3", len(members))
	}
	for i, name := range names {
		if members[i].Name != name {
			t.Errorf("members[%d].Name = %s, want %s", i, members[i].Name, name)
		}
	}
	if !members[0].IsManager {
		t.Error("first member should be manager")
	}
	if members[1].IsManager || members[2].IsManager {
		t.Error("later members should not be managers")
	}
}

func TestRoomHasMembers(t *testing.T) {
	repo := newTestRepo(t)
	room := seedRoom(t, repo)

	has, err := repo.RoomHasMembers(context.Background(), room.ID)
	if err != nil {
		t.Fatalf("RoomHasMembers() error = %v", err)
	}
	if has {
		t.Error("RoomHasMembers() = true for empty room")
	}

	m := core.Member{Name: "Alice", RoomID: room.ID}
	if err := repo.CreateMember(context.Background(), &m); err != nil {
		t.Fatalf("CreateMember() error = %v", err)
	}

	has, err = repo.RoomHasMembers(context.Background(), room.ID)
	if err != nil {
		t.Fatalf("RoomHasMembers() error = %v", err)
	}
	if !has {
		t.Error("RoomHasMembers() = false after enrollment")
	}
}

func TestExpenseRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	room := seedRoom(t, repo)

	approvedAt := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	e := core.Expense{
		Description: "Groceries",
		Amount:      core.Money{Cents: 12050},
		Category:    "Food",
		Date:        "2025-03-10",
		RoomID:      room.ID,
		AddedBy:     "alice",
		Status:      core.StatusApproved,
		ApprovedBy:  "bob",
		ApprovedAt:  &approvedAt,
	}
	if err := repo.CreateExpense(context.Background(), &e); err != nil {
		t.Fatalf("CreateExpense() error = %v", err)
	}

	got, err := repo.GetExpense(context.Background(), e.ID)
	if err != nil {
		t.Fatalf("GetExpense() error = %v", err)
	}
	if got.Amount.Cents != 12050 {
		t.Errorf("Amount.Cents = %d, want 12050", got.Amount.Cents)
	}
	if got.Status != core.StatusApproved {
		t.Errorf("Status = %s, want approved", got.Status)
	}
	if got.ApprovedBy != "bob" {
		t.Errorf("ApprovedBy = %s, want bob", got.ApprovedBy)
	}
	if got.ApprovedAt == nil || !got.ApprovedAt.Equal(approvedAt) {
		t.Errorf("ApprovedAt = %v, want %v", got.ApprovedAt, approvedAt)
	}
}

func TestListExpensesNewestFirst(t *testing.T) {
	repo := newTestRepo(t)
	room := seedRoom(t, repo)

	dates := []string{"2025-03-01", "2025-03-15", "2025-03-08"}
	for _, d := range dates {
		e := core.Expense{
			Description: "Expense " + d,
			Amount:      core.Money{Cents: 1000},
			Category:    "Misc",
			Date:        d,
			RoomID:      room.ID,
			AddedBy:     "alice",
			Status:      core.StatusPending,
		}
		if err := repo.CreateExpense(context.Background(), &e); err != nil {
			t.Fatalf("CreateExpense(%s) error = %v", d, err)
		}
	}

	expenses, err := repo.ListExpenses(context.Background(), room.ID)
	if err != nil {
		t.Fatalf("ListExpenses() error = %v", err)
	}
	want := []string{"2025-03-15", "2025-03-08", "2025-03-01"}
	if len(expenses) != len(want) {
		t.Fatalf("ListExpenses() returned %d expenses, want %d", len(expenses), len(want))
	}
	for i, d := range want {
		if expenses[i].Date != d {
			t.Errorf("expenses[%d].Date = %s, want %s", i, expenses[i].Date, d)
		}
	}
}

func TestUpdateExpenseStatus(t *testing.T) {
	repo := newTestRepo(t)
	room := seedRoom(t, repo)

	e := core.Expense{
		Description: "Internet",
		Amount:      core.Money{Cents: 4500},
		Category:    "Utilities",
		Date:        "2025-03-05",
		RoomID:      room.ID,
		AddedBy:     "alice",
		Status:      core.StatusPending,
	}
	if err := repo.CreateExpense(context.Background(), &e); err != nil {
		t.Fatalf("CreateExpense() error = %v", err)
	}

	now := time.Date(2025, 3, 6, 9, 0, 0, 0, time.UTC)
	updated, err := core.SetStatus(e, core.StatusApproved, "bob", now)
	if err != nil {
		t.Fatalf("SetStatus() error = %v", err)
	}
	if err := repo.UpdateExpenseStatus(context.Background(), updated); err != nil {
		t.Fatalf("UpdateExpenseStatus() error = %v", err)
	}

	got, err := repo.GetExpense(context.Background(), e.ID)
	if err != nil {
		t.Fatalf("GetExpense() error = %v", err)
	}
	if got.Status != core.StatusApproved || got.ApprovedBy != "bob" || got.ApprovedAt == nil {
		t.Errorf("after update: status=%s approvedBy=%s approvedAt=%v", got.Status, got.ApprovedBy, got.ApprovedAt)
	}

	// Reverting to pending clears the approval fields in the store too.
	reverted, err := core.SetStatus(got, core.StatusPending, "", now)
	if err != nil {
		t.Fatalf("SetStatus(pending) error = %v", err)
	}
	if err := repo.UpdateExpenseStatus(context.Background(), reverted); err != nil {
		t.Fatalf("UpdateExpenseStatus(pending) error = %v", err)
	}
	got, err = repo.GetExpense(context.Background(), e.ID)
	if err != nil {
		t.Fatalf("GetExpense() error = %v", err)
	}
	if got.Status != core.StatusPending || got.ApprovedBy != "" || got.ApprovedAt != nil {
		t.Errorf("after revert: status=%s approvedBy=%q approvedAt=%v", got.Status, got.ApprovedBy, got.ApprovedAt)
	}
}

func TestUpdateExpenseStatusNotFound(t *testing.T) {
	repo := newTestRepo(t)
	e := core.Expense{ID: "missing", Status: core.StatusApproved}
	if err := repo.UpdateExpenseStatus(context.Background(), e); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateExpenseStatus(missing) error = %v, want ErrNotFound", err)
	}
}

func TestAuditTrail(t *testing.T) {
	repo := newTestRepo(t)
	room := seedRoom(t, repo)

	base := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	events := []AuditEntry{
		{ExpenseID: "exp-1", RoomID: room.ID, EventType: "created", Status: core.StatusPending, CreatedAt: base},
		{ExpenseID: "exp-1", RoomID: room.ID, EventType: "status_changed", Status: core.StatusApproved, ActorID: "bob", CreatedAt: base.Add(time.Hour)},
	}
	for _, entry := range events {
		if err := repo.AppendAuditEntry(context.Background(), entry); err != nil {
			t.Fatalf("AppendAuditEntry() error = %v", err)
		}
	}

	entries, err := repo.ListAuditEntries(context.Background(), "exp-1")
	if err != nil {
		t.Fatalf("ListAuditEntries() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("ListAuditEntries() returned %d entries, want 2", len(entries))
	}
	if entries[0].EventType != "created" || entries[1].EventType != "status_changed" {
		t.Errorf("entries out of order: %s, %s", entries[0].EventType, entries[1].EventType)
	}
	if entries[1].ActorID != "bob" {
		t.Errorf("entries[1].ActorID = %s, want bob", entries[1].ActorID)
	}
	if entries[0].ActorID != "" {
		t.Errorf("entries[0].ActorID = %q, want empty", entries[0].ActorID)
	}
}
