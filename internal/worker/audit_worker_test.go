package worker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"roomledger/internal/amqp"
	"roomledger/internal/core"
	"roomledger/internal/export/memory"
	"roomledger/internal/storage"
)

func newWorkerFixture(t *testing.T) (*AuditWorker, *storage.SQLiteRepository, *memory.Appender) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	exporter := memory.New()
	return NewAuditWorker(repo, exporter), repo, exporter
}

func seedApprovedExpense(t *testing.T, repo *storage.SQLiteRepository) core.Expense {
	t.Helper()
	room := core.Room{Name: "Casa", InviteCode: "ROOM-TEST01"}
	if err := repo.CreateRoom(context.Background(), &room); err != nil {
		t.Fatalf("CreateRoom() error = %v", err)
	}
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
	return e
}

func TestHandleExpenseEventRecordsAudit(t *testing.T) {
	w, repo, exporter := newWorkerFixture(t)
	e := seedApprovedExpense(t, repo)

	msg := amqp.NewExpenseEventMessage(amqp.EventExpenseCreated, e.ID, e.RoomID, "pending", "")
	if err := w.HandleExpenseEvent(context.Background(), msg); err != nil {
		t.Fatalf("HandleExpenseEvent() error = %v", err)
	}

	entries, err := repo.ListAuditEntries(context.Background(), e.ID)
	if err != nil {
		t.Fatalf("ListAuditEntries() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	if entries[0].EventType != amqp.EventExpenseCreated {
		t.Errorf("EventType = %s, want created", entries[0].EventType)
	}

	// A created event never exports.
	if len(exporter.Rows()) != 0 {
		t.Errorf("exporter received %d rows, want 0", len(exporter.Rows()))
	}
}

func TestHandleExpenseEventExportsApproval(t *testing.T) {
	w, repo, exporter := newWorkerFixture(t)
	e := seedApprovedExpense(t, repo)

	msg := amqp.NewExpenseEventMessage(amqp.EventExpenseStatusChanged, e.ID, e.RoomID, "approved", "bob")
	if err := w.HandleExpenseEvent(context.Background(), msg); err != nil {
		t.Fatalf("HandleExpenseEvent() error = %v", err)
	}

	rows := exporter.Rows()
	if len(rows) != 1 {
		t.Fatalf("exporter received %d rows, want 1", len(rows))
	}
	if rows[0].ID != e.ID || rows[0].Amount.Cents != 12050 {
		t.Errorf("exported row = %+v, want expense %s", rows[0], e.ID)
	}
}

func TestHandleExpenseEventSkipsStaleApproval(t *testing.T) {
	w, repo, exporter := newWorkerFixture(t)
	e := seedApprovedExpense(t, repo)

	// Expense was reverted between event publication and consumption.
	reverted, err := core.SetStatus(e, core.StatusPending, "", time.Now().UTC())
	if err != nil {
		t.Fatalf("SetStatus() error = %v", err)
	}
	if err := repo.UpdateExpenseStatus(context.Background(), reverted); err != nil {
		t.Fatalf("UpdateExpenseStatus() error = %v", err)
	}

	msg := amqp.NewExpenseEventMessage(amqp.EventExpenseStatusChanged, e.ID, e.RoomID, "approved", "bob")
	if err := w.HandleExpenseEvent(context.Background(), msg); err != nil {
		t.Fatalf("HandleExpenseEvent() error = %v", err)
	}

	if len(exporter.Rows()) != 0 {
		t.Errorf("exporter received %d rows for stale approval, want 0", len(exporter.Rows()))
	}
}

func TestHandleExpenseEventMissingExpense(t *testing.T) {
	w, repo, exporter := newWorkerFixture(t)
	room := core.Room{Name: "Casa", InviteCode: "ROOM-TEST02"}
	if err := repo.CreateRoom(context.Background(), &room); err != nil {
		t.Fatalf("CreateRoom() error = %v", err)
	}

	// The audit entry still lands even when the expense no longer exists.
	msg := amqp.NewExpenseEventMessage(amqp.EventExpenseStatusChanged, "gone", room.ID, "approved", "bob")
	if err := w.HandleExpenseEvent(context.Background(), msg); err != nil {
		t.Fatalf("HandleExpenseEvent() error = %v", err)
	}

	entries, err := repo.ListAuditEntries(context.Background(), "gone")
	if err != nil {
		t.Fatalf("ListAuditEntries() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("len(entries) = %d, want 1", len(entries))
	}
	if len(exporter.Rows()) != 0 {
		t.Errorf("exporter received %d rows, want 0", len(exporter.Rows()))
	}
}
