// Package worker consumes expense events and maintains the audit trail,
// mirroring approved expenses to the configured sheet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"roomledger/internal/amqp"
	"roomledger/internal/core"
	"roomledger/internal/export"
	applog "roomledger/internal/log"
	"roomledger/internal/storage"
)

type AuditWorker struct {
	storage  *storage.SQLiteRepository
	exporter export.ExpenseAppender
}

func NewAuditWorker(storage *storage.SQLiteRepository, exporter export.ExpenseAppender) *AuditWorker {
	return &AuditWorker{
		storage:  storage,
		exporter: exporter,
	}
}

// HandleExpenseEvent records one event in the audit trail. Approval events
// additionally mirror the expense to the export sheet.
func (w *AuditWorker) HandleExpenseEvent(ctx context.Context, msg *amqp.ExpenseEventMessage) error {
	entry := storage.AuditEntry{
		ExpenseID: msg.ExpenseID,
		RoomID:    msg.RoomID,
		EventType: msg.Type,
		Status:    core.Status(msg.Status),
		ActorID:   msg.ApproverID,
		CreatedAt: msg.Timestamp.UTC(),
	}
	if err := w.storage.AppendAuditEntry(ctx, entry); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}

	slog.InfoContext(ctx, "Audit entry recorded",
		"type", msg.Type,
		applog.FieldExpenseID, msg.ExpenseID,
		applog.FieldRoomID, msg.RoomID,
		applog.FieldStatus, msg.Status,
		applog.FieldComponent, applog.ComponentWorker)

	if msg.Type == amqp.EventExpenseStatusChanged && msg.Status == string(core.StatusApproved) {
		if err := w.exportExpense(ctx, msg.ExpenseID); err != nil {
			// The audit entry is already committed; export failures only log.
			slog.ErrorContext(ctx, "Failed to export approved expense",
				"expense_id", msg.ExpenseID, "error", err)
		}
	}

	return nil
}

func (w *AuditWorker) exportExpense(ctx context.Context, expenseID string) error {
	if w.exporter == nil {
		return nil
	}

	expense, err := w.storage.GetExpense(ctx, expenseID)
	if errors.Is(err, storage.ErrNotFound) {
		slog.WarnContext(ctx, "Expense gone before export", "expense_id", expenseID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get expense: %w", err)
	}

	// The status may have moved again since the event was queued.
	if expense.Status != core.StatusApproved {
		return nil
	}

	ref, err := w.exporter.Append(ctx, expense)
	if err != nil {
		return fmt.Errorf("append to export: %w", err)
	}

	slog.InfoContext(ctx, "Exported approved expense",
		"expense_id", expenseID,
		"export_ref", ref)
	return nil
}
