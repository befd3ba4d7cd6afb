package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"roomledger/internal/amqp"
	"roomledger/internal/core"
	"roomledger/internal/storage"
)

// ExpenseService orchestrates expense writes across SQLite and AMQP. Events
// are published best effort: a broker outage never fails a request that
// already committed locally.
type ExpenseService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
	views      *LedgerViews
}

func NewExpenseService(storage *storage.SQLiteRepository, amqpClient *amqp.Client, views *LedgerViews) *ExpenseService {
	return &ExpenseService{
		storage:    storage,
		amqpClient: amqpClient,
		views:      views,
	}
}

// CreateExpense validates and saves a new pending expense, then publishes a
// created event.
func (s *ExpenseService) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if e.Status == "" {
		e.Status = core.StatusPending
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	if _, err := s.storage.GetRoom(ctx, e.RoomID); err != nil {
		return core.Expense{}, err
	}

	if err := s.storage.CreateExpense(ctx, &e); err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	s.invalidateViews(e)

	msg := amqp.NewExpenseEventMessage(amqp.EventExpenseCreated, e.ID, e.RoomID, string(e.Status), "")
	if err := s.publishEvent(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish created event",
			"expense_id", e.ID, "error", err)
	}

	return e, nil
}

// SetExpenseStatus applies a status transition and persists the result. Any
// current status may be overwritten; reverting to pending clears the approval
// fields.
func (s *ExpenseService) SetExpenseStatus(ctx context.Context, expenseID, status, approverID string) (core.Expense, error) {
	expense, err := s.storage.GetExpense(ctx, expenseID)
	if err != nil {
		return core.Expense{}, err
	}

	parsed, err := core.ParseStatus(status)
	if err != nil {
		return core.Expense{}, err
	}

	updated, err := core.SetStatus(expense, parsed, approverID, time.Now().UTC())
	if err != nil {
		return core.Expense{}, err
	}

	if err := s.storage.UpdateExpenseStatus(ctx, updated); err != nil {
		return core.Expense{}, fmt.Errorf("persist status: %w", err)
	}

	s.invalidateViews(updated)

	msg := amqp.NewExpenseEventMessage(amqp.EventExpenseStatusChanged, updated.ID, updated.RoomID, string(updated.Status), approverID)
	if err := s.publishEvent(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish status event",
			"expense_id", updated.ID, "error", err)
	}

	slog.InfoContext(ctx, "Expense status changed",
		"expense_id", updated.ID,
		"room_id", updated.RoomID,
		"status", updated.Status,
		"approver_id", approverID)

	return updated, nil
}

func (s *ExpenseService) GetExpense(ctx context.Context, expenseID string) (core.Expense, error) {
	return s.storage.GetExpense(ctx, expenseID)
}

func (s *ExpenseService) ListExpenses(ctx context.Context, roomID string) ([]core.Expense, error) {
	return s.storage.ListExpenses(ctx, roomID)
}

func (s *ExpenseService) invalidateViews(e core.Expense) {
	if s.views != nil {
		s.views.InvalidateRoom(e.RoomID)
	}
}

func (s *ExpenseService) publishEvent(ctx context.Context, msg *amqp.ExpenseEventMessage) error {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping event")
		return nil
	}
	return s.amqpClient.PublishExpenseEvent(ctx, msg)
}

// Close closes both storage and AMQP connections.
func (s *ExpenseService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close expense service: %v", errs)
	}
	return nil
}
