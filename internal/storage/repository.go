// Package storage implements the SQLite-backed ledger store. It is the only
// stateful collaborator of the core: everything else consumes snapshots read
// from here.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"roomledger/internal/core"
	applog "roomledger/internal/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

const timeLayout = time.RFC3339

// AuditEntry is one row of the expense audit trail, written by the worker
// from published expense events.
type AuditEntry struct {
	ID        string
	ExpenseID string
	RoomID    string
	EventType string
	Status    core.Status
	ActorID   string
	CreatedAt time.Time
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := migrateSchema(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// migrateSchema applies the embedded migrations on a dedicated connection,
// since golang-migrate takes ownership of the *sql.DB it wraps.
func migrateSchema(dbPath string) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer db.Close()

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("wrap migration connection: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("init migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Ping verifies the database connection, used by readiness checks.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateRoom persists a room, generating an ID and timestamp when absent.
func (r *SQLiteRepository) CreateRoom(ctx context.Context, room *core.Room) error {
	if room.ID == "" {
		room.ID = uuid.New().String()
	}
	if room.CreatedAt.IsZero() {
		room.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO rooms (id, name, invite_code, created_at) VALUES (?, ?, ?, ?)",
		room.ID, room.Name, room.InviteCode, room.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert room: %w", err)
	}

	slog.InfoContext(ctx, "Room created",
		applog.FieldRoomID, room.ID,
		"invite_code", room.InviteCode,
		applog.FieldComponent, applog.ComponentStorage)
	return nil
}

func (r *SQLiteRepository) GetRoom(ctx context.Context, roomID string) (core.Room, error) {
	var room core.Room
	var createdAt string
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, invite_code, created_at FROM rooms WHERE id = ?",
		roomID,
	).Scan(&room.ID, &room.Name, &room.InviteCode, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Room{}, ErrNotFound
	}
	if err != nil {
		return core.Room{}, fmt.Errorf("get room: %w", err)
	}
	room.CreatedAt = parseTime(createdAt)
	return room, nil
}

// GetRoomByInviteCode resolves an invite code, used to enroll new members.
func (r *SQLiteRepository) GetRoomByInviteCode(ctx context.Context, code string) (core.Room, error) {
	var room core.Room
	var createdAt string
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, invite_code, created_at FROM rooms WHERE invite_code = ?",
		code,
	).Scan(&room.ID, &room.Name, &room.InviteCode, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Room{}, ErrNotFound
	}
	if err != nil {
		return core.Room{}, fmt.Errorf("get room by invite code: %w", err)
	}
	room.CreatedAt = parseTime(createdAt)
	return room, nil
}

func (r *SQLiteRepository) CreateMember(ctx context.Context, m *core.Member) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO members (id, name, is_manager, room_id, created_at) VALUES (?, ?, ?, ?, ?)",
		m.ID, m.Name, boolToInt(m.IsManager), m.RoomID, m.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert member: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetMember(ctx context.Context, memberID string) (core.Member, error) {
	var m core.Member
	var isManager int
	var createdAt string
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, is_manager, room_id, created_at FROM members WHERE id = ?",
		memberID,
	).Scan(&m.ID, &m.Name, &isManager, &m.RoomID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Member{}, ErrNotFound
	}
	if err != nil {
		return core.Member{}, fmt.Errorf("get member: %w", err)
	}
	m.IsManager = isManager != 0
	m.CreatedAt = parseTime(createdAt)
	return m, nil
}

// ListMembers returns a room's members in enrollment order.
func (r *SQLiteRepository) ListMembers(ctx context.Context, roomID string) ([]core.Member, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, is_manager, room_id, created_at FROM members WHERE room_id = ? ORDER BY created_at ASC, id ASC",
		roomID,
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []core.Member
	for rows.Next() {
		var m core.Member
		var isManager int
		var createdAt string
		if err := rows.Scan(&m.ID, &m.Name, &isManager, &m.RoomID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		m.IsManager = isManager != 0
		m.CreatedAt = parseTime(createdAt)
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return members, nil
}

// RoomHasMembers reports whether anyone has joined the room yet. The first
// member to join becomes the manager.
func (r *SQLiteRepository) RoomHasMembers(ctx context.Context, roomID string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM members WHERE room_id = ?", roomID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("count members: %w", err)
	}
	return count > 0, nil
}

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e *core.Expense) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (id, description, amount_cents, category, date, room_id, added_by, status, approved_by, approved_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Description, e.Amount.Cents, e.Category, e.Date, e.RoomID, e.AddedBy,
		string(e.Status), nullString(e.ApprovedBy), nullTime(e.ApprovedAt),
		time.Now().UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		applog.FieldExpenseID, e.ID,
		applog.FieldRoomID, e.RoomID,
		applog.FieldAmount, e.Amount.Cents,
		applog.FieldCategory, e.Category,
		applog.FieldComponent, applog.ComponentStorage)
	return nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, expenseID string) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, description, amount_cents, category, date, room_id, added_by, status, approved_by, approved_at
		 FROM expenses WHERE id = ?`, expenseID,
	)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

// ListExpenses returns the full ledger for a room, newest first.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, roomID string) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, description, amount_cents, category, date, room_id, added_by, status, approved_by, approved_at
		 FROM expenses WHERE room_id = ? ORDER BY date DESC, created_at DESC`, roomID,
	)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return expenses, nil
}

// UpdateExpenseStatus persists the result of a status transition. Concurrent
// transitions race here with last-write-wins semantics; the store keeps no
// version column.
func (r *SQLiteRepository) UpdateExpenseStatus(ctx context.Context, e core.Expense) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE expenses SET status = ?, approved_by = ?, approved_at = ? WHERE id = ?",
		string(e.Status), nullString(e.ApprovedBy), nullTime(e.ApprovedAt), e.ID,
	)
	if err != nil {
		return fmt.Errorf("update expense status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) AppendAuditEntry(ctx context.Context, entry AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO expense_audit (id, expense_id, room_id, event_type, status, actor_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.ExpenseID, entry.RoomID, entry.EventType,
		string(entry.Status), nullString(entry.ActorID), entry.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// ListAuditEntries returns an expense's audit trail, oldest first.
func (r *SQLiteRepository) ListAuditEntries(ctx context.Context, expenseID string) ([]AuditEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, expense_id, room_id, event_type, status, actor_id, created_at
		 FROM expense_audit WHERE expense_id = ? ORDER BY created_at ASC, id ASC`, expenseID,
	)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var entry AuditEntry
		var status string
		var actor sql.NullString
		var createdAt string
		if err := rows.Scan(&entry.ID, &entry.ExpenseID, &entry.RoomID, &entry.EventType, &status, &actor, &createdAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entry.Status = core.Status(status)
		entry.ActorID = actor.String
		entry.CreatedAt = parseTime(createdAt)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var e core.Expense
	var status string
	var approvedBy sql.NullString
	var approvedAt sql.NullString
	err := row.Scan(&e.ID, &e.Description, &e.Amount.Cents, &e.Category, &e.Date,
		&e.RoomID, &e.AddedBy, &status, &approvedBy, &approvedAt)
	if err != nil {
		return core.Expense{}, err
	}
	e.Status = core.Status(status)
	e.ApprovedBy = approvedBy.String
	if approvedAt.Valid {
		t := parseTime(approvedAt.String)
		e.ApprovedAt = &t
	}
	return e, nil
}

func parseTime(value string) time.Time {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(timeLayout), Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
