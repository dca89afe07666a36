package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"ledgerd/internal/core"

	sqlite3 "modernc.org/sqlite"
)

// LedgerStore is the durable store for transactions, budgets, and group
// membership, backed by SQLite. All mutations are scoped by owner; the
// uniqueness of (owner, category) budgets is enforced by the schema, not
// by application locks.
type LedgerStore struct {
	db      *sql.DB
	queries *Queries
}

func NewLedgerStore(dbPath string) (*LedgerStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &LedgerStore{
		db:      db,
		queries: New(db),
	}, nil
}

func (s *LedgerStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping verifies the database connection, for readiness probes.
func (s *LedgerStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// isUniqueViolation reports whether err is a SQLite unique or primary
// key constraint failure.
func isUniqueViolation(err error) bool {
	var se *sqlite3.Error
	if errors.As(err, &se) {
		// SQLITE_CONSTRAINT_UNIQUE and SQLITE_CONSTRAINT_PRIMARYKEY
		return se.Code() == 2067 || se.Code() == 1555
	}
	return false
}

func (s *LedgerStore) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	row, err := s.queries.CreateTransaction(ctx, CreateTransactionParams{
		Owner:       tx.Owner,
		Type:        string(tx.Type),
		AmountCents: tx.Amount.Cents,
		Category:    tx.Category,
		Description: tx.Description,
		Date:        tx.Date.String(),
		PostedBy:    tx.PostedBy,
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", row.ID,
		"owner", row.Owner,
		"type", row.Type,
		"category", row.Category,
		"amount_cents", row.AmountCents,
		"date", row.Date)

	return transactionFromRow(row)
}

func (s *LedgerStore) GetTransaction(ctx context.Context, owner string, id int64) (core.Transaction, error) {
	row, err := s.queries.GetTransaction(ctx, owner, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return transactionFromRow(row)
}

func (s *LedgerStore) ListTransactions(ctx context.Context, owner string) ([]core.Transaction, error) {
	rows, err := s.queries.ListTransactions(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	items := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		tx, err := transactionFromRow(row)
		if err != nil {
			return nil, err
		}
		items = append(items, tx)
	}
	return items, nil
}

func (s *LedgerStore) UpdateTransaction(ctx context.Context, tx core.Transaction) error {
	affected, err := s.queries.UpdateTransaction(ctx, UpdateTransactionParams{
		Type:        string(tx.Type),
		AmountCents: tx.Amount.Cents,
		Category:    tx.Category,
		Description: tx.Description,
		Date:        tx.Date.String(),
		Owner:       tx.Owner,
		ID:          tx.ID,
	})
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *LedgerStore) DeleteTransaction(ctx context.Context, owner string, id int64) error {
	affected, err := s.queries.DeleteTransaction(ctx, owner, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	slog.InfoContext(ctx, "Transaction deleted", "id", id, "owner", owner)
	return nil
}

// SumExpenses is the range-aggregate behind budget usage: the exact sum
// of EXPENSE amounts for (owner, category) inside [start, end]. An empty
// result set yields zero; unknown owners or categories are just empty.
func (s *LedgerStore) SumExpenses(ctx context.Context, owner, category string, start, end core.Date) (core.Money, error) {
	sum, err := s.queries.SumExpensesInWindow(ctx, SumExpensesInWindowParams{
		Owner:     owner,
		Category:  category,
		StartDate: start.String(),
		EndDate:   end.String(),
	})
	if err != nil {
		return core.Money{}, fmt.Errorf("sum expenses: %w", err)
	}
	return core.Money{Cents: sum}, nil
}

// SumByType aggregates all of an owner's transactions of one type inside
// the window, for monthly income/expense summaries.
func (s *LedgerStore) SumByType(ctx context.Context, owner string, typ core.TxType, start, end core.Date) (core.Money, error) {
	sum, err := s.queries.SumByTypeInWindow(ctx, SumByTypeInWindowParams{
		Owner:     owner,
		Type:      string(typ),
		StartDate: start.String(),
		EndDate:   end.String(),
	})
	if err != nil {
		return core.Money{}, fmt.Errorf("sum by type: %w", err)
	}
	return core.Money{Cents: sum}, nil
}

func (s *LedgerStore) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	row, err := s.queries.CreateBudget(ctx, CreateBudgetParams{
		Owner:      b.Owner,
		Category:   b.Category,
		LimitCents: b.Limit.Cents,
	})
	if isUniqueViolation(err) {
		return core.Budget{}, core.ErrConflict
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}

	slog.InfoContext(ctx, "Budget saved",
		"id", row.ID,
		"owner", row.Owner,
		"category", row.Category,
		"limit_cents", row.LimitCents)

	return budgetFromRow(row), nil
}

func (s *LedgerStore) GetBudget(ctx context.Context, owner string, id int64) (core.Budget, error) {
	row, err := s.queries.GetBudget(ctx, owner, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, core.ErrNotFound
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}
	return budgetFromRow(row), nil
}

// ListBudgets returns the owner's budgets in insertion order.
func (s *LedgerStore) ListBudgets(ctx context.Context, owner string) ([]core.Budget, error) {
	rows, err := s.queries.ListBudgets(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	items := make([]core.Budget, 0, len(rows))
	for _, row := range rows {
		items = append(items, budgetFromRow(row))
	}
	return items, nil
}

func (s *LedgerStore) UpdateBudget(ctx context.Context, b core.Budget) error {
	affected, err := s.queries.UpdateBudget(ctx, UpdateBudgetParams{
		Category:   b.Category,
		LimitCents: b.Limit.Cents,
		Owner:      b.Owner,
		ID:         b.ID,
	})
	if isUniqueViolation(err) {
		return core.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("update budget: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *LedgerStore) DeleteBudget(ctx context.Context, owner string, id int64) error {
	affected, err := s.queries.DeleteBudget(ctx, owner, id)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	slog.InfoContext(ctx, "Budget deleted", "id", id, "owner", owner)
	return nil
}

func (s *LedgerStore) AddGroupMember(ctx context.Context, m core.GroupMember) error {
	err := s.queries.AddGroupMember(ctx, AddGroupMemberParams{
		GroupID: m.GroupID,
		UserID:  m.UserID,
		Role:    string(m.Role),
	})
	if isUniqueViolation(err) {
		return core.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("add group member: %w", err)
	}
	return nil
}

func (s *LedgerStore) GetGroupMember(ctx context.Context, groupID int64, userID string) (core.GroupMember, error) {
	row, err := s.queries.GetGroupMember(ctx, groupID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.GroupMember{}, core.ErrNotFound
	}
	if err != nil {
		return core.GroupMember{}, fmt.Errorf("get group member: %w", err)
	}
	return memberFromRow(row), nil
}

func (s *LedgerStore) ListGroupMembers(ctx context.Context, groupID int64) ([]core.GroupMember, error) {
	rows, err := s.queries.ListGroupMembers(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("list group members: %w", err)
	}
	items := make([]core.GroupMember, 0, len(rows))
	for _, row := range rows {
		items = append(items, memberFromRow(row))
	}
	return items, nil
}

func (s *LedgerStore) RemoveGroupMember(ctx context.Context, groupID int64, userID string) error {
	affected, err := s.queries.DeleteGroupMember(ctx, groupID, userID)
	if err != nil {
		return fmt.Errorf("remove group member: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *LedgerStore) CountGroupMembers(ctx context.Context, groupID int64) (int64, error) {
	n, err := s.queries.CountGroupMembers(ctx, groupID)
	if err != nil {
		return 0, fmt.Errorf("count group members: %w", err)
	}
	return n, nil
}

// PendingSync holds the minimal data the export pipeline needs to queue
// a transaction for the worker.
type PendingSync struct {
	ID      int64
	Version int64
}

func (s *LedgerStore) GetPendingSyncTransactions(ctx context.Context, limit int) ([]PendingSync, error) {
	rows, err := s.queries.GetPendingSyncTransactions(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get pending sync transactions: %w", err)
	}
	items := make([]PendingSync, 0, len(rows))
	for _, row := range rows {
		items = append(items, PendingSync{ID: row.ID, Version: row.Version})
	}
	return items, nil
}

// GetTransactionByID fetches without owner scoping, for the worker only.
func (s *LedgerStore) GetTransactionByID(ctx context.Context, id int64) (core.Transaction, error) {
	row, err := s.queries.GetTransactionByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction by id: %w", err)
	}
	return transactionFromRow(row)
}

func (s *LedgerStore) MarkSynced(ctx context.Context, id int64) error {
	if err := s.queries.MarkTransactionSynced(ctx, id); err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}
	slog.InfoContext(ctx, "Transaction marked as synced", "id", id)
	return nil
}

func (s *LedgerStore) MarkSyncError(ctx context.Context, id int64) error {
	if err := s.queries.MarkTransactionSyncError(ctx, id); err != nil {
		return fmt.Errorf("mark transaction sync error: %w", err)
	}
	slog.WarnContext(ctx, "Transaction marked with sync error", "id", id)
	return nil
}

func transactionFromRow(row Transaction) (core.Transaction, error) {
	date, err := core.ParseDate(row.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse stored date %q: %w", row.Date, err)
	}
	return core.Transaction{
		ID:          row.ID,
		Owner:       row.Owner,
		Type:        core.TxType(row.Type),
		Amount:      core.Money{Cents: row.AmountCents},
		Category:    row.Category,
		Description: row.Description,
		Date:        date,
		PostedBy:    row.PostedBy,
	}, nil
}

func budgetFromRow(row Budget) core.Budget {
	return core.Budget{
		ID:       row.ID,
		Owner:    row.Owner,
		Category: row.Category,
		Limit:    core.Money{Cents: row.LimitCents},
	}
}

func memberFromRow(row GroupMember) core.GroupMember {
	m := core.GroupMember{
		GroupID: row.GroupID,
		UserID:  row.UserID,
		Role:    core.MemberRole(row.Role),
	}
	// joined_at is set by the schema; best-effort parse, zero on failure.
	if t, err := parseStoreTime(row.JoinedAt); err == nil {
		m.JoinedAt = t
	}
	return m
}

// parseStoreTime parses SQLite's datetime('now') text format.
func parseStoreTime(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02 15:04:05", s, time.UTC)
}
