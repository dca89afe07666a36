package storage

import (
	"context"
	"database/sql"
)

// DBTX is the subset of *sql.DB and *sql.Tx the query layer needs.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// Queries holds the raw SQL for the ledger schema. Row types mirror the
// table columns one to one; mapping to domain types happens in the
// repository above.
type Queries struct {
	db DBTX
}

type Transaction struct {
	ID          int64
	Owner       string
	Type        string
	AmountCents int64
	Category    string
	Description string
	Date        string
	PostedBy    string
	SyncStatus  string
	SyncedAt    sql.NullString
	Version     int64
	CreatedAt   string
}

type Budget struct {
	ID         int64
	Owner      string
	Category   string
	LimitCents int64
	CreatedAt  string
}

type GroupMember struct {
	GroupID  int64
	UserID   string
	Role     string
	JoinedAt string
}

const createTransaction = `
INSERT INTO transactions (owner, type, amount_cents, category, description, date, posted_by)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING id, owner, type, amount_cents, category, description, date, posted_by, sync_status, synced_at, version, created_at
`

type CreateTransactionParams struct {
	Owner       string
	Type        string
	AmountCents int64
	Category    string
	Description string
	Date        string
	PostedBy    string
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, createTransaction,
		arg.Owner, arg.Type, arg.AmountCents, arg.Category, arg.Description, arg.Date, arg.PostedBy)
	var t Transaction
	err := row.Scan(&t.ID, &t.Owner, &t.Type, &t.AmountCents, &t.Category, &t.Description,
		&t.Date, &t.PostedBy, &t.SyncStatus, &t.SyncedAt, &t.Version, &t.CreatedAt)
	return t, err
}

const getTransaction = `
SELECT id, owner, type, amount_cents, category, description, date, posted_by, sync_status, synced_at, version, created_at
FROM transactions
WHERE owner = ? AND id = ?
`

func (q *Queries) GetTransaction(ctx context.Context, owner string, id int64) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, getTransaction, owner, id)
	var t Transaction
	err := row.Scan(&t.ID, &t.Owner, &t.Type, &t.AmountCents, &t.Category, &t.Description,
		&t.Date, &t.PostedBy, &t.SyncStatus, &t.SyncedAt, &t.Version, &t.CreatedAt)
	return t, err
}

const getTransactionByID = `
SELECT id, owner, type, amount_cents, category, description, date, posted_by, sync_status, synced_at, version, created_at
FROM transactions
WHERE id = ?
`

// GetTransactionByID looks a transaction up without owner scoping. Only
// the export worker uses it; request paths always go through
// GetTransaction.
func (q *Queries) GetTransactionByID(ctx context.Context, id int64) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, getTransactionByID, id)
	var t Transaction
	err := row.Scan(&t.ID, &t.Owner, &t.Type, &t.AmountCents, &t.Category, &t.Description,
		&t.Date, &t.PostedBy, &t.SyncStatus, &t.SyncedAt, &t.Version, &t.CreatedAt)
	return t, err
}

const listTransactions = `
SELECT id, owner, type, amount_cents, category, description, date, posted_by, sync_status, synced_at, version, created_at
FROM transactions
WHERE owner = ?
ORDER BY id
`

func (q *Queries) ListTransactions(ctx context.Context, owner string) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.Owner, &t.Type, &t.AmountCents, &t.Category, &t.Description,
			&t.Date, &t.PostedBy, &t.SyncStatus, &t.SyncedAt, &t.Version, &t.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

const updateTransaction = `
UPDATE transactions
SET type = ?, amount_cents = ?, category = ?, description = ?, date = ?,
    sync_status = 'pending', version = version + 1
WHERE owner = ? AND id = ?
`

type UpdateTransactionParams struct {
	Type        string
	AmountCents int64
	Category    string
	Description string
	Date        string
	Owner       string
	ID          int64
}

func (q *Queries) UpdateTransaction(ctx context.Context, arg UpdateTransactionParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateTransaction,
		arg.Type, arg.AmountCents, arg.Category, arg.Description, arg.Date, arg.Owner, arg.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteTransaction = `
DELETE FROM transactions WHERE owner = ? AND id = ?
`

func (q *Queries) DeleteTransaction(ctx context.Context, owner string, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTransaction, owner, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const sumExpensesInWindow = `
SELECT COALESCE(SUM(amount_cents), 0)
FROM transactions
WHERE owner = ? AND category = ? AND type = 'EXPENSE' AND date BETWEEN ? AND ?
`

type SumExpensesInWindowParams struct {
	Owner     string
	Category  string
	StartDate string
	EndDate   string
}

func (q *Queries) SumExpensesInWindow(ctx context.Context, arg SumExpensesInWindowParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, sumExpensesInWindow, arg.Owner, arg.Category, arg.StartDate, arg.EndDate)
	var sum int64
	err := row.Scan(&sum)
	return sum, err
}

const sumByTypeInWindow = `
SELECT COALESCE(SUM(amount_cents), 0)
FROM transactions
WHERE owner = ? AND type = ? AND date BETWEEN ? AND ?
`

type SumByTypeInWindowParams struct {
	Owner     string
	Type      string
	StartDate string
	EndDate   string
}

func (q *Queries) SumByTypeInWindow(ctx context.Context, arg SumByTypeInWindowParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, sumByTypeInWindow, arg.Owner, arg.Type, arg.StartDate, arg.EndDate)
	var sum int64
	err := row.Scan(&sum)
	return sum, err
}

const createBudget = `
INSERT INTO budgets (owner, category, limit_cents)
VALUES (?, ?, ?)
RETURNING id, owner, category, limit_cents, created_at
`

type CreateBudgetParams struct {
	Owner      string
	Category   string
	LimitCents int64
}

func (q *Queries) CreateBudget(ctx context.Context, arg CreateBudgetParams) (Budget, error) {
	row := q.db.QueryRowContext(ctx, createBudget, arg.Owner, arg.Category, arg.LimitCents)
	var b Budget
	err := row.Scan(&b.ID, &b.Owner, &b.Category, &b.LimitCents, &b.CreatedAt)
	return b, err
}

const getBudget = `
SELECT id, owner, category, limit_cents, created_at
FROM budgets
WHERE owner = ? AND id = ?
`

func (q *Queries) GetBudget(ctx context.Context, owner string, id int64) (Budget, error) {
	row := q.db.QueryRowContext(ctx, getBudget, owner, id)
	var b Budget
	err := row.Scan(&b.ID, &b.Owner, &b.Category, &b.LimitCents, &b.CreatedAt)
	return b, err
}

const listBudgets = `
SELECT id, owner, category, limit_cents, created_at
FROM budgets
WHERE owner = ?
ORDER BY id
`

func (q *Queries) ListBudgets(ctx context.Context, owner string) ([]Budget, error) {
	rows, err := q.db.QueryContext(ctx, listBudgets, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Budget
	for rows.Next() {
		var b Budget
		if err := rows.Scan(&b.ID, &b.Owner, &b.Category, &b.LimitCents, &b.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, rows.Err()
}

const updateBudget = `
UPDATE budgets
SET category = ?, limit_cents = ?
WHERE owner = ? AND id = ?
`

type UpdateBudgetParams struct {
	Category   string
	LimitCents int64
	Owner      string
	ID         int64
}

func (q *Queries) UpdateBudget(ctx context.Context, arg UpdateBudgetParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateBudget, arg.Category, arg.LimitCents, arg.Owner, arg.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteBudget = `
DELETE FROM budgets WHERE owner = ? AND id = ?
`

func (q *Queries) DeleteBudget(ctx context.Context, owner string, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteBudget, owner, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const addGroupMember = `
INSERT INTO group_members (group_id, user_id, role)
VALUES (?, ?, ?)
`

type AddGroupMemberParams struct {
	GroupID int64
	UserID  string
	Role    string
}

func (q *Queries) AddGroupMember(ctx context.Context, arg AddGroupMemberParams) error {
	_, err := q.db.ExecContext(ctx, addGroupMember, arg.GroupID, arg.UserID, arg.Role)
	return err
}

const getGroupMember = `
SELECT group_id, user_id, role, joined_at
FROM group_members
WHERE group_id = ? AND user_id = ?
`

func (q *Queries) GetGroupMember(ctx context.Context, groupID int64, userID string) (GroupMember, error) {
	row := q.db.QueryRowContext(ctx, getGroupMember, groupID, userID)
	var m GroupMember
	err := row.Scan(&m.GroupID, &m.UserID, &m.Role, &m.JoinedAt)
	return m, err
}

const listGroupMembers = `
SELECT group_id, user_id, role, joined_at
FROM group_members
WHERE group_id = ?
ORDER BY joined_at, user_id
`

func (q *Queries) ListGroupMembers(ctx context.Context, groupID int64) ([]GroupMember, error) {
	rows, err := q.db.QueryContext(ctx, listGroupMembers, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GroupMember
	for rows.Next() {
		var m GroupMember
		if err := rows.Scan(&m.GroupID, &m.UserID, &m.Role, &m.JoinedAt); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

const deleteGroupMember = `
DELETE FROM group_members WHERE group_id = ? AND user_id = ?
`

func (q *Queries) DeleteGroupMember(ctx context.Context, groupID int64, userID string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteGroupMember, groupID, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const countGroupMembers = `
SELECT COUNT(*) FROM group_members WHERE group_id = ?
`

func (q *Queries) CountGroupMembers(ctx context.Context, groupID int64) (int64, error) {
	row := q.db.QueryRowContext(ctx, countGroupMembers, groupID)
	var n int64
	err := row.Scan(&n)
	return n, err
}

const getPendingSyncTransactions = `
SELECT id, version, created_at
FROM transactions
WHERE sync_status = 'pending'
ORDER BY id
LIMIT ?
`

type PendingSyncTransaction struct {
	ID        int64
	Version   int64
	CreatedAt string
}

func (q *Queries) GetPendingSyncTransactions(ctx context.Context, limit int64) ([]PendingSyncTransaction, error) {
	rows, err := q.db.QueryContext(ctx, getPendingSyncTransactions, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PendingSyncTransaction
	for rows.Next() {
		var p PendingSyncTransaction
		if err := rows.Scan(&p.ID, &p.Version, &p.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

const markTransactionSynced = `
UPDATE transactions
SET sync_status = 'synced', synced_at = datetime('now')
WHERE id = ?
`

func (q *Queries) MarkTransactionSynced(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, markTransactionSynced, id)
	return err
}

const markTransactionSyncError = `
UPDATE transactions
SET sync_status = 'error'
WHERE id = ?
`

func (q *Queries) MarkTransactionSyncError(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, markTransactionSyncError, id)
	return err
}
