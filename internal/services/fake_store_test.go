package services

import (
	"context"

	"ledgerd/internal/core"
)

// fakeStore is an in-memory stand-in for storage.LedgerStore. It mirrors
// the store's contract: owner scoping, ErrNotFound on foreign rows, and
// ErrConflict on the (owner, category) budget index.
type fakeStore struct {
	nextTxID     int64
	nextBudgetID int64
	transactions []core.Transaction
	budgets      []core.Budget
	members      []core.GroupMember

	// Optional fault injection.
	failWith error
}

func newFakeStore() *fakeStore {
	return &fakeStore{}
}

func (f *fakeStore) CreateTransaction(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	if f.failWith != nil {
		return core.Transaction{}, f.failWith
	}
	f.nextTxID++
	tx.ID = f.nextTxID
	f.transactions = append(f.transactions, tx)
	return tx, nil
}

func (f *fakeStore) GetTransaction(_ context.Context, owner string, id int64) (core.Transaction, error) {
	if f.failWith != nil {
		return core.Transaction{}, f.failWith
	}
	for _, tx := range f.transactions {
		if tx.ID == id && tx.Owner == owner {
			return tx, nil
		}
	}
	return core.Transaction{}, core.ErrNotFound
}

func (f *fakeStore) ListTransactions(_ context.Context, owner string) ([]core.Transaction, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	var out []core.Transaction
	for _, tx := range f.transactions {
		if tx.Owner == owner {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateTransaction(_ context.Context, tx core.Transaction) error {
	if f.failWith != nil {
		return f.failWith
	}
	for i, cur := range f.transactions {
		if cur.ID == tx.ID && cur.Owner == tx.Owner {
			f.transactions[i] = tx
			return nil
		}
	}
	return core.ErrNotFound
}

func (f *fakeStore) DeleteTransaction(_ context.Context, owner string, id int64) error {
	if f.failWith != nil {
		return f.failWith
	}
	for i, tx := range f.transactions {
		if tx.ID == id && tx.Owner == owner {
			f.transactions = append(f.transactions[:i], f.transactions[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (f *fakeStore) SumExpenses(_ context.Context, owner, category string, start, end core.Date) (core.Money, error) {
	if f.failWith != nil {
		return core.Money{}, f.failWith
	}
	var sum core.Money
	for _, tx := range f.transactions {
		if tx.Owner == owner && tx.Category == category && tx.Type == core.Expense && tx.Date.InWindow(start, end) {
			sum = sum.Add(tx.Amount)
		}
	}
	return sum, nil
}

func (f *fakeStore) SumByType(_ context.Context, owner string, typ core.TxType, start, end core.Date) (core.Money, error) {
	if f.failWith != nil {
		return core.Money{}, f.failWith
	}
	var sum core.Money
	for _, tx := range f.transactions {
		if tx.Owner == owner && tx.Type == typ && tx.Date.InWindow(start, end) {
			sum = sum.Add(tx.Amount)
		}
	}
	return sum, nil
}

func (f *fakeStore) CreateBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	if f.failWith != nil {
		return core.Budget{}, f.failWith
	}
	for _, cur := range f.budgets {
		if cur.Owner == b.Owner && cur.Category == b.Category {
			return core.Budget{}, core.ErrConflict
		}
	}
	f.nextBudgetID++
	b.ID = f.nextBudgetID
	f.budgets = append(f.budgets, b)
	return b, nil
}

func (f *fakeStore) GetBudget(_ context.Context, owner string, id int64) (core.Budget, error) {
	if f.failWith != nil {
		return core.Budget{}, f.failWith
	}
	for _, b := range f.budgets {
		if b.ID == id && b.Owner == owner {
			return b, nil
		}
	}
	return core.Budget{}, core.ErrNotFound
}

func (f *fakeStore) ListBudgets(_ context.Context, owner string) ([]core.Budget, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	var out []core.Budget
	for _, b := range f.budgets {
		if b.Owner == owner {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateBudget(_ context.Context, b core.Budget) error {
	if f.failWith != nil {
		return f.failWith
	}
	for _, cur := range f.budgets {
		if cur.Owner == b.Owner && cur.Category == b.Category && cur.ID != b.ID {
			return core.ErrConflict
		}
	}
	for i, cur := range f.budgets {
		if cur.ID == b.ID && cur.Owner == b.Owner {
			f.budgets[i] = b
			return nil
		}
	}
	return core.ErrNotFound
}

func (f *fakeStore) DeleteBudget(_ context.Context, owner string, id int64) error {
	if f.failWith != nil {
		return f.failWith
	}
	for i, b := range f.budgets {
		if b.ID == id && b.Owner == owner {
			f.budgets = append(f.budgets[:i], f.budgets[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (f *fakeStore) AddGroupMember(_ context.Context, m core.GroupMember) error {
	if f.failWith != nil {
		return f.failWith
	}
	for _, cur := range f.members {
		if cur.GroupID == m.GroupID && cur.UserID == m.UserID {
			return core.ErrConflict
		}
	}
	f.members = append(f.members, m)
	return nil
}

func (f *fakeStore) GetGroupMember(_ context.Context, groupID int64, userID string) (core.GroupMember, error) {
	if f.failWith != nil {
		return core.GroupMember{}, f.failWith
	}
	for _, m := range f.members {
		if m.GroupID == groupID && m.UserID == userID {
			return m, nil
		}
	}
	return core.GroupMember{}, core.ErrNotFound
}

func (f *fakeStore) ListGroupMembers(_ context.Context, groupID int64) ([]core.GroupMember, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	var out []core.GroupMember
	for _, m := range f.members {
		if m.GroupID == groupID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeStore) RemoveGroupMember(_ context.Context, groupID int64, userID string) error {
	if f.failWith != nil {
		return f.failWith
	}
	for i, m := range f.members {
		if m.GroupID == groupID && m.UserID == userID {
			f.members = append(f.members[:i], f.members[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (f *fakeStore) CountGroupMembers(_ context.Context, groupID int64) (int64, error) {
	if f.failWith != nil {
		return 0, f.failWith
	}
	var n int64
	for _, m := range f.members {
		if m.GroupID == groupID {
			n++
		}
	}
	return n, nil
}

// fakePublisher records export events.
type fakePublisher struct {
	syncs   []int64
	deletes []int64
	fail    error
}

func (p *fakePublisher) PublishTransactionSync(_ context.Context, id, _ int64) error {
	if p.fail != nil {
		return p.fail
	}
	p.syncs = append(p.syncs, id)
	return nil
}

func (p *fakePublisher) PublishTransactionDelete(_ context.Context, id int64) error {
	if p.fail != nil {
		return p.fail
	}
	p.deletes = append(p.deletes, id)
	return nil
}
