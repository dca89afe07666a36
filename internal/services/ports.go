package services

import (
	"context"

	"ledgerd/internal/core"
)

// Store ports. *storage.LedgerStore satisfies all of them; tests swap in
// fakes per service.
type (
	// BudgetReader serves the usage aggregation read path.
	BudgetReader interface {
		ListBudgets(ctx context.Context, owner string) ([]core.Budget, error)
		SumExpenses(ctx context.Context, owner, category string, start, end core.Date) (core.Money, error)
		SumByType(ctx context.Context, owner string, typ core.TxType, start, end core.Date) (core.Money, error)
	}

	BudgetStore interface {
		CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
		GetBudget(ctx context.Context, owner string, id int64) (core.Budget, error)
		UpdateBudget(ctx context.Context, b core.Budget) error
		DeleteBudget(ctx context.Context, owner string, id int64) error
	}

	TransactionStore interface {
		CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
		GetTransaction(ctx context.Context, owner string, id int64) (core.Transaction, error)
		ListTransactions(ctx context.Context, owner string) ([]core.Transaction, error)
		UpdateTransaction(ctx context.Context, tx core.Transaction) error
		DeleteTransaction(ctx context.Context, owner string, id int64) error
	}

	MembershipStore interface {
		AddGroupMember(ctx context.Context, m core.GroupMember) error
		GetGroupMember(ctx context.Context, groupID int64, userID string) (core.GroupMember, error)
		ListGroupMembers(ctx context.Context, groupID int64) ([]core.GroupMember, error)
		RemoveGroupMember(ctx context.Context, groupID int64, userID string) error
		CountGroupMembers(ctx context.Context, groupID int64) (int64, error)
	}

	// EventPublisher feeds the export pipeline. Implementations must be
	// fire-and-forget from the caller's point of view: a publish failure
	// never fails the write that triggered it.
	EventPublisher interface {
		PublishTransactionSync(ctx context.Context, id, version int64) error
		PublishTransactionDelete(ctx context.Context, id int64) error
	}
)
