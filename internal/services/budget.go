package services

import (
	"context"
	"fmt"
	"log/slog"

	"ledgerd/internal/core"
)

// BudgetService applies budget create/update/delete, keeping the
// one-budget-per-category invariant. The store's unique index is the
// final arbiter under concurrency; this layer only shapes and validates.
type BudgetService struct {
	store BudgetStore
}

func NewBudgetService(store BudgetStore) *BudgetService {
	return &BudgetService{store: store}
}

// BudgetUpdate carries the mutable budget fields; nil means unchanged.
type BudgetUpdate struct {
	Category *string
	Limit    *core.Money
}

func (s *BudgetService) Create(ctx context.Context, owner, category string, limit core.Money) (core.Budget, error) {
	b := core.Budget{Owner: owner, Category: category, Limit: limit}
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}

	created, err := s.store.CreateBudget(ctx, b)
	if err != nil {
		return core.Budget{}, err
	}

	slog.InfoContext(ctx, "Budget created",
		"id", created.ID,
		"owner", created.Owner,
		"category", created.Category,
		"limit_cents", created.Limit.Cents)
	return created, nil
}

func (s *BudgetService) Update(ctx context.Context, owner string, id int64, upd BudgetUpdate) (core.Budget, error) {
	// Ownership check first: a foreign or missing budget is ErrNotFound,
	// never a silent no-op.
	b, err := s.store.GetBudget(ctx, owner, id)
	if err != nil {
		return core.Budget{}, err
	}

	if upd.Category != nil {
		b.Category = *upd.Category
	}
	if upd.Limit != nil {
		b.Limit = *upd.Limit
	}
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}

	// A category change into an occupied category surfaces as
	// ErrConflict from the store's unique index.
	if err := s.store.UpdateBudget(ctx, b); err != nil {
		return core.Budget{}, err
	}

	slog.InfoContext(ctx, "Budget updated", "id", b.ID, "owner", b.Owner, "category", b.Category)
	return b, nil
}

// Delete removes the budget only. Transactions in its category are
// untouched; they keep counting toward any future budget.
func (s *BudgetService) Delete(ctx context.Context, owner string, id int64) error {
	if err := s.store.DeleteBudget(ctx, owner, id); err != nil {
		return fmt.Errorf("delete budget %d: %w", id, err)
	}
	slog.InfoContext(ctx, "Budget deleted", "id", id, "owner", owner)
	return nil
}
