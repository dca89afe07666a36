// Package services implements the ledger's business rules on top of the
// store: budget usage aggregation, budget and transaction lifecycles,
// and group ledgers.
package services

import (
	"context"
	"fmt"
	"time"

	"ledgerd/internal/core"
)

// UsageService derives budget usage from the live transaction set. It
// holds no state between calls and never caches: every read recomputes
// from the store, so usage can never drift from the transactions.
type UsageService struct {
	store BudgetReader
	loc   *time.Location
	now   func() time.Time
}

// NewUsageService builds the aggregator. loc fixes the timezone used to
// resolve "the current month"; pass nil for UTC.
func NewUsageService(store BudgetReader, loc *time.Location) *UsageService {
	if loc == nil {
		loc = time.UTC
	}
	return &UsageService{
		store: store,
		loc:   loc,
		now:   time.Now,
	}
}

// ComputeUsage sums the owner's EXPENSE transactions for category inside
// the calendar month containing ref. Unknown owners or categories sum to
// zero; a missing budget is not this function's concern.
func (s *UsageService) ComputeUsage(ctx context.Context, owner, category string, ref time.Time) (core.Money, error) {
	start, end := core.MonthWindow(ref.In(s.loc))
	used, err := s.store.SumExpenses(ctx, owner, category, start, end)
	if err != nil {
		return core.Money{}, fmt.Errorf("compute usage for %s/%s: %w", owner, category, err)
	}
	return used, nil
}

// EnrichBudgets fetches the owner's budgets and attaches each one's
// current-month usage. Order follows the store's natural (insertion)
// order; no re-sort happens here.
func (s *UsageService) EnrichBudgets(ctx context.Context, owner string) ([]core.BudgetUsage, error) {
	budgets, err := s.store.ListBudgets(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list budgets for %s: %w", owner, err)
	}

	ref := s.now()
	enriched := make([]core.BudgetUsage, 0, len(budgets))
	for _, b := range budgets {
		used, err := s.ComputeUsage(ctx, owner, b.Category, ref)
		if err != nil {
			return nil, err
		}
		enriched = append(enriched, core.BudgetUsage{Budget: b, Used: used})
	}
	return enriched, nil
}

// MonthSummary totals the owner's income and expenses for the month
// containing ref.
func (s *UsageService) MonthSummary(ctx context.Context, owner string, ref time.Time) (core.Summary, error) {
	start, end := core.MonthWindow(ref.In(s.loc))

	income, err := s.store.SumByType(ctx, owner, core.Income, start, end)
	if err != nil {
		return core.Summary{}, fmt.Errorf("sum income for %s: %w", owner, err)
	}
	expense, err := s.store.SumByType(ctx, owner, core.Expense, start, end)
	if err != nil {
		return core.Summary{}, fmt.Errorf("sum expenses for %s: %w", owner, err)
	}

	return core.Summary{
		Income:  income,
		Expense: expense,
		Net:     income.Sub(expense),
	}, nil
}

// Now returns the service's current time in its configured location.
func (s *UsageService) Now() time.Time {
	return s.now().In(s.loc)
}
