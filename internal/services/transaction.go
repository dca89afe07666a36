package services

import (
	"context"
	"log/slog"

	"ledgerd/internal/core"
)

// TransactionService applies transaction create/update/delete and feeds
// the export pipeline. Usage is never recomputed or cached here: the
// aggregator re-reads the store on every read, so writes stay simple.
type TransactionService struct {
	store  TransactionStore
	events EventPublisher
}

// NewTransactionService builds the lifecycle manager. events may be nil
// when no export pipeline is configured.
func NewTransactionService(store TransactionStore, events EventPublisher) *TransactionService {
	return &TransactionService{store: store, events: events}
}

// TransactionUpdate carries the mutable transaction fields; nil means
// unchanged.
type TransactionUpdate struct {
	Type        *core.TxType
	Amount      *core.Money
	Category    *string
	Description *string
	Date        *core.Date
}

func (s *TransactionService) Create(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	created, err := s.store.CreateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, err
	}

	s.publishSync(ctx, created.ID, 1)
	return created, nil
}

func (s *TransactionService) Get(ctx context.Context, owner string, id int64) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, owner, id)
}

func (s *TransactionService) List(ctx context.Context, owner string) ([]core.Transaction, error) {
	return s.store.ListTransactions(ctx, owner)
}

func (s *TransactionService) Update(ctx context.Context, owner string, id int64, upd TransactionUpdate) (core.Transaction, error) {
	// Existence-and-ownership lookup before mutation. A foreign id must
	// be rejected, not silently no-opped.
	tx, err := s.store.GetTransaction(ctx, owner, id)
	if err != nil {
		return core.Transaction{}, err
	}

	if upd.Type != nil {
		tx.Type = *upd.Type
	}
	if upd.Amount != nil {
		tx.Amount = *upd.Amount
	}
	if upd.Category != nil {
		tx.Category = *upd.Category
	}
	if upd.Description != nil {
		tx.Description = *upd.Description
	}
	if upd.Date != nil {
		tx.Date = *upd.Date
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	if err := s.store.UpdateTransaction(ctx, tx); err != nil {
		return core.Transaction{}, err
	}

	s.publishSync(ctx, tx.ID, 0)
	return tx, nil
}

// Delete removes the transaction immediately and finally; there is no
// soft delete. Its contribution disappears from the next usage read.
func (s *TransactionService) Delete(ctx context.Context, owner string, id int64) error {
	if err := s.store.DeleteTransaction(ctx, owner, id); err != nil {
		return err
	}

	if s.events != nil {
		if err := s.events.PublishTransactionDelete(ctx, id); err != nil {
			// Export is best effort; the delete itself already happened.
			slog.ErrorContext(ctx, "Failed to publish delete event", "id", id, "error", err)
		}
	}
	return nil
}

func (s *TransactionService) publishSync(ctx context.Context, id, version int64) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishTransactionSync(ctx, id, version); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync event", "id", id, "error", err)
	}
}
