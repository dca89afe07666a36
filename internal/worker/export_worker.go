package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ledgerd/internal/amqp"
	"ledgerd/internal/core"
	"ledgerd/internal/sheets"
	"ledgerd/internal/storage"
)

// ExportStore is the slice of the ledger store the worker needs.
type ExportStore interface {
	GetTransactionByID(ctx context.Context, id int64) (core.Transaction, error)
	GetPendingSyncTransactions(ctx context.Context, limit int) ([]storage.PendingSync, error)
	MarkSynced(ctx context.Context, id int64) error
	MarkSyncError(ctx context.Context, id int64) error
}

// ExportWorker copies saved transactions into the external journal. The
// database is the source of truth; the journal is an append-only trail,
// so every sync fetches the current row by ID before writing.
type ExportWorker struct {
	store     ExportStore
	journal   sheets.TransactionWriter
	batchSize int
}

func NewExportWorker(store ExportStore, journal sheets.TransactionWriter, batchSize int) *ExportWorker {
	return &ExportWorker{
		store:     store,
		journal:   journal,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes a single sync event from AMQP.
func (w *ExportWorker) HandleSyncMessage(ctx context.Context, msg *amqp.TransactionEventMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"id", msg.ID,
		"version", msg.Version)

	tx, err := w.store.GetTransactionByID(ctx, msg.ID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			// Deleted between publish and consume; nothing to export.
			slog.WarnContext(ctx, "Transaction gone before export", "id", msg.ID)
			return nil
		}
		return fmt.Errorf("get transaction: %w", err)
	}

	return w.export(ctx, tx)
}

// HandleDeleteMessage processes a delete event. The journal is append
// only, so a delete is recorded for the log and otherwise dropped.
func (w *ExportWorker) HandleDeleteMessage(ctx context.Context, msg *amqp.TransactionEventMessage) error {
	slog.InfoContext(ctx, "Transaction deleted, journal row retained",
		"id", msg.ID,
		"timestamp", msg.Timestamp)
	return nil
}

// ProcessPendingTransactions sweeps rows still marked pending. This is
// the backup path for lost AMQP messages.
func (w *ExportWorker) ProcessPendingTransactions(ctx context.Context) error {
	pending, err := w.store.GetPendingSyncTransactions(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending transactions: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending transactions", "count", len(pending))

	for _, p := range pending {
		tx, err := w.store.GetTransactionByID(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get transaction", "id", p.ID, "error", err)
			if err := w.store.MarkSyncError(ctx, p.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error", "id", p.ID, "error", err)
			}
			continue
		}

		if err := w.export(ctx, tx); err != nil {
			slog.ErrorContext(ctx, "Failed to export transaction", "id", p.ID, "error", err)
			continue
		}
	}

	return nil
}

// RunPendingSweep processes pending rows on the given interval until the
// context ends. An initial sweep runs immediately to recover anything
// missed while the worker was down.
func (w *ExportWorker) RunPendingSweep(ctx context.Context, interval time.Duration) error {
	if err := w.ProcessPendingTransactions(ctx); err != nil {
		slog.ErrorContext(ctx, "Startup sweep failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.ProcessPendingTransactions(ctx); err != nil {
				slog.ErrorContext(ctx, "Pending sweep failed", "error", err)
			}
		}
	}
}

func (w *ExportWorker) export(ctx context.Context, tx core.Transaction) error {
	ref, err := w.journal.Append(ctx, tx)
	if err != nil {
		if markErr := w.store.MarkSyncError(ctx, tx.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", tx.ID, "error", markErr)
		}
		return fmt.Errorf("append to journal: %w", err)
	}

	if err := w.store.MarkSynced(ctx, tx.ID); err != nil {
		// The append itself worked; the row will be re-exported on the
		// next sweep.
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", tx.ID, "error", err)
	}

	slog.InfoContext(ctx, "Exported transaction",
		"id", tx.ID,
		"sheets_ref", ref,
		"owner", tx.Owner,
		"amount_cents", tx.Amount.Cents)

	return nil
}
