package memory

import (
	"context"
	"fmt"
	"sync"

	"ledgerd/internal/core"
	ports "ledgerd/internal/sheets"
)

// Journal is an in-memory TransactionWriter for local development and
// tests. It mimics the append-only shape of the sheets export.
type Journal struct {
	mu   sync.Mutex
	rows []core.Transaction
}

var _ ports.TransactionWriter = (*Journal)(nil)

func NewJournal() *Journal {
	return &Journal{}
}

func (j *Journal) Append(_ context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	j.rows = append(j.rows, tx)
	return fmt.Sprintf("journal!A%d", len(j.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (j *Journal) Rows() []core.Transaction {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]core.Transaction, len(j.rows))
	copy(out, j.rows)
	return out
}
