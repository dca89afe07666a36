package sheets

import (
	"context"

	"ledgerd/internal/core"
)

// TransactionWriter appends a transaction to an external journal and
// returns a reference to the written row.
type TransactionWriter interface {
	Append(ctx context.Context, tx core.Transaction) (rowRef string, err error)
}
