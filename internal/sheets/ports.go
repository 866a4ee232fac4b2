package sheets

import (
	"context"

	"scontrini/internal/core"
)

// Ports for outbound adapters.
type (
	// LedgerAppender mirrors committed ledger entries to an external
	// spreadsheet, one row per entry.
	LedgerAppender interface {
		AppendEntries(ctx context.Context, month string, entries []core.LedgerEntry) error
	}
)
