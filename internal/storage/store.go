// Package storage persists the budget ledger, classification rules,
// pending batches and upload history.
//
// Two backends implement Store: SQLite (default, transactional) and a
// JSON file guarded by a single-writer mutex. Both seed default
// categories and keyword rules on first access.
package storage

import (
	"context"

	"scontrini/internal/core"
)

// RecentUploadLimit bounds the upload history ring; the oldest record
// is evicted first.
const RecentUploadLimit = 5

// Store is the persistence boundary for all ledger operations.
type Store interface {
	// Budgets returns the budget table.
	Budgets(ctx context.Context) (map[string]core.Money, error)
	// SetBudget creates the category if absent and sets its budget.
	SetBudget(ctx context.Context, category string, amount core.Money) error

	// Rules returns the classification rules in priority order.
	Rules(ctx context.Context) ([]core.Rule, error)
	// LearnRules upserts rules keyed by keyword.
	LearnRules(ctx context.Context, rules []core.Rule) error

	// AppendExpenses appends entries under month and guarantees every
	// entry category exists in the budget table (budget 0 if new).
	AppendExpenses(ctx context.Context, month string, entries []core.LedgerEntry) error
	// MonthExpenses returns the committed entries for month, in commit
	// order.
	MonthExpenses(ctx context.Context, month string) ([]core.LedgerEntry, error)

	// CreateBatch stores a new pending batch.
	CreateBatch(ctx context.Context, batch core.PendingBatch) error
	// Batch fetches a pending batch; ok is false for unknown ids.
	Batch(ctx context.Context, id string) (batch core.PendingBatch, ok bool, err error)
	// PendingBatches lists all pending batches, oldest first.
	PendingBatches(ctx context.Context) ([]core.PendingBatch, error)
	// ResolveBatch atomically commits entries under month, upserts the
	// learned rules, ensures budget categories and removes the batch.
	// ok is false (and nothing changes) for unknown ids.
	ResolveBatch(ctx context.Context, id, month string, entries []core.LedgerEntry, rules []core.Rule) (ok bool, err error)

	// AddRecentUpload appends to the bounded upload history.
	AddRecentUpload(ctx context.Context, record core.UploadRecord) error
	// RecentUploads returns the history, newest first.
	RecentUploads(ctx context.Context) ([]core.UploadRecord, error)

	Close() error
}

// Seed holds the defaults written on first access to an empty store.
type Seed struct {
	Categories []string
	Rules      []core.Rule
}
