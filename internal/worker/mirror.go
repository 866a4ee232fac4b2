// Package worker mirrors committed ledger entries to an external
// spreadsheet. Commits normally arrive as AMQP messages; a periodic
// catch-up pass covers entries whose messages were lost.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"scontrini/internal/amqp"
	"scontrini/internal/core"
	"scontrini/internal/log"
	"scontrini/internal/sheets"
	"scontrini/internal/storage"
)

// MirrorWorker forwards ledger commits to a sheets.LedgerAppender.
//
// It keeps an in-memory cursor of how many entries per month have been
// mirrored since startup. The cursor starts at the current ledger
// length, so a restart never re-mirrors history.
type MirrorWorker struct {
	store    storage.Store
	appender sheets.LedgerAppender
	logger   *log.Logger

	mu     sync.Mutex
	cursor map[string]int

	now func() time.Time
}

func NewMirrorWorker(store storage.Store, appender sheets.LedgerAppender, logger *log.Logger) *MirrorWorker {
	return &MirrorWorker{
		store:    store,
		appender: appender,
		logger:   logger.WithComponent("worker"),
		cursor:   make(map[string]int),
		now:      time.Now,
	}
}

// Start records the current month's ledger length as the mirror
// baseline. Entries committed before startup are assumed mirrored.
func (w *MirrorWorker) Start(ctx context.Context) error {
	month := core.MonthKey(w.now())
	entries, err := w.store.MonthExpenses(ctx, month)
	if err != nil {
		return fmt.Errorf("read ledger baseline: %w", err)
	}
	w.mu.Lock()
	w.cursor[month] = len(entries)
	w.mu.Unlock()
	w.logger.InfoContext(ctx, "Mirror baseline recorded", "month", month, "entries", len(entries))
	return nil
}

// HandleCommitMessage mirrors one AMQP commit event. Errors bubble up
// so the delivery is requeued.
func (w *MirrorWorker) HandleCommitMessage(ctx context.Context, msg *amqp.LedgerCommittedMessage) error {
	if len(msg.Entries) == 0 {
		return nil
	}
	if err := w.appender.AppendEntries(ctx, msg.Month, msg.Entries); err != nil {
		return fmt.Errorf("mirror commit: %w", err)
	}
	w.advance(msg.Month, len(msg.Entries))
	w.logger.InfoContext(ctx, "Mirrored ledger commit", "month", msg.Month, "entries", len(msg.Entries))
	return nil
}

// CatchUp mirrors current-month entries the message path missed.
func (w *MirrorWorker) CatchUp(ctx context.Context) error {
	month := core.MonthKey(w.now())
	entries, err := w.store.MonthExpenses(ctx, month)
	if err != nil {
		return fmt.Errorf("read ledger for catch-up: %w", err)
	}

	w.mu.Lock()
	mirrored := w.cursor[month]
	w.mu.Unlock()
	if len(entries) <= mirrored {
		return nil
	}

	tail := entries[mirrored:]
	if err := w.appender.AppendEntries(ctx, month, tail); err != nil {
		return fmt.Errorf("mirror catch-up: %w", err)
	}
	w.advance(month, len(tail))
	w.logger.InfoContext(ctx, "Catch-up mirrored missed entries", "month", month, "entries", len(tail))
	return nil
}

// Run executes CatchUp on every tick until ctx is done.
func (w *MirrorWorker) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.InfoContext(ctx, "Stopping periodic catch-up", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			if err := w.CatchUp(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Catch-up pass failed", "error", err)
			}
		}
	}
}

func (w *MirrorWorker) advance(month string, n int) {
	w.mu.Lock()
	w.cursor[month] += n
	w.mu.Unlock()
}
