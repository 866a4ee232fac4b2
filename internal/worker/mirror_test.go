package worker

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"scontrini/internal/amqp"
	"scontrini/internal/classify"
	"scontrini/internal/core"
	"scontrini/internal/log"
	"scontrini/internal/sheets/memory"
	"scontrini/internal/storage"
)

func newTestWorker(t *testing.T) (*MirrorWorker, storage.Store, *memory.Store) {
	t.Helper()
	store, err := storage.NewFile(filepath.Join(t.TempDir(), "store.json"), storage.Seed{
		Categories: classify.DefaultCategories,
		Rules:      classify.SeedRules(),
	})
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	sink := memory.New()
	w := NewMirrorWorker(store, sink, log.New(slog.LevelError, "test"))
	w.now = func() time.Time { return time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC) }
	return w, store, sink
}

func TestHandleCommitMessage(t *testing.T) {
	w, _, sink := newTestWorker(t)

	msg := &amqp.LedgerCommittedMessage{
		Month: "2026-08",
		Entries: []core.LedgerEntry{
			{Name: "BANANAS", Amount: core.Money{Cents: 548}, Category: "Groceries"},
		},
	}
	if err := w.HandleCommitMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleCommitMessage: %v", err)
	}

	rows := sink.Rows()
	if len(rows) != 1 || rows[0].Month != "2026-08" || rows[0].Entry.Name != "BANANAS" {
		t.Fatalf("rows = %v", rows)
	}
}

func TestCatchUp(t *testing.T) {
	t.Run("mirrors only entries past the baseline", func(t *testing.T) {
		w, store, sink := newTestWorker(t)
		ctx := context.Background()

		// Pre-startup history must not be re-mirrored.
		if err := store.AppendExpenses(ctx, "2026-08", []core.LedgerEntry{
			{Name: "OLD", Amount: core.Money{Cents: 100}, Category: "Groceries"},
		}); err != nil {
			t.Fatalf("AppendExpenses: %v", err)
		}
		if err := w.Start(ctx); err != nil {
			t.Fatalf("Start: %v", err)
		}

		if err := store.AppendExpenses(ctx, "2026-08", []core.LedgerEntry{
			{Name: "NEW", Amount: core.Money{Cents: 200}, Category: "Groceries"},
		}); err != nil {
			t.Fatalf("AppendExpenses: %v", err)
		}

		if err := w.CatchUp(ctx); err != nil {
			t.Fatalf("CatchUp: %v", err)
		}
		rows := sink.Rows()
		if len(rows) != 1 || rows[0].Entry.Name != "NEW" {
			t.Fatalf("rows = %v", rows)
		}

		// A second pass with nothing new is a no-op.
		if err := w.CatchUp(ctx); err != nil {
			t.Fatalf("CatchUp: %v", err)
		}
		if len(sink.Rows()) != 1 {
			t.Errorf("rows = %v, want 1", sink.Rows())
		}
	})

	t.Run("message path advances the cursor", func(t *testing.T) {
		w, store, sink := newTestWorker(t)
		ctx := context.Background()

		if err := w.Start(ctx); err != nil {
			t.Fatalf("Start: %v", err)
		}

		entries := []core.LedgerEntry{
			{Name: "MILK", Amount: core.Money{Cents: 697}, Category: "Groceries"},
		}
		if err := store.AppendExpenses(ctx, "2026-08", entries); err != nil {
			t.Fatalf("AppendExpenses: %v", err)
		}
		msg := &amqp.LedgerCommittedMessage{Month: "2026-08", Entries: entries}
		if err := w.HandleCommitMessage(ctx, msg); err != nil {
			t.Fatalf("HandleCommitMessage: %v", err)
		}

		// Catch-up must not mirror the same entry again.
		if err := w.CatchUp(ctx); err != nil {
			t.Fatalf("CatchUp: %v", err)
		}
		if rows := sink.Rows(); len(rows) != 1 {
			t.Errorf("rows = %v, want 1", rows)
		}
	})
}
