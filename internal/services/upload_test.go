package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"scontrini/internal/classify"
	"scontrini/internal/core"
	"scontrini/internal/log"
	"scontrini/internal/storage"
)

type fakeExtractor struct {
	items []core.Item
	err   error
	path  string
}

func (f *fakeExtractor) Extract(_ context.Context, path string) ([]core.Item, error) {
	f.path = path
	return f.items, f.err
}

type fakeLookup struct {
	corpus map[string]string
}

func (f *fakeLookup) Lookup(_ context.Context, query string) (string, error) {
	if c, ok := f.corpus[query]; ok {
		return c, nil
	}
	return "", errors.New("no answer")
}

type fakePublisher struct {
	months  []string
	entries [][]core.LedgerEntry
	err     error
}

func (f *fakePublisher) PublishLedgerCommitted(_ context.Context, month string, entries []core.LedgerEntry) error {
	f.months = append(f.months, month)
	f.entries = append(f.entries, entries)
	return f.err
}

func newTestStore(t *testing.T) storage.Store {
	t.Helper()
	s, err := storage.NewFile(filepath.Join(t.TempDir(), "store.json"), storage.Seed{
		Categories: classify.DefaultCategories,
		Rules:      classify.SeedRules(),
	})
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	return s
}

func newUploadService(t *testing.T, store storage.Store, extractor Extractor, lookup classify.Lookuper, pub EventPublisher) *UploadService {
	t.Helper()
	svc := NewUploadService(store, extractor, lookup, pub, t.TempDir(), log.New(slog.LevelError, "test"))
	svc.now = func() time.Time { return time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC) }
	counter := 0
	svc.newID = func() string { counter++; return fmt.Sprintf("id-%d", counter) }
	return svc
}

func TestProcessUpload(t *testing.T) {
	t.Run("classified items commit, unresolved queue as one batch", func(t *testing.T) {
		store := newTestStore(t)
		defer store.Close()
		extractor := &fakeExtractor{items: []core.Item{
			{Name: "WHOLE MILK", Amount: core.Money{Cents: 697}},
			{Name: "MYSTERY GADGET", Amount: core.Money{Cents: 1299}},
			{Name: "ANOTHER WIDGET", Amount: core.Money{Cents: 450}},
		}}
		pub := &fakePublisher{}
		svc := newUploadService(t, store, extractor, nil, pub)

		res, err := svc.ProcessUpload(context.Background(), "receipt.jpg", strings.NewReader("img"))
		if err != nil {
			t.Fatalf("ProcessUpload: %v", err)
		}
		if res.Resolved != 1 || res.Unresolved != 2 || res.BatchID == "" {
			t.Fatalf("result = %+v", res)
		}

		ctx := context.Background()
		month, err := store.MonthExpenses(ctx, "2026-08")
		if err != nil {
			t.Fatalf("MonthExpenses: %v", err)
		}
		if len(month) != 1 || month[0].Name != "WHOLE MILK" || month[0].Category != "Groceries" {
			t.Fatalf("ledger = %v", month)
		}

		batches, err := store.PendingBatches(ctx)
		if err != nil {
			t.Fatalf("PendingBatches: %v", err)
		}
		if len(batches) != 1 || len(batches[0].Items) != 2 {
			t.Fatalf("batches = %v", batches)
		}

		records, err := store.RecentUploads(ctx)
		if err != nil {
			t.Fatalf("RecentUploads: %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("records = %v", records)
		}
		rec := records[0]
		if rec.Filename != "receipt.jpg" || rec.Total.Cents != 697+1299+450 {
			t.Errorf("record = %+v", rec)
		}
		if rec.Items[0].Status != core.StatusClassified || rec.Items[1].Status != core.StatusNeedsInput {
			t.Errorf("item statuses = %v", rec.Items)
		}

		if len(pub.months) != 1 || pub.months[0] != "2026-08" || len(pub.entries[0]) != 1 {
			t.Errorf("published = %v %v", pub.months, pub.entries)
		}
	})

	t.Run("tier-2 success is learned and persisted", func(t *testing.T) {
		store := newTestStore(t)
		defer store.Close()
		extractor := &fakeExtractor{items: []core.Item{
			{Name: "TYLENOL", Amount: core.Money{Cents: 899}},
		}}
		lookup := &fakeLookup{corpus: map[string]string{"TYLENOL": "a popular pain medicine"}}
		svc := newUploadService(t, store, extractor, lookup, nil)

		res, err := svc.ProcessUpload(context.Background(), "receipt.jpg", strings.NewReader("img"))
		if err != nil {
			t.Fatalf("ProcessUpload: %v", err)
		}
		if res.Resolved != 1 || res.Unresolved != 0 {
			t.Fatalf("result = %+v", res)
		}

		rules, err := store.Rules(context.Background())
		if err != nil {
			t.Fatalf("Rules: %v", err)
		}
		found := false
		for _, r := range rules {
			if r.Keyword == "tylenol" && r.Category == "Health" {
				found = true
			}
		}
		if !found {
			t.Errorf("learned rule not persisted: %v", rules)
		}
	})

	t.Run("extraction failure aborts and leaves store unchanged", func(t *testing.T) {
		store := newTestStore(t)
		defer store.Close()
		extractor := &fakeExtractor{err: core.Failure("ocr", core.FailureFailed, errors.New("unreadable"))}
		svc := newUploadService(t, store, extractor, nil, nil)

		_, err := svc.ProcessUpload(context.Background(), "receipt.jpg", strings.NewReader("img"))
		if err == nil {
			t.Fatal("expected error")
		}
		if kind := core.KindOf(err); kind != core.FailureFailed {
			t.Errorf("kind = %q", kind)
		}

		records, _ := store.RecentUploads(context.Background())
		if len(records) != 0 {
			t.Errorf("records = %v, want none", records)
		}
		batches, _ := store.PendingBatches(context.Background())
		if len(batches) != 0 {
			t.Errorf("batches = %v, want none", batches)
		}
	})

	t.Run("missing filename is an input failure", func(t *testing.T) {
		store := newTestStore(t)
		defer store.Close()
		svc := newUploadService(t, store, &fakeExtractor{}, nil, nil)

		_, err := svc.ProcessUpload(context.Background(), "", strings.NewReader("img"))
		if err == nil {
			t.Fatal("expected error")
		}
		if kind := core.KindOf(err); kind != core.FailureInput {
			t.Errorf("kind = %q, want %q", kind, core.FailureInput)
		}
	})

	t.Run("zero extracted items records nothing", func(t *testing.T) {
		store := newTestStore(t)
		defer store.Close()
		svc := newUploadService(t, store, &fakeExtractor{}, nil, nil)

		res, err := svc.ProcessUpload(context.Background(), "receipt.jpg", strings.NewReader("img"))
		if err != nil {
			t.Fatalf("ProcessUpload: %v", err)
		}
		if res.Items != 0 || res.BatchID != "" {
			t.Fatalf("result = %+v", res)
		}
		records, _ := store.RecentUploads(context.Background())
		if len(records) != 0 {
			t.Errorf("records = %v, want none", records)
		}
	})

	t.Run("publisher failure does not fail the upload", func(t *testing.T) {
		store := newTestStore(t)
		defer store.Close()
		extractor := &fakeExtractor{items: []core.Item{{Name: "WHOLE MILK", Amount: core.Money{Cents: 697}}}}
		pub := &fakePublisher{err: errors.New("broker down")}
		svc := newUploadService(t, store, extractor, nil, pub)

		if _, err := svc.ProcessUpload(context.Background(), "receipt.jpg", strings.NewReader("img")); err != nil {
			t.Fatalf("ProcessUpload: %v", err)
		}
	})
}
