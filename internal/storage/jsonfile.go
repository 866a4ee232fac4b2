package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"scontrini/internal/core"
)

// schemaVersion is the current JSON store layout. Files written before
// versioning (version 0) are migrated once at open.
const schemaVersion = 1

type fileSchema struct {
	SchemaVersion   int                           `json:"schema_version"`
	Budgets         map[string]core.Money         `json:"budgets"`
	Classifications map[string]string             `json:"classifications"`
	Expenses        map[string][]core.LedgerEntry `json:"expenses"`
	Pending         map[string]core.PendingBatch  `json:"pending"`
	RecentUploads   []core.UploadRecord           `json:"recent_uploads"`
}

// FileStore persists the whole store as one JSON document. Every
// operation is a load-modify-save cycle behind a single mutex, so
// concurrent operations serialize instead of clobbering each other.
type FileStore struct {
	mu   sync.Mutex
	path string
	seed Seed
}

// NewFile opens the JSON store at path, creating and seeding it when
// absent and migrating older layouts to the current schema version.
func NewFile(path string, seed Seed) (*FileStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}
	s := &FileStore{path: path, seed: seed}

	s.mu.Lock()
	defer s.mu.Unlock()
	store, err := s.load()
	if err != nil {
		return nil, err
	}
	// Persist the seeded/migrated state so the schema version on disk
	// is always current after open.
	if err := s.save(store); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) Close() error { return nil }

// load reads and migrates the document. Callers must hold mu.
func (s *FileStore) load() (*fileSchema, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return s.seeded(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read store file: %w", err)
	}

	var store fileSchema
	if err := json.Unmarshal(data, &store); err != nil {
		return nil, fmt.Errorf("decode store file: %w", err)
	}
	migrate(&store)
	return &store, nil
}

func (s *FileStore) seeded() *fileSchema {
	store := &fileSchema{
		SchemaVersion:   schemaVersion,
		Budgets:         make(map[string]core.Money),
		Classifications: make(map[string]string),
		Expenses:        make(map[string][]core.LedgerEntry),
		Pending:         make(map[string]core.PendingBatch),
		RecentUploads:   []core.UploadRecord{},
	}
	for _, category := range s.seed.Categories {
		store.Budgets[category] = core.Money{}
	}
	for _, rule := range s.seed.Rules {
		store.Classifications[rule.Keyword] = rule.Category
	}
	return store
}

// migrate patches older documents in place. Version 0 files predate
// versioning and may miss the recent_uploads field.
func migrate(store *fileSchema) {
	if store.Budgets == nil {
		store.Budgets = make(map[string]core.Money)
	}
	if store.Classifications == nil {
		store.Classifications = make(map[string]string)
	}
	if store.Expenses == nil {
		store.Expenses = make(map[string][]core.LedgerEntry)
	}
	if store.Pending == nil {
		store.Pending = make(map[string]core.PendingBatch)
	}
	if store.RecentUploads == nil {
		store.RecentUploads = []core.UploadRecord{}
	}
	store.SchemaVersion = schemaVersion
}

// save writes the document atomically. Callers must hold mu.
func (s *FileStore) save(store *fileSchema) error {
	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store file: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write store file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace store file: %w", err)
	}
	return nil
}

// update runs one load-modify-save cycle.
func (s *FileStore) update(fn func(*fileSchema) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	store, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(store); err != nil {
		return err
	}
	return s.save(store)
}

// view runs a read-only cycle.
func (s *FileStore) view(fn func(*fileSchema)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	store, err := s.load()
	if err != nil {
		return err
	}
	fn(store)
	return nil
}

func (s *FileStore) Budgets(_ context.Context) (map[string]core.Money, error) {
	budgets := make(map[string]core.Money)
	err := s.view(func(store *fileSchema) {
		for category, amount := range store.Budgets {
			budgets[category] = amount
		}
	})
	return budgets, err
}

func (s *FileStore) SetBudget(_ context.Context, category string, amount core.Money) error {
	return s.update(func(store *fileSchema) error {
		store.Budgets[category] = amount
		return nil
	})
}

// Rules returns the classification table as an ordered list. The JSON
// document stores a keyword map, so priority is made explicit here:
// longest keyword first, equal lengths alphabetical.
func (s *FileStore) Rules(_ context.Context) ([]core.Rule, error) {
	var rules []core.Rule
	err := s.view(func(store *fileSchema) {
		for keyword, category := range store.Classifications {
			rules = append(rules, core.Rule{Keyword: keyword, Category: category})
		}
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(rules, func(i, j int) bool {
		if len(rules[i].Keyword) != len(rules[j].Keyword) {
			return len(rules[i].Keyword) > len(rules[j].Keyword)
		}
		return rules[i].Keyword < rules[j].Keyword
	})
	return rules, nil
}

func (s *FileStore) LearnRules(_ context.Context, rules []core.Rule) error {
	if len(rules) == 0 {
		return nil
	}
	return s.update(func(store *fileSchema) error {
		for _, rule := range rules {
			store.Classifications[rule.Keyword] = rule.Category
		}
		return nil
	})
}

func (s *FileStore) AppendExpenses(_ context.Context, month string, entries []core.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return s.update(func(store *fileSchema) error {
		appendToLedger(store, month, entries)
		return nil
	})
}

func appendToLedger(store *fileSchema, month string, entries []core.LedgerEntry) {
	for _, e := range entries {
		if _, ok := store.Budgets[e.Category]; !ok {
			store.Budgets[e.Category] = core.Money{}
		}
	}
	store.Expenses[month] = append(store.Expenses[month], entries...)
}

func (s *FileStore) MonthExpenses(_ context.Context, month string) ([]core.LedgerEntry, error) {
	var entries []core.LedgerEntry
	err := s.view(func(store *fileSchema) {
		entries = append(entries, store.Expenses[month]...)
	})
	return entries, err
}

func (s *FileStore) CreateBatch(_ context.Context, batch core.PendingBatch) error {
	return s.update(func(store *fileSchema) error {
		store.Pending[batch.ID] = batch
		return nil
	})
}

func (s *FileStore) Batch(_ context.Context, id string) (core.PendingBatch, bool, error) {
	var batch core.PendingBatch
	var ok bool
	err := s.view(func(store *fileSchema) {
		batch, ok = store.Pending[id]
	})
	return batch, ok, err
}

func (s *FileStore) PendingBatches(_ context.Context) ([]core.PendingBatch, error) {
	var batches []core.PendingBatch
	err := s.view(func(store *fileSchema) {
		ids := make([]string, 0, len(store.Pending))
		for id := range store.Pending {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			batches = append(batches, store.Pending[id])
		}
	})
	return batches, err
}

func (s *FileStore) ResolveBatch(_ context.Context, id, month string, entries []core.LedgerEntry, rules []core.Rule) (bool, error) {
	resolved := false
	err := s.update(func(store *fileSchema) error {
		if _, ok := store.Pending[id]; !ok {
			return nil
		}
		resolved = true
		delete(store.Pending, id)
		for _, rule := range rules {
			store.Classifications[rule.Keyword] = rule.Category
		}
		appendToLedger(store, month, entries)
		return nil
	})
	return resolved, err
}

func (s *FileStore) AddRecentUpload(_ context.Context, record core.UploadRecord) error {
	return s.update(func(store *fileSchema) error {
		store.RecentUploads = append(store.RecentUploads, record)
		if len(store.RecentUploads) > RecentUploadLimit {
			store.RecentUploads = store.RecentUploads[len(store.RecentUploads)-RecentUploadLimit:]
		}
		return nil
	})
}

func (s *FileStore) RecentUploads(_ context.Context) ([]core.UploadRecord, error) {
	var records []core.UploadRecord
	err := s.view(func(store *fileSchema) {
		// Stored oldest first; callers want newest first.
		for i := len(store.RecentUploads) - 1; i >= 0; i-- {
			records = append(records, store.RecentUploads[i])
		}
	})
	return records, err
}
