package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"scontrini/internal/core"
)

// SQLiteStore is the default Store backend. Batch resolution runs in a
// single transaction, so a resolved batch either fully commits or
// leaves the store untouched.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the database at dbPath, runs
// migrations and seeds defaults when the store is empty.
func NewSQLite(dbPath string, seed Seed) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.applySeed(context.Background(), seed); err != nil {
		db.Close()
		return nil, fmt.Errorf("seed store: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) applySeed(ctx context.Context, seed Seed) error {
	var budgetCount int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM budgets`).Scan(&budgetCount); err != nil {
		return fmt.Errorf("count budgets: %w", err)
	}
	if budgetCount == 0 {
		for _, category := range seed.Categories {
			if _, err := s.db.ExecContext(ctx,
				`INSERT OR IGNORE INTO budgets (category, amount_cents) VALUES (?, 0)`, category); err != nil {
				return fmt.Errorf("seed budget %q: %w", category, err)
			}
		}
	}

	var ruleCount int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM classification_rules`).Scan(&ruleCount); err != nil {
		return fmt.Errorf("count rules: %w", err)
	}
	if ruleCount == 0 {
		for _, rule := range seed.Rules {
			if _, err := s.db.ExecContext(ctx,
				`INSERT OR IGNORE INTO classification_rules (keyword, category) VALUES (?, ?)`,
				rule.Keyword, rule.Category); err != nil {
				return fmt.Errorf("seed rule %q: %w", rule.Keyword, err)
			}
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) Budgets(ctx context.Context) (map[string]core.Money, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT category, amount_cents FROM budgets`)
	if err != nil {
		return nil, fmt.Errorf("query budgets: %w", err)
	}
	defer rows.Close()

	budgets := make(map[string]core.Money)
	for rows.Next() {
		var category string
		var cents int64
		if err := rows.Scan(&category, &cents); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		budgets[category] = core.Money{Cents: cents}
	}
	return budgets, rows.Err()
}

func (s *SQLiteStore) SetBudget(ctx context.Context, category string, amount core.Money) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO budgets (category, amount_cents) VALUES (?, ?)
		ON CONFLICT (category) DO UPDATE SET amount_cents = excluded.amount_cents`,
		category, amount.Cents)
	if err != nil {
		return fmt.Errorf("set budget %q: %w", category, err)
	}
	return nil
}

func (s *SQLiteStore) Rules(ctx context.Context) ([]core.Rule, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT keyword, category FROM classification_rules ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	var rules []core.Rule
	for rows.Next() {
		var r core.Rule
		if err := rows.Scan(&r.Keyword, &r.Category); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

func (s *SQLiteStore) LearnRules(ctx context.Context, rules []core.Rule) error {
	if len(rules) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin learn tx: %w", err)
	}
	defer tx.Rollback()

	if err := upsertRules(ctx, tx, rules); err != nil {
		return err
	}
	return tx.Commit()
}

func upsertRules(ctx context.Context, tx *sql.Tx, rules []core.Rule) error {
	for _, r := range rules {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO classification_rules (keyword, category) VALUES (?, ?)
			ON CONFLICT (keyword) DO UPDATE SET category = excluded.category`,
			r.Keyword, r.Category); err != nil {
			return fmt.Errorf("upsert rule %q: %w", r.Keyword, err)
		}
	}
	return nil
}

func (s *SQLiteStore) AppendExpenses(ctx context.Context, month string, entries []core.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append tx: %w", err)
	}
	defer tx.Rollback()

	if err := appendEntries(ctx, tx, month, entries); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append tx: %w", err)
	}
	slog.InfoContext(ctx, "Expenses committed to ledger", "month", month, "count", len(entries))
	return nil
}

func appendEntries(ctx context.Context, tx *sql.Tx, month string, entries []core.LedgerEntry) error {
	for _, e := range entries {
		// Ledger invariant: every committed category exists in the
		// budget table.
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO budgets (category, amount_cents) VALUES (?, 0)`, e.Category); err != nil {
			return fmt.Errorf("ensure budget category %q: %w", e.Category, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO expenses (month_key, name, amount_cents, category) VALUES (?, ?, ?, ?)`,
			month, e.Name, e.Amount.Cents, e.Category); err != nil {
			return fmt.Errorf("append expense %q: %w", e.Name, err)
		}
	}
	return nil
}

func (s *SQLiteStore) MonthExpenses(ctx context.Context, month string) ([]core.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, amount_cents, category FROM expenses WHERE month_key = ? ORDER BY id`, month)
	if err != nil {
		return nil, fmt.Errorf("query month expenses: %w", err)
	}
	defer rows.Close()

	var entries []core.LedgerEntry
	for rows.Next() {
		var e core.LedgerEntry
		var cents int64
		if err := rows.Scan(&e.Name, &cents, &e.Category); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.Amount = core.Money{Cents: cents}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLiteStore) CreateBatch(ctx context.Context, batch core.PendingBatch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO pending_batches (id) VALUES (?)`, batch.ID); err != nil {
		return fmt.Errorf("insert batch %q: %w", batch.ID, err)
	}
	for i, item := range batch.Items {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO pending_items (batch_id, position, name, amount_cents) VALUES (?, ?, ?, ?)`,
			batch.ID, i, item.Name, item.Amount.Cents); err != nil {
			return fmt.Errorf("insert batch item %d: %w", i, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Batch(ctx context.Context, id string) (core.PendingBatch, bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM pending_batches WHERE id = ?`, id).Scan(&exists)
	if err == sql.ErrNoRows {
		return core.PendingBatch{}, false, nil
	}
	if err != nil {
		return core.PendingBatch{}, false, fmt.Errorf("query batch %q: %w", id, err)
	}

	items, err := s.batchItems(ctx, id)
	if err != nil {
		return core.PendingBatch{}, false, err
	}
	return core.PendingBatch{ID: id, Items: items}, true, nil
}

func (s *SQLiteStore) batchItems(ctx context.Context, id string) ([]core.ClassifiedItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, amount_cents FROM pending_items WHERE batch_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("query batch items: %w", err)
	}
	defer rows.Close()

	var items []core.ClassifiedItem
	for rows.Next() {
		var item core.ClassifiedItem
		var cents int64
		if err := rows.Scan(&item.Name, &cents); err != nil {
			return nil, fmt.Errorf("scan batch item: %w", err)
		}
		item.Amount = core.Money{Cents: cents}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *SQLiteStore) PendingBatches(ctx context.Context) ([]core.PendingBatch, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM pending_batches ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query pending batches: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan batch id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var batches []core.PendingBatch
	for _, id := range ids {
		items, err := s.batchItems(ctx, id)
		if err != nil {
			return nil, err
		}
		batches = append(batches, core.PendingBatch{ID: id, Items: items})
	}
	return batches, nil
}

func (s *SQLiteStore) ResolveBatch(ctx context.Context, id, month string, entries []core.LedgerEntry, rules []core.Rule) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin resolve tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM pending_batches WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete batch %q: %w", id, err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if deleted == 0 {
		// Unknown batch id: resolution is a no-op.
		return false, nil
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM pending_items WHERE batch_id = ?`, id); err != nil {
		return false, fmt.Errorf("delete batch items %q: %w", id, err)
	}

	if err := upsertRules(ctx, tx, rules); err != nil {
		return false, err
	}
	if err := appendEntries(ctx, tx, month, entries); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit resolve tx: %w", err)
	}
	slog.InfoContext(ctx, "Pending batch resolved", "batch_id", id, "month", month, "items", len(entries))
	return true, nil
}

func (s *SQLiteStore) AddRecentUpload(ctx context.Context, record core.UploadRecord) error {
	items, err := json.Marshal(record.Items)
	if err != nil {
		return fmt.Errorf("marshal upload items: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upload tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO recent_uploads (id, filename, created_at, total_cents, items) VALUES (?, ?, ?, ?, ?)`,
		record.ID, record.Filename, record.CreatedAt, record.Total.Cents, string(items)); err != nil {
		return fmt.Errorf("insert upload record: %w", err)
	}
	// Keep only the newest records; oldest evicted first.
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM recent_uploads WHERE seq NOT IN (
			SELECT seq FROM recent_uploads ORDER BY seq DESC LIMIT ?
		)`, RecentUploadLimit); err != nil {
		return fmt.Errorf("trim upload history: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) RecentUploads(ctx context.Context) ([]core.UploadRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, filename, created_at, total_cents, items FROM recent_uploads ORDER BY seq DESC`)
	if err != nil {
		return nil, fmt.Errorf("query recent uploads: %w", err)
	}
	defer rows.Close()

	var records []core.UploadRecord
	for rows.Next() {
		var rec core.UploadRecord
		var cents int64
		var itemsJSON string
		if err := rows.Scan(&rec.ID, &rec.Filename, &rec.CreatedAt, &cents, &itemsJSON); err != nil {
			return nil, fmt.Errorf("scan upload record: %w", err)
		}
		rec.Total = core.Money{Cents: cents}
		if err := json.Unmarshal([]byte(itemsJSON), &rec.Items); err != nil {
			return nil, fmt.Errorf("unmarshal upload items: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
