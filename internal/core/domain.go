package core

import (
	"errors"
	"time"
)

// Item is a parsed receipt line item that has not been categorized yet.
type Item struct {
	Name   string `json:"name"`
	Amount Money  `json:"amount"`
}

// ClassifiedItem is an Item plus its resolved category. An empty
// category means the item is still unresolved.
type ClassifiedItem struct {
	Name     string `json:"name"`
	Amount   Money  `json:"amount"`
	Category string `json:"category"`
}

// LedgerEntry is a committed expense. Entries are append-only: once
// written under a month key they are never mutated or deleted.
type LedgerEntry struct {
	Name     string `json:"name"`
	Amount   Money  `json:"amount"`
	Category string `json:"category"`
}

// PendingBatch groups the unresolved items of a single upload while
// they wait for user-supplied categories. Item order is significant:
// resolution input is index-aligned with it.
type PendingBatch struct {
	ID    string           `json:"id"`
	Items []ClassifiedItem `json:"items"`
}

// ItemStatus tags an item inside a recent-upload record.
type ItemStatus string

const (
	StatusClassified ItemStatus = "classified"
	StatusNeedsInput ItemStatus = "needs_input"
)

// UploadItem is a classified item with its per-upload status tag.
type UploadItem struct {
	Name     string     `json:"name"`
	Amount   Money      `json:"amount"`
	Category string     `json:"category"`
	Status   ItemStatus `json:"status"`
}

// UploadRecord is one entry of the bounded recent-uploads history.
// It exists for observability and is not load-bearing.
type UploadRecord struct {
	ID        string       `json:"id"`
	Filename  string       `json:"filename"`
	CreatedAt string       `json:"created_at"`
	Items     []UploadItem `json:"items"`
	Total     Money        `json:"total"`
}

// Rule maps a lowercased keyword to a category. Rules live in an
// ordered list; the longest matching keyword wins and earlier rules
// break ties.
type Rule struct {
	Keyword  string `json:"keyword"`
	Category string `json:"category"`
}

// BudgetRow is one line of the monthly summary.
type BudgetRow struct {
	Category  string
	Budget    Money
	Spent     Money
	Remaining Money
}

// FallbackCategory is assigned to pending items resolved without an
// explicit category selection.
const FallbackCategory = "Other"

// ErrInvalidAmount is returned for amount tokens that cannot be parsed.
var ErrInvalidAmount = errors.New("invalid amount")

// MonthKey returns the YYYY-MM ledger bucket for t.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// UploadTimestamp formats t the way recent-upload records store it.
func UploadTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04")
}
