package classify

import (
	"context"
	"log/slog"
	"strings"

	"scontrini/internal/core"
)

// Lookuper fetches descriptive text for an item name from an external
// knowledge source. Implementations must bound their own timeout.
type Lookuper interface {
	Lookup(ctx context.Context, query string) (string, error)
}

// categoryHints maps categories to words that, when found in external
// knowledge text, indicate the category. Scanned in order; the first
// category with any hit wins.
var categoryHints = []struct {
	category string
	words    []string
}{
	{"Groceries", []string{"food", "produce", "supermarket"}},
	{"Dining", []string{"restaurant", "coffee", "drink", "meal"}},
	{"Transport", []string{"transport", "vehicle", "fuel", "transit"}},
	{"Health", []string{"medical", "medicine", "pharmacy", "health"}},
	{"Household", []string{"home", "cleaning", "household"}},
	{"Utilities", []string{"utility", "electric", "internet", "telecom"}},
	{"Entertainment", []string{"music", "movie", "game", "entertainment"}},
	{"Personal Care", []string{"cosmetic", "hygiene", "care"}},
}

// Resolver runs the two-tier category resolution for one upload cycle.
// Tier-2 successes are written back into the table and recorded so the
// caller can persist them alongside the cycle's other writes.
type Resolver struct {
	table   *Table
	lookup  Lookuper
	learned []core.Rule
}

// NewResolver builds a resolver over table. lookup may be nil, which
// disables tier 2.
func NewResolver(table *Table, lookup Lookuper) *Resolver {
	return &Resolver{table: table, lookup: lookup}
}

// Resolve maps an item name to a category, or "" when neither tier
// finds one. Lookup failures are treated as "no answer" and never
// propagate.
func (r *Resolver) Resolve(ctx context.Context, name string) string {
	if category, ok := r.table.Match(name); ok {
		return category
	}
	if r.lookup == nil {
		return ""
	}

	corpus, err := r.lookup.Lookup(ctx, name)
	if err != nil {
		slog.DebugContext(ctx, "Knowledge lookup failed", "item", name, "error", err)
		return ""
	}
	category := matchHints(corpus)
	if category == "" {
		return ""
	}

	keyword := strings.ToLower(name)
	r.table.Learn(keyword, category)
	r.learned = append(r.learned, core.Rule{Keyword: keyword, Category: category})
	return category
}

// Learned returns the rules added by tier-2 resolutions this cycle.
func (r *Resolver) Learned() []core.Rule {
	return append([]core.Rule(nil), r.learned...)
}

func matchHints(corpus string) string {
	corpus = strings.ToLower(corpus)
	if strings.TrimSpace(corpus) == "" {
		return ""
	}
	for _, hint := range categoryHints {
		for _, word := range hint.words {
			if strings.Contains(corpus, word) {
				return hint.category
			}
		}
	}
	return ""
}
