// Package classify resolves item names to spending categories.
//
// Resolution is two-tiered: a local ordered keyword table first, then a
// hint-word scan over an external knowledge lookup. Successful external
// resolutions are written back into the table so the system learns.
package classify

import (
	"strings"

	"scontrini/internal/core"
)

// DefaultCategories seeds the budget table on first store access.
var DefaultCategories = []string{
	"Groceries",
	"Dining",
	"Transport",
	"Health",
	"Household",
	"Utilities",
	"Entertainment",
	"Personal Care",
	"Other",
}

// seedKeywords are the initial keyword rules per category.
var seedKeywords = []struct {
	category string
	keywords []string
}{
	{"Groceries", []string{"milk", "bread", "apple", "banana", "eggs", "rice", "vegetable", "grocery"}},
	{"Dining", []string{"burger", "pizza", "coffee", "restaurant", "cafe", "sandwich"}},
	{"Transport", []string{"fuel", "gas", "uber", "taxi", "metro", "bus", "parking"}},
	{"Health", []string{"pharmacy", "medicine", "vitamin", "clinic", "hospital"}},
	{"Household", []string{"detergent", "soap", "towel", "cleaner", "paper"}},
	{"Utilities", []string{"electric", "water", "internet", "phone", "utility"}},
	{"Entertainment", []string{"movie", "game", "streaming", "concert", "book"}},
	{"Personal Care", []string{"shampoo", "toothpaste", "lotion", "deodorant"}},
}

// SeedRules returns the initial classification rules in seed order.
func SeedRules() []core.Rule {
	var rules []core.Rule
	for _, seed := range seedKeywords {
		for _, kw := range seed.keywords {
			rules = append(rules, core.Rule{Keyword: kw, Category: seed.category})
		}
	}
	return rules
}

// Table is the in-memory classification table for one operation cycle.
//
// Matching is substring containment over the lowercased item name. When
// several keywords hit, the longest keyword wins; among equal lengths
// the rule listed first wins. This replaces the fragile
// map-iteration-order tie-break with an explicit priority.
type Table struct {
	rules []core.Rule
}

// NewTable builds a table from rules, preserving their order.
func NewTable(rules []core.Rule) *Table {
	return &Table{rules: append([]core.Rule(nil), rules...)}
}

// Match returns the category of the best matching keyword for name.
func (t *Table) Match(name string) (string, bool) {
	normalized := strings.ToLower(name)
	best := -1
	for i, rule := range t.rules {
		if rule.Keyword == "" || !strings.Contains(normalized, rule.Keyword) {
			continue
		}
		if best == -1 || len(rule.Keyword) > len(t.rules[best].Keyword) {
			best = i
		}
	}
	if best == -1 {
		return "", false
	}
	return t.rules[best].Category, true
}

// Learn inserts or updates the rule for keyword. The keyword is
// lowercased; an existing rule keeps its position but changes category.
func (t *Table) Learn(keyword, category string) {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		return
	}
	for i, rule := range t.rules {
		if rule.Keyword == keyword {
			t.rules[i].Category = category
			return
		}
	}
	t.rules = append(t.rules, core.Rule{Keyword: keyword, Category: category})
}

// Rules returns the table contents in priority order.
func (t *Table) Rules() []core.Rule {
	return append([]core.Rule(nil), t.rules...)
}
