// Package parser extracts purchase line items from raw receipt text.
//
// OCR output for receipts comes in two shapes: one line per purchase,
// or a single blob where line breaks collapsed into pipe characters.
// Parse runs a line pass first and falls back to pipe-fragment
// splitting only when the line pass produced nothing.
package parser

import (
	"regexp"
	"strings"
	"unicode"

	"scontrini/internal/core"
)

var (
	// Trailing monetary token: optional currency symbol, two-decimal
	// amount, optional single-letter marker (tax code suffixes like
	// "5.48 X" on US receipts).
	lineItemRe = regexp.MustCompile(`(.+?)\s+([$€£]?\d+[.,]\d{2})(?:\s*[A-Za-z])?$`)

	// Payment, tax and total rows are never purchases.
	denylistRe = regexp.MustCompile(`(?i)\b(total|subtotal|tax|change|cash|visa|mastercard)\b`)

	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Parse returns the item candidates found in text, in input order.
// Nothing is deduplicated; a receipt can legitimately repeat an item.
func Parse(text string) []core.Item {
	var items []core.Item

	appendMatch := func(nameToken, amountToken string) {
		name := whitespaceRe.ReplaceAllString(nameToken, " ")
		name = strings.Trim(name, "- :|")
		if letterCount(name) < 2 {
			return
		}
		if denylistRe.MatchString(name) {
			return
		}
		amount, err := core.ParseAmount(amountToken)
		if err != nil {
			// Unparseable tokens are dropped, not errors.
			return
		}
		items = append(items, core.Item{Name: name, Amount: amount})
	}

	// Line pass: well-formed OCR output keeps one purchase per line.
	// Lines containing the fragment delimiter are left for the
	// fallback pass.
	for _, rawLine := range strings.Split(text, "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" || strings.Contains(line, "|") {
			continue
		}
		if m := lineItemRe.FindStringSubmatch(line); m != nil {
			appendMatch(m[1], m[2])
		}
	}

	// Fallback pass: OCR can collapse a whole receipt into one
	// pipe-delimited blob.
	if len(items) == 0 {
		for _, fragment := range strings.Split(text, "|") {
			segment := strings.TrimSpace(fragment)
			if segment == "" {
				continue
			}
			if m := lineItemRe.FindStringSubmatch(segment); m != nil {
				appendMatch(m[1], m[2])
			}
		}
	}

	return items
}

func letterCount(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}
