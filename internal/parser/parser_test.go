package parser

import (
	"testing"

	"scontrini/internal/core"
)

func TestParseLinePass(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []core.Item
	}{
		{
			name: "simple line with marker",
			text: "BANANAS 5.48 X",
			want: []core.Item{{Name: "BANANAS", Amount: core.Money{Cents: 548}}},
		},
		{
			name: "currency symbol and comma separator",
			text: "CAFFE LATTE €3,50\nPANINO $4.25",
			want: []core.Item{
				{Name: "CAFFE LATTE", Amount: core.Money{Cents: 350}},
				{Name: "PANINO", Amount: core.Money{Cents: 425}},
			},
		},
		{
			name: "name punctuation is trimmed",
			text: "- MILK 2% : 6.97",
			want: []core.Item{{Name: "MILK 2%", Amount: core.Money{Cents: 697}}},
		},
		{
			name: "one decimal digit is not a monetary token",
			text: "BANANAS 5.4",
			want: nil,
		},
		{
			name: "lines without amounts are skipped",
			text: "WALMART SUPERCENTER\n15:38 03/02\nBANANAS 5.48",
			want: []core.Item{{Name: "BANANAS", Amount: core.Money{Cents: 548}}},
		},
		{
			name: "empty input",
			text: "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.text)
			assertItems(t, got, tt.want)
		})
	}
}

func TestParseFallbackPass(t *testing.T) {
	t.Run("pipe blob recovers multiple items", func(t *testing.T) {
		got := Parse("Walmart | BANANAS 5.48 | 15:38 | MILK 6.97 X")
		want := []core.Item{
			{Name: "BANANAS", Amount: core.Money{Cents: 548}},
			{Name: "MILK", Amount: core.Money{Cents: 697}},
		}
		assertItems(t, got, want)
	})

	t.Run("fallback only runs when line pass is empty", func(t *testing.T) {
		// The first line matches, so the pipe blob on the second line
		// must not be split.
		got := Parse("BANANAS 5.48\nEGGS 2.10 | MILK 6.97")
		want := []core.Item{{Name: "BANANAS", Amount: core.Money{Cents: 548}}}
		assertItems(t, got, want)
	})
}

func TestParseExclusions(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"total row", "TOTAL 43.20"},
		{"subtotal row", "SUBTOTAL 40.00"},
		{"tax row", "SALES TAX 3.20"},
		{"card brand", "VISA CREDIT 43.20"},
		{"change row", "CHANGE DUE 6.80"},
		{"cash row", "CASH 50.00"},
		{"case insensitive", "Total 43.20"},
		{"fewer than two letters", "A 1.99"},
		{"digits only name", "12345 1.99"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Parse(tt.text); len(got) != 0 {
				t.Fatalf("Parse(%q) = %v, want no candidates", tt.text, got)
			}
		})
	}

	t.Run("denylist word must be whole word", func(t *testing.T) {
		// "totally" contains "total" but not as a whole word.
		got := Parse("TOTALLY CHIPS 1.99")
		want := []core.Item{{Name: "TOTALLY CHIPS", Amount: core.Money{Cents: 199}}}
		assertItems(t, got, want)
	})
}

func TestParsePreservesOrder(t *testing.T) {
	got := Parse("MILK 6.97\nBANANAS 5.48\nMILK 6.97")
	want := []core.Item{
		{Name: "MILK", Amount: core.Money{Cents: 697}},
		{Name: "BANANAS", Amount: core.Money{Cents: 548}},
		{Name: "MILK", Amount: core.Money{Cents: 697}},
	}
	assertItems(t, got, want)
}

func assertItems(t *testing.T, got, want []core.Item) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d items %v, want %d items %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("item %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}
