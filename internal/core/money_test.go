package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    int64
		wantErr bool
	}{
		{"plain two decimals", "5.48", 548, false},
		{"dollar sign stripped", "$5.48", 548, false},
		{"euro sign stripped", "€12.00", 1200, false},
		{"pound sign stripped", "£0.99", 99, false},
		{"decimal comma", "6,97", 697, false},
		{"no decimals", "7", 700, false},
		{"single decimal digit", "7.5", 750, false},
		{"third digit rounds half up", "1.005", 101, false},
		{"third digit rounds down", "1.004", 100, false},
		{"zero is valid", "0.00", 0, false},
		{"leading dot", ".50", 50, false},
		{"whitespace trimmed", "  3.25 ", 325, false},
		{"letters rejected", "abc", 0, true},
		{"mixed rejected", "5.4x", 0, true},
		{"two dots rejected", "1.2.3", 0, true},
		{"empty rejected", "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAmount) {
					t.Fatalf("ParseAmount(%q) err = %v, want ErrInvalidAmount", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAmount(%q): %v", tt.in, err)
			}
			if got.Cents != tt.want {
				t.Errorf("ParseAmount(%q) = %d cents, want %d", tt.in, got.Cents, tt.want)
			}
		})
	}
}

func TestMoneyString(t *testing.T) {
	if got := (Money{Cents: 548}).String(); got != "5.48" {
		t.Errorf("String() = %q", got)
	}
	if got := (Money{Cents: 700}).String(); got != "7.00" {
		t.Errorf("String() = %q", got)
	}
	if got := (Money{Cents: -1240}).String(); got != "-12.40" {
		t.Errorf("String() = %q", got)
	}
	if got := (Money{Cents: 5}).String(); got != "0.05" {
		t.Errorf("String() = %q", got)
	}
}

func TestMoneyJSON(t *testing.T) {
	// The store schema carries amounts as plain two-decimal numbers.
	out, err := json.Marshal(map[string]Money{"amount": {Cents: 548}})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(out) != `{"amount":5.48}` {
		t.Errorf("Marshal = %s", out)
	}

	var m Money
	if err := json.Unmarshal([]byte(`5.48`), &m); err != nil || m.Cents != 548 {
		t.Errorf("Unmarshal number = (%v, %v)", m, err)
	}
	if err := json.Unmarshal([]byte(`"6,97"`), &m); err != nil || m.Cents != 697 {
		t.Errorf("Unmarshal string = (%v, %v)", m, err)
	}
	if err := json.Unmarshal([]byte(`-0.50`), &m); err != nil || m.Cents != -50 {
		t.Errorf("Unmarshal negative = (%v, %v)", m, err)
	}
}
