package format

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"spending-dashboard/internal/models"
)

func TestCurrency(t *testing.T) {
	tests := []struct {
		amount string
		code   string
		want   string
	}{
		{"1234.5", "USD", "$1,234.50"},
		{"0", "usd", "$0.00"},
		{"-12", "EUR", "-€12.00"},
		{"1000000", "GBP", "£1,000,000.00"},
		{"9.999", "USD", "$10.00"},
		{"42", "CHF", "CHF 42.00"},
		{"5", "", "$5.00"},
		{"-0.004", "USD", "$0.00"},
		{"-0.005", "USD", "-$0.01"},
		{"-999.999", "USD", "-$1,000.00"},
	}

	for _, tt := range tests {
		t.Run(tt.amount+tt.code, func(t *testing.T) {
			got := Currency(decimal.RequireFromString(tt.amount), tt.code)
			if got != tt.want {
				t.Errorf("Currency(%s, %q) = %q, want %q", tt.amount, tt.code, got, tt.want)
			}
		})
	}
}

func TestCategory(t *testing.T) {
	tests := map[string]string{
		"FOOD_DINING":   "Food Dining",
		"gas-transport": "Gas Transport",
		"Retail":        "Retail",
		"":              "Uncategorized",
		"  ":            "Uncategorized",
	}
	for in, want := range tests {
		if got := Category(in); got != want {
			t.Errorf("Category(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRelative(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	if got := Relative(now.Add(-3*time.Hour), now); got != "3 hours ago" {
		t.Errorf("Relative() = %q, want \"3 hours ago\"", got)
	}
	if got := Relative(time.Time{}, now); got != "" {
		t.Errorf("Relative(zero) = %q, want empty", got)
	}
}

func TestTimestamp(t *testing.T) {
	ts := time.Date(2024, 1, 15, 14, 5, 0, 0, time.Local)
	if got := Timestamp(ts); got != "Jan 15, 2024 2:05 PM" {
		t.Errorf("Timestamp() = %q", got)
	}
	if got := Timestamp(time.Time{}); got != "" {
		t.Errorf("Timestamp(zero) = %q, want empty", got)
	}
}

func TestStatusIcon(t *testing.T) {
	tests := map[models.TransactionStatus]string{
		models.StatusPending:   "⏳",
		models.StatusCompleted: "✅",
		models.StatusFlagged:   "⚠️",
		"approved":             "•",
	}
	for status, want := range tests {
		if got := StatusIcon(status); got != want {
			t.Errorf("StatusIcon(%q) = %q, want %q", status, got, want)
		}
	}
}

func TestSeverityClass(t *testing.T) {
	if got := SeverityClass(models.SeverityHigh); got != "badge badge-high" {
		t.Errorf("SeverityClass(high) = %q", got)
	}
	if got := SeverityClass("unknown"); got != "badge badge-low" {
		t.Errorf("SeverityClass(unknown) = %q", got)
	}
}
