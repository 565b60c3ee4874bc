// Package format turns raw transaction and alert values into display strings.
package format

import (
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"spending-dashboard/internal/models"
)

const (
	TimestampLayout  = "Jan 2, 2006 3:04 PM"
	ChartLabelLayout = "Jan 2"

	// Uncategorized labels transactions the API gave no category.
	Uncategorized = "Uncategorized"
)

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
}

var titleCaser = cases.Title(language.English)

// Currency renders amount with two decimals and thousands separators,
// e.g. "$1,234.50" or "-€12.00". Unknown codes are used as a prefix.
func Currency(amount decimal.Decimal, code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		code = "USD"
	}

	symbol, ok := currencySymbols[code]
	if !ok {
		symbol = code + " "
	}

	amount = amount.Round(2)
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Abs()
	}

	whole, frac, _ := strings.Cut(amount.StringFixed(2), ".")
	n, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return sign + symbol + whole + "." + frac
	}
	return sign + symbol + humanize.Comma(n) + "." + frac
}

func Timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(TimestampLayout)
}

// Relative describes t relative to now, e.g. "3 hours ago".
func Relative(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// Category title-cases an upstream category such as "FOOD_DINING".
func Category(category string) string {
	fields := strings.FieldsFunc(category, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
	if len(fields) == 0 {
		return Uncategorized
	}
	return titleCaser.String(strings.ToLower(strings.Join(fields, " ")))
}

func StatusIcon(status models.TransactionStatus) string {
	switch status {
	case models.StatusPending:
		return "⏳"
	case models.StatusCompleted:
		return "✅"
	case models.StatusFlagged:
		return "⚠️"
	default:
		return "•"
	}
}

func SeverityClass(sev models.Severity) string {
	switch sev {
	case models.SeverityHigh:
		return "badge badge-high"
	case models.SeverityMedium:
		return "badge badge-medium"
	default:
		return "badge badge-low"
	}
}

func RuleStatusClass(status models.RuleStatus) string {
	if status == models.RuleActive {
		return "badge badge-active"
	}
	return "badge badge-paused"
}
