// Package templates holds the templ components for the dashboard page. Run
// `templ generate` after editing a .templ file.
package templates

const (
	Title    = "Spending Dashboard"
	Subtitle = "Live view of your transactions, alerts and rules"

	chartSection = "chart-content"
)

// Sections lists the dashboard panels in page order. Each id is the target
// of a datastar element patch.
var Sections = []struct {
	ID      string
	Heading string
}{
	{"stats-content", "Overview"},
	{chartSection, "Daily Spending"},
	{"transactions-content", "Recent Transactions"},
	{"alerts-content", "Alerts"},
	{"rules-content", "Alert Rules"},
}
