package handlers

import (
	"context"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/shopspring/decimal"
	"github.com/starfederation/datastar-go/datastar"
	"golang.org/x/sync/errgroup"

	"spending-dashboard/internal/format"
	"spending-dashboard/internal/models"
	"spending-dashboard/internal/services"
)

const (
	transactionsPerPage = 10
	maxTableRows        = 50
	dashboardCurrency   = "USD"
)

var fragmentFuncs = template.FuncMap{
	"currency":        format.Currency,
	"timestamp":       format.Timestamp,
	"relative":        format.Relative,
	"category":        format.Category,
	"statusIcon":      format.StatusIcon,
	"severityClass":   format.SeverityClass,
	"ruleStatusClass": format.RuleStatusClass,
}

var fragments = template.Must(template.New("fragments").Funcs(fragmentFuncs).Parse(`
{{define "stats"}}<div id="stats-content" class="stats-grid">
{{range .}}<div class="stat-card">
<div class="stat-label">{{.Label}}</div>
<div class="stat-value">{{.Value}}</div>
<div class="stat-change {{if .Up}}up{{else}}down{{end}}">{{.Change}} vs previous period</div>
</div>
{{end}}</div>{{end}}

{{define "transactions"}}<div id="transactions-content">
{{if .Rows}}<table class="modern-table">
<thead><tr><th>Time</th><th>Merchant</th><th>Category</th><th>Amount</th><th>Status</th></tr></thead>
<tbody>
{{range .Rows}}<tr>
<td>{{timestamp .Time}}</td>
<td>{{.Merchant}}</td>
<td><span class="category-badge">{{category .Category}}</span></td>
<td><strong>{{currency .Amount .Currency}}</strong></td>
<td>{{statusIcon .Status}} {{.Status}}</td>
</tr>
{{end}}</tbody>
</table>
{{else}}<p class="empty">No transactions found</p>
{{end}}<div class="pagination">{{.Summary}}</div>
</div>{{end}}

{{define "alerts"}}<div id="alerts-content">
{{if .Alerts}}<ul class="alert-list">
{{range .Alerts}}<li class="alert-item{{if .Resolved}} resolved{{end}}">
<span class="{{severityClass .Severity}}">{{.Severity}}</span>
<strong>{{.Title}}</strong>
<p>{{.Description}}</p>
<time datetime="{{.Timestamp.Format "2006-01-02T15:04:05Z07:00"}}">{{relative .Timestamp $.Now}}</time>
</li>
{{end}}</ul>
{{else}}<p class="empty">No alerts</p>
{{end}}</div>{{end}}

{{define "rules"}}<div id="rules-content">
{{if .}}<ul class="rule-list">
{{range .}}<li class="rule-item" id="rule-{{.ID}}">
<span class="{{ruleStatusClass .Status}}">{{.Status}}</span>
<span class="rule-text">{{.Rule}}</span>
<span class="rule-meta">Triggered {{.Triggered}} times, last: {{.LastTriggered}}</span>
</li>
{{end}}</ul>
{{else}}<p class="empty">No alert rules</p>
{{end}}</div>{{end}}

{{define "error"}}<div id="{{.ID}}" class="error-state">⚠️ {{.Message}}</div>{{end}}
`))

// dashboardSignals mirrors the datastar signals the page sends with each
// request.
type dashboardSignals struct {
	Query string `json:"query"`
	Range string `json:"range"`
	Page  int    `json:"page"`
}

type statCard struct {
	Label  string
	Value  string
	Change string
	Up     bool
}

type transactionsView struct {
	Rows    []models.Transaction
	Summary string
}

type alertsView struct {
	Alerts []models.Alert
	Now    time.Time
}

type SSEHandlers struct {
	transactions *services.Transactions
	alerts       services.AlertProvider
	logger       *slog.Logger
	now          func() time.Time
}

func NewSSEHandlers(transactions *services.Transactions, alerts services.AlertProvider, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		transactions: transactions,
		alerts:       alerts,
		logger:       logger,
		now:          time.Now,
	}
}

func (h *SSEHandlers) readSignals(r *http.Request) dashboardSignals {
	var signals dashboardSignals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		h.logger.DebugContext(r.Context(), "ignoring unreadable signals", "error", err)
	}

	q := r.URL.Query()
	if signals.Query == "" {
		signals.Query = q.Get("q")
	}
	if signals.Range == "" {
		signals.Range = q.Get("range")
	}
	if signals.Range == "" {
		signals.Range = defaultChartRange
	}
	if signals.Page < 1 {
		signals.Page = defaultPage
	}
	return signals
}

func render(name string, data any) (string, error) {
	var buf strings.Builder
	err := fragments.ExecuteTemplate(&buf, name, data)
	return buf.String(), err
}

func (h *SSEHandlers) patch(ctx context.Context, sse *datastar.ServerSentEventGenerator, name string, data any) {
	html, err := render(name, data)
	if err != nil {
		h.logger.ErrorContext(ctx, "render fragment", "fragment", name, "error", err)
		return
	}
	if err := sse.PatchElements(html); err != nil {
		h.logger.WarnContext(ctx, "patch elements", "fragment", name, "error", err)
	}
}

func (h *SSEHandlers) patchError(ctx context.Context, sse *datastar.ServerSentEventGenerator, id string, err error) {
	h.logger.ErrorContext(ctx, "load dashboard section", "section", id, "error", err)
	h.patch(ctx, sse, "error", map[string]string{
		"ID":      id,
		"Message": "Could not load data: " + err.Error(),
	})
}

func (h *SSEHandlers) patchSignals(ctx context.Context, sse *datastar.ServerSentEventGenerator, signals map[string]any) {
	jsonData, err := json.Marshal(signals)
	if err != nil {
		h.logger.ErrorContext(ctx, "marshal signals", "error", err)
		return
	}
	if err := sse.PatchSignals(jsonData); err != nil {
		h.logger.WarnContext(ctx, "patch signals", "error", err)
	}
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (h *SSEHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)
	ctx := r.Context()

	stats, err := h.transactions.TransactionStats(ctx)
	if err != nil {
		h.patchError(ctx, sse, "stats-content", err)
		return
	}
	h.patch(ctx, sse, "stats", statCards(stats))

	flush(w)
}

func (h *SSEHandlers) HandleTransactions(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)
	ctx := r.Context()
	signals := h.readSignals(r)

	view, err := h.loadTransactions(ctx, signals)
	if err != nil {
		h.patchError(ctx, sse, "transactions-content", err)
		return
	}
	h.patch(ctx, sse, "transactions", view)

	flush(w)
}

func (h *SSEHandlers) HandleChart(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)
	ctx := r.Context()
	signals := h.readSignals(r)

	buckets, err := h.transactions.TransactionChartData(ctx, signals.Range)
	if err != nil {
		h.patchError(ctx, sse, "chart-content", err)
		return
	}
	h.patchSignals(ctx, sse, map[string]any{"chartData": buckets})
	sse.PatchElements(`<div id="chart-content">✅ Chart data loaded</div>`)

	flush(w)
}

func (h *SSEHandlers) HandleAlerts(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)
	ctx := r.Context()

	var (
		alerts []models.Alert
		rules  []models.AlertRule
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		alerts, err = h.alerts.Alerts(gctx)
		return err
	})
	g.Go(func() (err error) {
		rules, err = h.alerts.AlertRules(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		h.patchError(ctx, sse, "alerts-content", err)
		return
	}

	h.patch(ctx, sse, "alerts", alertsView{Alerts: alerts, Now: h.now()})
	h.patch(ctx, sse, "rules", rules)

	flush(w)
}

// HandleRefreshAll reloads every dashboard section in one stream. Sections
// are fetched concurrently and patched once all of them are in.
func (h *SSEHandlers) HandleRefreshAll(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)
	ctx := r.Context()
	signals := h.readSignals(r)

	var (
		stats   *models.TransactionStats
		txView  transactionsView
		buckets []models.ChartBucket
		alerts  []models.Alert
		rules   []models.AlertRule
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stats, err = h.transactions.TransactionStats(gctx)
		return err
	})
	g.Go(func() (err error) {
		txView, err = h.loadTransactions(gctx, signals)
		return err
	})
	g.Go(func() (err error) {
		buckets, err = h.transactions.TransactionChartData(gctx, signals.Range)
		return err
	})
	g.Go(func() (err error) {
		alerts, err = h.alerts.Alerts(gctx)
		return err
	})
	g.Go(func() (err error) {
		rules, err = h.alerts.AlertRules(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		h.patchError(ctx, sse, "refresh-status", err)
		return
	}

	h.patch(ctx, sse, "stats", statCards(stats))
	h.patch(ctx, sse, "transactions", txView)
	h.patch(ctx, sse, "alerts", alertsView{Alerts: alerts, Now: h.now()})
	h.patch(ctx, sse, "rules", rules)
	h.patchSignals(ctx, sse, map[string]any{"chartData": buckets})
	sse.PatchElements(`<div id="refresh-status">✅ Dashboard refreshed</div>`)

	flush(w)
}

func (h *SSEHandlers) loadTransactions(ctx context.Context, signals dashboardSignals) (transactionsView, error) {
	if strings.TrimSpace(signals.Query) != "" {
		found, err := h.transactions.SearchTransactions(ctx, signals.Query)
		if err != nil {
			return transactionsView{}, err
		}
		rows := found
		if len(rows) > maxTableRows {
			rows = rows[:maxTableRows]
		}
		return transactionsView{
			Rows:    rows,
			Summary: english.Plural(len(found), "match", "matches") + " for \"" + signals.Query + "\"",
		}, nil
	}

	page, err := h.transactions.RecentTransactions(ctx, signals.Page, transactionsPerPage)
	if err != nil {
		return transactionsView{}, err
	}
	return transactionsView{
		Rows:    page.Transactions,
		Summary: "Page " + humanize.Comma(int64(page.Page)) + " of " + humanize.Comma(int64(max(page.TotalPages, 1))) + " (" + english.Plural(page.Total, "transaction", "transactions") + ")",
	}, nil
}

func statCards(stats *models.TransactionStats) []statCard {
	cur, prev := stats.PeriodStats, stats.PreviousPeriod
	return []statCard{
		countCard("Total Transactions", cur.TotalTransactions, prev.TotalTransactions),
		decimalCard("Total Volume", format.Currency(cur.TotalVolume, dashboardCurrency), cur.TotalVolume, prev.TotalVolume),
		countCard("Active Alerts", cur.ActiveAlerts, prev.ActiveAlerts),
		decimalCard("Avg Processing Time", cur.AvgProcessingTime.StringFixed(1)+"s", cur.AvgProcessingTime, prev.AvgProcessingTime),
	}
}

func countCard(label string, cur, prev int) statCard {
	return decimalCard(label, humanize.Comma(int64(cur)), decimal.NewFromInt(int64(cur)), decimal.NewFromInt(int64(prev)))
}

func decimalCard(label, value string, cur, prev decimal.Decimal) statCard {
	change, up := percentChange(cur, prev)
	return statCard{Label: label, Value: value, Change: change, Up: up}
}

// percentChange renders the relative change from prev to cur, e.g. "+8.7%".
func percentChange(cur, prev decimal.Decimal) (string, bool) {
	if prev.IsZero() {
		return "n/a", !cur.IsNegative()
	}
	pct := cur.Sub(prev).Div(prev).Mul(decimal.NewFromInt(100)).Round(1)
	if pct.IsNegative() {
		return pct.StringFixed(1) + "%", false
	}
	return "+" + pct.StringFixed(1) + "%", true
}
