package services

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperrors "spending-dashboard/internal/errors"
	"spending-dashboard/internal/format"
	"spending-dashboard/internal/models"
)

const (
	// recentWindow bounds how many transactions stats, search and charts look at.
	recentWindow = 1000

	prevCountFactor  = 0.88
	prevVolumeFactor = 0.92
	prevAlertsFactor = 1.15
)

// Placeholder processing times in seconds. The API reports no processing
// latency, so these stay fixed until it does.
var (
	placeholderAvgProcessing     = decimal.RequireFromString("1.2")
	placeholderPrevAvgProcessing = decimal.RequireFromString("1.4")
)

// TransactionSource fetches raw transaction records from the upstream API.
type TransactionSource interface {
	Transactions(ctx context.Context) ([]models.RawTransaction, error)
	Transaction(ctx context.Context, id string) (*models.RawTransaction, error)
}

type Transactions struct {
	source TransactionSource
	logger *slog.Logger
	now    func() time.Time
}

type TransactionsOption func(*Transactions)

// WithClock overrides the time source used for chart windows.
func WithClock(now func() time.Time) TransactionsOption {
	return func(s *Transactions) { s.now = now }
}

func NewTransactions(source TransactionSource, logger *slog.Logger, opts ...TransactionsOption) *Transactions {
	s := &Transactions{
		source: source,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecentTransactions returns one page of transactions, newest first.
func (s *Transactions) RecentTransactions(ctx context.Context, page, limit int) (*models.TransactionPage, error) {
	if page < 1 {
		return nil, apperrors.Validation("page must be at least 1")
	}
	if limit < 1 {
		return nil, apperrors.Validation("limit must be at least 1")
	}

	all, err := s.fetchSorted(ctx)
	if err != nil {
		return nil, err
	}

	total := len(all)
	totalPages := total / limit
	if total%limit != 0 {
		totalPages++
	}

	// Compare page numbers before multiplying so huge pages cannot overflow.
	rows := []models.Transaction{}
	if page-1 < totalPages {
		start := (page - 1) * limit
		end := start + min(limit, total-start)
		rows = all[start:end]
	}

	return &models.TransactionPage{
		Transactions: rows,
		Total:        total,
		Page:         page,
		Limit:        limit,
		TotalPages:   totalPages,
	}, nil
}

// TransactionByID returns nil, nil when the transaction does not exist.
func (s *Transactions) TransactionByID(ctx context.Context, id string) (*models.Transaction, error) {
	raw, err := s.source.Transaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}

	tx, err := models.MapTransaction(*raw)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (s *Transactions) TransactionStats(ctx context.Context) (*models.TransactionStats, error) {
	txs, err := s.recent(ctx)
	if err != nil {
		return nil, err
	}

	stats := ComputeStats(txs)
	s.logger.DebugContext(ctx, "computed transaction stats",
		"transactions", stats.TotalTransactions,
		"volume", stats.TotalVolume.String(),
		"active_alerts", stats.ActiveAlerts,
	)
	return &stats, nil
}

// SearchTransactions matches query case-insensitively against merchant, id,
// type and category. A blank query matches everything.
func (s *Transactions) SearchTransactions(ctx context.Context, query string) ([]models.Transaction, error) {
	txs, err := s.recent(ctx)
	if err != nil {
		return nil, err
	}
	return FilterTransactions(txs, query), nil
}

func (s *Transactions) TransactionChartData(ctx context.Context, timeRange string) ([]models.ChartBucket, error) {
	txs, err := s.recent(ctx)
	if err != nil {
		return nil, err
	}
	return DailyBuckets(txs, s.now(), RangeDays(timeRange)), nil
}

// CategorySpending breaks recent transactions down by category, largest
// total first.
func (s *Transactions) CategorySpending(ctx context.Context) ([]models.CategorySpending, error) {
	txs, err := s.recent(ctx)
	if err != nil {
		return nil, err
	}
	return SpendingByCategory(txs), nil
}

func (s *Transactions) recent(ctx context.Context) ([]models.Transaction, error) {
	page, err := s.RecentTransactions(ctx, 1, recentWindow)
	if err != nil {
		return nil, err
	}
	return page.Transactions, nil
}

func (s *Transactions) fetchSorted(ctx context.Context) ([]models.Transaction, error) {
	raws, err := s.source.Transactions(ctx)
	if err != nil {
		return nil, err
	}

	txs, err := models.MapTransactions(raws)
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(txs, func(a, b models.Transaction) int {
		return b.Time.Compare(a.Time)
	})
	return txs, nil
}

// ComputeStats totals txs and derives the previous-period comparison.
func ComputeStats(txs []models.Transaction) models.TransactionStats {
	volume := decimal.Zero
	flagged := 0
	for _, tx := range txs {
		volume = volume.Add(tx.Amount)
		if tx.Status == models.StatusFlagged {
			flagged++
		}
	}

	// TODO: replace the scaled previous period with a real query once the API
	// exposes historical aggregates.
	return models.TransactionStats{
		PeriodStats: models.PeriodStats{
			TotalTransactions: len(txs),
			TotalVolume:       volume,
			ActiveAlerts:      flagged,
			AvgProcessingTime: placeholderAvgProcessing,
		},
		PreviousPeriod: models.PeriodStats{
			TotalTransactions: scaleCount(len(txs), prevCountFactor),
			TotalVolume:       volume.Mul(decimal.NewFromFloat(prevVolumeFactor)),
			ActiveAlerts:      scaleCount(flagged, prevAlertsFactor),
			AvgProcessingTime: placeholderPrevAvgProcessing,
		},
	}
}

func scaleCount(n int, factor float64) int {
	return int(decimal.NewFromInt(int64(n)).Mul(decimal.NewFromFloat(factor)).Round(0).IntPart())
}

func FilterTransactions(txs []models.Transaction, query string) []models.Transaction {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]models.Transaction, 0, len(txs))
	for _, tx := range txs {
		if q == "" ||
			strings.Contains(strings.ToLower(tx.Merchant), q) ||
			strings.Contains(strings.ToLower(tx.ID), q) ||
			strings.Contains(strings.ToLower(string(tx.Type)), q) ||
			strings.Contains(strings.ToLower(tx.Category), q) {
			out = append(out, tx)
		}
	}
	return out
}

// SpendingByCategory groups txs by category. Ties on total are ordered by
// category name so the result is stable.
func SpendingByCategory(txs []models.Transaction) []models.CategorySpending {
	index := make(map[string]int)
	out := []models.CategorySpending{}
	for _, tx := range txs {
		name := strings.TrimSpace(tx.Category)
		if name == "" {
			name = format.Uncategorized
		}
		i, ok := index[name]
		if !ok {
			i = len(out)
			index[name] = i
			out = append(out, models.CategorySpending{Category: name, TotalAmount: decimal.Zero})
		}
		out[i].TotalAmount = out[i].TotalAmount.Add(tx.Amount)
		out[i].TransactionCount++
	}

	for i := range out {
		out[i].AverageAmount = out[i].TotalAmount.Div(decimal.NewFromInt(int64(out[i].TransactionCount))).Round(2)
	}
	slices.SortFunc(out, func(a, b models.CategorySpending) int {
		if c := b.TotalAmount.Cmp(a.TotalAmount); c != 0 {
			return c
		}
		return strings.Compare(a.Category, b.Category)
	})
	return out
}

// RangeDays maps a symbolic chart range onto a day count. Unknown ranges
// cover a year.
func RangeDays(timeRange string) int {
	switch timeRange {
	case "7d":
		return 7
	case "30d":
		return 30
	case "90d":
		return 90
	default:
		return 365
	}
}

// DailyBuckets groups txs by calendar date in now's location over the days
// ending today. Every day gets a bucket, oldest first.
func DailyBuckets(txs []models.Transaction, now time.Time, days int) []models.ChartBucket {
	if days < 1 {
		return []models.ChartBucket{}
	}

	loc := now.Location()
	y, m, d := now.Date()

	buckets := make([]models.ChartBucket, days)
	index := make(map[string]int, days)
	for i := range days {
		day := time.Date(y, m, d-(days-1-i), 0, 0, 0, 0, loc)
		key := day.Format(time.DateOnly)
		buckets[i] = models.ChartBucket{
			Date:   key,
			Label:  day.Format(format.ChartLabelLayout),
			Volume: decimal.Zero,
		}
		index[key] = i
	}

	for _, tx := range txs {
		i, ok := index[tx.Time.In(loc).Format(time.DateOnly)]
		if !ok {
			continue
		}
		buckets[i].Volume = buckets[i].Volume.Add(tx.Amount)
		buckets[i].Count++
	}

	return buckets
}
