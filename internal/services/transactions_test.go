package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	apperrors "spending-dashboard/internal/errors"
	"spending-dashboard/internal/format"
	"spending-dashboard/internal/models"
)

type fakeTransactionSource struct {
	raws  []models.RawTransaction
	byID  map[string]models.RawTransaction
	err   error
	calls int
}

func (f *fakeTransactionSource) Transactions(ctx context.Context) ([]models.RawTransaction, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.raws, nil
}

func (f *fakeTransactionSource) Transaction(ctx context.Context, id string) (*models.RawTransaction, error) {
	if f.err != nil {
		return nil, f.err
	}
	raw, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	return &raw, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func rawTx(id string, amount string, ts time.Time) models.RawTransaction {
	return models.RawTransaction{
		ID:              id,
		Amount:          decimal.NewNullDecimal(decimal.RequireFromString(amount)),
		Currency:        "USD",
		MerchantName:    "Merchant " + id,
		TransactionDate: ts.UTC().Format(time.RFC3339),
		TransactionType: "DEBIT",
		Status:          "COMPLETED",
	}
}

var baseTime = time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)

func TestRecentTransactions_SortedDescending(t *testing.T) {
	src := &fakeTransactionSource{raws: []models.RawTransaction{
		rawTx("a", "1", baseTime.Add(-3*time.Hour)),
		rawTx("b", "2", baseTime),
		rawTx("c", "3", baseTime.Add(-48*time.Hour)),
		rawTx("d", "4", baseTime.Add(-1*time.Hour)),
	}}
	svc := NewTransactions(src, testLogger())

	page, err := svc.RecentTransactions(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("RecentTransactions() error: %v", err)
	}

	var ids string
	for _, tx := range page.Transactions {
		ids += tx.ID
	}
	if ids != "bdac" {
		t.Errorf("order = %q, want bdac", ids)
	}
	for i := 1; i < len(page.Transactions); i++ {
		if page.Transactions[i].Time.After(page.Transactions[i-1].Time) {
			t.Errorf("transaction %d is newer than its predecessor", i)
		}
	}
	if page.Transactions[0].Status != "completed" || page.Transactions[0].Type != "debit" {
		t.Errorf("status/type not normalised: %+v", page.Transactions[0])
	}
}

func TestRecentTransactions_Pagination(t *testing.T) {
	var raws []models.RawTransaction
	for i := range 23 {
		raws = append(raws, rawTx(fmt.Sprintf("tx-%02d", i), "1", baseTime.Add(-time.Duration(i)*time.Minute)))
	}
	svc := NewTransactions(&fakeTransactionSource{raws: raws}, testLogger())

	tests := []struct {
		page, limit   int
		wantLen       int
		wantFirst     string
		wantTotalPage int
	}{
		{1, 10, 10, "tx-00", 3},
		{2, 10, 10, "tx-10", 3},
		{3, 10, 3, "tx-20", 3},
		{4, 10, 0, "", 3},
		{1, 23, 23, "tx-00", 1},
		{1, 5, 5, "tx-00", 5},
		{5, 5, 3, "tx-20", 5},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("page%d_limit%d", tt.page, tt.limit), func(t *testing.T) {
			page, err := svc.RecentTransactions(context.Background(), tt.page, tt.limit)
			if err != nil {
				t.Fatalf("RecentTransactions() error: %v", err)
			}
			if len(page.Transactions) != tt.wantLen {
				t.Errorf("len = %d, want %d", len(page.Transactions), tt.wantLen)
			}
			if len(page.Transactions) > tt.limit {
				t.Errorf("page exceeds limit")
			}
			if tt.wantLen > 0 && page.Transactions[0].ID != tt.wantFirst {
				t.Errorf("first = %s, want %s", page.Transactions[0].ID, tt.wantFirst)
			}
			if page.Total != 23 {
				t.Errorf("Total = %d, want 23", page.Total)
			}
			if page.TotalPages != tt.wantTotalPage {
				t.Errorf("TotalPages = %d, want %d", page.TotalPages, tt.wantTotalPage)
			}
		})
	}
}

func TestRecentTransactions_PageBeyondEnd(t *testing.T) {
	svc := NewTransactions(&fakeTransactionSource{raws: []models.RawTransaction{
		rawTx("only", "1", baseTime),
	}}, testLogger())

	for _, page := range []int{2, math.MaxInt / 10, math.MaxInt} {
		t.Run(fmt.Sprint(page), func(t *testing.T) {
			got, err := svc.RecentTransactions(context.Background(), page, 20)
			if err != nil {
				t.Fatalf("RecentTransactions() error: %v", err)
			}
			if got.Transactions == nil || len(got.Transactions) != 0 {
				t.Errorf("expected an empty page, got %+v", got.Transactions)
			}
			if got.Total != 1 || got.TotalPages != 1 || got.Page != page {
				t.Errorf("unexpected page metadata %+v", got)
			}
		})
	}

	got, err := svc.RecentTransactions(context.Background(), 1, math.MaxInt)
	if err != nil {
		t.Fatalf("RecentTransactions() error: %v", err)
	}
	if len(got.Transactions) != 1 || got.TotalPages != 1 {
		t.Errorf("huge limit: got %+v", got)
	}
}

func TestRecentTransactions_Invalid(t *testing.T) {
	svc := NewTransactions(&fakeTransactionSource{}, testLogger())

	for _, args := range [][2]int{{0, 10}, {1, 0}, {-1, -1}} {
		_, err := svc.RecentTransactions(context.Background(), args[0], args[1])
		if !apperrors.HasCode(err, apperrors.CodeValidation) {
			t.Errorf("RecentTransactions(%d, %d) error = %v, want VALIDATION_ERROR", args[0], args[1], err)
		}
	}
}

func TestRecentTransactions_PropagatesFailure(t *testing.T) {
	upstream := apperrors.RequestFailed(500, "failed to fetch transactions")
	svc := NewTransactions(&fakeTransactionSource{err: upstream}, testLogger())

	_, err := svc.RecentTransactions(context.Background(), 1, 10)
	if err != upstream {
		t.Errorf("error = %v, want upstream error", err)
	}
}

func TestTransactionByID(t *testing.T) {
	src := &fakeTransactionSource{byID: map[string]models.RawTransaction{
		"tx-1": rawTx("tx-1", "9.99", baseTime),
	}}
	svc := NewTransactions(src, testLogger())

	tx, err := svc.TransactionByID(context.Background(), "tx-1")
	if err != nil {
		t.Fatalf("TransactionByID() error: %v", err)
	}
	if tx == nil || tx.ID != "tx-1" {
		t.Fatalf("TransactionByID() = %+v", tx)
	}

	tx, err = svc.TransactionByID(context.Background(), "missing")
	if err != nil || tx != nil {
		t.Errorf("TransactionByID(missing) = %+v, %v; want nil, nil", tx, err)
	}
}

func TestTransactionStats(t *testing.T) {
	src := &fakeTransactionSource{raws: []models.RawTransaction{
		rawTx("a", "100", baseTime),
		rawTx("b", "50", baseTime),
	}}
	svc := NewTransactions(src, testLogger())

	stats, err := svc.TransactionStats(context.Background())
	if err != nil {
		t.Fatalf("TransactionStats() error: %v", err)
	}

	if stats.TotalTransactions != 2 {
		t.Errorf("TotalTransactions = %d, want 2", stats.TotalTransactions)
	}
	if !stats.TotalVolume.Equal(decimal.NewFromInt(150)) {
		t.Errorf("TotalVolume = %s, want 150", stats.TotalVolume)
	}
	if stats.ActiveAlerts != 0 {
		t.Errorf("ActiveAlerts = %d, want 0", stats.ActiveAlerts)
	}
	if stats.PreviousPeriod.TotalTransactions != 2 {
		t.Errorf("previous TotalTransactions = %d, want 2", stats.PreviousPeriod.TotalTransactions)
	}
	if !stats.PreviousPeriod.TotalVolume.Equal(decimal.NewFromInt(138)) {
		t.Errorf("previous TotalVolume = %s, want 138", stats.PreviousPeriod.TotalVolume)
	}
}

func TestComputeStats_Flagged(t *testing.T) {
	var txs []models.Transaction
	for i := range 20 {
		status := models.StatusCompleted
		if i%2 == 0 {
			status = models.StatusFlagged
		}
		txs = append(txs, models.Transaction{ID: fmt.Sprint(i), Amount: decimal.NewFromInt(10), Status: status})
	}

	stats := ComputeStats(txs)
	if stats.ActiveAlerts != 10 {
		t.Errorf("ActiveAlerts = %d, want 10", stats.ActiveAlerts)
	}
	if stats.PreviousPeriod.ActiveAlerts != 12 {
		t.Errorf("previous ActiveAlerts = %d, want round(10*1.15)=12", stats.PreviousPeriod.ActiveAlerts)
	}
	if stats.PreviousPeriod.TotalTransactions != 18 {
		t.Errorf("previous TotalTransactions = %d, want round(20*0.88)=18", stats.PreviousPeriod.TotalTransactions)
	}
}

func TestComputeStats_Empty(t *testing.T) {
	stats := ComputeStats(nil)
	if stats.TotalTransactions != 0 || !stats.TotalVolume.IsZero() {
		t.Errorf("unexpected stats for no transactions: %+v", stats)
	}
}

func TestSearchTransactions(t *testing.T) {
	uber := rawTx("tx-uber", "20", baseTime)
	uber.MerchantName = "Uber Technologies"
	cat := "Uber/Transport"
	uber.MerchantCategory = &cat

	coffee := rawTx("tx-coffee", "4", baseTime)
	coffee.MerchantName = "Blue Bottle"
	food := "Food"
	coffee.MerchantCategory = &food

	credit := rawTx("tx-refund", "4", baseTime)
	credit.MerchantName = "Amazon"
	credit.TransactionType = "CREDIT"

	svc := NewTransactions(&fakeTransactionSource{raws: []models.RawTransaction{uber, coffee, credit}}, testLogger())

	tests := []struct {
		query string
		want  []string
	}{
		{"ube", []string{"tx-uber"}},
		{"TRANSPORT", []string{"tx-uber"}},
		{"bottle", []string{"tx-coffee"}},
		{"refund", []string{"tx-refund"}},
		{"credit", []string{"tx-refund"}},
		{"tx-", []string{"tx-uber", "tx-coffee", "tx-refund"}},
		{"", []string{"tx-uber", "tx-coffee", "tx-refund"}},
		{"nothing", nil},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := svc.SearchTransactions(context.Background(), tt.query)
			if err != nil {
				t.Fatalf("SearchTransactions() error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d matches, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("match %d = %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestSearchTransactions_MatchesCategoryCaseInsensitively(t *testing.T) {
	txs := []models.Transaction{{ID: "1", Merchant: "Lyft", Category: "Uber/Transport"}}
	if got := FilterTransactions(txs, "ube"); len(got) != 1 {
		t.Errorf("expected category match, got %d", len(got))
	}
}

func TestRangeDays(t *testing.T) {
	tests := map[string]int{"7d": 7, "30d": 30, "90d": 90, "1y": 365, "": 365, "bogus": 365}
	for in, want := range tests {
		if got := RangeDays(in); got != want {
			t.Errorf("RangeDays(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestTransactionChartData_SevenDays(t *testing.T) {
	src := &fakeTransactionSource{raws: []models.RawTransaction{
		rawTx("today-1", "50", time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)),
		rawTx("today-2", "25", time.Date(2024, 3, 10, 1, 0, 0, 0, time.UTC)),
		rawTx("first-day", "10", time.Date(2024, 3, 4, 23, 59, 0, 0, time.UTC)),
		rawTx("too-old", "999", time.Date(2024, 3, 3, 23, 59, 0, 0, time.UTC)),
		rawTx("future", "999", time.Date(2024, 3, 11, 0, 1, 0, 0, time.UTC)),
	}}
	svc := NewTransactions(src, testLogger(), WithClock(func() time.Time { return baseTime }))

	buckets, err := svc.TransactionChartData(context.Background(), "7d")
	if err != nil {
		t.Fatalf("TransactionChartData() error: %v", err)
	}

	if len(buckets) != 7 {
		t.Fatalf("len = %d, want 7", len(buckets))
	}

	wantDates := []string{"2024-03-04", "2024-03-05", "2024-03-06", "2024-03-07", "2024-03-08", "2024-03-09", "2024-03-10"}
	for i, want := range wantDates {
		if buckets[i].Date != want {
			t.Errorf("bucket %d date = %s, want %s", i, buckets[i].Date, want)
		}
	}

	if buckets[0].Count != 1 || !buckets[0].Volume.Equal(decimal.NewFromInt(10)) {
		t.Errorf("first bucket = %+v", buckets[0])
	}
	if buckets[6].Count != 2 || !buckets[6].Volume.Equal(decimal.NewFromInt(75)) {
		t.Errorf("last bucket = %+v", buckets[6])
	}
	for _, b := range buckets[1:6] {
		if b.Count != 0 || !b.Volume.IsZero() {
			t.Errorf("bucket %s should be empty, got %+v", b.Date, b)
		}
	}
	if buckets[6].Label != "Mar 10" {
		t.Errorf("label = %q, want \"Mar 10\"", buckets[6].Label)
	}
}

func TestDailyBuckets_NoTransactions(t *testing.T) {
	for _, days := range []int{7, 30, 90, 365} {
		buckets := DailyBuckets(nil, baseTime, days)
		if len(buckets) != days {
			t.Errorf("days=%d: len = %d", days, len(buckets))
		}
		for i := 1; i < len(buckets); i++ {
			if buckets[i].Date <= buckets[i-1].Date {
				t.Fatalf("days=%d: buckets not strictly ascending at %d", days, i)
			}
		}
		for _, b := range buckets {
			if b.Count != 0 || !b.Volume.IsZero() {
				t.Fatalf("days=%d: non-zero bucket %+v", days, b)
			}
		}
	}
}

func TestDailyBuckets_UsesClockLocation(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	now := time.Date(2024, 3, 10, 8, 0, 0, 0, loc)
	// 02:00 UTC on Mar 10 is still Mar 9 at UTC-5.
	txs := []models.Transaction{{ID: "x", Amount: decimal.NewFromInt(5), Time: time.Date(2024, 3, 10, 2, 0, 0, 0, time.UTC)}}

	buckets := DailyBuckets(txs, now, 2)
	if buckets[0].Date != "2024-03-09" || buckets[0].Count != 1 {
		t.Errorf("expected transaction in the local Mar 9 bucket, got %+v", buckets)
	}
}

func TestRecentWindow(t *testing.T) {
	raws := make([]models.RawTransaction, 0, recentWindow+1)
	for i := range recentWindow {
		raws = append(raws, rawTx(fmt.Sprintf("tx-%04d", i), "1", baseTime.Add(-time.Duration(i)*time.Minute)))
	}
	// The oldest record sits on a day of its own so its bucket would show it.
	oldest := rawTx("oldest", "500", baseTime.Add(-72*time.Hour))
	oldest.MerchantName = "Forgotten Shop"
	raws = append(raws, oldest)

	svc := NewTransactions(&fakeTransactionSource{raws: raws}, testLogger(), WithClock(func() time.Time { return baseTime }))
	ctx := context.Background()

	stats, err := svc.TransactionStats(ctx)
	if err != nil {
		t.Fatalf("TransactionStats() error: %v", err)
	}
	if stats.TotalTransactions != recentWindow {
		t.Errorf("TotalTransactions = %d, want %d", stats.TotalTransactions, recentWindow)
	}
	if !stats.TotalVolume.Equal(decimal.NewFromInt(recentWindow)) {
		t.Errorf("TotalVolume = %s, want %d", stats.TotalVolume, recentWindow)
	}

	matches, err := svc.SearchTransactions(ctx, "forgotten")
	if err != nil {
		t.Fatalf("SearchTransactions() error: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("oldest transaction should be outside the search window, got %d matches", len(matches))
	}
	all, err := svc.SearchTransactions(ctx, "")
	if err != nil {
		t.Fatalf("SearchTransactions() error: %v", err)
	}
	if len(all) != recentWindow {
		t.Errorf("blank search returned %d, want %d", len(all), recentWindow)
	}

	buckets, err := svc.TransactionChartData(ctx, "7d")
	if err != nil {
		t.Fatalf("TransactionChartData() error: %v", err)
	}
	total := 0
	for _, b := range buckets {
		total += b.Count
		if b.Date == "2024-03-07" && b.Count != 0 {
			t.Errorf("oldest transaction leaked into bucket %+v", b)
		}
	}
	if total != recentWindow {
		t.Errorf("chart counted %d transactions, want %d", total, recentWindow)
	}
}

func TestCategorySpending(t *testing.T) {
	withCategory := func(raw models.RawTransaction, category string) models.RawTransaction {
		raw.MerchantCategory = &category
		return raw
	}
	src := &fakeTransactionSource{raws: []models.RawTransaction{
		withCategory(rawTx("a", "50", baseTime), "Food"),
		withCategory(rawTx("b", "75", baseTime), "Food"),
		withCategory(rawTx("c", "200", baseTime), "Electronics"),
		withCategory(rawTx("d", "10", baseTime), "Travel"),
		withCategory(rawTx("e", "10", baseTime), "Books"),
		rawTx("f", "1", baseTime),
	}}
	svc := NewTransactions(src, testLogger())

	got, err := svc.CategorySpending(context.Background())
	if err != nil {
		t.Fatalf("CategorySpending() error: %v", err)
	}

	want := []models.CategorySpending{
		{Category: "Electronics", TotalAmount: decimal.NewFromInt(200), TransactionCount: 1, AverageAmount: decimal.NewFromInt(200)},
		{Category: "Food", TotalAmount: decimal.NewFromInt(125), TransactionCount: 2, AverageAmount: decimal.RequireFromString("62.5")},
		{Category: "Books", TotalAmount: decimal.NewFromInt(10), TransactionCount: 1, AverageAmount: decimal.NewFromInt(10)},
		{Category: "Travel", TotalAmount: decimal.NewFromInt(10), TransactionCount: 1, AverageAmount: decimal.NewFromInt(10)},
		{Category: format.Uncategorized, TotalAmount: decimal.NewFromInt(1), TransactionCount: 1, AverageAmount: decimal.NewFromInt(1)},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d categories, want %d: %+v", len(got), len(want), got)
	}
	for i, w := range want {
		g := got[i]
		if g.Category != w.Category || g.TransactionCount != w.TransactionCount ||
			!g.TotalAmount.Equal(w.TotalAmount) || !g.AverageAmount.Equal(w.AverageAmount) {
			t.Errorf("category %d = %+v, want %+v", i, g, w)
		}
	}
}

func TestSpendingByCategory_Empty(t *testing.T) {
	got := SpendingByCategory(nil)
	if got == nil || len(got) != 0 {
		t.Errorf("SpendingByCategory(nil) = %#v, want empty slice", got)
	}
}

func TestCategorySpending_PropagatesFailure(t *testing.T) {
	upstream := apperrors.RequestFailed(503, "failed to fetch transactions")
	svc := NewTransactions(&fakeTransactionSource{err: upstream}, testLogger())

	if _, err := svc.CategorySpending(context.Background()); err != upstream {
		t.Errorf("error = %v, want upstream error", err)
	}
}
