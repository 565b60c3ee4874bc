package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFlagged   TransactionStatus = "flagged"
)

type TransactionType string

const (
	TypeDebit  TransactionType = "debit"
	TypeCredit TransactionType = "credit"
)

// Transaction is the canonical, display-ready transaction record.
type Transaction struct {
	ID          string            `json:"id"`
	Amount      decimal.Decimal   `json:"amount"`
	Merchant    string            `json:"merchant"`
	Status      TransactionStatus `json:"status"`
	Time        time.Time         `json:"time"`
	Type        TransactionType   `json:"type"`
	Currency    string            `json:"currency"`
	Category    string            `json:"category,omitempty"`
	Description string            `json:"description,omitempty"`
}

type TransactionPage struct {
	Transactions []Transaction `json:"transactions"`
	Total        int           `json:"total"`
	Page         int           `json:"page"`
	Limit        int           `json:"limit"`
	TotalPages   int           `json:"totalPages"`
}

type PeriodStats struct {
	TotalTransactions int             `json:"totalTransactions"`
	TotalVolume       decimal.Decimal `json:"totalVolume"`
	ActiveAlerts      int             `json:"activeAlerts"`
	AvgProcessingTime decimal.Decimal `json:"avgProcessingTime"`
}

type TransactionStats struct {
	PeriodStats
	PreviousPeriod PeriodStats `json:"previousPeriod"`
}

// ChartBucket aggregates one calendar day of transactions.
type ChartBucket struct {
	Date   string          `json:"date"`
	Label  string          `json:"label"`
	Volume decimal.Decimal `json:"volume"`
	Count  int             `json:"count"`
}

// CategorySpending totals one merchant category.
type CategorySpending struct {
	Category         string          `json:"category"`
	TotalAmount      decimal.Decimal `json:"totalAmount"`
	TransactionCount int             `json:"transactionCount"`
	AverageAmount    decimal.Decimal `json:"averageAmount"`
}
