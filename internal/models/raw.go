package models

import "github.com/shopspring/decimal"

// Raw* types mirror the upstream spending-monitor API payloads. Pointer and
// Null* fields distinguish an absent value from a zero one.

type RawTransaction struct {
	ID               string              `json:"id"`
	UserID           string              `json:"user_id,omitempty"`
	CreditCardNum    string              `json:"credit_card_num,omitempty"`
	Amount           decimal.NullDecimal `json:"amount"`
	Currency         string              `json:"currency"`
	Description      *string             `json:"description,omitempty"`
	MerchantName     string              `json:"merchant_name"`
	MerchantCategory *string             `json:"merchant_category,omitempty"`
	TransactionDate  string              `json:"transaction_date"`
	TransactionType  string              `json:"transaction_type"`
	MerchantCity     *string             `json:"merchant_city,omitempty"`
	MerchantState    *string             `json:"merchant_state,omitempty"`
	MerchantCountry  *string             `json:"merchant_country,omitempty"`
	Status           string              `json:"status"`
}

type RawNotification struct {
	ID                 string  `json:"id"`
	UserID             string  `json:"user_id,omitempty"`
	AlertRuleID        *string `json:"alert_rule_id,omitempty"`
	TransactionID      *string `json:"transaction_id,omitempty"`
	Title              string  `json:"title"`
	Message            string  `json:"message"`
	NotificationMethod string  `json:"notification_method,omitempty"`
	Status             string  `json:"status"`
	ReadAt             *string `json:"read_at"`
	CreatedAt          string  `json:"created_at"`
}

type RawAlertRule struct {
	ID                   string              `json:"id"`
	UserID               string              `json:"user_id,omitempty"`
	Name                 *string             `json:"name,omitempty"`
	Description          *string             `json:"description,omitempty"`
	NaturalLanguageQuery *string             `json:"natural_language_query,omitempty"`
	IsActive             bool                `json:"is_active"`
	AlertType            string              `json:"alert_type,omitempty"`
	AmountThreshold      decimal.NullDecimal `json:"amount_threshold"`
	TriggerCount         *int                `json:"trigger_count"`
	LastTriggered        *string             `json:"last_triggered"`
	CreatedAt            string              `json:"created_at"`
}

// CreateRuleRequest is the body posted to create a rule from free text.
type CreateRuleRequest struct {
	NaturalLanguageQuery string `json:"natural_language_query"`
}
