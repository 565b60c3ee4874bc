package models

import "time"

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

type Alert struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Severity      Severity  `json:"severity"`
	Timestamp     time.Time `json:"timestamp"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Resolved      bool      `json:"resolved"`
}

type RuleStatus string

const (
	RuleActive   RuleStatus = "active"
	RulePaused   RuleStatus = "paused"
	RuleInactive RuleStatus = "inactive"
)

// NeverTriggered is shown for rules that have not fired yet.
const NeverTriggered = "Never"

type AlertRule struct {
	ID            string     `json:"id"`
	Rule          string     `json:"rule"`
	Status        RuleStatus `json:"status"`
	Triggered     int        `json:"triggered"`
	LastTriggered string     `json:"last_triggered"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Toggled returns a copy of r with an active rule paused and any other rule
// activated.
func (r AlertRule) Toggled() AlertRule {
	if r.Status == RuleActive {
		r.Status = RulePaused
	} else {
		r.Status = RuleActive
	}
	return r
}
