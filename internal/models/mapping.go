package models

import (
	"fmt"
	"strings"
	"time"

	apperrors "spending-dashboard/internal/errors"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp accepts RFC 3339 and the offset-less ISO forms the API
// emits. Values without an offset are read as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

func MapTransaction(raw RawTransaction) (Transaction, error) {
	if raw.ID == "" {
		return Transaction{}, apperrors.Malformed("transaction record has no id")
	}
	if !raw.Amount.Valid {
		return Transaction{}, apperrors.Malformed(fmt.Sprintf("transaction %s has no amount", raw.ID))
	}
	ts, err := ParseTimestamp(raw.TransactionDate)
	if err != nil {
		return Transaction{}, apperrors.MalformedWrap(err, fmt.Sprintf("transaction %s has an invalid date", raw.ID))
	}

	return Transaction{
		ID:          raw.ID,
		Amount:      raw.Amount.Decimal,
		Merchant:    raw.MerchantName,
		Status:      TransactionStatus(strings.ToLower(raw.Status)),
		Time:        ts,
		Type:        TransactionType(strings.ToLower(raw.TransactionType)),
		Currency:    raw.Currency,
		Category:    deref(raw.MerchantCategory),
		Description: deref(raw.Description),
	}, nil
}

func MapTransactions(raws []RawTransaction) ([]Transaction, error) {
	out := make([]Transaction, 0, len(raws))
	for _, raw := range raws {
		tx, err := MapTransaction(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}

// SeverityFor maps a notification status onto an alert severity.
func SeverityFor(status string) Severity {
	switch status {
	case "ERROR":
		return SeverityHigh
	case "WARNING":
		return SeverityMedium
	default:
		return SeverityLow
	}
}

func MapAlert(raw RawNotification) (Alert, error) {
	if raw.ID == "" {
		return Alert{}, apperrors.Malformed("notification record has no id")
	}
	ts, err := optionalTimestamp(raw.CreatedAt)
	if err != nil {
		return Alert{}, apperrors.MalformedWrap(err, fmt.Sprintf("notification %s has an invalid created_at", raw.ID))
	}

	return Alert{
		ID:            raw.ID,
		Title:         raw.Title,
		Description:   raw.Message,
		Severity:      SeverityFor(raw.Status),
		Timestamp:     ts,
		TransactionID: deref(raw.TransactionID),
		Resolved:      raw.ReadAt != nil,
	}, nil
}

func MapAlerts(raws []RawNotification) ([]Alert, error) {
	out := make([]Alert, 0, len(raws))
	for _, raw := range raws {
		a, err := MapAlert(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// MapAlertRule converts a rule record. fallback is used as the display text
// when the record carries neither a natural-language query nor a name.
func MapAlertRule(raw RawAlertRule, fallback string) (AlertRule, error) {
	if raw.ID == "" {
		return AlertRule{}, apperrors.Malformed("alert rule record has no id")
	}
	created, err := optionalTimestamp(raw.CreatedAt)
	if err != nil {
		return AlertRule{}, apperrors.MalformedWrap(err, fmt.Sprintf("alert rule %s has an invalid created_at", raw.ID))
	}

	rule := firstNonEmpty(deref(raw.NaturalLanguageQuery), deref(raw.Name), fallback)

	status := RulePaused
	if raw.IsActive {
		status = RuleActive
	}

	triggered := 0
	if raw.TriggerCount != nil {
		triggered = *raw.TriggerCount
	}

	last := NeverTriggered
	if raw.LastTriggered != nil && *raw.LastTriggered != "" {
		last = *raw.LastTriggered
	}

	return AlertRule{
		ID:            raw.ID,
		Rule:          rule,
		Status:        status,
		Triggered:     triggered,
		LastTriggered: last,
		CreatedAt:     created,
	}, nil
}

func MapAlertRules(raws []RawAlertRule) ([]AlertRule, error) {
	out := make([]AlertRule, 0, len(raws))
	for _, raw := range raws {
		r, err := MapAlertRule(raw, "")
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func optionalTimestamp(s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, nil
	}
	return ParseTimestamp(s)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
