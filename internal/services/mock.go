package services

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"spending-dashboard/internal/models"
)

// MockStore holds the records served by MockAlerts. Each MockAlerts owns the
// store it is given; tests build their own.
type MockStore struct {
	mu     sync.Mutex
	alerts []models.Alert
	rules  []models.AlertRule
}

func NewMockStore(alerts []models.Alert, rules []models.AlertRule) *MockStore {
	return &MockStore{
		alerts: slices.Clone(alerts),
		rules:  slices.Clone(rules),
	}
}

// NewSeededMockStore returns a store with a handful of demo records dated
// relative to now.
func NewSeededMockStore(now time.Time) *MockStore {
	alerts := []models.Alert{
		{
			ID:            "alert-1",
			Title:         "Unusual spending detected",
			Description:   "A $1,249.99 purchase at Best Buy is 5x your average electronics spend.",
			Severity:      models.SeverityHigh,
			Timestamp:     now.Add(-2 * time.Hour),
			TransactionID: "txn-1001",
		},
		{
			ID:          "alert-2",
			Title:       "New merchant",
			Description: "First purchase at Blue Bottle Coffee.",
			Severity:    models.SeverityMedium,
			Timestamp:   now.Add(-26 * time.Hour),
		},
		{
			ID:          "alert-3",
			Title:       "Monthly dining budget reached",
			Description: "Dining spend reached $500 this month.",
			Severity:    models.SeverityLow,
			Timestamp:   now.Add(-72 * time.Hour),
			Resolved:    true,
		},
	}

	rules := []models.AlertRule{
		{
			ID:            "rule-1",
			Rule:          "Alert me when a single transaction is over $500",
			Status:        models.RuleActive,
			Triggered:     3,
			LastTriggered: now.Add(-2 * time.Hour).Format(time.RFC3339),
			CreatedAt:     now.AddDate(0, -1, 0),
		},
		{
			ID:            "rule-2",
			Rule:          "Alert me when I spend more than $200 on dining in a week",
			Status:        models.RulePaused,
			LastTriggered: models.NeverTriggered,
			CreatedAt:     now.AddDate(0, 0, -14),
		},
	}

	return NewMockStore(alerts, rules)
}

// MockDelays emulates network latency per operation.
type MockDelays struct {
	Alerts time.Duration
	Rules  time.Duration
	Create time.Duration
	Toggle time.Duration
}

var DefaultMockDelays = MockDelays{
	Alerts: 500 * time.Millisecond,
	Rules:  300 * time.Millisecond,
	Create: 500 * time.Millisecond,
	Toggle: 300 * time.Millisecond,
}

func UniformMockDelays(d time.Duration) MockDelays {
	return MockDelays{Alerts: d, Rules: d, Create: d, Toggle: d}
}

// MockAlerts serves alerts and rules from a MockStore. It stands in for
// Alerts when the upstream API is unavailable.
type MockAlerts struct {
	store  *MockStore
	delays MockDelays
	logger *slog.Logger
	now    func() time.Time
}

var _ AlertProvider = (*MockAlerts)(nil)

func NewMockAlerts(store *MockStore, delays MockDelays, logger *slog.Logger) *MockAlerts {
	return &MockAlerts{
		store:  store,
		delays: delays,
		logger: logger,
		now:    time.Now,
	}
}

func (m *MockAlerts) Alerts(ctx context.Context) ([]models.Alert, error) {
	if err := sleep(ctx, m.delays.Alerts); err != nil {
		return nil, err
	}

	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	return slices.Clone(m.store.alerts), nil
}

func (m *MockAlerts) AlertRules(ctx context.Context) ([]models.AlertRule, error) {
	if err := sleep(ctx, m.delays.Rules); err != nil {
		return nil, err
	}

	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	return slices.Clone(m.store.rules), nil
}

func (m *MockAlerts) CreateAlertRule(ctx context.Context, query string) (*models.AlertRule, error) {
	if err := validateRuleQuery(query); err != nil {
		return nil, err
	}
	if err := sleep(ctx, m.delays.Create); err != nil {
		return nil, err
	}

	rule := models.AlertRule{
		ID:            uuid.NewString(),
		Rule:          query,
		Status:        models.RuleActive,
		LastTriggered: models.NeverTriggered,
		CreatedAt:     m.now(),
	}

	m.store.mu.Lock()
	m.store.rules = append(m.store.rules, rule)
	m.store.mu.Unlock()

	m.logger.InfoContext(ctx, "mock alert rule created", "rule_id", rule.ID)
	return &rule, nil
}

// ToggleAlertRule flips the stored rule in place, unlike Alerts which only
// flips the returned copy.
func (m *MockAlerts) ToggleAlertRule(ctx context.Context, id string) (*models.AlertRule, error) {
	if err := sleep(ctx, m.delays.Toggle); err != nil {
		m.logger.WarnContext(ctx, "toggle alert rule failed", "rule_id", id, "error", err)
		return nil, nil
	}

	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	for i := range m.store.rules {
		if m.store.rules[i].ID == id {
			m.store.rules[i] = m.store.rules[i].Toggled()
			rule := m.store.rules[i]
			return &rule, nil
		}
	}
	return nil, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
