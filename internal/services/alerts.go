package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"spending-dashboard/internal/config"
	apperrors "spending-dashboard/internal/errors"
	"spending-dashboard/internal/models"
)

// AlertProvider is the contract shared by the API-backed and mock alert
// services so callers can swap one for the other.
type AlertProvider interface {
	Alerts(ctx context.Context) ([]models.Alert, error)
	AlertRules(ctx context.Context) ([]models.AlertRule, error)
	CreateAlertRule(ctx context.Context, query string) (*models.AlertRule, error)
	// ToggleAlertRule returns nil, nil when the rule is unknown or the
	// lookup failed.
	ToggleAlertRule(ctx context.Context, id string) (*models.AlertRule, error)
}

// AlertSource fetches raw notification and rule records from the upstream API.
type AlertSource interface {
	Notifications(ctx context.Context) ([]models.RawNotification, error)
	Rules(ctx context.Context) ([]models.RawAlertRule, error)
	CreateRule(ctx context.Context, query string) (*models.RawAlertRule, error)
}

type Alerts struct {
	source AlertSource
	logger *slog.Logger
}

var _ AlertProvider = (*Alerts)(nil)

func NewAlerts(source AlertSource, logger *slog.Logger) *Alerts {
	return &Alerts{
		source: source,
		logger: logger,
	}
}

func (s *Alerts) Alerts(ctx context.Context) ([]models.Alert, error) {
	raws, err := s.source.Notifications(ctx)
	if err != nil {
		return nil, err
	}
	return models.MapAlerts(raws)
}

func (s *Alerts) AlertRules(ctx context.Context) ([]models.AlertRule, error) {
	raws, err := s.source.Rules(ctx)
	if err != nil {
		return nil, err
	}
	return models.MapAlertRules(raws)
}

func (s *Alerts) CreateAlertRule(ctx context.Context, query string) (*models.AlertRule, error) {
	if err := validateRuleQuery(query); err != nil {
		return nil, err
	}

	raw, err := s.source.CreateRule(ctx, query)
	if err != nil {
		return nil, err
	}

	rule, err := models.MapAlertRule(*raw, query)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "alert rule created", "rule_id", rule.ID)
	return &rule, nil
}

// ToggleAlertRule flips the rule's status on the returned copy only; the
// upstream API is not updated. Callers re-fetch rules for the stored state.
func (s *Alerts) ToggleAlertRule(ctx context.Context, id string) (*models.AlertRule, error) {
	rules, err := s.AlertRules(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "toggle alert rule failed", "rule_id", id, "error", err)
		return nil, nil
	}

	for _, r := range rules {
		if r.ID == id {
			toggled := r.Toggled()
			return &toggled, nil
		}
	}
	return nil, nil
}

func validateRuleQuery(query string) error {
	if strings.TrimSpace(query) == "" {
		return apperrors.Validation("alert rule query cannot be empty")
	}
	return nil
}

// HealthChecker probes the upstream API.
type HealthChecker interface {
	Health(ctx context.Context) (json.RawMessage, error)
}

// SelectAlertProvider picks the alert service for mode. In auto mode the
// upstream health endpoint is probed once and the mock is used if it fails.
func SelectAlertProvider(ctx context.Context, mode string, health HealthChecker, api, mock AlertProvider, logger *slog.Logger) AlertProvider {
	switch mode {
	case config.AlertsBackendAPI:
		return api
	case config.AlertsBackendMock:
		logger.Info("using mock alert service", "reason", "configured")
		return mock
	}

	if _, err := health.Health(ctx); err != nil {
		logger.Warn("alert API unavailable, using mock alert service", "error", err)
		return mock
	}
	return api
}
