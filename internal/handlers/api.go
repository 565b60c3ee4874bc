package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"spending-dashboard/internal/errors"
	"spending-dashboard/internal/models"
	"spending-dashboard/internal/observability"
	"spending-dashboard/internal/services"
)

const (
	defaultPage       = 1
	defaultPageSize   = 20
	maxPageSize       = 100
	defaultChartRange = "7d"

	defaultUserTxLimit = 50
	maxRuleBodyBytes   = 1 << 16
)

// Upstream is the slice of the spending-monitor API the dashboard passes
// through without reshaping.
type Upstream interface {
	Health(ctx context.Context) (json.RawMessage, error)
	Users(ctx context.Context) (json.RawMessage, error)
	User(ctx context.Context, id string) (json.RawMessage, error)
	UserTransactions(ctx context.Context, id string, limit, offset int) (json.RawMessage, error)
	UserCreditCards(ctx context.Context, id string) (json.RawMessage, error)
	UserRules(ctx context.Context, id string) (json.RawMessage, error)
	RuleNotifications(ctx context.Context, ruleID string) (json.RawMessage, error)
	SpendingSummary(ctx context.Context, userID string) (json.RawMessage, error)
	SpendingByCategory(ctx context.Context, userID string) (json.RawMessage, error)
}

type APIHandlers struct {
	transactions *services.Transactions
	alerts       services.AlertProvider
	upstream     Upstream
	logger       *slog.Logger
}

func NewAPIHandlers(transactions *services.Transactions, alerts services.AlertProvider, upstream Upstream, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		transactions: transactions,
		alerts:       alerts,
		upstream:     upstream,
		logger:       logger,
	}
}

func (h *APIHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	errors.WriteError(w, h.logger, err, observability.GetRequestID(r.Context()))
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	healthData := map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	}

	upstream, err := h.upstream.Health(r.Context())
	if err != nil {
		h.logger.WarnContext(r.Context(), "upstream health check failed", "error", err)
		healthData["status"] = "degraded"
		healthData["upstream"] = "unavailable"
	} else {
		healthData["upstream"] = upstream
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleTransactions(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", defaultPage)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", defaultPageSize)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	data, err := h.transactions.RecentTransactions(r.Context(), page, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	errors.WriteSuccess(w, data)
}

func (h *APIHandlers) HandleTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	tx, err := h.transactions.TransactionByID(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if tx == nil {
		h.fail(w, r, errors.NotFound("transaction "+id+" not found"))
		return
	}

	errors.WriteSuccess(w, tx)
}

func (h *APIHandlers) HandleSearch(w http.ResponseWriter, r *http.Request) {
	data, err := h.transactions.SearchTransactions(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	errors.WriteSuccess(w, data)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.transactions.TransactionStats(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	errors.WriteSuccess(w, stats)
}

func (h *APIHandlers) HandleChart(w http.ResponseWriter, r *http.Request) {
	timeRange := r.URL.Query().Get("range")
	if timeRange == "" {
		timeRange = defaultChartRange
	}

	data, err := h.transactions.TransactionChartData(r.Context(), timeRange)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	errors.WriteSuccess(w, data)
}

func (h *APIHandlers) HandleCategorySpending(w http.ResponseWriter, r *http.Request) {
	data, err := h.transactions.CategorySpending(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	errors.WriteSuccess(w, data)
}

func (h *APIHandlers) HandleAlerts(w http.ResponseWriter, r *http.Request) {
	data, err := h.alerts.Alerts(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	errors.WriteSuccess(w, data)
}

func (h *APIHandlers) HandleAlertRules(w http.ResponseWriter, r *http.Request) {
	data, err := h.alerts.AlertRules(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	errors.WriteSuccess(w, data)
}

func (h *APIHandlers) HandleCreateAlertRule(w http.ResponseWriter, r *http.Request) {
	var req models.CreateRuleRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRuleBodyBytes)).Decode(&req); err != nil {
		h.fail(w, r, errors.BadRequestWrap(err, "invalid request body"))
		return
	}

	rule, err := h.alerts.CreateAlertRule(r.Context(), req.NaturalLanguageQuery)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	errors.WriteSuccessStatus(w, http.StatusCreated, rule)
}

func (h *APIHandlers) HandleToggleAlertRule(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	rule, err := h.alerts.ToggleAlertRule(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if rule == nil {
		h.fail(w, r, errors.NotFound("alert rule "+id+" not found"))
		return
	}

	errors.WriteSuccess(w, rule)
}

func (h *APIHandlers) HandleRuleNotifications(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	data, err := h.upstream.RuleNotifications(r.Context(), id)
	h.writeRaw(w, r, data, err, "alert rule "+id+" not found")
}

func (h *APIHandlers) HandleUsers(w http.ResponseWriter, r *http.Request) {
	data, err := h.upstream.Users(r.Context())
	h.writeRaw(w, r, data, err, "")
}

func (h *APIHandlers) HandleUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	data, err := h.upstream.User(r.Context(), id)
	h.writeRaw(w, r, data, err, "user "+id+" not found")
}

func (h *APIHandlers) HandleUserTransactions(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultUserTxLimit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	data, err := h.upstream.UserTransactions(r.Context(), r.PathValue("id"), limit, offset)
	h.writeRaw(w, r, data, err, "")
}

func (h *APIHandlers) HandleUserCreditCards(w http.ResponseWriter, r *http.Request) {
	data, err := h.upstream.UserCreditCards(r.Context(), r.PathValue("id"))
	h.writeRaw(w, r, data, err, "")
}

func (h *APIHandlers) HandleUserRules(w http.ResponseWriter, r *http.Request) {
	data, err := h.upstream.UserRules(r.Context(), r.PathValue("id"))
	h.writeRaw(w, r, data, err, "")
}

func (h *APIHandlers) HandleUserSpendingSummary(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	data, err := h.upstream.SpendingSummary(r.Context(), id)
	h.writeRaw(w, r, data, err, "user "+id+" not found")
}

func (h *APIHandlers) HandleUserCategorySpending(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	data, err := h.upstream.SpendingByCategory(r.Context(), id)
	h.writeRaw(w, r, data, err, "user "+id+" not found")
}

// writeRaw wraps an upstream payload in the success envelope. A nil payload
// with a non-empty notFound message becomes a 404.
func (h *APIHandlers) writeRaw(w http.ResponseWriter, r *http.Request, data json.RawMessage, err error, notFound string) {
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if data == nil && notFound != "" {
		h.fail(w, r, errors.NotFound(notFound))
		return
	}
	if data == nil {
		data = json.RawMessage("null")
	}

	errors.WriteSuccess(w, data)
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	value := strings.TrimSpace(r.URL.Query().Get(key))
	if value == "" {
		return fallback, nil
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.BadRequestWrap(err, key+" must be an integer")
	}
	if n < 0 {
		return 0, errors.Validation(key + " must not be negative")
	}
	return n, nil
}
