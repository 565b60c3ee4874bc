// Package apiclient talks to the remote spending-monitor API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	apperrors "spending-dashboard/internal/errors"
	"spending-dashboard/internal/models"
	"spending-dashboard/internal/observability"
)

const maxErrorBody = 4 << 10

type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func New(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: timeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Close drops pooled connections. It has the shape of a shutdown hook.
func (c *Client) Close(ctx context.Context) error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) Transactions(ctx context.Context) ([]models.RawTransaction, error) {
	var out []models.RawTransaction
	if err := c.get(ctx, "/api/transactions/", nil, &out, "failed to fetch transactions"); err != nil {
		return nil, err
	}
	return out, nil
}

// Transaction returns nil, nil when the API answers 404.
func (c *Client) Transaction(ctx context.Context, id string) (*models.RawTransaction, error) {
	var out models.RawTransaction
	err := c.get(ctx, "/api/transactions/"+url.PathEscape(id), nil, &out, "failed to fetch transaction")
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Notifications(ctx context.Context) ([]models.RawNotification, error) {
	var out []models.RawNotification
	if err := c.get(ctx, "/api/alerts/notifications", nil, &out, "failed to fetch alerts"); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Rules(ctx context.Context) ([]models.RawAlertRule, error) {
	var out []models.RawAlertRule
	if err := c.get(ctx, "/api/alerts/rules", nil, &out, "failed to fetch alert rules"); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateRule posts a natural-language rule. A non-2xx answer yields an error
// whose message carries the upstream status line.
func (c *Client) CreateRule(ctx context.Context, query string) (*models.RawAlertRule, error) {
	body, err := json.Marshal(models.CreateRuleRequest{NaturalLanguageQuery: query})
	if err != nil {
		return nil, apperrors.InternalWrap(err, "encode alert rule request")
	}

	var out models.RawAlertRule
	if err := c.do(ctx, http.MethodPost, "/api/alerts/rules", nil, body, &out, "failed to create alert rule: %s"); err != nil {
		return nil, err
	}
	return &out, nil
}

// RuleNotifications returns nil, nil when the rule does not exist.
func (c *Client) RuleNotifications(ctx context.Context, ruleID string) (json.RawMessage, error) {
	out, err := c.raw(ctx, "/api/alerts/rules/"+url.PathEscape(ruleID)+"/notifications", nil, "failed to fetch rule notifications")
	if isNotFound(err) {
		return nil, nil
	}
	return out, err
}

// SpendingSummary returns the API's totals for one user, or nil, nil for an
// unknown user.
func (c *Client) SpendingSummary(ctx context.Context, userID string) (json.RawMessage, error) {
	out, err := c.raw(ctx, "/api/transactions/analysis/summary/"+url.PathEscape(userID), nil, "failed to fetch spending summary")
	if isNotFound(err) {
		return nil, nil
	}
	return out, err
}

func (c *Client) SpendingByCategory(ctx context.Context, userID string) (json.RawMessage, error) {
	out, err := c.raw(ctx, "/api/transactions/analysis/categories/"+url.PathEscape(userID), nil, "failed to fetch category spending")
	if isNotFound(err) {
		return nil, nil
	}
	return out, err
}

func (c *Client) Health(ctx context.Context) (json.RawMessage, error) {
	return c.raw(ctx, "/api/health/", nil, "health check failed")
}

func (c *Client) Users(ctx context.Context) (json.RawMessage, error) {
	return c.raw(ctx, "/api/users/", nil, "failed to fetch users")
}

// User returns nil, nil when the API answers 404.
func (c *Client) User(ctx context.Context, id string) (json.RawMessage, error) {
	out, err := c.raw(ctx, "/api/users/"+url.PathEscape(id), nil, "failed to fetch user")
	if isNotFound(err) {
		return nil, nil
	}
	return out, err
}

func (c *Client) UserTransactions(ctx context.Context, id string, limit, offset int) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	return c.raw(ctx, "/api/users/"+url.PathEscape(id)+"/transactions", q, "failed to fetch user transactions")
}

func (c *Client) UserCreditCards(ctx context.Context, id string) (json.RawMessage, error) {
	return c.raw(ctx, "/api/users/"+url.PathEscape(id)+"/credit-cards", nil, "failed to fetch user credit cards")
}

func (c *Client) UserRules(ctx context.Context, id string) (json.RawMessage, error) {
	return c.raw(ctx, "/api/users/"+url.PathEscape(id)+"/rules", nil, "failed to fetch user rules")
}

func (c *Client) raw(ctx context.Context, path string, query url.Values, failMsg string) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.get(ctx, path, query, &out, failMsg); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any, failMsg string) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out, failMsg)
}

// do performs one request. failMsg is used verbatim for non-2xx answers, or
// as a format string receiving the status line when it contains a verb.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte, out any, failMsg string) (err error) {
	ctx, span := observability.StartSpan(ctx, method+" "+path)
	defer func() {
		if err != nil {
			span.SetError(err)
		}
		span.Finish()
		c.logger.DebugContext(ctx, "upstream request",
			"method", method,
			"path", path,
			"duration", *span.Duration,
			"trace_id", span.TraceID,
			"status", span.Tags["http.status_code"],
			"error", span.Error,
		)
	}()

	u := c.baseURL.JoinPath(path)
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return apperrors.InternalWrap(err, "build upstream request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if requestID := observability.GetRequestID(ctx); requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		e := apperrors.ServiceUnavailable(failureMessage(failMsg, "no response"))
		e.Cause = err
		return e
	}
	defer resp.Body.Close()

	span.SetTag("http.status_code", strconv.Itoa(resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if resp.StatusCode == http.StatusNotFound {
			e := apperrors.NotFound(failureMessage(failMsg, resp.Status))
			e.UpstreamStatus = resp.StatusCode
			e.Details = strings.TrimSpace(string(detail))
			return e
		}
		e := apperrors.RequestFailed(resp.StatusCode, failureMessage(failMsg, resp.Status))
		e.Details = strings.TrimSpace(string(detail))
		return e
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.MalformedWrap(err, fmt.Sprintf("decode %s %s response", method, path))
	}
	return nil
}

func failureMessage(format, status string) string {
	if strings.Contains(format, "%s") {
		return fmt.Sprintf(format, status)
	}
	return format
}

func isNotFound(err error) bool {
	return apperrors.HasCode(err, apperrors.CodeNotFound)
}
