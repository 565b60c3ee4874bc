package server

import (
	"log/slog"
	"net/http"

	"spending-dashboard/internal/handlers"
	"spending-dashboard/internal/services"
)

type Server struct {
	mux         *http.ServeMux
	logger      *slog.Logger
	apiHandlers *handlers.APIHandlers
	sseHandlers *handlers.SSEHandlers
}

type TemplateHandlers struct {
	Dashboard http.HandlerFunc
}

// Deps are the services the routes are served from.
type Deps struct {
	Transactions *services.Transactions
	Alerts       services.AlertProvider
	Upstream     handlers.Upstream
}

func NewServer(deps Deps, logger *slog.Logger, templateHandlers *TemplateHandlers) *Server {
	s := &Server{
		mux:         http.NewServeMux(),
		logger:      logger,
		apiHandlers: handlers.NewAPIHandlers(deps.Transactions, deps.Alerts, deps.Upstream, logger),
		sseHandlers: handlers.NewSSEHandlers(deps.Transactions, deps.Alerts, logger),
	}
	s.setupRoutes(templateHandlers)
	return s
}

func (s *Server) setupRoutes(templateHandlers *TemplateHandlers) {
	// Dashboard routes
	s.mux.HandleFunc("GET /{$}", templateHandlers.Dashboard)
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)

	// Transactions
	s.mux.HandleFunc("GET /api/transactions", s.apiHandlers.HandleTransactions)
	s.mux.HandleFunc("GET /api/transactions/search", s.apiHandlers.HandleSearch)
	s.mux.HandleFunc("GET /api/transactions/stats", s.apiHandlers.HandleStats)
	s.mux.HandleFunc("GET /api/transactions/chart", s.apiHandlers.HandleChart)
	s.mux.HandleFunc("GET /api/transactions/categories", s.apiHandlers.HandleCategorySpending)
	s.mux.HandleFunc("GET /api/transactions/{id}", s.apiHandlers.HandleTransaction)

	// Alerts and rules
	s.mux.HandleFunc("GET /api/alerts", s.apiHandlers.HandleAlerts)
	s.mux.HandleFunc("GET /api/alerts/rules", s.apiHandlers.HandleAlertRules)
	s.mux.HandleFunc("POST /api/alerts/rules", s.apiHandlers.HandleCreateAlertRule)
	s.mux.HandleFunc("POST /api/alerts/rules/{id}/toggle", s.apiHandlers.HandleToggleAlertRule)
	s.mux.HandleFunc("GET /api/alerts/rules/{id}/notifications", s.apiHandlers.HandleRuleNotifications)

	// Users passthrough
	s.mux.HandleFunc("GET /api/users", s.apiHandlers.HandleUsers)
	s.mux.HandleFunc("GET /api/users/{id}", s.apiHandlers.HandleUser)
	s.mux.HandleFunc("GET /api/users/{id}/transactions", s.apiHandlers.HandleUserTransactions)
	s.mux.HandleFunc("GET /api/users/{id}/credit-cards", s.apiHandlers.HandleUserCreditCards)
	s.mux.HandleFunc("GET /api/users/{id}/rules", s.apiHandlers.HandleUserRules)
	s.mux.HandleFunc("GET /api/users/{id}/analysis/summary", s.apiHandlers.HandleUserSpendingSummary)
	s.mux.HandleFunc("GET /api/users/{id}/analysis/categories", s.apiHandlers.HandleUserCategorySpending)

	// Datastar SSE endpoints
	s.mux.HandleFunc("GET /sse/stats", s.sseHandlers.HandleStats)
	s.mux.HandleFunc("GET /sse/transactions", s.sseHandlers.HandleTransactions)
	s.mux.HandleFunc("GET /sse/chart", s.sseHandlers.HandleChart)
	s.mux.HandleFunc("GET /sse/alerts", s.sseHandlers.HandleAlerts)
	s.mux.HandleFunc("GET /sse/refresh-all", s.sseHandlers.HandleRefreshAll)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
