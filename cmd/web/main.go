package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"spending-dashboard/internal/apiclient"
	"spending-dashboard/internal/config"
	"spending-dashboard/internal/middleware"
	"spending-dashboard/internal/observability"
	"spending-dashboard/internal/server"
	"spending-dashboard/internal/services"
	"spending-dashboard/internal/ui/templates"
)

const (
	renderTimeout = 10 * time.Second
	probeTimeout  = 5 * time.Second
	cacheMaxAge   = "public, max-age=300"
)

func handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
	defer cancel()

	w.Header().Set("Cache-Control", cacheMaxAge)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Dashboard().Render(ctx, w); err != nil {
		http.Error(w, "render error", http.StatusInternalServerError)
	}
}

// app holds everything main wires together, so tests can build the same
// handler chain against a fake upstream.
type app struct {
	handler     http.Handler
	client      *apiclient.Client
	rateLimiter *middleware.RateLimiter
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	client, err := apiclient.New(cfg.API.BaseURL, cfg.API.Timeout, apiclient.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	transactions := services.NewTransactions(client, logger)
	mock := services.NewMockAlerts(
		services.NewSeededMockStore(time.Now()),
		services.UniformMockDelays(cfg.API.MockDelay),
		logger,
	)

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	alerts := services.SelectAlertProvider(probeCtx, cfg.API.AlertsBackend, client, services.NewAlerts(client, logger), mock, logger)

	templateHandlers := &server.TemplateHandlers{
		Dashboard: handleDashboard,
	}

	srv := server.NewServer(server.Deps{
		Transactions: transactions,
		Alerts:       alerts,
		Upstream:     client,
	}, logger, templateHandlers)

	rateLimiter := middleware.NewRateLimiter(cfg.Security)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
	)

	return &app{
		handler:     middlewareChain(srv),
		client:      client,
		rateLimiter: rateLimiter,
	}, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", "1.0.0",
		"api_base_url", cfg.API.BaseURL,
		"alerts_backend", cfg.API.AlertsBackend,
	)

	a, err := newApp(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to initialise application", "error", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      a.handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)
	gracefulServer.RegisterShutdownHook("rate-limiter", a.rateLimiter.Stop)
	gracefulServer.RegisterShutdownHook("api-client", a.client.Close)

	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
