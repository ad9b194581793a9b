package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"saas_stack/internal/config"
	"saas_stack/internal/logging"
	configapi "saas_stack/pkg/api/config"
	"saas_stack/pkg/api/simulation"
	"saas_stack/pkg/core/agent"
	"saas_stack/pkg/core/narrative"
	"saas_stack/pkg/core/prompt"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables; a missing .env is fine
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	// Initialize Prompt Library
	resourcesPath := cfg.ResourcesDir
	if _, err := os.Stat(resourcesPath); os.IsNotExist(err) {
		exePath, _ := os.Executable()
		resourcesPath = filepath.Join(filepath.Dir(exePath), "resources")
	}
	if n, err := prompt.LoadFromDirectory(resourcesPath); err != nil {
		logger.Warn("failed to load prompt library, falling back to built-in prompts", "path", resourcesPath, "error", err)
	} else {
		logger.Info("prompt library loaded", "path", resourcesPath, "prompts", n)
	}

	agentCfg, err := agent.LoadConfig(cfg.ModelsConfig)
	if err != nil {
		logger.Warn("failed to load model config, using defaults", "path", cfg.ModelsConfig, "error", err)
	}
	agentMgr := agent.NewManager(agentCfg, logger)

	analyzer := narrative.NewAnalyzer(agentMgr, prompt.Get(), logger)
	analyzer.Timeout = cfg.AnalysisTimeout

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Route("/api", func(r chi.Router) {
		simulation.NewHandler(analyzer, logger).Routes(r)
		configapi.NewHandler(agentMgr, logger).Routes(r)
	})

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("API server starting", "addr", cfg.ListenAddr, "provider", agentMgr.GetActiveProvider())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}

// requestLogger logs one line per request with chi's request ID.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"request_id", middleware.GetReqID(r.Context()))
		})
	}
}
