package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/splitactivity/internal/auth"
	"github.com/mmynk/splitactivity/internal/config"
	"github.com/mmynk/splitactivity/internal/metrics"
	"github.com/mmynk/splitactivity/internal/middleware"
	"github.com/mmynk/splitactivity/internal/service"
	"github.com/mmynk/splitactivity/internal/storage"
	"github.com/mmynk/splitactivity/internal/storage/sqlite"
	"github.com/mmynk/splitactivity/pkg/api/apiconnect"
	"github.com/mmynk/splitactivity/pkg/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Connect RPC server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configDir)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	logger := logging.Setup(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()
	logger.Info("Storage initialized", "database", cfg.Database.Path)

	var (
		m        *metrics.Metrics
		registry *prometheus.Registry
	)
	if cfg.Metrics.Enabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m = metrics.New(registry)
	}

	mux := newMux(cfg, store, logger, m)
	if registry != nil {
		mux.Handle(cfg.Metrics.Path, metrics.Handler(registry))
		logger.Info("Metrics enabled", "path", cfg.Metrics.Path)
	}

	// Wrap with h2c for HTTP/2 without TLS (required for Connect)
	h2cHandler := h2c.NewHandler(loggingMiddleware(logger, corsMiddleware(mux)), &http2.Server{})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      h2cHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Connect server starting", "address", addr, "url", fmt.Sprintf("http://localhost%s", addr))
		serverErr <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	logger.Info("Server stopped")
	return nil
}

// newMux registers both Connect services. The activity service requires a
// token; the auth service accepts anonymous calls for Register and Login.
func newMux(cfg *config.Config, store storage.Store, logger *slog.Logger, m *metrics.Metrics) *http.ServeMux {
	jwtManager := auth.NewJWTManager(cfg.Security.JWTSecret, cfg.Security.TokenDuration)
	authenticator := auth.NewPasswordAuthenticator(store, cfg.Security.BCryptCost)
	logInterceptor := middleware.LoggingInterceptor(logger, m)

	mux := http.NewServeMux()

	activityPath, activityHandler := apiconnect.NewActivityServiceHandler(
		service.NewActivityService(store, logger, m),
		connect.WithInterceptors(logInterceptor, middleware.RequireAuth(jwtManager)),
	)
	mux.Handle(activityPath, activityHandler)

	authPath, authHandler := apiconnect.NewAuthServiceHandler(
		service.NewAuthService(authenticator, jwtManager, store, logger),
		connect.WithInterceptors(logInterceptor, middleware.OptionalAuth(jwtManager)),
	)
	mux.Handle(authPath, authHandler)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return mux
}
