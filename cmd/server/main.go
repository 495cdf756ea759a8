package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/chatadmin/admin-console/internal/api/middleware"
	"github.com/chatadmin/admin-console/internal/api/rest"
	"github.com/chatadmin/admin-console/internal/config"
	"github.com/chatadmin/admin-console/internal/k8s"
	"github.com/chatadmin/admin-console/internal/pkg/logger"
	"github.com/chatadmin/admin-console/internal/pkg/tracing"
	"github.com/chatadmin/admin-console/internal/repository"
	"github.com/chatadmin/admin-console/internal/resource"
	"github.com/chatadmin/admin-console/internal/service"
)

// Outbound Kubernetes API budget shared by every request.
const (
	k8sQPS   = 20
	k8sBurst = 40
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "admin-console: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	log.Info("Admin console starting",
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.MongoDBName),
		zap.Strings("namespaces", cfg.Namespaces),
	)

	shutdownTracing, err := tracing.Init(context.Background(), tracing.Options{
		ServiceName: "admin-console",
		Endpoint:    cfg.TracingEndpoint,
		Protocol:    cfg.TracingProtocol,
		Insecure:    cfg.TracingInsecure,
		SampleRate:  cfg.TracingSamplingRate,
	})
	if err != nil {
		log.Warn("Tracing disabled", zap.Error(err))
		shutdownTracing = func(context.Context) error { return nil }
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			log.Warn("Tracing flush failed", zap.Error(err))
		}
	}()

	// No traffic is accepted without a store connection.
	connectCtx, cancelConnect := context.WithTimeout(context.Background(), 15*time.Second)
	store, err := repository.Connect(connectCtx, cfg.MongoURI, cfg.MongoDBName, log)
	cancelConnect()
	if err != nil {
		log.Error("Failed to connect to MongoDB", zap.Error(err))
		return fmt.Errorf("connect to store: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = store.Close(ctx)
	}()

	client, err := k8s.NewClient(cfg.KubeconfigPath, cfg.KubeContext, log)
	if err != nil {
		log.Error("Failed to build Kubernetes client", zap.Error(err))
		return fmt.Errorf("kubernetes client: %w", err)
	}
	if cfg.K8sTimeoutSec > 0 {
		client.SetTimeout(time.Duration(cfg.K8sTimeoutSec) * time.Second)
	}
	client.SetLimiter(rate.NewLimiter(k8sQPS, k8sBurst))

	handler := rest.NewHandler(store, client, log, rest.Options{
		Namespaces:       cfg.Namespaces,
		PrimaryNamespace: cfg.PrimaryNamespace,
		StoreNamespace:   cfg.StoreNamespace,
		SearchNamespace:  cfg.SearchNamespace,
		AllowedCommands:  cfg.AllowedCommands,
	})

	if cfg.AuditRetentionDays > 0 {
		auditLogs, _ := resource.Catalog().Lookup(resource.AuditLogs)
		retention := service.NewRetentionService(service.NewResourceService(store), auditLogs,
			cfg.AuditRetentionDays, time.Duration(cfg.AuditRetentionIntervalSec)*time.Second, log)
		retention.Start(context.Background())
		defer retention.Stop()
	}

	router := mux.NewRouter()
	router.Use(middleware.Tracing)
	router.Use(middleware.RequestID)
	router.Use(middleware.StructuredLog(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.SecureHeaders)
	router.Use(middleware.MaxBodySize(cfg.MaxBodyBytes))
	if cfg.RateLimitEnabled {
		router.Use(middleware.NewRateLimiter().Middleware)
	}
	rest.SetupRoutes(router, handler)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           middleware.CORS(cfg.AllowedOrigins, log)(router),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// WriteTimeout stays unset: pod log streams are long-lived.
		IdleTimeout: 120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
	case sig := <-quit:
		log.Info("Shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutSec)*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn("Server forced to shutdown", zap.Error(err))
	}
	log.Info("Server exited")
	return nil
}
