package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/vecdemo/internal/config"
	"github.com/kailas-cloud/vecdemo/internal/domain/feedback"
	logpkg "github.com/kailas-cloud/vecdemo/internal/logger"
	"github.com/kailas-cloud/vecdemo/internal/metrics"
	"github.com/kailas-cloud/vecdemo/internal/session"
	"github.com/kailas-cloud/vecdemo/internal/transport/backend"
	chiTransport "github.com/kailas-cloud/vecdemo/internal/transport/chi"
	healthuc "github.com/kailas-cloud/vecdemo/internal/usecase/health"
	"github.com/kailas-cloud/vecdemo/internal/version"
)

// ServeAction runs the page server until ctx is cancelled.
func ServeAction(ctx context.Context, cmd *cli.Command) error {
	env := cmd.String("env")

	var (
		cfg config.Config
		err error
	)
	if path := cmd.String("config"); path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load(env)
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.New(env, cfg.Logging.Level, &logpkg.FileSink{
		Path:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting vecdemo page server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("images_backend", cfg.Backends.Images.BaseURL),
		zap.String("knowledge_backend", cfg.Backends.Knowledge.BaseURL),
	)

	// Register backend metrics explicitly (no init())
	metrics.RegisterBackendMetrics()

	handler, store, err := buildHandler(&cfg, logger)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return store.Run(gctx, time.Duration(cfg.Session.SweepSec)*time.Second)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}

// buildHandler is the composition root: backends, sessions, routes and middleware.
func buildHandler(cfg *config.Config, logger *zap.Logger) (http.Handler, *session.Store, error) {
	timeout := time.Duration(cfg.Backends.TimeoutSec) * time.Second

	images, err := backend.New(&backend.Config{
		Name:    backendImages,
		BaseURL: cfg.Backends.Images.BaseURL,
		Timeout: timeout,
		Logger:  logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("images backend: %w", err)
	}
	knowledge, err := backend.New(&backend.Config{
		Name:    backendKnowledge,
		BaseURL: cfg.Backends.Knowledge.BaseURL,
		Timeout: timeout,
		Logger:  logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("knowledge backend: %w", err)
	}

	// Validate has already checked both modes.
	imagesMode, _ := feedback.Parse(cfg.Pages.Images.Feedback)
	knowledgeMode, _ := feedback.Parse(cfg.Pages.Knowledge.Feedback)

	store := session.NewStore(
		time.Duration(cfg.Session.TTLMin)*time.Minute,
		session.NewFactory(images, knowledge, imagesMode, knowledgeMode, logger),
		logger,
	).WithLimit(cfg.Session.MaxSessions)

	server := chiTransport.NewServer(store, healthuc.New(images, knowledge), chiTransport.Options{
		CookieName:     cfg.Session.CookieName,
		MaxUploadBytes: cfg.HTTP.MaxUploadBytes,
		Static:         chiTransport.NewStaticProxy(images.BaseURL(), logger),
	}, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	server.Routes(r)

	return r, store, nil
}
