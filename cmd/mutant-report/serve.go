package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/mutant.report/internal/api"
	"github.com/banshee-data/mutant.report/internal/config"
	"github.com/banshee-data/mutant.report/internal/db"
	"github.com/banshee-data/mutant.report/internal/evaluation"
	"github.com/banshee-data/mutant.report/internal/recorder"
	"github.com/banshee-data/mutant.report/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP service",
	Long: `Opens the outcome database (applying pending migrations), starts the
outcome recorder and serves POST /mutant, GET /stats, GET /stats/chart and
GET /healthz until SIGINT or SIGTERM. When grpc_listen is set a gRPC health
service is served alongside.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		httpLis, err := net.Listen("tcp", cfg.Listen)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", cfg.Listen, err)
		}
		var grpcLis net.Listener
		if cfg.GRPCListen != "" {
			grpcLis, err = net.Listen("tcp", cfg.GRPCListen)
			if err != nil {
				httpLis.Close()
				return fmt.Errorf("failed to listen on %s: %w", cfg.GRPCListen, err)
			}
		}
		return runServer(ctx, cfg, logger, httpLis, grpcLis)
	},
}

// runServer serves on the given listeners until ctx is cancelled. grpcLis
// may be nil.
func runServer(ctx context.Context, cfg *config.Config, logger *zap.Logger, httpLis, grpcLis net.Listener) error {
	database, err := db.NewDB(cfg.DBPath)
	if err != nil {
		httpLis.Close()
		if grpcLis != nil {
			grpcLis.Close()
		}
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	rec := recorder.New(database, recorder.Options{
		Workers:      cfg.Recorder.Workers,
		QueueSize:    cfg.Recorder.QueueSize,
		MaxAttempts:  cfg.Recorder.MaxAttempts,
		RetryBackoff: cfg.Recorder.GetRetryBackoff(),
		Logger:       logger.Named("recorder"),
	})
	// Workers outlive ctx so Stop can drain the queue after the HTTP
	// server has finished its in-flight requests.
	rec.Start(context.WithoutCancel(ctx))

	svc := evaluation.NewService(database, rec, logger)
	mux := api.NewServer(svc, logger).ServeMux()
	if cfg.DevMode {
		if err := database.AttachAdminRoutes(mux); err != nil {
			logger.Warn("admin routes unavailable", zap.Error(err))
		}
	}

	server := &http.Server{
		Handler:           api.LoggingMiddleware(logger, mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var health *api.HealthServer
	if grpcLis != nil {
		health = api.NewHealthServer(logger.Named("grpc"))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http listening",
			zap.String("addr", httpLis.Addr().String()),
			zap.String("version", version.Version),
			zap.String("db", database.Path()))
		if err := server.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if health != nil {
		g.Go(func() error {
			return health.Serve(gctx, grpcLis)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		if health != nil {
			health.SetNotServing()
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GetShutdownTimeout())
		defer cancel()

		var errs []error
		if err := server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
			if err := server.Close(); err != nil {
				logger.Warn("http force close failed", zap.Error(err))
			}
		}
		if err := rec.Stop(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	})

	err = g.Wait()
	logger.Info("shutdown complete", zap.Any("recorder", rec.Counters()))
	return err
}
