package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MForofontov/sessionauth"
	"github.com/MForofontov/sessionauth/cookie"
	"github.com/MForofontov/sessionauth/httpapi"
	"github.com/MForofontov/sessionauth/internal/config"
	promexport "github.com/MForofontov/sessionauth/metrics/export/prometheus"
	"github.com/MForofontov/sessionauth/middleware"
	"github.com/MForofontov/sessionauth/revocation"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "run the HTTP server",
		Action: serve,
	}
}

type pinger interface {
	Ping(ctx context.Context) error
}

func serve(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("close revocation store", zap.Error(err))
		}
	}()

	directory, err := newDirectory(cfg)
	if err != nil {
		return err
	}
	if directory.Len() == 0 {
		logger.Warn("no users configured; every login will be rejected")
	}

	engine, err := newEngine(cfg, store, directory, logger)
	if err != nil {
		return err
	}
	defer engine.Close()

	cookies, err := cookie.NewPolicy(cfg.CookiePolicy())
	if err != nil {
		return err
	}

	if p, ok := store.(revocation.Pruner); ok {
		go revocation.RunPruner(ctx, p, cfg.Revocation.PruneInterval, logger.Named("pruner"))
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      newRouter(cfg, engine, cookies, store, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("addr", cfg.Server.Addr),
			zap.String("revocation_backend", cfg.Revocation.Backend),
			zap.Bool("production", cfg.IsProduction()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func newRouter(cfg *config.Config, engine *sessionauth.Engine, cookies *cookie.Policy, store revocation.Store, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()
	httpapi.New(engine, cookies, logger).Register(mux)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if p, ok := store.(pinger); ok {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := p.Ping(ctx); err != nil {
				logger.Warn("health check failed", zap.Error(err))
				http.Error(w, "unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if cfg.Metrics.Enabled {
		reg := promexport.NewRegistry(promexport.NewCollector(engine))
		mux.Handle("GET "+cfg.Metrics.Path, promexport.Handler(reg))
	}

	var h http.Handler = mux
	h = middleware.AccessLog(logger)(h)
	h = middleware.RequestContext(h)
	return middleware.Recover(logger)(h)
}
