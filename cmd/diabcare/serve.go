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

	"diabcare/internal/database"
	"diabcare/internal/handlers"
	"diabcare/internal/logging"
	"diabcare/internal/metrics"
	"diabcare/internal/middleware"
	"diabcare/internal/predictor"
	"diabcare/internal/repository"
	"diabcare/internal/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

func (a *app) serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

// serve runs the server until ctx is cancelled, then drains in-flight
// requests.
func (a *app) serve(ctx context.Context) error {
	log := logging.ForService("server")

	if err := a.cfg.RequireSecret(); err != nil {
		return err
	}

	db, err := database.InitDB(a.cfg, logging.ForService("database"))
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer closeDB(db)

	model := predictor.Load(a.cfg.ModelPath, logging.ForService("predictor"))

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.New(reg)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	authn := middleware.NewAuthenticator(
		utils.NewTokenIssuer(a.cfg.SecretKey, a.cfg.TokenTTL),
		middleware.NewCookieStore(a.cfg.SessionSecret, !a.cfg.Debug),
		repository.NewDoctorRepository(db),
	)

	router := handlers.NewRouter(handlers.RouterDeps{
		DB:            db,
		Predictor:     model,
		Authenticator: authn,
		Metrics:       m,
		Gatherer:      reg,
		Logger:        logging.Structured(),
		CORSOrigins:   a.cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + a.cfg.ListenPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", srv.Addr, "model_loaded", model.Available())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info("server stopped")
	return nil
}

func closeDB(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		logging.ForService("database").Warn("failed to close database", "error", err)
	}
}
