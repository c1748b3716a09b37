package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/leca/dt-image-store/internal/database"
	"github.com/leca/dt-image-store/internal/metrics"
	"github.com/leca/dt-image-store/internal/router"
	"github.com/leca/dt-image-store/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(a *app) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and run periodic cleanup sweeps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen != "" {
				a.cfg.ListenAddr = listen
			}
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides listen_addr)")
	return cmd
}

// serve runs the HTTP server and, when cleanup is enabled, the sweeper until
// ctx is canceled or either of them fails.
func (a *app) serve(ctx context.Context) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.NewProm(a.cfg.MetricsNamespace, reg)

	store, err := a.openStore(rec)
	if err != nil {
		return err
	}

	db, err := database.NewSQLiteDB(a.cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	srv := router.New(db, store, a.cfg, a.logger, reg)
	httpServer := &http.Server{
		Addr:              a.cfg.ListenAddr,
		Handler:           srv.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("starting server", "addr", a.cfg.ListenAddr, "storage", a.cfg.StoragePath)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down server")
		return httpServer.Shutdown(shutdownCtx)
	})
	if a.cfg.CleanupEnabled {
		sweeper := storage.NewSweeper(store, a.cfg.CleanupInterval, a.logger)
		g.Go(func() error {
			return sweeper.Run(ctx)
		})
	}
	return g.Wait()
}
