package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/open-sspm/useradmin/internal/api"
	"github.com/open-sspm/useradmin/internal/auth/providers"
	"github.com/open-sspm/useradmin/internal/config"
	"github.com/open-sspm/useradmin/internal/metrics"
	"github.com/open-sspm/useradmin/internal/store"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Run the users service backing the admin panel.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAPI()
	},
}

func runAPI() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := slog.Default()
	if cfg.UsersAPIToken == "" {
		logger.Warn("USERS_API_TOKEN is not set; /api routes accept unauthenticated requests")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	st := store.New(pool)
	srv := api.NewServer(st, providers.NewPasswordProvider(st), api.Options{
		Token:  cfg.UsersAPIToken,
		Logger: logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runHTTPServer(gctx, logger, "users-api", cfg.APIAddr, srv.Handler())
	})
	g.Go(func() error {
		return metrics.Serve(gctx, cfg.MetricsAddr)
	})
	return g.Wait()
}
