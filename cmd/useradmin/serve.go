package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexedwards/scs/pgxstore"
	"github.com/alexedwards/scs/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/open-sspm/useradmin/internal/config"
	httpapp "github.com/open-sspm/useradmin/internal/http"
	"github.com/open-sspm/useradmin/internal/metrics"
	"github.com/open-sspm/useradmin/internal/usersapi"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const sessionCookieName = "useradmin_session"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the admin panel.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func runServe() error {
	cfg, err := config.LoadOptionalDB()
	if err != nil {
		return err
	}
	logger := slog.Default()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := usersapi.New(cfg.UsersAPIURL, cfg.UsersAPIToken, cfg.UsersAPITimeout)
	if err != nil {
		return err
	}

	sessions := newSessionManager(cfg)
	if cfg.SessionStore == config.SessionStorePostgres {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		store := pgxstore.New(pool)
		defer store.StopCleanup()
		sessions.Store = store
	}

	srv, err := httpapp.NewEchoServer(cfg, client, sessions, logger)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runHTTPServer(gctx, logger, "panel", cfg.HTTPAddr, srv.Handler())
	})
	g.Go(func() error {
		return metrics.Serve(gctx, cfg.MetricsAddr)
	})
	return g.Wait()
}

// newSessionManager returns an scs manager backed by the in-memory store.
func newSessionManager(cfg config.Config) *scs.SessionManager {
	sessions := scs.New()
	sessions.Lifetime = cfg.SessionLifetime
	sessions.Cookie.Name = sessionCookieName
	sessions.Cookie.Path = "/"
	sessions.Cookie.HttpOnly = true
	sessions.Cookie.Secure = cfg.AuthCookieSecure
	sessions.Cookie.SameSite = http.SameSiteLaxMode
	return sessions
}
