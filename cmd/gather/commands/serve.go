package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dyluth/gather/internal/api"
	"github.com/dyluth/gather/internal/printer"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// storeProbeInterval is how often serve re-checks Redis connectivity.
const storeProbeInterval = 30 * time.Second

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and WebSocket API",
	Long: `Run the gather API server until interrupted.

Routes live under /api/v1 and require a bearer token (HS256, subject = user
id) signed with auth.jwt_secret. /healthz and /metrics are public.

If categories.catalog_file is set, the catalog is seeded from it on startup.

Examples:
  # Serve with gather.yml from the working directory
  gather serve

  # Override the listen address
  gather serve --addr :9090`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides http.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, serverMode)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.cfg.RequireAuth(); err != nil {
		return printer.Error(
			"API authentication is not configured",
			err.Error(),
			[]string{"Set auth.jwt_secret in gather.yml or the GATHER_JWT_SECRET environment variable"},
		)
	}
	if serveAddr != "" {
		a.cfg.HTTP.Addr = serveAddr
	}

	if path := a.cfg.Categories.CatalogFile; path != "" {
		if err := seedCatalogFile(ctx, a, path); err != nil {
			a.logger.Warn("catalog seed failed", zap.String("file", path), zap.Error(err))
		}
	}

	srv, err := api.NewServer(api.Services{
		Store:         a.client,
		Discovery:     a.discovery,
		Profiles:      a.profiles,
		Subscriptions: a.ledger,
		Presence:      a.presence,
		Chat:          a.chat,
		Votes:         a.votes,
		Catalog:       a.catalog,
		Clock:         a.clock,
	}, api.Options{
		Auth:        api.NewAuthenticator(a.cfg.Auth.JWTSecret, a.cfg.Auth.Issuer, a.clock),
		CORSOrigins: a.cfg.HTTP.CORSOrigins,
		Logger:      a.logger,
		Metrics:     a.metrics,
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(gctx, a.cfg.HTTP.Addr, a.cfg.HTTP.ReadTimeout, a.cfg.HTTP.WriteTimeout, a.cfg.HTTP.ShutdownTimeout)
	})
	g.Go(func() error {
		probeStore(gctx, a)
		return nil
	})

	a.logger.Info("gather serving",
		zap.String("addr", a.cfg.HTTP.Addr),
		zap.String("namespace", a.cfg.Redis.Namespace),
		zap.String("version", version))

	if err := g.Wait(); err != nil {
		return printer.Error("server stopped", fmt.Sprintf("HTTP server failed: %v", err), nil)
	}
	a.logger.Info("gather stopped")
	return nil
}

// probeStore logs Redis connectivity transitions until ctx ends.
func probeStore(ctx context.Context, a *app) {
	ticker := time.NewTicker(storeProbeInterval)
	defer ticker.Stop()

	healthy := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
			err := a.client.Ping(pingCtx)
			cancel()

			switch {
			case err != nil && healthy:
				a.logger.Warn("redis became unreachable", zap.Error(err))
			case err == nil && !healthy:
				a.logger.Info("redis reachable again")
			}
			healthy = err == nil
		}
	}
}
