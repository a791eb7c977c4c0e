package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dyluth/gather/internal/category"
	"github.com/dyluth/gather/internal/chat"
	"github.com/dyluth/gather/internal/clock"
	"github.com/dyluth/gather/internal/config"
	"github.com/dyluth/gather/internal/discovery"
	"github.com/dyluth/gather/internal/logging"
	"github.com/dyluth/gather/internal/metrics"
	"github.com/dyluth/gather/internal/presence"
	"github.com/dyluth/gather/internal/printer"
	"github.com/dyluth/gather/internal/profile"
	"github.com/dyluth/gather/internal/resolver"
	"github.com/dyluth/gather/internal/subscription"
	"github.com/dyluth/gather/pkg/store"
	"go.uber.org/zap"
)

// pingTimeout bounds the connectivity check made when a command starts.
const pingTimeout = 3 * time.Second

// app wires the configured store into every component.
type app struct {
	cfg     *config.GatherConfig
	logger  *zap.Logger
	client  *store.Client
	clock   clock.Clock
	metrics *metrics.Recorder

	profiles  *profile.Service
	ledger    *subscription.Ledger
	discovery *discovery.Service
	presence  *presence.Tracker
	chat      *chat.Stream
	votes     *category.Aggregator
	catalog   *category.Catalog
}

// appMode selects logging and startup behaviour.
type appMode int

const (
	// cliMode logs to stderr and fails fast when Redis is unreachable.
	cliMode appMode = iota
	// serverMode logs in the configured format and starts without Redis;
	// /healthz reports the outage.
	serverMode
)

func newApp(ctx context.Context, mode appMode) (*app, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, printer.Error("failed to load environment file", err.Error(), nil)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, printer.Error(
			"invalid configuration",
			err.Error(),
			[]string{"Check gather.yml or pass another file with --config"},
		)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	var logger *zap.Logger
	if mode == serverMode {
		logger, err = logging.New(cfg.Log.Level, cfg.Log.Format)
	} else {
		level := cfg.Log.Level
		if logLevel == "" {
			level = "warn"
		}
		logger, err = logging.NewCLI(level)
	}
	if err != nil {
		return nil, err
	}

	opts, err := cfg.RedisOptions()
	if err != nil {
		return nil, printer.Error("invalid configuration", err.Error(), nil)
	}
	client, err := store.NewClient(opts, cfg.Redis.Namespace)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx); err != nil {
		if mode == cliMode {
			client.Close()
			return nil, printer.ErrorWithContext(
				"Redis unreachable",
				err.Error(),
				map[string]string{"Addr": opts.Addr, "Namespace": cfg.Redis.Namespace},
				[]string{
					"Start Redis, e.g.:\n  docker run -p 6379:6379 redis:7-alpine",
					fmt.Sprintf("Point gather at a running server with redis.url or %s", config.EnvRedisURL),
				},
			)
		}
		logger.Warn("redis unreachable at startup", zap.String("addr", opts.Addr), zap.Error(err))
	}

	a := &app{
		cfg:    cfg,
		logger: logger,
		client: client,
		clock:  clock.System{},
	}
	if mode == serverMode {
		a.metrics = metrics.New()
	}

	a.profiles = profile.NewService(client, a.clock, logger)
	a.ledger = subscription.NewLedger(client, a.clock, logger, a.metrics)
	a.discovery = discovery.NewService(client, a.profiles, a.ledger, a.clock,
		discovery.Options{RequireOrganizer: cfg.Events.RequireOrganizer}, logger)
	a.presence = presence.NewTracker(client, cfg.Presence.Retention, logger, a.metrics)
	a.chat = chat.NewStream(client, a.clock, logger, a.metrics)
	a.votes = category.NewAggregator(client, a.clock,
		category.Options{MergeVariants: cfg.Categories.MergeVariants}, logger, a.metrics)
	a.catalog = category.NewCatalog(client, logger)

	return a, nil
}

// Close releases the Redis connection and flushes logs.
func (a *app) Close() {
	a.client.Close()
	_ = a.logger.Sync()
}

// resolveEvent expands a short event id as printed by the events table.
func (a *app) resolveEvent(ctx context.Context, arg string) (string, error) {
	id, err := resolver.ResolveEventID(ctx, a.client, arg)
	if err == nil {
		return id, nil
	}
	var ambiguous *resolver.AmbiguousError
	if errors.As(err, &ambiguous) {
		return "", printer.Error(
			"ambiguous event id",
			err.Error(),
			append(ambiguous.Suggestions(), "Use a longer prefix to identify the event."),
		)
	}
	return "", storeError("find event", err)
}

// storeError turns a component error into a printed CLI error.
func storeError(action string, err error) error {
	var hint []string
	switch {
	case store.IsNotFound(err):
		hint = []string{"Check the id; list events with:\n  gather events nearby --user <id> --at <lat,lon>"}
	case store.IsTransient(err):
		hint = []string{"Check that Redis is running and reachable"}
	}
	return printer.Error(fmt.Sprintf("failed to %s", action), err.Error(), hint)
}
