package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/codeclub/leetboard/config"
	"github.com/codeclub/leetboard/internal/application/command"
	"github.com/codeclub/leetboard/internal/domain/group"
	"github.com/codeclub/leetboard/internal/domain/leaderboard"
	"github.com/codeclub/leetboard/internal/domain/profile"
	"github.com/codeclub/leetboard/internal/domain/shared"
	"github.com/codeclub/leetboard/internal/infrastructure/external/leetcode"
	"github.com/codeclub/leetboard/internal/infrastructure/metrics"
	"github.com/codeclub/leetboard/internal/infrastructure/persistence/memory"
	"github.com/codeclub/leetboard/internal/infrastructure/persistence/postgres"
	"github.com/codeclub/leetboard/internal/infrastructure/persistence/redis"
	"github.com/codeclub/leetboard/internal/interface/http/handlers"
	"github.com/codeclub/leetboard/pkg/logger"
	"github.com/codeclub/leetboard/pkg/timeutil"
)

const (
	storePostgres = "postgres"
	storeMemory   = "memory"
)

// ══════════════════════════════════════════════════════════════════════════════
// APPLICATION CONTAINER
// ══════════════════════════════════════════════════════════════════════════════

// container holds every wired dependency of one CLI invocation.
type container struct {
	cfg     *config.Config
	log     *slog.Logger
	metrics *metrics.Metrics
	clock   timeutil.Clock

	conn *postgres.Connection

	profiles  profile.Repository
	samples   profile.SampleRepository
	groups    group.Repository
	snapshots leaderboard.SnapshotStore
	cache     leaderboard.Cache

	source profile.Source
	health *handlers.CompositeHealthChecker

	closers []func()
}

// newContainer loads config, builds the logger and connects to storage.
func newContainer(c *cli.Context) (*container, error) {
	// Variables already set in the environment win over the file.
	if path := c.String("env-file"); path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(logger.Options{
		Level:   logger.ParseLevel(cfg.Observability.LogLevel),
		Format:  logger.ParseFormat(cfg.Observability.LogFormat),
		Service: cfg.App.Name,
	})
	slog.SetDefault(log)

	ct := &container{
		cfg:    cfg,
		log:    log,
		clock:  timeutil.SystemClock,
		health: handlers.NewCompositeHealthChecker(cfg.App.Version, 0),
	}
	if cfg.Observability.MetricsEnabled {
		ct.metrics = metrics.New(nil)
	}

	ctx := c.Context
	switch store := c.String("store"); store {
	case storePostgres:
		err = ct.connectPostgres(ctx)
	case storeMemory:
		err = ct.seedMemory(ctx, c.StringSlice("group"))
	default:
		err = fmt.Errorf("unknown store %q: expected %s or %s", store, storePostgres, storeMemory)
	}
	if err != nil {
		ct.Close()
		return nil, err
	}

	ct.connectRedis(ctx)

	ct.source = leetcode.NewClient(leetcode.ClientConfig{
		Endpoint:            cfg.LeetCode.Endpoint,
		Timeout:             cfg.LeetCode.RequestTimeout,
		RequestsPerSecond:   cfg.LeetCode.RequestsPerSecond,
		Burst:               cfg.LeetCode.Burst,
		ValidateMaxRetries:  cfg.LeetCode.ValidateMaxRetries,
		ValidateBackoffStep: cfg.LeetCode.ValidateBackoffStep,
		UserAgent:           cfg.LeetCode.UserAgent,
		Recorder:            ct.metrics,
		Logger:              log,
	})

	return ct, nil
}

func (ct *container) connectPostgres(ctx context.Context) error {
	if ct.cfg.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required for the %s store", storePostgres)
	}

	ct.log.Info("connecting to database...")
	conn, err := postgres.Connect(ctx, ct.cfg.Database.URL, postgres.PoolOptions{
		MaxConns:        int32(ct.cfg.Database.MaxConns),
		MinConns:        int32(ct.cfg.Database.MinConns),
		MaxConnLifetime: ct.cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: ct.cfg.Database.ConnMaxIdleTime,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	ct.closers = append(ct.closers, conn.Close)
	ct.log.Info("database connection established")

	profiles := postgres.NewProfileRepository(conn)
	ct.conn = conn
	ct.profiles = profiles
	ct.samples = profiles
	ct.groups = postgres.NewGroupRepository(conn)
	ct.snapshots = postgres.NewSnapshotRepository(conn)
	ct.health.AddCheck("postgres", handlers.PingCheck(conn))
	return nil
}

// seedMemory builds an in-process store; definitions are "name=user1,user2".
func (ct *container) seedMemory(ctx context.Context, defs []string) error {
	store := memory.NewStore()
	for _, def := range defs {
		name, list, ok := strings.Cut(def, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return fmt.Errorf("invalid --group %q: expected name=user1,user2", def)
		}
		groupID := store.AddGroup(strings.TrimSpace(name))
		for _, raw := range strings.Split(list, ",") {
			if strings.TrimSpace(raw) == "" {
				continue
			}
			username, err := shared.NewUsername(raw)
			if err != nil {
				return fmt.Errorf("group %s: %w", name, err)
			}
			p, err := store.Ensure(ctx, username)
			if err != nil {
				return err
			}
			if err := store.AddMember(groupID, p.ID); err != nil {
				return err
			}
		}
	}

	ct.log.Warn("using in-memory store, data is lost on exit", "groups", len(defs))
	ct.profiles = store
	ct.samples = store
	ct.groups = store
	ct.snapshots = store
	return nil
}

// connectRedis enables the leaderboard cache; failures only disable caching.
func (ct *container) connectRedis(ctx context.Context) {
	rc := ct.cfg.Redis
	if rc.Disabled {
		return
	}

	cache, err := redis.NewCache(ctx, redis.Config{
		Host:         rc.Host,
		Port:         rc.Port,
		Password:     rc.Password,
		DB:           rc.DB,
		PoolSize:     rc.PoolSize,
		DialTimeout:  rc.DialTimeout,
		ReadTimeout:  rc.ReadTimeout,
		WriteTimeout: rc.WriteTimeout,
		KeyPrefix:    rc.KeyPrefix,
	})
	if err != nil {
		ct.log.Warn("failed to connect to Redis, caching disabled", logger.Err(err))
		return
	}
	ct.closers = append(ct.closers, func() { _ = cache.Close() })
	ct.cache = redis.NewLeaderboardCache(cache, rc.LeaderboardTTL)
	ct.health.AddCheck("redis", handlers.PingCheck(cache))
	ct.log.Info("Redis connection established")
}

// Close releases connections in reverse order.
func (ct *container) Close() {
	for i := len(ct.closers) - 1; i >= 0; i-- {
		ct.closers[i]()
	}
	ct.closers = nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (ct *container) refreshHandler(force bool) *command.RefreshProfilesHandler {
	opts := []command.RefreshOption{
		command.WithClock(ct.clock),
		command.WithBatchRecorder(ct.metrics),
	}
	if ct.cache != nil {
		opts = append(opts, command.WithLeaderboardCache(ct.groups, ct.cache))
	}
	return command.NewRefreshProfilesHandler(ct.source, ct.samples,
		command.RefreshProfilesHandlerConfig{
			Concurrency: ct.cfg.Refresh.Concurrency,
			Delay:       ct.cfg.Refresh.Delay,
			Force:       force,
		},
		ct.log,
		opts...,
	)
}

func (ct *container) snapshotHandler() *command.BuildSnapshotsHandler {
	return command.NewBuildSnapshotsHandler(ct.groups, ct.samples, ct.snapshots,
		command.BuildSnapshotsHandlerConfig{
			Concurrency: ct.cfg.Snapshot.Concurrency,
			Delay:       ct.cfg.Snapshot.Delay,
			MinMembers:  ct.cfg.Snapshot.MinMembers,
			WindowDays:  ct.cfg.Snapshot.WindowDays,
		},
		ct.log,
		command.WithSnapshotClock(ct.clock),
		command.WithSnapshotRecorders(ct.metrics, ct.metrics),
	)
}

func (ct *container) registerHandler() *command.RegisterProfileHandler {
	return command.NewRegisterProfileHandler(ct.source, ct.profiles, ct.samples, ct.clock, ct.log)
}
