package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/codeclub/leetboard/internal/application/command"
	"github.com/codeclub/leetboard/internal/application/query"
	"github.com/codeclub/leetboard/internal/domain/leaderboard"
	"github.com/codeclub/leetboard/internal/domain/profile"
	"github.com/codeclub/leetboard/internal/domain/shared"
	"github.com/codeclub/leetboard/internal/infrastructure/persistence/postgres"
	"github.com/codeclub/leetboard/internal/infrastructure/scheduler"
	"github.com/codeclub/leetboard/internal/infrastructure/scheduler/jobs"
	httpapi "github.com/codeclub/leetboard/internal/interface/http"
	"github.com/codeclub/leetboard/pkg/batch"
	"github.com/codeclub/leetboard/pkg/logger"
	"github.com/codeclub/leetboard/pkg/timeutil"
)

// exitPartialFailure is returned by one-off batches with failed items.
const exitPartialFailure = 2

// ══════════════════════════════════════════════════════════════════════════════
// RUN
// ══════════════════════════════════════════════════════════════════════════════

func newRunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "start the scheduler and the ops HTTP API",
		Action: func(c *cli.Context) error {
			ct, err := newContainer(c)
			if err != nil {
				return err
			}
			defer ct.Close()
			return runWorker(c.Context, ct)
		},
	}
}

func runWorker(parent context.Context, ct *container) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := ct.cfg
	log := ct.log
	log.Info("starting leetboard worker",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"scheduler", cfg.Scheduler.Enabled,
		"http", cfg.HTTP.Enabled,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// Scheduler
	// ─────────────────────────────────────────────────────────────────────────
	sched := scheduler.NewScheduler(scheduler.SchedulerConfig{
		Logger:   log,
		Observer: ct.metrics,
	})

	if cfg.Scheduler.Enabled {
		schedule, err := scheduler.ParseSchedule(cfg.Scheduler.DailyRefresh)
		if err != nil {
			return fmt.Errorf("SCHEDULER_DAILY_REFRESH: %w", err)
		}

		job := jobs.NewDailyRefreshJob(ct.profiles, ct.groups,
			ct.refreshHandler(false), ct.snapshotHandler(), ct.clock, log,
			jobs.DailyRefreshConfig{
				RefreshAll:    cfg.Scheduler.RefreshAll,
				DeleteOrphans: cfg.Scheduler.DeleteOrphans,
				Timeout:       cfg.Scheduler.JobTimeout,
			},
		)
		if err := sched.Register(job, schedule, cfg.Scheduler.RunOnStart); err != nil {
			return fmt.Errorf("failed to register job: %w", err)
		}
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer func() { _ = sched.Stop() }()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Ops HTTP API
	// ─────────────────────────────────────────────────────────────────────────
	var serverErr <-chan error
	var server *httpapi.Server
	if cfg.HTTP.Enabled {
		deps := httpapi.Dependencies{
			GetLeaderboardHandler: query.NewGetLeaderboardHandler(ct.groups, ct.samples, ct.snapshots, ct.cache, log),
			GetGainersHandler:     query.NewGetGainersHandler(ct.groups, ct.samples, ct.clock, log),
			HealthChecker:         ct.health,
			Logger:                log,
		}
		if cfg.Scheduler.Enabled {
			deps.Jobs = sched
		}
		if ct.metrics != nil {
			deps.Metrics = ct.metrics.Handler()
		}

		server = httpapi.NewServer(httpapi.Config{
			Host:           cfg.HTTP.Host,
			Port:           cfg.HTTP.Port,
			ReadTimeout:    cfg.HTTP.ReadTimeout,
			WriteTimeout:   cfg.HTTP.WriteTimeout,
			IdleTimeout:    cfg.HTTP.IdleTimeout,
			MaxHeaderBytes: httpapi.DefaultConfig().MaxHeaderBytes,
		}, deps)
		serverErr = server.StartAsync()
	}

	log.Info("leetboard worker is running")

	select {
	case <-ctx.Done():
		log.Info("received shutdown signal")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())
	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("http shutdown failed", logger.Err(err))
		}
	}
	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// REFRESH
// ══════════════════════════════════════════════════════════════════════════════

func newRefreshCommand() *cli.Command {
	return &cli.Command{
		Name:      "refresh",
		Usage:     "fetch today's stats for stale profiles (or the given usernames)",
		ArgsUsage: "[username...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "all", Usage: "refresh every tracked profile, not only stale ones"},
			&cli.BoolFlag{Name: "force", Usage: "refetch profiles that already have today's sample"},
		},
		Action: func(c *cli.Context) error {
			ct, err := newContainer(c)
			if err != nil {
				return err
			}
			defer ct.Close()

			profiles, err := selectProfiles(c, ct)
			if err != nil {
				return err
			}

			started := time.Now()
			results := ct.refreshHandler(c.Bool("force")).Handle(c.Context, profiles)
			summary := command.Summary(results)

			w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
			for _, r := range results {
				if r.Status == batch.StatusFailed {
					fmt.Fprintf(w, "%s\t%s\t%s\n", r.Username, r.Reason, r.Message)
				}
			}
			_ = w.Flush()
			fmt.Fprintf(c.App.Writer, "refreshed %d profiles in %s: %d succeeded, %d skipped, %d failed\n",
				summary.Total, time.Since(started).Round(time.Millisecond),
				summary.Succeeded, summary.Skipped, summary.Failed)

			if summary.Failed > 0 {
				return cli.Exit("", exitPartialFailure)
			}
			return nil
		},
	}
}

func selectProfiles(c *cli.Context, ct *container) ([]profile.Profile, error) {
	ctx := c.Context
	if c.Args().Present() {
		profiles := make([]profile.Profile, 0, c.Args().Len())
		for _, raw := range c.Args().Slice() {
			username, err := shared.NewUsername(raw)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", raw, err)
			}
			p, err := ct.profiles.GetByUsername(ctx, username)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", raw, err)
			}
			profiles = append(profiles, *p)
		}
		return profiles, nil
	}
	if c.Bool("all") {
		return ct.profiles.ListAll(ctx)
	}
	return ct.profiles.ListStale(ctx, timeutil.Today(ct.clock))
}

// ══════════════════════════════════════════════════════════════════════════════
// SNAPSHOT
// ══════════════════════════════════════════════════════════════════════════════

func newSnapshotCommand() *cli.Command {
	return &cli.Command{
		Name:  "snapshot",
		Usage: "build today's leaderboard snapshot for every group",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "top", Usage: "print the first `N` leaderboard rows of every stored snapshot"},
		},
		Action: func(c *cli.Context) error {
			ct, err := newContainer(c)
			if err != nil {
				return err
			}
			defer ct.Close()

			groups, err := ct.groups.ListGroups(c.Context)
			if err != nil {
				return fmt.Errorf("failed to list groups: %w", err)
			}

			results := ct.snapshotHandler().Handle(c.Context, groups)
			summary := command.SummarizeSnapshots(results)

			w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
			for _, r := range results {
				detail := r.Reason
				if r.Snapshot != nil {
					detail = fmt.Sprintf("%d entries, %d gainers",
						len(r.Snapshot.Payload.Leaderboard), len(r.Snapshot.Payload.Gainers))
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", r.Name, r.Status, detail)
				if r.Snapshot != nil && c.Int("top") > 0 {
					printTop(w, r.Snapshot.Top(c.Int("top")))
				}
			}
			_ = w.Flush()
			fmt.Fprintf(c.App.Writer, "snapshots: %d stored, %d skipped, %d failed\n",
				summary.Succeeded, summary.Skipped, summary.Failed)

			if summary.Failed > 0 {
				return cli.Exit("", exitPartialFailure)
			}
			return nil
		},
	}
}

func printTop(w io.Writer, entries []leaderboard.Entry) {
	for _, e := range entries {
		rank := "-"
		if e.IsRanked() {
			rank = strconv.Itoa(e.Ranking)
		}
		fmt.Fprintf(w, "\t%d. %s\t%d pts, %d solved, rank %s\n",
			e.Position, e.Username, e.RankingPoints, e.TotalSolved, rank)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// REGISTER
// ══════════════════════════════════════════════════════════════════════════════

func newRegisterCommand() *cli.Command {
	return &cli.Command{
		Name:      "register",
		Usage:     "verify a LeetCode username and start tracking it",
		ArgsUsage: "<username>",
		Action: func(c *cli.Context) error {
			if c.Args().Len() != 1 {
				return cli.Exit("register expects exactly one username", 1)
			}

			ct, err := newContainer(c)
			if err != nil {
				return err
			}
			defer ct.Close()

			res, err := ct.registerHandler().Handle(c.Context, command.RegisterProfileCommand{
				Username: c.Args().First(),
			})
			if err != nil {
				return cli.Exit(shared.UserMessage(err), 1)
			}

			verb := "already tracked"
			if res.Created {
				verb = "registered"
			}
			fmt.Fprintf(c.App.Writer, "%s %s: %d solved, %d ranking points\n",
				verb, res.Profile.Username, res.Sample.TotalSolved, *res.Sample.RankingPoints)
			return nil
		},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATE
// ══════════════════════════════════════════════════════════════════════════════

func newMigrateCommand() *cli.Command {
	withMigrator := func(fn func(c *cli.Context, m *postgres.Migrator) error) cli.ActionFunc {
		return func(c *cli.Context) error {
			if c.String("store") != storePostgres {
				return errors.New("migrations require the postgres store")
			}
			ct, err := newContainer(c)
			if err != nil {
				return err
			}
			defer ct.Close()
			return fn(c, postgres.NewMigrator(ct.conn))
		}
	}

	return &cli.Command{
		Name:  "migrate",
		Usage: "database migrations",
		Subcommands: []*cli.Command{
			{
				Name:  "up",
				Usage: "apply pending migrations",
				Action: withMigrator(func(c *cli.Context, m *postgres.Migrator) error {
					n, err := m.Migrate(c.Context)
					if err != nil {
						return err
					}
					if n == 0 {
						fmt.Fprintln(c.App.Writer, "No new migrations to run")
					} else {
						fmt.Fprintf(c.App.Writer, "Applied %d migrations\n", n)
					}
					return nil
				}),
			},
			{
				Name:  "down",
				Usage: "roll back the last applied migration",
				Action: withMigrator(func(c *cli.Context, m *postgres.Migrator) error {
					if err := m.Rollback(c.Context); err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, "Rolled back the last migration")
					return nil
				}),
			},
			{
				Name:  "status",
				Usage: "show applied and pending migrations",
				Action: withMigrator(func(c *cli.Context, m *postgres.Migrator) error {
					migrations, err := m.Status(c.Context)
					if err != nil {
						return err
					}
					w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
					fmt.Fprintln(w, "VERSION\tNAME\tAPPLIED")
					for _, mg := range migrations {
						applied := "pending"
						if mg.IsApplied {
							applied = mg.AppliedAt.Format(time.RFC3339)
						}
						fmt.Fprintf(w, "%03d\t%s\t%s\n", mg.Version, mg.Name, applied)
					}
					return w.Flush()
				}),
			},
		},
	}
}
