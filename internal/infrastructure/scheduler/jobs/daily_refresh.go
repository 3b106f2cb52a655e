// Package jobs contains implementations of scheduled jobs.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/codeclub/leetboard/internal/application/command"
	"github.com/codeclub/leetboard/internal/domain/group"
	"github.com/codeclub/leetboard/internal/domain/profile"
	"github.com/codeclub/leetboard/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// DAILY REFRESH JOB
// ══════════════════════════════════════════════════════════════════════════════

// DailyRefreshJob refreshes every profile without a sample for today, then
// builds today's snapshot for every group. Profile failures never stop the
// snapshot step: snapshots are built from whatever samples were stored.
type DailyRefreshJob struct {
	profiles  profile.Repository
	groups    group.Repository
	refresh   *command.RefreshProfilesHandler
	snapshots *command.BuildSnapshotsHandler
	clock     timeutil.Clock
	logger    *slog.Logger

	config DailyRefreshConfig

	lastStats atomic.Pointer[DailyRefreshStats]
}

// DailyRefreshConfig contains configuration for the job.
type DailyRefreshConfig struct {
	// RefreshAll refreshes every tracked profile instead of only stale ones.
	RefreshAll bool

	// SkipSnapshots disables the snapshot step.
	SkipSnapshots bool

	// DeleteOrphans removes profiles that belong to no group before refreshing.
	DeleteOrphans bool

	// Timeout is the maximum duration of one run.
	Timeout time.Duration
}

// DefaultDailyRefreshConfig returns sensible defaults.
func DefaultDailyRefreshConfig() DailyRefreshConfig {
	return DailyRefreshConfig{
		Timeout: 2 * time.Hour,
	}
}

// DailyRefreshStats contains statistics from one run.
type DailyRefreshStats struct {
	StartedAt        time.Time
	Duration         time.Duration
	OrphansDeleted   int
	Profiles         command.RefreshSummary
	Snapshots        command.SnapshotSummary
	GroupsConsidered int
}

// NewDailyRefreshJob creates the job.
func NewDailyRefreshJob(
	profiles profile.Repository,
	groups group.Repository,
	refresh *command.RefreshProfilesHandler,
	snapshots *command.BuildSnapshotsHandler,
	clock timeutil.Clock,
	logger *slog.Logger,
	config DailyRefreshConfig,
) *DailyRefreshJob {
	if clock == nil {
		clock = timeutil.SystemClock
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DailyRefreshJob{
		profiles:  profiles,
		groups:    groups,
		refresh:   refresh,
		snapshots: snapshots,
		clock:     clock,
		logger:    logger.With("job", "daily_refresh"),
		config:    config,
	}
}

// Name returns the job name.
func (j *DailyRefreshJob) Name() string {
	return "daily_refresh"
}

// Description returns a human-readable description.
func (j *DailyRefreshJob) Description() string {
	return "Fetches today's LeetCode stats for stale profiles and stores daily group snapshots"
}

// LastStats returns statistics of the most recent run, or nil.
func (j *DailyRefreshJob) LastStats() *DailyRefreshStats {
	return j.lastStats.Load()
}

// Run executes the job. Only store errors that prevent listing profiles or
// groups are returned; per-item failures are reported in the stats.
func (j *DailyRefreshJob) Run(ctx context.Context) error {
	stats := &DailyRefreshStats{StartedAt: time.Now()}
	defer func() {
		stats.Duration = time.Since(stats.StartedAt)
		j.lastStats.Store(stats)
	}()

	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	if j.config.DeleteOrphans {
		n, err := j.profiles.DeleteOrphans(ctx)
		if err != nil {
			j.logger.Warn("failed to delete orphan profiles", "error", err)
		}
		stats.OrphansDeleted = n
	}

	today := timeutil.Today(j.clock)
	var (
		targets []profile.Profile
		err     error
	)
	if j.config.RefreshAll {
		targets, err = j.profiles.ListAll(ctx)
	} else {
		targets, err = j.profiles.ListStale(ctx, today)
	}
	if err != nil {
		return fmt.Errorf("daily_refresh: list profiles: %w", err)
	}

	j.logger.Info("refreshing profiles", "count", len(targets), "date", timeutil.FormatDate(today))
	stats.Profiles = command.Summary(j.refresh.Handle(ctx, targets))

	if j.config.SkipSnapshots {
		j.logRun(stats)
		return nil
	}

	groups, err := j.groups.ListGroups(ctx)
	if err != nil {
		return fmt.Errorf("daily_refresh: list groups: %w", err)
	}
	stats.GroupsConsidered = len(groups)
	stats.Snapshots = command.SummarizeSnapshots(j.snapshots.Handle(ctx, groups))

	j.logRun(stats)
	return nil
}

func (j *DailyRefreshJob) logRun(stats *DailyRefreshStats) {
	j.logger.Info("daily refresh finished",
		"profiles_total", stats.Profiles.Total,
		"profiles_succeeded", stats.Profiles.Succeeded,
		"profiles_skipped", stats.Profiles.Skipped,
		"profiles_failed", stats.Profiles.Failed,
		"groups", stats.GroupsConsidered,
		"snapshots_stored", stats.Snapshots.Succeeded,
		"snapshots_skipped", stats.Snapshots.Skipped,
		"snapshots_failed", stats.Snapshots.Failed,
		"orphans_deleted", stats.OrphansDeleted,
		"duration", timeutil.FormatDuration(time.Since(stats.StartedAt)),
	)
}
