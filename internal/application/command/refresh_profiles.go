// Package command contains write operations (CQRS - Commands).
// Commands are responsible for changing the state of the system:
// pulling fresh stats, persisting samples and building daily snapshots.
package command

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/codeclub/leetboard/internal/domain/group"
	"github.com/codeclub/leetboard/internal/domain/leaderboard"
	"github.com/codeclub/leetboard/internal/domain/profile"
	"github.com/codeclub/leetboard/internal/domain/shared"
	"github.com/codeclub/leetboard/pkg/batch"
	"github.com/codeclub/leetboard/pkg/logger"
	"github.com/codeclub/leetboard/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// REFRESH PROFILES COMMAND
// Pulls current stats for every given profile and stores one sample per day.
// ══════════════════════════════════════════════════════════════════════════════

// Skip and failure reasons reported in ProfileResult.Reason.
const (
	ReasonFresh    = "fresh"
	ReasonNotFound = "not_found"
	ReasonStore    = "store"
)

// ProfileResult is the per-profile outcome of a refresh.
type ProfileResult struct {
	ProfileID shared.ProfileID
	Username  shared.Username
	Status    batch.Status

	// Sample is set for succeeded profiles.
	Sample *profile.StatSample

	// Reason is a machine-readable tag for skipped and failed profiles.
	Reason string

	// Message is a human-readable explanation for failed profiles.
	Message string

	Err error
}

// RefreshSummary aggregates a refresh run.
type RefreshSummary struct {
	Total     int
	Succeeded int
	Skipped   int
	Failed    int
}

// Summary counts results by status.
func Summary(results []ProfileResult) RefreshSummary {
	s := RefreshSummary{Total: len(results)}
	for _, r := range results {
		switch r.Status {
		case batch.StatusSucceeded:
			s.Succeeded++
		case batch.StatusSkipped:
			s.Skipped++
		case batch.StatusFailed:
			s.Failed++
		}
	}
	return s
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// RefreshProfilesHandlerConfig contains configuration for the handler.
type RefreshProfilesHandlerConfig struct {
	// Concurrency is the number of profiles fetched at once.
	Concurrency int

	// Delay is the pause between chunks.
	Delay time.Duration

	// Force refetches profiles that already have a sample for today.
	Force bool
}

// DefaultRefreshProfilesHandlerConfig returns default configuration.
func DefaultRefreshProfilesHandlerConfig() RefreshProfilesHandlerConfig {
	return RefreshProfilesHandlerConfig{
		Concurrency: 5,
		Delay:       time.Second,
	}
}

// RefreshProfilesHandler handles profile refreshes.
type RefreshProfilesHandler struct {
	source  profile.Source
	samples profile.SampleRepository
	groups  group.Repository
	cache   leaderboard.Cache
	clock   timeutil.Clock
	config  RefreshProfilesHandlerConfig

	recorder batch.Recorder
	logger   *slog.Logger
}

// RefreshOption customizes a RefreshProfilesHandler.
type RefreshOption func(*RefreshProfilesHandler)

// WithLeaderboardCache invalidates cached leaderboards of every group after
// a refresh that stored at least one sample.
func WithLeaderboardCache(groups group.Repository, cache leaderboard.Cache) RefreshOption {
	return func(h *RefreshProfilesHandler) {
		h.groups = groups
		h.cache = cache
	}
}

// WithClock overrides the clock used to decide the sample day.
func WithClock(clock timeutil.Clock) RefreshOption {
	return func(h *RefreshProfilesHandler) { h.clock = clock }
}

// WithBatchRecorder reports every item outcome to r.
func WithBatchRecorder(r batch.Recorder) RefreshOption {
	return func(h *RefreshProfilesHandler) { h.recorder = r }
}

// NewRefreshProfilesHandler creates a new RefreshProfilesHandler.
func NewRefreshProfilesHandler(
	source profile.Source,
	samples profile.SampleRepository,
	config RefreshProfilesHandlerConfig,
	logger *slog.Logger,
	opts ...RefreshOption,
) *RefreshProfilesHandler {
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultRefreshProfilesHandlerConfig().Concurrency
	}
	if config.Delay < 0 {
		config.Delay = 0
	}
	if logger == nil {
		logger = slog.Default()
	}

	h := &RefreshProfilesHandler{
		source:  source,
		samples: samples,
		clock:   timeutil.SystemClock,
		config:  config,
		logger:  logger.With("handler", "refresh_profiles"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle refreshes every profile and returns one result per profile in
// input order. It never returns an error: a failing profile is reported
// in its own result and never affects the others.
func (h *RefreshProfilesHandler) Handle(ctx context.Context, profiles []profile.Profile) []ProfileResult {
	today := timeutil.Today(h.clock)

	report := batch.Run(ctx, profiles,
		batch.Config{
			Name:        "refresh_profiles",
			Concurrency: h.config.Concurrency,
			Delay:       h.config.Delay,
			Logger:      h.logger,
			Recorder:    h.recorder,
		},
		func(p profile.Profile) string { return p.Username.String() },
		func(ctx context.Context, p profile.Profile) (*profile.StatSample, error) {
			return h.refreshOne(ctx, p, today)
		},
	)

	results := make([]ProfileResult, len(report.Results))
	for i, res := range report.Results {
		results[i] = ProfileResult{
			ProfileID: profiles[i].ID,
			Username:  profiles[i].Username,
			Status:    res.Status,
			Reason:    res.Reason,
			Err:       res.Err,
		}
		switch res.Status {
		case batch.StatusSucceeded:
			results[i].Sample = res.Value
		case batch.StatusFailed:
			results[i].Message = failureMessage(res.Reason, res.Err)
		}
	}

	if report.Succeeded > 0 {
		h.invalidateCache(ctx)
	}
	return results
}

func (h *RefreshProfilesHandler) refreshOne(ctx context.Context, p profile.Profile, today time.Time) (*profile.StatSample, error) {
	if !h.config.Force {
		fresh, err := h.samples.HasSample(ctx, p.ID, today)
		if err != nil {
			return nil, batch.Fail(ReasonStore, fmt.Errorf("refresh_profiles: check sample: %w", err))
		}
		if fresh {
			return nil, batch.Skip(ReasonFresh)
		}
	}

	res := h.source.Fetch(ctx, p.Username.String())
	switch res.Outcome {
	case profile.OutcomeNotFound:
		return nil, batch.Fail(ReasonNotFound, shared.ErrProfileNotFound)
	case profile.OutcomeFailed:
		return nil, batch.Fail(string(res.Reason), res.Err)
	}

	sample := profile.NewStatSampleForDay(p.ID, today, res.Stats, leaderboard.RoundedRankingPoints(res.Stats), h.clock.Now())
	if err := h.samples.UpsertSample(ctx, sample); err != nil {
		return nil, batch.Fail(ReasonStore, fmt.Errorf("refresh_profiles: upsert sample: %w", err))
	}

	h.logger.Debug("profile refreshed",
		logger.Username(p.Username.String()),
		logger.ProfileID(p.ID.String()),
		logger.Date(sample.Date),
		"total_solved", sample.TotalSolved,
		logger.RankingPoints(*sample.RankingPoints),
	)
	return &sample, nil
}

func (h *RefreshProfilesHandler) invalidateCache(ctx context.Context) {
	if h.cache == nil || h.groups == nil {
		return
	}
	groups, err := h.groups.ListGroups(ctx)
	if err != nil {
		h.logger.Warn("failed to list groups for cache invalidation", logger.Operation("invalidate_cache"), logger.Err(err))
		return
	}
	ids := make([]shared.GroupID, len(groups))
	for i, g := range groups {
		ids[i] = g.ID
	}
	if err := h.cache.Invalidate(ctx, ids...); err != nil {
		h.logger.Warn("failed to invalidate leaderboard cache", logger.Operation("invalidate_cache"), logger.Err(err))
	}
}

func failureMessage(reason string, err error) string {
	switch reason {
	case ReasonNotFound:
		return shared.ErrProfileNotFound.UserMessage()
	case batch.ReasonCanceled:
		return "refresh was canceled before this profile was processed"
	}
	if err == nil {
		return reason
	}
	return shared.UserMessage(err)
}
