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
// BUILD SNAPSHOTS COMMAND
// Builds and stores today's leaderboard snapshot for every eligible group.
// ══════════════════════════════════════════════════════════════════════════════

// Skip and failure reasons reported in GroupResult.Reason.
const (
	ReasonTooFewMembers = "too_few_members"
	ReasonMembers       = "members"
	ReasonBuild         = "build"
	ReasonInvalid       = "invalid_payload"
)

// GroupResult is the per-group outcome of a snapshot build.
type GroupResult struct {
	GroupID shared.GroupID
	Name    string
	Status  batch.Status

	// Snapshot is set for succeeded groups.
	Snapshot *leaderboard.Snapshot

	Reason string
	Err    error
}

// SnapshotSummary aggregates a snapshot run.
type SnapshotSummary struct {
	Total     int
	Succeeded int
	Skipped   int
	Failed    int
}

// SummarizeSnapshots counts results by status.
func SummarizeSnapshots(results []GroupResult) SnapshotSummary {
	s := SnapshotSummary{Total: len(results)}
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

// SnapshotRecorder observes stored snapshots (optional).
type SnapshotRecorder interface {
	ObserveSnapshot(entries, gainers int)
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// BuildSnapshotsHandlerConfig contains configuration for the handler.
type BuildSnapshotsHandlerConfig struct {
	Concurrency int
	Delay       time.Duration

	// MinMembers is the eligibility threshold.
	MinMembers int

	// WindowDays is the gainers window length.
	WindowDays int
}

// DefaultBuildSnapshotsHandlerConfig returns default configuration.
func DefaultBuildSnapshotsHandlerConfig() BuildSnapshotsHandlerConfig {
	return BuildSnapshotsHandlerConfig{
		Concurrency: 3,
		MinMembers:  leaderboard.MinMembersForSnapshot,
		WindowDays:  leaderboard.DefaultWindowDays,
	}
}

// BuildSnapshotsHandler handles snapshot builds.
type BuildSnapshotsHandler struct {
	groups    group.Repository
	assembler *leaderboard.Assembler
	store     leaderboard.SnapshotStore
	clock     timeutil.Clock
	config    BuildSnapshotsHandlerConfig

	batchRecorder    batch.Recorder
	snapshotRecorder SnapshotRecorder
	logger           *slog.Logger
}

// SnapshotOption customizes a BuildSnapshotsHandler.
type SnapshotOption func(*BuildSnapshotsHandler)

// WithSnapshotClock overrides the clock that decides the snapshot day.
func WithSnapshotClock(clock timeutil.Clock) SnapshotOption {
	return func(h *BuildSnapshotsHandler) { h.clock = clock }
}

// WithSnapshotRecorders wires metrics hooks. Either may be nil.
func WithSnapshotRecorders(b batch.Recorder, s SnapshotRecorder) SnapshotOption {
	return func(h *BuildSnapshotsHandler) {
		h.batchRecorder = b
		h.snapshotRecorder = s
	}
}

// NewBuildSnapshotsHandler creates a new BuildSnapshotsHandler.
func NewBuildSnapshotsHandler(
	groups group.Repository,
	samples profile.SampleRepository,
	store leaderboard.SnapshotStore,
	config BuildSnapshotsHandlerConfig,
	logger *slog.Logger,
	opts ...SnapshotOption,
) *BuildSnapshotsHandler {
	defaults := DefaultBuildSnapshotsHandlerConfig()
	if config.Concurrency <= 0 {
		config.Concurrency = defaults.Concurrency
	}
	if config.MinMembers <= 0 {
		config.MinMembers = defaults.MinMembers
	}
	if config.WindowDays <= 0 {
		config.WindowDays = defaults.WindowDays
	}
	if logger == nil {
		logger = slog.Default()
	}

	h := &BuildSnapshotsHandler{
		groups:    groups,
		assembler: leaderboard.NewAssembler(samples),
		store:     store,
		clock:     timeutil.SystemClock,
		config:    config,
		logger:    logger.With("handler", "build_snapshots"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle builds today's snapshot for each group and returns one result per
// group in input order. Groups below the eligibility threshold are skipped.
func (h *BuildSnapshotsHandler) Handle(ctx context.Context, groups []group.Group) []GroupResult {
	today := timeutil.Today(h.clock)

	report := batch.Run(ctx, groups,
		batch.Config{
			Name:        "build_snapshots",
			Concurrency: h.config.Concurrency,
			Delay:       h.config.Delay,
			Logger:      h.logger,
			Recorder:    h.batchRecorder,
		},
		func(g group.Group) string { return g.ID.String() },
		func(ctx context.Context, g group.Group) (*leaderboard.Snapshot, error) {
			return h.buildOne(ctx, g, today)
		},
	)

	results := make([]GroupResult, len(report.Results))
	for i, res := range report.Results {
		results[i] = GroupResult{
			GroupID:  groups[i].ID,
			Name:     groups[i].Name,
			Status:   res.Status,
			Snapshot: res.Value,
			Reason:   res.Reason,
			Err:      res.Err,
		}
	}
	return results
}

func (h *BuildSnapshotsHandler) buildOne(ctx context.Context, g group.Group, today time.Time) (*leaderboard.Snapshot, error) {
	members, err := h.groups.ListMembers(ctx, g.ID)
	if err != nil {
		return nil, batch.Fail(ReasonMembers, fmt.Errorf("build_snapshots: list members: %w", err))
	}
	if len(members) < h.config.MinMembers {
		return nil, batch.Skip(ReasonTooFewMembers)
	}

	entries, err := h.assembler.Leaderboard(ctx, members)
	if err != nil {
		return nil, batch.Fail(ReasonBuild, fmt.Errorf("build_snapshots: %w", err))
	}

	gainers, err := h.assembler.Gainers(ctx, members, leaderboard.TrailingWindow(today, h.config.WindowDays))
	if err != nil {
		return nil, batch.Fail(ReasonBuild, fmt.Errorf("build_snapshots: %w", err))
	}

	// nil gainers means "no history yet", an empty list means "nobody solved anything"
	var active []leaderboard.GainerEntry
	if gainers.HasHistory() {
		active = leaderboard.ActiveGainers(gainers.All)
	}

	snapshot, err := leaderboard.NewSnapshot(g.ID, today, entries, active)
	if err != nil {
		return nil, batch.Fail(ReasonInvalid, err)
	}
	if err := h.store.UpsertSnapshot(ctx, *snapshot); err != nil {
		return nil, batch.Fail(ReasonStore, fmt.Errorf("build_snapshots: upsert snapshot: %w", err))
	}

	if h.snapshotRecorder != nil {
		h.snapshotRecorder.ObserveSnapshot(len(entries), len(active))
	}
	h.logger.Info("snapshot stored",
		logger.GroupID(g.ID.String()),
		logger.Date(today),
		"entries", len(entries),
		"gainers", len(active),
	)
	return snapshot, nil
}
