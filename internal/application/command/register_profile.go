package command

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/codeclub/leetboard/internal/domain/leaderboard"
	"github.com/codeclub/leetboard/internal/domain/profile"
	"github.com/codeclub/leetboard/internal/domain/shared"
	"github.com/codeclub/leetboard/pkg/logger"
	"github.com/codeclub/leetboard/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// REGISTER PROFILE COMMAND
// Manual registration: checks the handle against LeetCode before tracking it.
// ══════════════════════════════════════════════════════════════════════════════

// RegisterProfileCommand contains the data needed to register a profile.
type RegisterProfileCommand struct {
	// Username is the raw handle as entered by the user.
	Username string
}

// Validate validates the command and returns the normalized username.
func (c RegisterProfileCommand) Validate() (shared.Username, error) {
	return shared.NewUsername(c.Username)
}

// RegisterProfileResult contains the result of registration.
type RegisterProfileResult struct {
	Profile profile.Profile
	Sample  profile.StatSample

	// Created is false when the profile was already tracked.
	Created bool
}

// RegisterProfileHandler handles RegisterProfileCommand.
type RegisterProfileHandler struct {
	source   profile.Source
	profiles profile.Repository
	samples  profile.SampleRepository
	clock    timeutil.Clock
	logger   *slog.Logger
}

// NewRegisterProfileHandler creates a new RegisterProfileHandler.
func NewRegisterProfileHandler(
	source profile.Source,
	profiles profile.Repository,
	samples profile.SampleRepository,
	clock timeutil.Clock,
	logger *slog.Logger,
) *RegisterProfileHandler {
	if clock == nil {
		clock = timeutil.SystemClock
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RegisterProfileHandler{
		source:   source,
		profiles: profiles,
		samples:  samples,
		clock:    clock,
		logger:   logger.With("handler", "register_profile"),
	}
}

// Handle validates the format locally, verifies the profile remotely, then
// stores the profile and its first sample. Format errors are returned
// before any network or store call. Returned errors carry a human-readable
// message (see shared.UserMessage).
func (h *RegisterProfileHandler) Handle(ctx context.Context, cmd RegisterProfileCommand) (*RegisterProfileResult, error) {
	username, err := cmd.Validate()
	if err != nil {
		return nil, err
	}

	stats, err := h.source.Validate(ctx, username.String())
	if err != nil {
		return nil, err
	}

	created := false
	if _, err := h.profiles.GetByUsername(ctx, username); err != nil {
		if !shared.IsNotFound(err) {
			return nil, fmt.Errorf("register_profile: lookup: %w", err)
		}
		created = true
	}

	p, err := h.profiles.Ensure(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("register_profile: ensure profile: %w", err)
	}

	sample := profile.NewStatSample(p.ID, *stats, leaderboard.RoundedRankingPoints(*stats), h.clock.Now())
	if err := h.samples.UpsertSample(ctx, sample); err != nil {
		return nil, fmt.Errorf("register_profile: upsert sample: %w", err)
	}

	h.logger.Info("profile registered",
		logger.Username(username.String()),
		logger.ProfileID(p.ID.String()),
		"created", created,
		logger.RankingPoints(*sample.RankingPoints),
	)

	return &RegisterProfileResult{Profile: *p, Sample: sample, Created: created}, nil
}
