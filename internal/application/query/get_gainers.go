package query

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/codeclub/leetboard/internal/domain/group"
	"github.com/codeclub/leetboard/internal/domain/leaderboard"
	"github.com/codeclub/leetboard/internal/domain/profile"
	"github.com/codeclub/leetboard/internal/domain/shared"
	"github.com/codeclub/leetboard/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET GAINERS QUERY
// "Самые прогрессирующие" участники группы за скользящее окно.
// ══════════════════════════════════════════════════════════════════════════════

const maxWindowDays = 90

// GetGainersQuery содержит параметры запроса.
type GetGainersQuery struct {
	GroupID shared.GroupID

	// View - active (только с приростом) или all.
	View leaderboard.View

	// WindowDays - длина окна в днях (по умолчанию 7).
	WindowDays int
}

// Validate проверяет корректность параметров запроса.
func (q *GetGainersQuery) Validate() error {
	if q.GroupID.IsEmpty() {
		return errors.New("group id is required")
	}
	if q.WindowDays < 0 || q.WindowDays > maxWindowDays {
		return errors.New("window must be between 1 and 90 days")
	}
	if q.WindowDays == 0 {
		q.WindowDays = leaderboard.DefaultWindowDays
	}
	if q.View != leaderboard.ViewAll {
		q.View = leaderboard.ViewActive
	}
	return nil
}

// GetGainersResult содержит результат запроса.
type GetGainersResult struct {
	GroupID     shared.GroupID            `json:"group_id"`
	View        leaderboard.View          `json:"view"`
	WindowStart string                    `json:"window_start"`
	WindowEnd   string                    `json:"window_end"`
	Gainers     []leaderboard.GainerEntry `json:"gainers"`

	// HasHistory - false, если ни у одного участника нет двух снимков в окне.
	HasHistory bool `json:"has_history"`
}

// GetGainersHandler обрабатывает запросы "прироста".
type GetGainersHandler struct {
	groups    group.Repository
	assembler *leaderboard.Assembler
	clock     timeutil.Clock
	logger    *slog.Logger
}

// NewGetGainersHandler создаёт обработчик.
func NewGetGainersHandler(
	groups group.Repository,
	samples profile.SampleRepository,
	clock timeutil.Clock,
	logger *slog.Logger,
) *GetGainersHandler {
	if clock == nil {
		clock = timeutil.SystemClock
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GetGainersHandler{
		groups:    groups,
		assembler: leaderboard.NewAssembler(samples),
		clock:     clock,
		logger:    logger.With("handler", "get_gainers"),
	}
}

// Handle выполняет запрос.
func (h *GetGainersHandler) Handle(ctx context.Context, query GetGainersQuery) (*GetGainersResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetGainers", shared.ErrValidation, err.Error(), err)
	}

	members, err := h.groups.ListMembers(ctx, query.GroupID)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	window := leaderboard.TrailingWindow(h.clock.Now(), query.WindowDays)
	res, err := h.assembler.Gainers(ctx, members, window)
	if err != nil {
		return nil, shared.WrapError("query", "GetGainers", shared.ErrTransient, "failed to compute gainers", err)
	}

	h.logger.Debug("gainers computed",
		"group_id", query.GroupID,
		"members", len(members),
		"with_history", res.WithHistory,
		"duration", time.Since(started),
	)

	return &GetGainersResult{
		GroupID:     query.GroupID,
		View:        query.View,
		WindowStart: timeutil.FormatDate(window.Start),
		WindowEnd:   timeutil.FormatDate(window.End),
		Gainers:     query.View.Apply(res.All),
		HasHistory:  res.HasHistory(),
	}, nil
}
