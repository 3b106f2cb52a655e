// Package query contains read operations following CQRS pattern.
// Queries never modify state - they only read and return data.
// Each query is a self-contained use case with its own request/response types.
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
// GET LEADERBOARD QUERY
// Получает лидерборд группы: текущий (по последним снимкам, через кеш)
// или исторический (из сохранённого снапшота за день).
// ══════════════════════════════════════════════════════════════════════════════

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Source - откуда взят результат.
type Source string

const (
	SourceLive     Source = "live"
	SourceCache    Source = "cache"
	SourceSnapshot Source = "snapshot"
)

// GetLeaderboardQuery содержит параметры запроса лидерборда.
type GetLeaderboardQuery struct {
	GroupID shared.GroupID

	// Date - день снапшота; nil означает текущий лидерборд.
	Date *time.Time

	// Limit - количество записей (по умолчанию 20, максимум 100).
	Limit int

	// Offset - смещение для пагинации.
	Offset int
}

// Validate проверяет корректность параметров запроса.
func (q *GetLeaderboardQuery) Validate() error {
	if q.GroupID.IsEmpty() {
		return errors.New("group id is required")
	}
	if q.Limit < 0 {
		return errors.New("limit cannot be negative")
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	if q.Limit == 0 {
		q.Limit = defaultLimit
	}
	if q.Offset < 0 {
		return errors.New("offset cannot be negative")
	}
	return nil
}

// GetLeaderboardResult содержит результат запроса лидерборда.
type GetLeaderboardResult struct {
	GroupID shared.GroupID `json:"group_id"`

	// Entries - страница лидерборда.
	Entries []leaderboard.Entry `json:"entries"`

	// TotalCount - общее количество участников в лидерборде.
	TotalCount int `json:"total_count"`

	// Date - день снапшота (только для исторических запросов).
	Date string `json:"date,omitempty"`

	Source  Source `json:"source"`
	HasMore bool   `json:"has_more"`
}

// GetLeaderboardHandler обрабатывает запросы на получение лидерборда.
type GetLeaderboardHandler struct {
	groups    group.Repository
	assembler *leaderboard.Assembler
	snapshots leaderboard.SnapshotStore
	cache     leaderboard.Cache
	logger    *slog.Logger
}

// NewGetLeaderboardHandler создаёт новый обработчик. cache может быть nil.
func NewGetLeaderboardHandler(
	groups group.Repository,
	samples profile.SampleRepository,
	snapshots leaderboard.SnapshotStore,
	cache leaderboard.Cache,
	logger *slog.Logger,
) *GetLeaderboardHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GetLeaderboardHandler{
		groups:    groups,
		assembler: leaderboard.NewAssembler(samples),
		snapshots: snapshots,
		cache:     cache,
		logger:    logger.With("handler", "get_leaderboard"),
	}
}

// Handle выполняет запрос на получение лидерборда.
func (h *GetLeaderboardHandler) Handle(ctx context.Context, query GetLeaderboardQuery) (*GetLeaderboardResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetLeaderboard", shared.ErrValidation, err.Error(), err)
	}

	if query.Date != nil {
		return h.fromSnapshot(ctx, query)
	}

	entries, source, err := h.current(ctx, query.GroupID)
	if err != nil {
		return nil, err
	}
	return paginate(query, entries, source), nil
}

// current возвращает текущий лидерборд по схеме cache-aside.
func (h *GetLeaderboardHandler) current(ctx context.Context, groupID shared.GroupID) ([]leaderboard.Entry, Source, error) {
	if h.cache != nil {
		cached, err := h.cache.GetLeaderboard(ctx, groupID)
		if err == nil {
			return cached, SourceCache, nil
		}
		// промах кеша - обычная ситуация, остальное логируем
		h.logger.Debug("leaderboard cache miss", "group_id", groupID, "error", err)
	}

	members, err := h.groups.ListMembers(ctx, groupID)
	if err != nil {
		return nil, "", err
	}
	entries, err := h.assembler.Leaderboard(ctx, members)
	if err != nil {
		return nil, "", shared.WrapError("query", "GetLeaderboard", shared.ErrTransient, "failed to build leaderboard", err)
	}

	if h.cache != nil {
		if err := h.cache.SetLeaderboard(ctx, groupID, entries); err != nil {
			h.logger.Warn("failed to cache leaderboard", "group_id", groupID, "error", err)
		}
	}
	return entries, SourceLive, nil
}

func (h *GetLeaderboardHandler) fromSnapshot(ctx context.Context, query GetLeaderboardQuery) (*GetLeaderboardResult, error) {
	snap, err := h.snapshots.GetSnapshot(ctx, query.GroupID, *query.Date)
	if err != nil {
		return nil, err
	}
	res := paginate(query, snap.Payload.Leaderboard, SourceSnapshot)
	res.Date = timeutil.FormatDate(snap.Date)
	return res, nil
}

func paginate(query GetLeaderboardQuery, entries []leaderboard.Entry, source Source) *GetLeaderboardResult {
	total := len(entries)
	start := min(query.Offset, total)
	end := min(start+query.Limit, total)

	page := make([]leaderboard.Entry, end-start)
	copy(page, entries[start:end])

	return &GetLeaderboardResult{
		GroupID:    query.GroupID,
		Entries:    page,
		TotalCount: total,
		Source:     source,
		HasMore:    end < total,
	}
}
