package leaderboard

import (
	"context"
	"time"

	"github.com/codeclub/leetboard/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SNAPSHOT STORE
// ══════════════════════════════════════════════════════════════════════════════

// SnapshotStore определяет контракт хранения снапшотов групп.
// Реализации валидируют Payload перед каждой записью.
type SnapshotStore interface {
	// UpsertSnapshot записывает снапшот. Повторная запись за тот же
	// (GroupID, Date) перезаписывает предыдущую: операция идемпотентна.
	UpsertSnapshot(ctx context.Context, snapshot Snapshot) error

	// GetSnapshot возвращает снапшот группы за день или shared.ErrSnapshotNotFound.
	GetSnapshot(ctx context.Context, groupID shared.GroupID, date time.Time) (*Snapshot, error)

	// LatestSnapshot возвращает самый свежий снапшот группы или shared.ErrSnapshotNotFound.
	LatestSnapshot(ctx context.Context, groupID shared.GroupID) (*Snapshot, error)
}

// Cache - кеш построенных лидербордов для чтения.
type Cache interface {
	GetLeaderboard(ctx context.Context, groupID shared.GroupID) ([]Entry, error)
	SetLeaderboard(ctx context.Context, groupID shared.GroupID, entries []Entry) error
	Invalidate(ctx context.Context, groupIDs ...shared.GroupID) error
}
