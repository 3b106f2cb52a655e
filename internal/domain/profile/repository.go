package profile

import (
	"context"
	"time"

	"github.com/codeclub/leetboard/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Эти интерфейсы определяют контракт для работы с хранилищем данных.
// Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository определяет операции над профилями.
type Repository interface {
	// GetByUsername возвращает профиль по username (точное совпадение).
	// Возвращает shared.ErrProfileNotFound, если профиль не отслеживается.
	GetByUsername(ctx context.Context, username shared.Username) (*Profile, error)

	// Ensure возвращает существующий профиль или создаёт новый.
	Ensure(ctx context.Context, username shared.Username) (*Profile, error)

	// ListAll возвращает все отслеживаемые профили.
	ListAll(ctx context.Context) ([]Profile, error)

	// ListStale возвращает профили без снимка за указанный день.
	ListStale(ctx context.Context, day time.Time) ([]Profile, error)

	// DeleteOrphans удаляет профили, не состоящие ни в одной группе.
	// Возвращает количество удалённых профилей.
	DeleteOrphans(ctx context.Context) (int, error)
}

// SampleRepository определяет операции над снимками статистики.
type SampleRepository interface {
	// UpsertSample записывает снимок; повторная запись за тот же
	// (ProfileID, Date) перезаписывает значения.
	UpsertSample(ctx context.Context, sample StatSample) error

	// LatestSamples возвращает самый свежий снимок для каждого профиля.
	// Профили без снимков отсутствуют в результате.
	LatestSamples(ctx context.Context, ids []shared.ProfileID) (map[shared.ProfileID]StatSample, error)

	// SamplesInRange возвращает снимки с Date в [from, to] включительно,
	// упорядоченные по возрастанию даты.
	SamplesInRange(ctx context.Context, ids []shared.ProfileID, from, to time.Time) (map[shared.ProfileID][]StatSample, error)

	// HasSample сообщает, есть ли у профиля снимок за день.
	HasSample(ctx context.Context, id shared.ProfileID, day time.Time) (bool, error)
}
