// Package profile содержит доменную модель отслеживаемого профиля LeetCode
// и его ежедневных снимков статистики.
// Это ядро бизнес-логики - здесь нет внешних зависимостей.
package profile

import (
	"time"

	"github.com/codeclub/leetboard/internal/domain/shared"
)

// UnrankedSentinel - значение ranking для профиля без глобального рейтинга.
// Любое значение >= UnrankedSentinel трактуется как "без рейтинга".
const UnrankedSentinel = 5_000_000

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE
// ══════════════════════════════════════════════════════════════════════════════

// Profile - отслеживаемый профиль. Username хранится с сохранением регистра.
type Profile struct {
	ID        shared.ProfileID
	Username  shared.Username
	CreatedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// STATS
// ══════════════════════════════════════════════════════════════════════════════

// Stats - статистика профиля в том виде, в котором её отдаёт внешний источник.
type Stats struct {
	TotalSolved   int
	EasySolved    int
	MediumSolved  int
	HardSolved    int
	Ranking       int
	ContestRating float64
}

// IsRanked возвращает true, если ranking ниже UnrankedSentinel.
func (s Stats) IsRanked() bool {
	return s.Ranking < UnrankedSentinel
}

// Validate проверяет, что счётчики неотрицательны.
func (s Stats) Validate() error {
	if s.TotalSolved < 0 || s.EasySolved < 0 || s.MediumSolved < 0 || s.HardSolved < 0 || s.Ranking < 0 {
		return shared.ErrInvalidSample.Wrap(shared.ErrNegativeValue)
	}
	return nil
}

// DefaultStats - значения для участника без единого снимка.
func DefaultStats() Stats {
	return Stats{Ranking: UnrankedSentinel}
}

// ══════════════════════════════════════════════════════════════════════════════
// STAT SAMPLE
// ══════════════════════════════════════════════════════════════════════════════

// StatSample - снимок статистики профиля за календарный день (UTC).
// Для пары (ProfileID, Date) существует не более одного снимка:
// повторная запись за тот же день перезаписывает предыдущую.
type StatSample struct {
	ProfileID shared.ProfileID
	// Date - полночь UTC дня, к которому относится снимок.
	Date time.Time
	Stats
	// RankingPoints - округлённый композитный балл. Nil означает, что балл
	// не был сохранён и должен быть пересчитан при чтении.
	RankingPoints *int
	FetchedAt     time.Time
}

// NewStatSample создаёт снимок за день, которому принадлежит fetchedAt.
func NewStatSample(id shared.ProfileID, stats Stats, points int, fetchedAt time.Time) StatSample {
	return NewStatSampleForDay(id, fetchedAt, stats, points, fetchedAt)
}

// NewStatSampleForDay создаёт снимок за день day (UTC) независимо от
// момента получения. Используется пакетным обновлением: день выбирается
// один раз на весь прогон, даже если он пересекает полночь.
func NewStatSampleForDay(id shared.ProfileID, day time.Time, stats Stats, points int, fetchedAt time.Time) StatSample {
	d := day.UTC()
	return StatSample{
		ProfileID:     id,
		Date:          time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC),
		Stats:         stats,
		RankingPoints: &points,
		FetchedAt:     fetchedAt.UTC(),
	}
}

// Validate проверяет инварианты снимка.
func (s StatSample) Validate() error {
	if s.ProfileID.IsEmpty() {
		return shared.ErrInvalidSample.Wrap(shared.ErrEmptyValue)
	}
	if s.Date.IsZero() {
		return shared.ErrInvalidSample.Wrap(shared.ErrEmptyValue)
	}
	if s.RankingPoints != nil && *s.RankingPoints < 0 {
		return shared.ErrInvalidSample.Wrap(shared.ErrNegativeValue)
	}
	return s.Stats.Validate()
}
