package leaderboard

import (
	"sort"
	"time"

	"github.com/codeclub/leetboard/internal/domain/profile"
	"github.com/codeclub/leetboard/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD ENTRY
// ══════════════════════════════════════════════════════════════════════════════

// Entry - одна строка лидерборда группы.
type Entry struct {
	// Position - место в рейтинге, начиная с 1.
	Position      int             `json:"position"`
	Username      shared.Username `json:"username"`
	TotalSolved   int             `json:"totalSolved"`
	EasySolved    int             `json:"easySolved"`
	MediumSolved  int             `json:"mediumSolved"`
	HardSolved    int             `json:"hardSolved"`
	Ranking       int             `json:"ranking"`
	ContestRating float64         `json:"contestRating"`
	RankingPoints int             `json:"rankingPoints"`
	// LastUpdated - время получения последнего снимка; nil, если снимков нет.
	LastUpdated *time.Time `json:"lastUpdated"`
}

// IsRanked возвращает true, если у участника есть глобальный рейтинг.
func (e Entry) IsRanked() bool {
	return e.Ranking < UnrankedSentinel
}

// MemberStats - участник группы и его последний снимок (nil, если снимков нет).
type MemberStats struct {
	Username shared.Username
	Latest   *profile.StatSample
}

// ══════════════════════════════════════════════════════════════════════════════
// BUILDER
// ══════════════════════════════════════════════════════════════════════════════

// Build строит лидерборд: по одной записи на участника, отсортированных
// полным порядком (см. Less). Участники без снимков получают значения по
// умолчанию: ranking = UnrankedSentinel, нули, LastUpdated = nil.
// Если в снимке нет сохранённого балла, он пересчитывается.
func Build(members []MemberStats) []Entry {
	entries := make([]Entry, 0, len(members))
	for _, m := range members {
		entries = append(entries, newEntry(m))
	}

	Sort(entries)
	return entries
}

func newEntry(m MemberStats) Entry {
	if m.Latest == nil {
		stats := profile.DefaultStats()
		return Entry{
			Username:      m.Username,
			Ranking:       stats.Ranking,
			RankingPoints: RoundedRankingPoints(stats),
		}
	}

	s := m.Latest
	points := RoundedRankingPoints(s.Stats)
	if s.RankingPoints != nil {
		points = *s.RankingPoints
	}
	fetched := s.FetchedAt
	if fetched.IsZero() {
		fetched = s.Date
	}

	return Entry{
		Username:      m.Username,
		TotalSolved:   s.TotalSolved,
		EasySolved:    s.EasySolved,
		MediumSolved:  s.MediumSolved,
		HardSolved:    s.HardSolved,
		Ranking:       s.Ranking,
		ContestRating: s.ContestRating,
		RankingPoints: points,
		LastUpdated:   &fetched,
	}
}

// Less - полный порядок лидерборда: RankingPoints по убыванию, затем
// Ranking по возрастанию, затем Username по возрастанию (побайтово,
// с учётом регистра).
func Less(a, b Entry) bool {
	if a.RankingPoints != b.RankingPoints {
		return a.RankingPoints > b.RankingPoints
	}
	if a.Ranking != b.Ranking {
		return a.Ranking < b.Ranking
	}
	return a.Username < b.Username
}

// Sort упорядочивает записи и проставляет Position.
func Sort(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return Less(entries[i], entries[j])
	})
	for i := range entries {
		entries[i].Position = i + 1
	}
}
