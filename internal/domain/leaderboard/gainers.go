package leaderboard

import (
	"sort"
	"time"

	"github.com/codeclub/leetboard/internal/domain/profile"
	"github.com/codeclub/leetboard/internal/domain/shared"
)

// DefaultWindowDays - длина окна "прироста" по умолчанию.
const DefaultWindowDays = 7

// ══════════════════════════════════════════════════════════════════════════════
// WINDOW
// ══════════════════════════════════════════════════════════════════════════════

// Window - окно [Start, End] по датам снимков, обе границы включительно.
type Window struct {
	Start time.Time
	End   time.Time
}

// TrailingWindow возвращает окно из days дней, заканчивающееся днём end (UTC).
func TrailingWindow(end time.Time, days int) Window {
	if days <= 0 {
		days = DefaultWindowDays
	}
	u := end.UTC()
	day := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return Window{
		Start: day.AddDate(0, 0, -days),
		End:   day,
	}
}

// Contains проверяет, попадает ли t в окно.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// ══════════════════════════════════════════════════════════════════════════════
// GAINER ENTRY
// ══════════════════════════════════════════════════════════════════════════════

// GainerEntry - прирост участника за окно.
type GainerEntry struct {
	Username shared.Username `json:"username"`
	// ProblemsGained - прирост решённых задач, не меньше нуля.
	ProblemsGained int `json:"problemsGained"`
	// RankImproved - на сколько улучшился глобальный рейтинг
	// (положительное - улучшение). 0, если любой из концов без рейтинга.
	RankImproved  int `json:"rankImproved"`
	CurrentSolved int `json:"currentSolved"`
	CurrentRank   int `json:"currentRank"`
}

// IsActive возвращает true, если участник решил хотя бы одну задачу за окно.
func (g GainerEntry) IsActive() bool {
	return g.ProblemsGained > 0
}

// ComputeGainer сравнивает самый старый и самый новый снимки окна.
// Снимки могут быть в любом порядке.
//   - 0 снимков: нулевые приросты, CurrentRank = UnrankedSentinel;
//   - 1 снимок: нулевые приросты, текущие значения из этого снимка.
func ComputeGainer(username shared.Username, samples []profile.StatSample) GainerEntry {
	g := GainerEntry{Username: username, CurrentRank: UnrankedSentinel}
	if len(samples) == 0 {
		return g
	}

	oldest, newest := samples[0], samples[0]
	for _, s := range samples[1:] {
		if s.Date.Before(oldest.Date) {
			oldest = s
		}
		if !s.Date.Before(newest.Date) {
			newest = s
		}
	}

	g.CurrentSolved = newest.TotalSolved
	g.CurrentRank = newest.Ranking
	if len(samples) == 1 {
		return g
	}

	g.ProblemsGained = max(0, newest.TotalSolved-oldest.TotalSolved)
	if oldest.IsRanked() && newest.IsRanked() {
		g.RankImproved = oldest.Ranking - newest.Ranking
	}
	return g
}

// LessGainer - порядок "прироста": ProblemsGained по убыванию, затем
// RankImproved по убыванию, затем Username по возрастанию.
func LessGainer(a, b GainerEntry) bool {
	if a.ProblemsGained != b.ProblemsGained {
		return a.ProblemsGained > b.ProblemsGained
	}
	if a.RankImproved != b.RankImproved {
		return a.RankImproved > b.RankImproved
	}
	return a.Username < b.Username
}

// RankGainers сортирует записи на месте и возвращает их же.
func RankGainers(entries []GainerEntry) []GainerEntry {
	sort.SliceStable(entries, func(i, j int) bool {
		return LessGainer(entries[i], entries[j])
	})
	return entries
}

// ActiveGainers - только участники с ProblemsGained > 0, в порядке LessGainer.
func ActiveGainers(entries []GainerEntry) []GainerEntry {
	out := make([]GainerEntry, 0, len(entries))
	for _, e := range entries {
		if e.IsActive() {
			out = append(out, e)
		}
	}
	return RankGainers(out)
}

// View - представление списка "прироста".
type View string

const (
	ViewActive View = "active"
	ViewAll    View = "all"
)

// ParseView разбирает представление; неизвестные значения - ViewActive.
func ParseView(s string) View {
	if View(s) == ViewAll {
		return ViewAll
	}
	return ViewActive
}

// Apply возвращает список для представления.
func (v View) Apply(entries []GainerEntry) []GainerEntry {
	if v == ViewAll {
		out := append([]GainerEntry(nil), entries...)
		return RankGainers(out)
	}
	return ActiveGainers(entries)
}
