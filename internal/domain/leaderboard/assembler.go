package leaderboard

import (
	"context"
	"fmt"

	"github.com/codeclub/leetboard/internal/domain/group"
	"github.com/codeclub/leetboard/internal/domain/profile"
	"github.com/codeclub/leetboard/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ASSEMBLER
// Загружает сохранённые снимки участников и собирает из них лидерборд
// и список "прироста". Используется и командами, и запросами.
// ══════════════════════════════════════════════════════════════════════════════

// Assembler собирает представления группы из хранилища снимков.
type Assembler struct {
	samples profile.SampleRepository
}

// NewAssembler создаёт Assembler.
func NewAssembler(samples profile.SampleRepository) *Assembler {
	return &Assembler{samples: samples}
}

// Leaderboard строит лидерборд по последним снимкам участников.
func (a *Assembler) Leaderboard(ctx context.Context, members []group.Member) ([]Entry, error) {
	latest, err := a.samples.LatestSamples(ctx, memberIDs(members))
	if err != nil {
		return nil, fmt.Errorf("load latest samples: %w", err)
	}

	stats := make([]MemberStats, len(members))
	for i, m := range members {
		stats[i] = MemberStats{Username: m.Username}
		if s, ok := latest[m.ProfileID]; ok {
			stats[i].Latest = &s
		}
	}
	return Build(stats), nil
}

// GainersResult - прирост всех участников за окно.
type GainersResult struct {
	Window Window
	// All - по записи на каждого участника в порядке LessGainer.
	All []GainerEntry
	// WithHistory - число участников, у которых в окне не меньше двух снимков.
	WithHistory int
}

// HasHistory сообщает, есть ли хотя бы у одного участника история в окне.
func (r GainersResult) HasHistory() bool {
	return r.WithHistory > 0
}

// Gainers считает прирост каждого участника за окно w.
func (a *Assembler) Gainers(ctx context.Context, members []group.Member, w Window) (*GainersResult, error) {
	series, err := a.samples.SamplesInRange(ctx, memberIDs(members), w.Start, w.End)
	if err != nil {
		return nil, fmt.Errorf("load samples in range: %w", err)
	}

	res := &GainersResult{Window: w, All: make([]GainerEntry, len(members))}
	for i, m := range members {
		samples := series[m.ProfileID]
		if len(samples) >= 2 {
			res.WithHistory++
		}
		res.All[i] = ComputeGainer(m.Username, samples)
	}
	RankGainers(res.All)
	return res, nil
}

func memberIDs(members []group.Member) []shared.ProfileID {
	ids := make([]shared.ProfileID, len(members))
	for i, m := range members {
		ids[i] = m.ProfileID
	}
	return ids
}
