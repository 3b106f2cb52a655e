// Package leaderboard содержит доменную модель лидерборда группы:
// расчёт композитного балла, построение рейтинга, расчёт "прироста"
// за скользящее окно и версионированный снапшот для хранения.
// Пакет не имеет внешних зависимостей и не выполняет I/O.
package leaderboard

import (
	"math"

	"github.com/codeclub/leetboard/internal/domain/profile"
)

// UnrankedSentinel - ranking участника без глобального рейтинга.
const UnrankedSentinel = profile.UnrankedSentinel

// Веса композитного балла.
const (
	weightTotal  = 10
	weightEasy   = 1
	weightMedium = 3
	weightHard   = 5
	rankDivisor  = 1000
)

// RankingPoints вычисляет композитный балл:
//
//	max(0, total*10 + easy*1 + medium*3 + hard*5 + max(0, 5_000_000 - ranking)/1000)
//
// Чистая функция: одинаковый вход всегда даёт одинаковый результат.
func RankingPoints(s profile.Stats) float64 {
	solved := float64(s.TotalSolved*weightTotal +
		s.EasySolved*weightEasy +
		s.MediumSolved*weightMedium +
		s.HardSolved*weightHard)

	rankBonus := math.Max(0, float64(UnrankedSentinel-s.Ranking)) / rankDivisor

	return math.Max(0, solved+rankBonus)
}

// RoundedRankingPoints - балл, округлённый до ближайшего целого.
// Именно это значение сохраняется в снимке.
func RoundedRankingPoints(s profile.Stats) int {
	return int(math.Round(RankingPoints(s)))
}
