package leetcode

import (
	"strings"

	"github.com/codeclub/leetboard/internal/domain/profile"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAPPER - DTO to domain transformations
// ══════════════════════════════════════════════════════════════════════════════

// StatsFromDTO converts a matched user and its contest ranking to domain stats.
// Missing ranking maps to profile.UnrankedSentinel, missing rating to 0.
func StatsFromDTO(user *MatchedUserDTO, contest *UserContestRankingDTO) profile.Stats {
	stats := profile.Stats{Ranking: profile.UnrankedSentinel}
	if user == nil {
		return stats
	}

	if user.Profile != nil && user.Profile.Ranking != nil && *user.Profile.Ranking > 0 {
		stats.Ranking = *user.Profile.Ranking
	}

	if user.SubmitStatsGlobal != nil {
		for _, c := range user.SubmitStatsGlobal.ACSubmissionNum {
			switch strings.ToLower(c.Difficulty) {
			case "all":
				stats.TotalSolved = c.Count
			case "easy":
				stats.EasySolved = c.Count
			case "medium":
				stats.MediumSolved = c.Count
			case "hard":
				stats.HardSolved = c.Count
			}
		}
	}

	if contest != nil && contest.Rating != nil {
		stats.ContestRating = *contest.Rating
	}

	return stats
}
