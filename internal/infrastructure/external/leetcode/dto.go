package leetcode

import "encoding/json"

// ══════════════════════════════════════════════════════════════════════════════
// GRAPHQL REQUEST
// ══════════════════════════════════════════════════════════════════════════════

// profileQuery fetches solved counts, global ranking and contest rating in one round trip.
const profileQuery = `query userProfile($username: String!) {
  matchedUser(username: $username) {
    username
    profile {
      ranking
    }
    submitStatsGlobal {
      acSubmissionNum {
        difficulty
        count
      }
    }
  }
  userContestRanking(username: $username) {
    rating
  }
}`

// GraphQLRequestDTO is the POST body of a GraphQL call.
type GraphQLRequestDTO struct {
	OperationName string         `json:"operationName,omitempty"`
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
}

func newProfileRequest(username string) GraphQLRequestDTO {
	return GraphQLRequestDTO{
		OperationName: "userProfile",
		Query:         profileQuery,
		Variables:     map[string]any{"username": username},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// GRAPHQL RESPONSE
// ══════════════════════════════════════════════════════════════════════════════

// ProfileResponseDTO is the envelope returned for profileQuery.
type ProfileResponseDTO struct {
	Data   *ProfileDataDTO   `json:"data"`
	Errors []GraphQLErrorDTO `json:"errors,omitempty"`
}

// ProfileDataDTO holds the query results. MatchedUser is nil when the
// username does not exist.
type ProfileDataDTO struct {
	MatchedUser        *MatchedUserDTO        `json:"matchedUser"`
	UserContestRanking *UserContestRankingDTO `json:"userContestRanking"`
}

// MatchedUserDTO is the public profile part of the response.
type MatchedUserDTO struct {
	Username          string                `json:"username"`
	Profile           *UserProfileDTO       `json:"profile"`
	SubmitStatsGlobal *SubmitStatsGlobalDTO `json:"submitStatsGlobal"`
}

// UserProfileDTO carries the global ranking. Ranking is null for
// profiles that have never been ranked.
type UserProfileDTO struct {
	Ranking *int `json:"ranking"`
}

// SubmitStatsGlobalDTO groups accepted-submission counters.
type SubmitStatsGlobalDTO struct {
	ACSubmissionNum []DifficultyCountDTO `json:"acSubmissionNum"`
}

// DifficultyCountDTO is a solved counter for one difficulty.
// Difficulty is one of "All", "Easy", "Medium", "Hard".
type DifficultyCountDTO struct {
	Difficulty string `json:"difficulty"`
	Count      int    `json:"count"`
}

// UserContestRankingDTO is null for users who never entered a contest.
type UserContestRankingDTO struct {
	Rating *float64 `json:"rating"`
}

// GraphQLErrorDTO is a single GraphQL error.
type GraphQLErrorDTO struct {
	Message    string          `json:"message"`
	Path       []string        `json:"path,omitempty"`
	Extensions json.RawMessage `json:"extensions,omitempty"`
}

func (e GraphQLErrorDTO) Error() string {
	return e.Message
}
