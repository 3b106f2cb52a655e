package leetcode

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeclub/leetboard/internal/domain/profile"
	"github.com/codeclub/leetboard/internal/domain/shared"
	"github.com/codeclub/leetboard/pkg/logger"
)

const foundBody = `{
  "data": {
    "matchedUser": {
      "username": "Alice_42",
      "profile": {"ranking": 100000},
      "submitStatsGlobal": {
        "acSubmissionNum": [
          {"difficulty": "All", "count": 100},
          {"difficulty": "Easy", "count": 40},
          {"difficulty": "Medium", "count": 40},
          {"difficulty": "Hard", "count": 20}
        ]
      }
    },
    "userContestRanking": {"rating": 1650.5}
  }
}`

// notFoundBody is what LeetCode returns for an unknown username: a
// top-level error next to a data object whose matchedUser is null.
const notFoundBody = `{
  "errors": [
    {
      "message": "That user does not exist.",
      "locations": [{"line": 2, "column": 3}],
      "path": ["matchedUser"],
      "extensions": {"handled": true}
    }
  ],
  "data": {"matchedUser": null, "userContestRanking": null}
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(ClientConfig{
		Endpoint:            srv.URL,
		Timeout:             200 * time.Millisecond,
		ValidateMaxRetries:  2,
		ValidateBackoffStep: time.Millisecond,
		Logger:              logger.Discard(),
	})
}

func TestFetch_Found(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var req GraphQLRequestDTO
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Alice_42", req.Variables["username"])
		assert.Contains(t, req.Query, "matchedUser")
		_, _ = w.Write([]byte(foundBody))
	})

	res := client.Fetch(context.Background(), "Alice_42")

	require.Equal(t, profile.OutcomeFound, res.Outcome)
	assert.Equal(t, profile.Stats{
		TotalSolved:   100,
		EasySolved:    40,
		MediumSolved:  40,
		HardSolved:    20,
		Ranking:       100000,
		ContestRating: 1650.5,
	}, res.Stats)
	assert.Equal(t, profile.ReasonNone, res.Reason)
	assert.NoError(t, res.Err)
}

func TestFetch_NotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(notFoundBody))
	})

	res := client.Fetch(context.Background(), "ghost")
	assert.Equal(t, profile.OutcomeNotFound, res.Outcome)
	assert.Equal(t, profile.ReasonNone, res.Reason)
	assert.NoError(t, res.Err)
}

func TestFetch_ErrorsWithoutDataIsDecodeFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errors": [{"message": "That user does not exist.", "path": ["matchedUser"]}], "data": null}`))
	})

	res := client.Fetch(context.Background(), "ghost")
	assert.Equal(t, profile.OutcomeFailed, res.Outcome)
	assert.Equal(t, profile.ReasonDecode, res.Reason)
	assert.ErrorIs(t, res.Err, shared.ErrLeetCodeInvalidResponse)
}

func TestFetch_Timeout(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	started := time.Now()
	res := client.Fetch(context.Background(), "slowpoke")

	assert.Equal(t, profile.OutcomeFailed, res.Outcome)
	assert.Equal(t, profile.ReasonTimeout, res.Reason)
	assert.True(t, errors.Is(res.Err, shared.ErrTimeout))
	assert.Less(t, time.Since(started), time.Second)
}

func TestFetch_FailureReasons(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   profile.FailureReason
	}{
		{name: "server error", status: http.StatusBadGateway, want: profile.ReasonServerError},
		{name: "rate limited", status: http.StatusTooManyRequests, want: profile.ReasonRateLimited},
		{name: "client error", status: http.StatusForbidden, want: profile.ReasonHTTPStatus},
		{name: "malformed json", status: http.StatusOK, body: "<html>", want: profile.ReasonDecode},
		{name: "missing data", status: http.StatusOK, body: `{"errors":[{"message":"boom"}]}`, want: profile.ReasonDecode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			res := client.Fetch(context.Background(), "someone")
			assert.Equal(t, profile.OutcomeFailed, res.Outcome)
			assert.Equal(t, tt.want, res.Reason)
			assert.Error(t, res.Err)
			assert.EqualValues(t, 1, calls, "fetch never retries")
		})
	}
}

func TestFetch_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := srv.URL
	srv.Close()

	client := NewClient(ClientConfig{Endpoint: endpoint, Timeout: time.Second, Logger: logger.Discard()})
	res := client.Fetch(context.Background(), "someone")

	assert.Equal(t, profile.OutcomeFailed, res.Outcome)
	assert.Equal(t, profile.ReasonNetwork, res.Reason)
}

type fetchRecorder struct{ outcomes []profile.Outcome }

func (r *fetchRecorder) ObserveFetch(o profile.Outcome, _ profile.FailureReason, _ time.Duration) {
	r.outcomes = append(r.outcomes, o)
}

func TestFetch_RecordsOutcome(t *testing.T) {
	rec := &fetchRecorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(notFoundBody))
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{Endpoint: srv.URL, Recorder: rec, Logger: logger.Discard()})
	client.Fetch(context.Background(), "ghost")

	assert.Equal(t, []profile.Outcome{profile.OutcomeNotFound}, rec.outcomes)
}

func TestValidate_RetriesServerErrors(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(foundBody))
	})

	stats, err := client.Validate(context.Background(), "Alice_42")

	require.NoError(t, err)
	assert.Equal(t, 100, stats.TotalSolved)
	assert.EqualValues(t, 3, calls)
}

func TestValidate_GivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.Validate(context.Background(), "Alice_42")

	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrProfileVerificationFailed))
	assert.True(t, shared.IsTransient(err))
	assert.EqualValues(t, 3, calls)
}

func TestValidate_DoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	})

	_, err := client.Validate(context.Background(), "Alice_42")

	assert.True(t, errors.Is(err, shared.ErrProfileVerificationFailed))
	assert.EqualValues(t, 1, calls)
}

func TestValidate_NotFound(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(notFoundBody))
	})

	_, err := client.Validate(context.Background(), "ghost")

	require.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
	assert.Equal(t, shared.ErrProfileNotFound.Message, shared.UserMessage(err))
	assert.EqualValues(t, 1, calls)
}

func TestStatsFromDTO_Defaults(t *testing.T) {
	stats := StatsFromDTO(&MatchedUserDTO{Username: "new"}, nil)
	assert.Equal(t, profile.UnrankedSentinel, stats.Ranking)
	assert.Zero(t, stats.ContestRating)
	assert.Zero(t, stats.TotalSolved)

	var resp ProfileResponseDTO
	require.NoError(t, json.Unmarshal([]byte(`{"data":{"matchedUser":{"username":"x","profile":{"ranking":null}},"userContestRanking":null}}`), &resp))
	stats = StatsFromDTO(resp.Data.MatchedUser, resp.Data.UserContestRanking)
	assert.Equal(t, profile.UnrankedSentinel, stats.Ranking)
}
