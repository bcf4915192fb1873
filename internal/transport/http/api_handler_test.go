package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizcraze/internal/app"
	"quizcraze/internal/domain"
)

func doJSON(t *testing.T, method, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func TestAPISubmitAndReadStats(t *testing.T) {
	ts := newTestServer(t)
	base := ts.server.URL + "/api/users/u1/stats"

	resp, body := doJSON(t, http.MethodPost, base, map[string]any{
		"quizId":  "quiz-1",
		"answers": []map[string]any{{"questionId": "q1", "answers": []string{"3"}}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var sub app.Submission
	require.NoError(t, json.Unmarshal(body, &sub))
	assert.Equal(t, 0, sub.Stats.Score)
	assert.Equal(t, domain.StatsCreated, sub.Status)

	resp, body = doJSON(t, http.MethodPost, base, map[string]any{
		"quizId":  "quiz-1",
		"answers": []map[string]any{{"questionId": "q1", "answers": []string{"4"}}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &sub))
	assert.Equal(t, domain.StatsImproved, sub.Status)
	assert.Equal(t, 150, sub.Stats.Score)

	resp, body = doJSON(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var report app.UserStatsReport
	require.NoError(t, json.Unmarshal(body, &report))
	require.Len(t, report.Stats, 1)
	assert.Equal(t, 1, report.Summary.TotalCorrectAnswers)
	assert.InDelta(t, 150, report.Summary.AverageScore, 1e-9)

	resp, body = doJSON(t, http.MethodGet, ts.server.URL+"/api/users/u1/achievements", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(body))
}

func TestAPISubmitErrors(t *testing.T) {
	ts := newTestServer(t)

	cases := []struct {
		name   string
		url    string
		body   any
		status int
	}{
		{"unknown user", "/api/users/ghost/stats", map[string]any{"quizId": "quiz-1", "answers": []any{}}, http.StatusNotFound},
		{"unknown quiz", "/api/users/u1/stats", map[string]any{"quizId": "nope", "answers": []any{}}, http.StatusNotFound},
		{"missing quiz id", "/api/users/u1/stats", map[string]any{"answers": []any{}}, http.StatusBadRequest},
		{"wrong answer count", "/api/users/u1/stats", map[string]any{"quizId": "quiz-1", "answers": []any{}}, http.StatusBadRequest},
		{"bad body", "/api/users/u1/stats", "not an object", http.StatusBadRequest},
		{"quiz without correct answers", "/api/users/u1/stats", map[string]any{"quizId": "broken", "answers": []map[string]any{{"questionId": "m1", "answers": []string{}}}}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, _ := doJSON(t, http.MethodPost, ts.server.URL+tc.url, tc.body)
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}

	resp, _ := doJSON(t, http.MethodGet, ts.server.URL+"/api/users/ghost/stats", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIRanking(t *testing.T) {
	ts := newTestServer(t)
	doJSON(t, http.MethodPost, ts.server.URL+"/api/users/u2/stats", map[string]any{
		"quizId":  "quiz-1",
		"answers": []map[string]any{{"questionId": "q1", "answers": []string{"4"}}},
	})

	resp, body := doJSON(t, http.MethodGet, ts.server.URL+"/api/ranking/10", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var global rankingResponse
	require.NoError(t, json.Unmarshal(body, &global))
	assert.False(t, global.Stale)
	require.Len(t, global.Entries, 2)
	assert.Equal(t, "u2", global.Entries[0].UserID)
	assert.Equal(t, 1, global.Entries[0].Rank)
	assert.Equal(t, "Alice", global.Entries[1].Nickname)

	resp, body = doJSON(t, http.MethodGet, ts.server.URL+"/api/ranking/quiz-1/1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var scoped rankingResponse
	require.NoError(t, json.Unmarshal(body, &scoped))
	require.Len(t, scoped.Entries, 1)
	assert.Equal(t, "u2", scoped.Entries[0].UserID)

	resp, _ = doJSON(t, http.MethodGet, ts.server.URL+"/api/ranking/abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = doJSON(t, http.MethodGet, ts.server.URL+"/api/ranking/0", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

type staleRankings struct{}

func (staleRankings) GetRanking(context.Context, string, int) ([]domain.RankingEntry, error) {
	return []domain.RankingEntry{{UserID: "u1", Rank: 1}}, fmt.Errorf("%w: db down", domain.ErrStaleRankingRead)
}

type failingStats struct{ StatsAPI }

func (failingStats) Submit(context.Context, string, string, []domain.SubmittedAnswer) (app.Submission, error) {
	return app.Submission{}, fmt.Errorf("%w: connection refused", domain.ErrSubmissionFailed)
}

func TestAPIStaleRankingAndSubmissionFailure(t *testing.T) {
	api := NewAPIHandler(staleRankings{}, failingStats{})
	server := httptest.NewServer(api.Routes())
	defer server.Close()

	resp, body := doJSON(t, http.MethodGet, server.URL+"/ranking/5", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got rankingResponse
	require.NoError(t, json.Unmarshal(body, &got))
	assert.True(t, got.Stale)
	assert.Len(t, got.Entries, 1)

	resp, _ = doJSON(t, http.MethodPost, server.URL+"/users/u1/stats", map[string]any{"quizId": "quiz-1"})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	resp, body := doJSON(t, http.MethodGet, ts.server.URL+"/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
	assert.NotEmpty(t, resp.Header.Get("Content-Type"))
}
