package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-product-voting/internal/services"
)

func TestRankings_ScoreTrendingStatsReset(t *testing.T) {
	f := newAPI(t)
	f.initPolicy(5, 30, 24)
	f.matureVoters("v1", "v2", "v3")
	f.createProduct("cold", "maker")
	f.createProduct("hot", "maker")

	// Empty table.
	w := f.do(http.MethodGet, "/rankings/stats", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count":0,"min_score":0,"max_score":0,"products":2}`, w.Body.String())

	w = f.do(http.MethodGet, "/products/hot/score", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"product_id":"hot","score":0}`, w.Body.String())

	cast := func(product, voter, vt string) {
		t.Helper()
		w := f.do(http.MethodPost, "/products/"+product+"/votes", voter, CastVoteRequest{VoteType: vt})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	cast("cold", "v1", "downvote")
	cast("hot", "v1", "upvote")
	cast("hot", "v2", "upvote")
	cast("hot", "v3", "upvote")

	var score ScoreResponse
	w = f.do(http.MethodGet, "/products/hot/score", "", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &score))
	assert.Greater(t, score.Score, int32(0))

	var trending TrendingResponse
	w = f.do(http.MethodGet, "/rankings/trending", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &trending))
	assert.Equal(t, []string{"hot", "cold"}, trending.Products)
	assert.Empty(t, trending.Scores)

	w = f.do(http.MethodGet, "/rankings/trending?scores=true", "", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &trending))
	require.Len(t, trending.Scores, 2)
	assert.Equal(t, "hot", trending.Scores[0].ProductID)
	assert.Equal(t, score.Score, trending.Scores[0].Score)

	var st services.RankingStats
	w = f.do(http.MethodGet, "/rankings/stats", "", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, int64(2), st.Count)
	assert.Equal(t, score.Score, st.Max)
	assert.Less(t, st.Min, st.Max)

	// Reset is admin only.
	w = f.do(http.MethodDelete, "/rankings", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	w = f.do(http.MethodDelete, "/rankings", "v1", nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	w = f.do(http.MethodDelete, "/rankings", "root", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(http.MethodGet, "/rankings/stats", "", nil)
	assert.JSONEq(t, `{"count":0,"min_score":0,"max_score":0,"products":2}`, w.Body.String())
	w = f.do(http.MethodGet, "/rankings/trending", "", nil)
	assert.JSONEq(t, `{"products":[]}`, w.Body.String())
}

func TestResetRankings_NotInitialized(t *testing.T) {
	f := newAPI(t)

	w := f.do(http.MethodDelete, "/rankings", "root", nil)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "not_initialized", decodeError(t, w).Code)
}
