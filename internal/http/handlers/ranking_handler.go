// Ranking HTTP handlers.
//
// This file exposes the read side of the ranking engine and its admin reset:
//   - GET    /products/{id}/score
//   - GET    /rankings/trending   (?scores=true attaches scores)
//   - GET    /rankings/stats
//   - DELETE /rankings            (admin only)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-product-voting/internal/services"
	"github.com/tbourn/go-product-voting/internal/sysutil"
)

// ScoreResponse is the stored trending score of one product.
type ScoreResponse struct {
	ProductID string `json:"product_id" example:"espresso-x1"`
	Score     int32  `json:"score"      example:"12"`
}

// TrendingResponse lists product ids by descending score. Scores is set
// only when requested.
type TrendingResponse struct {
	Products []string                 `json:"products"`
	Scores   []services.ScoredProduct `json:"scores,omitempty"`
}

// ProductScore godoc
// @ID          getProductScore
// @Summary     Read a product's trending score
// @Description Returns the last computed score, or 0 when none was computed.
// @Tags        Rankings
// @Produce     json
// @Param       id   path  string  true  "Product ID"  example(espresso-x1)
// @Success     200  {object}  handlers.ScoreResponse
// @Router      /products/{id}/score [get]
func (h *Handlers) ProductScore(c *gin.Context) {
	id := c.Param("id")
	score, err := h.svc.Rankings.Score(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ScoreResponse{ProductID: id, Score: score})
}

// Trending godoc
// @ID          getTrendingProducts
// @Summary     List trending products
// @Description Up to the configured maximum, by descending score; ties keep ranking insertion order.
// @Tags        Rankings
// @Produce     json
// @Param       scores  query  bool  false  "Attach scores"
// @Success     200  {object}  handlers.TrendingResponse
// @Router      /rankings/trending [get]
func (h *Handlers) Trending(c *gin.Context) {
	ctx := c.Request.Context()

	if sysutil.IsTruthy(c.Query("scores")) {
		scored, err := h.svc.Rankings.TrendingScores(ctx)
		if err != nil {
			failErr(c, err)
			return
		}
		ids := make([]string, len(scored))
		for i, sp := range scored {
			ids[i] = sp.ProductID
		}
		ok(c, http.StatusOK, TrendingResponse{Products: ids, Scores: scored})
		return
	}

	ids, err := h.svc.Rankings.Trending(ctx)
	if err != nil {
		failErr(c, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	ok(c, http.StatusOK, TrendingResponse{Products: ids})
}

// RankingStats godoc
// @ID          getRankingStats
// @Summary     Ranking table statistics
// @Description Count, minimum and maximum score; all zero when the table is empty.
// @Tags        Rankings
// @Produce     json
// @Success     200  {object}  services.RankingStats
// @Router      /rankings/stats [get]
func (h *Handlers) RankingStats(c *gin.Context) {
	st, err := h.svc.Rankings.Stats(c.Request.Context())
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, st)
}

// ResetRankings godoc
// @ID          resetRankings
// @Summary     Clear the ranking table
// @Description Admin only. Votes and history are kept.
// @Tags        Rankings
// @Param       X-User-ID  header  string  false "Caller identity (demo header)"  example(root)
// @Success     204  {string}  string  "No Content"
// @Failure     401  {object}  handlers.ErrorResponse  "Anonymous caller"
// @Failure     403  {object}  handlers.ErrorResponse  "Caller is not the admin"
// @Failure     409  {object}  handlers.ErrorResponse  "Not initialized"
// @Router      /rankings [delete]
func (h *Handlers) ResetRankings(c *gin.Context) {
	if err := h.svc.Rankings.Reset(c.Request.Context(), caller(c)); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}
