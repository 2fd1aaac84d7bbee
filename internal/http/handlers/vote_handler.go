// Vote HTTP handlers.
//
// This file exposes REST endpoints for votes:
//   - POST /products/{id}/votes          (cast or change the caller's vote)
//   - GET  /products/{id}/votes/history  (paginated audit trail, ETag support)
//
// Idempotency:
// If the client supplies an Idempotency-Key header and the same caller
// already completed the same vote with that key for the product, the handler
// answers 204 with `Idempotency-Replayed: true` without casting again. The
// same key with a different vote type is rejected with 422
// idempotency_key_reused by the middleware.
package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/tbourn/go-product-voting/internal/domain"
	"github.com/tbourn/go-product-voting/internal/http/middleware"
	"github.com/tbourn/go-product-voting/internal/utils"
)

// CastVoteRequest is the JSON payload for voting on a product.
type CastVoteRequest struct {
	// VoteType is "upvote" or "downvote".
	VoteType string `json:"vote_type" binding:"required" example:"upvote"`
}

// HeaderVotesRemaining tells the voter how many votes the rate window still
// allows after a successful cast.
const HeaderVotesRemaining = "X-Votes-Remaining"

// outcomeReplayed marks a vote submission answered from a stored receipt.
const outcomeReplayed = "replayed"

// bindVote binds and validates the vote body. The raw body is cached on the
// context so it can be bound more than once per request.
func bindVote(c *gin.Context) (domain.VoteType, error) {
	var req CastVoteRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		return 0, err
	}
	return domain.ParseVoteType(req.VoteType)
}

// VoteFingerprint identifies a vote submission by its canonical vote type,
// so "up" and "upvote" retried under one key count as the same request.
func VoteFingerprint(c *gin.Context) (string, error) {
	vt, err := bindVote(c)
	if err != nil {
		return "", err
	}
	return vt.String(), nil
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// VoteHistoryResponse contains a page of history entries.
type VoteHistoryResponse struct {
	History    []domain.VoteHistoryEntry `json:"history"`
	Pagination Pagination                `json:"pagination"`
}

// CastVote godoc
// @ID          castVote
// @Summary     Cast a vote
// @Description Records the caller's vote on a product and refreshes its trending score.
// @Description Supports idempotency via the Idempotency-Key header (same key → no second vote).
// @Tags        Votes
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "Caller identity (demo header)"  example(alice)
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       id               path    string  true  "Product ID"  example(espresso-x1)
// @Param       body             body    handlers.CastVoteRequest  true  "Vote"
//
// @Success     200  {object}  domain.VoteHistoryEntry  "Appended history entry"
// @Header      200  {integer}  X-Votes-Remaining  "Votes left in the rate window"
// @Success     204  {string}  string  "Replayed submission"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Anonymous caller"
// @Failure     403  {object}  handlers.ErrorResponse  "Account too new"
// @Failure     404  {object}  handlers.ErrorResponse  "Product not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Already voted"
// @Failure     422  {object}  handlers.ErrorResponse  "Voting closed, reversal window expired, or Idempotency-Key reused"
// @Failure     429  {object}  handlers.ErrorResponse  "Daily vote limit reached"
// @Router      /products/{id}/votes [post]
func (h *Handlers) CastVote(c *gin.Context) {
	if middleware.IsReplay(c) {
		middleware.SetOutcome(c, outcomeReplayed)
		c.Header(middleware.HeaderIdempotencyReplayed, "true")
		noContent(c)
		return
	}

	vt, err := bindVote(c)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "vote_type must be upvote or downvote")
		return
	}

	ctx := c.Request.Context()
	productID := c.Param("id")
	voter := caller(c)

	entry, err := h.svc.Voting.CastVote(ctx, productID, vt, voter)
	if err != nil {
		failErr(c, err)
		return
	}

	middleware.SetOutcome(c, entry.Action.String())

	if key, has := middleware.GetIdempotencyKey(c); has && h.svc.Receipts != nil {
		if err := h.svc.Receipts.Remember(ctx, string(voter), productID, key, vt.String(), http.StatusOK); err != nil {
			lg := middleware.LoggerFrom(c)
			lg.Warn().Err(err).Msg("store idempotency receipt")
		}
	}
	if left, err := h.svc.Voting.RemainingVotes(ctx, voter); err == nil {
		c.Header(HeaderVotesRemaining, strconv.Itoa(left))
	}

	ok(c, http.StatusOK, entry)
}

// VoteHistory godoc
// @ID          getVoteHistory
// @Summary     List the vote history of a product
// @Description Returns the append-only audit trail in order. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Votes
// @Produce     json
//
// @Param       id             path    string  true  "Product ID"  example(espresso-x1)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       page           query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.VoteHistoryResponse
// @Header      200  {string}  ETag  "Weak ETag for the current trail"
// @Success     304  {string}  string  "Not Modified"
// @Failure     404  {object}  handlers.ErrorResponse  "Product not found"
// @Router      /products/{id}/votes/history [get]
func (h *Handlers) VoteHistory(c *gin.Context) {
	ctx := c.Request.Context()
	productID := c.Param("id")

	// ETag pre-check (best effort).
	if count, lastSeq, err := h.svc.History.HistoryVersion(ctx, productID); err == nil && count > 0 {
		etag := fmt.Sprintf(`W/"history:%s:%d:%d"`, productID, count, lastSeq)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	page, pageSize := utils.ParsePage(c.Query("page"), c.Query("page_size"))

	items, total, err := h.svc.History.History(ctx, productID, page, pageSize)
	if err != nil {
		failErr(c, err)
		return
	}

	totalPages := utils.TotalPages(total, pageSize)
	ok(c, http.StatusOK, VoteHistoryResponse{
		History: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}
