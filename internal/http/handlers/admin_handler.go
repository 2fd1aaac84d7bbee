// Admin and account HTTP handlers.
//
// This file exposes:
//   - POST /admin/init    (one-time policy initialization)
//   - GET  /admin/config  (read the policy)
//   - POST /accounts      (register the caller with the account-age oracle)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-product-voting/internal/domain"
)

// InitAdminRequest is the JSON payload for initializing the admin policy.
// The caller must be the identity named in Admin.
type InitAdminRequest struct {
	Admin               string `json:"admin"                 example:"root"`
	MaxProductsPerUser  uint32 `json:"max_products_per_user" example:"10"`
	VotingPeriodDays    uint32 `json:"voting_period_days"    example:"30"`
	ReversalWindowHours uint32 `json:"reversal_window_hours" example:"24"`
}

// InitAdmin godoc
// @ID          initAdmin
// @Summary     Initialize the admin policy
// @Description Creates the singleton admin policy. Succeeds at most once.
// @Tags        Admin
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "Caller identity (demo header)"  example(root)
// @Param       body       body    handlers.InitAdminRequest  true  "Policy"
//
// @Success     201  {object}  domain.AdminConfig
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid admin"
// @Failure     401  {object}  handlers.ErrorResponse  "Caller is not the named admin"
// @Failure     409  {object}  handlers.ErrorResponse  "Already initialized"
// @Router      /admin/init [post]
func (h *Handlers) InitAdmin(c *gin.Context) {
	var req InitAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	cfg, err := h.svc.Admin.Init(c.Request.Context(), domain.Identity(req.Admin),
		req.MaxProductsPerUser, req.VotingPeriodDays, req.ReversalWindowHours)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, cfg)
}

// GetAdminConfig godoc
// @ID          getAdminConfig
// @Summary     Read the admin policy
// @Tags        Admin
// @Produce     json
// @Success     200  {object}  domain.AdminConfig
// @Failure     409  {object}  handlers.ErrorResponse  "Not initialized"
// @Router      /admin/config [get]
func (h *Handlers) GetAdminConfig(c *gin.Context) {
	cfg, err := h.svc.Admin.Config(c.Request.Context())
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, cfg)
}

// RegisterAccount godoc
// @ID          registerAccount
// @Summary     Register the caller account
// @Description Records when the caller was first seen. Repeated calls keep the original time.
// @Tags        Accounts
// @Produce     json
// @Param       X-User-ID  header  string  false "Caller identity (demo header)"  example(alice)
// @Success     200  {object}  domain.Account
// @Failure     401  {object}  handlers.ErrorResponse  "Anonymous caller"
// @Router      /accounts [post]
func (h *Handlers) RegisterAccount(c *gin.Context) {
	acct, err := h.svc.Accounts.Register(c.Request.Context(), caller(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, acct)
}
