// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Transport-level codes (bad_request, not_found, ...) cover failures detected
// before a service runs. Business rejections carry the service ErrorCode: its
// snake_case name in `code` and its stable number in `error_code`.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "already_voted",
//	  "error_code": 2,
//	  "message": "vote of this type already cast"
//	}
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-product-voting/internal/repo"
	"github.com/tbourn/go-product-voting/internal/services"
)

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)

// statusFor maps a service error code to its HTTP status.
func statusFor(code services.ErrorCode) int {
	switch code {
	case services.CodeInvalidInput, services.CodeInvalidAdmin:
		return http.StatusBadRequest
	case services.CodeUnauthorized:
		return http.StatusUnauthorized
	case services.CodeAdminOnly, services.CodeAccountTooNew:
		return http.StatusForbidden
	case services.CodeProductNotFound:
		return http.StatusNotFound
	case services.CodeProductExists, services.CodeAlreadyInitialized,
		services.CodeAlreadyVoted, services.CodeNotInitialized:
		return http.StatusConflict
	case services.CodeVotingPeriodEnded, services.CodeReversalWindowExpired:
		return http.StatusUnprocessableEntity
	case services.CodeDailyLimitReached:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// failErr writes the envelope for an error returned by a service.
func failErr(c *gin.Context, err error) {
	var se *services.Error
	if errors.As(err, &se) {
		failCode(c, statusFor(se.Code), se.Code.String(), uint32(se.Code), se.Message)
		return
	}
	if errors.Is(err, repo.ErrConflict) {
		fail(c, http.StatusConflict, ErrCodeConflict, "concurrent update, retry the request")
		return
	}
	_ = c.Error(err)
	fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
}
