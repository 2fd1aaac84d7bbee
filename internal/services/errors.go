// Package services defines the business logic of the voting engine: admin
// policy, the product catalog, the per-identity vote limiter, the vote
// ledger and the ranking engine.
//
// This file centralizes the closed error taxonomy returned by service
// methods. Every rejection is an *Error carrying one ErrorCode; translation
// into HTTP status codes happens in the handler layer.
package services

import (
	"errors"
	"fmt"
)

// ErrorCode enumerates every business rejection the engine can produce.
// The numeric values are stable and exposed to clients.
type ErrorCode uint32

const (
	CodeVotingPeriodEnded ErrorCode = iota + 1
	CodeAlreadyVoted
	CodeReversalWindowExpired
	CodeDailyLimitReached
	CodeAccountTooNew
	CodeProductNotFound
	CodeProductExists
	CodeInvalidInput
	CodeUnauthorized
	CodeNotInitialized
	CodeAdminOnly
	CodeInvalidAdmin
	CodeAlreadyInitialized
)

// String returns the snake_case name used in API responses and metrics.
func (c ErrorCode) String() string {
	switch c {
	case CodeVotingPeriodEnded:
		return "voting_period_ended"
	case CodeAlreadyVoted:
		return "already_voted"
	case CodeReversalWindowExpired:
		return "reversal_window_expired"
	case CodeDailyLimitReached:
		return "daily_limit_reached"
	case CodeAccountTooNew:
		return "account_too_new"
	case CodeProductNotFound:
		return "product_not_found"
	case CodeProductExists:
		return "product_exists"
	case CodeInvalidInput:
		return "invalid_input"
	case CodeUnauthorized:
		return "unauthorized"
	case CodeNotInitialized:
		return "not_initialized"
	case CodeAdminOnly:
		return "admin_only"
	case CodeInvalidAdmin:
		return "invalid_admin"
	case CodeAlreadyInitialized:
		return "already_initialized"
	default:
		return fmt.Sprintf("error_code(%d)", uint32(c))
	}
}

// Error is a typed business rejection. Two errors match under errors.Is when
// their codes are equal, regardless of message.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Code.String()
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// CodeOf extracts the ErrorCode of err, if it is (or wraps) an *Error.
func CodeOf(err error) (ErrorCode, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return 0, false
}

// Sentinel errors, one per code.
var (
	ErrVotingPeriodEnded     = &Error{CodeVotingPeriodEnded, "voting period has ended"}
	ErrAlreadyVoted          = &Error{CodeAlreadyVoted, "vote of this type already cast"}
	ErrReversalWindowExpired = &Error{CodeReversalWindowExpired, "reversal window has expired"}
	ErrDailyLimitReached     = &Error{CodeDailyLimitReached, "daily vote limit reached"}
	ErrAccountTooNew         = &Error{CodeAccountTooNew, "account too new to vote"}
	ErrProductNotFound       = &Error{CodeProductNotFound, "product not found"}
	ErrProductExists         = &Error{CodeProductExists, "product already exists"}
	ErrInvalidInput          = &Error{CodeInvalidInput, "invalid input"}
	ErrUnauthorized          = &Error{CodeUnauthorized, "unauthorized"}
	ErrNotInitialized        = &Error{CodeNotInitialized, "admin config not initialized"}
	ErrAdminOnly             = &Error{CodeAdminOnly, "admin only"}
	ErrInvalidAdmin          = &Error{CodeInvalidAdmin, "invalid admin"}
	ErrAlreadyInitialized    = &Error{CodeAlreadyInitialized, "admin config already initialized"}

	// ErrProductQuotaReached is the per-creator product quota rejection. It
	// shares CodeDailyLimitReached with the vote cap.
	ErrProductQuotaReached = &Error{CodeDailyLimitReached, "product quota reached"}
)

// invalidInput returns an InvalidInput error with a specific message.
func invalidInput(msg string) error {
	return &Error{Code: CodeInvalidInput, Message: msg}
}
