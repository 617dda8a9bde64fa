package usecase

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode is the machine-readable error returned to API callers.
type ErrorCode string

const (
	ErrorInvalidInput      ErrorCode = "INVALID_INPUT"
	ErrorQueryRejected     ErrorCode = "QUERY_REJECTED"
	ErrorConversationLimit ErrorCode = "CONVERSATION_LIMIT"
	ErrorRateLimited       ErrorCode = "RATE_LIMITED"
	ErrorUpstream          ErrorCode = "UPSTREAM_ERROR"
	ErrorInternal          ErrorCode = "INTERNAL_ERROR"
)

// Error is a classified use-case failure. Reason is a stable snake_case tag for logs.
type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.Err != nil:
		return fmt.Sprintf("usecase: %s/%s: %v", e.Code, e.Reason, e.Err)
	default:
		return fmt.Sprintf("usecase: %s/%s", e.Code, e.Reason)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func fail(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

// AsError extracts a use-case error. Anything else is reported as an internal error.
func AsError(err error) *Error {
	var ucErr *Error
	if errors.As(err, &ucErr) {
		return ucErr
	}
	return fail(ErrorInternal, "unexpected_error", err)
}

// upstreamError classifies an LLM failure: 429 is rate limiting, anything else an upstream error.
func upstreamError(prefix string, err error) *Error {
	var coder interface{ HTTPStatusCode() int }
	if errors.As(err, &coder) && coder.HTTPStatusCode() == http.StatusTooManyRequests {
		return fail(ErrorRateLimited, prefix+"_rate_limited", err)
	}
	return fail(ErrorUpstream, prefix+"_error", err)
}
