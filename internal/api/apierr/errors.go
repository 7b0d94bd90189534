package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/convoy/internal/model"
	"github.com/mcoot/convoy/internal/services/auth"
)

// APIError represents an API error response
type APIError struct {
	Code    string     `json:"code"`
	Kind    model.Kind `json:"kind"`
	Message string     `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeUsernameExists     = "USERNAME_EXISTS"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodePartyNotFound      = "PARTY_NOT_FOUND"
	CodePartyInactive      = "PARTY_INACTIVE"
	CodePartyFull          = "PARTY_FULL"
	CodeAlreadyMember      = "ALREADY_MEMBER"
	CodeNotMember          = "NOT_MEMBER"
	CodeHostCannotLeave    = "HOST_CANNOT_LEAVE"
	CodeNotHost            = "NOT_HOST"
	CodeInvalidInviteCode  = "INVALID_INVITE_CODE"
	CodeInvalidTransition  = "INVALID_TRANSITION"
	CodeRateLimited        = "RATE_LIMITED"
	CodeInternalError      = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// StatusForKind maps an error kind to its HTTP status
func StatusForKind(kind model.Kind) int {
	switch kind {
	case model.KindUnauthenticated:
		return http.StatusUnauthorized
	case model.KindInvalidArgument:
		return http.StatusBadRequest
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindPermissionDenied:
		return http.StatusForbidden
	case model.KindFailedPrecondition, model.KindResourceExhausted, model.KindAlreadyExists:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	// Check for specific error types
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	kind := model.KindOf(err)
	if kind == model.KindInternal {
		return internalError()
	}

	var de *model.Error
	message := err.Error()
	if errors.As(err, &de) {
		message = de.Error()
	}
	return &httpError{StatusForKind(kind), APIError{codeFor(err, kind), kind, message}}
}

// codeFor picks a stable machine-readable code for err
func codeFor(err error, kind model.Kind) string {
	switch {
	case errors.Is(err, model.ErrPartyNotFound):
		return CodePartyNotFound
	case errors.Is(err, model.ErrUserNotFound):
		return CodeUserNotFound
	case errors.Is(err, model.ErrPartyInactive):
		return CodePartyInactive
	case errors.Is(err, model.ErrPartyFull):
		return CodePartyFull
	case errors.Is(err, model.ErrAlreadyMember):
		return CodeAlreadyMember
	case errors.Is(err, model.ErrNotMember), errors.Is(err, model.ErrMembershipRequired):
		return CodeNotMember
	case errors.Is(err, model.ErrHostCannotLeave):
		return CodeHostCannotLeave
	case errors.Is(err, model.ErrNotHost):
		return CodeNotHost
	case errors.Is(err, model.ErrInvalidInviteCode):
		return CodeInvalidInviteCode
	case errors.Is(err, model.ErrInvalidTransition):
		return CodeInvalidTransition
	case errors.Is(err, model.ErrUsernameTaken):
		return CodeUsernameExists

	// Map auth errors
	case errors.Is(err, auth.ErrInvalidCredentials):
		return CodeInvalidCredentials
	}

	switch kind {
	case model.KindUnauthenticated:
		return CodeUnauthorized
	case model.KindInvalidArgument:
		return CodeInvalidRequest
	default:
		return string(kind)
	}
}

func internalError() *httpError {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, model.KindInternal, "Internal server error"}}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, model.KindInvalidArgument, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, model.KindUnauthenticated, "Authentication required"}}
}

// NewRateLimitedError creates a too many requests error
func NewRateLimitedError() error {
	return &httpError{http.StatusTooManyRequests, APIError{CodeRateLimited, model.KindResourceExhausted, "Too many requests"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return internalError()
}
