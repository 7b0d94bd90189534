package model

import "errors"

// Kind classifies an error into a stable, transport-independent category
type Kind string

const (
	KindUnauthenticated    Kind = "UNAUTHENTICATED"
	KindInvalidArgument    Kind = "INVALID_ARGUMENT"
	KindNotFound           Kind = "NOT_FOUND"
	KindPermissionDenied   Kind = "PERMISSION_DENIED"
	KindFailedPrecondition Kind = "FAILED_PRECONDITION"
	KindResourceExhausted  Kind = "RESOURCE_EXHAUSTED"
	KindAlreadyExists      Kind = "ALREADY_EXISTS"
	KindInternal           Kind = "INTERNAL"
)

// Error is a domain error carrying its kind
type Error struct {
	kind Kind
	msg  string
}

// NewError creates a domain error of the given kind
func NewError(kind Kind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

// Error implements the error interface
func (e *Error) Error() string {
	return e.msg
}

// Kind returns the error's category
func (e *Error) Kind() Kind {
	return e.kind
}

// KindOf returns the kind of the first domain error in err's chain.
// Errors that carry no kind are Internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return KindInternal
}

// Common errors used across the application
var (
	// Identity errors
	ErrUnauthenticated = NewError(KindUnauthenticated, "caller is not authenticated")
	ErrUserNotFound    = NewError(KindNotFound, "user not found")
	ErrUsernameTaken   = NewError(KindAlreadyExists, "username already exists")

	// Argument errors
	ErrInvalidPartyName  = NewError(KindInvalidArgument, "party name is required")
	ErrInvalidMaxMembers = NewError(KindInvalidArgument, "max members is out of range")
	ErrMissingPartyID    = NewError(KindInvalidArgument, "party id is required")
	ErrMissingInviteCode = NewError(KindInvalidArgument, "invite code is required")

	// Party errors
	ErrPartyNotFound       = NewError(KindNotFound, "party not found")
	ErrPartyExists         = NewError(KindAlreadyExists, "party already exists")
	ErrPartyInactive       = NewError(KindFailedPrecondition, "party is no longer accepting members")
	ErrAlreadyMember       = NewError(KindFailedPrecondition, "user is already a member of this party")
	ErrNotMember           = NewError(KindFailedPrecondition, "user is not a member of this party")
	ErrHostCannotLeave     = NewError(KindFailedPrecondition, "the host cannot leave the party; disband it instead")
	ErrInvalidTransition   = NewError(KindFailedPrecondition, "invalid party state transition")
	ErrNotHost             = NewError(KindPermissionDenied, "only the host can perform this action")
	ErrMembershipRequired  = NewError(KindPermissionDenied, "user is not a member of this party")
	ErrInvalidInviteCode   = NewError(KindPermissionDenied, "invite code does not match")
	ErrPartyFull           = NewError(KindResourceExhausted, "party is full")
	ErrConcurrentUpdate    = NewError(KindInternal, "party was modified concurrently")
	ErrInviteCodeTaken     = NewError(KindAlreadyExists, "invite code is already in use")
	ErrInviteNotFound      = NewError(KindNotFound, "invite not found")
	ErrInviteCodeExhausted = NewError(KindInternal, "could not allocate a unique invite code")

	// Encoding errors
	ErrEncoding = NewError(KindInternal, "failed to encode invite")
)
