package models

import "errors"

// Domain error taxonomy. Handlers map these to HTTP status codes with
// errors.Is; services and repositories wrap them with operation context.
var (
	// ErrUnauthenticated means no valid credential accompanied the request.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden means the principal's role does not permit the action.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound covers absent entities and entities not owned by the
	// caller, so cross-tenant probing cannot distinguish the two.
	ErrNotFound = errors.New("not found")

	ErrDuplicateEmail         = errors.New("email already registered")
	ErrDuplicateSiteName      = errors.New("site name already taken")
	ErrDuplicateProof         = errors.New("a live proof already exists")
	ErrDuplicateInvoice       = errors.New("a pending invoice already exists for this period")
	ErrDuplicateNonWorkingDay = errors.New("day already marked as non-working")

	// ErrInvalidState marks a transition attempted from the wrong source
	// state, e.g. approving an already-rejected proof.
	ErrInvalidState = errors.New("invalid state transition")
	// ErrAlreadyReserved is returned when reserving a slot that is not
	// AVAILABLE.
	ErrAlreadyReserved = errors.New("slot is not available")

	ErrInvalidUpload = errors.New("invalid upload")
	ErrInvalidInput  = errors.New("invalid input")
	ErrPastDate      = errors.New("date is in the past")
)
