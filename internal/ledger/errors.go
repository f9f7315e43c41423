package ledger

import "errors"

// Error kinds surfaced by ledger operations. Callers classify with
// errors.Is; the API layer maps each kind to an HTTP status. Anything
// not matching one of these is an internal store failure.
var (
	// ErrNotFound means the referenced bill, transfer, or payment
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument means the request was malformed: bad amount,
	// unknown transfer type, or an invalid party combination.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrForbidden means the actor is not allowed to perform the action.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidState means the record is not in the lifecycle stage the
	// requested transition needs. The wrapped message names the current
	// state so clients can refresh instead of retrying blindly.
	ErrInvalidState = errors.New("invalid state")

	// ErrInvariantViolation means completing the transition would push a
	// bill's covered amount past its total. The transaction was rolled
	// back; nothing changed.
	ErrInvariantViolation = errors.New("bill total exceeded")

	// ErrBusy means the record lock could not be acquired within the
	// bounded timeout. Callers may retry with backoff.
	ErrBusy = errors.New("ledger busy")
)
