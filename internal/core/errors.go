package core

import "errors"

// Error kinds surfaced by the core. Layers above wrap these with detail via
// fmt.Errorf("...: %w", err) and callers match with errors.Is.
var (
	// ErrNotFound means a referenced entity does not exist where it is
	// mandatory. Reads where absence means "no data yet" return zero values
	// instead.
	ErrNotFound = errors.New("not found")

	// ErrForbidden means an operation referenced a budget or account not
	// owned by the requesting user. The whole operation is rejected.
	ErrForbidden = errors.New("not permitted")

	// ErrInvalid means input failed validation before any write happened.
	ErrInvalid = errors.New("invalid")

	// ErrInconsistent means the ledger is in a state the constraints should
	// have prevented, such as a cycling prior-month chain.
	ErrInconsistent = errors.New("inconsistent ledger state")
)
