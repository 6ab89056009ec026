package ledger

import "errors"

var (
	// ErrExists is returned when Write is asked to create a ledger at a path
	// that already exists. An existing ledger is authoritative and may carry
	// hand edits; it is never truncated.
	ErrExists = errors.New("ledger file already exists")

	// ErrMalformed is returned when Read cannot recover a usable chapter
	// list from a ledger file.
	ErrMalformed = errors.New("malformed ledger file")
)
