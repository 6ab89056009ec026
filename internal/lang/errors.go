package lang

import "errors"

// ErrInvalid indicates an invalid or unsupported language was specified.
var ErrInvalid = errors.New("invalid language")

// ErrNoProfile indicates the language is recognized but carries no chapter
// marker profile, so boundary detection cannot run for it.
var ErrNoProfile = errors.New("no chapter marker profile for language")
