package segment

import "errors"

// ErrEmptySegments indicates boundary detection found no chapters at all.
// Fatal: zero chapters means there is nothing to split.
var ErrEmptySegments = errors.New("no chapter boundaries detected")
