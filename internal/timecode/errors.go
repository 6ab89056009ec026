package timecode

import "errors"

// ErrMalformed indicates a timestamp does not match the HH:MM:SS.mmm pattern.
var ErrMalformed = errors.New("malformed timecode")

// ErrConversion indicates a timestamp could not be decremented (unparseable
// input, or the borrow chain would push hours below zero).
var ErrConversion = errors.New("timecode conversion failed")
