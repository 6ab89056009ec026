package config

import "errors"

var (
	// ErrInvalidKey indicates a config key that is empty, malformed, or not
	// one of the recognized keys.
	ErrInvalidKey = errors.New("invalid config key")

	// ErrInvalidSyntax indicates a config file line that is not key=value.
	ErrInvalidSyntax = errors.New("invalid config syntax")

	// ErrNotDirectory indicates the output path exists but is not a directory.
	ErrNotDirectory = errors.New("not a directory")

	// ErrNotWritable indicates the output directory cannot be written to.
	ErrNotWritable = errors.New("directory not writable")
)
