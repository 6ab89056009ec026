package model

import "errors"

var (
	// ErrUnsupportedModel is returned when no vosk model exists for a
	// language code in any size.
	ErrUnsupportedModel = errors.New("no model available for language")

	// ErrWrongSize is returned when a model exists for the language but not
	// in the requested size. The message names the size that is available.
	ErrWrongSize = errors.New("model not available in requested size")

	// ErrDownloadFailed indicates the model archive could not be downloaded.
	ErrDownloadFailed = errors.New("model download failed")

	// ErrExtract indicates the model archive downloaded but could not be
	// unpacked.
	ErrExtract = errors.New("model extraction failed")
)
