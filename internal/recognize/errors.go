package recognize

import "errors"

var (
	// ErrTranscription indicates the speech-to-text pass failed.
	ErrTranscription = errors.New("transcription failed")

	// ErrBinaryNotFound indicates the vosk-transcriber CLI is not installed.
	ErrBinaryNotFound = errors.New("vosk-transcriber not found")

	// ErrEmptyTranscript indicates the recognizer produced no cues at all.
	ErrEmptyTranscript = errors.New("recognizer produced an empty transcript")
)
