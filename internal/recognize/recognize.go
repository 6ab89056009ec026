// Package recognize turns an audiobook into timestamped subtitle cues using
// an external speech recognizer: a local vosk model by default, or OpenAI's
// transcription API when an API key is configured. Recognition is by far the
// slowest stage of the pipeline, so the resulting cues are cached in an .srt
// sidecar beside the source and reused on subsequent runs.
package recognize

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/patrickenfuego/chapterize/internal/cue"
)

// minSidecarSize is the size below which an existing sidecar is treated as a
// failed previous run and regenerated.
const minSidecarSize = 10

// Recognizer converts an audio file into subtitle cues.
type Recognizer interface {
	Transcribe(ctx context.Context, audioPath string) ([]cue.Cue, error)
}

// SidecarPath returns the cached transcript path for an audiobook.
func SidecarPath(audioPath string) string {
	return strings.TrimSuffix(audioPath, filepath.Ext(audioPath)) + ".srt"
}

// TranscribeWithCache returns cues from the sidecar when a usable one
// exists, otherwise runs the recognizer and writes the sidecar for next
// time. A sidecar write failure is not fatal; the cues are still returned.
func TranscribeWithCache(ctx context.Context, r Recognizer, audioPath string, warn func(string)) ([]cue.Cue, error) {
	sidecar := SidecarPath(audioPath)
	if info, err := os.Stat(sidecar); err == nil && info.Size() > minSidecarSize {
		cues, err := cue.ParseFile(sidecar)
		if err == nil {
			return cues, nil
		}
		if warn != nil {
			warn(fmt.Sprintf("Warning: existing transcript %s is unreadable, re-transcribing: %v",
				filepath.Base(sidecar), err))
		}
	}

	cues, err := r.Transcribe(ctx, audioPath)
	if err != nil {
		return nil, err
	}
	if len(cues) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyTranscript, filepath.Base(audioPath))
	}

	if err := cue.WriteFile(sidecar, cues); err != nil && warn != nil {
		warn(fmt.Sprintf("Warning: could not cache transcript: %v", err))
	}
	return cues, nil
}
