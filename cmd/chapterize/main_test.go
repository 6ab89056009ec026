package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/patrickenfuego/chapterize/internal/cli"
	"github.com/patrickenfuego/chapterize/internal/lang"
	"github.com/patrickenfuego/chapterize/internal/ledger"
	"github.com/patrickenfuego/chapterize/internal/model"
	"github.com/patrickenfuego/chapterize/internal/recognize"
	"github.com/patrickenfuego/chapterize/internal/segment"
	"github.com/patrickenfuego/chapterize/internal/timecode"
)

func TestExitCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"generic error", errors.New("boom"), ExitGeneral},
		{"interrupt", context.Canceled, ExitInterrupt},
		{"wrapped interrupt", fmt.Errorf("split: %w", context.Canceled), ExitInterrupt},
		{"usage sentinel", cli.ErrUsage, ExitUsage},
		{"cobra unknown flag", errors.New(`unknown flag: --bogus`), ExitUsage},
		{"cobra arg count", errors.New("accepts 1 arg(s), received 3"), ExitUsage},
		{"invalid language", fmt.Errorf("%w: klingon", lang.ErrInvalid), ExitLanguage},
		{"missing marker profile", lang.ErrNoProfile, ExitLanguage},
		{"unsupported model", model.ErrUnsupportedModel, ExitModel},
		{"wrong model size", model.ErrWrongSize, ExitModel},
		{"model download failed", model.ErrDownloadFailed, ExitModelFetch},
		{"model extract failed", model.ErrExtract, ExitModelFetch},
		{"malformed timecode", timecode.ErrMalformed, ExitTimecode},
		{"timecode conversion", fmt.Errorf("chapter 3 end time: %w", timecode.ErrConversion), ExitTimecode},
		{"transcription failed", recognize.ErrTranscription, ExitTranscription},
		{"vosk binary missing", recognize.ErrBinaryNotFound, ExitTranscription},
		{"empty transcript", recognize.ErrEmptyTranscript, ExitTranscription},
		{"no chapters detected", segment.ErrEmptySegments, ExitNoChapters},
		{"unsupported format", cli.ErrUnsupportedFormat, ExitFormat},
		{"malformed cue file", ledger.ErrMalformed, ExitLedger},
		{"cue file exists", ledger.ErrExists, ExitLedger},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
