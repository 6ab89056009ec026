// Package segment derives an ordered, non-overlapping chapter segment list
// from a recognized transcript. Detection is deliberately naive: case-sensitive
// substring containment over whole cue lines, with a per-language suppression
// list to knock out the worst false positives. A cue whose unrelated sentence
// happens to contain a marker word still triggers a boundary; that is a known
// limitation of word-level speech-to-text input, not a bug to fix here.
package segment

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode"

	"github.com/patrickenfuego/chapterize/internal/cue"
	"github.com/patrickenfuego/chapterize/internal/lang"
	"github.com/patrickenfuego/chapterize/internal/timecode"
)

// ZeroStart is the forced start time of the first chapter. The audio begins
// at time zero by definition, whatever the detector found.
const ZeroStart = "00:00:00.000"

// startPattern extracts the start timestamp from a cue's raw timing line,
// anchored to the " -" that begins the arrow token.
var startPattern = regexp.MustCompile(`(\d\d:\d\d:\d\d,\d+)\s-`)

// Segment is one chapter's boundary triple. End is empty for the last
// segment when no hard end bound was requested (open-ended, "to end of file").
type Segment struct {
	Start string
	End   string
	Label string
}

// HasEnd reports whether the segment carries a hard end bound.
func (s Segment) HasEnd() bool {
	return s.End != ""
}

// WarnFunc receives recoverable detection warnings (a skipped boundary
// candidate is a warning, not a failure).
type WarnFunc func(msg string)

func defaultWarnFunc(msg string) {
	fmt.Fprintln(os.Stderr, msg)
}

// Segmenter turns subtitle cues into chapter segments for one language
// profile. It holds no state between calls.
type Segmenter struct {
	profile      lang.Profile
	experimental bool
	warn         WarnFunc
}

// Option configures a Segmenter.
type Option func(*Segmenter)

// WithExperimental enables the alternate detection direction for soft section
// headers (preface, introduction) matched on the current cue.
func WithExperimental(enabled bool) Option {
	return func(s *Segmenter) { s.experimental = enabled }
}

// WithWarnFunc sets the warning handler.
func WithWarnFunc(fn WarnFunc) Option {
	return func(s *Segmenter) {
		if fn != nil {
			s.warn = fn
		}
	}
}

// New creates a Segmenter for the given language profile.
func New(profile lang.Profile, opts ...Option) *Segmenter {
	s := &Segmenter{
		profile: profile,
		warn:    defaultWarnFunc,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Segment walks cues pairwise and emits the chapter list.
// finalDuration, when non-empty, becomes the last segment's hard end bound
// (needed for container conversion); otherwise the last segment is
// open-ended. Returns ErrEmptySegments when no boundary candidate survives.
func (s *Segmenter) Segment(cues []cue.Cue, finalDuration string) ([]Segment, error) {
	var segments []Segment
	chapterCount := 1

	for i := range cues {
		if i == len(cues)-1 {
			break // no lookahead for the final cue
		}
		lookahead := cues[i+1].Text

		if s.containsExcluded(lookahead) {
			continue
		}

		marked := s.matchMarker(lookahead)
		experimental := ""
		if !marked && s.experimental {
			experimental = s.matchExperimental(cues[i].Text)
		}
		if !marked && experimental == "" {
			continue
		}

		start, ok := extractStart(cues[i].Header())
		if !ok {
			s.warn(fmt.Sprintf("Warning: skipped a boundary near cue %d: no start time matched", cues[i].Index))
			continue
		}

		var label string
		if marked {
			label = s.classify(lookahead, &chapterCount)
		} else {
			label = titleLabel(experimental)
		}

		if len(segments) == 0 {
			start = ZeroStart
		}
		segments = append(segments, Segment{Start: start, Label: label})
	}

	if len(segments) == 0 {
		return nil, ErrEmptySegments
	}

	// Each chapter ends one unit before the next begins, leaving a one-unit
	// gap so the splitter never duplicates the boundary frame.
	for i := range segments[:len(segments)-1] {
		end, err := timecode.DecrementOneUnit(segments[i+1].Start)
		if err != nil {
			return nil, fmt.Errorf("chapter %d end time: %w", i+1, err)
		}
		segments[i].End = end
	}
	if finalDuration != "" {
		segments[len(segments)-1].End = finalDuration
	}

	return segments, nil
}

// containsExcluded reports whether text contains any suppression phrase.
func (s *Segmenter) containsExcluded(text string) bool {
	for _, phrase := range s.profile.Excluded {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}

// matchMarker reports whether text contains any boundary marker phrase.
func (s *Segmenter) matchMarker(text string) bool {
	for _, marker := range s.profile.Markers() {
		if marker != "" && strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

// matchExperimental returns the first experimental marker contained in text,
// or "" when none matches.
func (s *Segmenter) matchExperimental(text string) string {
	for _, marker := range s.profile.Experimental {
		if marker != "" && strings.Contains(text, marker) {
			return marker
		}
	}
	return ""
}

// classify picks the chapter label for a matched lookahead line.
// Prologue and epilogue take precedence over the numbered-chapter marker: a
// line reading "epilogue of chapter ten" is the epilogue, and must not bump
// the chapter counter.
func (s *Segmenter) classify(text string, chapterCount *int) string {
	switch {
	case s.profile.Prologue != "" && strings.Contains(text, s.profile.Prologue):
		return "Prologue"
	case s.profile.Epilogue != "" && strings.Contains(text, s.profile.Epilogue):
		return "Epilogue"
	case s.profile.Chapter != "" && strings.Contains(text, s.profile.Chapter):
		n := *chapterCount
		*chapterCount++
		if n < 10 {
			return fmt.Sprintf("Chapter 0%d", n)
		}
		return fmt.Sprintf("Chapter %d", n)
	default:
		return ""
	}
}

// extractStart pulls the start timestamp out of a raw timing line and
// normalizes the comma sub-second delimiter to a period.
func extractStart(header string) (string, bool) {
	m := startPattern.FindStringSubmatch(header)
	if m == nil {
		return "", false
	}
	return strings.Replace(m[1], ",", ".", 1), true
}

// titleLabel capitalizes the first rune of an experimental marker for use as
// its literal chapter label.
func titleLabel(marker string) string {
	runes := []rune(marker)
	if len(runes) == 0 {
		return ""
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
