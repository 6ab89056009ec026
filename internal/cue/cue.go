// Package cue models the subtitle cues emitted by the speech recognizer and
// reads/writes them in SubRip (.srt) form. The .srt file doubles as the cached
// transcript sidecar, so re-runs can skip transcription entirely.
package cue

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ErrNoCues indicates a transcript contained no parseable cues.
var ErrNoCues = errors.New("no subtitle cues found")

// timingSeparator splits the start and end fields of a cue header line.
const timingSeparator = " --> "

// Cue is one timestamped unit of recognized speech.
// Start and End keep the recognizer's native form (HH:MM:SS,mmm with a comma
// sub-second delimiter); the segmenter normalizes on extraction.
type Cue struct {
	Index int
	Start string
	End   string
	Text  string
}

// Header reconstructs the cue's native timing line, e.g.
// "00:01:00,000 --> 00:01:04,500". Boundary detection extracts the start
// timestamp from this raw form.
func (c Cue) Header() string {
	return c.Start + timingSeparator + c.End
}

// Parse reads SubRip cues from r. Blocks with a missing or malformed timing
// line are skipped rather than failing the whole transcript; recognizer
// output is noisy and a single bad block must not lose hours of audio.
// Returns ErrNoCues if nothing parseable was found.
func Parse(r io.Reader) ([]Cue, error) {
	var cues []Cue
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var block []string
	flush := func() {
		if c, ok := parseBlock(block); ok {
			cues = append(cues, c)
		}
		block = block[:0]
	}

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		block = append(block, line)
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	if len(cues) == 0 {
		return nil, ErrNoCues
	}
	return cues, nil
}

// ParseFile reads SubRip cues from a file on disk.
func ParseFile(path string) ([]Cue, error) {
	f, err := os.Open(path) // #nosec G304 -- transcript sidecar beside user input
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Parse(f)
}

// parseBlock converts one blank-line-delimited block into a cue.
// Expected shape: index line, timing line, one or more text lines.
func parseBlock(lines []string) (Cue, bool) {
	if len(lines) < 2 {
		return Cue{}, false
	}

	index, err := strconv.Atoi(strings.TrimSpace(lines[0]))
	timing := lines[1]
	text := lines[2:]
	if err != nil {
		// Some producers omit the index line.
		index = 0
		timing = lines[0]
		text = lines[1:]
	}

	start, end, ok := strings.Cut(timing, timingSeparator)
	if !ok {
		return Cue{}, false
	}

	return Cue{
		Index: index,
		Start: strings.TrimSpace(start),
		End:   strings.TrimSpace(end),
		Text:  strings.TrimSpace(strings.Join(text, " ")),
	}, true
}

// Write serializes cues to w in SubRip form. Indexes are renumbered from 1 so
// a filtered cue list stays valid.
func Write(w io.Writer, cues []Cue) error {
	for i, c := range cues {
		if _, err := fmt.Fprintf(w, "%d\n%s\n%s\n\n", i+1, c.Header(), c.Text); err != nil {
			return fmt.Errorf("write cue %d: %w", i+1, err)
		}
	}
	return nil
}

// WriteFile writes cues to path, replacing any existing file. The transcript
// sidecar is a cache, so overwriting is safe here (unlike the chapter ledger).
func WriteFile(path string, cues []Cue) error {
	f, err := os.Create(path) // #nosec G304 -- sidecar beside user input
	if err != nil {
		return fmt.Errorf("create transcript: %w", err)
	}

	writeErr := Write(f, cues)
	closeErr := f.Close()
	if writeErr != nil {
		_ = os.Remove(path)
		return writeErr
	}
	if closeErr != nil {
		_ = os.Remove(path)
		return fmt.Errorf("close transcript: %w", closeErr)
	}
	return nil
}
