// Package ledger reads and writes chapter ledger files: a cue-sheet-like
// plain-text format that lets the user review, correct, and re-run a chapter
// split without re-transcribing the audio. The ledger, once present, is the
// authoritative source of chapter boundaries.
package ledger

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/patrickenfuego/chapterize/internal/segment"
)

var (
	titlePattern = regexp.MustCompile(`TITLE\t"(.*)"`)
	startPattern = regexp.MustCompile(`START\t(.+)`)
	endPattern   = regexp.MustCompile(`END\t+(.+)`)
	trackPattern = regexp.MustCompile(`^TRACK\s+\d+\s+AUDIO$`)
)

// Write creates a ledger at path describing segments. sourcePath names the
// audiobook file the ledger belongs to; its base name and container type
// become the FILE header.
//
// The file is created exclusively: an existing ledger is never truncated,
// since it may hold hand-corrected boundaries (ErrExists). A partially
// written file is removed before returning an error, so a failed Write never
// leaves a ledger that Read would choke on.
func Write(segments []segment.Segment, path, sourcePath string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%w: %s", ErrExists, path)
		}
		return fmt.Errorf("create ledger file: %w", err)
	}

	fail := func(err error) error {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("write ledger file: %w", err)
	}

	w := bufio.NewWriter(f)
	ext := filepath.Ext(sourcePath)
	fmt.Fprintf(w, "FILE %q %s\n",
		filepath.Base(sourcePath), strings.ToUpper(strings.TrimPrefix(ext, ".")))
	for i, seg := range segments {
		fmt.Fprintf(w, "TRACK %d AUDIO\n", i+1)
		fmt.Fprintf(w, "  TITLE\t%q\n", seg.Label)
		fmt.Fprintf(w, "  START\t%s\n", seg.Start)
		if i != len(segments)-1 {
			fmt.Fprintf(w, "  END\t\t%s\n", seg.End)
		}
	}
	if err := w.Flush(); err != nil {
		return fail(err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("write ledger file: %w", err)
	}
	return nil
}

// Read parses a ledger back into segments. A TRACK block must carry TITLE
// and START; END is optional and absent on the last track. Returns
// ErrMalformed when a block is missing required fields or the file yields no
// segments at all.
func Read(path string) ([]segment.Segment, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-specified ledger file
	if err != nil {
		return nil, fmt.Errorf("read ledger file: %w", err)
	}

	var segments []segment.Segment
	var current *segment.Segment
	titled := false // an empty TITLE "" still counts as titled

	flush := func() error {
		if current == nil {
			return nil
		}
		if !titled || current.Start == "" {
			return fmt.Errorf("%w: track %d missing title or start",
				ErrMalformed, len(segments)+1)
		}
		segments = append(segments, *current)
		current = nil
		return nil
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		switch {
		case trackPattern.MatchString(strings.TrimSpace(line)):
			if err := flush(); err != nil {
				return nil, err
			}
			current = &segment.Segment{}
			titled = false
		case current == nil:
			continue // header or junk before the first track
		case strings.Contains(line, "TITLE"):
			m := titlePattern.FindStringSubmatch(line)
			if m == nil {
				return nil, fmt.Errorf("%w: unmatched title line %q", ErrMalformed, line)
			}
			current.Label = m[1]
			titled = true
		case strings.Contains(line, "START"):
			m := startPattern.FindStringSubmatch(line)
			if m == nil {
				return nil, fmt.Errorf("%w: unmatched start line %q", ErrMalformed, line)
			}
			current.Start = m[1]
		case strings.Contains(line, "END"):
			m := endPattern.FindStringSubmatch(line)
			if m == nil {
				return nil, fmt.Errorf("%w: unmatched end line %q", ErrMalformed, line)
			}
			current.End = m[1]
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}

	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: no tracks found", ErrMalformed)
	}
	return segments, nil
}
