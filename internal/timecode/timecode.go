// Package timecode converts between sexagesimal HH:MM:SS.mmm timestamps and
// integer millisecond counts. It is the single authority for the "end time is
// one unit before the next start" arithmetic used when deriving chapter
// boundaries.
package timecode

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// pattern matches HH:MM:SS.mmm with two-digit hour/minute/second fields and a
// variable-length fraction. Anything looser (single-digit fields, missing
// fraction) is rejected: hand-edited ledger files must stay canonical.
var pattern = regexp.MustCompile(`^(\d{2}):(\d{2}):(\d{2})\.(\d+)$`)

// Unit is the smallest representable time step. The borrow chain in
// DecrementOneUnit subtracts exactly this much.
const Unit = 1 // millisecond

// Parse converts an HH:MM:SS.mmm timestamp to milliseconds.
// The fractional part may have any length; it is interpreted as a decimal
// fraction of a second and truncated to millisecond precision.
func Parse(text string) (int64, error) {
	m := pattern.FindStringSubmatch(text)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformed, text)
	}

	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	seconds, _ := strconv.Atoi(m[3])

	if minutes > 59 || seconds > 59 {
		return 0, fmt.Errorf("%w: %q", ErrMalformed, text)
	}

	// ".5" means 500ms, ".500" means 500ms, ".5001" truncates to 500ms.
	frac := m[4]
	if len(frac) < 3 {
		frac += strings.Repeat("0", 3-len(frac))
	}
	millis, _ := strconv.Atoi(frac[:3])

	total := ((int64(hours)*60+int64(minutes))*60+int64(seconds))*1000 + int64(millis)
	return total, nil
}

// Format converts milliseconds back to HH:MM:SS.mmm with zero-padded fields.
// It is the inverse of Parse for canonical three-digit-fraction input.
func Format(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	hours := ms / 3600000
	minutes := (ms / 60000) % 60
	seconds := (ms / 1000) % 60
	millis := ms % 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, seconds, millis)
}

// DecrementOneUnit subtracts one Unit from a timestamp, borrowing across the
// seconds, minutes, and hours fields as needed. Used to turn a chapter's start
// time into the previous chapter's end time without duplicating the boundary
// frame between adjacent output files.
// Returns ErrConversion when the input cannot be parsed or the result would
// be negative.
func DecrementOneUnit(text string) (string, error) {
	ms, err := Parse(text)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrConversion, err)
	}
	if ms < Unit {
		return "", fmt.Errorf("%w: %q would go negative", ErrConversion, text)
	}
	return Format(ms - Unit), nil
}
