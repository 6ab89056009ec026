// Package lang resolves user-supplied language names to model language codes
// and owns the per-language chapter marker profiles used by boundary
// detection. Profiles are looked up explicitly by code; a language without a
// profile is a hard configuration error, never a silent fallback.
package lang

import (
	"fmt"
	"sort"
	"strings"
)

// languageCodes maps friendly language names to vosk model language codes.
var languageCodes = map[string]string{
	"english":         "en-us",
	"english (us)":    "en-us",
	"english us":      "en-us",
	"english (india)": "en-in",
	"english india":   "en-in",
	"chinese":         "cn",
	"russian":         "ru",
	"french":          "fr",
	"german":          "de",
	"spanish":         "es",
	"portuguese":      "pt",
	"greek":           "el",
	"turkish":         "tr",
	"vietnamese":      "vn",
	"italian":         "it",
	"dutch":           "nl",
	"catalan":         "ca",
	"arabic":          "ar",
	"farsi":           "fa",
	"filipino":        "tl-ph",
	"kazakh":          "kz",
	"japanese":        "ja",
	"ukrainian":       "uk",
	"esperanto":       "eo",
	"hindi":           "hi",
	"czech":           "cs",
	"polish":          "pl",
}

// Normalize lowercases a language name or code and collapses underscores.
// Accepts: "EN-US", "en_us", "English" -> "en-us", "english".
func Normalize(language string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(language), "_", "-"))
}

// Resolve converts a language name or code to the canonical model code.
// Both "German" and "de" resolve to "de". Returns ErrInvalid for anything
// not in the supported set.
func Resolve(language string) (string, error) {
	if strings.TrimSpace(language) == "" {
		return "", fmt.Errorf("%w: empty language", ErrInvalid)
	}

	normalized := Normalize(language)
	if code, ok := languageCodes[normalized]; ok {
		return code, nil
	}
	for _, code := range languageCodes {
		if code == normalized {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w: %q (run with --list-languages for options)", ErrInvalid, language)
}

// Language pairs a friendly name with its model code for display.
type Language struct {
	Name string
	Code string
}

// Supported returns the display list of supported languages, sorted by name
// with alias spellings collapsed.
func Supported() []Language {
	seen := make(map[string]string, len(languageCodes))
	for name, code := range languageCodes {
		// Prefer the shortest spelling of each code's name ("english" over
		// "english (us)").
		if prev, ok := seen[code]; !ok || len(name) < len(prev) {
			seen[code] = name
		}
	}

	langs := make([]Language, 0, len(seen))
	for code, name := range seen {
		langs = append(langs, Language{Name: name, Code: code})
	}
	sort.Slice(langs, func(i, j int) bool { return langs[i].Name < langs[j].Name })
	return langs
}
