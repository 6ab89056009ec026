package lang

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile holds the marker phrases and false-positive suppression list for
// one language. Matching is case-sensitive substring containment on the whole
// cue text; the suppression list is checked first, so an excluded phrase
// always wins over a marker it contains.
type Profile struct {
	Code         string   `yaml:"code"`
	Prologue     string   `yaml:"prologue"`
	Chapter      string   `yaml:"chapter"`
	Epilogue     string   `yaml:"epilogue"`
	Excluded     []string `yaml:"excluded"`
	Experimental []string `yaml:"experimental"`
}

// Markers returns the boundary marker phrases in detection priority order.
func (p Profile) Markers() []string {
	return []string{p.Prologue, p.Chapter, p.Epilogue}
}

// builtinProfiles are the marker sets shipped with the tool. The suppression
// lists grow over time as narrators find new ways to say "chapter" mid-sentence.
var builtinProfiles = map[string]Profile{
	"en-us": englishProfile("en-us"),
	"en-in": englishProfile("en-in"),
	"de": {
		Code:     "de",
		Prologue: "prolog",
		Chapter:  "kapitel",
		Epilogue: "epilog",
		Excluded: []string{
			"der kapitelsaal", "das schlusskapitel", "das hauptkapitel",
			"dieses kapitel", "die kapitelüberschrift", "ein kapitel",
		},
		Experimental: []string{"vorwort", "einleitung"},
	},
}

func englishProfile(code string) Profile {
	return Profile{
		Code:     code,
		Prologue: "prologue",
		Chapter:  "chapter",
		Epilogue: "epilogue",
		Excluded: []string{
			"chapter and verse", "chapters", "this chapter", "that chapter",
			"chapter of", "in chapter", "and chapter", "chapter heading",
			"chapter head", "chapter house", "chapter book", "a chapter",
			"chapter out", "chapter in", "particular chapter", "spicy chapter",
			"before chapter", "main chapter", "final chapter", "concluding chapter",
			"glorious chapter", "next chapter", "chapter asking", "matthew chapter",
			"forgotten chapter", "last chapter", "chapter room", "the chapter",
			"prologue to", "from prologue", "epilogue to", "from epilogue",
		},
		Experimental: []string{"preface", "introduction", "foreword"},
	}
}

// Registry maps language codes to marker profiles. It is built once at
// startup and passed explicitly to the segmenter; nothing reads it from
// ambient global state after construction.
type Registry struct {
	profiles map[string]Profile
}

// NewRegistry returns a registry populated with the built-in profiles.
func NewRegistry() *Registry {
	profiles := make(map[string]Profile, len(builtinProfiles))
	for code, p := range builtinProfiles {
		profiles[code] = p
	}
	return &Registry{profiles: profiles}
}

// MergeFile overlays user-defined profiles from a YAML file onto the
// registry. A user profile for an existing code replaces the built-in one
// wholesale; partial merging would make the suppression lists impossible to
// reason about.
func (r *Registry) MergeFile(path string) error {
	data, err := os.ReadFile(path) // #nosec G304 -- user-specified profile file
	if err != nil {
		return fmt.Errorf("read profiles file: %w", err)
	}

	var doc struct {
		Profiles []Profile `yaml:"profiles"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse profiles file %s: %w", path, err)
	}

	for _, p := range doc.Profiles {
		if p.Code == "" {
			return fmt.Errorf("parse profiles file %s: profile missing language code", path)
		}
		r.profiles[Normalize(p.Code)] = p
	}
	return nil
}

// Lookup returns the profile for a language code.
// Returns ErrNoProfile when the language has no marker set; callers must
// treat this as fatal configuration, not fall back to another language.
func (r *Registry) Lookup(code string) (Profile, error) {
	p, ok := r.profiles[Normalize(code)]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrNoProfile, code)
	}
	return p, nil
}
