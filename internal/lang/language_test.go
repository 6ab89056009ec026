package lang_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/patrickenfuego/chapterize/internal/lang"
)

// ---------------------------------------------------------------------------
// TestResolve - names and codes to canonical model codes
// ---------------------------------------------------------------------------

func TestResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		// Codes pass through
		{name: "code as-is", input: "en-us", want: "en-us"},
		{name: "code uppercased", input: "EN-US", want: "en-us"},
		{name: "code with underscore", input: "en_us", want: "en-us"},
		{name: "german code", input: "de", want: "de"},

		// Friendly names
		{name: "name", input: "German", want: "de"},
		{name: "name lowercase", input: "english", want: "en-us"},
		{name: "name with region", input: "English (India)", want: "en-in"},
		{name: "filipino maps to tl-ph", input: "Filipino", want: "tl-ph"},

		// Invalid
		{name: "empty", input: "", wantErr: lang.ErrInvalid},
		{name: "whitespace only", input: "   ", wantErr: lang.ErrInvalid},
		{name: "unknown language", input: "klingon", wantErr: lang.ErrInvalid},
		{name: "unknown code", input: "xx", wantErr: lang.ErrInvalid},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := lang.Resolve(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Resolve(%q) error = %v, want %v", tt.input, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSupported(t *testing.T) {
	t.Parallel()

	langs := lang.Supported()
	if len(langs) == 0 {
		t.Fatal("Supported() returned no languages")
	}

	seen := make(map[string]bool)
	for _, l := range langs {
		if l.Name == "" || l.Code == "" {
			t.Errorf("Supported() entry has empty field: %+v", l)
		}
		if seen[l.Code] {
			t.Errorf("Supported() lists code %q twice", l.Code)
		}
		seen[l.Code] = true
	}
	if !seen["en-us"] || !seen["de"] {
		t.Errorf("Supported() missing expected codes, got %v", langs)
	}
}

// ---------------------------------------------------------------------------
// TestRegistry - profile lookup and YAML overlay
// ---------------------------------------------------------------------------

func TestRegistryLookup(t *testing.T) {
	t.Parallel()

	reg := lang.NewRegistry()

	tests := []struct {
		name    string
		code    string
		wantErr error
		check   func(t *testing.T, p lang.Profile)
	}{
		{
			name: "english profile",
			code: "en-us",
			check: func(t *testing.T, p lang.Profile) {
				if p.Chapter != "chapter" || p.Prologue != "prologue" || p.Epilogue != "epilogue" {
					t.Errorf("unexpected english markers: %+v", p)
				}
				if len(p.Excluded) == 0 {
					t.Error("english profile has no excluded phrases")
				}
			},
		},
		{
			name: "english india shares markers",
			code: "en-in",
			check: func(t *testing.T, p lang.Profile) {
				if p.Chapter != "chapter" {
					t.Errorf("en-in Chapter = %q, want %q", p.Chapter, "chapter")
				}
			},
		},
		{
			name: "german profile",
			code: "de",
			check: func(t *testing.T, p lang.Profile) {
				if p.Chapter != "kapitel" {
					t.Errorf("de Chapter = %q, want %q", p.Chapter, "kapitel")
				}
			},
		},
		{name: "supported language without profile", code: "ja", wantErr: lang.ErrNoProfile},
		{name: "unknown code", code: "xx", wantErr: lang.ErrNoProfile},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p, err := reg.Lookup(tt.code)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Lookup(%q) error = %v, want %v", tt.code, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Lookup(%q) unexpected error: %v", tt.code, err)
			}
			tt.check(t, p)
		})
	}
}

func TestMarkersOrder(t *testing.T) {
	t.Parallel()

	reg := lang.NewRegistry()
	p, err := reg.Lookup("en-us")
	if err != nil {
		t.Fatalf("Lookup() unexpected error: %v", err)
	}

	want := []string{"prologue", "chapter", "epilogue"}
	got := p.Markers()
	if len(got) != len(want) {
		t.Fatalf("Markers() returned %d entries, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Markers()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestMergeFile(t *testing.T) {
	t.Parallel()

	t.Run("adds new profile", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "profiles.yaml")
		doc := `profiles:
  - code: fr
    prologue: prologue
    chapter: chapitre
    epilogue: épilogue
    excluded:
      - ce chapitre
`
		if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
			t.Fatal(err)
		}

		reg := lang.NewRegistry()
		if err := reg.MergeFile(path); err != nil {
			t.Fatalf("MergeFile() unexpected error: %v", err)
		}

		p, err := reg.Lookup("fr")
		if err != nil {
			t.Fatalf("Lookup(fr) after merge: %v", err)
		}
		if p.Chapter != "chapitre" {
			t.Errorf("fr Chapter = %q, want %q", p.Chapter, "chapitre")
		}
	})

	t.Run("replaces builtin wholesale", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "profiles.yaml")
		doc := `profiles:
  - code: en-us
    prologue: intro
    chapter: part
    epilogue: outro
`
		if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
			t.Fatal(err)
		}

		reg := lang.NewRegistry()
		if err := reg.MergeFile(path); err != nil {
			t.Fatalf("MergeFile() unexpected error: %v", err)
		}

		p, _ := reg.Lookup("en-us")
		if p.Chapter != "part" {
			t.Errorf("overlay Chapter = %q, want %q", p.Chapter, "part")
		}
		if len(p.Excluded) != 0 {
			t.Errorf("overlay should replace suppression list, got %v", p.Excluded)
		}
	})

	t.Run("missing code rejected", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "profiles.yaml")
		doc := `profiles:
  - chapter: part
`
		if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
			t.Fatal(err)
		}

		if err := lang.NewRegistry().MergeFile(path); err == nil {
			t.Fatal("MergeFile() with missing code: expected error, got nil")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		err := lang.NewRegistry().MergeFile(filepath.Join(t.TempDir(), "nope.yaml"))
		if err == nil {
			t.Fatal("MergeFile() on missing file: expected error, got nil")
		}
	})
}
