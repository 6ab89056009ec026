// Package model resolves and downloads the vosk speech models the
// recognizer runs against. The catalog mirrors the models published at
// https://alphacephei.com/vosk/models; not every language ships both sizes.
package model

import (
	"fmt"
	"strings"
)

// Size selects between the compact and the full-accuracy model builds.
type Size string

const (
	Small Size = "small"
	Large Size = "large"
)

// Valid reports whether s is a known size.
func (s Size) Valid() bool {
	return s == Small || s == Large
}

var smallModels = []string{
	"vosk-model-small-en-us-0.15",
	"vosk-model-small-en-in-0.4",
	"vosk-model-small-cn-0.22",
	"vosk-model-small-ru-0.22",
	"vosk-model-small-fr-0.22",
	"vosk-model-small-de-0.15",
	"vosk-model-small-es-0.42",
	"vosk-model-small-pt-0.3",
	"vosk-model-small-tr-0.3",
	"vosk-model-small-vn-0.3",
	"vosk-model-small-it-0.22",
	"vosk-model-small-nl-0.22",
	"vosk-model-small-ca-0.4",
	"vosk-model-small-fa-0.5",
	"vosk-model-small-uk-v3-small",
	"vosk-model-small-kz-0.15",
	"vosk-model-small-ja-0.22",
	"vosk-model-small-eo-0.42",
	"vosk-model-small-hi-0.22",
	"vosk-model-small-cs-0.4-rhasspy",
	"vosk-model-small-pl-0.22",
}

var largeModels = []string{
	"vosk-model-en-us-0.22",
	"vosk-model-en-in-0.5",
	"vosk-model-cn-0.22",
	"vosk-model-ru-0.22",
	"vosk-model-fr-0.22",
	"vosk-model-de-0.21",
	"vosk-model-es-0.42",
	"vosk-model-pt-fb-v0.1.1-20220516_2113",
	"vosk-model-el-gr-0.7",
	"vosk-model-it-0.22",
	"vosk-model-ar-0.22-linto-1.1.0",
	"vosk-model-fa-0.5",
	"vosk-model-tl-ph-generic-0.6",
	"vosk-model-uk-v3",
	"vosk-model-kz-0.15",
	"vosk-model-ja-0.22",
	"vosk-model-hi-0.22",
}

// find returns the catalog entry for a language code within one size list.
func find(models []string, prefix, code string) (string, bool) {
	for _, name := range models {
		if name == prefix+code || strings.HasPrefix(name, prefix+code+"-") {
			return name, true
		}
	}
	return "", false
}

// Resolve maps a language code and size to a downloadable model name.
// When the language has a model only in the other size, the error wraps
// ErrWrongSize and names what is available.
func Resolve(langCode string, size Size) (string, error) {
	if !size.Valid() {
		return "", fmt.Errorf("%w: unknown size %q", ErrWrongSize, size)
	}

	smallName, hasSmall := find(smallModels, "vosk-model-small-", langCode)
	largeName, hasLarge := find(largeModels, "vosk-model-", langCode)

	switch {
	case size == Small && hasSmall:
		return smallName, nil
	case size == Large && hasLarge:
		return largeName, nil
	case size == Small && hasLarge:
		return "", fmt.Errorf("%w: only a large model is available for %q", ErrWrongSize, langCode)
	case size == Large && hasSmall:
		return "", fmt.Errorf("%w: only a small model is available for %q", ErrWrongSize, langCode)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedModel, langCode)
	}
}
