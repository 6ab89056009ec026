package recognize

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/patrickenfuego/chapterize/internal/cue"
)

// audioTranscriber is the slice of *openai.Client this package needs.
// Injectable for tests.
type audioTranscriber interface {
	CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error)
}

var (
	_ Recognizer       = (*OpenAIRecognizer)(nil)
	_ audioTranscriber = (*openai.Client)(nil)
)

// OpenAIRecognizer transcribes through OpenAI's transcription API, asking
// for SRT directly so the cue timestamps come back ready-made. One blocking
// request per book; chapter detection does not need word-perfect accuracy,
// so there is no retry loop.
type OpenAIRecognizer struct {
	client   audioTranscriber
	language string // ISO 639-1 base code hint, "" for auto-detect
}

// OpenAIOption configures an OpenAIRecognizer.
type OpenAIOption func(*OpenAIRecognizer)

// WithLanguageHint passes the audio language to the API. OpenAI accepts only
// ISO 639-1 base codes, so regional suffixes are stripped.
func WithLanguageHint(code string) OpenAIOption {
	return func(r *OpenAIRecognizer) {
		base, _, _ := strings.Cut(code, "-")
		r.language = base
	}
}

// NewOpenAI creates a recognizer backed by the given client.
func NewOpenAI(client audioTranscriber, opts ...OpenAIOption) *OpenAIRecognizer {
	r := &OpenAIRecognizer{client: client}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Transcribe uploads the audiobook and parses the SRT response into cues.
func (r *OpenAIRecognizer) Transcribe(ctx context.Context, audioPath string) ([]cue.Cue, error) {
	req := openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatSRT,
		Language: r.language,
	}

	resp, err := r.client.CreateTranscription(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTranscription, describeAPIError(err))
	}

	cues, err := cue.Parse(strings.NewReader(resp.Text))
	if err != nil {
		return nil, fmt.Errorf("%w: parse API response: %v", ErrTranscription, err)
	}
	return cues, nil
}

// describeAPIError adds a hint for the error classes the user can act on.
func describeAPIError(err error) error {
	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	switch apiErr.HTTPStatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%s (check OPENAI_API_KEY)", apiErr.Message)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%s (rate limited, try again later)", apiErr.Message)
	default:
		return err
	}
}
