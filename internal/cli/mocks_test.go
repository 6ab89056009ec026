package cli

import (
	"bytes"
	"context"
	"io"

	"github.com/patrickenfuego/chapterize/internal/config"
	"github.com/patrickenfuego/chapterize/internal/cue"
	"github.com/patrickenfuego/chapterize/internal/ffmpeg"
	"github.com/patrickenfuego/chapterize/internal/model"
	"github.com/patrickenfuego/chapterize/internal/recognize"
)

// ---------------------------------------------------------------------------
// Mocks for Env dependencies
// ---------------------------------------------------------------------------

type mockResolver struct {
	ffmpegPath  string
	ffprobePath string
	resolveErr  error
	probeErr    error
}

func (m *mockResolver) Resolve(_ context.Context) (string, error) {
	if m.resolveErr != nil {
		return "", m.resolveErr
	}
	return m.ffmpegPath, nil
}

func (m *mockResolver) ResolveProbe(_ string) (string, error) {
	if m.probeErr != nil {
		return "", m.probeErr
	}
	return m.ffprobePath, nil
}

type mockResolverFactory struct {
	resolver *mockResolver

	gotConfiguredPath string
}

func (m *mockResolverFactory) NewResolver(configuredPath string, _ io.Writer) FFmpegResolver {
	m.gotConfiguredPath = configuredPath
	return m.resolver
}

type mockVersionChecker struct {
	checked bool
}

func (m *mockVersionChecker) Check(_ context.Context, _ string) bool {
	m.checked = true
	return true
}

type mockConfigLoader struct {
	cfg config.Config
	err error
}

func (m *mockConfigLoader) Load() (config.Config, error) {
	return m.cfg, m.err
}

type mockMedia struct {
	tags     map[string]string
	coverArt string
	duration string

	metadataErr error
	coverErr    error
	durationErr error
	splitErr    error

	jobs []ffmpeg.SplitJob
}

func (m *mockMedia) ExtractMetadata(_ context.Context, _ string) (map[string]string, error) {
	if m.metadataErr != nil {
		return nil, m.metadataErr
	}
	return m.tags, nil
}

func (m *mockMedia) ExtractCoverArt(_ context.Context, _ string) (string, error) {
	if m.coverErr != nil {
		return "", m.coverErr
	}
	return m.coverArt, nil
}

func (m *mockMedia) Duration(_ context.Context, _ string) (string, error) {
	if m.durationErr != nil {
		return "", m.durationErr
	}
	return m.duration, nil
}

func (m *mockMedia) StreamPCM(_ context.Context, _ string) (io.ReadCloser, ffmpeg.WaitFunc, error) {
	return io.NopCloser(bytes.NewReader(nil)), func() error { return nil }, nil
}

func (m *mockMedia) SplitSegment(_ context.Context, job ffmpeg.SplitJob, _ io.Writer) error {
	m.jobs = append(m.jobs, job)
	return m.splitErr
}

type mockMediaFactory struct {
	media *mockMedia
}

func (m *mockMediaFactory) NewMedia(_, _ string) Media {
	return m.media
}

type mockModelManager struct {
	root      string
	foundDir  string
	found     bool
	ensureDir string
	ensureErr error

	ensuredName string
}

func (m *mockModelManager) Root() string { return m.root }

func (m *mockModelManager) Find(_ string, _ model.Size) (string, bool) {
	return m.foundDir, m.found
}

func (m *mockModelManager) Ensure(_ context.Context, name string, _ model.ProgressFunc) (string, error) {
	m.ensuredName = name
	if m.ensureErr != nil {
		return "", m.ensureErr
	}
	return m.ensureDir, nil
}

type mockModelFactory struct {
	manager *mockModelManager
}

func (m *mockModelFactory) NewManager(_ string, _ io.Writer) ModelManager {
	return m.manager
}

type stubRecognizer struct {
	cues []cue.Cue
	err  error
}

func (s *stubRecognizer) Transcribe(_ context.Context, _ string) ([]cue.Cue, error) {
	return s.cues, s.err
}

type mockRecognizerFactory struct {
	recognizer recognize.Recognizer

	voskCalls   int
	openaiCalls int
	gotModelDir string
	gotAPIKey   string
}

func (m *mockRecognizerFactory) NewVosk(_ Media, modelDir string) recognize.Recognizer {
	m.voskCalls++
	m.gotModelDir = modelDir
	return m.recognizer
}

func (m *mockRecognizerFactory) NewOpenAI(apiKey, _ string) recognize.Recognizer {
	m.openaiCalls++
	m.gotAPIKey = apiKey
	return m.recognizer
}

// Compile-time interface verification.
var (
	_ ResolverFactory   = (*mockResolverFactory)(nil)
	_ FFmpegResolver    = (*mockResolver)(nil)
	_ VersionChecker    = (*mockVersionChecker)(nil)
	_ ConfigLoader      = (*mockConfigLoader)(nil)
	_ Media             = (*mockMedia)(nil)
	_ MediaFactory      = (*mockMediaFactory)(nil)
	_ ModelManager      = (*mockModelManager)(nil)
	_ ModelFactory      = (*mockModelFactory)(nil)
	_ RecognizerFactory = (*mockRecognizerFactory)(nil)
)
