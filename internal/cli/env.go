package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	openai "github.com/sashabaranov/go-openai"

	"github.com/patrickenfuego/chapterize/internal/config"
	"github.com/patrickenfuego/chapterize/internal/ffmpeg"
	"github.com/patrickenfuego/chapterize/internal/model"
	"github.com/patrickenfuego/chapterize/internal/recognize"
)

// Env holds injectable dependencies for CLI commands.
// This is the central injection point for testing CLI commands in isolation.
//
// All fields have sensible defaults via DefaultEnv(). Tests can override
// specific fields using the With* options or by creating a custom Env.
//
// Env must not be nil when passed to command functions. Use DefaultEnv()
// or NewEnv() to create a valid instance.
type Env struct {
	// I/O and environment
	Stdout io.Writer
	Stderr io.Writer
	Getenv func(string) string

	// Factories for domain objects
	ResolverFactory   ResolverFactory
	VersionChecker    VersionChecker
	ConfigLoader      ConfigLoader
	MediaFactory      MediaFactory
	ModelFactory      ModelFactory
	RecognizerFactory RecognizerFactory
}

// ResolverFactory builds ffmpeg binary resolvers.
type ResolverFactory interface {
	NewResolver(configuredPath string, stderr io.Writer) FFmpegResolver
}

// FFmpegResolver locates the ffmpeg and ffprobe binaries.
type FFmpegResolver interface {
	Resolve(ctx context.Context) (string, error)
	ResolveProbe(ffmpegPath string) (string, error)
}

// VersionChecker warns about outdated ffmpeg installs.
type VersionChecker interface {
	Check(ctx context.Context, ffmpegPath string) bool
}

// ConfigLoader loads and provides access to configuration.
type ConfigLoader interface {
	Load() (config.Config, error)
}

// Media exposes the ffmpeg media operations the pipeline needs.
type Media interface {
	ExtractMetadata(ctx context.Context, audiobook string) (map[string]string, error)
	ExtractCoverArt(ctx context.Context, audiobook string) (string, error)
	Duration(ctx context.Context, audiobook string) (string, error)
	StreamPCM(ctx context.Context, audiobook string) (io.ReadCloser, ffmpeg.WaitFunc, error)
	SplitSegment(ctx context.Context, job ffmpeg.SplitJob, log io.Writer) error
}

// MediaFactory builds Media instances around resolved binary paths.
type MediaFactory interface {
	NewMedia(ffmpegPath, ffprobePath string) Media
}

// ModelManager finds and downloads speech models.
type ModelManager interface {
	Root() string
	Find(langCode string, size model.Size) (string, bool)
	Ensure(ctx context.Context, name string, progress model.ProgressFunc) (string, error)
}

// ModelFactory builds model managers rooted at a storage directory.
type ModelFactory interface {
	NewManager(root string, stderr io.Writer) ModelManager
}

// RecognizerFactory creates speech recognizers.
type RecognizerFactory interface {
	NewVosk(media Media, modelDir string) recognize.Recognizer
	NewOpenAI(apiKey, langCode string) recognize.Recognizer
}

// EnvOption configures an Env.
type EnvOption func(*Env)

// WithStdout sets the stdout writer.
func WithStdout(w io.Writer) EnvOption {
	return func(e *Env) {
		e.Stdout = w
	}
}

// WithStderr sets the stderr writer.
func WithStderr(w io.Writer) EnvOption {
	return func(e *Env) {
		e.Stderr = w
	}
}

// WithGetenv sets the environment variable getter.
func WithGetenv(fn func(string) string) EnvOption {
	return func(e *Env) {
		e.Getenv = fn
	}
}

// WithResolverFactory sets the ffmpeg resolver factory.
func WithResolverFactory(f ResolverFactory) EnvOption {
	return func(e *Env) {
		e.ResolverFactory = f
	}
}

// WithVersionChecker sets the ffmpeg version checker.
func WithVersionChecker(vc VersionChecker) EnvOption {
	return func(e *Env) {
		e.VersionChecker = vc
	}
}

// WithConfigLoader sets the config loader.
func WithConfigLoader(l ConfigLoader) EnvOption {
	return func(e *Env) {
		e.ConfigLoader = l
	}
}

// WithMediaFactory sets the media factory.
func WithMediaFactory(f MediaFactory) EnvOption {
	return func(e *Env) {
		e.MediaFactory = f
	}
}

// WithModelFactory sets the model manager factory.
func WithModelFactory(f ModelFactory) EnvOption {
	return func(e *Env) {
		e.ModelFactory = f
	}
}

// WithRecognizerFactory sets the recognizer factory.
func WithRecognizerFactory(f RecognizerFactory) EnvOption {
	return func(e *Env) {
		e.RecognizerFactory = f
	}
}

// DefaultEnv returns an Env with production defaults.
func DefaultEnv() *Env {
	return &Env{
		Stdout:            os.Stdout,
		Stderr:            os.Stderr,
		Getenv:            os.Getenv,
		ResolverFactory:   &defaultResolverFactory{},
		VersionChecker:    ffmpeg.NewVersionChecker(),
		ConfigLoader:      &defaultConfigLoader{},
		MediaFactory:      &defaultMediaFactory{},
		ModelFactory:      &defaultModelFactory{},
		RecognizerFactory: &defaultRecognizerFactory{},
	}
}

// NewEnv creates an Env with the given options applied to defaults.
func NewEnv(opts ...EnvOption) *Env {
	env := DefaultEnv()
	for _, opt := range opts {
		opt(env)
	}
	return env
}

// DefaultModelRoot returns the directory where downloaded speech models live.
func DefaultModelRoot() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".chapterize", "models"), nil
}

// ---------------------------------------------------------------------------
// Default implementations - delegate to real packages
// ---------------------------------------------------------------------------

// defaultResolverFactory implements ResolverFactory using the ffmpeg package.
type defaultResolverFactory struct{}

func (defaultResolverFactory) NewResolver(configuredPath string, stderr io.Writer) FFmpegResolver {
	return ffmpeg.NewResolver(
		ffmpeg.WithConfiguredPath(configuredPath),
		ffmpeg.WithStderr(stderr),
	)
}

// defaultConfigLoader implements ConfigLoader using the config package.
type defaultConfigLoader struct{}

func (defaultConfigLoader) Load() (config.Config, error) {
	return config.Load()
}

// defaultMediaFactory implements MediaFactory using the ffmpeg package.
type defaultMediaFactory struct{}

func (defaultMediaFactory) NewMedia(ffmpegPath, ffprobePath string) Media {
	return ffmpeg.NewMedia(ffmpegPath, ffmpeg.WithProbePath(ffprobePath))
}

// defaultModelFactory implements ModelFactory using the model package.
type defaultModelFactory struct{}

func (defaultModelFactory) NewManager(root string, stderr io.Writer) ModelManager {
	return model.NewManager(root, model.WithStderr(stderr))
}

// defaultRecognizerFactory wires the vosk and OpenAI backends.
type defaultRecognizerFactory struct{}

func (defaultRecognizerFactory) NewVosk(media Media, modelDir string) recognize.Recognizer {
	return recognize.NewVosk(media, modelDir)
}

func (defaultRecognizerFactory) NewOpenAI(apiKey, langCode string) recognize.Recognizer {
	client := openai.NewClient(apiKey)
	return recognize.NewOpenAI(client, recognize.WithLanguageHint(langCode))
}

// Compile-time interface verification.
var (
	_ ResolverFactory   = (*defaultResolverFactory)(nil)
	_ FFmpegResolver    = (*ffmpeg.Resolver)(nil)
	_ VersionChecker    = (*ffmpeg.VersionChecker)(nil)
	_ ConfigLoader      = (*defaultConfigLoader)(nil)
	_ Media             = (*ffmpeg.Media)(nil)
	_ MediaFactory      = (*defaultMediaFactory)(nil)
	_ ModelManager      = (*model.Manager)(nil)
	_ ModelFactory      = (*defaultModelFactory)(nil)
	_ RecognizerFactory = (*defaultRecognizerFactory)(nil)
)
