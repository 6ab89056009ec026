package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/patrickenfuego/chapterize/internal/config"
	"github.com/patrickenfuego/chapterize/internal/ffmpeg"
	"github.com/patrickenfuego/chapterize/internal/format"
	"github.com/patrickenfuego/chapterize/internal/lang"
	"github.com/patrickenfuego/chapterize/internal/ledger"
	"github.com/patrickenfuego/chapterize/internal/model"
	"github.com/patrickenfuego/chapterize/internal/recognize"
	"github.com/patrickenfuego/chapterize/internal/segment"
)

// EnvOpenAIAPIKey is the environment variable holding the OpenAI API key.
const EnvOpenAIAPIKey = "OPENAI_API_KEY"

// defaultLanguage is used when neither the flag nor the config names one.
const defaultLanguage = "en-us"

// supportedFormats lists the audiobook container formats ffmpeg can split
// with stream copy.
var supportedFormats = map[string]bool{
	".m4b":  true,
	".m4a":  true,
	".mp3":  true,
	".aac":  true,
	".flac": true,
	".ogg":  true,
	".wav":  true,
}

// supportedFormatsList returns a sorted, comma-separated list for error messages.
func supportedFormatsList() string {
	formats := make([]string, 0, len(supportedFormats))
	for ext := range supportedFormats {
		formats = append(formats, strings.TrimPrefix(ext, "."))
	}
	slices.Sort(formats)
	return strings.Join(formats, ", ")
}

// chapterizeOptions collects the root command's flag values.
type chapterizeOptions struct {
	outputDir     string
	language      string
	modelSize     string
	cuePath       string
	writeLedger   bool
	useOpenAI     bool
	experimental  bool
	profilesFile  string
	listLanguages bool

	// user-supplied metadata, overriding whatever the source file carries
	author      string
	title       string
	narrator    string
	genre       string
	year        string
	comment     string
	description string
	coverArt    string
}

// ChapterizeCmd creates the root command running the full pipeline.
// The env parameter provides injectable dependencies for testing.
func ChapterizeCmd(env *Env) *cobra.Command {
	var opts chapterizeOptions

	cmd := &cobra.Command{
		Use:   "chapterize <audiobook>",
		Short: "Split an audiobook into chapter files",
		Long: `Split a single-file audiobook into per-chapter files in the same format.

Chapter boundaries are detected from the narration itself: the audio is
transcribed with a local vosk speech model (or OpenAI's API with --openai),
and spoken markers like "chapter", "prologue", and "epilogue" become track
boundaries. The transcript is cached in an .srt file beside the source, and
detected chapters can be exported to an editable .cue file for correcting
the occasional miss before re-running.

Supported formats: ` + supportedFormatsList(),
		Example: `  chapterize book.m4b
  chapterize book.m4b -l german -m large
  chapterize book.m4b -l french --profiles fr.yaml  # custom marker profile
  chapterize book.m4b --generate-cue-file   # export chapters for hand-editing
  chapterize book.m4b --cue-path fixed.cue  # split from an edited cue file
  chapterize book.m4b --openai              # transcribe via OpenAI API
  chapterize --list-languages`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.listLanguages {
				renderLanguageTable(env.Stdout)
				return nil
			}
			if len(args) != 1 {
				return fmt.Errorf("%w: expected exactly one audiobook file", ErrUsage)
			}
			return runChapterize(cmd.Context(), env, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.outputDir, "output-dir", "o", "", "Directory for chapter files (default: beside the source)")
	cmd.Flags().StringVarP(&opts.language, "language", "l", "", "Audiobook language (name or code, e.g. english, en-us)")
	cmd.Flags().StringVarP(&opts.modelSize, "model", "m", "", "Speech model size: small, large (default: small)")
	cmd.Flags().StringVar(&opts.cuePath, "cue-path", "", "Chapter cue file to read or write")
	cmd.Flags().BoolVar(&opts.writeLedger, "generate-cue-file", false, "Write detected chapters to a cue file")
	cmd.Flags().BoolVar(&opts.useOpenAI, "openai", false, "Transcribe with OpenAI's API instead of a local model")
	cmd.Flags().BoolVar(&opts.experimental, "experimental", false, "Also detect preface, introduction, and foreword markers")
	cmd.Flags().StringVar(&opts.profilesFile, "profiles", "", "YAML file with custom chapter marker profiles")
	cmd.Flags().BoolVar(&opts.listLanguages, "list-languages", false, "List supported languages and exit")

	cmd.Flags().StringVarP(&opts.author, "author", "a", "", "Author name (tagged as album_artist and artist)")
	cmd.Flags().StringVarP(&opts.title, "title", "t", "", "Audiobook title (tagged as album)")
	cmd.Flags().StringVarP(&opts.narrator, "narrator", "n", "", "Narrator name (tagged as composer)")
	cmd.Flags().StringVarP(&opts.genre, "genre", "g", "Audiobook", "Genre tag for the chapter files")
	cmd.Flags().StringVarP(&opts.year, "year", "y", "", "Release year (tagged as date)")
	cmd.Flags().StringVarP(&opts.comment, "comment", "c", "", "Comment tag for the chapter files")
	cmd.Flags().StringVarP(&opts.description, "description", "d", "", "Description tag for the chapter files")
	cmd.Flags().StringVar(&opts.coverArt, "cover-art", "", "Cover art image to embed (default: extracted from the source)")

	return cmd
}

// runChapterize executes the pipeline.
// Validation order: file exists -> format -> language -> model size, then
// ffmpeg setup, timecode generation, and the split loop.
func runChapterize(ctx context.Context, env *Env, inputPath string, opts chapterizeOptions) error {
	started := time.Now()

	// === VALIDATION (fail-fast) ===

	if _, err := os.Stat(inputPath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, inputPath)
		}
		return fmt.Errorf("cannot access input file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(inputPath))
	if !supportedFormats[ext] {
		return fmt.Errorf("unsupported format %q (supported: %s): %w",
			ext, supportedFormatsList(), ErrUnsupportedFormat)
	}

	cfg, err := env.ConfigLoader.Load()
	if err != nil {
		fmt.Fprintf(env.Stderr, "Warning: failed to load config: %v\n", err)
	}

	language := firstNonEmpty(opts.language, cfg.Language, defaultLanguage)
	langCode, err := lang.Resolve(language)
	if err != nil {
		return err
	}

	registry := lang.NewRegistry()
	if opts.profilesFile != "" {
		if err := registry.MergeFile(opts.profilesFile); err != nil {
			return err
		}
	}
	profile, err := registry.Lookup(langCode)
	if err != nil {
		return err
	}

	size := model.Size(firstNonEmpty(opts.modelSize, cfg.ModelSize, string(model.Small)))
	if !size.Valid() {
		return fmt.Errorf("%w: invalid model size %q (valid: small, large)",
			model.ErrUnsupportedModel, size)
	}

	apiKey := ""
	if opts.useOpenAI {
		apiKey = env.Getenv(EnvOpenAIAPIKey)
		if apiKey == "" {
			return fmt.Errorf("%w (set it with: export %s=sk-...)", ErrAPIKeyMissing, EnvOpenAIAPIKey)
		}
	}

	// === SETUP ===

	// Resolve ffmpeg (may auto-download) and its sibling ffprobe.
	resolver := env.ResolverFactory.NewResolver(cfg.FFmpegPath, env.Stderr)
	ffmpegPath, err := resolver.Resolve(ctx)
	if err != nil {
		return err
	}
	env.VersionChecker.Check(ctx, ffmpegPath)

	ffprobePath, err := resolver.ResolveProbe(ffmpegPath)
	if err != nil {
		fmt.Fprintf(env.Stderr, "Warning: %v (duration detection disabled)\n", err)
	}

	media := env.MediaFactory.NewMedia(ffmpegPath, ffprobePath)

	warn := func(msg string) { fmt.Fprintln(env.Stderr, msg) }

	tags, err := media.ExtractMetadata(ctx, inputPath)
	if err != nil {
		fmt.Fprintf(env.Stderr, "Warning: could not read source metadata: %v\n", err)
		tags = map[string]string{}
	}
	mergeUserTags(tags, opts)

	coverArt := ""
	if opts.coverArt != "" {
		if _, statErr := os.Stat(opts.coverArt); statErr != nil {
			fmt.Fprintf(env.Stderr, "Warning: cover art path does not exist: %s\n", opts.coverArt)
		} else {
			coverArt = opts.coverArt
		}
	}
	if coverArt == "" {
		coverArt, err = media.ExtractCoverArt(ctx, inputPath)
		if err != nil {
			fmt.Fprintf(env.Stderr, "Warning: could not extract cover art: %v\n", err)
			coverArt = ""
		}
	}

	finalDuration := ""
	if ffprobePath != "" {
		finalDuration, err = media.Duration(ctx, inputPath)
		if err != nil {
			fmt.Fprintf(env.Stderr, "Warning: could not read duration: %v\n", err)
			finalDuration = ""
		}
	}

	// === TIMECODES ===

	// A cue file short-circuits transcription entirely: it is the
	// hand-corrected record of a previous run.
	cuePath := firstNonEmpty(opts.cuePath, cfg.LedgerPath, siblingCuePath(inputPath))

	var segments []segment.Segment
	fromLedger := false
	if _, statErr := os.Stat(cuePath); statErr == nil {
		fmt.Fprintf(env.Stderr, "Using chapters from %s\n", filepath.Base(cuePath))
		segments, err = ledger.Read(cuePath)
		if err != nil {
			return err
		}
		fromLedger = true
	} else {
		segments, err = detectSegments(ctx, env, media, inputPath, detectParams{
			profile:       profile,
			langCode:      langCode,
			size:          size,
			apiKey:        apiKey,
			experimental:  opts.experimental,
			finalDuration: finalDuration,
			warn:          warn,
		})
		if err != nil {
			return err
		}
	}

	if (opts.writeLedger || cfg.WriteLedger) && !fromLedger {
		if err := ledger.Write(segments, cuePath, inputPath); err != nil {
			fmt.Fprintf(env.Stderr, "Warning: could not write cue file: %v\n", err)
		} else {
			fmt.Fprintf(env.Stderr, "Wrote cue file: %s\n", cuePath)
		}
	}

	renderSegmentTable(env.Stdout, segments)

	// === SPLIT ===

	outputDir := config.ExpandPath(firstNonEmpty(opts.outputDir, cfg.OutputDir, filepath.Dir(inputPath)))
	if err := config.EnsureOutputDir(outputDir); err != nil {
		return err
	}

	splitLog, err := ffmpeg.OpenSplitLog(outputDir)
	if err != nil {
		return fmt.Errorf("cannot open split log: %w", err)
	}
	defer func() { _ = splitLog.Close() }()

	stem := strings.TrimSuffix(filepath.Base(inputPath), ext)
	failed := 0
	for i, seg := range segments {
		outName := chapterFilename(stem, ext, i+1, seg.Label)
		fmt.Fprintf(env.Stderr, "Writing %s\n", outName)

		job := ffmpeg.SplitJob{
			Source:   inputPath,
			Output:   filepath.Join(outputDir, outName),
			Start:    seg.Start,
			End:      seg.End,
			Title:    seg.Label,
			Track:    i + 1,
			Total:    len(segments),
			Tags:     tags,
			CoverArt: coverArt,
		}
		if err := media.SplitSegment(ctx, job, splitLog); err != nil {
			fmt.Fprintf(env.Stderr, "Warning: chapter %d (%s) failed: %v\n", i+1, seg.Label, err)
			failed++
		}
	}

	// Reconcile expected vs produced. Missing chapters mean a hand-edit of
	// the cue file or a re-run, not a failed batch.
	if failed > 0 {
		fmt.Fprintf(env.Stderr, "Warning: %d of %d chapters failed (see %s)\n",
			failed, len(segments), filepath.Join(outputDir, ffmpeg.SplitLogName))
	}

	fmt.Fprintf(env.Stderr, "Done: %d chapters in %s (%s)\n",
		len(segments)-failed, outputDir, format.DurationHuman(time.Since(started)))
	return nil
}

// mergeUserTags overlays CLI-supplied metadata on the extracted tags; user
// values win.
func mergeUserTags(tags map[string]string, opts chapterizeOptions) {
	overrides := map[string]string{
		"album_artist": opts.author,
		"album":        opts.title,
		"narrator":     opts.narrator,
		"genre":        opts.genre,
		"date":         opts.year,
		"comment":      opts.comment,
		"description":  opts.description,
	}
	for key, value := range overrides {
		if value != "" {
			tags[key] = value
		}
	}
}

// chapterFilename names an output chapter file, falling back to a bare track
// number when the segment carries no label. Chapters keep the source's
// extension: the split is a stream copy, so the codec only fits the
// container it came from.
func chapterFilename(stem, ext string, track int, label string) string {
	if label == "" {
		return fmt.Sprintf("%s - %02d%s", stem, track, ext)
	}
	return fmt.Sprintf("%s %02d - %s%s", stem, track, sanitizeFilename(label), ext)
}

// detectParams bundles the inputs of the transcription+detection path.
type detectParams struct {
	profile       lang.Profile
	langCode      string
	size          model.Size
	apiKey        string
	experimental  bool
	finalDuration string
	warn          func(string)
}

// detectSegments transcribes the audiobook and derives chapter boundaries
// from the spoken markers.
func detectSegments(ctx context.Context, env *Env, media Media, inputPath string, p detectParams) ([]segment.Segment, error) {
	var recognizer recognize.Recognizer
	if p.apiKey != "" {
		recognizer = env.RecognizerFactory.NewOpenAI(p.apiKey, p.langCode)
	} else {
		modelDir, err := ensureModel(ctx, env, p.langCode, p.size)
		if err != nil {
			return nil, err
		}
		recognizer = env.RecognizerFactory.NewVosk(media, modelDir)
	}

	fmt.Fprintln(env.Stderr, "Transcribing... this runs at roughly realtime speed on large books")
	cues, err := recognize.TranscribeWithCache(ctx, recognizer, inputPath, p.warn)
	if err != nil {
		return nil, err
	}

	segmenter := segment.New(p.profile,
		segment.WithExperimental(p.experimental),
		segment.WithWarnFunc(p.warn),
	)
	return segmenter.Segment(cues, p.finalDuration)
}

// ensureModel finds a locally extracted speech model, downloading it when
// missing.
func ensureModel(ctx context.Context, env *Env, langCode string, size model.Size) (string, error) {
	root, err := DefaultModelRoot()
	if err != nil {
		return "", fmt.Errorf("cannot determine model directory: %w", err)
	}

	mgr := env.ModelFactory.NewManager(root, env.Stderr)
	if dir, ok := mgr.Find(langCode, size); ok {
		return dir, nil
	}

	name, err := model.Resolve(langCode, size)
	if err != nil {
		return "", err
	}

	fmt.Fprintf(env.Stderr, "Downloading speech model %s...\n", name)
	return mgr.Ensure(ctx, name, func(done, total int64) {
		fmt.Fprintf(env.Stderr, "\r  %s", format.Progress(done, total))
		if total > 0 && done >= total {
			fmt.Fprintln(env.Stderr)
		}
	})
}

// siblingCuePath returns the default cue file path beside the audiobook.
func siblingCuePath(inputPath string) string {
	return strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + ".cue"
}

// firstNonEmpty returns the first non-empty string, encoding the
// flag > config > default precedence.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// filenameReplacer strips characters that break paths on common filesystems.
var filenameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "",
	"?", "",
	"\"", "'",
	"<", "(",
	">", ")",
	"|", "-",
)

// sanitizeFilename makes a chapter label safe to use in an output filename.
func sanitizeFilename(label string) string {
	return strings.TrimSpace(filenameReplacer.Replace(label))
}
