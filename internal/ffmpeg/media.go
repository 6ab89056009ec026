package ffmpeg

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// minArtifactSize is the size below which an extracted metadata or cover-art
// file is treated as empty. ffmpeg writes a header line even when a file has
// no tags.
const minArtifactSize = 10

// splitTimeout is the grace period given to an interrupted split command
// before it is killed.
const splitTimeout = 10 * time.Second

// SplitLogName is the name of the per-directory split log file.
const SplitLogName = "ffmpeg_log.txt"

// wantedTags are the source-file tags carried over to the chapter files.
var wantedTags = map[string]bool{
	"title":        true,
	"genre":        true,
	"album_artist": true,
	"artist":       true,
	"album":        true,
	"year":         true,
	"date":         true,
	"comment":      true,
	"description":  true,
}

// sexagesimalPattern matches ffprobe's -sexagesimal duration output,
// e.g. "9:41:12.973000".
var sexagesimalPattern = regexp.MustCompile(`^(\d+):(\d\d):(\d\d)\.(\d+)`)

// Media wraps the media operations of the chapterize pipeline around
// resolved ffmpeg/ffprobe binaries.
type Media struct {
	ffmpegPath  string
	ffprobePath string
	exec        *Executor
}

// MediaOption configures Media.
type MediaOption func(*Media)

// WithProbePath sets the resolved ffprobe path. Without it, operations that
// need ffprobe return ErrProbeNotFound.
func WithProbePath(path string) MediaOption {
	return func(m *Media) { m.ffprobePath = path }
}

// WithExecutor sets the command executor (for testing).
func WithExecutor(e *Executor) MediaOption {
	return func(m *Media) { m.exec = e }
}

// NewMedia creates a Media wrapper around a resolved ffmpeg binary.
func NewMedia(ffmpegPath string, opts ...MediaOption) *Media {
	m := &Media{
		ffmpegPath: ffmpegPath,
		exec:       NewExecutor(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ExtractMetadata reads the source file's tags through ffmpeg's ffmetadata
// muxer and returns the ones worth carrying to the chapter files. An empty
// map with a nil error means the file simply has no usable tags.
func (m *Media) ExtractMetadata(ctx context.Context, audiobook string) (map[string]string, error) {
	tmp, err := os.CreateTemp(filepath.Dir(audiobook), ".metadata-*.txt")
	if err != nil {
		return nil, fmt.Errorf("create metadata temp file: %w", err)
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	defer func() { _ = os.Remove(tmpPath) }()

	_, _ = m.exec.RunOutput(ctx, m.ffmpegPath, []string{
		"-y", "-loglevel", "quiet", "-i", audiobook, "-f", "ffmetadata", tmpPath,
	})

	info, err := os.Stat(tmpPath)
	if err != nil || info.Size() <= minArtifactSize {
		return map[string]string{}, nil
	}

	data, err := os.ReadFile(tmpPath) // #nosec G304 -- temp file created above
	if err != nil {
		return nil, fmt.Errorf("read extracted metadata: %w", err)
	}

	tags := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if wantedTags[strings.ToLower(key)] {
			tags[strings.ToLower(key)] = strings.TrimRight(value, "\r")
		}
	}
	return tags, nil
}

// ExtractCoverArt pulls embedded cover art into a sibling .jpg file and
// returns its path, or "" when the source carries no art. An existing
// sibling .jpg is reused as-is.
func (m *Media) ExtractCoverArt(ctx context.Context, audiobook string) (string, error) {
	art := strings.TrimSuffix(audiobook, filepath.Ext(audiobook)) + ".jpg"
	if info, err := os.Stat(art); err == nil && info.Size() > minArtifactSize {
		return art, nil
	}

	_, _ = m.exec.RunOutput(ctx, m.ffmpegPath, []string{
		"-y", "-loglevel", "quiet", "-i", audiobook, "-an", "-c:v", "copy", art,
	})

	info, err := os.Stat(art)
	if err != nil || info.Size() <= minArtifactSize {
		_ = os.Remove(art)
		return "", nil
	}
	return art, nil
}

// Duration returns the container duration as a canonical HH:MM:SS.mmm
// string, used as the hard end bound of the final chapter.
func (m *Media) Duration(ctx context.Context, audiobook string) (string, error) {
	if m.ffprobePath == "" {
		return "", ErrProbeNotFound
	}

	out, err := m.exec.RunStdout(ctx, m.ffprobePath, []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		"-sexagesimal",
		audiobook,
	})
	if err != nil {
		return "", fmt.Errorf("probe duration: %w", err)
	}

	normalized, ok := normalizeSexagesimal(strings.TrimSpace(out))
	if !ok {
		return "", fmt.Errorf("probe duration: unexpected output %q", strings.TrimSpace(out))
	}
	return normalized, nil
}

// normalizeSexagesimal converts ffprobe's H:MM:SS.micro form to the
// two-digit-hour, millisecond form used everywhere else.
func normalizeSexagesimal(raw string) (string, bool) {
	m := sexagesimalPattern.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	frac := m[4]
	if len(frac) > 3 {
		frac = frac[:3]
	}
	for len(frac) < 3 {
		frac += "0"
	}
	hours := m[1]
	if len(hours) < 2 {
		hours = "0" + hours
	}
	return fmt.Sprintf("%s:%s:%s.%s", hours, m[2], m[3], frac), true
}

// WaitFunc reaps a streaming subprocess; it must be called exactly once
// after the reader is drained or abandoned.
type WaitFunc func() error

// StreamPCM starts an ffmpeg demux of the audiobook into the 16 kHz mono
// s16le stream the speech recognizer consumes, returned as a live pipe.
func (m *Media) StreamPCM(ctx context.Context, audiobook string) (io.ReadCloser, WaitFunc, error) {
	cmd := exec.CommandContext(ctx, m.ffmpegPath,
		"-loglevel", "quiet",
		"-i", audiobook,
		"-ar", "16000",
		"-ac", "1",
		"-f", "s16le",
		"-",
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("create pcm pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("start pcm demux: %w", err)
	}
	return stdout, cmd.Wait, nil
}

// SplitJob describes one chapter extraction.
type SplitJob struct {
	Source   string            // input audiobook
	Output   string            // chapter file to create
	Start    string            // HH:MM:SS.mmm
	End      string            // "" for open-ended (to end of file)
	Title    string            // chapter label, written as the title tag
	Track    int               // 1-based track number
	Total    int               // total track count
	Tags     map[string]string // carried-over source tags
	CoverArt string            // "" when the source has no art
}

// SplitSegment trims one chapter out of the source without re-encoding and
// writes tags, track numbering, and cover art. The chapter keeps the source's
// container, so the stream copy always has somewhere valid to land. All
// ffmpeg output goes to log.
func (m *Media) SplitSegment(ctx context.Context, job SplitJob, log io.Writer) error {
	args := splitArgs(job)

	if log != nil {
		fmt.Fprint(log, "----------------------------------------------------\n\n")
	}
	if err := RunGraceful(ctx, m.ffmpegPath, args, splitTimeout, log); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSplit, filepath.Base(job.Output), err)
	}
	return nil
}

// splitArgs builds the ffmpeg argument list for one chapter. Container
// quirks live here: id3v2.3 tagging is mp3-only, and cover art is embedded
// as an APIC frame for mp3 or an attached_pic stream for mp4-family
// containers. Other containers get the audio stream and tags only.
func splitArgs(job SplitJob) []string {
	ext := strings.ToLower(filepath.Ext(job.Output))

	args := []string{"-y", "-hide_banner", "-loglevel", "info"}
	args = append(args, "-ss", job.Start)
	if job.End != "" {
		args = append(args, "-to", job.End)
	}
	args = append(args, "-i", job.Source)

	var stream []string
	switch {
	case job.CoverArt != "" && ext == ".mp3":
		args = append(args, "-i", job.CoverArt,
			"-id3v2_version", "3",
			"-metadata:s:v", "comment=Cover (front)")
		stream = []string{"-map", "0:0", "-map", "1:0", "-c", "copy"}
	case job.CoverArt != "" && (ext == ".m4b" || ext == ".m4a"):
		args = append(args, "-i", job.CoverArt)
		stream = []string{"-map", "0:0", "-map", "1:0", "-c", "copy", "-disposition:v:0", "attached_pic"}
	default:
		if ext == ".mp3" {
			args = append(args, "-id3v2_version", "3")
		}
		stream = []string{"-c", "copy"}
	}

	// The album artist doubles as the track artist; audiobook files rarely
	// tag both.
	if v, ok := job.Tags["album_artist"]; ok {
		args = append(args, "-metadata", "album_artist="+v, "-metadata", "artist="+v)
	}
	for _, key := range []string{"genre", "album", "date", "comment", "description"} {
		if v, ok := job.Tags[key]; ok {
			args = append(args, "-metadata", key+"="+v)
		}
	}
	if v, ok := job.Tags["narrator"]; ok {
		args = append(args, "-metadata", "composer="+v)
	}

	args = append(args, stream...)
	args = append(args,
		"-metadata", fmt.Sprintf("track=%d/%d", job.Track, job.Total),
		"-metadata", "title="+job.Title,
		job.Output,
	)
	return args
}

// OpenSplitLog opens (or creates) the append-only split log in dir and
// writes a run banner when the log already has content from previous runs.
func OpenSplitLog(dir string) (io.WriteCloser, error) {
	path := filepath.Join(dir, SplitLogName)
	info, statErr := os.Stat(path)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644) // #nosec G304 -- derived from the source directory
	if err != nil {
		return nil, fmt.Errorf("open split log: %w", err)
	}

	if statErr == nil && info.Size() > 0 {
		fmt.Fprint(f,
			"********************************************************\n"+
				"NEW LOG START\n"+
				"********************************************************\n\n")
	}
	return f, nil
}
