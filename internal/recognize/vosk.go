package recognize

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/patrickenfuego/chapterize/internal/cue"
	"github.com/patrickenfuego/chapterize/internal/ffmpeg"
)

// voskBinaryName is the CLI installed alongside the vosk package.
const voskBinaryName = "vosk-transcriber"

// envVoskPath overrides the vosk-transcriber lookup.
const envVoskPath = "VOSK_TRANSCRIBER_PATH"

// pcmStreamer demuxes an audio file into the raw PCM stream vosk consumes.
// *ffmpeg.Media implements it.
type pcmStreamer interface {
	StreamPCM(ctx context.Context, path string) (io.ReadCloser, ffmpeg.WaitFunc, error)
}

// voskRunFn runs the recognizer binary over a PCM stream and returns its SRT
// output. Injectable for tests.
type voskRunFn func(ctx context.Context, modelDir string, pcm io.Reader) (string, error)

var _ Recognizer = (*VoskRecognizer)(nil)

// VoskRecognizer transcribes locally through the vosk-transcriber CLI,
// fed 16 kHz mono PCM demuxed by ffmpeg. The two subprocesses run
// concurrently with the pipe providing back-pressure, so a ten-hour
// audiobook never materializes as raw PCM on disk.
type VoskRecognizer struct {
	media    pcmStreamer
	modelDir string
	run      voskRunFn
}

// VoskOption configures a VoskRecognizer.
type VoskOption func(*VoskRecognizer)

// WithVoskRun sets a custom binary run function (for testing).
func WithVoskRun(fn voskRunFn) VoskOption {
	return func(v *VoskRecognizer) { v.run = fn }
}

// NewVosk creates a recognizer around an extracted model directory.
func NewVosk(media pcmStreamer, modelDir string, opts ...VoskOption) *VoskRecognizer {
	v := &VoskRecognizer{
		media:    media,
		modelDir: modelDir,
		run:      runVoskBinary,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Transcribe demuxes the audiobook to PCM and pipes it through the vosk CLI,
// returning the parsed SRT cues.
func (v *VoskRecognizer) Transcribe(ctx context.Context, audioPath string) ([]cue.Cue, error) {
	g, gctx := errgroup.WithContext(ctx)

	pcm, wait, err := v.media.StreamPCM(gctx, audioPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTranscription, err)
	}

	pr, pw := io.Pipe()

	// Producer: pump demuxed PCM into the recognizer. The pipe provides
	// back-pressure, so ffmpeg stalls while vosk catches up.
	g.Go(func() error {
		_, copyErr := io.Copy(pw, pcm)
		if errors.Is(copyErr, io.ErrClosedPipe) {
			// The recognizer finished without draining the stream.
			copyErr = nil
		}
		_ = pcm.Close()
		waitErr := wait()
		if copyErr != nil {
			_ = pw.CloseWithError(copyErr)
			return copyErr
		}
		if waitErr != nil {
			_ = pw.CloseWithError(waitErr)
			return fmt.Errorf("pcm demux: %w", waitErr)
		}
		return pw.Close()
	})

	// Consumer: the vosk CLI reading PCM from the pipe.
	var output string
	g.Go(func() error {
		out, err := v.run(gctx, v.modelDir, pr)
		if err != nil {
			_ = pr.CloseWithError(err)
			return err
		}
		_ = pr.Close()
		output = out
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTranscription, err)
	}

	cues, err := cue.Parse(strings.NewReader(output))
	if err != nil {
		return nil, fmt.Errorf("%w: parse recognizer output: %v", ErrTranscription, err)
	}
	return cues, nil
}

// lookupVoskBinary finds the vosk-transcriber CLI, honoring the env override.
func lookupVoskBinary() (string, error) {
	if path := os.Getenv(envVoskPath); path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("%w: %s is set to %q but binary not found",
				ErrBinaryNotFound, envVoskPath, path)
		}
		return path, nil
	}
	path, err := exec.LookPath(voskBinaryName)
	if err != nil {
		return "", fmt.Errorf("%w: install it with 'pip install vosk' or set %s",
			ErrBinaryNotFound, envVoskPath)
	}
	return path, nil
}

// runVoskBinary is the production run function: SRT on stdout, PCM on stdin.
func runVoskBinary(ctx context.Context, modelDir string, pcm io.Reader) (string, error) {
	binary, err := lookupVoskBinary()
	if err != nil {
		return "", err
	}

	cmd := exec.CommandContext(ctx, binary,
		"--model", modelDir,
		"--input", "-",
		"--output-type", "srt",
	)
	cmd.Stdin = pcm

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("vosk-transcriber: %w\nOutput: %s", err, stderr.String())
	}
	return stdout.String(), nil
}
