package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"time"
)

// RunGraceful executes ffmpeg with graceful shutdown on context cancellation.
// When ctx is canceled, it sends 'q' to stdin to allow ffmpeg to finalize the
// output (write headers, close container), then waits up to timeout before
// killing. This works cross-platform unlike SIGTERM.
//
// When output is non-nil, ffmpeg's stdout and stderr are mirrored to it in
// addition to the captured error buffer (used for the split log file).
func RunGraceful(ctx context.Context, ffmpegPath string, args []string, timeout time.Duration, output io.Writer) error {
	cmd := exec.Command(ffmpegPath, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	// ffmpeg writes most output to stderr.
	var stderr bytes.Buffer
	if output != nil {
		cmd.Stdout = output
		cmd.Stderr = io.MultiWriter(&stderr, output)
	} else {
		cmd.Stderr = &stderr
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("ffmpeg: %w\nOutput: %s", err, stderr.String())
		}
		return nil

	case <-ctx.Done():
		// Request graceful exit so the partially written file stays valid.
		_, _ = io.WriteString(stdin, "q")
		_ = stdin.Close()

		select {
		case <-done:
			// Non-zero exit is expected after an interrupt; the file is valid.
			return nil

		case <-time.After(timeout):
			_ = cmd.Process.Kill()
			<-done // Wait for process to be reaped.
			return fmt.Errorf("%w: killed after %v", ErrTimeout, timeout)
		}
	}
}

// ---------------------------------------------------------------------------
// Executor - testable command execution with dependency injection
// ---------------------------------------------------------------------------

// runFn is the function type for running a command and capturing one stream.
type runFn func(ctx context.Context, path string, args []string) (string, error)

// Executor runs ffmpeg/ffprobe commands with injectable run functions.
type Executor struct {
	runStderr runFn
	runStdout runFn
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithRunStderr sets a custom stderr-capturing run function (for testing).
func WithRunStderr(fn runFn) ExecutorOption {
	return func(e *Executor) { e.runStderr = fn }
}

// WithRunStdout sets a custom stdout-capturing run function (for testing).
func WithRunStdout(fn runFn) ExecutorOption {
	return func(e *Executor) { e.runStdout = fn }
}

// NewExecutor creates an Executor with the given options.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{
		runStderr: defaultRunStderr,
		runStdout: defaultRunStdout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunOutput executes ffmpeg and captures its stderr output, where ffmpeg
// writes its diagnostics. The output is returned even when the command
// fails, since ffmpeg returns non-zero exit codes for some valid operations.
func (e *Executor) RunOutput(ctx context.Context, binPath string, args []string) (string, error) {
	return e.runStderr(ctx, binPath, args)
}

// RunStdout executes ffprobe and captures its stdout, where query results
// are printed.
func (e *Executor) RunStdout(ctx context.Context, binPath string, args []string) (string, error) {
	return e.runStdout(ctx, binPath, args)
}

func defaultRunStderr(ctx context.Context, binPath string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, binPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stderr.String(), err
}

func defaultRunStdout(ctx context.Context, binPath string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, binPath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s: %w\nOutput: %s", binPath, err, stderr.String())
	}
	return stdout.String(), nil
}
