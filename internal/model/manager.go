package model

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// downloadBaseURL is where alphacephei publishes the model archives.
const downloadBaseURL = "https://alphacephei.com/vosk/models"

// downloadTimeout bounds one model download. Large models run to ~2GB.
const downloadTimeout = 60 * time.Minute

// maxModelFileSize caps a single extracted file to guard against zip bombs.
// The largest files inside vosk models (the HCLG graphs) stay well under this.
const maxModelFileSize = 4 << 30

// ProgressFunc receives download progress. total is -1 when the server did
// not send a Content-Length.
type ProgressFunc func(done, total int64)

// httpDoer abstracts the HTTP client for testing.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Manager downloads and unpacks vosk models under a root directory.
type Manager struct {
	root   string
	http   httpDoer
	stderr io.Writer
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithHTTPClient sets the HTTP client implementation.
func WithHTTPClient(c httpDoer) ManagerOption {
	return func(m *Manager) { m.http = c }
}

// WithStderr sets the writer for status messages.
func WithStderr(w io.Writer) ManagerOption {
	return func(m *Manager) { m.stderr = w }
}

// NewManager creates a Manager rooted at dir.
func NewManager(dir string, opts ...ManagerOption) *Manager {
	m := &Manager{
		root:   dir,
		http:   &http.Client{Timeout: downloadTimeout},
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Root returns the model root directory.
func (m *Manager) Root() string {
	return m.root
}

// Find looks for an already-extracted model directory for a language code,
// preferring the directory matching the requested size when more than one
// is present.
func (m *Manager) Find(langCode string, size Size) (string, bool) {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		return "", false
	}

	var matches []string
	for _, entry := range entries {
		if entry.IsDir() && strings.Contains(entry.Name(), langCode) {
			matches = append(matches, entry.Name())
		}
	}
	if len(matches) == 0 {
		return "", false
	}

	if len(matches) > 1 {
		for _, name := range matches {
			if (size == Small) == strings.Contains(name, "small") {
				return filepath.Join(m.root, name), true
			}
		}
	}
	return filepath.Join(m.root, matches[0]), true
}

// Ensure makes sure the named model is extracted under the root and returns
// its directory. An existing directory short-circuits the download. progress
// may be nil.
func (m *Manager) Ensure(ctx context.Context, name string, progress ProgressFunc) (string, error) {
	dir := filepath.Join(m.root, name)
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return dir, nil
	}

	if err := os.MkdirAll(m.root, 0o750); err != nil {
		return "", fmt.Errorf("create model root: %w", err)
	}

	zipPath := filepath.Join(m.root, name+".zip")
	if err := m.download(ctx, name, zipPath, progress); err != nil {
		_ = os.Remove(zipPath)
		return "", err
	}

	if err := extractZip(zipPath, dir); err != nil {
		_ = os.RemoveAll(dir)
		return "", fmt.Errorf("%w: %s: %v (extract the archive at %s manually and re-run)",
			ErrExtract, name, err, zipPath)
	}
	_ = os.Remove(zipPath)

	if err := flattenNested(dir, name); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrExtract, name, err)
	}

	fmt.Fprintln(m.stderr, "Model downloaded and extracted successfully")
	return dir, nil
}

// download fetches the model archive into zipPath, reporting progress.
func (m *Manager) download(ctx context.Context, name, zipPath string, progress ProgressFunc) error {
	url := fmt.Sprintf("%s/%s.zip", downloadBaseURL, name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: invalid URL: %v", ErrDownloadFailed, err)
	}

	resp, err := m.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: HTTP %d from %s (the model may not exist; download one manually from %s)",
			ErrDownloadFailed, resp.StatusCode, url, downloadBaseURL)
	}

	out, err := os.Create(zipPath) // #nosec G304 -- path derived from catalog name
	if err != nil {
		return fmt.Errorf("create model archive: %w", err)
	}

	total := resp.ContentLength
	var done int64
	buf := make([]byte, 256*1024)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := out.Write(buf[:n]); writeErr != nil {
				_ = out.Close()
				return fmt.Errorf("%w: write archive: %v", ErrDownloadFailed, writeErr)
			}
			done += int64(n)
			if progress != nil {
				progress(done, total)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			_ = out.Close()
			return fmt.Errorf("%w: %v", ErrDownloadFailed, readErr)
		}
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("%w: close archive: %v", ErrDownloadFailed, err)
	}
	if done == 0 {
		return fmt.Errorf("%w: empty response from %s", ErrDownloadFailed, url)
	}
	return nil
}

// extractZip unpacks a zip archive into destDir, refusing paths that escape it.
func extractZip(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer r.Close()

	if err := os.MkdirAll(destDir, 0o750); err != nil {
		return fmt.Errorf("create model directory: %w", err)
	}

	for _, f := range r.File {
		if err := extractZipFile(f, destDir); err != nil {
			return err
		}
	}
	return nil
}

func extractZipFile(f *zip.File, destDir string) error {
	target := filepath.Join(destDir, filepath.Clean(f.Name))
	if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return fmt.Errorf("archive entry escapes destination: %s", f.Name)
	}

	if f.FileInfo().IsDir() {
		return os.MkdirAll(target, 0o750)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return fmt.Errorf("create directory for %s: %w", f.Name, err)
	}

	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("open archive entry %s: %w", f.Name, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644) // #nosec G304 -- escape checked above
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}

	written, err := io.Copy(dst, io.LimitReader(src, maxModelFileSize))
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("extract %s: %w", f.Name, err)
	}
	if written >= maxModelFileSize {
		return fmt.Errorf("archive entry %s exceeds size limit", f.Name)
	}
	return nil
}

// flattenNested lifts a model that extracted into a same-named nested
// directory (dir/name/...) up to dir itself.
func flattenNested(dir, name string) error {
	nested := filepath.Join(dir, name)
	info, err := os.Stat(nested)
	if err != nil || !info.IsDir() {
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	if len(entries) != 1 {
		return nil // other content beside the nested dir, leave it alone
	}

	tmp := dir + ".flatten"
	if err := os.Rename(nested, tmp); err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.Rename(tmp, dir)
}
