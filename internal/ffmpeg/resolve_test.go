package ffmpeg

// Notes:
// - Tests for pure functions verifyChecksum and decompressGzip using t.TempDir()
// - White-box testing (same package) required since functions are unexported
// - Resolver tests use mock implementations of fileReader, fileWriter, envProvider
// - HTTP download tests use httptest.Server for realistic HTTP behavior

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// verifyChecksum - SHA256 verification
// ---------------------------------------------------------------------------

func TestVerifyChecksum(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	filePath := filepath.Join(tmpDir, "testfile")
	content := []byte("hello world")
	if err := os.WriteFile(filePath, content, 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	h := sha256.Sum256(content)
	expectedSHA := hex.EncodeToString(h[:])

	if err := verifyChecksum(filePath, expectedSHA); err != nil {
		t.Errorf("verifyChecksum(%q, %q) unexpected error: %v", filePath, expectedSHA, err)
	}
}

func TestVerifyChecksumMismatch(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	filePath := filepath.Join(tmpDir, "testfile")
	if err := os.WriteFile(filePath, []byte("actual content"), 0644); err != nil {
		t.Fatalf("setup: failed to write test file: %v", err)
	}

	wrongSHA := "0000000000000000000000000000000000000000000000000000000000000000"

	err := verifyChecksum(filePath, wrongSHA)
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("verifyChecksum(%q, %q) error = %v, want ErrChecksumMismatch", filePath, wrongSHA, err)
	}
}

// ---------------------------------------------------------------------------
// decompressGzip - gzip extraction with size limit
// ---------------------------------------------------------------------------

func TestDecompressGzip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content []byte
	}{
		{name: "simple text", content: []byte("hello world from gzip")},
		{name: "empty content", content: []byte{}},
		{name: "binary content", content: bytes.Repeat([]byte{0x00, 0xFF, 0x7F}, 100)},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tmpDir := t.TempDir()
			gzPath := filepath.Join(tmpDir, "test.gz")
			createGzipFile(t, gzPath, tt.content)

			destPath := filepath.Join(tmpDir, "output")
			if err := decompressGzip(gzPath, destPath); err != nil {
				t.Fatalf("decompressGzip(%q, %q) unexpected error: %v", gzPath, destPath, err)
			}

			got, err := os.ReadFile(destPath)
			if err != nil {
				t.Fatalf("setup: failed to read output: %v", err)
			}
			if !bytes.Equal(got, tt.content) {
				t.Errorf("decompressGzip(%q, %q) wrote %d bytes, want %d bytes", gzPath, destPath, len(got), len(tt.content))
			}
		})
	}
}

func TestDecompressGzipInvalidGzip(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	gzPath := filepath.Join(tmpDir, "invalid.gz")
	if err := os.WriteFile(gzPath, []byte("not a gzip file"), 0644); err != nil {
		t.Fatalf("setup: failed to write test file: %v", err)
	}

	destPath := filepath.Join(tmpDir, "output")
	if err := decompressGzip(gzPath, destPath); err == nil {
		t.Errorf("decompressGzip(%q, %q) = nil, want error", gzPath, destPath)
	}
}

func TestDecompressGzipAtomicWrite(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	content := []byte("atomic write test")
	gzPath := filepath.Join(tmpDir, "test.gz")
	createGzipFile(t, gzPath, content)

	destPath := filepath.Join(tmpDir, "output")
	if err := decompressGzip(gzPath, destPath); err != nil {
		t.Fatalf("decompressGzip(%q, %q) unexpected error: %v", gzPath, destPath, err)
	}

	// No temp files left behind.
	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		t.Fatalf("setup: failed to read temp dir: %v", err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if name != "test.gz" && name != "output" {
			t.Errorf("decompressGzip(%q, %q) left unexpected file: %s", gzPath, destPath, name)
		}
	}
}

// createGzipFile creates a gzip compressed file with the given content.
func createGzipFile(t *testing.T, path string, content []byte) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create gzip file: %v", err)
	}
	defer f.Close()

	gw := gzip.NewWriter(f)
	if _, err := gw.Write(content); err != nil {
		t.Fatalf("write gzip content: %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("close gzip writer: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Resolver - dependency injection tests
// ---------------------------------------------------------------------------

func TestResolverResolveEnvPath(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	ffmpegPath := filepath.Join(tmpDir, "ffmpeg")
	if err := os.WriteFile(ffmpegPath, []byte("fake binary"), 0755); err != nil {
		t.Fatalf("failed to create fake binary: %v", err)
	}

	tests := []struct {
		name     string
		envPath  string
		wantPath string
		wantErr  bool
	}{
		{
			name:     "FFMPEG_PATH set and exists",
			envPath:  ffmpegPath,
			wantPath: ffmpegPath,
		},
		{
			name:    "FFMPEG_PATH set but not exists",
			envPath: "/nonexistent/ffmpeg",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := &mockEnvProvider{
				getenv: func(key string) string {
					if key == "FFMPEG_PATH" {
						return tt.envPath
					}
					return ""
				},
			}
			reader := &mockFileReader{
				stat: func(name string) (os.FileInfo, error) {
					if name == ffmpegPath {
						return mockFileInfo{name: "ffmpeg"}, nil
					}
					return nil, os.ErrNotExist
				},
			}

			resolver := NewResolver(
				WithEnvProvider(env),
				WithFileReader(reader),
				WithStderr(io.Discard),
			)

			got, err := resolver.Resolve(context.Background())
			if tt.wantErr {
				if !errors.Is(err, ErrNotFound) {
					t.Errorf("Resolve() error = %v, want ErrNotFound", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve() unexpected error: %v", err)
			}
			if got != tt.wantPath {
				t.Errorf("Resolve() = %q, want %q", got, tt.wantPath)
			}
		})
	}
}

func TestResolverResolveConfiguredPath(t *testing.T) {
	t.Parallel()

	configured := "/opt/media/bin/ffmpeg"

	env := &mockEnvProvider{getenv: func(string) string { return "" }}
	reader := &mockFileReader{
		stat: func(name string) (os.FileInfo, error) {
			if name == configured {
				return mockFileInfo{name: "ffmpeg"}, nil
			}
			return nil, os.ErrNotExist
		},
	}

	resolver := NewResolver(
		WithEnvProvider(env),
		WithFileReader(reader),
		WithConfiguredPath(configured),
		WithStderr(io.Discard),
	)

	got, err := resolver.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve() unexpected error: %v", err)
	}
	if got != configured {
		t.Errorf("Resolve() = %q, want configured path %q", got, configured)
	}
}

func TestResolverResolveConfiguredPathMissing(t *testing.T) {
	t.Parallel()

	env := &mockEnvProvider{getenv: func(string) string { return "" }}
	reader := &mockFileReader{
		stat: func(string) (os.FileInfo, error) { return nil, os.ErrNotExist },
	}

	resolver := NewResolver(
		WithEnvProvider(env),
		WithFileReader(reader),
		WithConfiguredPath("/gone/ffmpeg"),
		WithStderr(io.Discard),
	)

	_, err := resolver.Resolve(context.Background())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Resolve() error = %v, want ErrNotFound", err)
	}
}

func TestResolverResolveInstalledPath(t *testing.T) {
	t.Parallel()

	homeDir := "/mock/home"
	installedPath := filepath.Join(homeDir, ".chapterize", "bin", "ffmpeg")
	versionPath := filepath.Join(homeDir, ".chapterize", "bin", ".version")

	env := &mockEnvProvider{
		getenv:      func(key string) string { return "" },
		userHomeDir: func() (string, error) { return homeDir, nil },
		lookPath:    func(file string) (string, error) { return "", errors.New("not in PATH") },
	}
	reader := &mockFileReader{
		stat: func(name string) (os.FileInfo, error) {
			if name == installedPath {
				return mockFileInfo{name: "ffmpeg"}, nil
			}
			return nil, os.ErrNotExist
		},
		readFile: func(name string) ([]byte, error) {
			if name == versionPath {
				return []byte(ffmpegVersion), nil
			}
			return nil, os.ErrNotExist
		},
	}

	resolver := NewResolver(
		WithEnvProvider(env),
		WithFileReader(reader),
		WithStderr(io.Discard),
	)

	got, err := resolver.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve() unexpected error: %v", err)
	}
	if got != installedPath {
		t.Errorf("Resolve() = %q, want %q", got, installedPath)
	}
}

func TestResolverResolveSystemPath(t *testing.T) {
	t.Parallel()

	systemFFmpeg := "/usr/local/bin/ffmpeg"

	env := &mockEnvProvider{
		getenv:      func(key string) string { return "" },
		userHomeDir: func() (string, error) { return "/mock/home", nil },
		lookPath: func(file string) (string, error) {
			if file == "ffmpeg" {
				return systemFFmpeg, nil
			}
			return "", errors.New("not found")
		},
	}
	reader := &mockFileReader{
		stat: func(name string) (os.FileInfo, error) { return nil, os.ErrNotExist },
	}

	resolver := NewResolver(
		WithEnvProvider(env),
		WithFileReader(reader),
		WithStderr(io.Discard),
	)

	got, err := resolver.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve() unexpected error: %v", err)
	}
	if got != systemFFmpeg {
		t.Errorf("Resolve() = %q, want %q", got, systemFFmpeg)
	}
}

func TestResolverResolveUnsupportedPlatform(t *testing.T) {
	t.Parallel()

	env := &mockEnvProvider{
		getenv:      func(key string) string { return "" },
		userHomeDir: func() (string, error) { return "/mock/home", nil },
		lookPath:    func(file string) (string, error) { return "", errors.New("not found") },
	}
	reader := &mockFileReader{
		stat: func(name string) (os.FileInfo, error) { return nil, os.ErrNotExist },
	}

	resolver := NewResolver(
		WithEnvProvider(env),
		WithFileReader(reader),
		WithFileWriter(&mockFileWriter{}),
		WithStderr(io.Discard),
		WithPlatform("unsupported", "arch"),
	)

	_, err := resolver.Resolve(context.Background())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Resolve() error = %v, want ErrNotFound (wrapping UnsupportedPlatform)", err)
	}
}

func TestResolverResolveAutoDownload(t *testing.T) {
	t.Parallel()

	fakeContent := []byte("fake ffmpeg binary content")
	var gzBuf bytes.Buffer
	gw := gzip.NewWriter(&gzBuf)
	if _, err := gw.Write(fakeContent); err != nil {
		t.Fatalf("failed to gzip: %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("failed to close gzip: %v", err)
	}
	gzData := gzBuf.Bytes()

	h := sha256.Sum256(gzData)
	checksum := hex.EncodeToString(h[:])

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(gzData)
	}))
	defer server.Close()

	tmpDir := t.TempDir()

	env := &mockEnvProvider{
		getenv:      func(key string) string { return "" },
		userHomeDir: func() (string, error) { return tmpDir, nil },
		lookPath:    func(file string) (string, error) { return "", errors.New("not found") },
	}

	resolver := NewResolver(
		WithEnvProvider(env),
		WithStderr(io.Discard),
		WithPlatform("testgoos", "testgoarch"),
		WithPlatformInfo(binaryInfo{
			URL:    server.URL + "/ffmpeg.gz",
			SHA256: checksum,
		}),
		WithHTTPClient(server.Client()),
	)

	got, err := resolver.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve() unexpected error: %v", err)
	}

	expectedPath := filepath.Join(tmpDir, ".chapterize", "bin", "ffmpeg")
	if got != expectedPath {
		t.Errorf("Resolve() = %q, want %q", got, expectedPath)
	}
	if _, err := os.Stat(got); err != nil {
		t.Errorf("Resolve() did not create binary: %v", err)
	}

	versionData, err := os.ReadFile(filepath.Join(tmpDir, ".chapterize", "bin", ".version"))
	if err != nil {
		t.Errorf("Resolve() did not create version file: %v", err)
	}
	if string(versionData) != ffmpegVersion {
		t.Errorf("Resolve() wrote version %q, want %q", string(versionData), ffmpegVersion)
	}
}

func TestResolverResolveDownloadChecksumMismatch(t *testing.T) {
	t.Parallel()

	var gzBuf bytes.Buffer
	gw := gzip.NewWriter(&gzBuf)
	if _, err := gw.Write([]byte("fake ffmpeg binary")); err != nil {
		t.Fatalf("failed to write gzip: %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("failed to close gzip: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(gzBuf.Bytes())
	}))
	defer server.Close()

	tmpDir := t.TempDir()

	env := &mockEnvProvider{
		getenv:      func(key string) string { return "" },
		userHomeDir: func() (string, error) { return tmpDir, nil },
		lookPath:    func(file string) (string, error) { return "", errors.New("not found") },
	}

	resolver := NewResolver(
		WithEnvProvider(env),
		WithStderr(io.Discard),
		WithPlatform("testgoos", "testgoarch"),
		WithPlatformInfo(binaryInfo{
			URL:    server.URL + "/ffmpeg.gz",
			SHA256: "0000000000000000000000000000000000000000000000000000000000000000",
		}),
		WithHTTPClient(server.Client()),
	)

	if _, err := resolver.Resolve(context.Background()); err == nil {
		t.Errorf("Resolve() = nil, want error for checksum mismatch")
	}
}

func TestResolverWindowsBinaryName(t *testing.T) {
	t.Parallel()

	env := &mockEnvProvider{
		getenv:      func(key string) string { return "" },
		userHomeDir: func() (string, error) { return "/mock/home", nil },
	}

	resolver := NewResolver(
		WithEnvProvider(env),
		WithPlatform("windows", "amd64"),
	)

	path, err := resolver.installedPath()
	if err != nil {
		t.Fatalf("installedPath() unexpected error: %v", err)
	}
	if filepath.Base(path) != "ffmpeg.exe" {
		t.Errorf("installedPath() base = %s, want ffmpeg.exe", filepath.Base(path))
	}
}

// ---------------------------------------------------------------------------
// ResolveProbe - ffprobe lookup
// ---------------------------------------------------------------------------

func TestResolveProbe(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		envPath    string
		sibling    string // existing sibling path
		lookPath   string
		ffmpegPath string
		want       string
		wantErr    bool
	}{
		{
			name:    "FFPROBE_PATH wins",
			envPath: "/custom/ffprobe",
			want:    "/custom/ffprobe",
		},
		{
			name:       "sibling of resolved ffmpeg",
			ffmpegPath: "/opt/media/bin/ffmpeg",
			sibling:    "/opt/media/bin/ffprobe",
			want:       "/opt/media/bin/ffprobe",
		},
		{
			name:       "system PATH fallback",
			ffmpegPath: "/opt/media/bin/ffmpeg",
			lookPath:   "/usr/bin/ffprobe",
			want:       "/usr/bin/ffprobe",
		},
		{
			name:       "nothing found",
			ffmpegPath: "/opt/media/bin/ffmpeg",
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := &mockEnvProvider{
				getenv: func(key string) string {
					if key == "FFPROBE_PATH" {
						return tt.envPath
					}
					return ""
				},
				lookPath: func(file string) (string, error) {
					if tt.lookPath != "" && file == "ffprobe" {
						return tt.lookPath, nil
					}
					return "", errors.New("not found")
				},
			}
			reader := &mockFileReader{
				stat: func(name string) (os.FileInfo, error) {
					if name == tt.envPath || (tt.sibling != "" && name == tt.sibling) {
						return mockFileInfo{name: "ffprobe"}, nil
					}
					return nil, os.ErrNotExist
				},
			}

			resolver := NewResolver(WithEnvProvider(env), WithFileReader(reader))

			got, err := resolver.ResolveProbe(tt.ffmpegPath)
			if tt.wantErr {
				if !errors.Is(err, ErrProbeNotFound) {
					t.Errorf("ResolveProbe() error = %v, want ErrProbeNotFound", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveProbe() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ResolveProbe() = %q, want %q", got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Mock implementations
// ---------------------------------------------------------------------------

type mockFileReader struct {
	stat     func(name string) (os.FileInfo, error)
	readFile func(name string) ([]byte, error)
}

func (m *mockFileReader) Stat(name string) (os.FileInfo, error) {
	if m.stat != nil {
		return m.stat(name)
	}
	return nil, os.ErrNotExist
}

func (m *mockFileReader) ReadFile(name string) ([]byte, error) {
	if m.readFile != nil {
		return m.readFile(name)
	}
	return nil, os.ErrNotExist
}

type mockFileWriter struct {
	writeFile  func(name string, data []byte, perm os.FileMode) error
	mkdirAll   func(path string, perm os.FileMode) error
	remove     func(name string) error
	chmod      func(name string, mode os.FileMode) error
	createTemp func(dir, pattern string) (*os.File, error)
}

func (m *mockFileWriter) WriteFile(name string, data []byte, perm os.FileMode) error {
	if m.writeFile != nil {
		return m.writeFile(name, data, perm)
	}
	return nil
}

func (m *mockFileWriter) MkdirAll(path string, perm os.FileMode) error {
	if m.mkdirAll != nil {
		return m.mkdirAll(path, perm)
	}
	return nil
}

func (m *mockFileWriter) Remove(name string) error {
	if m.remove != nil {
		return m.remove(name)
	}
	return nil
}

func (m *mockFileWriter) Chmod(name string, mode os.FileMode) error {
	if m.chmod != nil {
		return m.chmod(name, mode)
	}
	return nil
}

func (m *mockFileWriter) CreateTemp(dir, pattern string) (*os.File, error) {
	if m.createTemp != nil {
		return m.createTemp(dir, pattern)
	}
	return os.CreateTemp(dir, pattern)
}

type mockEnvProvider struct {
	getenv      func(key string) string
	userHomeDir func() (string, error)
	lookPath    func(file string) (string, error)
}

func (m *mockEnvProvider) Getenv(key string) string {
	if m.getenv != nil {
		return m.getenv(key)
	}
	return ""
}

func (m *mockEnvProvider) UserHomeDir() (string, error) {
	if m.userHomeDir != nil {
		return m.userHomeDir()
	}
	return "", errors.New("not implemented")
}

func (m *mockEnvProvider) LookPath(file string) (string, error) {
	if m.lookPath != nil {
		return m.lookPath(file)
	}
	return "", errors.New("not found")
}

type mockFileInfo struct {
	name  string
	size  int64
	isDir bool
}

func (m mockFileInfo) Name() string       { return m.name }
func (m mockFileInfo) Size() int64        { return m.size }
func (m mockFileInfo) Mode() os.FileMode  { return 0644 }
func (m mockFileInfo) ModTime() time.Time { return time.Time{} }
func (m mockFileInfo) IsDir() bool        { return m.isDir }
func (m mockFileInfo) Sys() any           { return nil }
