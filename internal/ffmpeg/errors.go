package ffmpeg

import "errors"

// ErrNotFound indicates the ffmpeg binary is not installed and auto-download failed.
var ErrNotFound = errors.New("ffmpeg not found")

// ErrProbeNotFound indicates ffprobe could not be located. ffprobe is only
// required for container duration queries, so this is surfaced lazily.
var ErrProbeNotFound = errors.New("ffprobe not found")

// ErrUnsupportedPlatform indicates the OS/architecture is not supported for auto-download.
var ErrUnsupportedPlatform = errors.New("unsupported platform for ffmpeg auto-download")

// ErrChecksumMismatch indicates a downloaded file's checksum verification failed.
var ErrChecksumMismatch = errors.New("checksum mismatch")

// ErrDownloadFailed indicates a file download could not be completed.
var ErrDownloadFailed = errors.New("download failed")

// ErrTimeout is returned when ffmpeg does not exit within the graceful shutdown timeout.
var ErrTimeout = errors.New("ffmpeg did not exit within timeout")

// ErrSplit indicates a chapter split command failed.
var ErrSplit = errors.New("chapter split failed")
