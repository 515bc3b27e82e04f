// Package download fetches voice files over HTTP and pins them by SHA-256.
package download

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// ErrChecksumMismatch is returned when a downloaded or existing file does not
// hash to the pinned value.
var ErrChecksumMismatch = errors.New("checksum mismatch")

// File is one artifact to fetch.
type File struct {
	URL    string
	Path   string // destination on disk
	SHA256 string // optional; empty accepts any content
}

// Result reports what Fetch did with a file.
type Result struct {
	Path    string
	SHA256  string
	Skipped bool // an existing file already satisfied the pin
}

// Options configures Fetch.
type Options struct {
	Client *http.Client
	Stdout io.Writer
	// ProgressEvery throttles progress lines. Zero uses 700ms.
	ProgressEvery time.Duration
}

var shaHexPattern = regexp.MustCompile(`(?i)^[a-f0-9]{64}$`)

// Fetch downloads f.URL to f.Path unless a file already there matches the
// pin. Content is written to a temporary file in the destination directory
// and renamed into place only after the checksum verifies.
func Fetch(ctx context.Context, f File, opts Options) (Result, error) {
	if f.URL == "" {
		return Result{}, errors.New("download url is required")
	}
	if f.Path == "" {
		return Result{}, errors.New("download path is required")
	}
	expected := strings.ToLower(strings.TrimSpace(f.SHA256))
	if expected != "" && !shaHexPattern.MatchString(expected) {
		return Result{}, fmt.Errorf("invalid sha256 %q for %s", f.SHA256, f.Path)
	}
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	if opts.Stdout == nil {
		opts.Stdout = io.Discard
	}
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = 700 * time.Millisecond
	}

	if actual, ok, err := existing(f.Path, expected); err != nil {
		return Result{}, err
	} else if ok {
		fmt.Fprintf(opts.Stdout, "skip %s (already present)\n", f.Path)
		return Result{Path: f.Path, SHA256: actual, Skipped: true}, nil
	}

	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return Result{}, fmt.Errorf("create voice dir: %w", err)
	}

	fmt.Fprintf(opts.Stdout, "download %s -> %s\n", f.URL, f.Path)
	actual, err := fetchToFile(ctx, f, opts)
	if err != nil {
		return Result{}, err
	}
	fmt.Fprintf(opts.Stdout, "verified %s (sha256=%s)\n", f.Path, actual)

	return Result{Path: f.Path, SHA256: actual}, nil
}

// existing reports whether path already satisfies expected. Without a pin any
// regular file counts.
func existing(path, expected string) (string, bool, error) {
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("stat existing file: %w", err)
	}
	if fi.IsDir() {
		return "", false, fmt.Errorf("expected file at %s, found directory", path)
	}

	actual, err := FileSHA256(path)
	if err != nil {
		return "", false, err
	}

	return actual, expected == "" || actual == expected, nil
}

func fetchToFile(ctx context.Context, f File, opts Options) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := opts.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("download failed for %s: %s", f.URL, resp.Status)
	}

	fh, err := os.CreateTemp(filepath.Dir(f.Path), filepath.Base(f.Path)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmp := fh.Name()
	cleanup := func() {
		_ = fh.Close()
		_ = os.Remove(tmp)
	}

	h := sha256.New()
	pw := &progressWriter{w: opts.Stdout, total: resp.ContentLength, every: opts.ProgressEvery, last: time.Now()}
	if _, err := io.Copy(io.MultiWriter(fh, h, pw), resp.Body); err != nil {
		cleanup()
		return "", fmt.Errorf("download read failed: %w", err)
	}

	actual := hex.EncodeToString(h.Sum(nil))
	expected := strings.ToLower(strings.TrimSpace(f.SHA256))
	if expected != "" && actual != expected {
		cleanup()
		return "", fmt.Errorf("%w for %s: expected %s got %s", ErrChecksumMismatch, f.Path, expected, actual)
	}

	if err := fh.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp, f.Path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("move temp file into place: %w", err)
	}

	return actual, nil
}

type progressWriter struct {
	w       io.Writer
	total   int64
	written int64
	every   time.Duration
	last    time.Time
}

func (p *progressWriter) Write(b []byte) (int, error) {
	p.written += int64(len(b))
	if time.Since(p.last) < p.every {
		return len(b), nil
	}
	p.last = time.Now()

	if p.total > 0 {
		pct := float64(p.written) * 100 / float64(p.total)
		fmt.Fprintf(p.w, "  progress: %.1f%% (%d/%d bytes)\n", pct, p.written, p.total)
	} else {
		fmt.Fprintf(p.w, "  progress: %d bytes\n", p.written)
	}

	return len(b), nil
}

// FileSHA256 returns the hex SHA-256 of the file at path.
func FileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file for checksum: %w", err)
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("read file for checksum: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
