package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrTooLarge is returned when an upload exceeds its byte limit.
var ErrTooLarge = errors.New("file too large")

// Scratch hands out per-request working directories under base.
type Scratch struct{ base string }

func NewScratch(base string) (*Scratch, error) {
	if base == "" {
		base = os.TempDir()
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, err
	}
	return &Scratch{base: base}, nil
}

// NewDir creates a private directory. Callers must Cleanup it.
func (s *Scratch) NewDir() (*Dir, error) {
	p, err := os.MkdirTemp(s.base, "formquiz-*")
	if err != nil {
		return nil, fmt.Errorf("scratch dir: %w", err)
	}
	return &Dir{path: p}, nil
}

type Dir struct{ path string }

func (d *Dir) Path() string { return d.path }

// Put copies r into the directory under a sanitized name, reading at most
// limit bytes (no limit when limit <= 0).
func (d *Dir) Put(name string, r io.Reader, limit int64) (string, error) {
	key := cleanName(name)
	if key == "" {
		return "", errors.New("empty file name")
	}
	dst := filepath.Join(d.path, key)
	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", err
	}
	defer f.Close()
	src := r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}
	n, err := io.Copy(f, src)
	if err != nil {
		return "", err
	}
	if limit > 0 && n > limit {
		return "", fmt.Errorf("%s: %w", name, ErrTooLarge)
	}
	return dst, nil
}

// Cleanup removes the directory and everything in it.
func (d *Dir) Cleanup() error {
	return os.RemoveAll(d.path)
}

func cleanName(name string) string {
	name = filepath.Base(filepath.Clean("/" + strings.ReplaceAll(name, "\\", "/")))
	if name == "/" || name == "." {
		return ""
	}
	return name
}
