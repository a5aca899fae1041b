package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"project-submission/internal/errs"
)

// Local stores files on the local filesystem under BaseDir.
type Local struct {
	baseDir string
	baseURL string
	now     func() time.Time
}

func NewLocal(cfg Config) (*Local, error) {
	abs, err := filepath.Abs(cfg.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve upload dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Local{baseDir: abs, baseURL: cfg.BaseURL, now: time.Now}, nil
}

// Default is the year/month folder of the shared upload area.
func (l *Local) Default() Dir {
	return NewDir(l.baseDir, l.baseURL, l.now().Format("/2006/01"))
}

func (l *Local) Put(ctx context.Context, dir Dir, name string, r io.Reader, _ int64, _ string) (Stored, error) {
	if err := ctx.Err(); err != nil {
		return Stored{}, err
	}
	target := filepath.Clean(filepath.FromSlash(dir.Path))
	if !l.inside(target) {
		return Stored{}, fmt.Errorf("destination %s escapes upload dir", dir.Path)
	}
	if err := os.MkdirAll(target, 0o755); err != nil {
		return Stored{}, fmt.Errorf("create %s: %w", target, err)
	}

	final, f, err := l.create(target, SanitizeName(name))
	if err != nil {
		return Stored{}, err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(filepath.Join(target, final))
		return Stored{}, fmt.Errorf("write %s: %w", final, err)
	}
	if err := f.Close(); err != nil {
		return Stored{}, err
	}

	return Stored{
		Path: filepath.Join(target, final),
		URL:  dir.URL + "/" + final,
		Name: final,
	}, nil
}

// create opens a new file, picking the first free name.
func (l *Local) create(dir, name string) (string, *os.File, error) {
	var f *os.File
	final, err := UniqueName(name, func(candidate string) (bool, error) {
		var err error
		f, err = os.OpenFile(filepath.Join(dir, candidate), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			return true, nil
		}
		return false, err
	})
	if err != nil {
		return "", nil, fmt.Errorf("create file in %s: %w", dir, err)
	}
	return final, f, nil
}

func (l *Local) Open(ctx context.Context, path string) (io.ReadCloser, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	clean := filepath.Clean(path)
	if !l.inside(clean) {
		return nil, 0, errs.ErrNotFound
	}
	f, err := os.Open(clean)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, 0, errs.ErrNotFound
	}
	if err != nil {
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	if info.IsDir() {
		f.Close()
		return nil, 0, errs.ErrNotFound
	}
	return f, info.Size(), nil
}

func (l *Local) Remove(_ context.Context, path string) error {
	clean := filepath.Clean(path)
	if !l.inside(clean) {
		return errs.ErrNotFound
	}
	err := os.Remove(clean)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (l *Local) inside(p string) bool {
	rel, err := filepath.Rel(l.baseDir, p)
	if err != nil {
		return false
	}
	return rel != ".." && !filepath.IsAbs(rel) && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
