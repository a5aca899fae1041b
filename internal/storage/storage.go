// Package storage writes uploaded files and reads them back for delivery.
package storage

import (
	"context"
	"io"
	"path"
	"regexp"
	"strconv"
	"strings"
)

const (
	DriverLocal = "local"
	DriverMinIO = "minio"
)

type Config struct {
	Driver  string `env:"STORAGE_DRIVER" env-default:"local"`
	BaseDir string `env:"UPLOAD_DIR" env-default:"./uploads"`
	BaseURL string `env:"UPLOAD_URL" env-default:"http://localhost:8080/uploads"`
}

// Dir is the destination of an upload. Path and URL are always BaseDir and
// BaseURL joined with Subdir.
type Dir struct {
	BaseDir string
	BaseURL string
	Subdir  string
	Path    string
	URL     string
}

func NewDir(baseDir, baseURL, subdir string) Dir {
	return Dir{
		BaseDir: baseDir,
		BaseURL: baseURL,
		Subdir:  subdir,
		Path:    baseDir + subdir,
		URL:     baseURL + subdir,
	}
}

// WithSubdir returns d moved to subdir, keeping the three fields coherent.
func (d Dir) WithSubdir(subdir string) Dir {
	return NewDir(d.BaseDir, d.BaseURL, strings.TrimSuffix(subdir, "/"))
}

// Stored is the result of a successful write.
type Stored struct {
	Path string
	URL  string
	Name string
}

type Backend interface {
	// Default is the shared destination used when no private folder applies.
	Default() Dir
	Put(ctx context.Context, dir Dir, name string, r io.Reader, size int64, mime string) (Stored, error)
	// Open returns errs.ErrNotFound when nothing is stored at path.
	Open(ctx context.Context, path string) (io.ReadCloser, int64, error)
	Remove(ctx context.Context, path string) error
}

var (
	unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
	dashes      = regexp.MustCompile(`-{2,}`)
)

// SanitizeName reduces a client file name to a safe base name.
func SanitizeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.TrimSpace(name)
	name = unsafeChars.ReplaceAllString(name, "-")
	name = dashes.ReplaceAllString(name, "-")
	name = strings.Trim(name, ".-_")
	if name == "" {
		return "file"
	}
	return name
}

// UniqueName returns name, or name-N.ext for the first N where taken reports false.
func UniqueName(name string, taken func(string) (bool, error)) (string, error) {
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	candidate := name
	for i := 1; ; i++ {
		exists, err := taken(candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = stem + "-" + strconv.Itoa(i) + ext
	}
}
