package fileInfo

import (
	"crypto/md5"
	"encoding/hex"
	"io"
)

type OwnerKind string

const (
	OwnerProject OwnerKind = "project"
	OwnerMessage OwnerKind = "message"
)

// Descriptor describes one stored file.
type Descriptor struct {
	Key  string `json:"key"`
	Path string `json:"path"`
	Name string `json:"name"`
	Mime string `json:"mime"`
	URL  string `json:"url"`
}

// References maps file keys to descriptors for one project or message.
type References map[string]Descriptor

// Key derives the file key from the resolved storage path.
func Key(resolvedPath string) string {
	sum := md5.Sum([]byte(resolvedPath))
	return hex.EncodeToString(sum[:])
}

// Upload is a file received with a form, before it is stored.
type Upload struct {
	Name string
	Size int64
	Mime string
	Open func() (io.ReadCloser, error)
}

// Target names a file to deliver: a key plus either a project or a message.
type Target struct {
	ProjectID uint32
	MessageID uint32
	FileKey   string
}
