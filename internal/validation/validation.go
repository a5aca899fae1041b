// Package validation checks form input and uploaded files and collects the
// notice codes shown to the visitor.
package validation

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"

	"project-submission/internal/model/fileInfo"
)

const (
	CodeSuccess           = "success"
	CodeInvalidNonce      = "invalid-nonce"
	CodeUnauthorized      = "unauthorized"
	CodeMissingField      = "missing-field"
	CodeNoAgreement       = "no-agreement"
	CodeInvalidEmail      = "invalid-email"
	CodeAlreadyRegistered = "already-registered"
	CodeInvalidFileType   = "invalid-file-type"
	CodeFileTooLarge      = "file-too-large"
	CodeUploadError       = "upload-error"
	CodeSignupFailed      = "signup-failed"
	CodeSignupSuccess     = "signup-success"
	CodeLoginFailed       = "login-failed"
	CodeLoginSuccess      = "login-success"
	CodeLogoutSuccess     = "logout-success"
	CodeSubmissionFailed  = "submission-failed"
	CodeSubmissionSuccess = "submission-success"
	CodeErrorDownloading  = "error-downloading"
	CodeError             = "error"
)

var (
	AvatarTypes     = []string{"image/jpeg", "image/jpg", "image/png"}
	AttachmentTypes = []string{"image/jpeg", "image/jpg", "image/png", "application/pdf"}
)

type Config struct {
	AvatarMaxDimension int    `env:"AVATAR_MAX_DIMENSION" env-default:"200"`
	AvatarMaxSize      string `env:"AVATAR_MAX_SIZE" env-default:"2MB"`
	AttachmentMaxSize  string `env:"ATTACHMENT_MAX_SIZE" env-default:"64MB"`
}

// Errors is the ordered list of codes recorded while handling one form.
type Errors struct {
	codes []string
}

func (e *Errors) Add(code string) {
	e.codes = append(e.codes, code)
}

func (e *Errors) Any() bool {
	return len(e.codes) > 0
}

// First is the code surfaced to the visitor, or "" when nothing failed.
func (e *Errors) First() string {
	if len(e.codes) == 0 {
		return ""
	}
	return e.codes[0]
}

func (e *Errors) Codes() []string {
	return append([]string(nil), e.codes...)
}

func (e *Errors) Error() string {
	return "validation failed: " + strings.Join(e.codes, ", ")
}

// Err returns e as an error, or nil when no code was recorded.
func (e *Errors) Err() error {
	if !e.Any() {
		return nil
	}
	return e
}

type Validator struct {
	maxDimension      int
	avatarMaxSize     uint64
	attachmentMaxSize uint64
}

func New(cfg Config) (*Validator, error) {
	avatarMax, err := humanize.ParseBytes(cfg.AvatarMaxSize)
	if err != nil {
		return nil, fmt.Errorf("parse AVATAR_MAX_SIZE: %w", err)
	}
	attachmentMax, err := humanize.ParseBytes(cfg.AttachmentMaxSize)
	if err != nil {
		return nil, fmt.Errorf("parse ATTACHMENT_MAX_SIZE: %w", err)
	}
	return &Validator{
		maxDimension:      cfg.AvatarMaxDimension,
		avatarMaxSize:     avatarMax,
		attachmentMaxSize: attachmentMax,
	}, nil
}

// Avatar checks type, byte size and pixel dimensions. It sets u.Mime to the
// detected type and returns the failing code, or "".
func (v *Validator) Avatar(u *fileInfo.Upload) string {
	if code := v.checkType(u, AvatarTypes); code != "" {
		return code
	}
	if uint64(u.Size) > v.avatarMaxSize {
		return CodeFileTooLarge
	}

	rc, err := u.Open()
	if err != nil {
		return CodeUploadError
	}
	defer rc.Close()
	cfg, _, err := image.DecodeConfig(rc)
	if err != nil {
		return CodeInvalidFileType
	}
	if cfg.Width > v.maxDimension || cfg.Height > v.maxDimension {
		return CodeFileTooLarge
	}
	return ""
}

// Attachments checks every file and records one code per rejected file.
func (v *Validator) Attachments(files []fileInfo.Upload, errs *Errors) {
	for i := range files {
		if code := v.checkType(&files[i], AttachmentTypes); code != "" {
			errs.Add(code)
			continue
		}
		if uint64(files[i].Size) > v.attachmentMaxSize {
			errs.Add(CodeFileTooLarge)
		}
	}
}

func (v *Validator) checkType(u *fileInfo.Upload, allowed []string) string {
	rc, err := u.Open()
	if err != nil {
		return CodeUploadError
	}
	defer rc.Close()

	mt, err := mimetype.DetectReader(io.LimitReader(rc, 3072))
	if err != nil {
		return CodeUploadError
	}
	if !mimetype.EqualsAny(mt.String(), allowed...) {
		return CodeInvalidFileType
	}
	u.Mime = mt.String()
	return ""
}

// HumanSize formats a byte count for log lines.
func HumanSize(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}
