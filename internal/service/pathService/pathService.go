// Package pathService derives the private storage folders of users and projects.
package pathService

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"project-submission/internal/errs"
	"project-submission/internal/model/project"
	"project-submission/internal/model/user"
)

const Prefix = "/project-submission/"

type UserGetter interface {
	GetByID(ctx context.Context, id uint32) (*user.User, error)
}

type ProjectGetter interface {
	GetByID(ctx context.Context, id uint32) (*project.Project, error)
}

// Digest maps the concatenated secret key and username to a fixed-length,
// filesystem-safe folder name.
type Digest func(s string) string

func MD5(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

type Option func(*PathService)

func WithDigest(d Digest) Option {
	return func(s *PathService) { s.digest = d }
}

type PathService struct {
	users    UserGetter
	projects ProjectGetter
	digest   Digest
}

func New(users UserGetter, projects ProjectGetter, opts ...Option) *PathService {
	s := &PathService{users: users, projects: projects, digest: MD5}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Namespace is /project-submission/<digest(token+username)>/.
func (s *PathService) Namespace(token, username string) string {
	return Prefix + s.digest(token+username) + "/"
}

// DeriveNamespace returns errs.ErrNoNamespace when the user has no secret key.
func (s *PathService) DeriveNamespace(ctx context.Context, userID uint32) (string, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("load user %d: %w", userID, err)
	}
	if u.SecretKey == "" {
		return "", errs.ErrNoNamespace
	}
	return s.Namespace(u.SecretKey, u.Username), nil
}

// DeriveProjectFolder is the namespace of the project's author followed by the project slug.
func (s *PathService) DeriveProjectFolder(ctx context.Context, projectID uint32) (string, error) {
	p, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return "", fmt.Errorf("load project %d: %w", projectID, err)
	}
	if p.AuthorID == 0 {
		return "", fmt.Errorf("project %d has no author: %w", projectID, errs.ErrNotFound)
	}
	ns, err := s.DeriveNamespace(ctx, p.AuthorID)
	if err != nil {
		return "", err
	}
	return ns + p.Slug, nil
}
