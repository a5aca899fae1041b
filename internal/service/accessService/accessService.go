// Package accessService decides whether an actor may see a project and its files.
package accessService

import (
	"context"
	"errors"
	"fmt"

	"project-submission/internal/errs"
	"project-submission/internal/model/project"
	"project-submission/internal/model/user"
)

// AuthContext is the identity the decision is made for. *user.Actor implements it.
type AuthContext interface {
	ActorID() uint32
	HasRole(role string) bool
}

type ProjectGetter interface {
	GetByID(ctx context.Context, id uint32) (*project.Project, error)
}

type AccessService struct {
	projects ProjectGetter
}

func New(projects ProjectGetter) *AccessService {
	return &AccessService{projects: projects}
}

// Allowed grants access to the author acting as a project owner, and to administrators.
func Allowed(authorID uint32, actor AuthContext) bool {
	if actor == nil {
		return false
	}
	if actor.HasRole(user.RoleProjectOwner) && authorID != 0 && actor.ActorID() == authorID {
		return true
	}
	return actor.HasRole(user.RoleAdministrator)
}

// CanView loads the project and applies Allowed. An unknown project is denied without error.
func (s *AccessService) CanView(ctx context.Context, projectID uint32, actor AuthContext) (bool, error) {
	if projectID == 0 {
		return false, nil
	}
	p, err := s.projects.GetByID(ctx, projectID)
	if errors.Is(err, errs.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load project %d: %w", projectID, err)
	}
	return Allowed(p.AuthorID, actor), nil
}
