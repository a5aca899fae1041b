// Package projectService handles project submissions, their discussion and
// the pages that list them.
package projectService

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"project-submission/internal/errs"
	"project-submission/internal/model/fileInfo"
	"project-submission/internal/model/project"
	"project-submission/internal/model/user"
	"project-submission/internal/notifier"
	"project-submission/internal/service/accessService"
	"project-submission/internal/service/nonceService"
	"project-submission/internal/validation"
	"project-submission/pkg/logger"
)

const DeliverPath = "/deliver"

// maxSlugSuffix bounds the "-N" suffixes tried when an author reuses a title.
const maxSlugSuffix = 100

type ProjectStore interface {
	Create(ctx context.Context, p *project.Project) error
	GetByID(ctx context.Context, id uint32) (*project.Project, error)
	ListByAuthor(ctx context.Context, authorID uint32) ([]*project.Project, error)
	UpdateStatus(ctx context.Context, id uint32, status string) error
}

type MessageStore interface {
	Create(ctx context.Context, m *project.Message) error
	ListByProject(ctx context.Context, projectID uint32) ([]*project.Message, error)
}

type UserGetter interface {
	GetByID(ctx context.Context, id uint32) (*user.User, error)
}

type Gate interface {
	CanView(ctx context.Context, projectID uint32, actor accessService.AuthContext) (bool, error)
}

type Files interface {
	UploadProjectFiles(ctx context.Context, projectID uint32, actor accessService.AuthContext, files []fileInfo.Upload) (fileInfo.References, error)
	UploadMessageFiles(ctx context.Context, messageID uint32, actor accessService.AuthContext, files []fileInfo.Upload) (fileInfo.References, error)
	Links(ctx context.Context, kind fileInfo.OwnerKind, ownerID uint32) (fileInfo.References, error)
}

// Signer issues the request token carried by download links.
type Signer interface {
	Create(action string, actor *user.Actor) (string, error)
}

type ProjectForm struct {
	Title       string            `form:"title" binding:"required"`
	Description string            `form:"description" binding:"required"`
	Type        string            `form:"type"`
	Timeframe   string            `form:"timeframe"`
	Budget      string            `form:"budget"`
	Honeypot    string            `form:"honeyfield"`
	Files       []fileInfo.Upload `form:"-"`
}

type MessageForm struct {
	Content string
	Files   []fileInfo.Upload
}

// Link is a download link for one stored file.
type Link struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

type MessageView struct {
	*project.Message
	Files []Link `json:"files"`
}

type Details struct {
	Project  *project.Project `json:"project"`
	Status   string           `json:"status_label"`
	Files    []Link           `json:"files"`
	Messages []MessageView    `json:"messages"`
}

type Summary struct {
	*project.Project
	Status        string `json:"status_label"`
	LatestMessage string `json:"latest_message"`
}

type ProjectService struct {
	projects  ProjectStore
	messages  MessageStore
	users     UserGetter
	gate      Gate
	files     Files
	signer    Signer
	validator *validation.Validator
	notify    notifier.Notifier
}

func New(projects ProjectStore, messages MessageStore, users UserGetter, gate Gate, files Files, signer Signer, validator *validation.Validator, notify notifier.Notifier) *ProjectService {
	return &ProjectService{
		projects:  projects,
		messages:  messages,
		users:     users,
		gate:      gate,
		files:     files,
		signer:    signer,
		validator: validator,
		notify:    notify,
	}
}

// CheckProject records the failing checks of a submission. bindErr is the
// result of binding the request into form. The token check belongs to the caller.
func (s *ProjectService) CheckProject(actor *user.Actor, form *ProjectForm, bindErr error, problems *validation.Errors) {
	failed := validation.FromBinding(bindErr)
	form.Title = strings.TrimSpace(form.Title)
	form.Description = strings.TrimSpace(form.Description)

	if actor.ActorID() == 0 || !actor.HasRole(user.RoleProjectOwner) || form.Honeypot != "" {
		problems.Add(validation.CodeUnauthorized)
	}
	if failed[validation.CodeError] {
		problems.Add(validation.CodeError)
	}
	if failed[validation.CodeMissingField] || form.Title == "" || form.Description == "" {
		problems.Add(validation.CodeMissingField)
	}
	s.validator.Attachments(form.Files, problems)
}

// Submit creates the project, then uploads its files through the project
// folder. The project is returned even when some files failed, together with
// an error wrapping errs.ErrUploadFailed.
//
// Slugs are unique per author. A title the author already used gets the
// first free "-2", "-3", ... suffix.
func (s *ProjectService) Submit(ctx context.Context, actor *user.Actor, form *ProjectForm) (*project.Project, error) {
	base := project.Slug(form.Title, actor.ActorID())
	p := &project.Project{
		AuthorID:    actor.ActorID(),
		Title:       form.Title,
		Slug:        base,
		Description: form.Description,
		Type:        form.Type,
		Timeframe:   form.Timeframe,
		Budget:      form.Budget,
		Status:      project.StatusNew,
	}
	err := s.projects.Create(ctx, p)
	for n := 2; errors.Is(err, errs.ErrAlreadyExists) && n <= maxSlugSuffix; n++ {
		p.Slug = fmt.Sprintf("%s-%d", base, n)
		err = s.projects.Create(ctx, p)
	}
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	logger.GetLogger(ctx).Info("project submitted", zap.Uint32("project_id", p.ID), zap.Uint32("author_id", p.AuthorID))

	_, uploadErr := s.files.UploadProjectFiles(ctx, p.ID, actor, form.Files)
	s.notify.NewProject(ctx, p)
	return p, uploadErr
}

// AddMessage posts a message on a project the actor may view.
func (s *ProjectService) AddMessage(ctx context.Context, actor *user.Actor, projectID uint32, form *MessageForm, problems *validation.Errors) (*project.Message, error) {
	p, err := s.viewable(ctx, projectID, actor)
	if err != nil {
		return nil, err
	}
	form.Content = strings.TrimSpace(form.Content)
	if form.Content == "" {
		problems.Add(validation.CodeMissingField)
	}
	s.validator.Attachments(form.Files, problems)
	if err := problems.Err(); err != nil {
		return nil, err
	}

	author, err := s.users.GetByID(ctx, actor.ActorID())
	if err != nil {
		return nil, fmt.Errorf("load message author: %w", err)
	}
	m := &project.Message{
		ProjectID:   projectID,
		AuthorID:    author.ID,
		AuthorEmail: author.Email,
		Content:     form.Content,
	}
	if err := s.messages.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}

	_, uploadErr := s.files.UploadMessageFiles(ctx, m.ID, actor, form.Files)

	projectAuthor, err := s.users.GetByID(ctx, p.AuthorID)
	if err != nil {
		logger.GetLogger(ctx).Warn("project author missing", zap.Uint32("project_id", p.ID), zap.Error(err))
	}
	s.notify.NewMessage(ctx, m, projectAuthor)
	return m, uploadErr
}

// Dashboard lists the projects authored by the actor, newest first.
func (s *ProjectService) Dashboard(ctx context.Context, actor *user.Actor) ([]Summary, error) {
	if actor.ActorID() == 0 {
		return nil, errs.ErrUnauthorized
	}
	list, err := s.projects.ListByAuthor(ctx, actor.ActorID())
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	out := make([]Summary, 0, len(list))
	for _, p := range list {
		latest := "No discussion yet."
		msgs, err := s.messages.ListByProject(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("list messages of %d: %w", p.ID, err)
		}
		if len(msgs) > 0 {
			latest = msgs[0].Content
		}
		out = append(out, Summary{Project: p, Status: project.Statuses[p.Status], LatestMessage: latest})
	}
	return out, nil
}

// Details returns the project with its files and discussion, each file
// carrying a fresh download link for the actor.
func (s *ProjectService) Details(ctx context.Context, actor *user.Actor, projectID uint32) (*Details, error) {
	p, err := s.viewable(ctx, projectID, actor)
	if err != nil {
		return nil, err
	}
	token, err := s.signer.Create(nonceService.ActionDownload, actor)
	if err != nil {
		return nil, fmt.Errorf("sign download links: %w", err)
	}

	files, err := s.files.Links(ctx, fileInfo.OwnerProject, p.ID)
	if err != nil {
		return nil, err
	}
	d := &Details{
		Project: p,
		Status:  project.Statuses[p.Status],
		Files:   links(files, "content_item_id", p.ID, token),
	}

	msgs, err := s.messages.ListByProject(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	for _, m := range msgs {
		refs, err := s.files.Links(ctx, fileInfo.OwnerMessage, m.ID)
		if err != nil {
			return nil, err
		}
		d.Messages = append(d.Messages, MessageView{Message: m, Files: links(refs, "message_id", m.ID, token)})
	}
	return d, nil
}

// UpdateStatus is reserved to administrators.
func (s *ProjectService) UpdateStatus(ctx context.Context, actor *user.Actor, projectID uint32, status string) error {
	if !actor.HasRole(user.RoleAdministrator) {
		return errs.ErrUnauthorized
	}
	if _, ok := project.Statuses[status]; !ok {
		return fmt.Errorf("unknown status %q", status)
	}
	return s.projects.UpdateStatus(ctx, projectID, status)
}

func (s *ProjectService) viewable(ctx context.Context, projectID uint32, actor *user.Actor) (*project.Project, error) {
	ok, err := s.gate.CanView(ctx, projectID, actor)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.ErrUnauthorized
	}
	p, err := s.projects.GetByID(ctx, projectID)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, errs.ErrUnauthorized
	}
	return p, err
}

func links(refs fileInfo.References, param string, id uint32, token string) []Link {
	out := make([]Link, 0, len(refs))
	for key, d := range refs {
		q := url.Values{}
		q.Set(param, strconv.FormatUint(uint64(id), 10))
		q.Set("filekey", key)
		q.Set("token", token)
		out = append(out, Link{Key: key, Name: d.Name, URL: DeliverPath + "?" + q.Encode()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
