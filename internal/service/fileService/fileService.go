package fileService

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"project-submission/internal/errs"
	"project-submission/internal/model/fileInfo"
	"project-submission/internal/model/project"
	"project-submission/internal/model/user"
	"project-submission/internal/service/accessService"
	"project-submission/internal/storage"
	"project-submission/internal/validation"
	"project-submission/pkg/logger"
)

type Folders interface {
	Namespace(token, username string) string
	DeriveProjectFolder(ctx context.Context, projectID uint32) (string, error)
}

type Gate interface {
	CanView(ctx context.Context, projectID uint32, actor accessService.AuthContext) (bool, error)
}

type RefStore interface {
	Append(ctx context.Context, kind fileInfo.OwnerKind, ownerID uint32, refs fileInfo.References) error
	Get(ctx context.Context, kind fileInfo.OwnerKind, ownerID uint32, key string) (*fileInfo.Descriptor, error)
	List(ctx context.Context, kind fileInfo.OwnerKind, ownerID uint32) (fileInfo.References, error)
}

type MessageGetter interface {
	GetByID(ctx context.Context, id uint32) (*project.Message, error)
}

type AvatarStore interface {
	SetAvatar(ctx context.Context, userID uint32, path, mime string) error
}

type FileService struct {
	folders  Folders
	gate     Gate
	store    storage.Backend
	refs     RefStore
	messages MessageGetter
	avatars  AvatarStore
}

func New(folders Folders, gate Gate, store storage.Backend, refs RefStore, messages MessageGetter, avatars AvatarStore) *FileService {
	return &FileService{
		folders:  folders,
		gate:     gate,
		store:    store,
		refs:     refs,
		messages: messages,
		avatars:  avatars,
	}
}

// InterceptUploads runs fn with the destination for one batch of uploads tied
// to projectID. The project folder is used only when the project exists, has an
// author with a namespace, and actor may view it; otherwise fn gets the default
// destination.
func (s *FileService) InterceptUploads(ctx context.Context, projectID uint32, actor accessService.AuthContext, fn func(storage.Dir) error) error {
	return fn(s.destination(ctx, projectID, actor))
}

func (s *FileService) destination(ctx context.Context, projectID uint32, actor accessService.AuthContext) storage.Dir {
	dir := s.store.Default()
	if projectID == 0 {
		return dir
	}
	log := logger.GetLogger(ctx).With(zap.Uint32("project_id", projectID))

	ok, err := s.gate.CanView(ctx, projectID, actor)
	if err != nil || !ok {
		log.Debug("upload left in default storage", zap.Bool("allowed", ok), zap.Error(err))
		return dir
	}
	folder, err := s.folders.DeriveProjectFolder(ctx, projectID)
	if err != nil {
		log.Debug("upload left in default storage", zap.Error(err))
		return dir
	}
	return dir.WithSubdir(folder)
}

// UploadProjectFiles stores files in the project folder and records their references.
func (s *FileService) UploadProjectFiles(ctx context.Context, projectID uint32, actor accessService.AuthContext, files []fileInfo.Upload) (fileInfo.References, error) {
	return s.upload(ctx, projectID, fileInfo.OwnerProject, projectID, actor, files)
}

// UploadMessageFiles stores message attachments in the folder of the message's project.
func (s *FileService) UploadMessageFiles(ctx context.Context, messageID uint32, actor accessService.AuthContext, files []fileInfo.Upload) (fileInfo.References, error) {
	m, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("load message %d: %w", messageID, err)
	}
	return s.upload(ctx, m.ProjectID, fileInfo.OwnerMessage, messageID, actor, files)
}

// upload writes every file it can; failures are joined under errs.ErrUploadFailed
// and do not stop the batch.
func (s *FileService) upload(ctx context.Context, projectID uint32, kind fileInfo.OwnerKind, ownerID uint32, actor accessService.AuthContext, files []fileInfo.Upload) (fileInfo.References, error) {
	if len(files) == 0 {
		return fileInfo.References{}, nil
	}
	log := logger.GetLogger(ctx)
	refs := make(fileInfo.References, len(files))
	var (
		failed []error
		total  int64
	)

	err := s.InterceptUploads(ctx, projectID, actor, func(dir storage.Dir) error {
		for _, f := range files {
			d, err := s.put(ctx, dir, f)
			if err != nil {
				log.Warn("file upload failed", zap.String("name", f.Name), zap.Error(err))
				failed = append(failed, fmt.Errorf("%s: %w", f.Name, err))
				continue
			}
			refs[d.Key] = d
			total += f.Size
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(refs) > 0 {
		if err := s.refs.Append(ctx, kind, ownerID, refs); err != nil {
			for _, d := range refs {
				_ = s.store.Remove(ctx, d.Path)
			}
			return nil, fmt.Errorf("save file references: %w", err)
		}
		log.Info("files uploaded",
			zap.String("owner_kind", string(kind)),
			zap.Uint32("owner_id", ownerID),
			zap.Int("count", len(refs)),
			zap.String("size", validation.HumanSize(total)))
	}

	if len(failed) > 0 {
		return refs, errors.Join(append([]error{errs.ErrUploadFailed}, failed...)...)
	}
	return refs, nil
}

func (s *FileService) put(ctx context.Context, dir storage.Dir, f fileInfo.Upload) (fileInfo.Descriptor, error) {
	rc, err := f.Open()
	if err != nil {
		return fileInfo.Descriptor{}, err
	}
	defer rc.Close()

	stored, err := s.store.Put(ctx, dir, f.Name, rc, f.Size, f.Mime)
	if err != nil {
		return fileInfo.Descriptor{}, err
	}
	return fileInfo.Descriptor{
		Key:  fileInfo.Key(stored.Path),
		Path: stored.Path,
		Name: stored.Name,
		Mime: f.Mime,
		URL:  stored.URL,
	}, nil
}

// Resolve finds the descriptor a delivery request points at. A missing target
// or a denied actor gives errs.ErrUnauthorized; a missing key gives errs.ErrNotFound.
// The message id wins over the project id when both are set.
func (s *FileService) Resolve(ctx context.Context, target fileInfo.Target, actor accessService.AuthContext) (*fileInfo.Descriptor, error) {
	var (
		projectID = target.ProjectID
		kind      = fileInfo.OwnerProject
		ownerID   = target.ProjectID
	)
	if target.MessageID != 0 {
		m, err := s.messages.GetByID(ctx, target.MessageID)
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.ErrUnauthorized
		}
		if err != nil {
			return nil, fmt.Errorf("load message %d: %w", target.MessageID, err)
		}
		projectID, kind, ownerID = m.ProjectID, fileInfo.OwnerMessage, m.ID
	}
	if projectID == 0 {
		return nil, errs.ErrUnauthorized
	}

	ok, err := s.gate.CanView(ctx, projectID, actor)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.ErrUnauthorized
	}

	return s.refs.Get(ctx, kind, ownerID, target.FileKey)
}

// Open returns the stored bytes of d; errs.ErrNotFound when they are gone.
func (s *FileService) Open(ctx context.Context, d *fileInfo.Descriptor) (io.ReadCloser, int64, error) {
	return s.store.Open(ctx, d.Path)
}

// Links lists the references of a project or message.
func (s *FileService) Links(ctx context.Context, kind fileInfo.OwnerKind, ownerID uint32) (fileInfo.References, error) {
	return s.refs.List(ctx, kind, ownerID)
}

// UploadAvatar stores the avatar in the user's namespace, or in default
// storage when the user has none, and records it on the user.
func (s *FileService) UploadAvatar(ctx context.Context, u *user.User, f fileInfo.Upload) (fileInfo.Descriptor, error) {
	dir := s.store.Default()
	if u.SecretKey != "" {
		dir = dir.WithSubdir(strings.TrimSuffix(s.folders.Namespace(u.SecretKey, u.Username), "/"))
	}
	d, err := s.put(ctx, dir, f)
	if err != nil {
		return fileInfo.Descriptor{}, fmt.Errorf("store avatar: %w", err)
	}
	if err := s.avatars.SetAvatar(ctx, u.ID, d.Path, d.Mime); err != nil {
		_ = s.store.Remove(ctx, d.Path)
		return fileInfo.Descriptor{}, fmt.Errorf("save avatar: %w", err)
	}
	u.AvatarPath, u.AvatarMime = d.Path, d.Mime
	return d, nil
}

// OpenAvatar returns errs.ErrNotFound when the user has no stored avatar.
func (s *FileService) OpenAvatar(ctx context.Context, u *user.User) (io.ReadCloser, int64, error) {
	if u.AvatarPath == "" {
		return nil, 0, errs.ErrNotFound
	}
	return s.store.Open(ctx, u.AvatarPath)
}
