package MinIO

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"project-submission/internal/errs"
	"project-submission/internal/storage"
	"project-submission/pkg/logger"
)

type Config struct {
	Endpoint  string `env:"MINIO_ENDPOINT" env-default:"minio:9000"`
	Bucket    string `env:"MINIO_BUCKET_NAME" env-default:"uploads"`
	AccessKey string `env:"MINIO_ACCESS_KEY" env-default:"admin"`
	SecretKey string `env:"MINIO_SECRET_KEY"`
	UseSSL    bool   `env:"MINIO_USE_SSL" env-default:"false"`
	PublicURL string `env:"MINIO_PUBLIC_URL" env-default:"http://localhost:9000"`
}

// MinIOClient is a storage.Backend keeping every upload as an object whose key
// is the upload path without its leading slash.
type MinIOClient struct {
	Client  *minio.Client
	Bucket  string
	baseURL string
	now     func() time.Time
}

func New(ctx context.Context, cfg Config) (*MinIOClient, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}

	err = client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{})
	if err != nil {
		exists, errBucketExists := client.BucketExists(ctx, cfg.Bucket)
		if !(errBucketExists == nil && exists) {
			return nil, fmt.Errorf("create bucket %q: %w", cfg.Bucket, err)
		}
	}
	logger.GetLogger(ctx).Info("minio bucket ready", zap.String("bucket", cfg.Bucket))

	return &MinIOClient{
		Client:  client,
		Bucket:  cfg.Bucket,
		baseURL: strings.TrimSuffix(cfg.PublicURL, "/") + "/" + cfg.Bucket,
		now:     time.Now,
	}, nil
}

func (m *MinIOClient) Default() storage.Dir {
	return storage.NewDir("", m.baseURL, m.now().Format("/2006/01"))
}

func (m *MinIOClient) Put(ctx context.Context, dir storage.Dir, name string, r io.Reader, size int64, mime string) (storage.Stored, error) {
	prefix := objectKey(dir.Path)
	final, err := storage.UniqueName(storage.SanitizeName(name), func(candidate string) (bool, error) {
		return m.exists(ctx, path.Join(prefix, candidate))
	})
	if err != nil {
		return storage.Stored{}, err
	}

	key := path.Join(prefix, final)
	_, err = m.Client.PutObject(ctx, m.Bucket, key, r, size, minio.PutObjectOptions{ContentType: mime})
	if err != nil {
		return storage.Stored{}, fmt.Errorf("put %s: %w", key, err)
	}

	return storage.Stored{
		Path: "/" + key,
		URL:  dir.URL + "/" + final,
		Name: final,
	}, nil
}

func (m *MinIOClient) Open(ctx context.Context, p string) (io.ReadCloser, int64, error) {
	key := objectKey(p)
	info, err := m.Client.StatObject(ctx, m.Bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, 0, errs.ErrNotFound
		}
		return nil, 0, err
	}

	obj, err := m.Client.GetObject(ctx, m.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, err
	}
	return obj, info.Size, nil
}

func (m *MinIOClient) Remove(ctx context.Context, p string) error {
	return m.Client.RemoveObject(ctx, m.Bucket, objectKey(p), minio.RemoveObjectOptions{})
}

func (m *MinIOClient) exists(ctx context.Context, key string) (bool, error) {
	_, err := m.Client.StatObject(ctx, m.Bucket, key, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

func objectKey(p string) string {
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}

func isNotFound(err error) bool {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		return resp.Code == "NoSuchKey" || resp.StatusCode == 404
	}
	return false
}
