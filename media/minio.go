package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"webstories/models"
)

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL is the externally reachable prefix objects are served under.
	// Defaults to the endpoint/bucket URL.
	PublicURL string
}

// MinIO stores media objects in an S3-compatible bucket.
type MinIO struct {
	client    *minio.Client
	bucket    string
	publicURL string
	logger    *slog.Logger
}

func NewMinIO(cfg MinIOConfig, logger *slog.Logger) (*MinIO, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	publicURL := strings.TrimRight(cfg.PublicURL, "/")
	if publicURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
	}

	return &MinIO{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: publicURL,
		logger:    logger.With(slog.String("component", "media_store")),
	}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (m *MinIO) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", m.bucket, err)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", m.bucket, err)
	}
	m.logger.Info("bucket created", slog.String("bucket", m.bucket))
	return nil
}

func (m *MinIO) Upload(ctx context.Context, r io.Reader, opts UploadOptions) (Asset, error) {
	key := ObjectKey(opts, extensionFor(opts.ContentType))

	size := opts.Size
	if size <= 0 {
		size = -1
	}
	info, err := m.client.PutObject(ctx, m.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: opts.ContentType,
	})
	if err != nil {
		return Asset{}, fmt.Errorf("put object %s: %w", key, err)
	}

	m.logger.Debug("object uploaded",
		slog.String("asset_id", info.Key),
		slog.Int64("size", info.Size),
		slog.String("resource_kind", string(opts.ResourceKind)),
	)
	return Asset{ID: info.Key, URL: m.publicURL + "/" + info.Key}, nil
}

func (m *MinIO) Destroy(ctx context.Context, assetID string, kind models.Kind) error {
	if err := m.client.RemoveObject(ctx, m.bucket, assetID, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove %s object %s: %w", kind, assetID, err)
	}
	return nil
}

func extensionFor(contentType string) string {
	exts, err := mime.ExtensionsByType(contentType)
	if err != nil || len(exts) == 0 {
		return ""
	}
	return exts[0]
}
