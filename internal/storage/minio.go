package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/abdul-hamid-achik/s3drop/internal/logger"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var _ Provider = (*MinIOProvider)(nil)

const aclHeader = "x-amz-acl"

// MinIOProvider talks to AWS S3 or any S3-compatible store through minio-go.
type MinIOProvider struct{}

func NewMinIOProvider() *MinIOProvider {
	return &MinIOProvider{}
}

func (p *MinIOProvider) client(cfg *Config) (*minio.Client, error) {
	client, err := minio.New(cfg.endpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.secure(),
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return client, nil
}

func (p *MinIOProvider) Upload(ctx context.Context, cfg *Config, params *PutObjectParams) error {
	log := logger.FromContext(ctx)
	start := time.Now()

	if err := validateParams(params.Bucket, params.Key); err != nil {
		return err
	}

	client, err := p.client(cfg)
	if err != nil {
		return err
	}

	opts := minio.PutObjectOptions{
		ContentType:     params.ContentType,
		ContentEncoding: params.ContentEncoding,
	}
	if params.ACL != "" {
		opts.UserMetadata = map[string]string{aclHeader: params.ACL}
	}

	size := params.Size
	if size <= 0 {
		size = -1
	}

	_, err = client.PutObject(ctx, params.Bucket, params.Key, params.Body, size, opts)
	if err != nil {
		log.Error("storage upload failed", "bucket", params.Bucket, "key", params.Key, "size", params.Size, "error", err)
		return err
	}

	log.Debug("storage upload completed",
		"bucket", params.Bucket,
		"key", params.Key,
		"size", params.Size,
		"content_type", params.ContentType,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (p *MinIOProvider) SignedURL(ctx context.Context, cfg *Config, params *GetObjectParams, opts SignOptions) (string, error) {
	log := logger.FromContext(ctx)

	if err := validateParams(params.Bucket, params.Key); err != nil {
		return "", err
	}

	client, err := p.client(cfg)
	if err != nil {
		return "", err
	}

	expiry := ResolveExpiry(cfg, opts)
	u, err := client.PresignedGetObject(ctx, params.Bucket, params.Key, expiry, nil)
	if err != nil {
		log.Error("storage presign failed", "bucket", params.Bucket, "key", params.Key, "error", err)
		return "", err
	}

	log.Debug("storage presigned url generated", "key", params.Key, "expiry_seconds", int(expiry.Seconds()))
	return u.String(), nil
}

func (p *MinIOProvider) Check(ctx context.Context, cfg *Config) error {
	client, err := p.client(cfg)
	if err != nil {
		return err
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrBucketNotFound, cfg.Bucket)
	}
	return nil
}
