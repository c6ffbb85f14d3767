package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abdul-hamid-achik/s3drop/internal/logger"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

var _ Provider = (*AWSProvider)(nil)

// AWSProvider uses the official AWS SDK. Credentials come only from Config;
// shared config files and instance metadata are never consulted.
type AWSProvider struct{}

func NewAWSProvider() *AWSProvider {
	return &AWSProvider{}
}

func (p *AWSProvider) client(cfg *Config) *s3.Client {
	opts := s3.Options{
		Region:      cfg.Region,
		Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.endpointURL())
		opts.UsePathStyle = true
	}
	return s3.New(opts)
}

func (p *AWSProvider) Upload(ctx context.Context, cfg *Config, params *PutObjectParams) error {
	log := logger.FromContext(ctx)
	start := time.Now()

	if err := validateParams(params.Bucket, params.Key); err != nil {
		return err
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(params.Bucket),
		Key:         aws.String(params.Key),
		Body:        params.Body,
		ContentType: aws.String(params.ContentType),
	}
	if params.ContentEncoding != "" {
		input.ContentEncoding = aws.String(params.ContentEncoding)
	}
	if params.Size > 0 {
		input.ContentLength = aws.Int64(params.Size)
	}
	if params.ACL != "" {
		input.ACL = types.ObjectCannedACL(params.ACL)
	}

	if _, err := p.client(cfg).PutObject(ctx, input); err != nil {
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

func (p *AWSProvider) SignedURL(ctx context.Context, cfg *Config, params *GetObjectParams, opts SignOptions) (string, error) {
	log := logger.FromContext(ctx)

	if err := validateParams(params.Bucket, params.Key); err != nil {
		return "", err
	}

	expiry := ResolveExpiry(cfg, opts)
	presigner := s3.NewPresignClient(p.client(cfg))
	req, err := presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(params.Bucket),
		Key:    aws.String(params.Key),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		log.Error("storage presign failed", "bucket", params.Bucket, "key", params.Key, "error", err)
		return "", err
	}

	log.Debug("storage presigned url generated", "key", params.Key, "expiry_seconds", int(expiry.Seconds()))
	return req.URL, nil
}

func (p *AWSProvider) Check(ctx context.Context, cfg *Config) error {
	_, err := p.client(cfg).HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return fmt.Errorf("%w: %s", ErrBucketNotFound, cfg.Bucket)
		}
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	return nil
}
