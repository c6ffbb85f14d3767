// Package upload validates an upload request, derives the object key and
// content type, and drives a storage.Provider through put and presign.
package upload

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/s3drop/internal/apperror"
	"github.com/abdul-hamid-achik/s3drop/internal/filetype"
	"github.com/abdul-hamid-achik/s3drop/internal/logger"
	"github.com/abdul-hamid-achik/s3drop/internal/metrics"
	"github.com/abdul-hamid-achik/s3drop/internal/storage"
	"github.com/abdul-hamid-achik/s3drop/internal/tracing"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// ContentEncoding is sent with every object regardless of its real encoding.
const ContentEncoding = "base64"

// File is a local file and the MIME type its sender declared.
type File struct {
	Path     string
	MIMEType string
}

type Options struct {
	// Key is used verbatim when set. Otherwise a UUID key is generated.
	Key            string
	FetchSignedURL bool
	FileType       filetype.FileType
}

type Result struct {
	Key       string `json:"key"`
	URL       string `json:"url"`
	SignedURL string `json:"signedUrl,omitempty"`
}

// Uploader is stateless apart from its collaborators and safe for concurrent
// use.
type Uploader struct {
	provider storage.Provider
	newID    func() string
}

type Option func(*Uploader)

// WithIDGenerator replaces uuid.NewString for generated keys.
func WithIDGenerator(fn func() string) Option {
	return func(u *Uploader) {
		u.newID = fn
	}
}

func New(provider storage.Provider, opts ...Option) *Uploader {
	u := &Uploader{
		provider: provider,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Upload stores the file and returns its key, unsigned URL and, when
// requested, a signed URL. Nothing is sent to the provider unless every check
// passes. Provider errors are returned as-is and never retried.
func (u *Uploader) Upload(ctx context.Context, cfg *storage.Config, file File, opts Options) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "upload.Upload")
	defer span.End()

	log := logger.FromContext(ctx)
	start := time.Now()

	c, err := normalizeConfig(cfg)
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, err
	}
	if err := validateRequest(file, opts); err != nil {
		tracing.RecordError(ctx, err)
		return nil, err
	}

	ft := resolveFileType(file, opts)
	key := opts.Key
	if key == "" {
		key = u.generateKey(c.Folder, ft)
	}
	span.SetAttributes(
		attribute.String("upload.key", key),
		attribute.String("upload.file_type", ft.String()),
	)

	f, err := os.Open(file.Path)
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, apperror.WrapWithMessage(err, apperror.CodeValidation,
			fmt.Sprintf("file %s is not readable", file.Path), apperror.ErrValidation.StatusCode)
	}
	defer func() { _ = f.Close() }()

	var size int64
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}

	params := &storage.PutObjectParams{
		Bucket:          c.Bucket,
		Key:             key,
		Body:            f,
		Size:            size,
		ContentType:     ft.ContentType(),
		ContentEncoding: ContentEncoding,
		ACL:             c.ACL,
	}

	log.Debug("uploading file", "bucket", c.Bucket, "key", key, "size", size, "content_type", params.ContentType)

	if err := u.provider.Upload(ctx, c, params); err != nil {
		metrics.RecordFileUpload("error", ft.String(), 0, 0)
		tracing.RecordError(ctx, err)
		return nil, err
	}

	result := &Result{
		Key: key,
		URL: UnsignedURL(c, key),
	}

	if opts.FetchSignedURL {
		signed, err := u.sign(ctx, c, key, storage.SignOptions{})
		if err != nil {
			metrics.RecordFileUpload("error", ft.String(), 0, 0)
			tracing.RecordError(ctx, err)
			return nil, err
		}
		result.SignedURL = signed
	}

	metrics.RecordFileUpload("success", ft.String(), size, time.Since(start).Seconds())
	log.Debug("file uploaded", "key", key, "signed", result.SignedURL != "", "duration_ms", time.Since(start).Milliseconds())

	return result, nil
}

// SignedURL presigns a GET for key. The object does not have to exist.
func (u *Uploader) SignedURL(ctx context.Context, cfg *storage.Config, key string, opts storage.SignOptions) (string, error) {
	c, err := normalizeConfig(cfg)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(key) == "" {
		return "", apperror.Validation("key is required")
	}
	return u.sign(ctx, c, key, opts)
}

func (u *Uploader) sign(ctx context.Context, cfg *storage.Config, key string, opts storage.SignOptions) (string, error) {
	return u.provider.SignedURL(ctx, cfg, &storage.GetObjectParams{
		Bucket: cfg.Bucket,
		Key:    key,
	}, opts)
}

// Check reports whether the configured bucket is reachable.
func (u *Uploader) Check(ctx context.Context, cfg *storage.Config) error {
	c, err := normalizeConfig(cfg)
	if err != nil {
		return err
	}
	return u.provider.Check(ctx, c)
}

func (u *Uploader) generateKey(folder string, ft filetype.FileType) string {
	key := u.newID()
	if ft != "" {
		key += "." + ft.String()
	}
	if folder = strings.Trim(folder, "/"); folder != "" {
		key = folder + "/" + key
	}
	return key
}

// UnsignedURL is the public virtual-hosted URL of key. It is only reachable
// when the bucket or object allows public reads.
func UnsignedURL(cfg *storage.Config, key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s",
		strings.TrimSpace(cfg.Bucket), strings.TrimSpace(cfg.Region), key)
}
