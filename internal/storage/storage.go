// Package storage adapts object-storage SDKs to the small surface s3drop
// needs: put an object and presign a GET for it.
//
// Providers hold no state. Every call builds a client from the Config it is
// given, so one Provider value can serve any number of buckets and credential
// sets concurrently.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

var (
	ErrInvalidKey      = errors.New("storage: invalid key")
	ErrBucketNotFound  = errors.New("storage: bucket not found")
	ErrUnknownProvider = errors.New("storage: unknown provider")
)

const (
	ProviderMinIO  = "minio"
	ProviderAWS    = "aws"
	ProviderMemory = "memory"

	// DefaultSignExpiry applies when neither the call nor the config sets one.
	DefaultSignExpiry = 900 * time.Second

	awsEndpoint = "s3.amazonaws.com"
)

type Provider interface {
	Upload(ctx context.Context, cfg *Config, params *PutObjectParams) error
	SignedURL(ctx context.Context, cfg *Config, params *GetObjectParams, opts SignOptions) (string, error)
	Check(ctx context.Context, cfg *Config) error
}

// Config carries credentials and placement for one call.
type Config struct {
	AccessKeyID      string
	SecretAccessKey  string
	Region           string
	Bucket           string
	Folder           string
	ACL              string
	ExpiresInMinutes int

	// Endpoint points at an S3-compatible store (MinIO, LocalStack). Empty
	// means AWS.
	Endpoint string
	UseSSL   bool
}

type PutObjectParams struct {
	Bucket          string
	Key             string
	Body            io.Reader
	Size            int64
	ContentType     string
	ContentEncoding string
	ACL             string
}

type GetObjectParams struct {
	Bucket string
	Key    string
}

type SignOptions struct {
	ExpiresInSeconds int
}

// New returns the provider registered under name. An empty name selects MinIO.
func New(name string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ProviderMinIO:
		return NewMinIOProvider(), nil
	case ProviderAWS:
		return NewAWSProvider(), nil
	case ProviderMemory:
		return NewMemoryProvider(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
}

// ResolveExpiry picks the signing lifetime: the call's value, then the
// config's minutes, then DefaultSignExpiry.
func ResolveExpiry(cfg *Config, opts SignOptions) time.Duration {
	if opts.ExpiresInSeconds > 0 {
		return time.Duration(opts.ExpiresInSeconds) * time.Second
	}
	if cfg != nil && cfg.ExpiresInMinutes > 0 {
		return time.Duration(cfg.ExpiresInMinutes) * time.Minute
	}
	return DefaultSignExpiry
}

func (c *Config) endpoint() string {
	if c.Endpoint == "" {
		return awsEndpoint
	}
	ep := strings.TrimPrefix(c.Endpoint, "https://")
	return strings.TrimRight(strings.TrimPrefix(ep, "http://"), "/")
}

// secure is always true against AWS itself.
func (c *Config) secure() bool {
	if c.Endpoint == "" {
		return true
	}
	if strings.HasPrefix(c.Endpoint, "https://") {
		return true
	}
	return c.UseSSL
}

func (c *Config) endpointURL() string {
	if c.secure() {
		return "https://" + c.endpoint()
	}
	return "http://" + c.endpoint()
}

func validateParams(bucket, key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if strings.TrimSpace(bucket) == "" {
		return fmt.Errorf("storage: empty bucket for key %q", key)
	}
	return nil
}
