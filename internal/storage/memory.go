package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"
	"sync/atomic"
)

// MemoryProvider is an in-memory implementation of Provider for tests and
// dry runs. Objects are keyed by bucket and key and it is safe for concurrent
// use.
type MemoryProvider struct {
	objects map[string]Object
	mu      sync.RWMutex
	signs   atomic.Int64
}

// Object is what MemoryProvider recorded for one put.
type Object struct {
	Data            []byte
	ContentType     string
	ContentEncoding string
	ACL             string
}

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		objects: make(map[string]Object),
	}
}

var _ Provider = (*MemoryProvider)(nil)

func objectID(bucket, key string) string {
	return bucket + "/" + key
}

func (p *MemoryProvider) Upload(ctx context.Context, cfg *Config, params *PutObjectParams) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := validateParams(params.Bucket, params.Key); err != nil {
		return err
	}

	data, err := io.ReadAll(params.Body)
	if err != nil {
		return fmt.Errorf("read data: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.objects[objectID(params.Bucket, params.Key)] = Object{
		Data:            data,
		ContentType:     params.ContentType,
		ContentEncoding: params.ContentEncoding,
		ACL:             params.ACL,
	}
	return nil
}

// SignedURL returns a fake presigned URL. Each call carries a fresh
// signature, and the object does not need to exist, matching real presigning.
func (p *MemoryProvider) SignedURL(ctx context.Context, cfg *Config, params *GetObjectParams, opts SignOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := validateParams(params.Bucket, params.Key); err != nil {
		return "", err
	}

	region := ""
	if cfg != nil {
		region = cfg.Region
	}

	q := url.Values{}
	q.Set("X-Amz-Expires", fmt.Sprintf("%d", int(ResolveExpiry(cfg, opts).Seconds())))
	q.Set("X-Amz-Signature", fmt.Sprintf("memory-%d", p.signs.Add(1)))

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s?%s", params.Bucket, region, params.Key, q.Encode()), nil
}

func (p *MemoryProvider) Check(ctx context.Context, cfg *Config) error {
	return ctx.Err()
}

// Object returns what was stored under bucket/key (test helper).
func (p *MemoryProvider) Object(bucket, key string) (Object, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	obj, ok := p.objects[objectID(bucket, key)]
	return obj, ok
}

// Count returns the number of stored objects (test helper).
func (p *MemoryProvider) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.objects)
}

// Clear removes all objects (test helper).
func (p *MemoryProvider) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.objects = make(map[string]Object)
}
