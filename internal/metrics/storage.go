package metrics

import (
	"context"
	"time"

	"github.com/abdul-hamid-achik/s3drop/internal/storage"
)

// InstrumentedProvider records operation counts, latency and bytes for the
// wrapped provider.
type InstrumentedProvider struct {
	storage.Provider
}

func NewInstrumentedProvider(p storage.Provider) *InstrumentedProvider {
	return &InstrumentedProvider{Provider: p}
}

func (p *InstrumentedProvider) Upload(ctx context.Context, cfg *storage.Config, params *storage.PutObjectParams) error {
	start := time.Now()

	err := p.Provider.Upload(ctx, cfg, params)

	observe("upload", start, err)
	if err == nil && params.Size > 0 {
		StorageBytesTotal.WithLabelValues("upload").Add(float64(params.Size))
	}

	return err
}

func (p *InstrumentedProvider) SignedURL(ctx context.Context, cfg *storage.Config, params *storage.GetObjectParams, opts storage.SignOptions) (string, error) {
	start := time.Now()

	url, err := p.Provider.SignedURL(ctx, cfg, params, opts)

	observe("presign", start, err)
	return url, err
}

func (p *InstrumentedProvider) Check(ctx context.Context, cfg *storage.Config) error {
	start := time.Now()

	err := p.Provider.Check(ctx, cfg)

	observe("check", start, err)
	return err
}

func observe(operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	StorageOperationsTotal.WithLabelValues(operation, status).Inc()
	StorageOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
