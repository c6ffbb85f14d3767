package tracing

import (
	"context"

	"github.com/abdul-hamid-achik/s3drop/internal/storage"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TracedProvider opens a client span around every provider call.
type TracedProvider struct {
	storage.Provider
	name string
}

func NewTracedProvider(p storage.Provider, name string) *TracedProvider {
	return &TracedProvider{Provider: p, name: name}
}

func (p *TracedProvider) start(ctx context.Context, op, bucket, key string) (context.Context, trace.Span) {
	ctx, span := StartSpan(ctx, "storage."+op, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String("storage.provider", p.name),
		attribute.String("storage.bucket", bucket),
	)
	if key != "" {
		span.SetAttributes(attribute.String("storage.key", key))
	}
	return ctx, span
}

func (p *TracedProvider) Upload(ctx context.Context, cfg *storage.Config, params *storage.PutObjectParams) error {
	ctx, span := p.start(ctx, "upload", params.Bucket, params.Key)
	defer span.End()

	span.SetAttributes(
		attribute.Int64("storage.size", params.Size),
		attribute.String("storage.content_type", params.ContentType),
	)

	err := p.Provider.Upload(ctx, cfg, params)
	RecordError(ctx, err)
	return err
}

func (p *TracedProvider) SignedURL(ctx context.Context, cfg *storage.Config, params *storage.GetObjectParams, opts storage.SignOptions) (string, error) {
	ctx, span := p.start(ctx, "presign", params.Bucket, params.Key)
	defer span.End()

	url, err := p.Provider.SignedURL(ctx, cfg, params, opts)
	RecordError(ctx, err)
	return url, err
}

func (p *TracedProvider) Check(ctx context.Context, cfg *storage.Config) error {
	ctx, span := p.start(ctx, "check", cfg.Bucket, "")
	defer span.End()

	err := p.Provider.Check(ctx, cfg)
	RecordError(ctx, err)
	return err
}
