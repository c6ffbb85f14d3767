package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/abdul-hamid-achik/s3drop/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := tracer
	tracer = tp.Tracer("test")
	t.Cleanup(func() {
		tracer = prev
		_ = tp.Shutdown(context.Background())
	})
	return rec
}

func TestInit_Disabled(t *testing.T) {
	shutdown, err := Init(context.Background(), &Config{ServiceName: "s3drop", Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
	assert.NotNil(t, Tracer())
}

func TestSamplerFor(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), samplerFor(1).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), samplerFor(0).Description())
	assert.Contains(t, samplerFor(0.25).Description(), "TraceIDRatioBased")
}

func TestTracedProvider_Upload(t *testing.T) {
	rec := withRecorder(t)
	p := NewTracedProvider(storage.NewMemoryProvider(), "memory")

	err := p.Upload(context.Background(), &storage.Config{}, &storage.PutObjectParams{
		Bucket:      "photos",
		Key:         "a.png",
		Body:        strings.NewReader("png"),
		Size:        3,
		ContentType: "image/png",
	})
	require.NoError(t, err)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "storage.upload", spans[0].Name())
	assert.NotEqual(t, codes.Error, spans[0].Status().Code)
}

func TestTracedProvider_RecordsErrors(t *testing.T) {
	rec := withRecorder(t)
	inner := &storage.MockProvider{}
	boom := errors.New("SignatureDoesNotMatch")
	inner.On("SignedURL", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", boom)

	p := NewTracedProvider(inner, "mock")
	_, err := p.SignedURL(context.Background(), &storage.Config{}, &storage.GetObjectParams{Bucket: "photos", Key: "a.png"}, storage.SignOptions{})
	assert.ErrorIs(t, err, boom)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "storage.presign", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestSplitEndpoint(t *testing.T) {
	tests := []struct {
		in       string
		host     string
		insecure bool
	}{
		{"localhost:4317", "localhost:4317", true},
		{"http://collector:4317", "collector:4317", true},
		{"https://otel.example.com:443/", "otel.example.com:443", false},
	}
	for _, tt := range tests {
		host, insecure := splitEndpoint(tt.in)
		assert.Equal(t, tt.host, host, tt.in)
		assert.Equal(t, tt.insecure, insecure, tt.in)
	}
}

func TestHTTPMiddleware(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	h := HTTPMiddleware("s3drop")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for _, path := range []string{"/health/live", "/metrics", "/v1/url", "/nope/123"} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNoContent, rr.Code)
	}

	var names []string
	for _, s := range rec.Ended() {
		names = append(names, s.Name())
	}
	assert.ElementsMatch(t, []string{"HTTP GET /v1/url", "HTTP GET other"}, names)
}
