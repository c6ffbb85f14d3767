//go:build integration

package storage_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/s3drop/internal/storage"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run with a local MinIO:
//
//	docker run -p 9000:9000 minio/minio server /data
//	go test -tags integration ./internal/storage/...
var testCfg *storage.Config

func TestMain(m *testing.M) {
	endpoint := os.Getenv("TEST_MINIO_ENDPOINT")
	if endpoint == "" {
		endpoint = "localhost:9000"
	}

	testCfg = &storage.Config{
		AccessKeyID:     envOr("TEST_MINIO_ACCESS_KEY", "minioadmin"),
		SecretAccessKey: envOr("TEST_MINIO_SECRET_KEY", "minioadmin"),
		Region:          "us-east-1",
		Bucket:          "s3drop-it",
		Endpoint:        endpoint,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := minio.New(endpoint, &minio.Options{
		Creds: credentials.NewStaticV4(testCfg.AccessKeyID, testCfg.SecretAccessKey, ""),
	})
	if err != nil {
		fmt.Printf("Skipping integration tests: %v\n", err)
		os.Exit(0)
	}

	exists, err := client.BucketExists(ctx, testCfg.Bucket)
	if err != nil {
		fmt.Printf("Skipping integration tests: MinIO not reachable at %s: %v\n", endpoint, err)
		os.Exit(0)
	}
	if !exists {
		if err := client.MakeBucket(ctx, testCfg.Bucket, minio.MakeBucketOptions{Region: testCfg.Region}); err != nil {
			fmt.Printf("Failed to create bucket: %v\n", err)
			os.Exit(1)
		}
	}

	os.Exit(m.Run())
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestProviders_RoundTrip(t *testing.T) {
	providers := map[string]storage.Provider{
		storage.ProviderMinIO: storage.NewMinIOProvider(),
		storage.ProviderAWS:   storage.NewAWSProvider(),
	}

	for name, p := range providers {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, p.Check(ctx, testCfg))

			key := name + "/" + uuid.NewString() + ".png"
			data := []byte("integration payload")

			require.NoError(t, p.Upload(ctx, testCfg, &storage.PutObjectParams{
				Bucket:      testCfg.Bucket,
				Key:         key,
				Body:        bytes.NewReader(data),
				Size:        int64(len(data)),
				ContentType: "image/png",
			}))

			signed, err := p.SignedURL(ctx, testCfg, &storage.GetObjectParams{Bucket: testCfg.Bucket, Key: key},
				storage.SignOptions{ExpiresInSeconds: 60})
			require.NoError(t, err)

			resp, err := http.Get(signed)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Equal(t, data, body)
		})
	}
}

func TestProviders_MissingBucket(t *testing.T) {
	cfg := *testCfg
	cfg.Bucket = "s3drop-does-not-exist-" + uuid.NewString()[:8]

	for _, p := range []storage.Provider{storage.NewMinIOProvider(), storage.NewAWSProvider()} {
		err := p.Check(context.Background(), &cfg)
		assert.ErrorIs(t, err, storage.ErrBucketNotFound)
	}
}
