package storage

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockProvider is a testify mock of Provider.
type MockProvider struct {
	mock.Mock
}

var _ Provider = (*MockProvider)(nil)

func (m *MockProvider) Upload(ctx context.Context, cfg *Config, params *PutObjectParams) error {
	args := m.Called(ctx, cfg, params)
	return args.Error(0)
}

func (m *MockProvider) SignedURL(ctx context.Context, cfg *Config, params *GetObjectParams, opts SignOptions) (string, error) {
	args := m.Called(ctx, cfg, params, opts)
	return args.String(0), args.Error(1)
}

func (m *MockProvider) Check(ctx context.Context, cfg *Config) error {
	args := m.Called(ctx, cfg)
	return args.Error(0)
}
