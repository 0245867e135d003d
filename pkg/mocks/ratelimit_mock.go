// Package mocks provides testify mock implementations of the interfaces
// whose failure modes are hard to reach with real backends.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockLimiter is a mock implementation of ratelimit.Limiter interface.
type MockLimiter struct {
	mock.Mock
}

func (m *MockLimiter) IsLimited(ctx context.Context, key string) (bool, int, error) {
	args := m.Called(ctx, key)

	return args.Bool(0), args.Int(1), args.Error(2)
}

func (m *MockLimiter) Hit(ctx context.Context, key string) error {
	args := m.Called(ctx, key)

	return args.Error(0)
}

func (m *MockLimiter) Reset(ctx context.Context, key string) error {
	args := m.Called(ctx, key)

	return args.Error(0)
}
