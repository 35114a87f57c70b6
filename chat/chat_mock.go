package chat

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockBackend is a mock implementation of Backend for testing.
type MockBackend struct {
	mock.Mock
}

var _ Backend = (*MockBackend)(nil)

func NewMockBackend() *MockBackend {
	return &MockBackend{}
}

func (m *MockBackend) EstimateTokens(req Request) int {
	args := m.Called(req)
	return args.Int(0)
}

func (m *MockBackend) Connect(ctx context.Context) (Conn, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(Conn), args.Error(1)
}

func (m *MockBackend) Initialize(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockBackend) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockConn is a mock implementation of Conn for testing.
type MockConn struct {
	mock.Mock
}

var _ Conn = (*MockConn)(nil)

func NewMockConn() *MockConn {
	return &MockConn{}
}

func (m *MockConn) Invoke(ctx context.Context, req Request) (*Result, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Result), args.Error(1)
}

func (m *MockConn) Close() error {
	args := m.Called()
	return args.Error(0)
}
