package storagemock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/gridsolph/gridsolph/pkg/storage"
)

type MockDatabase struct {
	mock.Mock
}

var _ storage.Database = (*MockDatabase)(nil)

func (m *MockDatabase) SaveSnapshot(ctx context.Context, snap storage.Snapshot) error {
	args := m.Called(ctx, snap)
	return args.Error(0)
}

func (m *MockDatabase) LoadSnapshot(ctx context.Context, name string) (storage.Snapshot, error) {
	args := m.Called(ctx, name)
	if len(args) > 0 {
		return args.Get(0).(storage.Snapshot), args.Error(1)
	}
	return storage.Snapshot{}, nil
}

func (m *MockDatabase) ListSnapshots(ctx context.Context) ([]storage.Snapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storage.Snapshot), args.Error(1)
}

func (m *MockDatabase) DeleteSnapshot(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

func (m *MockDatabase) Close() error {
	args := m.Called()
	return args.Error(0)
}
