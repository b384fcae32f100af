// Package test provides test doubles for the session service collaborators.
package test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/hjyangBig2/lighter/pkg/session/core/domain/model"
	"github.com/hjyangBig2/lighter/pkg/session/core/ports"
)

// MockBackend is a testify mock of ports.Backend and ports.LiveSessionLister.
type MockBackend struct {
	mock.Mock
}

var (
	_ ports.Backend           = (*MockBackend)(nil)
	_ ports.LiveSessionLister = (*MockBackend)(nil)
)

// SessionJobResources mocks the SessionJobResources method.
func (m *MockBackend) SessionJobResources() model.SubmitParams {
	args := m.Called()
	return args.Get(0).(model.SubmitParams)
}

// GetInfo mocks the GetInfo method.
func (m *MockBackend) GetInfo(ctx context.Context, app *model.Application) (*model.ApplicationInfo, bool, error) {
	args := m.Called(ctx, app)
	info, _ := args.Get(0).(*model.ApplicationInfo)
	return info, args.Bool(1), args.Error(2)
}

// Kill mocks the Kill method.
func (m *MockBackend) Kill(ctx context.Context, app *model.Application) error {
	args := m.Called(ctx, app)
	return args.Error(0)
}

// ListLiveSessions mocks the ListLiveSessions method.
func (m *MockBackend) ListLiveSessions(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}
