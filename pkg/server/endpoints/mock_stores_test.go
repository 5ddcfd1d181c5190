package endpoints

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/doodlesbykumbi/identity-in-go/pkg/model"
	"github.com/doodlesbykumbi/identity-in-go/pkg/store"
)

// MockProvisioner implements server.Provisioner for testing using testify/mock
type MockProvisioner struct {
	mock.Mock
}

func (m *MockProvisioner) Provision(ctx context.Context, tenantID string, passwordHash []byte) (model.SignatureSet, error) {
	args := m.Called(ctx, tenantID, passwordHash)
	return args.Get(0).(model.SignatureSet), args.Error(1)
}

// MockSigningKeyStore implements store.SigningKeyStore for testing using testify/mock
type MockSigningKeyStore struct {
	mock.Mock
}

func (m *MockSigningKeyStore) BuildSchema(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockSigningKeyStore) GenerateAndStore(ctx context.Context, tenantID string) (*store.SigningKeySet, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.SigningKeySet), args.Error(1)
}

func (m *MockSigningKeyStore) GetLatest(ctx context.Context, tenantID string) (*store.SigningKeySet, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.SigningKeySet), args.Error(1)
}

// MockHealthStore implements store.HealthStore for testing using testify/mock
type MockHealthStore struct {
	mock.Mock
}

func (m *MockHealthStore) CheckConnectivity(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
