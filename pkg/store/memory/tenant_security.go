package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/doodlesbykumbi/identity-in-go/pkg/model"
	"github.com/doodlesbykumbi/identity-in-go/pkg/store"
)

var _ store.TenantSecurityStore = (*TenantSecurityStore)(nil)

type TenantSecurityStore struct {
	schemaState

	mu    sync.RWMutex
	infos map[string]model.TenantSecurityInfo
}

func NewTenantSecurityStore() *TenantSecurityStore {
	return &TenantSecurityStore{infos: map[string]model.TenantSecurityInfo{}}
}

func (s *TenantSecurityStore) Initialize(ctx context.Context, tenantID string, info model.TenantSecurityInfo) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.infos[tenantID]; ok {
		return fmt.Errorf("%w: tenant security for %s", store.ErrAlreadyExists, tenantID)
	}

	info.TenantID = tenantID
	info.FixedSalt = cloneBytes(info.FixedSalt)
	s.infos[tenantID] = info
	return nil
}

func (s *TenantSecurityStore) GetFixedSalt(ctx context.Context, tenantID string) ([]byte, error) {
	info, err := s.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return info.FixedSalt, nil
}

func (s *TenantSecurityStore) Get(ctx context.Context, tenantID string) (*model.TenantSecurityInfo, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	info, ok := s.infos[tenantID]
	if !ok {
		return nil, store.ErrNotFound
	}
	info.FixedSalt = cloneBytes(info.FixedSalt)
	return &info, nil
}
