package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/doodlesbykumbi/identity-in-go/pkg/model"
	"github.com/doodlesbykumbi/identity-in-go/pkg/store"
)

var (
	_ store.PermittableGroupStore  = (*PermittableGroupStore)(nil)
	_ store.PermittableGroupMirror = (*Mirror)(nil)
)

type PermittableGroupStore struct {
	schemaState

	mu     sync.RWMutex
	groups map[string]model.PermittableGroup
}

func NewPermittableGroupStore() *PermittableGroupStore {
	return &PermittableGroupStore{groups: map[string]model.PermittableGroup{}}
}

func (s *PermittableGroupStore) Put(ctx context.Context, tenantID string, group model.PermittableGroup) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	group.TenantID = tenantID
	group.Permittables = append(model.Permittables(nil), group.Permittables...)
	s.groups[key(tenantID, group.Identifier)] = group
	return nil
}

func (s *PermittableGroupStore) Get(ctx context.Context, tenantID, identifier string) (*model.PermittableGroup, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	group, ok := s.groups[key(tenantID, identifier)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &group, nil
}

func (s *PermittableGroupStore) List(ctx context.Context, tenantID string) ([]model.PermittableGroup, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var groups []model.PermittableGroup
	for k, group := range s.groups {
		if strings.HasPrefix(k, tenantID+"\x00") {
			groups = append(groups, group)
		}
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Identifier < groups[j].Identifier })
	return groups, nil
}

// Mirror is an insert-or-ignore record set
type Mirror struct {
	schemaState

	mu      sync.RWMutex
	records map[string]store.MirrorRecord
	tenants map[string][]string
}

func NewMirror() *Mirror {
	return &Mirror{
		records: map[string]store.MirrorRecord{},
		tenants: map[string][]string{},
	}
}

func (m *Mirror) Insert(ctx context.Context, tenantID string, record store.MirrorRecord) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	k := key(tenantID, record.Identifier)
	if _, ok := m.records[k]; ok {
		return nil
	}
	m.records[k] = record
	m.tenants[tenantID] = append(m.tenants[tenantID], record.Identifier)
	return nil
}

func (m *Mirror) Get(ctx context.Context, tenantID, identifier string) (*store.MirrorRecord, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	record, ok := m.records[key(tenantID, identifier)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &record, nil
}

func (m *Mirror) List(ctx context.Context, tenantID string) ([]store.MirrorRecord, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	identifiers := append([]string(nil), m.tenants[tenantID]...)
	sort.Strings(identifiers)

	records := make([]store.MirrorRecord, 0, len(identifiers))
	for _, identifier := range identifiers {
		records = append(records, m.records[key(tenantID, identifier)])
	}
	return records, nil
}
