package memory

import (
	"context"
	"sync"

	"github.com/doodlesbykumbi/identity-in-go/pkg/model"
	"github.com/doodlesbykumbi/identity-in-go/pkg/store"
)

var (
	_ store.RoleStore = (*RoleStore)(nil)
	_ store.UserStore = (*UserStore)(nil)
)

type RoleStore struct {
	schemaState

	mu    sync.RWMutex
	roles map[string]model.Role
}

func NewRoleStore() *RoleStore {
	return &RoleStore{roles: map[string]model.Role{}}
}

func (s *RoleStore) Put(ctx context.Context, tenantID string, role model.Role) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	role.TenantID = tenantID
	role.Permissions = append(model.Permissions(nil), role.Permissions...)
	s.roles[key(tenantID, role.Identifier)] = role
	return nil
}

func (s *RoleStore) Get(ctx context.Context, tenantID, identifier string) (*model.Role, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	role, ok := s.roles[key(tenantID, identifier)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &role, nil
}

type UserStore struct {
	schemaState

	mu    sync.RWMutex
	users map[string]model.User
}

func NewUserStore() *UserStore {
	return &UserStore{users: map[string]model.User{}}
}

func (s *UserStore) Put(ctx context.Context, tenantID string, user model.User) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user.TenantID = tenantID
	user.PasswordHash = cloneBytes(user.PasswordHash)
	user.Salt = cloneBytes(user.Salt)
	s.users[key(tenantID, user.Identifier)] = user
	return nil
}

func (s *UserStore) Get(ctx context.Context, tenantID, identifier string) (*model.User, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[key(tenantID, identifier)]
	if !ok {
		return nil, store.ErrNotFound
	}
	user.PasswordHash = cloneBytes(user.PasswordHash)
	user.Salt = cloneBytes(user.Salt)
	return &user, nil
}
