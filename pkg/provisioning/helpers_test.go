package provisioning

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/doodlesbykumbi/identity-in-go/pkg/audit"
	"github.com/doodlesbykumbi/identity-in-go/pkg/model"
	"github.com/doodlesbykumbi/identity-in-go/pkg/store"
	"github.com/doodlesbykumbi/identity-in-go/pkg/store/memory"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type testStores struct {
	keys     *memory.SigningKeyStore
	security *memory.TenantSecurityStore
	groups   *memory.PermittableGroupStore
	mirror   *memory.Mirror
	roles    *memory.RoleStore
	users    *memory.UserStore
}

func newTestStores() *testStores {
	return &testStores{
		keys:     memory.NewSigningKeyStore(nil),
		security: memory.NewTenantSecurityStore(),
		groups:   memory.NewPermittableGroupStore(),
		mirror:   memory.NewMirror(),
		roles:    memory.NewRoleStore(),
		users:    memory.NewUserStore(),
	}
}

func (s *testStores) Stores() Stores {
	return Stores{
		SigningKeys:       s.keys,
		Security:          s.security,
		PermittableGroups: s.groups,
		Mirror:            s.mirror,
		Roles:             s.roles,
		Users:             s.users,
	}
}

// auditRecorder collects audit events in memory
type auditRecorder struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *auditRecorder) Log(event audit.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *auditRecorder) Events() []audit.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]audit.Event(nil), r.events...)
}

func newTestProvisioner(t *testing.T, stores Stores, opts ...Option) (*Provisioner, *auditRecorder) {
	t.Helper()

	logger, _ := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	recorder := &auditRecorder{}

	defaults := []Option{
		WithLogger(logger),
		WithAuditor(recorder),
		WithClock(func() time.Time { return testNow }),
	}

	p, err := NewProvisioner(stores, append(defaults, opts...)...)
	require.NoError(t, err)
	return p, recorder
}

// failingMirror fails every Insert after the first `succeed` inserts
type failingMirror struct {
	store.PermittableGroupMirror
	succeed int

	mu    sync.Mutex
	calls int
}

func (m *failingMirror) Insert(ctx context.Context, tenantID string, record store.MirrorRecord) error {
	m.mu.Lock()
	m.calls++
	calls := m.calls
	m.mu.Unlock()

	if calls > m.succeed {
		return errors.New("mirror: connection reset by peer")
	}
	return m.PermittableGroupMirror.Insert(ctx, tenantID, record)
}

// failingUsers fails every Put
type failingUsers struct {
	store.UserStore
	err error
}

func (u *failingUsers) Put(context.Context, string, model.User) error {
	return u.err
}
