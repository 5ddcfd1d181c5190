package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doodlesbykumbi/identity-in-go/pkg/model"
	"github.com/doodlesbykumbi/identity-in-go/pkg/slosilo"
	"github.com/doodlesbykumbi/identity-in-go/pkg/store"
)

func TestSigningKeyStoreLatestIsLexicalMaximum(t *testing.T) {
	ctx := context.Background()
	keys := NewSigningKeyStore(nil)

	// A clock that runs backwards must not produce an older "latest"
	times := []time.Time{
		time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	calls := 0
	keys.SetClock(func() time.Time {
		ts := times[calls]
		calls++
		return ts
	})

	first, err := keys.GenerateAndStore(ctx, "acme")
	require.NoError(t, err)
	second, err := keys.GenerateAndStore(ctx, "acme")
	require.NoError(t, err)

	assert.Greater(t, second.Timestamp, first.Timestamp)

	latest, err := keys.GetLatest(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, second.Timestamp, latest.Timestamp)
	assert.Equal(t, 2, keys.Count("acme"))
}

func TestSigningKeyStoreNotFound(t *testing.T) {
	_, err := NewSigningKeyStore(nil).GetLatest(context.Background(), "acme")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSigningKeyStoreGeneratorFailure(t *testing.T) {
	keys := NewSigningKeyStore(func() (*slosilo.Key, error) {
		return slosilo.GenerateKeyWithBits(512)
	})

	_, err := keys.GenerateAndStore(context.Background(), "acme")
	assert.ErrorIs(t, err, store.ErrKeyGeneration)
}

func TestTenantSecurityStoreIsWriteOnce(t *testing.T) {
	ctx := context.Background()
	security := NewTenantSecurityStore()

	require.NoError(t, security.Initialize(ctx, "acme", model.TenantSecurityInfo{FixedSalt: []byte("first")}))
	err := security.Initialize(ctx, "acme", model.TenantSecurityInfo{FixedSalt: []byte("second")})
	assert.ErrorIs(t, err, store.ErrAlreadyExists)

	salt, err := security.GetFixedSalt(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), salt)

	// Callers cannot mutate the stored salt through the returned slice
	salt[0] = 'X'
	again, err := security.GetFixedSalt(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), again)
}

func TestMirrorInsertOrIgnore(t *testing.T) {
	ctx := context.Background()
	mirror := NewMirror()

	require.NoError(t, mirror.Insert(ctx, "acme", store.MirrorRecord{Identifier: "ROLE_MANAGEMENT", Permittables: "first"}))
	require.NoError(t, mirror.Insert(ctx, "acme", store.MirrorRecord{Identifier: "ROLE_MANAGEMENT", Permittables: "second"}))
	require.NoError(t, mirror.Insert(ctx, "globex", store.MirrorRecord{Identifier: "ROLE_MANAGEMENT", Permittables: "other"}))

	record, err := mirror.Get(ctx, "acme", "ROLE_MANAGEMENT")
	require.NoError(t, err)
	assert.Equal(t, "first", record.Permittables)

	records, err := mirror.List(ctx, "acme")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestPermittableGroupStoreListIsTenantScoped(t *testing.T) {
	ctx := context.Background()
	groups := NewPermittableGroupStore()

	require.NoError(t, groups.Put(ctx, "acme", model.PermittableGroup{Identifier: "ROLE_MANAGEMENT"}))
	require.NoError(t, groups.Put(ctx, "acme", model.PermittableGroup{Identifier: "IDENTITY_MANAGEMENT"}))
	require.NoError(t, groups.Put(ctx, "acme-two", model.PermittableGroup{Identifier: "SELF_MANAGEMENT"}))

	list, err := groups.List(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "IDENTITY_MANAGEMENT", list[0].Identifier)
	assert.Equal(t, "acme", list[0].TenantID)
}

func TestSchemaMissing(t *testing.T) {
	users := NewUserStore()
	assert.NoError(t, users.BuildSchema(context.Background()))

	users.SetSchemaMissing(true)
	assert.ErrorIs(t, users.BuildSchema(context.Background()), store.ErrSchemaNotReady)
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewRoleStore().Put(ctx, "acme", model.Role{Identifier: "SU_ROLE"})
	assert.ErrorIs(t, err, store.ErrUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
}
