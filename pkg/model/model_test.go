package model

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermittablesColumn(t *testing.T) {
	t.Run("nil encodes as empty array", func(t *testing.T) {
		value, err := Permittables(nil).Value()
		require.NoError(t, err)
		assert.Equal(t, "[]", value)
	})

	t.Run("scans bytes from jsonb", func(t *testing.T) {
		var p Permittables
		err := p.Scan([]byte(`[{"path":"identity-v1/users/*","method":"GET"}]`))
		require.NoError(t, err)
		assert.Equal(t, Permittables{{Path: "identity-v1/users/*", Method: MethodGet}}, p)
	})

	t.Run("rejects unsupported source", func(t *testing.T) {
		var p Permittables
		assert.Error(t, p.Scan(42))
	})
}

func TestPermissionAllows(t *testing.T) {
	p := Permission{PermittableGroupIdentifier: "ROLE_MANAGEMENT", AllowedOperations: []AllowedOperation{OperationRead}}

	assert.True(t, p.Allows(OperationRead))
	assert.False(t, p.Allows(OperationDelete))

	full := Permission{PermittableGroupIdentifier: "ROLE_MANAGEMENT", AllowedOperations: AllOperations()}
	for _, op := range AllOperations() {
		assert.True(t, full.Allows(op))
	}
}

func TestRolePermissionFor(t *testing.T) {
	role := Role{
		Identifier: "SU_ROLE",
		Permissions: Permissions{
			{PermittableGroupIdentifier: "IDENTITY_MANAGEMENT", AllowedOperations: AllOperations()},
		},
	}

	_, ok := role.PermissionFor("IDENTITY_MANAGEMENT")
	assert.True(t, ok)
	_, ok = role.PermissionFor("UNKNOWN")
	assert.False(t, ok)
}

func TestNewSignatureSet(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	set, err := NewSignatureSet("20240101T000000.000000000Z", &priv.PublicKey)
	require.NoError(t, err)

	assert.Equal(t, "20240101T000000.000000000Z", set.Timestamp)
	assert.Contains(t, set.PublicKeyPEM, "BEGIN PUBLIC KEY")
	assert.Equal(t, priv.PublicKey.E, set.PublicKeyExp)

	mod, err := base64.RawURLEncoding.DecodeString(set.PublicKeyMod)
	require.NoError(t, err)
	assert.Equal(t, 0, new(big.Int).SetBytes(mod).Cmp(priv.PublicKey.N))
}

func TestSigningKeyID(t *testing.T) {
	key := SigningKey{TenantID: "acme", Timestamp: "20240101T000000.000000000Z"}
	assert.Equal(t, "acme:20240101T000000.000000000Z", key.ID())
}
