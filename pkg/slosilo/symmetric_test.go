package slosilo

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDataKey() []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func TestNewSymmetric(t *testing.T) {
	cipher, err := NewSymmetric(testDataKey())
	require.NoError(t, err)
	require.NotNil(t, cipher)

	// AES requires 16, 24, or 32 bytes
	_, err = NewSymmetric(make([]byte, 15))
	assert.Error(t, err)
}

func TestSymmetricEncryptDecrypt(t *testing.T) {
	cipher, err := NewSymmetric(testDataKey())
	require.NoError(t, err)

	tests := []struct {
		name      string
		aad       []byte
		plaintext []byte
	}{
		{name: "private key der", aad: []byte("acme:20240101T000000.000000000Z"), plaintext: bytes.Repeat([]byte{0x30, 0x82}, 600)},
		{name: "empty plaintext", aad: []byte("acme"), plaintext: []byte{}},
		{name: "binary data", aad: []byte("binary"), plaintext: []byte{0x00, 0x01, 0xff, 0xfe}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ciphertext, err := cipher.Encrypt(tt.aad, tt.plaintext)
			require.NoError(t, err)
			assert.Equal(t, versionMagic, ciphertext[0])

			plaintext, err := cipher.Decrypt(tt.aad, ciphertext)
			require.NoError(t, err)
			assert.True(t, bytes.Equal(tt.plaintext, plaintext))
		})
	}
}

func TestSymmetricDecryptWithWrongAAD(t *testing.T) {
	cipher, err := NewSymmetric(testDataKey())
	require.NoError(t, err)

	ciphertext, err := cipher.Encrypt([]byte("tenant-a:1"), []byte("secret"))
	require.NoError(t, err)

	_, err = cipher.Decrypt([]byte("tenant-b:1"), ciphertext)
	assert.Error(t, err, "ciphertext must not decrypt under another row's aad")
}

func TestSymmetricDecryptRejectsShortInput(t *testing.T) {
	cipher, err := NewSymmetric(testDataKey())
	require.NoError(t, err)

	_, err = cipher.Decrypt(nil, []byte{versionMagic, 0x01})
	assert.Error(t, err)
}

func TestSymmetricEncryptUsesFreshNonce(t *testing.T) {
	cipher, err := NewSymmetric(testDataKey())
	require.NoError(t, err)

	a, err := cipher.Encrypt([]byte("aad"), []byte("same"))
	require.NoError(t, err)
	b, err := cipher.Encrypt([]byte("aad"), []byte("same"))
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}
