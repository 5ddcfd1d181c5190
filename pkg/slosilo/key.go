package slosilo

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"math/big"
)

// MinKeyBits is the smallest RSA modulus accepted for tenant signing keys.
const MinKeyBits = 2048

type Key struct {
	privateKey  *rsa.PrivateKey
	fingerprint string // lazily computed from the public key
}

// NewKey restores a key from its PKCS#1 DER serialization.
func NewKey(pkeyDer []byte) (*Key, error) {
	pkey, err := x509.ParsePKCS1PrivateKey(pkeyDer)
	if err != nil {
		return nil, err
	}

	return &Key{privateKey: pkey}, nil
}

// GenerateKey generates a new 2048-bit RSA key for token signing
func GenerateKey() (*Key, error) {
	return GenerateKeyWithBits(MinKeyBits)
}

// GenerateKeyWithBits generates an RSA key with the given modulus size.
// Sizes below MinKeyBits are rejected.
func GenerateKeyWithBits(bits int) (*Key, error) {
	if bits < MinKeyBits {
		return nil, fmt.Errorf("rsa modulus of %d bits is below the %d bit minimum", bits, MinKeyBits)
	}

	pkey, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, err
	}

	return &Key{privateKey: pkey}, nil
}

// Serialize returns the DER-encoded private key
func (k *Key) Serialize() ([]byte, error) {
	return x509.MarshalPKCS1PrivateKey(k.privateKey), nil
}

func (k *Key) PrivateKey() *rsa.PrivateKey {
	return k.privateKey
}

func (k *Key) PublicKey() *rsa.PublicKey {
	return &k.privateKey.PublicKey
}

// Modulus and Exponent describe the public half the way token verifiers consume it.
func (k *Key) Modulus() *big.Int {
	return new(big.Int).Set(k.privateKey.N)
}

func (k *Key) Exponent() int {
	return k.privateKey.E
}

func (k *Key) PrivateRSAPem() []byte {
	return pem.EncodeToMemory(
		&pem.Block{
			Type:  "RSA PRIVATE KEY",
			Bytes: x509.MarshalPKCS1PrivateKey(k.privateKey),
		},
	)
}

func (k *Key) PublicPem() []byte {
	bytes, err := x509.MarshalPKIXPublicKey(&k.privateKey.PublicKey)
	if err != nil {
		panic(err)
	}
	return pem.EncodeToMemory(
		&pem.Block{
			Type:  "PUBLIC KEY",
			Bytes: bytes,
		},
	)
}

// ParsePublicPem reads a PKIX "PUBLIC KEY" block as produced by PublicPem.
func ParsePublicPem(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != "PUBLIC KEY" {
		return nil, fmt.Errorf("no PUBLIC KEY block found")
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}

	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is %T, not RSA", pub)
	}
	return rsaPub, nil
}

func (k *Key) Fingerprint() string {
	if len(k.fingerprint) > 0 {
		return k.fingerprint
	}

	der, err := x509.MarshalPKIXPublicKey(&k.privateKey.PublicKey)
	if err != nil {
		return ""
	}

	sum := sha256.Sum256(der)
	k.fingerprint = hex.EncodeToString(sum[:])
	return k.fingerprint
}
