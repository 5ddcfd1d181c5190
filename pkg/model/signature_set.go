package model

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
)

// SignatureSet is the public half of a signing key set, the only part handed
// to token issuers.
type SignatureSet struct {
	Timestamp    string `json:"timestamp"`
	PublicKeyPEM string `json:"public_key_pem"`
	// PublicKeyMod is the base64url big-endian modulus, as in a JWK "n".
	PublicKeyMod string `json:"public_key_mod"`
	PublicKeyExp int    `json:"public_key_exp"`
}

// NewSignatureSet describes pub as the key set issued at timestamp.
func NewSignatureSet(timestamp string, pub *rsa.PublicKey) (SignatureSet, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return SignatureSet{}, err
	}

	return SignatureSet{
		Timestamp:    timestamp,
		PublicKeyPEM: string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})),
		PublicKeyMod: base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		PublicKeyExp: pub.E,
	}, nil
}
