package model

import "time"

// SigningKey is a stored signing key set. PrivateKey holds the data-key
// ciphertext of the PKCS1 DER encoding; it is never decrypted outside the store.
type SigningKey struct {
	TenantID    string    `gorm:"column:tenant_id;primaryKey"`
	Timestamp   string    `gorm:"column:key_timestamp;primaryKey"`
	Fingerprint string    `gorm:"column:fingerprint;not null"`
	PublicKey   []byte    `gorm:"column:public_key;not null"`
	PrivateKey  []byte    `gorm:"column:private_key;type:bytea;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (SigningKey) TableName() string {
	return "signing_keys"
}

// ID identifies the row; it is also the additional data bound to the private key ciphertext.
func (k SigningKey) ID() string {
	return SigningKeyID(k.TenantID, k.Timestamp)
}

func SigningKeyID(tenantID, timestamp string) string {
	return tenantID + ":" + timestamp
}
