package gorm

import (
	"context"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"gorm.io/gorm"

	"github.com/doodlesbykumbi/identity-in-go/pkg/model"
	"github.com/doodlesbykumbi/identity-in-go/pkg/slosilo"
	"github.com/doodlesbykumbi/identity-in-go/pkg/store"
)

// DefaultKeyCacheSize bounds the number of decrypted signing keys kept in memory
const DefaultKeyCacheSize = 128

var _ store.SigningKeyStore = (*SigningKeyStore)(nil)

// SigningKeyStore implements store.SigningKeyStore using GORM
type SigningKeyStore struct {
	db        *gorm.DB
	cipher    slosilo.SymmetricCipher
	cacheSize int
	keys      *lru.Cache[string, *slosilo.Key]
	generate  func() (*slosilo.Key, error)
	now       func() time.Time
}

// SigningKeyOption configures a SigningKeyStore
type SigningKeyOption func(*SigningKeyStore)

// WithKeyCacheSize sets the decrypted key cache size
func WithKeyCacheSize(size int) SigningKeyOption {
	return func(s *SigningKeyStore) {
		s.cacheSize = size
	}
}

// WithKeyGenerator replaces the RSA key generator
func WithKeyGenerator(generate func() (*slosilo.Key, error)) SigningKeyOption {
	return func(s *SigningKeyStore) {
		s.generate = generate
	}
}

// WithClock replaces the clock used to issue key timestamps
func WithClock(now func() time.Time) SigningKeyOption {
	return func(s *SigningKeyStore) {
		s.now = now
	}
}

// NewSigningKeyStore creates a new SigningKeyStore. Private keys are
// encrypted with cipher before they reach the database.
func NewSigningKeyStore(db *gorm.DB, cipher slosilo.SymmetricCipher, opts ...SigningKeyOption) (*SigningKeyStore, error) {
	if cipher == nil {
		return nil, errors.New("signing key store requires a data key cipher")
	}

	s := &SigningKeyStore{
		db:        db,
		cipher:    cipher,
		cacheSize: DefaultKeyCacheSize,
		generate:  slosilo.GenerateKey,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	keys, err := lru.New[string, *slosilo.Key](s.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("key cache: %w", err)
	}
	s.keys = keys

	return s, nil
}

func (s *SigningKeyStore) BuildSchema(ctx context.Context) error {
	return requireTables(ctx, s.db, model.SigningKey{}.TableName())
}

// GenerateAndStore creates a key pair and stores it under the next timestamp
func (s *SigningKeyStore) GenerateAndStore(ctx context.Context, tenantID string) (*store.SigningKeySet, error) {
	key, err := s.generate()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrKeyGeneration, err)
	}

	der, err := key.Serialize()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrKeyGeneration, err)
	}

	latest, err := s.latestTimestamp(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	row := model.SigningKey{
		TenantID:    tenantID,
		Timestamp:   store.NextKeyTimestamp(s.now(), latest),
		Fingerprint: key.Fingerprint(),
		PublicKey:   key.PublicPem(),
	}

	row.PrivateKey, err = s.cipher.Encrypt([]byte(row.ID()), der)
	if err != nil {
		return nil, fmt.Errorf("%w: encrypt private key: %w", store.ErrKeyGeneration, err)
	}

	res := s.db.WithContext(ctx).Exec(`
		INSERT INTO signing_keys (tenant_id, key_timestamp, fingerprint, public_key, private_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (tenant_id, key_timestamp) DO NOTHING
	`, row.TenantID, row.Timestamp, row.Fingerprint, row.PublicKey, row.PrivateKey, s.now().UTC())
	if res.Error != nil {
		return nil, wrapError(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: signing key %s", store.ErrAlreadyExists, row.ID())
	}

	s.keys.Add(row.ID(), key)

	return &store.SigningKeySet{TenantID: tenantID, Timestamp: row.Timestamp, Key: key}, nil
}

// GetLatest returns the key set with the lexically greatest timestamp
func (s *SigningKeyStore) GetLatest(ctx context.Context, tenantID string) (*store.SigningKeySet, error) {
	timestamp, err := s.latestTimestamp(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if timestamp == "" {
		return nil, store.ErrNotFound
	}

	id := model.SigningKeyID(tenantID, timestamp)
	if key, ok := s.keys.Get(id); ok {
		return &store.SigningKeySet{TenantID: tenantID, Timestamp: timestamp, Key: key}, nil
	}

	var row model.SigningKey
	err = s.db.WithContext(ctx).
		Where("tenant_id = ? AND key_timestamp = ?", tenantID, timestamp).
		Take(&row).Error
	if err != nil {
		return nil, wrapError(err)
	}

	key, err := s.decryptKey(row)
	if err != nil {
		return nil, err
	}
	s.keys.Add(id, key)

	return &store.SigningKeySet{TenantID: tenantID, Timestamp: timestamp, Key: key}, nil
}

// latestTimestamp returns "" when the tenant has no keys. Byte-wise collation
// keeps the ordering lexical regardless of the database locale.
func (s *SigningKeyStore) latestTimestamp(ctx context.Context, tenantID string) (string, error) {
	var timestamp string
	err := s.db.WithContext(ctx).Raw(`
		SELECT key_timestamp FROM signing_keys
		WHERE tenant_id = ?
		ORDER BY key_timestamp COLLATE "C" DESC
		LIMIT 1
	`, tenantID).Scan(&timestamp).Error
	if err != nil {
		return "", wrapError(err)
	}
	return timestamp, nil
}

func (s *SigningKeyStore) decryptKey(row model.SigningKey) (*slosilo.Key, error) {
	der, err := s.cipher.Decrypt([]byte(row.ID()), row.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: decrypt signing key %s: %w", store.ErrUnavailable, row.ID(), err)
	}

	key, err := slosilo.NewKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: parse signing key %s: %w", store.ErrUnavailable, row.ID(), err)
	}

	if key.Fingerprint() != row.Fingerprint {
		return nil, fmt.Errorf("%w: signing key %s has bad stored fingerprint", store.ErrUnavailable, row.ID())
	}

	return key, nil
}
