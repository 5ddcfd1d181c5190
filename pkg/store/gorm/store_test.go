package gorm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/doodlesbykumbi/identity-in-go/pkg/model"
	"github.com/doodlesbykumbi/identity-in-go/pkg/slosilo"
	"github.com/doodlesbykumbi/identity-in-go/pkg/store"
)

type StoreSuite struct {
	suite.Suite
	mock   sqlmock.Sqlmock
	db     *gorm.DB
	cipher slosilo.SymmetricCipher
	ctx    context.Context
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	mockDB, mock, err := sqlmock.New()
	s.Require().NoError(err)

	db, err := gorm.Open(
		postgres.New(postgres.Config{
			Conn:                 mockDB,
			PreferSimpleProtocol: true,
		}),
		&gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		},
	)
	s.Require().NoError(err)

	s.cipher, err = slosilo.NewSymmetric(make([]byte, 32))
	s.Require().NoError(err)

	s.mock = mock
	s.db = db
	s.ctx = context.Background()
}

func (s *StoreSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *StoreSuite) expectLatestTimestamp(tenantID string, timestamps ...string) {
	rows := sqlmock.NewRows([]string{"key_timestamp"})
	for _, ts := range timestamps {
		rows.AddRow(ts)
	}
	s.mock.ExpectQuery(`SELECT key_timestamp FROM signing_keys`).
		WithArgs(tenantID).
		WillReturnRows(rows)
}

func (s *StoreSuite) TestBuildSchema() {
	keys := NewTenantSecurityStore(s.db)

	s.mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM information_schema.tables`).
		WithArgs("tenant_security").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	s.NoError(keys.BuildSchema(s.ctx))

	s.mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM information_schema.tables`).
		WithArgs("tenant_security").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	s.ErrorIs(keys.BuildSchema(s.ctx), store.ErrSchemaNotReady)
}

func (s *StoreSuite) TestGenerateAndStoreThenGetLatestFromCache() {
	now := time.Date(2024, 1, 2, 3, 4, 5, 6, time.UTC)
	keys, err := NewSigningKeyStore(s.db, s.cipher, WithClock(func() time.Time { return now }))
	s.Require().NoError(err)

	s.expectLatestTimestamp("acme")
	s.mock.ExpectExec(`INSERT INTO signing_keys`).
		WithArgs("acme", "20240102T030405.000000006Z", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	created, err := keys.GenerateAndStore(s.ctx, "acme")
	s.Require().NoError(err)
	s.Equal("20240102T030405.000000006Z", created.Timestamp)

	// Second lookup is served from the cache after the timestamp query
	s.expectLatestTimestamp("acme", created.Timestamp)
	latest, err := keys.GetLatest(s.ctx, "acme")
	s.Require().NoError(err)
	s.Equal(created.Key.Fingerprint(), latest.Key.Fingerprint())
}

func (s *StoreSuite) TestGenerateAndStoreStepsPastLatest() {
	now := time.Date(2024, 1, 2, 3, 4, 5, 6, time.UTC)
	keys, err := NewSigningKeyStore(s.db, s.cipher, WithClock(func() time.Time { return now }))
	s.Require().NoError(err)

	s.expectLatestTimestamp("acme", "20240102T030405.000000006Z")
	s.mock.ExpectExec(`INSERT INTO signing_keys`).
		WithArgs("acme", "20240102T030405.000000007Z", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	created, err := keys.GenerateAndStore(s.ctx, "acme")
	s.Require().NoError(err)
	s.Equal("20240102T030405.000000007Z", created.Timestamp)
}

func (s *StoreSuite) TestGenerateAndStoreConflict() {
	keys, err := NewSigningKeyStore(s.db, s.cipher)
	s.Require().NoError(err)

	s.expectLatestTimestamp("acme")
	s.mock.ExpectExec(`INSERT INTO signing_keys`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err = keys.GenerateAndStore(s.ctx, "acme")
	s.ErrorIs(err, store.ErrAlreadyExists)
}

func (s *StoreSuite) TestGenerateAndStoreKeyGenerationFailure() {
	keys, err := NewSigningKeyStore(s.db, s.cipher, WithKeyGenerator(func() (*slosilo.Key, error) {
		return nil, errors.New("entropy exhausted")
	}))
	s.Require().NoError(err)

	_, err = keys.GenerateAndStore(s.ctx, "acme")
	s.ErrorIs(err, store.ErrKeyGeneration)
}

func (s *StoreSuite) TestGetLatestDecryptsStoredKey() {
	key, err := slosilo.GenerateKey()
	s.Require().NoError(err)
	der, err := key.Serialize()
	s.Require().NoError(err)

	timestamp := "20240102T030405.000000006Z"
	encrypted, err := s.cipher.Encrypt([]byte("acme:"+timestamp), der)
	s.Require().NoError(err)

	keys, err := NewSigningKeyStore(s.db, s.cipher)
	s.Require().NoError(err)

	s.expectLatestTimestamp("acme", timestamp)
	s.mock.ExpectQuery(`SELECT \* FROM "signing_keys"`).
		WithArgs("acme", timestamp).
		WillReturnRows(sqlmock.NewRows([]string{"tenant_id", "key_timestamp", "fingerprint", "public_key", "private_key", "created_at"}).
			AddRow("acme", timestamp, key.Fingerprint(), key.PublicPem(), encrypted, time.Now()))

	latest, err := keys.GetLatest(s.ctx, "acme")
	s.Require().NoError(err)
	s.Equal(timestamp, latest.Timestamp)
	s.Equal(key.Fingerprint(), latest.Key.Fingerprint())
}

func (s *StoreSuite) TestGetLatestRejectsCiphertextFromAnotherRow() {
	key, err := slosilo.GenerateKey()
	s.Require().NoError(err)
	der, err := key.Serialize()
	s.Require().NoError(err)

	timestamp := "20240102T030405.000000006Z"
	encrypted, err := s.cipher.Encrypt([]byte("other:"+timestamp), der)
	s.Require().NoError(err)

	keys, err := NewSigningKeyStore(s.db, s.cipher)
	s.Require().NoError(err)

	s.expectLatestTimestamp("acme", timestamp)
	s.mock.ExpectQuery(`SELECT \* FROM "signing_keys"`).
		WillReturnRows(sqlmock.NewRows([]string{"tenant_id", "key_timestamp", "fingerprint", "public_key", "private_key"}).
			AddRow("acme", timestamp, key.Fingerprint(), key.PublicPem(), encrypted))

	_, err = keys.GetLatest(s.ctx, "acme")
	s.ErrorIs(err, store.ErrUnavailable)
}

func (s *StoreSuite) TestGetLatestNotFound() {
	keys, err := NewSigningKeyStore(s.db, s.cipher)
	s.Require().NoError(err)

	s.expectLatestTimestamp("acme")

	_, err = keys.GetLatest(s.ctx, "acme")
	s.ErrorIs(err, store.ErrNotFound)
}

func (s *StoreSuite) TestGetLatestUnavailable() {
	keys, err := NewSigningKeyStore(s.db, s.cipher)
	s.Require().NoError(err)

	s.mock.ExpectQuery(`SELECT key_timestamp FROM signing_keys`).
		WillReturnError(errors.New("connection refused"))

	_, err = keys.GetLatest(s.ctx, "acme")
	s.ErrorIs(err, store.ErrUnavailable)
}

func (s *StoreSuite) TestTenantSecurityInitializeOnce() {
	security := NewTenantSecurityStore(s.db)
	info := model.TenantSecurityInfo{
		FixedSalt:             []byte("0123456789abcdef0123456789abcdef"),
		PasswordExpiresInDays: 93,
		TimeToChangePasswordAfterExpirationInDays: 4,
	}

	s.mock.ExpectExec(`INSERT INTO tenant_security`).
		WithArgs("acme", info.FixedSalt, 93, 4).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.NoError(security.Initialize(s.ctx, "acme", info))

	s.mock.ExpectExec(`INSERT INTO tenant_security`).
		WithArgs("acme", sqlmock.AnyArg(), 93, 4).
		WillReturnResult(sqlmock.NewResult(0, 0))
	info.FixedSalt = []byte("fedcba9876543210fedcba9876543210")
	s.ErrorIs(security.Initialize(s.ctx, "acme", info), store.ErrAlreadyExists)
}

func (s *StoreSuite) TestTenantSecurityGetFixedSalt() {
	security := NewTenantSecurityStore(s.db)
	salt := []byte("0123456789abcdef0123456789abcdef")

	s.mock.ExpectQuery(`SELECT \* FROM "tenant_security"`).
		WithArgs("acme").
		WillReturnRows(sqlmock.NewRows([]string{"tenant_id", "fixed_salt", "password_expires_in_days", "time_to_change_password_after_expiration_in_days"}).
			AddRow("acme", salt, 93, 4))

	got, err := security.GetFixedSalt(s.ctx, "acme")
	s.Require().NoError(err)
	s.Equal(salt, got)

	s.mock.ExpectQuery(`SELECT \* FROM "tenant_security"`).
		WithArgs("globex").
		WillReturnRows(sqlmock.NewRows([]string{"tenant_id"}))

	_, err = security.GetFixedSalt(s.ctx, "globex")
	s.ErrorIs(err, store.ErrNotFound)
}

func (s *StoreSuite) TestPermittableGroupPutAndGet() {
	groups := NewPermittableGroupStore(s.db)
	group := model.PermittableGroup{
		Identifier: "IDENTITY_MANAGEMENT",
		Permittables: model.Permittables{
			{Path: "identity-v1/users/*", Method: model.MethodGet},
		},
	}

	s.mock.ExpectExec(`(?s)INSERT INTO permittable_groups .* ON CONFLICT \(tenant_id, identifier\) DO UPDATE`).
		WithArgs("acme", "IDENTITY_MANAGEMENT", `[{"path":"identity-v1/users/*","method":"GET"}]`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.NoError(groups.Put(s.ctx, "acme", group))

	s.mock.ExpectQuery(`SELECT \* FROM "permittable_groups"`).
		WithArgs("acme", "IDENTITY_MANAGEMENT").
		WillReturnRows(sqlmock.NewRows([]string{"tenant_id", "identifier", "permittables"}).
			AddRow("acme", "IDENTITY_MANAGEMENT", []byte(`[{"path":"identity-v1/users/*","method":"GET"}]`)))

	got, err := groups.Get(s.ctx, "acme", "IDENTITY_MANAGEMENT")
	s.Require().NoError(err)
	s.Equal(group.Permittables, got.Permittables)
}

func (s *StoreSuite) TestPermittableGroupList() {
	groups := NewPermittableGroupStore(s.db)

	s.mock.ExpectQuery(`SELECT \* FROM "permittable_groups" WHERE tenant_id = \$1 ORDER BY identifier`).
		WithArgs("acme").
		WillReturnRows(sqlmock.NewRows([]string{"tenant_id", "identifier", "permittables"}).
			AddRow("acme", "IDENTITY_MANAGEMENT", `[]`).
			AddRow("acme", "ROLE_MANAGEMENT", `[]`))

	got, err := groups.List(s.ctx, "acme")
	s.Require().NoError(err)
	s.Len(got, 2)
	s.Equal("ROLE_MANAGEMENT", got[1].Identifier)
}

func (s *StoreSuite) TestRolePut() {
	roles := NewRoleStore(s.db)
	role := model.Role{
		Identifier: "SU_ROLE",
		Permissions: model.Permissions{
			{PermittableGroupIdentifier: "ROLE_MANAGEMENT", AllowedOperations: model.AllOperations()},
		},
	}

	s.mock.ExpectExec(`INSERT INTO roles`).
		WithArgs("acme", "SU_ROLE", `[{"permittable_group_identifier":"ROLE_MANAGEMENT","allowed_operations":["READ","CHANGE","DELETE"]}]`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s.NoError(roles.Put(s.ctx, "acme", role))
}

func (s *StoreSuite) TestUserPutOverwrites() {
	users := NewUserStore(s.db)
	user := model.User{
		Identifier:         "antony",
		Role:               "SU_ROLE",
		PasswordHash:       []byte("hash"),
		Salt:               []byte("salt"),
		PasswordMustChange: true,
		TimeToChangePasswordAfterExpirationInDays: 4,
	}

	s.mock.ExpectExec(`(?s)INSERT INTO users .* ON CONFLICT \(tenant_id, identifier\) DO UPDATE SET`).
		WithArgs("acme", "antony", "SU_ROLE", []byte("hash"), []byte("salt"), true, 4, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s.NoError(users.Put(s.ctx, "acme", user))
}

func (s *StoreSuite) TestUserGetNotFound() {
	users := NewUserStore(s.db)

	s.mock.ExpectQuery(`SELECT \* FROM "users"`).
		WithArgs("acme", "antony").
		WillReturnRows(sqlmock.NewRows([]string{"tenant_id", "identifier"}))

	_, err := users.Get(s.ctx, "acme", "antony")
	s.ErrorIs(err, store.ErrNotFound)
}

func (s *StoreSuite) TestHealthCheck() {
	s.mock.ExpectExec(`SELECT 1`).WillReturnResult(sqlmock.NewResult(0, 0))
	s.NoError(NewHealthStore(s.db).CheckConnectivity(s.ctx))
}
