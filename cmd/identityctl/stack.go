package main

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/doodlesbykumbi/identity-in-go/pkg/config"
	"github.com/doodlesbykumbi/identity-in-go/pkg/db"
	"github.com/doodlesbykumbi/identity-in-go/pkg/model"
	"github.com/doodlesbykumbi/identity-in-go/pkg/provisioning"
	"github.com/doodlesbykumbi/identity-in-go/pkg/slosilo"
	"github.com/doodlesbykumbi/identity-in-go/pkg/store"
	gormstore "github.com/doodlesbykumbi/identity-in-go/pkg/store/gorm"
	"github.com/doodlesbykumbi/identity-in-go/pkg/store/memory"
)

// stack is everything a Provisioner needs, built once per process
type stack struct {
	stores  provisioning.Stores
	health  store.HealthStore
	locker  provisioning.Locker
	metrics *provisioning.Metrics
	logger  logrus.FieldLogger
	closers []func() error
}

// newStack connects the stores. With inMemory set nothing is persisted and
// no database is needed.
func newStack(cfg *config.IdentityConfig, logger logrus.FieldLogger, registerer prometheus.Registerer, inMemory bool) (*stack, error) {
	s := &stack{
		metrics: provisioning.NewMetrics(registerer),
		logger:  logger,
	}

	if inMemory {
		s.stores = provisioning.Stores{
			SigningKeys:       memory.NewSigningKeyStore(nil),
			Security:          memory.NewTenantSecurityStore(),
			PermittableGroups: memory.NewPermittableGroupStore(),
			Mirror:            memory.NewMirror(),
			Roles:             memory.NewRoleStore(),
			Users:             memory.NewUserStore(),
		}
	} else if err := s.connect(cfg); err != nil {
		s.Close()
		return nil, err
	}

	if err := s.connectLocker(cfg); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *stack) connect(cfg *config.IdentityConfig) error {
	cipher, err := db.Cipher()
	if err != nil {
		return err
	}

	primary, err := db.Connect(db.Config{})
	if err != nil {
		return err
	}
	if sqlDB, err := primary.DB(); err == nil {
		s.closers = append(s.closers, sqlDB.Close)
	}

	mirror, err := db.ConnectMirror(db.Config{})
	if err != nil {
		return err
	}
	s.closers = append(s.closers, mirror.Close)

	keys, err := gormstore.NewSigningKeyStore(primary, cipher, gormstore.WithKeyCacheSize(cfg.KeyCacheSize))
	if err != nil {
		return err
	}

	s.stores = provisioning.Stores{
		SigningKeys:       keys,
		Security:          gormstore.NewTenantSecurityStore(primary),
		PermittableGroups: gormstore.NewPermittableGroupStore(primary),
		Mirror:            mirror,
		Roles:             gormstore.NewRoleStore(primary),
		Users:             gormstore.NewUserStore(primary),
	}
	s.health = gormstore.NewHealthStore(primary)
	return nil
}

func (s *stack) connectLocker(cfg *config.IdentityConfig) error {
	switch cfg.LockBackend {
	case config.LockBackendRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("invalid redis_url: %w", err)
		}
		client := redis.NewClient(opts)
		s.closers = append(s.closers, client.Close)
		s.locker = provisioning.NewRedisLocker(client, cfg.LockTTL(), cfg.LockNonBlocking, s.logger)
	default:
		s.locker = provisioning.NewLocalLocker(cfg.LockNonBlocking)
	}
	return nil
}

// provisioner builds a Provisioner over the stack from cfg. Provisioners
// built from one stack share its stores, lock and metrics.
func (s *stack) provisioner(cfg *config.IdentityConfig) (*provisioning.Provisioner, error) {
	salts, err := slosilo.NewSaltGenerator(cfg.SaltLength)
	if err != nil {
		return nil, err
	}

	return provisioning.NewProvisioner(s.stores,
		provisioning.WithApplicationName(cfg.ApplicationName),
		provisioning.WithPasswordPolicy(provisioning.PasswordPolicy{
			PasswordExpiresInDays:                     cfg.PasswordExpiresInDays,
			TimeToChangePasswordAfterExpirationInDays: cfg.TimeToChangePasswordAfterExpirationInDays,
		}),
		provisioning.WithSaltGenerator(salts),
		provisioning.WithLocker(s.locker),
		provisioning.WithLogger(s.logger),
		provisioning.WithMetrics(s.metrics),
	)
}

func (s *stack) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i]()
	}
	s.closers = nil
}

// swappableProvisioner lets a config reload replace the Provisioner while
// requests are in flight
type swappableProvisioner struct {
	current atomic.Pointer[provisioning.Provisioner]
}

func (p *swappableProvisioner) Store(next *provisioning.Provisioner) {
	p.current.Store(next)
}

func (p *swappableProvisioner) Provision(ctx context.Context, tenantID string, passwordHash []byte) (model.SignatureSet, error) {
	return p.current.Load().Provision(ctx, tenantID, passwordHash)
}
