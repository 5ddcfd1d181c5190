package provisioning

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/doodlesbykumbi/identity-in-go/pkg/audit"
	"github.com/doodlesbykumbi/identity-in-go/pkg/model"
	"github.com/doodlesbykumbi/identity-in-go/pkg/slosilo"
	"github.com/doodlesbykumbi/identity-in-go/pkg/store"
)

const (
	pathBootstrap = "bootstrap"
	pathRotation  = "rotation"
)

// ErrInvalidRequest is returned before any lock is taken for an empty tenant
// or password hash.
var ErrInvalidRequest = errors.New("invalid provisioning request")

// Stores groups the stores a Provisioner writes to
type Stores struct {
	SigningKeys       store.SigningKeyStore
	Security          store.TenantSecurityStore
	PermittableGroups store.PermittableGroupStore
	Mirror            store.PermittableGroupMirror
	Roles             store.RoleStore
	Users             store.UserStore
}

func (s Stores) validate() error {
	switch {
	case s.SigningKeys == nil:
		return errors.New("signing key store is required")
	case s.Security == nil:
		return errors.New("tenant security store is required")
	case s.PermittableGroups == nil:
		return errors.New("permittable group store is required")
	case s.Mirror == nil:
		return errors.New("permittable group mirror is required")
	case s.Roles == nil:
		return errors.New("role store is required")
	case s.Users == nil:
		return errors.New("user store is required")
	}
	return nil
}

func (s Stores) builders() []store.SchemaBuilder {
	return []store.SchemaBuilder{s.SigningKeys, s.Security, s.PermittableGroups, s.Mirror, s.Roles, s.Users}
}

// PasswordPolicy is written to a tenant's security info at bootstrap
type PasswordPolicy struct {
	PasswordExpiresInDays                     int
	TimeToChangePasswordAfterExpirationInDays int
}

// DefaultPasswordPolicy is 93 days to expiry and 4 days to change afterwards
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		PasswordExpiresInDays:                     model.DefaultPasswordExpiresInDays,
		TimeToChangePasswordAfterExpirationInDays: model.DefaultTimeToChangePasswordAfterExpirationInDays,
	}
}

// Provisioner bootstraps tenants, or rotates the superuser password of a
// tenant that is already provisioned. Provision is its only entry point.
type Provisioner struct {
	stores   Stores
	registry *Registry
	builder  *RoleAndUserBuilder
	salts    slosilo.SaltGenerator
	locker   Locker
	policy   PasswordPolicy
	appName  string
	logger   logrus.FieldLogger
	metrics  *Metrics
	auditor  audit.Auditor
	now      func() time.Time

	schemaMu    sync.Mutex
	schemaReady bool
}

// Option configures a Provisioner
type Option func(*Provisioner)

// WithApplicationName sets the permittable path prefix
func WithApplicationName(name string) Option {
	return func(p *Provisioner) {
		p.appName = name
	}
}

// WithPasswordPolicy sets the policy written for new tenants
func WithPasswordPolicy(policy PasswordPolicy) Option {
	return func(p *Provisioner) {
		p.policy = policy
	}
}

// WithSaltGenerator replaces the default 32 byte salt generator
func WithSaltGenerator(salts slosilo.SaltGenerator) Option {
	return func(p *Provisioner) {
		p.salts = salts
	}
}

// WithLocker replaces the default blocking LocalLocker
func WithLocker(locker Locker) Option {
	return func(p *Provisioner) {
		p.locker = locker
	}
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(p *Provisioner) {
		p.logger = logger
	}
}

func WithMetrics(metrics *Metrics) Option {
	return func(p *Provisioner) {
		p.metrics = metrics
	}
}

func WithAuditor(auditor audit.Auditor) Option {
	return func(p *Provisioner) {
		p.auditor = auditor
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Provisioner) {
		p.now = now
	}
}

// NewProvisioner creates a Provisioner over stores
func NewProvisioner(stores Stores, opts ...Option) (*Provisioner, error) {
	if err := stores.validate(); err != nil {
		return nil, err
	}

	p := &Provisioner{
		stores:  stores,
		locker:  NewLocalLocker(false),
		policy:  DefaultPasswordPolicy(),
		appName: DefaultApplicationName,
		logger:  logrus.StandardLogger(),
		metrics: NewMetrics(nil),
		auditor: audit.Func(audit.Log),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.salts == nil {
		salts, err := slosilo.NewSaltGenerator(slosilo.DefaultSaltLength)
		if err != nil {
			return nil, err
		}
		p.salts = salts
	}

	p.registry = NewRegistry(stores.PermittableGroups, stores.Mirror, p.appName)
	p.builder = NewRoleAndUserBuilder(BootstrapGroupIdentifiers(), p.now)

	return p, nil
}

// Registry returns the permittable group registry used for bootstrap
func (p *Provisioner) Registry() *Registry {
	return p.registry
}

// Provision bootstraps tenantID with a superuser whose password hash is
// passwordHash, or, if the tenant already has a signing key and a fixed salt,
// only overwrites the superuser with the new hash. Either way it returns the
// tenant's latest SignatureSet.
//
// Calls for the same tenant are serialized by the Locker. Failures are
// *Error values; partial bootstrap state is not rolled back, and a later call
// re-evaluates the tenant from scratch.
func (p *Provisioner) Provision(ctx context.Context, tenantID string, passwordHash []byte) (model.SignatureSet, error) {
	if tenantID == "" || len(passwordHash) == 0 {
		return model.SignatureSet{}, ErrInvalidRequest
	}

	started := time.Now()
	runID := uuid.NewString()
	log := p.logger.WithFields(logrus.Fields{
		"tenant": tenantID,
		"run_id": runID,
	})

	p.metrics.ProvisionsActive.Inc()
	defer p.metrics.ProvisionsActive.Dec()

	path := pathBootstrap
	sigs, err := func() (model.SignatureSet, error) {
		release, err := p.locker.Lock(ctx, tenantID)
		if err != nil {
			return model.SignatureSet{}, wrap(tenantID, err)
		}
		defer release()

		if err := p.ensureSchema(ctx); err != nil {
			return model.SignatureSet{}, wrap(tenantID, err)
		}

		latest, salt, err := p.lookup(ctx, tenantID)
		if err != nil {
			return model.SignatureSet{}, wrap(tenantID, err)
		}

		if latest != nil && salt != nil {
			path = pathRotation
			return p.rotate(ctx, log.WithField("path", path), tenantID, passwordHash, latest, salt)
		}
		return p.bootstrap(ctx, log.WithField("path", path), tenantID, passwordHash)
	}()

	p.metrics.observe(path, err, started)
	p.audit(runID, path, tenantID, sigs, err)

	if err != nil {
		entry := log.WithError(err).WithField("path", path)
		if cause := errors.Unwrap(err); cause != nil {
			entry = entry.WithField("cause", cause.Error())
		}
		entry.Error("Provisioning failed")
		return model.SignatureSet{}, err
	}
	return sigs, nil
}

// ensureSchema runs BuildSchema on every store until it succeeds once
func (p *Provisioner) ensureSchema(ctx context.Context) error {
	p.schemaMu.Lock()
	defer p.schemaMu.Unlock()

	if p.schemaReady {
		return nil
	}
	for _, builder := range p.stores.builders() {
		if err := builder.BuildSchema(ctx); err != nil {
			return err
		}
	}
	p.schemaReady = true
	return nil
}

// lookup returns nil for whichever of the latest key and the fixed salt is absent
func (p *Provisioner) lookup(ctx context.Context, tenantID string) (*store.SigningKeySet, []byte, error) {
	latest, err := p.stores.SigningKeys.GetLatest(ctx, tenantID)
	if errors.Is(err, store.ErrNotFound) {
		latest = nil
	} else if err != nil {
		return nil, nil, err
	}

	salt, err := p.stores.Security.GetFixedSalt(ctx, tenantID)
	if errors.Is(err, store.ErrNotFound) {
		salt = nil
	} else if err != nil {
		return nil, nil, err
	}

	return latest, salt, nil
}

func (p *Provisioner) rotate(ctx context.Context, log logrus.FieldLogger, tenantID string, passwordHash []byte, latest *store.SigningKeySet, salt []byte) (model.SignatureSet, error) {
	log.Infof("Changing password for tenant %s instead of provisioning", tenantID)

	timeToChange := p.policy.TimeToChangePasswordAfterExpirationInDays
	if info, err := p.stores.Security.Get(ctx, tenantID); err == nil {
		timeToChange = info.TimeToChangePasswordAfterExpirationInDays
	} else if !errors.Is(err, store.ErrNotFound) {
		return model.SignatureSet{}, wrap(tenantID, err)
	}

	user := p.builder.BuildUser(SuperuserIdentifier, SuperuserRoleIdentifier, passwordHash, true, salt, timeToChange)
	if err := p.stores.Users.Put(ctx, tenantID, user); err != nil {
		return model.SignatureSet{}, wrap(tenantID, err)
	}

	sigs, err := latest.SignatureSet()
	if err != nil {
		return model.SignatureSet{}, wrap(tenantID, err)
	}

	log.WithField("key_timestamp", sigs.Timestamp).Info("Rotated superuser password")
	return sigs, nil
}

func (p *Provisioner) bootstrap(ctx context.Context, log logrus.FieldLogger, tenantID string, passwordHash []byte) (model.SignatureSet, error) {
	log.Infof("Provisioning tables for tenant %s", tenantID)

	keys, err := p.stores.SigningKeys.GenerateAndStore(ctx, tenantID)
	if err != nil {
		return model.SignatureSet{}, wrap(tenantID, err)
	}
	log = log.WithField("key_timestamp", keys.Timestamp)
	log.Debug("Generated signing key set")

	salt, err := p.salts.CreateRandomSalt()
	if err != nil {
		return model.SignatureSet{}, &Error{Kind: KeyGenerationFailed, TenantID: tenantID, Err: fmt.Errorf("salt: %w", err)}
	}

	info := model.TenantSecurityInfo{
		TenantID:              tenantID,
		FixedSalt:             salt,
		PasswordExpiresInDays: p.policy.PasswordExpiresInDays,
		TimeToChangePasswordAfterExpirationInDays: p.policy.TimeToChangePasswordAfterExpirationInDays,
	}
	err = p.stores.Security.Initialize(ctx, tenantID, info)
	if errors.Is(err, store.ErrAlreadyExists) {
		// A previous run initialized the tenant but never stored its key.
		// The stored parameters stay authoritative.
		var stored *model.TenantSecurityInfo
		if stored, err = p.stores.Security.Get(ctx, tenantID); err == nil {
			info = *stored
		}
	}
	if err != nil {
		return model.SignatureSet{}, wrap(tenantID, err)
	}

	if err := p.registry.Bootstrap(ctx, tenantID); err != nil {
		return model.SignatureSet{}, err
	}
	log.Debug("Created bootstrap permittable groups")

	if err := p.stores.Roles.Put(ctx, tenantID, p.builder.BuildSuperuserRole()); err != nil {
		return model.SignatureSet{}, wrap(tenantID, err)
	}

	user := p.builder.BuildUser(SuperuserIdentifier, SuperuserRoleIdentifier, passwordHash, true, info.FixedSalt, info.TimeToChangePasswordAfterExpirationInDays)
	if err := p.stores.Users.Put(ctx, tenantID, user); err != nil {
		return model.SignatureSet{}, wrap(tenantID, err)
	}

	sigs, err := keys.SignatureSet()
	if err != nil {
		return model.SignatureSet{}, wrap(tenantID, err)
	}

	log.Infof("Successfully provisioned tenant %s", tenantID)
	return sigs, nil
}

func (p *Provisioner) audit(runID, path, tenantID string, sigs model.SignatureSet, err error) {
	if path == pathRotation {
		event := audit.PasswordRotationEvent{
			TenantID: tenantID,
			UserID:   SuperuserIdentifier,
			RunID:    runID,
			Success:  err == nil,
		}
		if err != nil {
			event.ErrorMessage = err.Error()
		}
		p.auditor.Log(event)
		return
	}

	event := audit.ProvisionEvent{
		TenantID:     tenantID,
		RunID:        runID,
		KeyTimestamp: sigs.Timestamp,
		Success:      err == nil,
	}
	if err != nil {
		event.ErrorMessage = err.Error()
	}
	p.auditor.Log(event)
}
