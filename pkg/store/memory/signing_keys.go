package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/doodlesbykumbi/identity-in-go/pkg/slosilo"
	"github.com/doodlesbykumbi/identity-in-go/pkg/store"
)

var _ store.SigningKeyStore = (*SigningKeyStore)(nil)

// SigningKeyStore keeps key sets per tenant in issuance order
type SigningKeyStore struct {
	schemaState

	mu       sync.RWMutex
	keys     map[string][]store.SigningKeySet
	generate func() (*slosilo.Key, error)
	now      func() time.Time
}

// NewSigningKeyStore creates an empty store. A nil generate uses slosilo.GenerateKey.
func NewSigningKeyStore(generate func() (*slosilo.Key, error)) *SigningKeyStore {
	if generate == nil {
		generate = slosilo.GenerateKey
	}
	return &SigningKeyStore{
		keys:     map[string][]store.SigningKeySet{},
		generate: generate,
		now:      time.Now,
	}
}

// SetClock replaces the clock used to issue key timestamps
func (s *SigningKeyStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *SigningKeyStore) GenerateAndStore(ctx context.Context, tenantID string) (*store.SigningKeySet, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	k, err := s.generate()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrKeyGeneration, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	set := store.SigningKeySet{
		TenantID:  tenantID,
		Timestamp: store.NextKeyTimestamp(s.now(), latest(s.keys[tenantID])),
		Key:       k,
	}
	s.keys[tenantID] = append(s.keys[tenantID], set)

	return &set, nil
}

func (s *SigningKeyStore) GetLatest(ctx context.Context, tenantID string) (*store.SigningKeySet, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sets := s.keys[tenantID]
	if len(sets) == 0 {
		return nil, store.ErrNotFound
	}

	best := sets[0]
	for _, set := range sets[1:] {
		if set.Timestamp > best.Timestamp {
			best = set
		}
	}
	return &best, nil
}

// Count returns the number of key sets stored for the tenant
func (s *SigningKeyStore) Count(tenantID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys[tenantID])
}

func latest(sets []store.SigningKeySet) string {
	var ts string
	for _, set := range sets {
		if set.Timestamp > ts {
			ts = set.Timestamp
		}
	}
	return ts
}
