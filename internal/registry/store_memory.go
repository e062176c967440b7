package registry

import (
	"context"
	"sync"

	"ans/pkg/domain"
	dErrors "ans/pkg/domain-errors"
)

// MemoryStore is an in-process Store for tests and single-node deployments.
// One mutex serializes every commit, so operations on the same record are
// linearized and a commit is never observable half-applied.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[domain.DomainName]*Domain
	ledger  *MemoryLedger
}

func NewMemoryStore(ledger *MemoryLedger) *MemoryStore {
	if ledger == nil {
		ledger = NewMemoryLedger()
	}
	return &MemoryStore{
		records: make(map[domain.DomainName]*Domain),
		ledger:  ledger,
	}
}

func (s *MemoryStore) Get(_ context.Context, name domain.DomainName) (*Domain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.records[name]
	if !ok {
		return nil, ErrNotFound
	}
	return d.clone(), nil
}

func (s *MemoryStore) Create(_ context.Context, d *Domain) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[d.Name]; ok {
		return dErrors.Newf(dErrors.CodeDuplicateName, "domain %q already registered", d.Name)
	}
	s.records[d.Name] = d.clone()
	return nil
}

func (s *MemoryStore) Commit(_ context.Context, updated *Domain, expectedVersion uint64, transfers []Transfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.records[updated.Name]
	if !ok {
		return ErrNotFound
	}
	if current.Version != expectedVersion {
		return ErrVersionConflict
	}
	committed := updated.clone()
	committed.Version = expectedVersion + 1
	// Record and transfers land under the same lock: a reader either sees
	// the old record with old balances or the new record with new balances.
	s.records[updated.Name] = committed
	s.ledger.apply(transfers)
	return nil
}

func (s *MemoryStore) ListByOwner(_ context.Context, owner domain.WalletAddress) ([]*Domain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Domain
	for _, d := range s.records {
		if d.Owner.Equal(owner) {
			out = append(out, d.clone())
		}
	}
	return out, nil
}

func (s *MemoryStore) ListForSale(_ context.Context) ([]*Domain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Domain
	for _, d := range s.records {
		if d.IsListed {
			out = append(out, d.clone())
		}
	}
	return out, nil
}
