package escrow

import (
	"context"
	"sync"
	"time"

	"ans/pkg/domain"
	dErrors "ans/pkg/domain-errors"
)

// MemoryStore is an in-process Store for tests and single-node deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[domain.EscrowID]*Escrow
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[domain.EscrowID]*Escrow)}
}

func (s *MemoryStore) Create(_ context.Context, e *Escrow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[e.ID]; ok {
		return dErrors.Newf(dErrors.CodeConflict, "escrow %s already exists", e.ID)
	}
	s.records[e.ID] = e.clone()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id domain.EscrowID) (*Escrow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e.clone(), nil
}

func (s *MemoryStore) UpdateStatus(_ context.Context, id domain.EscrowID, observed, next Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.records[id]
	if !ok {
		return ErrNotFound
	}
	if e.Status != observed {
		return ErrStaleStatus
	}
	e.Status = next
	e.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) ListByWallet(_ context.Context, wallet domain.WalletAddress) ([]*Escrow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Escrow
	for _, e := range s.records {
		if e.BuyerWallet.Equal(wallet) || e.SellerWallet.Equal(wallet) {
			out = append(out, e.clone())
		}
	}
	return out, nil
}

func (s *MemoryStore) ListOverdue(_ context.Context, limit int) ([]*Escrow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := time.Now()
	var out []*Escrow
	for _, e := range s.records {
		if e.Status.IsTerminal() || now.Before(e.ExpiresAt) {
			continue
		}
		out = append(out, e.clone())
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
