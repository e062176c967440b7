// Package replay implements the used-signature guard. The protocol has no
// persisted nonce: a captured (message, signature) pair stays replayable
// against the same action and escrow until it ages past the expiry window.
// The guard closes that window by remembering accepted signatures for the
// same TTL, so a second submission inside the window is rejected.
//
// The guard is additive: it sits in front of signature verification at the
// route layer and does not change the verifier's pure-function contract.
package replay

import (
	"context"
	"sync"
	"time"

	dErrors "ans/pkg/domain-errors"
)

// Guard records accepted signatures and rejects ones seen before.
type Guard interface {
	// CheckAndStore atomically tests whether sig was already accepted within
	// the TTL and records it if not. A replay yields CodeReplayDetected.
	CheckAndStore(ctx context.Context, sig string, ttl time.Duration) error
}

// ErrReplay is returned for a signature that was already accepted.
var ErrReplay = dErrors.New(dErrors.CodeReplayDetected, "signature already used")

// MemoryGuard is an in-process Guard for tests and single-node deployments.
type MemoryGuard struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{seen: make(map[string]time.Time)}
}

func (g *MemoryGuard) CheckAndStore(_ context.Context, sig string, ttl time.Duration) error {
	now := time.Now()
	g.mu.Lock()
	defer g.mu.Unlock()
	if expiry, ok := g.seen[sig]; ok && now.Before(expiry) {
		return ErrReplay
	}
	g.seen[sig] = now.Add(ttl)
	// Opportunistic sweep keeps the map bounded without a background worker.
	for k, expiry := range g.seen {
		if now.After(expiry) {
			delete(g.seen, k)
		}
	}
	return nil
}
