package escrow

import (
	"context"

	"ans/pkg/domain"
	dErrors "ans/pkg/domain-errors"
)

// Store persists escrow records.
//
// UpdateStatus is compare-and-set: the write applies only when the stored
// status still equals the status observed at decision time. The core issues
// a decision, not a write; this discipline is what keeps a decision made
// against a stale read from clobbering a concurrent transition.
type Store interface {
	Create(ctx context.Context, e *Escrow) error
	Get(ctx context.Context, id domain.EscrowID) (*Escrow, error)
	// UpdateStatus transitions id from observed to next. A stored status
	// that no longer equals observed yields CodeConflict.
	UpdateStatus(ctx context.Context, id domain.EscrowID, observed, next Status) error
	// ListByWallet returns escrows where the wallet is buyer or seller.
	ListByWallet(ctx context.Context, wallet domain.WalletAddress) ([]*Escrow, error)
	// ListOverdue returns non-terminal escrows whose expiry has passed.
	ListOverdue(ctx context.Context, limit int) ([]*Escrow, error)
}

// ErrNotFound is returned when no escrow exists for an ID.
var ErrNotFound = dErrors.New(dErrors.CodeNotFound, "escrow not found")

// ErrStaleStatus is returned when a compare-and-set status write loses to a
// concurrent transition.
var ErrStaleStatus = dErrors.New(dErrors.CodeConflict, "escrow status changed concurrently")
