package registry

import (
	"context"

	"ans/pkg/domain"
	dErrors "ans/pkg/domain-errors"
)

// Store persists domain records. Implementations must make Create and Commit
// atomic: either the full record change and every transfer land, or nothing
// does, and no reader ever observes an intermediate state.
type Store interface {
	// Get returns the record for a name, or CodeNotFound.
	Get(ctx context.Context, name domain.DomainName) (*Domain, error)

	// Create inserts a new record. An existing record at the same name yields
	// CodeDuplicateName.
	Create(ctx context.Context, d *Domain) error

	// Commit replaces the stored record with updated, provided the stored
	// version still equals expectedVersion, and applies transfers in the same
	// unit. A stale version yields CodeConflict and leaves both the record
	// and all balances untouched.
	Commit(ctx context.Context, updated *Domain, expectedVersion uint64, transfers []Transfer) error

	// ListByOwner returns all records owned by a wallet.
	ListByOwner(ctx context.Context, owner domain.WalletAddress) ([]*Domain, error)

	// ListForSale returns all currently listed records.
	ListForSale(ctx context.Context) ([]*Domain, error)
}

// ErrNotFound is returned when no record exists at a name's address.
var ErrNotFound = dErrors.New(dErrors.CodeNotFound, "domain not found")

// ErrVersionConflict is returned when a commit loses a concurrent race. The
// loser fails cleanly; nothing is partially applied.
var ErrVersionConflict = dErrors.New(dErrors.CodeConflict, "domain was modified concurrently")
