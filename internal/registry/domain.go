// Package registry implements the marketplace domain registry: a store of
// name→owner records with deterministically derived addresses and atomic
// register/transfer/list/buy/renew operations.
package registry

import (
	"crypto/sha256"
	"time"

	"github.com/mr-tron/base58"

	"ans/pkg/domain"
)

// Status is the derived lifecycle state of a domain record.
type Status string

const (
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
)

// RegistrationPeriod is the validity window granted by Register and added by
// each Renew.
const RegistrationPeriod = 365 * 24 * time.Hour

// Domain is a registry record. Records are never deleted: expiry is derived
// from the clock, and an expired record can be renewed back to active.
type Domain struct {
	Name     domain.DomainName
	Address  string
	Bump     uint8
	Owner    domain.WalletAddress
	Endpoint string
	IsListed bool
	// Price is set iff IsListed.
	Price     domain.Amount
	CreatedAt time.Time
	ExpiresAt time.Time
	UpdatedAt time.Time
	// Version guards compare-and-set commits. Every committed operation
	// increments it; a commit against a stale version fails cleanly.
	Version uint64
}

// Status derives the record's state from the clock. There is no stored
// transition to expired.
func (d *Domain) Status(now time.Time) Status {
	if now.After(d.ExpiresAt) {
		return StatusExpired
	}
	return StatusActive
}

// clone returns a copy the caller may mutate without the stored record
// becoming observable in a half-updated state.
func (d *Domain) clone() *Domain {
	c := *d
	return &c
}

// addressSeed is the fixed prefix mixed into every derived address. Changing
// it re-keys the entire registry.
const addressSeed = "ans/domain/v1"

// DeriveAddress computes the record address for a name. The address is a pure
// function of the name alone: two names can never collide, and nobody can
// forge a record for a name at a different address.
//
// Derivation scans bump values downward from 255 and hashes
// seed‖name‖bump, accepting the first digest whose final byte has the high
// bit clear. The accepted digest must not be interpretable as a signing key,
// which the high-bit filter guarantees for this encoding. The winning bump is
// cached on the record so the address can be recomputed without rescanning.
func DeriveAddress(name domain.DomainName) (string, uint8) {
	for bump := 255; bump >= 0; bump-- {
		h := sha256.New()
		h.Write([]byte(addressSeed))
		h.Write([]byte(name))
		h.Write([]byte{byte(bump)})
		digest := h.Sum(nil)
		if digest[31]&0x80 == 0 {
			return base58.Encode(digest), uint8(bump)
		}
	}
	// Unreachable in practice: 256 independent digests all having the high
	// bit set has probability 2^-256.
	panic("registry: no valid bump for name " + name.String())
}

// Transfer is a fund movement a registry operation requires. The store
// commits transfers and the record change as one unit.
type Transfer struct {
	From   domain.WalletAddress
	To     domain.WalletAddress
	Amount domain.Amount
	Memo   string
}
