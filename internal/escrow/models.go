// Package escrow implements the settlement escrow lifecycle: records, the
// status state machine, and the service that gates every transition behind
// signature verification and role authorization.
package escrow

import (
	"time"

	"ans/pkg/domain"
)

// Status is the lifecycle state of an escrow record.
type Status string

const (
	StatusPending   Status = "pending"
	StatusLocked    Status = "locked"
	StatusConfirmed Status = "confirmed"
	StatusReleased  Status = "released"
	StatusRefunded  Status = "refunded"
	StatusDisputed  Status = "disputed"
	StatusExpired   Status = "expired"
)

// IsTerminal reports whether the status admits no further transitions.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusReleased, StatusRefunded, StatusExpired:
		return true
	}
	return false
}

// Escrow is a settlement record between a buyer and a seller agent.
//
// SellerWallet is a snapshot of the seller agent's domain owner at creation
// time, not a live reference: a later domain transfer does not retroactively
// change an open escrow's seller. It stays zero until the domain lookup
// resolves.
type Escrow struct {
	ID          domain.EscrowID
	BuyerWallet domain.WalletAddress
	// SellerWallet may be zero until resolved through domain lookup.
	SellerWallet domain.WalletAddress
	// SellerAgent is the domain name the seller was resolved through.
	SellerAgent domain.DomainName
	// Amount is strictly positive.
	Amount domain.Amount
	Status Status
	// ServiceDetails is opaque text describing the purchased service.
	ServiceDetails string
	CreatedAt      time.Time
	// ExpiresAt is strictly after CreatedAt.
	ExpiresAt time.Time
	UpdatedAt time.Time
}

// Roles returns the wallets this escrow recognizes for authorization.
func (e *Escrow) Roles() (buyer, seller domain.WalletAddress) {
	return e.BuyerWallet, e.SellerWallet
}

// clone returns a copy callers may mutate freely.
func (e *Escrow) clone() *Escrow {
	c := *e
	return &c
}
