// Package authz decides whether a wallet may perform a settlement action on
// an escrow. The rules live in one table mapping each action to a required-
// role predicate, so call sites never branch on roles themselves.
//
// Authorization here is pure: no I/O, no clock, safe for concurrent use and
// retries. Signature and expiry checks happen before this layer; the route
// layer rejects unknown actions before calling in, and Authorize rejects them
// again as defense in depth.
package authz

import (
	"ans/pkg/domain"
	dErrors "ans/pkg/domain-errors"
)

// Roles carries the wallets an escrow recognizes. Seller stays zero until the
// escrow's seller is resolved through domain lookup; a zero seller never
// matches any wallet, so seller-gated actions simply fail rather than crash.
type Roles struct {
	Buyer  domain.WalletAddress
	Seller domain.WalletAddress
}

// Decision reports an authorization outcome. Err carries the coded reason
// when Authorized is false and is nil otherwise.
type Decision struct {
	Authorized bool
	Err        error
}

// rule binds an action to its required-role predicate and the message used
// when the predicate fails. Messages name the action and required role so
// clients can tell a role mismatch from a protocol error.
type rule struct {
	allowed     func(wallet domain.WalletAddress, roles Roles) bool
	denyMessage string
}

func isBuyer(wallet domain.WalletAddress, roles Roles) bool {
	return !roles.Buyer.IsZero() && wallet.Equal(roles.Buyer)
}

func isSeller(wallet domain.WalletAddress, roles Roles) bool {
	return !roles.Seller.IsZero() && wallet.Equal(roles.Seller)
}

func isParty(wallet domain.WalletAddress, roles Roles) bool {
	return isBuyer(wallet, roles) || isSeller(wallet, roles)
}

// rules is the single source of truth for the role matrix:
//
//	lock    → buyer  (only the paying party may commit funds)
//	confirm → seller (only the delivering party attests completion)
//	release → buyer  (buyer controls releasing custody to seller)
//	refund  → buyer  (manual path; system-initiated refunds are authorized by
//	                  the scheduler and never pass through this table)
//	dispute → buyer or seller (either party may escalate)
var rules = map[domain.Action]rule{
	domain.ActionLock:    {allowed: isBuyer, denyMessage: "Only buyer can lock escrow"},
	domain.ActionConfirm: {allowed: isSeller, denyMessage: "Only seller can confirm escrow"},
	domain.ActionRelease: {allowed: isBuyer, denyMessage: "Only buyer can release escrow"},
	domain.ActionRefund:  {allowed: isBuyer, denyMessage: "Only buyer can refund escrow"},
	domain.ActionDispute: {allowed: isParty, denyMessage: "Only buyer or seller can dispute escrow"},
}

// Authorize maps (wallet, escrow roles, action) to a decision. Wallet
// comparison is case-insensitive.
func Authorize(wallet domain.WalletAddress, roles Roles, action domain.Action) Decision {
	r, ok := rules[action]
	if !ok {
		return Decision{Err: dErrors.Newf(dErrors.CodeUnknownAction, "unknown action %q", action)}
	}
	if !r.allowed(wallet, roles) {
		return Decision{Err: dErrors.New(dErrors.CodeUnauthorized, r.denyMessage)}
	}
	return Decision{Authorized: true}
}
