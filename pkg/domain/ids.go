// Package domain holds the typed values shared across modules. Values are
// constructed via Parse* functions at trust boundaries; direct casting
// bypasses validation.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "ans/pkg/domain-errors"
)

// WalletAddress identifies an agent. There is no account system: a wallet
// address is the only identity either party ever presents.
//
// Invariant: comparison is case-insensitive. The address alphabet accepted by
// this protocol admits case variation without semantic difference, so two
// addresses differing only in case refer to the same wallet.
type WalletAddress string

const maxWalletAddressLen = 64

// ParseWalletAddress constructs a WalletAddress from external input.
//
// Errors: CodeInvalidInput when the value is empty, oversized, or contains
// whitespace.
func ParseWalletAddress(s string) (WalletAddress, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "wallet address cannot be empty")
	}
	if len(s) > maxWalletAddressLen {
		return "", dErrors.New(dErrors.CodeInvalidInput, "wallet address too long")
	}
	if strings.ContainsAny(s, " \t\r\n") {
		return "", dErrors.New(dErrors.CodeInvalidInput, "wallet address contains whitespace")
	}
	return WalletAddress(s), nil
}

// Equal compares two addresses case-insensitively.
func (w WalletAddress) Equal(other WalletAddress) bool {
	return strings.EqualFold(string(w), string(other))
}

// Canonical returns the lowercase form used for comparisons and storage keys.
func (w WalletAddress) Canonical() string {
	return strings.ToLower(string(w))
}

func (w WalletAddress) String() string { return string(w) }

// IsZero reports whether the address is unset (e.g. an unresolved seller).
func (w WalletAddress) IsZero() bool { return w == "" }

// EscrowID uniquely identifies an escrow record.
type EscrowID uuid.UUID

// NewEscrowID mints a fresh escrow identifier.
func NewEscrowID() EscrowID {
	return EscrowID(uuid.New())
}

// ParseEscrowID constructs an EscrowID from external input.
//
// Errors: CodeInvalidInput when the value is empty, malformed, or the nil
// UUID.
func ParseEscrowID(s string) (EscrowID, error) {
	if s == "" {
		return EscrowID{}, dErrors.New(dErrors.CodeInvalidInput, "escrow id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return EscrowID{}, dErrors.New(dErrors.CodeInvalidInput, "escrow id is not a valid UUID")
	}
	if u == uuid.Nil {
		return EscrowID{}, dErrors.New(dErrors.CodeInvalidInput, "escrow id cannot be the nil UUID")
	}
	return EscrowID(u), nil
}

func (e EscrowID) String() string { return uuid.UUID(e).String() }

// IsZero reports whether the ID is unset.
func (e EscrowID) IsZero() bool { return uuid.UUID(e) == uuid.Nil }
