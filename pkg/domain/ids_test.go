package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "ans/pkg/domain-errors"
)

func TestParseWalletAddress(t *testing.T) {
	t.Run("accepts a typical address", func(t *testing.T) {
		w, err := ParseWalletAddress("7sPjVb8eqEjBA5Dwu9z3Gm4QYhXKZVbR2JfNcT6AqWxy")
		require.NoError(t, err)
		assert.False(t, w.IsZero())
	})

	t.Run("rejects empty", func(t *testing.T) {
		_, err := ParseWalletAddress("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects oversized", func(t *testing.T) {
		_, err := ParseWalletAddress(strings.Repeat("a", 65))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects whitespace", func(t *testing.T) {
		_, err := ParseWalletAddress("wallet with space")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestWalletAddressEqual(t *testing.T) {
	t.Run("equality is case-insensitive", func(t *testing.T) {
		a := WalletAddress("BuyerWallet123")
		b := WalletAddress("buyerwallet123")
		assert.True(t, a.Equal(b))
		assert.True(t, b.Equal(a))
	})

	t.Run("different addresses are not equal", func(t *testing.T) {
		assert.False(t, WalletAddress("walletA").Equal(WalletAddress("walletB")))
	})

	t.Run("canonical form is lowercase", func(t *testing.T) {
		assert.Equal(t, "buyerwallet123", WalletAddress("BuyerWallet123").Canonical())
	})
}

func TestParseEscrowID(t *testing.T) {
	t.Run("round-trips a minted ID", func(t *testing.T) {
		id := NewEscrowID()
		parsed, err := ParseEscrowID(id.String())
		require.NoError(t, err)
		assert.Equal(t, id, parsed)
	})

	t.Run("rejects empty", func(t *testing.T) {
		_, err := ParseEscrowID("")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects malformed UUID", func(t *testing.T) {
		_, err := ParseEscrowID("not-a-uuid")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects the nil UUID", func(t *testing.T) {
		_, err := ParseEscrowID("00000000-0000-0000-0000-000000000000")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestParseAction(t *testing.T) {
	t.Run("accepts the five settlement actions", func(t *testing.T) {
		for _, raw := range []string{"lock", "confirm", "release", "refund", "dispute"} {
			a, err := ParseAction(raw)
			require.NoError(t, err, raw)
			assert.True(t, a.IsValid())
		}
	})

	t.Run("rejects unknown action", func(t *testing.T) {
		_, err := ParseAction("approve")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnknownAction))
	})

	t.Run("rejects empty action", func(t *testing.T) {
		_, err := ParseAction("")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnknownAction))
	})

	t.Run("is case-sensitive", func(t *testing.T) {
		_, err := ParseAction("Lock")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnknownAction))
	})
}

func TestParseDomainName(t *testing.T) {
	t.Run("accepts bounds", func(t *testing.T) {
		for _, raw := range []string{"abc", strings.Repeat("x", 32), "agent://marriott"} {
			_, err := ParseDomainName(raw)
			require.NoError(t, err, raw)
		}
	})

	t.Run("rejects too short", func(t *testing.T) {
		_, err := ParseDomainName("ab")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNameLengthInvalid))
	})

	t.Run("rejects too long", func(t *testing.T) {
		_, err := ParseDomainName(strings.Repeat("x", 33))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNameLengthInvalid))
	})

	t.Run("rejects whitespace", func(t *testing.T) {
		_, err := ParseDomainName("bad name")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}
