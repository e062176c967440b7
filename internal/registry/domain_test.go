package registry

import (
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ans/pkg/domain"
)

func TestDeriveAddress(t *testing.T) {
	t.Run("is deterministic", func(t *testing.T) {
		a1, b1 := DeriveAddress("agent://marriott")
		a2, b2 := DeriveAddress("agent://marriott")
		assert.Equal(t, a1, a2)
		assert.Equal(t, b1, b2)
	})

	t.Run("distinct names derive distinct addresses", func(t *testing.T) {
		a1, _ := DeriveAddress("agent://marriott")
		a2, _ := DeriveAddress("agent://hilton")
		assert.NotEqual(t, a1, a2)
	})

	t.Run("accepted digest has the high bit clear", func(t *testing.T) {
		addr, _ := DeriveAddress("agent://marriott")
		digest, err := base58.Decode(addr)
		require.NoError(t, err)
		require.Len(t, digest, 32)
		assert.Zero(t, digest[31]&0x80)
	})

	t.Run("bump survives a re-derivation from the stored name", func(t *testing.T) {
		names := []domain.DomainName{"abc", "agent://one", "agent://two", "a-very-long-name-near-the-limit"}
		for _, name := range names {
			addr, bump := DeriveAddress(name)
			addr2, bump2 := DeriveAddress(name)
			assert.Equal(t, addr, addr2, name)
			assert.Equal(t, bump, bump2, name)
		}
	})
}

func TestDomainStatus(t *testing.T) {
	now := time.Now()
	d := &Domain{ExpiresAt: now.Add(time.Hour)}

	assert.Equal(t, StatusActive, d.Status(now))
	assert.Equal(t, StatusActive, d.Status(d.ExpiresAt))
	assert.Equal(t, StatusExpired, d.Status(d.ExpiresAt.Add(time.Nanosecond)))
}
