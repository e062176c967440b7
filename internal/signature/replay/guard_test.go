package replay

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "ans/pkg/domain-errors"
)

func TestMemoryGuard(t *testing.T) {
	ctx := context.Background()

	t.Run("first use is accepted", func(t *testing.T) {
		g := NewMemoryGuard()
		require.NoError(t, g.CheckAndStore(ctx, "sig-1", time.Minute))
	})

	t.Run("second use inside the window is a replay", func(t *testing.T) {
		g := NewMemoryGuard()
		require.NoError(t, g.CheckAndStore(ctx, "sig-1", time.Minute))
		err := g.CheckAndStore(ctx, "sig-1", time.Minute)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeReplayDetected))
	})

	t.Run("distinct signatures do not collide", func(t *testing.T) {
		g := NewMemoryGuard()
		require.NoError(t, g.CheckAndStore(ctx, "sig-1", time.Minute))
		require.NoError(t, g.CheckAndStore(ctx, "sig-2", time.Minute))
	})

	t.Run("an expired entry is accepted again", func(t *testing.T) {
		g := NewMemoryGuard()
		require.NoError(t, g.CheckAndStore(ctx, "sig-1", -time.Second))
		require.NoError(t, g.CheckAndStore(ctx, "sig-1", time.Minute))
	})

	t.Run("concurrent use admits a signature exactly once", func(t *testing.T) {
		g := NewMemoryGuard()
		const workers = 16
		results := make(chan error, workers)
		for range workers {
			go func() {
				results <- g.CheckAndStore(ctx, "sig-race", time.Minute)
			}()
		}
		accepted := 0
		for range workers {
			if err := <-results; err == nil {
				accepted++
			}
		}
		assert.Equal(t, 1, accepted)
	})
}
