//go:build integration

package replay_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"ans/internal/signature/replay"
	dErrors "ans/pkg/domain-errors"
	"ans/pkg/testutil/containers"
)

type RedisGuardSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	guard *replay.RedisGuard
}

func TestRedisGuardSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisGuardSuite))
}

func (s *RedisGuardSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.guard = replay.NewRedisGuard(s.redis.Client)
}

func (s *RedisGuardSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisGuardSuite) TestCheckAndStore() {
	ctx := context.Background()

	s.Run("first use accepted, second rejected", func() {
		s.Require().NoError(s.guard.CheckAndStore(ctx, "sig-1", time.Minute))
		err := s.guard.CheckAndStore(ctx, "sig-1", time.Minute)
		s.True(dErrors.HasCode(err, dErrors.CodeReplayDetected))
	})

	s.Run("distinct signatures do not collide", func() {
		s.Require().NoError(s.guard.CheckAndStore(ctx, "sig-a", time.Minute))
		s.Require().NoError(s.guard.CheckAndStore(ctx, "sig-b", time.Minute))
	})

	s.Run("entries expire with the TTL", func() {
		s.Require().NoError(s.guard.CheckAndStore(ctx, "sig-ttl", 100*time.Millisecond))
		time.Sleep(200 * time.Millisecond)
		s.NoError(s.guard.CheckAndStore(ctx, "sig-ttl", time.Minute))
	})
}

func (s *RedisGuardSuite) TestConcurrentCheckAndStore() {
	ctx := context.Background()
	const goroutines = 20

	var wg sync.WaitGroup
	var accepted atomic.Int32
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.guard.CheckAndStore(ctx, "sig-race", time.Minute); err == nil {
				accepted.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), accepted.Load())
}
