package registry

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"ans/pkg/domain"
	dErrors "ans/pkg/domain-errors"
)

type MemoryStoreSuite struct {
	suite.Suite
	store  *MemoryStore
	ledger *MemoryLedger
	ctx    context.Context
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.ledger = NewMemoryLedger()
	s.store = NewMemoryStore(s.ledger)
	s.ctx = context.Background()
}

func (s *MemoryStoreSuite) record(name domain.DomainName, owner domain.WalletAddress) *Domain {
	now := time.Now()
	addr, bump := DeriveAddress(name)
	return &Domain{
		Name:      name,
		Address:   addr,
		Bump:      bump,
		Owner:     owner,
		CreatedAt: now,
		ExpiresAt: now.Add(RegistrationPeriod),
		UpdatedAt: now,
		Version:   1,
	}
}

func (s *MemoryStoreSuite) TestCreate() {
	s.Run("inserts a new record", func() {
		d := s.record("agent://create", "owner1")
		s.Require().NoError(s.store.Create(s.ctx, d))

		got, err := s.store.Get(s.ctx, d.Name)
		s.Require().NoError(err)
		s.Equal(d.Address, got.Address)
	})

	s.Run("duplicate name rejected", func() {
		d := s.record("agent://dup", "owner1")
		s.Require().NoError(s.store.Create(s.ctx, d))
		err := s.store.Create(s.ctx, s.record("agent://dup", "owner2"))
		s.True(dErrors.HasCode(err, dErrors.CodeDuplicateName))
	})

	s.Run("stored record is isolated from the caller's copy", func() {
		d := s.record("agent://isolated", "owner1")
		s.Require().NoError(s.store.Create(s.ctx, d))
		d.Owner = "mutated"

		got, err := s.store.Get(s.ctx, "agent://isolated")
		s.Require().NoError(err)
		s.Equal(domain.WalletAddress("owner1"), got.Owner)
	})
}

func (s *MemoryStoreSuite) TestGet() {
	_, err := s.store.Get(s.ctx, "agent://missing")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *MemoryStoreSuite) TestCommit() {
	s.Run("applies record change and transfers together", func() {
		d := s.record("agent://commit", "seller1")
		s.Require().NoError(s.store.Create(s.ctx, d))
		s.ledger.Credit("buyer1", domain.MustAmount("10"))

		updated := d.clone()
		updated.Owner = "buyer1"
		transfers := []Transfer{{From: "buyer1", To: "seller1", Amount: domain.MustAmount("2.5")}}
		s.Require().NoError(s.store.Commit(s.ctx, updated, 1, transfers))

		got, err := s.store.Get(s.ctx, d.Name)
		s.Require().NoError(err)
		s.Equal(domain.WalletAddress("buyer1"), got.Owner)
		s.Equal(uint64(2), got.Version)
		s.Zero(s.ledger.Balance("buyer1").Cmp(big.NewRat(15, 2)))
		s.Zero(s.ledger.Balance("seller1").Cmp(big.NewRat(5, 2)))
	})

	s.Run("stale version fails and applies nothing", func() {
		d := s.record("agent://stale", "seller1")
		s.Require().NoError(s.store.Create(s.ctx, d))

		winner := d.clone()
		winner.Endpoint = "https://winner"
		s.Require().NoError(s.store.Commit(s.ctx, winner, 1, nil))

		loser := d.clone()
		loser.Endpoint = "https://loser"
		err := s.store.Commit(s.ctx, loser, 1, []Transfer{{From: "a", To: "b", Amount: domain.MustAmount("1")}})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))

		got, getErr := s.store.Get(s.ctx, d.Name)
		s.Require().NoError(getErr)
		s.Equal("https://winner", got.Endpoint)
		s.Zero(s.ledger.Balance("b").Sign())
	})

	s.Run("missing record yields not found", func() {
		ghost := s.record("agent://ghost", "owner1")
		err := s.store.Commit(s.ctx, ghost, 1, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *MemoryStoreSuite) TestListByOwner() {
	s.Require().NoError(s.store.Create(s.ctx, s.record("agent://own1", "OwnerA")))
	s.Require().NoError(s.store.Create(s.ctx, s.record("agent://own2", "ownera")))
	s.Require().NoError(s.store.Create(s.ctx, s.record("agent://own3", "ownerB")))

	// Ownership matching is case-insensitive like every wallet comparison.
	out, err := s.store.ListByOwner(s.ctx, "OWNERA")
	s.Require().NoError(err)
	s.Len(out, 2)
}

func (s *MemoryStoreSuite) TestListForSale() {
	listed := s.record("agent://sale1", "owner1")
	listed.IsListed = true
	listed.Price = domain.MustAmount("3")
	s.Require().NoError(s.store.Create(s.ctx, listed))
	s.Require().NoError(s.store.Create(s.ctx, s.record("agent://sale2", "owner1")))

	out, err := s.store.ListForSale(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(out, 1)
	s.Equal(domain.DomainName("agent://sale1"), out[0].Name)
}
