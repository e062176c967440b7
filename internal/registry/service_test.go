package registry

import (
	"context"
	"log/slog"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"ans/pkg/domain"
	dErrors "ans/pkg/domain-errors"
	"ans/pkg/requestcontext"
)

const (
	ownerWallet = domain.WalletAddress("OwnerWallet111")
	buyerWallet = domain.WalletAddress("BuyerWallet222")
	otherWallet = domain.WalletAddress("OtherWallet333")
)

type RegistryServiceSuite struct {
	suite.Suite
	ledger  *MemoryLedger
	store   *MemoryStore
	service *Service
	ctx     context.Context
}

func TestRegistryServiceSuite(t *testing.T) {
	suite.Run(t, new(RegistryServiceSuite))
}

func (s *RegistryServiceSuite) SetupTest() {
	s.ledger = NewMemoryLedger()
	s.store = NewMemoryStore(s.ledger)
	s.service = NewService(s.store, Policy{}, slog.New(slog.DiscardHandler), nil, nil)
	s.ctx = context.Background()
}

func (s *RegistryServiceSuite) register(name string) *Domain {
	d, err := s.service.Register(s.ctx, name, ownerWallet)
	s.Require().NoError(err)
	return d
}

func (s *RegistryServiceSuite) TestRegister() {
	s.Run("creates an active unlisted record", func() {
		d := s.register("agent://marriott")

		s.Equal(ownerWallet, d.Owner)
		s.False(d.IsListed)
		s.True(d.Price.IsZero())
		s.Equal(uint64(1), d.Version)
		s.Equal(StatusActive, d.Status(time.Now()))
		s.WithinDuration(time.Now().Add(RegistrationPeriod), d.ExpiresAt, time.Minute)

		wantAddr, wantBump := DeriveAddress(d.Name)
		s.Equal(wantAddr, d.Address)
		s.Equal(wantBump, d.Bump)
	})

	s.Run("rejects names outside length bounds", func() {
		_, err := s.service.Register(s.ctx, "ab", ownerWallet)
		s.True(dErrors.HasCode(err, dErrors.CodeNameLengthInvalid))

		_, err = s.service.Register(s.ctx, strings.Repeat("x", 33), ownerWallet)
		s.True(dErrors.HasCode(err, dErrors.CodeNameLengthInvalid))
	})

	s.Run("rejects duplicate names", func() {
		s.register("agent://duplicate")
		_, err := s.service.Register(s.ctx, "agent://duplicate", otherWallet)
		s.True(dErrors.HasCode(err, dErrors.CodeDuplicateName))
	})
}

func (s *RegistryServiceSuite) TestTransfer() {
	s.Run("owner transfers and the listing clears", func() {
		s.register("agent://transfer")
		_, err := s.service.ListForSale(s.ctx, "agent://transfer", ownerWallet, domain.MustAmount("5"))
		s.Require().NoError(err)

		d, err := s.service.Transfer(s.ctx, "agent://transfer", ownerWallet, otherWallet)
		s.Require().NoError(err)
		s.Equal(otherWallet, d.Owner)
		s.False(d.IsListed)
		s.True(d.Price.IsZero())
	})

	s.Run("non-owner cannot transfer", func() {
		s.register("agent://guarded")
		_, err := s.service.Transfer(s.ctx, "agent://guarded", otherWallet, buyerWallet)
		s.True(dErrors.HasCode(err, dErrors.CodeNotOwner))
	})

	s.Run("owner match is case-insensitive", func() {
		s.register("agent://cased")
		_, err := s.service.Transfer(s.ctx, "agent://cased", "ownerwallet111", otherWallet)
		s.NoError(err)
	})
}

func (s *RegistryServiceSuite) TestUpdateEndpoint() {
	s.Run("sets the endpoint", func() {
		s.register("agent://endpoint")
		d, err := s.service.UpdateEndpoint(s.ctx, "agent://endpoint", ownerWallet, "https://api.example.com/v1")
		s.Require().NoError(err)
		s.Equal("https://api.example.com/v1", d.Endpoint)
	})

	s.Run("rejects oversized URLs", func() {
		s.register("agent://longurl")
		_, err := s.service.UpdateEndpoint(s.ctx, "agent://longurl", ownerWallet, strings.Repeat("u", 257))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *RegistryServiceSuite) TestListingLifecycle() {
	s.register("agent://shop")

	listed, err := s.service.ListForSale(s.ctx, "agent://shop", ownerWallet, domain.MustAmount("2.5"))
	s.Require().NoError(err)
	s.True(listed.IsListed)
	s.True(listed.Price.Equal(domain.MustAmount("2.5")))

	listings, err := s.service.Listings(s.ctx)
	s.Require().NoError(err)
	s.Len(listings, 1)

	unlisted, err := s.service.Unlist(s.ctx, "agent://shop", ownerWallet)
	s.Require().NoError(err)
	s.False(unlisted.IsListed)
	s.True(unlisted.Price.IsZero())

	listings, err = s.service.Listings(s.ctx)
	s.Require().NoError(err)
	s.Empty(listings)
}

func (s *RegistryServiceSuite) TestBuy() {
	s.Run("moves ownership and funds atomically", func() {
		s.register("agent://forsale")
		_, err := s.service.ListForSale(s.ctx, "agent://forsale", ownerWallet, domain.MustAmount("2.5"))
		s.Require().NoError(err)
		s.ledger.Credit(buyerWallet, domain.MustAmount("10"))

		d, err := s.service.Buy(s.ctx, "agent://forsale", buyerWallet, domain.MustAmount("2.5"))
		s.Require().NoError(err)
		s.Equal(buyerWallet, d.Owner)
		s.False(d.IsListed)
		s.True(d.Price.IsZero())
		s.Zero(s.ledger.Balance(buyerWallet).Cmp(big.NewRat(15, 2)))
		s.Zero(s.ledger.Balance(ownerWallet).Cmp(big.NewRat(5, 2)))
	})

	s.Run("rejects an unlisted domain", func() {
		s.register("agent://private")
		_, err := s.service.Buy(s.ctx, "agent://private", buyerWallet, domain.MustAmount("1"))
		s.True(dErrors.HasCode(err, dErrors.CodeNotListed))
	})

	s.Run("rejects a payment that does not match the price exactly", func() {
		s.register("agent://priced")
		_, err := s.service.ListForSale(s.ctx, "agent://priced", ownerWallet, domain.MustAmount("2.5"))
		s.Require().NoError(err)

		for _, payment := range []string{"2.4", "2.6", "2.5000000001"} {
			_, err := s.service.Buy(s.ctx, "agent://priced", buyerWallet, domain.MustAmount(payment))
			s.True(dErrors.HasCode(err, dErrors.CodePriceMismatch), payment)
		}

		// Trailing zeros are not a mismatch.
		_, err = s.service.Buy(s.ctx, "agent://priced", buyerWallet, domain.MustAmount("2.50"))
		s.NoError(err)
	})

	s.Run("expired listing is purchasable by default", func() {
		s.register("agent://lapsed")
		_, err := s.service.ListForSale(s.ctx, "agent://lapsed", ownerWallet, domain.MustAmount("1"))
		s.Require().NoError(err)

		future := requestcontext.WithTime(s.ctx, time.Now().Add(RegistrationPeriod+time.Hour))
		_, err = s.service.Buy(future, "agent://lapsed", buyerWallet, domain.MustAmount("1"))
		s.NoError(err)
	})

	s.Run("expired listing is rejected under the expiry policy", func() {
		strict := NewService(s.store, Policy{EnforceExpiryOnBuy: true}, slog.New(slog.DiscardHandler), nil, nil)
		s.register("agent://strict")
		_, err := s.service.ListForSale(s.ctx, "agent://strict", ownerWallet, domain.MustAmount("1"))
		s.Require().NoError(err)

		future := requestcontext.WithTime(s.ctx, time.Now().Add(RegistrationPeriod+time.Hour))
		_, err = strict.Buy(future, "agent://strict", buyerWallet, domain.MustAmount("1"))
		s.True(dErrors.HasCode(err, dErrors.CodeDomainExpired))
	})
}

func (s *RegistryServiceSuite) TestRenew() {
	s.Run("extends expiry by one period", func() {
		d := s.register("agent://renewme")
		renewed, err := s.service.Renew(s.ctx, "agent://renewme", ownerWallet)
		s.Require().NoError(err)
		s.Equal(d.ExpiresAt.Add(RegistrationPeriod), renewed.ExpiresAt)
	})

	s.Run("an expired domain renews back toward active", func() {
		d := s.register("agent://comeback")
		future := requestcontext.WithTime(s.ctx, time.Now().Add(RegistrationPeriod+time.Hour))
		renewed, err := s.service.Renew(future, "agent://comeback", ownerWallet)
		s.Require().NoError(err)
		s.Equal(d.ExpiresAt.Add(RegistrationPeriod), renewed.ExpiresAt)
	})

	s.Run("renewal is free by default", func() {
		s.register("agent://freerenew")
		_, err := s.service.Renew(s.ctx, "agent://freerenew", ownerWallet)
		s.Require().NoError(err)
		s.Zero(s.ledger.Balance(ownerWallet).Sign())
	})

	s.Run("renewal fee moves to the treasury under the fee policy", func() {
		treasury := domain.WalletAddress("TreasuryWallet999")
		charging := NewService(s.store, Policy{
			RenewalFee: domain.MustAmount("0.1"),
			Treasury:   treasury,
		}, slog.New(slog.DiscardHandler), nil, nil)

		s.register("agent://feepayer")
		_, err := charging.Renew(s.ctx, "agent://feepayer", ownerWallet)
		s.Require().NoError(err)
		s.Zero(s.ledger.Balance(treasury).Cmp(big.NewRat(1, 10)))
	})

	s.Run("non-owner cannot renew", func() {
		s.register("agent://notmine")
		_, err := s.service.Renew(s.ctx, "agent://notmine", otherWallet)
		s.True(dErrors.HasCode(err, dErrors.CodeNotOwner))
	})
}

func (s *RegistryServiceSuite) TestConcurrentCommit() {
	// Two services sharing one store model two gateway instances racing on the
	// same record. Exactly one endpoint update survives; the loser fails with
	// a conflict and nothing half-applied.
	s.register("agent://raced")

	record, err := s.store.Get(s.ctx, "agent://raced")
	s.Require().NoError(err)

	winner := record.clone()
	winner.Endpoint = "https://winner"
	s.Require().NoError(s.store.Commit(s.ctx, winner, record.Version, nil))

	loser := record.clone()
	loser.Endpoint = "https://loser"
	err = s.store.Commit(s.ctx, loser, record.Version, nil)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	got, err := s.service.Get(s.ctx, "agent://raced")
	s.Require().NoError(err)
	s.Equal("https://winner", got.Endpoint)
}

func (s *RegistryServiceSuite) TestOwnedBy() {
	s.register("agent://mine1")
	s.register("agent://mine2")
	_, err := s.service.Register(s.ctx, "agent://theirs", otherWallet)
	s.Require().NoError(err)

	owned, err := s.service.OwnedBy(s.ctx, ownerWallet)
	s.Require().NoError(err)
	s.Len(owned, 2)
}
