package registry

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"

	"ans/internal/registry/metrics"
	"ans/pkg/domain"
	dErrors "ans/pkg/domain-errors"
	"ans/pkg/platform/audit"
	"ans/pkg/requestcontext"
)

var tracer = otel.Tracer("ans/internal/registry")

// maxEndpointLen bounds the service endpoint URL stored on a record.
const maxEndpointLen = 256

// Policy carries the registry's configurable behavior gaps. Both defaults
// preserve the audited design: purchases of expired domains are allowed and
// renewal is free. Flip them only after product sign-off.
type Policy struct {
	// EnforceExpiryOnBuy rejects Buy on an expired domain when true.
	EnforceExpiryOnBuy bool
	// RenewalFee is charged to the owner on each Renew when non-zero.
	RenewalFee domain.Amount
	// Treasury receives renewal fees. Required when RenewalFee is set.
	Treasury domain.WalletAddress
}

// Service executes registry operations. Every operation is a single atomic
// unit: the store commits the record change and any fund transfers together
// or not at all, and concurrent operations on the same record are resolved
// by whichever commits first. The loser fails cleanly with a conflict.
type Service struct {
	store   Store
	policy  Policy
	logger  *slog.Logger
	metrics *metrics.Metrics
	auditor *audit.Publisher
}

func NewService(store Store, policy Policy, logger *slog.Logger, m *metrics.Metrics, auditor *audit.Publisher) *Service {
	return &Service{
		store:   store,
		policy:  policy,
		logger:  logger,
		metrics: m,
		auditor: auditor,
	}
}

// Register creates a new domain record owned by owner, active and unlisted,
// valid for one registration period.
//
// Errors: CodeNameLengthInvalid for out-of-bounds names, CodeDuplicateName
// when a record already exists at the name's derived address.
func (s *Service) Register(ctx context.Context, rawName string, owner domain.WalletAddress) (*Domain, error) {
	ctx, span := tracer.Start(ctx, "registry.Register")
	defer span.End()
	start := time.Now()

	name, err := domain.ParseDomainName(rawName)
	if err != nil {
		s.metrics.RecordOperation("register", "rejected", time.Since(start))
		return nil, err
	}

	now := requestcontext.Now(ctx)
	address, bump := DeriveAddress(name)
	record := &Domain{
		Name:      name,
		Address:   address,
		Bump:      bump,
		Owner:     owner,
		CreatedAt: now,
		ExpiresAt: now.Add(RegistrationPeriod),
		UpdatedAt: now,
		Version:   1,
	}
	if err := s.store.Create(ctx, record); err != nil {
		s.metrics.RecordOperation("register", "rejected", time.Since(start))
		return nil, err
	}

	s.metrics.RecordOperation("register", "committed", time.Since(start))
	s.emit(ctx, audit.EventDomainRegistered, owner, name, "committed", "")
	s.logger.InfoContext(ctx, "domain registered",
		"request_id", requestcontext.RequestID(ctx),
		"name", name,
		"address", address,
		"owner", owner.Canonical(),
	)
	return record, nil
}

// Transfer reassigns ownership to newOwner. The listing is cleared
// unconditionally: a transferred domain is never still for sale under the
// old owner's terms.
func (s *Service) Transfer(ctx context.Context, rawName string, signer, newOwner domain.WalletAddress) (*Domain, error) {
	ctx, span := tracer.Start(ctx, "registry.Transfer")
	defer span.End()

	return s.mutate(ctx, "transfer", audit.EventDomainTransferred, rawName, signer, func(d *Domain) ([]Transfer, error) {
		d.Owner = newOwner
		d.IsListed = false
		d.Price = domain.Amount{}
		return nil, nil
	})
}

// UpdateEndpoint sets the record's service endpoint URL.
//
// Errors: CodeInvalidInput when the URL exceeds 256 characters.
func (s *Service) UpdateEndpoint(ctx context.Context, rawName string, signer domain.WalletAddress, url string) (*Domain, error) {
	ctx, span := tracer.Start(ctx, "registry.UpdateEndpoint")
	defer span.End()

	return s.mutate(ctx, "update_endpoint", audit.EventEndpointUpdated, rawName, signer, func(d *Domain) ([]Transfer, error) {
		if len(url) > maxEndpointLen {
			return nil, dErrors.Newf(dErrors.CodeInvalidInput, "endpoint URL exceeds %d characters", maxEndpointLen)
		}
		d.Endpoint = url
		return nil, nil
	})
}

// ListForSale marks the record as listed at price.
func (s *Service) ListForSale(ctx context.Context, rawName string, signer domain.WalletAddress, price domain.Amount) (*Domain, error) {
	ctx, span := tracer.Start(ctx, "registry.ListForSale")
	defer span.End()

	return s.mutate(ctx, "list_for_sale", audit.EventDomainListed, rawName, signer, func(d *Domain) ([]Transfer, error) {
		d.IsListed = true
		d.Price = price
		return nil, nil
	})
}

// Unlist clears the record's listing and price.
func (s *Service) Unlist(ctx context.Context, rawName string, signer domain.WalletAddress) (*Domain, error) {
	ctx, span := tracer.Start(ctx, "registry.Unlist")
	defer span.End()

	return s.mutate(ctx, "unlist", audit.EventDomainUnlisted, rawName, signer, func(d *Domain) ([]Transfer, error) {
		d.IsListed = false
		d.Price = domain.Amount{}
		return nil, nil
	})
}

// Buy purchases a listed domain. The payment moves from buyer to the current
// owner and ownership changes in the same atomic commit; no reader ever sees
// the domain owner-changed but still listed.
//
// Expiry is not checked unless Policy.EnforceExpiryOnBuy is set: the audited
// design allows buying an expired domain, and that behavior is preserved
// behind the policy switch.
//
// Errors: CodeNotListed, CodePriceMismatch, CodeDomainExpired (policy),
// CodeConflict when a concurrent commit wins.
func (s *Service) Buy(ctx context.Context, rawName string, buyer domain.WalletAddress, payment domain.Amount) (*Domain, error) {
	ctx, span := tracer.Start(ctx, "registry.Buy")
	defer span.End()
	start := time.Now()

	name, err := domain.ParseDomainName(rawName)
	if err != nil {
		s.metrics.RecordOperation("buy", "rejected", time.Since(start))
		return nil, err
	}
	record, err := s.store.Get(ctx, name)
	if err != nil {
		s.metrics.RecordOperation("buy", "rejected", time.Since(start))
		return nil, err
	}

	now := requestcontext.Now(ctx)
	if !record.IsListed {
		s.metrics.RecordOperation("buy", "rejected", time.Since(start))
		return nil, dErrors.Newf(dErrors.CodeNotListed, "domain %q is not listed for sale", name)
	}
	if !payment.Equal(record.Price) {
		s.metrics.RecordOperation("buy", "rejected", time.Since(start))
		return nil, dErrors.Newf(dErrors.CodePriceMismatch,
			"payment %s does not match listed price %s", payment, record.Price)
	}
	if s.policy.EnforceExpiryOnBuy && record.Status(now) == StatusExpired {
		s.metrics.RecordOperation("buy", "rejected", time.Since(start))
		return nil, dErrors.Newf(dErrors.CodeDomainExpired, "domain %q has expired", name)
	}

	seller := record.Owner
	updated := record.clone()
	updated.Owner = buyer
	updated.IsListed = false
	updated.Price = domain.Amount{}
	updated.UpdatedAt = now

	transfers := []Transfer{{
		From:   buyer,
		To:     seller,
		Amount: payment,
		Memo:   "domain purchase: " + name.String(),
	}}
	if err := s.store.Commit(ctx, updated, record.Version, transfers); err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			s.metrics.IncrementConflict()
		}
		s.metrics.RecordOperation("buy", "rejected", time.Since(start))
		return nil, err
	}

	s.metrics.RecordOperation("buy", "committed", time.Since(start))
	s.emit(ctx, audit.EventDomainBought, buyer, name, "committed", "")
	s.logger.InfoContext(ctx, "domain bought",
		"request_id", requestcontext.RequestID(ctx),
		"name", name,
		"buyer", buyer.Canonical(),
		"seller", seller.Canonical(),
		"price", payment.String(),
	)
	updated.Version = record.Version + 1
	return updated, nil
}

// Renew extends the record's validity by one registration period from its
// current expiry, whether or not that expiry has passed. An expired domain
// renews back to active.
//
// Renewal is free unless Policy.RenewalFee is set; the audited design charges
// nothing, and that behavior is preserved behind the policy switch.
func (s *Service) Renew(ctx context.Context, rawName string, signer domain.WalletAddress) (*Domain, error) {
	ctx, span := tracer.Start(ctx, "registry.Renew")
	defer span.End()

	return s.mutate(ctx, "renew", audit.EventDomainRenewed, rawName, signer, func(d *Domain) ([]Transfer, error) {
		d.ExpiresAt = d.ExpiresAt.Add(RegistrationPeriod)
		if s.policy.RenewalFee.IsZero() {
			return nil, nil
		}
		return []Transfer{{
			From:   signer,
			To:     s.policy.Treasury,
			Amount: s.policy.RenewalFee,
			Memo:   "domain renewal: " + d.Name.String(),
		}}, nil
	})
}

// Get returns the record for a name.
func (s *Service) Get(ctx context.Context, rawName string) (*Domain, error) {
	name, err := domain.ParseDomainName(rawName)
	if err != nil {
		return nil, err
	}
	return s.store.Get(ctx, name)
}

// Listings returns all records currently for sale.
func (s *Service) Listings(ctx context.Context) ([]*Domain, error) {
	return s.store.ListForSale(ctx)
}

// OwnedBy returns all records owned by a wallet.
func (s *Service) OwnedBy(ctx context.Context, owner domain.WalletAddress) ([]*Domain, error) {
	return s.store.ListByOwner(ctx, owner)
}

// mutate implements the shared owner-gated read-modify-commit cycle. apply
// receives a private clone; the stored record only changes if the commit
// wins the version race.
func (s *Service) mutate(
	ctx context.Context,
	operation string,
	kind audit.AuditEvent,
	rawName string,
	signer domain.WalletAddress,
	apply func(d *Domain) ([]Transfer, error),
) (*Domain, error) {
	start := time.Now()

	name, err := domain.ParseDomainName(rawName)
	if err != nil {
		s.metrics.RecordOperation(operation, "rejected", time.Since(start))
		return nil, err
	}
	record, err := s.store.Get(ctx, name)
	if err != nil {
		s.metrics.RecordOperation(operation, "rejected", time.Since(start))
		return nil, err
	}
	if !signer.Equal(record.Owner) {
		s.metrics.RecordOperation(operation, "rejected", time.Since(start))
		s.emit(ctx, audit.EventAuthDenied, signer, name, "denied", "signer is not the domain owner")
		return nil, dErrors.Newf(dErrors.CodeNotOwner, "signer is not the owner of %q", name)
	}

	updated := record.clone()
	transfers, err := apply(updated)
	if err != nil {
		s.metrics.RecordOperation(operation, "rejected", time.Since(start))
		return nil, err
	}
	updated.UpdatedAt = requestcontext.Now(ctx)

	if err := s.store.Commit(ctx, updated, record.Version, transfers); err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			s.metrics.IncrementConflict()
		}
		s.metrics.RecordOperation(operation, "rejected", time.Since(start))
		return nil, err
	}

	s.metrics.RecordOperation(operation, "committed", time.Since(start))
	s.emit(ctx, kind, signer, name, "committed", "")
	s.logger.InfoContext(ctx, "registry operation committed",
		"request_id", requestcontext.RequestID(ctx),
		"operation", operation,
		"name", name,
		"signer", signer.Canonical(),
	)
	updated.Version = record.Version + 1
	return updated, nil
}

func (s *Service) emit(ctx context.Context, kind audit.AuditEvent, wallet domain.WalletAddress, name domain.DomainName, decision, reason string) {
	if s.auditor == nil {
		return
	}
	s.auditor.Emit(ctx, kind, audit.Event{
		Wallet:    wallet.Canonical(),
		Subject:   name.String(),
		Decision:  decision,
		Reason:    reason,
		RequestID: requestcontext.RequestID(ctx),
	})
}
