package escrow

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"

	"ans/internal/authz"
	authzmetrics "ans/internal/authz/metrics"
	"ans/internal/challenge"
	"ans/internal/registry"
	"ans/internal/signature"
	"ans/internal/signature/replay"
	"ans/pkg/domain"
	dErrors "ans/pkg/domain-errors"
	"ans/pkg/platform/audit"
	"ans/pkg/requestcontext"
)

var tracer = otel.Tracer("ans/internal/escrow")

// DefaultTTL is the escrow validity window applied when a create request
// does not supply one.
const DefaultTTL = 24 * time.Hour

// Service drives the escrow lifecycle. Every wallet-initiated transition
// passes, in order: challenge binding, expiry check, signature verification,
// replay guard, role authorization, state machine, compare-and-set write.
// The cheap checks run first; cryptography only runs on challenges that are
// fresh and well-formed.
type Service struct {
	store      Store
	registry   *registry.Service
	guard      replay.Guard
	maxAge     time.Duration
	defaultTTL time.Duration
	logger     *slog.Logger
	metrics    *authzmetrics.Metrics
	auditor    *audit.Publisher
}

// NewService constructs the escrow service. guard may be nil to disable
// replay protection; maxAge <= 0 selects the verifier default and
// defaultTTL <= 0 selects DefaultTTL.
func NewService(
	store Store,
	reg *registry.Service,
	guard replay.Guard,
	maxAge time.Duration,
	defaultTTL time.Duration,
	logger *slog.Logger,
	m *authzmetrics.Metrics,
	auditor *audit.Publisher,
) *Service {
	if maxAge <= 0 {
		maxAge = signature.DefaultMaxAge
	}
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &Service{
		store:      store,
		registry:   reg,
		guard:      guard,
		maxAge:     maxAge,
		defaultTTL: defaultTTL,
		logger:     logger,
		metrics:    m,
		auditor:    auditor,
	}
}

// CreateRequest carries the parameters for opening an escrow.
type CreateRequest struct {
	Buyer          domain.WalletAddress
	SellerAgent    string
	Amount         domain.Amount
	ServiceDetails string
	// TTL defaults to DefaultTTL when zero.
	TTL time.Duration
}

// Create opens a pending escrow. The seller wallet is resolved by looking up
// the seller agent's domain and snapshotting its current owner; if the
// domain does not exist yet the seller stays unresolved and seller-gated
// actions will simply never authorize until it is fixed up.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Escrow, error) {
	ctx, span := tracer.Start(ctx, "escrow.Create")
	defer span.End()

	if req.Buyer.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "buyer wallet is required")
	}
	if req.Amount.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "amount is required")
	}
	agent, err := domain.ParseDomainName(req.SellerAgent)
	if err != nil {
		return nil, err
	}

	var seller domain.WalletAddress
	rec, err := s.registry.Get(ctx, req.SellerAgent)
	switch {
	case err == nil:
		seller = rec.Owner
	case dErrors.HasCode(err, dErrors.CodeNotFound):
		// Unresolved seller: permitted by the data model.
	default:
		return nil, err
	}

	ttl := req.TTL
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	now := requestcontext.Now(ctx)
	e := &Escrow{
		ID:             domain.NewEscrowID(),
		BuyerWallet:    req.Buyer,
		SellerWallet:   seller,
		SellerAgent:    agent,
		Amount:         req.Amount,
		Status:         StatusPending,
		ServiceDetails: req.ServiceDetails,
		CreatedAt:      now,
		ExpiresAt:      now.Add(ttl),
		UpdatedAt:      now,
	}
	if err := s.store.Create(ctx, e); err != nil {
		return nil, err
	}

	s.emit(ctx, audit.EventEscrowCreated, req.Buyer, e.ID.String(), "committed", "")
	s.logger.InfoContext(ctx, "escrow created",
		"request_id", requestcontext.RequestID(ctx),
		"escrow_id", e.ID,
		"buyer", req.Buyer.Canonical(),
		"seller_agent", agent,
		"amount", req.Amount.String(),
	)
	return e, nil
}

// TransitionRequest carries a wallet-signed transition attempt. Message and
// Signature come from the wallet; Wallet doubles as the base58 public key
// the signature is verified against.
type TransitionRequest struct {
	ID        domain.EscrowID
	Wallet    domain.WalletAddress
	Action    domain.Action
	Message   string
	Signature string
}

// auditEventForAction maps each committed action to its audit event.
var auditEventForAction = map[domain.Action]audit.AuditEvent{
	domain.ActionLock:    audit.EventEscrowLocked,
	domain.ActionConfirm: audit.EventEscrowConfirmed,
	domain.ActionRelease: audit.EventEscrowReleased,
	domain.ActionRefund:  audit.EventEscrowRefunded,
	domain.ActionDispute: audit.EventEscrowDisputed,
}

// Transition applies a wallet-initiated action to an escrow.
func (s *Service) Transition(ctx context.Context, req TransitionRequest) (*Escrow, error) {
	ctx, span := tracer.Start(ctx, "escrow.Transition")
	defer span.End()

	e, err := s.store.Get(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	// The signed message must be the canonical challenge for exactly this
	// action and escrow. A valid signature over some other string proves
	// nothing here.
	ts, err := challenge.ExtractTimestamp(req.Message)
	if err != nil {
		s.metrics.IncrementSignatureCheck("missing_timestamp")
		s.emit(ctx, audit.EventSignatureRejected, req.Wallet, req.ID.String(), "rejected", "missing timestamp")
		return nil, dErrors.New(dErrors.CodeMissingTimestamp, "challenge has no timestamp")
	}
	if req.Message != challenge.BuildAt(req.Action, req.ID.String(), ts) {
		s.metrics.IncrementSignatureCheck("invalid")
		s.emit(ctx, audit.EventSignatureRejected, req.Wallet, req.ID.String(), "rejected", "challenge mismatch")
		return nil, dErrors.New(dErrors.CodeMalformedChallenge,
			"challenge does not match the requested action and escrow")
	}

	if res := signature.VerifyWithExpiry(req.Message, req.Signature, req.Wallet.String(), s.maxAge); !res.Valid {
		s.metrics.IncrementSignatureCheck(signatureResult(res.Err))
		s.emit(ctx, audit.EventSignatureRejected, req.Wallet, req.ID.String(), "rejected", res.Err.Error())
		return nil, res.Err
	}
	s.metrics.IncrementSignatureCheck("ok")

	if s.guard != nil {
		if err := s.guard.CheckAndStore(ctx, req.Signature, s.maxAge); err != nil {
			s.metrics.IncrementSignatureCheck("replay")
			s.emit(ctx, audit.EventReplayRejected, req.Wallet, req.ID.String(), "rejected", "signature already used")
			return nil, err
		}
	}

	buyer, seller := e.Roles()
	decision := authz.Authorize(req.Wallet, authz.Roles{Buyer: buyer, Seller: seller}, req.Action)
	if !decision.Authorized {
		s.metrics.IncrementDecision(req.Action.String(), "denied")
		s.emit(ctx, audit.EventAuthDenied, req.Wallet, req.ID.String(), "denied", decision.Err.Error())
		return nil, decision.Err
	}
	s.metrics.IncrementDecision(req.Action.String(), "authorized")

	next, err := Next(e.Status, req.Action)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateStatus(ctx, e.ID, e.Status, next); err != nil {
		return nil, err
	}

	s.emit(ctx, auditEventForAction[req.Action], req.Wallet, e.ID.String(), "committed", "")
	s.logger.InfoContext(ctx, "escrow transitioned",
		"request_id", requestcontext.RequestID(ctx),
		"escrow_id", e.ID,
		"action", req.Action,
		"from", e.Status,
		"to", next,
		"wallet", req.Wallet.Canonical(),
	)
	updated := e.clone()
	updated.Status = next
	return updated, nil
}

// SystemRefund refunds an escrow on behalf of the scheduler. System-initiated
// refunds are authorized by the scheduling collaborator, not by a wallet
// signature, so this path skips the challenge and authorization chain while
// still honoring the state machine and the compare-and-set write.
func (s *Service) SystemRefund(ctx context.Context, id domain.EscrowID, reason string) (*Escrow, error) {
	ctx, span := tracer.Start(ctx, "escrow.SystemRefund")
	defer span.End()

	e, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := Next(e.Status, domain.ActionRefund)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateStatus(ctx, e.ID, e.Status, next); err != nil {
		return nil, err
	}

	s.emit(ctx, audit.EventEscrowRefunded, domain.WalletAddress(""), id.String(), "committed", reason)
	s.logger.InfoContext(ctx, "escrow refunded by system",
		"escrow_id", id,
		"from", e.Status,
		"reason", reason,
	)
	updated := e.clone()
	updated.Status = next
	return updated, nil
}

// ExpireOverdue marks non-terminal escrows past their expiry as expired.
// Run periodically by the scheduler. Losing a compare-and-set race here is
// fine: the record transitioned under a real actor and is skipped.
func (s *Service) ExpireOverdue(ctx context.Context, limit int) (int, error) {
	ctx, span := tracer.Start(ctx, "escrow.ExpireOverdue")
	defer span.End()

	overdue, err := s.store.ListOverdue(ctx, limit)
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, e := range overdue {
		if err := s.store.UpdateStatus(ctx, e.ID, e.Status, StatusExpired); err != nil {
			if dErrors.HasCode(err, dErrors.CodeConflict) {
				continue
			}
			return expired, err
		}
		expired++
		s.emit(ctx, audit.EventEscrowExpired, domain.WalletAddress(""), e.ID.String(), "committed", "past expiry")
	}
	if expired > 0 {
		s.logger.InfoContext(ctx, "expired overdue escrows", "count", expired)
	}
	return expired, nil
}

// Get returns the escrow for an ID.
func (s *Service) Get(ctx context.Context, id domain.EscrowID) (*Escrow, error) {
	return s.store.Get(ctx, id)
}

// ListByWallet returns the escrows a wallet participates in.
func (s *Service) ListByWallet(ctx context.Context, wallet domain.WalletAddress) ([]*Escrow, error) {
	return s.store.ListByWallet(ctx, wallet)
}

func (s *Service) emit(ctx context.Context, kind audit.AuditEvent, wallet domain.WalletAddress, subject, decision, reason string) {
	if s.auditor == nil {
		return
	}
	s.auditor.Emit(ctx, kind, audit.Event{
		Wallet:    wallet.Canonical(),
		Subject:   subject,
		Decision:  decision,
		Reason:    reason,
		RequestID: requestcontext.RequestID(ctx),
	})
}

// signatureResult maps a verification error to its metrics label.
func signatureResult(err error) string {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeExpired:
		return "expired"
	case dErrors.CodeMissingTimestamp:
		return "missing_timestamp"
	default:
		return "invalid"
	}
}
