// Package audit captures structured settlement events. Events are emitted
// from domain logic, buffered through a channel worker, and appended to a
// sink (memory for tests, Kafka for deployments). Keep the event type
// transport-agnostic so sinks can fan out.
package audit

import "time"

// EventCategory classifies audit events by their primary purpose. This
// enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance.
	// Ownership and custody changes live here and require long retention.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring:
	// rejected signatures, denied authorizations, replay attempts.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and operational
	// visibility. These can be sampled with shorter retention.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions.
type Event struct {
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
	// Wallet is the acting wallet address when known.
	Wallet string `json:"wallet,omitempty"`
	// Subject identifies what was acted on: an escrow ID or a domain name.
	Subject string `json:"subject"`
	Action  string `json:"action"`
	// Decision records the outcome ("committed", "denied", "rejected").
	Decision  string `json:"decision"`
	Reason    string `json:"reason,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// AuditEvent enumerates the settlement event catalog.
type AuditEvent string

const (
	// Registry events
	EventDomainRegistered  AuditEvent = "domain_registered"
	EventDomainTransferred AuditEvent = "domain_transferred"
	EventEndpointUpdated   AuditEvent = "endpoint_updated"
	EventDomainListed      AuditEvent = "domain_listed"
	EventDomainUnlisted    AuditEvent = "domain_unlisted"
	EventDomainBought      AuditEvent = "domain_bought"
	EventDomainRenewed     AuditEvent = "domain_renewed"

	// Escrow events
	EventEscrowCreated   AuditEvent = "escrow_created"
	EventEscrowLocked    AuditEvent = "escrow_locked"
	EventEscrowConfirmed AuditEvent = "escrow_confirmed"
	EventEscrowReleased  AuditEvent = "escrow_released"
	EventEscrowRefunded  AuditEvent = "escrow_refunded"
	EventEscrowDisputed  AuditEvent = "escrow_disputed"
	EventEscrowExpired   AuditEvent = "escrow_expired"

	// Protocol events
	EventAuthDenied        AuditEvent = "auth_denied"
	EventSignatureRejected AuditEvent = "signature_rejected"
	EventReplayRejected    AuditEvent = "replay_rejected"
)

// eventCategories maps each audit event to its category.
var eventCategories = map[AuditEvent]EventCategory{
	// Compliance events: custody and ownership changes
	EventDomainRegistered:  CategoryCompliance,
	EventDomainTransferred: CategoryCompliance,
	EventDomainBought:      CategoryCompliance,
	EventEscrowReleased:    CategoryCompliance,
	EventEscrowRefunded:    CategoryCompliance,

	// Security events: rejected or denied attempts
	EventAuthDenied:        CategorySecurity,
	EventSignatureRejected: CategorySecurity,
	EventReplayRejected:    CategorySecurity,
	EventEscrowDisputed:    CategorySecurity,

	// Operations events: routine lifecycle
	EventDomainRenewed:   CategoryOperations,
	EventDomainListed:    CategoryOperations,
	EventDomainUnlisted:  CategoryOperations,
	EventEndpointUpdated: CategoryOperations,
	EventEscrowCreated:   CategoryOperations,
	EventEscrowLocked:    CategoryOperations,
	EventEscrowConfirmed: CategoryOperations,
	EventEscrowExpired:   CategoryOperations,
}

// Category returns the EventCategory for this audit event. Unknown events
// default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}
