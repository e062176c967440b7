package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the authorization module.
type Metrics struct {
	// Authorization decisions by action and outcome
	Decisions *prometheus.CounterVec

	// Signature verification outcomes by failure reason ("ok" on success)
	SignatureChecks *prometheus.CounterVec
}

// New creates a new Metrics instance with all authorization metrics registered.
func New() *Metrics {
	return &Metrics{
		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ans_authz_decisions_total",
			Help: "Total authorization decisions by action and outcome",
		}, []string{"action", "outcome"}), // outcome: "authorized", "denied"

		SignatureChecks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ans_signature_checks_total",
			Help: "Total signature verifications by result",
		}, []string{"result"}), // result: "ok", "expired", "invalid", "replay", "missing_timestamp"
	}
}

// IncrementDecision records an authorization decision.
func (m *Metrics) IncrementDecision(action, outcome string) {
	if m != nil {
		m.Decisions.WithLabelValues(action, outcome).Inc()
	}
}

// IncrementSignatureCheck records a signature verification result.
func (m *Metrics) IncrementSignatureCheck(result string) {
	if m != nil {
		m.SignatureChecks.WithLabelValues(result).Inc()
	}
}
