package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// VerificationMetrics tracks proof verification outcomes.
type VerificationMetrics struct {
	verdicts    *prometheus.CounterVec
	submissions prometheus.Counter
	reviewDepth prometheus.Gauge
}

// NewVerificationMetrics registers the verification metrics on the provided registerer.
func NewVerificationMetrics(reg prometheus.Registerer) *VerificationMetrics {
	if reg == nil {
		return &VerificationMetrics{}
	}
	verdicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "proof_verification_verdicts_total",
		Help: "Proof verification verdicts by state and method.",
	}, []string{"state", "method"})
	submissions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payment_proof_submissions_total",
		Help: "Payment proof submission attempts.",
	})
	reviewDepth := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "proof_review_queue_depth",
		Help: "Proofs currently awaiting manual review.",
	})
	reg.MustRegister(verdicts, submissions, reviewDepth)
	return &VerificationMetrics{
		verdicts:    verdicts,
		submissions: submissions,
		reviewDepth: reviewDepth,
	}
}

// IncVerdict counts one verdict for the given state/method pair.
func (v *VerificationMetrics) IncVerdict(state, method string) {
	if v == nil || v.verdicts == nil {
		return
	}
	v.verdicts.WithLabelValues(normalizeLabel(state), normalizeLabel(method)).Inc()
}

// IncSubmission counts one proof submission attempt.
func (v *VerificationMetrics) IncSubmission() {
	if v == nil || v.submissions == nil {
		return
	}
	v.submissions.Inc()
}

// SetReviewQueueDepth records the current manual review backlog.
func (v *VerificationMetrics) SetReviewQueueDepth(depth int) {
	if v == nil || v.reviewDepth == nil {
		return
	}
	v.reviewDepth.Set(float64(depth))
}
