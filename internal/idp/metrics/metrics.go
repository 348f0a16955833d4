// Package metrics holds the Prometheus collectors for the identity provider.
// All recording methods are safe to call on a nil *Metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Face gate outcomes.
const (
	OutcomeAccepted   = "accepted"
	OutcomeRejected   = "rejected"
	OutcomeNotLive    = "not_live"
	OutcomeNoFace     = "no_face"
	OutcomeBadRequest = "bad_request"
	OutcomeError      = "error"
)

type Metrics struct {
	faceVerifications *prometheus.CounterVec
	matchScore        prometheus.Histogram
	gallerySkipped    prometheus.Counter
	tokensIssued      *prometheus.CounterVec
	tokensRevoked     prometheus.Counter
	enrollments       *prometheus.CounterVec
	housekeeping      *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg uses
// prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		faceVerifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "visageid",
			Name:      "face_verifications_total",
			Help:      "Face gate decisions by outcome.",
		}, []string{"outcome"}),
		matchScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "visageid",
			Name:      "face_match_top1_score",
			Help:      "Best cosine similarity observed per verification.",
			Buckets:   []float64{-0.5, 0, 0.3, 0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 0.99, 1},
		}),
		gallerySkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "visageid",
			Name:      "gallery_rows_skipped_total",
			Help:      "Gallery rows that could not be decrypted or parsed.",
		}),
		tokensIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "visageid",
			Name:      "tokens_issued_total",
			Help:      "Tokens minted by type.",
		}, []string{"type"}),
		tokensRevoked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "visageid",
			Name:      "tokens_revoked_total",
			Help:      "Revocation requests that matched a stored token.",
		}),
		enrollments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "visageid",
			Name:      "face_enrollments_total",
			Help:      "Embeddings stored by kind (signup, enroll, reenroll).",
		}, []string{"kind"}),
		housekeeping: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "visageid",
			Name:      "housekeeping_deleted_total",
			Help:      "Expired rows removed by housekeeping.",
		}, []string{"table"}),
	}

	reg.MustRegister(
		m.faceVerifications,
		m.matchScore,
		m.gallerySkipped,
		m.tokensIssued,
		m.tokensRevoked,
		m.enrollments,
		m.housekeeping,
	)
	return m
}

func (m *Metrics) FaceVerification(outcome string) {
	if m == nil {
		return
	}
	m.faceVerifications.WithLabelValues(outcome).Inc()
}

// MatchObserved records the best score and any skipped gallery rows.
func (m *Metrics) MatchObserved(top1 float64, skipped int) {
	if m == nil {
		return
	}
	m.matchScore.Observe(top1)
	if skipped > 0 {
		m.gallerySkipped.Add(float64(skipped))
	}
}

func (m *Metrics) TokenIssued(tokenType string) {
	if m == nil {
		return
	}
	m.tokensIssued.WithLabelValues(tokenType).Inc()
}

func (m *Metrics) TokenRevoked() {
	if m == nil {
		return
	}
	m.tokensRevoked.Inc()
}

func (m *Metrics) Enrolled(kind string) {
	if m == nil {
		return
	}
	m.enrollments.WithLabelValues(kind).Inc()
}

func (m *Metrics) HousekeepingDeleted(table string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.housekeeping.WithLabelValues(table).Add(float64(n))
}
