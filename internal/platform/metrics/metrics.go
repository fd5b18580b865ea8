package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the auth gateway.
type Metrics struct {
	UsersCreated        prometheus.Counter
	IdentitiesLinked    *prometheus.CounterVec
	IdentitiesUnlinked  *prometheus.CounterVec
	AccountsMerged      prometheus.Counter
	MergeFailures       prometheus.Counter
	PendingLinksCreated prometheus.Counter
	PendingLinkConsume  *prometheus.CounterVec
	RequestLatency      *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		UsersCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dojotrack_users_created_total",
			Help: "Total number of users provisioned on first sign-in",
		}),
		IdentitiesLinked: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dojotrack_identities_linked_total",
			Help: "Total provider identities attached to users",
		}, []string{"provider"}),
		IdentitiesUnlinked: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dojotrack_identities_unlinked_total",
			Help: "Total provider identities detached from users",
		}, []string{"provider"}),
		AccountsMerged: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dojotrack_accounts_merged_total",
			Help: "Total account merges committed",
		}),
		MergeFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dojotrack_account_merge_failures_total",
			Help: "Total account merges rolled back",
		}),
		PendingLinksCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dojotrack_pending_links_created_total",
			Help: "Total pending link codes issued",
		}),
		PendingLinkConsume: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dojotrack_pending_link_consume_total",
			Help: "Pending link consume attempts by outcome",
		}, []string{"outcome"}),
		RequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dojotrack_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status class",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}

// ObserveRequest records one HTTP request observation.
func (m *Metrics) ObserveRequest(route, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RequestLatency.WithLabelValues(route, status).Observe(elapsed.Seconds())
}

// RecordLink increments the linked-identities counter for a provider.
func (m *Metrics) RecordLink(provider string) {
	if m == nil {
		return
	}
	m.IdentitiesLinked.WithLabelValues(provider).Inc()
}

// RecordUnlink increments the unlinked-identities counter for a provider.
func (m *Metrics) RecordUnlink(provider string) {
	if m == nil {
		return
	}
	m.IdentitiesUnlinked.WithLabelValues(provider).Inc()
}

// RecordMerge increments the committed-merges counter.
func (m *Metrics) RecordMerge() {
	if m == nil {
		return
	}
	m.AccountsMerged.Inc()
}

// RecordMergeFailure increments the rolled-back-merges counter.
func (m *Metrics) RecordMergeFailure() {
	if m == nil {
		return
	}
	m.MergeFailures.Inc()
}

// RecordUserCreated increments the provisioned-users counter.
func (m *Metrics) RecordUserCreated() {
	if m == nil {
		return
	}
	m.UsersCreated.Inc()
}

// RecordPendingLinkCreated increments the issued-codes counter.
func (m *Metrics) RecordPendingLinkCreated() {
	if m == nil {
		return
	}
	m.PendingLinksCreated.Inc()
}

// RecordPendingConsume tracks consume outcomes: ok, not_found, expired.
func (m *Metrics) RecordPendingConsume(outcome string) {
	if m == nil {
		return
	}
	m.PendingLinkConsume.WithLabelValues(outcome).Inc()
}
