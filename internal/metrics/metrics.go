package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records bot activity. A nil *Metrics is valid and records nothing.
type Metrics struct {
	updates        *prometheus.CounterVec
	updateDuration *prometheus.HistogramVec
	subscriptions  *prometheus.CounterVec
	draftCommits   *prometheus.CounterVec
	activeDrafts   prometheus.Gauge
	notifications  *prometheus.CounterVec
}

// New registers the bot metrics on the provided registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}
	updates := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wishbot_updates_total",
		Help: "Telegram updates processed.",
	}, []string{"kind", "handled"})
	updateDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wishbot_update_duration_seconds",
		Help:    "Time spent handling a Telegram update.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
	subscriptions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wishbot_subscription_transitions_total",
		Help: "Subscription lifecycle transitions.",
	}, []string{"transition"})
	draftCommits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wishbot_draft_commits_total",
		Help: "Draft commits by kind and outcome.",
	}, []string{"kind", "result"})
	activeDrafts := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wishbot_active_drafts",
		Help: "Drafts currently held by the draft store.",
	})
	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wishbot_notifications_total",
		Help: "Out-of-band notifications by delivery result.",
	}, []string{"result"})
	reg.MustRegister(updates, updateDuration, subscriptions, draftCommits, activeDrafts, notifications)
	return &Metrics{
		updates:        updates,
		updateDuration: updateDuration,
		subscriptions:  subscriptions,
		draftCommits:   draftCommits,
		activeDrafts:   activeDrafts,
		notifications:  notifications,
	}
}

// ObserveUpdate records one handled (or ignored) update.
func (m *Metrics) ObserveUpdate(kind string, handled bool, duration time.Duration) {
	if m == nil || m.updates == nil {
		return
	}
	h := "false"
	if handled {
		h = "true"
	}
	m.updates.WithLabelValues(normalizeLabel(kind), h).Inc()
	m.updateDuration.WithLabelValues(normalizeLabel(kind)).Observe(duration.Seconds())
}

func (m *Metrics) IncSubscriptionTransition(transition string) {
	if m == nil || m.subscriptions == nil {
		return
	}
	m.subscriptions.WithLabelValues(normalizeLabel(transition)).Inc()
}

func (m *Metrics) IncDraftCommit(kind string, ok bool) {
	if m == nil || m.draftCommits == nil {
		return
	}
	result := "failure"
	if ok {
		result = "success"
	}
	m.draftCommits.WithLabelValues(normalizeLabel(kind), result).Inc()
}

func (m *Metrics) SetActiveDrafts(n int64) {
	if m == nil || m.activeDrafts == nil {
		return
	}
	m.activeDrafts.Set(float64(n))
}

func (m *Metrics) IncNotification(ok bool) {
	if m == nil || m.notifications == nil {
		return
	}
	result := "failure"
	if ok {
		result = "success"
	}
	m.notifications.WithLabelValues(result).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
