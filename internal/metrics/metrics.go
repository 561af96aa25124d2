// Package metrics — счётчики prometheus сервиса, отдаются на /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DuelsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "duelchat_duels_created_total",
		Help: "Duels created on first thread turns.",
	})

	Votes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "duelchat_votes_total",
		Help: "Duel votes that locked a thread, by chosen provider.",
	}, []string{"provider"})

	Turns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "duelchat_turns_total",
		Help: "Committed user turns by provider and kind (duel or single).",
	}, []string{"provider", "kind"})

	QuotaRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "duelchat_quota_rejections_total",
		Help: "Turns rejected by the usage ledger, by exhausted quota.",
	}, []string{"reason"})

	GenerationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "duelchat_generation_failures_total",
		Help: "Response generation failures by provider and kind.",
	}, []string{"provider", "kind"})

	RenewalsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "duelchat_renewals_applied_total",
		Help: "Verified payments converted into subscription periods, by plan.",
	}, []string{"plan"})

	ExpiryNotices = promauto.NewCounter(prometheus.CounterOpts{
		Name: "duelchat_expiry_notices_total",
		Help: "Published reminders about subscription periods ending soon.",
	})

	RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "duelchat_rate_limited_total",
		Help: "Requests rejected by rate limiting, by scope.",
	}, []string{"scope"})
)
