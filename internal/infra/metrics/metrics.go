// Package metrics provides Prometheus metrics for habitloop.
// Counters and gauges for completions, XP, achievements, notifications
// and health checks, served on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Completions ────────────────────────────────────────────────────────────

// CompletionsLogged tracks completion writes by status ("completed", "undone").
var CompletionsLogged = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "habitloop",
	Name:      "completions_logged_total",
	Help:      "Total habit completion records written.",
}, []string{"status"})

// ─── XP & Levels ────────────────────────────────────────────────────────────

// XPAwarded tracks XP granted by source.
var XPAwarded = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "habitloop",
	Name:      "xp_awarded_total",
	Help:      "Total XP granted, by source.",
}, []string{"source"})

// LevelUps tracks level transitions.
var LevelUps = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "habitloop",
	Name:      "level_ups_total",
	Help:      "Total level-ups across all users.",
})

// ─── Achievements ───────────────────────────────────────────────────────────

// AchievementsUnlocked tracks unlocks by category.
var AchievementsUnlocked = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "habitloop",
	Name:      "achievements_unlocked_total",
	Help:      "Total achievements unlocked, by category.",
}, []string{"category"})

// CatalogUnrecognized tracks catalog entries skipped for an unknown category.
var CatalogUnrecognized = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "habitloop",
	Name:      "catalog_unrecognized_total",
	Help:      "Achievement evaluations skipped because of an unknown category.",
})

// ─── Notifications ──────────────────────────────────────────────────────────

// NotificationsCreated tracks notifications stored by type.
var NotificationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "habitloop",
	Name:      "notifications_created_total",
	Help:      "Total notifications created, by type.",
}, []string{"type"})

// NotificationsSuppressed tracks notifications dropped by policy.
var NotificationsSuppressed = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "habitloop",
	Name:      "notifications_suppressed_total",
	Help:      "Notifications dropped by the delivery policy, by reason.",
}, []string{"reason"})

// ─── Health ─────────────────────────────────────────────────────────────────

// HealthCheckStatus tracks health check results (1=healthy, 0=unhealthy).
var HealthCheckStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "habitloop",
	Name:      "health_check_status",
	Help:      "Health check result per component (1=healthy, 0=unhealthy).",
}, []string{"check"})
