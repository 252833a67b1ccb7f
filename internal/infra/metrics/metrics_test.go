package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gatheredNames(t *testing.T) map[string]bool {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	return names
}

func TestProgressionCounters_Registered(t *testing.T) {
	CompletionsLogged.WithLabelValues("completed").Inc()
	XPAwarded.WithLabelValues("ACHIEVEMENT").Add(100)
	LevelUps.Inc()
	AchievementsUnlocked.WithLabelValues("STREAK").Inc()
	CatalogUnrecognized.Inc()

	names := gatheredNames(t)
	for _, name := range []string{
		"habitloop_completions_logged_total",
		"habitloop_xp_awarded_total",
		"habitloop_level_ups_total",
		"habitloop_achievements_unlocked_total",
		"habitloop_catalog_unrecognized_total",
	} {
		assert.True(t, names[name], "metric %q not found", name)
	}
}

func TestXPAwarded_Accumulates(t *testing.T) {
	before := testutil.ToFloat64(XPAwarded.WithLabelValues("COMPLETION"))
	XPAwarded.WithLabelValues("COMPLETION").Add(10)
	XPAwarded.WithLabelValues("COMPLETION").Add(15)
	assert.Equal(t, before+25, testutil.ToFloat64(XPAwarded.WithLabelValues("COMPLETION")))
}

func TestNotificationAndHealthMetrics(t *testing.T) {
	NotificationsCreated.WithLabelValues("achievement").Inc()
	NotificationsSuppressed.WithLabelValues("quiet_hours").Inc()
	HealthCheckStatus.WithLabelValues("sqlite").Set(1)

	assert.Equal(t, 1.0, testutil.ToFloat64(HealthCheckStatus.WithLabelValues("sqlite")))
	names := gatheredNames(t)
	assert.True(t, names["habitloop_notifications_created_total"])
	assert.True(t, names["habitloop_notifications_suppressed_total"])
}
