package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habitloop/habitloop/internal/app/engagement"
	"github.com/habitloop/habitloop/internal/app/habit"
	"github.com/habitloop/habitloop/internal/domain"
	"github.com/habitloop/habitloop/internal/health"
	"github.com/habitloop/habitloop/internal/infra/sqlite"
)

var testNow = time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	dir := t.TempDir()
	db, err := sqlite.Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	clock := func() time.Time { return testNow }
	notifier := engagement.NewNotificationService(db)
	notifier.SetClock(clock)
	tracker := engagement.NewTracker(db, engagement.DefaultCatalog(), notifier, engagement.DefaultTrackerConfig(), nil)
	tracker.SetClock(clock)

	srv := NewServer(habit.NewService(db, nil), tracker, notifier, nil)
	srv.SetClock(clock)
	srv.SetVersion("1.2.3")
	srv.EnableMetrics()

	checker := health.NewChecker(db, dir, nil)
	checker.RunOnce(context.Background())
	srv.SetHealth(checker)
	return srv.Handler()
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func createUserAndHabit(t *testing.T, h http.Handler) (domain.User, domain.Habit) {
	t.Helper()
	w := do(t, h, http.MethodPost, "/api/users", map[string]any{"name": "Ada"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	u := decode[domain.User](t, w)

	w = do(t, h, http.MethodPost, "/api/users/"+u.ID+"/habits", map[string]any{"name": "Read", "target_days": 3})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return u, decode[domain.Habit](t, w)
}

// ─── System Endpoints ───────────────────────────────────────────────────────

func TestHealth(t *testing.T) {
	h := newTestServer(t)
	w := do(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, "ok", body["status"])
}

func TestVersion(t *testing.T) {
	h := newTestServer(t)
	w := do(t, h, http.MethodGet, "/api/version", nil)
	assert.Equal(t, "1.2.3", decode[map[string]string](t, w)["version"])
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(t)
	w := do(t, h, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "habitloop_")
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(t)
	w := do(t, h, http.MethodOptions, "/api/users", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

// ─── Users & Habits ─────────────────────────────────────────────────────────

func TestCreateUser_Validation(t *testing.T) {
	h := newTestServer(t)

	w := do(t, h, http.MethodPost, "/api/users", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "name")

	w = do(t, h, http.MethodPost, "/api/users", map[string]any{"name": "Ada", "admin": true})
	assert.Equal(t, http.StatusBadRequest, w.Code, "unknown fields rejected")

	w = do(t, h, http.MethodPost, "/api/users", map[string]any{"name": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code, "blank name rejected by the service")
}

func TestGetUser(t *testing.T) {
	h := newTestServer(t)
	u, _ := createUserAndHabit(t, h)

	w := do(t, h, http.MethodGet, "/api/users/"+u.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Ada", decode[domain.User](t, w).Name)

	w = do(t, h, http.MethodGet, "/api/users/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHabits_ListAndArchive(t *testing.T) {
	h := newTestServer(t)
	u, hb := createUserAndHabit(t, h)

	w := do(t, h, http.MethodGet, "/api/users/"+u.ID+"/habits", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[map[string][]domain.Habit](t, w)["habits"], 1)

	w = do(t, h, http.MethodPost, "/api/users/"+u.ID+"/habits", map[string]any{"name": "Run", "target_days": -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodDelete, "/api/users/"+u.ID+"/habits/"+hb.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, h, http.MethodGet, "/api/users/"+u.ID+"/habits", nil)
	assert.Empty(t, decode[map[string][]domain.Habit](t, w)["habits"])

	w = do(t, h, http.MethodPut, "/api/users/"+u.ID+"/habits/"+hb.ID+"/completions/2024-01-03", map[string]any{"completed": true})
	assert.Equal(t, http.StatusConflict, w.Code)
}

// ─── Progression ────────────────────────────────────────────────────────────

func TestLogCompletion_Flow(t *testing.T) {
	h := newTestServer(t)
	u, hb := createUserAndHabit(t, h)
	base := "/api/users/" + u.ID + "/habits/" + hb.ID + "/completions/"

	var last map[string]any
	for _, d := range []string{"2024-01-01", "2024-01-02", "today"} {
		w := do(t, h, http.MethodPut, base+d, map[string]any{"completed": true})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		last = decode[map[string]any](t, w)
	}
	assert.EqualValues(t, 3, last["streak"])
	assert.EqualValues(t, 70, last["total_xp"])
	goal := last["goal"].(map[string]any)
	assert.Equal(t, true, goal["achieved"])

	w := do(t, h, http.MethodGet, "/api/users/"+u.ID+"/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[domain.UserStats](t, w)
	assert.Equal(t, int64(70), stats.TotalXP)
	require.Len(t, stats.Habits, 1)
	assert.Equal(t, 3, stats.Habits[0].CurrentStreak)

	w = do(t, h, http.MethodGet, "/api/users/"+u.ID+"/achievements", nil)
	require.Equal(t, http.StatusOK, w.Code)
	ach := decode[map[string]any](t, w)
	assert.EqualValues(t, 2, ach["unlocked"])

	w = do(t, h, http.MethodPost, "/api/users/"+u.ID+"/refresh", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, decode[map[string]any](t, w)["xp_awarded"])

	w = do(t, h, http.MethodGet, "/api/leaderboard?limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	board := decode[map[string][]domain.LeaderboardEntry](t, w)["leaderboard"]
	require.Len(t, board, 1)
	assert.Equal(t, int64(70), board[0].TotalXP)
}

func TestLogCompletion_BadInput(t *testing.T) {
	h := newTestServer(t)
	u, hb := createUserAndHabit(t, h)
	base := "/api/users/" + u.ID + "/habits/" + hb.ID + "/completions/"

	w := do(t, h, http.MethodPut, base+"yesterday", map[string]any{"completed": true})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodPut, base+"2024-01-04", map[string]any{"completed": true})
	assert.Equal(t, http.StatusBadRequest, w.Code, "day after today")

	w = do(t, h, http.MethodPut, base+"2024-01-01", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code, "completed is required")

	w = do(t, h, http.MethodPut, "/api/users/"+u.ID+"/habits/missing/completions/2024-01-01", map[string]any{"completed": true})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNotifications(t *testing.T) {
	h := newTestServer(t)
	u, hb := createUserAndHabit(t, h)

	w := do(t, h, http.MethodPut, "/api/users/"+u.ID+"/habits/"+hb.ID+"/completions/today", map[string]any{"completed": true})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodGet, "/api/users/"+u.ID+"/notifications", nil)
	require.Equal(t, http.StatusOK, w.Code)
	notifs := decode[map[string][]domain.Notification](t, w)["notifications"]
	require.NotEmpty(t, notifs)

	w = do(t, h, http.MethodPost, "/api/users/"+u.ID+"/notifications/"+notifs[0].ID+"/shown", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, h, http.MethodPost, "/api/users/"+u.ID+"/notifications/missing/shown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, http.MethodGet, "/api/users/missing/notifications", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// ─── Pure Resolvers ─────────────────────────────────────────────────────────

func TestLevelEndpoint(t *testing.T) {
	h := newTestServer(t)

	w := do(t, h, http.MethodGet, "/api/level?xp=100", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.EqualValues(t, 2, body["level"])
	assert.EqualValues(t, 0, body["current_xp"])
	assert.EqualValues(t, 300, body["xp_for_current_level"])

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/level?xp=-5", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/level?xp=lots", nil).Code)
}

func TestGoalEndpoint(t *testing.T) {
	h := newTestServer(t)

	w := do(t, h, http.MethodGet, "/api/goal?current=9&target=7", nil)
	require.Equal(t, http.StatusOK, w.Code)
	goal := decode[domain.GoalProgress](t, w)
	assert.Equal(t, 100.0, goal.ProgressPercentage)
	assert.True(t, goal.Achieved)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/goal?current=1&target=0", nil).Code)
}

func TestLeaderboard_BadLimit(t *testing.T) {
	h := newTestServer(t)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/leaderboard?limit=abc", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/leaderboard?limit=0", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/leaderboard?limit=-5", nil).Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/leaderboard?limit=500", nil).Code)
}

func TestCatalogEndpoint(t *testing.T) {
	h := newTestServer(t)
	w := do(t, h, http.MethodGet, "/api/catalog", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[map[string][]domain.AchievementDef](t, w)["achievements"], len(engagement.DefaultCatalog()))
}
