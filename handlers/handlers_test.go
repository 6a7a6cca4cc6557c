package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"inhouse-league/database"
	"inhouse-league/models"
	"inhouse-league/notify"
	"inhouse-league/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAdminToken = "admin-secret"

func newTestApp(t *testing.T) (*fiber.App, *services.Engine) {
	t.Helper()
	db, err := database.Open("sqlite://file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	log := logrus.NewEntry(logrus.New())
	engine := services.NewEngine(db, services.NewSettingsService(db, models.DefaultGameConfig()), services.WithRandSeed(3))

	app := fiber.New()
	SetupSystemRoutes(app, notify.NewHub(8), prometheus.NewRegistry(), log)
	SetupPlayerRoutes(app, engine, log)
	SetupAdminRoutes(app, engine, testAdminToken, log)
	SetupMatchRoutes(app, engine, log)
	return app, engine
}

func call(t *testing.T, app *fiber.App, method, path string, body any, headers ...string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func callList(t *testing.T, app *fiber.App, path string) []map[string]any {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var out []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func admin(path string) string {
	return path + "?token=" + testAdminToken
}

func upsertPlayers(t *testing.T, app *fiber.App, n int) []string {
	t.Helper()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		status, body := call(t, app, http.MethodPost, "/users/upsert", map[string]any{"name": fmt.Sprintf("Tester %d", i+1)})
		require.Equal(t, fiber.StatusCreated, status)
		ids = append(ids, body["id"].(string))
	}
	return ids
}

func TestHealth(t *testing.T) {
	app, _ := newTestApp(t)
	status, body := call(t, app, http.MethodGet, "/health", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["ok"])
}

func TestQueueToFinishedMatchFlow(t *testing.T) {
	app, engine := newTestApp(t)
	ids := upsertPlayers(t, app, 6)

	var matchID string
	for i, id := range ids {
		status, body := call(t, app, http.MethodPost, "/queue/enter", map[string]any{"user_id": id})
		require.Equal(t, fiber.StatusOK, status, body)
		if i < 5 {
			assert.EqualValues(t, i+1, body["queue_count"])
			continue
		}
		assert.Equal(t, true, body["queued"])
		matchID = body["match_id"].(string)
	}
	require.NotEmpty(t, matchID)

	status, body := call(t, app, http.MethodPost, "/queue/enter", map[string]any{"user_id": ids[0]})
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "already_in_active_match", body["error"])

	status, _ = call(t, app, http.MethodPost, "/admin/draft/auto_current?match_id="+matchID, nil)
	assert.Equal(t, fiber.StatusForbidden, status)
	for i := 0; i < 3; i++ {
		status, body = call(t, app, http.MethodPost, admin("/admin/draft/auto_current")+"&match_id="+matchID, nil)
		require.Equal(t, fiber.StatusOK, status, body)
	}
	assert.Equal(t, "in_progress", body["status"])

	m, err := engine.Matches.Get(t.Context(), matchID)
	require.NoError(t, err)

	status, body = call(t, app, http.MethodPost, "/bets/place", map[string]any{"match_id": matchID, "user_id": ids[0], "team": 2})
	require.Equal(t, fiber.StatusCreated, status, body)
	status, body = call(t, app, http.MethodGet, "/bets/count?match_id="+matchID, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 1, body["team2"])

	bets := callList(t, app, "/bets?match_id="+matchID)
	require.Len(t, bets, 1)
	assert.Equal(t, ids[0], bets[0]["player_id"])
	assert.EqualValues(t, 2, bets[0]["team"])

	status, body = call(t, app, http.MethodPost, "/match/report", map[string]any{"match_id": matchID, "user_id": m.Team1[0], "winner_team": 1})
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, "pending", body["status"])

	status, body = call(t, app, http.MethodPost, "/match/report", map[string]any{"match_id": matchID, "winner_team": 2},
		"X-Player-ID", m.Team2[0])
	require.Equal(t, fiber.StatusConflict, status, body)
	assert.Equal(t, "result_mismatch", body["error"])
	details := body["details"].(map[string]any)
	assert.Contains(t, details, "reports")

	status, body = call(t, app, http.MethodPost, "/match/report", map[string]any{"match_id": matchID, "user_id": m.Team2[1], "winner_team": 1})
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, "finished", body["status"])

	status, body = call(t, app, http.MethodGet, "/users/"+m.Team1[0]+"/profile", nil)
	require.Equal(t, fiber.StatusOK, status)
	stats := body["player"].(map[string]any)["stats"].(map[string]any)
	assert.EqualValues(t, 1, stats["wins"])

	status, body = call(t, app, http.MethodPost, admin("/admin/matches/"+matchID[:8]+"/override"), map[string]any{"winner_team": 2})
	require.Equal(t, fiber.StatusOK, status, body)
	assert.EqualValues(t, 2, body["winner_side"])

	status, body = call(t, app, http.MethodPost, admin("/admin/matches/"+matchID+"/cancel"), nil)
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, "canceled", body["status"])
}

func TestErrorMapping(t *testing.T) {
	app, _ := newTestApp(t)

	status, body := call(t, app, http.MethodGet, "/match/doesnotexist", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "match_not_found", body["error"])

	status, body = call(t, app, http.MethodPost, "/users/upsert", map[string]any{"name": "x"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "invalid_name", body["error"])

	ids := upsertPlayers(t, app, 6)
	status, body = call(t, app, http.MethodPost, admin("/admin/match/create"), map[string]any{"user_ids": ids})
	require.Equal(t, fiber.StatusCreated, status, body)
	matchID := body["id"].(string)

	status, body = call(t, app, http.MethodPost, "/bets/place", map[string]any{"match_id": matchID, "user_id": ids[0], "team": 1})
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Equal(t, "match_not_in_progress", body["error"])

	status, body = call(t, app, http.MethodPost, admin("/admin/matches/"+matchID+"/override"), map[string]any{"winner_team": 1})
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Equal(t, "match_not_finished", body["error"])
}

func TestAdminConfigAndRepair(t *testing.T) {
	app, _ := newTestApp(t)

	status, body := call(t, app, http.MethodGet, admin("/admin/config"), nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["active_maps"], 8)

	status, body = call(t, app, http.MethodPost, admin("/admin/config"), map[string]any{
		"active_maps":  []string{"Meriko Night"},
		"streak_bonus": map[string]float64{"3": 0.5},
	})
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, []any{"Meriko Night"}, body["active_maps"])

	status, body = call(t, app, http.MethodPost, admin("/admin/seed/test-bots"), nil)
	require.Equal(t, fiber.StatusOK, status, body)

	ids := upsertPlayers(t, app, 6)
	status, body = call(t, app, http.MethodPost, admin("/admin/match/create"), map[string]any{"user_ids": ids})
	require.Equal(t, fiber.StatusCreated, status, body)
	assert.Equal(t, "Meriko Night", body["map"])

	status, body = call(t, app, http.MethodPost, admin("/admin/fix_open_matches")+"&winner=2", nil)
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Len(t, body["fixed"], 1)

	status, _ = call(t, app, http.MethodGet, "/leaderboard", nil)
	assert.Equal(t, fiber.StatusOK, status)
}
