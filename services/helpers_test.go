package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"inhouse-league/database"
	"inhouse-league/models"
	"inhouse-league/notify"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type recordingBus struct {
	mu     sync.Mutex
	events []notify.Event
}

func (b *recordingBus) Publish(eventType, matchID string) {
	b.mu.Lock()
	b.events = append(b.events, notify.Event{Type: eventType, MatchID: matchID})
	b.mu.Unlock()
}

func (b *recordingBus) count(eventType string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, ev := range b.events {
		if ev.Type == eventType {
			n++
		}
	}
	return n
}

type testEnv struct {
	*Engine
	clock *fakeClock
	bus   *recordingBus
	ctx   context.Context
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open("sqlite://file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	db := newTestDB(t)
	clock := newFakeClock()
	bus := &recordingBus{}
	base := []Option{WithRandSeed(7), WithClock(clock.Now), WithBus(bus)}
	engine := NewEngine(db, NewSettingsService(db, models.DefaultGameConfig()), append(base, opts...)...)
	return &testEnv{Engine: engine, clock: clock, bus: bus, ctx: context.Background()}
}

func (env *testEnv) registerPlayers(t *testing.T, n int) []string {
	t.Helper()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		p, _, err := env.Players.Register(env.ctx, fmt.Sprintf("Player %02d %s", i+1, uuid.NewString()[:4]))
		require.NoError(t, err)
		ids = append(ids, p.ID)
	}
	return ids
}

func (env *testEnv) newMatch(t *testing.T) *models.Match {
	t.Helper()
	m, err := env.Matches.Create(env.ctx, env.registerPlayers(t, models.MatchSize))
	require.NoError(t, err)
	return m
}

func (env *testEnv) completeDraft(t *testing.T, matchID string) *models.Match {
	t.Helper()
	for i := 0; i < models.DraftRounds; i++ {
		_, err := env.Draft.AutoFill(env.ctx, matchID)
		require.NoError(t, err)
	}
	return env.match(t, matchID)
}

func (env *testEnv) startedMatch(t *testing.T) *models.Match {
	t.Helper()
	m := env.completeDraft(t, env.newMatch(t).ID)
	require.Equal(t, models.MatchStatusInProgress, m.Status)
	return m
}

// settleByReports reports winner from both sides.
func (env *testEnv) settleByReports(t *testing.T, m *models.Match, winner int) *models.Match {
	t.Helper()
	_, err := env.Results.Report(env.ctx, m.ID, m.Team1[0], winner)
	require.NoError(t, err)
	out, err := env.Results.Report(env.ctx, m.ID, m.Team2[0], winner)
	require.NoError(t, err)
	require.Equal(t, ReportFinished, out.Status)
	return env.match(t, m.ID)
}

func (env *testEnv) match(t *testing.T, id string) *models.Match {
	t.Helper()
	m, err := loadMatch(env.DB, id)
	require.NoError(t, err)
	return m
}

func (env *testEnv) player(t *testing.T, id string) models.Player {
	t.Helper()
	var p models.Player
	require.NoError(t, env.DB.First(&p, "id = ?", id).Error)
	return p
}

func (env *testEnv) setStreak(t *testing.T, id string, streak int) {
	t.Helper()
	require.NoError(t, env.DB.Model(&models.Player{}).Where("id = ?", id).
		Updates(map[string]any{"current_streak": streak, "max_streak": streak}).Error)
}

func (env *testEnv) characterStat(t *testing.T, playerID, characterID string) models.CharacterStat {
	t.Helper()
	var cs models.CharacterStat
	require.NoError(t, env.DB.First(&cs, "player_id = ? AND character_id = ?", playerID, characterID).Error)
	return cs
}

func requireKind(t *testing.T, err error, kind ErrorKind, code string) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, KindOf(err), "unexpected error %v", err)
	if code != "" {
		require.Equal(t, code, CodeOf(err))
	}
}
