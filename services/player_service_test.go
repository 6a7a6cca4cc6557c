package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterValidatesName(t *testing.T) {
	env := newTestEnv(t)
	for _, name := range []string{"", " a ", strings.Repeat("x", 33), "!!"} {
		_, _, err := env.Players.Register(env.ctx, name)
		requireKind(t, err, KindValidation, "invalid_name")
	}

	p, created, err := env.Players.Register(env.ctx, strings.Repeat("x", 32))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Len(t, p.Name, 32)
}

func TestRegisterIsUpsertByHandle(t *testing.T) {
	env := newTestEnv(t)
	first, created, err := env.Players.Register(env.ctx, "Ruh Kaan Main")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "ruh-kaan-main", first.Handle)

	again, created, err := env.Players.Register(env.ctx, "  ruh kaan main ")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "Ruh Kaan Main", again.Name)
}

func TestLeaderboardOrder(t *testing.T) {
	env := newTestEnv(t)
	m := env.settleByReports(t, env.startedMatch(t), 1)

	board, err := env.Players.Leaderboard(env.ctx, 10)
	require.NoError(t, err)
	require.Len(t, board, 6)
	for i := 0; i < 3; i++ {
		assert.Contains(t, m.Team1, board[i].ID)
	}
	for i := 1; i < len(board); i++ {
		assert.GreaterOrEqual(t, board[i-1].Stats.Score, board[i].Stats.Score)
	}
}

func TestProfile(t *testing.T) {
	env := newTestEnv(t)
	m := env.settleByReports(t, env.startedMatch(t), 2)
	id := m.Team2[1]

	profile, err := env.Players.Profile(env.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, profile.Player.ID)
	assert.Equal(t, 1, profile.Player.Stats.Wins)
	require.Len(t, profile.Characters, 1)
	assert.Equal(t, m.Picks[id], profile.Characters[0].CharacterID)

	_, err = env.Players.Profile(env.ctx, "ghost")
	requireKind(t, err, KindNotFound, "user_not_found")
}

func TestSeedBotsIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	bots, err := env.Players.SeedBots(env.ctx)
	require.NoError(t, err)
	require.Len(t, bots, 5)
	assert.True(t, bots[0].IsBot)
	assert.Equal(t, "BOT1", bots[0].Name)

	again, err := env.Players.SeedBots(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, bots[4].ID, again[4].ID)

	all, err := env.Players.List(env.ctx)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}
