package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"inhouse-league/database"
	"inhouse-league/models"
	"inhouse-league/services"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryArchive struct {
	mu   sync.Mutex
	keys []string
	fail bool
}

func (a *memoryArchive) PutMatch(_ context.Context, m *models.Match) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.fail {
		return "", errors.New("bucket unavailable")
	}
	key := fmt.Sprintf("%s/%d", m.ID, m.SettlementSeq)
	a.keys = append(a.keys, key)
	return key, nil
}

func settledMatch(t *testing.T, engine *services.Engine) *models.Match {
	t.Helper()
	ctx := context.Background()
	ids := make([]string, 0, models.MatchSize)
	for i := 0; i < models.MatchSize; i++ {
		p, _, err := engine.Players.Register(ctx, fmt.Sprintf("Archivist %s", uuid.NewString()[:6]))
		require.NoError(t, err)
		ids = append(ids, p.ID)
	}
	m, err := engine.Matches.Create(ctx, ids)
	require.NoError(t, err)
	for i := 0; i < models.DraftRounds; i++ {
		_, err := engine.Draft.AutoFill(ctx, m.ID)
		require.NoError(t, err)
	}
	m, _, err = engine.Matches.Finalize(ctx, m.ID, 1)
	require.NoError(t, err)
	return m
}

func TestArchiveWorker(t *testing.T) {
	db, err := database.Open("sqlite://file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	engine := services.NewEngine(db, services.NewSettingsService(db, models.DefaultGameConfig()), services.WithRandSeed(1))
	ctx := context.Background()

	store := &memoryArchive{fail: true}
	worker := NewArchiveWorker(db, store, logrus.NewEntry(logrus.New()))

	m := settledMatch(t, engine)

	n, err := worker.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "failed uploads stay pending")

	store.fail = false
	n, err = worker.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{m.ID + "/1"}, store.keys)

	n, err = worker.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	// an override produces a new settlement that is archived again
	_, err = engine.Matches.Override(ctx, m.ID, 2)
	require.NoError(t, err)
	n, err = worker.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{m.ID + "/1", m.ID + "/2"}, store.keys)

	var got models.Match
	require.NoError(t, db.First(&got, "id = ?", m.ID).Error)
	assert.NotNil(t, got.ArchivedAt)
}
