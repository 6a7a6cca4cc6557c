package database

import (
	"fmt"
	"sync"
	"testing"

	"inhouse-league/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type captureWriter struct {
	mu    sync.Mutex
	lines []string
}

func (w *captureWriter) Printf(format string, args ...any) {
	w.mu.Lock()
	w.lines = append(w.lines, fmt.Sprintf(format, args...))
	w.mu.Unlock()
}

func TestMissingRowsAreNotLogged(t *testing.T) {
	w := &captureWriter{}
	db, err := open("sqlite://file:"+uuid.NewString()+"?mode=memory&cache=shared", w)
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	var p models.Player
	err = db.First(&p, "id = ?", "nobody").Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.Empty(t, w.lines)

	err = db.Exec("SELECT * FROM no_such_table").Error
	require.Error(t, err)
	assert.NotEmpty(t, w.lines)
}

func TestOpenPicksDriverByDSN(t *testing.T) {
	assert.True(t, isPostgres("postgres://u:p@localhost/db"))
	assert.True(t, isPostgres("host=localhost user=u dbname=db"))
	assert.False(t, isPostgres("sqlite://inhouse.db"))
	assert.False(t, isPostgres("inhouse.db"))
}
