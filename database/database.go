// Package database opens the gorm connection for postgres or sqlite DSNs.
package database

import (
	"strings"
	"time"

	"inhouse-league/models"

	"github.com/glebarez/sqlite"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const sqlitePrefix = "sqlite://"

// Open connects to dsn. postgres:// and postgresql:// URLs (or key=value
// DSNs with host=) use postgres; sqlite://<path> uses the pure Go sqlite
// driver, as does a bare file path.
func Open(dsn string) (*gorm.DB, error) {
	return open(dsn, logrus.StandardLogger())
}

// newLogger reports slow queries and errors. Missing rows are an expected
// lookup result here, not something to log.
func newLogger(w logger.Writer) logger.Interface {
	return logger.New(w, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

func open(dsn string, w logger.Writer) (*gorm.DB, error) {
	conf := &gorm.Config{
		Logger:  newLogger(w),
		NowFunc: func() time.Time { return time.Now().UTC() },
	}

	if isPostgres(dsn) {
		db, err := gorm.Open(postgres.Open(dsn), conf)
		if err != nil {
			return nil, eris.Wrap(err, "connect to postgres")
		}
		return db, nil
	}

	db, err := gorm.Open(sqlite.Open(strings.TrimPrefix(dsn, sqlitePrefix)), conf)
	if err != nil {
		return nil, eris.Wrap(err, "open sqlite")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite handle")
	}
	// sqlite allows one writer; a single connection turns lock errors into waits.
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") ||
		strings.HasPrefix(dsn, "postgresql://") ||
		strings.Contains(dsn, "host=")
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Player{},
		&models.CharacterStat{},
		&models.QueueTicket{},
		&models.Match{},
		&models.MatchSeat{},
		&models.Bet{},
		&models.Setting{},
	); err != nil {
		return eris.Wrap(err, "migrate database")
	}
	return nil
}
