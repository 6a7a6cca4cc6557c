package services

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"inhouse-league/metrics"
	"inhouse-league/models"
	"inhouse-league/notify"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DefaultBetWindow is how long bets stay open after a match starts.
const DefaultBetWindow = 10 * time.Minute

// ConfigProvider supplies the live game configuration.
type ConfigProvider interface {
	ActiveMapPool() []string
	ActiveCharacterPool() []string
	PointsWin() float64
	PointsLoss() float64
	StreakBonusTable() map[int]float64
}

// Engine owns the shared state of the match lifecycle: the database, the
// per-match locks and the queue formation lock. The services hanging off it
// are thin views sharing that state.
type Engine struct {
	DB       *gorm.DB
	Settings *SettingsService
	Queue    *QueueService
	Matches  *MatchService
	Draft    *DraftService
	Results  *ResultService
	Bets     *BetService
	Players  *PlayerService

	config    ConfigProvider
	bus       notify.Bus
	metrics   metrics.Recorder
	log       *logrus.Entry
	now       func() time.Time
	betWindow time.Duration

	rngMu sync.Mutex
	rng   *rand.Rand

	matchLocks *keyedMutex
	// formationMu serializes every write that can put a player into the
	// queue or into a new match.
	formationMu sync.Mutex
}

type Option func(*Engine)

func WithBus(bus notify.Bus) Option { return func(e *Engine) { e.bus = bus } }

func WithMetrics(m metrics.Recorder) Option { return func(e *Engine) { e.metrics = m } }

func WithLogger(log *logrus.Entry) Option { return func(e *Engine) { e.log = log } }

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

func WithBetWindow(d time.Duration) Option { return func(e *Engine) { e.betWindow = d } }

// WithConfigProvider replaces the settings-backed configuration.
func WithConfigProvider(cp ConfigProvider) Option { return func(e *Engine) { e.config = cp } }

// WithRandSeed makes shuffles, map choice and auto-fill reproducible.
func WithRandSeed(seed uint64) Option {
	return func(e *Engine) { e.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

func NewEngine(db *gorm.DB, settings *SettingsService, opts ...Option) *Engine {
	e := &Engine{
		DB:         db,
		Settings:   settings,
		config:     settings,
		bus:        notify.Nop{},
		metrics:    metrics.Noop{},
		log:        logrus.NewEntry(logrus.StandardLogger()),
		now:        time.Now,
		betWindow:  DefaultBetWindow,
		rng:        rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed)),
		matchLocks: newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(e)
	}
	settings.bus = e.bus
	e.Queue = &QueueService{e: e}
	e.Matches = &MatchService{e: e}
	e.Draft = &DraftService{e: e}
	e.Results = &ResultService{e: e}
	e.Bets = &BetService{e: e}
	e.Players = &PlayerService{e: e}
	return e
}

// Config returns the provider the engine reads pools and scoring from.
func (e *Engine) Config() ConfigProvider { return e.config }

func (e *Engine) publish(eventType, matchID string) {
	e.bus.Publish(eventType, matchID)
}

func (e *Engine) clock() time.Time {
	return e.now().UTC()
}

func (e *Engine) shuffle(ids []string) []string {
	out := append([]string(nil), ids...)
	e.rngMu.Lock()
	e.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	e.rngMu.Unlock()
	return out
}

func (e *Engine) choose(pool []string) string {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return pool[e.rng.IntN(len(pool))]
}

// withMatch runs fn in a transaction while holding the match's lock.
func (e *Engine) withMatch(ctx context.Context, matchID string, fn func(tx *gorm.DB, m *models.Match) error) error {
	unlock := e.matchLocks.Lock(matchID)
	defer unlock()
	return e.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := loadMatch(tx, matchID)
		if err != nil {
			return err
		}
		return fn(tx, m)
	})
}

func loadMatch(tx *gorm.DB, matchID string) (*models.Match, error) {
	var m models.Match
	if err := tx.First(&m, "id = ?", matchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("match_not_found", "match %s not found", matchID)
		}
		return nil, eris.Wrapf(err, "load match %s", matchID)
	}
	return &m, nil
}

const minMatchKeyPrefix = 6

// resolveMatchKey accepts a full match id or a unique id prefix.
func (e *Engine) resolveMatchKey(ctx context.Context, key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", invalid("missing_match_key", "match key is required")
	}
	var ids []string
	db := e.DB.WithContext(ctx).Model(&models.Match{})
	if err := db.Where("id = ?", key).Pluck("id", &ids).Error; err != nil {
		return "", eris.Wrap(err, "resolve match key")
	}
	if len(ids) == 1 {
		return ids[0], nil
	}
	// ids are uuids; anything else would reach LIKE as a wildcard
	if len(key) < minMatchKeyPrefix || strings.IndexFunc(key, notUUIDRune) >= 0 {
		return "", notFound("match_not_found", "match %s not found", key)
	}
	var prefixed []string
	if err := e.DB.WithContext(ctx).Model(&models.Match{}).
		Where("id LIKE ?", strings.ToLower(key)+"%").Limit(2).Pluck("id", &prefixed).Error; err != nil {
		return "", eris.Wrap(err, "resolve match key")
	}
	switch len(prefixed) {
	case 0:
		return "", notFound("match_not_found", "match %s not found", key)
	case 1:
		return prefixed[0], nil
	default:
		return "", conflict("ambiguous_match_key", "match key %s matches several matches", key)
	}
}

func notUUIDRune(r rune) bool {
	switch {
	case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F', r == '-':
		return false
	}
	return true
}

// activeMembers returns which of ids sit in a draft or in_progress match.
func activeMembers(tx *gorm.DB, ids []string) ([]string, error) {
	var busy []string
	err := tx.Model(&models.MatchSeat{}).
		Joins("JOIN matches ON matches.id = match_seats.match_id").
		Where("match_seats.player_id IN ? AND matches.status IN ? AND matches.deleted_at IS NULL", ids, models.ActiveStatuses()).
		Pluck("match_seats.player_id", &busy).Error
	if err != nil {
		return nil, eris.Wrap(err, "look up active matches")
	}
	return busy, nil
}

func validSideOrErr(side int) error {
	if !models.ValidSide(side) {
		return invalid("invalid_team", "team must be 1 or 2, got %d", side)
	}
	return nil
}
