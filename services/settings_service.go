package services

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"

	"inhouse-league/models"
	"inhouse-league/notify"

	"github.com/elliotchance/pie/v2"
	"github.com/rotisserie/eris"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingsService keeps the game configuration in the settings table and
// serves it from memory. It is the engine's ConfigProvider.
type SettingsService struct {
	DB *gorm.DB

	mu       sync.RWMutex
	current  models.GameConfig
	defaults models.GameConfig
	bus      notify.Bus
}

func NewSettingsService(db *gorm.DB, defaults models.GameConfig) *SettingsService {
	return &SettingsService{
		DB:       db,
		current:  defaults.Clone(),
		defaults: defaults.Clone(),
		bus:      notify.Nop{},
	}
}

// Load reads the stored configuration, seeding the defaults on first run.
func (s *SettingsService) Load(ctx context.Context) error {
	var row models.Setting
	err := s.DB.WithContext(ctx).First(&row, "name = ?", models.GameConfigSetting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.store(ctx, s.defaults.Clone())
	}
	if err != nil {
		return eris.Wrap(err, "load settings")
	}

	// decode into a zero value: json merges into maps that already exist
	var cfg models.GameConfig
	if err := json.Unmarshal([]byte(row.Value), &cfg); err != nil {
		return eris.Wrap(err, "decode stored config")
	}
	defaults := s.defaults.Clone()
	if cfg.StreakBonus == nil {
		cfg.StreakBonus = defaults.StreakBonus
	}
	if len(cfg.Maps) == 0 {
		cfg.Maps = defaults.Maps
	}
	if len(cfg.Characters) == 0 {
		cfg.Characters = defaults.Characters
	}
	s.mu.Lock()
	s.current = cfg
	s.mu.Unlock()
	return nil
}

// store persists cfg and makes it current. Caller holds s.mu.
func (s *SettingsService) store(ctx context.Context, cfg models.GameConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return eris.Wrap(err, "encode config")
	}
	row := models.Setting{Name: models.GameConfigSetting, Value: string(raw)}
	err = s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return eris.Wrap(err, "save config")
	}
	s.current = cfg
	return nil
}

// Current returns a copy of the live configuration.
func (s *SettingsService) Current() models.GameConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

func (s *SettingsService) ActiveMapPool() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.ActiveMapPool()
}

func (s *SettingsService) ActiveCharacterPool() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.ActiveCharacterPool()
}

func (s *SettingsService) PointsWin() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.PointsWin()
}

func (s *SettingsService) PointsLoss() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.PointsLoss()
}

func (s *SettingsService) StreakBonusTable() map[int]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.StreakBonusTable()
}

// ConfigUpdate is a partial change; nil fields are left as they are.
type ConfigUpdate struct {
	Points           *models.Points  `json:"points"`
	StreakBonus      map[int]float64 `json:"streak_bonus"`
	ActiveMaps       []string        `json:"active_maps"`
	ActiveCharacters []string        `json:"active_characters"`
}

func (s *SettingsService) Update(ctx context.Context, upd ConfigUpdate) (models.GameConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := s.current.Clone()
	if upd.Points != nil {
		if !finite(upd.Points.Win) || !finite(upd.Points.Loss) {
			return cfg, invalid("invalid_points", "points must be finite numbers")
		}
		cfg.Points = *upd.Points
	}
	if upd.StreakBonus != nil {
		for threshold, bonus := range upd.StreakBonus {
			if threshold <= 0 {
				return cfg, invalid("invalid_streak_bonus", "streak threshold %d must be positive", threshold)
			}
			if bonus < 0 || !finite(bonus) {
				return cfg, invalid("invalid_streak_bonus", "bonus for streak %d must be a non-negative number", threshold)
			}
		}
		cfg.StreakBonus = upd.StreakBonus
	}
	if upd.ActiveMaps != nil {
		if err := checkPool("map", upd.ActiveMaps, cfg.Maps); err != nil {
			return cfg, err
		}
		cfg.ActiveMaps = pie.Unique(upd.ActiveMaps)
	}
	if upd.ActiveCharacters != nil {
		if err := checkPool("character", upd.ActiveCharacters, cfg.Characters); err != nil {
			return cfg, err
		}
		cfg.ActiveCharacters = pie.Unique(upd.ActiveCharacters)
	}

	if err := s.store(ctx, cfg); err != nil {
		return cfg, err
	}
	s.bus.Publish(notify.EventConfigUpdate, "")
	return cfg.Clone(), nil
}

func checkPool(kind string, active, catalog []string) error {
	if len(active) == 0 {
		return invalid("empty_pool", "at least one %s must stay active", kind)
	}
	for _, name := range active {
		if !pie.Contains(catalog, name) {
			return invalid("unknown_"+kind, "unknown %s %q", kind, name)
		}
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
