// Package config loads process settings from the environment and the
// optional game config seed file.
package config

import (
	"os"
	"strings"
	"time"

	"inhouse-league/models"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port           string `env:"PORT" envDefault:"8330"`
	DatabaseURL    string `env:"DATABASE_URL" envDefault:"sqlite://inhouse.db"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS" envDefault:"*"`
	AdminToken     string `env:"ADMIN_TOKEN"`

	BetWindow          time.Duration `env:"BET_WINDOW" envDefault:"10m"`
	DraftStallTimeout  time.Duration `env:"DRAFT_STALL_TIMEOUT" envDefault:"0s"`
	DraftSweepInterval time.Duration `env:"DRAFT_SWEEP_INTERVAL" envDefault:"1m"`
	GameConfigFile     string        `env:"GAME_CONFIG_FILE"`

	RedisURL     string `env:"REDIS_URL"`
	RedisChannel string `env:"REDIS_CHANNEL" envDefault:"inhouse:events"`

	ArchiveBucket          string        `env:"ARCHIVE_BUCKET"`
	ArchiveEndpoint        string        `env:"ARCHIVE_ENDPOINT"`
	ArchiveRegion          string        `env:"ARCHIVE_REGION" envDefault:"auto"`
	ArchiveAccessKeyID     string        `env:"ARCHIVE_ACCESS_KEY_ID"`
	ArchiveSecretAccessKey string        `env:"ARCHIVE_SECRET_ACCESS_KEY"`
	ArchivePrefix          string        `env:"ARCHIVE_PREFIX" envDefault:"inhouse"`
	ArchiveInterval        time.Duration `env:"ARCHIVE_INTERVAL" envDefault:"30s"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// Load reads .env when present, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, eris.Wrap(err, "read .env")
	}
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, eris.Wrap(err, "parse environment")
	}
	return cfg, nil
}

// Origins splits ALLOWED_ORIGINS and trims each entry.
func (c *Config) Origins() string {
	parts := strings.Split(c.AllowedOrigins, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ",")
}

func (c *Config) ArchiveEnabled() bool {
	return c.ArchiveBucket != ""
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func (c *Config) NewLogger() *logrus.Logger {
	log := logrus.New()
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	if strings.EqualFold(c.LogFormat, "json") {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}

// gameConfigFile mirrors models.GameConfig with optional fields, so keys
// absent from the file keep their defaults.
type gameConfigFile struct {
	Points           *models.Points  `yaml:"points"`
	StreakBonus      map[int]float64 `yaml:"streak_bonus"`
	Maps             []string        `yaml:"maps"`
	Characters       []string        `yaml:"characters"`
	ActiveMaps       []string        `yaml:"active_maps"`
	ActiveCharacters []string        `yaml:"active_characters"`
}

// LoadGameConfig returns the built-in game config, overlaid with the YAML
// file at path when path is set.
func LoadGameConfig(path string) (models.GameConfig, error) {
	cfg := models.DefaultGameConfig()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, eris.Wrapf(err, "read game config %s", path)
	}
	var file gameConfigFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return cfg, eris.Wrapf(err, "parse game config %s", path)
	}

	if file.Points != nil {
		cfg.Points = *file.Points
	}
	if file.StreakBonus != nil {
		cfg.StreakBonus = file.StreakBonus
	}
	// a new catalog resets its active pool unless the file names one
	if file.Maps != nil {
		cfg.Maps, cfg.ActiveMaps = file.Maps, file.Maps
	}
	if file.Characters != nil {
		cfg.Characters, cfg.ActiveCharacters = file.Characters, file.Characters
	}
	if file.ActiveMaps != nil {
		cfg.ActiveMaps = file.ActiveMaps
	}
	if file.ActiveCharacters != nil {
		cfg.ActiveCharacters = file.ActiveCharacters
	}
	return cfg.Clone(), nil
}
