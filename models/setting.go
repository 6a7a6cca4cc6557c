package models

import "time"

// Setting is a key/value row holding JSON documents.
type Setting struct {
	Name      string    `gorm:"primaryKey;type:varchar(64)" json:"name"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

const GameConfigSetting = "config"

// GameConfig is the tunable game configuration: catalogs, active pools and
// scoring parameters.
type GameConfig struct {
	Points           Points          `json:"points" yaml:"points"`
	StreakBonus      map[int]float64 `json:"streak_bonus" yaml:"streak_bonus"`
	Maps             []string        `json:"maps" yaml:"maps"`
	Characters       []string        `json:"characters" yaml:"characters"`
	ActiveMaps       []string        `json:"active_maps" yaml:"active_maps"`
	ActiveCharacters []string        `json:"active_characters" yaml:"active_characters"`
}

type Points struct {
	Win  float64 `json:"win" yaml:"win"`
	Loss float64 `json:"loss" yaml:"loss"`
}

var defaultCharacters = []string{
	"Ashka", "Bakko", "Blossom", "Croak", "Destiny", "Ezmo", "Freya", "Iva", "Jade",
	"Jamila", "Jumong", "Lucie", "Oldur", "Pestilus", "Poloma", "Raigon", "Rook",
	"Ruh Kaan", "Shifu", "Sirius", "Taya", "Thorn", "Ulric", "Varesh", "Zander",
}

var defaultMaps = []string{
	"Mount Araz Day", "Mount Araz Night", "Orman Night", "Blackstone Day",
	"Blackstone Night", "Dragon Garden Day", "Dragon Garden Night", "Meriko Night",
}

// DefaultGameConfig returns the built-in catalogs with every entry active.
func DefaultGameConfig() GameConfig {
	return GameConfig{
		Points:           Points{Win: 1, Loss: 0},
		StreakBonus:      map[int]float64{3: 0.25, 6: 0.5, 9: 1.0},
		Maps:             append([]string(nil), defaultMaps...),
		Characters:       append([]string(nil), defaultCharacters...),
		ActiveMaps:       append([]string(nil), defaultMaps...),
		ActiveCharacters: append([]string(nil), defaultCharacters...),
	}
}

// Clone deep-copies the config so cached values are never shared.
func (c GameConfig) Clone() GameConfig {
	out := c
	out.Maps = append([]string(nil), c.Maps...)
	out.Characters = append([]string(nil), c.Characters...)
	out.ActiveMaps = append([]string(nil), c.ActiveMaps...)
	out.ActiveCharacters = append([]string(nil), c.ActiveCharacters...)
	out.StreakBonus = make(map[int]float64, len(c.StreakBonus))
	for k, v := range c.StreakBonus {
		out.StreakBonus[k] = v
	}
	return out
}

// GameConfig satisfies the engine's config provider directly, which keeps
// tests free of a settings table.

func (c GameConfig) ActiveMapPool() []string {
	if len(c.ActiveMaps) == 0 {
		return append([]string(nil), c.Maps...)
	}
	return append([]string(nil), c.ActiveMaps...)
}

func (c GameConfig) ActiveCharacterPool() []string {
	if len(c.ActiveCharacters) == 0 {
		return append([]string(nil), c.Characters...)
	}
	return append([]string(nil), c.ActiveCharacters...)
}

func (c GameConfig) PointsWin() float64  { return c.Points.Win }
func (c GameConfig) PointsLoss() float64 { return c.Points.Loss }

func (c GameConfig) StreakBonusTable() map[int]float64 {
	out := make(map[int]float64, len(c.StreakBonus))
	for k, v := range c.StreakBonus {
		out[k] = v
	}
	return out
}
