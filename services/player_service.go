package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"inhouse-league/models"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/rotisserie/eris"
	"gorm.io/gorm"
)

const (
	minNameLength = 2
	maxNameLength = 32
)

// PlayerService registers players and serves their stats.
type PlayerService struct {
	e *Engine
}

// Register returns the player with this name, creating it on first use.
// Names that slug to the same handle are the same player.
func (s *PlayerService) Register(ctx context.Context, name string) (*models.Player, bool, error) {
	return s.register(ctx, name, false)
}

func (s *PlayerService) register(ctx context.Context, name string, bot bool) (*models.Player, bool, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n < minNameLength || n > maxNameLength {
		return nil, false, invalid("invalid_name", "name must be %d to %d characters", minNameLength, maxNameLength)
	}
	handle := slug.Make(name)
	if handle == "" {
		return nil, false, invalid("invalid_name", "name must contain letters or digits")
	}

	var player models.Player
	created := false
	err := s.e.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.First(&player, "handle = ?", handle).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return eris.Wrap(err, "look up player")
		}
		player = models.Player{ID: uuid.NewString(), Name: name, Handle: handle, IsBot: bot}
		if err := tx.Create(&player).Error; err != nil {
			return eris.Wrap(err, "create player")
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if created {
		s.e.log.WithField("player_id", player.ID).Infof("👤 registered %s", player.Name)
	}
	return &player, created, nil
}

func (s *PlayerService) Get(ctx context.Context, id string) (*models.Player, error) {
	var p models.Player
	if err := s.e.DB.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("user_not_found", "player %s not found", id)
		}
		return nil, eris.Wrap(err, "load player")
	}
	return &p, nil
}

func (s *PlayerService) List(ctx context.Context) ([]models.Player, error) {
	var players []models.Player
	if err := s.e.DB.WithContext(ctx).Order("name ASC").Find(&players).Error; err != nil {
		return nil, eris.Wrap(err, "list players")
	}
	return players, nil
}

// Leaderboard orders players by score, then wins.
func (s *PlayerService) Leaderboard(ctx context.Context, limit int) ([]models.Player, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var players []models.Player
	err := s.e.DB.WithContext(ctx).
		Order("score DESC").Order("wins DESC").Order("name ASC").
		Limit(limit).
		Find(&players).Error
	if err != nil {
		return nil, eris.Wrap(err, "load leaderboard")
	}
	return players, nil
}

type Profile struct {
	Player     models.Player          `json:"player"`
	Characters []models.CharacterStat `json:"characters"`
}

func (s *PlayerService) Profile(ctx context.Context, id string) (*Profile, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	out := &Profile{Player: *p}
	err = s.e.DB.WithContext(ctx).
		Where("player_id = ? AND played > 0", id).
		Order("played DESC").Order("wins DESC").
		Find(&out.Characters).Error
	if err != nil {
		return nil, eris.Wrap(err, "load character stats")
	}
	return out, nil
}

const testBotCount = 5

// SeedBots makes sure BOT1..BOT5 exist so a queue can be filled by hand.
func (s *PlayerService) SeedBots(ctx context.Context) ([]models.Player, error) {
	bots := make([]models.Player, 0, testBotCount)
	for i := 1; i <= testBotCount; i++ {
		p, _, err := s.register(ctx, fmt.Sprintf("BOT%d", i), true)
		if err != nil {
			return nil, err
		}
		bots = append(bots, *p)
	}
	return bots, nil
}
