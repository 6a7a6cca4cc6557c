package handlers

import (
	"inhouse-league/middleware"
	"inhouse-league/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type playerRequest struct {
	UserID string `json:"user_id"`
}

// SetupMatchRoutes wires the player-facing queue, draft, bet and report routes.
func SetupMatchRoutes(app fiber.Router, engine *services.Engine, log *logrus.Entry) {
	group := app.Group("/", middleware.PlayerContextMiddleware())

	group.Get("/queue", func(c *fiber.Ctx) error {
		status, err := engine.Queue.Status(c.UserContext(), middleware.PlayerID(c, c.Query("user_id")))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(status)
	})

	group.Post("/queue/enter", func(c *fiber.Ctx) error {
		var req playerRequest
		if err := parseBody(c, &req); err != nil {
			return badBody(c)
		}
		status, err := engine.Queue.Enter(c.UserContext(), middleware.PlayerID(c, req.UserID))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(status)
	})

	group.Post("/queue/leave", func(c *fiber.Ctx) error {
		var req playerRequest
		if err := parseBody(c, &req); err != nil {
			return badBody(c)
		}
		status, err := engine.Queue.Leave(c.UserContext(), middleware.PlayerID(c, req.UserID))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(status)
	})

	group.Get("/matches", func(c *fiber.Ctx) error {
		list, err := engine.Matches.List(c.UserContext(), c.Query("status"), c.QueryInt("limit", 50))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(list)
	})

	group.Get("/match/:id", func(c *fiber.Ctx) error {
		m, err := engine.Matches.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(m)
	})

	group.Post("/draft/pick", func(c *fiber.Ctx) error {
		var req struct {
			MatchID     string `json:"match_id"`
			UserID      string `json:"user_id"`
			CharacterID string `json:"champion_id"`
		}
		if err := parseBody(c, &req); err != nil {
			return badBody(c)
		}
		state, err := engine.Draft.Pick(c.UserContext(), req.MatchID, middleware.PlayerID(c, req.UserID), req.CharacterID)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(state)
	})

	group.Post("/bets/place", func(c *fiber.Ctx) error {
		var req struct {
			MatchID string `json:"match_id"`
			UserID  string `json:"user_id"`
			Team    int    `json:"team"`
		}
		if err := parseBody(c, &req); err != nil {
			return badBody(c)
		}
		bet, err := engine.Bets.Place(c.UserContext(), req.MatchID, middleware.PlayerID(c, req.UserID), req.Team)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.Status(fiber.StatusCreated).JSON(bet)
	})

	group.Get("/bets", func(c *fiber.Ctx) error {
		bets, err := engine.Bets.List(c.UserContext(), c.Query("match_id"))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(bets)
	})

	group.Get("/bets/count", func(c *fiber.Ctx) error {
		count, err := engine.Bets.Count(c.UserContext(), c.Query("match_id"))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(count)
	})

	group.Post("/match/report", func(c *fiber.Ctx) error {
		var req struct {
			MatchID    string `json:"match_id"`
			UserID     string `json:"user_id"`
			WinnerTeam int    `json:"winner_team"`
		}
		if err := parseBody(c, &req); err != nil {
			return badBody(c)
		}
		outcome, err := engine.Results.Report(c.UserContext(), req.MatchID, middleware.PlayerID(c, req.UserID), req.WinnerTeam)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(outcome)
	})
}
