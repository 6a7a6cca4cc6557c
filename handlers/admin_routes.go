package handlers

import (
	"inhouse-league/middleware"
	"inhouse-league/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type winnerRequest struct {
	WinnerTeam int `json:"winner_team"`
}

// SetupAdminRoutes wires the operator routes behind the admin token.
func SetupAdminRoutes(app fiber.Router, engine *services.Engine, adminToken string, log *logrus.Entry) {
	admin := app.Group("/admin", middleware.AdminAuthMiddleware(adminToken, log))

	admin.Post("/match/create", func(c *fiber.Ctx) error {
		var req struct {
			UserIDs []string `json:"user_ids"`
		}
		if err := parseBody(c, &req); err != nil {
			return badBody(c)
		}
		m, err := engine.Matches.Create(c.UserContext(), req.UserIDs)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.Status(fiber.StatusCreated).JSON(m)
	})

	admin.Post("/draft/auto_current", func(c *fiber.Ctx) error {
		state, err := engine.Draft.AutoFill(c.UserContext(), c.Query("match_id"))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(state)
	})

	admin.Post("/matches/:key/finalize", func(c *fiber.Ctx) error {
		var req winnerRequest
		if err := parseBody(c, &req); err != nil {
			return badBody(c)
		}
		m, applied, err := engine.Matches.Finalize(c.UserContext(), c.Params("key"), req.WinnerTeam)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(fiber.Map{"applied": applied, "match": m})
	})

	admin.Post("/matches/:key/override", func(c *fiber.Ctx) error {
		var req winnerRequest
		if err := parseBody(c, &req); err != nil {
			return badBody(c)
		}
		m, err := engine.Matches.Override(c.UserContext(), c.Params("key"), req.WinnerTeam)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(m)
	})

	admin.Post("/matches/:key/cancel", func(c *fiber.Ctx) error {
		m, err := engine.Matches.Cancel(c.UserContext(), c.Params("key"))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(m)
	})

	admin.Post("/matches/:key/repair", func(c *fiber.Ctx) error {
		m, err := engine.Matches.RepairMatch(c.UserContext(), c.Params("key"), c.QueryInt("winner", 1))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(m)
	})

	admin.Post("/fix_open_matches", func(c *fiber.Ctx) error {
		report, err := engine.Matches.Repair(c.UserContext(), c.QueryInt("winner", 1))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(report)
	})

	admin.Get("/config", func(c *fiber.Ctx) error {
		return c.JSON(engine.Settings.Current())
	})

	admin.Post("/config", func(c *fiber.Ctx) error {
		var req services.ConfigUpdate
		if err := parseBody(c, &req); err != nil {
			return badBody(c)
		}
		cfg, err := engine.Settings.Update(c.UserContext(), req)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(cfg)
	})

	admin.Post("/seed/test-bots", func(c *fiber.Ctx) error {
		bots, err := engine.Players.SeedBots(c.UserContext())
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(bots)
	})
}
