package handlers

import (
	"inhouse-league/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

func SetupPlayerRoutes(app fiber.Router, engine *services.Engine, log *logrus.Entry) {
	players := engine.Players

	app.Get("/users", func(c *fiber.Ctx) error {
		list, err := players.List(c.UserContext())
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(list)
	})

	app.Post("/users/upsert", func(c *fiber.Ctx) error {
		var req struct {
			Name string `json:"name"`
		}
		if err := parseBody(c, &req); err != nil {
			return badBody(c)
		}
		p, created, err := players.Register(c.UserContext(), req.Name)
		if err != nil {
			return respondError(c, log, err)
		}
		status := fiber.StatusOK
		if created {
			status = fiber.StatusCreated
		}
		return c.Status(status).JSON(p)
	})

	app.Get("/users/:id/profile", func(c *fiber.Ctx) error {
		profile, err := players.Profile(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(profile)
	})

	app.Get("/leaderboard", func(c *fiber.Ctx) error {
		board, err := players.Leaderboard(c.UserContext(), c.QueryInt("limit", 100))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(board)
	})
}
