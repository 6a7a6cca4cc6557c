package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"inhouse-league/notify"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const keepAliveInterval = 15 * time.Second

// SetupSystemRoutes wires health, metrics and the SSE event stream.
func SetupSystemRoutes(app fiber.Router, hub *notify.Hub, gatherer prometheus.Gatherer, log *logrus.Entry) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	app.Get("/events", func(c *fiber.Ctx) error {
		c.Set("Content-Type", "text/event-stream")
		c.Set("Cache-Control", "no-cache")
		c.Set("Connection", "keep-alive")
		c.Set("X-Accel-Buffering", "no") // nginx

		events, unsubscribe := hub.Subscribe()
		c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
			defer unsubscribe()
			ticker := time.NewTicker(keepAliveInterval)
			defer ticker.Stop()

			w.WriteString(":\n\n")
			if err := w.Flush(); err != nil {
				return
			}

			for {
				select {
				case ev, ok := <-events:
					if !ok {
						return
					}
					payload, err := json.Marshal(ev)
					if err != nil {
						log.WithError(err).Warn("encode sse event")
						continue
					}
					fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, payload)
				case <-ticker.C:
					w.WriteString(": ping\n\n")
				}
				// a failed flush means the client went away
				if err := w.Flush(); err != nil {
					return
				}
			}
		})
		return nil
	})
}
