// Package api serves the chat endpoint, health check and metrics over HTTP.
package api

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/mfenderov/kb-assistant/internal/metrics"
)

// NewApp wires the routes. m may be nil, in which case /metrics is not
// mounted.
func NewApp(answerer Answerer, m *metrics.Metrics) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler:          ErrorHandler,
		DisableStartupMessage: true,
	})
	app.Use(recover.New())

	var (
		check = app.Group("/check")
		apiv1 = app.Group("/api", countRequests(m))
	)

	check.Get("/healthy", NewCheckHandler().HandleHealthy)
	apiv1.Post("/chat", NewChatHandler(answerer).HandleChat)

	if m != nil {
		app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))
	}

	return app
}

// countRequests records the final status of every request in the group. The
// error is rendered here so the recorded status matches the response.
func countRequests(m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := c.Next(); err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				return herr
			}
		}
		m.ChatRequest(strconv.Itoa(c.Response().StatusCode()))
		return nil
	}
}
