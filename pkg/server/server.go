// Package server exposes the agent over HTTP. The surface is a thin mapping:
// /ask returns the agent's QueryResult verbatim, and any server-side fault
// is converted into a fixed-shape degraded result rather than a raw error.
package server

import (
	"github.com/gofiber/fiber/v3"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/m-mizutani/burrow/pkg/model"
	"github.com/m-mizutani/burrow/pkg/usecase/agent"
	"github.com/m-mizutani/burrow/pkg/utils/logging"
)

type Server struct {
	app   *fiber.App
	agent *agent.UseCase
}

func New(agentUC *agent.UseCase) *Server {
	s := &Server{agent: agentUC}

	s.app = fiber.New(fiber.Config{
		AppName: "burrow",
		// The end caller always receives a complete, schema-valid result
		// with an explanatory answer, never a bare fault.
		ErrorHandler: func(c fiber.Ctx, err error) error {
			logging.Default().Error("request failed", "error", err, "path", c.Path())
			return c.Status(fiber.StatusOK).JSON(degradedResult(
				"I'm sorry, something went wrong while processing your question."))
		},
	})

	s.app.Use(recover.New())
	s.app.Use(fiberlogger.New())

	s.app.Get("/health", s.health)
	s.app.Post("/ask", s.ask)
	s.app.Post("/feedback", s.feedback)

	return s
}

// App returns the underlying fiber app, used by tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen blocks serving HTTP on addr.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

func (s *Server) health(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) ask(c fiber.Ctx) error {
	var body struct {
		Question string `json:"question"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(degradedResult(
			"I couldn't read that question. Please send a JSON body with a 'question' field."))
	}
	if body.Question == "" {
		return c.Status(fiber.StatusBadRequest).JSON(degradedResult(
			"The question was empty. Please ask something."))
	}

	return c.JSON(s.agent.Answer(c.Context(), body.Question))
}

// feedback acknowledges recommendation feedback. It is accepted and
// discarded: feedback persistence is deliberately out of scope.
func (s *Server) feedback(c fiber.Ctx) error {
	var body struct {
		ActionID string `json:"action_id"`
		Accepted bool   `json:"accepted"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "invalid request"})
	}

	logging.Default().Info("recommendation feedback received (discarded)",
		"action_id", body.ActionID, "accepted", body.Accepted)

	return c.JSON(fiber.Map{"status": "ok"})
}

func degradedResult(answer string) *model.QueryResult {
	return &model.QueryResult{
		Answer:                  answer,
		Evidence:                []model.Evidence{},
		ProactiveRecommendation: nil,
		ReasoningTrace:          []string{"Router: Request failed before reaching the pipeline."},
	}
}
