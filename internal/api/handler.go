package api

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Question string `json:"question" validate:"required"`
}

// ChatResponse is the body of a successful chat reply.
type ChatResponse struct {
	Answer string `json:"answer"`
}

// Answerer produces an answer for a question. It never fails; errors are
// part of the answer text.
type Answerer interface {
	Handle(ctx context.Context, question string) string
}

type ChatHandler struct {
	answerer Answerer
	validate *validator.Validate
}

func NewChatHandler(answerer Answerer) *ChatHandler {
	return &ChatHandler{answerer: answerer, validate: validator.New()}
}

func (h *ChatHandler) HandleChat(c *fiber.Ctx) error {
	var req ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return ErrInvalidJSON()
	}

	req.Question = strings.TrimSpace(req.Question)
	if err := h.validate.Struct(&req); err != nil {
		return ErrEmptyQuestion()
	}

	answer := h.answerer.Handle(c.UserContext(), req.Question)
	return c.JSON(ChatResponse{Answer: answer})
}

type CheckHandler struct{}

func NewCheckHandler() *CheckHandler {
	return &CheckHandler{}
}

func (h CheckHandler) HandleHealthy(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
