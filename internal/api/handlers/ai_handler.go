package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/arcanthyr/backend/internal/assist"
	"github.com/arcanthyr/backend/internal/clarify"
	"github.com/arcanthyr/backend/internal/metrics"
	"github.com/arcanthyr/backend/internal/relay"
	"github.com/arcanthyr/backend/internal/storage/models"
	"github.com/arcanthyr/backend/pkg/logger"
)

// AIHandler serves the console's model-backed operations. Every response
// wraps its payload as {"result": ...}.
type AIHandler struct {
	assistant *assist.Assistant
	relay     *relay.Pipeline
	clarify   *clarify.Agent
}

func NewAIHandler(assistant *assist.Assistant, relayPipeline *relay.Pipeline, clarifyAgent *clarify.Agent) *AIHandler {
	return &AIHandler{
		assistant: assistant,
		relay:     relayPipeline,
		clarify:   clarifyAgent,
	}
}

func (h *AIHandler) HandleDraft(c *fiber.Ctx) error {
	var req struct {
		Text string `json:"text"`
		Tag  string `json:"tag"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON body.")
	}
	if req.Text == "" || req.Tag == "" {
		return badRequest(c, "Missing text or tag")
	}

	draft, err := h.assistant.Draft(c.Context(), req.Text, req.Tag)
	if err != nil {
		return h.aiFailure(c, "draft", err)
	}

	metrics.AICalls.WithLabelValues("draft", "ok").Inc()
	return c.JSON(fiber.Map{"result": draft})
}

func (h *AIHandler) HandleNextActions(c *fiber.Ctx) error {
	var req struct {
		Text    string `json:"text"`
		Tag     string `json:"tag"`
		Next    string `json:"next"`
		Clarify string `json:"clarify"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON body.")
	}
	if req.Text == "" || req.Tag == "" {
		return badRequest(c, "Missing text or tag")
	}

	actions, err := h.assistant.NextActions(c.Context(), req.Text, req.Tag, req.Next, req.Clarify)
	if err != nil {
		return h.aiFailure(c, "next-actions", err)
	}

	metrics.AICalls.WithLabelValues("next-actions", "ok").Inc()
	return c.JSON(fiber.Map{"result": actions})
}

func (h *AIHandler) HandleWeeklyReview(c *fiber.Ctx) error {
	var req struct {
		Entries []models.Entry `json:"entries"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON body.")
	}

	review, err := h.assistant.WeeklyReview(c.Context(), req.Entries)
	if err != nil {
		return h.aiFailure(c, "weekly-review", err)
	}

	metrics.AICalls.WithLabelValues("weekly-review", "ok").Inc()
	return c.JSON(fiber.Map{"result": review})
}

func (h *AIHandler) HandleAxiomRelay(c *fiber.Ctx) error {
	var req struct {
		Entries []models.Entry `json:"entries"`
		Focus   string         `json:"focus"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON body.")
	}
	if len(req.Entries) == 0 {
		return badRequest(c, "No entries to relay.")
	}

	result, err := h.relay.Run(c.Context(), req.Entries, req.Focus)
	if err != nil {
		return h.aiFailure(c, "axiom-relay", err)
	}

	metrics.AICalls.WithLabelValues("axiom-relay", "ok").Inc()
	return c.JSON(fiber.Map{"result": result})
}

func (h *AIHandler) HandleClarifyAgent(c *fiber.Ctx) error {
	var req clarify.Request
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON body.")
	}
	if req.Text == "" || req.Tag == "" {
		return badRequest(c, "Missing text or tag")
	}

	resp, err := h.clarify.Step(c.Context(), req)
	if err != nil {
		return h.aiFailure(c, "clarify-agent", err)
	}

	metrics.AICalls.WithLabelValues("clarify-agent", "ok").Inc()
	return c.JSON(fiber.Map{"result": resp})
}

// HandleClassify tags raw entry text without a model call, so it is not
// counted as an AI operation.
func (h *AIHandler) HandleClassify(c *fiber.Ctx) error {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON body.")
	}
	if req.Text == "" {
		return badRequest(c, "Missing text")
	}

	return c.JSON(fiber.Map{"result": assist.ClassifyEntry(req.Text)})
}

func (h *AIHandler) aiFailure(c *fiber.Ctx, action string, err error) error {
	logger.Error("AI operation failed", zap.String("action", action), zap.Error(err))
	metrics.AICalls.WithLabelValues(action, "error").Inc()
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}
