package handlers

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/arcanthyr/backend/pkg/logger"
)

const emailTemplate = `
    <div style="font-family: 'DM Mono', monospace; max-width: 600px; margin: 0 auto; padding: 20px;">
      <div style="border-bottom: 1px solid #3a3b3f; padding-bottom: 12px; margin-bottom: 20px;">
        <h2 style="color: #a8b4c0; font-family: 'Cormorant Garamond', serif; letter-spacing: 0.12em;">ARCANTHYR</h2>
      </div>
      <div style="white-space: pre-wrap; line-height: 1.7; color: #f0f1f2;">
        %s
      </div>
      <div style="border-top: 1px solid #3a3b3f; margin-top: 20px; padding-top: 12px; font-size: 12px; color: #888c94;">
        Sent from Arcanthyr Console
      </div>
    </div>
  `

// EmailHandler wraps arbitrary console content into the branded
// template and hands it to the notification channel.
type EmailHandler struct {
	notifier Notifier
}

// Notifier sends one HTML email and returns the provider message id.
type Notifier interface {
	Send(ctx context.Context, to, subject, htmlBody string) (string, error)
}

func NewEmailHandler(notifier Notifier) *EmailHandler {
	return &EmailHandler{notifier: notifier}
}

func (h *EmailHandler) HandleSend(c *fiber.Ctx) error {
	var req struct {
		To      string `json:"to"`
		Subject string `json:"subject"`
		Content string `json:"content"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON body.")
	}
	if req.To == "" || req.Subject == "" || req.Content == "" {
		return badRequest(c, "Missing required fields: to, subject, content")
	}

	html := fmt.Sprintf(emailTemplate, req.Content)

	messageID, err := h.notifier.Send(c.Context(), req.To, req.Subject, html)
	if err != nil {
		logger.Error("Failed to send email", zap.String("to", req.To), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to send email",
		})
	}

	return c.JSON(fiber.Map{"result": fiber.Map{
		"success":    true,
		"message_id": messageID,
	}})
}
