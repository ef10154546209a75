package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/arcanthyr/backend/pkg/logger"
)

var ErrMissingAPIKey = errors.New("notify: Resend API key not configured")

const defaultEndpoint = "https://api.resend.com/emails"

// Client sends transactional email through the Resend API. Delivery is
// best-effort from the caller's perspective; this client just reports the
// outcome of one send.
type Client struct {
	apiKey     string
	from       string
	endpoint   string
	httpClient *http.Client
}

func NewClient(apiKey, from string) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	return &Client{
		apiKey:   apiKey,
		from:     from,
		endpoint: defaultEndpoint,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}, nil
}

// SetEndpoint points the client at an alternate API endpoint. Used by tests.
func (c *Client) SetEndpoint(endpoint string) {
	c.endpoint = endpoint
}

// Send delivers one HTML email and returns the provider message id.
func (c *Client) Send(ctx context.Context, to, subject, htmlBody string) (string, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"from":    c.from,
		"to":      []string{to},
		"subject": subject,
		"html":    htmlBody,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send email: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("resend API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	logger.Info("Email sent",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("message_id", result.ID),
	)

	return result.ID, nil
}
