// Package whatsapp sends dialogue intents through the WhatsApp Cloud API.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gbv_reporter/dialog"
)

// Limits imposed by the Cloud API on interactive messages.
const (
	maxButtonTitle  = 20
	maxRowTitle     = 24
	maxSectionTitle = 24
	maxMenuButton   = 20
	maxButtons      = 3
	maxRows         = 10
)

const defaultBaseURL = "https://graph.facebook.com/v19.0"

// Client posts messages for one business phone number.
type Client struct {
	Token         string
	PhoneNumberID string
	BaseURL       string
	HTTP          *http.Client
}

// APIError is an error response from the Graph API.
type APIError struct {
	StatusCode int
	Code       int    `json:"code"`
	Type       string `json:"type"`
	Message    string `json:"message"`
}

// Error includes the HTTP status and the API message.
func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("whatsapp api: http %d", e.StatusCode)
	}
	return fmt.Sprintf("whatsapp api: http %d: %s (code %d)", e.StatusCode, e.Message, e.Code)
}

var _ dialog.Sender = (*Client)(nil)

// SendText sends a plain text message.
func (c *Client) SendText(ctx context.Context, to, body string) error {
	return c.post(ctx, map[string]any{
		"to":   to,
		"type": "text",
		"text": map[string]any{"body": body},
	})
}

// SendChoices sends reply buttons. Options beyond the third are dropped.
func (c *Client) SendChoices(ctx context.Context, to, body string, options []dialog.Option) error {
	if len(options) > maxButtons {
		options = options[:maxButtons]
	}
	buttons := make([]map[string]any, 0, len(options))
	for _, o := range options {
		buttons = append(buttons, map[string]any{
			"type":  "reply",
			"reply": map[string]any{"id": o.ID, "title": truncate(o.Title, maxButtonTitle)},
		})
	}
	return c.post(ctx, map[string]any{
		"to":   to,
		"type": "interactive",
		"interactive": map[string]any{
			"type":   "button",
			"body":   map[string]any{"text": body},
			"action": map[string]any{"buttons": buttons},
		},
	})
}

// SendMenu sends a list message.
func (c *Client) SendMenu(ctx context.Context, to, body, button string, sections []dialog.Section) error {
	out := make([]map[string]any, 0, len(sections))
	for _, s := range sections {
		rows := s.Rows
		if len(rows) > maxRows {
			rows = rows[:maxRows]
		}
		encoded := make([]map[string]any, 0, len(rows))
		for _, r := range rows {
			encoded = append(encoded, map[string]any{"id": r.ID, "title": truncate(r.Title, maxRowTitle)})
		}
		out = append(out, map[string]any{"title": truncate(s.Title, maxSectionTitle), "rows": encoded})
	}
	return c.post(ctx, map[string]any{
		"to":   to,
		"type": "interactive",
		"interactive": map[string]any{
			"type": "list",
			"body": map[string]any{"text": body},
			"action": map[string]any{
				"button":   truncate(button, maxMenuButton),
				"sections": out,
			},
		},
	})
}

func (c *Client) post(ctx context.Context, payload map[string]any) error {
	if c.Token == "" {
		return fmt.Errorf("missing whatsapp access token")
	}
	if c.PhoneNumberID == "" {
		return fmt.Errorf("missing whatsapp phone number id")
	}
	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	baseURL := strings.TrimRight(c.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	payload["messaging_product"] = "whatsapp"
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := baseURL + "/" + c.PhoneNumberID + "/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Content-Type", "application/json")

	res, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp api: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 200 && res.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}

	apiErr := &APIError{StatusCode: res.StatusCode}
	var envelope struct {
		Error *APIError `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(res.Body, 1<<16)).Decode(&envelope); err == nil && envelope.Error != nil {
		apiErr.Code = envelope.Error.Code
		apiErr.Type = envelope.Error.Type
		apiErr.Message = envelope.Error.Message
	}
	return apiErr
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
