// Package whatsapp is a minimal client for a WhatsApp Cloud-style messaging
// endpoint. Each business brings its own credentials.
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
)

// Credentials identify one business's messaging account.
type Credentials struct {
	EndpointID  string
	AccessToken string
	SenderID    string
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

type sendMessageRequest struct {
	MessagingProduct string      `json:"messaging_product"`
	RecipientType    string      `json:"recipient_type"`
	From             string      `json:"from,omitempty"`
	To               string      `json:"to"`
	Type             string      `json:"type"`
	Text             messageText `json:"text"`
}

type messageText struct {
	Body string `json:"body"`
}

type SendMessageResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error,omitempty"`
}

// MessageID returns the provider id of the first accepted message.
func (r *SendMessageResponse) MessageID() string {
	if r == nil || len(r.Messages) == 0 {
		return ""
	}
	return r.Messages[0].ID
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// NormalizePhone strips formatting characters, keeping digits only.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SendText sends one plain-text message. A non-2xx response is an error.
func (c *Client) SendText(ctx context.Context, creds Credentials, to, body string) (*SendMessageResponse, error) {
	phone := NormalizePhone(to)
	if phone == "" {
		return nil, fmt.Errorf("invalid phone number %q", to)
	}

	jsonData, err := json.Marshal(sendMessageRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		From:             creds.SenderID,
		To:               phone,
		Type:             "text",
		Text:             messageText{Body: body},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request data: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.BaseURL, creds.EndpointID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var response SendMessageResponse
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &response); err != nil && resp.StatusCode < 300 {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if response.Error != nil && response.Error.Message != "" {
			return nil, fmt.Errorf("send message: status %d: %s", resp.StatusCode, response.Error.Message)
		}
		return nil, fmt.Errorf("send message: status %d", resp.StatusCode)
	}

	return &response, nil
}
