// Package relay forwards JSON payloads to externally configured webhook
// endpoints (Zapier-style automations).
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

const forwardTimeout = 10 * time.Second

// ErrNotConfigured means the webhook URL for this relay is unset.
var ErrNotConfigured = errors.New("webhook url is not configured")

type Client struct {
	client *http.Client
	logger logrus.FieldLogger
}

func NewClient(logger logrus.FieldLogger) *Client {
	return &Client{
		client: &http.Client{Timeout: forwardTimeout},
		logger: logger,
	}
}

// Forward posts payload to url and returns the webhook's JSON response.
func (c *Client) Forward(ctx context.Context, url string, payload []byte) (json.RawMessage, error) {
	if url == "" {
		return nil, ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read webhook response: %w", err)
	}

	if !json.Valid(body) {
		return nil, fmt.Errorf("webhook responded %d with a non-JSON body", resp.StatusCode)
	}

	c.logger.Debugf("webhook %s responded %d", url, resp.StatusCode)
	return json.RawMessage(body), nil
}
