package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

const gatewayAttempts = 3

// Gateway posts outbound messages to the channel gateway as {to, text}.
type Gateway struct {
	url     string
	client  *http.Client
	logger  *zap.Logger
	backoff time.Duration
}

// NewGateway builds a gateway client with the given request timeout.
func NewGateway(url string, timeout time.Duration, logger *zap.Logger) *Gateway {
	return &Gateway{
		url:     url,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
		backoff: 200 * time.Millisecond,
	}
}

type sendRequest struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

// SendText delivers text, retrying transport errors and 5xx responses.
func (g *Gateway) SendText(ctx context.Context, address, text string) error {
	body, err := json.Marshal(sendRequest{To: address, Text: text})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	b := retry.WithMaxRetries(gatewayAttempts-1, retry.NewExponential(g.backoff))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := g.post(ctx, body)
		if err != nil {
			g.logger.Warn("gateway send failed", zap.String("to", address), zap.Error(err))
		}
		return err
	})
}

func (g *Gateway) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return retry.RetryableError(fmt.Errorf("send message: %w", err))
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 500:
		return retry.RetryableError(fmt.Errorf("gateway returned %d", resp.StatusCode))
	case resp.StatusCode >= 300:
		return fmt.Errorf("gateway returned %d", resp.StatusCode)
	}
	return nil
}
