package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/BerylCAtieno/ikigai-coach/internal/apperr"
)

// Client calls a remote gateway over HTTP.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) Generate(ctx context.Context, req GenerationRequest) (*GenerationResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal generation request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build generation request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, apperr.ClientTransport(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.ClientTransport(err)
	}

	if resp.StatusCode >= 300 {
		var er ErrorResponse
		msg := fmt.Sprintf("API error: %d", resp.StatusCode)
		if json.Unmarshal(body, &er) == nil && er.Error != "" {
			msg = er.Error
		}
		switch resp.StatusCode {
		case http.StatusBadRequest:
			return nil, apperr.InvalidInput(msg)
		default:
			return nil, apperr.Upstream(resp.StatusCode, msg, nil)
		}
	}

	var out GenerationResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, apperr.Parse("gateway returned an unreadable response", err)
	}
	return &out, nil
}
