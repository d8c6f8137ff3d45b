package httpbridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/soypete/calchat/pkg/conversation"
)

// Client talks to a remote calchat server. It implements Chatter.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ Chatter = (*Client)(nil)

// NewClient creates a client for the server at baseURL (e.g. http://localhost:8000)
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Chat sends one message with the caller's history
func (c *Client) Chat(ctx context.Context, userMessage string, history conversation.History, userEmail string) (string, conversation.History, error) {
	if history == nil {
		history = conversation.History{}
	}
	var resp ChatResponse
	err := c.do(ctx, http.MethodPost, "/chat", ChatRequest{
		Message:             userMessage,
		ConversationHistory: history,
		UserEmail:           userEmail,
	}, &resp)
	if err != nil {
		return "", nil, err
	}
	if resp.ConversationHistory == nil {
		resp.ConversationHistory = conversation.History{}
	}
	return resp.Response, resp.ConversationHistory, nil
}

// Health reports whether the server answers GET /health
func (c *Client) Health(ctx context.Context) error {
	var resp HealthResponse
	if err := c.do(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return err
	}
	if resp.Status != "healthy" {
		return fmt.Errorf("server status: %s", resp.Status)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to encode request")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response")
	}

	if resp.StatusCode != http.StatusOK {
		var errResp ErrorResponse
		if json.Unmarshal(data, &errResp) == nil && errResp.Detail != "" {
			return fmt.Errorf("server error (%d): %s", resp.StatusCode, errResp.Detail)
		}
		return fmt.Errorf("server error (%d): %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if err := json.Unmarshal(data, result); err != nil {
		return errors.Wrap(err, "failed to decode response")
	}
	return nil
}
