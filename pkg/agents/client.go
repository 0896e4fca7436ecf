package agents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/clinigraph/clinigraph/pkg/config"
	"github.com/clinigraph/clinigraph/pkg/logging"
	"github.com/clinigraph/clinigraph/pkg/model"
)

// Chat is the minimal surface the extraction and judging agents need from a
// language model. Implementations must be safe for concurrent use.
type Chat interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

const (
	maxAttempts    = 3
	initialBackoff = 500 * time.Millisecond
)

// ChatClient talks to an OpenAI-compatible chat completions endpoint.
type ChatClient struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
	logger  logging.Logger
}

// NewChatClient builds a client from config. The endpoint is expected to
// serve POST {base_url}/chat/completions.
func NewChatClient(cfg config.LLMConfig, logger logging.Logger) *ChatClient {
	timeout := cfg.Timeout.Std()
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &ChatClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends a system+user prompt pair and returns the raw assistant
// reply. Transient failures are retried with exponential backoff.
func (c *ChatClient) Complete(ctx context.Context, system, user string) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return "", model.CollaboratorError("chat.marshal", err)
	}

	backoff := initialBackoff
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		reply, retryable, err := c.doRequest(ctx, payload)
		if err == nil {
			return reply, nil
		}
		lastErr = err
		if !retryable || attempt == maxAttempts {
			break
		}
		c.logger.Warn("chat completion failed, retrying",
			logging.Int("attempt", attempt),
			logging.Error(err))
		select {
		case <-ctx.Done():
			return "", model.CollaboratorError("chat.complete", ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return "", model.CollaboratorError("chat.complete", lastErr)
}

func (c *ChatClient) doRequest(ctx context.Context, payload []byte) (reply string, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", false, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", true, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, err
	}
	if resp.StatusCode != http.StatusOK {
		// 5xx and 429 are worth retrying, client errors are not
		retryable := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return "", retryable, fmt.Errorf("chat endpoint returned %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", false, fmt.Errorf("decode chat response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", false, fmt.Errorf("chat response contained no choices")
	}
	return parsed.Choices[0].Message.Content, false, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
