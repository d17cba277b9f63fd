/*

This file contains the HTTP client for a llama.cpp completion server. The
agent treats the model as a plain bounded text-completion capability; model
loading and provisioning happen out of process.

*/

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lpwatch/lpwatch/internal/logger"
)

var ErrModelUnavailable = errors.New("completion server unavailable")

const (
	// Generation is the dominant latency source per position; the request
	// timeout bounds a stuck model call instead of blocking the cycle
	// indefinitely.
	requestTimeout = 5 * time.Minute
	healthTimeout  = 10 * time.Second
)

// Client talks to a llama.cpp-server /completion endpoint.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a completion client for the given base URL
// (e.g. "http://localhost:8081").
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: requestTimeout},
	}
}

type completionRequest struct {
	Prompt      string   `json:"prompt"`
	NPredict    int      `json:"n_predict"`
	Stop        []string `json:"stop,omitempty"`
	Temperature float64  `json:"temperature"`
	Stream      bool     `json:"stream"`
}

type completionResponse struct {
	Content string `json:"content"`
}

// Complete sends a prompt and returns the generated text. Generation stops
// at maxTokens or at the first stop sequence, whichever comes first.
func (c *Client) Complete(ctx context.Context, prompt string, maxTokens int, stop []string, temperature float64) (string, error) {
	body, err := json.Marshal(completionRequest{
		Prompt:      prompt,
		NPredict:    maxTokens,
		Stop:        stop,
		Temperature: temperature,
		Stream:      false,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/completion", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("completion server returned status %d: %s", resp.StatusCode, string(payload))
	}

	var out completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode completion response: %w", err)
	}

	return out.Content, nil
}

// Health probes the completion server. Used once at startup so a
// misconfigured endpoint surfaces immediately instead of as a stream of
// ERROR recommendations.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to build health request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health returned status %d", ErrModelUnavailable, resp.StatusCode)
	}

	log := logger.GetForComponent("llm_client")
	log.Info().Str("endpoint", c.baseURL).Msg("Completion server is healthy")
	return nil
}
