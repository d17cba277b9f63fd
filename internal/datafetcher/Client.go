/*

This file contains the HTTP transport for The Graph subgraph queries:
rate limiting, bounded retries and GraphQL error unwrapping. The actual
queries live in Positions.go and HistoricalPrice.go.

*/

package datafetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lpwatch/lpwatch/internal/logger"

	"golang.org/x/time/rate"
)

var ErrSubgraphQuery = errors.New("subgraph query failed")

const (
	// The Graph gateway free tier sits around 2 req/s sustained; stay under
	// it so a wallet with many positions never trips the gateway.
	subgraphRatePerSec = 2
	subgraphBurst      = 4

	maxRetries      = 3
	baseRetryWait   = 500 * time.Millisecond
	requestTimeout  = 30 * time.Second
	maxErrorPayload = 512
)

// SubgraphClient queries a Uniswap V3 subgraph over HTTP with rate limiting
// and retries.
type SubgraphClient struct {
	queryURL string
	http     *http.Client
	limiter  *rate.Limiter
}

// NewSubgraphClient creates a client for the given project query URL.
func NewSubgraphClient(queryURL string) (*SubgraphClient, error) {
	if queryURL == "" {
		return nil, errors.New("subgraph query URL cannot be empty")
	}
	return &SubgraphClient{
		queryURL: queryURL,
		http:     &http.Client{Timeout: requestTimeout},
		limiter:  rate.NewLimiter(subgraphRatePerSec, subgraphBurst),
	}, nil
}

var fetchLogger = logger.GetForComponent("market_data")

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

// execute posts a GraphQL query and decodes the "data" object into out,
// retrying transient failures with exponential backoff.
func (c *SubgraphClient) execute(ctx context.Context, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("failed to marshal subgraph query: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		lastErr = c.post(ctx, body, out)
		if lastErr == nil {
			return nil
		}
		if !isRetryable(lastErr) || attempt == maxRetries {
			break
		}

		wait := baseRetryWait * time.Duration(1<<attempt)
		fetchLogger.Warn().Err(lastErr).Dur("wait", wait).Int("attempt", attempt+1).Msg("Retrying subgraph query")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	return fmt.Errorf("%w: %w", ErrSubgraphQuery, lastErr)
}

// retryableError marks transport-level failures worth retrying, as opposed
// to GraphQL-level rejections that will fail identically on every attempt.
type retryableError struct{ err error }

func (r retryableError) Error() string { return r.err.Error() }
func (r retryableError) Unwrap() error { return r.err }

func isRetryable(err error) bool {
	var r retryableError
	return errors.As(err, &r)
}

func (c *SubgraphClient) post(ctx context.Context, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.queryURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build subgraph request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return retryableError{fmt.Errorf("subgraph request failed: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorPayload))
		return retryableError{fmt.Errorf("subgraph returned status %d: %s", resp.StatusCode, string(payload))}
	}
	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorPayload))
		return fmt.Errorf("subgraph returned status %d: %s", resp.StatusCode, string(payload))
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []graphQLError  `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode subgraph response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		return fmt.Errorf("subgraph returned error: %s", envelope.Errors[0].Message)
	}
	if envelope.Data == nil {
		return errors.New("subgraph response has no data")
	}

	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("failed to unmarshal subgraph data: %w", err)
	}
	return nil
}
