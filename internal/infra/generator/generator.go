// Package generator provides domain.Generator implementations: an HTTP
// client for a real generation backend, and the placeholder the product
// shipped with before a backend existed.
package generator

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ─── HTTP Client ────────────────────────────────────────────────────────────

// Client calls an external generation service over HTTP. The service is a
// black box: one POST with the prompt, one image reference back. Retries and
// de-duplication of timed-out-but-still-running calls are the service's
// concern, not ours.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient creates a generator client for the given endpoint.
func NewClient(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
	}
}

type generateRequest struct {
	Prompt string `json:"prompt"`
}

type generateResponse struct {
	ImageURL string `json:"image_url"`
	Error    string `json:"error,omitempty"`
}

// Generate implements domain.Generator.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{Prompt: prompt})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build generator request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("call generator: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("generator returned %d: %s", resp.StatusCode, bytes.TrimSpace(b))
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode generator response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("generator: %s", out.Error)
	}
	if out.ImageURL == "" {
		return "", fmt.Errorf("generator returned no image reference")
	}
	return out.ImageURL, nil
}

// ─── Placeholder ────────────────────────────────────────────────────────────

// Placeholder produces deterministic vector-art URLs instead of calling a
// model. Used when no generator endpoint is configured, so the whole credit
// flow works end to end in development.
type Placeholder struct{}

// Generate implements domain.Generator. The seed is derived from the prompt,
// so the same prompt yields the same art.
func (Placeholder) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(prompt))
	seed := hex.EncodeToString(sum[:8])
	return "https://api.dicebear.com/9.x/shapes/svg?seed=" + url.QueryEscape(seed), nil
}
