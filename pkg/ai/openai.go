// Package ai wraps an OpenAI-compatible embeddings/completions backend.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/docuvault/docuvault-api/pkg/config"
)

// Client talks to an OpenAI-compatible HTTP API. It is safe for concurrent
// use; the underlying http.Client pools connections.
type Client struct {
	apiKey          string
	baseURL         string
	embeddingModel  string
	completionModel string
	httpClient      *http.Client
}

// NewClient builds a client from configuration.
func NewClient(cfg config.OpenAIConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = "text-embedding-3-small"
	}
	if cfg.CompletionModel == "" {
		cfg.CompletionModel = "gpt-4o-mini"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		apiKey:          cfg.APIKey,
		baseURL:         cfg.BaseURL,
		embeddingModel:  cfg.EmbeddingModel,
		completionModel: cfg.CompletionModel,
		httpClient:      &http.Client{Timeout: timeout},
	}
}

// Close releases idle connections held by the pooled transport.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// Healthy probes the backend's model listing endpoint.
func (c *Client) Healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return fmt.Errorf("create health check request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend health check failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("backend returned status %d", resp.StatusCode)
	}
	return nil
}

// EmbedBatch returns one embedding vector per input text.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	var response struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	err := c.post(ctx, "/embeddings", map[string]interface{}{
		"input": texts,
		"model": c.embeddingModel,
	}, &response)
	if err != nil {
		return nil, err
	}
	if len(response.Data) != len(texts) {
		return nil, fmt.Errorf("backend returned %d embeddings for %d inputs", len(response.Data), len(texts))
	}
	embeddings := make([][]float32, len(response.Data))
	for i, d := range response.Data {
		embeddings[i] = d.Embedding
	}
	return embeddings, nil
}

// Embed returns the embedding vector for one text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// Complete asks the chat completion endpoint for a single answer.
func (c *Client) Complete(ctx context.Context, system, prompt string) (string, error) {
	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	err := c.post(ctx, "/chat/completions", map[string]interface{}{
		"model": c.completionModel,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": prompt},
		},
		"max_tokens":  400,
		"temperature": 0.2,
	}, &response)
	if err != nil {
		return "", err
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no choices in completion response")
	}
	return response.Choices[0].Message.Content, nil
}

func (c *Client) post(ctx context.Context, path string, body interface{}, dest interface{}) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call backend: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("backend error: %d - %s", resp.StatusCode, string(raw))
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
