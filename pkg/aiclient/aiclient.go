// Package aiclient wraps the generative-AI completion API used by the
// Manifest idea-exploration tool.
package aiclient

import (
	"context"
	"fmt"
	"time"

	"resty.dev/v3"
)

type Client struct {
	client *resty.Client
}

type completionRequest struct {
	Prompt  string   `json:"prompt"`
	Context []string `json:"context,omitempty"`
}

type completionResponse struct {
	Text string `json:"text"`
}

// NewClient creates a completion client for the given API endpoint
func NewClient(baseURL, apiKey string) *Client {
	client := resty.NewWithTransportSettings(&resty.TransportSettings{
		DialerTimeout:         5 * time.Second,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: 60 * time.Second,
	})
	client.SetBaseURL(baseURL)
	client.SetAuthToken(apiKey)

	return &Client{client: client}
}

// Close releases the underlying transport
func (c *Client) Close() error {
	return c.client.Close()
}

// Complete sends a prompt with optional grounding context and returns
// the generated text
func (c *Client) Complete(ctx context.Context, prompt string, grounding []string) (string, error) {
	res, err := c.client.R().
		WithContext(ctx).
		SetBody(&completionRequest{Prompt: prompt, Context: grounding}).
		SetResult(&completionResponse{}).
		Post("/v1/completions")
	if err != nil {
		return "", err
	}
	if res.IsError() {
		return "", fmt.Errorf("completion API returned %s", res.Status())
	}
	return res.Result().(*completionResponse).Text, nil
}
