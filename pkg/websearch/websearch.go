// Package websearch wraps the web search API used to ground Manifest
// sessions with live references.
package websearch

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"resty.dev/v3"
)

type Client struct {
	client *resty.Client
}

// Result is a single search hit
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

type searchResponse struct {
	Results []Result `json:"results"`
}

// NewClient creates a search client for the given API endpoint
func NewClient(baseURL, apiKey string) *Client {
	client := resty.NewWithTransportSettings(&resty.TransportSettings{
		DialerTimeout:         5 * time.Second,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
	})
	client.SetBaseURL(baseURL)
	client.SetAuthToken(apiKey)

	return &Client{client: client}
}

// Close releases the underlying transport
func (c *Client) Close() error {
	return c.client.Close()
}

// Search runs a query and returns up to limit results
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	res, err := c.client.R().
		WithContext(ctx).
		SetQueryParam("q", query).
		SetQueryParam("limit", strconv.Itoa(limit)).
		SetResult(&searchResponse{}).
		Get("/v1/search")
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, fmt.Errorf("search API returned %s", res.Status())
	}
	return res.Result().(*searchResponse).Results, nil
}
