// Package storeweb wraps the decentralized-storage gateway that Bloom
// pitch files are uploaded to. Uploads return a content id (CID); the
// gateway serves the file at a CID-derived URL.
package storeweb

import (
	"context"
	"fmt"
	"io"
	"time"

	"resty.dev/v3"
)

type Client struct {
	client *resty.Client
}

type uploadResponse struct {
	CID string `json:"cid"`
}

// NewClient creates an upload client for the given gateway
func NewClient(gatewayURL, apiKey string) *Client {
	client := resty.NewWithTransportSettings(&resty.TransportSettings{
		DialerTimeout:         5 * time.Second,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: 120 * time.Second,
	})
	client.SetBaseURL(gatewayURL)
	client.SetAuthToken(apiKey)

	return &Client{client: client}
}

// Close releases the underlying transport
func (c *Client) Close() error {
	return c.client.Close()
}

// Upload streams a file to the gateway and returns its CID
func (c *Client) Upload(ctx context.Context, name string, file io.Reader) (string, error) {
	res, err := c.client.R().
		WithContext(ctx).
		SetFileReader("file", name, file).
		SetResult(&uploadResponse{}).
		Post("/v1/uploads")
	if err != nil {
		return "", err
	}
	if res.IsError() {
		return "", fmt.Errorf("storage gateway returned %s", res.Status())
	}
	return res.Result().(*uploadResponse).CID, nil
}
