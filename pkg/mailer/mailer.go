// Package mailer wraps the transactional-email API used to deliver
// one-time codes for private pitch access.
package mailer

import (
	"context"
	"fmt"
	"time"

	"resty.dev/v3"
)

type Client struct {
	client *resty.Client
	from   string
}

type sendRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewClient creates a mail client for the given API endpoint
func NewClient(baseURL, apiKey, from string) *Client {
	client := resty.NewWithTransportSettings(&resty.TransportSettings{
		DialerTimeout:         5 * time.Second,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
	})
	client.SetBaseURL(baseURL)
	client.SetAuthToken(apiKey)

	return &Client{client: client, from: from}
}

// Close releases the underlying transport
func (c *Client) Close() error {
	return c.client.Close()
}

// SendOTP delivers a one-time access code
func (c *Client) SendOTP(ctx context.Context, to, pitchTitle, code string) error {
	res, err := c.client.R().
		WithContext(ctx).
		SetBody(&sendRequest{
			From:    c.from,
			To:      to,
			Subject: "Your OPAQ access code",
			Body:    fmt.Sprintf("Your one-time code for %q is %s. It expires in 10 minutes.", pitchTitle, code),
		}).
		Post("/v1/messages")
	if err != nil {
		return err
	}
	if res.IsError() {
		return fmt.Errorf("mail API returned %s", res.Status())
	}
	return nil
}
