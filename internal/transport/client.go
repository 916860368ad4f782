package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"murmur/internal/domain"
	"murmur/internal/issuer"
)

// Client talks to the relay HTTP surface with a transport-scoped bearer
// token. The server addresses queues by the token subject, so user ids never
// ride the URL.
type Client struct {
	Base string
	HTTP *http.Client
}

// NewClient returns a relay client for the given base URL.
func NewClient(base string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{Base: base, HTTP: httpClient}
}

// Connect validates the token against the relay.
func (c *Client) Connect(ctx context.Context, token domain.ScopedToken, user domain.UserID) error {
	return c.post(ctx, "/connect", token.Token, struct {
		User string `json:"user"`
	}{User: user.String()}, nil)
}

// Send queues env for its recipient.
func (c *Client) Send(ctx context.Context, token domain.ScopedToken, env domain.Envelope) error {
	return c.post(ctx, "/msg", token.Token, env, nil)
}

// Fetch returns up to limit queued envelopes for user.
func (c *Client) Fetch(
	ctx context.Context,
	token domain.ScopedToken,
	user domain.UserID,
	limit int,
) ([]domain.Envelope, error) {
	u := c.Base + "/msg"
	if limit > 0 {
		u += "?limit=" + strconv.Itoa(limit)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token.Token)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, issuer.MapTransportError(err)
	}
	defer resp.Body.Close()
	if err := domain.FromStatusCode(resp.StatusCode); err != nil {
		return nil, fmt.Errorf("relay fetch: %w", err)
	}
	var envs []domain.Envelope
	if err := json.NewDecoder(resp.Body).Decode(&envs); err != nil {
		return nil, fmt.Errorf("relay fetch: decode: %w", err)
	}
	return envs, nil
}

// Ack removes the first count envelopes from user's queue.
func (c *Client) Ack(
	ctx context.Context,
	token domain.ScopedToken,
	user domain.UserID,
	count int,
) error {
	return c.post(ctx, "/msg/ack", token.Token, struct {
		Count int `json:"count"`
	}{Count: count}, nil)
}

func (c *Client) post(ctx context.Context, path, bearer string, in, out any) error {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(in); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Base+path, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return issuer.MapTransportError(err)
	}
	defer resp.Body.Close()
	if err := domain.FromStatusCode(resp.StatusCode); err != nil {
		return fmt.Errorf("relay post %s: %w", path, err)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// Compile-time assertion that Client implements domain.Transport.
var _ domain.Transport = (*Client)(nil)
