package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"murmur/internal/domain"
	"murmur/internal/issuer"
)

// Client talks to the key directory HTTP surface with a directory-scoped
// bearer token.
type Client struct {
	Base string
	HTTP *http.Client
}

// NewClient returns a directory client for the given base URL.
func NewClient(base string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{Base: base, HTTP: httpClient}
}

type registerRequest struct {
	UserID domain.UserID       `json:"user_id"`
	Keys   domain.PublicKeySet `json:"keys"`
}

type resolveResponse struct {
	UserID domain.UserID       `json:"user_id"`
	Keys   domain.PublicKeySet `json:"keys"`
}

// Register publishes keys for user.
func (c *Client) Register(
	ctx context.Context,
	token domain.ScopedToken,
	user domain.UserID,
	keys domain.PublicKeySet,
) error {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(registerRequest{UserID: user, Keys: keys}); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Base+"/keys", buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token.Token)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return issuer.MapTransportError(err)
	}
	defer resp.Body.Close()
	if err := domain.FromStatusCode(resp.StatusCode); err != nil {
		return fmt.Errorf("directory register %s: %w", user, err)
	}
	return nil
}

// Resolve fetches the current keys for user.
func (c *Client) Resolve(
	ctx context.Context,
	token domain.ScopedToken,
	user domain.UserID,
) (domain.PublicKeySet, error) {
	u := c.Base + "/keys/" + url.PathEscape(user.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.PublicKeySet{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token.Token)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return domain.PublicKeySet{}, issuer.MapTransportError(err)
	}
	defer resp.Body.Close()
	if err := domain.FromStatusCode(resp.StatusCode); err != nil {
		return domain.PublicKeySet{}, fmt.Errorf("directory resolve %s: %w", user, err)
	}

	var out resolveResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.PublicKeySet{}, fmt.Errorf("directory resolve %s: decode: %w", user, err)
	}
	if out.Keys.IsZero() {
		return domain.PublicKeySet{}, fmt.Errorf("directory resolve %s: empty record: %w", user, domain.ErrNotFound)
	}
	return out.Keys, nil
}

// Compile-time assertion that Client implements domain.Directory.
var _ domain.Directory = (*Client)(nil)
