package issuer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"murmur/internal/domain"
)

// Client talks to the credential issuer HTTP surface. Every response body is
// decoded into an explicit schema; a missing required field is a
// provisioning failure, never an undefined cast.
type Client struct {
	Base string
	HTTP *http.Client
}

// NewClient returns an issuer client for the given base URL.
func NewClient(base string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{Base: base, HTTP: httpClient}
}

type authenticateResponse struct {
	AuthToken string    `json:"authToken"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type transportCredentialsResponse struct {
	Token     string    `json:"token"`
	APIKey    string    `json:"apiKey"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      struct {
		ID    string `json:"id"`
		Role  string `json:"role"`
		Image string `json:"image"`
	} `json:"user"`
}

type directoryCredentialsResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type usersResponse struct {
	Users []struct {
		ID string `json:"id"`
	} `json:"users"`
}

// Authenticate exchanges a user id for a local auth session.
func (c *Client) Authenticate(
	ctx context.Context,
	user domain.UserID,
) (domain.AuthSession, error) {
	var out authenticateResponse
	in := struct {
		User string `json:"user"`
	}{User: user.String()}

	if err := c.post(ctx, "/authenticate", "", in, &out); err != nil {
		return domain.AuthSession{}, err
	}
	if out.AuthToken == "" || out.ExpiresAt.IsZero() {
		return domain.AuthSession{}, fmt.Errorf("authenticate response incomplete: %w", domain.ErrProvisioning)
	}
	return domain.AuthSession{
		SubjectID:  user,
		LocalToken: out.AuthToken,
		IssuedAt:   time.Now(),
		NotAfter:   out.ExpiresAt,
	}, nil
}

// IssueTransport mints transport credentials from the local session.
func (c *Client) IssueTransport(
	ctx context.Context,
	session domain.AuthSession,
) (domain.TransportCredentials, error) {
	var out transportCredentialsResponse
	if err := c.post(ctx, "/transport-credentials", session.LocalToken, nil, &out); err != nil {
		return domain.TransportCredentials{}, err
	}
	if out.Token == "" || out.User.ID == "" || out.ExpiresAt.IsZero() {
		return domain.TransportCredentials{}, fmt.Errorf("transport credentials incomplete: %w", domain.ErrProvisioning)
	}
	return domain.TransportCredentials{
		Token: domain.ScopedToken{
			Audience:  domain.AudienceTransport,
			SubjectID: domain.UserID(out.User.ID),
			Token:     out.Token,
			NotAfter:  out.ExpiresAt,
		},
		APIKey: out.APIKey,
		Profile: domain.TransportProfile{
			ID:    domain.UserID(out.User.ID),
			Role:  out.User.Role,
			Image: out.User.Image,
		},
	}, nil
}

// IssueDirectory mints a directory token from the local session.
func (c *Client) IssueDirectory(
	ctx context.Context,
	session domain.AuthSession,
) (domain.ScopedToken, error) {
	var out directoryCredentialsResponse
	if err := c.post(ctx, "/directory-credentials", session.LocalToken, nil, &out); err != nil {
		return domain.ScopedToken{}, err
	}
	if out.Token == "" || out.ExpiresAt.IsZero() {
		return domain.ScopedToken{}, fmt.Errorf("directory credentials incomplete: %w", domain.ErrProvisioning)
	}
	return domain.ScopedToken{
		Audience:  domain.AudienceDirectory,
		SubjectID: session.SubjectID,
		Token:     out.Token,
		NotAfter:  out.ExpiresAt,
	}, nil
}

// ListUsers returns registered counterparty ids.
func (c *Client) ListUsers(
	ctx context.Context,
	session domain.AuthSession,
) ([]domain.UserID, error) {
	var out usersResponse
	if err := c.get(ctx, "/users", session.LocalToken, &out); err != nil {
		return nil, err
	}
	ids := make([]domain.UserID, 0, len(out.Users))
	for _, u := range out.Users {
		ids = append(ids, domain.UserID(u.ID))
	}
	return ids, nil
}

func (c *Client) post(ctx context.Context, path, bearer string, in, out any) error {
	buf := new(bytes.Buffer)
	if in != nil {
		if err := json.NewEncoder(buf).Encode(in); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Base+path, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path, bearer string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Base+path, nil)
	if err != nil {
		return err
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return MapTransportError(err)
	}
	defer resp.Body.Close()
	if err := domain.FromStatusCode(resp.StatusCode); err != nil {
		return fmt.Errorf("issuer %s %s: %w", req.Method, req.URL.Path, err)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("issuer %s %s: decode: %w", req.Method, req.URL.Path, domain.ErrProvisioning)
		}
	}
	return nil
}

// MapTransportError folds request-level failures into the taxonomy:
// deadline overruns are timeouts, everything else is unavailability. Shared
// by the directory and relay clients.
func MapTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%v: %w", err, domain.ErrTimeout)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%v: %w", err, domain.ErrTimeout)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%v: %w", err, domain.ErrUnavailable)
}

// Compile-time assertion that Client implements domain.Issuer.
var _ domain.Issuer = (*Client)(nil)
