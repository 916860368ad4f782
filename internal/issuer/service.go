package issuer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"murmur/internal/domain"
)

const (
	sessionKeyPrefix = "auth:sess:"
	profileKeyPrefix = "transport:user:"
	usersKey         = "users"

	defaultTokenTTL   = 15 * time.Minute
	defaultSessionTTL = time.Hour
)

// Config holds issuance parameters. TokenSecret signs scoped tokens (HS256);
// it is shared with nothing outside this process.
type Config struct {
	TokenSecret []byte
	APIKey      string
	Issuer      string
	TokenTTL    time.Duration
	SessionTTL  time.Duration
}

// Service is the server-side credential issuer. It turns a locally
// authenticated session into audience-scoped JWTs, provisioning the
// transport-side user record as a side effect of transport issuance.
//
// Sessions and profiles live in redis so several murmurd replicas can share
// them; miniredis backs the tests.
type Service struct {
	cfg Config
	rdb redis.Cmdable
	now func() time.Time
}

// NewService validates cfg and returns a Service backed by rdb.
func NewService(cfg Config, rdb redis.Cmdable) (*Service, error) {
	if len(cfg.TokenSecret) < 32 {
		return nil, errors.New("issuer: token secret must be at least 32 bytes")
	}
	if cfg.Issuer == "" {
		return nil, errors.New("issuer: issuer name required")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaultTokenTTL
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = defaultSessionTTL
	}
	return &Service{cfg: cfg, rdb: rdb, now: time.Now}, nil
}

// SetClock overrides the clock. Test hook.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Authenticate creates a local auth session for user. How the owning
// application verified the user is out of scope; this surface trusts the
// caller the way the external local-auth collaborator would.
func (s *Service) Authenticate(
	ctx context.Context,
	user domain.UserID,
) (domain.AuthSession, error) {
	if strings.TrimSpace(user.String()) == "" {
		return domain.AuthSession{}, domain.ErrUnauthenticated
	}
	tok := uuid.NewString()
	now := s.now()

	if err := s.rdb.Set(ctx, sessionKeyPrefix+tok, user.String(), s.cfg.SessionTTL).Err(); err != nil {
		return domain.AuthSession{}, fmt.Errorf("store session: %w", domain.ErrUnavailable)
	}
	if err := s.rdb.SAdd(ctx, usersKey, user.String()).Err(); err != nil {
		return domain.AuthSession{}, fmt.Errorf("index user: %w", domain.ErrUnavailable)
	}
	return domain.AuthSession{
		SubjectID:  user,
		LocalToken: tok,
		IssuedAt:   now,
		NotAfter:   now.Add(s.cfg.SessionTTL),
	}, nil
}

// Subject resolves a local session token to its subject, enforcing expiry.
// The subject claim of every scoped token derives from here, never from
// caller-supplied input.
func (s *Service) Subject(ctx context.Context, localToken string) (domain.UserID, error) {
	if localToken == "" {
		return "", domain.ErrUnauthenticated
	}
	v, err := s.rdb.Get(ctx, sessionKeyPrefix+localToken).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrUnauthenticated
	}
	if err != nil {
		return "", fmt.Errorf("load session: %w", domain.ErrUnavailable)
	}
	return domain.UserID(v), nil
}

// IssueTransport mints a transport-scoped token and upserts the relay user
// profile for the session subject. Re-issuing for the same subject updates
// the profile, never duplicates it. A provisioning failure aborts the whole
// issuance; no token is returned.
func (s *Service) IssueTransport(
	ctx context.Context,
	localToken string,
) (domain.TransportCredentials, error) {
	subject, err := s.Subject(ctx, localToken)
	if err != nil {
		return domain.TransportCredentials{}, err
	}

	profile := domain.TransportProfile{ID: subject, Role: "user"}
	err = s.rdb.HSet(ctx, profileKeyPrefix+subject.String(),
		"id", subject.String(),
		"role", profile.Role,
		"updated_at", s.now().Unix(),
	).Err()
	if err != nil {
		return domain.TransportCredentials{}, fmt.Errorf("provision transport profile: %w", domain.ErrProvisioning)
	}

	tok, err := s.mint(subject, domain.AudienceTransport)
	if err != nil {
		return domain.TransportCredentials{}, err
	}
	return domain.TransportCredentials{
		Token:   tok,
		APIKey:  s.cfg.APIKey,
		Profile: profile,
	}, nil
}

// IssueDirectory mints a directory-scoped token for the session subject.
func (s *Service) IssueDirectory(
	ctx context.Context,
	localToken string,
) (domain.ScopedToken, error) {
	subject, err := s.Subject(ctx, localToken)
	if err != nil {
		return domain.ScopedToken{}, err
	}
	return s.mint(subject, domain.AudienceDirectory)
}

// ListUsers returns every id that has authenticated at least once.
func (s *Service) ListUsers(ctx context.Context, localToken string) ([]domain.UserID, error) {
	if _, err := s.Subject(ctx, localToken); err != nil {
		return nil, err
	}
	ids, err := s.rdb.SMembers(ctx, usersKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list users: %w", domain.ErrUnavailable)
	}
	out := make([]domain.UserID, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.UserID(id))
	}
	return out, nil
}

// VerifyScoped validates a scoped token for the given audience and returns
// its subject. Expired or malformed tokens are ErrUnauthenticated; a valid
// token presented to the wrong audience is ErrForbidden.
func (s *Service) VerifyScoped(tokenStr string, audience domain.Audience) (domain.UserID, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.cfg.TokenSecret, nil
	},
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
	)
	if err != nil {
		return "", domain.ErrUnauthenticated
	}
	for _, aud := range claims.Audience {
		if aud == string(audience) {
			return domain.UserID(claims.Subject), nil
		}
	}
	// Signature and lifetime check out, so the holder is a known subject
	// presenting a token minted for the other consumer. Least privilege
	// rejects it outright.
	return "", domain.ErrForbidden
}

func (s *Service) mint(subject domain.UserID, audience domain.Audience) (domain.ScopedToken, error) {
	now := s.now()
	notAfter := now.Add(s.cfg.TokenTTL)
	claims := jwt.RegisteredClaims{
		Subject:   subject.String(),
		Audience:  jwt.ClaimStrings{string(audience)},
		Issuer:    s.cfg.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(notAfter),
		ID:        uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.TokenSecret)
	if err != nil {
		return domain.ScopedToken{}, fmt.Errorf("sign token: %w", err)
	}
	return domain.ScopedToken{
		Audience:  audience,
		SubjectID: subject,
		Token:     signed,
		NotAfter:  notAfter,
	}, nil
}
