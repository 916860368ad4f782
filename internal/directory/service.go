package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"murmur/internal/domain"
)

const recordKeyPrefix = "dir:keys:"

// Service is the server-side key directory. The canonical record for an
// identity is a single JSON blob written with one SET, so concurrent
// registrations for the same id cannot interleave partially: the last full
// record wins.
type Service struct {
	rdb redis.Cmdable
	now func() time.Time
}

// NewService returns a directory backed by rdb.
func NewService(rdb redis.Cmdable) *Service {
	return &Service{rdb: rdb, now: time.Now}
}

// Register binds keys to user. subject is the verified token subject; it
// must match user, since only an identity's owner may publish its keys.
// Registering an unchanged key set is a no-op; a changed set is a rotation
// and replaces the record in place.
func (s *Service) Register(
	ctx context.Context,
	subject domain.UserID,
	user domain.UserID,
	keys domain.PublicKeySet,
) error {
	if subject != user {
		return fmt.Errorf("register %s as %s: %w", user, subject, domain.ErrForbidden)
	}
	if keys.IsZero() {
		return domain.ErrKeyInvalid
	}

	if existing, err := s.lookup(ctx, user); err == nil && existing == keys {
		return nil
	}

	rec := domain.DirectoryRecord{UserID: user, Keys: keys, UpdatedAt: s.now()}
	blob, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if err := s.rdb.Set(ctx, recordKeyPrefix+user.String(), blob, 0).Err(); err != nil {
		return fmt.Errorf("store record: %w", domain.ErrUnavailable)
	}
	return nil
}

// Resolve returns the current keys for user. Any verified directory-token
// holder may call it; lookups are for counterparties.
func (s *Service) Resolve(ctx context.Context, user domain.UserID) (domain.PublicKeySet, error) {
	return s.lookup(ctx, user)
}

func (s *Service) lookup(ctx context.Context, user domain.UserID) (domain.PublicKeySet, error) {
	blob, err := s.rdb.Get(ctx, recordKeyPrefix+user.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.PublicKeySet{}, fmt.Errorf("resolve %s: %w", user, domain.ErrNotFound)
	}
	if err != nil {
		return domain.PublicKeySet{}, fmt.Errorf("resolve %s: %w", user, domain.ErrUnavailable)
	}
	var rec domain.DirectoryRecord
	if err := json.Unmarshal(blob, &rec); err != nil {
		return domain.PublicKeySet{}, fmt.Errorf("decode record for %s: %w", user, err)
	}
	return rec.Keys, nil
}
