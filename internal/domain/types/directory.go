package types

import "time"

// DirectoryRecord is the canonical server-side binding of an identity to its
// current public keys. Re-registering with different keys replaces it in
// place (rotation).
type DirectoryRecord struct {
	UserID    UserID       `json:"user_id"`
	Keys      PublicKeySet `json:"keys"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// DirectoryCacheEntry is a client-local snapshot of a resolved record. It
// carries no freshness guarantee from the server; staleness is bounded by the
// cache TTL and by verification failing closed after a rotation.
type DirectoryCacheEntry struct {
	UserID    UserID       `json:"user_id"`
	Keys      PublicKeySet `json:"keys"`
	FetchedAt time.Time    `json:"fetched_at"`
}
