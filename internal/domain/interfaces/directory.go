package interfaces

import (
	"context"

	domaintypes "murmur/internal/domain/types"
)

// Directory registers and resolves identity public keys.
type Directory interface {
	// Register binds keys to the token's subject. Idempotent for an
	// unchanged key set; a different set is a rotation and replaces the
	// record in place. Fails with ErrForbidden when the token subject does
	// not match user.
	Register(
		ctx context.Context,
		token domaintypes.ScopedToken,
		user domaintypes.UserID,
		keys domaintypes.PublicKeySet,
	) error

	// Resolve returns the current public keys for user. Lookups are open to
	// any directory-token holder; counterparties resolve each other.
	Resolve(
		ctx context.Context,
		token domaintypes.ScopedToken,
		user domaintypes.UserID,
	) (domaintypes.PublicKeySet, error)
}
