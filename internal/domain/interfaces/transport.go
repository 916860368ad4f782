package interfaces

import (
	"context"

	domaintypes "murmur/internal/domain/types"
)

// Transport is the external store-and-forward relay. The core hands it
// opaque envelopes; delivery guarantees, ordering, and presence belong to it.
type Transport interface {
	// Connect validates the token against the relay for user. It is the
	// point where a cross-audience token is rejected.
	Connect(ctx context.Context, token domaintypes.ScopedToken, user domaintypes.UserID) error

	// Send queues the envelope for its recipient. Fire-and-forget from the
	// core's perspective; once accepted, cancellation authority is gone.
	Send(ctx context.Context, token domaintypes.ScopedToken, env domaintypes.Envelope) error

	// Fetch returns up to limit queued envelopes for user without removing
	// them. Ack removes the first count after they were processed.
	Fetch(
		ctx context.Context,
		token domaintypes.ScopedToken,
		user domaintypes.UserID,
		limit int,
	) ([]domaintypes.Envelope, error)
	Ack(
		ctx context.Context,
		token domaintypes.ScopedToken,
		user domaintypes.UserID,
		count int,
	) error
}
