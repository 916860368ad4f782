package interfaces

import (
	"context"

	domaintypes "murmur/internal/domain/types"
)

// Issuer escalates a locally authenticated session into scoped, short-lived
// credentials for the transport and the key directory.
type Issuer interface {
	// Authenticate exchanges an application-level user id for a local
	// session. How the owning application proved the user is out of scope.
	Authenticate(ctx context.Context, user domaintypes.UserID) (domaintypes.AuthSession, error)

	// IssueTransport mints a transport-scoped token and provisions the
	// relay-side user record. Provisioning failure fails the issuance as a
	// whole; no partial token is returned.
	IssueTransport(
		ctx context.Context,
		session domaintypes.AuthSession,
	) (domaintypes.TransportCredentials, error)

	// IssueDirectory mints a directory-scoped token.
	IssueDirectory(
		ctx context.Context,
		session domaintypes.AuthSession,
	) (domaintypes.ScopedToken, error)

	// ListUsers returns registered counterparty ids for discovery.
	ListUsers(
		ctx context.Context,
		session domaintypes.AuthSession,
	) ([]domaintypes.UserID, error)
}
