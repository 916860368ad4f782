package session

import (
	"context"
	"errors"
	"fmt"

	"murmur/internal/domain"
)

// withTransportToken runs op with a transport token that is refreshed before
// use when it is inside the expiry window, and refreshed once more if the
// consumer still rejects it. Dependent calls never see a stale token race a
// refresh: concurrent refreshes for the same audience coalesce.
func (o *Orchestrator) withTransportToken(
	ctx context.Context,
	op func(ctx context.Context, tok domain.ScopedToken) error,
) error {
	return o.withToken(ctx, domain.AudienceTransport, op)
}

func (o *Orchestrator) withDirectoryToken(
	ctx context.Context,
	op func(ctx context.Context, tok domain.ScopedToken) error,
) error {
	return o.withToken(ctx, domain.AudienceDirectory, op)
}

func (o *Orchestrator) withToken(
	ctx context.Context,
	aud domain.Audience,
	op func(ctx context.Context, tok domain.ScopedToken) error,
) error {
	tok, err := o.currentToken(ctx, aud, false)
	if err != nil {
		return err
	}
	err = o.call(ctx, func(ctx context.Context) error { return op(ctx, tok) })
	if !errors.Is(err, domain.ErrUnauthenticated) {
		return err
	}

	// The consumer rejected a token we thought was live. Refresh once and
	// retry; a second rejection is genuine and surfaces to the caller.
	tok, refreshErr := o.currentToken(ctx, aud, true)
	if refreshErr != nil {
		return fmt.Errorf("refresh after rejection: %w", refreshErr)
	}
	return o.call(ctx, func(ctx context.Context) error { return op(ctx, tok) })
}

// currentToken returns a token for aud, re-issuing it when forced, missing,
// or inside the refresh window. Re-issuance transparently re-authenticates
// when the local session itself has lapsed.
func (o *Orchestrator) currentToken(
	ctx context.Context,
	aud domain.Audience,
	force bool,
) (domain.ScopedToken, error) {
	o.mu.Lock()
	if o.state < StateLocalAuthenticated {
		o.mu.Unlock()
		return domain.ScopedToken{}, fmt.Errorf("no session for %s token: %w", aud, domain.ErrUnauthenticated)
	}
	tok, ok := o.tokens[aud]
	o.mu.Unlock()

	if ok && !force && !tok.ExpiresWithin(o.now(), o.cfg.RefreshWindow) {
		return tok, nil
	}

	v, err, _ := o.refresh.Do(string(aud), func() (any, error) {
		// Another waiter may have refreshed while this one queued.
		o.mu.Lock()
		cur, ok := o.tokens[aud]
		o.mu.Unlock()
		if ok && !force && !cur.ExpiresWithin(o.now(), o.cfg.RefreshWindow) {
			return cur, nil
		}
		fresh, err := o.issueToken(ctx, aud)
		if err != nil {
			return domain.ScopedToken{}, err
		}
		o.mu.Lock()
		o.tokens[aud] = fresh
		o.mu.Unlock()
		return fresh, nil
	})
	if err != nil {
		return domain.ScopedToken{}, err
	}
	return v.(domain.ScopedToken), nil
}

func (o *Orchestrator) issueToken(ctx context.Context, aud domain.Audience) (domain.ScopedToken, error) {
	auth, err := o.liveAuth(ctx)
	if err != nil {
		return domain.ScopedToken{}, err
	}
	return o.issueWithAuth(ctx, aud, auth)
}

func (o *Orchestrator) issueWithAuth(
	ctx context.Context,
	aud domain.Audience,
	auth domain.AuthSession,
) (domain.ScopedToken, error) {
	tok, err := o.mint(ctx, aud, auth)
	if errors.Is(err, domain.ErrUnauthenticated) {
		// The session lapsed between the check and the issuance.
		if auth, err = o.reauthenticate(ctx); err != nil {
			return domain.ScopedToken{}, err
		}
		tok, err = o.mint(ctx, aud, auth)
	}
	if err != nil {
		return domain.ScopedToken{}, fmt.Errorf("issue %s token: %w", aud, err)
	}

	o.cfg.Logger.Debug("issued scoped token",
		"audience", string(aud),
		"subject", tok.SubjectID.String(),
	)
	return tok, nil
}

// mint performs one retried issuance against the issuer.
func (o *Orchestrator) mint(
	ctx context.Context,
	aud domain.Audience,
	auth domain.AuthSession,
) (domain.ScopedToken, error) {
	var tok domain.ScopedToken
	err := o.withRetry(ctx, func(ctx context.Context) error {
		switch aud {
		case domain.AudienceTransport:
			creds, err := o.cfg.Issuer.IssueTransport(ctx, auth)
			if err != nil {
				return err
			}
			tok = creds.Token
			o.mu.Lock()
			o.apiKey = creds.APIKey
			o.mu.Unlock()
			return nil
		case domain.AudienceDirectory:
			var err error
			tok, err = o.cfg.Issuer.IssueDirectory(ctx, auth)
			return err
		default:
			return fmt.Errorf("unknown audience %q: %w", aud, domain.ErrForbidden)
		}
	})
	return tok, err
}

// liveAuth returns the current local session, re-authenticating first when
// it has expired. Callers never observe an expired session.
func (o *Orchestrator) liveAuth(ctx context.Context) (domain.AuthSession, error) {
	o.mu.Lock()
	auth := o.auth
	o.mu.Unlock()
	if !auth.Expired(o.now()) {
		return auth, nil
	}
	return o.reauthenticate(ctx)
}

func (o *Orchestrator) reauthenticate(ctx context.Context) (domain.AuthSession, error) {
	o.mu.Lock()
	user := o.user
	o.mu.Unlock()

	var auth domain.AuthSession
	err := o.withRetry(ctx, func(ctx context.Context) error {
		var err error
		auth, err = o.cfg.Issuer.Authenticate(ctx, user)
		return err
	})
	if err != nil {
		return domain.AuthSession{}, fmt.Errorf("re-authenticate: %w", err)
	}

	o.mu.Lock()
	o.auth = auth
	o.mu.Unlock()
	o.cfg.Logger.Info("local session renewed", "subject", user.String())
	return auth, nil
}
