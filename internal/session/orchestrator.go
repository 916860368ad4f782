package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/singleflight"

	"murmur/internal/crypto"
	"murmur/internal/domain"
	"murmur/internal/platform/privacylog"
)

const (
	defaultRefreshWindow = 30 * time.Second
	defaultCallTimeout   = 10 * time.Second
	defaultMaxRetries    = 3
)

// Resolver is the directory view the orchestrator needs: normal resolution
// plus a cache-bypassing path for the rotation retry, and teardown hooks.
// directory.CachingResolver satisfies it.
type Resolver interface {
	domain.Directory
	ResolveFresh(
		ctx context.Context,
		token domain.ScopedToken,
		user domain.UserID,
	) (domain.PublicKeySet, error)
	Invalidate(user domain.UserID)
	Reset()
}

// Config wires an Orchestrator.
type Config struct {
	Issuer    domain.Issuer
	Directory Resolver
	Transport domain.Transport
	Keys      domain.KeyStore
	Pipeline  domain.Pipeline
	Logger    *slog.Logger

	// RefreshWindow is how close to expiry a token may get before the next
	// dependent call re-issues it.
	RefreshWindow time.Duration
	// CallTimeout bounds each issuer/directory/transport call.
	CallTimeout time.Duration
	// MaxRetries bounds retries of timed-out or unavailable calls.
	MaxRetries uint64
}

// Orchestrator is the client-visible session: one identity, one key pair,
// one token per audience, and the state machine sequencing bootstrap before
// exposing send/receive. It is safe for concurrent use after bootstrap;
// sends for different recipients do not serialize on each other.
type Orchestrator struct {
	cfg Config

	mu       sync.Mutex
	state    State
	epoch    uint64
	user     domain.UserID
	auth     domain.AuthSession
	apiKey   string
	tokens   map[domain.Audience]domain.ScopedToken
	keys     domain.KeyPair
	channels map[domain.ChannelID][]domain.UserID

	refresh singleflight.Group
	now     func() time.Time
}

// New validates cfg and returns an unauthenticated orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Issuer == nil || cfg.Directory == nil || cfg.Transport == nil ||
		cfg.Keys == nil || cfg.Pipeline == nil {
		return nil, errors.New("session: all dependencies are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.RefreshWindow <= 0 {
		cfg.RefreshWindow = defaultRefreshWindow
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	return &Orchestrator{
		cfg:      cfg,
		state:    StateUnauthenticated,
		tokens:   make(map[domain.Audience]domain.ScopedToken),
		channels: make(map[domain.ChannelID][]domain.UserID),
		now:      time.Now,
	}, nil
}

// State returns the current bootstrap state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// User returns the identity this session belongs to.
func (o *Orchestrator) User() domain.UserID {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.user
}

// Fingerprint returns the local identity's public key fingerprint.
func (o *Orchestrator) Fingerprint() (domain.Fingerprint, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state < StateCryptoReady {
		return "", fmt.Errorf("no identity loaded in state %s: %w", o.state, domain.ErrUnauthenticated)
	}
	return crypto.Fingerprint(o.keys.Public()), nil
}

// Login runs the ordered bootstrap: local auth, transport credentials and
// connect, directory credentials, key registration. Each step depends on
// the previous one's output; a failure leaves the session at the last
// completed state and surfaces the typed error.
func (o *Orchestrator) Login(ctx context.Context, user domain.UserID, passphrase string) error {
	var auth domain.AuthSession
	err := o.call(ctx, func(ctx context.Context) error {
		var err error
		auth, err = o.cfg.Issuer.Authenticate(ctx, user)
		return err
	})
	if err != nil {
		return fmt.Errorf("local auth: %w", err)
	}
	o.mu.Lock()
	o.user = user
	o.auth = auth
	o.state = StateLocalAuthenticated
	o.mu.Unlock()
	o.cfg.Logger.Info("local auth complete", slog.String("subject", user.String()))

	if err := o.bootstrapTransport(ctx); err != nil {
		return err
	}
	return o.bootstrapCrypto(ctx, passphrase)
}

func (o *Orchestrator) bootstrapTransport(ctx context.Context) error {
	o.mu.Lock()
	auth := o.auth
	user := o.user
	o.mu.Unlock()

	var creds domain.TransportCredentials
	err := o.withRetry(ctx, func(ctx context.Context) error {
		var err error
		creds, err = o.cfg.Issuer.IssueTransport(ctx, auth)
		return err
	})
	if err != nil {
		return fmt.Errorf("issue transport credentials: %w", err)
	}
	err = o.withRetry(ctx, func(ctx context.Context) error {
		return o.cfg.Transport.Connect(ctx, creds.Token, user)
	})
	if err != nil {
		return fmt.Errorf("connect transport: %w", err)
	}

	o.mu.Lock()
	o.tokens[domain.AudienceTransport] = creds.Token
	o.apiKey = creds.APIKey
	o.state = StateTransportReady
	o.mu.Unlock()
	o.cfg.Logger.Info("transport ready", slog.String("subject", user.String()))
	return nil
}

func (o *Orchestrator) bootstrapCrypto(ctx context.Context, passphrase string) error {
	o.mu.Lock()
	auth := o.auth
	user := o.user
	o.mu.Unlock()

	var dirTok domain.ScopedToken
	err := o.withRetry(ctx, func(ctx context.Context) error {
		var err error
		dirTok, err = o.cfg.Issuer.IssueDirectory(ctx, auth)
		return err
	})
	if err != nil {
		return fmt.Errorf("issue directory credentials: %w", err)
	}

	keys, found, err := o.cfg.Keys.LoadKeyPair(passphrase)
	if err != nil {
		return fmt.Errorf("load key pair: %w", err)
	}
	if !found {
		keys, err = crypto.GenerateKeyPair()
		if err != nil {
			return fmt.Errorf("generate key pair: %w", err)
		}
		if err := o.cfg.Keys.SaveKeyPair(passphrase, keys); err != nil {
			return fmt.Errorf("save key pair: %w", err)
		}
		o.cfg.Logger.Info("generated identity keys",
			slog.String("subject", user.String()),
			slog.String("fingerprint", string(crypto.Fingerprint(keys.Public()))),
		)
	}

	err = o.withRetry(ctx, func(ctx context.Context) error {
		return o.cfg.Directory.Register(ctx, dirTok, user, keys.Public())
	})
	if err != nil {
		return fmt.Errorf("register keys: %w", err)
	}

	o.mu.Lock()
	o.tokens[domain.AudienceDirectory] = dirTok
	o.keys = keys
	o.state = StateCryptoReady
	o.mu.Unlock()
	o.cfg.Logger.Info("crypto ready", slog.String("subject", user.String()))
	return nil
}

// Rebootstrap re-runs token issuance and registration with the keys already
// in memory. It is the explicit recovery path after bounded retries give up.
func (o *Orchestrator) Rebootstrap(ctx context.Context) error {
	o.mu.Lock()
	if o.state < StateCryptoReady {
		o.mu.Unlock()
		return fmt.Errorf("rebootstrap in state %s: %w", o.state, domain.ErrUnauthenticated)
	}
	user := o.user
	o.mu.Unlock()

	var (
		auth   domain.AuthSession
		creds  domain.TransportCredentials
		dirTok domain.ScopedToken
	)
	err := o.call(ctx, func(ctx context.Context) error {
		var err error
		if auth, err = o.cfg.Issuer.Authenticate(ctx, user); err != nil {
			return fmt.Errorf("local auth: %w", err)
		}
		if creds, err = o.cfg.Issuer.IssueTransport(ctx, auth); err != nil {
			return fmt.Errorf("issue transport credentials: %w", err)
		}
		if dirTok, err = o.cfg.Issuer.IssueDirectory(ctx, auth); err != nil {
			return fmt.Errorf("issue directory credentials: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	o.mu.Lock()
	o.auth = auth
	o.tokens[domain.AudienceTransport] = creds.Token
	o.tokens[domain.AudienceDirectory] = dirTok
	o.apiKey = creds.APIKey
	o.mu.Unlock()
	return nil
}

// JoinChannel records the member set for a channel and activates messaging.
// A 1:1 conversation is a channel of two.
func (o *Orchestrator) JoinChannel(channel domain.ChannelID, members ...domain.UserID) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state < StateCryptoReady {
		return fmt.Errorf("join channel in state %s: %w", o.state, domain.ErrUnauthenticated)
	}
	if len(members) == 0 {
		return errors.New("session: channel needs at least one member")
	}
	o.channels[channel] = append([]domain.UserID(nil), members...)
	o.state = StateChannelActive
	return nil
}

// ListPeers returns the ids of other registered users for discovery.
func (o *Orchestrator) ListPeers(ctx context.Context) ([]domain.UserID, error) {
	o.mu.Lock()
	if o.state < StateLocalAuthenticated {
		o.mu.Unlock()
		return nil, fmt.Errorf("list peers in state %s: %w", o.state, domain.ErrUnauthenticated)
	}
	user := o.user
	o.mu.Unlock()

	auth, err := o.liveAuth(ctx)
	if err != nil {
		return nil, err
	}
	var all []domain.UserID
	err = o.withRetry(ctx, func(ctx context.Context) error {
		var err error
		all, err = o.cfg.Issuer.ListUsers(ctx, auth)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	peers := all[:0]
	for _, id := range all {
		if id != user {
			peers = append(peers, id)
		}
	}
	return peers, nil
}

// SendDirect sends to a single recipient over the implicit 1:1 channel,
// joining it first if needed.
func (o *Orchestrator) SendDirect(ctx context.Context, to domain.UserID, plaintext []byte) error {
	o.mu.Lock()
	user := o.user
	o.mu.Unlock()

	ch := DirectChannel(user, to)
	o.mu.Lock()
	_, joined := o.channels[ch]
	o.mu.Unlock()
	if !joined {
		if err := o.JoinChannel(ch, user, to); err != nil {
			return err
		}
	}
	return o.SendMessage(ctx, ch, plaintext)
}

// DirectChannel derives the canonical channel id for a 1:1 conversation.
// Both parties compute the same id regardless of who sends first.
func DirectChannel(a, b domain.UserID) domain.ChannelID {
	if b < a {
		a, b = b, a
	}
	return domain.ChannelID("dm:" + a.String() + ":" + b.String())
}

// SendMessage encrypts plaintext for every channel member except the local
// user and hands one envelope per member to the transport. Fan-out is
// pairwise; member failures are collected, and a failure for one member
// does not block the others. Encryption failures (key resolution) and send
// failures (transport) stay distinguishable through the error chain.
func (o *Orchestrator) SendMessage(
	ctx context.Context,
	channel domain.ChannelID,
	plaintext []byte,
) error {
	o.mu.Lock()
	if o.state < StateChannelActive {
		o.mu.Unlock()
		return fmt.Errorf("send in state %s: %w", o.state, domain.ErrUnauthenticated)
	}
	members, ok := o.channels[channel]
	user := o.user
	keys := o.keys
	epoch := o.epoch
	o.mu.Unlock()
	if !ok {
		return fmt.Errorf("channel %s not joined: %w", channel, domain.ErrNotFound)
	}

	var errs []error
	for _, member := range members {
		if member == user {
			continue
		}
		if err := o.sendOne(ctx, channel, user, keys, member, plaintext, epoch); err != nil {
			errs = append(errs, fmt.Errorf("to %s: %w", member, err))
		}
	}
	return errors.Join(errs...)
}

func (o *Orchestrator) sendOne(
	ctx context.Context,
	channel domain.ChannelID,
	user domain.UserID,
	keys domain.KeyPair,
	recipient domain.UserID,
	plaintext []byte,
	epoch uint64,
) error {
	// Resolve before any encryption attempt; an unregistered counterparty
	// is a directory problem, not a crypto one.
	recipientKeys, err := o.resolveMember(ctx, recipient)
	if err != nil {
		return fmt.Errorf("resolve recipient: %w", err)
	}

	env, err := o.cfg.Pipeline.Encrypt(plaintext, keys, user, recipientKeys, recipient, channel)
	if err != nil {
		return fmt.Errorf("encrypt: %w", err)
	}

	// A logout between encrypt and handoff discards the send; the relay
	// owns delivery only after it has accepted the envelope.
	o.mu.Lock()
	cancelled := o.epoch != epoch
	o.mu.Unlock()
	if cancelled {
		return fmt.Errorf("session ended before handoff: %w", domain.ErrUnauthenticated)
	}

	err = o.withTransportToken(ctx, func(ctx context.Context, tok domain.ScopedToken) error {
		return o.cfg.Transport.Send(ctx, tok, env)
	})
	if err != nil {
		return fmt.Errorf("transport send: %w", err)
	}
	o.cfg.Logger.Debug("envelope handed off",
		slog.String("recipient", recipient.String()),
		slog.String("payload", privacylog.Describe(env.Ciphertext)),
	)
	return nil
}

func (o *Orchestrator) resolveMember(
	ctx context.Context,
	member domain.UserID,
) (domain.PublicKeySet, error) {
	var keys domain.PublicKeySet
	err := o.withDirectoryToken(ctx, func(ctx context.Context, tok domain.ScopedToken) error {
		var err error
		keys, err = o.cfg.Directory.Resolve(ctx, tok, member)
		return err
	})
	return keys, err
}

// HandleInbound decrypts and verifies one envelope delivered by the
// transport. On a verification failure it re-resolves the sender once,
// bypassing the cache, to cover the key-rotation race; if the envelope
// still does not verify, the caller gets a distinguishable unverifiable
// message rather than a silent drop.
func (o *Orchestrator) HandleInbound(
	ctx context.Context,
	env domain.Envelope,
) (domain.ReceivedMessage, error) {
	o.mu.Lock()
	if o.state < StateCryptoReady {
		o.mu.Unlock()
		return domain.ReceivedMessage{}, fmt.Errorf("receive in state %s: %w", o.state, domain.ErrUnauthenticated)
	}
	keys := o.keys
	o.mu.Unlock()

	unverified := domain.ReceivedMessage{
		From:      env.SenderID,
		To:        env.RecipientID,
		ChannelID: env.ChannelID,
		Verified:  false,
		CreatedAt: env.CreatedAt,
	}

	senderKeys, err := o.resolveMember(ctx, env.SenderID)
	if err != nil {
		return unverified, fmt.Errorf("resolve sender: %w", err)
	}

	plain, err := o.cfg.Pipeline.DecryptAndVerify(env, senderKeys, keys)
	if errors.Is(err, domain.ErrVerificationFailed) {
		// The cached key may predate a rotation. One fresh lookup, then
		// fail closed for good; never re-verify the same inputs twice.
		var freshErr error
		var fresh domain.PublicKeySet
		freshErr = o.withDirectoryToken(ctx, func(ctx context.Context, tok domain.ScopedToken) error {
			var err error
			fresh, err = o.cfg.Directory.ResolveFresh(ctx, tok, env.SenderID)
			return err
		})
		if freshErr == nil && fresh != senderKeys {
			plain, err = o.cfg.Pipeline.DecryptAndVerify(env, fresh, keys)
		}
	}
	if err != nil {
		o.cfg.Logger.Warn("inbound envelope rejected",
			slog.String("sender", env.SenderID.String()),
			slog.String("reason", err.Error()),
		)
		return unverified, err
	}

	return domain.ReceivedMessage{
		From:      env.SenderID,
		To:        env.RecipientID,
		ChannelID: env.ChannelID,
		Plaintext: plain,
		Verified:  true,
		CreatedAt: env.CreatedAt,
	}, nil
}

// PullMessages fetches queued envelopes, decrypts each, and acks only the
// prefix that was fully processed. Unverifiable envelopes are surfaced in
// place, acked, and never block later messages. A transient failure
// mid-batch returns the messages processed so far together with the error;
// the remainder stays queued for the next pull.
func (o *Orchestrator) PullMessages(ctx context.Context, limit int) ([]domain.ReceivedMessage, error) {
	o.mu.Lock()
	if o.state < StateCryptoReady {
		o.mu.Unlock()
		return nil, fmt.Errorf("receive in state %s: %w", o.state, domain.ErrUnauthenticated)
	}
	user := o.user
	o.mu.Unlock()

	var envs []domain.Envelope
	err := o.withTransportToken(ctx, func(ctx context.Context, tok domain.ScopedToken) error {
		var err error
		envs, err = o.cfg.Transport.Fetch(ctx, tok, user, limit)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetch messages: %w", err)
	}

	out := make([]domain.ReceivedMessage, 0, len(envs))
	processed := 0
	var stopErr error
	for i, env := range envs {
		msg, inErr := o.HandleInbound(ctx, env)
		if inErr != nil && !errors.Is(inErr, domain.ErrVerificationFailed) && !errors.Is(inErr, domain.ErrNotFound) {
			// Transient failure: stop without acking the rest so the
			// caller sees an incomplete batch.
			stopErr = inErr
			break
		}
		out = append(out, msg)
		processed = i + 1
	}

	if processed > 0 {
		err := o.withTransportToken(ctx, func(ctx context.Context, tok domain.ScopedToken) error {
			return o.cfg.Transport.Ack(ctx, tok, user, processed)
		})
		if err != nil {
			return out, fmt.Errorf("ack %d messages: %w", processed, err)
		}
	}
	if stopErr != nil {
		return out, fmt.Errorf("pull stopped at %d of %d: %w", processed, len(envs), stopErr)
	}
	return out, nil
}

// Logout tears the session down: the in-memory private key is wiped, both
// tokens and the directory cache are invalidated, and any send that has not
// reached the transport is discarded. The encrypted on-disk key copy
// survives per local policy.
func (o *Orchestrator) Logout() {
	o.mu.Lock()
	crypto.WipeKeyPair(&o.keys)
	o.keys = domain.KeyPair{}
	o.auth = domain.AuthSession{}
	o.apiKey = ""
	o.tokens = make(map[domain.Audience]domain.ScopedToken)
	o.channels = make(map[domain.ChannelID][]domain.UserID)
	o.epoch++
	user := o.user
	o.user = ""
	o.state = StateUnauthenticated
	o.mu.Unlock()

	o.cfg.Directory.Reset()
	o.cfg.Logger.Info("logged out", slog.String("subject", user.String()))
}

// call runs one dependency call under the per-call deadline.
func (o *Orchestrator) call(ctx context.Context, op func(ctx context.Context) error) error {
	c, cancel := context.WithTimeout(ctx, o.cfg.CallTimeout)
	defer cancel()
	return op(c)
}

func (o *Orchestrator) withRetry(ctx context.Context, op func(ctx context.Context) error) error {
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), o.cfg.MaxRetries), ctx)
	return backoff.Retry(func() error {
		err := o.call(ctx, op)
		if err == nil {
			return nil
		}
		if domain.Retryable(err) {
			return err
		}
		return backoff.Permanent(err)
	}, bo)
}
