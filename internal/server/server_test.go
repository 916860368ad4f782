package server_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"murmur/internal/crypto"
	"murmur/internal/directory"
	"murmur/internal/domain"
	"murmur/internal/issuer"
	"murmur/internal/pipeline"
	"murmur/internal/server"
	"murmur/internal/transport"
)

type backend struct {
	url       string
	issuer    *issuer.Client
	directory *directory.Client
	relay     *transport.Client
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := server.DefaultConfig()
	cfg.Auth.TokenSecret = "0123456789abcdef0123456789abcdef"
	cfg.Auth.APIKey = "local-dev"
	cfg.RateLimit.RPS = 0 // disabled

	srv, err := server.New(cfg, rdb, slog.New(slog.DiscardHandler), prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &backend{
		url:       ts.URL,
		issuer:    issuer.NewClient(ts.URL, ts.Client()),
		directory: directory.NewClient(ts.URL, ts.Client()),
		relay:     transport.NewClient(ts.URL, ts.Client()),
	}
}

type creds struct {
	session   domain.AuthSession
	transport domain.ScopedToken
	directory domain.ScopedToken
}

func (b *backend) login(t *testing.T, user domain.UserID) creds {
	t.Helper()
	ctx := context.Background()
	session, err := b.issuer.Authenticate(ctx, user)
	if err != nil {
		t.Fatalf("Authenticate(%s): %v", user, err)
	}
	tc, err := b.issuer.IssueTransport(ctx, session)
	if err != nil {
		t.Fatalf("IssueTransport(%s): %v", user, err)
	}
	dt, err := b.issuer.IssueDirectory(ctx, session)
	if err != nil {
		t.Fatalf("IssueDirectory(%s): %v", user, err)
	}
	return creds{session: session, transport: tc.Token, directory: dt}
}

func TestEndToEndOverHTTP(t *testing.T) {
	b := newBackend(t)
	ctx := context.Background()

	alice := b.login(t, "alice")
	bob := b.login(t, "bob")

	aliceKeys, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	bobKeys, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	if err := b.directory.Register(ctx, alice.directory, "alice", aliceKeys.Public()); err != nil {
		t.Fatalf("Register alice: %v", err)
	}
	if err := b.directory.Register(ctx, bob.directory, "bob", bobKeys.Public()); err != nil {
		t.Fatalf("Register bob: %v", err)
	}

	resolved, err := b.directory.Resolve(ctx, alice.directory, "bob")
	if err != nil {
		t.Fatalf("Resolve bob: %v", err)
	}
	if resolved != bobKeys.Public() {
		t.Fatal("resolved keys do not match registered keys")
	}

	if err := b.relay.Connect(ctx, alice.transport, "alice"); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	env, err := pipeline.New().Encrypt([]byte("over the wire"), aliceKeys, "alice", resolved, "bob", "dm:alice:bob")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if err := b.relay.Send(ctx, alice.transport, env); err != nil {
		t.Fatalf("Send: %v", err)
	}

	envs, err := b.relay.Fetch(ctx, bob.transport, "bob", 10)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(envs) != 1 {
		t.Fatalf("got %d envelopes, want 1", len(envs))
	}
	plain, err := pipeline.New().DecryptAndVerify(envs[0], aliceKeys.Public(), bobKeys)
	if err != nil {
		t.Fatalf("DecryptAndVerify: %v", err)
	}
	if string(plain) != "over the wire" {
		t.Fatalf("plaintext = %q, want %q", plain, "over the wire")
	}

	if err := b.relay.Ack(ctx, bob.transport, "bob", 1); err != nil {
		t.Fatalf("Ack: %v", err)
	}
	envs, err = b.relay.Fetch(ctx, bob.transport, "bob", 10)
	if err != nil {
		t.Fatalf("Fetch after ack: %v", err)
	}
	if len(envs) != 0 {
		t.Fatalf("queue not drained, %d envelopes remain", len(envs))
	}
}

func TestCrossAudienceRejected(t *testing.T) {
	b := newBackend(t)
	ctx := context.Background()
	alice := b.login(t, "alice")

	keys, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}

	// Transport token at the directory.
	err = b.directory.Register(ctx, alice.transport, "alice", keys.Public())
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("directory with transport token = %v, want ErrForbidden", err)
	}

	// Directory token at the relay.
	err = b.relay.Connect(ctx, alice.directory, "alice")
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("relay with directory token = %v, want ErrForbidden", err)
	}
}

func TestMissingTokenRejected(t *testing.T) {
	b := newBackend(t)
	ctx := context.Background()

	err := b.relay.Connect(ctx, domain.ScopedToken{}, "alice")
	if !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("relay without token = %v, want ErrUnauthenticated", err)
	}
}

func TestSpoofedSenderRejectedAtRelay(t *testing.T) {
	b := newBackend(t)
	ctx := context.Background()
	b.login(t, "alice")
	eve := b.login(t, "eve")

	env := domain.Envelope{SenderID: "alice", RecipientID: "bob", ChannelID: "dm", Ciphertext: []byte{1}}
	err := b.relay.Send(ctx, eve.transport, env)
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("spoofed send = %v, want ErrForbidden", err)
	}
}

func TestRegisterForOtherUserRejected(t *testing.T) {
	b := newBackend(t)
	ctx := context.Background()
	eve := b.login(t, "eve")

	keys, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	err = b.directory.Register(ctx, eve.directory, "alice", keys.Public())
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("register for other user = %v, want ErrForbidden", err)
	}
}

func TestResolveUnknownUser(t *testing.T) {
	b := newBackend(t)
	alice := b.login(t, "alice")

	_, err := b.directory.Resolve(context.Background(), alice.directory, "nobody")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("resolve unknown = %v, want ErrNotFound", err)
	}
}

func TestListUsersOverHTTP(t *testing.T) {
	b := newBackend(t)
	ctx := context.Background()
	alice := b.login(t, "alice")
	b.login(t, "bob")

	users, err := b.issuer.ListUsers(ctx, alice.session)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("got %d users, want 2: %v", len(users), users)
	}
}

func TestRateLimitRejectsBurst(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := server.DefaultConfig()
	cfg.Auth.TokenSecret = "0123456789abcdef0123456789abcdef"
	cfg.RateLimit.RPS = 1
	cfg.RateLimit.Burst = 1

	srv, err := server.New(cfg, rdb, slog.New(slog.DiscardHandler), prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	cli := issuer.NewClient(ts.URL, ts.Client())
	ctx := context.Background()

	// First request consumes the burst; an immediate second is limited.
	if _, err := cli.Authenticate(ctx, "alice"); err != nil {
		t.Fatalf("first Authenticate: %v", err)
	}
	_, err = cli.Authenticate(ctx, "alice")
	if !errors.Is(err, domain.ErrUnavailable) {
		t.Fatalf("second Authenticate = %v, want rate limit rejection", err)
	}
}

func TestHealthz(t *testing.T) {
	b := newBackend(t)
	resp, err := http.Get(b.url + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d, want 200", resp.StatusCode)
	}
}
