package transport_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"murmur/internal/domain"
	"murmur/internal/transport"
)

func token(user domain.UserID, aud domain.Audience) domain.ScopedToken {
	return domain.ScopedToken{
		Audience:  aud,
		SubjectID: user,
		Token:     "tok-" + user.String(),
		NotAfter:  time.Now().Add(time.Hour),
	}
}

func TestMemory_SendFetchAck(t *testing.T) {
	m := transport.NewMemory()
	ctx := context.Background()
	alice := token("alice", domain.AudienceTransport)
	bob := token("bob", domain.AudienceTransport)

	env := domain.Envelope{SenderID: "alice", RecipientID: "bob", Ciphertext: []byte{1}}
	if err := m.Send(ctx, alice, env); err != nil {
		t.Fatalf("Send: %v", err)
	}

	got, err := m.Fetch(ctx, bob, "bob", 0)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(got) != 1 || got[0].SenderID != "alice" {
		t.Fatalf("unexpected queue contents: %+v", got)
	}

	if err := m.Ack(ctx, bob, "bob", 1); err != nil {
		t.Fatalf("Ack: %v", err)
	}
	got, err = m.Fetch(ctx, bob, "bob", 0)
	if err != nil {
		t.Fatalf("Fetch after ack: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("queue not drained: %+v", got)
	}
}

func TestMemory_DirectoryTokenRejected(t *testing.T) {
	m := transport.NewMemory()
	ctx := context.Background()
	dirTok := token("alice", domain.AudienceDirectory)

	err := m.Send(ctx, dirTok, domain.Envelope{SenderID: "alice", RecipientID: "bob"})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("want ErrForbidden for directory token, got %v", err)
	}
	if err := m.Connect(ctx, dirTok, "alice"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("connect with directory token: want ErrForbidden, got %v", err)
	}
}

func TestMemory_SpoofedSenderRejected(t *testing.T) {
	m := transport.NewMemory()
	eve := token("eve", domain.AudienceTransport)

	err := m.Send(context.Background(), eve, domain.Envelope{SenderID: "alice", RecipientID: "bob"})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("want ErrForbidden for spoofed sender claim, got %v", err)
	}
}

func TestMemory_ExpiredToken(t *testing.T) {
	m := transport.NewMemory()
	expired := token("alice", domain.AudienceTransport)
	expired.NotAfter = time.Now().Add(-time.Minute)

	err := m.Send(context.Background(), expired, domain.Envelope{SenderID: "alice", RecipientID: "bob"})
	if !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("want ErrUnauthenticated for expired token, got %v", err)
	}
}

func TestMemory_FetchOtherQueueForbidden(t *testing.T) {
	m := transport.NewMemory()
	alice := token("alice", domain.AudienceTransport)

	if _, err := m.Fetch(context.Background(), alice, "bob", 0); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("want ErrForbidden fetching another queue, got %v", err)
	}
}
