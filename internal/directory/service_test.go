package directory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"murmur/internal/crypto"
	"murmur/internal/directory"
	"murmur/internal/domain"
)

func newService(t *testing.T) *directory.Service {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return directory.NewService(rdb)
}

func keySet(t *testing.T) domain.PublicKeySet {
	t.Helper()
	kp, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	return kp.Public()
}

func TestRegisterResolve(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	keys := keySet(t)

	if err := svc.Register(ctx, "alice", "alice", keys); err != nil {
		t.Fatalf("Register: %v", err)
	}
	got, err := svc.Resolve(ctx, "alice")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != keys {
		t.Fatal("resolved keys differ from registered keys")
	}
}

func TestResolve_Unregistered_NotFound(t *testing.T) {
	svc := newService(t)
	if _, err := svc.Resolve(context.Background(), "ghost"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestRegister_SubjectMismatch_Forbidden(t *testing.T) {
	svc := newService(t)
	err := svc.Register(context.Background(), "eve", "alice", keySet(t))
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("want ErrForbidden, got %v", err)
	}
}

func TestRegister_Rotation_ReplacesInPlace(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	first := keySet(t)
	second := keySet(t)

	if err := svc.Register(ctx, "alice", "alice", first); err != nil {
		t.Fatalf("first register: %v", err)
	}
	// Unchanged keys: a no-op, not an error.
	if err := svc.Register(ctx, "alice", "alice", first); err != nil {
		t.Fatalf("idempotent re-register: %v", err)
	}
	if err := svc.Register(ctx, "alice", "alice", second); err != nil {
		t.Fatalf("rotation register: %v", err)
	}

	got, err := svc.Resolve(ctx, "alice")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != second {
		t.Fatal("rotation did not replace the record")
	}
}

func TestRegister_ZeroKeys_Invalid(t *testing.T) {
	svc := newService(t)
	err := svc.Register(context.Background(), "alice", "alice", domain.PublicKeySet{})
	if !errors.Is(err, domain.ErrKeyInvalid) {
		t.Fatalf("want ErrKeyInvalid, got %v", err)
	}
}
