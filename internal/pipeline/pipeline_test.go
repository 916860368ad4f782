package pipeline_test

import (
	"bytes"
	"errors"
	"testing"

	"murmur/internal/crypto"
	"murmur/internal/domain"
	"murmur/internal/pipeline"
)

func makePair(t *testing.T) domain.KeyPair {
	t.Helper()
	kp, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	return kp
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	p := pipeline.New()
	alice := makePair(t)
	bob := makePair(t)

	plain := []byte("hi bob")
	env, err := p.Encrypt(plain, alice, "alice", bob.Public(), "bob", "ch-1")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if env.SenderID != "alice" || env.RecipientID != "bob" || env.ChannelID != "ch-1" {
		t.Fatalf("unexpected addressing: %+v", env)
	}

	got, err := p.DecryptAndVerify(env, alice.Public(), bob)
	if err != nil {
		t.Fatalf("DecryptAndVerify: %v", err)
	}
	if !bytes.Equal(got, plain) {
		t.Fatalf("round trip mismatch: got %q", got)
	}
}

func TestDecryptAndVerify_TamperedFields_FailClosed(t *testing.T) {
	p := pipeline.New()
	alice := makePair(t)
	bob := makePair(t)

	env, err := p.Encrypt([]byte("payload"), alice, "alice", bob.Public(), "bob", "")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	tampered := []struct {
		name   string
		mutate func(e *domain.Envelope)
	}{
		{"ciphertext byte", func(e *domain.Envelope) { e.Ciphertext[0] ^= 0x01 }},
		{"sender id", func(e *domain.Envelope) { e.SenderID = "mallory" }},
		{"recipient id", func(e *domain.Envelope) { e.RecipientID = "mallory" }},
		{"channel id", func(e *domain.Envelope) { e.ChannelID = "other" }},
		{"created at", func(e *domain.Envelope) { e.CreatedAt++ }},
		{"signature byte", func(e *domain.Envelope) { e.Signature[0] ^= 0x01 }},
	}
	for _, tc := range tampered {
		t.Run(tc.name, func(t *testing.T) {
			cp := env
			cp.Ciphertext = append([]byte(nil), env.Ciphertext...)
			cp.Signature = append([]byte(nil), env.Signature...)
			tc.mutate(&cp)

			plain, err := p.DecryptAndVerify(cp, alice.Public(), bob)
			if !errors.Is(err, domain.ErrVerificationFailed) {
				t.Fatalf("want ErrVerificationFailed, got %v", err)
			}
			if plain != nil {
				t.Fatal("plaintext escaped a failed verification")
			}
		})
	}
}

func TestDecryptAndVerify_ForgedSender_Fails(t *testing.T) {
	p := pipeline.New()
	alice := makePair(t)
	bob := makePair(t)
	eve := makePair(t)

	// Eve claims to be alice but can only sign with her own key.
	env, err := p.Encrypt([]byte("pay me"), eve, "alice", bob.Public(), "bob", "")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	// Bob verifies against alice's published keys.
	if _, err := p.DecryptAndVerify(env, alice.Public(), bob); !errors.Is(err, domain.ErrVerificationFailed) {
		t.Fatalf("want ErrVerificationFailed for impersonation, got %v", err)
	}
}

func TestDecryptAndVerify_RotatedKey_OldCacheFails(t *testing.T) {
	p := pipeline.New()
	bob := makePair(t)

	oldAlice := makePair(t)
	newAlice := makePair(t)

	env, err := p.Encrypt([]byte("after rotation"), newAlice, "alice", bob.Public(), "bob", "")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	// A counterparty still holding alice's pre-rotation keys must reject.
	if _, err := p.DecryptAndVerify(env, oldAlice.Public(), bob); !errors.Is(err, domain.ErrVerificationFailed) {
		t.Fatalf("want ErrVerificationFailed with stale keys, got %v", err)
	}
	// And succeed once the current keys are used.
	if _, err := p.DecryptAndVerify(env, newAlice.Public(), bob); err != nil {
		t.Fatalf("current keys should verify: %v", err)
	}
}

func TestEncrypt_MalformedKeys(t *testing.T) {
	p := pipeline.New()
	bob := makePair(t)

	if _, err := p.Encrypt([]byte("x"), domain.KeyPair{}, "alice", bob.Public(), "bob", ""); !errors.Is(err, domain.ErrKeyInvalid) {
		t.Fatalf("want ErrKeyInvalid for zero sender pair, got %v", err)
	}
	alice := makePair(t)
	if _, err := p.Encrypt([]byte("x"), alice, "alice", domain.PublicKeySet{}, "bob", ""); !errors.Is(err, domain.ErrKeyInvalid) {
		t.Fatalf("want ErrKeyInvalid for zero recipient keys, got %v", err)
	}
}

func TestEncrypt_Randomized(t *testing.T) {
	p := pipeline.New()
	alice := makePair(t)
	bob := makePair(t)

	a, _ := p.Encrypt([]byte("same plaintext"), alice, "alice", bob.Public(), "bob", "")
	b, _ := p.Encrypt([]byte("same plaintext"), alice, "alice", bob.Public(), "bob", "")
	if bytes.Equal(a.Ciphertext, b.Ciphertext) {
		t.Fatal("ciphertexts repeat across encryptions")
	}
}
