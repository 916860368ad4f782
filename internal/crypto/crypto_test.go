package crypto_test

import (
	"bytes"
	"testing"

	"murmur/internal/crypto"
	"murmur/internal/domain"
)

func TestSealOpen_RoundTrip(t *testing.T) {
	alice, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	bob, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}

	plain := []byte("hi bob")
	ct, err := crypto.Seal(plain, alice.BoxPriv, bob.BoxPub)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	got, err := crypto.Open(ct, alice.BoxPub, bob.BoxPriv)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !bytes.Equal(got, plain) {
		t.Fatalf("round trip mismatch: got %q", got)
	}
}

func TestOpen_WrongRecipient_Fails(t *testing.T) {
	alice, _ := crypto.GenerateKeyPair()
	bob, _ := crypto.GenerateKeyPair()
	eve, _ := crypto.GenerateKeyPair()

	ct, err := crypto.Seal([]byte("secret"), alice.BoxPriv, bob.BoxPub)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if _, err := crypto.Open(ct, alice.BoxPub, eve.BoxPriv); err == nil {
		t.Fatal("expected open to fail for the wrong recipient key")
	}
}

func TestOpen_TruncatedCiphertext_Fails(t *testing.T) {
	alice, _ := crypto.GenerateKeyPair()
	if _, err := crypto.Open([]byte{1, 2, 3}, alice.BoxPub, alice.BoxPriv); err == nil {
		t.Fatal("expected open to fail on truncated input")
	}
}

func TestSignVerify(t *testing.T) {
	kp, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	msg := []byte("canonical bytes")
	sig := crypto.Sign(kp.SignPriv, msg)
	if !crypto.Verify(kp.SignPub, msg, sig) {
		t.Fatal("valid signature rejected")
	}
	msg[0] ^= 0xff
	if crypto.Verify(kp.SignPub, msg, sig) {
		t.Fatal("tampered message accepted")
	}
}

func TestFingerprint_StablePerKeySet(t *testing.T) {
	kp, _ := crypto.GenerateKeyPair()
	other, _ := crypto.GenerateKeyPair()

	a := crypto.Fingerprint(kp.Public())
	b := crypto.Fingerprint(kp.Public())
	if a != b {
		t.Fatalf("fingerprint not stable: %q vs %q", a, b)
	}
	if a == crypto.Fingerprint(other.Public()) {
		t.Fatal("distinct key sets share a fingerprint")
	}
}

func TestWipeKeyPair(t *testing.T) {
	kp, _ := crypto.GenerateKeyPair()
	crypto.WipeKeyPair(&kp)
	if kp.BoxPriv != (domain.BoxPrivateKey{}) || kp.SignPriv != (domain.SignPrivateKey{}) {
		t.Fatal("private halves not zeroed")
	}
}
