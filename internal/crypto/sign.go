package crypto

import (
	"crypto/ed25519"

	"murmur/internal/domain"
)

// Sign signs msg with the identity's Ed25519 key.
func Sign(priv domain.SignPrivateKey, msg []byte) []byte {
	return ed25519.Sign(ed25519.PrivateKey(priv[:]), msg)
}

// Verify checks sig over msg against the identity's Ed25519 public key.
func Verify(pub domain.SignPublicKey, msg, sig []byte) bool {
	return ed25519.Verify(ed25519.PublicKey(pub[:]), msg, sig)
}
