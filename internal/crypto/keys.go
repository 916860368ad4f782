package crypto

import (
	"crypto/ed25519"
	"crypto/rand"

	"golang.org/x/crypto/curve25519"

	"murmur/internal/domain"
)

// GenerateKeyPair returns fresh long-term key material: a Curve25519 pair
// for sealing and an Ed25519 pair for signing. The Curve25519 private key is
// clamped per RFC 7748.
func GenerateKeyPair() (domain.KeyPair, error) {
	var kp domain.KeyPair

	var boxPriv domain.BoxPrivateKey
	if _, err := rand.Read(boxPriv[:]); err != nil {
		return domain.KeyPair{}, err
	}
	clamp(&boxPriv)
	pub, err := curve25519.X25519(boxPriv.Slice(), curve25519.Basepoint)
	if err != nil {
		return domain.KeyPair{}, err
	}
	copy(kp.BoxPub[:], pub)
	kp.BoxPriv = boxPriv

	edPub, edPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return domain.KeyPair{}, err
	}
	copy(kp.SignPub[:], edPub)
	copy(kp.SignPriv[:], edPriv)
	return kp, nil
}

func clamp(k *domain.BoxPrivateKey) {
	kb := k[:]
	kb[0] &= 248
	kb[31] &= 127
	kb[31] |= 64
}
