package crypto

import (
	"crypto/sha256"

	"github.com/mr-tron/base58"

	"murmur/internal/domain"
)

// Fingerprint returns a short display form of a public key set: SHA-256 over
// the box key followed by the signing key, truncated to 10 bytes and
// base58-encoded.
func Fingerprint(keys domain.PublicKeySet) domain.Fingerprint {
	h := sha256.New()
	h.Write(keys.Box.Slice())
	h.Write(keys.Sign.Slice())
	sum := h.Sum(nil)
	return domain.Fingerprint(base58.Encode(sum[:10]))
}
