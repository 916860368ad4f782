package crypto

import (
	"crypto/rand"
	"errors"

	"golang.org/x/crypto/nacl/box"

	"murmur/internal/domain"
)

// NonceBytes is the box nonce length prepended to every sealed payload.
const NonceBytes = 24

// ErrOpenFailed is returned when a sealed payload cannot be opened with the
// given key pair.
var ErrOpenFailed = errors.New("sealed payload did not open")

// Seal encrypts plaintext from the sender's box key to the recipient's. The
// random nonce is prepended to the returned ciphertext.
func Seal(
	plaintext []byte,
	senderPriv domain.BoxPrivateKey,
	recipientPub domain.BoxPublicKey,
) ([]byte, error) {
	var nonce [NonceBytes]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, err
	}
	priv := [32]byte(senderPriv)
	pub := [32]byte(recipientPub)
	out := box.Seal(nonce[:], plaintext, &nonce, &pub, &priv)
	return out, nil
}

// Open reverses Seal. The nonce is read from the front of ciphertext.
func Open(
	ciphertext []byte,
	senderPub domain.BoxPublicKey,
	recipientPriv domain.BoxPrivateKey,
) ([]byte, error) {
	if len(ciphertext) < NonceBytes+box.Overhead {
		return nil, ErrOpenFailed
	}
	var nonce [NonceBytes]byte
	copy(nonce[:], ciphertext[:NonceBytes])
	priv := [32]byte(recipientPriv)
	pub := [32]byte(senderPub)
	plain, ok := box.Open(nil, ciphertext[NonceBytes:], &nonce, &pub, &priv)
	if !ok {
		return nil, ErrOpenFailed
	}
	return plain, nil
}
