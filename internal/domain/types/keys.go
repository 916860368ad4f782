package types

import (
	"encoding/json"
	"fmt"

	"github.com/mr-tron/base58"
)

// BoxPublicKey is a Curve25519 public key used for sealing.
type BoxPublicKey [32]byte

// Slice returns the key as a []byte.
func (p BoxPublicKey) Slice() []byte { return p[:] }

// BoxPrivateKey is a Curve25519 private key. It never leaves the owning
// client in any wire format.
type BoxPrivateKey [32]byte

// Slice returns the key as a []byte.
func (k BoxPrivateKey) Slice() []byte { return k[:] }

// SignPublicKey is an Ed25519 verification key.
type SignPublicKey [32]byte

// Slice returns the key as a []byte.
func (p SignPublicKey) Slice() []byte { return p[:] }

// SignPrivateKey is an Ed25519 signing key (ed25519.PrivateKey layout).
type SignPrivateKey [64]byte

// Slice returns the key as a []byte.
func (k SignPrivateKey) Slice() []byte { return k[:] }

// KeyPair holds a client's long-term key material. The private halves exist
// only on the owning client.
type KeyPair struct {
	BoxPub   BoxPublicKey   `json:"box_pub"`
	BoxPriv  BoxPrivateKey  `json:"box_priv"`
	SignPub  SignPublicKey  `json:"sign_pub"`
	SignPriv SignPrivateKey `json:"sign_priv"`
}

// Public returns the shareable half of the pair.
func (kp KeyPair) Public() PublicKeySet {
	return PublicKeySet{Box: kp.BoxPub, Sign: kp.SignPub}
}

// PublicKeySet is the directory-published half of an identity's keys.
type PublicKeySet struct {
	Box  BoxPublicKey  `json:"box"`
	Sign SignPublicKey `json:"sign"`
}

// IsZero reports whether the set carries no key material.
func (s PublicKeySet) IsZero() bool {
	return s.Box == (BoxPublicKey{}) && s.Sign == (SignPublicKey{})
}

// Keys travel as base58 strings in JSON bodies, matching what the directory
// serves. Fixed-size arrays keep accidental reallocation of key material out
// of the hot path.

func marshalKey(b []byte) ([]byte, error) {
	return json.Marshal(base58.Encode(b))
}

func unmarshalKey(data []byte, want int, dst []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	raw, err := base58.Decode(s)
	if err != nil {
		return err
	}
	if len(raw) != want {
		return fmt.Errorf("key: want %d bytes, got %d", want, len(raw))
	}
	copy(dst, raw)
	return nil
}

// MarshalJSON encodes the key as a base58 string.
func (p BoxPublicKey) MarshalJSON() ([]byte, error) { return marshalKey(p[:]) }

// UnmarshalJSON decodes a base58 string.
func (p *BoxPublicKey) UnmarshalJSON(data []byte) error { return unmarshalKey(data, 32, p[:]) }

// MarshalJSON encodes the key as a base58 string.
func (k BoxPrivateKey) MarshalJSON() ([]byte, error) { return marshalKey(k[:]) }

// UnmarshalJSON decodes a base58 string.
func (k *BoxPrivateKey) UnmarshalJSON(data []byte) error { return unmarshalKey(data, 32, k[:]) }

// MarshalJSON encodes the key as a base58 string.
func (p SignPublicKey) MarshalJSON() ([]byte, error) { return marshalKey(p[:]) }

// UnmarshalJSON decodes a base58 string.
func (p *SignPublicKey) UnmarshalJSON(data []byte) error { return unmarshalKey(data, 32, p[:]) }

// MarshalJSON encodes the key as a base58 string.
func (k SignPrivateKey) MarshalJSON() ([]byte, error) { return marshalKey(k[:]) }

// UnmarshalJSON decodes a base58 string.
func (k *SignPrivateKey) UnmarshalJSON(data []byte) error { return unmarshalKey(data, 64, k[:]) }
