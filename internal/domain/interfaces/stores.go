package interfaces

import domaintypes "murmur/internal/domain/types"

// KeyStore persists the client's long-term key pair, encrypted under a
// passphrase. The private halves never leave this store unencrypted except
// into the caller's memory.
type KeyStore interface {
	SaveKeyPair(passphrase string, kp domaintypes.KeyPair) error
	LoadKeyPair(passphrase string) (domaintypes.KeyPair, bool, error)
	DeleteKeyPair() error
}
