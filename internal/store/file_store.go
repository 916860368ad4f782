package store

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"

	"murmur/internal/domain"
)

const keysFile = "identity.enc"

// FileStore keeps the local key pair on disk, encrypted under a
// passphrase-derived key. The plaintext JSON form of the pair never touches
// disk.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore returns a store rooted at dir.
func NewFileStore(dir string) *FileStore { return &FileStore{dir: dir} }

// SaveKeyPair encrypts and writes the key pair.
func (s *FileStore) SaveKeyPair(passphrase string, kp domain.KeyPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.Marshal(kp)
	if err != nil {
		return err
	}
	N, r, p := scryptParamsDefault()
	blob, err := encrypt(passphrase, raw, N, r, p)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.dir, keysFile), blob, 0o600)
}

// LoadKeyPair reads and decrypts the key pair. The second return is false
// when no pair has been saved yet.
func (s *FileStore) LoadKeyPair(passphrase string) (domain.KeyPair, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	blob, err := os.ReadFile(filepath.Join(s.dir, keysFile))
	if errors.Is(err, os.ErrNotExist) {
		return domain.KeyPair{}, false, nil
	}
	if err != nil {
		return domain.KeyPair{}, false, err
	}
	raw, err := decrypt(passphrase, blob)
	if err != nil {
		return domain.KeyPair{}, false, err
	}
	var kp domain.KeyPair
	if err := json.Unmarshal(raw, &kp); err != nil {
		return domain.KeyPair{}, false, err
	}
	return kp, true, nil
}

// DeleteKeyPair removes the stored pair. Missing files are not an error.
func (s *FileStore) DeleteKeyPair() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(filepath.Join(s.dir, keysFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// scrypt envelope (parameters fixed here; tune as needed)
func scryptParamsDefault() (N, r, p int) { return 1 << 15, 8, 1 }

type envelope struct {
	Salt []byte
	N    int
	R    int
	P    int
	CT   []byte
}

func encrypt(passphrase string, plaintext []byte, N, r, p int) ([]byte, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	key, err := scrypt.Key([]byte(passphrase), salt, N, r, p, chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	ct := aead.Seal(nonce, nonce, plaintext, nil)
	return json.Marshal(envelope{Salt: salt, N: N, R: r, P: p, CT: ct})
}

func decrypt(passphrase string, blob []byte) ([]byte, error) {
	var env envelope
	if err := json.Unmarshal(blob, &env); err != nil {
		return nil, err
	}
	key, err := scrypt.Key([]byte(passphrase), env.Salt, env.N, env.R, env.P, chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	if len(env.CT) < aead.NonceSize() {
		return nil, fmt.Errorf("key store blob too short")
	}
	nonce, ct := env.CT[:aead.NonceSize()], env.CT[aead.NonceSize():]
	return aead.Open(nil, nonce, ct, nil)
}

// Compile-time assertion that FileStore implements domain.KeyStore.
var _ domain.KeyStore = (*FileStore)(nil)
