package pipeline

import (
	"time"

	"murmur/internal/crypto"
	"murmur/internal/domain"
)

// Service builds and consumes signed ciphertext envelopes.
//
// Encrypt seals plaintext to the recipient's box key and signs the canonical
// envelope bytes (sender, recipient, channel, ciphertext, creation time)
// with the sender's signing key, so the relay cannot alter any field without
// detection.
//
// DecryptAndVerify is atomic from the caller's perspective: plaintext is
// released only when the signature over the envelope checks out against the
// sender's published signing key. A decryptable-but-unsigned or tampered
// envelope yields ErrVerificationFailed and nothing else.
type Service struct {
	now func() time.Time
}

// New returns a pipeline using wall-clock envelope timestamps.
func New() *Service { return &Service{now: time.Now} }

// NewWithClock returns a pipeline with an injected clock for tests.
func NewWithClock(now func() time.Time) *Service { return &Service{now: now} }

// Encrypt produces a signed envelope addressed from senderID to recipientID.
// Encryption is randomized; only invertibility by the correct recipient pair
// is guaranteed. Malformed key material fails with ErrKeyInvalid before any
// sealing happens.
func (s *Service) Encrypt(
	plaintext []byte,
	sender domain.KeyPair,
	senderID domain.UserID,
	recipient domain.PublicKeySet,
	recipientID domain.UserID,
	channel domain.ChannelID,
) (domain.Envelope, error) {
	if sender.BoxPriv == (domain.BoxPrivateKey{}) || sender.SignPriv == (domain.SignPrivateKey{}) {
		return domain.Envelope{}, domain.ErrKeyInvalid
	}
	if recipient.Box == (domain.BoxPublicKey{}) {
		return domain.Envelope{}, domain.ErrKeyInvalid
	}

	ct, err := crypto.Seal(plaintext, sender.BoxPriv, recipient.Box)
	if err != nil {
		return domain.Envelope{}, err
	}

	env := domain.Envelope{
		SenderID:    senderID,
		RecipientID: recipientID,
		ChannelID:   channel,
		Ciphertext:  ct,
		CreatedAt:   s.now().Unix(),
	}
	env.Signature = crypto.Sign(sender.SignPriv, env.SigningBytes())
	return env, nil
}

// DecryptAndVerify opens env for the recipient. The signature is checked
// before the box is opened; a valid signature followed by a failed open is
// still ErrVerificationFailed, since either way the envelope cannot be
// attributed to the sender's current keys.
func (s *Service) DecryptAndVerify(
	env domain.Envelope,
	sender domain.PublicKeySet,
	recipient domain.KeyPair,
) ([]byte, error) {
	if sender.IsZero() {
		return nil, domain.ErrKeyInvalid
	}
	if recipient.BoxPriv == (domain.BoxPrivateKey{}) {
		return nil, domain.ErrKeyInvalid
	}

	if !crypto.Verify(sender.Sign, env.SigningBytes(), env.Signature) {
		return nil, domain.ErrVerificationFailed
	}
	plain, err := crypto.Open(env.Ciphertext, sender.Box, recipient.BoxPriv)
	if err != nil {
		return nil, domain.ErrVerificationFailed
	}
	return plain, nil
}

// Compile-time assertion that Service implements domain.Pipeline.
var _ domain.Pipeline = (*Service)(nil)
