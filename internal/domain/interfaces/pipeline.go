package interfaces

import domaintypes "murmur/internal/domain/types"

// Pipeline turns plaintext into verifiable envelopes and back. It is
// strictly two-party; group fan-out is the orchestrator's job.
type Pipeline interface {
	// Encrypt seals plaintext for the recipient and signs the addressing
	// fields, ciphertext, and creation time with the sender's signing key.
	Encrypt(
		plaintext []byte,
		sender domaintypes.KeyPair,
		senderID domaintypes.UserID,
		recipient domaintypes.PublicKeySet,
		recipientID domaintypes.UserID,
		channel domaintypes.ChannelID,
	) (domaintypes.Envelope, error)

	// DecryptAndVerify releases plaintext only after the signature checks
	// out against the sender's published keys. Any mismatch fails closed
	// with ErrVerificationFailed and no plaintext.
	DecryptAndVerify(
		env domaintypes.Envelope,
		sender domaintypes.PublicKeySet,
		recipient domaintypes.KeyPair,
	) ([]byte, error)
}
