package types

import "encoding/binary"

// envelopeSigV1 versions the canonical signing layout. Bump only with a
// migration path for queued envelopes.
const envelopeSigV1 = 0x01

// Envelope is the signed ciphertext unit relayed between clients. Envelopes
// are immutable once created; verification rejects, it never mutates.
type Envelope struct {
	SenderID    UserID    `json:"sender_id"`
	RecipientID UserID    `json:"recipient_id"`
	ChannelID   ChannelID `json:"channel_id,omitempty"`
	Ciphertext  []byte    `json:"ciphertext"`
	Signature   []byte    `json:"signature"`
	CreatedAt   int64     `json:"created_at"`
}

// SigningBytes returns the canonical byte layout the sender signs: a version
// byte, each addressing field and the ciphertext length-prefixed, then the
// creation time fixed-width. Any altered field changes these bytes.
func (e Envelope) SigningBytes() []byte {
	fields := [][]byte{
		[]byte(e.SenderID),
		[]byte(e.RecipientID),
		[]byte(e.ChannelID),
		e.Ciphertext,
	}
	n := 1 + 8
	for _, f := range fields {
		n += 4 + len(f)
	}
	out := make([]byte, 0, n)
	out = append(out, envelopeSigV1)
	for _, f := range fields {
		out = binary.BigEndian.AppendUint32(out, uint32(len(f)))
		out = append(out, f...)
	}
	out = binary.BigEndian.AppendUint64(out, uint64(e.CreatedAt))
	return out
}

// ReceivedMessage is what the orchestrator surfaces to the UI layer for an
// inbound envelope.
type ReceivedMessage struct {
	From      UserID    `json:"from"`
	To        UserID    `json:"to"`
	ChannelID ChannelID `json:"channel_id,omitempty"`
	Plaintext []byte    `json:"plaintext,omitempty"`
	Verified  bool      `json:"verified"`
	CreatedAt int64     `json:"created_at"`
}
