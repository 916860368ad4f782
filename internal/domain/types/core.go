package types

// UserID is a stable identity registered with the issuer and directory.
type UserID string

// String returns the string form of the user id.
func (u UserID) String() string { return string(u) }

// ChannelID identifies a conversation, either 1:1 or multi-party.
type ChannelID string

// String returns the string form of the channel id.
func (c ChannelID) String() string { return string(c) }

// Fingerprint is a short identifier for public keys presented to users.
type Fingerprint string

// String returns the string form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }

// Audience scopes a token to exactly one downstream consumer.
type Audience string

const (
	// AudienceTransport tokens are accepted only by the message relay.
	AudienceTransport Audience = "transport"
	// AudienceDirectory tokens are accepted only by the key directory.
	AudienceDirectory Audience = "directory"
)

// Valid reports whether a is one of the known audiences.
func (a Audience) Valid() bool {
	return a == AudienceTransport || a == AudienceDirectory
}
