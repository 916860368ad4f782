package domain

import (
	interfaces "murmur/internal/domain/interfaces"
	types "murmur/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	UserID               = types.UserID
	ChannelID            = types.ChannelID
	Fingerprint          = types.Fingerprint
	Audience             = types.Audience
	KeyPair              = types.KeyPair
	PublicKeySet         = types.PublicKeySet
	BoxPublicKey         = types.BoxPublicKey
	BoxPrivateKey        = types.BoxPrivateKey
	SignPublicKey        = types.SignPublicKey
	SignPrivateKey       = types.SignPrivateKey
	AuthSession          = types.AuthSession
	ScopedToken          = types.ScopedToken
	TransportProfile     = types.TransportProfile
	TransportCredentials = types.TransportCredentials
	Envelope             = types.Envelope
	ReceivedMessage      = types.ReceivedMessage
	DirectoryRecord      = types.DirectoryRecord
	DirectoryCacheEntry  = types.DirectoryCacheEntry
)

// Audience constants re-exported for callers importing only domain.
const (
	AudienceTransport = types.AudienceTransport
	AudienceDirectory = types.AudienceDirectory
)

// Interface aliases expose domain contracts from the interfaces subpackage.
type (
	Issuer    = interfaces.Issuer
	Directory = interfaces.Directory
	Transport = interfaces.Transport
	KeyStore  = interfaces.KeyStore
	Pipeline  = interfaces.Pipeline
)
