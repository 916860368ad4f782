package types

import "time"

// AuthSession is the opaque local-auth result a client escalates into scoped
// tokens. It lives only for the process lifetime of the client.
type AuthSession struct {
	SubjectID  UserID    `json:"subject_id"`
	LocalToken string    `json:"local_token"`
	IssuedAt   time.Time `json:"issued_at"`
	NotAfter   time.Time `json:"not_after"`
}

// Expired reports whether the session is past its lifetime at now.
func (s AuthSession) Expired(now time.Time) bool {
	return !now.Before(s.NotAfter)
}

// ScopedToken grants access to exactly one audience for a bounded lifetime.
type ScopedToken struct {
	Audience  Audience  `json:"audience"`
	SubjectID UserID    `json:"subject_id"`
	Token     string    `json:"token"`
	NotAfter  time.Time `json:"not_after"`
}

// ExpiresWithin reports whether the token expires before now+window.
func (t ScopedToken) ExpiresWithin(now time.Time, window time.Duration) bool {
	return !now.Add(window).Before(t.NotAfter)
}

// TransportProfile is the user record the issuer provisions at the relay
// when a transport token is minted.
type TransportProfile struct {
	ID    UserID `json:"id"`
	Role  string `json:"role"`
	Image string `json:"image,omitempty"`
}

// TransportCredentials is what a transport-credential issuance returns: the
// scoped token plus the relay-side account it provisioned.
type TransportCredentials struct {
	Token   ScopedToken
	APIKey  string
	Profile TransportProfile
}
