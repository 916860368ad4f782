package session

// State tracks how far a client session has bootstrapped. Transitions move
// forward one step at a time; a failed step leaves the session at the last
// completed state.
type State int

const (
	// StateUnauthenticated is the initial and post-logout state.
	StateUnauthenticated State = iota
	// StateLocalAuthenticated means local auth produced a session.
	StateLocalAuthenticated
	// StateTransportReady means a transport token exists and the relay
	// accepted the connection.
	StateTransportReady
	// StateCryptoReady means a directory token exists and the local identity
	// keys are registered.
	StateCryptoReady
	// StateChannelActive means a channel with at least one counterparty has
	// been joined; messages can flow.
	StateChannelActive
)

// String returns a short name for logging and errors.
func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateLocalAuthenticated:
		return "local-authenticated"
	case StateTransportReady:
		return "transport-ready"
	case StateCryptoReady:
		return "crypto-ready"
	case StateChannelActive:
		return "channel-active"
	default:
		return "unknown"
	}
}
