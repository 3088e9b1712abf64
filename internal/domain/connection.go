package domain

import (
	"context"
	"time"
)

type ConnectionState string

const (
	StateIdle       ConnectionState = "idle"
	StateConnecting ConnectionState = "connecting"
	StateOpen       ConnectionState = "open"
	StateClosed     ConnectionState = "closed"
)

// DisconnectReason describes why the protocol client closed. The connection
// manager maps each reason to a recovery action.
type DisconnectReason string

const (
	ReasonNone               DisconnectReason = ""
	ReasonLoggedOut          DisconnectReason = "logged_out"
	ReasonBadSession         DisconnectReason = "bad_session"
	ReasonConnectionClosed   DisconnectReason = "connection_closed"
	ReasonConnectionLost     DisconnectReason = "connection_lost"
	ReasonConnectionReplaced DisconnectReason = "connection_replaced"
	ReasonTimedOut           DisconnectReason = "timed_out"
	ReasonRestartRequired    DisconnectReason = "restart_required"
	ReasonConnectFailed      DisconnectReason = "connect_failed"
	ReasonBanned             DisconnectReason = "banned"
	ReasonClientOutdated     DisconnectReason = "client_outdated"
)

// ConnectionEvent is emitted by the protocol client adapter on every state
// change. Reason is only set for StateClosed. Identity is set for StateOpen
// once the session is logged in; QRCodes while it is still unpaired.
type ConnectionEvent struct {
	State    ConnectionState
	Reason   DisconnectReason
	Identity string
	QRCodes  []string
	Detail   string
	At       time.Time
}

// ConnectionHandlers are the callbacks a protocol client invokes. Both may be
// called from the client's own goroutines.
type ConnectionHandlers struct {
	OnStateChange       func(ConnectionEvent)
	OnCredentialsUpdate func()
}

// ProtocolClient is one live link to the provider. A new one is dialed for
// every reconnect; a closed client is never reused.
type ProtocolClient interface {
	RequestPairingCode(ctx context.Context, phone string) (string, error)
	Close()
}
