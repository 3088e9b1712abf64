package connection

import (
	"time"

	"github.com/onurcolak/wa-pairing-service/environments"
	"github.com/onurcolak/wa-pairing-service/internal/domain"
)

type Action int

const (
	// ActionReconnect keeps credentials and reconnects with backoff.
	ActionReconnect Action = iota
	// ActionWipeAndReconnect deletes credentials before reconnecting.
	ActionWipeAndReconnect
	// ActionReconnectConservative is used for reasons we do not recognize.
	ActionReconnectConservative
	// ActionStop disables auto-reconnect until Reset.
	ActionStop
)

func (a Action) String() string {
	switch a {
	case ActionReconnect:
		return "reconnect"
	case ActionWipeAndReconnect:
		return "wipe_and_reconnect"
	case ActionReconnectConservative:
		return "reconnect_conservative"
	case ActionStop:
		return "stop"
	default:
		return "unknown"
	}
}

var reasonActions = map[domain.DisconnectReason]Action{
	domain.ReasonLoggedOut:  ActionWipeAndReconnect,
	domain.ReasonBadSession: ActionWipeAndReconnect,

	domain.ReasonConnectionClosed:   ActionReconnect,
	domain.ReasonConnectionLost:     ActionReconnect,
	domain.ReasonConnectionReplaced: ActionReconnect,
	domain.ReasonTimedOut:           ActionReconnect,
	domain.ReasonRestartRequired:    ActionReconnect,
	domain.ReasonConnectFailed:      ActionReconnect,

	domain.ReasonBanned:         ActionStop,
	domain.ReasonClientOutdated: ActionStop,
}

// ActionFor returns the recovery action for a disconnect reason and whether
// the reason was recognized.
func ActionFor(reason domain.DisconnectReason) (Action, bool) {
	action, ok := reasonActions[reason]
	if !ok {
		return ActionReconnectConservative, false
	}
	return action, true
}

// Policy holds the reconnect timing knobs.
type Policy struct {
	BaseDelay          time.Duration
	MaxDelay           time.Duration
	Backoff            bool
	LoggedOutDelay     time.Duration
	UnknownReasonDelay time.Duration
	MaxAttempts        int
}

func DefaultPolicy() Policy {
	return Policy{
		BaseDelay:          2 * time.Second,
		MaxDelay:           60 * time.Second,
		Backoff:            true,
		LoggedOutDelay:     1500 * time.Millisecond,
		UnknownReasonDelay: 10 * time.Second,
		MaxAttempts:        10,
	}
}

// PolicyFromConfig overlays the configured values on the defaults. Zero
// durations and counts keep the default.
func PolicyFromConfig(cfg environments.ConnectionConfig) Policy {
	p := DefaultPolicy()
	p.Backoff = cfg.Backoff
	if cfg.BaseDelay > 0 {
		p.BaseDelay = cfg.BaseDelay
	}
	if cfg.MaxDelay > 0 {
		p.MaxDelay = cfg.MaxDelay
	}
	if cfg.LoggedOutDelay > 0 {
		p.LoggedOutDelay = cfg.LoggedOutDelay
	}
	if cfg.UnknownReasonDelay > 0 {
		p.UnknownReasonDelay = cfg.UnknownReasonDelay
	}
	if cfg.MaxReconnectAttempts > 0 {
		p.MaxAttempts = cfg.MaxReconnectAttempts
	}
	return p
}

// Delay returns how long to wait before reconnecting for the given action.
// attempt is zero-based: the first transient failure uses attempt 0.
func (p Policy) Delay(action Action, attempt int) time.Duration {
	switch action {
	case ActionWipeAndReconnect:
		return p.LoggedOutDelay
	case ActionReconnectConservative:
		return max(p.UnknownReasonDelay, p.backoff(attempt))
	default:
		return p.backoff(attempt)
	}
}

// backoff computes min(base * 2^attempt, max) when enabled, base otherwise.
func (p Policy) backoff(attempt int) time.Duration {
	if !p.Backoff || attempt <= 0 {
		return p.BaseDelay
	}
	if attempt > 30 {
		attempt = 30
	}
	delay := p.BaseDelay << uint(attempt)
	if p.MaxDelay > 0 && (delay > p.MaxDelay || delay <= 0) {
		delay = p.MaxDelay
	}
	return delay
}
