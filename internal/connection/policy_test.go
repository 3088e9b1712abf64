package connection

import (
	"testing"
	"time"

	"github.com/onurcolak/wa-pairing-service/environments"
	"github.com/onurcolak/wa-pairing-service/internal/domain"
)

func TestActionFor(t *testing.T) {
	tests := []struct {
		reason domain.DisconnectReason
		action Action
		known  bool
	}{
		{domain.ReasonLoggedOut, ActionWipeAndReconnect, true},
		{domain.ReasonBadSession, ActionWipeAndReconnect, true},
		{domain.ReasonConnectionClosed, ActionReconnect, true},
		{domain.ReasonConnectionLost, ActionReconnect, true},
		{domain.ReasonConnectionReplaced, ActionReconnect, true},
		{domain.ReasonTimedOut, ActionReconnect, true},
		{domain.ReasonRestartRequired, ActionReconnect, true},
		{domain.ReasonBanned, ActionStop, true},
		{domain.ReasonClientOutdated, ActionStop, true},
		{domain.DisconnectReason("something_new"), ActionReconnectConservative, false},
	}

	for _, tt := range tests {
		action, known := ActionFor(tt.reason)
		if action != tt.action || known != tt.known {
			t.Errorf("ActionFor(%q) = (%s, %v), want (%s, %v)", tt.reason, action, known, tt.action, tt.known)
		}
	}
}

func TestPolicy_Delay(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name    string
		action  Action
		attempt int
		want    time.Duration
	}{
		{"first transient", ActionReconnect, 0, 2 * time.Second},
		{"second transient", ActionReconnect, 1, 4 * time.Second},
		{"third transient", ActionReconnect, 2, 8 * time.Second},
		{"capped", ActionReconnect, 10, 60 * time.Second},
		{"huge attempt stays capped", ActionReconnect, 200, 60 * time.Second},
		{"logged out", ActionWipeAndReconnect, 5, 1500 * time.Millisecond},
		{"unknown reason floor", ActionReconnectConservative, 0, 10 * time.Second},
		{"unknown reason grows", ActionReconnectConservative, 4, 32 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Delay(tt.action, tt.attempt); got != tt.want {
				t.Errorf("Delay(%s, %d) = %v, want %v", tt.action, tt.attempt, got, tt.want)
			}
		})
	}
}

func TestPolicy_DelayWithoutBackoff(t *testing.T) {
	p := DefaultPolicy()
	p.Backoff = false

	for attempt := 0; attempt < 5; attempt++ {
		if got := p.Delay(ActionReconnect, attempt); got != p.BaseDelay {
			t.Errorf("attempt %d: expected fixed delay %v, got %v", attempt, p.BaseDelay, got)
		}
	}
}

func TestPolicyFromConfig(t *testing.T) {
	p := PolicyFromConfig(environments.ConnectionConfig{
		BaseDelay:            time.Second,
		Backoff:              false,
		MaxReconnectAttempts: 3,
	})

	if p.BaseDelay != time.Second || p.Backoff || p.MaxAttempts != 3 {
		t.Errorf("configured values not applied: %+v", p)
	}
	def := DefaultPolicy()
	if p.MaxDelay != def.MaxDelay || p.LoggedOutDelay != def.LoggedOutDelay || p.UnknownReasonDelay != def.UnknownReasonDelay {
		t.Errorf("expected zero values to keep defaults: %+v", p)
	}
}
