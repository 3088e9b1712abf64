package whatsapp

import (
	"sync"
	"testing"
	"time"

	"go.mau.fi/whatsmeow/types/events"

	"github.com/onurcolak/wa-pairing-service/internal/domain"
)

type eventRecorder struct {
	mu          sync.Mutex
	events      []domain.ConnectionEvent
	credUpdates int
}

func (r *eventRecorder) handlers() domain.ConnectionHandlers {
	return domain.ConnectionHandlers{
		OnStateChange: func(evt domain.ConnectionEvent) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, evt)
		},
		OnCredentialsUpdate: func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.credUpdates++
		},
	}
}

func (r *eventRecorder) snapshot() []domain.ConnectionEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.ConnectionEvent(nil), r.events...)
}

func newTestClient() (*Client, *eventRecorder, chan struct{}) {
	rec := &eventRecorder{}
	disconnected := make(chan struct{}, 1)
	c := &Client{
		handlers: rec.handlers(),
		disconnect: func() {
			disconnected <- struct{}{}
		},
	}
	return c, rec, disconnected
}

func TestHandleEvent_DisconnectReasons(t *testing.T) {
	tests := []struct {
		name string
		evt  any
		want domain.DisconnectReason
	}{
		{"logged out", &events.LoggedOut{Reason: events.ConnectFailureLoggedOut}, domain.ReasonLoggedOut},
		{"stream replaced", &events.StreamReplaced{}, domain.ReasonConnectionReplaced},
		{"temporary ban", &events.TemporaryBan{Code: events.TempBanSentToTooManyPeople, Expire: time.Hour}, domain.ReasonBanned},
		{"client outdated", &events.ClientOutdated{}, domain.ReasonClientOutdated},
		{"connect failure logged out", &events.ConnectFailure{Reason: events.ConnectFailureLoggedOut}, domain.ReasonLoggedOut},
		{"connect failure main device gone", &events.ConnectFailure{Reason: events.ConnectFailureMainDeviceGone}, domain.ReasonLoggedOut},
		{"connect failure client outdated", &events.ConnectFailure{Reason: events.ConnectFailureClientOutdated}, domain.ReasonClientOutdated},
		{"connect failure other", &events.ConnectFailure{Reason: events.ConnectFailureServiceUnavailable}, domain.ReasonConnectFailed},
		{"restart required", &events.ManualLoginReconnect{}, domain.ReasonRestartRequired},
		{"stream error", &events.StreamError{Code: "409"}, domain.DisconnectReason("stream_error_409")},
		{"websocket disconnected", &events.Disconnected{}, domain.ReasonConnectionClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec, _ := newTestClient()
			c.handleEvent(tt.evt)

			got := rec.snapshot()
			if len(got) != 1 {
				t.Fatalf("expected 1 event, got %d", len(got))
			}
			if got[0].State != domain.StateClosed {
				t.Errorf("expected state closed, got %q", got[0].State)
			}
			if got[0].Reason != tt.want {
				t.Errorf("expected reason %q, got %q", tt.want, got[0].Reason)
			}
			if got[0].At.IsZero() {
				t.Error("expected event timestamp to be set")
			}
		})
	}
}

func TestHandleEvent_KeepAliveBelowLimitIsIgnored(t *testing.T) {
	c, rec, disconnected := newTestClient()

	c.handleEvent(&events.KeepAliveTimeout{ErrorCount: keepAliveFailureLimit - 1, LastSuccess: time.Now()})

	if got := rec.snapshot(); len(got) != 0 {
		t.Fatalf("expected no events, got %+v", got)
	}
	select {
	case <-disconnected:
		t.Fatal("expected no disconnect below the limit")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestHandleEvent_KeepAliveAtLimitTimesOut(t *testing.T) {
	c, rec, disconnected := newTestClient()

	c.handleEvent(&events.KeepAliveTimeout{ErrorCount: keepAliveFailureLimit, LastSuccess: time.Now()})

	got := rec.snapshot()
	if len(got) != 1 || got[0].Reason != domain.ReasonTimedOut {
		t.Fatalf("expected one timed_out event, got %+v", got)
	}
	select {
	case <-disconnected:
	case <-time.After(time.Second):
		t.Fatal("expected socket to be disconnected")
	}
}

func TestHandleEvent_OnlyFirstCloseIsEmitted(t *testing.T) {
	c, rec, _ := newTestClient()

	c.handleEvent(&events.StreamReplaced{})
	c.handleEvent(&events.Disconnected{})
	c.handleEvent(&events.LoggedOut{})

	got := rec.snapshot()
	if len(got) != 1 {
		t.Fatalf("expected 1 closed event, got %d", len(got))
	}
	if got[0].Reason != domain.ReasonConnectionReplaced {
		t.Errorf("expected first reason to win, got %q", got[0].Reason)
	}
}

func TestHandleEvent_QRAndConnectedEmitOpen(t *testing.T) {
	c, rec, _ := newTestClient()

	c.handleEvent(&events.QR{Codes: []string{"qr-1", "qr-2"}})
	c.handleEvent(&events.Connected{})

	got := rec.snapshot()
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].State != domain.StateOpen || len(got[0].QRCodes) != 2 {
		t.Errorf("expected open event with QR codes, got %+v", got[0])
	}
	if got[1].State != domain.StateOpen {
		t.Errorf("expected open event on connect, got %+v", got[1])
	}
	if rec.credUpdates != 1 {
		t.Errorf("expected credentials update on connect, got %d", rec.credUpdates)
	}
}

func TestHandleEvent_OpenAfterCloseIsDropped(t *testing.T) {
	c, rec, _ := newTestClient()

	c.handleEvent(&events.Disconnected{})
	c.handleEvent(&events.QR{Codes: []string{"late"}})
	c.handleEvent(&events.Connected{})

	got := rec.snapshot()
	if len(got) != 1 || got[0].State != domain.StateClosed {
		t.Fatalf("expected only the closed event, got %+v", got)
	}
}
