package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/types/events"

	"github.com/onurcolak/wa-pairing-service/internal/domain"
	"github.com/onurcolak/wa-pairing-service/pkg/logger"
)

// Keep-alive failures tolerated before the client is treated as timed out.
const keepAliveFailureLimit = 3

// Dialer creates a fresh whatsmeow client over the session store on every
// call. It implements the connection manager's dialer.
type Dialer struct {
	sessions    *SessionStore
	displayName string
}

func NewDialer(sessions *SessionStore, displayName string) *Dialer {
	return &Dialer{
		sessions:    sessions,
		displayName: displayName,
	}
}

func (d *Dialer) Dial(ctx context.Context, handlers domain.ConnectionHandlers) (domain.ProtocolClient, error) {
	device := d.sessions.Device()
	if device == nil {
		return nil, fmt.Errorf("session store has no device")
	}

	cli := whatsmeow.NewClient(device, newLogger("client"))
	cli.EnableAutoReconnect = false
	// Restart-required (515) is surfaced as ManualLoginReconnect and
	// handled by the connection manager like any other disconnect.
	cli.DisableLoginAutoReconnect = true

	c := &Client{
		cli:         cli,
		handlers:    handlers,
		displayName: d.displayName,
		disconnect:  cli.Disconnect,
	}
	cli.AddEventHandler(c.handleEvent)

	if err := cli.Connect(); err != nil {
		cli.RemoveEventHandlers()
		return nil, fmt.Errorf("failed to connect to WhatsApp: %w", err)
	}

	return c, nil
}

// Client is one connected whatsmeow client.
type Client struct {
	cli         *whatsmeow.Client
	handlers    domain.ConnectionHandlers
	displayName string
	disconnect  func()

	mu     sync.Mutex
	closed bool
	ended  bool
}

func (c *Client) RequestPairingCode(ctx context.Context, phone string) (string, error) {
	code, err := c.cli.PairPhone(ctx, phone, true, whatsmeow.PairClientChrome, c.displayName)
	if err != nil {
		var iqErr *whatsmeow.IQError
		if errors.As(err, &iqErr) && iqErr.Code == http.StatusTooManyRequests {
			return "", fmt.Errorf("%w: %v", domain.ErrRateLimited, err)
		}
		if errors.Is(err, whatsmeow.ErrNotConnected) {
			return "", fmt.Errorf("%w: %v", domain.ErrConnectionLost, err)
		}
		return "", fmt.Errorf("failed to request pairing code: %w", err)
	}

	// whatsmeow already groups the code; the generator does its own formatting.
	return strings.ReplaceAll(code, "-", ""), nil
}

func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.ended = true
	c.mu.Unlock()

	c.cli.RemoveEventHandlers()
	c.cli.Disconnect()
}

func (c *Client) handleEvent(evt any) {
	switch e := evt.(type) {
	case *events.PairSuccess:
		logger.Infof("Paired as %s (%s)", e.ID.String(), e.Platform)
		c.credentialsUpdated()

	case *events.QR:
		c.emitOpen(domain.ConnectionEvent{State: domain.StateOpen, QRCodes: e.Codes})

	case *events.Connected:
		c.credentialsUpdated()
		c.emitOpen(domain.ConnectionEvent{State: domain.StateOpen, Identity: c.identity()})

	case *events.LoggedOut:
		c.emitClosed(domain.ReasonLoggedOut, fmt.Sprintf("logged out (reason %v, on connect %t)", e.Reason, e.OnConnect))

	case *events.ConnectFailure:
		reason := domain.ReasonConnectFailed
		switch {
		case e.Reason.IsLoggedOut():
			reason = domain.ReasonLoggedOut
		case e.Reason == events.ConnectFailureClientOutdated:
			reason = domain.ReasonClientOutdated
		}
		c.emitClosed(reason, fmt.Sprintf("connect failure %v: %s", e.Reason, e.Message))

	case *events.StreamReplaced:
		c.emitClosed(domain.ReasonConnectionReplaced, "stream replaced by another client")

	case *events.TemporaryBan:
		c.emitClosed(domain.ReasonBanned, e.String())

	case *events.ClientOutdated:
		c.emitClosed(domain.ReasonClientOutdated, "client version rejected by server")

	case *events.ManualLoginReconnect:
		c.emitClosed(domain.ReasonRestartRequired, "server requested restart after login")

	case *events.StreamError:
		c.emitClosed(domain.DisconnectReason("stream_error_"+e.Code), "unhandled stream error")

	case *events.KeepAliveTimeout:
		if e.ErrorCount < keepAliveFailureLimit {
			logger.Warnf("Keep-alive timeout (%d errors, last success %s)", e.ErrorCount, e.LastSuccess.Format(time.RFC3339))
			return
		}
		go c.disconnect()
		c.emitClosed(domain.ReasonTimedOut, fmt.Sprintf("%d keep-alive failures", e.ErrorCount))

	case *events.Disconnected:
		c.emitClosed(domain.ReasonConnectionClosed, "websocket disconnected")
	}
}

func (c *Client) credentialsUpdated() {
	if c.handlers.OnCredentialsUpdate != nil {
		c.handlers.OnCredentialsUpdate()
	}
}

func (c *Client) emitClosed(reason domain.DisconnectReason, detail string) {
	c.mu.Lock()
	if c.ended {
		c.mu.Unlock()
		return
	}
	c.ended = true
	c.mu.Unlock()

	c.emit(domain.ConnectionEvent{State: domain.StateClosed, Reason: reason, Detail: detail})
}

// emitOpen drops open events once the client has ended. whatsmeow dispatches
// some disconnect events on their own goroutine, so a QR or Connected event
// may arrive after the closed one.
func (c *Client) emitOpen(evt domain.ConnectionEvent) {
	c.mu.Lock()
	ended := c.ended
	c.mu.Unlock()
	if ended {
		return
	}
	c.emit(evt)
}

func (c *Client) emit(evt domain.ConnectionEvent) {
	if c.handlers.OnStateChange == nil {
		return
	}
	evt.At = time.Now()
	c.handlers.OnStateChange(evt)
}

func (c *Client) identity() string {
	if c.cli == nil || c.cli.Store == nil || c.cli.Store.ID == nil {
		return ""
	}
	return c.cli.Store.ID.String()
}
