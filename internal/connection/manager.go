package connection

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/onurcolak/wa-pairing-service/internal/domain"
	"github.com/onurcolak/wa-pairing-service/pkg/logger"
	"github.com/onurcolak/wa-pairing-service/pkg/metrics"
)

// Login QR codes rotate: the first one is valid for a minute, the rest for
// twenty seconds each.
const (
	qrFirstTimeout = 60 * time.Second
	qrNextTimeout  = 20 * time.Second
)

type dialer interface {
	Dial(ctx context.Context, handlers domain.ConnectionHandlers) (domain.ProtocolClient, error)
}

type sessionStore interface {
	Save(ctx context.Context) error
	Wipe(ctx context.Context) error
}

// Manager owns the single logical connection to the protocol client and
// recovers it after every disconnect according to the reason table.
type Manager struct {
	dialer   dialer
	sessions sessionStore
	policy   Policy

	mu              sync.Mutex
	ctx             context.Context
	state           domain.ConnectionState
	client          domain.ProtocolClient
	generation      uint64
	closedGen       uint64
	attempts        int
	failed          bool
	stopped         bool
	identity        string
	qrCodes         []string
	qrIssuedAt      time.Time
	lastReason      domain.DisconnectReason
	lastError       string
	lastChangeAt    time.Time
	nextReconnectAt time.Time
	timer           *time.Timer
}

func NewManager(d dialer, sessions sessionStore, policy Policy) *Manager {
	return &Manager{
		dialer:       d,
		sessions:     sessions,
		policy:       policy,
		ctx:          context.Background(),
		state:        domain.StateIdle,
		lastChangeAt: time.Now(),
	}
}

// Start moves the manager out of Idle. Connecting happens in the background;
// failures are retried and never returned.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.state != domain.StateIdle || m.stopped {
		m.mu.Unlock()
		logger.Warnf("Connection manager already started")
		return
	}
	m.ctx = ctx
	m.mu.Unlock()

	go m.connect()
}

func (m *Manager) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	m.stopTimerLocked()
	client := m.client
	m.client = nil
	m.generation++
	m.setStateLocked(domain.StateClosed)
	m.mu.Unlock()

	if client != nil {
		client.Close()
	}
	logger.Infof("Connection manager stopped")
}

func (m *Manager) connect() {
	m.mu.Lock()
	if m.stopped || m.failed {
		m.mu.Unlock()
		return
	}
	m.generation++
	gen := m.generation
	previous := m.client
	m.client = nil
	m.timer = nil
	m.nextReconnectAt = time.Time{}
	m.setStateLocked(domain.StateConnecting)
	attempt := m.attempts
	ctx := m.ctx
	m.mu.Unlock()

	if previous != nil {
		go previous.Close()
	}

	logger.Infof("Connecting to WhatsApp (generation %d, attempt %d)", gen, attempt)

	client, err := m.dialer.Dial(ctx, domain.ConnectionHandlers{
		OnStateChange: func(evt domain.ConnectionEvent) {
			m.handleEvent(gen, evt)
		},
		OnCredentialsUpdate: m.persistCredentials,
	})
	if err != nil {
		logger.Errorf("Connection attempt failed: %v", err)
		m.mu.Lock()
		m.lastError = err.Error()
		m.mu.Unlock()
		m.handleEvent(gen, domain.ConnectionEvent{
			State:  domain.StateClosed,
			Reason: domain.ReasonConnectFailed,
			Detail: err.Error(),
			At:     time.Now(),
		})
		return
	}

	m.mu.Lock()
	if gen != m.generation || m.stopped || m.closedGen == gen {
		m.mu.Unlock()
		// Superseded or already closed while dialing.
		go client.Close()
		return
	}
	m.client = client
	m.mu.Unlock()
}

// persistCredentials runs synchronously inside the client's callback so the
// latest credentials are on disk before anything else reacts to the update.
func (m *Manager) persistCredentials() {
	m.mu.Lock()
	ctx := m.ctx
	m.mu.Unlock()

	if err := m.sessions.Save(ctx); err != nil {
		logger.Errorf("Failed to persist session credentials: %v", err)
		return
	}
	logger.Debugf("Session credentials persisted")
}

func (m *Manager) handleEvent(gen uint64, evt domain.ConnectionEvent) {
	switch evt.State {
	case domain.StateOpen:
		m.handleOpen(gen, evt)
	case domain.StateClosed:
		m.handleClosed(gen, evt)
	default:
		logger.Debugf("Ignoring connection event %q", evt.State)
	}
}

func (m *Manager) handleOpen(gen uint64, evt domain.ConnectionEvent) {
	m.mu.Lock()
	// A client that already reported closed cannot reopen; only a new dial can.
	if gen != m.generation || m.stopped || m.closedGen == gen {
		m.mu.Unlock()
		logger.Debugf("Ignoring open event from closed or superseded connection %d", gen)
		return
	}

	m.setStateLocked(domain.StateOpen)
	m.attempts = 0
	m.lastReason = domain.ReasonNone
	m.lastError = ""
	if evt.Identity != "" {
		m.identity = evt.Identity
		m.qrCodes = nil
	}
	if len(evt.QRCodes) > 0 {
		m.qrCodes = evt.QRCodes
		m.qrIssuedAt = evt.At
		if m.qrIssuedAt.IsZero() {
			m.qrIssuedAt = time.Now()
		}
	}
	identity := m.identity
	m.mu.Unlock()

	if identity != "" {
		logger.Infof("Connection open (logged in as %s)", identity)
	} else {
		logger.Infof("Connection open (unpaired, ready for pairing codes)")
	}
}

func (m *Manager) handleClosed(gen uint64, evt domain.ConnectionEvent) {
	action, known := ActionFor(evt.Reason)
	if !known {
		logger.Warnf("Unrecognized disconnect reason %q (%s), treating as transient", evt.Reason, evt.Detail)
	}

	m.mu.Lock()
	if gen != m.generation || m.stopped || m.closedGen == gen {
		m.mu.Unlock()
		return
	}
	m.closedGen = gen
	m.setStateLocked(domain.StateClosed)
	m.lastReason = evt.Reason
	client := m.client
	m.client = nil
	ctx := m.ctx
	m.mu.Unlock()

	// Closing from inside the client's own callback would deadlock it.
	if client != nil {
		go client.Close()
	}

	metrics.Disconnects.WithLabelValues(string(evt.Reason), action.String()).Inc()
	logger.Warnf("Connection closed: reason=%q action=%s detail=%s", evt.Reason, action, evt.Detail)

	switch action {
	case ActionStop:
		m.mu.Lock()
		m.failed = true
		m.mu.Unlock()
		logger.Errorf("Disconnect reason %q is terminal, auto-reconnect disabled until reset", evt.Reason)

	case ActionWipeAndReconnect:
		if err := m.sessions.Wipe(ctx); err != nil {
			logger.Errorf("Failed to wipe session credentials: %v", err)
		}
		m.mu.Lock()
		m.attempts = 0
		m.identity = ""
		m.qrCodes = nil
		m.scheduleLocked(m.policy.Delay(action, 0))
		m.mu.Unlock()

	default:
		m.mu.Lock()
		attempt := m.attempts
		m.attempts++
		if m.policy.MaxAttempts > 0 && m.attempts > m.policy.MaxAttempts {
			m.failed = true
			m.setStateLocked(domain.StateConnecting)
			m.mu.Unlock()
			logger.Errorf("Giving up after %d reconnect attempts, waiting for manual reset", attempt)
			return
		}
		m.scheduleLocked(m.policy.Delay(action, attempt))
		m.mu.Unlock()
	}
}

// scheduleLocked arms the reconnect timer. Must be called with m.mu held.
func (m *Manager) scheduleLocked(delay time.Duration) {
	if m.stopped {
		return
	}
	m.stopTimerLocked()
	m.nextReconnectAt = time.Now().Add(delay)
	m.timer = time.AfterFunc(delay, m.connect)
	logger.Infof("Reconnecting in %v", delay)
}

func (m *Manager) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.nextReconnectAt = time.Time{}
}

func (m *Manager) setStateLocked(state domain.ConnectionState) {
	m.state = state
	m.lastChangeAt = time.Now()
	metrics.SetConnectionState(string(state))
}

// Reset clears the permanently-failed flag and reconnects immediately.
func (m *Manager) Reset(ctx context.Context) {
	client := m.prepareReset()
	if client != nil {
		client.Close()
	}
	logger.Infof("Connection reset requested")
	go m.connect()
}

// ResetSession drops the live connection, wipes the stored credentials and
// reconnects with a fresh identity.
func (m *Manager) ResetSession(ctx context.Context) error {
	client := m.prepareReset()
	if client != nil {
		client.Close()
	}

	if err := m.sessions.Wipe(ctx); err != nil {
		m.mu.Lock()
		m.lastError = err.Error()
		m.mu.Unlock()
		go m.connect()
		return fmt.Errorf("failed to wipe session: %w", err)
	}

	m.mu.Lock()
	m.identity = ""
	m.qrCodes = nil
	m.mu.Unlock()

	logger.Infof("Session reset, reconnecting with fresh credentials")
	go m.connect()
	return nil
}

func (m *Manager) prepareReset() domain.ProtocolClient {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopTimerLocked()
	m.failed = false
	m.attempts = 0
	m.generation++
	client := m.client
	m.client = nil
	m.setStateLocked(domain.StateClosed)
	return client
}

func (m *Manager) IsReady() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == domain.StateOpen && m.client != nil
}

// RequestPairingCode forwards to the live client. It fails fast when the
// connection is not open, and reports ErrConnectionLost if the connection was
// replaced while the call was in flight.
func (m *Manager) RequestPairingCode(ctx context.Context, phone string) (string, error) {
	m.mu.Lock()
	if m.state != domain.StateOpen || m.client == nil {
		m.mu.Unlock()
		return "", domain.ErrNotReady
	}
	client := m.client
	gen := m.generation
	m.mu.Unlock()

	code, err := client.RequestPairingCode(ctx, phone)

	m.mu.Lock()
	changed := gen != m.generation || m.state != domain.StateOpen
	m.mu.Unlock()

	if changed {
		return "", fmt.Errorf("%w: connection changed while requesting code", domain.ErrConnectionLost)
	}
	return code, err
}

// LoginQR returns the QR code currently valid for linking this client as a
// companion device, if the session is unpaired.
func (m *Manager) LoginQR(now time.Time) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != domain.StateOpen || m.identity != "" || len(m.qrCodes) == 0 {
		return "", false
	}

	elapsed := now.Sub(m.qrIssuedAt)
	idx := 0
	if elapsed >= qrFirstTimeout {
		idx = 1 + int((elapsed-qrFirstTimeout)/qrNextTimeout)
	}
	if idx >= len(m.qrCodes) {
		return "", false
	}
	return m.qrCodes[idx], true
}

type Status struct {
	State             domain.ConnectionState  `json:"state"`
	Ready             bool                    `json:"ready"`
	ReconnectAttempts int                     `json:"reconnectAttempts"`
	Failed            bool                    `json:"failed"`
	Paired            bool                    `json:"paired"`
	Identity          string                  `json:"identity,omitempty"`
	LastReason        domain.DisconnectReason `json:"lastReason,omitempty"`
	LastError         string                  `json:"lastError,omitempty"`
	LastChangeAt      time.Time               `json:"lastChangeAt"`
	NextReconnectAt   time.Time               `json:"nextReconnectAt,omitempty"`
}

func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Status{
		State:             m.state,
		Ready:             m.state == domain.StateOpen && m.client != nil,
		ReconnectAttempts: m.attempts,
		Failed:            m.failed,
		Paired:            m.identity != "",
		Identity:          m.identity,
		LastReason:        m.lastReason,
		LastError:         m.lastError,
		LastChangeAt:      m.lastChangeAt,
		NextReconnectAt:   m.nextReconnectAt,
	}
}
