package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/onurcolak/wa-pairing-service/internal/domain"
	"github.com/onurcolak/wa-pairing-service/pkg/logger"
)

const alertTimeout = 10 * time.Second

// Small internal interfaces so the scheduler can be tested with fakes.
type sweeper interface {
	SweepExpired() int
}

type readiness interface {
	IsReady() bool
}

type alerter interface {
	SendAlert(ctx context.Context, alert domain.Alert) error
}

// Scheduler runs periodic maintenance: expired queue entries are rejected and
// a webhook alert is raised when the connection stays down for too long.
type Scheduler struct {
	queue          sweeper
	connection     readiness
	alerter        alerter
	interval       time.Duration
	alertThreshold int // consecutive not-ready ticks before alerting

	// Internal state
	running  bool
	stopChan chan struct{}
	doneChan chan struct{}
	mu       sync.RWMutex

	// Statistics
	lastRunAt       time.Time
	runsCount       int64
	expiredSwept    int64
	lastAlertSentAt time.Time

	consecutiveNotReady int
	alertSent           bool
}

// NewScheduler builds a maintenance scheduler. alerter may be nil.
func NewScheduler(queue sweeper, connection readiness, alerter alerter, interval time.Duration, alertThreshold int) *Scheduler {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Scheduler{
		queue:          queue,
		connection:     connection,
		alerter:        alerter,
		interval:       interval,
		alertThreshold: alertThreshold,
	}
}

// StartWithInterval restarts the ticker with a new interval.
func (s *Scheduler) StartWithInterval(ctx context.Context, interval time.Duration) error {
	if interval > 0 {
		s.mu.Lock()
		s.interval = interval
		s.mu.Unlock()
	}
	return s.Start(ctx)
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()

	if s.running {
		s.mu.Unlock()
		logger.Warnf("Scheduler is already running")
		return nil
	}

	s.running = true
	s.stopChan = make(chan struct{})
	s.doneChan = make(chan struct{})
	interval := s.interval
	s.mu.Unlock()

	logger.Infof("Starting maintenance scheduler with interval: %v", interval)

	go s.run(ctx, interval)

	return nil
}

func (s *Scheduler) run(ctx context.Context, interval time.Duration) {
	defer close(s.doneChan)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick(ctx)

		case <-s.stopChan:
			logger.Warnf("Scheduler received stop signal")
			return

		case <-ctx.Done():
			logger.Warnf("Scheduler context cancelled")
			return
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	expired := s.queue.SweepExpired()
	ready := s.connection.IsReady()

	s.mu.Lock()
	s.lastRunAt = time.Now()
	s.runsCount++
	runNumber := s.runsCount
	s.expiredSwept += int64(expired)

	if ready {
		if s.consecutiveNotReady > 0 {
			logger.Infof("[Run #%d] Connection ready again after %d ticks", runNumber, s.consecutiveNotReady)
		}
		s.consecutiveNotReady = 0
		s.alertSent = false
		s.mu.Unlock()
	} else {
		s.consecutiveNotReady++
		notReady := s.consecutiveNotReady
		shouldAlert := s.alertThreshold > 0 && notReady >= s.alertThreshold && !s.alertSent && s.alerter != nil
		if shouldAlert {
			s.alertSent = true
		}
		s.mu.Unlock()

		logger.Warnf("[Run #%d] Connection not ready (consecutive ticks: %d/%d)", runNumber, notReady, s.alertThreshold)
		if shouldAlert {
			s.sendAlert(ctx, runNumber, notReady)
		}
	}

	if expired > 0 {
		logger.Infof("[Run #%d] Rejected %d expired requests", runNumber, expired)
	}
}

func (s *Scheduler) sendAlert(ctx context.Context, runNumber int64, notReadyTicks int) {
	ctx, cancel := context.WithTimeout(ctx, alertTimeout)
	defer cancel()

	alert := domain.Alert{
		Alert:   domain.AlertNotReady,
		Message: fmt.Sprintf("Connection not ready for %d consecutive checks", notReadyTicks),
		Details: map[string]any{
			"runNumber":     runNumber,
			"notReadyTicks": notReadyTicks,
		},
		Timestamp: time.Now().UTC(),
	}

	if err := s.alerter.SendAlert(ctx, alert); err != nil {
		logger.Errorf("Failed to send alert: %v", err)
		s.mu.Lock()
		s.alertSent = false
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	s.lastAlertSentAt = time.Now()
	s.mu.Unlock()
	logger.Infof("Alert sent (connection not ready for %d ticks)", notReadyTicks)
}

func (s *Scheduler) Stop() error {
	s.mu.Lock()

	if !s.running {
		s.mu.Unlock()
		logger.Warnf("Scheduler is not running")
		return nil
	}

	s.running = false
	stopChan := s.stopChan
	doneChan := s.doneChan
	s.mu.Unlock()

	close(stopChan)
	<-doneChan

	logger.Infof("Scheduler stopped")
	return nil
}

func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Scheduler) GetStatus() SchedulerStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := SchedulerStatus{
		Running:             s.running,
		LastRunAt:           s.lastRunAt,
		RunsCount:           s.runsCount,
		ExpiredSwept:        s.expiredSwept,
		Interval:            s.interval.String(),
		ConsecutiveNotReady: s.consecutiveNotReady,
		LastAlertSentAt:     s.lastAlertSentAt,
	}

	if s.running && !s.lastRunAt.IsZero() {
		status.NextRunAt = s.lastRunAt.Add(s.interval)
	}

	return status
}

type SchedulerStatus struct {
	Running             bool      `json:"running"`
	LastRunAt           time.Time `json:"lastRunAt,omitempty"`
	NextRunAt           time.Time `json:"nextRunAt,omitempty"`
	RunsCount           int64     `json:"runsCount"`
	ExpiredSwept        int64     `json:"expiredSwept"`
	Interval            string    `json:"interval"`
	ConsecutiveNotReady int       `json:"consecutiveNotReady"`
	LastAlertSentAt     time.Time `json:"lastAlertSentAt,omitempty"`
}
