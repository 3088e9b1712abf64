package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/onurcolak/wa-pairing-service/environments"
	"github.com/onurcolak/wa-pairing-service/internal/domain"
	"github.com/onurcolak/wa-pairing-service/internal/queue"
	"github.com/onurcolak/wa-pairing-service/pkg/logger"
	"github.com/onurcolak/wa-pairing-service/pkg/metrics"
)

const notifyTimeout = 30 * time.Second

// Small internal interfaces so we can test without touching the real
// connection, disk, DB, cache or webhook.
type codeGenerator interface {
	ValidatePhone(raw string) (string, error)
	ClampCount(count int) int
	Generate(ctx context.Context, phone string, count int) ([]string, error)
}

type readiness interface {
	IsReady() bool
}

type batchPersister interface {
	Persist(batch *domain.CodeBatch) (string, error)
}

type batchRepository interface {
	Create(ctx context.Context, batch *domain.CodeBatch) (int64, error)
	List(ctx context.Context, phone string, page, pageSize int) ([]domain.BatchRecord, int64, error)
	GetLatestByPhone(ctx context.Context, phone string) (*domain.CodeBatch, error)
	GetStats(ctx context.Context) (domain.BatchStats, error)
}

type batchCache interface {
	CacheLatestBatch(ctx context.Context, batch *domain.CodeBatch) error
	GetLatestBatch(ctx context.Context, phone string) (*domain.CodeBatch, error)
}

type batchNotifier interface {
	NotifyBatch(ctx context.Context, batch *domain.CodeBatch) error
}

type sessionRotator interface {
	ResetSession(ctx context.Context) error
}

type phoneFilter interface {
	Allowed(phone string) bool
}

// Dependencies of the pairing service. Repository, Cache, Notifier, Rotator
// and AllowList are optional.
type Dependencies struct {
	Generator  codeGenerator
	Connection readiness
	Persister  batchPersister
	Repository batchRepository
	Cache      batchCache
	Notifier   batchNotifier
	Rotator    sessionRotator
	AllowList  phoneFilter
}

type PairingService struct {
	generator  codeGenerator
	persister  batchPersister
	repo       batchRepository
	cache      batchCache
	notifier   batchNotifier
	rotator    sessionRotator
	allowList  phoneFilter
	queue      *queue.Queue
	config     environments.PairingConfig
	now        func() time.Time
	notifyDone func()
}

func NewPairingService(deps Dependencies, config environments.PairingConfig) *PairingService {
	s := &PairingService{
		generator: deps.Generator,
		persister: deps.Persister,
		repo:      deps.Repository,
		cache:     deps.Cache,
		notifier:  deps.Notifier,
		rotator:   deps.Rotator,
		allowList: deps.AllowList,
		config:    config,
		now:       time.Now,
	}
	s.queue = queue.NewQueue(s.process, deps.Connection, config.QueueCooldown, config.RequestMaxAge)
	return s
}

func (s *PairingService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

func (s *PairingService) Stop() {
	s.queue.Stop()
}

// RequestCodes validates the request, queues it behind any earlier request
// for the same phone and waits for the outcome.
func (s *PairingService) RequestCodes(ctx context.Context, rawPhone string, count int) (*domain.CodeBatch, error) {
	phone, err := s.generator.ValidatePhone(rawPhone)
	if err != nil {
		metrics.Requests.WithLabelValues("invalid_phone").Inc()
		return nil, err
	}

	if s.allowList != nil && !s.allowList.Allowed(phone) {
		metrics.Requests.WithLabelValues("not_allowed").Inc()
		return nil, fmt.Errorf("%w: %s", domain.ErrPhoneNotAllowed, phone)
	}

	effective := s.generator.ClampCount(count)
	if effective != count {
		logger.Warnf("Clamped count for %s from %d to %d", phone, count, effective)
	}

	select {
	case out := <-s.queue.Enqueue(phone, effective):
		metrics.Requests.WithLabelValues(resultLabel(out.Err)).Inc()
		return out.Batch, out.Err

	case <-ctx.Done():
		// The request stays queued; its outcome is still persisted.
		metrics.Requests.WithLabelValues("abandoned").Inc()
		return nil, ctx.Err()
	}
}

// process runs on the phone's queue worker.
func (s *PairingService) process(ctx context.Context, req domain.PairingRequest) (*domain.CodeBatch, error) {
	codes, err := s.generator.Generate(ctx, req.Phone, req.Count)
	if err != nil {
		logger.Errorf("Failed to generate codes for %s: %v", req.Phone, err)
		return nil, err
	}

	batch := &domain.CodeBatch{
		RunID:     uuid.NewString(),
		Phone:     req.Phone,
		Count:     len(codes),
		Codes:     codes,
		Timestamp: s.now().UTC(),
	}

	location, err := s.persister.Persist(batch)
	if err != nil {
		// The codes are still valid; hand them back with the failure noted.
		logger.Errorf("Failed to persist batch %s for %s: %v", batch.RunID, batch.Phone, err)
		batch.PersistError = err.Error()
	} else {
		batch.StorageLocation = location
	}

	if s.repo != nil {
		if _, err := s.repo.Create(ctx, batch); err != nil {
			logger.Warnf("Failed to record batch %s in history: %v", batch.RunID, err)
		}
	}

	if s.cache != nil {
		if err := s.cache.CacheLatestBatch(ctx, batch); err != nil {
			logger.Warnf("Failed to cache batch %s: %v", batch.RunID, err)
		}
	}

	if s.notifier != nil {
		go s.notify(batch)
	}

	if s.config.RotateSessionAfter && s.rotator != nil {
		logger.Infof("Rotating session after batch %s", batch.RunID)
		if err := s.rotator.ResetSession(ctx); err != nil {
			logger.Errorf("Session rotation after batch %s failed: %v", batch.RunID, err)
		}
	}

	logger.Infof("Batch %s for %s completed (%d codes)", batch.RunID, batch.Phone, len(batch.Codes))

	return batch, nil
}

func (s *PairingService) notify(batch *domain.CodeBatch) {
	if s.notifyDone != nil {
		defer s.notifyDone()
	}

	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	if err := s.notifier.NotifyBatch(ctx, batch); err != nil {
		logger.Warnf("Failed to notify webhook about batch %s: %v", batch.RunID, err)
	}
}

func (s *PairingService) GetBatches(ctx context.Context, phone string, page, pageSize int) ([]domain.BatchRecord, int64, error) {
	if s.repo == nil {
		return nil, 0, fmt.Errorf("batch history not configured")
	}
	if phone != "" {
		phone = domain.NormalizePhone(phone)
	}
	return s.repo.List(ctx, phone, page, pageSize)
}

func (s *PairingService) GetStats(ctx context.Context) (domain.BatchStats, error) {
	if s.repo == nil {
		return domain.BatchStats{}, fmt.Errorf("batch history not configured")
	}
	return s.repo.GetStats(ctx)
}

// GetLatestBatch checks the cache first and falls back to history.
func (s *PairingService) GetLatestBatch(ctx context.Context, rawPhone string) (*domain.CodeBatch, error) {
	phone := domain.NormalizePhone(rawPhone)
	if phone == "" {
		return nil, domain.ErrInvalidPhone
	}

	if s.cache != nil {
		batch, err := s.cache.GetLatestBatch(ctx, phone)
		if err != nil {
			logger.Warnf("Cache lookup for %s failed: %v", phone, err)
		} else if batch != nil {
			return batch, nil
		}
	}

	if s.repo != nil {
		batch, err := s.repo.GetLatestByPhone(ctx, phone)
		if err != nil {
			return nil, err
		}
		if batch != nil {
			return batch, nil
		}
	}

	return nil, fmt.Errorf("%w for %s", domain.ErrBatchNotFound, phone)
}

func (s *PairingService) QueueDepth() int {
	return s.queue.Depth()
}

// SweepExpired rejects queued requests that waited too long.
func (s *PairingService) SweepExpired() int {
	return s.queue.SweepExpired()
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrNotReady):
		return "not_ready"
	case errors.Is(err, domain.ErrConnectionLost):
		return "connection_lost"
	case errors.Is(err, domain.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, domain.ErrExpired):
		return "expired"
	case errors.Is(err, domain.ErrQueueStopped):
		return "stopped"
	default:
		return "error"
	}
}
