// Package cache is the in-process fallback for the latest-batch cache when
// Redis is disabled.
package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/onurcolak/wa-pairing-service/internal/domain"
)

const defaultSize = 1024

type Memory struct {
	lru *expirable.LRU[string, domain.CodeBatch]
}

func NewMemory(size int, ttl time.Duration) *Memory {
	if size <= 0 {
		size = defaultSize
	}
	return &Memory{
		lru: expirable.NewLRU[string, domain.CodeBatch](size, nil, ttl),
	}
}

func (m *Memory) CacheLatestBatch(ctx context.Context, batch *domain.CodeBatch) error {
	m.lru.Add(batch.Phone, *batch)
	return nil
}

// GetLatestBatch returns nil, nil on a miss or after expiry.
func (m *Memory) GetLatestBatch(ctx context.Context, phone string) (*domain.CodeBatch, error) {
	batch, ok := m.lru.Get(phone)
	if !ok {
		return nil, nil
	}
	return &batch, nil
}

func (m *Memory) Len() int {
	return m.lru.Len()
}

func (m *Memory) Ping(ctx context.Context) error {
	return nil
}

func (m *Memory) Close() error {
	m.lru.Purge()
	return nil
}
