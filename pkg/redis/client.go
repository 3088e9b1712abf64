package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/onurcolak/wa-pairing-service/environments"
	"github.com/onurcolak/wa-pairing-service/internal/domain"
	"github.com/onurcolak/wa-pairing-service/pkg/logger"
)

type Client struct {
	client valkey.Client
	ttl    time.Duration
}

const latestBatchKeyPrefix = "pairing:latest:"

// NewRedisClient connects to Redis. Cached batches expire after ttl, which
// should match how long pairing codes stay valid.
func NewRedisClient(cfg environments.RedisConfig, ttl time.Duration) (*Client, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)},
		Password:    cfg.Password,
		SelectDB:    cfg.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Valkey client: %w", err)
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Infof("Connected to Redis (via Valkey client)")

	return &Client{client: client, ttl: ttl}, nil
}

func (c *Client) CacheLatestBatch(ctx context.Context, batch *domain.CodeBatch) error {
	data, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("failed to marshal batch: %w", err)
	}

	key := latestBatchKeyPrefix + batch.Phone

	err = c.client.Do(ctx, c.client.B().Set().Key(key).Value(string(data)).Ex(c.ttl).Build()).Error()
	if err != nil {
		return fmt.Errorf("failed to cache batch: %w", err)
	}

	logger.Debugf("Cached batch %s for %s in Redis (ttl %v)", batch.RunID, batch.Phone, c.ttl)

	return nil
}

// GetLatestBatch returns nil, nil on a cache miss.
func (c *Client) GetLatestBatch(ctx context.Context, phone string) (*domain.CodeBatch, error) {
	key := latestBatchKeyPrefix + phone

	result := c.client.Do(ctx, c.client.B().Get().Key(key).Build())
	if result.Error() != nil {
		if valkey.IsValkeyNil(result.Error()) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cached batch: %w", result.Error())
	}

	data, err := result.ToString()
	if err != nil {
		return nil, fmt.Errorf("failed to read cached batch: %w", err)
	}

	var batch domain.CodeBatch
	if err := json.Unmarshal([]byte(data), &batch); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached batch: %w", err)
	}

	return &batch, nil
}

func (c *Client) Close() error {
	c.client.Close()
	return nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.client.Do(ctx, c.client.B().Ping().Build()).Error()
}
