package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/onurcolak/wa-pairing-service/environments"
	"github.com/onurcolak/wa-pairing-service/internal/domain"
	"github.com/onurcolak/wa-pairing-service/pkg/logger"
	"github.com/onurcolak/wa-pairing-service/pkg/metrics"
)

const (
	codeGroupSize = 4
	codeSeparator = "-"
)

// connection is the subset of the connection manager the generator needs.
type connection interface {
	IsReady() bool
	RequestPairingCode(ctx context.Context, phone string) (string, error)
}

type Generator struct {
	conn   connection
	config environments.PairingConfig

	// sleep is swapped in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewGenerator(conn connection, config environments.PairingConfig) *Generator {
	return &Generator{
		conn:   conn,
		config: config,
		sleep:  sleepContext,
	}
}

// ValidatePhone normalizes raw and rejects numbers shorter than the
// configured minimum.
func (g *Generator) ValidatePhone(raw string) (string, error) {
	phone := domain.NormalizePhone(raw)
	if phone == "" || len(phone) < g.config.MinPhoneLength {
		return "", fmt.Errorf("%w: %q has fewer than %d digits", domain.ErrInvalidPhone, raw, g.config.MinPhoneLength)
	}
	return phone, nil
}

func (g *Generator) ClampCount(count int) int {
	if count < 1 {
		return 1
	}
	if g.config.MaxCount > 0 && count > g.config.MaxCount {
		return g.config.MaxCount
	}
	return count
}

// FormatCode groups a raw code into 4-character chunks joined with "-".
func FormatCode(raw string) string {
	raw = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(raw), codeSeparator, ""))

	groups := make([]string, 0, len(raw)/codeGroupSize+1)
	for i := 0; i < len(raw); i += codeGroupSize {
		end := min(i+codeGroupSize, len(raw))
		groups = append(groups, raw[i:end])
	}
	return strings.Join(groups, codeSeparator)
}

// Generate requests count codes for phone one after another. Any failure
// aborts the whole batch: callers get either every code or an error.
func (g *Generator) Generate(ctx context.Context, phone string, count int) ([]string, error) {
	phone, err := g.ValidatePhone(phone)
	if err != nil {
		return nil, err
	}

	count = g.ClampCount(count)
	codes := make([]string, 0, count)
	started := time.Now()

	logger.Infof("Generating %d pairing codes for %s", count, phone)

	for i := 0; i < count; i++ {
		code, err := g.requestOne(ctx, phone, i)
		if err != nil {
			return nil, fmt.Errorf("code %d/%d for %s: %w", i+1, count, phone, err)
		}

		codes = append(codes, FormatCode(code))
		metrics.CodesGenerated.Inc()
		logger.Debugf("Pairing code %d/%d for %s generated", i+1, count, phone)

		if i < count-1 {
			if err := g.sleep(ctx, g.config.RequestDelay); err != nil {
				return nil, err
			}
		}
	}

	metrics.BatchDuration.Observe(time.Since(started).Seconds())
	logger.Infof("Generated %d pairing codes for %s in %v", len(codes), phone, time.Since(started).Round(time.Millisecond))

	return codes, nil
}

// requestOne fetches the code for one index, retrying the same index while
// the provider reports a rate limit.
func (g *Generator) requestOne(ctx context.Context, phone string, index int) (string, error) {
	retries := 0
	for {
		if !g.conn.IsReady() {
			return "", domain.ErrConnectionLost
		}

		code, err := g.conn.RequestPairingCode(ctx, phone)
		switch {
		case err == nil:
			return code, nil

		case errors.Is(err, domain.ErrRateLimited):
			retries++
			if retries > g.config.MaxRateLimitRetries {
				return "", fmt.Errorf("giving up after %d rate-limit retries: %w", retries-1, err)
			}
			metrics.RateLimitRetries.Inc()
			logger.Warnf("Rate limited on code %d for %s, retry %d/%d in %v",
				index+1, phone, retries, g.config.MaxRateLimitRetries, g.config.RateLimitCooldown)
			if err := g.sleep(ctx, g.config.RateLimitCooldown); err != nil {
				return "", err
			}

		case errors.Is(err, domain.ErrNotReady):
			return "", fmt.Errorf("%w: %v", domain.ErrConnectionLost, err)

		default:
			return "", err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
