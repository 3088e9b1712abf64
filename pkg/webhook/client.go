package webhook

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/onurcolak/wa-pairing-service/environments"
	"github.com/onurcolak/wa-pairing-service/internal/domain"
	"github.com/onurcolak/wa-pairing-service/pkg/logger"
)

// Client posts batch notifications and alerts to an external webhook.
type Client struct {
	httpClient *resty.Client
	webhookURL string
}

func NewWebhookClient(cfg environments.WebhookConfig) *Client {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(3).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	if cfg.AuthKey != "" {
		client.SetHeader("x-webhook-auth-key", cfg.AuthKey)
	}

	return &Client{
		httpClient: client,
		webhookURL: cfg.URL,
	}
}

func (c *Client) Enabled() bool {
	return c.webhookURL != ""
}

func (c *Client) NotifyBatch(ctx context.Context, batch *domain.CodeBatch) error {
	return c.post(ctx, domain.BatchNotification{
		Event:           domain.EventBatchGenerated,
		RunID:           batch.RunID,
		Phone:           batch.Phone,
		Count:           len(batch.Codes),
		Codes:           batch.Codes,
		StorageLocation: batch.StorageLocation,
		Timestamp:       batch.Timestamp,
	})
}

func (c *Client) SendAlert(ctx context.Context, alert domain.Alert) error {
	if alert.Timestamp.IsZero() {
		alert.Timestamp = time.Now().UTC()
	}
	return c.post(ctx, alert)
}

func (c *Client) post(ctx context.Context, payload any) error {
	if !c.Enabled() {
		return nil
	}

	startTime := time.Now()

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		Post(c.webhookURL)

	duration := time.Since(startTime)

	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}

	logger.Infof("Webhook request to %s completed in %v (status: %d)", c.webhookURL, duration, resp.StatusCode())

	if resp.IsError() {
		return fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode(), resp.String())
	}

	return nil
}

func (c *Client) GetURL() string {
	return c.webhookURL
}
