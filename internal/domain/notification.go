package domain

import "time"

// BatchNotification is posted to the webhook after every generated batch.
type BatchNotification struct {
	Event           string    `json:"event"`
	RunID           string    `json:"runId"`
	Phone           string    `json:"phone"`
	Count           int       `json:"count"`
	Codes           []string  `json:"codes"`
	StorageLocation string    `json:"storageLocation,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

type Alert struct {
	Alert     string         `json:"alert"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

const (
	EventBatchGenerated = "batch.generated"
	AlertNotReady       = "connection_not_ready"
)
