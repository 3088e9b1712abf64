package domain

import "time"

type PairingRequest struct {
	Phone      string    `json:"phone"`
	Count      int       `json:"count"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

// CodeBatch is the result of one generation request. It is written once by
// the persister and never modified afterwards.
type CodeBatch struct {
	RunID           string    `json:"runId"`
	Phone           string    `json:"phone"`
	Count           int       `json:"count"`
	Codes           []string  `json:"codes"`
	Timestamp       time.Time `json:"timestamp"`
	StorageLocation string    `json:"storageLocation,omitempty"`
	PersistError    string    `json:"persistError,omitempty"`
}

type AuditRow struct {
	Phone     string
	Timestamp time.Time
	Count     int
	File      string
}

type BatchRecord struct {
	ID        int64     `db:"id" json:"id"`
	RunID     string    `db:"run_id" json:"runId"`
	Phone     string    `db:"phone" json:"phone"`
	CodeCount int       `db:"code_count" json:"count"`
	Codes     string    `db:"codes" json:"-"`
	FilePath  string    `db:"file_path" json:"filePath"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type BatchStats struct {
	Batches int64 `db:"batches" json:"batches"`
	Codes   int64 `db:"codes" json:"codes"`
	Phones  int64 `db:"phones" json:"phones"`
}
