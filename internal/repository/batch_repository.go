package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/onurcolak/wa-pairing-service/internal/domain"
)

const batchColumns = "id, run_id, phone, code_count, codes, file_path, created_at"

// BatchRepository keeps a queryable history of generated batches. The JSON
// files on disk stay the source of truth.
type BatchRepository struct {
	db *sqlx.DB
}

func NewBatchRepository(db *sqlx.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

func (r *BatchRepository) Create(ctx context.Context, batch *domain.CodeBatch) (int64, error) {
	codes, err := json.Marshal(batch.Codes)
	if err != nil {
		return 0, fmt.Errorf("failed to encode codes: %w", err)
	}

	query := `
		INSERT INTO pairing_batches (run_id, phone, code_count, codes, file_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		batch.RunID, batch.Phone, len(batch.Codes), string(codes), batch.StorageLocation, batch.Timestamp.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create batch record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return id, nil
}

// List returns one page of batches, newest first. An empty phone lists all.
func (r *BatchRepository) List(ctx context.Context, phone string, page, pageSize int) ([]domain.BatchRecord, int64, error) {
	offset := (page - 1) * pageSize
	var totalCount int64
	var records []domain.BatchRecord

	if phone != "" {
		countQuery := "SELECT COUNT(*) FROM pairing_batches WHERE phone = ?"
		if err := r.db.GetContext(ctx, &totalCount, countQuery, phone); err != nil {
			return nil, 0, fmt.Errorf("failed to count batches: %w", err)
		}

		query := `SELECT ` + batchColumns + `
			FROM pairing_batches
			WHERE phone = ?
			ORDER BY created_at DESC, id DESC
			LIMIT ? OFFSET ?
		`
		if err := r.db.SelectContext(ctx, &records, query, phone, pageSize, offset); err != nil {
			return nil, 0, fmt.Errorf("failed to get batches: %w", err)
		}
	} else {
		countQuery := "SELECT COUNT(*) FROM pairing_batches"
		if err := r.db.GetContext(ctx, &totalCount, countQuery); err != nil {
			return nil, 0, fmt.Errorf("failed to count batches: %w", err)
		}

		query := `SELECT ` + batchColumns + `
			FROM pairing_batches
			ORDER BY created_at DESC, id DESC
			LIMIT ? OFFSET ?
		`
		if err := r.db.SelectContext(ctx, &records, query, pageSize, offset); err != nil {
			return nil, 0, fmt.Errorf("failed to get batches: %w", err)
		}
	}

	return records, totalCount, nil
}

// GetLatestByPhone returns nil, nil when the phone has no batches.
func (r *BatchRepository) GetLatestByPhone(ctx context.Context, phone string) (*domain.CodeBatch, error) {
	query := `SELECT ` + batchColumns + `
		FROM pairing_batches
		WHERE phone = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	var record domain.BatchRecord
	if err := r.db.GetContext(ctx, &record, query, phone); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest batch: %w", err)
	}

	return ToCodeBatch(record)
}

func (r *BatchRepository) GetStats(ctx context.Context) (domain.BatchStats, error) {
	query := `
		SELECT
			COUNT(*)                       AS batches,
			COALESCE(SUM(code_count), 0)   AS codes,
			COUNT(DISTINCT phone)          AS phones
		FROM pairing_batches
	`

	var stats domain.BatchStats
	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return domain.BatchStats{}, fmt.Errorf("failed to get stats: %w", err)
	}

	return stats, nil
}

func (r *BatchRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ToCodeBatch decodes the stored codes of a history record.
func ToCodeBatch(record domain.BatchRecord) (*domain.CodeBatch, error) {
	var codes []string
	if err := json.Unmarshal([]byte(record.Codes), &codes); err != nil {
		return nil, fmt.Errorf("failed to decode codes for batch %s: %w", record.RunID, err)
	}

	return &domain.CodeBatch{
		RunID:           record.RunID,
		Phone:           record.Phone,
		Count:           record.CodeCount,
		Codes:           codes,
		Timestamp:       record.CreatedAt,
		StorageLocation: record.FilePath,
	}, nil
}
