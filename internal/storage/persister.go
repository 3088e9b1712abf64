package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/onurcolak/wa-pairing-service/internal/domain"
	"github.com/onurcolak/wa-pairing-service/pkg/logger"
	"github.com/onurcolak/wa-pairing-service/pkg/metrics"
)

const (
	AuditFileName   = "audit.csv"
	fileTimeLayout  = "20060102T150405"
	tempFilePattern = ".codes_*.tmp"
)

var auditHeader = []string{"phone", "timestamp", "count", "file"}

// batchFile is the on-disk layout of one batch.
type batchFile struct {
	RunID     string    `json:"runId"`
	Phone     string    `json:"phone"`
	Count     int       `json:"count"`
	Codes     []string  `json:"codes"`
	Timestamp time.Time `json:"timestamp"`
}

// Persister writes batches to OUTPUT_DIR. Batch files only ever appear under
// their final name fully written.
type Persister struct {
	dir string

	// rename is swapped in tests to simulate a crash before finalizing.
	rename func(oldpath, newpath string) error

	auditMu sync.Mutex
}

func NewPersister(dir string) (*Persister, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	return &Persister{
		dir:    dir,
		rename: os.Rename,
	}, nil
}

func (p *Persister) Dir() string {
	return p.dir
}

// BatchFileName is codes_<phone>_<yyyymmddThhmmss>_<runid>.json.
func BatchFileName(phone string, ts time.Time, runID string) string {
	return fmt.Sprintf("codes_%s_%s_%s.json", phone, ts.UTC().Format(fileTimeLayout), runID)
}

// Persist writes batch and appends its audit row. The returned location is
// the final file path. Audit failures are logged and do not fail the call.
func (p *Persister) Persist(batch *domain.CodeBatch) (string, error) {
	if batch.RunID == "" {
		batch.RunID = uuid.NewString()
	}
	if batch.Timestamp.IsZero() {
		batch.Timestamp = time.Now().UTC()
	}

	name := BatchFileName(batch.Phone, batch.Timestamp, batch.RunID)
	location := filepath.Join(p.dir, name)

	data, err := json.MarshalIndent(batchFile{
		RunID:     batch.RunID,
		Phone:     batch.Phone,
		Count:     batch.Count,
		Codes:     batch.Codes,
		Timestamp: batch.Timestamp,
	}, "", "  ")
	if err != nil {
		metrics.PersistFailures.Inc()
		return "", fmt.Errorf("%w: marshal: %v", domain.ErrPersistence, err)
	}

	if err := p.writeAtomic(location, data); err != nil {
		metrics.PersistFailures.Inc()
		return "", fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	logger.Infof("Persisted %d codes for %s to %s", len(batch.Codes), batch.Phone, location)

	row := domain.AuditRow{
		Phone:     batch.Phone,
		Timestamp: batch.Timestamp,
		Count:     len(batch.Codes),
		File:      name,
	}
	if err := p.AppendAudit(row); err != nil {
		metrics.AuditFailures.Inc()
		logger.Warnf("Failed to append audit row for %s: %v", name, err)
	}

	return location, nil
}

func (p *Persister) writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(p.dir, tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	cleanup := func() {
		if err := os.Remove(tmpName); err != nil && !os.IsNotExist(err) {
			logger.Warnf("Failed to remove temp file %s: %v", tmpName, err)
		}
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := p.rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("rename temp file: %w", err)
	}

	syncDir(p.dir)
	return nil
}

// syncDir makes the rename durable on filesystems that need it.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		logger.Debugf("Directory sync for %s failed: %v", dir, err)
	}
}

// AppendAudit adds one row to audit.csv, writing the header first when the
// file is new or empty.
func (p *Persister) AppendAudit(row domain.AuditRow) error {
	p.auditMu.Lock()
	defer p.auditMu.Unlock()

	path := filepath.Join(p.dir, AuditFileName)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat audit log: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(auditHeader); err != nil {
			return fmt.Errorf("write audit header: %w", err)
		}
	}
	if err := w.Write([]string{
		row.Phone,
		row.Timestamp.UTC().Format(time.RFC3339),
		strconv.Itoa(row.Count),
		row.File,
	}); err != nil {
		return fmt.Errorf("write audit row: %w", err)
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush audit log: %w", err)
	}
	return nil
}

// ReadAudit returns every audit row, skipping the header.
func (p *Persister) ReadAudit() ([]domain.AuditRow, error) {
	f, err := os.Open(filepath.Join(p.dir, AuditFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}

	rows := make([]domain.AuditRow, 0, len(records))
	for i, rec := range records {
		if i == 0 || len(rec) != len(auditHeader) {
			continue
		}
		ts, err := time.Parse(time.RFC3339, rec[1])
		if err != nil {
			logger.Warnf("Skipping audit row %d: bad timestamp %q", i, rec[1])
			continue
		}
		count, err := strconv.Atoi(rec[2])
		if err != nil {
			logger.Warnf("Skipping audit row %d: bad count %q", i, rec[2])
			continue
		}
		rows = append(rows, domain.AuditRow{Phone: rec[0], Timestamp: ts, Count: count, File: rec[3]})
	}
	return rows, nil
}
