package database

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/onurcolak/wa-pairing-service/environments"
	"github.com/onurcolak/wa-pairing-service/pkg/logger"
)

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// NewDB opens the batch history database for the configured driver.
func NewDB(cfg environments.DatabaseConfig) (*sqlx.DB, error) {
	switch cfg.Driver {
	case DriverSQLite, "":
		return NewSQLiteDB(cfg.Path)
	case DriverMySQL:
		return NewMySQLDB(cfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func NewSQLiteDB(path string) (*sqlx.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database dir: %w", err)
		}
	}

	dsn := fmt.Sprintf(
		"file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_time_format=sqlite",
		path,
	)

	db, err := sqlx.Connect(DriverSQLite, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	logger.Infof("Connected to SQLite database at %s", path)
	return db, nil
}

func NewMySQLDB(cfg environments.DatabaseConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&collation=utf8mb4_unicode_ci",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName,
	)

	db, err := sqlx.Connect(DriverMySQL, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Verify connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Infof("Connected to MySQL database")
	return db, nil
}

var schemas = map[string]string{
	DriverSQLite: `
	CREATE TABLE IF NOT EXISTS pairing_batches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL UNIQUE,
		phone TEXT NOT NULL,
		code_count INTEGER NOT NULL,
		codes TEXT NOT NULL,
		file_path TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_pairing_batches_phone ON pairing_batches (phone, created_at);
	CREATE INDEX IF NOT EXISTS idx_pairing_batches_created_at ON pairing_batches (created_at);
	`,
	DriverMySQL: `
	CREATE TABLE IF NOT EXISTS pairing_batches (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		run_id VARCHAR(64) NOT NULL,
		phone VARCHAR(20) NOT NULL,
		code_count INT NOT NULL,
		codes TEXT NOT NULL,
		file_path VARCHAR(512) NOT NULL DEFAULT '',
		created_at DATETIME(3) NOT NULL,
		UNIQUE KEY uq_pairing_batches_run_id (run_id),
		INDEX idx_pairing_batches_phone (phone, created_at),
		INDEX idx_pairing_batches_created_at (created_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;
	`,
}

func RunMigrations(db *sqlx.DB) error {
	schema, ok := schemas[db.DriverName()]
	if !ok {
		return fmt.Errorf("no schema for driver %q", db.DriverName())
	}

	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Infof("Database migrations completed")

	return nil
}
