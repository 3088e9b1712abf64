package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/onurcolak/wa-pairing-service/environments"
	"github.com/onurcolak/wa-pairing-service/internal/domain"
	"github.com/onurcolak/wa-pairing-service/internal/repository"
	"github.com/onurcolak/wa-pairing-service/pkg/database"
)

// Seeds the history DB with a few sample batches for local development.
func main() {
	cfg := environments.Load(os.Getenv("CONFIG_FILE"))

	db, err := database.NewDB(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Failed to close database: %v", err)
		}
	}()

	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	repo := repository.NewBatchRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	phones := []string{"15551234567", "905551112233", "447700900123"}
	for i, phone := range phones {
		codes := make([]string, i+2)
		for j := range codes {
			codes[j] = fmt.Sprintf("SEED-%03d%d", i, j)
		}

		batch := &domain.CodeBatch{
			RunID:           uuid.NewString(),
			Phone:           phone,
			Count:           len(codes),
			Codes:           codes,
			Timestamp:       now.Add(-time.Duration(i) * time.Hour),
			StorageLocation: "seed",
		}
		if _, err := repo.Create(ctx, batch); err != nil {
			log.Fatalf("Failed to seed batch for %s: %v", phone, err)
		}
	}

	log.Printf("Seeded %d batches", len(phones))
}
