package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/onurcolak/wa-pairing-service/environments"
	"github.com/onurcolak/wa-pairing-service/internal/domain"
	"github.com/onurcolak/wa-pairing-service/internal/storage"
	"github.com/onurcolak/wa-pairing-service/pkg/database"
	"github.com/onurcolak/wa-pairing-service/pkg/logger"
	"github.com/onurcolak/wa-pairing-service/pkg/whatsapp"
)

var (
	configFile string
	cfg        *environments.Config
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "wa-pairing-service",
		Short:        "WhatsApp pairing code service",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg = environments.Load(configFile)
			logger.SetLevel(cfg.Log.Level)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cfg)
		},
	}

	root.PersistentFlags().StringVar(&configFile, "config", os.Getenv("CONFIG_FILE"), "optional config file (yaml, json, toml or env)")

	root.AddCommand(
		serveCmd(),
		migrateCmd(),
		wipeSessionCmd(),
		auditCmd(),
	)

	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the provider connection (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cfg)
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the batch history schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := database.NewDB(cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer func() {
				if err := db.Close(); err != nil {
					logger.Warnf("Failed to close database: %v", err)
				}
			}()

			if err := database.RunMigrations(db); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}

			logger.Infof("Migrations completed (%s)", cfg.Database.Driver)
			return nil
		},
	}
}

func wipeSessionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "wipe-session",
		Short: "Delete stored session credentials so the next start pairs from scratch",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := whatsapp.WipeDir(cfg.Connection.SessionDir); err != nil {
				return err
			}
			logger.Infof("Session directory %s wiped", cfg.Connection.SessionDir)
			return nil
		},
	}
}

func auditCmd() *cobra.Command {
	var (
		phone string
		since time.Duration
	)

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Print the batch audit log",
		RunE: func(cmd *cobra.Command, args []string) error {
			persister, err := storage.NewPersister(cfg.Pairing.OutputDir)
			if err != nil {
				return err
			}

			rows, err := persister.ReadAudit()
			if err != nil {
				return err
			}

			return printAudit(cmd, filterAudit(rows, phone, since, time.Now()))
		},
	}

	cmd.Flags().StringVar(&phone, "phone", "", "only show rows for this phone")
	cmd.Flags().DurationVar(&since, "since", 0, "only show rows newer than this (e.g. 24h)")

	return cmd
}

func filterAudit(rows []domain.AuditRow, phone string, since time.Duration, now time.Time) []domain.AuditRow {
	if phone != "" {
		phone = domain.NormalizePhone(phone)
	}

	out := make([]domain.AuditRow, 0, len(rows))
	for _, row := range rows {
		if phone != "" && row.Phone != phone {
			continue
		}
		if since > 0 && row.Timestamp.Before(now.Add(-since)) {
			continue
		}
		out = append(out, row)
	}
	return out
}

func printAudit(cmd *cobra.Command, rows []domain.AuditRow) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PHONE\tTIMESTAMP\tCOUNT\tFILE")

	total := 0
	for _, row := range rows {
		total += row.Count
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", row.Phone, row.Timestamp.Format(time.RFC3339), row.Count, row.File)
	}

	if err := w.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "%d batches, %d codes\n", len(rows), total)
	return err
}

// shutdownStep runs fn with a timeout so one stuck component cannot block the rest.
func shutdownStep(name string, timeout time.Duration, fn func() error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.Errorf("Error stopping %s: %v", name, err)
		} else {
			logger.Infof("%s stopped", name)
		}
	case <-ctx.Done():
		logger.Warnf("%s stop timeout, forcing shutdown", name)
	}
}
