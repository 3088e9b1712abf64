package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/onurcolak/wa-pairing-service/internal/domain"
)

func auditRows(now time.Time) []domain.AuditRow {
	return []domain.AuditRow{
		{Phone: "15551234567", Timestamp: now.Add(-48 * time.Hour), Count: 3, File: "a.json"},
		{Phone: "15551234567", Timestamp: now.Add(-time.Hour), Count: 2, File: "b.json"},
		{Phone: "905551112233", Timestamp: now.Add(-time.Hour), Count: 5, File: "c.json"},
	}
}

func TestFilterAudit(t *testing.T) {
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		phone string
		since time.Duration
		want  []string
	}{
		{"no filter", "", 0, []string{"a.json", "b.json", "c.json"}},
		{"phone normalized", "+1 (555) 123-4567", 0, []string{"a.json", "b.json"}},
		{"since", "", 24 * time.Hour, []string{"b.json", "c.json"}},
		{"phone and since", "15551234567", 24 * time.Hour, []string{"b.json"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := filterAudit(auditRows(now), tt.phone, tt.since, now)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d rows, got %d", len(tt.want), len(got))
			}
			for i, row := range got {
				if row.File != tt.want[i] {
					t.Errorf("row %d: expected %s, got %s", i, tt.want[i], row.File)
				}
			}
		})
	}
}

func TestPrintAudit_Totals(t *testing.T) {
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)

	if err := printAudit(cmd, auditRows(now)); err != nil {
		t.Fatalf("printAudit returned error: %v", err)
	}

	text := out.String()
	if !strings.HasPrefix(text, "PHONE") {
		t.Errorf("expected header first, got:\n%s", text)
	}
	if !strings.Contains(text, "3 batches, 10 codes") {
		t.Errorf("expected totals line, got:\n%s", text)
	}
}
