package tracking

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"contra-reconciliation-service/internal/reconciler"
	"contra-reconciliation-service/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "data", "tracking.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	clock := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	return l.WithLogger(logger.NewWithWriter(io.Discard, logger.ErrorLevel)).
		WithClock(func() time.Time { return clock })
}

func summaryRow(file string, manual, software int) reconciler.SummaryRow {
	return reconciler.SummaryRow{
		FileName:        file,
		BankName:        "HDFC Bank, India",
		TotalManual:     10,
		TotalSoftware:   12,
		ManualMatched:   manual,
		SoftwareMatched: software,
	}
}

func TestLedgerUpdate(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t)

	first, err := l.Update(ctx, "run-1", []reconciler.SummaryRow{
		summaryRow("Acme-HDFC-5678-CA", 3, 2),
		summaryRow("Ravi-SBI-1234-CA", 0, 4),
	})
	require.NoError(t, err)
	require.Len(t, first.Added, 2)
	assert.False(t, first.Shaded)
	assert.Equal(t, 1, first.Added[0].Serial)
	assert.Equal(t, 2, first.Added[1].Serial)
	assert.Equal(t, "05-03-2024", first.Added[0].Date)
	assert.Equal(t, "66.67 %", first.Added[0].Percentage)
	assert.Equal(t, "0.00 %", first.Added[1].Percentage)

	second, err := l.Update(ctx, "run-2", []reconciler.SummaryRow{
		summaryRow("Acme-HDFC-5678-CA", 3, 3),
		summaryRow("Acme-ICICI-4321-OD", 5, 5),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Acme-HDFC-5678-CA"}, second.Skipped)
	require.Len(t, second.Added, 1)
	assert.True(t, second.Shaded)
	assert.Equal(t, 3, second.Added[0].Serial)

	third, err := l.Update(ctx, "run-3", []reconciler.SummaryRow{summaryRow("New-YBL-0001-CA", 1, 1)})
	require.NoError(t, err)
	assert.False(t, third.Shaded)

	entries, err := l.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.Equal(t, "Acme-ICICI-4321-OD", entries[2].FileName)
	assert.True(t, entries[2].Shaded)
	assert.Equal(t, "run-2", entries[2].RunID)
	assert.Equal(t, "100.00 %", entries[2].Percentage)
	assert.Equal(t, 4, entries[3].Serial)
}

func TestLedgerUpdateDuplicatesWithinBatch(t *testing.T) {
	l := openTestLedger(t)

	res, err := l.Update(context.Background(), "", []reconciler.SummaryRow{
		summaryRow("Acme-HDFC-5678-CA", 1, 1),
		summaryRow("Acme-HDFC-5678-CA", 1, 1),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.RunID)
	assert.Len(t, res.Added, 1)
	assert.Equal(t, []string{"Acme-HDFC-5678-CA"}, res.Skipped)
}

func TestLedgerReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracking.db")

	l, err := Open(path)
	require.NoError(t, err)
	_, err = l.Update(context.Background(), "run-1", []reconciler.SummaryRow{summaryRow("A-HDFC-5678-CA", 1, 1)})
	require.NoError(t, err)
	require.NoError(t, l.Close())

	l, err = Open(path)
	require.NoError(t, err)
	defer l.Close()

	var applied int
	require.NoError(t, l.db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&applied))
	assert.Equal(t, len(allMigrations), applied)

	entries, err := l.Entries(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
