package reconciler

import (
	"context"
	"io"
	"testing"

	"contra-reconciliation-service/internal/identity"
	"contra-reconciliation-service/internal/models"
	"contra-reconciliation-service/pkg/errors"
	"contra-reconciliation-service/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(nil, nil, nil)
	require.NoError(t, err)
	return svc.WithLogger(logger.NewWithWriter(io.Discard, logger.ErrorLevel))
}

func account(key, holder string, rows ...*models.StatementRow) *models.Statement {
	return &models.Statement{
		Key:           key,
		BankCode:      identity.BankCodeOf(key),
		AccountSuffix: identity.AccountSuffix(key),
		HolderName:    holder,
		Rows:          rows,
	}
}

// contraBatch holds one NEFT between two accounts whose masked number
// identifies the SBI account.
func contraBatch(finalSBIDesc string) *Batch {
	hdfc := account("XNS-HDFC-5678-CA", "Acme Traders Pvt Ltd",
		cr(day(2024, 1, 10), 5000, "", "", "NEFT FROM XXXXXXXX1234 ACME"),
	)
	sbi := account("XNS-SBI-1234-CA", "Ravi Kumar",
		dr(day(2024, 1, 10), 5000, "", "", "NEFT TO ACME TRADERS"),
	)
	return &Batch{
		Label:      "final.xlsx",
		Statements: []*models.Statement{hdfc, sbi},
		Sheets: []*models.ReferenceSheet{
			{Name: "XNS-HDFC-5678-CA", Rows: []*models.StatementRow{
				cr(day(2024, 1, 10), 5000, "SIS CON", "Ravi Kumar", "NEFT FROM XXXXXXXX1234 ACME"),
			}},
			{Name: "SBI-1234-CA", Rows: []*models.StatementRow{
				dr(day(2024, 1, 10), 5000, "SIS CON", "Acme Traders", finalSBIDesc),
			}},
		},
	}
}

func TestProcessWithoutMismatch(t *testing.T) {
	svc := newTestService(t)
	batch := contraBatch("NEFT TO ACME TRADERS")

	result, err := svc.Process(context.Background(), batch)
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, "final.xlsx", result.Label)
	assert.Equal(t, []string{"HDFC-5678-CA", "SBI-1234-CA"}, result.Accounts)
	assert.False(t, result.HasMismatch)
	assert.Empty(t, result.Highlights)
	assert.Equal(t, 1, result.MatchSummary.Matches)
	assert.Equal(t, 1, result.MatchSummary.ContraMatches)

	hdfcRow := batch.Statements[0].Rows[0]
	assert.Equal(t, "SIS CON", hdfcRow.Type)
	assert.Equal(t, "Ravi Kumar-SBI-1234-CA", hdfcRow.Category)
	assert.Equal(t, "JAN", hdfcRow.Month)

	require.Len(t, result.Summary, 2)
	assert.Equal(t, SummaryRow{
		FileName:        "Acme Traders Pvt Ltd-HDFC-5678-CA",
		BankName:        "HDFC Bank, India",
		TotalManual:     1,
		TotalSoftware:   1,
		ManualMatched:   1,
		SoftwareMatched: 1,
		Percentage:      "100.00%",
	}, result.Summary[0])
	assert.Equal(t, "Ravi Kumar-SBI-1234-CA", result.Summary[1].FileName)

	assert.Equal(t, RowCount{
		SeparateSheet: "XNS-HDFC-5678-CA",
		FinalSheet:    "XNS-HDFC-5678-CA",
		SeparateRows:  1,
		FinalRows:     1,
	}, result.RowCounts["final.xlsx::XNS-HDFC-5678-CA"])
	assert.Contains(t, result.RowCounts, "final.xlsx::SBI-1234-CA")

	summary := result.MismatchSummary()
	require.Contains(t, summary, "final.xlsx::SBI-1234-CA")
	report := summary["final.xlsx::SBI-1234-CA"][ComparisonHeading]
	require.NotNil(t, report)
	assert.Equal(t, "SBI-1234-CA", report.Account)
	assert.Equal(t, 1, report.AutoCount)
	assert.Equal(t, 1, report.ManualCount)
	assert.GreaterOrEqual(t, result.Duration().Nanoseconds(), int64(0))
}

func TestProcessWithMismatch(t *testing.T) {
	svc := newTestService(t)

	result, err := svc.Process(context.Background(), contraBatch("NEFT TO ACME TRADERS LTD"))
	require.NoError(t, err)

	assert.True(t, result.HasMismatch)
	require.Len(t, result.Reports, 2)

	sbi := result.Reports[1]
	assert.Equal(t, "XNS-SBI-1234-CA", sbi.StatementKey)
	assert.Equal(t, []int{2}, sbi.AutoOnlyRows)
	assert.Equal(t, []int{2}, sbi.ManualOnlyRows)
	require.Len(t, sbi.Backfill, 1)
	assert.Equal(t, 7, sbi.Backfill[0].Score)

	assert.Equal(t, Highlight{Green: []int{0}, Red: []int{0}}, result.Highlights["XNS-SBI-1234-CA"])
	assert.NotContains(t, result.Highlights, "XNS-HDFC-5678-CA")
}

func TestProcessStatisticsPerBatch(t *testing.T) {
	svc := newTestService(t)

	for run := 1; run <= 2; run++ {
		result, err := svc.Process(context.Background(), contraBatch("NEFT TO ACME TRADERS"))
		require.NoError(t, err)
		require.NotNil(t, result.PreprocessingStats)
		assert.Equal(t, 2, result.PreprocessingStats.Statements, "run %d", run)
		assert.Equal(t, 2, result.PreprocessingStats.RowsProcessed, "run %d", run)
	}
}

func TestProcessReportsProgress(t *testing.T) {
	svc := newTestService(t)

	var steps []string
	var last *Progress
	svc.AddProgressCallback(func(p *Progress) {
		steps = append(steps, p.CurrentStep)
		last = p
	})

	_, err := svc.Process(context.Background(), contraBatch("NEFT TO ACME TRADERS"))
	require.NoError(t, err)

	assert.Equal(t, []string{StepPreprocess, StepPair, StepMatch, StepCompare, StepSummarize}, steps)
	require.NotNil(t, last)
	assert.Equal(t, 5, last.CompletedSteps)
	assert.InDelta(t, 100.0, last.PercentComplete, 0.001)
	assert.Equal(t, 2, last.Statements)
	assert.Equal(t, 2, last.Accounts)
	assert.Equal(t, 1, last.MatchesFound)
	assert.Equal(t, 0, last.Mismatches)
}

func TestProcessErrors(t *testing.T) {
	oneStatement := contraBatch("X")
	oneStatement.Statements = oneStatement.Statements[:1]

	noSheets := contraBatch("X")
	noSheets.Sheets = nil

	unpaired := contraBatch("X")
	unpaired.Sheets = unpaired.Sheets[:1]

	tests := []struct {
		name  string
		batch *Batch
		code  errors.ErrorCode
	}{
		{"nil batch", nil, errors.CodeNoFiles},
		{"one statement", oneStatement, errors.CodeTooFewStatements},
		{"no final sheets", noSheets, errors.CodeNoReferenceData},
		{"unpaired statement", unpaired, errors.CodeSheetMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := newTestService(t).Process(context.Background(), tt.batch)
			require.Error(t, err)
			assert.Nil(t, result)

			rerr, ok := errors.AsReconcilerError(err)
			require.True(t, ok)
			assert.Equal(t, tt.code, rerr.Code)
		})
	}
}

func TestProcessCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestService(t).Process(ctx, contraBatch("X"))
	rerr, ok := errors.AsReconcilerError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CategoryReconciliation, rerr.Category)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewServiceRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinBackfillScore = 0

	svc, err := NewService(nil, nil, cfg)
	require.Error(t, err)
	assert.Nil(t, svc)

	rerr, ok := errors.AsReconcilerError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CategoryConfiguration, rerr.Category)
}

func TestGetConfiguration(t *testing.T) {
	cfg := DefaultConfig()
	svc, err := NewService(nil, nil, cfg)
	require.NoError(t, err)
	assert.Same(t, cfg, svc.GetConfiguration())
}
