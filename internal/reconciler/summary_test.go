package reconciler

import (
	"testing"

	"contra-reconciliation-service/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestBuildSummaryRow(t *testing.T) {
	s := &models.Statement{
		Key:        "XNS-SBI-1234-OD",
		HolderName: "A/B Exports",
		Rows: []*models.StatementRow{
			dr(day(2024, 1, 2), 100, "INB TRF", "", "ONE"),
			dr(day(2024, 1, 3), 100, "", "", "TWO"),
			dr(day(2024, 1, 4), 100, "SIS CON", "BANK CHARGES", "THREE"),
		},
	}
	sheet := &models.ReferenceSheet{
		Name: "SBI-1234-OD",
		Rows: []*models.StatementRow{
			dr(day(2024, 1, 2), 100, "INB TRF", "", "ONE"),
			dr(day(2024, 1, 4), 100, "sis con", "", "THREE"),
			dr(day(2024, 1, 5), 100, "INB TRF", "", "FOUR"),
			dr(day(2024, 1, 6), 100, "OTHERS", "", "FIVE"),
		},
	}

	row := BuildSummaryRow(s, sheet, nil, nil)

	assert.Equal(t, SummaryRow{
		FileName:        "A_B Exports-SBI-1234-OD",
		BankName:        "State Bank of India, India",
		TotalManual:     4,
		TotalSoftware:   3,
		ManualMatched:   3,
		SoftwareMatched: 2,
		Percentage:      "66.67%",
	}, row)
}

func TestBuildSummaryRowUnknownBank(t *testing.T) {
	s := &models.Statement{Key: "XNS-ZZZ-1234-CA", HolderName: "Acme"}
	row := BuildSummaryRow(s, &models.ReferenceSheet{Name: "ZZZ-1234-CA"}, nil, nil)

	assert.Equal(t, "ZZZ", row.BankName)
	assert.Equal(t, "0.00%", row.Percentage)
}

func TestFormatPercentage(t *testing.T) {
	assert.Equal(t, "0.00%", FormatPercentage(5, 0))
	assert.Equal(t, "100.00%", FormatPercentage(4, 4))
	assert.Equal(t, "150.00%", FormatPercentage(3, 2))
	assert.Equal(t, "33.33%", FormatPercentage(1, 3))
}

func TestCountRows(t *testing.T) {
	s := &models.Statement{Key: "XNS-HDFC-5678-CA", Rows: make([]*models.StatementRow, 3)}
	sheet := &models.ReferenceSheet{Name: "HDFC-5678-CA", Rows: make([]*models.StatementRow, 2)}

	assert.Equal(t, RowCount{
		SeparateSheet: "XNS-HDFC-5678-CA",
		FinalSheet:    "HDFC-5678-CA",
		SeparateRows:  3,
		FinalRows:     2,
	}, CountRows(s, sheet))
}

func TestSheetID(t *testing.T) {
	assert.Equal(t, "final.xlsx::XNS-SBI-1234-CA", SheetID("final.xlsx", "XNS-SBI-1234-CA"))
}
