package reconciler

import (
	"fmt"
	"strings"

	"contra-reconciliation-service/internal/identity"
	"contra-reconciliation-service/internal/models"
)

// SummaryRow is one line of the per-account summary report. Field names
// follow the tracking sheet headings.
type SummaryRow struct {
	FileName        string `json:"File Name"`
	BankName        string `json:"Bank Name"`
	TotalManual     int    `json:"Total Entries (Manual)"`
	TotalSoftware   int    `json:"Total Entries (Software)"`
	ManualMatched   int    `json:"Manual Matched"`
	SoftwareMatched int    `json:"Software Matched"`
	Percentage      string `json:"Percentage"`
}

// RowCount compares the raw row counts of a statement and its final sheet.
type RowCount struct {
	SeparateSheet string `json:"separate_sheet"`
	FinalSheet    string `json:"final_sheet"`
	SeparateRows  int    `json:"separate_rows"`
	FinalRows     int    `json:"final_rows"`
}

// SummaryFileName is "<holder>-<key without XNS>" with slashes in the holder
// name replaced.
func SummaryFileName(s *models.Statement) string {
	return strings.ReplaceAll(s.HolderName, "/", "_") + "-" + identity.DisplayKey(s.Key)
}

// BuildSummaryRow counts all rows and typed transfer rows on both sides.
// Unlike the mismatch report, ignored categories are counted here.
func BuildSummaryRow(s *models.Statement, sheet *models.ReferenceSheet, banks *identity.BankDirectory, cfg *Config) SummaryRow {
	if banks == nil {
		banks = identity.DefaultBankDirectory()
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}

	bank := s.BankCode
	if bank == "" {
		bank = identity.BankCodeOf(s.Key)
	}

	row := SummaryRow{
		FileName:      SummaryFileName(s),
		BankName:      banks.Name(bank),
		TotalManual:   len(sheet.Rows),
		TotalSoftware: len(s.Rows),
	}
	for _, r := range sheet.Rows {
		if cfg.isTransfer(r) {
			row.ManualMatched++
		}
	}
	for _, r := range s.Rows {
		if cfg.isTransfer(r) {
			row.SoftwareMatched++
		}
	}
	row.Percentage = FormatPercentage(row.SoftwareMatched, row.ManualMatched)
	return row
}

// FormatPercentage renders software/manual*100 with two decimals, and
// 0.00% when manual is zero.
func FormatPercentage(software, manual int) string {
	var pct float64
	if manual > 0 {
		pct = float64(software) / float64(manual) * 100
	}
	return fmt.Sprintf("%.2f%%", pct)
}

// CountRows builds the row count entry of one account.
func CountRows(s *models.Statement, sheet *models.ReferenceSheet) RowCount {
	return RowCount{
		SeparateSheet: s.Key,
		FinalSheet:    sheet.Name,
		SeparateRows:  len(s.Rows),
		FinalRows:     len(sheet.Rows),
	}
}
