package reconciler

import (
	"strings"
	"time"

	"contra-reconciliation-service/internal/models"
)

// DataPreprocessor cleans loaded statements before matching.
type DataPreprocessor struct {
	config *PreprocessingConfig
	stats  PreprocessingStats
}

// PreprocessingConfig contains configuration for data preprocessing
type PreprocessingConfig struct {
	// TrimWhitespace trims descriptions, categories and cheque numbers.
	TrimWhitespace bool `json:"trim_whitespace"`

	// CleanCategories strips the "Transfer from"/"Transfer to" prefixes.
	CleanCategories bool `json:"clean_categories"`

	// AbsoluteAmounts stores debits and credits as magnitudes.
	AbsoluteAmounts bool `json:"absolute_amounts"`

	// ResetTypes clears TYPE labels left over from an earlier run.
	ResetTypes bool `json:"reset_types"`

	// FillMonth derives MONTH (JAN, FEB, ...) from the date when empty.
	FillMonth bool `json:"fill_month"`
}

// DefaultPreprocessingConfig returns a default preprocessing configuration
func DefaultPreprocessingConfig() *PreprocessingConfig {
	return &PreprocessingConfig{
		TrimWhitespace:  true,
		CleanCategories: true,
		AbsoluteAmounts: true,
		ResetTypes:      false,
		FillMonth:       true,
	}
}

// NewDataPreprocessor creates a new data preprocessor
func NewDataPreprocessor(config *PreprocessingConfig) *DataPreprocessor {
	if config == nil {
		config = DefaultPreprocessingConfig()
	}
	return &DataPreprocessor{config: config}
}

// PreprocessStatements cleans every row in place. Rows are never dropped
// so that positions stay aligned with the source workbook.
func (dp *DataPreprocessor) PreprocessStatements(statements []*models.Statement) {
	start := time.Now()
	for _, s := range statements {
		for _, row := range s.Rows {
			if dp.preprocessRow(row) {
				dp.stats.RowsChanged++
			}
			dp.stats.RowsProcessed++
		}
		dp.stats.Statements++
	}
	dp.stats.ProcessingTime += time.Since(start)
}

// preprocessRow reports whether anything changed.
func (dp *DataPreprocessor) preprocessRow(row *models.StatementRow) bool {
	before := *row
	changed := false

	if dp.config.TrimWhitespace {
		row.Description = strings.TrimSpace(row.Description)
		row.Category = strings.TrimSpace(row.Category)
		row.ChequeNo = strings.TrimSpace(row.ChequeNo)
	}
	if dp.config.CleanCategories {
		row.Category = models.PreprocessCategory(row.Category)
	}
	if dp.config.AbsoluteAmounts {
		if row.Debit.Valid && row.Debit.Decimal.IsNegative() {
			row.Debit.Decimal = row.Debit.Decimal.Abs()
			changed = true
		}
		if row.Credit.Valid && row.Credit.Decimal.IsNegative() {
			row.Credit.Decimal = row.Credit.Decimal.Abs()
			changed = true
		}
	}
	if dp.config.ResetTypes && row.Type != "" {
		row.Type = ""
		changed = true
	}
	if dp.config.FillMonth && row.Month == "" && !row.Date.IsZero() {
		row.Month = strings.ToUpper(row.Date.Format("Jan"))
		changed = true
	}

	return changed ||
		before.Description != row.Description ||
		before.Category != row.Category ||
		before.ChequeNo != row.ChequeNo
}

// GetStatistics returns preprocessing statistics
func (dp *DataPreprocessor) GetStatistics() *PreprocessingStats {
	stats := dp.stats
	stats.Config = dp.config
	return &stats
}

// PreprocessingStats contains statistics about preprocessing operations
type PreprocessingStats struct {
	Config         *PreprocessingConfig `json:"config"`
	Statements     int                  `json:"statements"`
	RowsProcessed  int                  `json:"rows_processed"`
	RowsChanged    int                  `json:"rows_changed"`
	ProcessingTime time.Duration        `json:"processing_time"`
}
