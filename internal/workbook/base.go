// Package workbook reads statement exports and the curated final workbook,
// and writes the processed statements back out as styled .xlsx files.
//
// Statement exports carry three sheets:
//   - Analysis: label/value pairs (holder name, bank name, account number)
//   - Statements Considered: free-form, copied into the output as-is
//   - Xns: one row per transaction with a signed Amount and a Debit/Credit Type
//
// The final workbook holds one sheet per account in the output column
// layout (Sl. No., Date, MONTH, TYPE, Cheque_No, Category, Description, DR,
// CR, Balance). Only sheets whose name contains XNS and passes
// identity.IsValidSheetName are read.
//
// Example usage:
//
//	loader, err := workbook.NewLoader(nil, nil, banks)
//	sf, err := loader.LoadStatement(ctx, "hdfc.xlsx")
//	ref, err := loader.LoadReference(ctx, "final.xlsx")
//
//	w := workbook.NewWriter("Matched_Statemants", nil)
//	path, err := w.WriteStatement(sf, result.Highlights[sf.Statement.Key])
//
// Unparsable cells never abort a load: the field is left empty and the
// problem is recorded in LoadStats.
package workbook

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"contra-reconciliation-service/internal/identity"
	"contra-reconciliation-service/pkg/errors"
	"contra-reconciliation-service/pkg/logger"

	"github.com/xuri/excelize/v2"
)

// DefaultMaxCellErrors caps the cell errors kept per file.
const DefaultMaxCellErrors = 100

// Loader reads statement and final workbooks.
type Loader struct {
	statement *StatementLayout
	reference *ReferenceLayout
	banks     *identity.BankDirectory
	maxErrors int
	logger    logger.Logger
}

// NewLoader creates a loader. Nil layouts or bank directory fall back to
// the defaults.
func NewLoader(statement *StatementLayout, reference *ReferenceLayout, banks *identity.BankDirectory) (*Loader, error) {
	if statement == nil {
		statement = DefaultStatementLayout()
	}
	if reference == nil {
		reference = DefaultReferenceLayout()
	}
	if banks == nil {
		banks = identity.DefaultBankDirectory()
	}
	if err := statement.Validate(); err != nil {
		return nil, fmt.Errorf("invalid statement layout: %w", err)
	}
	if err := reference.Validate(); err != nil {
		return nil, fmt.Errorf("invalid reference layout: %w", err)
	}

	return &Loader{
		statement: statement,
		reference: reference,
		banks:     banks,
		maxErrors: DefaultMaxCellErrors,
		logger:    logger.GetGlobalLogger().WithComponent("workbook"),
	}, nil
}

// WithLogger replaces the loader's logger.
func (l *Loader) WithLogger(log logger.Logger) *Loader {
	l.logger = log.WithComponent("workbook")
	return l
}

func (l *Loader) openReader(r io.Reader, name string) (*excelize.File, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		l.logger.WithError(err).WithField("file_name", name).Error("Failed to read workbook")
		return nil, errors.WorkbookError(errors.CodeUnreadable, name, "", err)
	}
	return f, nil
}

// sheetTable is a sheet read as a header row plus data rows. cols maps a
// header to its worksheet column and rowNumbers maps a data row to its
// 1-based worksheet row.
type sheetTable struct {
	file       string
	sheet      string
	headers    []string
	headerMap  map[string]int
	cols       []int
	rows       [][]string
	rowNumbers []int
}

// readTable reads sheet with raw cell values. Columns with an empty header
// are dropped and fully empty rows are skipped.
func readTable(ctx context.Context, f *excelize.File, file, sheet string, required []string) (*sheetTable, error) {
	raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errors.WorkbookError(errors.CodeMissingSheet, file, sheet, err)
	}
	if len(raw) == 0 {
		return nil, errors.MissingColumnsError(file, sheet, required, nil)
	}

	t := &sheetTable{file: file, sheet: sheet, headerMap: make(map[string]int)}
	for i, h := range raw[0] {
		h = cleanHeader(h)
		if h == "" || strings.HasPrefix(h, "Unnamed") {
			continue
		}
		t.cols = append(t.cols, i)
		t.headerMap[h] = len(t.headers)
		t.headers = append(t.headers, h)
	}

	if missing := t.missing(required); len(missing) > 0 {
		return nil, errors.MissingColumnsError(file, sheet, required, t.headers)
	}

	for n, rawRow := range raw[1:] {
		if n%500 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, errors.Wrap(err, errors.CategoryWorkbook, errors.CodeUnreadable, "workbook read cancelled")
			}
		}
		row := make([]string, len(t.cols))
		empty := true
		for j, i := range t.cols {
			if i < len(rawRow) {
				row[j] = strings.TrimSpace(rawRow[i])
				if row[j] != "" {
					empty = false
				}
			}
		}
		if empty {
			continue
		}
		t.rows = append(t.rows, row)
		t.rowNumbers = append(t.rowNumbers, n+2)
	}
	return t, nil
}

// cleanHeader trims a header cell. Exports pad some headers ("Sl. No. ").
func cleanHeader(h string) string {
	return strings.TrimSpace(h)
}

// columnIndex returns the index of a column by name, or -1 if not found
func (t *sheetTable) columnIndex(name string) int {
	if index, exists := t.headerMap[name]; exists {
		return index
	}
	for header, index := range t.headerMap {
		if strings.EqualFold(header, name) {
			return index
		}
	}
	return -1
}

func (t *sheetTable) missing(required []string) []string {
	var out []string
	for _, name := range required {
		if t.columnIndex(name) < 0 {
			out = append(out, name)
		}
	}
	return out
}

// value returns the cell of column name in row, or "" when the column is
// absent.
func (t *sheetTable) value(row []string, name string) string {
	i := t.columnIndex(name)
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// cell builds the location of a value for error reporting.
func (t *sheetTable) cell(n int, name, value string) errors.CellContext {
	col := name
	if i := t.columnIndex(name); i >= 0 {
		if letter, err := excelize.ColumnNumberToName(t.cols[i] + 1); err == nil {
			col = letter
		}
	}
	return errors.CellContext{File: t.file, Sheet: t.sheet, Row: t.rowNumbers[n], Column: col, Value: value}
}

// readGrid reads every cell of sheet as displayed, without a header.
func readGrid(f *excelize.File, sheet string) ([][]string, error) {
	return f.GetRows(sheet)
}

// hasSheet reports whether f contains sheet.
func hasSheet(f *excelize.File, sheet string) bool {
	idx, err := f.GetSheetIndex(sheet)
	return err == nil && idx >= 0
}

// LoadStats holds statistics about one loaded file.
type LoadStats struct {
	File       string               `json:"file"`
	Sheets     int                  `json:"sheets"`
	Rows       int                  `json:"rows"`
	CellErrors int                  `json:"cell_errors"`
	Errors     []*errors.CellError  `json:"-"`
	Summary    *errors.ErrorSummary `json:"summary,omitempty"`
	collector  *errors.CellErrorCollector
}

func newLoadStats(file string, maxErrors int) *LoadStats {
	return &LoadStats{File: file, collector: errors.NewCellErrorCollector(maxErrors)}
}

func (s *LoadStats) add(err *errors.CellError) {
	s.collector.Add(err)
}

func (s *LoadStats) finish() {
	s.CellErrors = s.collector.Count()
	s.Errors = s.collector.Errors()
	if s.collector.HasErrors() {
		s.Summary = s.collector.Summary()
	}
}

// HasErrors returns true if any cell could not be parsed
func (s *LoadStats) HasErrors() bool {
	return s.CellErrors > 0
}

// String returns a human-readable summary of load statistics
func (s *LoadStats) String() string {
	return fmt.Sprintf("Loaded %s: %d sheet(s), %d rows, %d cell errors", filepath.Base(s.File), s.Sheets, s.Rows, s.CellErrors)
}

// GetSampleErrors returns up to maxSamples cell error messages.
func (s *LoadStats) GetSampleErrors(maxSamples int) []string {
	if len(s.Errors) == 0 {
		return nil
	}
	limit := len(s.Errors)
	if maxSamples > 0 && maxSamples < limit {
		limit = maxSamples
	}
	samples := make([]string, 0, limit)
	for _, err := range s.Errors[:limit] {
		samples = append(samples, err.Error())
	}
	return samples
}
