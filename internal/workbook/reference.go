package workbook

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"contra-reconciliation-service/internal/identity"
	"contra-reconciliation-service/internal/models"
	"contra-reconciliation-service/pkg/errors"
	"contra-reconciliation-service/pkg/logger"

	"github.com/shopspring/decimal"
)

// ReferenceWorkbook is the curated final workbook.
type ReferenceWorkbook struct {
	// Label is the file name, used to key the row count and mismatch
	// summaries.
	Label  string
	Sheets []*models.ReferenceSheet
	// Skipped lists sheets that mention XNS but are not account sheets.
	Skipped []string
	Stats   *LoadStats
}

// LoadReference loads the final workbook at path.
func (l *Loader) LoadReference(ctx context.Context, path string) (*ReferenceWorkbook, error) {
	return l.LoadReferenceSource(ctx, FileSource(path))
}

// LoadReferenceSource loads the final workbook from src.
func (l *Loader) LoadReferenceSource(ctx context.Context, src Source) (*ReferenceWorkbook, error) {
	rc, err := src.Open()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.InputError(errors.CodeFileNotFound, src.Name)
		}
		return nil, errors.WorkbookError(errors.CodeUnreadable, src.Name, "", err)
	}
	defer rc.Close()
	return l.ReadReference(ctx, rc, filepath.Base(src.Name))
}

// ReadReference parses the final workbook read from r. Sheets without the
// XNS marker are ignored; a workbook without any is an error.
func (l *Loader) ReadReference(ctx context.Context, r io.Reader, name string) (*ReferenceWorkbook, error) {
	f, err := l.openReader(r, name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	layout := l.reference
	ref := &ReferenceWorkbook{Label: name, Stats: newLoadStats(name, l.maxErrors)}
	log := l.logger.WithField("file_name", name)

	marked := 0
	for _, sheet := range f.GetSheetList() {
		if !strings.Contains(strings.ToUpper(sheet), strings.ToUpper(layout.SheetMarker)) {
			log.WithField("sheet", sheet).Debug("Skipping non-XNS sheet")
			continue
		}
		marked++
		if !identity.IsValidSheetName(sheet) {
			log.WithField("sheet", sheet).Warn("Skipping invalid XNS sheet")
			ref.Skipped = append(ref.Skipped, sheet)
			continue
		}

		table, err := readTable(ctx, f, name, sheet, layout.requiredColumns())
		if err != nil {
			return nil, err
		}

		rs := &models.ReferenceSheet{Name: sheet, Rows: make([]*models.StatementRow, 0, len(table.rows))}
		for n, raw := range table.rows {
			rs.Rows = append(rs.Rows, l.referenceRow(table, n, raw, ref.Stats))
		}
		ref.Sheets = append(ref.Sheets, rs)
		ref.Stats.Sheets++
		ref.Stats.Rows += len(rs.Rows)

		log.WithFields(logger.Fields{"sheet": sheet, "rows": len(rs.Rows)}).Debug("Loaded final sheet")
	}

	if marked == 0 {
		return nil, errors.NoReferenceSheetsError(name)
	}

	ref.Stats.finish()
	log.WithFields(logger.Fields{
		"sheets":      len(ref.Sheets),
		"skipped":     len(ref.Skipped),
		"rows":        ref.Stats.Rows,
		"cell_errors": ref.Stats.CellErrors,
	}).Info("Loaded final workbook")

	return ref, nil
}

func (l *Loader) referenceRow(t *sheetTable, n int, raw []string, stats *LoadStats) *models.StatementRow {
	layout := l.reference

	row := &models.StatementRow{
		SerialNo:    t.value(raw, layout.SerialColumn),
		Month:       t.value(raw, layout.MonthColumn),
		Type:        t.value(raw, layout.TypeColumn),
		ChequeNo:    t.value(raw, layout.ChequeColumn),
		Category:    t.value(raw, layout.CategoryColumn),
		Description: t.value(raw, layout.DescriptionColumn),
	}

	if v := t.value(raw, layout.DateColumn); v != "" {
		date, err := models.ParseDateWithFormats(v)
		if err != nil {
			stats.add(errors.InvalidCellError(t.cell(n, layout.DateColumn, v), "date", err))
		} else {
			row.Date = date
		}
	}

	row.Debit = amountCell(t, n, raw, layout.DebitColumn, stats)
	row.Credit = amountCell(t, n, raw, layout.CreditColumn, stats)
	row.Balance = amountCell(t, n, raw, layout.BalanceColumn, stats)

	return row
}

// amountCell parses an optional amount column. Unparsable values are
// recorded and left empty.
func amountCell(t *sheetTable, n int, raw []string, column string, stats *LoadStats) decimal.NullDecimal {
	v := t.value(raw, column)
	if v == "" {
		return decimal.NullDecimal{}
	}
	amount, err := models.ParseAmount(v)
	if err != nil {
		stats.add(errors.InvalidCellError(t.cell(n, column, v), "amount", err))
	}
	return amount
}
