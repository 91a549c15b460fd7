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
)

// Source is a named workbook that can be opened for reading, either a file
// on disk or an uploaded part.
type Source struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// FileSource returns a Source reading path.
func FileSource(path string) Source {
	return Source{
		Name: path,
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}
}

// StatementFile is a loaded statement export. Analysis and Considered keep
// the displayed cell text of the two metadata sheets for the output
// workbook.
type StatementFile struct {
	Statement  *models.Statement
	Analysis   [][]string
	Considered [][]string
	Stats      *LoadStats
}

// LoadStatement loads the statement export at path.
func (l *Loader) LoadStatement(ctx context.Context, path string) (*StatementFile, error) {
	return l.LoadStatementSource(ctx, FileSource(path))
}

// LoadStatementSource loads a statement export from src.
func (l *Loader) LoadStatementSource(ctx context.Context, src Source) (*StatementFile, error) {
	rc, err := src.Open()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.InputError(errors.CodeFileNotFound, src.Name)
		}
		return nil, errors.WorkbookError(errors.CodeUnreadable, src.Name, "", err)
	}
	defer rc.Close()
	return l.ReadStatement(ctx, rc, filepath.Base(src.Name))
}

// ReadStatement parses a statement export read from r. name is used for
// error reporting and as the statement source.
func (l *Loader) ReadStatement(ctx context.Context, r io.Reader, name string) (*StatementFile, error) {
	f, err := l.openReader(r, name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	layout := l.statement
	stats := newLoadStats(name, l.maxErrors)
	log := l.logger.WithField("file_name", name)

	if !hasSheet(f, layout.AnalysisSheet) {
		return nil, errors.WorkbookError(errors.CodeMissingSheet, name, layout.AnalysisSheet, nil)
	}
	analysis, err := readGrid(f, layout.AnalysisSheet)
	if err != nil {
		return nil, errors.WorkbookError(errors.CodeUnreadable, name, layout.AnalysisSheet, err)
	}
	stats.Sheets++

	labels := []string{layout.HolderLabel, layout.BankLabel, layout.AccountLabel}
	info := analysisValues(analysis, labels)
	if len(info) < len(labels) {
		found := make([]string, 0, len(info))
		for label := range info {
			found = append(found, label)
		}
		return nil, errors.MissingColumnsError(name, layout.AnalysisSheet, labels, found)
	}

	bankName := info[layout.BankLabel]
	code, ok := l.banks.Code(bankName)
	if !ok || code == "" {
		return nil, errors.UnknownBankError(name, bankName)
	}

	var considered [][]string
	if layout.ConsideredSheet != "" && hasSheet(f, layout.ConsideredSheet) {
		if considered, err = readGrid(f, layout.ConsideredSheet); err != nil {
			return nil, errors.WorkbookError(errors.CodeUnreadable, name, layout.ConsideredSheet, err)
		}
		stats.Sheets++
	}

	if !hasSheet(f, layout.TransactionsSheet) {
		return nil, errors.WorkbookError(errors.CodeMissingSheet, name, layout.TransactionsSheet, nil)
	}
	table, err := readTable(ctx, f, name, layout.TransactionsSheet, layout.requiredColumns())
	if err != nil {
		return nil, err
	}
	stats.Sheets++

	rows := make([]*models.StatementRow, 0, len(table.rows))
	for n, raw := range table.rows {
		rows = append(rows, l.statementRow(table, n, raw, stats))
	}

	account := strings.TrimSpace(info[layout.AccountLabel])
	s := &models.Statement{
		BankCode:      code,
		BankName:      bankName,
		AccountNumber: account,
		HolderName:    strings.TrimSpace(info[layout.HolderLabel]),
		Source:        name,
		Rows:          rows,
	}
	s.Product = identity.AccountType(s.Balances())
	s.Key = identity.StatementKey(code, account, s.Product)
	s.AccountSuffix = identity.AccountSuffix(s.Key)

	stats.Rows = len(rows)
	stats.finish()

	entry := log.WithFields(logger.Fields{
		"key":         s.Key,
		"holder":      s.HolderName,
		"rows":        stats.Rows,
		"cell_errors": stats.CellErrors,
	})
	if stats.HasErrors() {
		entry.WithField("samples", stats.GetSampleErrors(3)).Warn("Loaded statement with unreadable cells")
	} else {
		entry.Info("Loaded statement")
	}

	return &StatementFile{Statement: s, Analysis: analysis, Considered: considered, Stats: stats}, nil
}

// statementRow converts one Xns row. Amount goes to DR or CR by the Type
// column; the TYPE label of the result starts empty.
func (l *Loader) statementRow(t *sheetTable, n int, raw []string, stats *LoadStats) *models.StatementRow {
	layout := l.statement
	col := layout.GetColumnName

	row := &models.StatementRow{
		SerialNo:    t.value(raw, col(layout.SerialColumn)),
		ChequeNo:    t.value(raw, col(layout.ChequeColumn)),
		Description: t.value(raw, col(layout.DescriptionColumn)),
		Category:    models.PreprocessCategory(t.value(raw, col(layout.CategoryColumn))),
	}

	if v := t.value(raw, col(layout.DateColumn)); v != "" {
		date, err := models.ParseDateWithFormats(v)
		if err != nil {
			stats.add(errors.InvalidCellError(t.cell(n, col(layout.DateColumn), v), "date", err))
		} else {
			row.Date = date
			row.Month = strings.ToUpper(date.Format("Jan"))
		}
	}

	amountText := t.value(raw, col(layout.AmountColumn))
	amount, err := models.ParseAmount(amountText)
	if err != nil {
		stats.add(errors.InvalidCellError(t.cell(n, col(layout.AmountColumn), amountText), "amount", err))
	}

	switch typ := t.value(raw, col(layout.TypeColumn)); {
	case strings.EqualFold(typ, layout.DebitMarker):
		row.Debit = amount
	case strings.EqualFold(typ, layout.CreditMarker):
		row.Credit = amount
	default:
		if amount.Valid {
			stats.add(errors.InvalidCellError(t.cell(n, col(layout.TypeColumn), typ), "transaction type", nil))
		}
	}

	if v := t.value(raw, col(layout.BalanceColumn)); v != "" {
		balance, err := models.ParseAmount(v)
		if err != nil {
			stats.add(errors.InvalidCellError(t.cell(n, col(layout.BalanceColumn), v), "balance", err))
		}
		row.Balance = balance
	}

	return row
}

// analysisValues finds each label anywhere in the grid and takes the next
// non-empty cell to its right as the value.
func analysisValues(grid [][]string, labels []string) map[string]string {
	out := make(map[string]string, len(labels))
	for _, row := range grid {
		for j, cell := range row {
			cell = strings.TrimSpace(cell)
			for _, label := range labels {
				if _, done := out[label]; done || !strings.EqualFold(cell, label) {
					continue
				}
				for _, v := range row[j+1:] {
					if v = strings.TrimSpace(v); v != "" {
						out[label] = v
						break
					}
				}
			}
		}
	}
	return out
}

// Statements returns the loaded statements in order.
func Statements(files []*StatementFile) []*models.Statement {
	out := make([]*models.Statement, 0, len(files))
	for _, sf := range files {
		out = append(out, sf.Statement)
	}
	return out
}
