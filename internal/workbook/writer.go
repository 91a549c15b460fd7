package workbook

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"contra-reconciliation-service/internal/identity"
	"contra-reconciliation-service/internal/models"
	"contra-reconciliation-service/pkg/errors"
	"contra-reconciliation-service/pkg/logger"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Output sheet styling.
const (
	AnalysisSheetName = "ANALYSIS"
	FallbackSheetName = "Xns"
	maxSheetNameLen   = 31

	headerFill = "002060"
	redFill    = "FFCCCC"
	greenFill  = "C6EFCE"
	negative   = "FF0000"

	fontFamily = "Arial"
	fontSize   = 10

	amountFormat  = "0.00"
	balanceFormat = "#,##,##0.00"
	dateFormat    = "dd-mmm-yy"
)

// Fill names returned by a Highlighter.
const (
	FillRed   = "red"
	FillGreen = "green"
)

// columnWidths by output header. Unlisted columns keep the default width.
var columnWidths = map[string]float64{
	"Sl. No.":     8,
	"Date":        10,
	"MONTH":       10,
	"TYPE":        12,
	"Cheque_No":   12,
	"Category":    35,
	"Description": 50,
	"DR":          15,
	"CR":          15,
	"Balance":     18,
}

// Highlighter tells the writer how to shade a statement row, by 0-based
// position. It returns FillRed, FillGreen or "".
type Highlighter interface {
	Fill(pos int) string
}

// Writer writes processed statements as styled workbooks.
type Writer struct {
	dir    string
	layout *ReferenceLayout
	logger logger.Logger
}

// NewWriter creates a writer saving into dir. A nil layout uses the default
// output columns.
func NewWriter(dir string, layout *ReferenceLayout) *Writer {
	if layout == nil {
		layout = DefaultReferenceLayout()
	}
	return &Writer{
		dir:    dir,
		layout: layout,
		logger: logger.GetGlobalLogger().WithComponent("workbook_writer"),
	}
}

// WithLogger replaces the writer's logger.
func (w *Writer) WithLogger(log logger.Logger) *Writer {
	w.logger = log.WithComponent("workbook_writer")
	return w
}

// Dir returns the output directory.
func (w *Writer) Dir() string {
	return w.dir
}

// OutputFileName returns "<holder>-<display key>.xlsx". Slashes in the
// holder name become underscores and commas are removed.
func OutputFileName(holder, key string) string {
	holder = strings.ReplaceAll(holder, "/", "_")
	holder = strings.ReplaceAll(holder, ",", "")
	return fmt.Sprintf("%s-%s.xlsx", holder, identity.DisplayKey(key))
}

// DataSheetName returns the transaction sheet name for key. Excel limits
// sheet names to 31 characters.
func DataSheetName(key string) string {
	if key == "" || len(key) > maxSheetNameLen {
		return FallbackSheetName
	}
	return key
}

// WriteStatement writes sf into the output directory and returns the path.
// The workbook holds the ANALYSIS sheet, with Statements Considered below
// it, followed by the transaction sheet shaded by h. h may be nil.
func (w *Writer) WriteStatement(sf *StatementFile, h Highlighter) (string, error) {
	s := sf.Statement
	name := OutputFileName(s.HolderName, s.Key)
	path := filepath.Join(w.dir, name)

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", errors.WorkbookError(errors.CodeWriteFailed, name, "", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	styles := newStyleCache(f)
	if err := w.writeAnalysis(f, sf); err != nil {
		return "", errors.WorkbookError(errors.CodeWriteFailed, name, AnalysisSheetName, err)
	}

	sheet := DataSheetName(s.Key)
	if err := w.writeRows(f, styles, sheet, s.Rows, h); err != nil {
		return "", errors.WorkbookError(errors.CodeWriteFailed, name, sheet, err)
	}

	if err := f.SaveAs(path); err != nil {
		return "", errors.WorkbookError(errors.CodeWriteFailed, name, "", err)
	}

	w.logger.WithFields(logger.Fields{
		"file_name": name,
		"sheet":     sheet,
		"rows":      len(s.Rows),
	}).Debug("Wrote statement workbook")

	return path, nil
}

// writeAnalysis renames the default sheet to ANALYSIS and copies the
// Analysis grid, then Statements Considered three rows below it starting
// at column B.
func (w *Writer) writeAnalysis(f *excelize.File, sf *StatementFile) error {
	if err := f.SetSheetName(f.GetSheetName(0), AnalysisSheetName); err != nil {
		return err
	}
	if err := writeGrid(f, AnalysisSheetName, sf.Analysis, 1, 1); err != nil {
		return err
	}
	if len(sf.Considered) > 0 {
		if err := writeGrid(f, AnalysisSheetName, sf.Considered, len(sf.Analysis)+3, 2); err != nil {
			return err
		}
	}
	return f.SetColWidth(AnalysisSheetName, "C", "I", 15)
}

func writeGrid(f *excelize.File, sheet string, grid [][]string, row, col int) error {
	for i, cells := range grid {
		if len(cells) == 0 {
			continue
		}
		values := make([]interface{}, len(cells))
		for j, v := range cells {
			values[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(col, row+i)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeRows(f *excelize.File, styles *styleCache, sheet string, rows []*models.StatementRow, h Highlighter) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	headers := w.layout.Headers()
	headerStyle, err := styles.get(cellStyle{kind: kindHeader})
	if err != nil {
		return err
	}
	for j, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(j+1, 1)
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return err
		}
	}

	for pos, row := range rows {
		fill := ""
		if h != nil {
			fill = h.Fill(pos)
		}
		for j, header := range headers {
			value, style := w.cellValue(row, header)
			style.fill = fill
			id, err := styles.get(style)
			if err != nil {
				return err
			}
			cell, _ := excelize.CoordinatesToCellName(j+1, pos+2)
			if value != nil {
				if err := f.SetCellValue(sheet, cell, value); err != nil {
					return err
				}
			}
			if err := f.SetCellStyle(sheet, cell, cell, id); err != nil {
				return err
			}
		}
	}

	for j, header := range headers {
		width, ok := columnWidths[header]
		if !ok {
			continue
		}
		col, _ := excelize.ColumnNumberToName(j + 1)
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return err
		}
	}
	return f.SetRowHeight(sheet, 1, 20)
}

// cellValue returns the value and base style of one output cell. Empty
// cells return a nil value.
func (w *Writer) cellValue(row *models.StatementRow, header string) (interface{}, cellStyle) {
	l := w.layout
	text := func(s string) interface{} {
		if s == "" {
			return nil
		}
		return s
	}
	number := func(d decimal.NullDecimal) interface{} {
		if !d.Valid {
			return nil
		}
		return d.Decimal.InexactFloat64()
	}

	switch header {
	case l.SerialColumn:
		if n, err := strconv.Atoi(row.SerialNo); err == nil {
			return n, cellStyle{kind: kindText}
		}
		return text(row.SerialNo), cellStyle{kind: kindText}
	case l.DateColumn:
		if !row.HasDate() {
			return nil, cellStyle{kind: kindDate}
		}
		return row.Date, cellStyle{kind: kindDate}
	case l.MonthColumn:
		return text(row.Month), cellStyle{kind: kindText}
	case l.TypeColumn:
		return text(row.Type), cellStyle{kind: kindText}
	case l.ChequeColumn:
		return text(row.ChequeNo), cellStyle{kind: kindText}
	case l.CategoryColumn:
		return text(row.Category), cellStyle{kind: kindText}
	case l.DescriptionColumn:
		return text(row.Description), cellStyle{kind: kindWrapped}
	case l.DebitColumn:
		return number(row.Debit), cellStyle{kind: kindAmount}
	case l.CreditColumn:
		return number(row.Credit), cellStyle{kind: kindAmount}
	case l.BalanceColumn:
		return number(row.Balance), cellStyle{kind: kindBalance, negative: row.Balance.Valid && row.Balance.Decimal.IsNegative()}
	}
	return nil, cellStyle{kind: kindText}
}

type styleKind int

const (
	kindText styleKind = iota
	kindHeader
	kindWrapped
	kindDate
	kindAmount
	kindBalance
)

type cellStyle struct {
	kind     styleKind
	fill     string
	negative bool
}

// styleCache registers each distinct cell style with the workbook once.
type styleCache struct {
	f   *excelize.File
	ids map[cellStyle]int
}

func newStyleCache(f *excelize.File) *styleCache {
	return &styleCache{f: f, ids: make(map[cellStyle]int)}
}

func (c *styleCache) get(s cellStyle) (int, error) {
	if id, ok := c.ids[s]; ok {
		return id, nil
	}
	id, err := c.f.NewStyle(s.build())
	if err != nil {
		return 0, err
	}
	c.ids[s] = id
	return id, nil
}

func thinBorder() []excelize.Border {
	sides := []string{"left", "right", "top", "bottom"}
	border := make([]excelize.Border, 0, len(sides))
	for _, side := range sides {
		border = append(border, excelize.Border{Type: side, Color: "000000", Style: 1})
	}
	return border
}

func (s cellStyle) build() *excelize.Style {
	style := &excelize.Style{
		Border:    thinBorder(),
		Font:      &excelize.Font{Family: fontFamily, Size: fontSize},
		Alignment: &excelize.Alignment{Vertical: "center"},
	}

	switch s.kind {
	case kindHeader:
		style.Font.Bold = true
		style.Font.Color = "FFFFFF"
		style.Alignment.Horizontal = "center"
		style.Fill = excelize.Fill{Type: "pattern", Color: []string{headerFill}, Pattern: 1}
		return style
	case kindWrapped:
		style.Alignment.WrapText = true
	case kindDate:
		format := dateFormat
		style.CustomNumFmt = &format
	case kindAmount:
		format := amountFormat
		style.CustomNumFmt = &format
	case kindBalance:
		format := balanceFormat
		style.CustomNumFmt = &format
		if s.negative {
			style.Font.Color = negative
		}
	}

	switch s.fill {
	case FillRed:
		style.Fill = excelize.Fill{Type: "pattern", Color: []string{redFill}, Pattern: 1}
	case FillGreen:
		style.Fill = excelize.Fill{Type: "pattern", Color: []string{greenFill}, Pattern: 1}
	}
	return style
}
