package errors

import (
	"fmt"
	"strings"
)

// CellContext locates a single worksheet cell.
type CellContext struct {
	File   string `json:"file"`
	Sheet  string `json:"sheet"`
	Row    int    `json:"row"`
	Column string `json:"column"`
	Value  string `json:"value"`
}

// CellError describes a cell whose content could not be interpreted. These
// are recoverable: the loader keeps the row and leaves the field empty.
type CellError struct {
	*ReconcilerError
	Cell *CellContext `json:"cell"`
}

// Error implements the error interface with location information
func (e *CellError) Error() string {
	if e.Cell == nil {
		return e.ReconcilerError.Error()
	}
	return fmt.Sprintf("%s at %s!%s%d", e.ReconcilerError.Error(), e.Cell.Sheet, e.Cell.Column, e.Cell.Row)
}

// InvalidCellError builds a CellError for an unparsable value.
func InvalidCellError(cell CellContext, expected string, cause error) *CellError {
	message := fmt.Sprintf("invalid %s value %q in column %s", expected, cell.Value, cell.Column)

	var base *ReconcilerError
	if cause != nil {
		base = Wrap(cause, CategoryWorkbook, CodeInvalidCell, message)
	} else {
		base = New(CategoryWorkbook, CodeInvalidCell, message)
	}
	base.WithContext("file", cell.File).
		WithContext("sheet", cell.Sheet).
		WithContext("row", cell.Row).
		WithContext("column", cell.Column)

	return &CellError{ReconcilerError: base, Cell: &cell}
}

// MissingColumnsError lists required headers absent from a sheet.
func MissingColumnsError(file, sheet string, expected, actual []string) *ReconcilerError {
	missing := findMissingColumns(expected, actual)
	return WorkbookError(CodeMissingColumn, file, sheet, nil).
		WithContext("missing_columns", missing).
		WithContext("found_columns", actual)
}

// CellErrorCollector gathers recoverable cell errors up to a limit.
type CellErrorCollector struct {
	errors    []*CellError
	maxErrors int
	dropped   int
}

// NewCellErrorCollector creates a new error collector
func NewCellErrorCollector(maxErrors int) *CellErrorCollector {
	return &CellErrorCollector{maxErrors: maxErrors}
}

// Add records err. Errors beyond the limit are only counted.
func (c *CellErrorCollector) Add(err *CellError) {
	if err == nil {
		return
	}
	if c.maxErrors > 0 && len(c.errors) >= c.maxErrors {
		c.dropped++
		return
	}
	c.errors = append(c.errors, err)
}

// HasErrors returns true if any errors have been collected
func (c *CellErrorCollector) HasErrors() bool {
	return len(c.errors) > 0
}

// Errors returns the retained errors.
func (c *CellErrorCollector) Errors() []*CellError {
	return c.errors
}

// Count returns the number of errors seen, including dropped ones.
func (c *CellErrorCollector) Count() int {
	return len(c.errors) + c.dropped
}

// Summary returns an error summary for all retained errors
func (c *CellErrorCollector) Summary() *ErrorSummary {
	result := make([]*ReconcilerError, len(c.errors))
	for i, err := range c.errors {
		result[i] = err.ReconcilerError
	}
	return NewErrorSummary(result)
}

func findMissingColumns(expected, actual []string) []string {
	actualSet := make(map[string]bool)
	for _, col := range actual {
		actualSet[strings.ToLower(strings.TrimSpace(col))] = true
	}

	var missing []string
	for _, col := range expected {
		if !actualSet[strings.ToLower(strings.TrimSpace(col))] {
			missing = append(missing, col)
		}
	}
	return missing
}
