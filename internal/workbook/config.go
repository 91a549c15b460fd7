package workbook

import (
	"fmt"
	"strings"
)

// StatementLayout describes a statement export: an Analysis sheet with
// label/value pairs, an optional Statements Considered sheet and the Xns
// transaction sheet.
type StatementLayout struct {
	AnalysisSheet     string `json:"analysis_sheet"`
	ConsideredSheet   string `json:"considered_sheet"`
	TransactionsSheet string `json:"transactions_sheet"`

	HolderLabel  string `json:"holder_label"`
	BankLabel    string `json:"bank_label"`
	AccountLabel string `json:"account_label"`

	SerialColumn      string `json:"serial_column"`
	DateColumn        string `json:"date_column"`
	ChequeColumn      string `json:"cheque_column"`
	DescriptionColumn string `json:"description_column"`
	AmountColumn      string `json:"amount_column"`
	TypeColumn        string `json:"type_column"`
	BalanceColumn     string `json:"balance_column"`
	CategoryColumn    string `json:"category_column"`

	// DebitMarker and CreditMarker are the values of TypeColumn.
	DebitMarker  string `json:"debit_marker"`
	CreditMarker string `json:"credit_marker"`

	ColumnAliases map[string]string `json:"column_aliases,omitempty"`
}

// DefaultStatementLayout returns the layout of the statement analyser export.
func DefaultStatementLayout() *StatementLayout {
	return &StatementLayout{
		AnalysisSheet:     "Analysis",
		ConsideredSheet:   "Statements Considered",
		TransactionsSheet: "Xns",

		HolderLabel:  "Name of the Account Holder",
		BankLabel:    "Name of the Bank",
		AccountLabel: "Account Number",

		SerialColumn:      "Sl. No.",
		DateColumn:        "Date",
		ChequeColumn:      "Cheque No.",
		DescriptionColumn: "Description",
		AmountColumn:      "Amount",
		TypeColumn:        "Type",
		BalanceColumn:     "Balance",
		CategoryColumn:    "Category",

		DebitMarker:  "Debit",
		CreditMarker: "Credit",

		ColumnAliases: make(map[string]string),
	}
}

// Validate checks if the statement layout is valid
func (l *StatementLayout) Validate() error {
	required := map[string]string{
		"analysis sheet":     l.AnalysisSheet,
		"transactions sheet": l.TransactionsSheet,
		"holder label":       l.HolderLabel,
		"bank label":         l.BankLabel,
		"account label":      l.AccountLabel,
		"date column":        l.DateColumn,
		"description column": l.DescriptionColumn,
		"amount column":      l.AmountColumn,
		"type column":        l.TypeColumn,
		"debit marker":       l.DebitMarker,
		"credit marker":      l.CreditMarker,
	}
	for name, value := range required {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s cannot be empty", name)
		}
	}
	if strings.EqualFold(l.DebitMarker, l.CreditMarker) {
		return fmt.Errorf("debit and credit markers must differ, both are %q", l.DebitMarker)
	}
	return nil
}

// GetColumnName returns the actual column name, checking aliases first
func (l *StatementLayout) GetColumnName(standardName string) string {
	if alias, exists := l.ColumnAliases[standardName]; exists {
		return alias
	}
	return standardName
}

func (l *StatementLayout) requiredColumns() []string {
	return []string{
		l.GetColumnName(l.DateColumn),
		l.GetColumnName(l.DescriptionColumn),
		l.GetColumnName(l.AmountColumn),
		l.GetColumnName(l.TypeColumn),
	}
}

// ReferenceLayout describes the sheets of the curated final workbook. The
// columns are those of the output workbook.
type ReferenceLayout struct {
	// SheetMarker must appear in a sheet name for the sheet to be read.
	SheetMarker string `json:"sheet_marker"`

	SerialColumn      string `json:"serial_column"`
	DateColumn        string `json:"date_column"`
	MonthColumn       string `json:"month_column"`
	TypeColumn        string `json:"type_column"`
	ChequeColumn      string `json:"cheque_column"`
	CategoryColumn    string `json:"category_column"`
	DescriptionColumn string `json:"description_column"`
	DebitColumn       string `json:"debit_column"`
	CreditColumn      string `json:"credit_column"`
	BalanceColumn     string `json:"balance_column"`
}

// DefaultReferenceLayout returns the column names written by Writer.
func DefaultReferenceLayout() *ReferenceLayout {
	return &ReferenceLayout{
		SheetMarker:       "XNS",
		SerialColumn:      "Sl. No.",
		DateColumn:        "Date",
		MonthColumn:       "MONTH",
		TypeColumn:        "TYPE",
		ChequeColumn:      "Cheque_No",
		CategoryColumn:    "Category",
		DescriptionColumn: "Description",
		DebitColumn:       "DR",
		CreditColumn:      "CR",
		BalanceColumn:     "Balance",
	}
}

// Validate checks if the reference layout is valid
func (l *ReferenceLayout) Validate() error {
	if strings.TrimSpace(l.SheetMarker) == "" {
		return fmt.Errorf("sheet marker cannot be empty")
	}
	if strings.TrimSpace(l.DateColumn) == "" {
		return fmt.Errorf("date column cannot be empty")
	}
	if strings.TrimSpace(l.TypeColumn) == "" {
		return fmt.Errorf("type column cannot be empty")
	}
	if strings.TrimSpace(l.DescriptionColumn) == "" {
		return fmt.Errorf("description column cannot be empty")
	}
	return nil
}

// Headers returns the output column order.
func (l *ReferenceLayout) Headers() []string {
	return []string{
		l.SerialColumn, l.DateColumn, l.MonthColumn, l.TypeColumn, l.ChequeColumn,
		l.CategoryColumn, l.DescriptionColumn, l.DebitColumn, l.CreditColumn, l.BalanceColumn,
	}
}

func (l *ReferenceLayout) requiredColumns() []string {
	return []string{l.DateColumn, l.TypeColumn, l.DescriptionColumn}
}
