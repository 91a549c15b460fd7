package models

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// DateKeyFormat is the layout used for date-keyed lookups and row keys.
const DateKeyFormat = "2006-01-02"

// Product is the account product code carried in a sheet identifier.
type Product string

const (
	ProductCurrent   Product = "CA"
	ProductOverdraft Product = "OD"
)

// String returns the string representation of Product
func (p Product) String() string {
	return string(p)
}

// TransferType labels a matched contra pair.
type TransferType string

const (
	// TransferInterBank marks a transfer between two accounts of the same entity.
	TransferInterBank TransferType = "INB TRF"
	// TransferSisterConcern marks a transfer between related but distinct entities.
	TransferSisterConcern TransferType = "SIS CON"
	// TransferOther is used when neither label can be inferred.
	TransferOther TransferType = "OTHERS"
)

// String returns the string representation of TransferType
func (t TransferType) String() string {
	return string(t)
}

// IsContra reports whether t is one of the two labels that count as a
// reconciled contra entry.
func (t TransferType) IsContra() bool {
	return t == TransferInterBank || t == TransferSisterConcern
}

// Side selects the debit or credit column of a row.
type Side int

const (
	SideDebit Side = iota
	SideCredit
)

// String returns the string representation of Side
func (s Side) String() string {
	if s == SideCredit {
		return "CR"
	}
	return "DR"
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideCredit {
		return SideDebit
	}
	return SideCredit
}

// StatementRow is one transaction line of a statement or of a reference
// sheet. Category and Type are the only fields the matcher rewrites.
type StatementRow struct {
	SerialNo    string              `json:"sl_no,omitempty"`
	Date        time.Time           `json:"date"`
	Month       string              `json:"month,omitempty"`
	Type        string              `json:"type"`
	ChequeNo    string              `json:"cheque_no,omitempty"`
	Category    string              `json:"category"`
	Description string              `json:"description"`
	Debit       decimal.NullDecimal `json:"dr"`
	Credit      decimal.NullDecimal `json:"cr"`
	Balance     decimal.NullDecimal `json:"balance"`

	// Derived by Prepare.
	NormDate      time.Time `json:"-"`
	ReferenceCode string    `json:"-"`
	Numbers       []string  `json:"-"`
}

// Amount returns the absolute value of the requested side. The second
// result is false when the cell was empty or unparsable.
func (r *StatementRow) Amount(side Side) (decimal.Decimal, bool) {
	v := r.Debit
	if side == SideCredit {
		v = r.Credit
	}
	if !v.Valid {
		return decimal.Zero, false
	}
	return v.Decimal.Abs(), true
}

// Value returns the absolute value of the requested side, zero when absent.
func (r *StatementRow) Value(side Side) decimal.Decimal {
	d, _ := r.Amount(side)
	return d
}

// PrimaryAmount returns the debit when it is non-zero, otherwise the credit.
func (r *StatementRow) PrimaryAmount() (decimal.Decimal, bool) {
	if d, ok := r.Amount(SideDebit); ok && !d.IsZero() {
		return d, true
	}
	return r.Amount(SideCredit)
}

// Day returns NormDate, or the normalized raw date for rows that were
// never prepared (reference sheet rows).
func (r *StatementRow) Day() time.Time {
	if !r.NormDate.IsZero() {
		return r.NormDate
	}
	return NormalizeDate(r.Date)
}

// HasDate reports whether the row carries a usable date.
func (r *StatementRow) HasDate() bool {
	return !r.Day().IsZero()
}

// DateKey returns the normalized date as YYYY-MM-DD, or "" when absent.
func (r *StatementRow) DateKey() string {
	if !r.HasDate() {
		return ""
	}
	return r.Day().Format(DateKeyFormat)
}

// Key is the row identity used when comparing against a reference sheet:
// normalized date and lower-cased trimmed description.
func (r *StatementRow) Key() string {
	return r.DateKey() + "|" + strings.ToLower(strings.TrimSpace(r.Description))
}

// String returns a string representation of the row
func (r *StatementRow) String() string {
	return fmt.Sprintf("Row{Date: %s, DR: %s, CR: %s, Category: %q, Description: %q}",
		r.DateKey(), nullString(r.Debit), nullString(r.Credit), r.Category, r.Description)
}

// MarshalJSON renders amounts as strings and the date as YYYY-MM-DD.
func (r *StatementRow) MarshalJSON() ([]byte, error) {
	type Alias StatementRow
	return json.Marshal(&struct {
		Date    string `json:"date"`
		Debit   string `json:"dr,omitempty"`
		Credit  string `json:"cr,omitempty"`
		Balance string `json:"balance,omitempty"`
		*Alias
	}{
		Date:    r.DateKey(),
		Debit:   nullString(r.Debit),
		Credit:  nullString(r.Credit),
		Balance: nullString(r.Balance),
		Alias:   (*Alias)(r),
	})
}

func nullString(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}

// Statement is one bank account's transaction list. HolderName, Key and the
// identity fields are fixed at load time.
type Statement struct {
	Key           string          `json:"key"`
	BankCode      string          `json:"bank_code"`
	BankName      string          `json:"bank_name,omitempty"`
	AccountNumber string          `json:"account_number,omitempty"`
	AccountSuffix string          `json:"account_suffix"`
	Product       Product         `json:"product"`
	HolderName    string          `json:"holder_name"`
	Source        string          `json:"source,omitempty"`
	Rows          []*StatementRow `json:"rows"`
}

// Balances returns every valid balance in row order.
func (s *Statement) Balances() []decimal.Decimal {
	out := make([]decimal.Decimal, 0, len(s.Rows))
	for _, r := range s.Rows {
		if r.Balance.Valid {
			out = append(out, r.Balance.Decimal)
		}
	}
	return out
}

// String returns a string representation of the statement
func (s *Statement) String() string {
	return fmt.Sprintf("Statement{Key: %s, Holder: %q, Rows: %d}", s.Key, s.HolderName, len(s.Rows))
}

// ReferenceSheet is a curated sheet of the final workbook.
type ReferenceSheet struct {
	Name string          `json:"name"`
	Rows []*StatementRow `json:"rows"`
}

// Utility functions for type conversion and validation

var currencyNoise = strings.NewReplacer("₹", "", "$", "", ",", "", "Rs.", "", "INR", "", " ", "")

// ParseAmount parses a decimal value from a cell. Empty cells, "nan" and
// "-" yield an invalid NullDecimal without error.
func ParseAmount(s string) (decimal.NullDecimal, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "nan", "-", "none":
		return decimal.NullDecimal{}, nil
	}

	cleaned := currencyNoise.Replace(s)
	negative := false
	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		negative = true
		cleaned = strings.TrimSuffix(strings.TrimPrefix(cleaned, "("), ")")
	}
	cleaned = strings.TrimSuffix(strings.TrimSuffix(cleaned, "Cr"), "Dr")

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("invalid decimal format '%s': %w", s, err)
	}
	if negative {
		d = d.Neg()
	}
	return decimal.NewNullDecimal(d), nil
}

var serialDate = regexp.MustCompile(`^\d{4,5}(\.\d+)?$`)

// dateFormats are tried in order. Statements are day-first.
var dateFormats = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"02-01-2006",
	"02/01/2006",
	"02.01.2006",
	"02-01-06",
	"02/01/06",
	"2-1-2006",
	"2/1/2006",
	"02-Jan-2006",
	"02 Jan 2006",
	"02-Jan-06",
	"2 Jan 2006",
	"Jan 2, 2006",
	"02/01/2006 15:04:05",
	"02-01-2006 15:04:05",
	"01-02-06",
}

// ParseDateWithFormats parses a cell value into a date. Excel serial numbers
// are accepted too.
func ParseDateWithFormats(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date string cannot be empty")
	}

	if serialDate.MatchString(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			if t, err := excelize.ExcelDateToTime(f, false); err == nil {
				return t, nil
			}
		}
	}

	var lastErr error
	for _, format := range dateFormats {
		t, err := time.Parse(format, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}

	return time.Time{}, fmt.Errorf("unable to parse date '%s': %w", s, lastErr)
}

// NormalizeDate truncates t to midnight UTC.
func NormalizeDate(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CompareAmountsWithTolerance compares two decimal amounts with a tolerance
func CompareAmountsWithTolerance(a, b, tolerance decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tolerance)
}

var transferPrefix = strings.NewReplacer("Transfer from", "", "Transfer to", "")

// PreprocessCategory removes the "Transfer from"/"Transfer to" prefixes
// statement exports put in front of counterparty names.
func PreprocessCategory(category string) string {
	return strings.TrimSpace(transferPrefix.Replace(category))
}
