// Package identity turns the many spellings of a statement sheet name into
// one comparable account key.
//
// Operators name sheets by hand and the same account shows up as
// "XNS-BOB-361-CA", "XNS_361_BOB_CA", "bob 0361 ca xns" or "BOB-X361-CA".
// Canonicalize folds all of them to BANK-ACCT-PRODUCT, where ACCT is the
// last three or four account digits and a three-digit suffix is padded with
// the sentinel X so that "361" and "X361" compare equal.
//
// Example usage:
//
//	id, ok := identity.Parse("XNS_361_BOB_CA")
//	// id.String() == "BOB-X361-CA", ok == true
//
//	identity.Canonicalize("XNS")      // ""
//	identity.Canonicalize("XNS-1234") // ""
package identity

import (
	"fmt"
	"regexp"
	"strings"

	"contra-reconciliation-service/internal/models"

	"github.com/shopspring/decimal"
)

// Prefix marks statement-style sheet names.
const Prefix = "XNS"

// PadSentinel left-pads a three-digit account suffix.
const PadSentinel = "X"

// SheetIdentity is the canonical (bank, account suffix, product) triple.
// The zero value is the empty identity and never equals a real one.
type SheetIdentity struct {
	BankCode      string `json:"bank_code"`
	AccountSuffix string `json:"account_suffix"`
	Product       string `json:"product"`
}

// String renders BANK-ACCT-PRODUCT, or "" for the empty identity.
func (s SheetIdentity) String() string {
	if s.IsEmpty() {
		return ""
	}
	return fmt.Sprintf("%s-%s-%s", s.BankCode, s.AccountSuffix, s.Product)
}

// IsEmpty reports whether s is the empty identity.
func (s SheetIdentity) IsEmpty() bool {
	return s.BankCode == "" || s.AccountSuffix == "" || s.Product == ""
}

type shapeOrder int

const (
	bankAcctProduct shapeOrder = iota
	acctBankProduct
)

type shape struct {
	re    *regexp.Regexp
	order shapeOrder
}

const (
	bankGroup    = `([A-Z]{3,5})`
	acctGroup    = `(X\d{3}|\d{3,4})`
	productGroup = `([A-Z]{2})`
	optSep       = `[-_]?`
	reqSep       = `[-_]`
)

var (
	barePrefix = regexp.MustCompile(`^XNS[-_]?\d*$`)

	// Tried in order; the first shape that matches wins.
	canonicalShapes = []shape{
		{regexp.MustCompile(`^XNS` + optSep + bankGroup + optSep + acctGroup + optSep + productGroup + `$`), bankAcctProduct},
		{regexp.MustCompile(`^XNS` + optSep + acctGroup + optSep + bankGroup + optSep + productGroup + `$`), acctBankProduct},
		{regexp.MustCompile(`^` + bankGroup + optSep + acctGroup + optSep + productGroup + optSep + `XNS$`), bankAcctProduct},
		{regexp.MustCompile(`^` + bankGroup + optSep + acctGroup + optSep + productGroup + `$`), bankAcctProduct},
		{regexp.MustCompile(`^` + acctGroup + optSep + bankGroup + optSep + productGroup + `$`), acctBankProduct},
	}

	strictShapes = []*regexp.Regexp{
		regexp.MustCompile(`^XNS` + reqSep + `[A-Z]{3,5}` + reqSep + `X?\d{3,4}` + reqSep + `[A-Z]{2}$`),
		regexp.MustCompile(`^XNS` + reqSep + `X?\d{3,4}` + reqSep + `[A-Z]{3,5}` + reqSep + `[A-Z]{2}$`),
		regexp.MustCompile(`^[A-Z]{3,5}` + reqSep + `X?\d{3,4}` + reqSep + `[A-Z]{2}` + reqSep + `XNS$`),
		regexp.MustCompile(`^[A-Z]{3,5}` + reqSep + `X?\d{3,4}` + reqSep + `[A-Z]{2}$`),
		regexp.MustCompile(`^X?\d{3,4}` + reqSep + `[A-Z]{3,5}` + reqSep + `[A-Z]{2}$`),
	}

	whitespace = regexp.MustCompile(`\s+`)
	digitRuns  = regexp.MustCompile(`\d+`)
)

func squash(raw string) string {
	return whitespace.ReplaceAllString(strings.ToUpper(strings.TrimSpace(raw)), "")
}

// Parse canonicalizes raw. The boolean is false when no shape matches.
func Parse(raw string) (SheetIdentity, bool) {
	name := squash(raw)
	if name == "" || barePrefix.MatchString(name) {
		return SheetIdentity{}, false
	}

	for _, s := range canonicalShapes {
		m := s.re.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		bank, acct, product := m[1], m[2], m[3]
		if s.order == acctBankProduct {
			bank, acct = m[2], m[1]
		}
		if len(acct) == 3 {
			acct = PadSentinel + acct
		}
		return SheetIdentity{BankCode: bank, AccountSuffix: acct, Product: product}, true
	}

	return SheetIdentity{}, false
}

// Canonicalize returns BANK-ACCT-PRODUCT for raw, or "" when raw does not
// look like an account sheet name. It never fails and is idempotent.
func Canonicalize(raw string) string {
	id, _ := Parse(raw)
	return id.String()
}

// IsValidSheetName is the admission filter for reference workbook sheets:
// the same shapes as Canonicalize but with explicit separators.
func IsValidSheetName(name string) bool {
	n := squash(name)
	if n == "" || barePrefix.MatchString(n) {
		return false
	}
	for _, re := range strictShapes {
		if re.MatchString(n) {
			return true
		}
	}
	return false
}

// StatementKey builds the sheet key used for a loaded statement:
// XNS-BANK-<last 4 account digits>-PRODUCT.
func StatementKey(bankCode, accountNumber string, product models.Product) string {
	acct := strings.TrimSpace(accountNumber)
	if len(acct) > 4 {
		acct = acct[len(acct)-4:]
	}
	return fmt.Sprintf("%s-%s-%s-%s", Prefix, bankCode, acct, product)
}

// AccountSuffix returns the last four characters of the last digit run in
// key, or "" when key has no digits.
func AccountSuffix(key string) string {
	runs := digitRuns.FindAllString(key, -1)
	if len(runs) == 0 {
		return ""
	}
	last := runs[len(runs)-1]
	if len(last) > 4 {
		last = last[len(last)-4:]
	}
	return last
}

// BankCodeOf returns the first dash-separated segment of key that is
// neither numeric nor one of XNS, CA or OD.
func BankCodeOf(key string) string {
	for _, part := range strings.Split(key, "-") {
		if part == "" || isDigits(part) {
			continue
		}
		switch part {
		case Prefix, string(models.ProductCurrent), string(models.ProductOverdraft):
			continue
		}
		return part
	}
	return ""
}

// DisplayKey removes the XNS segment from key: XNS-SBI-1234-CA becomes
// SBI-1234-CA.
func DisplayKey(key string) string {
	parts := strings.Split(key, "-")
	out := parts[:0:0]
	removed := false
	for _, p := range parts {
		if p == Prefix && !removed {
			removed = true
			continue
		}
		out = append(out, p)
	}
	return strings.Join(out, "-")
}

// AccountType infers the product from running balances: OD when negative
// non-zero balances outnumber positive ones, CA otherwise.
func AccountType(balances []decimal.Decimal) models.Product {
	var neg, pos int
	for _, b := range balances {
		switch b.Sign() {
		case -1:
			neg++
		case 1:
			pos++
		}
	}
	if neg+pos > 0 && neg > pos {
		return models.ProductOverdraft
	}
	return models.ProductCurrent
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
