package refcode

import (
	"regexp"
	"sort"
	"strings"
)

// Reference numbers issued by the IMPS and UPI rails are 12 digits. A
// pattern's first capture group is the reference.
func reference(prefix string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + prefix + `(\d{12})(?:\D|$)`)
}

var defaultBankPatterns = map[string][]*regexp.Regexp{
	"HDFC": {
		reference(`IMPS-`),
		reference(`UPI-[^-]*-[^-]*-[^-]*-`),
	},
	"ICICI": {
		reference(`MMT/IMPS/`),
		reference(`UPI/`),
	},
	"SBI": {
		reference(`IMPS/P2A/`),
		reference(`TRANSFER-UPI/(?:CR|DR)/`),
	},
	"AXIS": {
		reference(`IMPS/P2A/`),
		reference(`UPI/P2[AM]/`),
	},
	"KKBK": {
		reference(`IMPS-`),
		reference(`UPI/[^/]*/`),
	},
	"BOB": {
		reference(`IMPS/`),
		reference(`UPI/`),
	},
	"IDIB": {
		reference(`IMPS/(?:P2A|DR|CR)/`),
		reference(`UPI/`),
	},
	"IDFC": {reference(`IMPS/`)},
	"YBL":  {reference(`IMPS/`)},
	"PNB":  {reference(`IMPS/`)},
	"CNRB": {reference(`IMPS-(?:IN|OUT)?[-/]?`)},
	"UBI":  {reference(`IMPS/`)},
}

var genericPatterns = []*regexp.Regexp{
	reference(`IMPS\D{0,12}?`),
	reference(`UPI\D{0,12}?`),
	reference(`RRN\D{0,3}`),
}

// Extractor finds bank-specific transfer reference numbers. The zero
// value only knows the generic IMPS/UPI shapes; use NewExtractor.
type Extractor struct {
	banks map[string][]*regexp.Regexp
}

// NewExtractor returns an extractor with the built-in bank patterns.
func NewExtractor() *Extractor {
	banks := make(map[string][]*regexp.Regexp, len(defaultBankPatterns))
	for code, patterns := range defaultBankPatterns {
		banks[code] = patterns
	}
	return &Extractor{banks: banks}
}

// Register adds patterns for a bank code. They are tried after the ones
// already known for that bank.
func (e *Extractor) Register(bankCode string, patterns ...*regexp.Regexp) {
	if e.banks == nil {
		e.banks = make(map[string][]*regexp.Regexp)
	}
	code := strings.ToUpper(bankCode)
	e.banks[code] = append(e.banks[code], patterns...)
}

// Banks lists the bank codes with dedicated patterns.
func (e *Extractor) Banks() []string {
	out := make([]string, 0, len(e.banks))
	for code := range e.banks {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// ExtractReferenceCode returns the transfer reference in description, or ""
// when there is none. The bank's own patterns are tried before the generic
// ones.
func (e *Extractor) ExtractReferenceCode(description, bankCode string) string {
	if strings.TrimSpace(description) == "" {
		return ""
	}
	for _, re := range e.banks[strings.ToUpper(bankCode)] {
		if m := re.FindStringSubmatch(description); m != nil {
			return m[1]
		}
	}
	for _, re := range genericPatterns {
		if m := re.FindStringSubmatch(description); m != nil {
			return m[1]
		}
	}
	return ""
}
