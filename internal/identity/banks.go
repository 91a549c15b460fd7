package identity

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// BankDirectory maps the bank names found in statement exports to the short
// codes used in sheet identifiers.
type BankDirectory struct {
	codes map[string]string
	names map[string]string
}

// BankEntry is one line of a bank directory file.
type BankEntry struct {
	Name string `yaml:"name"`
	Code string `yaml:"code"`
}

type bankFile struct {
	Banks []BankEntry `yaml:"banks"`
}

var defaultBanks = []BankEntry{
	{"Axis Bank, India", "AXIS"},
	{"Bank of Baroda, India", "BOB"},
	{"Bank of India, India", "BOI"},
	{"Bandhan Bank, India", "BDBL"},
	{"Canara Bank, India", "CNRB"},
	{"Catholic Syrian Bank, India", "CSB"},
	{"Citibank, India", "CITI"},
	{"City Union Bank, India", "CUB"},
	{"DBS Bank, India", "DBS"},
	{"Dhanalakshmi Bank Ltd., India", "DLXB"},
	{"Deutsche Bank, India", "DEUT"},
	{"Equitas Bank, India", "ESFB"},
	{"Federal Bank, India", "FDRL"},
	{"HDFC Bank, India", "HDFC"},
	{"ICICI Bank, India", "ICICI"},
	{"IDFC First Bank, India", "IDFC"},
	{"IDFC FIRST Bank, India", "IDFC"},
	{"Indian Bank, India", "IDIB"},
	{"IDBI, India", "IDBI"},
	{"Indian Overseas Bank, India", "IOB"},
	{"IndusInd Bank, India", "INDB"},
	{"Jana Small Finance Bank Ltd, India", "JSFB"},
	{"Karur Vysya Bank, India", "KVB"},
	{"Karnataka Bank, India", "KARB"},
	{"Kotak Mahindra Bank, India", "KKBK"},
	{"Punjab National Bank, India", "PNB"},
	{"RBL Bank, India", "RBL"},
	{"RBL (Ratnakar) Bank, India", "RBL"},
	{"South Indian Bank, India", "SIB"},
	{"State Bank of India, India", "SBI"},
	{"Standard Chartered Bank, India", "SCBL"},
	{"Tamilnad Mercantile Bank Ltd, India", "TMB"},
	{"Tamilnad Mercantile Bank Ltd., India", "TMB"},
	{"Union Bank of India, India", "UBI"},
	{"Ujjivan Bank, India", "UJVN"},
	{"UCO Bank, India", "UCO"},
	{"Yes Bank, India", "YBL"},
}

// DefaultBankDirectory returns the built-in table.
func DefaultBankDirectory() *BankDirectory {
	return NewBankDirectory(defaultBanks)
}

// NewBankDirectory builds a directory. Later entries override earlier ones,
// and the last name listed for a code is used for reverse lookups.
func NewBankDirectory(entries []BankEntry) *BankDirectory {
	d := &BankDirectory{
		codes: make(map[string]string, len(entries)),
		names: make(map[string]string, len(entries)),
	}
	for _, e := range entries {
		name := strings.TrimSpace(e.Name)
		code := strings.ToUpper(strings.TrimSpace(e.Code))
		if name == "" || code == "" {
			continue
		}
		d.codes[strings.ToLower(name)] = code
		d.names[code] = name
	}
	return d
}

// LoadBankDirectory reads a YAML file of the form
//
//	banks:
//	  - name: "HDFC Bank, India"
//	    code: HDFC
//
// and merges it over the built-in table.
func LoadBankDirectory(path string) (*BankDirectory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bank directory: %w", err)
	}
	defer f.Close()
	return ReadBankDirectory(f)
}

// ReadBankDirectory is LoadBankDirectory for an already open reader.
func ReadBankDirectory(r io.Reader) (*BankDirectory, error) {
	var file bankFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode bank directory: %w", err)
	}
	entries := append(append([]BankEntry(nil), defaultBanks...), file.Banks...)
	return NewBankDirectory(entries), nil
}

// Code returns the short code for a full bank name.
func (d *BankDirectory) Code(name string) (string, bool) {
	code, ok := d.codes[strings.ToLower(strings.TrimSpace(name))]
	return code, ok
}

// Name returns the display name for a code, or the code itself when unknown.
func (d *BankDirectory) Name(code string) string {
	if name, ok := d.names[strings.ToUpper(code)]; ok {
		return name
	}
	return code
}

// Codes lists the known codes in sorted order.
func (d *BankDirectory) Codes() []string {
	out := make([]string, 0, len(d.names))
	for code := range d.names {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}
