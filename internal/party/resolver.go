package party

import (
	"regexp"
	"strings"
	"unicode"

	"contra-reconciliation-service/internal/models"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Kind is the coarse classification of a party name.
type Kind string

const (
	KindPerson  Kind = "PERSON"
	KindCompany Kind = "COMPANY"
	KindOther   Kind = "OTHER"
)

// String returns the string representation of Kind
func (k Kind) String() string {
	return string(k)
}

type rewrite struct {
	re   *regexp.Regexp
	with string
}

// Applied in order by NormalizeName, after upper-casing.
var nameRewrites = []rewrite{
	{regexp.MustCompile(`^M/S[.\s]*`), ""},
	{regexp.MustCompile(`^THE\s+`), ""},
	{regexp.MustCompile(`\b(PVT|PRIVATE)\s+(LTD|LIMITED)\b`), "PVT LTD"},
	{regexp.MustCompile(`\bPVT\.?\s*LTD\.?\b`), "PVT LTD"},
	{regexp.MustCompile(`\bPRIVATE\s+LIMITED\b`), "PVT LTD"},
	{regexp.MustCompile(`\bLTD\.?\b`), "LTD"},
	{regexp.MustCompile(`\bCO\.?\b`), "CO"},
	{regexp.MustCompile(`\bAND\b`), "&"},
	{regexp.MustCompile(`[^\w\s&]`), " "},
}

var (
	spaces     = regexp.MustCompile(`\s+`)
	ampersands = regexp.MustCompile(`\s*&\s*`)
)

// Resolver answers name questions against one Config. It holds no mutable
// state and is safe for concurrent use.
type Resolver struct {
	cfg        *Config
	honorifics map[string]struct{}
	firm       map[string]struct{}
	filler     map[string]struct{}
	suffixes   []*regexp.Regexp
}

// NewResolver builds a resolver. A nil config means DefaultConfig.
func NewResolver(cfg *Config) *Resolver {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	r := &Resolver{
		cfg:        cfg,
		honorifics: upperSet(cfg.Honorifics),
		firm:       upperSet(cfg.FirmKeywords),
		filler:     upperSet(cfg.FillerWords),
	}
	for _, s := range cfg.LegalSuffixes {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		r.suffixes = append(r.suffixes, regexp.MustCompile(`(?i)\s+`+regexp.QuoteMeta(s)+`\b`))
	}
	return r
}

// Config returns the configuration the resolver was built with.
func (r *Resolver) Config() *Config {
	return r.cfg
}

// fold strips combining marks so that "Ramé" and "Rame" normalize alike.
func fold(s string) string {
	out, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeName upper-cases raw, removes a leading M/S and THE, collapses
// legal suffix spellings, replaces punctuation with spaces and drops
// honorifics. Empty input gives "".
func (r *Resolver) NormalizeName(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(fold(raw)))
	if s == "" {
		return ""
	}
	for _, rw := range nameRewrites {
		s = rw.re.ReplaceAllString(s, rw.with)
	}
	s = strings.TrimSpace(spaces.ReplaceAllString(s, " "))

	parts := strings.Fields(s)
	kept := parts[:0]
	for _, p := range parts {
		if _, ok := r.honorifics[p]; ok {
			continue
		}
		kept = append(kept, p)
	}
	return strings.Join(kept, " ")
}

// Classify labels raw as COMPANY, PERSON or OTHER.
func (r *Resolver) Classify(raw string) Kind {
	tokens := strings.Fields(r.NormalizeName(raw))
	if len(tokens) == 0 {
		return KindOther
	}
	for _, t := range tokens {
		if _, ok := r.firm[t]; ok {
			return KindCompany
		}
	}
	if len(tokens) >= 4 {
		return KindCompany
	}
	for _, t := range tokens {
		if !isAlpha(t) {
			return KindOther
		}
	}
	return KindPerson
}

// CoreName is the normalized name without legal suffixes and ampersands.
func (r *Resolver) CoreName(raw string) string {
	core := r.NormalizeName(raw)
	if core == "" {
		return ""
	}
	for _, re := range r.suffixes {
		core = re.ReplaceAllString(core, "")
	}
	return strings.TrimSpace(ampersands.ReplaceAllString(core, " "))
}

// SameEntity reports whether a and b name the same legal or natural person.
func (r *Resolver) SameEntity(a, b string) bool {
	if strings.TrimSpace(a) == "" || strings.TrimSpace(b) == "" {
		return false
	}

	n1, n2 := r.NormalizeName(a), r.NormalizeName(b)
	if n1 != "" && n1 == n2 {
		return true
	}

	core1, core2 := r.CoreName(a), r.CoreName(b)
	if core1 != "" && core1 == core2 {
		return true
	}

	seq1, seq2 := r.significant(core1), r.significant(core2)
	if len(seq1) == 0 || len(seq2) == 0 {
		return false
	}
	common := sharedTokens(seq1, seq2)

	if r.Classify(a) == KindCompany && r.Classify(b) == KindCompany {
		smaller := min(len(uniq(seq1)), len(uniq(seq2)))
		if float64(common)/float64(smaller) >= r.cfg.CompanyOverlap {
			return true
		}
		return strings.ReplaceAll(core1, " ", "") == strings.ReplaceAll(core2, " ", "")
	}

	if common >= r.cfg.MinSharedTokens {
		return true
	}
	return orderedPrefix(seq1, seq2) >= 2
}

// InferTransferType labels a transfer between the holders of two accounts.
// The result does not depend on argument order.
func (r *Resolver) InferTransferType(from, to string) models.TransferType {
	k1, k2 := r.Classify(from), r.Classify(to)

	if k1 == k2 && k1 != KindOther {
		if r.SameEntity(from, to) {
			return models.TransferInterBank
		}
		return models.TransferSisterConcern
	}
	if (k1 == KindCompany && k2 == KindPerson) || (k1 == KindPerson && k2 == KindCompany) {
		return models.TransferSisterConcern
	}
	return models.TransferOther
}

// significant returns the tokens of a core name minus filler words, in order.
func (r *Resolver) significant(core string) []string {
	var out []string
	for _, t := range strings.Fields(core) {
		if _, ok := r.filler[t]; ok {
			continue
		}
		out = append(out, t)
	}
	return out
}

func uniq(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

func sharedTokens(a, b []string) int {
	sb := uniq(b)
	n := 0
	for t := range uniq(a) {
		if _, ok := sb[t]; ok {
			n++
		}
	}
	return n
}

// orderedPrefix returns the length of the shorter sequence when it is a
// prefix of the longer one, and 0 otherwise.
func orderedPrefix(a, b []string) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	for i := range a {
		if a[i] != b[i] {
			return 0
		}
	}
	return len(a)
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return s != ""
}
