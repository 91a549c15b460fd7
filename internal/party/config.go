// Package party normalizes account-holder and counterparty names, classifies
// them as people or companies and decides whether two names denote the same
// entity.
//
// The resolver is the only place where name heuristics live. The matcher
// uses it to read category text against holder names, and to label a paired
// transfer as inter-bank (same entity on both sides) or sister-concern.
//
// Example usage:
//
//	r := party.NewResolver(party.DefaultConfig())
//	r.SameEntity("M/S Acme Traders Pvt. Ltd.", "ACME TRADERS PRIVATE LIMITED") // true
//	r.InferTransferType("Acme Traders Pvt Ltd", "Ravi Kumar")                // SIS CON
package party

import (
	"fmt"
	"strings"
)

// Config carries the word lists and thresholds the resolver works with.
// All word lists are compared in upper case.
type Config struct {
	// Honorifics are dropped from normalized names.
	Honorifics []string `json:"honorifics" yaml:"honorifics"`

	// FirmKeywords make any name containing them a COMPANY.
	FirmKeywords []string `json:"firm_keywords" yaml:"firm_keywords"`

	// FillerWords are ignored when comparing token sets.
	FillerWords []string `json:"filler_words" yaml:"filler_words"`

	// LegalSuffixes are stripped to obtain a core name. Order matters:
	// longer suffixes must come first.
	LegalSuffixes []string `json:"legal_suffixes" yaml:"legal_suffixes"`

	// CompanyOverlap is the share of the smaller token set two company
	// names must have in common.
	CompanyOverlap float64 `json:"company_overlap" yaml:"company_overlap"`

	// MinSharedTokens is the overlap required outside the company/company case.
	MinSharedTokens int `json:"min_shared_tokens" yaml:"min_shared_tokens"`

	// NameTokenSet and NameSequence are the SimilarName thresholds.
	NameTokenSet float64 `json:"name_token_set" yaml:"name_token_set"`
	NameSequence float64 `json:"name_sequence" yaml:"name_sequence"`

	// Mention* configure DescriptionMentions.
	MentionMaxConcat  int     `json:"mention_max_concat" yaml:"mention_max_concat"`
	MentionProportion float64 `json:"mention_proportion" yaml:"mention_proportion"`
	MentionSequence   float64 `json:"mention_sequence" yaml:"mention_sequence"`
	MentionTokenSet   float64 `json:"mention_token_set" yaml:"mention_token_set"`
}

// DefaultConfig returns the word lists and thresholds used in production.
func DefaultConfig() *Config {
	return &Config{
		Honorifics: []string{"MR", "MRS", "MS", "MISS", "DR", "SHRI", "SMT"},
		FirmKeywords: []string{
			"AGENCY", "AGENCIES", "ENTERPRISE", "ENTERPRISES", "TRADERS", "TRADING",
			"INDUSTRIES", "INDUSTRY", "CO", "COMPANY", "LLP", "LTD", "LIMITED",
			"ASSOCIATES", "TRUST", "FOUNDATION", "CENTRE", "CENTER",
			"STORE", "STORES", "SHOP", "SOLUTIONS", "PVT", "PRIVATE",
		},
		FillerWords:       []string{"THE", "AND", "OF", "FOR", "WITH"},
		LegalSuffixes:     []string{"PVT LTD", "LTD", "LIMITED", "CO", "LLP", "PVT", "PRIVATE"},
		CompanyOverlap:    0.70,
		MinSharedTokens:   2,
		NameTokenSet:      0.85,
		NameSequence:      0.88,
		MentionMaxConcat:  4,
		MentionProportion: 0.5,
		MentionSequence:   0.60,
		MentionTokenSet:   0.75,
	}
}

// Validate checks thresholds are in range.
func (c *Config) Validate() error {
	ratios := map[string]float64{
		"company_overlap":    c.CompanyOverlap,
		"name_token_set":     c.NameTokenSet,
		"name_sequence":      c.NameSequence,
		"mention_proportion": c.MentionProportion,
		"mention_sequence":   c.MentionSequence,
		"mention_token_set":  c.MentionTokenSet,
	}
	for name, v := range ratios {
		if v <= 0 || v > 1 {
			return fmt.Errorf("%s must be in (0, 1]: %f", name, v)
		}
	}
	if c.MinSharedTokens < 1 {
		return fmt.Errorf("min shared tokens must be positive: %d", c.MinSharedTokens)
	}
	if c.MentionMaxConcat < 1 {
		return fmt.Errorf("mention max concat must be positive: %d", c.MentionMaxConcat)
	}
	return nil
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	out := *c
	out.Honorifics = append([]string(nil), c.Honorifics...)
	out.FirmKeywords = append([]string(nil), c.FirmKeywords...)
	out.FillerWords = append([]string(nil), c.FillerWords...)
	out.LegalSuffixes = append([]string(nil), c.LegalSuffixes...)
	return &out
}

func upperSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[strings.ToUpper(strings.TrimSpace(w))] = struct{}{}
	}
	return set
}
