// Package matcher pairs the transfer legs that appear in two statements of
// the same business.
//
// Money moved between two of a client's accounts shows up twice: as a
// debit in the paying statement and as a credit in the receiving one. For
// every pair of statements the engine walks the rows of the first statement
// in order and asks a fixed chain of strategies for exactly one counterpart
// in the second:
//  1. Reference: an IMPS/UPI reference number shared by both narrations
//  2. Self transfer: categories that name the other account's holder
//  3. Transfer code: net-banking eTXN codes with transfer categories
//  4. Masked suffix: a masked account number ending in the other account's digits
//
// The first strategy that yields a single unused candidate wins. Ambiguity
// is never resolved by guessing: two candidates mean no match. Matching is
// greedy and depends on row order.
//
// Example usage:
//
//	engine := matcher.NewEngine(matcher.DefaultConfig(), party.NewResolver(nil), refcode.NewExtractor())
//	results := engine.MatchAll(statements)
//	summary := matcher.Summarize(results)
package matcher

import (
	"fmt"
	"strings"

	"contra-reconciliation-service/internal/models"

	"github.com/shopspring/decimal"
)

// Strategy identifies one link of the candidate chain.
type Strategy int

const (
	// StrategyReference pairs rows through a transfer reference number.
	StrategyReference Strategy = iota

	// StrategySelfTransfer pairs rows whose categories name the holders.
	StrategySelfTransfer

	// StrategyTransferCode pairs net-banking eTXN rows.
	StrategyTransferCode

	// StrategyMaskedSuffix pairs rows through a masked account number.
	StrategyMaskedSuffix
)

// String returns the string representation of Strategy
func (s Strategy) String() string {
	switch s {
	case StrategyReference:
		return "reference"
	case StrategySelfTransfer:
		return "self_transfer"
	case StrategyTransferCode:
		return "transfer_code"
	case StrategyMaskedSuffix:
		return "masked_suffix"
	default:
		return "unknown"
	}
}

// ParseStrategy is the inverse of Strategy.String.
func ParseStrategy(s string) (Strategy, error) {
	for _, st := range DefaultStrategyOrder() {
		if st.String() == strings.ToLower(strings.TrimSpace(s)) {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown strategy %q", s)
}

// DefaultStrategyOrder is the production chain.
func DefaultStrategyOrder() []Strategy {
	return []Strategy{StrategyReference, StrategySelfTransfer, StrategyTransferCode, StrategyMaskedSuffix}
}

// Direction says which column of the first statement is paired against
// which column of the second.
type Direction int

const (
	// DirectionCreditDebit pairs credits of the first statement with debits of the second.
	DirectionCreditDebit Direction = iota
	// DirectionDebitCredit pairs debits of the first statement with credits of the second.
	DirectionDebitCredit
)

// Source is the side read from the first statement.
func (d Direction) Source() models.Side {
	if d == DirectionDebitCredit {
		return models.SideDebit
	}
	return models.SideCredit
}

// Target is the side read from the second statement.
func (d Direction) Target() models.Side {
	return d.Source().Opposite()
}

// String returns the string representation of Direction
func (d Direction) String() string {
	return d.Source().String() + "->" + d.Target().String()
}

// Config holds the thresholds of the candidate chain.
//
// Two variants of these rules have been used in production, one with an
// amount tolerance of 25 and no account veto, one with 100 and the veto.
// DefaultConfig is the latter and LegacyConfig the former. StrictConfig and
// RelaxedConfig cover the two remaining combinations.
type Config struct {
	// AmountTolerance is the largest absolute amount difference accepted
	// by the reference strategy. The other strategies need equal amounts.
	AmountTolerance decimal.Decimal `json:"amount_tolerance"`

	// ReferenceWindowDays widens the reference strategy's date lookup to
	// this many days on either side.
	ReferenceWindowDays int `json:"reference_window_days"`

	// ReferenceMinLength is the shortest extracted reference considered usable.
	ReferenceMinLength int `json:"reference_min_length"`

	// ReferenceTailLength is how many trailing characters of a reference
	// are compared.
	ReferenceTailLength int `json:"reference_tail_length"`

	// LongNumberDigits is the minimum length of a narration number that may
	// carry a reference tail.
	LongNumberDigits int `json:"long_number_digits"`

	// SuffixLength is the number of trailing digits of a masked account
	// number compared with a statement's account suffix.
	SuffixLength int `json:"suffix_length"`

	// SelfMarker is the category text exports use for own-account transfers.
	SelfMarker string `json:"self_marker"`

	// TransferInCategory and TransferOutCategory mark eTXN rows.
	TransferInCategory  string `json:"transfer_in_category"`
	TransferOutCategory string `json:"transfer_out_category"`

	// EnableAccountVeto drops self-transfer candidates whose masked account
	// numbers belong to neither statement.
	EnableAccountVeto bool `json:"enable_account_veto"`

	// Strategies is the chain, tried in order.
	Strategies []Strategy `json:"strategies"`
}

// DefaultConfig returns the configuration used in production.
func DefaultConfig() *Config {
	return &Config{
		AmountTolerance:     decimal.NewFromInt(100),
		ReferenceWindowDays: 1,
		ReferenceMinLength:  5,
		ReferenceTailLength: 5,
		LongNumberDigits:    5,
		SuffixLength:        4,
		SelfMarker:          "SELF",
		TransferInCategory:  "TRANSFER IN",
		TransferOutCategory: "TRANSFER OUT",
		EnableAccountVeto:   true,
		Strategies:          DefaultStrategyOrder(),
	}
}

// StrictConfig narrows the reference tolerance to 25 and keeps the veto.
func StrictConfig() *Config {
	cfg := DefaultConfig()
	cfg.AmountTolerance = decimal.NewFromInt(25)
	return cfg
}

// RelaxedConfig keeps the default tolerance and turns the account veto off.
func RelaxedConfig() *Config {
	cfg := DefaultConfig()
	cfg.EnableAccountVeto = false
	return cfg
}

// LegacyConfig is the earlier production variant: a tolerance of 25 and
// no account veto.
func LegacyConfig() *Config {
	cfg := DefaultConfig()
	cfg.AmountTolerance = decimal.NewFromInt(25)
	cfg.EnableAccountVeto = false
	return cfg
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.AmountTolerance.IsNegative() {
		return fmt.Errorf("amount tolerance cannot be negative: %s", c.AmountTolerance)
	}
	if c.ReferenceWindowDays < 0 {
		return fmt.Errorf("reference window days cannot be negative: %d", c.ReferenceWindowDays)
	}
	if c.ReferenceMinLength < 1 || c.ReferenceTailLength < 1 {
		return fmt.Errorf("reference lengths must be positive: min %d, tail %d", c.ReferenceMinLength, c.ReferenceTailLength)
	}
	if c.LongNumberDigits < 1 {
		return fmt.Errorf("long number digits must be positive: %d", c.LongNumberDigits)
	}
	if c.SuffixLength < 3 {
		return fmt.Errorf("suffix length must be at least 3: %d", c.SuffixLength)
	}
	if strings.TrimSpace(c.SelfMarker) == "" {
		return fmt.Errorf("self marker cannot be empty")
	}
	if len(c.Strategies) == 0 {
		return fmt.Errorf("at least one strategy is required")
	}
	seen := make(map[Strategy]bool, len(c.Strategies))
	for _, s := range c.Strategies {
		if s.String() == "unknown" {
			return fmt.Errorf("unknown strategy %d", int(s))
		}
		if seen[s] {
			return fmt.Errorf("strategy %s listed twice", s)
		}
		seen[s] = true
	}
	return nil
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	out := *c
	out.Strategies = append([]Strategy(nil), c.Strategies...)
	return &out
}

// WithinTolerance reports whether a and b differ by at most AmountTolerance.
func (c *Config) WithinTolerance(a, b decimal.Decimal) bool {
	return models.CompareAmountsWithTolerance(a, b, c.AmountTolerance)
}

// String returns a human-readable description of the configuration
func (c *Config) String() string {
	names := make([]string, len(c.Strategies))
	for i, s := range c.Strategies {
		names[i] = s.String()
	}
	return fmt.Sprintf("Config{AmountTolerance: %s, ReferenceWindow: ±%d days, AccountVeto: %t, Strategies: %s}",
		c.AmountTolerance, c.ReferenceWindowDays, c.EnableAccountVeto, strings.Join(names, ","))
}
