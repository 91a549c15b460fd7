package reconciler

import (
	"fmt"
	"strings"
	"time"

	"contra-reconciliation-service/internal/identity"
	"contra-reconciliation-service/internal/matcher"
	"contra-reconciliation-service/internal/models"
	"contra-reconciliation-service/pkg/logger"

	"github.com/shopspring/decimal"
)

// Service runs a batch: pairing, matching, comparison against the final
// workbook and the summary.
type Service struct {
	engine        *matcher.Engine
	banks         *identity.BankDirectory
	preprocessing *PreprocessingConfig
	config        *Config
	log           logger.Logger

	progressCallbacks []ProgressCallback
}

// Config holds the comparison settings.
type Config struct {
	// TransferTypes are the TYPE labels compared against the final workbook.
	TransferTypes []models.TransferType `json:"transfer_types"`

	// IgnoreCategories drops rows whose upper-cased category contains any
	// of these words. Interest and bank charges differ between CA and OD
	// exports and are reconciled by hand.
	IgnoreCategories []string `json:"ignore_categories"`

	// AmountTolerance is used when scoring backfill candidates.
	AmountTolerance decimal.Decimal `json:"amount_tolerance"`

	// MinBackfillScore is the lowest score that marks a backfill row.
	MinBackfillScore int `json:"min_backfill_score"`
}

// DefaultConfig returns the production comparison settings.
func DefaultConfig() *Config {
	return &Config{
		TransferTypes: []models.TransferType{models.TransferInterBank, models.TransferSisterConcern},
		IgnoreCategories: []string{
			"INTEREST", "INTEREST CHARGES", "INTEREST CHARGES REVERSAL",
			"BANK CHARGES", "RETURN", "RETURN CHARGES", "CHARGES",
			"REVERSAL", "PENALTY", "PENALTY CHARGES",
		},
		AmountTolerance:  decimal.NewFromInt(100),
		MinBackfillScore: 2,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if len(c.TransferTypes) == 0 {
		return fmt.Errorf("at least one transfer type is required")
	}
	if c.AmountTolerance.IsNegative() {
		return fmt.Errorf("amount tolerance cannot be negative: %s", c.AmountTolerance)
	}
	if c.MinBackfillScore < 1 {
		return fmt.Errorf("minimum backfill score must be positive, got %d", c.MinBackfillScore)
	}
	return nil
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	out := *c
	out.TransferTypes = append([]models.TransferType(nil), c.TransferTypes...)
	out.IgnoreCategories = append([]string(nil), c.IgnoreCategories...)
	return &out
}

func (c *Config) isTransfer(row *models.StatementRow) bool {
	typ := strings.ToUpper(strings.TrimSpace(row.Type))
	for _, t := range c.TransferTypes {
		if typ == strings.ToUpper(string(t)) {
			return true
		}
	}
	return false
}

func (c *Config) isIgnored(row *models.StatementRow) bool {
	category := strings.ToUpper(strings.TrimSpace(row.Category))
	for _, ignored := range c.IgnoreCategories {
		if strings.Contains(category, strings.ToUpper(ignored)) {
			return true
		}
	}
	return false
}

// Batch is one reconciliation request: the statements in load order and
// the curated sheets of the final workbook.
type Batch struct {
	// Label identifies the final workbook, usually its file name.
	Label      string
	Statements []*models.Statement
	Sheets     []*models.ReferenceSheet
}

// Result contains the complete results of a batch.
type Result struct {
	RunID      string    `json:"run_id"`
	Label      string    `json:"label"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Accounts are the canonical identities, sorted.
	Accounts []string `json:"accounts"`

	Pairs        []*matcher.PairResult `json:"pairs"`
	MatchSummary matcher.MatchSummary  `json:"match_summary"`

	// Reports follow Accounts.
	Reports    []*MismatchReport    `json:"reports"`
	Summary    []SummaryRow         `json:"summary"`
	RowCounts  map[string]RowCount  `json:"row_count_summary"`
	Highlights map[string]Highlight `json:"highlights"`

	// Statements are the matched statements, in load order.
	Statements []*models.Statement `json:"-"`

	HasMismatch        bool                `json:"has_mismatch"`
	PreprocessingStats *PreprocessingStats `json:"preprocessing_stats,omitempty"`
}

// Duration returns how long the batch took.
func (r *Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// MismatchSummary returns the reports keyed by "label::sheet", each under
// the "INB TRF/SIS CON Comparison" heading.
func (r *Result) MismatchSummary() map[string]map[string]*MismatchReport {
	out := make(map[string]map[string]*MismatchReport, len(r.Reports))
	for _, rep := range r.Reports {
		out[SheetID(r.Label, rep.FinalSheet)] = map[string]*MismatchReport{
			ComparisonHeading: rep,
		}
	}
	return out
}

// ComparisonHeading names a report inside the mismatch summary.
const ComparisonHeading = "INB TRF/SIS CON Comparison"

// SheetID identifies a final sheet across workbooks.
func SheetID(label, sheet string) string {
	return label + "::" + sheet
}

// Highlight lists the 0-based row positions of one statement to shade in
// the output workbook.
type Highlight struct {
	// Green rows are typed transfers the final workbook does not have.
	Green []int `json:"green"`
	// Red rows are the closest rows to transfers only the final workbook has.
	Red []int `json:"red"`
}

// Fill returns the shade of position pos: "red", "green" or "". Red wins
// when a row is in both lists.
func (h Highlight) Fill(pos int) string {
	for _, p := range h.Red {
		if p == pos {
			return "red"
		}
	}
	for _, p := range h.Green {
		if p == pos {
			return "green"
		}
	}
	return ""
}
