package reconciler

import (
	"sort"
	"strings"

	"contra-reconciliation-service/internal/models"

	"github.com/shopspring/decimal"
)

// MismatchReport compares the typed transfer rows of one processed
// statement with its sheet in the final workbook. Row numbers are
// spreadsheet rows: the header is row 1 and the first data row is row 2.
type MismatchReport struct {
	Account        string `json:"account"`
	StatementKey   string `json:"separate_sheet"`
	FinalSheet     string `json:"final_sheet"`
	AutoCount      int    `json:"auto_inb_count"`
	ManualCount    int    `json:"manual_inb_count"`
	AutoOnlyRows   []int  `json:"auto_only_rows"`
	ManualOnlyRows []int  `json:"manual_only_rows"`

	AutoOnlyCount   int `json:"auto_only_count"`
	ManualOnlyCount int `json:"manual_only_count"`

	FilteredCategories  []string `json:"filtered_categories"`
	AutoFilteredCount   int      `json:"auto_filtered_count"`
	ManualFilteredCount int      `json:"manual_filtered_count"`

	// Backfill holds at most one statement row per final-only row.
	Backfill []Backfill `json:"backfill,omitempty"`
}

// Backfill points a final-only row at the closest row of the processed
// statement.
type Backfill struct {
	FinalRow int `json:"final_row"`
	Position int `json:"position"`
	Score    int `json:"score"`
}

// HasMismatch reports whether either side has rows the other lacks.
func (r *MismatchReport) HasMismatch() bool {
	return r.AutoOnlyCount > 0 || r.ManualOnlyCount > 0
}

// Highlight converts the report into 0-based statement positions.
// Positions outside the statement are dropped.
func (r *MismatchReport) Highlight(rows int) Highlight {
	var h Highlight
	for _, n := range r.AutoOnlyRows {
		if pos := n - 2; pos >= 0 && pos < rows {
			h.Green = append(h.Green, pos)
		}
	}
	seen := make(map[int]bool)
	for _, b := range r.Backfill {
		if seen[b.Position] || b.Position < 0 || b.Position >= rows {
			continue
		}
		seen[b.Position] = true
		h.Red = append(h.Red, b.Position)
	}
	sort.Ints(h.Red)
	return h
}

// CompareAccount builds the mismatch report of one account. Rows of both
// sides are keyed by date and lower-cased description; typed transfer rows
// whose key appears on one side only are reported. Rows in an ignored
// category are counted but never compared.
func CompareAccount(statement *models.Statement, sheet *models.ReferenceSheet, cfg *Config) *MismatchReport {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	report := &MismatchReport{
		StatementKey:       statement.Key,
		FinalSheet:         sheet.Name,
		FilteredCategories: append([]string(nil), cfg.IgnoreCategories...),
	}

	autoKeys, autoCount, autoFiltered := transferKeys(statement.Rows, cfg)
	manualKeys, manualCount, manualFiltered := transferKeys(sheet.Rows, cfg)

	report.AutoCount = autoCount
	report.ManualCount = manualCount
	report.AutoFilteredCount = autoFiltered
	report.ManualFilteredCount = manualFiltered
	report.AutoOnlyRows = onlyIn(autoKeys, manualKeys)
	report.ManualOnlyRows = onlyIn(manualKeys, autoKeys)
	report.AutoOnlyCount = len(report.AutoOnlyRows)
	report.ManualOnlyCount = len(report.ManualOnlyRows)

	for _, n := range report.ManualOnlyRows {
		idx := n - 2
		if idx < 0 || idx >= len(sheet.Rows) {
			continue
		}
		if pos, score, ok := closestRow(sheet.Rows[idx], statement.Rows, cfg); ok {
			report.Backfill = append(report.Backfill, Backfill{FinalRow: n, Position: pos, Score: score})
		}
	}

	return report
}

// transferKeys maps comparison keys to the row numbers carrying them and
// counts compared and filtered transfer rows.
func transferKeys(rows []*models.StatementRow, cfg *Config) (map[string][]int, int, int) {
	keys := make(map[string][]int)
	compared, filtered := 0, 0
	for i, row := range rows {
		if !cfg.isTransfer(row) {
			continue
		}
		if cfg.isIgnored(row) {
			filtered++
			continue
		}
		compared++
		k := row.Key()
		keys[k] = append(keys[k], i+2)
	}
	return keys, compared, filtered
}

func onlyIn(a, b map[string][]int) []int {
	out := []int{}
	for k, rows := range a {
		if _, ok := b[k]; !ok {
			out = append(out, rows...)
		}
	}
	sort.Ints(out)
	return out
}

// closestRow scores every statement row against a final-only row and
// returns the best one. The first row reaching the top score wins.
func closestRow(target *models.StatementRow, rows []*models.StatementRow, cfg *Config) (int, int, bool) {
	best, bestScore := -1, 0
	for i, row := range rows {
		if score := backfillScore(target, row, cfg.AmountTolerance); score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 || bestScore < cfg.MinBackfillScore {
		return -1, 0, false
	}
	return best, bestScore, true
}

// backfillScore weighs a candidate: same date 3, amount within tolerance 2,
// one description inside the other 1, two or more shared words 1.
func backfillScore(target, candidate *models.StatementRow, tolerance decimal.Decimal) int {
	score := 0

	if target.HasDate() && candidate.HasDate() && target.Day().Equal(candidate.Day()) {
		score += 3
	}

	if models.CompareAmountsWithTolerance(primary(candidate), primary(target), tolerance) {
		score += 2
	}

	want := strings.ToLower(strings.TrimSpace(target.Description))
	got := strings.ToLower(strings.TrimSpace(candidate.Description))
	if strings.Contains(got, want) || strings.Contains(want, got) {
		score++
	}

	if commonWords(want, got) >= 2 {
		score++
	}

	return score
}

// primary is the debit when present and non-zero, else the credit, else zero.
func primary(row *models.StatementRow) decimal.Decimal {
	amt, _ := row.PrimaryAmount()
	return amt
}

func commonWords(a, b string) int {
	set := make(map[string]bool)
	for _, w := range strings.Fields(a) {
		set[w] = true
	}
	n := 0
	for _, w := range strings.Fields(b) {
		if set[w] {
			n++
			delete(set, w)
		}
	}
	return n
}
