// Package reporter renders batch results for people and for other programs.
//
// Supported output formats:
//   - Console: aligned tables for terminal display, optionally coloured
//   - JSON: the summary, row counts and mismatch reports as structured data
//   - CSV: one line per account, ready for a spreadsheet
//
// Example usage:
//
//	gen, err := reporter.NewReportGenerator(&reporter.ReportConfig{Format: reporter.FormatJSON})
//	if err != nil {
//		return err
//	}
//	err = gen.GenerateReport(result, os.Stdout)
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"contra-reconciliation-service/internal/reconciler"

	"github.com/fatih/color"
)

// OutputFormat represents the supported report output formats.
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// ReportConfig holds configuration options for report generation
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	// Detail level options
	IncludeComparisons   bool `json:"include_comparisons"`
	IncludeMatches       bool `json:"include_matches"`
	IncludePreprocessing bool `json:"include_preprocessing"`

	// Console formatting options
	UseColors bool `json:"use_colors"`
	// MaxRowNumbers caps how many row numbers are printed per list.
	MaxRowNumbers int `json:"max_row_numbers"`

	// CSV options
	CSVDelimiter rune `json:"csv_delimiter"`
	CSVHeaders   bool `json:"csv_headers"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:               FormatConsole,
		IncludeComparisons:   true,
		IncludeMatches:       false,
		IncludePreprocessing: true,
		UseColors:            true,
		MaxRowNumbers:        20,
		CSVDelimiter:         ',',
		CSVHeaders:           true,
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}
	if c.MaxRowNumbers < 0 {
		return fmt.Errorf("max row numbers cannot be negative, got %d", c.MaxRowNumbers)
	}
	if c.Format == FormatCSV && c.CSVDelimiter == 0 {
		return fmt.Errorf("csv delimiter must be set")
	}
	return nil
}

// ReportGenerator generates reports in the configured format.
type ReportGenerator struct {
	config *ReportConfig
}

// NewReportGenerator creates a new report generator with the specified configuration
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}

	return &ReportGenerator{
		config: config,
	}, nil
}

// GenerateReport writes result to writer.
func (rg *ReportGenerator) GenerateReport(result *reconciler.Result, writer io.Writer) error {
	if result == nil {
		return fmt.Errorf("reconciliation result cannot be nil")
	}

	switch rg.config.Format {
	case FormatConsole:
		return rg.generateConsoleReport(result, writer)
	case FormatJSON:
		return rg.generateJSONReport(result, writer)
	case FormatCSV:
		return rg.generateCSVReport(result, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

func (rg *ReportGenerator) generateConsoleReport(result *reconciler.Result, writer io.Writer) error {
	bold := rg.paint(color.Bold)

	fmt.Fprintf(writer, "%s\n", bold("CONTRA RECONCILIATION REPORT"))
	fmt.Fprintf(writer, "Run:       %s\n", result.RunID)
	if result.Label != "" {
		fmt.Fprintf(writer, "Final:     %s\n", result.Label)
	}
	fmt.Fprintf(writer, "Generated: %s\n", result.FinishedAt.Format(time.RFC3339))
	fmt.Fprintf(writer, "Duration:  %v\n", result.Duration().Round(time.Millisecond))
	fmt.Fprintf(writer, "Status:    %s\n\n", rg.status(result.HasMismatch))

	fmt.Fprintf(writer, "%s\n", bold("=== SUMMARY ==="))
	rg.printSummaryTable(result.Summary, writer)
	fmt.Fprintf(writer, "\n")

	fmt.Fprintf(writer, "%s\n", bold("=== MATCHES ==="))
	rg.printMatchSummary(result, writer)
	fmt.Fprintf(writer, "\n")

	if rg.config.IncludeComparisons && len(result.Reports) > 0 {
		fmt.Fprintf(writer, "%s\n", bold("=== "+strings.ToUpper(reconciler.ComparisonHeading)+" ==="))
		rg.printComparisons(result.Reports, writer)
	}

	if rg.config.IncludePreprocessing && result.PreprocessingStats != nil {
		fmt.Fprintf(writer, "%s\n", bold("=== PREPROCESSING ==="))
		stats := result.PreprocessingStats
		fmt.Fprintf(writer, "Statements:      %d\n", stats.Statements)
		fmt.Fprintf(writer, "Rows Processed:  %d\n", stats.RowsProcessed)
		fmt.Fprintf(writer, "Rows Changed:    %d\n", stats.RowsChanged)
		fmt.Fprintf(writer, "Processing Time: %v\n", stats.ProcessingTime)
	}

	return nil
}

func (rg *ReportGenerator) generateJSONReport(result *reconciler.Result, writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")

	return encoder.Encode(rg.filterResultForOutput(result))
}

// csvHeaders extend the summary headings with the comparison outcome.
var csvHeaders = []string{
	"File Name",
	"Bank Name",
	"Total Entries (Manual)",
	"Total Entries (Software)",
	"Manual Matched",
	"Software Matched",
	"Percentage",
	"Final Sheet",
	"Software Only",
	"Manual Only",
	"Status",
}

func (rg *ReportGenerator) generateCSVReport(result *reconciler.Result, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter

	if rg.config.CSVHeaders {
		if err := csvWriter.Write(csvHeaders); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}

	for i, row := range result.Summary {
		record := []string{
			row.FileName,
			row.BankName,
			strconv.Itoa(row.TotalManual),
			strconv.Itoa(row.TotalSoftware),
			strconv.Itoa(row.ManualMatched),
			strconv.Itoa(row.SoftwareMatched),
			row.Percentage,
			"", "", "", "",
		}
		// Summary rows and reports both follow result.Accounts.
		if i < len(result.Reports) {
			rep := result.Reports[i]
			record[7] = rep.FinalSheet
			record[8] = strconv.Itoa(rep.AutoOnlyCount)
			record[9] = strconv.Itoa(rep.ManualOnlyCount)
			record[10] = statusText(rep.HasMismatch())
		}
		if err := csvWriter.Write(record); err != nil {
			return fmt.Errorf("failed to write summary record for %s: %w", row.FileName, err)
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

// Helper methods for console output formatting

func (rg *ReportGenerator) printSummaryTable(rows []reconciler.SummaryRow, writer io.Writer) {
	if len(rows) == 0 {
		fmt.Fprintf(writer, "No accounts processed\n")
		return
	}

	nameWidth := len("File Name")
	bankWidth := len("Bank")
	for _, r := range rows {
		nameWidth = max(nameWidth, len(r.FileName))
		bankWidth = max(bankWidth, len(r.BankName))
	}

	fmt.Fprintf(writer, "%-*s  %-*s  %7s  %9s  %7s  %9s  %10s\n",
		nameWidth, "File Name", bankWidth, "Bank", "Manual", "Software", "Man.TRF", "Soft.TRF", "Percentage")
	for _, r := range rows {
		fmt.Fprintf(writer, "%-*s  %-*s  %7d  %9d  %7d  %9d  %10s\n",
			nameWidth, r.FileName, bankWidth, r.BankName,
			r.TotalManual, r.TotalSoftware, r.ManualMatched, r.SoftwareMatched, r.Percentage)
	}
}

func (rg *ReportGenerator) printMatchSummary(result *reconciler.Result, writer io.Writer) {
	ms := result.MatchSummary
	fmt.Fprintf(writer, "Accounts:       %d\n", len(result.Accounts))
	fmt.Fprintf(writer, "Pairs Compared: %d\n", ms.Pairs)
	fmt.Fprintf(writer, "Matches:        %d\n", ms.Matches)
	fmt.Fprintf(writer, "Contra Matches: %d\n", ms.ContraMatches)

	for _, group := range []struct {
		title  string
		counts map[string]int
	}{{"By Strategy", ms.ByStrategy}, {"By Type", ms.ByType}} {
		if len(group.counts) == 0 {
			continue
		}
		fmt.Fprintf(writer, "%s:\n", group.title)
		for _, k := range sortedKeys(group.counts) {
			fmt.Fprintf(writer, "  %-14s %d\n", k+":", group.counts[k])
		}
	}

	if rg.config.IncludeMatches {
		for _, pr := range result.Pairs {
			if len(pr.Matches) == 0 {
				continue
			}
			fmt.Fprintf(writer, "%s -> %s (%s): %d\n", pr.Source, pr.Target, pr.Type, len(pr.Matches))
		}
	}
}

func (rg *ReportGenerator) printComparisons(reports []*reconciler.MismatchReport, writer io.Writer) {
	for _, rep := range reports {
		fmt.Fprintf(writer, "%s  %s\n", rep.Account, rg.status(rep.HasMismatch()))
		fmt.Fprintf(writer, "  Separate Sheet: %s (%d transfer rows)\n", rep.StatementKey, rep.AutoCount)
		fmt.Fprintf(writer, "  Final Sheet:    %s (%d transfer rows)\n", rep.FinalSheet, rep.ManualCount)
		if rep.AutoOnlyCount > 0 {
			fmt.Fprintf(writer, "  Software only:  %d at rows %s\n", rep.AutoOnlyCount, rg.rowList(rep.AutoOnlyRows))
		}
		if rep.ManualOnlyCount > 0 {
			fmt.Fprintf(writer, "  Manual only:    %d at rows %s\n", rep.ManualOnlyCount, rg.rowList(rep.ManualOnlyRows))
		}
		if len(rep.FilteredCategories) > 0 {
			fmt.Fprintf(writer, "  Ignored:        %s (%d software, %d manual)\n",
				strings.Join(rep.FilteredCategories, ", "), rep.AutoFilteredCount, rep.ManualFilteredCount)
		}
		fmt.Fprintf(writer, "\n")
	}
}

// Helper methods

func (rg *ReportGenerator) rowList(rows []int) string {
	limit := len(rows)
	if rg.config.MaxRowNumbers > 0 && limit > rg.config.MaxRowNumbers {
		limit = rg.config.MaxRowNumbers
	}

	parts := make([]string, 0, limit+1)
	for _, r := range rows[:limit] {
		parts = append(parts, strconv.Itoa(r))
	}
	if limit < len(rows) {
		parts = append(parts, fmt.Sprintf("... and %d more", len(rows)-limit))
	}
	return strings.Join(parts, ", ")
}

func (rg *ReportGenerator) status(mismatch bool) string {
	if mismatch {
		return rg.paint(color.FgRed, color.Bold)(statusText(true))
	}
	return rg.paint(color.FgGreen)(statusText(false))
}

// paint returns a formatter for attrs that honours UseColors regardless of
// whether the writer is a terminal.
func (rg *ReportGenerator) paint(attrs ...color.Attribute) func(a ...interface{}) string {
	c := color.New(attrs...)
	if rg.config.UseColors {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c.SprintFunc()
}

func statusText(mismatch bool) string {
	if mismatch {
		return "MISMATCH"
	}
	return "OK"
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (rg *ReportGenerator) filterResultForOutput(result *reconciler.Result) map[string]interface{} {
	output := map[string]interface{}{
		"run_id":            result.RunID,
		"label":             result.Label,
		"started_at":        result.StartedAt,
		"finished_at":       result.FinishedAt,
		"has_mismatch":      result.HasMismatch,
		"accounts":          result.Accounts,
		"summary":           result.Summary,
		"row_count_summary": result.RowCounts,
		"match_summary":     result.MatchSummary,
	}

	if rg.config.IncludeComparisons {
		output["mismatch_summary"] = result.MismatchSummary()
	}

	if rg.config.IncludeMatches && result.Pairs != nil {
		output["pairs"] = result.Pairs
	}

	if rg.config.IncludePreprocessing && result.PreprocessingStats != nil {
		output["preprocessing_stats"] = result.PreprocessingStats
	}

	return output
}

// UpdateConfiguration updates the report generator configuration
func (rg *ReportGenerator) UpdateConfiguration(config *ReportConfig) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid report configuration: %w", err)
	}

	rg.config = config
	return nil
}

// GetConfiguration returns the current configuration
func (rg *ReportGenerator) GetConfiguration() *ReportConfig {
	return rg.config
}
