package reporter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"contra-reconciliation-service/internal/matcher"
	"contra-reconciliation-service/internal/models"
	"contra-reconciliation-service/internal/reconciler"
	"contra-reconciliation-service/pkg/logger"
)

func TestNewReportGenerator(t *testing.T) {
	tests := []struct {
		name        string
		config      *ReportConfig
		expectError bool
	}{
		{
			name:        "default config",
			config:      nil,
			expectError: false,
		},
		{
			name:        "valid config",
			config:      DefaultReportConfig(),
			expectError: false,
		},
		{
			name: "invalid format",
			config: &ReportConfig{
				Format: "invalid",
			},
			expectError: true,
		},
		{
			name: "negative row limit",
			config: &ReportConfig{
				Format:        FormatConsole,
				MaxRowNumbers: -1,
			},
			expectError: true,
		},
		{
			name: "csv without delimiter",
			config: &ReportConfig{
				Format: FormatCSV,
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			generator, err := NewReportGenerator(tt.config)

			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got none")
				}
			} else {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				if generator == nil {
					t.Errorf("expected generator but got nil")
				}
			}
		})
	}
}

func TestOutputFormatValidation(t *testing.T) {
	tests := []struct {
		format OutputFormat
		valid  bool
	}{
		{FormatConsole, true},
		{FormatJSON, true},
		{FormatCSV, true},
		{"invalid", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			if got := tt.format.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, expected %v", got, tt.valid)
			}
		})
	}
}

func createTestResult() *reconciler.Result {
	start := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

	return &reconciler.Result{
		RunID:      "run-1",
		Label:      "Final Jan.xlsx",
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
		Accounts:   []string{"XNS-HDFC-5678-CA", "XNS-SBI-1234-CA"},
		Pairs: []*matcher.PairResult{
			{
				Source: "XNS-HDFC-5678-CA",
				Target: "XNS-SBI-1234-CA",
				Type:   models.TransferSisterConcern,
				Matches: []*matcher.MatchResult{
					{SourceIndex: 0, TargetIndex: 0, Strategy: matcher.StrategyReference, Type: models.TransferSisterConcern},
				},
			},
		},
		MatchSummary: matcher.MatchSummary{
			Pairs:         1,
			Matches:       1,
			ContraMatches: 1,
			ByStrategy:    map[string]int{"reference": 1},
			ByType:        map[string]int{"SIS CON": 1},
		},
		Reports: []*reconciler.MismatchReport{
			{
				Account:      "XNS-HDFC-5678-CA",
				StatementKey: "XNS-HDFC-5678-CA",
				FinalSheet:   "XNS-HDFC-5678-CA",
				AutoCount:    1,
				ManualCount:  1,
			},
			{
				Account:         "XNS-SBI-1234-CA",
				StatementKey:    "XNS-SBI-1234-CA",
				FinalSheet:      "XNS-SBI-1234-CA",
				AutoCount:       3,
				ManualCount:     2,
				AutoOnlyRows:    []int{4, 7, 9},
				AutoOnlyCount:   3,
				ManualOnlyRows:  []int{5, 6},
				ManualOnlyCount: 2,

				FilteredCategories: []string{"RTGS Return"},
				AutoFilteredCount:  1,
			},
		},
		Summary: []reconciler.SummaryRow{
			{
				FileName:        "Acme Traders Pvt Ltd-HDFC-5678-CA",
				BankName:        "HDFC Bank",
				TotalManual:     10,
				TotalSoftware:   10,
				ManualMatched:   1,
				SoftwareMatched: 1,
				Percentage:      "100.00%",
			},
			{
				FileName:        "Ravi Kumar-SBI-1234-CA",
				BankName:        "State Bank of India",
				TotalManual:     8,
				TotalSoftware:   9,
				ManualMatched:   2,
				SoftwareMatched: 3,
				Percentage:      "150.00%",
			},
		},
		RowCounts: map[string]reconciler.RowCount{
			"Final Jan.xlsx::XNS-HDFC-5678-CA": {SeparateSheet: "XNS-HDFC-5678-CA", FinalSheet: "XNS-HDFC-5678-CA", SeparateRows: 10, FinalRows: 10},
			"Final Jan.xlsx::XNS-SBI-1234-CA":  {SeparateSheet: "XNS-SBI-1234-CA", FinalSheet: "XNS-SBI-1234-CA", SeparateRows: 9, FinalRows: 8},
		},
		HasMismatch: true,
		PreprocessingStats: &reconciler.PreprocessingStats{
			Statements:    2,
			RowsProcessed: 19,
			RowsChanged:   4,
		},
	}
}

func plainConfig(format OutputFormat) *ReportConfig {
	config := DefaultReportConfig()
	config.Format = format
	config.UseColors = false
	return config
}

func TestConsoleReport(t *testing.T) {
	generator, err := NewReportGenerator(plainConfig(FormatConsole))
	if err != nil {
		t.Fatalf("failed to create generator: %v", err)
	}

	var buf bytes.Buffer
	if err := generator.GenerateReport(createTestResult(), &buf); err != nil {
		t.Fatalf("failed to generate console report: %v", err)
	}

	output := buf.String()
	expectedSections := []string{
		"CONTRA RECONCILIATION REPORT",
		"Run:       run-1",
		"Final:     Final Jan.xlsx",
		"Duration:  1.5s",
		"Status:    MISMATCH",
		"=== SUMMARY ===",
		"Acme Traders Pvt Ltd-HDFC-5678-CA",
		"150.00%",
		"=== MATCHES ===",
		"Contra Matches: 1",
		"reference:",
		"=== INB TRF/SIS CON COMPARISON ===",
		"XNS-HDFC-5678-CA  OK",
		"XNS-SBI-1234-CA  MISMATCH",
		"Software only:  3 at rows 4, 7, 9",
		"Manual only:    2 at rows 5, 6",
		"Ignored:        RTGS Return (1 software, 0 manual)",
		"=== PREPROCESSING ===",
		"Rows Changed:    4",
	}

	for _, section := range expectedSections {
		if !strings.Contains(output, section) {
			t.Errorf("console report missing %q", section)
		}
	}

	if strings.Contains(output, "\x1b[") {
		t.Errorf("expected no colour codes when colours are disabled")
	}
	if strings.Contains(output, "->") {
		t.Errorf("pair details should be hidden unless matches are included")
	}
}

func TestConsoleReportColoursAndLimits(t *testing.T) {
	config := DefaultReportConfig()
	config.MaxRowNumbers = 2
	config.IncludeMatches = true

	generator, err := NewReportGenerator(config)
	if err != nil {
		t.Fatalf("failed to create generator: %v", err)
	}

	var buf bytes.Buffer
	if err := generator.GenerateReport(createTestResult(), &buf); err != nil {
		t.Fatalf("failed to generate console report: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "\x1b[") {
		t.Errorf("expected colour codes when colours are enabled")
	}
	if !strings.Contains(output, "4, 7, ... and 1 more") {
		t.Errorf("expected truncated row list, got:\n%s", output)
	}
	if !strings.Contains(output, "XNS-HDFC-5678-CA -> XNS-SBI-1234-CA (SIS CON): 1") {
		t.Errorf("expected pair details in output")
	}
}

func TestJSONReport(t *testing.T) {
	generator, err := NewReportGenerator(plainConfig(FormatJSON))
	if err != nil {
		t.Fatalf("failed to create generator: %v", err)
	}

	var buf bytes.Buffer
	if err := generator.GenerateReport(createTestResult(), &buf); err != nil {
		t.Fatalf("failed to generate JSON report: %v", err)
	}

	var output map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &output); err != nil {
		t.Fatalf("failed to parse JSON output: %v", err)
	}

	for _, field := range []string{"run_id", "summary", "row_count_summary", "mismatch_summary", "match_summary", "preprocessing_stats"} {
		if _, ok := output[field]; !ok {
			t.Errorf("JSON output missing %q", field)
		}
	}
	if _, ok := output["pairs"]; ok {
		t.Errorf("pairs should be omitted unless matches are included")
	}
	if output["has_mismatch"] != true {
		t.Errorf("expected has_mismatch true, got %v", output["has_mismatch"])
	}

	mismatches, ok := output["mismatch_summary"].(map[string]interface{})
	if !ok {
		t.Fatalf("mismatch_summary has unexpected type %T", output["mismatch_summary"])
	}
	entry, ok := mismatches["Final Jan.xlsx::XNS-SBI-1234-CA"].(map[string]interface{})
	if !ok {
		t.Fatalf("mismatch summary missing SBI sheet: %v", mismatches)
	}
	report, ok := entry[reconciler.ComparisonHeading].(map[string]interface{})
	if !ok {
		t.Fatalf("mismatch entry missing %q heading", reconciler.ComparisonHeading)
	}
	if report["auto_only_count"] != float64(3) {
		t.Errorf("expected auto_only_count 3, got %v", report["auto_only_count"])
	}

	summary := output["summary"].([]interface{})
	first := summary[0].(map[string]interface{})
	if first["File Name"] != "Acme Traders Pvt Ltd-HDFC-5678-CA" {
		t.Errorf("unexpected first summary row: %v", first)
	}
}

func TestCSVReport(t *testing.T) {
	generator, err := NewReportGenerator(plainConfig(FormatCSV))
	if err != nil {
		t.Fatalf("failed to create generator: %v", err)
	}

	var buf bytes.Buffer
	if err := generator.GenerateReport(createTestResult(), &buf); err != nil {
		t.Fatalf("failed to generate CSV report: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse CSV output: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header and 2 rows, got %d records", len(records))
	}
	if records[0][0] != "File Name" || records[0][10] != "Status" {
		t.Errorf("unexpected header row: %v", records[0])
	}

	expected := []string{"Ravi Kumar-SBI-1234-CA", "State Bank of India", "8", "9", "2", "3", "150.00%", "XNS-SBI-1234-CA", "3", "2", "MISMATCH"}
	for i, want := range expected {
		if records[2][i] != want {
			t.Errorf("column %d = %q, expected %q", i, records[2][i], want)
		}
	}
	if records[1][10] != "OK" {
		t.Errorf("expected HDFC row status OK, got %q", records[1][10])
	}
}

func TestCSVReportCustomDelimiter(t *testing.T) {
	config := plainConfig(FormatCSV)
	config.CSVDelimiter = ';'
	config.CSVHeaders = false

	generator, err := NewReportGenerator(config)
	if err != nil {
		t.Fatalf("failed to create generator: %v", err)
	}

	var buf bytes.Buffer
	if err := generator.GenerateReport(createTestResult(), &buf); err != nil {
		t.Fatalf("failed to generate CSV report: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines without headers, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[0], "Acme Traders Pvt Ltd-HDFC-5678-CA;HDFC Bank;") {
		t.Errorf("unexpected first line: %s", lines[0])
	}
}

func TestGenerateReportNilResult(t *testing.T) {
	generator, _ := NewReportGenerator(nil)
	if err := generator.GenerateReport(nil, io.Discard); err == nil {
		t.Errorf("expected error for nil result")
	}
}

func TestEmptyResult(t *testing.T) {
	generator, _ := NewReportGenerator(plainConfig(FormatConsole))

	var buf bytes.Buffer
	if err := generator.GenerateReport(&reconciler.Result{}, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "No accounts processed") {
		t.Errorf("expected empty summary notice")
	}
	if !strings.Contains(buf.String(), "Status:    OK") {
		t.Errorf("expected OK status for an empty result")
	}
}

func TestUpdateConfiguration(t *testing.T) {
	generator, _ := NewReportGenerator(nil)

	if err := generator.UpdateConfiguration(&ReportConfig{Format: "bogus"}); err == nil {
		t.Errorf("expected error for invalid configuration")
	}
	if generator.GetConfiguration().Format != FormatConsole {
		t.Errorf("invalid update should keep the old configuration")
	}

	if err := generator.UpdateConfiguration(plainConfig(FormatJSON)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if generator.GetConfiguration().Format != FormatJSON {
		t.Errorf("expected JSON format after update")
	}
}

// jsonRejectingWriter fails any write that starts a JSON document.
type jsonRejectingWriter struct {
	bytes.Buffer
}

func (w *jsonRejectingWriter) Write(p []byte) (int, error) {
	if len(p) > 0 && p[0] == '{' {
		return 0, io.ErrShortWrite
	}
	return w.Buffer.Write(p)
}

func TestSafeReportGenerator(t *testing.T) {
	log := logger.NewWithWriter(io.Discard, logger.ErrorLevel)

	if _, err := NewSafeReportGenerator(&ReportConfig{Format: "bogus"}, log); err == nil {
		t.Errorf("expected configuration error")
	}

	srg, err := NewSafeReportGenerator(plainConfig(FormatJSON), log)
	if err != nil {
		t.Fatalf("failed to create safe generator: %v", err)
	}

	var buf bytes.Buffer
	if err := srg.GenerateReportSafely(createTestResult(), &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !json.Valid(buf.Bytes()) {
		t.Errorf("expected valid JSON output")
	}

	if err := srg.GenerateReportSafely(nil, &buf); err == nil {
		t.Errorf("expected error for nil result")
	}

	fallback := &jsonRejectingWriter{}
	if err := srg.GenerateReportSafely(createTestResult(), fallback); err != nil {
		t.Fatalf("expected console fallback to succeed: %v", err)
	}
	if !strings.Contains(fallback.String(), "NOTE: Report generated in fallback format") {
		t.Errorf("expected fallback notice")
	}
	if !strings.Contains(fallback.String(), "CONTRA RECONCILIATION REPORT") {
		t.Errorf("expected console report after fallback")
	}
}

func TestBackupPath(t *testing.T) {
	got := backupPath(filepath.Join("reports", "jan.json"))
	if want := filepath.Join("reports", "jan_backup.json"); got != want {
		t.Errorf("backupPath() = %q, expected %q", got, want)
	}
}

func TestIsFileError(t *testing.T) {
	_, err := os.Open(filepath.Join(t.TempDir(), "missing"))
	if !isFileError(err) {
		t.Errorf("expected not-exist error to count as a file error")
	}
	if isFileError(io.ErrShortWrite) {
		t.Errorf("short write is not a file error")
	}
}
