package config

import (
	"os"
	"path/filepath"
	"testing"

	"contra-reconciliation-service/internal/reporter"
	"contra-reconciliation-service/pkg/errors"
	"contra-reconciliation-service/pkg/logger"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestCreateMatchingConfigProfiles(t *testing.T) {
	tests := []struct {
		profile   string
		tolerance int64
		veto      bool
	}{
		{"", 100, true},
		{ProfileDefault, 100, true},
		{ProfileStrict, 25, true},
		{"Relaxed", 100, false},
		{ProfileLegacy, 25, false},
	}

	for _, tt := range tests {
		t.Run(tt.profile, func(t *testing.T) {
			v := newViper()
			v.Set(KeyMatchProfile, tt.profile)

			cfg, err := CreateMatchingConfig(v)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !cfg.AmountTolerance.Equal(decimal.NewFromInt(tt.tolerance)) {
				t.Errorf("expected tolerance %d, got %s", tt.tolerance, cfg.AmountTolerance)
			}
			if cfg.EnableAccountVeto != tt.veto {
				t.Errorf("expected account veto %v, got %v", tt.veto, cfg.EnableAccountVeto)
			}
			if cfg.ReferenceWindowDays != 1 {
				t.Errorf("expected default reference window 1, got %d", cfg.ReferenceWindowDays)
			}
		})
	}
}

func TestCreateMatchingConfigOverrides(t *testing.T) {
	v := newViper()
	v.Set(KeyMatchProfile, ProfileStrict)
	v.Set(KeyAmountTolerance, 10.5)
	v.Set(KeyAccountVeto, false)
	v.Set(KeyReferenceWindowDays, 3)

	cfg, err := CreateMatchingConfig(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.AmountTolerance.Equal(decimal.RequireFromString("10.5")) {
		t.Errorf("expected tolerance 10.5, got %s", cfg.AmountTolerance)
	}
	if cfg.EnableAccountVeto {
		t.Error("expected account veto to be disabled")
	}
	if cfg.ReferenceWindowDays != 3 {
		t.Errorf("expected reference window 3, got %d", cfg.ReferenceWindowDays)
	}
}

func TestCreateMatchingConfigInvalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  interface{}
	}{
		{"unknown profile", KeyMatchProfile, "lenient"},
		{"negative tolerance", KeyAmountTolerance, -1.0},
		{"negative window", KeyReferenceWindowDays, -2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newViper()
			v.Set(tt.key, tt.val)

			_, err := CreateMatchingConfig(v)
			re, ok := errors.AsReconcilerError(err)
			if !ok {
				t.Fatalf("expected configuration error, got %v", err)
			}
			if re.Category != errors.CategoryConfiguration {
				t.Errorf("expected configuration category, got %s", re.Category)
			}
		})
	}
}

func TestCreatePartyConfig(t *testing.T) {
	v := newViper()
	v.Set(KeyNameTokenSet, 0.9)

	cfg, err := CreatePartyConfig(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.NameTokenSet != 0.9 {
		t.Errorf("expected token set threshold 0.9, got %f", cfg.NameTokenSet)
	}
	if cfg.NameSequence != 0.88 {
		t.Errorf("expected default sequence threshold 0.88, got %f", cfg.NameSequence)
	}

	v.Set(KeyNameSequence, 1.5)
	if _, err := CreatePartyConfig(v); err == nil {
		t.Error("expected error for threshold above 1")
	}
}

func TestCreateReconcilerConfig(t *testing.T) {
	v := newViper()
	v.Set(KeyMatchProfile, ProfileStrict)

	matching, err := CreateMatchingConfig(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg, err := CreateReconcilerConfig(v, matching)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.AmountTolerance.Equal(decimal.NewFromInt(25)) {
		t.Errorf("expected backfill tolerance to follow matching, got %s", cfg.AmountTolerance)
	}
	if cfg.MinBackfillScore != 2 {
		t.Errorf("expected default backfill score 2, got %d", cfg.MinBackfillScore)
	}

	v.Set(KeyMinBackfillScore, 0)
	if _, err := CreateReconcilerConfig(v, nil); err == nil {
		t.Error("expected error for zero backfill score")
	}
}

func TestCreateLoggerConfig(t *testing.T) {
	v := newViper()
	cfg, err := CreateLoggerConfig(v, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Level != logger.InfoLevel || cfg.Format != logger.TextFormat || cfg.Output != logger.StderrOutput {
		t.Errorf("unexpected defaults: %+v", cfg)
	}

	v.Set(KeyLogFormat, "JSON")
	v.Set(KeyLogFile, filepath.Join(t.TempDir(), "reconciler.log"))
	cfg, err = CreateLoggerConfig(v, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Level != logger.DebugLevel {
		t.Errorf("verbose should force debug level, got %s", cfg.Level)
	}
	if cfg.Format != logger.JSONFormat || cfg.Output != logger.FileOutput {
		t.Errorf("expected JSON file logging, got %+v", cfg)
	}

	v.Set(KeyLogLevel, "chatty")
	if _, err := CreateLoggerConfig(v, false); err == nil {
		t.Error("expected error for unknown log level")
	}
}

func TestLoadBankDirectory(t *testing.T) {
	v := newViper()
	banks, err := LoadBankDirectory(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code, ok := banks.Code("HDFC Bank, India"); !ok || code != "HDFC" {
		t.Errorf("expected built-in HDFC mapping, got %q %v", code, ok)
	}

	path := filepath.Join(t.TempDir(), "banks.yaml")
	yaml := "banks:\n  - name: \"Saraswat Co-operative Bank, India\"\n    code: SRCB\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("failed to write bank directory: %v", err)
	}
	v.Set(KeyBankDirectory, path)

	banks, err = LoadBankDirectory(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code, ok := banks.Code("Saraswat Co-operative Bank, India"); !ok || code != "SRCB" {
		t.Errorf("expected SRCB from file, got %q %v", code, ok)
	}

	v.Set(KeyBankDirectory, filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := LoadBankDirectory(v); err == nil {
		t.Error("expected error for missing bank directory")
	}
}

func TestCreateReportConfig(t *testing.T) {
	tests := []struct {
		format   string
		expected reporter.OutputFormat
		colors   bool
	}{
		{"console", reporter.FormatConsole, true},
		{"JSON", reporter.FormatJSON, false},
		{"csv", reporter.FormatCSV, false},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			config, err := CreateReportConfig(tt.format, true)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if config.Format != tt.expected {
				t.Errorf("expected format %s, got %s", tt.expected, config.Format)
			}
			if config.UseColors != tt.colors {
				t.Errorf("expected colours %v, got %v", tt.colors, config.UseColors)
			}
			if err := config.Validate(); err != nil {
				t.Errorf("report config should be valid: %v", err)
			}
		})
	}

	if _, err := CreateReportConfig("xml", false); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestCreateAPIConfig(t *testing.T) {
	v := newViper()
	cfg, err := CreateAPIConfig(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ProcessedDir != DefaultOutputDir {
		t.Errorf("expected processed dir %s, got %s", DefaultOutputDir, cfg.ProcessedDir)
	}
	if cfg.MaxUploadBytes != 64<<20 {
		t.Errorf("expected 64 MiB upload limit, got %d", cfg.MaxUploadBytes)
	}
	if len(cfg.AllowOrigins) == 0 {
		t.Error("expected default CORS origins")
	}

	v.Set(KeyAllowOrigins, []string{"https://recon.example.com"})
	v.Set(KeyMaxUploadMB, 8)
	cfg, err = CreateAPIConfig(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.AllowOrigins) != 1 || cfg.AllowOrigins[0] != "https://recon.example.com" {
		t.Errorf("unexpected origins: %v", cfg.AllowOrigins)
	}
	if cfg.MaxUploadBytes != 8<<20 {
		t.Errorf("expected 8 MiB upload limit, got %d", cfg.MaxUploadBytes)
	}

	v.Set(KeyAllowOrigins, []string{})
	cfg, err = CreateAPIConfig(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.AllowOrigins) == 0 {
		t.Error("expected an empty origin list to fall back to the defaults")
	}

	v.Set(KeyMaxUploadMB, 0)
	if _, err := CreateAPIConfig(v); err == nil {
		t.Error("expected error for zero upload limit")
	}
}
