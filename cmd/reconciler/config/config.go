package config

import (
	"fmt"
	"strings"

	"contra-reconciliation-service/internal/api"
	"contra-reconciliation-service/internal/identity"
	"contra-reconciliation-service/internal/matcher"
	"contra-reconciliation-service/internal/party"
	"contra-reconciliation-service/internal/reconciler"
	"contra-reconciliation-service/internal/reporter"
	"contra-reconciliation-service/pkg/errors"
	"contra-reconciliation-service/pkg/logger"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Configuration keys. Each is also a flag name and, upper-cased with
// dashes turned into underscores, a RECONCILER_ environment variable.
const (
	KeyMatchProfile        = "match-profile"
	KeyAmountTolerance     = "amount-tolerance"
	KeyReferenceWindowDays = "reference-window-days"
	KeyAccountVeto         = "account-veto"
	KeyMinBackfillScore    = "min-backfill-score"
	KeyNameTokenSet        = "name-token-set"
	KeyNameSequence        = "name-sequence"
	KeyBankDirectory       = "bank-directory"
	KeyOutputDir           = "output-dir"
	KeyOutputFormat        = "output-format"
	KeyTrackingDB          = "tracking-db"
	KeyLogLevel            = "log-level"
	KeyLogFormat           = "log-format"
	KeyLogFile             = "log-file"
	KeyAddr                = "addr"
	KeyAllowOrigins        = "allow-origins"
	KeyMaxUploadMB         = "max-upload-mb"
)

// Match profiles.
const (
	ProfileDefault = "default"
	ProfileStrict  = "strict"
	ProfileRelaxed = "relaxed"
	ProfileLegacy  = "legacy"
)

// DefaultOutputDir is where processed statements are written.
const DefaultOutputDir = "Matched_Statemants"

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	m := matcher.DefaultConfig()
	p := party.DefaultConfig()
	r := reconciler.DefaultConfig()
	a := api.DefaultConfig()

	v.SetDefault(KeyMatchProfile, ProfileDefault)
	v.SetDefault(KeyReferenceWindowDays, m.ReferenceWindowDays)
	v.SetDefault(KeyMinBackfillScore, r.MinBackfillScore)
	v.SetDefault(KeyNameTokenSet, p.NameTokenSet)
	v.SetDefault(KeyNameSequence, p.NameSequence)
	v.SetDefault(KeyOutputDir, DefaultOutputDir)
	v.SetDefault(KeyOutputFormat, string(reporter.FormatConsole))
	v.SetDefault(KeyLogLevel, string(logger.InfoLevel))
	v.SetDefault(KeyLogFormat, string(logger.TextFormat))
	v.SetDefault(KeyAddr, ":8000")
	v.SetDefault(KeyAllowOrigins, a.AllowOrigins)
	v.SetDefault(KeyMaxUploadMB, a.MaxUploadBytes>>20)
}

// CreateMatchingConfig starts from the selected profile and applies any
// explicit overrides.
func CreateMatchingConfig(v *viper.Viper) (*matcher.Config, error) {
	var cfg *matcher.Config
	switch profile := strings.ToLower(v.GetString(KeyMatchProfile)); profile {
	case "", ProfileDefault:
		cfg = matcher.DefaultConfig()
	case ProfileStrict:
		cfg = matcher.StrictConfig()
	case ProfileRelaxed:
		cfg = matcher.RelaxedConfig()
	case ProfileLegacy:
		cfg = matcher.LegacyConfig()
	default:
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, KeyMatchProfile, profile, nil).
			WithSuggestion("use one of: default, strict, relaxed, legacy")
	}

	if v.IsSet(KeyAmountTolerance) {
		cfg.AmountTolerance = decimal.NewFromFloat(v.GetFloat64(KeyAmountTolerance))
	}
	if v.IsSet(KeyAccountVeto) {
		cfg.EnableAccountVeto = v.GetBool(KeyAccountVeto)
	}
	cfg.ReferenceWindowDays = v.GetInt(KeyReferenceWindowDays)

	if err := cfg.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "matching", cfg.String(), err)
	}
	return cfg, nil
}

// CreatePartyConfig applies the name similarity thresholds.
func CreatePartyConfig(v *viper.Viper) (*party.Config, error) {
	cfg := party.DefaultConfig()
	cfg.NameTokenSet = v.GetFloat64(KeyNameTokenSet)
	cfg.NameSequence = v.GetFloat64(KeyNameSequence)

	if err := cfg.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "party", nil, err)
	}
	return cfg, nil
}

// CreateReconcilerConfig applies the comparison settings. The backfill
// amount tolerance follows the matching tolerance.
func CreateReconcilerConfig(v *viper.Viper, matching *matcher.Config) (*reconciler.Config, error) {
	cfg := reconciler.DefaultConfig()
	if matching != nil {
		cfg.AmountTolerance = matching.AmountTolerance
	}
	cfg.MinBackfillScore = v.GetInt(KeyMinBackfillScore)

	if err := cfg.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, KeyMinBackfillScore, cfg.MinBackfillScore, err)
	}
	return cfg, nil
}

// CreateLoggerConfig builds the logger configuration. verbose forces debug.
func CreateLoggerConfig(v *viper.Viper, verbose bool) (*logger.Config, error) {
	cfg := logger.DefaultConfig()
	cfg.Level = logger.Level(strings.ToLower(v.GetString(KeyLogLevel)))
	cfg.Format = logger.Format(strings.ToLower(v.GetString(KeyLogFormat)))
	if file := v.GetString(KeyLogFile); file != "" {
		cfg.Output = logger.FileOutput
		cfg.File = file
	}
	if verbose {
		cfg.Level = logger.DebugLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "logging", cfg.Level, err)
	}
	return cfg, nil
}

// LoadBankDirectory returns the built-in bank table, merged with the YAML
// file named by bank-directory when set.
func LoadBankDirectory(v *viper.Viper) (*identity.BankDirectory, error) {
	path := v.GetString(KeyBankDirectory)
	if path == "" {
		return identity.DefaultBankDirectory(), nil
	}
	banks, err := identity.LoadBankDirectory(path)
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, KeyBankDirectory, path, err).
			WithSuggestion("check that the bank directory file exists and is valid YAML")
	}
	return banks, nil
}

// CreateReportConfig creates a report configuration for the specified output format
func CreateReportConfig(format string, useColors bool) (*reporter.ReportConfig, error) {
	config := reporter.DefaultReportConfig()
	config.Format = reporter.OutputFormat(strings.ToLower(format))

	switch config.Format {
	case reporter.FormatConsole:
		config.UseColors = useColors
	case reporter.FormatJSON:
		config.UseColors = false
		config.IncludeMatches = true
	case reporter.FormatCSV:
		config.UseColors = false
		config.CSVHeaders = true
		config.CSVDelimiter = ','
	default:
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, KeyOutputFormat, format, nil).
			WithSuggestion("use one of: console, json, csv")
	}

	return config, nil
}

// CreateAPIConfig builds the HTTP server settings.
func CreateAPIConfig(v *viper.Viper) (*api.Config, error) {
	cfg := api.DefaultConfig()
	cfg.ProcessedDir = v.GetString(KeyOutputDir)
	if origins := v.GetStringSlice(KeyAllowOrigins); len(origins) > 0 {
		cfg.AllowOrigins = origins
	}

	mb := v.GetInt64(KeyMaxUploadMB)
	if mb <= 0 {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, KeyMaxUploadMB, mb, fmt.Errorf("must be positive"))
	}
	cfg.MaxUploadBytes = mb << 20
	return cfg, nil
}
