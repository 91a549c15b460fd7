package reconciler

import (
	"context"
	"fmt"
	"time"

	"contra-reconciliation-service/internal/identity"
	"contra-reconciliation-service/internal/matcher"
	"contra-reconciliation-service/pkg/errors"
	"contra-reconciliation-service/pkg/logger"

	"github.com/google/uuid"
)

// NewService creates a batch service. A nil engine, bank directory or
// config falls back to the defaults.
func NewService(engine *matcher.Engine, banks *identity.BankDirectory, config *Config) (*Service, error) {
	if engine == nil {
		engine = matcher.NewEngine(nil, nil, nil)
	}
	if banks == nil {
		banks = identity.DefaultBankDirectory()
	}
	if config == nil {
		config = DefaultConfig()
	}

	if err := engine.ValidateConfiguration(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "matcher", engine.Config.String(), err)
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "reconciler", config, err)
	}

	return &Service{
		engine:        engine,
		banks:         banks,
		preprocessing: DefaultPreprocessingConfig(),
		config:        config,
		log:           logger.GetGlobalLogger().WithComponent("reconciler"),
	}, nil
}

// WithLogger replaces the service logger and the matcher's.
func (s *Service) WithLogger(log logger.Logger) *Service {
	s.log = log.WithComponent("reconciler")
	s.engine.WithLogger(log)
	return s
}

// WithPreprocessing replaces the preprocessing settings.
func (s *Service) WithPreprocessing(config *PreprocessingConfig) *Service {
	if config == nil {
		config = DefaultPreprocessingConfig()
	}
	s.preprocessing = config
	return s
}

// GetConfiguration returns the current configuration
func (s *Service) GetConfiguration() *Config {
	return s.config
}

// Process runs a batch. Statements are modified in place: matched rows get
// a new category and TYPE. Nothing is matched unless every statement pairs
// with exactly one final sheet.
func (s *Service) Process(ctx context.Context, batch *Batch) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryReconciliation, errors.CodeProcessingError, "batch cancelled before start")
	}
	if err := validateBatch(batch); err != nil {
		return nil, err
	}

	result := &Result{
		RunID:      uuid.NewString(),
		Label:      batch.Label,
		StartedAt:  time.Now(),
		RowCounts:  make(map[string]RowCount),
		Highlights: make(map[string]Highlight),
		Statements: batch.Statements,
	}
	log := s.log.WithFields(logger.Fields{"run_id": result.RunID, "label": batch.Label})
	log.WithField("statements", len(batch.Statements)).Info("Starting batch")

	progress := newProgress(len(batch.Statements))

	// Statistics cover this batch only.
	preprocessor := NewDataPreprocessor(s.preprocessing)
	preprocessor.PreprocessStatements(batch.Statements)
	result.PreprocessingStats = preprocessor.GetStatistics()
	s.complete(progress, StepPreprocess)

	pairing, err := PairSheets(batch.Statements, batch.Sheets)
	if err != nil {
		log.WithError(err).Error("Sheet pairing failed")
		return nil, err
	}
	result.Accounts = pairing.Accounts
	progress.Accounts = len(pairing.Accounts)
	s.complete(progress, StepPair)

	result.Pairs = s.engine.MatchAll(batch.Statements)
	result.MatchSummary = matcher.Summarize(result.Pairs)
	progress.MatchesFound = result.MatchSummary.Matches
	s.complete(progress, StepMatch)

	for _, account := range pairing.Accounts {
		statement := pairing.Statements[account]
		sheet := pairing.Sheets[account]

		report := CompareAccount(statement, sheet, s.config)
		report.Account = account
		result.Reports = append(result.Reports, report)

		if report.HasMismatch() {
			result.HasMismatch = true
			progress.Mismatches++
		}
		if h := report.Highlight(len(statement.Rows)); len(h.Green) > 0 || len(h.Red) > 0 {
			result.Highlights[statement.Key] = h
		}

		log.WithFields(logger.Fields{
			"account":     account,
			"auto_only":   report.AutoOnlyCount,
			"manual_only": report.ManualOnlyCount,
			"backfill":    len(report.Backfill),
		}).Info("Compared with final sheet")
	}
	s.complete(progress, StepCompare)

	for _, account := range pairing.Accounts {
		statement := pairing.Statements[account]
		sheet := pairing.Sheets[account]
		result.Summary = append(result.Summary, BuildSummaryRow(statement, sheet, s.banks, s.config))
		result.RowCounts[SheetID(batch.Label, sheet.Name)] = CountRows(statement, sheet)
	}
	s.complete(progress, StepSummarize)

	result.FinishedAt = time.Now()
	log.WithFields(logger.Fields{
		"matches":      result.MatchSummary.Matches,
		"has_mismatch": result.HasMismatch,
		"duration":     result.Duration().String(),
	}).Info("Batch completed")

	return result, nil
}

func validateBatch(batch *Batch) error {
	if batch == nil {
		return errors.InputError(errors.CodeNoFiles, "batch")
	}
	if len(batch.Statements) < 2 {
		return errors.InputError(errors.CodeTooFewStatements, fmt.Sprintf("%d statement(s)", len(batch.Statements)))
	}
	if len(batch.Sheets) == 0 {
		return errors.NoReferenceSheetsError(batch.Label)
	}
	return nil
}
