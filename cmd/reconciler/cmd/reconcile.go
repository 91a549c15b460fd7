package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"contra-reconciliation-service/cmd/reconciler/config"
	"contra-reconciliation-service/internal/pipeline"
	"contra-reconciliation-service/internal/reconciler"
	"contra-reconciliation-service/internal/reporter"
	"contra-reconciliation-service/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the reconcile command
var (
	statementFiles []string
	finalFile      string
	outputDir      string
	outputFormat   string
	outputFile     string
	trackingDB     string
	showProgress   bool
	failOnMismatch bool
)

// errMismatch is returned with --fail-on-mismatch when the final workbook
// disagrees with the processed statements.
var errMismatch = fmt.Errorf("INB TRF/SIS CON mismatches detected")

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Pair contra transfers and compare them with the final workbook",
	Long: `Reconcile loads two or more statement exports and the final workbook,
pairs transfers between the accounts, writes one highlighted workbook per
statement and reports where the processed statements and the final workbook
disagree.

Each statement export is an .xlsx workbook with an "Analysis" sheet (account
holder, bank name, account number) and an "Xns" sheet of transactions. The
final workbook holds one XNS sheet per account.

Examples:
  # Basic reconciliation
  reconciler reconcile --statements hdfc.xlsx,sbi.xlsx --final "Final Jan.xlsx"

  # JSON report written to a file, tracking ledger enabled
  reconciler reconcile -s hdfc.xlsx -s sbi.xlsx -F final.xlsx \
    --output-format json --output-file report.json --tracking-db tracking.db

  # Stricter reference matching
  reconciler reconcile -s a.xlsx,b.xlsx -F final.xlsx --match-profile strict`,

	PreRunE: validateReconcileFlags,
	RunE:    runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	flags := reconcileCmd.Flags()

	// Required flags
	flags.StringSliceVarP(&statementFiles, "statements", "s", []string{}, "statement export workbooks, comma-separated or repeated (required)")
	flags.StringVarP(&finalFile, "final", "F", "", "final workbook (required)")

	// Output flags
	flags.StringVarP(&outputDir, config.KeyOutputDir, "d", config.DefaultOutputDir, "directory for the processed workbooks")
	flags.StringVarP(&outputFormat, config.KeyOutputFormat, "f", "console", "report format: console, json, csv")
	flags.StringVarP(&outputFile, "output-file", "o", "", "report file path (default: stdout)")
	flags.StringVar(&trackingDB, config.KeyTrackingDB, "", "tracking ledger database (disabled when empty)")

	// Matching flags
	flags.String(config.KeyMatchProfile, config.ProfileDefault, "matching profile: default, strict, relaxed, legacy")
	flags.Float64(config.KeyAmountTolerance, 100, "largest amount difference accepted by reference matching")
	flags.Int(config.KeyReferenceWindowDays, 1, "days on either side searched by reference matching")
	flags.Bool(config.KeyAccountVeto, true, "reject self transfers naming a third account")
	flags.Int(config.KeyMinBackfillScore, 2, "lowest score that marks a statement row for a final-only entry")

	// UI flags
	flags.BoolVar(&showProgress, "progress", false, "show progress indicators")
	flags.BoolVar(&failOnMismatch, "fail-on-mismatch", false, "exit non-zero when mismatches are found")

	reconcileCmd.MarkFlagRequired("statements")
	reconcileCmd.MarkFlagRequired("final")

	for _, key := range []string{
		config.KeyOutputDir, config.KeyOutputFormat, config.KeyTrackingDB,
		config.KeyMatchProfile, config.KeyAmountTolerance, config.KeyReferenceWindowDays,
		config.KeyAccountVeto, config.KeyMinBackfillScore,
	} {
		viper.BindPFlag(key, flags.Lookup(key))
	}
}

func validateReconcileFlags(cmd *cobra.Command, args []string) error {
	// Config file and environment may override the flag defaults.
	outputDir = viper.GetString(config.KeyOutputDir)
	outputFormat = strings.ToLower(viper.GetString(config.KeyOutputFormat))
	trackingDB = viper.GetString(config.KeyTrackingDB)

	if len(statementFiles) < 2 {
		return fmt.Errorf("at least two statement files are required, got %d", len(statementFiles))
	}
	for i, f := range statementFiles {
		if err := validateFileExists(f, fmt.Sprintf("statement file %d", i+1)); err != nil {
			return err
		}
	}
	if err := validateFileExists(finalFile, "final workbook"); err != nil {
		return err
	}

	validFormats := map[string]bool{"console": true, "json": true, "csv": true}
	if !validFormats[outputFormat] {
		return fmt.Errorf("invalid output format '%s'. Valid formats: console, json, csv", outputFormat)
	}

	if outputDir == "" {
		return fmt.Errorf("output directory cannot be empty")
	}

	if outputFile != "" {
		dir := filepath.Dir(outputFile)
		if dir != "." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return fmt.Errorf("report directory does not exist: %s", dir)
			}
		}
	}

	return nil
}

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return fmt.Errorf("%s path cannot be empty", description)
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: %s", description, filePath)
	}
	if err != nil {
		return fmt.Errorf("error accessing %s: %w", description, err)
	}

	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file: %s", description, filePath)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("%s is not readable: %w", description, err)
	}
	file.Close()

	return nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.GetGlobalLogger().WithComponent("cli")
	log.WithFields(logger.Fields{
		"statements": strings.Join(statementFiles, ", "),
		"final":      finalFile,
		"output_dir": outputDir,
		"format":     outputFormat,
	}).Debug("Starting reconciliation")

	upload, err := pipeline.UploadFromPaths(statementFiles, finalFile)
	if err != nil {
		return err
	}

	svc, err := buildServices(viper.GetViper(), outputDir, trackingDB)
	if err != nil {
		return err
	}
	defer svc.Close()

	if showProgress {
		svc.service.AddProgressCallback(func(p *reconciler.Progress) {
			fmt.Fprintf(os.Stderr, "\r[%d/%d] %s (%.1f%% complete)",
				p.CompletedSteps, p.TotalSteps, p.CurrentStep, p.PercentComplete)
			if p.CompletedSteps == p.TotalSteps {
				fmt.Fprintf(os.Stderr, "\n")
			}
		})
	}

	out, err := svc.runner.Run(ctx, upload)
	if err != nil {
		return err
	}

	reportConfig, err := config.CreateReportConfig(outputFormat, useColors() && outputFile == "")
	if err != nil {
		return err
	}
	generator, err := reporter.NewSafeReportGenerator(reportConfig, log)
	if err != nil {
		return err
	}

	var output io.Writer = os.Stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	if err := generator.GenerateReportSafely(out.Result, output); err != nil {
		return err
	}

	res := out.Response(outputDir)
	log.WithFields(logger.Fields{
		"run_id":       res.RunID,
		"files":        res.FilesProcessed,
		"has_mismatch": res.HasMismatch,
	}).Info(res.Message)
	if out.TrackingErr != nil {
		fmt.Fprintf(os.Stderr, "Warning: tracking ledger not updated: %v\n", out.TrackingErr)
	}

	if failOnMismatch && res.HasMismatch {
		return errMismatch
	}
	return nil
}
