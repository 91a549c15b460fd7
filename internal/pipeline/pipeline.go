// Package pipeline runs one reconciliation end to end: load the uploaded
// workbooks, process the batch, write the highlighted statements and update
// the tracking ledger. The CLI and the HTTP API both drive it.
package pipeline

import (
	"context"
	"fmt"

	"contra-reconciliation-service/internal/reconciler"
	"contra-reconciliation-service/internal/tracking"
	"contra-reconciliation-service/internal/workbook"
	"contra-reconciliation-service/pkg/logger"
)

// Runner wires the loaders, the batch service, the writer and the ledger.
type Runner struct {
	loader     *workbook.Loader
	concurrent *workbook.ConcurrentLoader
	service    *reconciler.Service
	writer     *workbook.Writer
	ledger     *tracking.Ledger
	logger     logger.Logger
}

// NewRunner creates a runner. ledger may be nil to skip tracking.
func NewRunner(loader *workbook.Loader, service *reconciler.Service, writer *workbook.Writer, ledger *tracking.Ledger) *Runner {
	return &Runner{
		loader:     loader,
		concurrent: workbook.NewConcurrentLoader(loader, 0),
		service:    service,
		writer:     writer,
		ledger:     ledger,
		logger:     logger.GetGlobalLogger().WithComponent("pipeline"),
	}
}

// WithLogger replaces the runner's logger.
func (r *Runner) WithLogger(log logger.Logger) *Runner {
	r.logger = log.WithComponent("pipeline")
	return r
}

// WithConcurrency sets how many statements load at once.
func (r *Runner) WithConcurrency(n int) *Runner {
	r.concurrent = workbook.NewConcurrentLoader(r.loader, n)
	return r
}

// Outcome is everything one run produced.
type Outcome struct {
	Result     *reconciler.Result
	Statements []*workbook.StatementFile
	Reference  *workbook.ReferenceWorkbook
	Written    []string
	Tracking   *tracking.UpdateResult
	// TrackingErr is set when the ledger could not be updated. The run
	// itself still succeeds.
	TrackingErr error
}

// TrackingUpdated reports whether the ledger took this run.
func (o *Outcome) TrackingUpdated() bool {
	return o.Tracking != nil && o.TrackingErr == nil
}

// Run processes an upload.
func (r *Runner) Run(ctx context.Context, upload *Upload) (*Outcome, error) {
	log := r.logger.WithField("final", upload.Final.Name)

	files, err := r.concurrent.LoadStatements(ctx, upload.Statements)
	if err != nil {
		return nil, err
	}
	log.WithField("statements", len(files)).Info("Loaded statement files")

	ref, err := r.loader.LoadReferenceSource(ctx, upload.Final)
	if err != nil {
		return nil, err
	}

	result, err := r.service.Process(ctx, &reconciler.Batch{
		Label:      ref.Label,
		Statements: workbook.Statements(files),
		Sheets:     ref.Sheets,
	})
	if err != nil {
		return nil, err
	}

	out := &Outcome{Result: result, Statements: files, Reference: ref}
	for _, sf := range files {
		path, err := r.writer.WriteStatement(sf, result.Highlights[sf.Statement.Key])
		if err != nil {
			return nil, err
		}
		out.Written = append(out.Written, path)
	}
	log.WithField("files", len(out.Written)).Info("Wrote processed statements")

	if r.ledger != nil {
		out.Tracking, out.TrackingErr = r.ledger.Update(ctx, result.RunID, result.Summary)
		if out.TrackingErr != nil {
			log.WithError(out.TrackingErr).Warn("Tracking ledger update failed")
		}
	}

	return out, nil
}

// Response is the JSON body returned for a processed upload.
type Response struct {
	Success         bool                                             `json:"success"`
	Message         string                                           `json:"message"`
	RunID           string                                           `json:"run_id"`
	ProcessedDir    string                                           `json:"processed_dir"`
	HasMismatch     bool                                             `json:"has_mismatch"`
	RowCountSummary map[string]reconciler.RowCount                   `json:"row_count_summary"`
	MismatchSummary map[string]map[string]*reconciler.MismatchReport `json:"mismatch_summary"`
	Summary         []reconciler.SummaryRow                          `json:"summary"`
	TrackingUpdated bool                                             `json:"tracking_updated"`
	FilesProcessed  int                                              `json:"files_processed"`
	FilesInSummary  int                                              `json:"files_in_summary"`
}

// Response builds the API response for the outcome.
func (o *Outcome) Response(processedDir string) *Response {
	res := o.Result

	message := fmt.Sprintf("Processed files saved in %s. ", processedDir)
	if res.HasMismatch {
		message += "Mismatches detected in INB TRF/SIS CON rows."
	} else {
		message += "No INB TRF/SIS CON mismatches between processed and final."
	}
	switch {
	case o.TrackingUpdated():
		message += " Tracking update: Successful"
	case o.TrackingErr != nil:
		message += " Tracking update: Failed"
	default:
		message += " Tracking update: Disabled"
	}

	return &Response{
		Success:         true,
		Message:         message,
		RunID:           res.RunID,
		ProcessedDir:    processedDir,
		HasMismatch:     res.HasMismatch,
		RowCountSummary: res.RowCounts,
		MismatchSummary: res.MismatchSummary(),
		Summary:         res.Summary,
		TrackingUpdated: o.TrackingUpdated(),
		FilesProcessed:  len(o.Statements),
		FilesInSummary:  len(res.Summary),
	}
}
