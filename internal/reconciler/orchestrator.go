// Package reconciler runs a contra reconciliation batch.
//
// A batch takes the statements of one group of accounts and the curated
// final workbook. The service:
//  1. cleans the loaded rows
//  2. pairs every statement with its final sheet by canonical identity
//  3. matches all statement pairs
//  4. compares each processed statement with its final sheet
//  5. builds the summary and row count reports
//
// Example usage:
//
//	svc, err := reconciler.NewService(engine, banks, reconciler.DefaultConfig())
//	svc.AddProgressCallback(func(p *reconciler.Progress) {
//		fmt.Printf("%.0f%% %s\n", p.PercentComplete, p.CurrentStep)
//	})
//	result, err := svc.Process(ctx, &reconciler.Batch{Label: "final.xlsx", Statements: stmts, Sheets: sheets})
package reconciler

import (
	"time"
)

// Progress tracks a running batch.
type Progress struct {
	TotalSteps      int           `json:"total_steps"`
	CompletedSteps  int           `json:"completed_steps"`
	CurrentStep     string        `json:"current_step"`
	PercentComplete float64       `json:"percent_complete"`
	StartTime       time.Time     `json:"start_time"`
	ElapsedTime     time.Duration `json:"elapsed_time"`

	Statements   int `json:"statements"`
	Accounts     int `json:"accounts"`
	MatchesFound int `json:"matches_found"`
	Mismatches   int `json:"mismatches"`
}

// ProgressCallback is called after every step of a batch.
type ProgressCallback func(*Progress)

// Batch steps, in order.
const (
	StepPreprocess = "preprocess statements"
	StepPair       = "pair sheets"
	StepMatch      = "match statements"
	StepCompare    = "compare with final"
	StepSummarize  = "build summary"
)

var batchSteps = []string{StepPreprocess, StepPair, StepMatch, StepCompare, StepSummarize}

// AddProgressCallback adds a progress callback function
func (s *Service) AddProgressCallback(callback ProgressCallback) {
	s.progressCallbacks = append(s.progressCallbacks, callback)
}

func newProgress(statements int) *Progress {
	return &Progress{
		TotalSteps: len(batchSteps),
		StartTime:  time.Now(),
		Statements: statements,
	}
}

// complete marks step done and notifies the callbacks with a copy.
func (s *Service) complete(p *Progress, step string) {
	p.CompletedSteps++
	p.CurrentStep = step
	p.PercentComplete = float64(p.CompletedSteps) / float64(p.TotalSteps) * 100
	p.ElapsedTime = time.Since(p.StartTime)

	s.log.WithField("step", step).Debugf("Batch step %d/%d done", p.CompletedSteps, p.TotalSteps)

	for _, cb := range s.progressCallbacks {
		snapshot := *p
		cb(&snapshot)
	}
}
