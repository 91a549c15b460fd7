package logger

import (
	"fmt"
	"time"
)

// ProgressTracker reports progress through a fixed number of steps, such
// as the statement pairs of a batch. It is not safe for concurrent use.
type ProgressTracker struct {
	logger    Logger
	operation string
	total     int
	current   int
	startTime time.Time
}

// ProgressStats contains progress statistics
type ProgressStats struct {
	Operation  string        `json:"operation"`
	Total      int           `json:"total"`
	Current    int           `json:"current"`
	Percentage float64       `json:"percentage"`
	Duration   time.Duration `json:"duration"`
}

// NewProgressTracker creates a tracker and logs the start of the operation.
func NewProgressTracker(operation string, total int, log Logger) *ProgressTracker {
	if log == nil {
		log = GetGlobalLogger()
	}

	p := &ProgressTracker{
		logger:    log.WithComponent("progress"),
		operation: operation,
		total:     total,
		startTime: time.Now(),
	}

	p.logger.WithFields(Fields{
		"operation": operation,
		"total":     total,
	}).Debug("Starting operation")

	return p
}

// Step advances the tracker by one and logs the step label with any extra fields.
func (p *ProgressTracker) Step(label string, fields Fields) {
	p.current++

	entry := Fields{
		"operation": p.operation,
		"step":      label,
		"progress":  fmt.Sprintf("%d/%d", p.current, p.total),
	}
	for k, v := range fields {
		entry[k] = v
	}
	p.logger.WithFields(entry).Info("Progress update")
}

// Complete logs the final statistics.
func (p *ProgressTracker) Complete() {
	stats := p.Stats()
	p.logger.WithFields(Fields{
		"operation": p.operation,
		"processed": stats.Current,
		"total":     stats.Total,
		"duration":  stats.Duration.String(),
	}).Info("Operation completed")
}

// Stats returns current progress statistics
func (p *ProgressTracker) Stats() ProgressStats {
	var percentage float64
	if p.total > 0 {
		percentage = float64(p.current) / float64(p.total) * 100
	}
	return ProgressStats{
		Operation:  p.operation,
		Total:      p.total,
		Current:    p.current,
		Percentage: percentage,
		Duration:   time.Since(p.startTime),
	}
}

// String returns a human-readable representation of the progress
func (ps ProgressStats) String() string {
	return fmt.Sprintf("%s: %d/%d (%.1f%%) in %v", ps.Operation, ps.Current, ps.Total, ps.Percentage, ps.Duration)
}

// TimedOperation executes fn and logs how long it took and whether it failed.
func TimedOperation(operation string, log Logger, fn func() error) error {
	if log == nil {
		log = GetGlobalLogger()
	}
	start := time.Now()

	err := fn()

	fields := Fields{"operation": operation, "duration": time.Since(start).String()}
	if err != nil {
		log.WithError(err).WithFields(fields).Error("Operation failed")
		return err
	}
	log.WithFields(fields).Debug("Operation completed")
	return nil
}
