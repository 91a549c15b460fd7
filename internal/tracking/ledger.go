// Package tracking keeps the running ledger of reconciled files. Each run
// appends one line per summary row, skipping file names already recorded.
// Each run is shaded opposite to the run before it.
package tracking

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"contra-reconciliation-service/internal/reconciler"
	"contra-reconciliation-service/pkg/errors"
	"contra-reconciliation-service/pkg/logger"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// DateLayout is the day-first date written on each entry.
const DateLayout = "02-01-2006"

// Entry is one ledger line.
type Entry struct {
	ID              int64     `json:"id"`
	Serial          int       `json:"serial"`
	RunID           string    `json:"run_id"`
	Date            string    `json:"date"`
	BankName        string    `json:"bank_name"`
	FileName        string    `json:"file_name"`
	TotalManual     int       `json:"total_manual"`
	TotalSoftware   int       `json:"total_software"`
	ManualMatched   int       `json:"manual_matched"`
	SoftwareMatched int       `json:"software_matched"`
	Percentage      string    `json:"percentage"`
	Shaded          bool      `json:"shaded"`
	CreatedAt       time.Time `json:"created_at"`
}

// UpdateResult reports what one Update call did.
type UpdateResult struct {
	RunID   string   `json:"run_id"`
	Added   []*Entry `json:"added"`
	Skipped []string `json:"skipped"`
	Shaded  bool     `json:"shaded"`
}

// Ledger provides SQLite access to the tracking ledger.
type Ledger struct {
	db     *sql.DB
	logger logger.Logger
	now    func() time.Time
}

// Open opens or creates the ledger database at path and applies pending
// migrations.
func Open(path string) (*Ledger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.StorageError(errors.CodeStorageUnavailable, "open", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.StorageError(errors.CodeStorageUnavailable, "open", err)
	}
	// A single connection keeps the read-then-append in Update serialized.
	db.SetMaxOpenConns(1)

	l := &Ledger{
		db:     db,
		logger: logger.GetGlobalLogger().WithComponent("tracking"),
		now:    time.Now,
	}

	if err := l.runMigrations(); err != nil {
		_ = db.Close()
		return nil, errors.StorageError(errors.CodeStorageUnavailable, "migrate", err)
	}

	return l, nil
}

// WithLogger replaces the ledger's logger.
func (l *Ledger) WithLogger(log logger.Logger) *Ledger {
	l.logger = log.WithComponent("tracking")
	return l
}

// WithClock replaces the clock used to date new entries.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// Close closes the database connection
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Percentage is software matched over manual matched, "0.00 %" when the
// final workbook has no matched rows.
func Percentage(row reconciler.SummaryRow) string {
	var pct float64
	if row.ManualMatched > 0 {
		pct = float64(row.SoftwareMatched) / float64(row.ManualMatched) * 100
	}
	return fmt.Sprintf("%.2f %%", pct)
}

// Update appends rows under runID. Rows whose file name is already in the
// ledger are skipped. The new batch is shaded when the last existing entry
// is not; the first batch of an empty ledger is unshaded. An empty runID
// gets a fresh one.
func (l *Ledger) Update(ctx context.Context, runID string, rows []reconciler.SummaryRow) (*UpdateResult, error) {
	if runID == "" {
		runID = uuid.NewString()
	}
	result := &UpdateResult{RunID: runID}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.StorageError(errors.CodeStorageUnavailable, "update", err)
	}
	defer func() { _ = tx.Rollback() }()

	existing, err := existingFileNames(ctx, tx)
	if err != nil {
		return nil, errors.StorageError(errors.CodeStorageWrite, "update", err)
	}

	var count int
	var lastShaded sql.NullBool
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM tracking_entries`).Scan(&count); err != nil {
		return nil, errors.StorageError(errors.CodeStorageWrite, "update", err)
	}
	if count > 0 {
		err := tx.QueryRowContext(ctx, `SELECT shaded FROM tracking_entries ORDER BY serial DESC LIMIT 1`).Scan(&lastShaded)
		if err != nil {
			return nil, errors.StorageError(errors.CodeStorageWrite, "update", err)
		}
		result.Shaded = !lastShaded.Bool
	}

	date := l.now().Format(DateLayout)
	serial := count + 1

	for _, row := range rows {
		if existing[row.FileName] {
			l.logger.WithField("file_name", row.FileName).Info("Skipping file already in the tracking ledger")
			result.Skipped = append(result.Skipped, row.FileName)
			continue
		}

		entry := &Entry{
			Serial:          serial,
			RunID:           runID,
			Date:            date,
			BankName:        row.BankName,
			FileName:        row.FileName,
			TotalManual:     row.TotalManual,
			TotalSoftware:   row.TotalSoftware,
			ManualMatched:   row.ManualMatched,
			SoftwareMatched: row.SoftwareMatched,
			Percentage:      Percentage(row),
			Shaded:          result.Shaded,
		}

		res, err := tx.ExecContext(ctx, `
		INSERT INTO tracking_entries
		(serial, run_id, entry_date, bank_name, file_name, total_manual, total_software,
		 manual_matched, software_matched, percentage, shaded)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			entry.Serial, entry.RunID, entry.Date, entry.BankName, entry.FileName,
			entry.TotalManual, entry.TotalSoftware, entry.ManualMatched, entry.SoftwareMatched,
			entry.Percentage, entry.Shaded,
		)
		if err != nil {
			return nil, errors.StorageError(errors.CodeStorageWrite, "update", err)
		}
		entry.ID, _ = res.LastInsertId()

		existing[row.FileName] = true
		result.Added = append(result.Added, entry)
		serial++
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.StorageError(errors.CodeStorageWrite, "update", err)
	}

	l.logger.WithFields(logger.Fields{
		"run_id":  runID,
		"added":   len(result.Added),
		"skipped": len(result.Skipped),
		"shaded":  result.Shaded,
	}).Info("Tracking ledger updated")

	return result, nil
}

func existingFileNames(ctx context.Context, tx *sql.Tx) (map[string]bool, error) {
	rows, err := tx.QueryContext(ctx, `SELECT file_name FROM tracking_entries`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	names := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names[name] = true
	}
	return names, rows.Err()
}

// Entries returns every ledger line in serial order.
func (l *Ledger) Entries(ctx context.Context) ([]*Entry, error) {
	rows, err := l.db.QueryContext(ctx, `
	SELECT id, serial, run_id, entry_date, bank_name, file_name, total_manual, total_software,
	       manual_matched, software_matched, percentage, shaded, created_at
	FROM tracking_entries ORDER BY serial`)
	if err != nil {
		return nil, errors.StorageError(errors.CodeStorageUnavailable, "list", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []*Entry
	for rows.Next() {
		e := &Entry{}
		if err := rows.Scan(&e.ID, &e.Serial, &e.RunID, &e.Date, &e.BankName, &e.FileName,
			&e.TotalManual, &e.TotalSoftware, &e.ManualMatched, &e.SoftwareMatched,
			&e.Percentage, &e.Shaded, &e.CreatedAt); err != nil {
			return nil, errors.StorageError(errors.CodeStorageUnavailable, "list", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.StorageError(errors.CodeStorageUnavailable, "list", err)
	}
	return entries, nil
}
