package matcher

import (
	"time"

	"contra-reconciliation-service/internal/models"
)

// DateLookup maps a normalized date (YYYY-MM-DD) to the positions of the
// rows on that date with a positive amount on one side. Positions within a
// date keep row order.
type DateLookup struct {
	side   models.Side
	byDate map[string][]int
}

// NewDateLookup indexes rows by date for the given side. Undated rows and
// rows without a positive amount on that side are left out.
func NewDateLookup(rows []*models.StatementRow, side models.Side) *DateLookup {
	l := &DateLookup{side: side, byDate: make(map[string][]int)}
	for i, row := range rows {
		if !row.HasDate() {
			continue
		}
		if amt, ok := row.Amount(side); !ok || !amt.IsPositive() {
			continue
		}
		key := row.DateKey()
		l.byDate[key] = append(l.byDate[key], i)
	}
	return l
}

// Side returns the side the lookup was built for.
func (l *DateLookup) Side() models.Side {
	return l.side
}

// On returns the positions on date.
func (l *DateLookup) On(date time.Time) []int {
	if date.IsZero() {
		return nil
	}
	return l.byDate[date.Format(models.DateKeyFormat)]
}

// Around returns the positions from date-days to date+days, earliest date
// first, without duplicates.
func (l *DateLookup) Around(date time.Time, days int) []int {
	if date.IsZero() {
		return nil
	}
	var out []int
	seen := make(map[int]bool)
	for offset := -days; offset <= days; offset++ {
		for _, idx := range l.On(date.AddDate(0, 0, offset)) {
			if seen[idx] {
				continue
			}
			seen[idx] = true
			out = append(out, idx)
		}
	}
	return out
}

// Len returns the number of indexed rows.
func (l *DateLookup) Len() int {
	n := 0
	for _, positions := range l.byDate {
		n += len(positions)
	}
	return n
}

// Dates returns the number of distinct dates.
func (l *DateLookup) Dates() int {
	return len(l.byDate)
}
