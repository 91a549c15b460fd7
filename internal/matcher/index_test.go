package matcher

import (
	"reflect"
	"testing"
	"time"

	"contra-reconciliation-service/internal/models"
)

func TestDateLookup(t *testing.T) {
	rows := []*models.StatementRow{
		debit(day(2024, 1, 10), 100, "", "a"),
		credit(day(2024, 1, 10), 50, "", "b"),
		debit(day(2024, 1, 11), 200, "", "c"),
		debit(time.Time{}, 300, "", "undated"),
		debit(day(2024, 1, 9), 0, "", "zero"),
		debit(day(2024, 1, 10), 400, "", "d"),
		debit(day(2024, 1, 12), 500, "", "e"),
	}
	for _, r := range rows {
		r.NormDate = models.NormalizeDate(r.Date)
	}

	lookup := NewDateLookup(rows, models.SideDebit)

	if lookup.Side() != models.SideDebit {
		t.Errorf("expected debit side, got %s", lookup.Side())
	}
	if got := lookup.On(day(2024, 1, 10)); !reflect.DeepEqual(got, []int{0, 5}) {
		t.Errorf("On(2024-01-10) = %v, want [0 5]", got)
	}
	if got := lookup.Around(day(2024, 1, 11), 1); !reflect.DeepEqual(got, []int{0, 5, 2, 6}) {
		t.Errorf("Around(2024-01-11, 1) = %v, want [0 5 2 6]", got)
	}
	if got := lookup.Around(day(2024, 1, 11), 0); !reflect.DeepEqual(got, []int{2}) {
		t.Errorf("Around(2024-01-11, 0) = %v, want [2]", got)
	}
	if lookup.On(time.Time{}) != nil || lookup.Around(time.Time{}, 1) != nil {
		t.Error("zero date should have no positions")
	}
	if lookup.Len() != 4 || lookup.Dates() != 3 {
		t.Errorf("unexpected size: %d rows on %d dates", lookup.Len(), lookup.Dates())
	}
}

func TestDateLookupCreditSide(t *testing.T) {
	rows := []*models.StatementRow{
		debit(day(2024, 1, 10), 100, "", "a"),
		credit(day(2024, 1, 10), 50, "", "b"),
	}
	for _, r := range rows {
		r.NormDate = models.NormalizeDate(r.Date)
	}

	lookup := NewDateLookup(rows, models.SideCredit)
	if got := lookup.On(day(2024, 1, 10)); !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("On = %v, want [1]", got)
	}
}
