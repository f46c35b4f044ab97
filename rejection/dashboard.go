/*
dashboard.go - Daily rejection dashboard figures

PURPOSE:
  Aggregates finalized rejection sheets into the three dashboard views:
  headline figures (Overview), one line per sheet (Table) and a rejection
  percentage trend (Trend). Draft and cancelled sheets never count, nor do
  sheets without a rejection date.

PERIODS:
  Weekly   today-6d .. today   (7 days, one point per day)
  Monthly  today-29d .. today  (30 days, one point per day)
  Yearly   today-364d .. today (one point per calendar month)
  Custom   caller's from .. to, either bound optional

PERCENTAGES:
  Rejection % is weighted: sum(rejected) / sum(checked) * 100, rounded to
  two places. It is never the average of per-sheet percentages.

EXAMPLE:
  q := rejection.Query{Period: rejection.PeriodWeekly, Shift: rejection.ShiftDay, Today: time.Now()}
  docs, err := rejection.Sheets(ctx, store, q)
  overview := rejection.Overview(docs, q.Shift)

SEE ALSO:
  - types.go: Field names read here
  - api/dashboard.go: HTTP endpoints
*/
package rejection

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hexplastics/form-engine/generic"
)

var (
	ErrUnknownPeriod = errors.New("unknown dashboard period")
	ErrUnknownShift  = errors.New("unknown shift")
)

// =============================================================================
// PERIOD
// =============================================================================

type Period string

const (
	PeriodWeekly  Period = "Weekly"
	PeriodMonthly Period = "Monthly"
	PeriodYearly  Period = "Yearly"
	PeriodCustom  Period = "Custom"
)

// ParsePeriod accepts the four period names. The empty string is Weekly.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case "":
		return PeriodWeekly, nil
	case PeriodWeekly, PeriodMonthly, PeriodYearly, PeriodCustom:
		return Period(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPeriod, s)
}

// Range returns the inclusive date range of the period ending today.
// For Custom, from and to are passed through; zero values are open bounds.
func (p Period) Range(today, from, to time.Time) (time.Time, time.Time, error) {
	today = day(today)
	switch p {
	case PeriodWeekly:
		return today.AddDate(0, 0, -6), today, nil
	case PeriodMonthly:
		return today.AddDate(0, 0, -29), today, nil
	case PeriodYearly:
		return today.AddDate(0, 0, -364), today, nil
	case PeriodCustom:
		return from, to, nil
	}
	return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrUnknownPeriod, string(p))
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// =============================================================================
// QUERY
// =============================================================================

type Query struct {
	Period Period
	Shift  Shift
	Today  time.Time
	From   time.Time // Custom only
	To     time.Time // Custom only
}

// Filter is the store filter selecting the sheets the query covers.
func (q Query) Filter() (generic.ListFilter, error) {
	from, to, err := q.Period.Range(q.Today, q.From, q.To)
	if err != nil {
		return generic.ListFilter{}, err
	}
	return generic.ListFilter{
		Type:      DocType,
		States:    []generic.Lifecycle{generic.StateFinalized},
		DateField: FieldDate,
		DateFrom:  from,
		DateTo:    to,
	}, nil
}

// Sheets loads the finalized sheets covered by q, oldest first.
func Sheets(ctx context.Context, store generic.Store, q Query) ([]*generic.Doc, error) {
	filter, err := q.Filter()
	if err != nil {
		return nil, err
	}
	return store.List(ctx, filter)
}

// =============================================================================
// OVERVIEW
// =============================================================================

type OverviewMetrics struct {
	TotalBoxChecked     int64   `json:"total_box_checked"`
	TotalRejection      int64   `json:"total_rejection"`
	RejectionPercentage float64 `json:"rejection_percentage"`
}

// Overview sums checked boxes and the shift's rejections over docs.
func Overview(docs []*generic.Doc, shift Shift) OverviewMetrics {
	checked, rejected := decimal.Zero, decimal.Zero
	for _, doc := range docs {
		checked = checked.Add(generic.Number(doc.Get(FieldBoxChecked)))
		rejected = rejected.Add(generic.Number(doc.Get(shift.TotalField())))
	}
	return OverviewMetrics{
		TotalBoxChecked:     checked.IntPart(),
		TotalRejection:      rejected.IntPart(),
		RejectionPercentage: percentage(rejected, checked),
	}
}

// =============================================================================
// TABLE
// =============================================================================

type TableRow struct {
	ID                  string  `json:"id"`
	RejectionDate       string  `json:"rejection_date"`
	TotalBoxChecked     int64   `json:"total_box_checked"`
	DayShiftRejection   int64   `json:"day_shift_rejection"`
	NightShiftRejection int64   `json:"night_shift_rejection"`
	TotalRejection      int64   `json:"total_rejection"` // of the selected shift
	RejectionPercentage float64 `json:"rejection_percentage"`
}

// Table returns one row per sheet in the order given.
func Table(docs []*generic.Doc, shift Shift) []TableRow {
	rows := make([]TableRow, 0, len(docs))
	for _, doc := range docs {
		checked := generic.Number(doc.Get(FieldBoxChecked))
		shown := generic.Number(doc.Get(shift.TotalField()))

		date := ""
		if d, ok := generic.DateOf(doc.Get(FieldDate)); ok {
			date = generic.FormatDate(d)
		}
		rows = append(rows, TableRow{
			ID:                  doc.Name,
			RejectionDate:       date,
			TotalBoxChecked:     checked.IntPart(),
			DayShiftRejection:   generic.Number(doc.Get(FieldDayTotal)).IntPart(),
			NightShiftRejection: generic.Number(doc.Get(FieldNightTotal)).IntPart(),
			TotalRejection:      shown.IntPart(),
			RejectionPercentage: percentage(shown, checked),
		})
	}
	return rows
}

// =============================================================================
// TREND
// =============================================================================

type TrendData struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

type bucket struct {
	label    string
	checked  decimal.Decimal
	rejected decimal.Decimal
}

// Trend groups docs by day (by month for Yearly) and returns the weighted
// rejection percentage of each group in date order. A Custom query needs
// both bounds; without them the trend is empty.
func Trend(docs []*generic.Doc, q Query) TrendData {
	out := TrendData{Labels: []string{}, Values: []float64{}}
	if q.Period == PeriodCustom && (q.From.IsZero() || q.To.IsZero()) {
		return out
	}

	var order []string
	buckets := make(map[string]*bucket)
	for _, doc := range docs {
		d, ok := generic.DateOf(doc.Get(FieldDate))
		if !ok {
			continue
		}
		key, label := trendKey(q.Period, d)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{label: label, checked: decimal.Zero, rejected: decimal.Zero}
			buckets[key] = b
			order = append(order, key)
		}
		b.checked = b.checked.Add(generic.Number(doc.Get(FieldBoxChecked)))
		b.rejected = b.rejected.Add(generic.Number(doc.Get(q.Shift.TotalField())))
	}

	sort.Strings(order)
	for _, key := range order {
		b := buckets[key]
		out.Labels = append(out.Labels, b.label)
		out.Values = append(out.Values, percentage(b.rejected, b.checked))
	}
	return out
}

// trendKey returns a sortable group key and its display label.
func trendKey(p Period, d time.Time) (string, string) {
	switch p {
	case PeriodYearly:
		return d.Format("2006-01"), d.Format("Jan 2006")
	case PeriodMonthly:
		return generic.FormatDate(d), d.Format("Jan 02")
	case PeriodCustom:
		return generic.FormatDate(d), d.Format("Jan 02, 2006")
	}
	return generic.FormatDate(d), d.Format("Mon, Jan 02")
}

// =============================================================================
// HELPERS
// =============================================================================

var hundred = decimal.NewFromInt(100)

func percentage(part, whole decimal.Decimal) float64 {
	if !whole.IsPositive() {
		return 0
	}
	return generic.Finite(part.Mul(hundred).Div(whole).Round(2))
}
