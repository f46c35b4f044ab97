/*
dashboard.go - Production log book dashboard figures

PURPOSE:
  Aggregates finalized Production Log Book entries over a date range into
  headline figures (LogBookOverview) and one line per entry
  (LogBookEntries). Drafts and cancelled entries never count.

PROCESS LOSS:
  Loss is material consumed minus quantity taken in, per entry and in total.
  Loss % is weighted: sum(loss) / sum(consumption) * 100, rounded to two
  places. Weights are rounded to three places like the sheet totals.

EXAMPLE:
  q := manufacturing.LogBookQuery{From: monday, To: sunday, Shift: "Night"}
  docs, err := manufacturing.LogBookEntriesFor(ctx, store, q)
  overview := manufacturing.LogBookOverview(docs)

SEE ALSO:
  - rejection/dashboard.go: The daily rejection dashboard
  - api/dashboard.go: HTTP endpoints
*/
package manufacturing

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hexplastics/form-engine/generic"
)

// =============================================================================
// QUERY
// =============================================================================

type LogBookQuery struct {
	From  time.Time // zero: open
	To    time.Time // zero: open
	Shift string    // empty: every shift
}

// Filter is the store filter selecting the entries in the date range.
// Shift is applied after loading.
func (q LogBookQuery) Filter() generic.ListFilter {
	return generic.ListFilter{
		Type:      ProductionLogBook,
		States:    []generic.Lifecycle{generic.StateFinalized},
		DateField: LogBookDate,
		DateFrom:  q.From,
		DateTo:    q.To,
	}
}

// LogBookEntriesFor loads the finalized entries covered by q, oldest first.
func LogBookEntriesFor(ctx context.Context, store generic.Store, q LogBookQuery) ([]*generic.Doc, error) {
	docs, err := store.List(ctx, q.Filter())
	if err != nil || q.Shift == "" {
		return docs, err
	}
	kept := docs[:0]
	for _, doc := range docs {
		if shift, _ := doc.Get(LogBookShift).(string); strings.EqualFold(strings.TrimSpace(shift), q.Shift) {
			kept = append(kept, doc)
		}
	}
	return kept, nil
}

// =============================================================================
// OVERVIEW
// =============================================================================

type LogBookMetrics struct {
	Entries               int     `json:"entries"`
	TotalConsumption      float64 `json:"total_consumption"`
	TotalInQty            float64 `json:"total_in_qty"`
	ProcessLoss           float64 `json:"process_loss"`
	ProcessLossPercentage float64 `json:"process_loss_percentage"`
}

// LogBookOverview sums consumption and quantity in over docs.
func LogBookOverview(docs []*generic.Doc) LogBookMetrics {
	consumed, in := decimal.Zero, decimal.Zero
	for _, doc := range docs {
		consumed = consumed.Add(generic.Number(doc.Get(LogBookTotalConsume)))
		in = in.Add(generic.Number(doc.Get(LogBookTotalInQty)))
	}
	loss := consumed.Sub(in)
	return LogBookMetrics{
		Entries:               len(docs),
		TotalConsumption:      weight(consumed),
		TotalInQty:            weight(in),
		ProcessLoss:           weight(loss),
		ProcessLossPercentage: lossPercentage(loss, consumed),
	}
}

// =============================================================================
// ENTRIES
// =============================================================================

type LogBookEntry struct {
	ID               string  `json:"id"`
	ProductionDate   string  `json:"production_date"`
	Shift            string  `json:"shift_type,omitempty"`
	TotalConsumption float64 `json:"total_consumption"`
	TotalInQty       float64 `json:"total_in_qty"`
	ProcessLoss      float64 `json:"process_loss"`
}

// LogBookEntries returns one line per entry in the order given.
func LogBookEntries(docs []*generic.Doc) []LogBookEntry {
	out := make([]LogBookEntry, 0, len(docs))
	for _, doc := range docs {
		consumed := generic.Number(doc.Get(LogBookTotalConsume))
		in := generic.Number(doc.Get(LogBookTotalInQty))

		date := ""
		if d, ok := generic.DateOf(doc.Get(LogBookDate)); ok {
			date = generic.FormatDate(d)
		}
		shift, _ := doc.Get(LogBookShift).(string)
		out = append(out, LogBookEntry{
			ID:               doc.Name,
			ProductionDate:   date,
			Shift:            shift,
			TotalConsumption: weight(consumed),
			TotalInQty:       weight(in),
			ProcessLoss:      weight(consumed.Sub(in)),
		})
	}
	return out
}

var hundred = decimal.NewFromInt(100)

func weight(d decimal.Decimal) float64 {
	return generic.Finite(d.Round(3))
}

func lossPercentage(loss, consumed decimal.Decimal) float64 {
	if !consumed.IsPositive() {
		return 0
	}
	return generic.Finite(loss.Mul(hundred).Div(consumed).Round(2))
}
