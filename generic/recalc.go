/*
recalc.go - Derived-field recalculation

PURPOSE:
  The Recalculator re-establishes "output field = declared formula over
  input fields" every time an input changes. It is invoked synchronously by
  the host, once per triggering event, on the event-dispatch thread.

ALGORITHM:
  0. Locked document (finalized or cancelled) -> return, no reads, no writes
  1. Every input is coerced with Number(); garbage becomes zero
  2. Rows present:
       a. row total = sum of row inputs, written to the row
       b. row total added to the partition named by the row's key
       c. overall total = sum of every row total
  3. No rows: overall total = sum of parent inputs; the parent partition
     key (if any) receives the whole total
  4. Overall total and every partition total are written
  5. Ratio = scale * total / denominator when denominator > 0, else 0

GUARANTEES:
  - Idempotent: every run starts from zero, nothing accumulates
  - Total: no error return, no panic for any stored value
  - Writes only declared outputs; never creates or deletes rows
  - Rows whose key matches no partition still count in the overall total

SEE ALSO:
  - formula.go: What the recalculator reads and writes
  - events.go: Which events invoke it
*/
package generic

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// =============================================================================
// RECALCULATOR
// =============================================================================

type Recalculator struct {
	docType DocType
	formula Formula
	index   map[string]int // partition key -> position in formula.Partitions
	logger  *slog.Logger
}

type Option func(*Recalculator)

// WithLogger enables debug logging of skipped runs and unpartitioned rows.
func WithLogger(l *slog.Logger) Option {
	return func(r *Recalculator) { r.logger = l }
}

// NewRecalculator validates the formula and prepares it for evaluation.
func NewRecalculator(docType DocType, f Formula, opts ...Option) (*Recalculator, error) {
	if err := f.Validate(docType); err != nil {
		return nil, err
	}
	r := &Recalculator{docType: docType, formula: f, index: make(map[string]int, len(f.Partitions))}
	for i, p := range f.Partitions {
		r.index[p.Key] = i
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *Recalculator) DocType() DocType { return r.docType }
func (r *Recalculator) Formula() Formula { return r.formula }

// Result describes one run. Totals are unrounded.
type Result struct {
	Skipped  bool
	FromRows bool
	Rows     int

	Total      decimal.Decimal
	Partitions map[string]decimal.Decimal

	// Rows whose partition key matched nothing.
	Unpartitioned     decimal.Decimal
	UnpartitionedRows int

	Ratio  decimal.Decimal
	Writes int
}

// Recalculate runs the formula against doc and writes the outputs.
func (r *Recalculator) Recalculate(doc Document) Result {
	if state := doc.State(); state.Locked() {
		r.debug("recalculation skipped", "formula", r.formula.Name, "state", string(state))
		return Result{Skipped: true}
	}

	f := &r.formula
	res := Result{
		Total:         decimal.Zero,
		Partitions:    make(map[string]decimal.Decimal, len(f.Partitions)),
		Unpartitioned: decimal.Zero,
		Ratio:         decimal.Zero,
	}
	sums := make([]decimal.Decimal, len(f.Partitions))
	for i := range sums {
		sums[i] = decimal.Zero
	}

	var rows []Row
	if f.Collection != "" {
		rows = doc.Rows(f.Collection)
	}

	if len(rows) > 0 {
		res.FromRows = true
		res.Rows = len(rows)

		parentKey := ""
		if f.PartitionField == "" {
			parentKey = r.parentKey(doc)
		}

		for _, row := range rows {
			rowTotal := sumFields(row, f.RowInputs)
			if f.RowOutput != "" {
				row.Set(f.RowOutput, Finite(rowTotal))
				res.Writes++
			}

			key := parentKey
			if f.PartitionField != "" {
				key = partitionKey(row.Get(f.PartitionField))
			}
			if i, ok := r.index[key]; ok {
				sums[i] = sums[i].Add(rowTotal)
			} else {
				res.Unpartitioned = res.Unpartitioned.Add(rowTotal)
				res.UnpartitionedRows++
			}
			res.Total = res.Total.Add(rowTotal)
		}
		if res.UnpartitionedRows > 0 && len(f.Partitions) > 0 {
			r.debug("rows without a known partition key",
				"formula", r.formula.Name, "rows", res.UnpartitionedRows)
		}
	} else {
		res.Total = sumFields(doc, f.ParentInputs)
		if i, ok := r.index[r.parentKey(doc)]; ok {
			sums[i] = res.Total
		} else {
			res.Unpartitioned = res.Total
		}
	}

	doc.Set(f.TotalOutput, Finite(f.TotalRound.Apply(res.Total)))
	res.Writes++
	for i, p := range f.Partitions {
		res.Partitions[p.Key] = sums[i]
		doc.Set(p.Output, Finite(f.TotalRound.Apply(sums[i])))
		res.Writes++
	}

	if f.Ratio != nil {
		res.Ratio = ratio(res.Total, Number(doc.Get(f.Ratio.Denominator)), f.Ratio.Percent)
		doc.Set(f.Ratio.Output, Finite(f.Ratio.Round.Apply(res.Ratio)))
		res.Writes++
	}
	return res
}

// Bind registers the recalculator for every event that can change one of
// its inputs.
func (r *Recalculator) Bind(b *BindingsBuilder) {
	h := func(doc Document, _ Event) { r.Recalculate(doc) }
	f := &r.formula

	for _, field := range f.ParentWatch() {
		b.OnFieldChange(r.docType, field, h)
	}
	if f.Collection != "" {
		for _, field := range f.RowWatch() {
			b.OnRowFieldChange(r.docType, f.Collection, field, h)
		}
		b.OnRowAdded(r.docType, f.Collection, h)
		b.OnRowRemoved(r.docType, f.Collection, h)
	}
	b.OnValidate(r.docType, h)
}

func (r *Recalculator) parentKey(doc Document) string {
	if r.formula.ParentPartitionField == "" {
		return ""
	}
	return partitionKey(doc.Get(r.formula.ParentPartitionField))
}

func (r *Recalculator) debug(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Debug(msg, append([]any{"doctype", string(r.docType)}, args...)...)
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func sumFields(rec Record, fields []string) decimal.Decimal {
	total := decimal.Zero
	for _, name := range fields {
		total = total.Add(Number(rec.Get(name)))
	}
	return total
}

func ratio(total, denominator decimal.Decimal, percent bool) decimal.Decimal {
	if !denominator.IsPositive() {
		return decimal.Zero
	}
	if percent {
		total = total.Mul(hundred)
	}
	return total.Div(denominator)
}

func partitionKey(v Value) string {
	switch k := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(k)
	}
	return fmt.Sprint(v)
}
