/*
formula.go - Declared derived-field formulas

PURPOSE:
  A Formula names every field the recalculator reads and every field it
  writes. Output names are fixed at configuration time; nothing is looked
  up by label while a form is being edited.

THE DECLARED CHAIN:
  row inputs --sum--> row total --partition--> partition totals
                           \
                            +--sum--> overall total --/denominator--> ratio

  Without rows the overall total is the sum of the parent inputs instead,
  and the parent partition field (if any) decides which partition receives
  all of it.

EXAMPLE (daily rejection sheet):
  Formula{
      Name:                 "rejection",
      Collection:           "rejection_details",
      RowInputs:            []string{"die_punch", "printing", "bending"},
      RowOutput:            "total",
      PartitionField:       "shift",
      ParentInputs:         []string{"box_rejected_by_die_punching", ...},
      ParentPartitionField: "shift",
      Partitions: []Partition{
          {Key: "Day", Output: "total_rejected_in_day_shift"},
          {Key: "Night", Output: "total_rejected_in_night_shift"},
      },
      TotalOutput: "total_rejection",
      Ratio: &Ratio{Denominator: "total_box_checked", Output: "rejection_in_", Percent: true},
  }

SEE ALSO:
  - recalc.go: Evaluates a Formula against a Document
  - catalog.go: Validates formulas per doctype
*/
package generic

import "fmt"

// =============================================================================
// FORMULA
// =============================================================================

type Formula struct {
	Name string

	// Collection is the watched child-row collection. Empty means the
	// formula only ever uses parent inputs.
	Collection     string
	RowInputs      []string
	RowOutput      string // optional per-row total
	PartitionField string // row field holding the partition key

	// Fallback inputs, used when Collection has no rows.
	ParentInputs         []string
	ParentPartitionField string

	Partitions []Partition

	TotalOutput string
	TotalRound  *Rounding

	Ratio *Ratio
}

// Partition routes rows whose partition key equals Key into Output.
type Partition struct {
	Key    string
	Output string
}

// Ratio is Scale * total / Denominator, or zero when the denominator is
// not positive. Scale is 100 when Percent is set, 1 otherwise.
type Ratio struct {
	Denominator string
	Output      string
	Percent     bool
	Round       *Rounding
}

// ParentOutputs lists every parent field the formula writes.
func (f *Formula) ParentOutputs() []string {
	out := []string{f.TotalOutput}
	for _, p := range f.Partitions {
		out = append(out, p.Output)
	}
	if f.Ratio != nil {
		out = append(out, f.Ratio.Output)
	}
	return out
}

// RowOutputs lists every row field the formula writes.
func (f *Formula) RowOutputs() []string {
	if f.RowOutput == "" {
		return nil
	}
	return []string{f.RowOutput}
}

// ParentWatch lists the parent fields whose change triggers the formula.
func (f *Formula) ParentWatch() []string {
	w := append([]string{}, f.ParentInputs...)
	if f.ParentPartitionField != "" {
		w = append(w, f.ParentPartitionField)
	}
	if f.Ratio != nil {
		w = append(w, f.Ratio.Denominator)
	}
	return w
}

// RowWatch lists the row fields whose change triggers the formula.
func (f *Formula) RowWatch() []string {
	if f.Collection == "" {
		return nil
	}
	w := append([]string{}, f.RowInputs...)
	if f.PartitionField != "" {
		w = append(w, f.PartitionField)
	}
	return w
}

// Validate checks the declaration is internally consistent.
func (f *Formula) Validate(docType DocType) error {
	fail := func(format string, args ...any) error {
		return &FormulaError{DocType: docType, Formula: f.Name, Reason: fmt.Sprintf(format, args...)}
	}

	if f.Name == "" {
		return fail("name is required")
	}
	if f.TotalOutput == "" {
		return fail("total output field is required")
	}
	if f.Collection == "" {
		if len(f.RowInputs) > 0 || f.RowOutput != "" || f.PartitionField != "" {
			return fail("row fields declared without a collection")
		}
		if len(f.ParentInputs) == 0 {
			return fail("no input fields")
		}
	} else if len(f.RowInputs) == 0 {
		return fail("collection %s has no row inputs", f.Collection)
	}
	if len(f.Partitions) > 0 && f.PartitionField == "" && f.ParentPartitionField == "" {
		return fail("partitions declared without a partition field")
	}
	if f.Ratio != nil && (f.Ratio.Denominator == "" || f.Ratio.Output == "") {
		return fail("ratio needs a denominator and an output")
	}

	if !f.TotalRound.valid() {
		return fail("total rounding must be 0 to %d places", MaxPlaces)
	}
	if f.Ratio != nil && !f.Ratio.Round.valid() {
		return fail("ratio rounding must be 0 to %d places", MaxPlaces)
	}

	keys := make(map[string]bool)
	for _, p := range f.Partitions {
		if p.Key == "" || p.Output == "" {
			return fail("partition needs a key and an output")
		}
		if keys[p.Key] {
			return fail("duplicate partition key %q", p.Key)
		}
		keys[p.Key] = true
	}

	if dup := firstDuplicate(f.ParentOutputs()); dup != "" {
		return fail("parent field %s written twice", dup)
	}
	if clash := firstShared(f.ParentOutputs(), f.ParentWatch()); clash != "" {
		return fail("parent field %s is both input and output", clash)
	}
	if clash := firstShared(f.RowOutputs(), f.RowWatch()); clash != "" {
		return fail("row field %s is both input and output", clash)
	}
	return nil
}

func firstDuplicate(names []string) string {
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if seen[n] {
			return n
		}
		seen[n] = true
	}
	return ""
}

func firstShared(a, b []string) string {
	set := make(map[string]bool, len(b))
	for _, n := range b {
		set[n] = true
	}
	for _, n := range a {
		if set[n] {
			return n
		}
	}
	return ""
}
