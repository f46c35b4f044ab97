/*
Package generic provides the core form engine.

PURPOSE:
  This package contains domain-agnostic types and algorithms for keeping
  derived document fields in sync with the fields they are computed from.
  Whether the document is a daily rejection sheet, a bill of materials or a
  production log, the same engine coerces inputs, folds child rows into
  parent totals and writes the results back.

KEY CONCEPTS IN THIS FILE (types.go):
  - Value: A scalar stored in a field (number, string, date, choice)
  - Record: Anything holding named fields (a document or one of its rows)
  - Document: A record with a type, a lifecycle state and row collections
  - Lifecycle: draft, finalized or cancelled

DESIGN PRINCIPLES:
  1. Derived fields are always recomputed from scratch, never adjusted
  2. Precision: Uses decimal.Decimal for sums and ratios
  3. Locked documents are never written
  4. The host owns the document; the engine only writes declared outputs

USAGE:
  doc := generic.NewDoc("Daily Rejection Data", "DRD-0001")
  doc.Set("box_rejected_by_printing", 4)
  result := recalculator.Recalculate(doc)

SEE ALSO:
  - document.go: In-memory Document implementation
  - formula.go: Declared formulas over document fields
  - recalc.go: The recalculation algorithm
  - events.go: Subscription table that triggers recalculation
*/
package generic

import "fmt"

// =============================================================================
// VALUES AND IDENTIFIERS
// =============================================================================

// Value is whatever the host stored in a field. Numbers arrive as float64
// from JSON, strings straight from user input, nil for never-set fields.
type Value = any

type DocType string
type RowID string

// =============================================================================
// LIFECYCLE
// =============================================================================

type Lifecycle string

const (
	StateDraft     Lifecycle = "draft"
	StateFinalized Lifecycle = "finalized"
	StateCancelled Lifecycle = "cancelled"
)

// Locked reports whether the business process treats the document as
// immutable. Stored totals of locked documents must never change.
func (l Lifecycle) Locked() bool {
	return l == StateFinalized || l == StateCancelled
}

// ParseLifecycle maps a stored state name back to a Lifecycle.
// The empty string is a draft.
func ParseLifecycle(s string) (Lifecycle, error) {
	switch Lifecycle(s) {
	case "", StateDraft:
		return StateDraft, nil
	case StateFinalized:
		return StateFinalized, nil
	case StateCancelled:
		return StateCancelled, nil
	}
	return "", fmt.Errorf("unknown lifecycle state %q", s)
}

// =============================================================================
// HOST DOCUMENT MODEL
// =============================================================================

// Record is a bag of named fields.
type Record interface {
	Get(field string) Value
	Set(field string, v Value)
}

// Row is one entry of a child-row collection. ID is stable across
// recalculation.
type Row interface {
	Record
	ID() RowID
}

// Document is what the recalculator operates on. Rows returns the current
// rows of a collection in display order; an unknown collection is empty.
type Document interface {
	Record
	Type() DocType
	State() Lifecycle
	Rows(collection string) []Row
}
