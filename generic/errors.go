/*
errors.go - Centralized error types for the form engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The recalculator itself has no error path; these errors belong to the
  configuration layer (catalog, formulas) and to the host model (stores,
  lifecycle transitions, edits of derived fields).

ERROR CATEGORIES:
  1. Configuration errors - Invalid formulas or definitions, found at start-up
  2. Edit errors - Writes the business rules forbid
  3. Store errors - Missing or locked documents

USAGE:
  if errors.Is(err, generic.ErrDocumentLocked) {
      // finalized record, refuse the edit
  }

SEE ALSO:
  - catalog.go: Returns FormulaError
  - store.go: Returns ErrDocumentNotFound and LockedError
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrDocumentNotFound is returned when a store has no document by that name.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrRowNotFound is returned when a row ID is not in the collection.
	ErrRowNotFound = errors.New("row not found")

	// ErrDocumentLocked is returned when an edit targets a finalized or
	// cancelled document.
	ErrDocumentLocked = errors.New("document is locked")

	// ErrUnknownDocType is returned when no definition exists for a doctype.
	ErrUnknownDocType = errors.New("unknown doctype")

	// ErrInvalidFormula is returned when a formula declaration is inconsistent.
	ErrInvalidFormula = errors.New("invalid formula")

	// ErrDerivedField is returned when a user edit targets a derived field.
	ErrDerivedField = errors.New("field is derived and cannot be edited")

	// ErrInvalidTransition is returned for lifecycle moves the process forbids.
	ErrInvalidTransition = errors.New("invalid lifecycle transition")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// FormulaError explains why a formula was rejected.
type FormulaError struct {
	DocType DocType
	Formula string
	Reason  string
}

func (e *FormulaError) Error() string {
	return fmt.Sprintf("invalid formula %q on %s: %s", e.Formula, e.DocType, e.Reason)
}

func (e *FormulaError) Unwrap() error { return ErrInvalidFormula }

// LockedError names the locked document and its state.
type LockedError struct {
	Name  string
	State Lifecycle
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("document %s is %s", e.Name, e.State)
}

func (e *LockedError) Unwrap() error { return ErrDocumentLocked }

// TransitionError names the refused lifecycle move.
type TransitionError struct {
	Name string
	From Lifecycle
	To   Lifecycle
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("document %s cannot move from %s to %s", e.Name, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

type RowNotFoundError struct {
	Collection string
	ID         RowID
}

func (e *RowNotFoundError) Error() string {
	return fmt.Sprintf("row %s not found in %s", e.ID, e.Collection)
}

func (e *RowNotFoundError) Unwrap() error { return ErrRowNotFound }

type DerivedFieldError struct {
	DocType    DocType
	Collection string
	Field      string
}

func (e *DerivedFieldError) Error() string {
	if e.Collection != "" {
		return fmt.Sprintf("%s.%s is derived on %s", e.Collection, e.Field, e.DocType)
	}
	return fmt.Sprintf("%s is derived on %s", e.Field, e.DocType)
}

func (e *DerivedFieldError) Unwrap() error { return ErrDerivedField }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing document or row.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrDocumentNotFound) ||
		errors.Is(err, ErrRowNotFound) ||
		errors.Is(err, ErrUnknownDocType)
}

// IsConflict returns true if the error is caused by the document's state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDocumentLocked) ||
		errors.Is(err, ErrInvalidTransition)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrDerivedField) ||
		errors.Is(err, ErrInvalidFormula)
}
