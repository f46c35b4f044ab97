/*
store.go - Persistence interface for host documents

PURPOSE:
  The engine does not own persistence; the host does. Store is the small
  contract the API host needs from whatever keeps its documents, so the
  same handlers run against SQLite in production and memory in tests.

LOCKED DOCUMENTS:
  A stored document that is finalized or cancelled is immutable. Save
  refuses to overwrite it with LockedError, except for the lifecycle
  transition itself (SaveOptions.Transition), which only changes state.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - generic/store/memory.go: In-memory for testing

EXAMPLE:
  err := store.Save(ctx, doc, generic.SaveOptions{})
  if errors.Is(err, generic.ErrDocumentLocked) {
      // someone submitted it meanwhile
  }

SEE ALSO:
  - document.go: The Doc type being stored
*/
package generic

import (
	"context"
	"time"
)

// =============================================================================
// STORE
// =============================================================================

type Store interface {
	// Save inserts or replaces a document.
	Save(ctx context.Context, doc *Doc, opts SaveOptions) error

	// Load returns a copy of the stored document or ErrDocumentNotFound.
	Load(ctx context.Context, docType DocType, name string) (*Doc, error)

	// List returns matching documents ordered by date field, then name.
	List(ctx context.Context, filter ListFilter) ([]*Doc, error)

	// Delete removes a draft. Locked documents return LockedError.
	Delete(ctx context.Context, docType DocType, name string) error
}

// SaveOptions relaxes the locked-document rule for one save.
type SaveOptions struct {
	// Transition marks a lifecycle change, such as cancelling a finalized
	// document, which may replace a locked stored copy.
	Transition bool
}

// ListFilter selects documents of one doctype.
type ListFilter struct {
	Type   DocType
	States []Lifecycle // empty: any state

	// DateField, when set, restricts results to documents whose field
	// holds a YYYY-MM-DD date within [DateFrom, DateTo]. Zero bounds are open.
	DateField string
	DateFrom  time.Time
	DateTo    time.Time
}

// Matches applies the filter to a loaded document.
func (f ListFilter) Matches(doc *Doc) bool {
	if f.Type != "" && doc.DocType != f.Type {
		return false
	}
	if len(f.States) > 0 {
		found := false
		for _, s := range f.States {
			if doc.State() == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.DateField == "" {
		return true
	}
	d, ok := DateOf(doc.Get(f.DateField))
	if !ok {
		return false
	}
	if !f.DateFrom.IsZero() && d.Before(truncateDay(f.DateFrom)) {
		return false
	}
	if !f.DateTo.IsZero() && d.After(truncateDay(f.DateTo)) {
		return false
	}
	return true
}

// CheckWritable returns LockedError when stored may not be replaced.
func CheckWritable(stored *Doc, opts SaveOptions) error {
	if stored == nil || !stored.State().Locked() || opts.Transition {
		return nil
	}
	return &LockedError{Name: stored.Name, State: stored.State()}
}
