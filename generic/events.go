/*
events.go - Typed subscription table

PURPOSE:
  Maps (doctype, event kind, collection, field) to an ordered list of
  handlers. The table is declared once at start-up with a BindingsBuilder
  and frozen by Build(); a built Bindings is never modified afterwards, so
  it can be shared by every request without locking.

EVENT KINDS:
  EventFieldChange     a parent field changed         (Field set)
  EventRowFieldChange  a field of one row changed     (Collection, Field, Row set)
  EventRowAdded        a row was appended             (Collection, Row set)
  EventRowRemoved      a row was deleted              (Collection set)
  EventValidate        the host is about to save      (nothing else set)

USAGE:
  b := generic.NewBindingsBuilder()
  b.OnFieldChange("BOM", "quantity", handler)
  bindings := b.Build()

  bindings.Dispatch(doc, generic.Event{Kind: generic.EventFieldChange, Field: "quantity"})

SEE ALSO:
  - recalc.go: Recalculator.Bind registers its watch list here
  - catalog.go: Builds the table for every known doctype
*/
package generic

// =============================================================================
// EVENTS
// =============================================================================

type EventKind int

const (
	EventFieldChange EventKind = iota + 1
	EventRowFieldChange
	EventRowAdded
	EventRowRemoved
	EventValidate
)

func (k EventKind) String() string {
	switch k {
	case EventFieldChange:
		return "field_change"
	case EventRowFieldChange:
		return "row_field_change"
	case EventRowAdded:
		return "row_added"
	case EventRowRemoved:
		return "row_removed"
	case EventValidate:
		return "validate"
	}
	return "unknown"
}

type Event struct {
	Kind       EventKind
	Collection string
	Field      string
	Row        Row
}

// Handler reacts to an event on doc. It runs on the host's dispatch thread.
type Handler func(doc Document, ev Event)

type bindingKey struct {
	docType    DocType
	kind       EventKind
	collection string
	field      string
}

func keyFor(docType DocType, ev Event) bindingKey {
	k := bindingKey{docType: docType, kind: ev.Kind}
	switch ev.Kind {
	case EventFieldChange:
		k.field = ev.Field
	case EventRowFieldChange:
		k.collection, k.field = ev.Collection, ev.Field
	case EventRowAdded, EventRowRemoved:
		k.collection = ev.Collection
	}
	return k
}

// =============================================================================
// BUILDER
// =============================================================================

type BindingsBuilder struct {
	table map[bindingKey][]Handler
}

func NewBindingsBuilder() *BindingsBuilder {
	return &BindingsBuilder{table: make(map[bindingKey][]Handler)}
}

func (b *BindingsBuilder) on(k bindingKey, h Handler) *BindingsBuilder {
	b.table[k] = append(b.table[k], h)
	return b
}

func (b *BindingsBuilder) OnFieldChange(dt DocType, field string, h Handler) *BindingsBuilder {
	return b.on(bindingKey{docType: dt, kind: EventFieldChange, field: field}, h)
}

func (b *BindingsBuilder) OnRowFieldChange(dt DocType, collection, field string, h Handler) *BindingsBuilder {
	return b.on(bindingKey{docType: dt, kind: EventRowFieldChange, collection: collection, field: field}, h)
}

func (b *BindingsBuilder) OnRowAdded(dt DocType, collection string, h Handler) *BindingsBuilder {
	return b.on(bindingKey{docType: dt, kind: EventRowAdded, collection: collection}, h)
}

func (b *BindingsBuilder) OnRowRemoved(dt DocType, collection string, h Handler) *BindingsBuilder {
	return b.on(bindingKey{docType: dt, kind: EventRowRemoved, collection: collection}, h)
}

func (b *BindingsBuilder) OnValidate(dt DocType, h Handler) *BindingsBuilder {
	return b.on(bindingKey{docType: dt, kind: EventValidate}, h)
}

// Build freezes the current registrations. Later calls on the builder do
// not affect the returned table.
func (b *BindingsBuilder) Build() *Bindings {
	table := make(map[bindingKey][]Handler, len(b.table))
	for k, hs := range b.table {
		table[k] = append([]Handler(nil), hs...)
	}
	return &Bindings{table: table}
}

// =============================================================================
// BINDINGS
// =============================================================================

type Bindings struct {
	table map[bindingKey][]Handler
}

// Dispatch runs the handlers bound to ev on doc's type, in registration
// order, and returns how many ran.
func (b *Bindings) Dispatch(doc Document, ev Event) int {
	hs := b.table[keyFor(doc.Type(), ev)]
	for _, h := range hs {
		h(doc, ev)
	}
	return len(hs)
}

// Watches reports whether any handler is bound to ev on docType.
func (b *Bindings) Watches(docType DocType, ev Event) bool {
	return len(b.table[keyFor(docType, ev)]) > 0
}
