/*
document.go - In-memory host document

PURPOSE:
  Doc is the engine's own Document implementation. The API host, both
  stores and the tests use it; hosts that already have a document model
  only need to satisfy the Document interface in types.go.

ROW IDENTITY:
  Every row gets a random ID on AddRow. Recalculation writes into rows in
  place, so the ID (and the *Line pointer) survive any number of runs.

LIFECYCLE:
  draft --Submit--> finalized --Cancel--> cancelled
  Any other transition returns ErrInvalidTransition.

SEE ALSO:
  - types.go: Document, Row and Record interfaces
  - store.go: Persistence of Docs
*/
package generic

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// DOC
// =============================================================================

type Doc struct {
	Name      string             `json:"name"`
	DocType   DocType            `json:"doctype"`
	Status    Lifecycle          `json:"status"`
	Fields    map[string]Value   `json:"fields"`
	Tables    map[string][]*Line `json:"tables,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Line is one row of a Doc's child table.
type Line struct {
	RowID  RowID            `json:"id"`
	Fields map[string]Value `json:"fields"`
}

var (
	_ Document = (*Doc)(nil)
	_ Row      = (*Line)(nil)
)

// NewDoc creates an empty draft. An empty name gets a generated one.
func NewDoc(docType DocType, name string) *Doc {
	if name == "" {
		name = uuid.NewString()
	}
	return &Doc{
		Name:    name,
		DocType: docType,
		Status:  StateDraft,
		Fields:  make(map[string]Value),
		Tables:  make(map[string][]*Line),
	}
}

func (d *Doc) Get(field string) Value { return d.Fields[field] }

func (d *Doc) Set(field string, v Value) {
	if d.Fields == nil {
		d.Fields = make(map[string]Value)
	}
	d.Fields[field] = v
}

func (d *Doc) Type() DocType { return d.DocType }

func (d *Doc) State() Lifecycle {
	if d.Status == "" {
		return StateDraft
	}
	return d.Status
}

func (d *Doc) Rows(collection string) []Row {
	lines := d.Tables[collection]
	rows := make([]Row, len(lines))
	for i, l := range lines {
		rows[i] = l
	}
	return rows
}

// Lines returns the concrete rows of a collection.
func (d *Doc) Lines(collection string) []*Line {
	return d.Tables[collection]
}

// Collections returns the names of all non-empty child tables, sorted.
func (d *Doc) Collections() []string {
	names := make([]string, 0, len(d.Tables))
	for name, lines := range d.Tables {
		if len(lines) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// AddRow appends a row to a collection and returns it.
func (d *Doc) AddRow(collection string, fields map[string]Value) *Line {
	if d.Tables == nil {
		d.Tables = make(map[string][]*Line)
	}
	l := &Line{RowID: RowID(uuid.NewString()), Fields: make(map[string]Value, len(fields))}
	for k, v := range fields {
		l.Fields[k] = v
	}
	d.Tables[collection] = append(d.Tables[collection], l)
	return l
}

// Row finds a row by ID.
func (d *Doc) Row(collection string, id RowID) (*Line, error) {
	for _, l := range d.Tables[collection] {
		if l.RowID == id {
			return l, nil
		}
	}
	return nil, &RowNotFoundError{Collection: collection, ID: id}
}

// RemoveRow deletes a row by ID, keeping the order of the others.
func (d *Doc) RemoveRow(collection string, id RowID) error {
	lines := d.Tables[collection]
	for i, l := range lines {
		if l.RowID == id {
			d.Tables[collection] = append(lines[:i:i], lines[i+1:]...)
			return nil
		}
	}
	return &RowNotFoundError{Collection: collection, ID: id}
}

// Clone copies the document so a caller can edit without touching the
// stored instance. Field values are shared; they are scalars.
func (d *Doc) Clone() *Doc {
	c := *d
	c.Fields = make(map[string]Value, len(d.Fields))
	for k, v := range d.Fields {
		c.Fields[k] = v
	}
	c.Tables = make(map[string][]*Line, len(d.Tables))
	for name, lines := range d.Tables {
		cp := make([]*Line, len(lines))
		for i, l := range lines {
			cp[i] = l.clone()
		}
		c.Tables[name] = cp
	}
	return &c
}

// =============================================================================
// LIFECYCLE TRANSITIONS
// =============================================================================

// Submit finalizes a draft.
func (d *Doc) Submit() error {
	if d.State() != StateDraft {
		return &TransitionError{Name: d.Name, From: d.State(), To: StateFinalized}
	}
	d.Status = StateFinalized
	return nil
}

// Cancel voids a finalized document.
func (d *Doc) Cancel() error {
	if d.State() != StateFinalized {
		return &TransitionError{Name: d.Name, From: d.State(), To: StateCancelled}
	}
	d.Status = StateCancelled
	return nil
}

// =============================================================================
// LINE
// =============================================================================

func (l *Line) ID() RowID { return l.RowID }

func (l *Line) Get(field string) Value { return l.Fields[field] }

func (l *Line) Set(field string, v Value) {
	if l.Fields == nil {
		l.Fields = make(map[string]Value)
	}
	l.Fields[field] = v
}

func (l *Line) clone() *Line {
	c := &Line{RowID: l.RowID, Fields: make(map[string]Value, len(l.Fields))}
	for k, v := range l.Fields {
		c.Fields[k] = v
	}
	return c
}
