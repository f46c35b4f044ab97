/*
catalog.go - Doctype definitions and their recalculators

PURPOSE:
  The Catalog is the start-up wiring of the engine. It takes the doctype
  definitions from domain packages (rejection, manufacturing) or from the
  factory, validates every formula, builds one Recalculator per formula
  and freezes the subscription table that triggers them.

VALIDATION:
  - Every formula passes Formula.Validate
  - A doctype is defined once
  - No field is written by two formulas of the same doctype
  - No formula reads a field another formula writes; derived fields only
    feed each other along a formula's own declared chain

WHY NOT A GLOBAL REGISTRY:
  Bindings are an explicit value built once. Nothing registers handlers
  while documents are being edited.

SEE ALSO:
  - formula.go: What a formula declares
  - events.go: The frozen subscription table
  - factory/doctype.go: Definitions from JSON or YAML
*/
package generic

import "fmt"

// =============================================================================
// DEFINITION
// =============================================================================

// Definition is everything the engine knows about one doctype.
type Definition struct {
	Type DocType
	// DateField names the parent field used for date-range listing.
	DateField string
	Formulas  []Formula
}

// =============================================================================
// CATALOG
// =============================================================================

type Catalog struct {
	order    []DocType
	entries  map[DocType]*catalogEntry
	bindings *Bindings
}

type catalogEntry struct {
	def     Definition
	recalcs []*Recalculator
	derived map[string]map[string]bool // collection ("" = parent) -> field
}

// NewCatalog validates defs and builds their recalculators and bindings.
func NewCatalog(defs []Definition, opts ...Option) (*Catalog, error) {
	c := &Catalog{entries: make(map[DocType]*catalogEntry, len(defs))}
	b := NewBindingsBuilder()

	for _, def := range defs {
		if def.Type == "" {
			return nil, fmt.Errorf("definition without a doctype: %w", ErrInvalidFormula)
		}
		if _, dup := c.entries[def.Type]; dup {
			return nil, &FormulaError{DocType: def.Type, Reason: "doctype defined twice"}
		}

		e := &catalogEntry{def: def, derived: map[string]map[string]bool{"": {}}}
		for _, f := range def.Formulas {
			r, err := NewRecalculator(def.Type, f, opts...)
			if err != nil {
				return nil, err
			}
			if err := e.claimOutputs(def.Type, f); err != nil {
				return nil, err
			}
			e.recalcs = append(e.recalcs, r)
		}
		if err := e.checkInputs(def.Type); err != nil {
			return nil, err
		}
		for _, r := range e.recalcs {
			r.Bind(b)
		}

		c.entries[def.Type] = e
		c.order = append(c.order, def.Type)
	}

	c.bindings = b.Build()
	return c, nil
}

func (e *catalogEntry) claimOutputs(dt DocType, f Formula) error {
	for _, field := range f.ParentOutputs() {
		if e.derived[""][field] {
			return &FormulaError{DocType: dt, Formula: f.Name, Reason: "field " + field + " already written by another formula"}
		}
		e.derived[""][field] = true
	}
	for _, field := range f.RowOutputs() {
		if e.derived[f.Collection] == nil {
			e.derived[f.Collection] = make(map[string]bool)
		}
		if e.derived[f.Collection][field] {
			return &FormulaError{DocType: dt, Formula: f.Name, Reason: "row field " + field + " already written by another formula"}
		}
		e.derived[f.Collection][field] = true
	}
	return nil
}

func (e *catalogEntry) checkInputs(dt DocType) error {
	for _, r := range e.recalcs {
		f := r.formula
		for _, field := range f.ParentWatch() {
			if e.derived[""][field] {
				return &FormulaError{DocType: dt, Formula: f.Name, Reason: "input " + field + " is derived"}
			}
		}
		for _, field := range f.RowWatch() {
			if e.derived[f.Collection][field] {
				return &FormulaError{DocType: dt, Formula: f.Name, Reason: "row input " + field + " is derived"}
			}
		}
	}
	return nil
}

// Bindings returns the frozen subscription table.
func (c *Catalog) Bindings() *Bindings { return c.bindings }

// Types lists the doctypes in definition order.
func (c *Catalog) Types() []DocType {
	return append([]DocType(nil), c.order...)
}

// Definitions lists every definition in definition order.
func (c *Catalog) Definitions() []Definition {
	defs := make([]Definition, len(c.order))
	for i, dt := range c.order {
		defs[i] = c.entries[dt].def
	}
	return defs
}

func (c *Catalog) Definition(dt DocType) (Definition, bool) {
	e, ok := c.entries[dt]
	if !ok {
		return Definition{}, false
	}
	return e.def, true
}

// Recalculate runs every formula of doc's type in declaration order.
// Unknown doctypes have nothing to recalculate.
func (c *Catalog) Recalculate(doc Document) []Result {
	e, ok := c.entries[doc.Type()]
	if !ok {
		return nil
	}
	results := make([]Result, len(e.recalcs))
	for i, r := range e.recalcs {
		results[i] = r.Recalculate(doc)
	}
	return results
}

// IsDerived reports whether field is written by a formula. An empty
// collection means a parent field.
func (c *Catalog) IsDerived(dt DocType, collection, field string) bool {
	e, ok := c.entries[dt]
	if !ok {
		return false
	}
	return e.derived[collection][field]
}

// CheckEditable returns an error when a user may not write field.
func (c *Catalog) CheckEditable(dt DocType, collection, field string) error {
	if _, ok := c.entries[dt]; !ok {
		return fmt.Errorf("%s: %w", dt, ErrUnknownDocType)
	}
	if c.IsDerived(dt, collection, field) {
		return &DerivedFieldError{DocType: dt, Collection: collection, Field: field}
	}
	return nil
}
