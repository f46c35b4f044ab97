/*
Package factory provides JSON and YAML to Go doctype conversion.

PURPOSE:
  Converts declarative doctype definitions into generic.Definition values.
  New sheets that only total a few columns can be added by dropping a YAML
  file next to the server instead of writing a Go package.

JSON SCHEMA:
  {
    "type": "Daily Gate Entry",
    "date_field": "entry_date",
    "formulas": [
      {
        "name": "gate_weight",
        "collection": "vehicles",
        "row_inputs": ["net_weight"],
        "total_output": "total_net_weight",
        "total_round": 3,
        "ratio": {"denominator": "vehicle_count", "output": "avg_weight", "round": 2}
      }
    ]
  }

YAML FILES:
  A YAML file holds a list under "doctypes" using the same keys:

  doctypes:
    - type: Daily Gate Entry
      date_field: entry_date
      formulas:
        - name: gate_weight
          ...

KEY FEATURES:
  - Unknown keys are rejected, so typos do not silently drop a formula
  - Every formula is validated before a Definition is returned
  - ToJSON renders a Definition back, for GET /api/doctypes

USAGE:
  f := factory.NewDefinitionFactory()
  def, err := f.ParseDefinition(jsonString)
  defs, err := f.LoadFile("doctypes.yaml")

SEE ALSO:
  - generic/formula.go: Formula type definition
  - rejection/types.go, manufacturing/types.go: Go-declared doctypes
*/
package factory

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hexplastics/form-engine/generic"
)

// =============================================================================
// SCHEMA TYPES
// =============================================================================

// DefinitionJSON is the declarative form of a doctype.
type DefinitionJSON struct {
	Type      string        `json:"type" yaml:"type"`
	DateField string        `json:"date_field,omitempty" yaml:"date_field,omitempty"`
	Formulas  []FormulaJSON `json:"formulas" yaml:"formulas"`
}

// FormulaJSON mirrors generic.Formula. Round values are decimal places.
type FormulaJSON struct {
	Name                 string          `json:"name" yaml:"name"`
	Collection           string          `json:"collection,omitempty" yaml:"collection,omitempty"`
	RowInputs            []string        `json:"row_inputs,omitempty" yaml:"row_inputs,omitempty"`
	RowOutput            string          `json:"row_output,omitempty" yaml:"row_output,omitempty"`
	PartitionField       string          `json:"partition_field,omitempty" yaml:"partition_field,omitempty"`
	ParentInputs         []string        `json:"parent_inputs,omitempty" yaml:"parent_inputs,omitempty"`
	ParentPartitionField string          `json:"parent_partition_field,omitempty" yaml:"parent_partition_field,omitempty"`
	Partitions           []PartitionJSON `json:"partitions,omitempty" yaml:"partitions,omitempty"`
	TotalOutput          string          `json:"total_output" yaml:"total_output"`
	TotalRound           *int32          `json:"total_round,omitempty" yaml:"total_round,omitempty"`
	Ratio                *RatioJSON      `json:"ratio,omitempty" yaml:"ratio,omitempty"`
}

type PartitionJSON struct {
	Key    string `json:"key" yaml:"key"`
	Output string `json:"output" yaml:"output"`
}

type RatioJSON struct {
	Denominator string `json:"denominator" yaml:"denominator"`
	Output      string `json:"output" yaml:"output"`
	Percent     bool   `json:"percent,omitempty" yaml:"percent,omitempty"`
	Round       *int32 `json:"round,omitempty" yaml:"round,omitempty"`
}

// fileYAML is the top level of a definitions file.
type fileYAML struct {
	DocTypes []DefinitionJSON `yaml:"doctypes"`
}

// =============================================================================
// DEFINITION FACTORY
// =============================================================================

// DefinitionFactory converts declarative doctypes to generic definitions.
type DefinitionFactory struct{}

func NewDefinitionFactory() *DefinitionFactory {
	return &DefinitionFactory{}
}

// ParseDefinition parses one JSON doctype.
func (f *DefinitionFactory) ParseDefinition(jsonStr string) (generic.Definition, error) {
	dec := json.NewDecoder(strings.NewReader(jsonStr))
	dec.DisallowUnknownFields()

	var dj DefinitionJSON
	if err := dec.Decode(&dj); err != nil {
		return generic.Definition{}, fmt.Errorf("failed to parse doctype JSON: %w", err)
	}
	return f.FromJSON(dj)
}

// ParseDefinitionsYAML parses a YAML file body holding a doctypes list.
func (f *DefinitionFactory) ParseDefinitionsYAML(data []byte) ([]generic.Definition, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var file fileYAML
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse doctype YAML: %w", err)
	}

	defs := make([]generic.Definition, 0, len(file.DocTypes))
	for _, dj := range file.DocTypes {
		def, err := f.FromJSON(dj)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// LoadFile reads definitions from a .yaml, .yml or .json file. A JSON file
// holds a single doctype.
func (f *DefinitionFactory) LoadFile(path string) ([]generic.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read doctypes: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		def, err := f.ParseDefinition(string(data))
		if err != nil {
			return nil, err
		}
		return []generic.Definition{def}, nil
	case ".yaml", ".yml":
		return f.ParseDefinitionsYAML(data)
	}
	return nil, fmt.Errorf("unsupported doctype file %q (want .yaml, .yml or .json)", path)
}

// FromJSON converts DefinitionJSON to generic.Definition and validates
// every formula.
func (f *DefinitionFactory) FromJSON(dj DefinitionJSON) (generic.Definition, error) {
	def := generic.Definition{
		Type:      generic.DocType(strings.TrimSpace(dj.Type)),
		DateField: dj.DateField,
	}
	if def.Type == "" {
		return generic.Definition{}, fmt.Errorf("doctype without a type: %w", generic.ErrInvalidFormula)
	}

	for _, fj := range dj.Formulas {
		formula := generic.Formula{
			Name:                 fj.Name,
			Collection:           fj.Collection,
			RowInputs:            fj.RowInputs,
			RowOutput:            fj.RowOutput,
			PartitionField:       fj.PartitionField,
			ParentInputs:         fj.ParentInputs,
			ParentPartitionField: fj.ParentPartitionField,
			TotalOutput:          fj.TotalOutput,
			TotalRound:           parseRound(fj.TotalRound),
		}
		for _, pj := range fj.Partitions {
			formula.Partitions = append(formula.Partitions, generic.Partition{Key: pj.Key, Output: pj.Output})
		}
		if fj.Ratio != nil {
			formula.Ratio = &generic.Ratio{
				Denominator: fj.Ratio.Denominator,
				Output:      fj.Ratio.Output,
				Percent:     fj.Ratio.Percent,
				Round:       parseRound(fj.Ratio.Round),
			}
		}
		if err := formula.Validate(def.Type); err != nil {
			return generic.Definition{}, err
		}
		def.Formulas = append(def.Formulas, formula)
	}
	return def, nil
}

// ToJSON converts a Definition to DefinitionJSON.
func (f *DefinitionFactory) ToJSON(def generic.Definition) DefinitionJSON {
	dj := DefinitionJSON{
		Type:      string(def.Type),
		DateField: def.DateField,
		Formulas:  make([]FormulaJSON, 0, len(def.Formulas)),
	}
	for _, formula := range def.Formulas {
		fj := FormulaJSON{
			Name:                 formula.Name,
			Collection:           formula.Collection,
			RowInputs:            formula.RowInputs,
			RowOutput:            formula.RowOutput,
			PartitionField:       formula.PartitionField,
			ParentInputs:         formula.ParentInputs,
			ParentPartitionField: formula.ParentPartitionField,
			TotalOutput:          formula.TotalOutput,
			TotalRound:           roundJSON(formula.TotalRound),
		}
		for _, p := range formula.Partitions {
			fj.Partitions = append(fj.Partitions, PartitionJSON{Key: p.Key, Output: p.Output})
		}
		if r := formula.Ratio; r != nil {
			fj.Ratio = &RatioJSON{
				Denominator: r.Denominator,
				Output:      r.Output,
				Percent:     r.Percent,
				Round:       roundJSON(r.Round),
			}
		}
		dj.Formulas = append(dj.Formulas, fj)
	}
	return dj
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseRound(places *int32) *generic.Rounding {
	if places == nil {
		return nil
	}
	return generic.Places(*places)
}

func roundJSON(r *generic.Rounding) *int32 {
	if r == nil {
		return nil
	}
	places := r.Places
	return &places
}
