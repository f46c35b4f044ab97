// Package rejection implements the Daily Rejection Data sheet.
// It declares the sheet's formula for the generic engine and aggregates
// finalized sheets into dashboard figures.
package rejection

import (
	"fmt"

	"github.com/hexplastics/form-engine/generic"
)

// =============================================================================
// DOCTYPE AND FIELDS
// =============================================================================

const DocType generic.DocType = "Daily Rejection Data"

// Parent fields.
const (
	FieldDate       = "rejection_date"
	FieldShift      = "shift"
	FieldBoxChecked = "total_box_checked"

	FieldDiePunching = "box_rejected_by_die_punching"
	FieldPrinting    = "box_rejected_by_printing"
	FieldBending     = "box_rejected_by_bending"
	FieldStepling    = "box_rejected_by_stepling"
	FieldDryProblem  = "box_rejected_by_dry_problem"

	FieldTotal        = "total_rejection"
	FieldDayTotal     = "total_rejected_in_day_shift"
	FieldNightTotal   = "total_rejected_in_night_shift"
	FieldRejectionPct = "rejection_in_"
)

// Child table and its fields.
const (
	CollectionDetails = "rejection_details"

	RowDiePunch = "die_punch"
	RowPrinting = "printing"
	RowBending  = "bending"
	RowStepling = "stepling"
	RowDry      = "dry"
	RowShift    = "shift"
	RowTotal    = "total_rejection"
)

// =============================================================================
// SHIFT
// =============================================================================

type Shift string

const (
	ShiftAll   Shift = "All"
	ShiftDay   Shift = "Day"
	ShiftNight Shift = "Night"
)

// ParseShift accepts Day, Night and All. The empty string means All.
func ParseShift(s string) (Shift, error) {
	switch Shift(s) {
	case "", ShiftAll:
		return ShiftAll, nil
	case ShiftDay, ShiftNight:
		return Shift(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownShift, s)
}

// TotalField is the stored total a dashboard reads for the shift.
func (s Shift) TotalField() string {
	switch s {
	case ShiftDay:
		return FieldDayTotal
	case ShiftNight:
		return FieldNightTotal
	}
	return FieldTotal
}

// =============================================================================
// DEFINITION
// =============================================================================

// Formula totals the five rejection causes per row, per shift and overall,
// and the share of checked boxes that were rejected. Without detail rows
// the parent cause fields are summed and credited to the parent's shift.
func Formula() generic.Formula {
	return generic.Formula{
		Name:                 "rejection_totals",
		Collection:           CollectionDetails,
		RowInputs:            []string{RowDiePunch, RowPrinting, RowBending, RowStepling, RowDry},
		RowOutput:            RowTotal,
		PartitionField:       RowShift,
		ParentInputs:         []string{FieldDiePunching, FieldPrinting, FieldBending, FieldStepling, FieldDryProblem},
		ParentPartitionField: FieldShift,
		Partitions: []generic.Partition{
			{Key: string(ShiftDay), Output: FieldDayTotal},
			{Key: string(ShiftNight), Output: FieldNightTotal},
		},
		TotalOutput: FieldTotal,
		Ratio: &generic.Ratio{
			Denominator: FieldBoxChecked,
			Output:      FieldRejectionPct,
			Percent:     true,
		},
	}
}

func Definition() generic.Definition {
	return generic.Definition{
		Type:      DocType,
		DateField: FieldDate,
		Formulas:  []generic.Formula{Formula()},
	}
}
