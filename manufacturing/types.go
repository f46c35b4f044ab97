/*
Package manufacturing declares the cost and production sheets of the plant.

DOCTYPES:
  BOM                              item costs -> total cost, cost per unit
  Production Log Book              material consumption and output per shift
  Recycle Machine Daily Production material fed and PP/MIP produced per day

All three are plain row sums: each declared column of the child table is
totalled into a parent field. None of them partitions rows.

EXAMPLE:
  catalog, err := generic.NewCatalog(manufacturing.Definitions())

SEE ALSO:
  - rejection/types.go: The one sheet that splits totals by shift
  - generic/formula.go: Formula fields used below
*/
package manufacturing

import "github.com/hexplastics/form-engine/generic"

// =============================================================================
// BOM
// =============================================================================

const (
	BOM generic.DocType = "BOM"

	BOMItems           = "items"
	BOMItemAmount      = "amount"
	BOMQuantity        = "quantity"
	BOMTotalCost       = "total_cost"
	BOMCostPerQuantity = "cost_per_quantity"
)

// BOMDefinition totals item amounts into the BOM cost and divides it by the
// produced quantity. A zero or negative quantity yields a zero unit cost.
func BOMDefinition() generic.Definition {
	return generic.Definition{
		Type: BOM,
		Formulas: []generic.Formula{{
			Name:        "bom_cost",
			Collection:  BOMItems,
			RowInputs:   []string{BOMItemAmount},
			TotalOutput: BOMTotalCost,
			Ratio: &generic.Ratio{
				Denominator: BOMQuantity,
				Output:      BOMCostPerQuantity,
				Round:       generic.Places(2),
			},
		}},
	}
}

// =============================================================================
// PRODUCTION LOG BOOK
// =============================================================================

const (
	ProductionLogBook generic.DocType = "Production Log Book"

	LogBookDate         = "production_date"
	LogBookShift        = "shift_type"
	LogBookConsumption  = "material_consumption"
	LogBookConsumed     = "consumption"
	LogBookInQty        = "in_qty"
	LogBookTotalConsume = "total_consumption"
	LogBookTotalInQty   = "total_in_qty"
)

func ProductionLogBookDefinition() generic.Definition {
	return generic.Definition{
		Type:      ProductionLogBook,
		DateField: LogBookDate,
		Formulas: []generic.Formula{
			columnTotal("consumption_total", LogBookConsumption, LogBookConsumed, LogBookTotalConsume),
			columnTotal("in_qty_total", LogBookConsumption, LogBookInQty, LogBookTotalInQty),
		},
	}
}

// =============================================================================
// RECYCLE MACHINE DAILY PRODUCTION
// =============================================================================

const (
	RecycleProduction generic.DocType = "Recycle Machine Daily Production"

	RecycleDate                 = "production_date"
	RecycleDetails              = "production_details"
	RecycleMaterialConsumed     = "material_consumed"
	RecyclePPMIPProduction      = "pp_mip_production"
	RecycleTotalConsumed        = "total_material_consumed"
	RecycleTotalPPMIPProduction = "total_pp_mip_production"
)

func RecycleProductionDefinition() generic.Definition {
	return generic.Definition{
		Type:      RecycleProduction,
		DateField: RecycleDate,
		Formulas: []generic.Formula{
			columnTotal("material_consumed_total", RecycleDetails, RecycleMaterialConsumed, RecycleTotalConsumed),
			columnTotal("pp_mip_production_total", RecycleDetails, RecyclePPMIPProduction, RecycleTotalPPMIPProduction),
		},
	}
}

// Definitions returns every manufacturing doctype.
func Definitions() []generic.Definition {
	return []generic.Definition{
		BOMDefinition(),
		ProductionLogBookDefinition(),
		RecycleProductionDefinition(),
	}
}

// columnTotal sums one child column into a parent field rounded to three
// places.
func columnTotal(name, collection, column, output string) generic.Formula {
	return generic.Formula{
		Name:        name,
		Collection:  collection,
		RowInputs:   []string{column},
		TotalOutput: output,
		TotalRound:  generic.Places(3),
	}
}
