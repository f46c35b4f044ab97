/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with realistic
	sheets for demos. Every document is built the way a user would build
	it: inputs set, rows added, recalculated through the catalog, then
	finalized where the scenario calls for it.

AVAILABLE SCENARIOS:

	rejection-week:   Seven days of rejection sheets, Day and Night shifts
	bom-costing:      Two bills of materials with unit costs
	production-day:   A production log book and a recycle machine sheet

HOW SCENARIOS WORK:
 1. Reset store (clear all documents)
 2. Build documents relative to today
 3. Recalculate through the catalog
 4. Finalize the ones a dashboard should count

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "rejection-week"}

NOTE:

	Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Edit flow the scenarios mimic
  - rejection/types.go, manufacturing/types.go: Field names
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hexplastics/form-engine/generic"
	"github.com/hexplastics/form-engine/manufacturing"
	"github.com/hexplastics/form-engine/rejection"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "rejection-week",
		Name:        "Rejection Week",
		Description: "Six finalized rejection sheets and one draft over the last seven days",
		Category:    "rejection",
	},
	{
		ID:          "bom-costing",
		Name:        "BOM Costing",
		Description: "Bills of materials with item costs and cost per quantity",
		Category:    "manufacturing",
	},
	{
		ID:          "production-day",
		Name:        "Production Day",
		Description: "Production log book and recycle machine sheet for today",
		Category:    "manufacturing",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.edits.Lock()
	current := h.currentScenario
	h.edits.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var load func(context.Context) error
	switch req.ScenarioID {
	case "rejection-week":
		load = h.loadRejectionWeekScenario
	case "bom-costing":
		load = h.loadBOMCostingScenario
	case "production-day":
		load = h.loadProductionDayScenario
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	ctx := r.Context()
	h.edits.Lock()
	defer h.edits.Unlock()

	// Reset first
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset store", err)
		return
	}
	h.currentScenario = ""

	if err := load(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	h.currentScenario = req.ScenarioID
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears all documents.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	h.edits.Lock()
	defer h.edits.Unlock()

	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset store", err)
		return
	}
	h.currentScenario = ""

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

type rejectionDay struct {
	daysAgo int
	checked float64
	day     [5]float64 // die punch, printing, bending, stepling, dry
	night   [5]float64
	draft   bool
}

func (h *Handler) loadRejectionWeekScenario(ctx context.Context) error {
	days := []rejectionDay{
		{daysAgo: 6, checked: 1200, day: [5]float64{4, 2, 1, 0, 3}, night: [5]float64{6, 1, 2, 1, 2}},
		{daysAgo: 5, checked: 1150, day: [5]float64{3, 3, 0, 1, 1}, night: [5]float64{5, 2, 1, 0, 4}},
		{daysAgo: 4, checked: 1300, day: [5]float64{2, 1, 1, 1, 0}, night: [5]float64{7, 3, 2, 2, 1}},
		{daysAgo: 3, checked: 980, day: [5]float64{5, 0, 2, 0, 2}, night: [5]float64{4, 1, 0, 1, 3}},
		{daysAgo: 2, checked: 1250, day: [5]float64{1, 2, 0, 0, 1}, night: [5]float64{3, 2, 1, 0, 2}},
		{daysAgo: 1, checked: 1100, day: [5]float64{2, 1, 3, 1, 0}, night: [5]float64{6, 0, 1, 1, 1}},
		{daysAgo: 0, checked: 600, day: [5]float64{1, 1, 0, 0, 0}, draft: true},
	}

	today := h.now()
	for i, d := range days {
		doc := generic.NewDoc(rejection.DocType, fmt.Sprintf("DRD-%04d", i+1))
		doc.Set(rejection.FieldDate, generic.FormatDate(today.AddDate(0, 0, -d.daysAgo)))
		doc.Set(rejection.FieldBoxChecked, d.checked)

		addShiftRow(doc, rejection.ShiftDay, d.day)
		if d.night != [5]float64{} {
			addShiftRow(doc, rejection.ShiftNight, d.night)
		}
		if err := h.saveScenarioDoc(ctx, doc, !d.draft); err != nil {
			return err
		}
	}
	return nil
}

func addShiftRow(doc *generic.Doc, shift rejection.Shift, counts [5]float64) {
	doc.AddRow(rejection.CollectionDetails, map[string]generic.Value{
		rejection.RowShift:    string(shift),
		rejection.RowDiePunch: counts[0],
		rejection.RowPrinting: counts[1],
		rejection.RowBending:  counts[2],
		rejection.RowStepling: counts[3],
		rejection.RowDry:      counts[4],
	})
}

func (h *Handler) loadBOMCostingScenario(ctx context.Context) error {
	boms := []struct {
		name     string
		quantity float64
		amounts  []float64
	}{
		{"BOM-PP-BOX-A4", 500, []float64{1250, 310.5, 89.25}},
		{"BOM-PP-TRAY-L", 120, []float64{640, 75, 12.4}},
	}

	for _, b := range boms {
		doc := generic.NewDoc(manufacturing.BOM, b.name)
		doc.Set(manufacturing.BOMQuantity, b.quantity)
		for _, amount := range b.amounts {
			doc.AddRow(manufacturing.BOMItems, map[string]generic.Value{manufacturing.BOMItemAmount: amount})
		}
		if err := h.saveScenarioDoc(ctx, doc, true); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadProductionDayScenario(ctx context.Context) error {
	today := generic.FormatDate(h.now())

	logBook := generic.NewDoc(manufacturing.ProductionLogBook, "PLB-0001")
	logBook.Set(manufacturing.LogBookDate, today)
	logBook.Set(manufacturing.LogBookShift, "Day")
	for _, row := range [][2]float64{{152.375, 0}, {48.2, 0}, {0, 187.125}, {0, 9.8}} {
		logBook.AddRow(manufacturing.LogBookConsumption, map[string]generic.Value{
			manufacturing.LogBookConsumed: row[0],
			manufacturing.LogBookInQty:    row[1],
		})
	}
	if err := h.saveScenarioDoc(ctx, logBook, false); err != nil {
		return err
	}

	recycle := generic.NewDoc(manufacturing.RecycleProduction, "RMP-0001")
	recycle.Set(manufacturing.RecycleDate, today)
	for _, row := range [][2]float64{{220.5, 198.25}, {180, 171.6}} {
		recycle.AddRow(manufacturing.RecycleDetails, map[string]generic.Value{
			manufacturing.RecycleMaterialConsumed: row[0],
			manufacturing.RecyclePPMIPProduction:  row[1],
		})
	}
	return h.saveScenarioDoc(ctx, recycle, false)
}

// saveScenarioDoc recalculates doc and saves it, finalized if asked.
func (h *Handler) saveScenarioDoc(ctx context.Context, doc *generic.Doc, finalize bool) error {
	if _, ok := h.Catalog.Definition(doc.DocType); !ok {
		return fmt.Errorf("%s: %w", doc.DocType, generic.ErrUnknownDocType)
	}
	h.dispatch(ctx, doc, generic.Event{Kind: generic.EventValidate})
	if finalize {
		if err := doc.Submit(); err != nil {
			return err
		}
	}
	return h.Store.Save(ctx, doc, generic.SaveOptions{Transition: finalize})
}
