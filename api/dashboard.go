package api

import (
	"net/http"
	"strings"

	"github.com/hexplastics/form-engine/generic"
	"github.com/hexplastics/form-engine/manufacturing"
	"github.com/hexplastics/form-engine/rejection"
)

// =============================================================================
// DAILY REJECTION DASHBOARD
// =============================================================================
//
// Query parameters shared by all three endpoints:
//   period  Weekly (default), Monthly, Yearly, Custom
//   shift   All (default), Day, Night
//   from,to YYYY-MM-DD, Custom only

// RejectionOverview returns headline figures.
func (h *Handler) RejectionOverview(w http.ResponseWriter, r *http.Request) {
	q, ok := h.rejectionQuery(w, r)
	if !ok {
		return
	}
	docs, err := rejection.Sheets(r.Context(), h.Store, q)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load rejection sheets", err)
		return
	}
	writeJSON(w, http.StatusOK, rejection.Overview(docs, q.Shift))
}

// RejectionTable returns one line per finalized sheet.
func (h *Handler) RejectionTable(w http.ResponseWriter, r *http.Request) {
	q, ok := h.rejectionQuery(w, r)
	if !ok {
		return
	}
	docs, err := rejection.Sheets(r.Context(), h.Store, q)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load rejection sheets", err)
		return
	}
	writeJSON(w, http.StatusOK, rejection.Table(docs, q.Shift))
}

// RejectionTrend returns the rejection percentage per day or month.
func (h *Handler) RejectionTrend(w http.ResponseWriter, r *http.Request) {
	q, ok := h.rejectionQuery(w, r)
	if !ok {
		return
	}
	docs, err := rejection.Sheets(r.Context(), h.Store, q)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load rejection sheets", err)
		return
	}
	writeJSON(w, http.StatusOK, rejection.Trend(docs, q))
}

func (h *Handler) rejectionQuery(w http.ResponseWriter, r *http.Request) (rejection.Query, bool) {
	params := r.URL.Query()

	period, err := rejection.ParsePeriod(params.Get("period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period", err)
		return rejection.Query{}, false
	}
	shift, err := rejection.ParseShift(params.Get("shift"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid shift", err)
		return rejection.Query{}, false
	}
	from, to, err := parseDateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return rejection.Query{}, false
	}

	return rejection.Query{
		Period: period,
		Shift:  shift,
		Today:  h.now(),
		From:   from,
		To:     to,
	}, true
}

// =============================================================================
// PRODUCTION LOG BOOK DASHBOARD
// =============================================================================
//
// Query parameters:
//   from,to YYYY-MM-DD, either optional
//   shift   matched against the entry's shift_type, optional

// LogBookOverview returns consumption, output and process loss totals.
func (h *Handler) LogBookOverview(w http.ResponseWriter, r *http.Request) {
	docs, ok := h.logBookEntries(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, manufacturing.LogBookOverview(docs))
}

// LogBookEntries returns one line per finalized log book entry.
func (h *Handler) LogBookEntries(w http.ResponseWriter, r *http.Request) {
	docs, ok := h.logBookEntries(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, manufacturing.LogBookEntries(docs))
}

func (h *Handler) logBookEntries(w http.ResponseWriter, r *http.Request) ([]*generic.Doc, bool) {
	from, to, err := parseDateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return nil, false
	}
	q := manufacturing.LogBookQuery{
		From:  from,
		To:    to,
		Shift: strings.TrimSpace(r.URL.Query().Get("shift")),
	}
	docs, err := manufacturing.LogBookEntriesFor(r.Context(), h.Store, q)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load log book entries", err)
		return nil, false
	}
	return docs, true
}
