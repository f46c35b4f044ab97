/*
handlers.go - HTTP API handlers for the form engine

PURPOSE:
  Exposes host documents via REST API. This is the host side of the
  engine: it owns each document, applies the user's edit, dispatches the
  matching event through the catalog's bindings and saves the result. The
  recalculators never see HTTP.

ENDPOINTS:
  Doctypes:
    GET    /api/doctypes                                  Known doctypes and formulas

  Documents:
    GET    /api/documents/{doctype}                       List (status, from, to)
    POST   /api/documents/{doctype}                       Create draft
    GET    /api/documents/{doctype}/{name}                Get document
    DELETE /api/documents/{doctype}/{name}                Delete draft
    PUT    /api/documents/{doctype}/{name}/fields/{field} Set parent field
    POST   /api/documents/{doctype}/{name}/submit         Finalize
    POST   /api/documents/{doctype}/{name}/cancel         Cancel finalized

  Rows:
    POST   .../{name}/rows/{collection}                       Append row
    PUT    .../{name}/rows/{collection}/{row}/fields/{field}  Set row field
    DELETE .../{name}/rows/{collection}/{row}                 Remove row

REQUEST FLOW (edits):
  1. Refuse derived fields (400) before touching the document
  2. Load under the edit lock; refuse locked documents (409)
  3. Apply the edit and dispatch its event (recalculation runs here)
  4. Save and return the document

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid input, derived-field edits, invalid formulas
  - 404: Unknown doctype, document or row
  - 409: Locked document, invalid lifecycle transition, duplicate name
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - dashboard.go: Rejection dashboard endpoints
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hexplastics/form-engine/factory"
	"github.com/hexplastics/form-engine/generic"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Store is the persistence the API needs: documents plus a demo reset.
type Store interface {
	generic.Store
	Reset(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   Store
	Catalog *generic.Catalog
	Factory *factory.DefinitionFactory
	Logger  *slog.Logger

	// edits serializes load-modify-save so two requests never recalculate
	// the same document concurrently.
	edits sync.Mutex
	now   func() time.Time

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler with the given store and catalog.
func NewHandler(store Store, catalog *generic.Catalog) *Handler {
	return &Handler{
		Store:   store,
		Catalog: catalog,
		Factory: factory.NewDefinitionFactory(),
		Logger:  slog.Default(),
		now:     time.Now,
	}
}

// =============================================================================
// DOCTYPE HANDLERS
// =============================================================================

// ListDocTypes returns every doctype in the catalog.
func (h *Handler) ListDocTypes(w http.ResponseWriter, r *http.Request) {
	defs := h.Catalog.Definitions()
	dtos := make([]DocTypeDTO, len(defs))
	for i, def := range defs {
		dtos[i] = DocTypeDTO{
			Type:       string(def.Type),
			Definition: h.Factory.ToJSON(def),
			Derived:    derivedFields(def),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

func derivedFields(def generic.Definition) []string {
	var out []string
	for _, f := range def.Formulas {
		out = append(out, f.ParentOutputs()...)
		for _, field := range f.RowOutputs() {
			out = append(out, f.Collection+"."+field)
		}
	}
	return out
}

// =============================================================================
// DOCUMENT HANDLERS
// =============================================================================

// ListDocuments returns documents of a doctype.
// Query: status (draft|finalized|cancelled), from, to (YYYY-MM-DD).
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	def, ok := h.definition(w, r)
	if !ok {
		return
	}

	filter := generic.ListFilter{Type: def.Type}
	if s := r.URL.Query().Get("status"); s != "" {
		state, err := generic.ParseLifecycle(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid status", err)
			return
		}
		filter.States = []generic.Lifecycle{state}
	}

	from, to, err := parseDateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return
	}
	if !from.IsZero() || !to.IsZero() {
		if def.DateField == "" {
			writeError(w, http.StatusBadRequest, "Doctype has no date field", nil)
			return
		}
		filter.DateField, filter.DateFrom, filter.DateTo = def.DateField, from, to
	}

	docs, err := h.Store.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list documents", err)
		return
	}
	writeJSON(w, http.StatusOK, toDocumentDTOs(docs))
}

// GetDocument returns a single document.
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	def, ok := h.definition(w, r)
	if !ok {
		return
	}

	doc, err := h.Store.Load(r.Context(), def.Type, chi.URLParam(r, "name"))
	if err != nil {
		writeDomainError(w, "Failed to get document", err)
		return
	}
	writeJSON(w, http.StatusOK, toDocumentDTO(doc))
}

// CreateDocument creates a draft and runs every formula once.
func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	def, ok := h.definition(w, r)
	if !ok {
		return
	}

	var req CreateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	for field := range req.Fields {
		if err := h.Catalog.CheckEditable(def.Type, "", field); err != nil {
			writeDomainError(w, "Invalid document", err)
			return
		}
	}
	for collection, rows := range req.Rows {
		for _, row := range rows {
			for field := range row {
				if err := h.Catalog.CheckEditable(def.Type, collection, field); err != nil {
					writeDomainError(w, "Invalid document", err)
					return
				}
			}
		}
	}

	doc := generic.NewDoc(def.Type, req.Name)
	for field, v := range req.Fields {
		doc.Set(field, v)
	}
	for _, collection := range sortedKeys(req.Rows) {
		for _, row := range req.Rows[collection] {
			doc.AddRow(collection, row)
		}
	}

	ctx := r.Context()
	h.edits.Lock()
	defer h.edits.Unlock()

	if _, err := h.Store.Load(ctx, def.Type, doc.Name); err == nil {
		writeError(w, http.StatusConflict, "Document already exists", nil)
		return
	} else if !errors.Is(err, generic.ErrDocumentNotFound) {
		writeError(w, http.StatusInternalServerError, "Failed to create document", err)
		return
	}

	h.dispatch(ctx, doc, generic.Event{Kind: generic.EventValidate})
	if err := h.Store.Save(ctx, doc, generic.SaveOptions{}); err != nil {
		writeDomainError(w, "Failed to create document", err)
		return
	}
	writeJSON(w, http.StatusCreated, toDocumentDTO(doc))
}

// DeleteDocument deletes a draft.
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	def, ok := h.definition(w, r)
	if !ok {
		return
	}

	h.edits.Lock()
	defer h.edits.Unlock()

	if err := h.Store.Delete(r.Context(), def.Type, chi.URLParam(r, "name")); err != nil {
		writeDomainError(w, "Failed to delete document", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// SetField sets a parent field and dispatches its change event.
func (h *Handler) SetField(w http.ResponseWriter, r *http.Request) {
	field := chi.URLParam(r, "field")
	var req SetFieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	h.edit(w, r, "", field, func(doc *generic.Doc) (generic.Event, error) {
		doc.Set(field, req.Value)
		return generic.Event{Kind: generic.EventFieldChange, Field: field}, nil
	})
}

// =============================================================================
// ROW HANDLERS
// =============================================================================

// AddRow appends a row and dispatches the row-added event.
func (h *Handler) AddRow(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	var req AddRowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	for field := range req.Fields {
		if err := h.Catalog.CheckEditable(generic.DocType(chi.URLParam(r, "doctype")), collection, field); err != nil {
			writeDomainError(w, "Invalid row", err)
			return
		}
	}

	h.edit(w, r, collection, "", func(doc *generic.Doc) (generic.Event, error) {
		line := doc.AddRow(collection, req.Fields)
		return generic.Event{Kind: generic.EventRowAdded, Collection: collection, Row: line}, nil
	})
}

// SetRowField sets one field of a row.
func (h *Handler) SetRowField(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	field := chi.URLParam(r, "field")
	id := generic.RowID(chi.URLParam(r, "row"))

	var req SetFieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	h.edit(w, r, collection, field, func(doc *generic.Doc) (generic.Event, error) {
		line, err := doc.Row(collection, id)
		if err != nil {
			return generic.Event{}, err
		}
		line.Set(field, req.Value)
		return generic.Event{Kind: generic.EventRowFieldChange, Collection: collection, Field: field, Row: line}, nil
	})
}

// DeleteRow removes a row and dispatches the row-removed event.
func (h *Handler) DeleteRow(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	id := generic.RowID(chi.URLParam(r, "row"))

	h.edit(w, r, collection, "", func(doc *generic.Doc) (generic.Event, error) {
		if err := doc.RemoveRow(collection, id); err != nil {
			return generic.Event{}, err
		}
		return generic.Event{Kind: generic.EventRowRemoved, Collection: collection}, nil
	})
}

// =============================================================================
// LIFECYCLE HANDLERS
// =============================================================================

// SubmitDocument recalculates a draft one last time and finalizes it.
func (h *Handler) SubmitDocument(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(ctx context.Context, doc *generic.Doc) error {
		h.dispatch(ctx, doc, generic.Event{Kind: generic.EventValidate})
		return doc.Submit()
	})
}

// CancelDocument cancels a finalized document. Its totals stay as they are.
func (h *Handler) CancelDocument(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(_ context.Context, doc *generic.Doc) error {
		return doc.Cancel()
	})
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, apply func(context.Context, *generic.Doc) error) {
	def, ok := h.definition(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	h.edits.Lock()
	defer h.edits.Unlock()

	doc, err := h.Store.Load(ctx, def.Type, chi.URLParam(r, "name"))
	if err != nil {
		writeDomainError(w, "Failed to load document", err)
		return
	}
	if err := apply(ctx, doc); err != nil {
		writeDomainError(w, "Transition refused", err)
		return
	}
	if err := h.Store.Save(ctx, doc, generic.SaveOptions{Transition: true}); err != nil {
		writeDomainError(w, "Failed to save document", err)
		return
	}
	writeJSON(w, http.StatusOK, toDocumentDTO(doc))
}

// =============================================================================
// EDIT FLOW
// =============================================================================

// edit runs one user edit: derived-field check, locked check, mutation,
// event dispatch and save. An empty field skips the derived-field check.
func (h *Handler) edit(w http.ResponseWriter, r *http.Request, collection, field string, mutate func(*generic.Doc) (generic.Event, error)) {
	def, ok := h.definition(w, r)
	if !ok {
		return
	}
	if field != "" {
		if err := h.Catalog.CheckEditable(def.Type, collection, field); err != nil {
			writeDomainError(w, "Field cannot be edited", err)
			return
		}
	}

	ctx := r.Context()
	h.edits.Lock()
	defer h.edits.Unlock()

	doc, err := h.Store.Load(ctx, def.Type, chi.URLParam(r, "name"))
	if err != nil {
		writeDomainError(w, "Failed to load document", err)
		return
	}
	if doc.State().Locked() {
		writeDomainError(w, "Document is locked", &generic.LockedError{Name: doc.Name, State: doc.State()})
		return
	}

	ev, err := mutate(doc)
	if err != nil {
		writeDomainError(w, "Edit refused", err)
		return
	}
	h.dispatch(ctx, doc, ev)

	if err := h.Store.Save(ctx, doc, generic.SaveOptions{}); err != nil {
		writeDomainError(w, "Failed to save document", err)
		return
	}
	writeJSON(w, http.StatusOK, toDocumentDTO(doc))
}

func (h *Handler) dispatch(ctx context.Context, doc *generic.Doc, ev generic.Event) {
	n := h.Catalog.Bindings().Dispatch(doc, ev)
	h.logger().DebugContext(ctx, "event dispatched",
		"request_id", middleware.GetReqID(ctx),
		"doctype", string(doc.DocType),
		"name", doc.Name,
		"event", ev.Kind.String(),
		"collection", ev.Collection,
		"field", ev.Field,
		"handlers", n,
	)
}

// definition resolves the {doctype} URL parameter, writing 404 if unknown.
func (h *Handler) definition(w http.ResponseWriter, r *http.Request) (generic.Definition, bool) {
	dt := generic.DocType(chi.URLParam(r, "doctype"))
	def, ok := h.Catalog.Definition(dt)
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown doctype", fmt.Errorf("%s: %w", dt, generic.ErrUnknownDocType))
		return generic.Definition{}, false
	}
	return def, true
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps engine errors to HTTP statuses.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	status := http.StatusInternalServerError
	code := ""
	switch {
	case generic.IsNotFound(err):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, generic.ErrDocumentLocked):
		status, code = http.StatusConflict, "locked"
	case generic.IsConflict(err):
		status, code = http.StatusConflict, "invalid_transition"
	case errors.Is(err, generic.ErrDerivedField):
		status, code = http.StatusBadRequest, "derived_field"
	case generic.IsClientError(err):
		status, code = http.StatusBadRequest, "invalid"
	}

	resp := ErrorResponse{Error: message, Code: code}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func parseDateRange(r *http.Request) (time.Time, time.Time, error) {
	var from, to time.Time
	q := r.URL.Query()
	if s := q.Get("from"); s != "" {
		d, ok := generic.DateOf(s)
		if !ok {
			return from, to, fmt.Errorf("invalid from date %q (want YYYY-MM-DD)", s)
		}
		from = d
	}
	if s := q.Get("to"); s != "" {
		d, ok := generic.DateOf(s)
		if !ok {
			return from, to, fmt.Errorf("invalid to date %q (want YYYY-MM-DD)", s)
		}
		to = d
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return from, to, fmt.Errorf("to %s is before from %s", generic.FormatDate(to), generic.FormatDate(from))
	}
	return from, to, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
