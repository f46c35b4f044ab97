/*
handlers_test.go - HTTP tests for document, row and lifecycle handlers

Tests for:
- Create recalculates every formula once
- Row and field edits dispatch through the catalog bindings
- Derived fields, locked documents, unknown doctypes and rows
- Listing and doctype discovery
*/
package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexplastics/form-engine/generic"
	"github.com/hexplastics/form-engine/generic/store"
	"github.com/hexplastics/form-engine/manufacturing"
	"github.com/hexplastics/form-engine/rejection"
)

var testToday = time.Date(2025, 3, 12, 9, 30, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*Handler, http.Handler) {
	t.Helper()
	defs := append([]generic.Definition{rejection.Definition()}, manufacturing.Definitions()...)
	catalog, err := generic.NewCatalog(defs)
	require.NoError(t, err)

	h := NewHandler(store.NewMemory(), catalog)
	h.now = func() time.Time { return testToday }
	return h, NewRouter(h, nil)
}

func do(t *testing.T, srv http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func docPath(dt generic.DocType, parts ...string) string {
	p := "/api/documents/" + url.PathEscape(string(dt))
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

// createSheet posts a rejection sheet with one Day and one Night row.
func createSheet(t *testing.T, srv http.Handler, name string) DocumentDTO {
	t.Helper()
	rec := do(t, srv, http.MethodPost, docPath(rejection.DocType), CreateDocumentRequest{
		Name: name,
		Fields: map[string]any{
			rejection.FieldDate:       "2025-03-12",
			rejection.FieldBoxChecked: 200,
		},
		Rows: map[string][]map[string]any{
			rejection.CollectionDetails: {
				{rejection.RowShift: "Day", rejection.RowDiePunch: 2, rejection.RowPrinting: 1},
				{rejection.RowShift: "Night", rejection.RowBending: 3},
			},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[DocumentDTO](t, rec)
}

// =============================================================================
// CREATE AND EDIT
// =============================================================================

func TestCreateDocument_RecalculatesTotals(t *testing.T) {
	// GIVEN: a server with the rejection doctype
	_, srv := newTestServer(t)

	// WHEN: creating a sheet with one row per shift
	doc := createSheet(t, srv, "DRD-0001")

	// THEN: row, shift and overall totals are written
	assert.Equal(t, "draft", doc.Status)
	assert.Equal(t, 3.0, doc.Fields[rejection.FieldDayTotal])
	assert.Equal(t, 3.0, doc.Fields[rejection.FieldNightTotal])
	assert.Equal(t, 6.0, doc.Fields[rejection.FieldTotal])
	assert.Equal(t, 3.0, doc.Fields[rejection.FieldRejectionPct])

	rows := doc.Rows[rejection.CollectionDetails]
	require.Len(t, rows, 2)
	assert.Equal(t, 3.0, rows[0].Fields[rejection.RowTotal])
	assert.Equal(t, 3.0, rows[1].Fields[rejection.RowTotal])
}

func TestCreateDocument_DuplicateNameConflicts(t *testing.T) {
	_, srv := newTestServer(t)
	createSheet(t, srv, "DRD-0001")

	rec := do(t, srv, http.MethodPost, docPath(rejection.DocType), CreateDocumentRequest{Name: "DRD-0001"})

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateDocument_DerivedFieldRejected(t *testing.T) {
	// GIVEN: a create request that sets the overall total
	_, srv := newTestServer(t)

	// WHEN: posting it
	rec := do(t, srv, http.MethodPost, docPath(rejection.DocType), CreateDocumentRequest{
		Name:   "DRD-0001",
		Fields: map[string]any{rejection.FieldTotal: 99},
	})

	// THEN: 400 and nothing is stored
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "derived_field", decode[ErrorResponse](t, rec).Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, docPath(rejection.DocType, "DRD-0001"), nil).Code)
}

func TestSetRowField_UpdatesTotals(t *testing.T) {
	// GIVEN: a sheet whose Day row totals 3
	_, srv := newTestServer(t)
	doc := createSheet(t, srv, "DRD-0001")
	dayRow := doc.Rows[rejection.CollectionDetails][0].ID

	// WHEN: raising the Day row's printing count to 5
	rec := do(t, srv, http.MethodPut,
		docPath(rejection.DocType, "DRD-0001", "rows", rejection.CollectionDetails, dayRow, "fields", rejection.RowPrinting),
		SetFieldRequest{Value: 5})

	// THEN: the row, the Day total, the overall total and the ratio follow
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[DocumentDTO](t, rec)
	assert.Equal(t, 7.0, got.Rows[rejection.CollectionDetails][0].Fields[rejection.RowTotal])
	assert.Equal(t, 7.0, got.Fields[rejection.FieldDayTotal])
	assert.Equal(t, 3.0, got.Fields[rejection.FieldNightTotal])
	assert.Equal(t, 10.0, got.Fields[rejection.FieldTotal])
	assert.Equal(t, 5.0, got.Fields[rejection.FieldRejectionPct])

	// AND: the stored copy matches
	stored := decode[DocumentDTO](t, do(t, srv, http.MethodGet, docPath(rejection.DocType, "DRD-0001"), nil))
	assert.Equal(t, 10.0, stored.Fields[rejection.FieldTotal])
}

func TestSetField_DenominatorChangeUpdatesRatio(t *testing.T) {
	_, srv := newTestServer(t)
	createSheet(t, srv, "DRD-0001")

	rec := do(t, srv, http.MethodPut,
		docPath(rejection.DocType, "DRD-0001", "fields", rejection.FieldBoxChecked),
		SetFieldRequest{Value: "400"})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[DocumentDTO](t, rec)
	assert.Equal(t, 1.5, got.Fields[rejection.FieldRejectionPct])
	assert.Equal(t, 6.0, got.Fields[rejection.FieldTotal])
}

func TestSetField_DerivedFieldRejected(t *testing.T) {
	_, srv := newTestServer(t)
	doc := createSheet(t, srv, "DRD-0001")
	row := doc.Rows[rejection.CollectionDetails][0].ID

	parent := do(t, srv, http.MethodPut,
		docPath(rejection.DocType, "DRD-0001", "fields", rejection.FieldDayTotal),
		SetFieldRequest{Value: 1})
	child := do(t, srv, http.MethodPut,
		docPath(rejection.DocType, "DRD-0001", "rows", rejection.CollectionDetails, row, "fields", rejection.RowTotal),
		SetFieldRequest{Value: 1})

	assert.Equal(t, http.StatusBadRequest, parent.Code)
	assert.Equal(t, http.StatusBadRequest, child.Code)
}

func TestAddAndDeleteRow_UpdateTotals(t *testing.T) {
	// GIVEN: a sheet with a Day and a Night row
	_, srv := newTestServer(t)
	doc := createSheet(t, srv, "DRD-0001")
	nightRow := doc.Rows[rejection.CollectionDetails][1].ID

	// WHEN: adding a Day row and removing the Night row
	added := do(t, srv, http.MethodPost,
		docPath(rejection.DocType, "DRD-0001", "rows", rejection.CollectionDetails),
		AddRowRequest{Fields: map[string]any{rejection.RowShift: "Day", rejection.RowDry: 4}})
	require.Equal(t, http.StatusOK, added.Code, added.Body.String())
	assert.Equal(t, 10.0, decode[DocumentDTO](t, added).Fields[rejection.FieldTotal])

	removed := do(t, srv, http.MethodDelete,
		docPath(rejection.DocType, "DRD-0001", "rows", rejection.CollectionDetails, nightRow), nil)

	// THEN: only the Day rows remain in the totals
	require.Equal(t, http.StatusOK, removed.Code, removed.Body.String())
	got := decode[DocumentDTO](t, removed)
	assert.Len(t, got.Rows[rejection.CollectionDetails], 2)
	assert.Equal(t, 7.0, got.Fields[rejection.FieldDayTotal])
	assert.Equal(t, 0.0, got.Fields[rejection.FieldNightTotal])
	assert.Equal(t, 7.0, got.Fields[rejection.FieldTotal])
}

func TestDeleteRow_UnknownRow(t *testing.T) {
	_, srv := newTestServer(t)
	createSheet(t, srv, "DRD-0001")

	rec := do(t, srv, http.MethodDelete,
		docPath(rejection.DocType, "DRD-0001", "rows", rejection.CollectionDetails, "no-such-row"), nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestManufacturing_BOMCostPerQuantity(t *testing.T) {
	// GIVEN: a BOM with quantity 3
	_, srv := newTestServer(t)
	rec := do(t, srv, http.MethodPost, docPath(manufacturing.BOM), CreateDocumentRequest{
		Name:   "BOM-0001",
		Fields: map[string]any{manufacturing.BOMQuantity: 3},
		Rows: map[string][]map[string]any{
			manufacturing.BOMItems: {{manufacturing.BOMItemAmount: 4}, {manufacturing.BOMItemAmount: 6}},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// WHEN: the quantity drops to zero
	rec = do(t, srv, http.MethodPut, docPath(manufacturing.BOM, "BOM-0001", "fields", manufacturing.BOMQuantity),
		SetFieldRequest{Value: 0})

	// THEN: the cost stays and the unit cost falls back to zero
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[DocumentDTO](t, rec)
	assert.Equal(t, 10.0, got.Fields[manufacturing.BOMTotalCost])
	assert.Equal(t, 0.0, got.Fields[manufacturing.BOMCostPerQuantity])
}

// =============================================================================
// LIFECYCLE
// =============================================================================

func TestSubmit_LocksDocument(t *testing.T) {
	// GIVEN: a finalized sheet
	_, srv := newTestServer(t)
	doc := createSheet(t, srv, "DRD-0001")
	rec := do(t, srv, http.MethodPost, docPath(rejection.DocType, "DRD-0001", "submit"), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "finalized", decode[DocumentDTO](t, rec).Status)

	// WHEN: editing inputs or rows
	field := do(t, srv, http.MethodPut,
		docPath(rejection.DocType, "DRD-0001", "fields", rejection.FieldBoxChecked),
		SetFieldRequest{Value: 1000})
	row := do(t, srv, http.MethodDelete,
		docPath(rejection.DocType, "DRD-0001", "rows", rejection.CollectionDetails, doc.Rows[rejection.CollectionDetails][0].ID), nil)
	del := do(t, srv, http.MethodDelete, docPath(rejection.DocType, "DRD-0001"), nil)

	// THEN: every edit is refused and the totals are untouched
	assert.Equal(t, http.StatusConflict, field.Code)
	assert.Equal(t, "locked", decode[ErrorResponse](t, field).Code)
	assert.Equal(t, http.StatusConflict, row.Code)
	assert.Equal(t, http.StatusConflict, del.Code)

	stored := decode[DocumentDTO](t, do(t, srv, http.MethodGet, docPath(rejection.DocType, "DRD-0001"), nil))
	assert.Equal(t, 200.0, stored.Fields[rejection.FieldBoxChecked])
	assert.Equal(t, 3.0, stored.Fields[rejection.FieldRejectionPct])
}

func TestCancel_OnlyFromFinalized(t *testing.T) {
	_, srv := newTestServer(t)
	createSheet(t, srv, "DRD-0001")

	draft := do(t, srv, http.MethodPost, docPath(rejection.DocType, "DRD-0001", "cancel"), nil)
	assert.Equal(t, http.StatusConflict, draft.Code)
	assert.Equal(t, "invalid_transition", decode[ErrorResponse](t, draft).Code)

	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, docPath(rejection.DocType, "DRD-0001", "submit"), nil).Code)
	cancelled := do(t, srv, http.MethodPost, docPath(rejection.DocType, "DRD-0001", "cancel"), nil)
	require.Equal(t, http.StatusOK, cancelled.Code, cancelled.Body.String())
	got := decode[DocumentDTO](t, cancelled)
	assert.Equal(t, "cancelled", got.Status)
	assert.Equal(t, 6.0, got.Fields[rejection.FieldTotal])

	again := do(t, srv, http.MethodPost, docPath(rejection.DocType, "DRD-0001", "cancel"), nil)
	assert.Equal(t, http.StatusConflict, again.Code)
}

func TestDeleteDocument_Draft(t *testing.T) {
	_, srv := newTestServer(t)
	createSheet(t, srv, "DRD-0001")

	rec := do(t, srv, http.MethodDelete, docPath(rejection.DocType, "DRD-0001"), nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, docPath(rejection.DocType, "DRD-0001"), nil).Code)
}

// =============================================================================
// LOOKUPS
// =============================================================================

func TestUnknownDocTypeAndDocument(t *testing.T) {
	_, srv := newTestServer(t)

	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, docPath("Sales Invoice"), nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, docPath(rejection.DocType, "DRD-9999"), nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodPost, docPath(rejection.DocType, "DRD-9999", "submit"), nil).Code)
}

func TestListDocuments_StatusAndDateFilter(t *testing.T) {
	// GIVEN: two drafts, one of them finalized
	_, srv := newTestServer(t)
	createSheet(t, srv, "DRD-0001")
	createSheet(t, srv, "DRD-0002")
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, docPath(rejection.DocType, "DRD-0002", "submit"), nil).Code)

	// WHEN: listing by status and by date
	finalized := decode[[]DocumentDTO](t, do(t, srv, http.MethodGet, docPath(rejection.DocType)+"?status=finalized", nil))
	all := decode[[]DocumentDTO](t, do(t, srv, http.MethodGet, docPath(rejection.DocType)+"?from=2025-03-12&to=2025-03-12", nil))
	none := decode[[]DocumentDTO](t, do(t, srv, http.MethodGet, docPath(rejection.DocType)+"?from=2025-03-13", nil))

	// THEN
	require.Len(t, finalized, 1)
	assert.Equal(t, "DRD-0002", finalized[0].Name)
	assert.Len(t, all, 2)
	assert.Empty(t, none)

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodGet, docPath(rejection.DocType)+"?status=open", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodGet, docPath(manufacturing.BOM)+"?from=2025-03-01", nil).Code)
}

func TestListDocTypes(t *testing.T) {
	_, srv := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/api/doctypes", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	types := decode[[]DocTypeDTO](t, rec)
	require.Len(t, types, 4)
	assert.Equal(t, string(rejection.DocType), types[0].Type)
	assert.Contains(t, types[0].Derived, rejection.FieldRejectionPct)
	assert.Contains(t, types[0].Derived, rejection.CollectionDetails+"."+rejection.RowTotal)
	assert.NotContains(t, types[0].Derived, rejection.FieldBoxChecked)
}
