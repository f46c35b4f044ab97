/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the host document model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Documents:
    DocumentDTO, RowDTO, CreateDocumentRequest, SetFieldRequest, AddRowRequest

  Doctypes:
    DocTypeDTO (wraps factory.DefinitionJSON)

  Scenarios:
    ScenarioDTO, LoadScenarioRequest

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/doctype.go: DefinitionJSON type
*/
package api

import (
	"time"

	"github.com/hexplastics/form-engine/factory"
	"github.com/hexplastics/form-engine/generic"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// DocumentDTO represents a document in API responses.
type DocumentDTO struct {
	Name      string              `json:"name"`
	DocType   string              `json:"doctype"`
	Status    string              `json:"status"`
	Fields    map[string]any      `json:"fields"`
	Rows      map[string][]RowDTO `json:"rows"`
	CreatedAt string              `json:"created_at,omitempty"`
	UpdatedAt string              `json:"updated_at,omitempty"`
}

// RowDTO is one child row.
type RowDTO struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// CreateDocumentRequest creates a draft. Fields and rows may not name
// derived fields.
type CreateDocumentRequest struct {
	Name   string                      `json:"name"`
	Fields map[string]any              `json:"fields"`
	Rows   map[string][]map[string]any `json:"rows"`
}

// SetFieldRequest sets one parent or row field.
type SetFieldRequest struct {
	Value any `json:"value"`
}

// AddRowRequest appends a row to a collection.
type AddRowRequest struct {
	Fields map[string]any `json:"fields"`
}

// DocTypeDTO represents a known doctype and its formulas.
type DocTypeDTO struct {
	Type       string                 `json:"type"`
	Definition factory.DefinitionJSON `json:"definition"`
	Derived    []string               `json:"derived"`
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"` // "rejection" or "manufacturing"
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toDocumentDTO(doc *generic.Doc) DocumentDTO {
	dto := DocumentDTO{
		Name:    doc.Name,
		DocType: string(doc.DocType),
		Status:  string(doc.State()),
		Fields:  make(map[string]any, len(doc.Fields)),
		Rows:    make(map[string][]RowDTO),
	}
	for k, v := range doc.Fields {
		dto.Fields[k] = v
	}
	for _, collection := range doc.Collections() {
		lines := doc.Lines(collection)
		rows := make([]RowDTO, len(lines))
		for i, l := range lines {
			rows[i] = RowDTO{ID: string(l.ID()), Fields: l.Fields}
		}
		dto.Rows[collection] = rows
	}
	if !doc.CreatedAt.IsZero() {
		dto.CreatedAt = doc.CreatedAt.Format(time.RFC3339)
	}
	if !doc.UpdatedAt.IsZero() {
		dto.UpdatedAt = doc.UpdatedAt.Format(time.RFC3339)
	}
	return dto
}

func toDocumentDTOs(docs []*generic.Doc) []DocumentDTO {
	dtos := make([]DocumentDTO, len(docs))
	for i, d := range docs {
		dtos[i] = toDocumentDTO(d)
	}
	return dtos
}
