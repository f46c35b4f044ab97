/*
Package sqlite provides a SQLite-backed implementation of generic.Store.

PURPOSE:
  Persists host documents (parent fields, child rows and lifecycle state)
  so sheets survive restarts and the dashboards can query finalized ones.

LOCKED DOCUMENTS:
  Save reads the stored state inside the same transaction as the write;
  a finalized or cancelled document is only replaced by its lifecycle
  transition and is never deleted.

KEY TABLES:
  documents: One row per (doctype, name). Fields and rows are JSON
             columns; status is a plain column so state filters stay in SQL.

INDEXES:
  - idx_documents_type_status: Dashboard queries (finalized sheets of a type)

DATE FILTERS:
  ListFilter.DateField names a parent field inside fields_json. It is read
  with json_extract and compared as a YYYY-MM-DD string.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. ":memory:" databases are limited to
  one connection, since every connection would otherwise get its own
  empty database.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for file databases.

USAGE:
  store, err := sqlite.New("./data/forms.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - generic/store.go: Interface definition
  - generic/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hexplastics/form-engine/generic"
)

// Store implements generic.Store using SQLite.
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

var _ generic.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		doctype TEXT NOT NULL,
		name TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'draft',
		fields_json TEXT NOT NULL,
		rows_json TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (doctype, name)
	);

	CREATE INDEX IF NOT EXISTS idx_documents_type_status
		ON documents(doctype, status);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// DOCUMENT STORE (generic.Store interface)
// =============================================================================

// Save inserts or replaces a document. Timestamps are set on doc once the
// write commits.
func (s *Store) Save(ctx context.Context, doc *generic.Doc, opts generic.SaveOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fieldsJSON, err := json.Marshal(doc.Fields)
	if err != nil {
		return fmt.Errorf("failed to encode fields: %w", err)
	}
	rowsJSON, err := json.Marshal(doc.Tables)
	if err != nil {
		return fmt.Errorf("failed to encode rows: %w", err)
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	stored, err := s.header(ctx, sqlTx, doc.DocType, doc.Name)
	if err != nil && !errors.Is(err, generic.ErrDocumentNotFound) {
		return err
	}
	if err := generic.CheckWritable(stored, opts); err != nil {
		return err
	}

	now := s.now()
	created := doc.CreatedAt
	if stored != nil {
		created = stored.CreatedAt
	} else if created.IsZero() {
		created = now
	}

	query := `
		INSERT INTO documents (doctype, name, status, fields_json, rows_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(doctype, name) DO UPDATE SET
			status = excluded.status,
			fields_json = excluded.fields_json,
			rows_json = excluded.rows_json,
			updated_at = excluded.updated_at
	`
	_, err = sqlTx.ExecContext(ctx, query,
		string(doc.DocType),
		doc.Name,
		string(doc.State()),
		string(fieldsJSON),
		string(rowsJSON),
		created.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit document: %w", err)
	}

	doc.CreatedAt = created
	doc.UpdatedAt = now
	return nil
}

// Load returns the stored document or ErrDocumentNotFound.
func (s *Store) Load(ctx context.Context, docType generic.DocType, name string) (*generic.Doc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT doctype, name, status, fields_json, rows_json, created_at, updated_at
		FROM documents
		WHERE doctype = ? AND name = ?
	`
	docs, err := s.queryDocuments(ctx, query, string(docType), name)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, generic.ErrDocumentNotFound
	}
	return docs[0], nil
}

// List returns matching documents ordered by date field, then name.
func (s *Store) List(ctx context.Context, filter generic.ListFilter) ([]*generic.Doc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		where []string
		args  []any
	)
	if filter.Type != "" {
		where = append(where, "doctype = ?")
		args = append(args, string(filter.Type))
	}
	if len(filter.States) > 0 {
		marks := make([]string, len(filter.States))
		for i, st := range filter.States {
			marks[i] = "?"
			args = append(args, string(st))
		}
		where = append(where, "status IN ("+strings.Join(marks, ", ")+")")
	}

	order := "name ASC"
	if filter.DateField != "" {
		date := "substr(json_extract(fields_json, ?), 1, 10)"
		path := jsonPath(filter.DateField)

		where = append(where, date+" IS NOT NULL")
		args = append(args, path)
		if !filter.DateFrom.IsZero() {
			where = append(where, date+" >= ?")
			args = append(args, path, generic.FormatDate(filter.DateFrom))
		}
		if !filter.DateTo.IsZero() {
			where = append(where, date+" <= ?")
			args = append(args, path, generic.FormatDate(filter.DateTo))
		}
		order = date + " ASC, name ASC"
		args = append(args, path)
	}

	query := `
		SELECT doctype, name, status, fields_json, rows_json, created_at, updated_at
		FROM documents
	`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY " + order

	docs, err := s.queryDocuments(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	// SQL narrows by string prefix; Matches applies the exact date parse.
	result := docs[:0]
	for _, doc := range docs {
		if filter.Matches(doc) {
			result = append(result, doc)
		}
	}
	return result, nil
}

// Delete removes a draft document.
func (s *Store) Delete(ctx context.Context, docType generic.DocType, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.header(ctx, s.db, docType, name)
	if err != nil {
		return err
	}
	if stored.State().Locked() {
		return &generic.LockedError{Name: name, State: stored.State()}
	}

	_, err = s.db.ExecContext(ctx, "DELETE FROM documents WHERE doctype = ? AND name = ?", string(docType), name)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all documents (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM documents")
	return err
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// header loads state and timestamps only.
func (s *Store) header(ctx context.Context, db queryRower, docType generic.DocType, name string) (*generic.Doc, error) {
	var status, createdAt string
	err := db.QueryRowContext(ctx,
		"SELECT status, created_at FROM documents WHERE doctype = ? AND name = ?",
		string(docType), name,
	).Scan(&status, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, generic.ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}

	doc := generic.NewDoc(docType, name)
	doc.Status, err = generic.ParseLifecycle(status)
	if err != nil {
		return nil, err
	}
	doc.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return doc, nil
}

func (s *Store) queryDocuments(ctx context.Context, query string, args ...any) ([]*generic.Doc, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []*generic.Doc
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	return docs, rows.Err()
}

func scanDocument(rows *sql.Rows) (*generic.Doc, error) {
	var (
		docType    string
		name       string
		status     string
		fieldsJSON string
		rowsJSON   sql.NullString
		createdAt  string
		updatedAt  string
	)

	err := rows.Scan(&docType, &name, &status, &fieldsJSON, &rowsJSON, &createdAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan document: %w", err)
	}

	doc := generic.NewDoc(generic.DocType(docType), name)
	if doc.Status, err = generic.ParseLifecycle(status); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(fieldsJSON), &doc.Fields); err != nil {
		return nil, fmt.Errorf("failed to decode fields of %s: %w", name, err)
	}
	if doc.Fields == nil {
		doc.Fields = make(map[string]generic.Value)
	}
	if rowsJSON.Valid && rowsJSON.String != "" && rowsJSON.String != "null" {
		if err := json.Unmarshal([]byte(rowsJSON.String), &doc.Tables); err != nil {
			return nil, fmt.Errorf("failed to decode rows of %s: %w", name, err)
		}
	}
	doc.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	doc.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)

	return doc, nil
}

// jsonPath quotes a field name for json_extract.
func jsonPath(field string) string {
	return `$."` + strings.ReplaceAll(field, `"`, `\"`) + `"`
}
