// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hexplastics/form-engine/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu   sync.RWMutex
	docs map[key]*generic.Doc
	now  func() time.Time
}

type key struct {
	DocType generic.DocType
	Name    string
}

func NewMemory() *Memory {
	return &Memory{
		docs: make(map[key]*generic.Doc),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

var _ generic.Store = (*Memory)(nil)

// Save stores a copy of doc. Timestamps are set on the caller's doc too.
func (m *Memory) Save(_ context.Context, doc *generic.Doc, opts generic.SaveOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key{DocType: doc.DocType, Name: doc.Name}
	stored := m.docs[k]
	if err := generic.CheckWritable(stored, opts); err != nil {
		return err
	}

	now := m.now()
	if stored != nil {
		doc.CreatedAt = stored.CreatedAt
	} else if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	m.docs[k] = doc.Clone()
	return nil
}

func (m *Memory) Load(_ context.Context, docType generic.DocType, name string) (*generic.Doc, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs[key{DocType: docType, Name: name}]
	if !ok {
		return nil, generic.ErrDocumentNotFound
	}
	return doc.Clone(), nil
}

func (m *Memory) List(_ context.Context, filter generic.ListFilter) ([]*generic.Doc, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*generic.Doc
	for _, doc := range m.docs {
		if filter.Matches(doc) {
			result = append(result, doc.Clone())
		}
	}
	sortDocs(result, filter.DateField)
	return result, nil
}

func (m *Memory) Delete(_ context.Context, docType generic.DocType, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key{DocType: docType, Name: name}
	doc, ok := m.docs[k]
	if !ok {
		return generic.ErrDocumentNotFound
	}
	if doc.State().Locked() {
		return &generic.LockedError{Name: name, State: doc.State()}
	}
	delete(m.docs, k)
	return nil
}

// Reset clears all documents (for testing/demo).
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.docs = make(map[key]*generic.Doc)
	return nil
}

// sortDocs orders by date field (when given), then name.
func sortDocs(docs []*generic.Doc, dateField string) {
	sort.Slice(docs, func(i, j int) bool {
		if dateField != "" {
			di, _ := generic.DateOf(docs[i].Get(dateField))
			dj, _ := generic.DateOf(docs[j].Get(dateField))
			if !di.Equal(dj) {
				return di.Before(dj)
			}
		}
		return docs[i].Name < docs[j].Name
	})
}
