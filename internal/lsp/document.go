package lsp

import (
	"os"
	"sort"
	"sync"

	"github.com/jarredhawkins/gherkin-lsp/internal/gherkin"
)

// DocumentStore manages open text documents
type DocumentStore struct {
	mu   sync.RWMutex
	docs map[string]*Document
}

// Document is an open text document split into lines
type Document struct {
	URI     string
	Version int
	Content string
	Lines   []string
}

func newDocument(uri string, version int, content string) *Document {
	return &Document{
		URI:     uri,
		Version: version,
		Content: content,
		Lines:   gherkin.SplitLines(content),
	}
}

// NewDocumentStore creates a new document store
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		docs: make(map[string]*Document),
	}
}

// Open adds or replaces a document
func (ds *DocumentStore) Open(uri string, version int, content string) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	ds.docs[uri] = newDocument(uri, version, content)
}

// Update replaces the content of an open document. Documents are never
// mutated in place, so readers may keep the one they got.
func (ds *DocumentStore) Update(uri string, version int, content string) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if _, ok := ds.docs[uri]; ok {
		ds.docs[uri] = newDocument(uri, version, content)
	}
}

// Close removes a document
func (ds *DocumentStore) Close(uri string) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	delete(ds.docs, uri)
}

// Get returns an open document
func (ds *DocumentStore) Get(uri string) (*Document, bool) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	doc, ok := ds.docs[uri]
	return doc, ok
}

// Load returns the open document for uri, or reads it from disk
func (ds *DocumentStore) Load(uri string) (*Document, error) {
	if doc, ok := ds.Get(uri); ok {
		return doc, nil
	}
	content, err := os.ReadFile(uriToPath(uri))
	if err != nil {
		return nil, err
	}
	return newDocument(uri, 0, string(content)), nil
}

// All returns the open documents ordered by URI
func (ds *DocumentStore) All() []*Document {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	docs := make([]*Document, 0, len(ds.docs))
	for _, doc := range ds.docs {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].URI < docs[j].URI })
	return docs
}

// Line returns line n of the document, or "" when out of range
func (d *Document) Line(n int) string {
	if n < 0 || n >= len(d.Lines) {
		return ""
	}
	return d.Lines[n]
}
