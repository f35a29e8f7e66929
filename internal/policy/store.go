package policy

import "sync/atomic"

// Store holds the active policy document. Replace swaps the whole document so
// concurrent readers never observe a partially-updated policy.
type Store struct {
	doc atomic.Pointer[Document]
}

// NewStore creates a store seeded with an already-parsed document.
func NewStore(doc *Document) *Store {
	s := &Store{}
	s.doc.Store(doc)
	return s
}

// Document returns the current document.
func (s *Store) Document() *Document {
	return s.doc.Load()
}

// Replace atomically installs a new document.
func (s *Store) Replace(doc *Document) {
	s.doc.Store(doc)
}
