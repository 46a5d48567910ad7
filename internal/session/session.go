// Package session implements the document session: the in-memory record
// of every document the client has open, its text and version, and the
// diagnostics last published for it. Diagnostics persist across close so a
// client re-opening a document without an intervening edit does not flash
// an empty state before the next analysis cycle completes.
package session

import (
	"sync"

	"go.lsp.dev/uri"
)

// Document is one open file: its URI, current text, and LSP version.
type Document struct {
	URI     uri.URI
	Text    string
	Version int32
}

// Session owns every open document and the diagnostics cache. It is safe
// for concurrent use by the LSP adapter's request-handling goroutines.
type Session struct {
	mu          sync.RWMutex
	documents   map[uri.URI]*Document
	diagnostics map[uri.URI][]Diagnostic
}

// Diagnostic is a minimal, transport-agnostic diagnostic record; the LSP
// adapter is responsible for translating it to the wire shape the client
// expects.
type Diagnostic struct {
	Range    Range
	Severity int
	Message  string
	Source   string
}

// Range is a half-open [Start, End) span expressed in UTF-16 code units,
// matching the LSP wire convention.
type Range struct {
	StartLine, StartCharacter int
	EndLine, EndCharacter     int
}

func New() *Session {
	return &Session{
		documents:   make(map[uri.URI]*Document),
		diagnostics: make(map[uri.URI][]Diagnostic),
	}
}

// Open records a newly opened document, replacing any prior entry for the
// same URI (a didOpen for an already-open URI is treated as a fresh open,
// matching how editors resend full state after a crash recovery).
func (s *Session) Open(u uri.URI, text string, version int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[u] = &Document{URI: u, Text: text, Version: version}
}

// Change overwrites the document's text and version unconditionally. There
// is no version guard: a change for a document with a lower or equal
// version than the stored one still applies. This matches the document
// store this component is modeled on, which has no such guard either.
func (s *Session) Change(u uri.URI, text string, version int32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[u]
	if !ok {
		return false
	}
	doc.Text = text
	doc.Version = version
	return true
}

// Close removes the document from the open set. Its diagnostics cache is
// left untouched: a later re-open will see the last diagnostics published
// for it until the next analysis cycle overwrites them.
func (s *Session) Close(u uri.URI) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[u]; !ok {
		return false
	}
	delete(s.documents, u)
	return true
}

// Get returns a copy of the document's current state.
func (s *Session) Get(u uri.URI) (Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[u]
	if !ok {
		return Document{}, false
	}
	return *doc, true
}

// IsOpen reports whether the URI currently has an open document.
func (s *Session) IsOpen(u uri.URI) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.documents[u]
	return ok
}

// AllDocuments returns a snapshot of every currently open document.
func (s *Session) AllDocuments() []Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Document, 0, len(s.documents))
	for _, doc := range s.documents {
		out = append(out, *doc)
	}
	return out
}

// SetDiagnostics replaces the cached diagnostics for a URI, whether or not
// the document is currently open.
func (s *Session) SetDiagnostics(u uri.URI, diags []Diagnostic) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.diagnostics[u] = diags
}

// Diagnostics returns the cached diagnostics for a URI, if any.
func (s *Session) Diagnostics(u uri.URI) ([]Diagnostic, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.diagnostics[u]
	return d, ok
}
