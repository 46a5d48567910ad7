package session_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/uri"

	"github.com/kotlin-lsp/sidecar-bridge/internal/session"
)

func TestOpenAndRetrieve(t *testing.T) {
	s := session.New()
	u := uri.File("/a/b.kt")
	s.Open(u, "fun main() {}", 1)

	doc, ok := s.Get(u)
	require.True(t, ok)
	assert.Equal(t, "fun main() {}", doc.Text)
	assert.EqualValues(t, 1, doc.Version)
}

func TestChangeOverwritesUnconditionally(t *testing.T) {
	s := session.New()
	u := uri.File("/a/b.kt")
	s.Open(u, "v1", 5)

	ok := s.Change(u, "v0-but-still-applied", 1)
	require.True(t, ok)

	doc, _ := s.Get(u)
	assert.Equal(t, "v0-but-still-applied", doc.Text)
	assert.EqualValues(t, 1, doc.Version)
}

func TestChangeNonexistentReturnsFalse(t *testing.T) {
	s := session.New()
	ok := s.Change(uri.File("/missing.kt"), "x", 1)
	assert.False(t, ok)
}

func TestCloseRemovesDocument(t *testing.T) {
	s := session.New()
	u := uri.File("/a/b.kt")
	s.Open(u, "v1", 1)
	require.True(t, s.Close(u))
	assert.False(t, s.IsOpen(u))
}

func TestCloseNonexistentReturnsFalse(t *testing.T) {
	s := session.New()
	assert.False(t, s.Close(uri.File("/missing.kt")))
}

func TestDiagnosticsSurviveClose(t *testing.T) {
	s := session.New()
	u := uri.File("/a/b.kt")
	s.Open(u, "v1", 1)
	s.SetDiagnostics(u, []session.Diagnostic{{Message: "unresolved reference"}})

	s.Close(u)

	diags, ok := s.Diagnostics(u)
	require.True(t, ok)
	require.Len(t, diags, 1)
	assert.Equal(t, "unresolved reference", diags[0].Message)
}

func TestAllDocumentsIteratesOpenDocs(t *testing.T) {
	s := session.New()
	s.Open(uri.File("/a.kt"), "a", 1)
	s.Open(uri.File("/b.kt"), "b", 1)

	docs := s.AllDocuments()
	assert.Len(t, docs, 2)
}

func TestMultipleChanges(t *testing.T) {
	s := session.New()
	u := uri.File("/a.kt")
	s.Open(u, "v0", 0)
	s.Change(u, "v1", 1)
	s.Change(u, "v2", 2)

	doc, _ := s.Get(u)
	assert.Equal(t, "v2", doc.Text)
	assert.EqualValues(t, 2, doc.Version)
}
