package resolver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheStoreThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	c, err := newCache(dir)
	require.NoError(t, err)

	model := &ProjectModel{Root: "/proj", BuildSystem: Gradle, Classpath: []string{"a.jar"}}
	require.NoError(t, c.store("/proj", model))

	loaded, ok := c.load("/proj", time.Time{})
	require.True(t, ok)
	assert.Equal(t, model.Classpath, loaded.Classpath)
}

func TestCacheRejectsMismatchedRoot(t *testing.T) {
	dir := t.TempDir()
	c, err := newCache(dir)
	require.NoError(t, err)

	require.NoError(t, c.store("/proj-a", &ProjectModel{Root: "/proj-a"}))

	_, ok := c.load("/proj-b", time.Time{})
	assert.False(t, ok)
}

func TestCacheRejectsStaleEntry(t *testing.T) {
	dir := t.TempDir()
	c, err := newCache(dir)
	require.NoError(t, err)

	require.NoError(t, c.store("/proj", &ProjectModel{Root: "/proj"}))

	_, ok := c.load("/proj", time.Now().Add(time.Hour))
	assert.False(t, ok)
}

func TestCacheMissingFileIsNotOk(t *testing.T) {
	dir := t.TempDir()
	c, err := newCache(dir)
	require.NoError(t, err)

	_, ok := c.load("/proj", time.Time{})
	assert.False(t, ok)
}
