package bridge

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFakeJava(t *testing.T, dir string) string {
	t.Helper()
	binDir := filepath.Join(dir, "bin")
	require.NoError(t, os.MkdirAll(binDir, 0o755))
	name := "java"
	if runtime.GOOS == "windows" {
		name = "java.exe"
	}
	path := filepath.Join(binDir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\necho fake java\n"), 0o755))
	return path
}

func TestFindJavaUsesExplicitJavaHome(t *testing.T) {
	home := t.TempDir()
	expected := writeFakeJava(t, home)

	path, err := findJava(home)
	require.NoError(t, err)
	assert.Equal(t, expected, path)
}

func TestFindJavaRejectsBadJavaHome(t *testing.T) {
	home := t.TempDir() // no bin/java created
	_, err := findJava(home)
	require.Error(t, err)
}

func TestFindJavaFallsBackToEnv(t *testing.T) {
	home := t.TempDir()
	expected := writeFakeJava(t, home)
	t.Setenv("JAVA_HOME", home)

	path, err := findJava("")
	require.NoError(t, err)
	assert.Equal(t, expected, path)
}
