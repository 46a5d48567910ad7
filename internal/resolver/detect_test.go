package resolver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectBuildSystemGradle(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "build.gradle.kts"), []byte(""), 0o644))

	nested := filepath.Join(root, "src", "main", "kotlin")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	gotRoot, system := detectBuildSystem(nested)
	assert.Equal(t, root, gotRoot)
	assert.Equal(t, Gradle, system)
}

func TestDetectBuildSystemMaven(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "pom.xml"), []byte("<project/>"), 0o644))

	gotRoot, system := detectBuildSystem(root)
	assert.Equal(t, root, gotRoot)
	assert.Equal(t, Maven, system)
}

func TestDetectBuildSystemPrefersGradleOverMaven(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "build.gradle"), []byte(""), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "pom.xml"), []byte("<project/>"), 0o644))

	_, system := detectBuildSystem(root)
	assert.Equal(t, Gradle, system)
}

func TestDetectBuildSystemNone(t *testing.T) {
	root := t.TempDir()
	gotRoot, system := detectBuildSystem(root)
	assert.Equal(t, root, gotRoot)
	assert.Equal(t, None, system)
}
