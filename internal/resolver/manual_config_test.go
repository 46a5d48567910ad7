package resolver

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManualConfig(t *testing.T, root, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(manualConfigPath(root), []byte(content), 0o644))
}

func TestLoadManualConfigMissingFileIsNotError(t *testing.T) {
	root := t.TempDir()
	cfg, err := loadManualConfig(root)
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestApplyManualConfigMergesCompilerFlags(t *testing.T) {
	root := t.TempDir()
	writeManualConfig(t, root, `{"compilerFlags": ["-Xcontext-receivers"]}`)

	cfg, err := loadManualConfig(root)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	model := &ProjectModel{}
	require.NoError(t, applyManualConfig(model, cfg))
	assert.Contains(t, model.CompilerFlags, "-Xcontext-receivers")
}

func TestApplyManualConfigGuardsClasspathOnFeatureFlag(t *testing.T) {
	root := t.TempDir()
	writeManualConfig(t, root, `{
		"features": {"has_compose": true},
		"classpathOverrides": [
			{"classpath": ["libs/compose-runtime.jar"], "when": "has_compose"},
			{"classpath": ["libs/never.jar"], "when": "has_compose == false"}
		]
	}`)

	cfg, err := loadManualConfig(root)
	require.NoError(t, err)

	model := &ProjectModel{}
	require.NoError(t, applyManualConfig(model, cfg))
	assert.Contains(t, model.Classpath, "libs/compose-runtime.jar")
	assert.NotContains(t, model.Classpath, "libs/never.jar")
}

func TestApplyManualConfigDedupesClasspath(t *testing.T) {
	model := &ProjectModel{Classpath: []string{"a.jar"}}
	cfg := &manualConfig{
		ClasspathOverrides: []classpathOverride{{Classpath: []string{"a.jar", "b.jar"}}},
	}
	require.NoError(t, applyManualConfig(model, cfg))
	assert.Equal(t, []string{"a.jar", "b.jar"}, model.Classpath)
}
