package lspadapter

import (
	"os"

	"gopkg.in/yaml.v2"
)

// RawSettings is the adapter's own rule-agnostic settings echo: whatever is
// found in a sidecar-settings.yaml alongside the project is kept as an
// opaque map. The adapter never interprets individual keys itself. Nothing
// in the adapter handles workspace/didChangeConfiguration or passes
// RawSettings on to the bridge's UpdateConfig.
type RawSettings map[string]interface{}

// LoadSettingsFile reads an optional sidecar-settings.yaml, the adapter's
// own config format (distinct from the resolver's .sidecar.json, which
// describes a project's build, not the adapter's own behavior).
func LoadSettingsFile(path string) (RawSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return RawSettings{}, nil
		}
		return nil, err
	}
	var settings RawSettings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, err
	}
	return settings, nil
}
