package resolver

import (
	"bytes"
	"encoding/json"
	"os"

	"github.com/PaesslerAG/gval"
	"github.com/antchfx/jsonquery"
)

// manualConfig is the parsed shape of a project's .sidecar.json, an
// escape hatch for classpath entries and compiler flags a build tool
// cannot express - most commonly a generated source jar or an annotation
// processor flag a Gradle/Maven plugin does not surface.
type manualConfig struct {
	CompilerFlags      []string            `json:"compilerFlags"`
	Features           map[string]any      `json:"features"`
	ClasspathOverrides []classpathOverride `json:"classpathOverrides"`
}

type classpathOverride struct {
	Classpath []string `json:"classpath"`
	When      string   `json:"when"`
}

// loadManualConfig reads and parses a .sidecar.json if present; a missing
// file is not an error, it just means there is nothing to merge in.
func loadManualConfig(root string) (*manualConfig, error) {
	path := manualConfigPath(root)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	// Parse once with jsonquery so vendor-specific nested fields under
	// "features" (an open-ended bag of flags, not a fixed struct) can be
	// queried without knowing their shape ahead of time, then again with
	// encoding/json for the fields that do have a fixed shape.
	doc, err := jsonquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	features := map[string]any{}
	for _, n := range jsonquery.Find(doc, "/features/*") {
		features[n.Data] = featureValue(n)
	}

	cfg := &manualConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.Features = features
	return cfg, nil
}

func featureValue(n *jsonquery.Node) any {
	text := n.InnerText()
	switch text {
	case "true":
		return true
	case "false":
		return false
	}
	var f float64
	if err := json.Unmarshal([]byte(text), &f); err == nil {
		return f
	}
	return text
}

// applyManualConfig merges a project's manual overrides into the already
// build-tool-resolved model. Classpath overrides whose "when" expression
// evaluates false against the parsed features are skipped, not merged in.
func applyManualConfig(model *ProjectModel, cfg *manualConfig) error {
	if cfg == nil {
		return nil
	}
	model.CompilerFlags = appendDedup(model.CompilerFlags, cfg.CompilerFlags...)

	for _, override := range cfg.ClasspathOverrides {
		include := true
		if override.When != "" {
			result, err := gval.Full().Evaluate(override.When, cfg.Features)
			if err != nil {
				return err
			}
			ok, _ := result.(bool)
			include = ok
		}
		if include {
			model.Classpath = appendDedup(model.Classpath, override.Classpath...)
		}
	}
	return nil
}

func appendDedup(existing []string, more ...string) []string {
	seen := make(map[string]bool, len(existing))
	for _, e := range existing {
		seen[e] = true
	}
	for _, m := range more {
		if !seen[m] {
			seen[m] = true
			existing = append(existing, m)
		}
	}
	return existing
}
