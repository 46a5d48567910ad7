package resolver

import (
	"os"
	"path/filepath"
)

const manualConfigFileName = ".sidecar.json"

var gradleMarkers = []string{"build.gradle.kts", "build.gradle", "settings.gradle.kts", "settings.gradle"}
var mavenMarkers = []string{"pom.xml"}

// detectBuildSystem walks upward from start looking for the first
// directory that carries a recognizable build-system marker file. Gradle
// is checked before Maven at each level, matching the original resolver's
// preference when both happen to be present (a Gradle project migrating
// off Maven keeps a stale pom.xml around longer than its build.gradle).
func detectBuildSystem(start string) (root string, system BuildSystem) {
	dir := start
	for {
		for _, marker := range gradleMarkers {
			if fileExists(filepath.Join(dir, marker)) {
				return dir, Gradle
			}
		}
		for _, marker := range mavenMarkers {
			if fileExists(filepath.Join(dir, marker)) {
				return dir, Maven
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return start, None
		}
		dir = parent
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func manualConfigPath(root string) string {
	return filepath.Join(root, manualConfigFileName)
}
