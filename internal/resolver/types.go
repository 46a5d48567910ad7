// Package resolver implements the project resolver: detecting a project's
// build system, invoking the right build tool to extract its classpath,
// merging in manual configuration overrides, and caching the result so a
// second resolve of an unchanged project is instant.
package resolver

// BuildSystem identifies which build tool governs a project root.
type BuildSystem int

const (
	None BuildSystem = iota
	Gradle
	Maven
)

func (b BuildSystem) String() string {
	switch b {
	case Gradle:
		return "gradle"
	case Maven:
		return "maven"
	default:
		return "none"
	}
}

// ProjectModel is the resolved view of a project: everything the sidecar
// needs to analyze it correctly.
type ProjectModel struct {
	Root          string      `json:"root"`
	BuildSystem   BuildSystem `json:"buildSystem"`
	Classpath     []string    `json:"classpath"`
	CompilerFlags []string    `json:"compilerFlags"`
	SourceRoots   []string    `json:"sourceRoots"`
	JavaHome      string      `json:"javaHome,omitempty"`
	Modules       []string    `json:"modules,omitempty"`
}
