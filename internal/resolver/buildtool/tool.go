// Package buildtool implements per-build-system dependency and classpath
// extraction: Gradle via a generated init script and a tagged stdout
// protocol, Maven via dependency:build-classpath. Each implementation is
// invoked once per project root and returns the same ResolvedBuild shape
// so the resolver package does not need to know which build system
// produced it.
package buildtool

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
)

// ResolvedBuild is everything a build tool invocation can tell the sidecar
// about how to analyze a project: its classpath, extra compiler flags, and
// source roots per module.
type ResolvedBuild struct {
	Classpath     []string
	CompilerFlags []string
	SourceRoots   []string
	JavaHome      string
	Modules       []string
}

// BuildTool is implemented by each supported build system.
type BuildTool interface {
	// Name identifies the build tool for logging and cache keys.
	Name() string
	// Resolve runs the build tool against root and returns its classpath
	// and module layout.
	Resolve(ctx context.Context, root string) (*ResolvedBuild, error)
}

// Options configures build-tool invocation, threaded through from the
// resolver's own configuration.
type Options struct {
	Logger          logr.Logger
	ArtifactRepoEnv map[string]string // extra env vars, e.g. a fetched OAuth2 bearer token
}

// ErrNoWrapper is returned when a project has neither a local wrapper
// script nor a build tool reachable on PATH.
type ErrNoWrapper struct {
	Tool string
}

func (e *ErrNoWrapper) Error() string {
	return fmt.Sprintf("%s: no local wrapper and no %s on PATH", e.Tool, e.Tool)
}
