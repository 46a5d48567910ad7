package buildtool

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/kotlin-lsp/sidecar-bridge/internal/errs"
)

// MavenBuildTool drives `mvn dependency:build-classpath`, once per module
// discovered by walking the reactor's pom.xml <modules> declarations.
type MavenBuildTool struct {
	opts Options
}

func NewMavenBuildTool(opts Options) *MavenBuildTool {
	return &MavenBuildTool{opts: opts}
}

func (m *MavenBuildTool) Name() string { return "maven" }

func (m *MavenBuildTool) Resolve(ctx context.Context, root string) (*ResolvedBuild, error) {
	modules, err := discoverMavenModules(root)
	if err != nil {
		return nil, err
	}

	build := &ResolvedBuild{Modules: modules}
	seen := map[string]bool{}
	for _, module := range modules {
		moduleDir := filepath.Join(root, module)
		entries, err := m.buildClasspathFor(ctx, moduleDir)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if !seen[e] {
				seen[e] = true
				build.Classpath = append(build.Classpath, e)
			}
		}
		build.SourceRoots = append(build.SourceRoots, filepath.Join(moduleDir, "src", "main", "kotlin"))
	}
	return build, nil
}

// discoverMavenModules unions the reactor root with every module listed in
// a <modules><module> entry and with those children's own modules, one
// level further down; deeper nesting is not followed. Every returned
// module, aggregators included, gets its own classpath invocation.
func discoverMavenModules(root string) ([]string, error) {
	pomPath := filepath.Join(root, "pom.xml")
	modules := []string{"."}
	children, err := pomModules(pomPath)
	if err != nil {
		// A module-less single pom.xml is the common case, not an error.
		return modules, nil
	}
	for _, child := range children {
		modules = append(modules, child)
		grandchildren, err := pomModules(filepath.Join(root, child, "pom.xml"))
		if err == nil {
			for _, g := range grandchildren {
				modules = append(modules, filepath.Join(child, g))
			}
		}
	}
	return modules, nil
}

func pomModules(pomPath string) ([]string, error) {
	f, err := os.Open(pomPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := xmlquery.Parse(f)
	if err != nil {
		return nil, err
	}
	nodes := xmlquery.Find(doc, "//modules/module")
	modules := make([]string, 0, len(nodes))
	for _, n := range nodes {
		text := strings.TrimSpace(n.InnerText())
		if text != "" {
			modules = append(modules, text)
		}
	}
	return modules, nil
}

func (m *MavenBuildTool) buildClasspathFor(ctx context.Context, moduleDir string) ([]string, error) {
	cmd := exec.CommandContext(ctx, mavenExecutable(moduleDir), "-q", "dependency:build-classpath", "-Dmdep.outputFile=/dev/stdout")
	cmd.Dir = moduleDir
	cmd.Env = append(os.Environ(), envPairs(m.opts.ArtifactRepoEnv)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, errs.BuildToolFailed("maven", errs.FirstN(stderr.String(), 500))
	}

	var entries []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.Contains(line, ":") == false {
			continue
		}
		entries = append(entries, strings.Split(line, string(os.PathListSeparator))...)
	}
	return entries, nil
}

func mavenExecutable(moduleDir string) string {
	wrapper := filepath.Join(moduleDir, "mvnw")
	if info, err := os.Stat(wrapper); err == nil && !info.IsDir() {
		return wrapper
	}
	return "mvn"
}
