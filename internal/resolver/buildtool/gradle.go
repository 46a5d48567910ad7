package buildtool

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/dlclark/regexp2"
	"github.com/hashicorp/go-version"

	"github.com/kotlin-lsp/sidecar-bridge/internal/errs"
)

const (
	tagStart = "---SIDECAR-START---"
	tagEnd   = "---SIDECAR-END---"
)

// gradleLinePattern matches a tagged KEY=value output line. The negative
// lookahead keeps a value that happens to contain the end-of-block marker
// (e.g. a classpath entry with an unusual path) from being captured past
// the marker - something regexp's RE2 engine cannot express without a
// second pass, which is why this package reaches for regexp2 instead of
// the standard library here.
var gradleLinePattern = regexp2.MustCompile(
	`^(?<key>[A-Z][A-Z0-9_]*)=(?<value>(?:(?!`+tagEnd+`).)*)$`,
	regexp2.None,
)

// GradleBuildTool drives a Gradle wrapper (or gradle on PATH) through a
// generated init script that dumps the resolved classpath, source roots and
// module path as a tagged block on stdout. Compiler flags are not
// extracted.
type GradleBuildTool struct {
	opts Options
}

func NewGradleBuildTool(opts Options) *GradleBuildTool {
	return &GradleBuildTool{opts: opts}
}

func (g *GradleBuildTool) Name() string { return "gradle" }

func (g *GradleBuildTool) Resolve(ctx context.Context, root string) (*ResolvedBuild, error) {
	wrapper, err := gradleWrapperPath(root)
	if err != nil {
		return nil, err
	}

	gradleVersion, err := gradleVersion(ctx, wrapper, root)
	if err != nil {
		g.opts.Logger.V(4).Info("could not determine gradle version, assuming recent", "error", err.Error())
	}

	initScript, cleanup, err := writeGradleInitScript(gradleVersion)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	cmd := exec.CommandContext(ctx, wrapper, "--init-script", initScript, "-q", "sidecarDump")
	cmd.Dir = root
	cmd.Env = append(os.Environ(), envPairs(g.opts.ArtifactRepoEnv)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, errs.BuildToolFailed("gradle", errs.FirstN(stderr.String(), 500))
	}

	return parseGradleOutput(stdout.String())
}

func gradleWrapperPath(root string) (string, error) {
	name := "gradlew"
	if runtime.GOOS == "windows" {
		name = "gradlew.bat"
	}
	wrapper := filepath.Join(root, name)
	if info, err := os.Stat(wrapper); err == nil && !info.IsDir() {
		return wrapper, nil
	}
	if path, err := exec.LookPath("gradle"); err == nil {
		return path, nil
	}
	return "", &ErrNoWrapper{Tool: "gradle"}
}

func gradleVersion(ctx context.Context, wrapper, root string) (*version.Version, error) {
	cmd := exec.CommandContext(ctx, wrapper, "--version")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return nil, err
	}
	for _, line := range strings.Split(string(out), "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "Gradle ") {
			raw := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "Gradle "))
			return version.NewVersion(raw)
		}
	}
	return nil, fmt.Errorf("gradle --version output did not contain a Gradle line")
}

// javaHomeCompatibilityCutoff is the Gradle version at which running under
// a JDK newer than 21 first became reliable. It is consulted only by
// PrefersProjectToolchain; the gradle invocation in Resolve does not pick
// a JDK based on it.
var javaHomeCompatibilityCutoff = version.Must(version.NewVersion("8.14"))

// PrefersProjectToolchain reports whether a Gradle version is new enough to
// trust the project's own configured toolchain rather than falling back to
// JAVA_HOME.
func PrefersProjectToolchain(v *version.Version) bool {
	if v == nil {
		return false
	}
	return v.GreaterThanOrEqual(javaHomeCompatibilityCutoff)
}

func writeGradleInitScript(v *version.Version) (path string, cleanup func(), err error) {
	f, err := os.CreateTemp("", "sidecar-init-*.gradle.kts")
	if err != nil {
		return "", nil, err
	}
	defer f.Close()

	script := gradleInitScriptTemplate
	if _, err := f.WriteString(script); err != nil {
		os.Remove(f.Name())
		return "", nil, err
	}
	return f.Name(), func() { os.Remove(f.Name()) }, nil
}

// gradleInitScriptTemplate registers a sidecarDump task on every project
// that prints the resolved runtime classpath, the project's conventional
// src/main/kotlin directory and its project path inside a tagged block the parent process can extract deterministically even if
// Gradle itself logs other noise around it.
const gradleInitScriptTemplate = `
allprojects {
    tasks.register("sidecarDump") {
        doLast {
            println("` + tagStart + `")
            val cp = configurations.findByName("runtimeClasspath")
            if (cp != null) {
                println("CLASSPATH=" + cp.files.joinToString(File.pathSeparator) { it.absolutePath })
            }
            val sourceSets = extensions.findByName("sourceSets")
            println("SOURCE_ROOTS=" + project.projectDir.absolutePath + "/src/main/kotlin")
            println("MODULE=" + project.path)
            println("` + tagEnd + `")
        }
    }
}
`

func parseGradleOutput(output string) (*ResolvedBuild, error) {
	lines := strings.Split(output, "\n")
	build := &ResolvedBuild{}
	seenClasspath := map[string]bool{}
	seenSourceRoot := map[string]bool{}
	inBlock := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch trimmed {
		case tagStart:
			inBlock = true
			continue
		case tagEnd:
			inBlock = false
			continue
		}
		if !inBlock {
			continue
		}
		m, err := gradleLinePattern.FindStringMatch(trimmed)
		if err != nil || m == nil {
			continue
		}
		key := m.GroupByName("key").String()
		value := m.GroupByName("value").String()
		switch key {
		case "CLASSPATH":
			for _, entry := range strings.Split(value, string(os.PathListSeparator)) {
				if entry != "" && !seenClasspath[entry] {
					seenClasspath[entry] = true
					build.Classpath = append(build.Classpath, entry)
				}
			}
		case "SOURCE_ROOTS":
			if value != "" && !seenSourceRoot[value] {
				seenSourceRoot[value] = true
				build.SourceRoots = append(build.SourceRoots, value)
			}
		case "MODULE":
			build.Modules = append(build.Modules, value)
		}
	}
	return build, nil
}

func envPairs(extra map[string]string) []string {
	out := make([]string, 0, len(extra))
	for k, v := range extra {
		out = append(out, k+"="+v)
	}
	return out
}
