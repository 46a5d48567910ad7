package resolver

import (
	"context"
	"path/filepath"
	"time"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel/trace"

	"github.com/kotlin-lsp/sidecar-bridge/internal/errs"
	"github.com/kotlin-lsp/sidecar-bridge/internal/resolver/buildtool"
)

// Resolver detects a project's build system, resolves its classpath, and
// caches the result on disk under a dotted directory named after the
// detected build tool (mirroring <root>/.gradle, <root>/.mvn convention).
type Resolver struct {
	logger logr.Logger
	tracer trace.Tracer
}

func New(logger logr.Logger, tracer trace.Tracer) *Resolver {
	if tracer == nil {
		tracer = trace.NewNoopTracerProvider().Tracer("resolver")
	}
	return &Resolver{logger: logger, tracer: tracer}
}

// Resolve walks up from start to find the project root and build system,
// then returns its ProjectModel, using a JWT-signed on-disk cache when the
// cached entry still matches root and was built after minBuildTime (pass
// the project root's own modification time floor, or the zero time to
// accept any cache entry).
func (r *Resolver) Resolve(ctx context.Context, start string, auth *ArtifactRepoAuth, minBuildTime time.Time) (*ProjectModel, error) {
	ctx, span := r.tracer.Start(ctx, "resolver.resolve")
	defer span.End()

	root, system := detectBuildSystem(start)

	c, err := newCache(filepath.Join(root, cacheDirFor(system)))
	if err != nil {
		return nil, err
	}
	if model, ok := c.load(root, minBuildTime); ok {
		r.logger.V(5).Info("project model cache hit", "root", root)
		return model, nil
	}

	model, err := r.resolveFresh(ctx, root, system, auth)
	if err != nil {
		return nil, err
	}

	if err := c.store(root, model); err != nil {
		r.logger.V(3).Info("failed to persist project model cache", "error", err.Error())
	}
	return model, nil
}

func (r *Resolver) resolveFresh(ctx context.Context, root string, system BuildSystem, auth *ArtifactRepoAuth) (*ProjectModel, error) {
	env, err := fetchArtifactRepoToken(ctx, auth)
	if err != nil {
		r.logger.V(3).Info("artifact repo auth token fetch failed, proceeding without it", "error", err.Error())
	}
	opts := buildtool.Options{Logger: r.logger, ArtifactRepoEnv: env}

	var tool buildtool.BuildTool
	switch system {
	case Gradle:
		tool = buildtool.NewGradleBuildTool(opts)
	case Maven:
		tool = buildtool.NewMavenBuildTool(opts)
	default:
		return r.resolveManualOnly(root)
	}

	resolved, err := tool.Resolve(ctx, root)
	if err != nil {
		return nil, err
	}

	model := &ProjectModel{
		Root:          root,
		BuildSystem:   system,
		Classpath:     resolved.Classpath,
		CompilerFlags: resolved.CompilerFlags,
		SourceRoots:   resolved.SourceRoots,
		JavaHome:      resolved.JavaHome,
		Modules:       resolved.Modules,
	}

	manual, err := loadManualConfig(root)
	if err != nil {
		return nil, err
	}
	if err := applyManualConfig(model, manual); err != nil {
		return nil, err
	}
	return model, nil
}

// resolveManualOnly handles a project with no recognized build system: it
// is only analyzable at all if a .sidecar.json supplies a classpath by
// hand, otherwise resolution fails outright rather than silently analyzing
// with an empty classpath.
func (r *Resolver) resolveManualOnly(root string) (*ProjectModel, error) {
	manual, err := loadManualConfig(root)
	if err != nil {
		return nil, err
	}
	if manual == nil || len(manual.ClasspathOverrides) == 0 {
		return nil, errs.NoBuildSystem(root)
	}
	model := &ProjectModel{Root: root, BuildSystem: None, SourceRoots: []string{root}}
	if err := applyManualConfig(model, manual); err != nil {
		return nil, err
	}
	return model, nil
}

func cacheDirFor(system BuildSystem) string {
	switch system {
	case Gradle:
		return ".gradle-sidecar-cache"
	case Maven:
		return ".mvn-sidecar-cache"
	default:
		return ".sidecar-cache"
	}
}
