// Command server is the sidecar bridge's LSP entrypoint: it speaks the
// framed JSON-RPC protocol to an editor over stdio on one side and
// supervises a Kotlin/JVM compiler sidecar subprocess on the other.
package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/bombsimon/logrusr/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.lsp.dev/uri"
	"go.opentelemetry.io/otel/trace"

	"github.com/kotlin-lsp/sidecar-bridge/internal/bridge"
	"github.com/kotlin-lsp/sidecar-bridge/internal/debounce"
	"github.com/kotlin-lsp/sidecar-bridge/internal/jsonrpc2"
	"github.com/kotlin-lsp/sidecar-bridge/internal/lspadapter"
	"github.com/kotlin-lsp/sidecar-bridge/internal/resolver"
	"github.com/kotlin-lsp/sidecar-bridge/internal/session"
	"github.com/kotlin-lsp/sidecar-bridge/internal/tracing"
)

func main() {
	var (
		logLevel         string
		providerSettings string
		sidecarJar       string
		workspaceRoot    string
		enableJaeger     bool
		jaegerEndpoint   string
	)

	root := &cobra.Command{
		Use:   "server",
		Short: "Kotlin/JVM sidecar bridge language server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), runOptions{
				logLevel:         logLevel,
				providerSettings: providerSettings,
				sidecarJar:       sidecarJar,
				workspaceRoot:    workspaceRoot,
				enableJaeger:     enableJaeger,
				jaegerEndpoint:   jaegerEndpoint,
			})
		},
	}

	root.Flags().StringVar(&logLevel, "log-level", "info", "log verbosity: error, info, debug, trace")
	root.Flags().StringVar(&providerSettings, "provider-settings", "", "path to a JSON file with sidecar Config overrides")
	root.Flags().StringVar(&sidecarJar, "sidecar-jar", "", "path to the compiler sidecar's launcher jar")
	root.Flags().StringVar(&workspaceRoot, "workspace-root", ".", "project root to resolve and analyze")
	root.Flags().BoolVar(&enableJaeger, "enable-jaeger", false, "export bridge/resolver spans to a Jaeger collector")
	root.Flags().StringVar(&jaegerEndpoint, "jaeger-endpoint", "http://localhost:14268/api/traces", "Jaeger collector endpoint")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

type runOptions struct {
	logLevel         string
	providerSettings string
	sidecarJar       string
	workspaceRoot    string
	enableJaeger     bool
	jaegerEndpoint   string
}

func run(ctx context.Context, opts runOptions) error {
	logrusLog := logrus.New()
	logrusLog.SetLevel(parseLogLevel(opts.logLevel))
	log := logrusr.New(logrusLog)

	cfg := bridge.DefaultConfig()
	if opts.providerSettings != "" {
		loaded, err := loadBridgeConfig(opts.providerSettings)
		if err != nil {
			log.Error(err, "failed to load provider settings")
			return err
		}
		cfg = loaded
	}

	tracer := trace.NewNoopTracerProvider().Tracer("cmd/server")
	if opts.enableJaeger {
		tp, err := tracing.InitTracerProvider(log, opts.jaegerEndpoint)
		if err != nil {
			log.Error(err, "failed to initialize jaeger tracer provider")
			return err
		}
		defer tracing.Shutdown(ctx, log, tp)
		tracer = tp.Tracer("cmd/server")
	}

	var auth *resolver.ArtifactRepoAuth
	if a := cfg.ArtifactRepoAuth; a != nil {
		auth = &resolver.ArtifactRepoAuth{TokenURL: a.TokenURL, ClientID: a.ClientID, ClientSecret: a.ClientSecret}
	}

	res := resolver.New(log, tracer)
	model, err := res.Resolve(ctx, opts.workspaceRoot, auth, time.Time{})
	if err != nil {
		log.Error(err, "project resolution failed")
		return err
	}

	if cfg.JavaHome == "" {
		cfg.JavaHome = model.JavaHome
	}

	br := bridge.New(bridge.Options{
		SidecarPath: opts.sidecarJar,
		WorkDir:     model.Root,
		Classpath:   model.Classpath,
		Config:      cfg,
		Logger:      log,
		Tracer:      tracer,
	})
	if err := br.Start(ctx); err != nil {
		log.Error(err, "failed to start sidecar")
		return err
	}

	sess := session.New()
	deb := debounce.New(log, func() bool {
		state := br.State()
		return state == bridge.Ready || state == bridge.Degraded
	}, analyzeFunc(br, sess))

	adapter := lspadapter.New(log, br, sess, deb)

	clientStream := jsonrpc2.NewHeaderStream(os.Stdin, os.Stdout)
	clientConn := jsonrpc2.NewConn(clientStream, log)
	clientConn.AddHandler(jsonrpc2.NewLoggingHandler(log))
	adapter.Register(clientConn)

	go deb.Run(ctx)

	return clientConn.Run(ctx)
}

// analyzeFunc runs one analysis cycle for a document: send its current
// text to the sidecar and cache whatever diagnostics come back.
func analyzeFunc(br *bridge.Bridge, sess *session.Session) debounce.AnalyzeFunc {
	return func(ctx context.Context, u uri.URI) error {
		doc, ok := sess.Get(u)
		if !ok {
			return nil
		}
		var diagnostics []session.Diagnostic
		params := map[string]interface{}{"uri": u, "text": doc.Text, "version": doc.Version}
		if err := br.Request(ctx, "kotlin/analyze", params, &diagnostics); err != nil {
			return err
		}
		sess.SetDiagnostics(u, diagnostics)
		return nil
	}
}

func loadBridgeConfig(path string) (bridge.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return bridge.Config{}, err
	}
	cfg := bridge.DefaultConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return bridge.Config{}, err
	}
	return cfg, nil
}

func parseLogLevel(level string) logrus.Level {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return logrus.InfoLevel
	}
	return parsed
}
