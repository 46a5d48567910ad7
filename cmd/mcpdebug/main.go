// Command mcpdebug exposes bridge and session state as MCP tools. It is
// read-only, same as internal/grpcdebug. The Bridge and Session it reports
// on are created in this process and the bridge is never started, so it
// does not observe a running cmd/server: bridge_state reports "stopped"
// and document_diagnostics returns no diagnostics.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.lsp.dev/uri"

	"github.com/kotlin-lsp/sidecar-bridge/internal/bridge"
	"github.com/kotlin-lsp/sidecar-bridge/internal/session"
)

func parseURI(s string) uri.URI { return uri.URI(s) }

type bridgeStateArgs struct{}

type documentDiagnosticsArgs struct {
	URI string `json:"uri" jsonschema:"the document URI to fetch cached diagnostics for"`
}

func main() {
	workspaceRoot := flag.String("workspace-root", ".", "project root whose bridge state to observe")
	flag.Parse()

	br := bridge.New(bridge.Options{WorkDir: *workspaceRoot})
	sess := session.New()

	server := mcp.NewServer(&mcp.Implementation{Name: "sidecar-bridge-debug", Version: "0.1.0"}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "bridge_state",
		Description: "Return the sidecar bridge's current lifecycle state",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args bridgeStateArgs) (*mcp.CallToolResult, any, error) {
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: br.State().String()}},
		}, nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "document_diagnostics",
		Description: "Return cached diagnostics for a document URI",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args documentDiagnosticsArgs) (*mcp.CallToolResult, any, error) {
		diags, _ := sess.Diagnostics(parseURI(args.URI))
		text := ""
		for _, d := range diags {
			text += d.Message + "\n"
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: text}},
		}, nil, nil
	})

	if err := server.Run(context.Background(), &mcp.StdioTransport{}); err != nil {
		log.Println("mcpdebug server exited:", err)
		os.Exit(1)
	}
}
