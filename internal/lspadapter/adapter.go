// Package lspadapter is the thin translation layer between an LSP client
// connection and the sidecar bridge: it owns the initialize handshake,
// wires document lifecycle notifications into the document session and
// debouncer, and forwards semantic requests straight through to the
// bridge. It carries no analysis logic of its own.
package lspadapter

import (
	"context"
	"encoding/json"

	"github.com/go-logr/logr"
	"go.lsp.dev/uri"

	"github.com/kotlin-lsp/sidecar-bridge/internal/bridge"
	"github.com/kotlin-lsp/sidecar-bridge/internal/debounce"
	"github.com/kotlin-lsp/sidecar-bridge/internal/jsonrpc2"
	"github.com/kotlin-lsp/sidecar-bridge/internal/session"
)

// Adapter forwards LSP requests from a client Conn into the Session,
// Debouncer, and Bridge.
type Adapter struct {
	logger    logr.Logger
	bridge    *bridge.Bridge
	session   *session.Session
	debouncer *debounce.Debouncer
}

func New(logger logr.Logger, br *bridge.Bridge, sess *session.Session, deb *debounce.Debouncer) *Adapter {
	return &Adapter{logger: logger, bridge: br, session: sess, debouncer: deb}
}

// Register wires every handled method onto the client-facing connection.
func (a *Adapter) Register(conn *jsonrpc2.Conn) {
	conn.OnRequest(a.dispatch)
}

type textDocumentIdentifier struct {
	URI uri.URI `json:"uri"`
}

type didOpenParams struct {
	TextDocument struct {
		URI     uri.URI `json:"uri"`
		Text    string  `json:"text"`
		Version int32   `json:"version"`
	} `json:"textDocument"`
}

type didChangeParams struct {
	TextDocument struct {
		URI     uri.URI `json:"uri"`
		Version int32   `json:"version"`
	} `json:"textDocument"`
	ContentChanges []struct {
		Text string `json:"text"`
	} `json:"contentChanges"`
}

type didCloseParams struct {
	TextDocument textDocumentIdentifier `json:"textDocument"`
}

func (a *Adapter) dispatch(ctx context.Context, req *jsonrpc2.WireRequest) (interface{}, error) {
	switch req.Method {
	case "initialize":
		return a.initialize(ctx, req)
	case "initialized":
		return nil, nil
	case "textDocument/didOpen":
		return nil, a.didOpen(req)
	case "textDocument/didChange":
		return nil, a.didChange(req)
	case "textDocument/didClose":
		return nil, a.didClose(req)
	case "textDocument/hover", "textDocument/completion", "textDocument/definition",
		"textDocument/references", "textDocument/rename", "textDocument/formatting":
		return a.forward(ctx, req)
	default:
		return nil, jsonrpc2.NewErrorf(jsonrpc2.CodeMethodNotFound, "unhandled method: %s", req.Method)
	}
}

func (a *Adapter) initialize(ctx context.Context, req *jsonrpc2.WireRequest) (interface{}, error) {
	if err := a.bridge.WaitForReady(ctx); err != nil {
		a.logger.Error(err, "sidecar not ready during initialize")
	}
	return map[string]interface{}{
		"capabilities": map[string]interface{}{
			"textDocumentSync": map[string]interface{}{
				"openClose": true,
				"change":    1, // full document sync
			},
			"hoverProvider":      true,
			"completionProvider": map[string]interface{}{},
			"definitionProvider": true,
			"referencesProvider": true,
			"renameProvider":     true,
			"documentFormattingProvider": true,
		},
	}, nil
}

func (a *Adapter) didOpen(req *jsonrpc2.WireRequest) error {
	var params didOpenParams
	if err := unmarshalParams(req, &params); err != nil {
		return err
	}
	a.session.Open(params.TextDocument.URI, params.TextDocument.Text, params.TextDocument.Version)
	a.debouncer.Notify(params.TextDocument.URI)
	return nil
}

func (a *Adapter) didChange(req *jsonrpc2.WireRequest) error {
	var params didChangeParams
	if err := unmarshalParams(req, &params); err != nil {
		return err
	}
	if len(params.ContentChanges) == 0 {
		return nil
	}
	text := params.ContentChanges[len(params.ContentChanges)-1].Text
	a.session.Change(params.TextDocument.URI, text, params.TextDocument.Version)
	a.debouncer.Notify(params.TextDocument.URI)
	return nil
}

func (a *Adapter) didClose(req *jsonrpc2.WireRequest) error {
	var params didCloseParams
	if err := unmarshalParams(req, &params); err != nil {
		return err
	}
	a.session.Close(params.TextDocument.URI)
	return nil
}

// forward passes a semantic request straight through to the sidecar,
// using the same method name and raw params - no translation needed since
// both sides speak LSP-shaped JSON already.
func (a *Adapter) forward(ctx context.Context, req *jsonrpc2.WireRequest) (interface{}, error) {
	var params json.RawMessage
	if req.Params != nil {
		params = *req.Params
	}
	var result json.RawMessage
	if err := a.bridge.Request(ctx, req.Method, params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func unmarshalParams(req *jsonrpc2.WireRequest, v interface{}) error {
	if req.Params == nil {
		return nil
	}
	return json.Unmarshal(*req.Params, v)
}
