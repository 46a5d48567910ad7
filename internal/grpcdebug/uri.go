package grpcdebug

import "go.lsp.dev/uri"

func parseDebugURI(s string) uri.URI {
	return uri.URI(s)
}
