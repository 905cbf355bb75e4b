// Package api provides the HTTP API over the conversation memory service.
package api

import "net/http"

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8081")
	ListenAddr string

	// MCPHandler is mounted at /mcp when set.
	MCPHandler http.Handler
}
