// Package mcp provides an MCP (Model Context Protocol) server exposing the
// conversation memory to models.
package mcp

import (
	"errors"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/papercomputeco/strata/pkg/service"
	"github.com/papercomputeco/strata/pkg/utils"
)

type Config struct {
	// Service answers every tool call
	Service *service.Service

	// Noop for empty MCP server
	Noop bool

	// Logger is the configured zap logger
	Logger *zap.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the memory tools.
func NewServer(c Config) (*Server, error) {
	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "strata",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	if !c.Noop {
		if c.Service == nil {
			return nil, errors.New("memory service is required")
		}
		if c.Logger == nil {
			return nil, errors.New("logger is required")
		}

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        contextToolName,
			Description: contextDescription,
		}, s.handleContext)

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        rememberToolName,
			Description: rememberDescription,
		}, s.handleRemember)

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        intentToolName,
			Description: intentDescription,
		}, s.handleDetectIntent)
	}

	s.mcpServer = mcpServer

	// Create a streamable HTTP net/http handler for stateless operations
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// MCPServer returns the underlying server, e.g. to connect other transports.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}
