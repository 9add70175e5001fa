package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/partsdesk/internal/catalog"
	"github.com/ziadkadry99/partsdesk/internal/router"
	"github.com/ziadkadry99/partsdesk/internal/stream"
	"github.com/ziadkadry99/partsdesk/internal/vectordb"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Resolver answers a chat question. router.Router implements it.
type Resolver interface {
	Handle(ctx context.Context, req router.Request, sink stream.Sink) (router.Classification, error)
}

// Deps are the tool backends. Vectors and Resolver are optional; their tools
// are only registered when set.
type Deps struct {
	Catalog  catalog.Store
	Compat   router.Checker
	Vectors  vectordb.VectorStore
	Resolver Resolver
}

// Server wraps an MCP server that exposes catalog tools.
type Server struct {
	deps Deps
	mcp  *server.MCPServer
}

// NewServer creates a new MCP server with the given dependencies.
func NewServer(deps Deps) *Server {
	s := &Server{deps: deps}
	s.mcp = server.NewMCPServer(
		"partsdesk",
		Version,
		server.WithToolCapabilities(false),
	)
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	s.mcp.AddTool(searchPartsTool, s.handleSearchParts)
	s.mcp.AddTool(getPartTool, s.handleGetPart)
	s.mcp.AddTool(checkCompatibilityTool, s.handleCheckCompatibility)
	s.mcp.AddTool(searchRepairsTool, s.handleSearchRepairs)
	if s.deps.Vectors != nil {
		s.mcp.AddTool(semanticSearchTool, s.handleSemanticSearch)
	}
	if s.deps.Resolver != nil {
		s.mcp.AddTool(askTool, s.handleAsk)
	}
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
