// Package mcp exposes advanced-set sessions and committed history to MCP
// clients. It is read-only: mutations go through the HTTP API, tools here
// only observe.
package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("RepFlow", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("RepFlow advanced-set execution server. Inspect live drop-set, myo-reps, pyramidal, rest-pause and MAV sessions, preview protocol configurations, and query committed set history."),
	)

	h := &handlers{ds: ds, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolGetCurrentSession, Handler: h.getCurrentSession},
		server.ServerTool{Tool: toolGetSession, Handler: h.getSession},
		server.ServerTool{Tool: toolGetActiveSessions, Handler: h.getActiveSessions},
		server.ServerTool{Tool: toolGetSetHistory, Handler: h.getSetHistory},
		server.ServerTool{Tool: toolPreviewProtocol, Handler: h.previewProtocol},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resCurrentSession, Handler: h.currentSessionResource},
		server.ServerResource{Resource: resRecentSets, Handler: h.recentSetsResource},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}

// --- Resource definitions ---

var resCurrentSession = mcp.NewResource(
	"repflow://current_session",
	"Current Session",
	mcp.WithResourceDescription("The advanced-set session most recently worked on, with execution state, completed sets and rest timer"),
	mcp.WithMIMEType("application/json"),
)

var resRecentSets = mcp.NewResource(
	"repflow://recent_sets",
	"Recent Sets",
	mcp.WithResourceDescription("Committed set records from the last 14 days"),
	mcp.WithMIMEType("application/json"),
)
