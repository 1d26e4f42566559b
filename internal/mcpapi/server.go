// Package mcpapi exposes the same read-only surface as internal/readapi to
// AI agents over the Model Context Protocol, grounded on the teacher's
// internal/mcp package (server.go, handlers.go): one tool per read-only
// query, stdio transport, no collection or remediation triggers.
package mcpapi

import (
	"context"
	"os"

	"github.com/dmitriimaksimovdevelop/rcawatch/internal/readapi"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server wraps the MCP server instance over an Adapter.
type Server struct {
	mcpServer *server.MCPServer
	adapter   *readapi.Adapter
}

// NewServer builds an MCP server exposing list_spikes, get_spike,
// get_latest_rca, and get_telemetry_window as tools.
func NewServer(version string, adapter *readapi.Adapter) *Server {
	s := server.NewMCPServer("rcawatch", version, server.WithLogging())
	srv := &Server{mcpServer: s, adapter: adapter}
	srv.registerTools()
	return srv
}

// Start runs the server in stdio mode (blocking).
func (s *Server) Start(ctx context.Context) error {
	return server.NewStdioServer(s.mcpServer).Listen(ctx, os.Stdin, os.Stdout)
}

func (s *Server) registerTools() {
	listSpikesTool := mcp.NewTool("list_spikes",
		mcp.WithDescription("List confirmed CPU/RAM spike incidents, newest first, bounded by the retention window."),
	)
	s.mcpServer.AddTool(listSpikesTool, s.handleListSpikes)

	getSpikeTool := mcp.NewTool("get_spike",
		mcp.WithDescription("Get one spike incident by id, including its attributed events and RCA report if completed."),
		mcp.WithNumber("id",
			mcp.Required(),
			mcp.Description("Incident id, from list_spikes."),
		),
	)
	s.mcpServer.AddTool(getSpikeTool, s.handleGetSpike)

	latestRCATool := mcp.NewTool("get_latest_rca",
		mcp.WithDescription("Get the most recently generated root-cause-analysis report, if any incident has one."),
	)
	s.mcpServer.AddTool(latestRCATool, s.handleGetLatestRCA)

	windowTool := mcp.NewTool("get_telemetry_window",
		mcp.WithDescription("Get the host CPU/RAM utilization series for the trailing window."),
		mcp.WithNumber("seconds",
			mcp.Description("Window length in seconds."),
			mcp.DefaultNumber(60),
		),
	)
	s.mcpServer.AddTool(windowTool, s.handleGetTelemetryWindow)
}
