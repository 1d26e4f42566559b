package mcpapi

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) handleListSpikes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp := s.adapter.Spikes()
	return jsonResult(resp)
}

func (s *Server) handleGetSpike(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getArgs(request)
	id, ok := numberArg(args, "id")
	if !ok {
		return errResult("id is required"), nil
	}

	inc, found := s.adapter.Spike(int64(id))
	if !found {
		return errResult(fmt.Sprintf("no incident with id %d", int64(id))), nil
	}
	return jsonResult(inc)
}

func (s *Server) handleGetLatestRCA(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp := s.adapter.LatestRCA()
	if resp.LatestRCA == nil {
		return newTextResult("no incident has a completed rca yet"), nil
	}
	return jsonResult(resp)
}

func (s *Server) handleGetTelemetryWindow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getArgs(request)
	seconds, ok := numberArg(args, "seconds")
	if !ok {
		seconds = 60
	}
	resp := s.adapter.TelemetryWindow(int(seconds))
	return jsonResult(resp)
}

// getArgs safely extracts the arguments map from a CallToolRequest.
func getArgs(request mcp.CallToolRequest) map[string]interface{} {
	if request.Params.Arguments == nil {
		return map[string]interface{}{}
	}
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return map[string]interface{}{}
	}
	return args
}

func numberArg(args map[string]interface{}, key string) (float64, bool) {
	val, ok := args[key]
	if !ok || val == nil {
		return 0, false
	}
	f, ok := val.(float64)
	return f, ok
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return errResult(fmt.Sprintf("json marshal failed: %v", err)), nil
	}
	return newTextResult(string(raw)), nil
}

func newTextResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func errResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
	}
}
