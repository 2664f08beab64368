package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// registerMirrorTools registers scrcpy mirroring tools
func (s *MCPServer) registerMirrorTools() {
	s.server.AddTool(
		mcp.NewTool("mirror_start",
			mcp.WithDescription("Open a scrcpy mirror window for a device using the saved settings"),
			mcp.WithString("device_id",
				mcp.Description("Device serial (default: selected device)"),
			),
		),
		s.handleMirrorStart,
	)

	s.server.AddTool(
		mcp.NewTool("mirror_stop",
			mcp.WithDescription("Close scrcpy mirror windows"),
			mcp.WithString("device_id",
				mcp.Description("Device serial (default: stop every mirror)"),
			),
		),
		s.handleMirrorStop,
	)

	s.server.AddTool(
		mcp.NewTool("mirror_status",
			mcp.WithDescription("List running scrcpy mirror sessions"),
		),
		s.handleMirrorStatus,
	)
}

func (s *MCPServer) handleMirrorStart(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	msg, err := s.app.StartMirror(stringArg(request.GetArguments(), "device_id"))
	if err != nil {
		return nil, fmt.Errorf("failed to start scrcpy: %w", err)
	}
	return textResult(msg), nil
}

func (s *MCPServer) handleMirrorStop(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	msg, err := s.app.StopMirror(stringArg(request.GetArguments(), "device_id"))
	if err != nil {
		return nil, fmt.Errorf("failed to stop scrcpy: %w", err)
	}
	return textResult(msg), nil
}

func (s *MCPServer) handleMirrorStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessions := s.app.MirrorStatus()
	if len(sessions) == 0 {
		return textResult("No mirror sessions running"), nil
	}
	jsonData, _ := json.MarshalIndent(sessions, "", "  ")
	return textResult(fmt.Sprintf("%d mirror session(s):\n```json\n%s\n```", len(sessions), string(jsonData))), nil
}
