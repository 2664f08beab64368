package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// registerDeviceTools registers device management tools
func (s *MCPServer) registerDeviceTools() {
	// device_list - List connected devices
	s.server.AddTool(
		mcp.NewTool("device_list",
			mcp.WithDescription("List Android devices known to adb"),
			mcp.WithBoolean("refresh",
				mcp.Description("Query adb again instead of returning the last known list (default: true)"),
			),
		),
		s.handleDeviceList,
	)

	// device_select - Choose the default device
	s.server.AddTool(
		mcp.NewTool("device_select",
			mcp.WithDescription("Select the device used when a tool is called without device_id"),
			mcp.WithString("device_id",
				mcp.Required(),
				mcp.Description("Device serial to select"),
			),
		),
		s.handleDeviceSelect,
	)

	// adb_restart - Restart the adb server
	s.server.AddTool(
		mcp.NewTool("adb_restart",
			mcp.WithDescription("Restart the adb server (kill-server then start-server) and refresh the device list"),
		),
		s.handleAdbRestart,
	)
}

func (s *MCPServer) handleDeviceList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	refresh := true
	if v, ok := request.GetArguments()["refresh"].(bool); ok {
		refresh = v
	}

	devices, err := s.app.ListDevices(refresh)
	if err != nil {
		return nil, fmt.Errorf("failed to get devices: %w", err)
	}

	if len(devices) == 0 {
		return textResult("No devices connected"), nil
	}

	result := fmt.Sprintf("Found %d device(s):\n\n", len(devices))
	for i, d := range devices {
		connType := ""
		if d.Wireless {
			connType = " [wireless]"
		}
		model := d.Model
		if model == "" {
			model = "unknown"
		}
		result += fmt.Sprintf("%d. %s%s\n   Model: %s, State: %s\n", i+1, d.Serial, connType, model, d.Status)
	}

	jsonData, _ := json.MarshalIndent(devices, "", "  ")

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(result),
			mcp.NewTextContent(fmt.Sprintf("\nJSON data:\n```json\n%s\n```", string(jsonData))),
		},
	}, nil
}

func (s *MCPServer) handleDeviceSelect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	deviceID := stringArg(request.GetArguments(), "device_id")
	if deviceID == "" {
		return nil, fmt.Errorf("device_id is required")
	}

	if err := s.app.SelectDevice(deviceID); err != nil {
		return nil, fmt.Errorf("failed to select device: %w", err)
	}
	return textResult(fmt.Sprintf("Selected device %s", deviceID)), nil
}

func (s *MCPServer) handleAdbRestart(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.app.RestartAdb(); err != nil {
		return nil, fmt.Errorf("ADB restart failed: %w", err)
	}
	return textResult("ADB restarted"), nil
}
