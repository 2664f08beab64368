package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	uriDevices = "droidview://devices"
	uriConfig  = "droidview://config"
	uriHistory = "droidview://history"
)

// registerResources registers all MCP resources
func (s *MCPServer) registerResources() {
	s.server.AddResource(
		mcp.NewResource(
			uriDevices,
			"Connected Android devices",
			mcp.WithMIMEType("application/json"),
		),
		s.handleDevicesResource,
	)

	s.server.AddResource(
		mcp.NewResource(
			uriConfig,
			"DroidView settings",
			mcp.WithMIMEType("application/json"),
		),
		s.handleConfigResource,
	)

	s.server.AddResource(
		mcp.NewResource(
			uriHistory,
			"Recent device actions",
			mcp.WithMIMEType("application/json"),
		),
		s.handleHistoryResource,
	)
}

// handleDevicesResource handles droidview://devices
func (s *MCPServer) handleDevicesResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	devices, err := s.app.ListDevices(false)
	if err != nil {
		return nil, fmt.Errorf("failed to get devices: %w", err)
	}
	if devices == nil {
		devices = []Device{}
	}
	return jsonResource(request.Params.URI, devices)
}

// handleConfigResource handles droidview://config
func (s *MCPServer) handleConfigResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonResource(request.Params.URI, s.app.GetConfig())
}

// handleHistoryResource handles droidview://history
func (s *MCPServer) handleHistoryResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	entries, err := s.app.GetHistory(100)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	if entries == nil {
		entries = []HistoryEntry{}
	}
	return jsonResource(request.Params.URI, entries)
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}
