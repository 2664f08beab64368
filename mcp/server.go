// Package mcp exposes DroidView's device operations over the Model Context
// Protocol, so automation clients can drive the same adb/scrcpy actions as
// the window.
package mcp

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"

	"droidview/pkg/config"
	"droidview/pkg/types"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type (
	Device       = types.Device
	BatchResult  = types.BatchResult
	MirrorStatus = types.MirrorStatus
	HistoryEntry = types.HistoryEntry
	Config       = config.Config
)

// DroidApp is what the MCP server needs from the application. An empty
// serial means the selected device.
type DroidApp interface {
	// Devices
	ListDevices(refresh bool) ([]Device, error)
	SelectDevice(serial string) error
	RestartAdb() error

	// Wireless
	EnableTcpip(serial, port string) (string, error)
	ConnectWireless(ip, port string) (string, error)
	PairWireless(ip, port, code string) (string, error)
	DisconnectWireless(address string) (string, error)

	// Toolkit
	Screenshot(serial string) (string, error)
	RecordScreen(serial string, seconds, bitrateKbps int) (string, error)
	InstallApk(serial, path string) (string, error)
	Swipe(serial, direction string) error
	Reboot(serial, mode string) (string, error)
	DeviceIdentifiers(serial string) (string, error)
	DisplayInfo(serial string) (string, error)
	BatteryInfo(serial string) (string, error)
	ListPackages(serial, filter string) ([]string, error)
	UninstallPackages(serial string, pkgs []string) (BatchResult, error)
	DisablePackages(serial string, pkgs []string) (BatchResult, error)

	// Mirroring
	StartMirror(serial string) (string, error)
	StopMirror(serial string) (string, error)
	MirrorStatus() []MirrorStatus

	// State
	GetConfig() Config
	GetHistory(limit int) ([]HistoryEntry, error)
	GetAppVersion() string
}

// MCPServer wraps the mcp-go server
type MCPServer struct {
	app       DroidApp
	server    *server.MCPServer
	stdio     *server.StdioServer
	mu        sync.Mutex
	isRunning bool
	cancel    context.CancelFunc
}

// NewMCPServer creates a server with every tool and resource registered
func NewMCPServer(app DroidApp) *MCPServer {
	mcpServer := server.NewMCPServer(
		"droidview",
		app.GetAppVersion(),
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, true),
		server.WithElicitation(),
		server.WithLogging(),
	)

	s := &MCPServer{
		app:    app,
		server: mcpServer,
	}

	s.registerDeviceTools()
	s.registerWirelessTools()
	s.registerToolkitTools()
	s.registerMirrorTools()
	s.registerResources()

	return s
}

// Start serves on stdio and blocks until stdin closes or SIGINT
func (s *MCPServer) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("MCP server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	return s.run()
}

func (s *MCPServer) run() error {
	s.stdio = server.NewStdioServer(s.server)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	fmt.Fprintln(os.Stderr, "[MCP] DroidView MCP server started")
	err := s.stdio.Listen(ctx, os.Stdin, os.Stdout)
	if err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "[MCP] Server error: %v\n", err)
	}

	s.mu.Lock()
	s.isRunning = false
	s.cancel = nil
	s.mu.Unlock()

	if ctx.Err() != nil {
		return nil
	}
	return err
}

// Stop ends a running Start; it is a no-op otherwise
func (s *MCPServer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	s.isRunning = false
}

// IsRunning reports whether Start is serving
func (s *MCPServer) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// confirmed reports whether a destructive operation may proceed: either the
// caller passed confirm=true, or the client accepted an elicitation prompt
func (s *MCPServer) confirmed(ctx context.Context, args map[string]any, operation, details string) bool {
	if ok, _ := args["confirm"].(bool); ok {
		return true
	}
	ok, err := s.requestConfirmation(ctx, operation, details)
	if err != nil {
		return false
	}
	return ok
}

func (s *MCPServer) requestConfirmation(ctx context.Context, operation, details string) (bool, error) {
	elicitationRequest := mcp.ElicitationRequest{
		Params: mcp.ElicitationParams{
			Message: fmt.Sprintf("Dangerous operation: %s\n\nDetails: %s\n\nDo you want to proceed?", operation, details),
			RequestedSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"confirm": map[string]any{
						"type":        "boolean",
						"description": "Confirm to proceed with this operation",
					},
				},
				"required": []string{"confirm"},
			},
		},
	}

	result, err := s.server.RequestElicitation(ctx, elicitationRequest)
	if err != nil {
		return false, fmt.Errorf("failed to request confirmation: %w", err)
	}
	if result.Action != mcp.ElicitationResponseActionAccept {
		return false, nil
	}
	data, ok := result.Content.(map[string]any)
	if !ok {
		return false, fmt.Errorf("unexpected response format")
	}
	confirm, _ := data["confirm"].(bool)
	return confirm, nil
}

// needsConfirmation is returned when a destructive tool was neither
// confirmed by argument nor by the client
func needsConfirmation(operation string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(fmt.Sprintf("%s not performed: pass confirm=true to proceed", operation)),
		},
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(text)},
	}
}

// stringArg returns args[key] or "" when absent or not a string
func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

// intArg accepts JSON numbers, which decode as float64
func intArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}

func stringSliceArg(args map[string]any, key string) []string {
	switch v := args[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
