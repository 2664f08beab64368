package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// registerWirelessTools registers wireless adb tools
func (s *MCPServer) registerWirelessTools() {
	s.server.AddTool(
		mcp.NewTool("wireless_tcpip",
			mcp.WithDescription("Restart adbd on a USB-connected device in TCP/IP mode"),
			mcp.WithString("device_id",
				mcp.Description("Device serial (default: selected device, or the only USB device)"),
			),
			mcp.WithString("port",
				mcp.Description("TCP port (default: 5555)"),
			),
		),
		s.handleWirelessTcpip,
	)

	s.server.AddTool(
		mcp.NewTool("wireless_connect",
			mcp.WithDescription("Connect to a device over the network with adb connect"),
			mcp.WithString("ip",
				mcp.Required(),
				mcp.Description("Device IP address"),
			),
			mcp.WithString("port",
				mcp.Description("TCP port (default: 5555)"),
			),
		),
		s.handleWirelessConnect,
	)

	s.server.AddTool(
		mcp.NewTool("wireless_pair",
			mcp.WithDescription("Pair with a device using the Wireless debugging pairing code (Android 11+)"),
			mcp.WithString("ip",
				mcp.Required(),
				mcp.Description("Device IP address"),
			),
			mcp.WithString("port",
				mcp.Required(),
				mcp.Description("Pairing port shown on the device"),
			),
			mcp.WithString("code",
				mcp.Required(),
				mcp.Description("6-digit pairing code shown on the device"),
			),
		),
		s.handleWirelessPair,
	)

	s.server.AddTool(
		mcp.NewTool("wireless_disconnect",
			mcp.WithDescription("Disconnect a network device with adb disconnect"),
			mcp.WithString("address",
				mcp.Required(),
				mcp.Description("Device address, ip or ip:port (default port: 5555)"),
			),
		),
		s.handleWirelessDisconnect,
	)
}

func (s *MCPServer) handleWirelessTcpip(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	msg, err := s.app.EnableTcpip(stringArg(args, "device_id"), stringArg(args, "port"))
	if err != nil {
		return nil, fmt.Errorf("TCP/IP enable failed: %w", err)
	}
	return textResult(msg), nil
}

func (s *MCPServer) handleWirelessConnect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	ip := stringArg(args, "ip")
	if ip == "" {
		return nil, fmt.Errorf("ip is required")
	}

	out, err := s.app.ConnectWireless(ip, stringArg(args, "port"))
	if err != nil {
		return nil, fmt.Errorf("connection failed: %w", err)
	}
	return textResult(strings.TrimSpace(out)), nil
}

func (s *MCPServer) handleWirelessPair(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	ip := stringArg(args, "ip")
	port := stringArg(args, "port")
	code := stringArg(args, "code")
	if ip == "" || port == "" || code == "" {
		return nil, fmt.Errorf("ip, port and code are required")
	}

	out, err := s.app.PairWireless(ip, port, code)
	if err != nil {
		return nil, fmt.Errorf("pairing failed: %w", err)
	}
	return textResult(strings.TrimSpace(out)), nil
}

func (s *MCPServer) handleWirelessDisconnect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	address := stringArg(request.GetArguments(), "address")
	if address == "" {
		return nil, fmt.Errorf("address is required")
	}

	msg, err := s.app.DisconnectWireless(address)
	if err != nil {
		return nil, fmt.Errorf("disconnect failed: %w", err)
	}
	return textResult(msg), nil
}
