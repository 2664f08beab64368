package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// registerToolkitTools registers the device toolkit: capture, input, power,
// device queries and package management
func (s *MCPServer) registerToolkitTools() {
	// Capture
	s.server.AddTool(
		mcp.NewTool("screenshot",
			mcp.WithDescription("Save a PNG screenshot of the device to the DroidView output folder"),
			mcp.WithString("device_id",
				mcp.Description("Device serial (default: selected device)"),
			),
		),
		s.handleScreenshot,
	)

	s.server.AddTool(
		mcp.NewTool("screen_record",
			mcp.WithDescription("Record the device screen with screenrecord and pull the MP4 to the output folder. Blocks for the recording duration."),
			mcp.WithString("device_id",
				mcp.Description("Device serial (default: selected device)"),
			),
			mcp.WithNumber("seconds",
				mcp.Description("Recording length in seconds (default: 10, max: 180)"),
			),
			mcp.WithNumber("bitrate_kbps",
				mcp.Description("Video bitrate in Kbps (default: 8000, range 100-10000)"),
			),
		),
		s.handleScreenRecord,
	)

	s.server.AddTool(
		mcp.NewTool("install_apk",
			mcp.WithDescription("Install an APK file from the host with adb install -r"),
			mcp.WithString("device_id",
				mcp.Description("Device serial (default: selected device)"),
			),
			mcp.WithString("path",
				mcp.Required(),
				mcp.Description("Absolute path of the .apk on the host"),
			),
		),
		s.handleInstallApk,
	)

	// Input and power
	s.server.AddTool(
		mcp.NewTool("swipe",
			mcp.WithDescription("Send a swipe gesture across the middle of the screen"),
			mcp.WithString("device_id",
				mcp.Description("Device serial (default: selected device)"),
			),
			mcp.WithString("direction",
				mcp.Required(),
				mcp.Description("up, down, left or right"),
			),
		),
		s.handleSwipe,
	)

	s.server.AddTool(
		mcp.NewTool("reboot",
			mcp.WithDescription("Reboot or power off the device. Requires confirmation."),
			mcp.WithString("device_id",
				mcp.Description("Device serial (default: selected device)"),
			),
			mcp.WithString("mode",
				mcp.Description("system, recovery, bootloader or shutdown (default: system)"),
			),
			mcp.WithBoolean("confirm",
				mcp.Description("Set to true to skip the confirmation prompt"),
			),
		),
		s.handleReboot,
	)

	// Queries
	s.server.AddTool(
		mcp.NewTool("device_identifiers",
			mcp.WithDescription("Read IMEI, serial number and Android ID"),
			mcp.WithString("device_id",
				mcp.Description("Device serial (default: selected device)"),
			),
		),
		s.handleDeviceIdentifiers,
	)

	s.server.AddTool(
		mcp.NewTool("display_info",
			mcp.WithDescription("Read screen size and density"),
			mcp.WithString("device_id",
				mcp.Description("Device serial (default: selected device)"),
			),
		),
		s.handleDisplayInfo,
	)

	s.server.AddTool(
		mcp.NewTool("battery_info",
			mcp.WithDescription("Read dumpsys battery"),
			mcp.WithString("device_id",
				mcp.Description("Device serial (default: selected device)"),
			),
		),
		s.handleBatteryInfo,
	)

	// Packages
	s.server.AddTool(
		mcp.NewTool("package_list",
			mcp.WithDescription("List installed packages"),
			mcp.WithString("device_id",
				mcp.Description("Device serial (default: selected device)"),
			),
			mcp.WithString("filter",
				mcp.Description("third-party, enabled or all (default: third-party)"),
			),
		),
		s.handlePackageList,
	)

	s.server.AddTool(
		mcp.NewTool("uninstall_packages",
			mcp.WithDescription("Uninstall packages. Requires confirmation."),
			mcp.WithString("device_id",
				mcp.Description("Device serial (default: selected device)"),
			),
			mcp.WithString("packages",
				mcp.Required(),
				mcp.Description("Comma-separated package names"),
			),
			mcp.WithBoolean("confirm",
				mcp.Description("Set to true to skip the confirmation prompt"),
			),
		),
		s.handleUninstallPackages,
	)

	s.server.AddTool(
		mcp.NewTool("disable_packages",
			mcp.WithDescription("Disable packages for the current user (pm disable-user). Requires confirmation."),
			mcp.WithString("device_id",
				mcp.Description("Device serial (default: selected device)"),
			),
			mcp.WithString("packages",
				mcp.Required(),
				mcp.Description("Comma-separated package names"),
			),
			mcp.WithBoolean("confirm",
				mcp.Description("Set to true to skip the confirmation prompt"),
			),
		),
		s.handleDisablePackages,
	)
}

// packagesArg accepts a comma-separated string or a JSON array
func packagesArg(args map[string]any) []string {
	if list := stringSliceArg(args, "packages"); list != nil {
		return list
	}
	var pkgs []string
	for _, p := range strings.Split(stringArg(args, "packages"), ",") {
		if p = strings.TrimSpace(p); p != "" {
			pkgs = append(pkgs, p)
		}
	}
	return pkgs
}

func (s *MCPServer) handleScreenshot(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := s.app.Screenshot(stringArg(request.GetArguments(), "device_id"))
	if err != nil {
		return nil, fmt.Errorf("failed to take screenshot: %w", err)
	}
	return textResult(fmt.Sprintf("Screenshot saved to %s", path)), nil
}

func (s *MCPServer) handleScreenRecord(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	seconds := intArg(args, "seconds", 10)
	kbps := intArg(args, "bitrate_kbps", 8000)

	path, err := s.app.RecordScreen(stringArg(args, "device_id"), seconds, kbps)
	if err != nil {
		return nil, fmt.Errorf("failed to record screen: %w", err)
	}
	return textResult(fmt.Sprintf("Screenrecord saved to %s", path)), nil
}

func (s *MCPServer) handleInstallApk(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	path := stringArg(args, "path")
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}

	msg, err := s.app.InstallApk(stringArg(args, "device_id"), path)
	if err != nil {
		return nil, fmt.Errorf("failed to install APK: %w", err)
	}
	return textResult(msg), nil
}

func (s *MCPServer) handleSwipe(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	direction := stringArg(args, "direction")
	if direction == "" {
		return nil, fmt.Errorf("direction is required")
	}

	if err := s.app.Swipe(stringArg(args, "device_id"), direction); err != nil {
		return nil, fmt.Errorf("failed to send swipe command: %w", err)
	}
	return textResult("Swipe sent successfully"), nil
}

func (s *MCPServer) handleReboot(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	deviceID := stringArg(args, "device_id")
	mode := stringArg(args, "mode")
	if mode == "" {
		mode = "system"
	}

	target := deviceID
	if target == "" {
		target = "the selected device"
	}
	if !s.confirmed(ctx, args, "Reboot", fmt.Sprintf("Reboot %s into %s", target, mode)) {
		return needsConfirmation("Reboot"), nil
	}

	msg, err := s.app.Reboot(deviceID, mode)
	if err != nil {
		return nil, fmt.Errorf("reboot failed: %w", err)
	}
	return textResult(msg), nil
}

func (s *MCPServer) handleDeviceIdentifiers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, err := s.app.DeviceIdentifiers(stringArg(request.GetArguments(), "device_id"))
	if err != nil {
		return nil, fmt.Errorf("failed to read identifiers: %w", err)
	}
	return textResult(out), nil
}

func (s *MCPServer) handleDisplayInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, err := s.app.DisplayInfo(stringArg(request.GetArguments(), "device_id"))
	if err != nil {
		return nil, fmt.Errorf("failed to read display info: %w", err)
	}
	return textResult(out), nil
}

func (s *MCPServer) handleBatteryInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, err := s.app.BatteryInfo(stringArg(request.GetArguments(), "device_id"))
	if err != nil {
		return nil, fmt.Errorf("failed to read battery info: %w", err)
	}
	return textResult(out), nil
}

func (s *MCPServer) handlePackageList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	pkgs, err := s.app.ListPackages(stringArg(args, "device_id"), stringArg(args, "filter"))
	if err != nil {
		return nil, fmt.Errorf("failed to list packages: %w", err)
	}
	if len(pkgs) == 0 {
		return textResult("No packages found"), nil
	}
	return textResult(fmt.Sprintf("Found %d package(s):\n%s", len(pkgs), strings.Join(pkgs, "\n"))), nil
}

func (s *MCPServer) handleUninstallPackages(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.packageBatch(ctx, request, "Uninstall", s.app.UninstallPackages)
}

func (s *MCPServer) handleDisablePackages(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.packageBatch(ctx, request, "Disable", s.app.DisablePackages)
}

func (s *MCPServer) packageBatch(
	ctx context.Context,
	request mcp.CallToolRequest,
	operation string,
	apply func(serial string, pkgs []string) (BatchResult, error),
) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	pkgs := packagesArg(args)
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("packages is required")
	}

	if !s.confirmed(ctx, args, operation, fmt.Sprintf("%s %d package(s): %s", operation, len(pkgs), strings.Join(pkgs, ", "))) {
		return needsConfirmation(operation), nil
	}

	res, err := apply(stringArg(args, "device_id"), pkgs)
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w", strings.ToLower(operation), err)
	}

	jsonData, _ := json.MarshalIndent(res, "", "  ")
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(res.Message),
			mcp.NewTextContent(fmt.Sprintf("\nJSON data:\n```json\n%s\n```", string(jsonData))),
		},
	}, nil
}
