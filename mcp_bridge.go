package main

import (
	"context"
	"fmt"

	"droidview/mcp"
	"droidview/pkg/bridge"
	"droidview/pkg/toolkit"
	"droidview/pkg/types"
)

// MCPBridge adapts App to mcp.DroidApp. Every call names its device
// explicitly; an empty serial falls back to the selected one.
type MCPBridge struct {
	app *App
}

// NewMCPBridge creates a new MCP bridge
func NewMCPBridge(app *App) *MCPBridge {
	return &MCPBridge{app: app}
}

var _ mcp.DroidApp = (*MCPBridge)(nil)

// ========================================
// Devices
// ========================================

func (b *MCPBridge) ListDevices(refresh bool) ([]types.Device, error) {
	if !refresh {
		return b.app.GetDevices(), nil
	}
	return b.app.RefreshDevices()
}

func (b *MCPBridge) SelectDevice(serial string) error {
	if len(b.app.GetDevices()) == 0 {
		if _, err := b.app.refreshDevices(b.app.opCtx(), true); err != nil {
			return err
		}
	}
	return b.app.SelectDevice(serial)
}

func (b *MCPBridge) RestartAdb() error {
	return b.app.RestartAdb()
}

// ========================================
// Wireless
// ========================================

func (b *MCPBridge) EnableTcpip(serial, port string) (string, error) {
	return b.app.EnableTcpip(serial, port)
}

func (b *MCPBridge) ConnectWireless(ip, port string) (string, error) {
	return b.app.ConnectWireless(ip, port)
}

func (b *MCPBridge) PairWireless(ip, port, code string) (string, error) {
	return b.app.PairWireless(ip, port, code)
}

func (b *MCPBridge) DisconnectWireless(address string) (string, error) {
	return b.app.DisconnectWireless(address)
}

// ========================================
// Toolkit
// ========================================

func (b *MCPBridge) Screenshot(serial string) (string, error) {
	return b.app.screenshot(serial)
}

func (b *MCPBridge) RecordScreen(serial string, seconds, bitrateKbps int) (string, error) {
	return b.app.recordScreen(serial, toolkit.RecordOptions{Seconds: seconds, BitrateKbps: bitrateKbps})
}

func (b *MCPBridge) InstallApk(serial, path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("apk path is required")
	}
	return b.app.installApk(serial, path)
}

func (b *MCPBridge) Swipe(serial, direction string) error {
	return b.app.swipe(serial, direction)
}

func (b *MCPBridge) Reboot(serial, mode string) (string, error) {
	return b.app.reboot(serial, mode)
}

// The info queries run inline: an MCP call already waits for its answer,
// so there is nothing to gain from the background dispatcher.

func (b *MCPBridge) DeviceIdentifiers(serial string) (string, error) {
	return b.query(serial, func(ctx context.Context, adb *bridge.Adb, serial string) string {
		return toolkit.FormatIdentifiers(toolkit.Identifiers(ctx, adb, serial))
	})
}

func (b *MCPBridge) DisplayInfo(serial string) (string, error) {
	return b.query(serial, toolkit.DisplayInfo)
}

func (b *MCPBridge) BatteryInfo(serial string) (string, error) {
	return b.query(serial, toolkit.BatteryInfo)
}

func (b *MCPBridge) ListPackages(serial, filter string) ([]string, error) {
	var f toolkit.PackageFilter
	switch filter {
	case "", "third-party":
		f = toolkit.PackagesThirdParty
	case "enabled":
		f = toolkit.PackagesEnabled
	case "all":
		f = toolkit.PackagesAll
	default:
		return nil, fmt.Errorf("unknown package filter %q (want third-party, enabled or all)", filter)
	}

	target, err := b.app.targetSerial(serial)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(b.app.opCtx(), taskTimeout)
	defer cancel()
	return toolkit.ListPackages(ctx, b.app.adbBridge(), target, f)
}

func (b *MCPBridge) UninstallPackages(serial string, pkgs []string) (types.BatchResult, error) {
	return b.app.uninstallPackages(serial, pkgs)
}

func (b *MCPBridge) DisablePackages(serial string, pkgs []string) (types.BatchResult, error) {
	return b.app.disablePackages(serial, pkgs)
}

// ========================================
// Mirroring
// ========================================

func (b *MCPBridge) StartMirror(serial string) (string, error) {
	return b.app.startMirror(serial)
}

func (b *MCPBridge) StopMirror(serial string) (string, error) {
	return b.app.stopMirror(serial)
}

func (b *MCPBridge) MirrorStatus() []types.MirrorStatus {
	return b.app.MirrorStatus()
}

// ========================================
// State
// ========================================

func (b *MCPBridge) GetConfig() mcp.Config {
	return b.app.GetConfig()
}

func (b *MCPBridge) GetHistory(limit int) ([]types.HistoryEntry, error) {
	return b.app.GetHistory(limit)
}

func (b *MCPBridge) GetAppVersion() string {
	return version
}

func (b *MCPBridge) query(serial string, fn func(context.Context, *bridge.Adb, string) string) (string, error) {
	target, err := b.app.targetSerial(serial)
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(b.app.opCtx(), taskTimeout)
	defer cancel()
	return fn(ctx, b.app.adbBridge(), target), nil
}
