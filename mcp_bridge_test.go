package main

import (
	"errors"
	"strings"
	"testing"
)

func TestMCPBridge_ListDevicesWithoutRefresh(t *testing.T) {
	app := newTestApp(t)
	b := NewMCPBridge(app)

	devices, err := b.ListDevices(false)
	if err != nil {
		t.Fatal(err)
	}
	if len(devices) != 0 {
		t.Errorf("cached list should be empty before any refresh, got %d", len(devices))
	}

	devices, err = b.ListDevices(true)
	if err != nil {
		t.Fatal(err)
	}
	if len(devices) != 2 {
		t.Errorf("Expected 2 devices after refresh, got %d", len(devices))
	}
}

func TestMCPBridge_SelectDeviceRefreshesFirst(t *testing.T) {
	app := newTestApp(t)
	b := NewMCPBridge(app)

	if err := b.SelectDevice("192.168.1.20:5555"); err != nil {
		t.Fatalf("SelectDevice: %v", err)
	}
	if sel := app.GetSelectedDevice(); sel == nil || sel.Serial != "192.168.1.20:5555" {
		t.Errorf("selected = %+v", sel)
	}
}

func TestMCPBridge_BatteryInfo(t *testing.T) {
	app := newTestApp(t)
	b := NewMCPBridge(app)

	if _, err := b.BatteryInfo(""); !errors.Is(err, errNoDevice) {
		t.Errorf("Expected errNoDevice with nothing selected, got %v", err)
	}

	out, err := b.BatteryInfo("R58M123")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "level: 80") {
		t.Errorf("BatteryInfo = %q", out)
	}
}

func TestMCPBridge_ListPackagesFilter(t *testing.T) {
	app := newTestApp(t)
	b := NewMCPBridge(app)

	if _, err := b.ListPackages("R58M123", "system-only"); err == nil {
		t.Error("Expected error for unknown filter")
	}
}

func TestMCPBridge_InstallRequiresPath(t *testing.T) {
	b := NewMCPBridge(newTestApp(t))

	if _, err := b.InstallApk("R58M123", ""); err == nil {
		t.Error("Expected error for empty path")
	}
}

func TestMCPBridge_Version(t *testing.T) {
	if got := NewMCPBridge(NewApp(Options{})).GetAppVersion(); got != version {
		t.Errorf("GetAppVersion() = %q, want %q", got, version)
	}
}
