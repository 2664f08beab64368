package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"droidview/pkg/config"
	"droidview/pkg/tasks"
)

// fakeAdb answers the commands the App issues during these tests
const fakeAdb = `#!/bin/sh
echo "$*" >> "$(dirname "$0")/adb.log"
case "$*" in
  "devices -l")
    printf 'List of devices attached\n'
    printf 'R58M123        device usb:1-1 product:oriole model:Pixel_6 device:oriole transport_id:1\n'
    printf '192.168.1.20:5555 device product:x model:Tab device:y transport_id:2\n\n'
    ;;
  *"wm size"*)   echo "Physical size: 1080x2400" ;;
  *"input swipe"*) ;;
  *"dumpsys battery"*) printf 'Current Battery Service state:\n  level: 80\n' ;;
  *"tcpip"*)     echo "restarting in TCP mode port: $4" ;;
  "disconnect 192.168.1.20:5555") echo "disconnected 192.168.1.20:5555" ;;
  disconnect*)   echo "error: no such device '$2'"; exit 1 ;;
  *)             echo "unexpected: $*" >&2; exit 1 ;;
esac
`

// newTestApp starts an App in headless mode against a scripted adb with its
// config and history in a temp dir
func newTestApp(t *testing.T) *App {
	t.Helper()
	return newTestAppWithScrcpy(t, "")
}

// newTestAppWithScrcpy is newTestApp with mirroring enabled and scrcpy
// replaced by scrcpyScript. An empty script keeps mirroring disabled.
func newTestAppWithScrcpy(t *testing.T, scrcpyScript string) *App {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("scripted adb requires a POSIX shell")
	}

	dir := t.TempDir()
	adbPath := filepath.Join(dir, "adb")
	if err := os.WriteFile(adbPath, []byte(fakeAdb), 0o755); err != nil {
		t.Fatalf("write fake adb: %v", err)
	}

	cfg := config.Default()
	cfg.AdbPath = adbPath
	cfg.ScrcpyPath = filepath.Join(dir, "scrcpy")
	if scrcpyScript != "" {
		if err := os.WriteFile(cfg.ScrcpyPath, []byte("#!/bin/sh\n"+scrcpyScript+"\n"), 0o755); err != nil {
			t.Fatalf("write fake scrcpy: %v", err)
		}
	}
	cfgPath := filepath.Join(dir, "config.toml")
	if err := cfg.Save(cfgPath); err != nil {
		t.Fatalf("save config: %v", err)
	}

	app := NewApp(Options{ConfigPath: cfgPath, DebugDisableScrcpy: scrcpyScript == ""})
	if err := app.startMCP(); err != nil {
		t.Fatalf("startMCP: %v", err)
	}
	t.Cleanup(func() { app.Shutdown(context.Background()) })
	return app
}

// adbCalls returns the argument lines the scripted adb has received
func adbCalls(t *testing.T, app *App) []string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(filepath.Dir(app.adbBridge().Path()), "adb.log"))
	if err != nil && !os.IsNotExist(err) {
		t.Fatal(err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met within 5s")
}

// ==================== devices ====================

func TestRefreshDevices_SelectsFirstUsable(t *testing.T) {
	app := newTestApp(t)

	devices, err := app.refreshDevices(context.Background(), true)
	if err != nil {
		t.Fatalf("refreshDevices: %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("Expected 2 devices, got %d", len(devices))
	}
	if !devices[1].Wireless {
		t.Error("192.168.1.20:5555 should be marked wireless")
	}
	if got := app.GetStatus(); got != "Found 2 device(s)" {
		t.Errorf("status = %q", got)
	}

	sel := app.GetSelectedDevice()
	if sel == nil || sel.Serial != "R58M123" {
		t.Errorf("Expected R58M123 selected, got %+v", sel)
	}

	if err := app.SelectDevice("192.168.1.20:5555"); err != nil {
		t.Fatalf("SelectDevice: %v", err)
	}
	if err := app.SelectDevice("missing"); err == nil {
		t.Error("Selecting an unknown serial should fail")
	}
	if sel := app.GetSelectedDevice(); sel.Serial != "192.168.1.20:5555" {
		t.Errorf("selection changed by failed select: %s", sel.Serial)
	}
}

func TestTargetSerial(t *testing.T) {
	app := newTestApp(t)

	if _, err := app.targetSerial(""); !errors.Is(err, errNoDevice) {
		t.Errorf("Expected errNoDevice before refresh, got %v", err)
	}
	if got, err := app.targetSerial("explicit"); err != nil || got != "explicit" {
		t.Errorf("explicit serial = %q, %v", got, err)
	}

	if _, err := app.refreshDevices(context.Background(), true); err != nil {
		t.Fatal(err)
	}
	if got, _ := app.targetSerial(""); got != "R58M123" {
		t.Errorf("default serial = %q, want R58M123", got)
	}
}

func TestNoAdbConfigured(t *testing.T) {
	app := NewApp(Options{})

	if _, err := app.targetSerial(""); !errors.Is(err, errNoDevice) {
		t.Errorf("Expected errNoDevice, got %v", err)
	}
	if app.GetStatus() != statusNoDevice {
		t.Errorf("status = %q", app.GetStatus())
	}
}

// ==================== toolkit ====================

func TestSwipe_RecordsHistory(t *testing.T) {
	app := newTestApp(t)
	if _, err := app.refreshDevices(context.Background(), true); err != nil {
		t.Fatal(err)
	}

	if err := app.Swipe("up"); err != nil {
		t.Fatalf("Swipe: %v", err)
	}
	if app.GetStatus() != "Swipe sent successfully" {
		t.Errorf("status = %q", app.GetStatus())
	}

	if err := app.Swipe("sideways"); err == nil {
		t.Error("Expected error for unknown direction")
	}
	if app.GetStatus() != "Failed to send swipe command" {
		t.Errorf("status = %q", app.GetStatus())
	}

	entries, err := app.GetHistory(10)
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 history entries, got %d", len(entries))
	}
	if entries[0].Detail != "sideways" || entries[0].Success {
		t.Errorf("newest entry = %+v", entries[0])
	}
	if entries[1].Detail != "up" || !entries[1].Success || entries[1].Serial != "R58M123" {
		t.Errorf("oldest entry = %+v", entries[1])
	}

	if err := app.ClearHistory(); err != nil {
		t.Fatal(err)
	}
	if entries, _ := app.GetHistory(10); len(entries) != 0 {
		t.Errorf("Expected empty history, got %d", len(entries))
	}
}

func TestSavedMessage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "screenshot_R58M123.png")
	if err := os.WriteFile(path, make([]byte, 2048), 0o644); err != nil {
		t.Fatal(err)
	}
	if got, want := savedMessage("Screenshot", path), "Screenshot saved to "+path+" (2.0 KB)"; got != want {
		t.Errorf("savedMessage = %q, want %q", got, want)
	}

	missing := filepath.Join(t.TempDir(), "gone.mp4")
	if got := savedMessage("Screenrecord", missing); got != "Screenrecord saved to "+missing {
		t.Errorf("savedMessage without file = %q", got)
	}
}

func TestStartMirror_DebugDisabled(t *testing.T) {
	app := newTestApp(t)

	msg, err := app.startMirror("R58M123")
	if err != nil {
		t.Fatalf("startMirror: %v", err)
	}
	if msg != statusScrcpyDisabled {
		t.Errorf("msg = %q", msg)
	}
	if app.IsScrcpyRunning() {
		t.Error("No session should be tracked")
	}
}

// ==================== wireless ====================

func TestEnableTcpip_RemembersPort(t *testing.T) {
	app := newTestApp(t)

	msg, err := app.EnableTcpip("R58M123", "5556")
	if err != nil {
		t.Fatalf("EnableTcpip: %v", err)
	}
	if msg != "TCP/IP enabled on R58M123:5556" {
		t.Errorf("msg = %q", msg)
	}
	if got := app.GetConfig().WirelessAdb.LastTcpipPort; got != "5556" {
		t.Errorf("LastTcpipPort = %q", got)
	}

	if _, err := app.EnableTcpip("R58M123", "99999"); err == nil {
		t.Error("Expected error for out of range port")
	}
}

func TestEnableTcpip_UsesSelectedDevice(t *testing.T) {
	app := newTestApp(t)

	if _, err := app.EnableTcpip("", "5555"); err != nil {
		t.Fatalf("EnableTcpip: %v", err)
	}
	calls := adbCalls(t, app)
	if last := calls[len(calls)-1]; last != "-d tcpip 5555" {
		t.Errorf("with nothing selected adb got %q, want the USB device", last)
	}

	if _, err := app.refreshDevices(context.Background(), true); err != nil {
		t.Fatal(err)
	}
	if err := app.SelectDevice("192.168.1.20:5555"); err != nil {
		t.Fatal(err)
	}
	msg, err := app.EnableTcpip("", "5557")
	if err != nil {
		t.Fatalf("EnableTcpip: %v", err)
	}
	if msg != "TCP/IP enabled on 192.168.1.20:5555:5557" {
		t.Errorf("msg = %q", msg)
	}
	calls = adbCalls(t, app)
	if last := calls[len(calls)-1]; last != "-s 192.168.1.20:5555 tcpip 5557" {
		t.Errorf("adb got %q, want the selected device", last)
	}
}

func TestDisconnectWireless(t *testing.T) {
	app := newTestApp(t)

	msg, err := app.DisconnectWireless("192.168.1.20")
	if err != nil {
		t.Fatalf("DisconnectWireless: %v", err)
	}
	if msg != "Disconnected 192.168.1.20:5555" {
		t.Errorf("msg = %q", msg)
	}

	if _, err := app.DisconnectWireless("192.168.1.30:5555"); err == nil {
		t.Error("Expected error for unknown device")
	}
	if _, err := app.DisconnectWireless("phone.local"); err == nil {
		t.Error("Expected error for a host name")
	}

	calls := adbCalls(t, app)
	for _, c := range calls {
		if strings.Contains(c, "phone.local") {
			t.Errorf("invalid address reached adb: %q", c)
		}
	}
}

func TestWireless_ValidatesAddress(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		name string
		call func() error
	}{
		{"connect empty ip", func() error { _, err := app.ConnectWireless("", "5555"); return err }},
		{"connect bad ip", func() error { _, err := app.ConnectWireless("phone.local", "5555"); return err }},
		{"connect bad port", func() error { _, err := app.ConnectWireless("192.168.1.20", "abc"); return err }},
		{"pair empty code", func() error { _, err := app.PairWireless("192.168.1.20", "37000", " "); return err }},
		{"pair missing port", func() error { _, err := app.PairWireless("192.168.1.20", "", "123456"); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}

	if entries, _ := app.GetHistory(10); len(entries) != 0 {
		t.Errorf("Rejected input must not reach adb, history has %d entries", len(entries))
	}
}

// ==================== tasks ====================

func TestHandleTaskResult(t *testing.T) {
	app := NewApp(Options{})

	app.handleTaskResult(tasks.Result{ID: tasks.BatteryInfo, Value: "level: 80"})
	if got := app.GetTaskResults().BatteryInfo; got != "level: 80" {
		t.Errorf("BatteryInfo = %q", got)
	}
	if app.GetStatus() != "Battery info retrieved successfully" {
		t.Errorf("status = %q", app.GetStatus())
	}

	app.handleTaskResult(tasks.Result{ID: tasks.AppList, Value: []string{"com.a", "com.b"}})
	if got := app.GetTaskResults().AppList; len(got) != 2 {
		t.Errorf("AppList = %v", got)
	}

	app.handleTaskResult(tasks.Result{ID: tasks.DisplayInfo, Err: errors.New("boom")})
	if app.GetStatus() != "Failed to load display info: boom" {
		t.Errorf("status = %q", app.GetStatus())
	}
	if app.GetTaskResults().DisplayInfo != "" {
		t.Error("A failed task must not store a value")
	}
}

func TestLoadBatteryInfo_ThroughDispatcher(t *testing.T) {
	app := newTestApp(t)
	if _, err := app.refreshDevices(context.Background(), true); err != nil {
		t.Fatal(err)
	}

	if err := app.LoadBatteryInfo(); err != nil {
		t.Fatalf("LoadBatteryInfo: %v", err)
	}
	waitFor(t, func() bool {
		return strings.Contains(app.GetTaskResults().BatteryInfo, "level: 80")
	})
	waitFor(t, func() bool { return !app.GetTaskState().Busy })
	if got := app.GetStatus(); got != "Battery info retrieved successfully" {
		t.Errorf("status = %q, the loading message must not outlive the result", got)
	}
}

// ==================== settings ====================

func TestSaveConfig(t *testing.T) {
	app := newTestApp(t)

	bad := app.GetConfig()
	bad.Orientation = "45"
	if _, err := app.SaveConfig(bad); err == nil {
		t.Error("Expected invalid orientation to be rejected")
	}
	if app.GetConfig().Orientation != "" {
		t.Error("Rejected config must not be applied")
	}

	good := app.GetConfig()
	good.Bitrate = "4M"
	good.Orientation = "90"
	if _, err := app.SaveConfig(good); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	if app.GetStatus() != "Settings saved and applied." {
		t.Errorf("status = %q", app.GetStatus())
	}

	onDisk, err := config.Load(app.store.Path())
	if err != nil {
		t.Fatal(err)
	}
	if onDisk.Bitrate != "4M" || onDisk.Orientation != "90" {
		t.Errorf("file not updated: %+v", onDisk)
	}
}

func TestToggleTheme(t *testing.T) {
	app := newTestApp(t)

	before := app.GetTheme()
	next, err := app.ToggleTheme()
	if err != nil {
		t.Fatal(err)
	}
	if next == before || next != config.NextTheme(before) {
		t.Errorf("ToggleTheme %q -> %q", before, next)
	}
	if app.GetConfig().Theme != next {
		t.Error("Theme should be persisted")
	}
}

func TestGetAbout(t *testing.T) {
	about := NewApp(Options{}).GetAbout()
	if about.Name != "DroidView" || about.URL != projectURL || about.Version == "" {
		t.Errorf("GetAbout() = %+v", about)
	}
}

func TestKbpsToBitrate(t *testing.T) {
	app := NewApp(Options{})

	if got := app.BitrateToKbps("8M"); got != 8000 {
		t.Errorf("BitrateToKbps(8M) = %d", got)
	}
	if got := app.KbpsToBitrate(4000, "8M"); got != "4M" {
		t.Errorf("KbpsToBitrate(4000, 8M) = %q", got)
	}
}
