package mcp

import (
	"errors"
	"fmt"
	"sync"

	"droidview/pkg/config"
	"droidview/pkg/types"
)

// MockCall records a method call for verification
type MockCall struct {
	Method string
	Args   []interface{}
}

// MockDroidApp is a DroidApp for tests
type MockDroidApp struct {
	mu    sync.Mutex
	Calls []MockCall

	// Devices
	ListDevicesResult []Device
	ListDevicesError  error
	SelectDeviceError error
	RestartAdbError   error

	// Wireless
	EnableTcpipResult     string
	EnableTcpipError      error
	ConnectWirelessResult string
	ConnectWirelessError  error
	PairWirelessResult    string
	PairWirelessError     error
	DisconnectResult      string
	DisconnectError       error

	// Toolkit
	ScreenshotResult        string
	ScreenshotError         error
	RecordScreenResult      string
	RecordScreenError       error
	InstallApkResult        string
	InstallApkError         error
	SwipeError              error
	RebootResult            string
	RebootError             error
	DeviceIdentifiersResult string
	DeviceIdentifiersError  error
	DisplayInfoResult       string
	DisplayInfoError        error
	BatteryInfoResult       string
	BatteryInfoError        error
	ListPackagesResult      []string
	ListPackagesError       error
	UninstallError          error
	DisableError            error

	// Mirroring
	StartMirrorResult  string
	StartMirrorError   error
	StopMirrorResult   string
	StopMirrorError    error
	MirrorStatusResult []MirrorStatus

	// State
	Config           Config
	GetHistoryResult []HistoryEntry
	GetHistoryError  error
	AppVersion       string
}

// NewMockDroidApp creates a mock with empty results
func NewMockDroidApp() *MockDroidApp {
	return &MockDroidApp{
		Calls:             make([]MockCall, 0),
		AppVersion:        "1.0.0-test",
		ListDevicesResult: []Device{},
		Config:            config.Default(),
	}
}

func (m *MockDroidApp) recordCall(method string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, MockCall{Method: method, Args: args})
}

// GetCalls returns all recorded calls
func (m *MockDroidApp) GetCalls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall{}, m.Calls...)
}

// WasMethodCalled checks if a method was called
func (m *MockDroidApp) WasMethodCalled(method string) bool {
	return m.GetLastCallByMethod(method) != nil
}

// GetLastCallByMethod returns the last call to a specific method
func (m *MockDroidApp) GetLastCallByMethod(method string) *MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.Calls) - 1; i >= 0; i-- {
		if m.Calls[i].Method == method {
			c := m.Calls[i]
			return &c
		}
	}
	return nil
}

// === Devices ===

func (m *MockDroidApp) ListDevices(refresh bool) ([]Device, error) {
	m.recordCall("ListDevices", refresh)
	return m.ListDevicesResult, m.ListDevicesError
}

func (m *MockDroidApp) SelectDevice(serial string) error {
	m.recordCall("SelectDevice", serial)
	return m.SelectDeviceError
}

func (m *MockDroidApp) RestartAdb() error {
	m.recordCall("RestartAdb")
	return m.RestartAdbError
}

// === Wireless ===

func (m *MockDroidApp) EnableTcpip(serial, port string) (string, error) {
	m.recordCall("EnableTcpip", serial, port)
	return m.EnableTcpipResult, m.EnableTcpipError
}

func (m *MockDroidApp) ConnectWireless(ip, port string) (string, error) {
	m.recordCall("ConnectWireless", ip, port)
	return m.ConnectWirelessResult, m.ConnectWirelessError
}

func (m *MockDroidApp) PairWireless(ip, port, code string) (string, error) {
	m.recordCall("PairWireless", ip, port, code)
	return m.PairWirelessResult, m.PairWirelessError
}

func (m *MockDroidApp) DisconnectWireless(address string) (string, error) {
	m.recordCall("DisconnectWireless", address)
	return m.DisconnectResult, m.DisconnectError
}

// === Toolkit ===

func (m *MockDroidApp) Screenshot(serial string) (string, error) {
	m.recordCall("Screenshot", serial)
	return m.ScreenshotResult, m.ScreenshotError
}

func (m *MockDroidApp) RecordScreen(serial string, seconds, bitrateKbps int) (string, error) {
	m.recordCall("RecordScreen", serial, seconds, bitrateKbps)
	return m.RecordScreenResult, m.RecordScreenError
}

func (m *MockDroidApp) InstallApk(serial, path string) (string, error) {
	m.recordCall("InstallApk", serial, path)
	return m.InstallApkResult, m.InstallApkError
}

func (m *MockDroidApp) Swipe(serial, direction string) error {
	m.recordCall("Swipe", serial, direction)
	return m.SwipeError
}

func (m *MockDroidApp) Reboot(serial, mode string) (string, error) {
	m.recordCall("Reboot", serial, mode)
	return m.RebootResult, m.RebootError
}

func (m *MockDroidApp) DeviceIdentifiers(serial string) (string, error) {
	m.recordCall("DeviceIdentifiers", serial)
	return m.DeviceIdentifiersResult, m.DeviceIdentifiersError
}

func (m *MockDroidApp) DisplayInfo(serial string) (string, error) {
	m.recordCall("DisplayInfo", serial)
	return m.DisplayInfoResult, m.DisplayInfoError
}

func (m *MockDroidApp) BatteryInfo(serial string) (string, error) {
	m.recordCall("BatteryInfo", serial)
	return m.BatteryInfoResult, m.BatteryInfoError
}

func (m *MockDroidApp) ListPackages(serial, filter string) ([]string, error) {
	m.recordCall("ListPackages", serial, filter)
	return m.ListPackagesResult, m.ListPackagesError
}

// UninstallPackages succeeds for every package unless UninstallError is set
func (m *MockDroidApp) UninstallPackages(serial string, pkgs []string) (BatchResult, error) {
	m.recordCall("UninstallPackages", serial, pkgs)
	if m.UninstallError != nil {
		return BatchResult{}, m.UninstallError
	}
	return sampleBatch("uninstalled", pkgs), nil
}

// DisablePackages succeeds for every package unless DisableError is set
func (m *MockDroidApp) DisablePackages(serial string, pkgs []string) (BatchResult, error) {
	m.recordCall("DisablePackages", serial, pkgs)
	if m.DisableError != nil {
		return BatchResult{}, m.DisableError
	}
	return sampleBatch("disabled", pkgs), nil
}

// === Mirroring ===

func (m *MockDroidApp) StartMirror(serial string) (string, error) {
	m.recordCall("StartMirror", serial)
	return m.StartMirrorResult, m.StartMirrorError
}

func (m *MockDroidApp) StopMirror(serial string) (string, error) {
	m.recordCall("StopMirror", serial)
	return m.StopMirrorResult, m.StopMirrorError
}

func (m *MockDroidApp) MirrorStatus() []MirrorStatus {
	m.recordCall("MirrorStatus")
	return m.MirrorStatusResult
}

// === State ===

func (m *MockDroidApp) GetConfig() Config {
	m.recordCall("GetConfig")
	return m.Config
}

func (m *MockDroidApp) GetHistory(limit int) ([]HistoryEntry, error) {
	m.recordCall("GetHistory", limit)
	return m.GetHistoryResult, m.GetHistoryError
}

func (m *MockDroidApp) GetAppVersion() string {
	m.recordCall("GetAppVersion")
	return m.AppVersion
}

// SetupWithDevices configures mock with sample devices
func (m *MockDroidApp) SetupWithDevices(devices ...Device) *MockDroidApp {
	m.ListDevicesResult = devices
	return m
}

// Common errors for tests
var (
	ErrDeviceNotFound = errors.New("device not found")
	ErrDeviceOffline  = errors.New("device offline")
	ErrAdbMissing     = errors.New("adb not configured")
)

// SampleDevice returns a connected USB device
func SampleDevice(serial string) Device {
	return Device{
		Serial:      serial,
		Status:      types.StatusDevice,
		Product:     "oriole",
		Model:       "Pixel_6",
		Name:        "oriole",
		TransportID: "1",
	}
}

// SampleWirelessDevice returns a device connected over adb connect
func SampleWirelessDevice(ip string) Device {
	d := SampleDevice(ip + ":5555")
	d.Wireless = true
	return d
}

func sampleBatch(verb string, pkgs []string) BatchResult {
	return BatchResult{
		Succeeded: append([]string{}, pkgs...),
		Failed:    []string{},
		Message:   fmt.Sprintf("Successfully %s %d app(s)", verb, len(pkgs)),
	}
}
