package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"droidview/pkg/bridge"
	"droidview/pkg/config"
	"droidview/pkg/device"
	"droidview/pkg/history"
	"droidview/pkg/hostutil"
	"droidview/pkg/logging"
	"droidview/pkg/tasks"
	"droidview/pkg/types"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"
	"golang.org/x/time/rate"
)

const (
	appName    = "DroidView"
	projectURL = "https://github.com/Genxster1998/DroidView"

	statusNoDevice       = "No device selected or ADB not configured"
	statusAdbNotConfig   = "ADB not configured"
	statusScrcpyDisabled = "Scrcpy is disabled in debug mode"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "0.1.0"

var (
	errNoDevice            = errors.New("no device selected or ADB not configured")
	errAdbNotConfigured    = errors.New("adb not configured")
	errScrcpyNotConfigured = errors.New("scrcpy not configured")
)

// Options are the command-line switches that shape the App
type Options struct {
	// Theme overrides the configured theme for this run when non-empty
	Theme              string
	ResetConfig        bool
	DebugDisableScrcpy bool
	// ConfigPath defaults to config.Path()
	ConfigPath string
}

// App struct
type App struct {
	ctx     context.Context
	mcpMode bool
	opts    Options

	store   *config.Store
	history *history.Store
	tasks   *tasks.Dispatcher
	devices *device.List

	// Manual and MCP refreshes share one budget; the monitor bypasses it
	refreshLimiter *rate.Limiter

	mu      sync.RWMutex
	adb     *bridge.Adb
	scrcpy  *bridge.Scrcpy
	status  string
	theme   string
	results TaskResults

	// Scrcpy process management
	sessions map[string]*bridge.Session
	starting map[string]bool // serials with a scrcpy launch in flight
	scrcpyMu sync.Mutex

	// Device monitor
	deviceMonitorCancel context.CancelFunc
	deviceMonitorMu     sync.Mutex

	configWatcher  *ConfigWatcher
	consumerCancel context.CancelFunc
	consumerDone   chan struct{}
}

// NewApp creates a new App instance
func NewApp(opts Options) *App {
	return &App{
		opts:           opts,
		devices:        device.NewList(),
		refreshLimiter: rate.NewLimiter(rate.Every(time.Second), 3),
		sessions:       make(map[string]*bridge.Session),
		starting:       make(map[string]bool),
		status:         "Ready",
	}
}

// startup is called when the Wails window is created
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	if err := a.init(); err != nil {
		logging.LogError("app").Err(err).Msg("Startup failed")
		a.setStatus(fmt.Sprintf("Error: %v", err))
		return
	}

	a.StartDeviceMonitor()
	wailsRuntime.OnFileDrop(ctx, a.handleFileDrop)
	a.configWatcher = NewConfigWatcher(a)
	if err := a.configWatcher.Start(); err != nil {
		logging.LogWarn("config_watcher").Err(err).Msg("Config watcher not started")
	}
	go func() {
		if _, err := a.RefreshDevices(); err != nil {
			logging.LogWarn("app").Err(err).Msg("Initial device refresh failed")
		}
	}()
}

// startMCP prepares the App for serving MCP on stdio, without a window
func (a *App) startMCP() error {
	a.mcpMode = true
	return a.init()
}

// init loads configuration, locates the tools and opens local state
func (a *App) init() error {
	store, err := config.NewStore(config.StoreConfig{
		Path:  a.opts.ConfigPath,
		Reset: a.opts.ResetConfig,
		LogFunc: func(format string, args ...interface{}) {
			logging.LogInfo("config").Msgf(format, args...)
		},
	})
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	a.store = store

	cfg := store.Get()
	a.mu.Lock()
	a.theme = cfg.Theme
	if a.opts.Theme != "" {
		a.theme = a.opts.Theme
	}
	a.mu.Unlock()

	a.UpdateBridges()

	if h, err := history.Open(store.Dir()); err != nil {
		logging.LogWarn("history").Err(err).Msg("History disabled")
	} else {
		a.history = h
	}

	a.tasks = tasks.New(8)
	consumerCtx, cancel := context.WithCancel(context.Background())
	a.consumerCancel = cancel
	a.consumerDone = make(chan struct{})
	go func() {
		defer close(a.consumerDone)
		_ = a.tasks.Consume(consumerCtx, a.handleTaskResult)
	}()

	logging.LogInfo("app").
		Str("config", store.Path()).
		Bool("mcp", a.mcpMode).
		Bool("scrcpy_disabled", a.opts.DebugDisableScrcpy).
		Msg("App initialized")
	return nil
}

// Shutdown is called when the application is closing
func (a *App) Shutdown(ctx context.Context) {
	a.StopDeviceMonitor()
	if a.configWatcher != nil {
		a.configWatcher.Stop()
	}

	a.scrcpyMu.Lock()
	sessions := make([]*bridge.Session, 0, len(a.sessions))
	for serial, s := range a.sessions {
		sessions = append(sessions, s)
		delete(a.sessions, serial)
	}
	a.scrcpyMu.Unlock()
	for _, s := range sessions {
		logging.LogInfo("scrcpy").Str("serial", s.Serial).Msg("Killing mirroring on shutdown")
		_ = s.Stop()
	}

	if a.tasks != nil {
		a.tasks.Close()
		a.consumerCancel()
		<-a.consumerDone
	}
	if a.history != nil {
		_ = a.history.Close()
	}
}

// UpdateBridges rebuilds the adb and scrcpy wrappers from the configured
// paths, auto-detecting whichever is unset.
func (a *App) UpdateBridges() {
	cfg := a.store.Get()
	adbPath := resolveTool(cfg.AdbPath, "adb")
	scrcpyPath := resolveTool(cfg.ScrcpyPath, "scrcpy")

	a.mu.Lock()
	defer a.mu.Unlock()
	if adbPath == "" {
		a.adb = nil
	} else if a.adb == nil || a.adb.Path() != adbPath {
		a.adb = bridge.NewAdb(adbPath, nil)
	}
	if scrcpyPath == "" {
		a.scrcpy = nil
	} else if a.scrcpy == nil || a.scrcpy.Path() != scrcpyPath {
		a.scrcpy = bridge.NewScrcpy(scrcpyPath)
	}

	logging.LogInfo("app").Str("adb", adbPath).Str("scrcpy", scrcpyPath).Msg("Bridges configured")
}

func resolveTool(configured, name string) string {
	if configured != "" {
		return configured
	}
	path, err := hostutil.FindExecutable(name)
	if err != nil {
		logging.LogWarn("app").Str("tool", name).Msg("Executable not found")
		return ""
	}
	return path
}

func (a *App) adbBridge() *bridge.Adb {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.adb
}

func (a *App) scrcpyBridge() *bridge.Scrcpy {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.scrcpy
}

// opCtx is the parent context for device operations
func (a *App) opCtx() context.Context {
	if a.ctx == nil {
		return context.Background()
	}
	return a.ctx
}

// emit sends an event to the frontend. No-op without a window.
func (a *App) emit(event string, data ...interface{}) {
	if a.ctx == nil || a.mcpMode {
		return
	}
	wailsRuntime.EventsEmit(a.ctx, event, data...)
}

// setStatus updates the status line shown at the bottom of the window
func (a *App) setStatus(msg string) {
	a.mu.Lock()
	a.status = msg
	a.mu.Unlock()
	logging.LogDebug("status").Msg(msg)
	a.emit("status-changed", msg)
}

// GetStatus returns the current status line
func (a *App) GetStatus() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.status
}

// record logs a user action and appends it to the history database
func (a *App) record(action logging.UserAction, serial, detail string, err error) {
	details := map[string]interface{}{"detail": detail, "success": err == nil}
	if err != nil {
		details["error"] = err.Error()
	}
	logging.LogUserAction(action, serial, details)

	if a.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, herr := a.history.Record(ctx, history.Entry{
		Action:  string(action),
		Serial:  serial,
		Detail:  detail,
		Success: err == nil,
	}); herr != nil {
		logging.LogWarn("history").Err(herr).Msg("Failed to record action")
	}
}

// GetHistory returns the most recent recorded actions
func (a *App) GetHistory(limit int) ([]types.HistoryEntry, error) {
	if a.history == nil {
		return []types.HistoryEntry{}, nil
	}
	return a.history.Recent(a.opCtx(), limit)
}

// ClearHistory deletes every recorded action
func (a *App) ClearHistory() error {
	if a.history == nil {
		return nil
	}
	n, err := a.history.Clear(a.opCtx())
	if err != nil {
		return err
	}
	logging.LogInfo("history").Int64("removed", n).Msg("History cleared")
	return nil
}
