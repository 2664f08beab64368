package main

import (
	"droidview/pkg/config"
	"droidview/pkg/hostutil"
	"droidview/pkg/logging"
	"droidview/pkg/types"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

// GetConfig returns the live configuration
func (a *App) GetConfig() config.Config {
	return a.store.Get()
}

// SaveConfig validates and persists cfg, then rebuilds the bridges
func (a *App) SaveConfig(cfg config.Config) (config.Config, error) {
	old := a.store.Get()
	if err := a.store.Set(cfg); err != nil {
		logging.LogWarn("config").Err(err).Msg("Rejected settings")
		return old, err
	}
	logging.LogUserAction(logging.ActionSettingsChange, "", map[string]interface{}{
		"bitrate":     cfg.Bitrate,
		"orientation": cfg.Orientation,
		"dimension":   int(cfg.Dimension),
	})

	a.applyConfig(old, cfg)
	a.setStatus("Settings saved and applied.")
	return cfg, nil
}

// ResetConfig restores the defaults
func (a *App) ResetConfig() (config.Config, error) {
	old := a.store.Get()
	cfg, err := a.store.Reset()
	if err != nil {
		return old, err
	}
	a.applyConfig(old, cfg)
	a.setStatus("Settings reset to defaults")
	return cfg, nil
}

// applyConfig reacts to a configuration change from any source
func (a *App) applyConfig(old, cfg config.Config) {
	if old.AdbPath != cfg.AdbPath || old.ScrcpyPath != cfg.ScrcpyPath {
		a.UpdateBridges()
	}
	if old.Theme != cfg.Theme && a.opts.Theme == "" {
		a.mu.Lock()
		a.theme = cfg.Theme
		a.mu.Unlock()
	}
	a.emit("config-changed", cfg)
}

// GetTheme returns the theme in effect for this run
func (a *App) GetTheme() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.theme
}

// ToggleTheme flips between dark and light and saves the choice
func (a *App) ToggleTheme() (string, error) {
	next := config.NextTheme(a.GetTheme())
	if _, err := a.store.Update(func(c *config.Config) { c.Theme = next }); err != nil {
		return a.GetTheme(), err
	}
	a.mu.Lock()
	a.theme = next
	a.mu.Unlock()
	logging.LogUserAction(logging.ActionThemeToggle, "", map[string]interface{}{"theme": next})
	return next, nil
}

// SetPanels shows or hides the optional panels
func (a *App) SetPanels(p config.Panels) (config.Config, error) {
	return a.store.Update(func(c *config.Config) { c.Panels = p })
}

// GetOrientations lists the accepted orientation values
func (a *App) GetOrientations() []string {
	return config.Orientations()
}

// BitrateToKbps converts a scrcpy bitrate string for the slider
func (a *App) BitrateToKbps(s string) int {
	return config.ParseBitrate(s)
}

// KbpsToBitrate renders a slider value in the unit of current
func (a *App) KbpsToBitrate(kbps int, current string) string {
	return config.FormatBitrate(kbps, config.UnitOf(current))
}

// GetAbout returns the about dialog contents
func (a *App) GetAbout() types.AboutInfo {
	return types.AboutInfo{Name: appName, Version: version, URL: projectURL}
}

// OpenProjectPage opens the project homepage in the browser
func (a *App) OpenProjectPage() error {
	if a.ctx != nil && !a.mcpMode {
		wailsRuntime.BrowserOpenURL(a.ctx, projectURL)
		return nil
	}
	return hostutil.OpenURL(projectURL)
}
