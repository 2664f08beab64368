package main

import (
	"path/filepath"
	"sync"
	"time"

	"droidview/pkg/logging"

	"github.com/fsnotify/fsnotify"
)

// ConfigWatcher reloads config.toml when another process edits it (an MCP
// server instance, or the user in a text editor)
type ConfigWatcher struct {
	app     *App
	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex

	debounce time.Duration
}

// NewConfigWatcher creates a watcher for the app's config file
func NewConfigWatcher(app *App) *ConfigWatcher {
	return &ConfigWatcher{
		app:      app,
		debounce: 300 * time.Millisecond,
	}
}

// Start watches the config directory; editors often replace the file
// instead of writing it in place
func (w *ConfigWatcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.app.mcpMode || w.watcher != nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	dir := w.app.store.Dir()
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}
	w.watcher = watcher
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})

	logging.LogInfo("config_watcher").Str("path", dir).Msg("Started watching config directory")

	go w.watch(watcher, w.stopCh, w.doneCh)
	return nil
}

// Stop stops watching and waits for the loop to exit
func (w *ConfigWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.watcher == nil {
		return
	}
	close(w.stopCh)
	w.watcher.Close()
	<-w.doneCh
	w.watcher = nil
	logging.LogInfo("config_watcher").Msg("Stopped watching config directory")
}

func (w *ConfigWatcher) watch(watcher *fsnotify.Watcher, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	target := filepath.Clean(w.app.store.Path())
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-stopCh:
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Rename) {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, func() { w.reload() })

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logging.LogError("config_watcher").Err(err).Msg("Watcher error")
		}
	}
}

// reload applies the file contents if they differ from the live config and
// reports whether it did. Saves made by this process compare equal and are
// ignored.
func (w *ConfigWatcher) reload() bool {
	old := w.app.store.Get()
	cfg, changed, err := w.app.store.Reload()
	if err != nil {
		logging.LogWarn("config_watcher").Err(err).Msg("Ignoring unreadable config change")
		return false
	}
	if !changed {
		return false
	}
	logging.LogInfo("config_watcher").Msg("Config changed on disk, applied")
	w.app.applyConfig(old, cfg)
	return true
}
