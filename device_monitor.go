package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"droidview/pkg/bridge"
	"droidview/pkg/logging"
)

// ========================================
// Device Monitor - adb track-devices
// ========================================

const (
	monitorDebounce     = 300 * time.Millisecond
	monitorRestartDelay = time.Second
)

// StartDeviceMonitor starts watching device connections with adb
// track-devices. Every change triggers a debounced refresh which emits
// "devices-changed".
func (a *App) StartDeviceMonitor() {
	a.deviceMonitorMu.Lock()
	defer a.deviceMonitorMu.Unlock()

	if a.deviceMonitorCancel != nil {
		a.deviceMonitorCancel()
	}

	ctx, cancel := context.WithCancel(a.opCtx())
	a.deviceMonitorCancel = cancel

	go a.runDeviceMonitor(ctx)
}

// StopDeviceMonitor stops the device monitor
func (a *App) StopDeviceMonitor() {
	a.deviceMonitorMu.Lock()
	defer a.deviceMonitorMu.Unlock()

	if a.deviceMonitorCancel != nil {
		a.deviceMonitorCancel()
		a.deviceMonitorCancel = nil
	}
}

func (a *App) runDeviceMonitor(ctx context.Context) {
	var debounceTimer *time.Timer
	var debounceMu sync.Mutex

	devicesChanged := func() {
		debounceMu.Lock()
		defer debounceMu.Unlock()
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
		debounceTimer = time.AfterFunc(monitorDebounce, func() {
			if ctx.Err() != nil {
				return
			}
			if _, err := a.refreshDevices(ctx, true); err != nil {
				logging.LogWarn("device_monitor").Err(err).Msg("Failed to get devices")
			}
		})
	}
	defer func() {
		debounceMu.Lock()
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
		debounceMu.Unlock()
	}()

	for {
		if ctx.Err() != nil {
			return
		}

		adb := a.adbBridge()
		if adb == nil {
			if !sleepCtx(ctx, 5*time.Second) {
				return
			}
			continue
		}

		cmd := bridge.Command(ctx, adb.Path(), "track-devices")
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			logging.LogError("device_monitor").Err(err).Msg("Failed to create pipe")
			if !sleepCtx(ctx, 2*time.Second) {
				return
			}
			continue
		}
		if err := cmd.Start(); err != nil {
			logging.LogError("device_monitor").Err(err).Msg("Failed to start track-devices")
			if !sleepCtx(ctx, 2*time.Second) {
				return
			}
			continue
		}
		logging.LogInfo("device_monitor").Msg("Device monitor started")

		err = readTrackFrames(stdout, func(string) { devicesChanged() })
		_ = cmd.Wait()
		if ctx.Err() != nil {
			return
		}
		logging.LogWarn("device_monitor").AnErr("reason", err).Msg("Device monitor disconnected, restarting")
		if !sleepCtx(ctx, monitorRestartDelay) {
			return
		}
	}
}

// readTrackFrames reads the track-devices stream: a 4 hex digit length
// followed by that many bytes of `adb devices` output
func readTrackFrames(r io.Reader, onFrame func(payload string)) error {
	header := make([]byte, 4)
	for {
		if _, err := io.ReadFull(r, header); err != nil {
			return err
		}
		n, err := strconv.ParseUint(string(header), 16, 16)
		if err != nil {
			return fmt.Errorf("bad track-devices header %q: %w", header, err)
		}
		payload := make([]byte, n)
		if _, err := io.ReadFull(r, payload); err != nil {
			return err
		}
		onFrame(string(payload))
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
