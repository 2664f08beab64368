package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"droidview/pkg/bridge"
	"droidview/pkg/hostutil"
	"droidview/pkg/logging"
	"droidview/pkg/toolkit"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

// ========================================
// Toolkit actions on the selected device
// ========================================

// Swipe sends a swipe gesture (up, down, left, right)
func (a *App) Swipe(direction string) error {
	return a.swipe("", direction)
}

func (a *App) swipe(serial, direction string) error {
	serial, err := a.targetSerial(serial)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(a.opCtx(), 10*time.Second)
	defer cancel()

	err = toolkit.Swipe(ctx, a.adbBridge(), serial, toolkit.Direction(direction))
	a.record(logging.ActionSwipe, serial, direction, err)
	if err != nil {
		a.setStatus("Failed to send swipe command")
		return err
	}
	a.setStatus("Swipe sent successfully")
	return nil
}

// TakeScreenshot saves a PNG of the selected device's screen
func (a *App) TakeScreenshot() (string, error) {
	return a.screenshot("")
}

func (a *App) screenshot(serial string) (string, error) {
	serial, err := a.targetSerial(serial)
	if err != nil {
		return "", err
	}
	dir, err := hostutil.OutputDir()
	if err != nil {
		return "", err
	}

	op := logging.StartOperation("toolkit", "screenshot").AddDetail("serial", serial)
	path, err := toolkit.Screenshot(a.opCtx(), a.adbBridge(), serial, dir)
	op.Finish(err)
	a.record(logging.ActionScreenshot, serial, path, err)
	if err != nil {
		a.setStatus(fmt.Sprintf("Screenshot error: %v", err))
		return "", err
	}
	a.setStatus(savedMessage("Screenshot", path))
	return path, nil
}

// RecordScreen records the selected device for seconds at bitrateKbps.
// Zero values take the defaults (10 s, 8000 Kbps).
func (a *App) RecordScreen(seconds, bitrateKbps int) (string, error) {
	return a.recordScreen("", toolkit.RecordOptions{Seconds: seconds, BitrateKbps: bitrateKbps})
}

func (a *App) recordScreen(serial string, opts toolkit.RecordOptions) (string, error) {
	serial, err := a.targetSerial(serial)
	if err != nil {
		return "", err
	}
	opts, err = opts.Normalize()
	if err != nil {
		return "", err
	}
	dir, err := hostutil.OutputDir()
	if err != nil {
		return "", err
	}

	a.setStatus(fmt.Sprintf("Recording screen for %d seconds...", opts.Seconds))
	op := logging.StartOperation("toolkit", "screenrecord").
		AddDetail("serial", serial).
		AddDetail("seconds", opts.Seconds).
		AddDetail("bitrate_kbps", opts.BitrateKbps)
	path, err := toolkit.RecordScreen(a.opCtx(), a.adbBridge(), serial, dir, opts)
	op.Finish(err)
	a.record(logging.ActionScreenRecord, serial, path, err)
	if err != nil {
		a.setStatus(fmt.Sprintf("Screenrecord error: %v", err))
		return "", err
	}
	a.setStatus(savedMessage("Screenrecord", path))
	return path, nil
}

// savedMessage reports where an output file went and how big it is
func savedMessage(kind, path string) string {
	msg := kind + " saved to " + path
	if fi, err := os.Stat(path); err == nil {
		msg += " (" + hostutil.FormatFileSize(fi.Size()) + ")"
	}
	return msg
}

// InstallApk installs path on the selected device. An empty path opens a
// file dialog.
func (a *App) InstallApk(path string) (string, error) {
	if path == "" {
		if a.ctx == nil || a.mcpMode {
			return "", fmt.Errorf("APK path is required")
		}
		picked, err := wailsRuntime.OpenFileDialog(a.ctx, wailsRuntime.OpenDialogOptions{
			Title: "Select APK",
			Filters: []wailsRuntime.FileFilter{
				{DisplayName: "Android Package (*.apk)", Pattern: "*.apk"},
			},
		})
		if err != nil {
			return "", err
		}
		if picked == "" {
			return "", nil
		}
		path = picked
	}
	return a.installApk("", path)
}

// handleFileDrop installs every .apk dropped on the window
func (a *App) handleFileDrop(x, y int, paths []string) {
	for _, p := range paths {
		if !strings.EqualFold(filepath.Ext(p), ".apk") {
			continue
		}
		if _, err := a.installApk("", p); err != nil {
			logging.LogWarn("toolkit").Err(err).Str("apk", p).Msg("Dropped APK not installed")
		}
	}
}

func (a *App) installApk(serial, path string) (string, error) {
	serial, err := a.targetSerial(serial)
	if err != nil {
		return "", err
	}

	op := logging.StartOperation("toolkit", "install").AddDetail("serial", serial).AddDetail("apk", path)
	err = toolkit.InstallApk(a.opCtx(), a.adbBridge(), serial, path)
	op.Finish(err)
	a.record(logging.ActionAppInstall, serial, path, err)
	if err != nil {
		a.setStatus(fmt.Sprintf("Install error: %v", err))
		return "", err
	}
	msg := "Installed APK: " + path
	a.setStatus(msg)
	return msg, nil
}

// OpenShell opens an interactive adb shell in a terminal window
func (a *App) OpenShell() error {
	serial, err := a.targetSerial("")
	if err != nil {
		return err
	}
	cmd, err := toolkit.ShellCommand(a.adbBridge().Path(), serial)
	if err != nil {
		return err
	}
	err = hostutil.OpenTerminal(cmd)
	a.record(logging.ActionShellOpen, serial, cmd, err)
	if err != nil {
		a.setStatus(fmt.Sprintf("Failed to open terminal: %v", err))
		return err
	}
	a.setStatus("Opened ADB shell in terminal")
	return nil
}

// Reboot restarts the selected device. mode is system, recovery,
// bootloader or shutdown.
func (a *App) Reboot(mode string) (string, error) {
	return a.reboot("", mode)
}

func (a *App) reboot(serial, mode string) (string, error) {
	serial, err := a.targetSerial(serial)
	if err != nil {
		return "", err
	}
	m := bridge.RebootMode(mode)
	if m == "" {
		m = bridge.RebootSystem
	}

	ctx, cancel := context.WithTimeout(a.opCtx(), 15*time.Second)
	defer cancel()
	err = toolkit.Reboot(ctx, a.adbBridge(), serial, m)
	a.record(logging.ActionReboot, serial, string(m), err)
	if err != nil {
		a.setStatus(fmt.Sprintf("Reboot error: %v", err))
		return "", err
	}
	msg := toolkit.RebootStatus(m)
	a.setStatus(msg)
	return msg, nil
}
