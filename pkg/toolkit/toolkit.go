// Package toolkit implements the one-click device actions of the toolkit
// panel. Each action is a short sequence of adb invocations.
package toolkit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"droidview/pkg/bridge"
	"droidview/pkg/device"
	"droidview/pkg/hostutil"
)

const remoteVideoPath = "/sdcard/video.mp4"

// RecordOptions configures `screenrecord`
type RecordOptions struct {
	Seconds     int `json:"seconds"`
	BitrateKbps int `json:"bitrateKbps"`
}

const (
	MinRecordSeconds     = 1
	MaxRecordSeconds     = 180
	DefaultRecordSeconds = 10
	MinRecordKbps        = 100
	MaxRecordKbps        = 10000
	DefaultRecordKbps    = 8000
)

// DefaultRecordOptions returns 10 seconds at 8000 Kbps
func DefaultRecordOptions() RecordOptions {
	return RecordOptions{Seconds: DefaultRecordSeconds, BitrateKbps: DefaultRecordKbps}
}

// Normalize fills zero values with defaults and rejects out-of-range values
func (o RecordOptions) Normalize() (RecordOptions, error) {
	if o.Seconds == 0 {
		o.Seconds = DefaultRecordSeconds
	}
	if o.BitrateKbps == 0 {
		o.BitrateKbps = DefaultRecordKbps
	}
	if o.Seconds < MinRecordSeconds || o.Seconds > MaxRecordSeconds {
		return o, fmt.Errorf("duration must be between %d and %d seconds", MinRecordSeconds, MaxRecordSeconds)
	}
	if o.BitrateKbps < MinRecordKbps || o.BitrateKbps > MaxRecordKbps {
		return o, fmt.Errorf("bitrate must be between %d and %d Kbps", MinRecordKbps, MaxRecordKbps)
	}
	return o, nil
}

// outputName builds "<prefix>_<serial>_<timestamp>.<ext>"
func outputName(prefix, serial, ext string, now time.Time) string {
	return hostutil.SanitizeFilename(fmt.Sprintf("%s_%s_%s.%s", prefix, serial, now.Format("20060102_150405"), ext))
}

// Screenshot captures the screen as PNG into dir and returns the file path
func Screenshot(ctx context.Context, adb *bridge.Adb, serial, dir string) (string, error) {
	png, err := adb.ExecOut(ctx, serial, "screencap", "-p")
	if err != nil {
		return "", fmt.Errorf("screenshot failed: %w", err)
	}
	if len(png) == 0 {
		return "", fmt.Errorf("screenshot failed: device returned no data")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(dir, outputName("screenshot", serial, "png", time.Now()))
	if err := os.WriteFile(path, png, 0644); err != nil {
		return "", fmt.Errorf("failed to save screenshot: %w", err)
	}
	return path, nil
}

// RecordScreen records for opts.Seconds on the device, then pulls the video
// into dir. It blocks for the whole recording.
func RecordScreen(ctx context.Context, adb *bridge.Adb, serial, dir string, opts RecordOptions) (string, error) {
	opts, err := opts.Normalize()
	if err != nil {
		return "", err
	}
	if err := bridge.ValidateSerial(serial); err != nil {
		return "", err
	}

	recCtx, cancel := context.WithTimeout(ctx, time.Duration(opts.Seconds)*time.Second+bridge.DefaultTimeout)
	defer cancel()
	_, err = adb.Run(recCtx, "-s", serial, "shell", "screenrecord", remoteVideoPath,
		"--time-limit", strconv.Itoa(opts.Seconds),
		"--bit-rate", strconv.Itoa(opts.BitrateKbps*1000))
	if err != nil {
		return "", fmt.Errorf("screenrecord failed: %w", err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	local := filepath.Join(dir, outputName("video", serial, "mp4", time.Now()))
	if err := adb.Pull(ctx, serial, remoteVideoPath, local); err != nil {
		return "", fmt.Errorf("pull failed: %w", err)
	}
	return local, nil
}

// InstallApk installs a local APK file
func InstallApk(ctx context.Context, adb *bridge.Adb, serial, path string) error {
	if !strings.EqualFold(filepath.Ext(path), ".apk") {
		return fmt.Errorf("not an APK file: %s", path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot read APK: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("not an APK file: %s", path)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()
	if _, err := adb.Install(ctx, serial, path); err != nil {
		return fmt.Errorf("install failed: %w", err)
	}
	return nil
}

// ShellCommand is the command line that opens an interactive device shell
func ShellCommand(adbPath, serial string) (string, error) {
	if err := bridge.ValidateSerial(serial); err != nil {
		return "", err
	}
	return hostutil.QuoteCommand(adbPath, "-s", serial, "shell"), nil
}

// Reboot restarts or powers off the device
func Reboot(ctx context.Context, adb *bridge.Adb, serial string, mode bridge.RebootMode) error {
	return adb.Reboot(ctx, serial, mode)
}

// RebootStatus is the status line shown after a successful reboot request
func RebootStatus(mode bridge.RebootMode) string {
	switch mode {
	case bridge.RebootShutdown:
		return "Device shutdown initiated"
	case bridge.RebootRecovery:
		return "Device rebooting to recovery mode"
	case bridge.RebootBootloader:
		return "Device rebooting to bootloader"
	default:
		return "Device reboot initiated"
	}
}

// Direction of a swipe gesture
type Direction string

const (
	SwipeUp    Direction = "up"
	SwipeDown  Direction = "down"
	SwipeLeft  Direction = "left"
	SwipeRight Direction = "right"
)

// SwipeDurationMs is the gesture duration passed to `input swipe`
const SwipeDurationMs = 300

// SwipeCoords returns start and end points for a swipe across a w×h screen
func SwipeCoords(dir Direction, w, h int) (x1, y1, x2, y2 int, err error) {
	switch dir {
	case SwipeUp:
		return w / 2, h * 4 / 5, w / 2, h / 5, nil
	case SwipeDown:
		return w / 2, h / 5, w / 2, h * 4 / 5, nil
	case SwipeLeft:
		return w * 4 / 5, h / 2, w / 5, h / 2, nil
	case SwipeRight:
		return w / 5, h / 2, w * 4 / 5, h / 2, nil
	}
	return 0, 0, 0, 0, fmt.Errorf("unknown swipe direction %q", dir)
}

// Swipe reads the screen size and sends the gesture
func Swipe(ctx context.Context, adb *bridge.Adb, serial string, dir Direction) error {
	w, h, err := device.ScreenSize(ctx, adb, serial)
	if err != nil {
		return fmt.Errorf("failed to read screen size: %w", err)
	}
	x1, y1, x2, y2, err := SwipeCoords(dir, w, h)
	if err != nil {
		return err
	}
	cmd := fmt.Sprintf("input swipe %d %d %d %d %d", x1, y1, x2, y2, SwipeDurationMs)
	if _, err := adb.Shell(ctx, serial, cmd); err != nil {
		return fmt.Errorf("swipe command failed: %w", err)
	}
	return nil
}
