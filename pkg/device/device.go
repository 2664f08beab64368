// Package device parses adb's device listing and tracks which device the
// user is working with.
package device

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"droidview/pkg/bridge"
	"droidview/pkg/types"
)

const unknown = "unknown"

// ParseStatus maps the state column of `adb devices` to a DeviceStatus
func ParseStatus(s string) types.DeviceStatus {
	switch s {
	case "device":
		return types.StatusDevice
	case "offline":
		return types.StatusOffline
	case "unauthorized":
		return types.StatusUnauthorized
	case "no_permission", "no":
		return types.StatusNoPermission
	default:
		return types.DeviceStatus(s)
	}
}

// Parse reads the output of `adb devices -l`
func Parse(output string) []types.Device {
	var devices []types.Device
	lines := strings.Split(strings.ReplaceAll(output, "\r\n", "\n"), "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "*") || strings.HasPrefix(line, "List of devices") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}

		d := types.Device{
			Serial:      fields[0],
			Status:      ParseStatus(fields[1]),
			Product:     unknown,
			Model:       unknown,
			Name:        unknown,
			TransportID: unknown,
		}
		for _, f := range fields[2:] {
			key, value, ok := strings.Cut(f, ":")
			if !ok {
				continue
			}
			switch key {
			case "product":
				d.Product = value
			case "model":
				d.Model = value
			case "device":
				d.Name = value
			case "transport_id":
				d.TransportID = value
			}
		}
		d.Wireless = isWireless(d.Serial)
		devices = append(devices, d)
	}
	return devices
}

func isWireless(serial string) bool {
	if strings.Contains(serial, "._adb-tls-connect.") {
		return true
	}
	host, port, ok := strings.Cut(serial, ":")
	if !ok || host == "" {
		return false
	}
	_, err := strconv.Atoi(port)
	return err == nil
}

// Fetch runs `adb devices -l` and parses it
func Fetch(ctx context.Context, adb *bridge.Adb) ([]types.Device, error) {
	out, err := adb.Run(ctx, "devices", "-l")
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	return Parse(out), nil
}

var sizePattern = regexp.MustCompile(`(\d+)x(\d+)`)

// ParseScreenSize reads `wm size` output. An override size wins over the
// physical size.
func ParseScreenSize(output string) (int, int, error) {
	var physical, override string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "Override size:"):
			override = strings.TrimSpace(strings.TrimPrefix(line, "Override size:"))
		case strings.HasPrefix(line, "Physical size:"):
			physical = strings.TrimSpace(strings.TrimPrefix(line, "Physical size:"))
		}
	}

	candidate := override
	if candidate == "" {
		candidate = physical
	}
	if candidate == "" {
		candidate = output
	}
	m := sizePattern.FindStringSubmatch(candidate)
	if m == nil {
		return 0, 0, fmt.Errorf("could not parse screen size from %q", strings.TrimSpace(output))
	}
	w, _ := strconv.Atoi(m[1])
	h, _ := strconv.Atoi(m[2])
	if w == 0 || h == 0 {
		return 0, 0, fmt.Errorf("invalid screen size %dx%d", w, h)
	}
	return w, h, nil
}

// ScreenSize asks the device for its current resolution
func ScreenSize(ctx context.Context, adb *bridge.Adb, serial string) (int, int, error) {
	out, err := adb.Shell(ctx, serial, "wm size")
	if err != nil {
		return 0, 0, err
	}
	return ParseScreenSize(out)
}
