package toolkit

import (
	"context"
	"strings"

	"droidview/pkg/bridge"
	"droidview/pkg/types"

	"golang.org/x/sync/errgroup"
)

const (
	NoIdentifiersMessage = "No IMEI/Device ID information available. This may be due to:\n" +
		"• Android security restrictions (Android 10+)\n" +
		"• Missing READ_PHONE_STATE permission\n" +
		"• Device not supporting IMEI retrieval"
	DisplayInfoFailed = "Failed to retrieve display info"
	BatteryInfoFailed = "Failed to retrieve battery info"
)

type probe struct {
	label   string
	command string
	keep    func(string) bool
}

func nonEmpty(s string) bool { return s != "" }

func imeiLike(s string) bool { return s != "" && s != "0" }

var identifierProbes = []probe{
	{"Android ID", "settings get secure android_id", func(s string) bool { return s != "" && s != "null" }},
	{"IMEI", "getprop ro.telephony.imei", imeiLike},
	{"IMEI1", "getprop ro.telephony.imei1", imeiLike},
	{"IMEI2", "getprop ro.telephony.imei2", imeiLike},
	{"Legacy IMEI", "service call iphonesubinfo 4 | cut -c 52-66 | tr -d '.[:space:]'", func(s string) bool { return len(s) >= 14 }},
	{"Serial", "getprop ro.serialno", nonEmpty},
}

// runProbes runs every probe concurrently and returns the kept results in
// probe order. Failed commands are skipped.
func runProbes(ctx context.Context, adb *bridge.Adb, serial string, probes []probe) []types.KeyValue {
	results := make([]*types.KeyValue, len(probes))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range probes {
		i, p := i, p
		g.Go(func() error {
			out, err := adb.Shell(gctx, serial, p.command)
			if err != nil {
				return nil
			}
			v := strings.TrimSpace(out)
			if p.keep(v) {
				results[i] = &types.KeyValue{Label: p.label, Value: v}
			}
			return nil
		})
	}
	_ = g.Wait()

	var kept []types.KeyValue
	for _, r := range results {
		if r != nil {
			kept = append(kept, *r)
		}
	}
	return kept
}

// Identifiers collects Android ID, IMEIs and serial number, in that order
func Identifiers(ctx context.Context, adb *bridge.Adb, serial string) []types.KeyValue {
	return runProbes(ctx, adb, serial, identifierProbes)
}

// FormatIdentifiers renders Identifiers as "Label: value" lines
func FormatIdentifiers(ids []types.KeyValue) string {
	if len(ids) == 0 {
		return NoIdentifiersMessage
	}
	lines := make([]string, len(ids))
	for i, kv := range ids {
		lines[i] = kv.Label + ": " + kv.Value
	}
	return strings.Join(lines, "\n")
}

var displayProbes = []probe{
	{"Display Information", "dumpsys display | grep -E 'Flags|Display.*:|location'", func(string) bool { return true }},
	{"Window Manager Size", "wm size", func(string) bool { return true }},
	{"Window Manager Density", "wm density", func(string) bool { return true }},
}

// DisplayInfo gathers display dump, size and density under section headers
func DisplayInfo(ctx context.Context, adb *bridge.Adb, serial string) string {
	sections := runProbes(ctx, adb, serial, displayProbes)
	if len(sections) == 0 {
		return DisplayInfoFailed
	}
	parts := make([]string, len(sections))
	for i, s := range sections {
		parts[i] = s.Label + ":\n" + s.Value
	}
	return strings.Join(parts, "\n\n")
}

// BatteryInfo returns `dumpsys battery`
func BatteryInfo(ctx context.Context, adb *bridge.Adb, serial string) string {
	out, err := adb.Shell(ctx, serial, "dumpsys battery")
	if err != nil || strings.TrimSpace(out) == "" {
		return BatteryInfoFailed
	}
	return strings.TrimRight(out, "\r\n ")
}
