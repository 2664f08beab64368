package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	MinBitrateKbps     = 100
	MaxBitrateKbps     = 20000
	defaultBitrateKbps = 8000
)

// BitrateUnit is how a bitrate is displayed and stored
type BitrateUnit string

const (
	UnitKbps BitrateUnit = "Kbps"
	UnitMbps BitrateUnit = "Mbps"
)

// ParseBitrate converts "8M", "500K" or "750" (Kbps) to Kbps.
// Unparsable input yields 8000.
func ParseBitrate(s string) int {
	kbps, err := ParseBitrateStrict(s)
	if err != nil {
		return defaultBitrateKbps
	}
	return kbps
}

// ParseBitrateStrict is ParseBitrate that reports malformed input
func ParseBitrateStrict(s string) (int, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	mult := 1
	switch {
	case strings.HasSuffix(v, "M"):
		v = strings.TrimSuffix(v, "M")
		mult = 1000
	case strings.HasSuffix(v, "K"):
		v = strings.TrimSuffix(v, "K")
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid bitrate %q", s)
	}
	return n * mult, nil
}

// UnitOf reports the unit a stored bitrate string uses
func UnitOf(s string) BitrateUnit {
	if strings.HasSuffix(strings.ToUpper(strings.TrimSpace(s)), "M") {
		return UnitMbps
	}
	return UnitKbps
}

// FormatBitrate renders kbps in the given unit, clamped to the slider range
func FormatBitrate(kbps int, unit BitrateUnit) string {
	if kbps < MinBitrateKbps {
		kbps = MinBitrateKbps
	}
	if kbps > MaxBitrateKbps {
		kbps = MaxBitrateKbps
	}
	if unit == UnitMbps {
		return fmt.Sprintf("%dM", int(math.Round(float64(kbps)/1000)))
	}
	return fmt.Sprintf("%dK", kbps)
}
