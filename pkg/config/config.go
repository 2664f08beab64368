// Package config holds the persisted DroidView settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"droidview/pkg/logging"

	"github.com/pelletier/go-toml"
)

const (
	appDirName = "DroidView"
	fileName   = "config.toml"

	DefaultBitrate = "8M"
	DefaultTheme   = "default"
	DefaultPort    = "5555"

	MinDimension = 100
	MaxDimension = 10000
)

// Config mirrors config.toml
type Config struct {
	AdbPath         string      `toml:"adb_path,omitempty" json:"adbPath"`
	ScrcpyPath      string      `toml:"scrcpy_path,omitempty" json:"scrcpyPath"`
	Bitrate         string      `toml:"bitrate" default:"8M" json:"bitrate"`
	Orientation     string      `toml:"orientation,omitempty" json:"orientation"`
	ShowTouches     bool        `toml:"show_touches" json:"showTouches"`
	TurnScreenOff   bool        `toml:"turn_screen_off" json:"turnScreenOff"`
	Fullscreen      bool        `toml:"fullscreen" json:"fullscreen"`
	Dimension       uint32      `toml:"dimension,omitempty" json:"dimension"`
	ExtraArgs       string      `toml:"extra_args" json:"extraArgs"`
	ForceAdbForward bool        `toml:"force_adb_forward" json:"forceAdbForward"`
	Panels          Panels      `toml:"panels" json:"panels"`
	Theme           string      `toml:"theme" default:"default" json:"theme"`
	WirelessAdb     WirelessAdb `toml:"wireless_adb" json:"wirelessAdb"`
}

// Panels toggles the optional UI panels
type Panels struct {
	Swipe   bool `toml:"swipe" default:"true" json:"swipe"`
	Toolkit bool `toml:"toolkit" default:"true" json:"toolkit"`
	Bottom  bool `toml:"bottom" default:"true" json:"bottom"`
}

// WirelessAdb remembers the last addresses used for tcpip and pairing
type WirelessAdb struct {
	LastTcpipIP     string `toml:"last_tcpip_ip" json:"lastTcpipIp"`
	LastTcpipPort   string `toml:"last_tcpip_port" default:"5555" json:"lastTcpipPort"`
	LastPairingIP   string `toml:"last_pairing_ip" json:"lastPairingIp"`
	LastPairingPort string `toml:"last_pairing_port" default:"5555" json:"lastPairingPort"`
}

// Default returns the out-of-the-box configuration
func Default() Config {
	return Config{
		Bitrate: DefaultBitrate,
		Panels: Panels{
			Swipe:   true,
			Toolkit: true,
			Bottom:  true,
		},
		Theme: DefaultTheme,
		WirelessAdb: WirelessAdb{
			LastTcpipPort:   DefaultPort,
			LastPairingPort: DefaultPort,
		},
	}
}

// Dir returns <UserConfigDir>/DroidView
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not determine config directory: %w", err)
	}
	return filepath.Join(base, appDirName), nil
}

// Path returns <UserConfigDir>/DroidView/config.toml
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

// Load reads path. A missing file yields Default(); keys absent from the file
// keep their default values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes TOML bytes on top of the defaults
func Parse(data []byte) (Config, error) {
	tree, err := toml.LoadBytes(data)
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg := Default()
	if err := tree.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}

	def := Default()
	if !tree.Has("panels") {
		cfg.Panels = def.Panels
	}
	if !tree.Has("wireless_adb") {
		cfg.WirelessAdb = def.WirelessAdb
	}
	if !tree.Has("bitrate") {
		cfg.Bitrate = def.Bitrate
	}
	if !tree.Has("theme") {
		cfg.Theme = def.Theme
	}
	return cfg, nil
}

// LoadOrDefault is Load that logs and falls back to defaults on error
func LoadOrDefault(path string) Config {
	cfg, err := Load(path)
	if err != nil {
		logging.LogWarn("config").Err(err).Str("path", path).Msg("Using default configuration")
		return Default()
	}
	return cfg
}

// Save writes cfg to path, creating the directory if needed
func (c Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate rejects values scrcpy or adb would refuse
func (c Config) Validate() error {
	if !ValidOrientation(c.Orientation) {
		return fmt.Errorf("invalid orientation %q", c.Orientation)
	}
	if c.Dimension != 0 && (c.Dimension < MinDimension || c.Dimension > MaxDimension) {
		return fmt.Errorf("max dimension must be between %d and %d, got %d", MinDimension, MaxDimension, c.Dimension)
	}
	if _, err := ParseBitrateStrict(c.Bitrate); err != nil {
		return err
	}
	for _, p := range []string{c.WirelessAdb.LastTcpipPort, c.WirelessAdb.LastPairingPort} {
		if p == "" {
			continue
		}
		if err := ValidatePort(p); err != nil {
			return err
		}
	}
	return nil
}

// ValidatePort checks a TCP port string
func ValidatePort(port string) error {
	n, err := strconv.Atoi(strings.TrimSpace(port))
	if err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("invalid port %q", port)
	}
	return nil
}

// ========================================
// Orientation & theme
// ========================================

var orientations = []string{"", "0", "90", "180", "270", "flip0", "flip90", "flip180", "flip270"}

// Orientations lists the accepted --orientation values; "" means scrcpy's default
func Orientations() []string {
	return append([]string(nil), orientations...)
}

func ValidOrientation(o string) bool {
	for _, v := range orientations {
		if v == o {
			return true
		}
	}
	return false
}

// NextTheme cycles dark -> light -> dark. Any other theme becomes dark.
func NextTheme(theme string) string {
	switch theme {
	case "dark":
		return "light"
	case "light":
		return "dark"
	default:
		return "dark"
	}
}
