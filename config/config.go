package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"hevc-encoder/encoder"
	"hevc-encoder/hwaccel"
)

//go:embed sample_config.toml
var sampleConfig string

const appName = "hevc-encoder"

// FFmpeg locates the transcoder.
type FFmpeg struct {
	Binary string `toml:"binary"`
}

// Encode holds the defaults for an encode request. Quality and Preset
// override the profile when set.
type Encode struct {
	Profile Profile `toml:"profile"`
	Vendor  string  `toml:"vendor"`
	Device  int     `toml:"device"`
	Quality *int    `toml:"quality"`
	Preset  string  `toml:"preset"`
}

// Cleanup controls removal of partial output after a cancel.
type Cleanup struct {
	Attempts int `toml:"attempts"`
	DelayMS  int `toml:"delay_ms"`
}

// Logging contains log level, destination and rotation.
type Logging struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// Config holds the encoder configuration settings
type Config struct {
	FFmpeg  FFmpeg  `toml:"ffmpeg"`
	Encode  Encode  `toml:"encode"`
	Cleanup Cleanup `toml:"cleanup"`
	Logging Logging `toml:"logging"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		FFmpeg: FFmpeg{Binary: "ffmpeg"},
		Encode: Encode{
			Profile: ProfileDefault,
			Vendor:  hwaccel.VendorNone.String(),
			Device:  1,
		},
		Cleanup: Cleanup{Attempts: 5, DelayMS: 100},
		Logging: Logging{
			Level:      "info",
			File:       "~/.local/state/" + appName + "/encoder.log",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/" + appName + "/config.toml")
}

// Load locates, parses, and validates a configuration file. A missing file is
// not an error; the defaults are returned with exists set to false.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file).DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(appName + ".toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// CreateSample writes the commented sample configuration to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Settings is the resolved encode configuration.
type Settings struct {
	Device      hwaccel.Device
	Quality     int
	PresetIndex *int
}

// Resolve applies the profile and overrides to produce request settings.
func (e Encode) Resolve() (Settings, error) {
	vendor, err := hwaccel.ParseVendor(e.Vendor)
	if err != nil {
		return Settings{}, fmt.Errorf("encode.vendor: %w", err)
	}
	profile := GetProfile(e.Profile)

	s := Settings{
		Device:  hwaccel.DeviceFromOSID("", e.Device, vendor),
		Quality: profile.Quality,
	}
	if e.Quality != nil {
		s.Quality = *e.Quality
	}

	switch {
	case e.Preset != "":
		idx := indexOf(hwaccel.Presets(vendor), e.Preset)
		if idx < 0 {
			return Settings{}, fmt.Errorf("encode.preset: %q is not a %s preset (have %s)",
				e.Preset, vendor, strings.Join(hwaccel.Presets(vendor), ", "))
		}
		s.PresetIndex = hwaccel.PresetIndex(idx)
	default:
		if idx, ok := profile.PresetIndex(vendor); ok {
			s.PresetIndex = hwaccel.PresetIndex(idx)
		}
	}
	return s, nil
}

// CleanupPolicy converts the cleanup section for the supervisor.
func (c *Config) CleanupPolicy() encoder.CleanupPolicy {
	return encoder.CleanupPolicy{
		Attempts: c.Cleanup.Attempts,
		Delay:    time.Duration(c.Cleanup.DelayMS) * time.Millisecond,
	}
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if strings.EqualFold(n, name) {
			return i
		}
	}
	return -1
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules to the CLI.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
