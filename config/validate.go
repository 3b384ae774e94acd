package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap/zapcore"

	"hevc-encoder/hwaccel"
)

const maxQuality = 51

func (c *Config) normalize() error {
	c.FFmpeg.Binary = strings.TrimSpace(c.FFmpeg.Binary)
	if c.FFmpeg.Binary == "" {
		c.FFmpeg.Binary = "ffmpeg"
	}
	c.Encode.Vendor = strings.ToLower(strings.TrimSpace(c.Encode.Vendor))
	if c.Encode.Vendor == "" {
		c.Encode.Vendor = hwaccel.VendorNone.String()
	}
	c.Encode.Profile = Profile(strings.ToLower(strings.TrimSpace(string(c.Encode.Profile))))
	if c.Encode.Profile == "" {
		c.Encode.Profile = ProfileDefault
	}
	c.Encode.Preset = strings.TrimSpace(c.Encode.Preset)

	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	var err error
	if c.Logging.File, err = expandPath(strings.TrimSpace(c.Logging.File)); err != nil {
		return fmt.Errorf("logging.file: %w", err)
	}
	return nil
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateEncode(); err != nil {
		return err
	}
	if err := c.validateCleanup(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateEncode() error {
	if !slices.Contains(AvailableProfiles(), c.Encode.Profile) {
		return fmt.Errorf("encode.profile: unknown profile %q", c.Encode.Profile)
	}
	if _, err := hwaccel.ParseVendor(c.Encode.Vendor); err != nil {
		return fmt.Errorf("encode.vendor: %w", err)
	}
	if c.Encode.Device < 1 {
		return errors.New("encode.device must be 1 or greater")
	}
	if q := c.Encode.Quality; q != nil && (*q < 0 || *q > maxQuality) {
		return fmt.Errorf("encode.quality must be between 0 and %d", maxQuality)
	}
	if _, err := c.Encode.Resolve(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateCleanup() error {
	if c.Cleanup.Attempts < 1 {
		return errors.New("cleanup.attempts must be at least 1")
	}
	if c.Cleanup.DelayMS < 0 {
		return errors.New("cleanup.delay_ms must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxBackups < 0 || c.Logging.MaxAgeDays < 0 {
		return errors.New("logging rotation values must not be negative")
	}
	return nil
}
