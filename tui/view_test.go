package tui

import (
	"strings"
	"testing"
	"testing/quick"
	"time"

	"hevc-encoder/hwaccel"
	"hevc-encoder/progress"
)

// For any non-negative file size, formatBytes returns a string with binary units
func TestFormatBytes_Property(t *testing.T) {
	f := func(size uint32) bool {
		result := formatBytes(int64(size))
		if result == "" {
			return false
		}
		for _, unit := range []string{"B", "KiB", "MiB", "GiB"} {
			if strings.HasSuffix(result, unit) {
				return true
			}
		}
		return false
	}
	if err := quick.Check(f, &quick.Config{MaxCount: 1000}); err != nil {
		t.Error(err)
	}
}

// For any elapsed time and progress strictly between 0 and 100, the ETA is
// non-negative and shrinks as progress grows.
func TestEstimateETA_Property(t *testing.T) {
	f := func(elapsedSec uint16, a, b uint8) bool {
		elapsed := time.Duration(elapsedSec)*time.Second + time.Second
		lo := float64(a%98) + 1
		hi := lo + float64(b%uint8(99-lo)) + 0.5
		etaLo, ok1 := estimateETA(elapsed, lo)
		etaHi, ok2 := estimateETA(elapsed, hi)
		return ok1 && ok2 && etaLo >= 0 && etaHi >= 0 && etaHi <= etaLo
	}
	if err := quick.Check(f, &quick.Config{MaxCount: 1000}); err != nil {
		t.Error(err)
	}
}

func TestEstimateETA(t *testing.T) {
	eta, ok := estimateETA(time.Minute, 25)
	if !ok || eta != 3*time.Minute {
		t.Errorf("estimateETA(1m, 25) = %v, %v, want 3m, true", eta, ok)
	}
	for _, pct := range []float64{0, -5, 100, 120} {
		if _, ok := estimateETA(time.Minute, pct); ok {
			t.Errorf("estimateETA(1m, %v) should be unavailable", pct)
		}
	}
	if _, ok := estimateETA(0, 50); ok {
		t.Error("estimateETA(0, 50) should be unavailable")
	}
}

func TestFormatBytes_EdgeCases(t *testing.T) {
	tests := []struct {
		input    int64
		expected string
	}{
		{0, "0 B"},
		{1, "1 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1024 * 1024, "1.0 MiB"},
		{1024 * 1024 * 1024, "1.0 GiB"},
	}

	for _, tc := range tests {
		result := formatBytes(tc.input)
		if result != tc.expected {
			t.Errorf("formatBytes(%d) = %q, want %q", tc.input, result, tc.expected)
		}
	}
}

func TestFormatDuration_EdgeCases(t *testing.T) {
	tests := []struct {
		input    time.Duration
		expected string
	}{
		{-1, "—"},
		{0, "0:00"},
		{30 * time.Second, "0:30"},
		{90 * time.Second, "1:30"},
		{time.Hour + 30*time.Minute + 45*time.Second, "1:30:45"},
	}

	for _, tc := range tests {
		result := formatDuration(tc.input)
		if result != tc.expected {
			t.Errorf("formatDuration(%v) = %q, want %q", tc.input, result, tc.expected)
		}
	}
}

func TestFormatETADisplay(t *testing.T) {
	tests := []struct {
		eta       time.Duration
		available bool
		expected  string
	}{
		{-1, false, "—"},
		{time.Minute, false, "—"},
		{time.Minute, true, "1:00"},
		{time.Hour + time.Minute, true, "1:01:00"},
	}

	for _, tc := range tests {
		result := formatETADisplay(tc.eta, tc.available)
		if result != tc.expected {
			t.Errorf("formatETADisplay(%v, %v) = %q, want %q", tc.eta, tc.available, result, tc.expected)
		}
	}
}

func TestFormatPercentage(t *testing.T) {
	tests := []struct {
		pct           float64
		totalDuration time.Duration
		expected      string
	}{
		{0, 0, "..."},
		{50, time.Minute, "50.0%"},
		{-10, time.Minute, "0.0%"},
		{150, time.Minute, "99.9%"},
		{99.9, time.Minute, "99.9%"},
	}

	for _, tc := range tests {
		result := formatPercentage(tc.pct, tc.totalDuration)
		if result != tc.expected {
			t.Errorf("formatPercentage(%f, %v) = %q, want %q", tc.pct, tc.totalDuration, result, tc.expected)
		}
	}
}

func TestFormatPosition(t *testing.T) {
	if got := formatPosition(progress.Progress{}); got != "—" {
		t.Errorf("formatPosition(zero) = %q, want —", got)
	}
	got := formatPosition(progress.Progress{Current: 90 * time.Second, Total: time.Hour})
	if got != "1:30 / 1:00:00" {
		t.Errorf("formatPosition = %q", got)
	}
}

func TestFormatDevice(t *testing.T) {
	if got := formatDevice(hwaccel.Device{}); got != "libx265 (software)" {
		t.Errorf("formatDevice(software) = %q", got)
	}
	got := formatDevice(hwaccel.Device{Vendor: hwaccel.VendorNvidia, Index: 1})
	if got != "hevc_nvenc (nvidia #1)" {
		t.Errorf("formatDevice(nvidia) = %q", got)
	}
}

func TestFormatPreset(t *testing.T) {
	req := hwaccel.Request{Device: hwaccel.Device{Vendor: hwaccel.VendorAmd}}
	if got := formatPreset(req); got != "default" {
		t.Errorf("formatPreset(nil) = %q", got)
	}
	req.PresetIndex = hwaccel.PresetIndex(2)
	if got := formatPreset(req); got != "quality" {
		t.Errorf("formatPreset(2) = %q", got)
	}
	req.PresetIndex = hwaccel.PresetIndex(7)
	if got := formatPreset(req); got != "—" {
		t.Errorf("formatPreset(7) = %q", got)
	}
}

func TestTruncatePath(t *testing.T) {
	tests := []struct {
		path     string
		maxLen   int
		expected string
	}{
		{"/short/path", 50, "/short/path"},
		{"/a/very/long/path/that/exceeds/the/maximum/length", 25, "/a/very/lo ... mum/length"},
		{"/a/very/long/path", 10, "/a/very..."},
	}

	for _, tc := range tests {
		result := truncatePath(tc.path, tc.maxLen)
		if result != tc.expected {
			t.Errorf("truncatePath(%q, %d) = %q, want %q", tc.path, tc.maxLen, result, tc.expected)
		}
	}
}
