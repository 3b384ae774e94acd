// Package gpu lists the video adapters ffmpeg can use for hardware
// acceleration.
package gpu

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"hevc-encoder/hwaccel"
)

// ErrUnsupported is returned by List on platforms without an adapter query.
var ErrUnsupported = errors.New("gpu enumeration is not supported on " + runtime.GOOS)

const (
	deviceIDPrefix = "VideoController"
	query          = `Get-CimInstance Win32_VideoController | ForEach-Object { "$($_.Caption);$($_.DeviceID);$($_.AdapterCompatibility)" }`
)

// List runs the adapter query once and returns every adapter it reported.
func List(ctx context.Context, logger *zap.Logger) ([]hwaccel.Device, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if runtime.GOOS != "windows" {
		return nil, ErrUnsupported
	}

	cmd := exec.CommandContext(ctx, "powershell", "-NoProfile", "-Command", query)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("query video controllers: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	devices := Parse(bytes.NewReader(out), logger)
	logger.Debug("video controllers listed", zap.Int("count", len(devices)))
	return devices, nil
}

// Parse reads "Caption;DeviceID;AdapterCompatibility" lines. Lines that do not
// have that shape are skipped.
func Parse(r io.Reader, logger *zap.Logger) []hwaccel.Device {
	if logger == nil {
		logger = zap.NewNop()
	}
	var devices []hwaccel.Device
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		dev, ok := ParseLine(line)
		if !ok {
			logger.Debug("skipping adapter line", zap.String("line", line))
			continue
		}
		devices = append(devices, dev)
	}
	return devices
}

// ParseLine parses a single adapter line such as
// "NVIDIA GeForce RTX 3080;VideoController1;NVIDIA".
func ParseLine(line string) (hwaccel.Device, bool) {
	fields := strings.Split(strings.TrimRight(line, "\r\n"), ";")
	if len(fields) != 3 {
		return hwaccel.Device{}, false
	}
	idText, ok := strings.CutPrefix(strings.TrimSpace(fields[1]), deviceIDPrefix)
	if !ok {
		return hwaccel.Device{}, false
	}
	id, err := strconv.Atoi(idText)
	if err != nil {
		return hwaccel.Device{}, false
	}
	name := strings.TrimSpace(fields[0])
	return hwaccel.DeviceFromOSID(name, id, DetectVendor(fields[2])), true
}

// DetectVendor maps an adapter compatibility string to a vendor. Anything
// unrecognised is treated as software.
func DetectVendor(compatibility string) hwaccel.Vendor {
	switch {
	case strings.Contains(compatibility, "NVIDIA"):
		return hwaccel.VendorNvidia
	case strings.Contains(compatibility, "AMD"), strings.Contains(compatibility, "Advanced Micro Devices"):
		return hwaccel.VendorAmd
	case strings.Contains(compatibility, "Intel"):
		return hwaccel.VendorIntel
	default:
		return hwaccel.VendorNone
	}
}
