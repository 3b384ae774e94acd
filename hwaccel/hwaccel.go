package hwaccel

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Vendor identifies the GPU family used for decode and encode acceleration.
type Vendor int

const (
	VendorNone Vendor = iota // Software encoding (libx265)
	VendorNvidia
	VendorAmd
	VendorIntel
)

// DefaultQuality is the quality value used when the caller does not pick one.
const DefaultQuality = 18

// ErrInvalidPresetIndex is returned when a preset index is outside the vendor's table.
var ErrInvalidPresetIndex = errors.New("invalid preset index")

// Vendors returns every vendor in table order.
func Vendors() []Vendor {
	return []Vendor{VendorNone, VendorNvidia, VendorAmd, VendorIntel}
}

func (v Vendor) String() string {
	switch v {
	case VendorNvidia:
		return "nvidia"
	case VendorAmd:
		return "amd"
	case VendorIntel:
		return "intel"
	default:
		return "none"
	}
}

// ParseVendor maps a vendor name (case-insensitive) to its Vendor value.
func ParseVendor(name string) (Vendor, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none", "software", "cpu":
		return VendorNone, nil
	case "nvidia", "nvenc", "cuda":
		return VendorNvidia, nil
	case "amd", "amf":
		return VendorAmd, nil
	case "intel", "qsv":
		return VendorIntel, nil
	}
	return VendorNone, fmt.Errorf("unknown vendor %q", name)
}

// Device is an accelerator as the encoder addresses it.
type Device struct {
	Name   string
	Index  int // zero-based accelerator index
	Vendor Vendor
}

// DeviceFromOSID builds a Device from an OS-reported device id. The OS numbers
// adapters from one while ffmpeg's -hwaccel_device counts from zero.
func DeviceFromOSID(name string, osID int, vendor Vendor) Device {
	return Device{Name: name, Index: osID - 1, Vendor: vendor}
}

func (d Device) String() string {
	if d.Name != "" {
		return d.Name
	}
	if d.Vendor == VendorNone {
		return "software"
	}
	return fmt.Sprintf("%s #%d", d.Vendor, d.Index)
}

// Accelerated reports whether the device offloads work to a GPU.
func (d Device) Accelerated() bool {
	return d.Vendor != VendorNone && d.Vendor.known()
}

func (v Vendor) known() bool {
	return v >= VendorNone && v <= VendorIntel
}

var codecs = map[Vendor]string{
	VendorNone:   "libx265",
	VendorNvidia: "hevc_nvenc",
	VendorAmd:    "hevc_amf",
	VendorIntel:  "hevc_qsv",
}

var presets = map[Vendor][]string{
	VendorNone:   {"ultrafast", "superfast", "veryfast", "faster", "fast", "medium", "slow", "slower", "veryslow", "placebo"},
	VendorNvidia: {"default", "slow", "medium", "fast", "hp", "hq", "bd", "ll", "llhq", "llhp", "lossless", "losslesshp"},
	VendorAmd:    {"speed", "balanced", "quality"},
	VendorIntel:  {"veryfast", "fast", "medium", "slow", "veryslow"},
}

func normalize(v Vendor) Vendor {
	if !v.known() {
		return VendorNone
	}
	return v
}

// CodecName returns the HEVC encoder ffmpeg uses for the vendor.
func CodecName(v Vendor) string {
	return codecs[normalize(v)]
}

// Presets returns a copy of the vendor's preset names, ordered by index.
func Presets(v Vendor) []string {
	table := presets[normalize(v)]
	out := make([]string, len(table))
	copy(out, table)
	return out
}

// InputArgs returns the decode flags and -i for one input file.
func InputArgs(dev Device, path string) []string {
	device := strconv.Itoa(dev.Index)
	switch dev.Vendor {
	case VendorNvidia:
		return []string{"-hwaccel", "cuda", "-hwaccel_output_format", "cuda", "-hwaccel_device", device, "-i", path}
	case VendorAmd:
		return []string{"-hwaccel", "d3d11va", "-hwaccel_output_format", "d3d11", "-hwaccel_device", device, "-i", path}
	case VendorIntel:
		return []string{"-hwaccel", "qsv", "-hwaccel_output_format", "qsv", "-hwaccel_device", device, "-i", path}
	default:
		return []string{"-i", path}
	}
}

// QualityArgs returns the rate-control flags for the vendor. The quality value
// is passed through as-is; range checks belong to the caller.
func QualityArgs(v Vendor, quality int) []string {
	q := strconv.Itoa(quality)
	switch v {
	case VendorNvidia:
		return []string{"-rc", "vbr", "-b:v", "0", "-cq", q}
	case VendorAmd:
		return []string{"-rc", "cqp", "-qp", q}
	case VendorIntel:
		return []string{"-rc", "icq", "-global_quality", q}
	default:
		return []string{"-crf", q}
	}
}

// PresetArgs looks up the vendor's preset at index. AMF names the option
// "quality"; every other encoder calls it "preset".
func PresetArgs(v Vendor, index int) ([]string, error) {
	v = normalize(v)
	table := presets[v]
	if index < 0 || index >= len(table) {
		return nil, fmt.Errorf("%w: %d for %s (valid 0-%d)", ErrInvalidPresetIndex, index, v, len(table)-1)
	}
	flag := "-preset"
	if v == VendorAmd {
		flag = "-quality"
	}
	return []string{flag, table[index]}, nil
}
