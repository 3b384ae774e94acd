package config

import (
	"slices"

	"hevc-encoder/hwaccel"
)

// Profile represents a named encoding profile
type Profile string

const (
	ProfileDefault  Profile = "default"  // Quality 18, encoder's own preset
	ProfileQuality  Profile = "quality"  // Quality 16, slow presets
	ProfileFast     Profile = "fast"     // Quality 22, fast presets
	ProfileCompress Profile = "compress" // Quality 28, slow presets
)

// AvailableProfiles returns all available profile names
func AvailableProfiles() []Profile {
	return []Profile{ProfileDefault, ProfileQuality, ProfileFast, ProfileCompress}
}

// ProfileSettings is what a profile contributes to an encode request.
type ProfileSettings struct {
	Quality int
	// Presets names the preset per vendor. A missing vendor leaves the
	// encoder's default preset.
	Presets map[hwaccel.Vendor]string
}

var slowPresets = map[hwaccel.Vendor]string{
	hwaccel.VendorNone:   "slow",
	hwaccel.VendorNvidia: "slow",
	hwaccel.VendorAmd:    "quality",
	hwaccel.VendorIntel:  "slow",
}

var fastPresets = map[hwaccel.Vendor]string{
	hwaccel.VendorNone:   "faster",
	hwaccel.VendorNvidia: "fast",
	hwaccel.VendorAmd:    "speed",
	hwaccel.VendorIntel:  "fast",
}

// GetProfile returns the settings for a profile. Unknown profiles get the
// default.
func GetProfile(profile Profile) ProfileSettings {
	switch profile {
	case ProfileQuality:
		return ProfileSettings{Quality: 16, Presets: slowPresets}
	case ProfileFast:
		return ProfileSettings{Quality: 22, Presets: fastPresets}
	case ProfileCompress:
		// Higher quantizer, slower search to claw back some detail
		return ProfileSettings{Quality: 28, Presets: slowPresets}
	default:
		return ProfileSettings{Quality: hwaccel.DefaultQuality}
	}
}

// PresetIndex resolves the profile's preset for a vendor. ok is false when
// the profile does not pick one.
func (p ProfileSettings) PresetIndex(v hwaccel.Vendor) (int, bool) {
	name, ok := p.Presets[v]
	if !ok {
		return 0, false
	}
	idx := slices.Index(hwaccel.Presets(v), name)
	return idx, idx >= 0
}

// ProfileDescription returns a human-readable description of a profile
func ProfileDescription(profile Profile) string {
	switch profile {
	case ProfileQuality:
		return "High quality (16) - Slow presets, larger files"
	case ProfileFast:
		return "Fast (22) - Quick turnaround, larger files for the quality"
	case ProfileCompress:
		return "Maximum compression (28) - Smallest files, some quality loss"
	default:
		return "Default balanced (18) - Encoder's own preset"
	}
}
