package gpu

import (
	"context"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hevc-encoder/hwaccel"
)

func TestDetectVendor(t *testing.T) {
	tests := []struct {
		compat string
		want   hwaccel.Vendor
	}{
		{"NVIDIA", hwaccel.VendorNvidia},
		{"Advanced Micro Devices, Inc.", hwaccel.VendorAmd},
		{"AMD", hwaccel.VendorAmd},
		{"Intel Corporation", hwaccel.VendorIntel},
		{"Microsoft", hwaccel.VendorNone},
		{"", hwaccel.VendorNone},
	}
	for _, tt := range tests {
		t.Run(tt.compat, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectVendor(tt.compat))
		})
	}
}

func TestParseLine(t *testing.T) {
	dev, ok := ParseLine("NVIDIA GeForce RTX 3080;VideoController1;NVIDIA\r")
	require.True(t, ok)
	assert.Equal(t, "NVIDIA GeForce RTX 3080", dev.Name)
	assert.Equal(t, 0, dev.Index)
	assert.Equal(t, hwaccel.VendorNvidia, dev.Vendor)

	dev, ok = ParseLine("Intel(R) UHD Graphics 770;VideoController2;Intel Corporation")
	require.True(t, ok)
	assert.Equal(t, 1, dev.Index)
	assert.Equal(t, hwaccel.VendorIntel, dev.Vendor)
}

func TestParseLine_Malformed(t *testing.T) {
	for _, line := range []string{
		"",
		"only;two",
		"a;b;c;d",
		"Adapter;Controller1;NVIDIA",
		"Adapter;VideoControllerX;NVIDIA",
	} {
		_, ok := ParseLine(line)
		assert.False(t, ok, line)
	}
}

func TestParse_SkipsNoise(t *testing.T) {
	out := strings.Join([]string{
		"",
		"Microsoft Basic Display Adapter;VideoController3;(Standard display types)",
		"garbage",
		"AMD Radeon RX 7900 XTX;VideoController1;Advanced Micro Devices, Inc.",
		"",
	}, "\r\n")

	devices := Parse(strings.NewReader(out), nil)
	require.Len(t, devices, 2)
	assert.Equal(t, hwaccel.VendorNone, devices[0].Vendor)
	assert.Equal(t, 2, devices[0].Index)
	assert.Equal(t, hwaccel.VendorAmd, devices[1].Vendor)
	assert.Equal(t, 0, devices[1].Index)
}

func TestList_Unsupported(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("adapter query is available on windows")
	}
	_, err := List(context.Background(), nil)
	assert.ErrorIs(t, err, ErrUnsupported)
}
