package hwaccel

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRequest is returned for requests without inputs or an output path.
var ErrInvalidRequest = errors.New("invalid encode request")

// Request describes a single transcode run.
type Request struct {
	Inputs      []string
	Output      string
	Device      Device
	Quality     int
	PresetIndex *int // nil leaves the encoder's default preset
	ExtraArgs   []string
}

// PresetIndex returns a pointer suitable for Request.PresetIndex.
func PresetIndex(i int) *int {
	return &i
}

// Validate checks the fields Args cannot do without.
func (r Request) Validate() error {
	if len(r.Inputs) == 0 {
		return fmt.Errorf("%w: no input files", ErrInvalidRequest)
	}
	for i, in := range r.Inputs {
		if strings.TrimSpace(in) == "" {
			return fmt.Errorf("%w: input %d is empty", ErrInvalidRequest, i)
		}
	}
	if strings.TrimSpace(r.Output) == "" {
		return fmt.Errorf("%w: no output path", ErrInvalidRequest)
	}
	return nil
}

// Args assembles the full ffmpeg argument list for the request:
//
//	-y [-threads 1] {decode flags per input} -c:v CODEC -c:a copy
//	[-fps_mode passthrough] {quality} [{preset}] {extra} OUTPUT
func Args(r Request) ([]string, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	vendor := normalize(r.Device.Vendor)

	args := []string{"-y"}
	if r.Device.Accelerated() {
		// Keeps CPU-side crop/scale filters from competing with the GPU
		args = append(args, "-threads", "1")
	}
	for _, in := range r.Inputs {
		args = append(args, InputArgs(r.Device, in)...)
	}

	args = append(args, "-c:v", CodecName(vendor), "-c:a", "copy")
	if !r.Device.Accelerated() {
		args = append(args, "-fps_mode", "passthrough")
	}
	args = append(args, QualityArgs(vendor, r.Quality)...)

	if r.PresetIndex != nil {
		preset, err := PresetArgs(vendor, *r.PresetIndex)
		if err != nil {
			return nil, err
		}
		args = append(args, preset...)
	}

	args = append(args, r.ExtraArgs...)
	args = append(args, r.Output)
	return args, nil
}

// CommandLine renders binary and args as a single shell-style line.
func CommandLine(binary string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, quote(binary))
	for _, a := range args {
		parts = append(parts, quote(a))
	}
	return strings.Join(parts, " ")
}

func quote(s string) string {
	if s == "" {
		return `""`
	}
	if !strings.ContainsAny(s, " \t\"'") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
