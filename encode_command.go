package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hevc-encoder/config"
	"hevc-encoder/encoder"
	"hevc-encoder/hwaccel"
	"hevc-encoder/tui"
)

type encodeOptions struct {
	output  string
	profile string
	vendor  string
	device  int
	quality int
	preset  string
	plain   bool
	dryRun  bool
}

func newEncodeCommand(ctx *commandContext) *cobra.Command {
	var opts encodeOptions

	cmd := &cobra.Command{
		Use:   "encode INPUT... [-- FFMPEG_ARGS...]",
		Short: "Encode one or more inputs into a single HEVC output",
		Example: `  hevc-encoder encode movie.mkv
  hevc-encoder encode movie.mkv -o movie.hevc.mkv --vendor nvidia --device 1 --preset hq
  hevc-encoder encode part1.mkv part2.mkv -o joined.mkv -- -map 0 -map 1`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			inputs, extra := splitAtDash(cmd, args)
			req, err := buildRequest(cmd, cfg, opts, inputs, extra)
			if err != nil {
				return err
			}

			if opts.dryRun {
				ffArgs, err := hwaccel.Args(req)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), hwaccel.CommandLine(cfg.FFmpeg.Binary, ffArgs))
				return nil
			}

			useTUI := !opts.plain && isTerminal(cmd.OutOrStdout())
			var console io.Writer
			if !useTUI {
				console = cmd.ErrOrStderr()
			}
			logger, closeLog, err := ctx.logger(console)
			if err != nil {
				return err
			}
			defer func() { _ = closeLog() }()

			sup := encoder.New(cfg.FFmpeg.Binary,
				encoder.WithLogger(logger),
				encoder.WithCleanupPolicy(cfg.CleanupPolicy()),
			)

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if useTUI {
				return tui.Run(runCtx, sup, req)
			}
			return runPlain(runCtx, sup, req, cmd.OutOrStdout(), logger)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.output, "output", "o", "", "Output file (default: <first input>.hevc.mkv)")
	flags.StringVar(&opts.profile, "profile", "", "Encoding profile: "+profileNames())
	flags.StringVar(&opts.vendor, "vendor", "", "Hardware vendor: none, nvidia, amd, intel")
	flags.IntVar(&opts.device, "device", 0, "One-based adapter id from 'hevc-encoder gpus'")
	flags.IntVarP(&opts.quality, "quality", "q", 0, "Quality value 0-51, lower is better (default from profile)")
	flags.StringVar(&opts.preset, "preset", "", "Preset name from 'hevc-encoder presets'")
	flags.BoolVar(&opts.plain, "plain", false, "Print progress lines instead of the interactive UI")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "Print the ffmpeg command line and exit")

	return cmd
}

func splitAtDash(cmd *cobra.Command, args []string) ([]string, []string) {
	dash := cmd.ArgsLenAtDash()
	if dash < 0 {
		return args, nil
	}
	return args[:dash], args[dash:]
}

// buildRequest merges the configured defaults with the flags the user set.
func buildRequest(cmd *cobra.Command, cfg *config.Config, opts encodeOptions, inputs, extra []string) (hwaccel.Request, error) {
	if len(inputs) == 0 {
		return hwaccel.Request{}, errors.New("at least one input file is required")
	}
	for _, in := range inputs {
		if _, err := os.Stat(in); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return hwaccel.Request{}, fmt.Errorf("input file not found: %s", in)
			}
			return hwaccel.Request{}, fmt.Errorf("check input %s: %w", in, err)
		}
	}

	enc := cfg.Encode
	flags := cmd.Flags()
	if flags.Changed("profile") {
		enc.Profile = config.Profile(strings.ToLower(opts.profile))
		// A profile on the command line beats file overrides.
		enc.Quality = nil
		enc.Preset = ""
	}
	if flags.Changed("vendor") {
		enc.Vendor = opts.vendor
		if !flags.Changed("preset") {
			// Preset names are vendor specific.
			enc.Preset = ""
		}
	}
	if flags.Changed("device") {
		enc.Device = opts.device
	}
	if flags.Changed("quality") {
		q := opts.quality
		enc.Quality = &q
	}
	if flags.Changed("preset") {
		enc.Preset = opts.preset
	}

	probe := *cfg
	probe.Encode = enc
	if err := probe.Validate(); err != nil {
		return hwaccel.Request{}, err
	}
	settings, err := enc.Resolve()
	if err != nil {
		return hwaccel.Request{}, err
	}

	output := opts.output
	if output == "" {
		output = defaultOutputPath(inputs[0])
	}

	return hwaccel.Request{
		Inputs:      inputs,
		Output:      output,
		Device:      settings.Device,
		Quality:     settings.Quality,
		PresetIndex: settings.PresetIndex,
		ExtraArgs:   extra,
	}, nil
}

func defaultOutputPath(input string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + ".hevc.mkv"
}

func profileNames() string {
	names := make([]string, 0, len(config.AvailableProfiles()))
	for _, p := range config.AvailableProfiles() {
		names = append(names, string(p))
	}
	return strings.Join(names, ", ")
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func logFields(req hwaccel.Request) []zap.Field {
	return []zap.Field{
		zap.Strings("inputs", req.Inputs),
		zap.String("output", req.Output),
		zap.Stringer("device", req.Device),
		zap.Int("quality", req.Quality),
	}
}
