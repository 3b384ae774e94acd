package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"hevc-encoder/config"
	"hevc-encoder/gpu"
	"hevc-encoder/hwaccel"
)

func newPresetsCommand() *cobra.Command {
	var vendorFlag string

	cmd := &cobra.Command{
		Use:         "presets",
		Short:       "List encoder presets per hardware vendor",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			vendors := hwaccel.Vendors()
			if vendorFlag != "" {
				v, err := hwaccel.ParseVendor(vendorFlag)
				if err != nil {
					return err
				}
				vendors = []hwaccel.Vendor{v}
			}

			var rows [][]string
			for _, v := range vendors {
				for i, name := range hwaccel.Presets(v) {
					rows = append(rows, []string{v.String(), hwaccel.CodecName(v), strconv.Itoa(i), name})
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Vendor", "Codec", "Index", "Preset"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().StringVar(&vendorFlag, "vendor", "", "Only list presets for this vendor")
	return cmd
}

func newProfilesCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "profiles",
		Short:       "List encoding profiles",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var rows [][]string
			for _, p := range config.AvailableProfiles() {
				settings := config.GetProfile(p)
				preset := "encoder default"
				if name, ok := settings.Presets[hwaccel.VendorNone]; ok {
					preset = name
				}
				rows = append(rows, []string{string(p), strconv.Itoa(settings.Quality), preset, config.ProfileDescription(p)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Profile", "Quality", "Preset (software)", "Description"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}
}

func newGPUsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "gpus",
		Short: "List video adapters usable for hardware encoding",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, closeLog, err := ctx.logger(nil)
			if err != nil {
				return err
			}
			defer func() { _ = closeLog() }()

			devices, err := gpu.List(cmd.Context(), logger)
			if errors.Is(err, gpu.ErrUnsupported) {
				fmt.Fprintln(cmd.OutOrStdout(), "Adapter discovery is only available on Windows; pass --vendor and --device explicitly.")
				return nil
			}
			if err != nil {
				return err
			}
			if len(devices) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No video adapters found.")
				return nil
			}

			rows := make([][]string, 0, len(devices))
			for _, d := range devices {
				rows = append(rows, []string{strconv.Itoa(d.Index + 1), d.Name, d.Vendor.String(), hwaccel.CodecName(d.Vendor)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Device", "Name", "Vendor", "Codec"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
}
