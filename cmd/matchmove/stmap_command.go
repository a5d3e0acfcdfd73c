package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/solvekit/matchmove/distort"
)

func newSTMapCommand(ctx *commandContext) *cobra.Command {
	var (
		profileName string
		width       int
		height      int
		redistort   bool
		overscan    float64
		rawRange    bool
		workers     int
		outPath     string
	)

	cmd := &cobra.Command{
		Use:   "stmap",
		Short: "Generate an ST-Map image for a camera profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ctx.ensureProfiles()
			if err != nil {
				return err
			}
			if profileName == "" {
				profileName = cfg.Camera.Profile
			}
			profile, err := store.Lookup(profileName)
			if err != nil {
				return err
			}

			logger := ctx.ensureLogger()
			logger.Info("generating ST-Map",
				"profile", profile.Name, "width", width, "height", height,
				"undistort", !redistort, "overscan", overscan)

			img, err := distort.GenerateSTMap(profile, distort.STMapOptions{
				Width:     width,
				Height:    height,
				Undistort: !redistort,
				Overscan:  overscan,
				Normalize: !rawRange,
				Workers:   workers,
			})
			if err != nil {
				return err
			}

			f, err := os.Create(outPath)
			if err != nil {
				return errors.Wrapf(err, "can't create %s", outPath)
			}
			defer f.Close()

			switch strings.ToLower(filepath.Ext(outPath)) {
			case ".png":
				err = distort.WritePNG(f, img)
			case ".tif", ".tiff":
				err = distort.WriteTIFF(f, img)
			default:
				return errors.Errorf("unsupported ST-Map format %q, use .png, .tif or .tiff", filepath.Ext(outPath))
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %dx%d ST-Map to %s\n", width, height, outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&profileName, "profile", "p", "", "Camera profile name (default from config)")
	cmd.Flags().IntVar(&width, "width", 1920, "Map width in pixels")
	cmd.Flags().IntVar(&height, "height", 1080, "Map height in pixels")
	cmd.Flags().BoolVar(&redistort, "redistort", false, "Encode the forward (distorting) mapping instead of the undistorting one")
	cmd.Flags().Float64Var(&overscan, "overscan", 0, "Extra sampled area beyond the frame, as a fraction per side")
	cmd.Flags().BoolVar(&rawRange, "raw-range", false, "Keep out-of-frame coordinates instead of clamping to [0,1]")
	cmd.Flags().IntVar(&workers, "workers", 0, "Worker goroutines (0 = all CPUs)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "stmap.png", "Output file (.png, .tif or .tiff)")
	return cmd
}
