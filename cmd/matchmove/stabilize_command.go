package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/solvekit/matchmove/stabilize"
	"github.com/solvekit/matchmove/track"
)

func newStabilizeCommand(ctx *commandContext) *cobra.Command {
	var (
		smoothTranslation float64
		smoothRotation    float64
		smoothScale       float64
		anchor            int
		invert            bool
		sampleEvery       int
		outPath           string
	)

	cmd := &cobra.Command{
		Use:   "stabilize <session.json>",
		Short: "Compute smoothed stabilization corrections for a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			session, err := track.LoadSession(args[0])
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("smooth-translation") {
				smoothTranslation = cfg.Stabilization.SmoothTranslation
			}
			if !cmd.Flags().Changed("smooth-rotation") {
				smoothRotation = cfg.Stabilization.SmoothRotation
			}
			if !cmd.Flags().Changed("smooth-scale") {
				smoothScale = cfg.Stabilization.SmoothScale
			}
			if !cmd.Flags().Changed("invert") {
				invert = cfg.Stabilization.Invert
			}

			st := stabilize.New(session, stabilize.Options{
				SmoothTranslation: smoothTranslation,
				SmoothRotation:    smoothRotation,
				SmoothScale:       smoothScale,
				Anchor:            anchor,
				Invert:            invert,
			}, ctx.ensureLogger())

			data, err := st.Analyze()
			if err != nil {
				return err
			}

			frames := make([]int, 0, len(data.Raw))
			for f := range data.Raw {
				frames = append(frames, f)
			}
			sort.Ints(frames)

			if sampleEvery < 1 {
				sampleEvery = 1
			}
			rows := make([][]string, 0)
			corrections := make(map[int]stabilize.Transform2D, len(frames))
			for i, f := range frames {
				c := st.Correction(data, f)
				corrections[f] = c
				if i%sampleEvery != 0 {
					continue
				}
				rows = append(rows, []string{
					fmt.Sprintf("%d", f),
					fmt.Sprintf("%+.2f px", c.Tx),
					fmt.Sprintf("%+.2f px", c.Ty),
					fmt.Sprintf("%+.4f rad", c.Rotation),
					fmt.Sprintf("%.4f", c.Scale),
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Frame", "Tx", "Ty", "Rotation", "Scale"},
				rows,
				[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight},
			))

			if outPath != "" {
				payload := struct {
					FrameStart  int                           `json:"frame_start"`
					FrameEnd    int                           `json:"frame_end"`
					Corrections map[int]stabilize.Transform2D `json:"corrections"`
				}{data.FrameStart, data.FrameEnd, corrections}
				encoded, err := json.MarshalIndent(payload, "", "  ")
				if err != nil {
					return errors.Wrap(err, "can't encode corrections")
				}
				if err := os.WriteFile(outPath, encoded, 0o644); err != nil {
					return errors.Wrapf(err, "can't write corrections %s", outPath)
				}
				fmt.Fprintf(out, "Corrections saved to %s\n", outPath)
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&smoothTranslation, "smooth-translation", 0.5, "Translation smoothing strength 0-1")
	cmd.Flags().Float64Var(&smoothRotation, "smooth-rotation", 0.5, "Rotation smoothing strength 0-1")
	cmd.Flags().Float64Var(&smoothScale, "smooth-scale", 0.5, "Scale smoothing strength 0-1")
	cmd.Flags().IntVar(&anchor, "anchor", 0, "Reference frame (0 = first frame)")
	cmd.Flags().BoolVar(&invert, "invert", false, "Report the camera's unwanted motion instead of its correction")
	cmd.Flags().IntVar(&sampleEvery, "sample", 1, "Print every Nth frame")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write per-frame corrections as JSON")
	return cmd
}
