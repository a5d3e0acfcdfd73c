package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/solvekit/matchmove/track"
	"github.com/solvekit/matchmove/tracker"
	"github.com/solvekit/matchmove/tracker/gocvbackend"
)

func newTrackCommand(ctx *commandContext) *cobra.Command {
	var (
		start     int
		end       int
		fps       float64
		width     int
		height    int
		detector  string
		synthetic bool
		outPath   string
	)

	cmd := &cobra.Command{
		Use:   "track <frame-pattern>",
		Short: "Auto-track an image sequence and save the session",
		Long: `Auto-track seeds feature tracks on the first frame, follows them with
optical flow, and reseeds whenever the count of live tracks drops below
the configured minimum. The frame pattern is printf style, e.g.
"shot/frame_%04d.png".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if end < start {
				return errors.Errorf("frame range [%d, %d] is empty", start, end)
			}

			opts := tracker.DefaultOptions()
			opts.MaxFeatures = cfg.Tracking.MaxFeatures
			opts.MinTracks = cfg.Tracking.MinTracks
			opts.PatternSize = cfg.Tracking.PatternSize
			opts.SearchSize = cfg.Tracking.SearchSize
			if detector == "" {
				detector = cfg.Tracking.Detector
			}
			kind, err := tracker.ParseDetectorKind(detector)
			if err != nil {
				return err
			}
			opts.Detector = kind

			var (
				frames tracker.FrameProvider
				det    tracker.FeatureDetector
				flow   tracker.OpticalFlow
			)
			if synthetic {
				backend := tracker.NewSyntheticBackend()
				frames, det, flow = backend, backend, backend
			} else {
				backend := gocvbackend.New(kind)
				frames = tracker.NewFileSequence(args[0])
				det, flow = backend, backend
			}

			logger := ctx.ensureLogger()
			pt, err := tracker.New(frames, det, flow, opts, logger)
			if err != nil {
				return err
			}

			session, err := track.NewSession(track.Footage{
				Width:      width,
				Height:     height,
				FPS:        fps,
				FrameStart: start,
				FrameEnd:   end,
			})
			if err != nil {
				return err
			}
			session.CameraProfile = cfg.Camera.Profile

			out := cmd.OutOrStdout()
			pt.Progress = func(done, total int) {
				fmt.Fprintf(out, "\rtracking %d/%d frames", done, total)
			}
			if err := pt.AutoTrack(cmd.Context(), session); err != nil {
				fmt.Fprintln(out)
				return err
			}
			fmt.Fprintln(out)

			if err := track.SaveSession(outPath, session); err != nil {
				return err
			}
			fmt.Fprintf(out, "Tracked %d tracks over frames %d-%d, session saved to %s\n",
				len(session.Tracks), start, end, outPath)
			return nil
		},
	}

	cmd.Flags().IntVar(&start, "start", 1, "First frame number")
	cmd.Flags().IntVar(&end, "end", 100, "Last frame number")
	cmd.Flags().Float64Var(&fps, "fps", 24.0, "Footage frame rate")
	cmd.Flags().IntVar(&width, "width", 1920, "Footage width in pixels")
	cmd.Flags().IntVar(&height, "height", 1080, "Footage height in pixels")
	cmd.Flags().StringVarP(&detector, "detector", "d", "", "Feature detector: fast, harris, sift, orb, brisk (default from config)")
	cmd.Flags().BoolVar(&synthetic, "synthetic", false, "Track a generated test scene instead of reading frames")
	cmd.Flags().StringVarP(&outPath, "out", "o", "session.json", "Session output file")
	return cmd
}
