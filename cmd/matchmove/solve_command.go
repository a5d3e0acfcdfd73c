package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/solvekit/matchmove/quality"
	"github.com/solvekit/matchmove/solve"
	"github.com/solvekit/matchmove/track"
)

func newSolveCommand(ctx *commandContext) *cobra.Command {
	var (
		filter     bool
		reportPath string
		withFrames bool
	)

	cmd := &cobra.Command{
		Use:   "solve <session.json>",
		Short: "Analyze track quality and solve the camera path",
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
			logger := ctx.ensureLogger()
			out := cmd.OutOrStdout()

			analyzer := quality.NewAnalyzer(session, logger)
			if filter {
				dropped := analyzer.FilterByCorrelation(cfg.Quality.MinCorrelation)
				dropped += analyzer.FilterShort(cfg.Quality.MinFrames)
				fmt.Fprintf(out, "Disabled %d low-quality tracks\n", dropped)
			}

			rows := make([][]string, 0)
			for _, m := range analyzer.Metrics() {
				flag := ""
				if m.IsShort {
					flag = "short"
				}
				if m.IsHighError {
					if flag != "" {
						flag += ", "
					}
					flag += "high error"
				}
				rows = append(rows, []string{
					m.Name,
					fmt.Sprintf("%d", m.MarkerCount),
					fmt.Sprintf("%.0f%%", m.TrackLengthPercent*100),
					fmt.Sprintf("%.2f", m.AvgCorrelation),
					fmt.Sprintf("%.2f px", m.AvgError),
					flag,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Track", "Markers", "Coverage", "Correlation", "Error", "Flags"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft},
			))
			fmt.Fprintf(out, "Readiness: %.0f/100\n", analyzer.ReadinessScore())
			for _, rec := range analyzer.Recommendations() {
				fmt.Fprintf(out, "  - %s\n", rec)
			}

			orchestrator, err := solve.NewOrchestrator(solve.NewCircularPathBackend(), logger)
			if err != nil {
				return err
			}
			flags := solve.RefineFlags{
				FocalLength:          cfg.Solving.RefineFocalLength,
				PrincipalPoint:       cfg.Solving.RefinePrincipalPoint,
				RadialDistortion:     cfg.Solving.RefineRadial,
				TangentialDistortion: cfg.Solving.RefineTangential,
			}
			report := orchestrator.Solve(cmd.Context(), session, flags, func(stage string, fraction float64) {
				logger.Debug("solving", "stage", stage, "progress", fraction)
			})

			fmt.Fprintln(out, renderTable(
				[]string{"Field", "Value"},
				[][]string{
					{"Status", orchestrator.State().String()},
					{"Frames solved", fmt.Sprintf("%d", report.FramesSolved)},
					{"Tracks used", fmt.Sprintf("%d", report.TracksUsed)},
					{"Keyframes", fmt.Sprintf("%d / %d", report.Keyframes.A, report.Keyframes.B)},
					{"Avg error", fmt.Sprintf("%.3f px", report.AverageError)},
					{"Error range", fmt.Sprintf("%.3f - %.3f px", report.MinError, report.MaxError)},
				},
				[]columnAlignment{alignLeft, alignRight},
			))
			for _, w := range report.Warnings {
				fmt.Fprintf(out, "  warning: %s\n", w)
			}
			if !report.Success {
				return errors.Errorf("solve failed: %s", report.Message)
			}

			if reportPath != "" {
				if !withFrames {
					report.Frames = nil
				}
				data, err := json.MarshalIndent(report, "", "  ")
				if err != nil {
					return errors.Wrap(err, "can't encode solve report")
				}
				if err := os.WriteFile(reportPath, data, 0o644); err != nil {
					return errors.Wrapf(err, "can't write solve report %s", reportPath)
				}
				fmt.Fprintf(out, "Solve report saved to %s\n", reportPath)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&filter, "filter", false, "Disable low-correlation and short tracks before solving")
	cmd.Flags().StringVar(&reportPath, "report", "", "Write the solve report as JSON to this path")
	cmd.Flags().BoolVar(&withFrames, "with-frames", false, "Include per-frame camera results in the saved report")
	return cmd
}
