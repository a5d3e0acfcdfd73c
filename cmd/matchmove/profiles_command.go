package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newProfilesCommand(ctx *commandContext) *cobra.Command {
	profilesCmd := &cobra.Command{
		Use:   "profiles",
		Short: "List camera profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.ensureProfiles()
			if err != nil {
				return err
			}
			rows := make([][]string, 0)
			for _, name := range store.Names() {
				p, err := store.Lookup(name)
				if err != nil {
					return err
				}
				rows = append(rows, []string{
					p.Name,
					p.Manufacturer,
					p.Model,
					fmt.Sprintf("%.1f x %.1f", p.SensorWidth, p.SensorHeight),
					fmt.Sprintf("%.1f", p.FocalLength),
					fmt.Sprintf("%.4f", p.Distortion.K1),
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Name", "Manufacturer", "Model", "Sensor (mm)", "Focal (mm)", "K1"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}

	profilesCmd.AddCommand(newProfilesShowCommand(ctx))
	return profilesCmd
}

func newProfilesShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show one profile, matched by exact or fuzzy name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.ensureProfiles()
			if err != nil {
				return err
			}
			p, err := store.Lookup(args[0])
			if err != nil {
				return err
			}
			d := p.Distortion
			rows := [][]string{
				{"Name", p.Name},
				{"Manufacturer", p.Manufacturer},
				{"Model", p.Model},
				{"Sensor", fmt.Sprintf("%.2f x %.2f mm", p.SensorWidth, p.SensorHeight)},
				{"Focal length", fmt.Sprintf("%.2f mm", p.FocalLength)},
				{"Crop factor", fmt.Sprintf("%.2f", p.CropFactor)},
				{"K1 / K2 / K3", fmt.Sprintf("%.5f / %.5f / %.5f", d.K1, d.K2, d.K3)},
				{"P1 / P2", fmt.Sprintf("%.5f / %.5f", d.P1, d.P2)},
				{"Center offset", fmt.Sprintf("%.4f, %.4f", d.Cx, d.Cy)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Field", "Value"}, rows,
				[]columnAlignment{alignLeft, alignLeft},
			))
			return nil
		},
	}
}
