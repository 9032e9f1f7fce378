package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/turtacn/MechanismLab/pkg/errors"
	"github.com/turtacn/MechanismLab/pkg/types/chem"
)

func newProfileCmd() *cobra.Command {
	var (
		cf        conditionFlags
		mechLabel string
		samples   int
	)

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Build a reaction-coordinate energy profile",
		Long: "Build the energy profile of a mechanism. Either name the mechanism with\n" +
			"--mechanism (optionally with --substrate and --leaving-group), or give all\n" +
			"five condition flags to profile the predicted primary mechanism.",
		Example: "  mechlab profile --mechanism E1 --substrate tertiary --samples 20\n" +
			"  mechlab profile --substrate primary --nucleophile strong-small \\\n" +
			"      --leaving-group excellent --solvent polar-aprotic --temperature room -o json",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			req, err := profileRequest(&cf, mechLabel, samples)
			if err != nil {
				return err
			}
			ctx, cancel := cliCtx.commandContext(cmd)
			defer cancel()

			resp, err := cliCtx.Engine.Profile(ctx, req)
			if err != nil {
				return err
			}
			return printResult(cmd, cliCtx.OutputFormat, resp,
				func(w io.Writer) { writeProfile(w, resp.Profile, resp.Plot) }, resp.Profile)
		},
	}
	cf.bind(cmd.Flags())
	cmd.Flags().StringVarP(&mechLabel, "mechanism", "m", "", "mechanism (SN2, SN1, E2, E1, SN1-or-SN2, hydrogenation)")
	cmd.Flags().IntVar(&samples, "samples", 0, "interpolated points per segment in the returned curve")
	return cmd
}

func profileRequest(cf *conditionFlags, mechLabel string, samples int) (chem.ProfileRequest, error) {
	req := chem.ProfileRequest{Samples: samples}
	if mechLabel == "" {
		cond, err := cf.conditionSet()
		if err != nil {
			return req, err
		}
		if cond == nil {
			return req, errors.InvalidParam("--mechanism or a full condition set required")
		}
		req.Conditions = cond
		return req, nil
	}

	if cf.nucleophile != "" || cf.solvent != "" || cf.temperature != "" {
		return req, errors.InvalidParam("--mechanism combines only with --substrate and --leaving-group")
	}
	m, err := chem.ParseMechanism(mechLabel)
	if err != nil {
		return req, err
	}
	req.Mechanism = m
	if cf.substrate != "" {
		if req.Substrate, err = chem.ParseSubstrateClass(cf.substrate); err != nil {
			return req, err
		}
	}
	if cf.leavingGroup != "" {
		if req.LeavingGroup, err = chem.ParseLeavingGroupQuality(cf.leavingGroup); err != nil {
			return req, err
		}
	}
	return req, nil
}
