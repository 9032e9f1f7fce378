package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/turtacn/MechanismLab/pkg/errors"
)

func newScoreCmd() *cobra.Command {
	var cf conditionFlags

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Rank SN2, SN1, E2 and E1 for a set of conditions",
		Long: "Score the four substitution and elimination mechanisms for a substrate,\n" +
			"nucleophile, leaving group, solvent and temperature. Percentages sum to 100.",
		Example: "  mechlab score --substrate secondary --nucleophile strong-bulky \\\n" +
			"      --leaving-group good --solvent polar-aprotic --temperature elevated",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			cond, err := cf.conditionSet()
			if err != nil {
				return err
			}
			if cond == nil {
				return errors.New(errors.ErrCodeInvalidCondition, "conditions required").
					WithDetail("set --substrate --nucleophile --leaving-group --solvent --temperature")
			}
			ctx, cancel := cliCtx.commandContext(cmd)
			defer cancel()

			p, err := cliCtx.Engine.Score(ctx, *cond)
			if err != nil {
				return err
			}
			return printResult(cmd, cliCtx.OutputFormat, p, func(w io.Writer) { writePrediction(w, p) }, p)
		},
	}
	cf.bind(cmd.Flags())
	return cmd
}
