package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/turtacn/MechanismLab/pkg/types/chem"
)

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse NOTATION...",
		Short: "Extract structural features from line notations",
		Long: "Parse one or more line notations and report atom counts, bond counts,\n" +
			"rings, functional groups and the substitution class of each molecule.",
		Example: "  mechlab parse CCBr 'CC(C)(C)Cl'\n  mechlab parse c1ccccc1O -o table",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := cliCtx.commandContext(cmd)
			defer cancel()

			features := make([]*chem.MoleculeFeatures, 0, len(args))
			for _, notation := range args {
				f, err := cliCtx.Engine.Parse(ctx, notation)
				if err != nil {
					return err
				}
				features = append(features, f)
			}

			var data interface{} = features
			if len(features) == 1 {
				data = features[0]
			}
			return printResult(cmd, cliCtx.OutputFormat, data, func(w io.Writer) {
				for i, f := range features {
					if i > 0 {
						fmt.Fprintln(w)
					}
					writeFeatures(w, f)
				}
			}, featureTable(features))
		},
	}
}
