package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/turtacn/MechanismLab/pkg/types/chem"
)

func newTablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "Show the scoring weights and energy constants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := cliCtx.commandContext(cmd)
			defer cancel()

			t, err := cliCtx.Engine.Tables(ctx)
			if err != nil {
				return err
			}
			return printResult(cmd, cliCtx.OutputFormat, t, func(w io.Writer) {
				headingColor.Fprintf(w, "weight tables %s\n", t.Version)
				enc := yaml.NewEncoder(w)
				enc.SetIndent(2)
				_ = enc.Encode(t)
				_ = enc.Close()
			}, weightTable(t))
		},
	}
}

// weightTable flattens the four scoring axes into one table, one row per
// axis value.
func weightTable(t *chem.WeightTables) tableProvider {
	headers := []string{"Axis", "Value"}
	for _, m := range t.Mechanisms {
		headers = append(headers, string(m))
	}

	var rows [][]string
	add := func(axis string, values map[string]map[chem.Mechanism]int) {
		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			row := []string{axis, k}
			for _, m := range t.Mechanisms {
				row = append(row, fmt.Sprintf("%+d", values[k][m]))
			}
			rows = append(rows, row)
		}
	}
	add("substrate", stringKeys(t.Substrate))
	add("nucleophile", stringKeys(t.Nucleophile))
	add("solvent", stringKeys(t.Solvent))
	add("temperature", stringKeys(t.Temperature))
	return staticTable{headers: headers, rows: rows}
}

func stringKeys[K ~string](m map[K]map[chem.Mechanism]int) map[string]map[chem.Mechanism]int {
	out := make(map[string]map[chem.Mechanism]int, len(m))
	for k, v := range m {
		out[string(k)] = v
	}
	return out
}
