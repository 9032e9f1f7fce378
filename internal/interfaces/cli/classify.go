package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/turtacn/MechanismLab/pkg/errors"
	"github.com/turtacn/MechanismLab/pkg/types/chem"
)

func newClassifyCmd() *cobra.Command {
	var cf conditionFlags

	cmd := &cobra.Command{
		Use:   "classify REACTANT PRODUCT",
		Short: "Classify a reaction and estimate its energetics",
		Long: "Compare reactant and product notations, infer the reaction category and\n" +
			"mechanism, and estimate ΔH, Ea and the energy profile. Giving all five\n" +
			"condition flags also ranks SN2, SN1, E2 and E1 for those conditions.",
		Example: "  mechlab classify CCBr CCO\n" +
			"  mechlab classify 'CC(C)(C)Br' 'CC(C)(C)O' --substrate tertiary --nucleophile weak \\\n" +
			"      --leaving-group good --solvent polar-protic --temperature room",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			cond, err := cf.conditionSet()
			if err != nil {
				return err
			}
			ctx, cancel := cliCtx.commandContext(cmd)
			defer cancel()

			res, err := cliCtx.Engine.Analyze(ctx, chem.AnalyzeRequest{Reactant: args[0], Product: args[1], Conditions: cond})
			if err != nil {
				return err
			}
			tables := []tableProvider{res.Analysis}
			if res.Prediction != nil {
				tables = append(tables, res.Prediction)
			}
			if res.Profile != nil {
				tables = append(tables, res.Profile)
			}
			return printResult(cmd, cliCtx.OutputFormat, res, func(w io.Writer) { writeAnalysis(w, res) }, tables...)
		},
	}
	cf.bind(cmd.Flags())
	return cmd
}

// batchFile is the document read by the batch command, in YAML or JSON.
type batchFile struct {
	Items []chem.AnalyzeRequest `yaml:"items"`
}

func newBatchCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Classify several reactions from a file",
		Long: "Read a YAML or JSON document with an items list of reactant/product pairs\n" +
			"and optional conditions, and analyze them in one request. Failed entries\n" +
			"are reported in place and do not stop the others.",
		Example: "  mechlab batch --file reactions.yaml\n  cat reactions.json | mechlab batch --file - -o json",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			items, err := readBatchFile(cmd, file)
			if err != nil {
				return err
			}
			ctx, cancel := cliCtx.commandContext(cmd)
			defer cancel()

			resp, err := cliCtx.Engine.AnalyzeBatch(ctx, items)
			if err != nil {
				return err
			}
			return printResult(cmd, cliCtx.OutputFormat, resp,
				func(w io.Writer) { writeBatch(w, items, resp) },
				batchTable(items, resp))
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "batch file, or - for stdin [REQUIRED]")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func readBatchFile(cmd *cobra.Command, path string) ([]chem.AnalyzeRequest, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeBadRequest, "failed to read batch file").WithDetail("path=" + path)
	}

	var doc batchFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		var appErr *errors.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, errors.Wrap(err, errors.ErrCodeBadRequest, "invalid batch file").WithDetail("path=" + path)
	}
	if len(doc.Items) == 0 {
		return nil, errors.InvalidParam("batch file has no items").WithDetail("path=" + path)
	}
	return doc.Items, nil
}

func writeBatch(w io.Writer, items []chem.AnalyzeRequest, resp *chem.BatchAnalyzeResponse) {
	for _, it := range resp.Items {
		req := items[it.Index]
		label := fmt.Sprintf("#%d %s → %s", it.Index, req.Reactant, req.Product)
		if it.Error != nil {
			fmt.Fprintf(w, "%s  %s\n", label, errorColor.Sprintf("%s %s", it.Error.Code, it.Error.Message))
			continue
		}
		a := it.Result.Analysis
		fmt.Fprintf(w, "%s  %s %s, Ea %s\n", label, a.Category, primaryColor.Sprint(a.Mechanism), kcal(a.Ea))
	}
	fmt.Fprintf(w, "\n%d succeeded, %d failed\n", resp.Succeeded, resp.Failed)
}

func batchTable(items []chem.AnalyzeRequest, resp *chem.BatchAnalyzeResponse) tableProvider {
	rows := make([][]string, 0, len(resp.Items))
	for _, it := range resp.Items {
		req := items[it.Index]
		row := []string{fmt.Sprint(it.Index), req.Reactant, req.Product}
		if it.Error != nil {
			row = append(row, "-", "-", "-", strings.TrimSpace(it.Error.Code+" "+it.Error.Message))
		} else {
			a := it.Result.Analysis
			row = append(row, string(a.Category), a.Mechanism.String(), fmt.Sprintf("%.1f", a.Ea), "")
		}
		rows = append(rows, row)
	}
	return staticTable{
		headers: []string{"#", "Reactant", "Product", "Category", "Mechanism", "Ea", "Error"},
		rows:    rows,
	}
}
