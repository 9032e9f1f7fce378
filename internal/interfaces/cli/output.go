package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/turtacn/MechanismLab/pkg/errors"
	"github.com/turtacn/MechanismLab/pkg/types/chem"
)

// tableProvider is implemented by result types with a tabular rendering.
type tableProvider interface {
	TableHeaders() []string
	TableRows() [][]string
}

// textRenderer writes the human-readable form of a result.
type textRenderer func(w io.Writer)

var (
	headingColor = color.New(color.Bold)
	primaryColor = color.New(color.FgGreen, color.Bold)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed, color.Bold)
)

// printResult writes data in the selected format. text falls back to the
// table form when no renderer is given.
func printResult(cmd *cobra.Command, format string, data interface{}, text textRenderer, tables ...tableProvider) error {
	w := cmd.OutOrStdout()
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode yaml")
		}
		return enc.Close()
	case FormatTableOutput:
		for i, t := range tables {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprint(w, FormatTable(t.TableHeaders(), t.TableRows()))
		}
		return nil
	default:
		if text != nil {
			text(w)
			return nil
		}
		for _, t := range tables {
			fmt.Fprint(w, FormatTable(t.TableHeaders(), t.TableRows()))
		}
		return nil
	}
}

// FormatTable renders headers and rows as a bordered table.
func FormatTable(headers []string, rows [][]string) string {
	if len(headers) == 0 {
		return ""
	}
	var buf strings.Builder
	table := tablewriter.NewWriter(&buf)
	cols := make([]any, len(headers))
	for i, h := range headers {
		cols[i] = h
	}
	table.Header(cols...)
	_ = table.Bulk(rows)
	_ = table.Render()
	return buf.String()
}

// PrintError writes err to stderr. AppErrors already carry their code in
// the message.
func PrintError(cmd *cobra.Command, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", errorColor.Sprint("Error:"), err.Error())
}

// field writes an aligned "label  value" line.
func field(w io.Writer, label string, value interface{}) {
	fmt.Fprintf(w, "%-14s %v\n", label, value)
}

func kcal(v float64) string {
	return fmt.Sprintf("%.1f kcal/mol", v)
}

func confidenceText(c chem.Confidence) string {
	switch c {
	case chem.ConfidenceHigh:
		return primaryColor.Sprint(c)
	case chem.ConfidenceLow:
		return warnColor.Sprint(c)
	}
	return string(c)
}

func writeFeatures(w io.Writer, f *chem.MoleculeFeatures) {
	headingColor.Fprintln(w, f.Notation)
	field(w, "carbons", f.Carbons)
	field(w, "halogens", fmt.Sprintf("F=%d Cl=%d Br=%d I=%d", f.Fluorine, f.Chlorine, f.Bromine, f.Iodine))
	field(w, "heteroatoms", fmt.Sprintf("O=%d N=%d S=%d", f.Oxygen, f.Nitrogen, f.Sulfur))
	field(w, "bonds", fmt.Sprintf("double=%d triple=%d", f.DoubleBonds, f.TripleBonds))
	field(w, "rings", f.Rings)
	field(w, "branches", f.Branches)
	field(w, "aromatic", f.AromaticAtoms)
	field(w, "groups", f.Groups.String())
	field(w, "substitution", f.Substitution)
}

func featureTable(features []*chem.MoleculeFeatures) tableProvider {
	rows := make([][]string, 0, len(features))
	for _, f := range features {
		rows = append(rows, []string{
			f.Notation,
			fmt.Sprint(f.Carbons),
			fmt.Sprint(f.TotalHalogens()),
			fmt.Sprint(f.Oxygen),
			fmt.Sprint(f.Nitrogen),
			fmt.Sprint(f.DoubleBonds),
			fmt.Sprint(f.TripleBonds),
			fmt.Sprint(f.Rings),
			f.Groups.String(),
			string(f.Substitution),
		})
	}
	return staticTable{
		headers: []string{"Notation", "C", "Hal", "O", "N", "=", "#", "Rings", "Groups", "Substitution"},
		rows:    rows,
	}
}

type staticTable struct {
	headers []string
	rows    [][]string
}

func (t staticTable) TableHeaders() []string { return t.headers }
func (t staticTable) TableRows() [][]string  { return t.rows }

func writePrediction(w io.Writer, p *chem.MechanismPrediction) {
	for _, s := range p.Scores {
		line := fmt.Sprintf("%-4s %3d%%  %s", s.Mechanism, s.Percent, s.Rationale)
		switch s.Mechanism {
		case p.Primary:
			primaryColor.Fprintln(w, line+"  (primary)")
		case p.Secondary:
			warnColor.Fprintln(w, line+"  (competing)")
		default:
			fmt.Fprintln(w, line)
		}
	}
	if p.EliminationProduct != chem.EliminationNone {
		field(w, "alkene", p.EliminationProduct)
	}
}

func writeProfile(w io.Writer, p *chem.EnergyProfile, plot []chem.PlotPoint) {
	field(w, "mechanism", p.Mechanism)
	field(w, "steps", p.Steps)
	field(w, "Ea", kcal(p.Ea))
	field(w, "ΔH", kcal(p.DeltaH))
	if p.Description != "" {
		field(w, "description", p.Description)
	}
	for _, pt := range plot {
		if pt.Label == "" {
			continue
		}
		fmt.Fprintf(w, "  %-13s x=%.2f  %s\n", pt.Label, pt.X, kcal(pt.Y))
	}
}

func writeAnalysis(w io.Writer, res *chem.AnalysisResult) {
	a := res.Analysis
	headingColor.Fprintf(w, "%s → %s\n", a.Reactant.Notation, a.Product.Notation)
	field(w, "category", a.Category)
	field(w, "mechanism", fmt.Sprintf("%s (%s confidence)", a.Mechanism, confidenceText(a.Confidence)))
	field(w, "bonds broken", strings.Join(a.BondsBroken, ", "))
	field(w, "bonds formed", strings.Join(a.BondsFormed, ", "))
	field(w, "ΔH", kcal(a.DeltaH))
	field(w, "Ea", kcal(a.Ea))
	if res.Prediction != nil {
		fmt.Fprintln(w)
		headingColor.Fprintln(w, "Condition scores")
		writePrediction(w, res.Prediction)
	}
	if res.Profile != nil {
		fmt.Fprintln(w)
		headingColor.Fprintln(w, "Energy profile")
		writeProfile(w, res.Profile, res.Plot)
	}
}
