package chem

import (
	"fmt"
	"strconv"
)

// ─────────────────────────────────────────────────────────────────────────────
// ReactionAnalysis
// ─────────────────────────────────────────────────────────────────────────────

// ReactionAnalysis is the structural classification of a reactant/product
// pair together with its bond-based energetics.
type ReactionAnalysis struct {
	Reactant *MoleculeFeatures `json:"reactant" yaml:"reactant"`
	Product  *MoleculeFeatures `json:"product" yaml:"product"`

	Category   Category   `json:"category" yaml:"category"`
	Mechanism  Mechanism  `json:"mechanism" yaml:"mechanism"`
	Confidence Confidence `json:"confidence" yaml:"confidence"`

	BondsBroken []string `json:"bonds_broken" yaml:"bonds_broken"`
	BondsFormed []string `json:"bonds_formed" yaml:"bonds_formed"`

	// DeltaH and Ea are in kcal/mol. Ea is never below the barrier floor.
	DeltaH float64 `json:"delta_h" yaml:"delta_h"`
	Ea     float64 `json:"ea" yaml:"ea"`
}

// TableHeaders implements the CLI table provider.
func (a *ReactionAnalysis) TableHeaders() []string {
	return []string{"Category", "Mechanism", "Confidence", "Broken", "Formed", "ΔH", "Ea"}
}

// TableRows implements the CLI table provider.
func (a *ReactionAnalysis) TableRows() [][]string {
	return [][]string{{
		string(a.Category),
		a.Mechanism.String(),
		string(a.Confidence),
		fmt.Sprint(a.BondsBroken),
		fmt.Sprint(a.BondsFormed),
		formatEnergy(a.DeltaH),
		formatEnergy(a.Ea),
	}}
}

// ─────────────────────────────────────────────────────────────────────────────
// MechanismPrediction
// ─────────────────────────────────────────────────────────────────────────────

// EliminationProduct names the alkene an elimination favours.
type EliminationProduct string

const (
	EliminationNone    EliminationProduct = ""
	EliminationZaitsev EliminationProduct = "zaitsev"
	EliminationHofmann EliminationProduct = "hofmann"
)

// MechanismScore is one mechanism's row in a prediction.
type MechanismScore struct {
	Mechanism Mechanism `json:"mechanism" yaml:"mechanism"`
	Raw       int       `json:"raw" yaml:"raw"`
	Percent   int       `json:"percent" yaml:"percent"`

	// Rationale names the strongest contributing axis, or the override that
	// fixed the score.
	Rationale string `json:"rationale,omitempty" yaml:"rationale,omitempty"`
}

// MechanismPrediction is the condition scorer's likelihood distribution over
// SN2, SN1, E2 and E1. Percentages are non-negative and sum to 100.
type MechanismPrediction struct {
	Conditions ConditionSet     `json:"conditions" yaml:"conditions"`
	Scores     []MechanismScore `json:"scores" yaml:"scores"`
	Primary    Mechanism        `json:"primary" yaml:"primary"`

	// Secondary is MechanismNone unless the runner-up exceeds the
	// competition threshold.
	Secondary Mechanism `json:"secondary" yaml:"secondary,omitempty"`

	EliminationProduct EliminationProduct `json:"elimination_product,omitempty" yaml:"elimination_product,omitempty"`
}

// Score returns the row for m, or false when m is not scored.
func (p *MechanismPrediction) Score(m Mechanism) (MechanismScore, bool) {
	for _, s := range p.Scores {
		if s.Mechanism == m {
			return s, true
		}
	}
	return MechanismScore{}, false
}

// Percent returns the percentage for m, zero when m is not scored.
func (p *MechanismPrediction) Percent(m Mechanism) int {
	s, _ := p.Score(m)
	return s.Percent
}

// HasSecondary reports whether a competing mechanism is present.
func (p *MechanismPrediction) HasSecondary() bool {
	return p.Secondary != MechanismNone
}

func (p *MechanismPrediction) TableHeaders() []string {
	return []string{"Mechanism", "Raw", "Percent", "Rationale"}
}

func (p *MechanismPrediction) TableRows() [][]string {
	rows := make([][]string, 0, len(p.Scores))
	for _, s := range p.Scores {
		name := string(s.Mechanism)
		switch s.Mechanism {
		case p.Primary:
			name += " *"
		case p.Secondary:
			name += " +"
		}
		rows = append(rows, []string{name, strconv.Itoa(s.Raw), strconv.Itoa(s.Percent) + "%", s.Rationale})
	}
	return rows
}

// ─────────────────────────────────────────────────────────────────────────────
// EnergyProfile
// ─────────────────────────────────────────────────────────────────────────────

// EnergyProfile describes a reaction-coordinate diagram. Start is 0 by
// convention. A two-step profile carries two transition states and one
// intermediate; a one-step profile carries one transition state and none.
type EnergyProfile struct {
	Mechanism        Mechanism `json:"mechanism" yaml:"mechanism"`
	Steps            int       `json:"steps" yaml:"steps"`
	Start            float64   `json:"start" yaml:"start"`
	TransitionStates []float64 `json:"transition_states" yaml:"transition_states"`
	Intermediates    []float64 `json:"intermediates" yaml:"intermediates"`
	Final            float64   `json:"final" yaml:"final"`

	// Ea is the rate-determining barrier measured from Start.
	Ea          float64 `json:"ea" yaml:"ea"`
	DeltaH      float64 `json:"delta_h" yaml:"delta_h"`
	Description string  `json:"description" yaml:"description"`
}

// Validate checks the step/intermediate shape.
func (p *EnergyProfile) Validate() error {
	switch p.Steps {
	case 1:
		if len(p.TransitionStates) != 1 || len(p.Intermediates) != 0 {
			return fmt.Errorf("one-step profile needs 1 transition state and 0 intermediates, got %d/%d",
				len(p.TransitionStates), len(p.Intermediates))
		}
	case 2:
		if len(p.TransitionStates) != 2 || len(p.Intermediates) != 1 {
			return fmt.Errorf("two-step profile needs 2 transition states and 1 intermediate, got %d/%d",
				len(p.TransitionStates), len(p.Intermediates))
		}
	default:
		return fmt.Errorf("unsupported step count %d", p.Steps)
	}
	return nil
}

func (p *EnergyProfile) TableHeaders() []string {
	return []string{"Mechanism", "Steps", "TS", "Intermediate", "Final", "Ea"}
}

func (p *EnergyProfile) TableRows() [][]string {
	inter := "-"
	if len(p.Intermediates) > 0 {
		inter = formatEnergy(p.Intermediates[0])
	}
	ts := ""
	for i, e := range p.TransitionStates {
		if i > 0 {
			ts += " / "
		}
		ts += formatEnergy(e)
	}
	return [][]string{{
		p.Mechanism.String(), strconv.Itoa(p.Steps), ts, inter, formatEnergy(p.Final), formatEnergy(p.Ea),
	}}
}

// PlotLabel marks an anchor on the reaction coordinate.
type PlotLabel string

const (
	LabelReactants    PlotLabel = "reactants"
	LabelTS1          PlotLabel = "TS1"
	LabelIntermediate PlotLabel = "intermediate"
	LabelTS2          PlotLabel = "TS2"
	LabelProducts     PlotLabel = "products"
)

// PlotPoint is one point of an energy diagram. Interpolated points carry an
// empty label.
type PlotPoint struct {
	X     float64   `json:"x" yaml:"x"`
	Y     float64   `json:"y" yaml:"y"`
	Label PlotLabel `json:"label,omitempty" yaml:"label,omitempty"`
}

func formatEnergy(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
