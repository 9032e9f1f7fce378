package mechanism

import (
	"math"

	"github.com/turtacn/MechanismLab/pkg/types/chem"
)

// Override scores. They replace the weighted sum outright.
const (
	vinylSubstitutionScore = -10
	methylE1Score          = -10
	methylE2Score          = -5
)

// normalizationEpsilon keeps every mechanism's share above zero before
// rounding, so an all-floor score vector still yields a distribution.
const normalizationEpsilon = 0.1

// Score ranks SN2, SN1, E2 and E1 for a condition set. It is total: axis
// values missing from a table contribute nothing and an unknown leaving
// group is neutral. Callers that need strict input should run
// ConditionSet.Validate first.
func Score(c chem.ConditionSet) *chem.MechanismPrediction {
	mechs := chem.ScoredMechanisms()
	factor := LeavingGroupFactor(c.LeavingGroup)

	scores := make([]chem.MechanismScore, len(mechs))
	for i, m := range mechs {
		sum := 0
		for _, contrib := range contributions(c, m) {
			sum += contrib.value
		}
		scores[i] = chem.MechanismScore{
			Mechanism: m,
			Raw:       int(math.Round(float64(sum) * factor)),
			Rationale: rationale(c, m),
		}
	}

	applyOverrides(c, scores)
	normalize(scores)

	p := &chem.MechanismPrediction{
		Conditions: c,
		Scores:     scores,
	}
	p.Primary, p.Secondary = rank(scores)
	if p.Primary.IsElimination() {
		p.EliminationProduct = chem.EliminationZaitsev
		if c.Nucleophile == chem.NucleophileStrongBulky {
			p.EliminationProduct = chem.EliminationHofmann
		}
	}
	return p
}

type contribution struct {
	axis  string
	label string
	value int
}

// contributions lists each axis' weight for m in axis order.
func contributions(c chem.ConditionSet, m chem.Mechanism) []contribution {
	return []contribution{
		{"substrate", string(c.Substrate), substrateWeights[c.Substrate][m]},
		{"nucleophile", string(c.Nucleophile), nucleophileWeights[c.Nucleophile][m]},
		{"solvent", string(c.Solvent), solventWeights[c.Solvent][m]},
		{"temperature", string(c.Temperature), temperatureWeights[c.Temperature][m]},
	}
}

// rationale names the axis with the largest positive weight, earliest axis
// on ties. Empty when no axis contributes positively.
func rationale(c chem.ConditionSet, m chem.Mechanism) string {
	best := contribution{}
	for _, contrib := range contributions(c, m) {
		if contrib.value > best.value {
			best = contrib
		}
	}
	if best.value <= 0 {
		return ""
	}
	return best.axis + "=" + best.label
}

func applyOverrides(c chem.ConditionSet, scores []chem.MechanismScore) {
	for i := range scores {
		s := &scores[i]
		switch {
		case c.Substrate == chem.SubstrateVinyl && (s.Mechanism == chem.MechanismSN1 || s.Mechanism == chem.MechanismSN2):
			s.Raw = vinylSubstitutionScore
			s.Rationale = "override:vinyl"
		case c.Substrate == chem.SubstrateMethyl && s.Mechanism == chem.MechanismE1:
			s.Raw = methylE1Score
			s.Rationale = "override:methyl"
		case c.Substrate == chem.SubstrateMethyl && s.Mechanism == chem.MechanismE2:
			s.Raw = methylE2Score
			s.Rationale = "override:methyl"
		}
	}
	if c.LeavingGroup != chem.LeavingGroupPoor {
		return
	}
	for i := range scores {
		if scores[i].Raw > 0 {
			scores[i].Raw = 0
			scores[i].Rationale = "override:poor-leaving-group"
		}
	}
}

// normalize fills Percent so the values are non-negative and sum to exactly
// 100. The rounding remainder goes to the highest raw score.
func normalize(scores []chem.MechanismScore) {
	if len(scores) == 0 {
		return
	}
	lowest := scores[0].Raw
	for _, s := range scores[1:] {
		if s.Raw < lowest {
			lowest = s.Raw
		}
	}

	adjusted := make([]float64, len(scores))
	total := 0.0
	for i, s := range scores {
		adjusted[i] = math.Max(0, float64(s.Raw-lowest)+normalizationEpsilon)
		total += adjusted[i]
	}

	sum := 0
	top := 0
	for i := range scores {
		scores[i].Percent = int(math.Round(100 * adjusted[i] / total))
		sum += scores[i].Percent
		if scores[i].Raw > scores[top].Raw {
			top = i
		}
	}
	scores[top].Percent += 100 - sum
}

// rank picks the primary and optional secondary by percentage. Ties keep
// table order, which is SN2 > SN1 > E2 > E1.
func rank(scores []chem.MechanismScore) (primary, secondary chem.Mechanism) {
	first, second := -1, -1
	for i, s := range scores {
		switch {
		case first < 0 || s.Percent > scores[first].Percent:
			second = first
			first = i
		case second < 0 || s.Percent > scores[second].Percent:
			second = i
		}
	}
	if first < 0 {
		return chem.MechanismNone, chem.MechanismNone
	}
	primary = scores[first].Mechanism
	if second >= 0 && scores[second].Percent > CompetitionThreshold {
		secondary = scores[second].Mechanism
	}
	return primary, secondary
}
