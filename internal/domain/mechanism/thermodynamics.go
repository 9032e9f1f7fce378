package mechanism

import (
	"math"

	"github.com/turtacn/MechanismLab/pkg/types/chem"
)

// leavingGroupPenaltyScale converts (1 - factor) into kcal/mol on the first
// transition state.
const leavingGroupPenaltyScale = 5.0

type baseProfile struct {
	ts1          float64
	intermediate float64 // two-step only
	ts2Offset    float64 // two-step only, above the intermediate
	deltaH       float64
	description  string
}

var baseProfiles = map[chem.Mechanism]baseProfile{
	chem.MechanismSN2: {
		ts1: 18, deltaH: -5,
		description: "Concerted backside attack: bond to the nucleophile forms as the leaving group departs, inverting the stereocentre.",
	},
	chem.MechanismSN1: {
		ts1: 22, intermediate: 15, ts2Offset: 5, deltaH: -5,
		description: "Rate-limiting ionization to a planar carbocation, then fast capture by the nucleophile from either face.",
	},
	chem.MechanismE2: {
		ts1: 20, deltaH: 2,
		description: "Concerted anti-periplanar elimination: the base removes a β-hydrogen as the leaving group departs.",
	},
	chem.MechanismE1: {
		ts1: 22, intermediate: 15, ts2Offset: 8, deltaH: 2,
		description: "Rate-limiting ionization to a carbocation, then loss of a β-hydrogen to form the alkene.",
	},
	chem.MechanismHydrogenation: {
		ts1: 12, deltaH: -28,
		description: "Catalytic syn addition of H2 across the double bond on a metal surface.",
	},
	chem.MechanismNone: {
		ts1: 20, deltaH: 0,
		description: "No mechanism identified; generic single-barrier profile.",
	},
}

// stericTerm shifts the SN2 transition state by substrate crowding.
var stericTerm = map[chem.SubstrateClass]float64{
	chem.SubstrateMethyl:    -3,
	chem.SubstratePrimary:   0,
	chem.SubstrateSecondary: 5,
	chem.SubstrateTertiary:  15,
	chem.SubstrateVinyl:     15,
	chem.SubstrateAllylic:   -2,
	chem.SubstrateBenzylic:  -2,
}

// carbocationTerm shifts the SN1/E1 intermediate, and the ionization
// transition state with it, by carbocation stability.
var carbocationTerm = map[chem.SubstrateClass]float64{
	chem.SubstrateTertiary:  -5,
	chem.SubstrateBenzylic:  -5,
	chem.SubstrateAllylic:   -4,
	chem.SubstrateSecondary: 0,
	chem.SubstratePrimary:   8,
	chem.SubstrateMethyl:    12,
	chem.SubstrateVinyl:     12,
}

// EstimateProfile builds the energy profile of m for a substrate class and
// leaving group. SN1-or-SN2 is estimated as SN2. Substrate and leaving group
// only affect the SN and E mechanisms. It never fails; mechanisms without a
// base profile fall back to the generic one.
func EstimateProfile(m chem.Mechanism, s chem.SubstrateClass, lg chem.LeavingGroupQuality) *chem.EnergyProfile {
	m = m.ThermoDefault()
	base, ok := baseProfiles[m]
	if !ok {
		m = chem.MechanismNone
		base = baseProfiles[m]
	}

	p := &chem.EnergyProfile{
		Mechanism:   m,
		Steps:       m.Steps(),
		Start:       0,
		DeltaH:      base.deltaH,
		Final:       base.deltaH,
		Description: base.description,
	}

	ts1 := base.ts1
	if m.IsSubstitutionOrElimination() {
		ts1 += (1 - LeavingGroupFactor(lg)) * leavingGroupPenaltyScale
	}

	if p.Steps == 1 {
		if m == chem.MechanismSN2 {
			ts1 += stericTerm[s]
		}
		ts1 = math.Max(ts1, p.Start+MinActivationEnergy)
		p.TransitionStates = []float64{round2(ts1)}
		p.Intermediates = []float64{}
		p.Ea = round2(ts1 - p.Start)
		return p
	}

	shift := carbocationTerm[s]
	intermediate := base.intermediate + shift
	ts1 = math.Max(ts1+shift, intermediate)

	// Ionization is rate-limiting: the second transition state never rises
	// above the first, and Ea is measured to the first.
	ea := ts1 - p.Start
	if ea < MinActivationEnergy {
		ts1 += MinActivationEnergy - ea
		ea = MinActivationEnergy
	}
	ts2 := math.Min(intermediate+base.ts2Offset, ts1)

	p.TransitionStates = []float64{round2(ts1), round2(ts2)}
	p.Intermediates = []float64{round2(intermediate)}
	p.Ea = round2(ea)
	return p
}

// EstimateFromConditions profiles the primary mechanism the scorer picks for
// c.
func EstimateFromConditions(c chem.ConditionSet) *chem.EnergyProfile {
	return EstimateProfile(Score(c).Primary, c.Substrate, c.LeavingGroup)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
