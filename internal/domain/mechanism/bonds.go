package mechanism

import "math"

// DefaultBondEnergy is charged for a bond label missing from the table.
const DefaultBondEnergy = 80.0

// MinActivationEnergy is the floor for every activation energy the engine
// reports, in kcal/mol.
const MinActivationEnergy = 5.0

// Bell-Evans-Polanyi line used by the bond-based estimate.
const (
	intrinsicBarrier = 20.0
	bepSlope         = 0.25
)

// Hammond adjustment thresholds and offsets.
const (
	exothermicThreshold  = -20.0
	endothermicThreshold = 10.0
	earlyTSShift         = -3.0
	lateTSShift          = 5.0
)

// bondEnergies holds average bond dissociation energies in kcal/mol keyed by
// bond label ("-" single, "=" double, "#" triple).
var bondEnergies = map[string]float64{
	"C-H":  99,
	"C-C":  83,
	"C=C":  146,
	"C#C":  200,
	"C-O":  86,
	"C=O":  177,
	"C-N":  73,
	"C#N":  213,
	"C-F":  116,
	"C-Cl": 81,
	"C-Br": 68,
	"C-I":  51,
	"C-S":  65,
	"O-H":  111,
	"N-H":  93,
	"H-H":  104,
	"S-H":  83,
}

// BondEnergy returns the tabulated energy for label and whether it was
// found. Unknown labels return DefaultBondEnergy.
func BondEnergy(label string) (float64, bool) {
	if e, ok := bondEnergies[label]; ok {
		return e, true
	}
	return DefaultBondEnergy, false
}

// EstimateBonds computes ΔH as the energy of the broken bonds minus the
// energy of the formed ones, and derives Ea from a linear free-energy
// relation with a Hammond correction. Ea is never below MinActivationEnergy.
func EstimateBonds(broken, formed []string) (deltaH, ea float64) {
	for _, b := range broken {
		e, _ := BondEnergy(b)
		deltaH += e
	}
	for _, b := range formed {
		e, _ := BondEnergy(b)
		deltaH -= e
	}

	ea = intrinsicBarrier + bepSlope*deltaH
	switch {
	case deltaH < exothermicThreshold:
		ea += earlyTSShift
	case deltaH > endothermicThreshold:
		ea += lateTSShift
	}
	return deltaH, math.Max(ea, MinActivationEnergy)
}
