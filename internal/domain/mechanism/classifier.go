package mechanism

import "github.com/turtacn/MechanismLab/pkg/types/chem"

// Classify compares reactant and product features and names the reaction
// category and mechanism with a fixed decision list; the first rule that
// matches wins. It never fails: a pair that matches no rule is reported as
// unknown with low confidence. A nil argument is read as an empty molecule.
func Classify(before, after *chem.MoleculeFeatures) *chem.ReactionAnalysis {
	if before == nil {
		before = &chem.MoleculeFeatures{}
	}
	if after == nil {
		after = &chem.MoleculeFeatures{}
	}

	a := &chem.ReactionAnalysis{
		Reactant:    before,
		Product:     after,
		BondsBroken: []string{},
		BondsFormed: []string{},
	}

	lost := lostHalogens(before, after)
	gainedO := after.Oxygen > before.Oxygen
	gainedN := after.Nitrogen > before.Nitrogen
	moreDouble := after.DoubleBonds > before.DoubleBonds
	fewerDouble := after.DoubleBonds < before.DoubleBonds

	switch {
	case len(lost) > 0 && (gainedO || gainedN) && !moreDouble:
		a.Category = chem.CategorySubstitution
		a.Mechanism = substitutionMechanism(before.Substitution)
		a.Confidence = chem.ConfidenceMedium
		a.BondsBroken = carbonHalogenLabels(lost)
		if gainedO {
			a.BondsFormed = append(a.BondsFormed, "C-O")
		}
		if gainedN {
			a.BondsFormed = append(a.BondsFormed, "C-N")
		}

	case len(lost) > 0 && moreDouble:
		a.Category = chem.CategoryElimination
		a.Mechanism = chem.MechanismE2
		if before.Substitution == chem.SubstitutionTertiary {
			a.Mechanism = chem.MechanismE1
		}
		a.Confidence = chem.ConfidenceMedium
		a.BondsBroken = append(carbonHalogenLabels(lost), "C-H")
		a.BondsFormed = []string{"C=C"}

	case fewerDouble:
		a.Category = chem.CategoryAddition
		a.Mechanism = chem.MechanismHydrogenation
		a.Confidence = chem.ConfidenceMedium
		a.BondsBroken = []string{"C=C"}
		a.BondsFormed = []string{"C-H", "C-H", "C-C"}

	default:
		a.Category = chem.CategoryUnknown
		a.Mechanism = chem.MechanismNone
		a.Confidence = chem.ConfidenceLow
	}

	a.DeltaH, a.Ea = EstimateBonds(a.BondsBroken, a.BondsFormed)
	return a
}

func substitutionMechanism(s chem.SubstitutionClass) chem.Mechanism {
	switch s {
	case chem.SubstitutionTertiary:
		return chem.MechanismSN1
	case chem.SubstitutionSecondary:
		return chem.MechanismSN1OrSN2
	default:
		return chem.MechanismSN2
	}
}

// lostHalogens lists, in F Cl Br I order, the halogens whose count dropped.
func lostHalogens(before, after *chem.MoleculeFeatures) []chem.Halogen {
	var lost []chem.Halogen
	for _, h := range chem.Halogens() {
		if after.HalogenCount(h) < before.HalogenCount(h) {
			lost = append(lost, h)
		}
	}
	return lost
}

func carbonHalogenLabels(halogens []chem.Halogen) []string {
	labels := make([]string, 0, len(halogens)+1)
	for _, h := range halogens {
		labels = append(labels, "C-"+string(h))
	}
	return labels
}
