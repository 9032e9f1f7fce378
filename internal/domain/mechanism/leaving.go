package mechanism

import "github.com/turtacn/MechanismLab/pkg/types/chem"

// halogenLeavingGroup grades each halide as a leaving group.
var halogenLeavingGroup = map[chem.Halogen]chem.LeavingGroupQuality{
	chem.Iodine:   chem.LeavingGroupExcellent,
	chem.Bromine:  chem.LeavingGroupGood,
	chem.Chlorine: chem.LeavingGroupModerate,
	chem.Fluorine: chem.LeavingGroupPoor,
}

// InferLeavingGroup grades the best halide lost between before and after.
// When no halogen count drops the leaving group is taken as good, which
// leaves energetics unpenalised.
func InferLeavingGroup(before, after *chem.MoleculeFeatures) chem.LeavingGroupQuality {
	before, after = orEmpty(before), orEmpty(after)
	best := chem.LeavingGroupQuality("")
	for _, h := range chem.Halogens() {
		if after.HalogenCount(h) >= before.HalogenCount(h) {
			continue
		}
		q := halogenLeavingGroup[h]
		if best == "" || LeavingGroupFactor(q) > LeavingGroupFactor(best) {
			best = q
		}
	}
	if best == "" {
		return chem.LeavingGroupGood
	}
	return best
}

func orEmpty(f *chem.MoleculeFeatures) *chem.MoleculeFeatures {
	if f == nil {
		return &chem.MoleculeFeatures{}
	}
	return f
}
