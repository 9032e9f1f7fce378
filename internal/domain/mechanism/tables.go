// Package mechanism holds the deterministic reaction-mechanism engine: the
// structural classifier, the condition scorer, the thermodynamics estimator
// and the energy-profile builder. Every function here is pure and safe for
// concurrent use; the only shared state is the read-only tables in this file.
package mechanism

import (
	"fmt"

	"github.com/turtacn/MechanismLab/pkg/errors"
	"github.com/turtacn/MechanismLab/pkg/types/chem"
)

// TablesVersion identifies the revision of the constant weight tables.
// Bump it whenever a table value changes so cached predictions are not mixed
// across revisions.
const TablesVersion = "2024.06"

// CompetitionThreshold is the percentage a runner-up must exceed to be
// reported as a secondary mechanism.
const CompetitionThreshold = 15

// row is one axis value's contribution to each scored mechanism.
type row map[chem.Mechanism]int

func newRow(sn2, sn1, e2, e1 int) row {
	return row{
		chem.MechanismSN2: sn2,
		chem.MechanismSN1: sn1,
		chem.MechanismE2:  e2,
		chem.MechanismE1:  e1,
	}
}

var substrateWeights = map[chem.SubstrateClass]row{
	chem.SubstrateMethyl:    newRow(30, 0, 0, 0),
	chem.SubstratePrimary:   newRow(25, 0, 10, 0),
	chem.SubstrateSecondary: newRow(12, 10, 15, 8),
	chem.SubstrateTertiary:  newRow(0, 25, 20, 15),
	chem.SubstrateVinyl:     newRow(0, 0, 10, 5),
	chem.SubstrateAllylic:   newRow(20, 20, 10, 10),
	chem.SubstrateBenzylic:  newRow(20, 22, 10, 10),
}

var nucleophileWeights = map[chem.NucleophileClass]row{
	chem.NucleophileStrongSmall:  newRow(20, 0, 15, 0),
	chem.NucleophileStrongNormal: newRow(25, 0, 10, 0),
	chem.NucleophileStrongBulky:  newRow(0, 0, 30, 0),
	chem.NucleophileWeak:         newRow(0, 15, 0, 10),
	chem.NucleophileNone:         newRow(0, 10, 0, 10),
}

var solventWeights = map[chem.SolventClass]row{
	chem.SolventPolarAprotic: newRow(15, 0, 10, 0),
	chem.SolventPolarProtic:  newRow(0, 15, 0, 10),
	chem.SolventNonpolar:     newRow(5, -5, 5, -5),
}

var temperatureWeights = map[chem.TemperatureBand]row{
	chem.TemperatureLow:      newRow(5, 5, -5, -5),
	chem.TemperatureRoom:     newRow(0, 0, 0, 0),
	chem.TemperatureElevated: newRow(-3, -3, 8, 8),
	chem.TemperatureHigh:     newRow(-5, -5, 12, 12),
}

var leavingGroupFactors = map[chem.LeavingGroupQuality]float64{
	chem.LeavingGroupExcellent: 1.3,
	chem.LeavingGroupGood:      1.0,
	chem.LeavingGroupModerate:  0.6,
	chem.LeavingGroupPoor:      0.1,
}

// LeavingGroupFactor returns the multiplicative factor for q. Values outside
// the enum are treated as neutral.
func LeavingGroupFactor(q chem.LeavingGroupQuality) float64 {
	if f, ok := leavingGroupFactors[q]; ok {
		return f
	}
	return 1.0
}

// Tables returns a snapshot of every constant table. The snapshot is a deep
// copy; mutating it does not affect scoring.
func Tables() *chem.WeightTables {
	t := &chem.WeightTables{
		Version:             TablesVersion,
		Mechanisms:          chem.ScoredMechanisms(),
		Substrate:           make(map[chem.SubstrateClass]map[chem.Mechanism]int, len(substrateWeights)),
		Nucleophile:         make(map[chem.NucleophileClass]map[chem.Mechanism]int, len(nucleophileWeights)),
		Solvent:             make(map[chem.SolventClass]map[chem.Mechanism]int, len(solventWeights)),
		Temperature:         make(map[chem.TemperatureBand]map[chem.Mechanism]int, len(temperatureWeights)),
		LeavingGroupFactors: make(map[chem.LeavingGroupQuality]float64, len(leavingGroupFactors)),
		BondEnergies:        make(map[string]float64, len(bondEnergies)),
		CompetitionPercent:  CompetitionThreshold,
	}
	for k, r := range substrateWeights {
		t.Substrate[k] = r.clone()
	}
	for k, r := range nucleophileWeights {
		t.Nucleophile[k] = r.clone()
	}
	for k, r := range solventWeights {
		t.Solvent[k] = r.clone()
	}
	for k, r := range temperatureWeights {
		t.Temperature[k] = r.clone()
	}
	for k, f := range leavingGroupFactors {
		t.LeavingGroupFactors[k] = f
	}
	for k, e := range bondEnergies {
		t.BondEnergies[k] = e
	}
	return t
}

func (r row) clone() map[chem.Mechanism]int {
	out := make(map[chem.Mechanism]int, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ValidateTables checks that every declared enum member has a complete row
// in its table and a leaving-group factor. It is run once at start-up by the
// service; a failure means the tables and the enums have drifted apart.
func ValidateTables() error {
	for _, v := range chem.SubstrateClasses() {
		if err := checkRow("substrate", string(v), substrateWeights[v]); err != nil {
			return err
		}
	}
	for _, v := range chem.NucleophileClasses() {
		if err := checkRow("nucleophile", string(v), nucleophileWeights[v]); err != nil {
			return err
		}
	}
	for _, v := range chem.SolventClasses() {
		if err := checkRow("solvent", string(v), solventWeights[v]); err != nil {
			return err
		}
	}
	for _, v := range chem.TemperatureBands() {
		if err := checkRow("temperature", string(v), temperatureWeights[v]); err != nil {
			return err
		}
	}
	for _, q := range chem.LeavingGroupQualities() {
		if _, ok := leavingGroupFactors[q]; !ok {
			return errors.New(errors.ErrCodeInvalidConfig, "missing leaving group factor").
				WithDetail("value=" + string(q))
		}
	}
	return nil
}

func checkRow(axis, value string, r row) error {
	if r == nil {
		return errors.New(errors.ErrCodeInvalidConfig, "missing "+axis+" row").WithDetail("value=" + value)
	}
	for _, m := range chem.ScoredMechanisms() {
		if _, ok := r[m]; !ok {
			return errors.New(errors.ErrCodeInvalidConfig, "incomplete "+axis+" row").
				WithDetail(fmt.Sprintf("value=%s mechanism=%s", value, m))
		}
	}
	return nil
}
