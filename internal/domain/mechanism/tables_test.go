package mechanism

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MechanismLab/pkg/errors"
	"github.com/turtacn/MechanismLab/pkg/types/chem"
)

func TestValidateTables(t *testing.T) {
	require.NoError(t, ValidateTables())
}

func TestValidateTables_DetectsMissingRow(t *testing.T) {
	saved := solventWeights[chem.SolventNonpolar]
	delete(solventWeights, chem.SolventNonpolar)
	defer func() { solventWeights[chem.SolventNonpolar] = saved }()

	err := ValidateTables()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidConfig))
	assert.Contains(t, err.Error(), "nonpolar")
}

func TestValidateTables_DetectsIncompleteRow(t *testing.T) {
	saved := temperatureWeights[chem.TemperatureHigh]
	temperatureWeights[chem.TemperatureHigh] = row{chem.MechanismSN2: 1}
	defer func() { temperatureWeights[chem.TemperatureHigh] = saved }()

	err := ValidateTables()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "incomplete temperature row")
}

func TestTables_Snapshot(t *testing.T) {
	tables := Tables()

	assert.Equal(t, TablesVersion, tables.Version)
	assert.Equal(t, chem.ScoredMechanisms(), tables.Mechanisms)
	assert.Equal(t, CompetitionThreshold, tables.CompetitionPercent)
	assert.Len(t, tables.Substrate, len(chem.SubstrateClasses()))
	assert.Len(t, tables.Nucleophile, len(chem.NucleophileClasses()))
	assert.Len(t, tables.Solvent, len(chem.SolventClasses()))
	assert.Len(t, tables.Temperature, len(chem.TemperatureBands()))
	assert.Len(t, tables.BondEnergies, 17)
	assert.Equal(t, 25, tables.Substrate[chem.SubstrateTertiary][chem.MechanismSN1])
	assert.Equal(t, 1.3, tables.LeavingGroupFactors[chem.LeavingGroupExcellent])

	c := conditions(chem.SubstrateTertiary, chem.NucleophileWeak, chem.LeavingGroupGood,
		chem.SolventPolarProtic, chem.TemperatureRoom)
	before := Score(c)
	tables.Substrate[chem.SubstrateTertiary][chem.MechanismSN1] = -100
	tables.BondEnergies["C-Br"] = 0
	assert.Equal(t, before, Score(c), "mutating the snapshot leaves scoring untouched")
	e, _ := BondEnergy("C-Br")
	assert.Equal(t, 68.0, e)
}

func TestLeavingGroupFactor(t *testing.T) {
	assert.Equal(t, 0.6, LeavingGroupFactor(chem.LeavingGroupModerate))
	assert.Equal(t, 1.0, LeavingGroupFactor("unknown"))
}
