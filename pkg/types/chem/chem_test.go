package chem

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MechanismLab/pkg/errors"
)

func TestParseConditionAxes_AcceptsUnderscoreAndCase(t *testing.T) {
	solvent, err := ParseSolventClass("Polar_Protic")
	require.NoError(t, err)
	assert.Equal(t, SolventPolarProtic, solvent)

	nuc, err := ParseNucleophileClass("strong bulky")
	require.NoError(t, err)
	assert.Equal(t, NucleophileStrongBulky, nuc)

	_, err = ParseTemperatureBand("lukewarm")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidCondition))
}

func TestEveryAxisValueRoundTrips(t *testing.T) {
	for _, v := range SubstrateClasses() {
		got, err := ParseSubstrateClass(string(v))
		require.NoError(t, err)
		assert.Equal(t, v, got)
		assert.True(t, v.IsValid())
	}
	for _, v := range LeavingGroupQualities() {
		got, err := ParseLeavingGroupQuality(string(v))
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
	assert.False(t, SubstrateClass("neopentyl").IsValid())
}

func TestConditionSet_JSON(t *testing.T) {
	var c ConditionSet
	err := json.Unmarshal([]byte(`{
		"substrate": "tertiary",
		"nucleophile": "weak",
		"leaving_group": "good",
		"solvent": "polar_protic",
		"temperature": "room"
	}`), &c)
	require.NoError(t, err)
	assert.Equal(t, SolventPolarProtic, c.Solvent)
	assert.NoError(t, c.Validate())
	assert.Equal(t, "tertiary|weak|good|polar-protic|room", c.Key())

	err = json.Unmarshal([]byte(`{"substrate":"quaternary"}`), &c)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidCondition))
}

func TestConditionSet_ValidateReportsAxis(t *testing.T) {
	c := ConditionSet{
		Substrate:    SubstratePrimary,
		Nucleophile:  NucleophileWeak,
		LeavingGroup: LeavingGroupGood,
		Solvent:      SolventClass("water"),
		Temperature:  TemperatureRoom,
	}
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "solvent")
}

func TestMechanism_JSONNull(t *testing.T) {
	type wrapper struct {
		M Mechanism `json:"m"`
	}
	data, err := json.Marshal(wrapper{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"m":null}`, string(data))

	var w wrapper
	require.NoError(t, json.Unmarshal([]byte(`{"m":"SN1-or-SN2"}`), &w))
	assert.Equal(t, MechanismSN1OrSN2, w.M)
	require.NoError(t, json.Unmarshal([]byte(`{"m":null}`), &w))
	assert.Equal(t, MechanismNone, w.M)
	assert.Error(t, json.Unmarshal([]byte(`{"m":"SN3"}`), &w))
}

func TestMechanism_AmbiguityHelpers(t *testing.T) {
	assert.Equal(t, []Mechanism{MechanismSN1, MechanismSN2}, MechanismSN1OrSN2.Candidates())
	assert.Equal(t, MechanismSN2, MechanismSN1OrSN2.ThermoDefault())
	assert.Equal(t, MechanismE1, MechanismE1.ThermoDefault())
	assert.Nil(t, MechanismNone.Candidates())
	assert.Equal(t, 2, MechanismSN1.Steps())
	assert.Equal(t, 1, MechanismE2.Steps())
	assert.True(t, MechanismSN1OrSN2.IsSubstitutionOrElimination())
	assert.False(t, MechanismHydrogenation.IsSubstitutionOrElimination())
	assert.Equal(t, "none", MechanismNone.String())
}

func TestParseMechanism(t *testing.T) {
	cases := map[string]Mechanism{
		"sn2":           MechanismSN2,
		"E1":            MechanismE1,
		"sn1_or_sn2":    MechanismSN1OrSN2,
		"Hydrogenation": MechanismHydrogenation,
		"none":          MechanismNone,
		"":              MechanismNone,
	}
	for in, want := range cases {
		got, err := ParseMechanism(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseMechanism("radical")
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnsupportedMechanism))
}

func TestGroupSet(t *testing.T) {
	s := NewGroupSet(GroupThiol, GroupAlcohol, GroupAlcohol)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []FunctionalGroup{GroupAlcohol, GroupThiol}, s.List())
	assert.Equal(t, "alcohol,thiol", s.String())
	assert.False(t, s.Has(FunctionalGroup("ketone")))

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `["alcohol","thiol"]`, string(data))

	var back GroupSet
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, s, back)
	assert.Error(t, json.Unmarshal([]byte(`["ketone"]`), &back))
}

func TestSubstitutionForCarbonNeighbours(t *testing.T) {
	assert.Equal(t, SubstitutionMethyl, SubstitutionForCarbonNeighbours(0))
	assert.Equal(t, SubstitutionPrimary, SubstitutionForCarbonNeighbours(1))
	assert.Equal(t, SubstitutionSecondary, SubstitutionForCarbonNeighbours(2))
	assert.Equal(t, SubstitutionTertiary, SubstitutionForCarbonNeighbours(4))
	assert.Equal(t, SubstrateTertiary, SubstitutionTertiary.Substrate())
}

func TestEnergyProfile_Validate(t *testing.T) {
	ok := &EnergyProfile{Steps: 2, TransitionStates: []float64{22, 20}, Intermediates: []float64{15}}
	assert.NoError(t, ok.Validate())

	bad := &EnergyProfile{Steps: 1, TransitionStates: []float64{18}, Intermediates: []float64{3}}
	assert.Error(t, bad.Validate())

	assert.Error(t, (&EnergyProfile{Steps: 3}).Validate())
}

func TestMechanismPrediction_Lookup(t *testing.T) {
	p := &MechanismPrediction{
		Scores: []MechanismScore{
			{Mechanism: MechanismSN2, Percent: 10},
			{Mechanism: MechanismSN1, Percent: 90},
		},
		Primary: MechanismSN1,
	}
	assert.Equal(t, 90, p.Percent(MechanismSN1))
	assert.Equal(t, 0, p.Percent(MechanismE1))
	assert.False(t, p.HasSecondary())
	assert.Len(t, p.TableRows(), 2)
	assert.Equal(t, "SN1 *", p.TableRows()[1][0])
}
