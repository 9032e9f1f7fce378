package mechanism

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MechanismLab/internal/domain/notation"
	"github.com/turtacn/MechanismLab/pkg/types/chem"
)

func features(t *testing.T, s string) *chem.MoleculeFeatures {
	t.Helper()
	f, err := notation.Parse(s)
	require.NoError(t, err)
	return f
}

func classify(t *testing.T, before, after string) *chem.ReactionAnalysis {
	t.Helper()
	return Classify(features(t, before), features(t, after))
}

func TestClassify_PrimarySubstitution(t *testing.T) {
	a := classify(t, "CCBr", "CCO")

	assert.Equal(t, chem.CategorySubstitution, a.Category)
	assert.Equal(t, chem.MechanismSN2, a.Mechanism)
	assert.Equal(t, chem.ConfidenceMedium, a.Confidence)
	assert.Equal(t, []string{"C-Br"}, a.BondsBroken)
	assert.Equal(t, []string{"C-O"}, a.BondsFormed)
	assert.InDelta(t, -18.0, a.DeltaH, 1e-9)
	assert.InDelta(t, 15.5, a.Ea, 1e-9)
}

func TestClassify_SecondaryElimination(t *testing.T) {
	a := classify(t, "CC(Br)C", "CC=CC")

	assert.Equal(t, chem.CategoryElimination, a.Category)
	assert.Equal(t, chem.MechanismE2, a.Mechanism)
	assert.Equal(t, []string{"C-Br", "C-H"}, a.BondsBroken)
	assert.Equal(t, []string{"C=C"}, a.BondsFormed)
	assert.InDelta(t, 21.0, a.DeltaH, 1e-9)
	assert.InDelta(t, 30.25, a.Ea, 1e-9)
}

func TestClassify_SubstitutionMechanismBySubstrate(t *testing.T) {
	cases := []struct {
		before, after string
		want          chem.Mechanism
	}{
		{"CBr", "CO", chem.MechanismSN2},
		{"CCBr", "CCO", chem.MechanismSN2},
		{"CC(Br)C", "CC(O)C", chem.MechanismSN1OrSN2},
		{"CC(C)(C)Br", "CC(C)(C)O", chem.MechanismSN1},
	}
	for _, tc := range cases {
		a := classify(t, tc.before, tc.after)
		assert.Equal(t, chem.CategorySubstitution, a.Category, tc.before)
		assert.Equal(t, tc.want, a.Mechanism, tc.before)
	}
}

func TestClassify_TertiaryElimination(t *testing.T) {
	a := classify(t, "CC(C)(C)Br", "CC(C)=C")
	assert.Equal(t, chem.CategoryElimination, a.Category)
	assert.Equal(t, chem.MechanismE1, a.Mechanism)
}

func TestClassify_BondLabelsFollowElementOrder(t *testing.T) {
	a := classify(t, "BrCCCl", "OCCN")
	assert.Equal(t, chem.CategorySubstitution, a.Category)
	assert.Equal(t, []string{"C-Cl", "C-Br"}, a.BondsBroken)
	assert.Equal(t, []string{"C-O", "C-N"}, a.BondsFormed)

	a = classify(t, "CCBr", "CCN")
	assert.Equal(t, []string{"C-N"}, a.BondsFormed)
	assert.InDelta(t, -5.0, a.DeltaH, 1e-9)
}

func TestClassify_SubstitutionBlockedByNewDoubleBond(t *testing.T) {
	a := classify(t, "CCCBr", "C=CCO")
	assert.Equal(t, chem.CategorySubstitution, a.Category, "leading '=' has no bond to mark")

	a = classify(t, "CCCBr", "CC=CO")
	assert.Equal(t, chem.CategoryElimination, a.Category)
}

func TestClassify_Addition(t *testing.T) {
	a := classify(t, "CC=CC", "CCCC")

	assert.Equal(t, chem.CategoryAddition, a.Category)
	assert.Equal(t, chem.MechanismHydrogenation, a.Mechanism)
	assert.Equal(t, chem.ConfidenceMedium, a.Confidence)
	assert.Equal(t, []string{"C=C"}, a.BondsBroken)
	assert.Equal(t, []string{"C-H", "C-H", "C-C"}, a.BondsFormed)
	assert.InDelta(t, -135.0, a.DeltaH, 1e-9)
	assert.Equal(t, MinActivationEnergy, a.Ea)
}

func TestClassify_Unknown(t *testing.T) {
	for _, pair := range [][2]string{{"CCCC", "CCCC"}, {"CCBr", "CC"}, {"CCO", "CCBr"}} {
		a := classify(t, pair[0], pair[1])
		assert.Equal(t, chem.CategoryUnknown, a.Category, pair)
		assert.True(t, a.Mechanism.IsNone(), pair)
		assert.Equal(t, chem.ConfidenceLow, a.Confidence, pair)
		assert.Empty(t, a.BondsBroken)
		assert.Empty(t, a.BondsFormed)
		assert.NotNil(t, a.BondsBroken)
		assert.Zero(t, a.DeltaH)
	}
}

func TestClassify_NilFeatures(t *testing.T) {
	a := Classify(nil, nil)
	require.NotNil(t, a)
	assert.Equal(t, chem.CategoryUnknown, a.Category)
	assert.NotNil(t, a.Reactant)
	assert.NotNil(t, a.Product)
}

func TestClassify_MechanismMatchesCategory(t *testing.T) {
	notations := []string{
		"CCBr", "CCO", "CC(Br)C", "CC=CC", "CC(C)(C)Br", "CC(C)=C", "CCCC",
		"CCN", "ClCCl", "C#C", "CC#CC", "c1ccccc1Br", "c1ccccc1O", "CC(=O)O",
	}
	for _, before := range notations {
		for _, after := range notations {
			a := classify(t, before, after)
			switch a.Category {
			case chem.CategorySubstitution, chem.CategoryElimination:
				assert.True(t, a.Mechanism.IsSubstitutionOrElimination(), "%s -> %s", before, after)
			case chem.CategoryAddition:
				assert.Equal(t, chem.MechanismHydrogenation, a.Mechanism, "%s -> %s", before, after)
			case chem.CategoryUnknown:
				assert.True(t, a.Mechanism.IsNone(), "%s -> %s", before, after)
				continue
			}
			assert.False(t, len(a.BondsBroken) == 0 && len(a.BondsFormed) == 0, "%s -> %s", before, after)
			assert.GreaterOrEqual(t, a.Ea, MinActivationEnergy)
		}
	}
}
