package mechanism

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MechanismLab/pkg/types/chem"
)

func TestBuildPlot_OneStep(t *testing.T) {
	p := EstimateProfile(chem.MechanismSN2, chem.SubstratePrimary, chem.LeavingGroupGood)
	pts := BuildPlot(p)

	require.Len(t, pts, 3)
	assert.Equal(t, chem.PlotPoint{X: 0, Y: 0, Label: chem.LabelReactants}, pts[0])
	assert.Equal(t, chem.PlotPoint{X: 0.5, Y: 18, Label: chem.LabelTS1}, pts[1])
	assert.Equal(t, chem.PlotPoint{X: 1, Y: -5, Label: chem.LabelProducts}, pts[2])
}

func TestBuildPlot_TwoStep(t *testing.T) {
	p := EstimateProfile(chem.MechanismSN1, chem.SubstrateTertiary, chem.LeavingGroupGood)
	pts := BuildPlot(p)

	require.Len(t, pts, 5)
	wantX := []float64{0, 0.25, 0.5, 0.75, 1}
	wantY := []float64{0, 17, 10, 15, -5}
	wantLabels := []chem.PlotLabel{
		chem.LabelReactants, chem.LabelTS1, chem.LabelIntermediate, chem.LabelTS2, chem.LabelProducts,
	}
	for i, pt := range pts {
		assert.Equal(t, wantX[i], pt.X)
		assert.InDelta(t, wantY[i], pt.Y, 1e-9)
		assert.Equal(t, wantLabels[i], pt.Label)
	}
}

func TestBuildPlot_Malformed(t *testing.T) {
	assert.Nil(t, BuildPlot(nil))
	assert.Nil(t, BuildPlot(&chem.EnergyProfile{Steps: 2, TransitionStates: []float64{10}}))
	assert.Nil(t, BuildPlot(&chem.EnergyProfile{Steps: 3}))
}

func TestCurve(t *testing.T) {
	p := EstimateProfile(chem.MechanismE1, chem.SubstrateSecondary, chem.LeavingGroupGood)
	anchors := BuildPlot(p)

	assert.Equal(t, anchors, Curve(p, 0))
	assert.Equal(t, anchors, Curve(p, -4))

	const samples = 3
	curve := Curve(p, samples)
	require.Len(t, curve, len(anchors)+(len(anchors)-1)*samples)

	for i, a := range anchors {
		assert.Equal(t, a, curve[i*(samples+1)], "anchor %d kept in place", i)
	}
	for i := 1; i < len(curve); i++ {
		assert.Greater(t, curve[i].X, curve[i-1].X, "x strictly increasing")
	}
	for seg := 0; seg < len(anchors)-1; seg++ {
		lo, hi := anchors[seg].Y, anchors[seg+1].Y
		if lo > hi {
			lo, hi = hi, lo
		}
		for k := 1; k <= samples; k++ {
			pt := curve[seg*(samples+1)+k]
			assert.Empty(t, pt.Label)
			assert.GreaterOrEqual(t, pt.Y, lo)
			assert.LessOrEqual(t, pt.Y, hi)
		}
	}

	assert.Equal(t, curve, Curve(p, samples))
	assert.Nil(t, Curve(nil, samples))
}
