package mechanism

import (
	"math"

	"github.com/turtacn/MechanismLab/pkg/types/chem"
)

// BuildPlot returns the labelled anchors of p's energy diagram at evenly
// spaced reaction coordinates. A malformed profile yields nil.
func BuildPlot(p *chem.EnergyProfile) []chem.PlotPoint {
	if p == nil || p.Validate() != nil {
		return nil
	}
	if p.Steps == 1 {
		return []chem.PlotPoint{
			{X: 0, Y: p.Start, Label: chem.LabelReactants},
			{X: 0.5, Y: p.TransitionStates[0], Label: chem.LabelTS1},
			{X: 1, Y: p.Final, Label: chem.LabelProducts},
		}
	}
	return []chem.PlotPoint{
		{X: 0, Y: p.Start, Label: chem.LabelReactants},
		{X: 0.25, Y: p.TransitionStates[0], Label: chem.LabelTS1},
		{X: 0.5, Y: p.Intermediates[0], Label: chem.LabelIntermediate},
		{X: 0.75, Y: p.TransitionStates[1], Label: chem.LabelTS2},
		{X: 1, Y: p.Final, Label: chem.LabelProducts},
	}
}

// Curve densifies the plot with samplesPerSegment cosine-eased points
// between consecutive anchors. Every anchor is kept with its label, and
// interpolated points are unlabelled. samplesPerSegment <= 0 returns the
// anchors alone.
func Curve(p *chem.EnergyProfile, samplesPerSegment int) []chem.PlotPoint {
	anchors := BuildPlot(p)
	if samplesPerSegment <= 0 || len(anchors) < 2 {
		return anchors
	}

	out := make([]chem.PlotPoint, 0, len(anchors)+(len(anchors)-1)*samplesPerSegment)
	for i := 0; i < len(anchors)-1; i++ {
		a, b := anchors[i], anchors[i+1]
		out = append(out, a)
		for k := 1; k <= samplesPerSegment; k++ {
			t := float64(k) / float64(samplesPerSegment+1)
			ease := (1 - math.Cos(math.Pi*t)) / 2
			out = append(out, chem.PlotPoint{
				X: a.X + (b.X-a.X)*t,
				Y: a.Y + (b.Y-a.Y)*ease,
			})
		}
	}
	return append(out, anchors[len(anchors)-1])
}
