package cli

import (
	"context"

	"github.com/turtacn/MechanismLab/internal/application/reaction"
	"github.com/turtacn/MechanismLab/pkg/client"
	"github.com/turtacn/MechanismLab/pkg/types/chem"
)

// Engine is what the commands run against: the in-process service or a
// remote server through the SDK.
type Engine interface {
	Parse(ctx context.Context, notation string) (*chem.MoleculeFeatures, error)
	Analyze(ctx context.Context, req chem.AnalyzeRequest) (*chem.AnalysisResult, error)
	AnalyzeBatch(ctx context.Context, items []chem.AnalyzeRequest) (*chem.BatchAnalyzeResponse, error)
	Score(ctx context.Context, c chem.ConditionSet) (*chem.MechanismPrediction, error)
	Profile(ctx context.Context, req chem.ProfileRequest) (*chem.ProfileResponse, error)
	Tables(ctx context.Context) (*chem.WeightTables, error)
}

var _ Engine = (*client.ReactionsClient)(nil)

type localEngine struct {
	svc reaction.Service
}

// NewLocalEngine runs commands against svc in-process.
func NewLocalEngine(svc reaction.Service) Engine {
	return &localEngine{svc: svc}
}

func (e *localEngine) Parse(ctx context.Context, notation string) (*chem.MoleculeFeatures, error) {
	return e.svc.Parse(ctx, notation)
}

func (e *localEngine) Analyze(ctx context.Context, req chem.AnalyzeRequest) (*chem.AnalysisResult, error) {
	return e.svc.AnalyzeWithConditions(ctx, req)
}

func (e *localEngine) AnalyzeBatch(ctx context.Context, items []chem.AnalyzeRequest) (*chem.BatchAnalyzeResponse, error) {
	return e.svc.AnalyzeBatch(ctx, chem.BatchAnalyzeRequest{Items: items})
}

func (e *localEngine) Score(ctx context.Context, c chem.ConditionSet) (*chem.MechanismPrediction, error) {
	return e.svc.Score(ctx, c)
}

func (e *localEngine) Profile(ctx context.Context, req chem.ProfileRequest) (*chem.ProfileResponse, error) {
	return e.svc.Profile(ctx, req)
}

func (e *localEngine) Tables(context.Context) (*chem.WeightTables, error) {
	return e.svc.Tables(), nil
}
