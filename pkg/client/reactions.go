package client

import (
	"context"
	"strings"

	"github.com/turtacn/MechanismLab/pkg/errors"
	"github.com/turtacn/MechanismLab/pkg/types/chem"
)

const apiPrefix = "/api/v1"

// ReactionsClient calls the analysis endpoints.
type ReactionsClient struct {
	client *Client
}

// Parse returns the features of one notation.
func (r *ReactionsClient) Parse(ctx context.Context, notation string) (*chem.MoleculeFeatures, error) {
	if strings.TrimSpace(notation) == "" {
		return nil, errors.New(errors.ErrCodeNotationEmpty, "notation must not be empty")
	}
	var out chem.MoleculeFeatures
	if err := r.client.post(ctx, apiPrefix+"/notation/parse", chem.ParseRequest{Notation: notation}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Analyze classifies a reactant/product pair, scoring conditions when set.
func (r *ReactionsClient) Analyze(ctx context.Context, req chem.AnalyzeRequest) (*chem.AnalysisResult, error) {
	var out chem.AnalysisResult
	if err := r.client.post(ctx, apiPrefix+"/reactions/analyze", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AnalyzeBatch analyzes several pairs. Per-item failures are reported in the
// response rather than as an error.
func (r *ReactionsClient) AnalyzeBatch(ctx context.Context, items []chem.AnalyzeRequest) (*chem.BatchAnalyzeResponse, error) {
	var out chem.BatchAnalyzeResponse
	if err := r.client.post(ctx, apiPrefix+"/reactions/analyze/batch", chem.BatchAnalyzeRequest{Items: items}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Submit queues an analysis for the worker.
func (r *ReactionsClient) Submit(ctx context.Context, req chem.AnalyzeRequest) (*chem.AnalysisJob, error) {
	var out chem.AnalysisJob
	if err := r.client.post(ctx, apiPrefix+"/reactions/analyze/async", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitBatch queues several analyses for the worker. Items that could not
// be queued are reported in the response rather than as an error.
func (r *ReactionsClient) SubmitBatch(ctx context.Context, items []chem.AnalyzeRequest) (*chem.BatchSubmitResponse, error) {
	var out chem.BatchSubmitResponse
	if err := r.client.post(ctx, apiPrefix+"/reactions/analyze/batch/async", chem.BatchAnalyzeRequest{Items: items}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Score ranks SN2, SN1, E2 and E1 for the condition set.
func (r *ReactionsClient) Score(ctx context.Context, c chem.ConditionSet) (*chem.MechanismPrediction, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	var out chem.MechanismPrediction
	if err := r.client.post(ctx, apiPrefix+"/mechanisms/score", c, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Profile builds an energy profile for a mechanism or a condition set.
func (r *ReactionsClient) Profile(ctx context.Context, req chem.ProfileRequest) (*chem.ProfileResponse, error) {
	var out chem.ProfileResponse
	if err := r.client.post(ctx, apiPrefix+"/profiles", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Tables returns the server's weight tables.
func (r *ReactionsClient) Tables(ctx context.Context) (*chem.WeightTables, error) {
	var out chem.WeightTables
	if err := r.client.get(ctx, apiPrefix+"/tables", &out); err != nil {
		return nil, err
	}
	return &out, nil
}
