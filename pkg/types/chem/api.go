package chem

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Request / response types shared by the HTTP API, the worker and the client
// ─────────────────────────────────────────────────────────────────────────────

// ParseRequest asks for the features of one notation.
type ParseRequest struct {
	Notation string `json:"notation"`
}

// AnalyzeRequest asks for the classification of a reactant/product pair.
// Conditions is optional; when present the condition scorer is consulted too.
type AnalyzeRequest struct {
	Reactant   string        `json:"reactant"`
	Product    string        `json:"product"`
	Conditions *ConditionSet `json:"conditions,omitempty"`
}

// AnalysisResult bundles everything the engine derives from one request.
type AnalysisResult struct {
	ID         string               `json:"id"`
	Analysis   *ReactionAnalysis    `json:"analysis"`
	Prediction *MechanismPrediction `json:"prediction,omitempty"`
	Profile    *EnergyProfile       `json:"profile"`
	Plot       []PlotPoint          `json:"plot"`
}

// BatchAnalyzeRequest carries several independent analyses.
type BatchAnalyzeRequest struct {
	Items []AnalyzeRequest `json:"items"`
}

// BatchItemError is the error body for a failed batch entry.
type BatchItemError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// BatchItem is one entry of a batch response, in request order.
type BatchItem struct {
	Index  int             `json:"index"`
	Result *AnalysisResult `json:"result,omitempty"`
	Error  *BatchItemError `json:"error,omitempty"`
}

// BatchAnalyzeResponse preserves the order of the request items.
type BatchAnalyzeResponse struct {
	Items     []BatchItem `json:"items"`
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
}

// ProfileRequest asks for an energy profile either for an explicit
// mechanism or for the primary mechanism of a condition set. Samples > 0
// adds an interpolated curve.
type ProfileRequest struct {
	Mechanism    Mechanism           `json:"mechanism,omitempty"`
	Substrate    SubstrateClass      `json:"substrate,omitempty"`
	LeavingGroup LeavingGroupQuality `json:"leaving_group,omitempty"`
	Conditions   *ConditionSet       `json:"conditions,omitempty"`
	Samples      int                 `json:"samples,omitempty"`
}

// ProfileResponse is the energy profile with its plot anchors and optional
// smooth curve.
type ProfileResponse struct {
	Profile *EnergyProfile `json:"profile"`
	Plot    []PlotPoint    `json:"plot"`
	Curve   []PlotPoint    `json:"curve,omitempty"`
}

// WeightTables is a read-only export of the constant scoring and energy
// tables.
type WeightTables struct {
	Version             string                                 `json:"version" yaml:"version"`
	Mechanisms          []Mechanism                            `json:"mechanisms" yaml:"mechanisms"`
	Substrate           map[SubstrateClass]map[Mechanism]int   `json:"substrate" yaml:"substrate"`
	Nucleophile         map[NucleophileClass]map[Mechanism]int `json:"nucleophile" yaml:"nucleophile"`
	Solvent             map[SolventClass]map[Mechanism]int     `json:"solvent" yaml:"solvent"`
	Temperature         map[TemperatureBand]map[Mechanism]int  `json:"temperature" yaml:"temperature"`
	LeavingGroupFactors map[LeavingGroupQuality]float64        `json:"leaving_group_factors" yaml:"leaving_group_factors"`
	BondEnergies        map[string]float64                     `json:"bond_energies" yaml:"bond_energies"`
	CompetitionPercent  int                                    `json:"competition_percent" yaml:"competition_percent"`
}

// AnalysisJob is the payload of an asynchronous analysis request.
type AnalysisJob struct {
	ID         string        `json:"id"`
	Reactant   string        `json:"reactant"`
	Product    string        `json:"product"`
	Conditions *ConditionSet `json:"conditions,omitempty"`
}

// Request converts the job into the synchronous request shape.
func (j AnalysisJob) Request() AnalyzeRequest {
	return AnalyzeRequest{Reactant: j.Reactant, Product: j.Product, Conditions: j.Conditions}
}

// BatchSubmitItem is one entry of a batch submission, in request order.
// Exactly one of Job and Error is set.
type BatchSubmitItem struct {
	Index int             `json:"index"`
	Job   *AnalysisJob    `json:"job,omitempty"`
	Error *BatchItemError `json:"error,omitempty"`
}

// BatchSubmitResponse reports which items were queued for the worker.
type BatchSubmitResponse struct {
	Items     []BatchSubmitItem `json:"items"`
	Submitted int               `json:"submitted"`
	Failed    int               `json:"failed"`
}

// AnalysisCompleted is published once per processed job. Exactly one of
// Result and Error is set.
type AnalysisCompleted struct {
	ID          string          `json:"id"`
	Result      *AnalysisResult `json:"result,omitempty"`
	Error       *BatchItemError `json:"error,omitempty"`
	CompletedAt time.Time       `json:"completed_at"`
}
