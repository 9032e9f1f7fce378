package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/turtacn/MechanismLab/internal/application/reaction"
	"github.com/turtacn/MechanismLab/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MechanismLab/pkg/errors"
	"github.com/turtacn/MechanismLab/pkg/types/chem"
)

// ReactionHandler exposes the reaction analysis service over HTTP.
type ReactionHandler struct {
	svc    reaction.Service
	logger logging.Logger
}

func NewReactionHandler(svc reaction.Service, logger logging.Logger) *ReactionHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &ReactionHandler{svc: svc, logger: logger}
}

// RegisterRoutes mounts the analysis routes on r, normally the /api/v1
// subrouter.
func (h *ReactionHandler) RegisterRoutes(r chi.Router) {
	r.Post("/notation/parse", h.Parse)
	r.Post("/reactions/analyze", h.Analyze)
	r.Post("/reactions/analyze/batch", h.AnalyzeBatch)
	r.Post("/reactions/analyze/async", h.Submit)
	r.Post("/reactions/analyze/batch/async", h.SubmitBatch)
	r.Post("/mechanisms/score", h.Score)
	r.Post("/profiles", h.Profile)
	r.Get("/tables", h.Tables)
}

// Parse handles POST /notation/parse.
func (h *ReactionHandler) Parse(w http.ResponseWriter, r *http.Request) {
	var req chem.ParseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	features, err := h.svc.Parse(r.Context(), req.Notation)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, features)
}

// Analyze handles POST /reactions/analyze.
func (h *ReactionHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req chem.AnalyzeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	res, err := h.svc.AnalyzeWithConditions(r.Context(), req)
	if err != nil {
		h.logFailure(r, "analyze failed", err)
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// AnalyzeBatch handles POST /reactions/analyze/batch. Per-item failures are
// reported inside a 200 response.
func (h *ReactionHandler) AnalyzeBatch(w http.ResponseWriter, r *http.Request) {
	var req chem.BatchAnalyzeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	res, err := h.svc.AnalyzeBatch(r.Context(), req)
	if err != nil {
		h.logFailure(r, "batch analyze failed", err)
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Submit handles POST /reactions/analyze/async. The job is accepted for the
// worker and its result is published on the completed topic.
func (h *ReactionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req chem.AnalyzeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	job, err := h.svc.Submit(r.Context(), req)
	if err != nil {
		h.logFailure(r, "submit failed", err)
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

// SubmitBatch handles POST /reactions/analyze/batch/async. Items that could
// not be queued are reported inside a 202 response.
func (h *ReactionHandler) SubmitBatch(w http.ResponseWriter, r *http.Request) {
	var req chem.BatchAnalyzeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	res, err := h.svc.SubmitBatch(r.Context(), req)
	if err != nil {
		h.logFailure(r, "batch submit failed", err)
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, res)
}

// Score handles POST /mechanisms/score.
func (h *ReactionHandler) Score(w http.ResponseWriter, r *http.Request) {
	var req chem.ConditionSet
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	pred, err := h.svc.Score(r.Context(), req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pred)
}

// Profile handles POST /profiles.
func (h *ReactionHandler) Profile(w http.ResponseWriter, r *http.Request) {
	var req chem.ProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	res, err := h.svc.Profile(r.Context(), req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Tables handles GET /tables.
func (h *ReactionHandler) Tables(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Tables())
}

func (h *ReactionHandler) logFailure(r *http.Request, msg string, err error) {
	if errors.IsValidation(err) {
		return
	}
	h.logger.WithContext(r.Context()).Error(msg, logging.Err(err), logging.String("code", string(errors.GetCode(err))))
}
