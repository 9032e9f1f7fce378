package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/turtacn/MechanismLab/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MechanismLab/pkg/errors"
)

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// writeAppError maps err to its registered HTTP status. Server-side failures
// are masked with the generic message for their code.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	var ae *errors.AppError
	if !errors.As(err, &ae) {
		ae = errors.Internal("unexpected error")
	}

	status := ae.HTTPStatus()
	resp := ErrorResponse{
		Code:      string(ae.Code),
		Message:   ae.Message,
		Detail:    ae.Detail,
		RequestID: logging.RequestIDFromContext(r.Context()),
	}
	if status >= http.StatusInternalServerError {
		resp.Message = errors.DefaultMessageForCode(ae.Code)
		resp.Detail = ""
	}
	writeJSON(w, status, resp)
}

// decodeJSON decodes exactly one JSON object from the body into dst.
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		var ae *errors.AppError
		switch {
		case errors.As(err, &ae):
			// Enum fields reject undeclared labels with their own code.
			return ae
		case errors.As(err, &maxErr):
			return errors.New(errors.ErrCodeBadRequest, "request body too large")
		case errors.Is(err, io.EOF):
			return errors.New(errors.ErrCodeBadRequest, "request body is empty")
		default:
			return errors.Wrap(err, errors.ErrCodeBadRequest, "invalid request body")
		}
	}
	if dec.More() {
		return errors.New(errors.ErrCodeBadRequest, "request body must contain a single JSON object")
	}
	return nil
}

// NotFound answers unknown routes with the standard error body.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeAppError(w, r, errors.NotFound("route not found").WithDetail(r.Method+" "+r.URL.Path))
}

// MethodNotAllowed answers known routes called with the wrong method.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{
		Code:      string(errors.ErrCodeBadRequest),
		Message:   "method not allowed",
		RequestID: logging.RequestIDFromContext(r.Context()),
	})
}
