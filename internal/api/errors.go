package api

import (
	"net/http"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/hlog"
)

// Error messages returned in the envelope's error field.
const (
	msgValidationFailed  = "Validation failed"
	msgInvalidJSON       = "Invalid JSON body"
	msgMissingRunFields  = "Missing required fields"
	msgMissingRunParams  = "Missing required parameters: tenant_id and period"
	msgMissingTenant     = "Missing required parameter: tenant_id"
	msgRunNotFound       = "Run not found"
	msgFactorsNotFound   = "Custom factors not found"
	msgMethodNotAllowed  = "Method not allowed"
	msgNotFound          = "Not found"
	msgInternalError     = "Internal server error"
	msgSaveFailed        = "Failed to save run"
	msgSaveFactorsFailed = "Failed to save custom factors"
)

// ErrorResponse is the JSON envelope for every non-2xx response.
type ErrorResponse struct {
	Error     string   `json:"error"`
	Details   []string `json:"details,omitempty"`
	RequestID string   `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("failed to encode response")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"` + msgInternalError + `"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		hlog.FromRequest(r).Debug().Err(err).Msg("failed to write response")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string, details ...string) {
	writeJSON(w, r, status, ErrorResponse{
		Error:     message,
		Details:   details,
		RequestID: RequestIDFromContext(r.Context()),
	})
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}
