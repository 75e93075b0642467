package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/issueboard/server/internal/validator"
)

// errorEnvelope is the uniform JSON shape of every non-2xx response.
type errorEnvelope struct {
	Error   string        `json:"error"`
	Details *errorDetails `json:"details,omitempty"`
}

// errorDetails carries the semicolon-joined "field: message" list for
// validation failures.
type errorDetails struct {
	Errors string `json:"errors"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorEnvelope{Error: message})
}

func writeValidationError(w http.ResponseWriter, verr *validator.ValidationError) {
	msgs := make([]string, len(verr.Fields))
	for i, f := range verr.Fields {
		msgs[i] = f.Field + ": " + f.Message
	}
	writeJSON(w, http.StatusBadRequest, errorEnvelope{
		Error:   "validation failed",
		Details: &errorDetails{Errors: strings.Join(msgs, "; ")},
	})
}

func writeNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
