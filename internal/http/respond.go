package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"posledger/internal/core"
)

type errorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

// resultResponse mirrors services.Result on the wire.
type resultResponse struct {
	Success     bool              `json:"success"`
	Message     string            `json:"message"`
	Transaction *core.Transaction `json:"transaction,omitempty"`
	Details     map[string]string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string, details map[string]string) {
	writeJSON(w, status, errorResponse{Error: message, Details: details})
}

// flexString accepts a JSON string or number and keeps its literal text, so
// amounts reach the validator exactly as typed.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	switch {
	case s == "null":
		*f = ""
	case strings.HasPrefix(s, `"`):
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*f = flexString(v)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("expected string or number: %w", err)
		}
		*f = flexString(n.String())
	}
	return nil
}

const maxBodyBytes = 1 << 16

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
