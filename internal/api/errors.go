package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/travisfleish/staffing-plan-poc/internal/calibration"
	"github.com/travisfleish/staffing-plan-poc/internal/planning"
)

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

// planError maps plan-generation failures to HTTP status codes: not enough
// data is a client-resolvable 422, an unsatisfiable constraint set is a 409,
// everything else is a 500.
func planError(w http.ResponseWriter, err error) {
	var ide *calibration.InsufficientDataError
	var cv *planning.ConstraintViolation
	switch {
	case errors.As(err, &ide):
		httpError(w, http.StatusUnprocessableEntity, "insufficient_data", "%v", err)
	case errors.As(err, &cv):
		httpError(w, http.StatusConflict, "constraint_violation", "%v", err)
	default:
		httpError(w, http.StatusInternalServerError, "api_error", "generating plan: %v", err)
	}
}
