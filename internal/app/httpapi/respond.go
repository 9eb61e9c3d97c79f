package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/revendify/backoffice/internal/app/services/publication"
	"github.com/revendify/backoffice/internal/app/storage"
)

func decodeJSON(body io.Reader, dst any) error {
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

// writeServiceError maps engine errors onto HTTP statuses. Fatal transfer
// errors carry a reconcile flag so operators can tell them from transient
// failures.
func writeServiceError(w http.ResponseWriter, err error) {
	var insufficient *publication.InsufficientFundsError
	var configuration *publication.ConfigurationError
	var transferFailure *publication.TransferFailureError
	var compensationFailed *publication.CompensationFailedError
	var stateUpdateFailed *publication.StateUpdateFailedError

	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, publication.ErrForbidden):
		writeError(w, http.StatusForbidden, err)
	case errors.Is(err, publication.ErrInvalidState):
		writeError(w, http.StatusConflict, err)
	case errors.As(err, &insufficient):
		writeJSON(w, http.StatusPaymentRequired, map[string]any{
			"error":     err.Error(),
			"required":  insufficient.Required,
			"available": insufficient.Available,
		})
	case errors.As(err, &configuration):
		writeError(w, http.StatusServiceUnavailable, err)
	case errors.As(err, &compensationFailed):
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":              err.Error(),
			"reconcile_required": true,
			"reference":          compensationFailed.Reference,
		})
	case errors.As(err, &stateUpdateFailed):
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":              err.Error(),
			"reconcile_required": true,
			"reference":          stateUpdateFailed.Reference,
		})
	case errors.As(err, &transferFailure):
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":       err.Error(),
			"compensated": transferFailure.Compensated,
			"reference":   transferFailure.Reference,
		})
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}
