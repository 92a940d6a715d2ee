package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"conti/internal/core"
	applog "conti/internal/log"
	"conti/internal/storage"
)

type errorResponse struct {
	Error string `json:"error"`
}

// errBadRequest marks transport-level input problems (malformed JSON,
// bad path parameters).
var errBadRequest = errors.New("bad request")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto HTTP status codes. Validation
// failures are the caller's fault; an unbalanced group means the stored
// data is corrupt and is reported as a server error.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case isValidationError(err):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrUnbalanced):
		status = http.StatusInternalServerError
	}

	if status >= 500 {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			"error", err, "method", r.Method, "path", r.URL.Path)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func isValidationError(err error) bool {
	for _, target := range []error{
		errBadRequest,
		core.ErrInvalidAmount,
		core.ErrEmptyName,
		core.ErrEmptyEmail,
		core.ErrUnknownSplitType,
		core.ErrEmptySplits,
		core.ErrMissingAmount,
		core.ErrAmountMismatch,
		core.ErrMissingPercentage,
		core.ErrPercentageMismatch,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s", errBadRequest, name)
	}
	return id, nil
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", errBadRequest, err)
	}
	return nil
}
