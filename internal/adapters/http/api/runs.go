package api

import (
	"fmt"
	"net/http"
	"strings"
)

// RunsHandler serves stored run results.
type RunsHandler struct {
	runs RunReader
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(runs RunReader) *RunsHandler {
	return &RunsHandler{runs: runs}
}

// HandleGetRun handles GET /runs/{id} requests.
func (h *RunsHandler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrMissingRunID)
		return
	}
	if h.runs == nil {
		writeError(w, http.StatusNotFound, "not_found", ErrNoStore)
		return
	}
	res, err := h.runs.Run(r.Context(), id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case isNotFound(err):
		writeError(w, http.StatusNotFound, "not_found", fmt.Errorf("run %s not found", id))
	default:
		writeError(w, http.StatusInternalServerError, "internal", err)
	}
}
