package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/explorer/internal/adapters/lila"
	service "github.com/okian/explorer/internal/app"
)

// ImportDependencies defines the interface for user imports.
type ImportDependencies interface {
	ImportUser(ctx context.Context, user string) error
}

// ImportHandler handles user import requests.
type ImportHandler struct {
	deps ImportDependencies
}

// NewImportHandler creates a new import handler.
func NewImportHandler(deps ImportDependencies) *ImportHandler {
	return &ImportHandler{deps: deps}
}

type importResponse struct {
	Status string `json:"status"`
	User   string `json:"user"`
}

// HandlePostImport handles POST /import/{user} requests.
func (h *ImportHandler) HandlePostImport(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_import"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	user := strings.TrimPrefix(r.URL.Path, "/import/")
	if user == "" || strings.Contains(user, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	if err := h.deps.ImportUser(r.Context(), user); err != nil {
		switch {
		case errors.Is(err, lila.ErrInvalidUser):
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		case errors.Is(err, service.ErrImportRunning):
			writeError(w, http.StatusConflict, "conflict", err)
		case errors.Is(err, service.ErrImportBusy):
			writeError(w, http.StatusTooManyRequests, "backpressure", WrapKind(op, ErrBackpressure, err))
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", err)
		}
		return
	}
	writeJSON(w, http.StatusAccepted, importResponse{Status: "importing", User: user})
}
