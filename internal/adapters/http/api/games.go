package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/explorer/internal/adapters/mq/queue"
	"github.com/okian/explorer/internal/domain/dedupe"
	"github.com/okian/explorer/internal/domain/model"
	"github.com/okian/explorer/pkg/metrics"
)

const maxGameBodyBytes = 1 << 20

// GameDependencies defines what POST /games needs.
type GameDependencies interface {
	dedupe.Deduper
	Enqueue(ctx context.Context, g model.Game) error
}

// GamesHandler accepts single games in the lichess export JSON shape.
type GamesHandler struct {
	deps GameDependencies
}

// NewGamesHandler creates a new games handler.
func NewGamesHandler(deps GameDependencies) *GamesHandler {
	return &GamesHandler{deps: deps}
}

// HandlePostGame handles POST /games requests.
func (h *GamesHandler) HandlePostGame(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_game"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var g model.Game
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxGameBodyBytes))
	if err := dec.Decode(&g); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if g.ID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing id")))
		return
	}
	metrics.RecordGameReceived()

	// Mark as seen first so concurrent copies of the same game are acked as duplicates.
	if h.deps.SeenAndRecord(r.Context(), g.ID) {
		metrics.RecordGameDuplicate()
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}

	if err := h.deps.Enqueue(r.Context(), g); err != nil {
		h.deps.Unrecord(r.Context(), g.ID)
		if errors.Is(err, queue.ErrClosed) {
			writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
			return
		}
		writeError(w, http.StatusTooManyRequests, "backpressure", WrapKind(op, ErrBackpressure, err))
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", Duplicate: false})
}
