package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/explorer/internal/adapters/repository"
	"github.com/okian/explorer/internal/domain/lichess"
	"github.com/okian/explorer/internal/domain/model"
	"github.com/okian/explorer/internal/domain/opening"
)

// ExplorerDependencies defines the interface for position lookups.
type ExplorerDependencies interface {
	Lookup(ctx context.Context, fen string) (opening.Key, lichess.Entry, error)
}

// ExplorerHandler serves the recorded cells of one position.
type ExplorerHandler struct {
	deps ExplorerDependencies
}

// NewExplorerHandler creates a new explorer handler.
func NewExplorerHandler(deps ExplorerDependencies) *ExplorerHandler {
	return &ExplorerHandler{deps: deps}
}

type gameRefResponse struct {
	ID        model.GameID `json:"id"`
	CreatedAt uint64       `json:"createdAt"`
}

type cellResponse struct {
	Speed         model.Speed       `json:"speed"`
	RatingGroup   model.RatingGroup `json:"ratingGroup"`
	White         uint64            `json:"white"`
	Draws         uint64            `json:"draws"`
	Black         uint64            `json:"black"`
	AverageRating uint64            `json:"averageRating"`
	Games         []gameRefResponse `json:"games"`
}

type explorerResponse struct {
	Position opening.Key    `json:"position"`
	Cells    []cellResponse `json:"cells"`
}

// HandleGetExplorer handles GET /explorer?fen= requests.
func (h *ExplorerHandler) HandleGetExplorer(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_explorer"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	fen := strings.TrimSpace(r.URL.Query().Get("fen"))
	if fen == "" {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing fen")))
		return
	}

	key, entry, err := h.deps.Lookup(r.Context(), fen)
	switch {
	case errors.Is(err, opening.ErrInvalidFEN):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, newExplorerResponse(key, entry))
}

func newExplorerResponse(key opening.Key, entry lichess.Entry) explorerResponse {
	resp := explorerResponse{Position: key, Cells: make([]cellResponse, 0, entry.Len())}
	for _, cg := range entry.Groups() {
		cell := cellResponse{
			Speed:         cg.Speed,
			RatingGroup:   cg.RatingGroup,
			White:         cg.Stats.White,
			Draws:         cg.Stats.Draws,
			Black:         cg.Stats.Black,
			AverageRating: cg.Stats.AverageRating(),
			Games:         make([]gameRefResponse, len(cg.Games)),
		}
		for i, ref := range cg.Games {
			cell.Games[i] = gameRefResponse{ID: ref.ID, CreatedAt: ref.CreatedAt}
		}
		resp.Cells = append(resp.Cells, cell)
	}
	return resp
}
