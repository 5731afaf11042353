package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/bloodlinkbd/bloodlink-api/internal/core/domain"
	"github.com/bloodlinkbd/bloodlink-api/internal/core/services"
)

type MatcherHandler struct {
	matches *services.MatchService
	logger  *zap.Logger
}

func NewMatcherHandler(matches *services.MatchService, logger *zap.Logger) *MatcherHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MatcherHandler{matches: matches, logger: logger}
}

type MatchResponse struct {
	Matches []domain.DonorMatch `json:"matches"`
}

func (h *MatcherHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	failed := Notice{Title: "Matching Failed", Description: "Could not suggest donors right now. Please try again."}

	var in services.SuggestInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err, failed, nil)
		return
	}

	matches, err := h.matches.Suggest(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err, failed, in)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, MatchResponse{Matches: matches})
}
