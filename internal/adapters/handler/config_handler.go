package handler

import (
	"net/http"

	"go.uber.org/zap"
)

// ConfigHandler serves the browser-safe identity configuration.
type ConfigHandler struct {
	public map[string]string
	logger *zap.Logger
}

func NewConfigHandler(public map[string]string, logger *zap.Logger) *ConfigHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConfigHandler{public: public, logger: logger}
}

func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=300")
	writeJSON(w, h.logger, http.StatusOK, h.public)
}
